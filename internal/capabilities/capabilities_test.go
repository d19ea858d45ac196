package capabilities

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/psqlpack/psqlpack/internal/dbsession"
	"github.com/psqlpack/psqlpack/internal/semver"
)

func TestProbeDatabaseMissingSkipsExtensions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SHOW SERVER_VERSION").WillReturnRows(sqlmock.NewRows([]string{"server_version"}).AddRow("16.1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)")).
		WithArgs("mydb").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	sess := dbsession.FromDB(db)
	caps, err := Probe(context.Background(), sess, "mydb", nil, nil)
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if caps.DatabaseExists {
		t.Error("expected DatabaseExists = false")
	}
	if caps.ServerVersion != (semver.Semver{Major: 16, Minor: 1, Patch: 0}) {
		t.Errorf("ServerVersion = %v", caps.ServerVersion)
	}
	if len(caps.Extensions) != 0 {
		t.Errorf("expected no extensions queried, got %v", caps.Extensions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProbeDatabaseExistsQueriesExtensions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	extDB, extMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer extDB.Close()

	mock.ExpectQuery("SHOW SERVER_VERSION").WillReturnRows(sqlmock.NewRows([]string{"server_version"}).AddRow("14.2"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)")).
		WithArgs("mydb").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	extMock.ExpectQuery("SELECT name, version, installed FROM pg_available_extension_versions").
		WillReturnRows(sqlmock.NewRows([]string{"name", "version", "installed"}).
			AddRow("pgcrypto", "1.3", true).
			AddRow("postgis", "3.4", false))

	sess := dbsession.FromDB(db)
	connector := func(ctx context.Context, databaseName string) (dbsession.Session, error) {
		return dbsession.FromDB(extDB), nil
	}

	caps, err := Probe(context.Background(), sess, "mydb", connector, nil)
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if !caps.DatabaseExists {
		t.Error("expected DatabaseExists = true")
	}
	if len(caps.Extensions) != 2 {
		t.Fatalf("got %d extensions, want 2", len(caps.Extensions))
	}
	if caps.Extensions[0].Name != "pgcrypto" || !caps.Extensions[0].Installed {
		t.Errorf("extension[0] = %+v", caps.Extensions[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations (main): %v", err)
	}
	if err := extMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations (ext): %v", err)
	}
}

func TestAvailableExtensionsFiltersAndSortsDescending(t *testing.T) {
	caps := &Capabilities{Extensions: []Extension{
		{Name: "pgcrypto", Version: semver.Semver{Major: 1, Minor: 1}},
		{Name: "pgcrypto", Version: semver.Semver{Major: 1, Minor: 3}},
		{Name: "postgis", Version: semver.Semver{Major: 3}},
	}}
	got := caps.AvailableExtensions("pgcrypto", nil)
	if len(got) != 2 {
		t.Fatalf("got %d, want 2", len(got))
	}
	if got[0].Version.Minor != 3 || got[1].Version.Minor != 1 {
		t.Errorf("expected descending version order, got %+v", got)
	}
}
