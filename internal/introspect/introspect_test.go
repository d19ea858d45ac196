package introspect

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/psqlpack/psqlpack/internal/ast"
	"github.com/psqlpack/psqlpack/internal/dbsession"
)

func TestIntrospectAssemblesPackageFromCatalogQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT nspname FROM pg_catalog.pg_namespace").
		WillReturnRows(sqlmock.NewRows([]string{"nspname"}).
			AddRow("pg_catalog").AddRow("app").AddRow("public"))

	mock.ExpectQuery("SELECT extname FROM pg_catalog.pg_extension").
		WillReturnRows(sqlmock.NewRows([]string{"extname"}).AddRow("pgcrypto"))

	mock.ExpectQuery("SELECT n.nspname, t.typname, e.enumlabel").
		WillReturnRows(sqlmock.NewRows([]string{"nspname", "typname", "enumlabel"}).
			AddRow("app", "status", "active").
			AddRow("app", "status", "inactive"))

	mock.ExpectQuery("SELECT table_schema, table_name").
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name"}).
			AddRow("app", "users"))

	mock.ExpectQuery("tc.table_schema, tc.table_name, tc.constraint_name, tc.constraint_type, kcu.column_name").
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name", "constraint_name", "constraint_type", "column_name"}).
			AddRow("app", "users", "users_pk", "PRIMARY KEY", "id"))

	mock.ExpectQuery("kcu.column_name, ccu.table_schema, ccu.table_name, ccu.column_name,").
		WillReturnRows(sqlmock.NewRows([]string{
			"table_schema", "table_name", "constraint_name", "column_name",
			"table_schema", "table_name", "column_name", "update_rule", "delete_rule",
		}))

	mock.ExpectQuery("FROM information_schema.columns c").
		WithArgs("app", "users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default"}).
			AddRow("id", "integer", "NO", nil).
			AddRow("balance", "integer", "YES", "nextval('users_balance_seq'::regclass)").
			AddRow("note", "text", "YES", "'hi'::text"))

	mock.ExpectQuery("n.nspname, t.relname, i.relname, ix.indisunique,").
		WillReturnRows(sqlmock.NewRows([]string{"nspname", "relname", "relname", "indisunique", "amname", "attname", "ord"}).
			AddRow("app", "users", "idx_note", false, "gin", "note", 1))

	mock.ExpectQuery("SELECT n.nspname, p.proname, l.lanname, pg_catalog.pg_get_function_result").
		WillReturnRows(sqlmock.NewRows([]string{"nspname", "proname", "lanname", "result", "prosrc"}).
			AddRow("app", "touch", "plpgsql", "trigger", "begin return new; end;"))

	sess := dbsession.FromDB(db)
	pkg, err := Introspect(context.Background(), sess)
	if err != nil {
		t.Fatalf("Introspect returned error: %v", err)
	}

	if len(pkg.Schemas) != 1 || pkg.Schemas[0].Name != "app" {
		t.Errorf("schemas = %+v, want only app (pg_catalog/public filtered)", pkg.Schemas)
	}
	if len(pkg.Extensions) != 1 || pkg.Extensions[0].Name != "pgcrypto" {
		t.Errorf("extensions = %+v", pkg.Extensions)
	}
	if len(pkg.Enums) != 1 || len(pkg.Enums[0].Values) != 2 {
		t.Fatalf("enums = %+v", pkg.Enums)
	}

	if len(pkg.Tables) != 1 {
		t.Fatalf("tables = %+v", pkg.Tables)
	}
	tbl := pkg.Tables[0]
	if len(tbl.Constraints) != 1 || tbl.Constraints[0].Kind != ast.PrimaryKeyConstraint {
		t.Errorf("constraints = %+v", tbl.Constraints)
	}
	if len(tbl.Columns) != 3 {
		t.Fatalf("columns = %+v", tbl.Columns)
	}
	if tbl.Columns[0].Nullable {
		t.Error("id should be non-nullable")
	}
	if !tbl.Columns[1].Identity || tbl.Columns[1].SQLType != "serial" {
		t.Errorf("balance column = %+v, want identity serial", tbl.Columns[1])
	}
	if tbl.Columns[2].Default == nil || *tbl.Columns[2].Default != "'hi'" {
		t.Errorf("note default = %v, want 'hi' with cast stripped", tbl.Columns[2].Default)
	}

	if len(pkg.Indexes) != 1 || pkg.Indexes[0].Method != ast.Gin {
		t.Errorf("indexes = %+v", pkg.Indexes)
	}
	if len(pkg.Functions) != 1 || pkg.Functions[0].Language != ast.LangPLPGSQL {
		t.Errorf("functions = %+v", pkg.Functions)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIsSerialDefaultDetectsSequenceDefaults(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"nextval('users_id_seq'::regclass)", true},
		{"nextval('custom_seq_name'::regclass)", true},
		{"'active'::text", false},
		{"0", false},
	}
	for _, c := range cases {
		if got := isSerialDefault(c.in); got != c.want {
			t.Errorf("isSerialDefault(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeDefaultStripsTrailingCast(t *testing.T) {
	cases := []struct{ in, want string }{
		{"'{}'::jsonb", "'{}'"},
		{"0", "0"},
		{"'a::b'::text", "'a::b'"},
	}
	for _, c := range cases {
		if got := normalizeDefault(c.in); got != c.want {
			t.Errorf("normalizeDefault(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsSystemSchemaMatchesKnownAndTemp(t *testing.T) {
	for _, name := range []string{"pg_catalog", "information_schema", "pg_toast", "pg_temp_1", "pg_toast_temp_3"} {
		if !isSystemSchema(name) {
			t.Errorf("isSystemSchema(%q) = false, want true", name)
		}
	}
	if isSystemSchema("app") {
		t.Error("isSystemSchema(app) = true, want false")
	}
}

func TestMethodFromNameMapsKnownMethods(t *testing.T) {
	cases := []struct {
		in   string
		want ast.IndexMethod
	}{
		{"gin", ast.Gin},
		{"gist", ast.Gist},
		{"hash", ast.HashMethod},
		{"btree", ast.BTree},
		{"unknown", ast.BTree},
	}
	for _, c := range cases {
		if got := methodFromName(c.in); got != c.want {
			t.Errorf("methodFromName(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLanguageFromNameMapsKnownLanguages(t *testing.T) {
	cases := []struct {
		in   string
		want ast.FunctionLanguage
	}{
		{"plpgsql", ast.LangPLPGSQL},
		{"c", ast.LangC},
		{"internal", ast.LangInternal},
		{"sql", ast.LangSQL},
	}
	for _, c := range cases {
		if got := languageFromName(c.in); got != c.want {
			t.Errorf("languageFromName(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeRuleBlanksNoAction(t *testing.T) {
	if got := normalizeRule("NO ACTION"); got != "" {
		t.Errorf("normalizeRule(NO ACTION) = %q, want empty", got)
	}
	if got := normalizeRule("CASCADE"); got != "CASCADE" {
		t.Errorf("normalizeRule(CASCADE) = %q, want CASCADE", got)
	}
}
