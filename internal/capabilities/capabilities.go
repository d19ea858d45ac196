// Package capabilities implements the capability probe (spec §4.5):
// given a session pointed at the server, it establishes server version,
// database existence, and (if the database exists) installed extensions.
// Grounded on original_source/psqlpack/src/model/capabilities.rs and, for
// the query shapes themselves, on the teacher's database/postgres
// introspector's information_schema/pg_catalog usage.
package capabilities

import (
	"context"
	"log/slog"
	"sort"

	"github.com/go-extras/errx"

	"github.com/psqlpack/psqlpack/internal/dbsession"
	"github.com/psqlpack/psqlpack/internal/perrors"
	"github.com/psqlpack/psqlpack/internal/semver"
)

// Extension mirrors spec §3's extension record. No equality method is
// defined: comparing two values with == also compares Installed, not only
// Name and Version.
type Extension struct {
	Name      string
	Version   semver.Semver
	Installed bool
}

// Capabilities is constructed once per publish and never mutated
// afterwards (spec §3).
type Capabilities struct {
	ServerVersion  semver.Semver
	Extensions     []Extension
	DatabaseExists bool
}

// AvailableExtensions returns every matching extension, sorted by
// descending version, optionally filtered to a single version.
func (c *Capabilities) AvailableExtensions(name string, version *semver.Semver) []Extension {
	var out []Extension
	for _, e := range c.Extensions {
		if e.Name != name {
			continue
		}
		if version != nil && e.Version.Compare(*version) != 0 {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Version.Less(out[i].Version) })
	return out
}

// Connector reopens a session against a specific database name, used for
// step 3 of the probe once the named database is known to exist.
type Connector func(ctx context.Context, databaseName string) (dbsession.Session, error)

// Probe runs the three-step capability probe against sess (which need not
// be pointed at databaseName yet). connect is invoked only if the
// database is found to exist.
func Probe(ctx context.Context, sess dbsession.Session, databaseName string, connect Connector, logger *slog.Logger) (*Capabilities, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "capabilities")

	log.Debug("querying server version")
	var rawVersion string
	if err := sess.QueryRow(ctx, "SHOW SERVER_VERSION").Scan(&rawVersion); err != nil {
		return nil, perrors.NewDatabaseErrorf("failed to query server version: %v", err)
	}
	version, err := semver.Parse(rawVersion)
	if err != nil {
		return nil, err
	}
	log.Debug("server version parsed", "version", version.String())

	log.Debug("checking database existence", "database", databaseName)
	var exists bool
	err = sess.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", databaseName,
	).Scan(&exists)
	if err != nil {
		return nil, perrors.NewDatabaseErrorf("failed to check database existence: %v", err)
	}

	caps := &Capabilities{ServerVersion: version, DatabaseExists: exists}
	if !exists {
		log.Debug("database does not exist, skipping extension query")
		return caps, nil
	}

	log.Debug("reconnecting to query installed extensions", "database", databaseName)
	dbSess, err := connect(ctx, databaseName)
	if err != nil {
		return nil, errx.Classify(perrors.NewDatabaseErrorf("failed to connect to %s: %v", databaseName, err), perrors.ErrQueryExtensions)
	}
	defer dbSess.Close()

	// The original query selects name, version, installed, requires (four
	// columns) but its row decoder only reads three; this implementation
	// resolves the mismatch by selecting exactly what it decodes
	// (SPEC_FULL.md §D.1).
	rows, err := dbSess.Query(ctx, "SELECT name, version, installed FROM pg_available_extension_versions")
	if err != nil {
		return nil, errx.Classify(perrors.NewDatabaseErrorf("failed to query installed extensions: %v", err), perrors.ErrQueryExtensions)
	}
	defer rows.Close()

	for rows.Next() {
		var name, rawVer string
		var installed bool
		if err := rows.Scan(&name, &rawVer, &installed); err != nil {
			return nil, errx.Classify(perrors.NewDatabaseErrorf("failed to scan extension row: %v", err), perrors.ErrQueryExtensions)
		}
		v, err := semver.Parse(rawVer)
		if err != nil {
			// A malformed extension version string surfaces a FormatError,
			// same resolution as the SERVER_VERSION parse (SPEC_FULL.md §D.2),
			// but tagged as a query-extensions failure per spec §4.5.
			return nil, errx.Classify(err, perrors.ErrQueryExtensions)
		}
		caps.Extensions = append(caps.Extensions, Extension{Name: name, Version: v, Installed: installed})
	}
	if err := rows.Err(); err != nil {
		return nil, errx.Classify(perrors.NewDatabaseErrorf("failed reading extension rows: %v", err), perrors.ErrQueryExtensions)
	}

	log.Debug("capability probe complete", "extensions", len(caps.Extensions))
	return caps, nil
}
