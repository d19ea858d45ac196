package cmd

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/psqlpack/psqlpack/internal/archive"
	"github.com/psqlpack/psqlpack/internal/blobstore"
	"github.com/psqlpack/psqlpack/internal/capabilities"
	"github.com/psqlpack/psqlpack/internal/dbsession"
	"github.com/psqlpack/psqlpack/internal/delta"
	"github.com/psqlpack/psqlpack/internal/introspect"
	"github.com/psqlpack/psqlpack/internal/pipeline"
	"github.com/psqlpack/psqlpack/internal/profile"
	"github.com/psqlpack/psqlpack/internal/schema"
)

// loadSourcePackage builds a package from a project manifest if
// projectPath is set, otherwise loads a prebuilt archive from
// packagePath. Exactly one of the two is expected to be non-empty; neither
// this function nor the callers' flag definitions check that: when both
// are set projectPath wins, and when neither is set reading the empty
// packagePath fails.
func loadSourcePackage(ctx context.Context, projectPath, packagePath string) (*schema.Package, error) {
	if projectPath != "" {
		baseDir, err := filepath.Abs(filepath.Dir(projectPath))
		if err != nil {
			return nil, err
		}
		store, err := blobstore.Open(ctx, "file://"+filepath.ToSlash(baseDir))
		if err != nil {
			return nil, err
		}
		defer store.Close()

		_, pkg, err := pipeline.BuildPackage(ctx, store, baseDir, filepath.Base(projectPath))
		return pkg, err
	}

	data, err := os.ReadFile(packagePath)
	if err != nil {
		return nil, err
	}
	return archive.Decode(packagePath, data)
}

// databaseNameFromConnString extracts the path component of a PostgreSQL
// connection URL (e.g. "postgres://host/mydb" -> "mydb"), used by the
// capability probe's pg_database existence check.
func databaseNameFromConnString(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		return ""
	}
	name := u.Path
	for len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	return name
}

// openTarget connects to connStr and, per spec §4.6, resolves a target
// schema graph plus capabilities: if targetPackagePath is set the target
// graph comes from that package file; otherwise it comes from
// introspecting the live database sess points at.
func openTarget(ctx context.Context, connStr, targetPackagePath string) (dbsession.Session, *schema.Package, *capabilities.Capabilities, error) {
	sess, err := dbsession.Open(connStr)
	if err != nil {
		return nil, nil, nil, err
	}

	databaseName := databaseNameFromConnString(connStr)
	connector := func(ctx context.Context, _ string) (dbsession.Session, error) {
		return dbsession.Open(connStr)
	}
	caps, err := capabilities.Probe(ctx, sess, databaseName, connector, nil)
	if err != nil {
		sess.Close()
		return nil, nil, nil, err
	}

	if targetPackagePath != "" {
		data, err := os.ReadFile(targetPackagePath)
		if err != nil {
			sess.Close()
			return nil, nil, nil, err
		}
		pkg, err := archive.Decode(targetPackagePath, data)
		if err != nil {
			sess.Close()
			return nil, nil, nil, err
		}
		return sess, pkg, caps, nil
	}

	pkg, err := introspect.Introspect(ctx, sess)
	if err != nil {
		sess.Close()
		return nil, nil, nil, err
	}
	return sess, pkg, caps, nil
}

// computeDelta loads the publish profile at profilePath (or defaults if
// empty) and runs the delta engine over source/target per spec §4.6.
func computeDelta(ctx context.Context, source, target *schema.Package, profilePath string, caps *capabilities.Capabilities) (*delta.Delta, error) {
	var prof *profile.Profile
	if profilePath != "" {
		baseDir, err := filepath.Abs(filepath.Dir(profilePath))
		if err != nil {
			return nil, err
		}
		store, err := blobstore.Open(ctx, "file://"+filepath.ToSlash(baseDir))
		if err != nil {
			return nil, err
		}
		defer store.Close()

		prof, err = profile.Load(ctx, store, filepath.Base(profilePath))
		if err != nil {
			return nil, err
		}
	} else {
		prof = &profile.Profile{GenerationOptions: profile.DefaultGenerationOptions()}
	}

	d, err := delta.Compute(source, target, prof, caps)
	if err != nil {
		return nil, err
	}

	// Package parameters are substituted at publish time (SPEC_FULL.md §D.3),
	// after the delta is computed but before any step's SQL is shown or run.
	for gi := range d.Groups {
		for si := range d.Groups[gi].Steps {
			d.Groups[gi].Steps[si].SQL = prof.Substitute(d.Groups[gi].Steps[si].SQL)
		}
	}

	return d, nil
}

func isCreateKind(k delta.StepKind) bool {
	return strings.HasPrefix(k.String(), "Create") || strings.HasPrefix(k.String(), "Add")
}

func isDropKind(k delta.StepKind) bool {
	return strings.HasPrefix(k.String(), "Drop")
}
