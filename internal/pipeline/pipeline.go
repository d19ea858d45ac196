// Package pipeline composes the lexer, parser, and schema builder into
// the single "sources on disk -> validated Package" path every CLI
// command that touches a project manifest shares (spec §2's "build"
// pipeline). It is the thin wiring layer the cmd package calls into,
// not a component with semantics of its own.
package pipeline

import (
	"context"

	"github.com/psqlpack/psqlpack/internal/ast"
	"github.com/psqlpack/psqlpack/internal/blobstore"
	"github.com/psqlpack/psqlpack/internal/lexer"
	"github.com/psqlpack/psqlpack/internal/parser"
	"github.com/psqlpack/psqlpack/internal/perrors"
	"github.com/psqlpack/psqlpack/internal/project"
	"github.com/psqlpack/psqlpack/internal/schema"
)

// BuildPackage loads the project manifest at manifestPath, expands its
// source globs against baseDir, and lexes/parses/builds every source
// file into one validated Package. Read, lex and parse errors from every
// file are accumulated and returned together through
// perrors.NewMultipleErrors (a single error is returned as is), matching the builder's "collect every per-file error before giving up
// on validation" contract (spec §4.3).
func BuildPackage(ctx context.Context, store blobstore.Store, baseDir, manifestPath string) (*project.Project, *schema.Package, error) {
	proj, err := project.Load(ctx, store, manifestPath)
	if err != nil {
		return nil, nil, err
	}

	sources, err := proj.ResolveSources(baseDir)
	if err != nil {
		return proj, nil, err
	}

	var files []*ast.File
	var errs []error
	for _, src := range sources {
		data, err := store.Read(ctx, src)
		if err != nil {
			errs = append(errs, perrors.NewIOError(src, err))
			continue
		}

		tokens, err := lexer.Tokenize(src, string(data))
		if err != nil {
			errs = append(errs, err)
			continue
		}

		file, err := parser.Parse(src, tokens)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, file)
	}

	if len(errs) > 0 {
		return proj, nil, perrors.NewMultipleErrors(errs)
	}

	pkg, err := schema.Build(proj.DefaultSchema, files)
	if err != nil {
		return proj, nil, err
	}
	return proj, pkg, nil
}
