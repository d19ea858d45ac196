// Package project loads the project manifest (spec §3, §6) and expands
// its source globs into the ordered file list a build consumes. Manifests
// are validated against a bundled JSON Schema before being strictly
// decoded, grounded on the teacher's internal/config "validate then
// decode" pattern; glob expansion uses bmatcuk/doublestar/v4 because this
// dialect's multi-directory projects need recursive "**" globs that
// filepath.Glob cannot express (SPEC_FULL.md §C).
package project

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/xeipuuv/gojsonschema"

	"github.com/psqlpack/psqlpack/internal/blobstore"
	"github.com/psqlpack/psqlpack/internal/perrors"
)

// schemaDoc is the bundled JSON Schema for a project manifest.
const schemaDoc = `{
  "type": "object",
  "required": ["version", "defaultSchema"],
  "properties": {
    "version": {"type": "string"},
    "defaultSchema": {"type": "string"},
    "preDeploymentScripts": {"type": "array", "items": {"type": "string"}},
    "postDeploymentScripts": {"type": "array", "items": {"type": "string"}},
    "include": {"type": "array", "items": {"type": "string"}}
  }
}`

// Project is spec §3's Project type.
type Project struct {
	Version                string   `json:"version"`
	DefaultSchema           string   `json:"defaultSchema"`
	PreDeploymentScripts    []string `json:"preDeploymentScripts"`
	PostDeploymentScripts   []string `json:"postDeploymentScripts"`
	Include                 []string `json:"include"`
}

// Load reads and validates a project manifest from the store.
func Load(ctx context.Context, store blobstore.Store, path string) (*Project, error) {
	data, err := store.Read(ctx, path)
	if err != nil {
		return nil, perrors.NewProjectReadError(path, err)
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaDoc)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, perrors.NewProjectParseError(path, err)
	}
	if !result.Valid() {
		msg := ""
		for i, e := range result.Errors() {
			if i > 0 {
				msg += "; "
			}
			msg += e.String()
		}
		return nil, perrors.NewProjectParseError(path, fmt.Errorf("%s", msg))
	}

	var p Project
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, perrors.NewProjectParseError(path, err)
	}
	return &p, nil
}

// ResolveSources expands Include's glob patterns (relative to baseDir,
// PostgreSQL project sources live on local disk prior to archiving) into
// an ordered, duplicate-free file list — identifiers resolve against the
// union of every listed source (spec §3), so a path appearing under two
// different glob patterns is an InvalidScriptPath error, not silent
// de-duplication. Returned paths are relative to baseDir, matching the
// blobstore.Store bucket callers root at baseDir.
func (p *Project) ResolveSources(baseDir string) ([]string, error) {
	seen := map[string]bool{}
	var ordered []string

	for _, pattern := range p.Include {
		full := filepath.Join(baseDir, pattern)
		matches, err := doublestar.FilepathGlob(full)
		if err != nil {
			return nil, perrors.NewInvalidScriptPathError(pattern)
		}
		sort.Strings(matches)
		for _, m := range matches {
			rel, err := filepath.Rel(baseDir, m)
			if err != nil {
				return nil, perrors.NewInvalidScriptPathError(m)
			}
			if seen[rel] {
				return nil, perrors.NewInvalidScriptPathError(rel)
			}
			seen[rel] = true
			ordered = append(ordered, rel)
		}
	}
	return ordered, nil
}

// ScriptPaths validates the pre/post deployment script lists against
// baseDir, rejecting any path that escapes it, and returns them relative
// to baseDir.
func (p *Project) ScriptPaths(baseDir string, scripts []string) ([]string, error) {
	var out []string
	for _, s := range scripts {
		full := filepath.Join(baseDir, s)
		rel, err := filepath.Rel(baseDir, full)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, perrors.NewInvalidScriptPathError(s)
		}
		out = append(out, rel)
	}
	return out, nil
}
