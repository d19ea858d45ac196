// Package schema holds the in-memory schema graph (spec §3), the package
// builder that assembles it from parsed source files (§4.3), and its
// validation invariants. The graph is a value type: children (columns,
// constraints) are owned by their parent, and cross-object references
// (foreign keys, index columns) are by (schema, name) lookup key rather
// than pointer, per SPEC_FULL.md/§9's graph-ownership note.
package schema

import (
	"sort"

	"github.com/psqlpack/psqlpack/internal/ast"
)

type Extension struct {
	Pos  ast.Pos
	Name string
}

type Schema struct {
	Pos  ast.Pos
	Name string
}

type EnumType struct {
	Pos    ast.Pos
	Schema string
	Name   string
	Values []string
}

type CompositeAttr struct {
	Name    string
	SQLType string
}

type CompositeType struct {
	Pos        ast.Pos
	Schema     string
	Name       string
	Attributes []CompositeAttr
}

type Column struct {
	Pos      ast.Pos
	Name     string
	SQLType  string
	Nullable bool
	Default  *string
	Identity bool
}

type ConstraintKind = ast.ConstraintKind

const (
	PrimaryKeyConstraint = ast.PrimaryKeyConstraint
	ForeignKeyConstraint = ast.ForeignKeyConstraint
	UniqueConstraint     = ast.UniqueConstraint
	CheckConstraint      = ast.CheckConstraint
)

type Constraint struct {
	Pos        ast.Pos
	Kind       ConstraintKind
	Name       string
	Columns    []string
	RefSchema  string
	RefTable   string
	RefColumns []string
	OnUpdate   string
	OnDelete   string
	Match      string
	CheckExpr  string
}

type Table struct {
	Pos         ast.Pos
	Schema      string
	Name        string
	Columns     []*Column
	Constraints []*Constraint
}

type IndexMethod = ast.IndexMethod

const (
	BTree      = ast.BTree
	Gin        = ast.Gin
	Gist       = ast.Gist
	HashMethod = ast.HashMethod
)

type IndexColumn = ast.IndexColumn

type Index struct {
	Pos         ast.Pos
	Schema      string
	Table       string
	Name        string
	Method      IndexMethod
	Columns     []IndexColumn
	Unique      bool
	Concurrent  bool
	PartialExpr string
	Fillfactor  *int
}

type FunctionLanguage = ast.FunctionLanguage

const (
	LangSQL      = ast.LangSQL
	LangPLPGSQL  = ast.LangPLPGSQL
	LangC        = ast.LangC
	LangInternal = ast.LangInternal
)

type FunctionArg = ast.FunctionArg

type Function struct {
	Pos       ast.Pos
	Schema    string
	Name      string
	Args      []FunctionArg
	Returns   string
	Language  FunctionLanguage
	Body      string
	OrReplace bool
}

// Package is the validated, immutable schema graph produced by Build.
// Every slice is sorted by (schema, name) so traversal — and therefore
// diagnostics, hashing, and delta output — is deterministic.
type Package struct {
	Extensions []*Extension
	Schemas    []*Schema
	Enums      []*EnumType
	Composites []*CompositeType
	Tables     []*Table
	Indexes    []*Index
	Functions  []*Function
}

// key returns the lookup key (schema, name) an object is addressed by.
func key(schema, name string) string { return schema + "." + name }

func tableKey(t *Table) string  { return key(t.Schema, t.Name) }
func enumKey(e *EnumType) string { return key(e.Schema, e.Name) }
func compKey(c *CompositeType) string { return key(c.Schema, c.Name) }
func idxKey(i *Index) string    { return key(i.Schema, i.Name) }
func fnKey(f *Function) string  { return key(f.Schema, f.Name) }

func sortAll(p *Package) {
	sort.Slice(p.Extensions, func(i, j int) bool { return p.Extensions[i].Name < p.Extensions[j].Name })
	sort.Slice(p.Schemas, func(i, j int) bool { return p.Schemas[i].Name < p.Schemas[j].Name })
	sort.Slice(p.Enums, func(i, j int) bool { return enumKey(p.Enums[i]) < enumKey(p.Enums[j]) })
	sort.Slice(p.Composites, func(i, j int) bool { return compKey(p.Composites[i]) < compKey(p.Composites[j]) })
	sort.Slice(p.Tables, func(i, j int) bool { return tableKey(p.Tables[i]) < tableKey(p.Tables[j]) })
	sort.Slice(p.Indexes, func(i, j int) bool { return idxKey(p.Indexes[i]) < idxKey(p.Indexes[j]) })
	sort.Slice(p.Functions, func(i, j int) bool { return fnKey(p.Functions[i]) < fnKey(p.Functions[j]) })
	// Column order is the order columns appeared in source (spec §3:
	// "ordered sequence<Column>"); only constraints sort, by name.
	for _, t := range p.Tables {
		sort.Slice(t.Constraints, func(i, j int) bool { return t.Constraints[i].Name < t.Constraints[j].Name })
	}
}
