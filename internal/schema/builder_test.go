package schema

import (
	"testing"

	"github.com/psqlpack/psqlpack/internal/ast"
)

func tableFile(path string, tables ...*ast.Table) *ast.File {
	return &ast.File{Path: path, Tables: tables}
}

func TestBuildResolvesDefaultSchema(t *testing.T) {
	f := tableFile("a.sql", &ast.Table{
		Name: "users",
		Columns: []*ast.Column{
			{Name: "id", SQLType: "int"},
		},
	})
	pkg, err := Build("public", []*ast.File{f})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(pkg.Tables) != 1 || pkg.Tables[0].Schema != "public" {
		t.Fatalf("got tables %+v, want one table in schema public", pkg.Tables)
	}
}

func TestBuildRejectsDuplicateTable(t *testing.T) {
	f := tableFile("a.sql",
		&ast.Table{Schema: "app", Name: "users", Columns: []*ast.Column{{Name: "id", SQLType: "int"}}},
		&ast.Table{Schema: "app", Name: "users", Columns: []*ast.Column{{Name: "id", SQLType: "int"}}},
	)
	_, err := Build("public", []*ast.File{f})
	if err == nil {
		t.Fatal("expected a duplicate-table error")
	}
}

func TestBuildRejectsUnknownColumnType(t *testing.T) {
	f := tableFile("a.sql", &ast.Table{
		Schema: "app", Name: "users",
		Columns: []*ast.Column{{Name: "id", SQLType: "not_a_type"}},
	})
	_, err := Build("public", []*ast.File{f})
	if err == nil {
		t.Fatal("expected an unknown-type error")
	}
}

func TestBuildAcceptsEnumAsColumnType(t *testing.T) {
	file := &ast.File{
		Path:    "a.sql",
		Schemas: []*ast.Schema{{Name: "app"}},
		Enums: []*ast.EnumType{
			{Schema: "app", Name: "status", Values: []string{"active", "inactive"}},
		},
		Tables: []*ast.Table{
			{Schema: "app", Name: "users", Columns: []*ast.Column{
				{Name: "id", SQLType: "int"},
				{Name: "status", SQLType: "status"},
			}},
		},
	}
	_, err := Build("public", []*ast.File{file})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
}

func TestBuildRejectsForeignKeyNotAgainstKey(t *testing.T) {
	file := &ast.File{
		Path: "a.sql",
		Tables: []*ast.Table{
			{Schema: "app", Name: "teams", Columns: []*ast.Column{{Name: "id", SQLType: "int"}}},
			{Schema: "app", Name: "users", Columns: []*ast.Column{
				{Name: "id", SQLType: "int"}, {Name: "team_id", SQLType: "int"},
			}, Constraints: []*ast.Constraint{
				{Kind: ast.ForeignKeyConstraint, Name: "fk_team", Columns: []string{"team_id"}, RefSchema: "app", RefTable: "teams", RefColumns: []string{"id"}},
			}},
		},
	}
	_, err := Build("public", []*ast.File{file})
	if err == nil {
		t.Fatal("expected a foreign-key error since teams.id is not a primary/unique key")
	}
}

func TestBuildAcceptsForeignKeyAgainstPrimaryKey(t *testing.T) {
	file := &ast.File{
		Path:    "a.sql",
		Schemas: []*ast.Schema{{Name: "app"}},
		Tables: []*ast.Table{
			{Schema: "app", Name: "teams", Columns: []*ast.Column{{Name: "id", SQLType: "int"}},
				Constraints: []*ast.Constraint{{Kind: ast.PrimaryKeyConstraint, Name: "teams_pk", Columns: []string{"id"}}}},
			{Schema: "app", Name: "users", Columns: []*ast.Column{
				{Name: "id", SQLType: "int"}, {Name: "team_id", SQLType: "int"},
			}, Constraints: []*ast.Constraint{
				{Kind: ast.ForeignKeyConstraint, Name: "fk_team", Columns: []string{"team_id"}, RefSchema: "app", RefTable: "teams", RefColumns: []string{"id"}},
			}},
		},
	}
	pkg, err := Build("public", []*ast.File{file})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(pkg.Tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(pkg.Tables))
	}
}

func TestBuildRejectsUndefinedSchemaReference(t *testing.T) {
	file := &ast.File{
		Path: "a.sql",
		Tables: []*ast.Table{
			{Schema: "nosuch", Name: "users", Columns: []*ast.Column{{Name: "id", SQLType: "int"}}},
		},
	}
	_, err := Build("public", []*ast.File{file})
	if err == nil {
		t.Fatal("expected an undefined-schema error")
	}
}

func TestBuildRejectsDuplicateEnumValue(t *testing.T) {
	file := &ast.File{
		Path: "a.sql",
		Enums: []*ast.EnumType{
			{Schema: "public", Name: "status", Values: []string{"a", "a"}},
		},
	}
	_, err := Build("public", []*ast.File{file})
	if err == nil {
		t.Fatal("expected a duplicate-enum-value error")
	}
}
