package ddl

import (
	"strings"
	"testing"

	"github.com/psqlpack/psqlpack/internal/schema"
)

func TestCreateTableIncludesColumnsAndConstraints(t *testing.T) {
	def := "0"
	tbl := &schema.Table{
		Schema: "app", Name: "users",
		Columns: []*schema.Column{
			{Name: "id", SQLType: "int", Nullable: false},
			{Name: "balance", SQLType: "int", Nullable: true, Default: &def},
		},
		Constraints: []*schema.Constraint{
			{Kind: schema.PrimaryKeyConstraint, Name: "users_pk", Columns: []string{"id"}},
		},
	}
	got := CreateTable(tbl)
	if !strings.Contains(got, `CREATE TABLE "app"."users"`) {
		t.Errorf("missing qualified table name: %s", got)
	}
	if !strings.Contains(got, `"id" int NOT NULL`) {
		t.Errorf("missing non-nullable column: %s", got)
	}
	if !strings.Contains(got, `"balance" int DEFAULT 0`) {
		t.Errorf("missing default clause: %s", got)
	}
	if !strings.Contains(got, `CONSTRAINT "users_pk" PRIMARY KEY ("id")`) {
		t.Errorf("missing inline primary key: %s", got)
	}
}

func TestAddConstraintForeignKeyWithActions(t *testing.T) {
	tbl := &schema.Table{Schema: "app", Name: "orders"}
	c := &schema.Constraint{
		Kind: schema.ForeignKeyConstraint, Name: "fk_user", Columns: []string{"user_id"},
		RefSchema: "app", RefTable: "users", RefColumns: []string{"id"},
		OnDelete: "CASCADE",
	}
	got := AddConstraint(tbl, c)
	want := `ALTER TABLE "app"."orders" ADD CONSTRAINT "fk_user" FOREIGN KEY ("user_id") REFERENCES "app"."users" ("id") ON DELETE CASCADE;`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCreateIndexConcurrentlyEmitsConcurrentClauseAndOrder(t *testing.T) {
	idx := &schema.Index{
		Schema: "app", Table: "users", Name: "idx_email", Method: schema.BTree,
		Columns: []schema.IndexColumn{{Name: "email", Order: schema.Descending}},
	}
	got := CreateIndex(idx, true)
	if !strings.Contains(got, "CREATE INDEX CONCURRENTLY") {
		t.Errorf("expected CONCURRENTLY clause: %s", got)
	}
	if !strings.Contains(got, `"email" DESC`) {
		t.Errorf("expected DESC ordering: %s", got)
	}
}

func TestCreateIndexWithFillfactorAndPartial(t *testing.T) {
	ff := 70
	idx := &schema.Index{
		Schema: "app", Table: "users", Name: "idx_active", Unique: true,
		Columns:     []schema.IndexColumn{{Name: "id"}},
		Fillfactor:  &ff,
		PartialExpr: "active = true",
	}
	got := CreateIndex(idx, false)
	if !strings.Contains(got, "CREATE UNIQUE INDEX") {
		t.Errorf("expected UNIQUE clause: %s", got)
	}
	if !strings.Contains(got, "WITH (fillfactor=70)") {
		t.Errorf("expected fillfactor clause: %s", got)
	}
	if !strings.Contains(got, "WHERE active = true") {
		t.Errorf("expected WHERE clause: %s", got)
	}
}

func TestCreateFunctionEmitsDollarQuotedBody(t *testing.T) {
	fn := &schema.Function{
		Schema: "app", Name: "add", Returns: "int", Language: schema.LangSQL,
		Args: []schema.FunctionArg{{Name: "a", SQLType: "int"}, {Name: "b", SQLType: "int"}},
		Body: "select a + b", OrReplace: true,
	}
	got := CreateFunction(fn)
	want := `CREATE OR REPLACE FUNCTION "app"."add"("a" int, "b" int) RETURNS int AS $$select a + b$$ LANGUAGE sql;`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestQuoteIdentEscapesEmbeddedQuotes(t *testing.T) {
	tbl := &schema.Table{Schema: "app", Name: `weird"name`}
	got := DropTable(tbl)
	want := `DROP TABLE IF EXISTS "app"."weird""name";`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
