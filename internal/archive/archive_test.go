package archive

import (
	"testing"

	"github.com/psqlpack/psqlpack/internal/schema"
)

func samplePackage() *schema.Package {
	def := "0"
	return &schema.Package{
		Extensions: []*schema.Extension{{Name: "pgcrypto"}},
		Schemas:    []*schema.Schema{{Name: "app"}},
		Enums:      []*schema.EnumType{{Schema: "app", Name: "status", Values: []string{"active", "inactive"}}},
		Tables: []*schema.Table{{
			Schema: "app", Name: "users",
			Columns: []*schema.Column{
				{Name: "id", SQLType: "int", Nullable: false},
				{Name: "balance", SQLType: "int", Nullable: true, Default: &def},
			},
			Constraints: []*schema.Constraint{
				{Kind: schema.PrimaryKeyConstraint, Name: "users_pk", Columns: []string{"id"}},
			},
		}},
		Indexes: []*schema.Index{{
			Schema: "app", Table: "users", Name: "idx_email", Method: schema.BTree,
			Columns: []schema.IndexColumn{{Name: "id", Order: schema.Descending, Nulls: schema.NullsLast}},
		}},
		Functions: []*schema.Function{{
			Schema: "app", Name: "add", Returns: "int", Language: schema.LangSQL, Body: "select 1",
		}},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pkg := samplePackage()
	data, err := Encode(pkg)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	got, err := Decode("pkg.zip", data)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	if len(got.Extensions) != 1 || got.Extensions[0].Name != "pgcrypto" {
		t.Errorf("extensions = %+v", got.Extensions)
	}
	if len(got.Tables) != 1 || got.Tables[0].Name != "users" || len(got.Tables[0].Columns) != 2 {
		t.Fatalf("tables = %+v", got.Tables)
	}
	if *got.Tables[0].Columns[1].Default != "0" {
		t.Errorf("default = %v, want 0", got.Tables[0].Columns[1].Default)
	}
	if len(got.Tables[0].Constraints) != 1 || got.Tables[0].Constraints[0].Kind != schema.PrimaryKeyConstraint {
		t.Errorf("constraints = %+v", got.Tables[0].Constraints)
	}
	if len(got.Indexes) != 1 || got.Indexes[0].Columns[0].Order != schema.Descending || got.Indexes[0].Columns[0].Nulls != schema.NullsLast {
		t.Errorf("indexes = %+v", got.Indexes)
	}
	if len(got.Functions) != 1 || got.Functions[0].Body != "select 1" {
		t.Errorf("functions = %+v", got.Functions)
	}
}

func TestEncodeIsByteIdenticalAcrossRuns(t *testing.T) {
	pkg := samplePackage()
	a, err := Encode(pkg)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	b, err := Encode(pkg)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if string(a) != string(b) {
		t.Error("expected two encodings of the same package to be byte-identical")
	}
}

func TestDecodeRejectsTruncatedArchive(t *testing.T) {
	pkg := samplePackage()
	data, err := Encode(pkg)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if _, err := Decode("pkg.zip", data[:len(data)/2]); err == nil {
		t.Fatal("expected Decode to reject truncated archive bytes")
	}
}
