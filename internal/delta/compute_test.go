package delta

import (
	"testing"

	"github.com/psqlpack/psqlpack/internal/capabilities"
	"github.com/psqlpack/psqlpack/internal/profile"
	"github.com/psqlpack/psqlpack/internal/schema"
)

func defaultProfile() *profile.Profile {
	return &profile.Profile{GenerationOptions: profile.DefaultGenerationOptions()}
}

func TestComputeCreatesNewTable(t *testing.T) {
	source := &schema.Package{Tables: []*schema.Table{
		{Schema: "app", Name: "users", Columns: []*schema.Column{{Name: "id", SQLType: "int"}}},
	}}
	target := &schema.Package{}

	d, err := Compute(source, target, defaultProfile(), nil)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if d.IsEmpty() {
		t.Fatal("expected a non-empty delta")
	}
	found := false
	for _, s := range d.AllSteps() {
		if s.Kind == CreateTable && s.Name == "users" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a CreateTable step for users, got %+v", d.AllSteps())
	}
}

func TestComputeNoChangesIsEmpty(t *testing.T) {
	pkg := &schema.Package{Tables: []*schema.Table{
		{Schema: "app", Name: "users", Columns: []*schema.Column{{Name: "id", SQLType: "int"}}},
	}}
	d, err := Compute(pkg, pkg, defaultProfile(), nil)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if !d.IsEmpty() {
		t.Errorf("expected an empty delta for identical source/target, got %+v", d.AllSteps())
	}
}

func TestComputeDropTableRejectedByErrorPolicy(t *testing.T) {
	source := &schema.Package{}
	target := &schema.Package{Tables: []*schema.Table{
		{Schema: "app", Name: "users", Columns: []*schema.Column{{Name: "id", SQLType: "int"}}},
	}}
	prof := defaultProfile() // DropTables defaults to Error
	_, err := Compute(source, target, prof, nil)
	if err == nil {
		t.Fatal("expected an error since dropping tables defaults to Error policy")
	}
}

func TestComputeDropTableAllowedWhenPolicyAllows(t *testing.T) {
	source := &schema.Package{}
	target := &schema.Package{Tables: []*schema.Table{
		{Schema: "app", Name: "users", Columns: []*schema.Column{{Name: "id", SQLType: "int"}}},
	}}
	prof := defaultProfile()
	prof.GenerationOptions.DropTables = profile.Allow
	d, err := Compute(source, target, prof, nil)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	found := false
	for _, s := range d.AllSteps() {
		if s.Kind == DropTable {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a DropTable step, got %+v", d.AllSteps())
	}
}

func TestComputeDropTableIgnoredWhenPolicyIgnores(t *testing.T) {
	source := &schema.Package{}
	target := &schema.Package{Tables: []*schema.Table{
		{Schema: "app", Name: "users", Columns: []*schema.Column{{Name: "id", SQLType: "int"}}},
	}}
	prof := defaultProfile()
	prof.GenerationOptions.DropTables = profile.Ignore
	d, err := Compute(source, target, prof, nil)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if !d.IsEmpty() {
		t.Errorf("expected Ignore policy to silently omit the drop, got %+v", d.AllSteps())
	}
}

func TestComputeSkipsExtensionAlreadyInstalled(t *testing.T) {
	source := &schema.Package{Extensions: []*schema.Extension{{Name: "pgcrypto"}}}
	target := &schema.Package{}
	caps := &capabilities.Capabilities{Extensions: []capabilities.Extension{
		{Name: "pgcrypto", Installed: true},
	}}
	d, err := Compute(source, target, defaultProfile(), caps)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	for _, s := range d.AllSteps() {
		if s.Kind == CreateExtension {
			t.Errorf("did not expect a CreateExtension step when already installed, got %+v", d.AllSteps())
		}
	}
}

func TestComputeConcurrentIndexGetsOwnNonTransactionalGroup(t *testing.T) {
	source := &schema.Package{
		Tables: []*schema.Table{{Schema: "app", Name: "users", Columns: []*schema.Column{{Name: "id", SQLType: "int"}}}},
		Indexes: []*schema.Index{
			{Schema: "app", Table: "users", Name: "idx_id", Concurrent: true, Columns: []schema.IndexColumn{{Name: "id"}}},
		},
	}
	target := &schema.Package{}
	d, err := Compute(source, target, defaultProfile(), nil)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	sawNonTransactional := false
	for _, g := range d.Groups {
		if !g.Transactional {
			sawNonTransactional = true
			if len(g.Steps) != 1 || g.Steps[0].Kind != CreateIndexConcurrently {
				t.Errorf("expected the non-transactional group to hold exactly the concurrent index step, got %+v", g.Steps)
			}
		}
	}
	if !sawNonTransactional {
		t.Error("expected a non-transactional group for the concurrent index")
	}
}

func TestComputeAlwaysRecreateDatabase(t *testing.T) {
	source := &schema.Package{Tables: []*schema.Table{{Schema: "app", Name: "users", Columns: []*schema.Column{{Name: "id", SQLType: "int"}}}}}
	target := &schema.Package{Tables: []*schema.Table{{Schema: "app", Name: "old", Columns: []*schema.Column{{Name: "id", SQLType: "int"}}}}}
	prof := defaultProfile()
	prof.GenerationOptions.AlwaysRecreateDatabase = true
	d, err := Compute(source, target, prof, nil)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	steps := d.AllSteps()
	if len(steps) < 3 || steps[0].Kind != DropDatabase || steps[1].Kind != CreateDatabase {
		t.Fatalf("expected DropDatabase/CreateDatabase first, got %+v", steps)
	}
}
