package delta

import (
	"fmt"
	"sort"

	"github.com/psqlpack/psqlpack/internal/capabilities"
	"github.com/psqlpack/psqlpack/internal/ddl"
	"github.com/psqlpack/psqlpack/internal/perrors"
	"github.com/psqlpack/psqlpack/internal/profile"
	"github.com/psqlpack/psqlpack/internal/schema"
)

func key(schemaName, name string) string { return schemaName + "." + name }

// Compute runs the five-stage algorithm of spec §4.6 and returns the
// ordered, grouped Delta, or a *perrors.MultipleErrors listing every drop
// the profile rejected.
func Compute(source, target *schema.Package, prof *profile.Profile, caps *capabilities.Capabilities) (*Delta, error) {
	opts := prof.GenerationOptions

	if opts.AlwaysRecreateDatabase && !isEmptyPackage(target) {
		steps := []DeltaStep{
			{Kind: DropDatabase, SQL: ddl.DropDatabase()},
			{Kind: CreateDatabase, SQL: ddl.CreateDatabase()},
		}
		recreated, err := computeSteps(source, emptyPackage(), opts, caps)
		if err != nil {
			return nil, err
		}
		steps = append(steps, recreated...)
		return group(steps), nil
	}

	steps, err := computeSteps(source, target, opts, caps)
	if err != nil {
		return nil, err
	}
	return group(steps), nil
}

func emptyPackage() *schema.Package { return &schema.Package{} }

func isEmptyPackage(p *schema.Package) bool {
	return len(p.Extensions) == 0 && len(p.Schemas) == 0 && len(p.Enums) == 0 &&
		len(p.Composites) == 0 && len(p.Tables) == 0 && len(p.Indexes) == 0 && len(p.Functions) == 0
}

// computeSteps runs stages 1-4 (categorize, deep-compare, policy filter,
// topological order) without the always-recreate-database collapse.
func computeSteps(source, target *schema.Package, opts profile.GenerationOptions, caps *capabilities.Capabilities) ([]DeltaStep, error) {
	var creates, alters []DeltaStep
	var rejected []string

	// Drop steps are collected into per-kind buckets rather than one list,
	// because the drop order (spec §4.6.4) isn't simply the reverse of the
	// order each kind happens to be visited above: foreign keys must drop
	// before the indexes/tables they may reference, which in turn must
	// drop before the primary/unique constraints and columns underneath
	// them. The buckets are concatenated in the spec's exact drop order
	// below, once every kind has been categorized and policy-filtered.
	var dropSchemas, dropEnums, dropComposites, dropTables, dropColumns,
		dropConstraintsFK, dropConstraintsOther, dropIndexes, dropFunctions []DeltaStep

	reject := func(toggle profile.Toggle, step DeltaStep, label string, bucket *[]DeltaStep) {
		switch toggle {
		case profile.Allow:
			*bucket = append(*bucket, step)
		case profile.Ignore:
			// silently omitted
		default:
			rejected = append(rejected, label)
		}
	}

	// --- Extensions: reconciled against capabilities, not target package
	// (spec §8: "Delta is empty (extension presence reconciled)").
	srcExt := map[string]*schema.Extension{}
	for _, e := range source.Extensions {
		srcExt[e.Name] = e
	}
	installed := map[string]bool{}
	if caps != nil {
		for _, e := range caps.Extensions {
			if e.Installed {
				installed[e.Name] = true
			}
		}
	}
	var extNames []string
	for name := range srcExt {
		extNames = append(extNames, name)
	}
	sort.Strings(extNames)
	for _, name := range extNames {
		if !installed[name] {
			creates = append(creates, DeltaStep{Kind: CreateExtension, Name: name, SQL: ddl.CreateExtension(name), Transactional: true})
		}
	}

	// --- Schemas
	srcSchemas := keyedSchemas(source.Schemas)
	tgtSchemas := keyedSchemas(target.Schemas)
	for _, name := range sortedKeys(srcSchemas) {
		if _, ok := tgtSchemas[name]; !ok {
			creates = append(creates, DeltaStep{Kind: CreateSchema, Name: name, SQL: ddl.CreateSchema(name), Transactional: true})
		}
	}
	for _, name := range sortedKeys(tgtSchemas) {
		if _, ok := srcSchemas[name]; !ok {
			dropSchemas = append(dropSchemas, DeltaStep{Kind: DropSchema, Name: name, SQL: ddl.DropSchema(name), Transactional: true})
		}
	}

	// --- Enum types
	srcEnums := keyedEnums(source.Enums)
	tgtEnums := keyedEnums(target.Enums)
	for _, k := range sortedKeys(srcEnums) {
		e := srcEnums[k]
		if _, ok := tgtEnums[k]; !ok {
			creates = append(creates, DeltaStep{Kind: CreateEnum, Schema: e.Schema, Name: e.Name, SQL: ddl.CreateEnum(e), Transactional: true})
		}
	}
	for _, k := range sortedKeys(tgtEnums) {
		e := tgtEnums[k]
		if _, ok := srcEnums[k]; !ok {
			step := DeltaStep{Kind: DropEnum, Schema: e.Schema, Name: e.Name, SQL: ddl.DropType(e.Schema, e.Name), Transactional: true}
			reject(opts.DropEnumValues, step, fmt.Sprintf("enum %s", k), &dropEnums)
		}
	}

	// --- Composite types
	srcComp := keyedComposites(source.Composites)
	tgtComp := keyedComposites(target.Composites)
	for _, k := range sortedKeys(srcComp) {
		c := srcComp[k]
		if _, ok := tgtComp[k]; !ok {
			creates = append(creates, DeltaStep{Kind: CreateComposite, Schema: c.Schema, Name: c.Name, SQL: ddl.CreateComposite(c), Transactional: true})
		}
	}
	for _, k := range sortedKeys(tgtComp) {
		c := tgtComp[k]
		if _, ok := srcComp[k]; !ok {
			dropComposites = append(dropComposites, DeltaStep{Kind: DropComposite, Schema: c.Schema, Name: c.Name, SQL: ddl.DropType(c.Schema, c.Name), Transactional: true})
		}
	}

	// --- Tables, columns, and constraints
	srcTables := keyedTables(source.Tables)
	tgtTables := keyedTables(target.Tables)

	for _, k := range sortedKeys(srcTables) {
		t := srcTables[k]
		tgt, existed := tgtTables[k]
		if !existed {
			creates = append(creates, DeltaStep{Kind: CreateTable, Schema: t.Schema, Name: t.Name, SQL: ddl.CreateTable(t), Transactional: true})
			continue
		}

		srcCols := keyedColumns(t.Columns)
		tgtCols := keyedColumns(tgt.Columns)
		for _, cn := range sortedKeys(srcCols) {
			c := srcCols[cn]
			if existingCol, ok := tgtCols[cn]; !ok {
				alters = append(alters, DeltaStep{Kind: AddColumn, Schema: t.Schema, Name: t.Name + "." + c.Name, SQL: ddl.AddColumn(t, c), Transactional: true})
			} else if !columnsEqual(c, existingCol) {
				alters = append(alters, DeltaStep{Kind: AlterColumnType, Schema: t.Schema, Name: t.Name + "." + c.Name, SQL: ddl.AlterColumnType(t, c), Transactional: true})
			}
		}
		for _, cn := range sortedKeys(tgtCols) {
			c := tgtCols[cn]
			if _, ok := srcCols[cn]; !ok {
				step := DeltaStep{Kind: DropColumn, Schema: t.Schema, Name: t.Name + "." + c.Name, SQL: ddl.DropColumn(t, c), Transactional: true}
				reject(opts.DropColumns, step, fmt.Sprintf("column %s.%s", k, c.Name), &dropColumns)
			}
		}

		srcCons := keyedConstraints(t.Constraints)
		tgtCons := keyedConstraints(tgt.Constraints)
		for _, cn := range sortedKeys(srcCons) {
			c := srcCons[cn]
			if _, ok := tgtCons[cn]; !ok {
				alters = append(alters, constraintAddStep(t, c))
			}
		}
		for _, cn := range sortedKeys(tgtCons) {
			c := tgtCons[cn]
			if _, ok := srcCons[cn]; !ok {
				step := constraintDropStep(t, c)
				toggle := opts.DropPrimaryKeyConstraints
				bucket := &dropConstraintsOther
				if c.Kind == schema.ForeignKeyConstraint {
					toggle = opts.DropForeignKeyConstraints
					bucket = &dropConstraintsFK
				} else if c.Kind == schema.UniqueConstraint {
					toggle = profile.Allow
				}
				reject(toggle, step, fmt.Sprintf("constraint %s on %s", c.Name, k), bucket)
			}
		}
	}
	for _, k := range sortedKeys(tgtTables) {
		t := tgtTables[k]
		if _, ok := srcTables[k]; !ok {
			step := DeltaStep{Kind: DropTable, Schema: t.Schema, Name: t.Name, SQL: ddl.DropTable(t), Transactional: true}
			reject(opts.DropTables, step, fmt.Sprintf("table %s", k), &dropTables)
		}
	}

	// --- Indexes
	srcIdx := keyedIndexes(source.Indexes)
	tgtIdx := keyedIndexes(target.Indexes)
	for _, k := range sortedKeys(srcIdx) {
		idx := srcIdx[k]
		if existing, ok := tgtIdx[k]; !ok || !indexesEqual(idx, existing) {
			if ok {
				// A changed index is dropped right before it is recreated;
				// the drop bucket is emitted after every create/alter.
				alters = append(alters, DeltaStep{Kind: DropIndex, Schema: idx.Schema, Name: idx.Name, SQL: ddl.DropIndex(idx), Transactional: true})
			}
			kind := CreateIndex
			concurrent := idx.Concurrent || opts.ForceConcurrentIndexes
			sql := ddl.CreateIndex(idx, concurrent)
			if concurrent {
				kind = CreateIndexConcurrently
			}
			alters = append(alters, DeltaStep{Kind: kind, Schema: idx.Schema, Name: idx.Name, SQL: sql, Transactional: !concurrent})
		}
	}
	for _, k := range sortedKeys(tgtIdx) {
		idx := tgtIdx[k]
		if _, ok := srcIdx[k]; !ok {
			step := DeltaStep{Kind: DropIndex, Schema: idx.Schema, Name: idx.Name, SQL: ddl.DropIndex(idx), Transactional: true}
			reject(opts.DropIndexes, step, fmt.Sprintf("index %s", k), &dropIndexes)
		}
	}

	// --- Functions
	srcFns := keyedFunctions(source.Functions)
	tgtFns := keyedFunctions(target.Functions)
	for _, k := range sortedKeys(srcFns) {
		fn := srcFns[k]
		if existing, ok := tgtFns[k]; !ok || existing.Body != fn.Body {
			alters = append(alters, DeltaStep{Kind: CreateFunction, Schema: fn.Schema, Name: fn.Name, SQL: ddl.CreateFunction(fn), Transactional: true})
		}
	}
	for _, k := range sortedKeys(tgtFns) {
		fn := tgtFns[k]
		if _, ok := srcFns[k]; !ok {
			step := DeltaStep{Kind: DropFunction, Schema: fn.Schema, Name: fn.Name, SQL: ddl.DropFunction(fn), Transactional: true}
			reject(opts.DropFunctions, step, fmt.Sprintf("function %s", k), &dropFunctions)
		}
	}

	if len(rejected) > 0 {
		var errs []error
		for _, r := range rejected {
			errs = append(errs, perrors.NewGenerationError("refusing to drop %s (policy is Error)", r))
		}
		return nil, perrors.NewMultipleErrors(errs)
	}

	// Topological order per spec §4.6.4: create order extensions -> schemas
	// -> types -> tables -> columns/constraints -> indexes -> functions;
	// drop order is the exact reverse: functions -> foreign keys -> indexes
	// -> primary/unique constraints -> columns -> tables -> types ->
	// schemas. Each bucket above is already internally ordered (stable
	// sort by (schema, name)); they are concatenated here in that fixed
	// sequence so a foreign key never outlives the table it references and
	// an index never outlives the column it was built on.
	var ordered []DeltaStep
	ordered = append(ordered, creates...)
	ordered = append(ordered, alters...)
	ordered = append(ordered, dropFunctions...)
	ordered = append(ordered, dropConstraintsFK...)
	ordered = append(ordered, dropIndexes...)
	ordered = append(ordered, dropConstraintsOther...)
	ordered = append(ordered, dropColumns...)
	ordered = append(ordered, dropTables...)
	ordered = append(ordered, dropComposites...)
	ordered = append(ordered, dropEnums...)
	ordered = append(ordered, dropSchemas...)

	return ordered, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func keyedSchemas(in []*schema.Schema) map[string]*schema.Schema {
	m := map[string]*schema.Schema{}
	for _, s := range in {
		m[s.Name] = s
	}
	return m
}

func keyedEnums(in []*schema.EnumType) map[string]*schema.EnumType {
	m := map[string]*schema.EnumType{}
	for _, e := range in {
		m[key(e.Schema, e.Name)] = e
	}
	return m
}

func keyedComposites(in []*schema.CompositeType) map[string]*schema.CompositeType {
	m := map[string]*schema.CompositeType{}
	for _, c := range in {
		m[key(c.Schema, c.Name)] = c
	}
	return m
}

func keyedTables(in []*schema.Table) map[string]*schema.Table {
	m := map[string]*schema.Table{}
	for _, t := range in {
		m[key(t.Schema, t.Name)] = t
	}
	return m
}

func keyedColumns(in []*schema.Column) map[string]*schema.Column {
	m := map[string]*schema.Column{}
	for _, c := range in {
		m[c.Name] = c
	}
	return m
}

func keyedConstraints(in []*schema.Constraint) map[string]*schema.Constraint {
	m := map[string]*schema.Constraint{}
	for _, c := range in {
		m[c.Name] = c
	}
	return m
}

func keyedIndexes(in []*schema.Index) map[string]*schema.Index {
	m := map[string]*schema.Index{}
	for _, idx := range in {
		m[key(idx.Schema, idx.Name)] = idx
	}
	return m
}

func keyedFunctions(in []*schema.Function) map[string]*schema.Function {
	m := map[string]*schema.Function{}
	for _, f := range in {
		m[key(f.Schema, f.Name)] = f
	}
	return m
}

func columnsEqual(a, b *schema.Column) bool {
	if a.SQLType != b.SQLType || a.Nullable != b.Nullable || a.Identity != b.Identity {
		return false
	}
	switch {
	case a.Default == nil && b.Default == nil:
		return true
	case a.Default == nil || b.Default == nil:
		return false
	default:
		return *a.Default == *b.Default
	}
}

func indexesEqual(a, b *schema.Index) bool {
	if a.Method != b.Method || a.Unique != b.Unique || a.PartialExpr != b.PartialExpr {
		return false
	}
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return true
}

func constraintAddStep(t *schema.Table, c *schema.Constraint) DeltaStep {
	switch c.Kind {
	case schema.PrimaryKeyConstraint:
		return DeltaStep{Kind: AddPrimaryKey, Schema: t.Schema, Name: t.Name + "." + c.Name, SQL: ddl.AddConstraint(t, c), Transactional: true}
	case schema.ForeignKeyConstraint:
		return DeltaStep{Kind: AddForeignKey, Schema: t.Schema, Name: t.Name + "." + c.Name, SQL: ddl.AddConstraint(t, c), Transactional: true}
	default:
		return DeltaStep{Kind: AddUnique, Schema: t.Schema, Name: t.Name + "." + c.Name, SQL: ddl.AddConstraint(t, c), Transactional: true}
	}
}

func constraintDropStep(t *schema.Table, c *schema.Constraint) DeltaStep {
	kind := DropPrimaryKey
	switch c.Kind {
	case schema.ForeignKeyConstraint:
		kind = DropForeignKey
	case schema.UniqueConstraint:
		kind = DropUnique
	}
	return DeltaStep{Kind: kind, Schema: t.Schema, Name: t.Name + "." + c.Name, SQL: ddl.DropConstraint(t, c), Transactional: true}
}

// group implements stage 5 (spec §4.6): consecutive transactional steps
// share one group; each non-transactional step (concurrent index, drop or
// create database) is its own group, isolated per spec §5/§8 invariant 6.
func group(steps []DeltaStep) *Delta {
	var delta Delta
	var current []DeltaStep
	flush := func() {
		if len(current) > 0 {
			delta.Groups = append(delta.Groups, Group{Transactional: true, Steps: current})
			current = nil
		}
	}
	for _, s := range steps {
		if !s.Transactional {
			flush()
			delta.Groups = append(delta.Groups, Group{Transactional: false, Steps: []DeltaStep{s}})
			continue
		}
		current = append(current, s)
	}
	flush()
	return &delta
}
