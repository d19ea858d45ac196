package schema

import (
	"fmt"
	"strings"

	"github.com/psqlpack/psqlpack/internal/ast"
	"github.com/psqlpack/psqlpack/internal/perrors"
)

// closedTypeKeywords is the fixed set of type-keyword tokens spec §3
// allows a Column's sqltype to be, before falling back to an enum or
// composite type name defined in the same package.
var closedTypeKeywords = map[string]bool{
	"bigint": true, "bigserial": true, "bit": true, "bool": true, "boolean": true,
	"char": true, "character": true, "character varying": true, "date": true,
	"double precision": true, "int": true, "int2": true, "int4": true, "int8": true,
	"integer": true, "money": true, "numeric": true, "real": true, "serial": true,
	"serial2": true, "serial4": true, "serial8": true, "smallint": true, "smallserial": true,
	"text": true, "time": true, "timestamp": true, "timestamptz": true, "timetz": true,
	"uuid": true, "varbit": true, "varchar": true,
	"time with time zone": true, "time without time zone": true,
	"timestamp with time zone": true, "timestamp without time zone": true,
}

// baseTypeName strips array and precision/length suffixes so "varchar(255)"
// and "numeric(10,2)[]" still match the closed keyword set or a
// user-defined type name.
func baseTypeName(sqlType string) string {
	name := strings.TrimSuffix(sqlType, "[]")
	if idx := strings.IndexByte(name, '('); idx >= 0 {
		name = name[:idx]
	}
	return name
}

// Build merges the parsed files of a project into one validated package.
// Lex/parse errors are expected to have already been surfaced by the
// caller per file; Build's job is the cross-file merge and the §3
// invariant checks, aggregated through perrors.NewMultipleErrors when it
// returns a non-nil error (a single violation is returned as is).
func Build(defaultSchema string, files []*ast.File) (*Package, error) {
	pkg := &Package{}

	for _, f := range files {
		for _, e := range f.Extensions {
			pkg.Extensions = append(pkg.Extensions, &Extension{Pos: e.Pos, Name: e.Name})
		}
		for _, s := range f.Schemas {
			pkg.Schemas = append(pkg.Schemas, &Schema{Pos: s.Pos, Name: s.Name})
		}
		for _, e := range f.Enums {
			pkg.Enums = append(pkg.Enums, &EnumType{
				Pos: e.Pos, Schema: resolveSchema(e.Schema, defaultSchema), Name: e.Name, Values: e.Values,
			})
		}
		for _, c := range f.Composites {
			attrs := make([]CompositeAttr, len(c.Attributes))
			for i, a := range c.Attributes {
				attrs[i] = CompositeAttr{Name: a.Name, SQLType: a.SQLType}
			}
			pkg.Composites = append(pkg.Composites, &CompositeType{
				Pos: c.Pos, Schema: resolveSchema(c.Schema, defaultSchema), Name: c.Name, Attributes: attrs,
			})
		}
		for _, t := range f.Tables {
			cols := make([]*Column, len(t.Columns))
			for i, c := range t.Columns {
				cols[i] = &Column{Pos: c.Pos, Name: c.Name, SQLType: c.SQLType, Nullable: c.Nullable, Default: c.Default, Identity: c.Identity}
			}
			cons := make([]*Constraint, len(t.Constraints))
			for i, c := range t.Constraints {
				cons[i] = &Constraint{
					Pos: c.Pos, Kind: c.Kind, Name: c.Name, Columns: c.Columns,
					RefSchema: resolveSchema(c.RefSchema, defaultSchema), RefTable: c.RefTable, RefColumns: c.RefColumns,
					OnUpdate: c.OnUpdate, OnDelete: c.OnDelete, Match: c.Match, CheckExpr: c.CheckExpr,
				}
			}
			pkg.Tables = append(pkg.Tables, &Table{
				Pos: t.Pos, Schema: resolveSchema(t.Schema, defaultSchema), Name: t.Name, Columns: cols, Constraints: cons,
			})
		}
		for _, i := range f.Indexes {
			pkg.Indexes = append(pkg.Indexes, &Index{
				Pos: i.Pos, Schema: resolveSchema(i.Schema, defaultSchema), Table: i.Table, Name: i.Name,
				Method: i.Method, Columns: i.Columns, Unique: i.Unique, Concurrent: i.Concurrent,
				PartialExpr: i.PartialExpr, Fillfactor: i.Fillfactor,
			})
		}
		for _, fn := range f.Functions {
			pkg.Functions = append(pkg.Functions, &Function{
				Pos: fn.Pos, Schema: resolveSchema(fn.Schema, defaultSchema), Name: fn.Name, Args: fn.Args,
				Returns: fn.Returns, Language: fn.Language, Body: fn.Body, OrReplace: fn.OrReplace,
			})
		}
	}

	sortAll(pkg)

	if errs := validate(pkg); len(errs) > 0 {
		return pkg, perrors.NewMultipleErrors(errs)
	}
	return pkg, nil
}

func resolveSchema(schema, defaultSchema string) string {
	if schema == "" {
		return defaultSchema
	}
	return schema
}

// validate checks every invariant in spec §3 and returns one error per
// violation, in the package's deterministic (kind, schema, name) order.
func validate(pkg *Package) []error {
	var errs []error

	schemaSet := map[string]bool{"public": true}
	for _, s := range pkg.Schemas {
		if schemaSet[s.Name] {
			errs = append(errs, perrors.NewProjectError("duplicate schema %q", s.Name))
		}
		schemaSet[s.Name] = true
	}

	requireSchema := func(name, context string) {
		if name != "" && !schemaSet[name] {
			errs = append(errs, perrors.NewProjectError("%s references undefined schema %q", context, name))
		}
	}

	seenEnum := map[string]bool{}
	for _, e := range pkg.Enums {
		requireSchema(e.Schema, fmt.Sprintf("enum type %s.%s", e.Schema, e.Name))
		k := enumKey(e)
		if seenEnum[k] {
			errs = append(errs, perrors.NewProjectError("duplicate enum type %s", k))
		}
		seenEnum[k] = true

		values := map[string]bool{}
		for _, v := range e.Values {
			if values[v] {
				errs = append(errs, perrors.NewProjectError("enum type %s has duplicate value %q", k, v))
			}
			values[v] = true
		}
	}

	seenComposite := map[string]bool{}
	for _, c := range pkg.Composites {
		requireSchema(c.Schema, fmt.Sprintf("composite type %s.%s", c.Schema, c.Name))
		k := compKey(c)
		if seenComposite[k] {
			errs = append(errs, perrors.NewProjectError("duplicate composite type %s", k))
		}
		seenComposite[k] = true
	}

	userTypes := map[string]bool{}
	for k := range seenEnum {
		userTypes[k] = true
	}
	for k := range seenComposite {
		userTypes[k] = true
	}

	tablesByKey := map[string]*Table{}
	seenTable := map[string]bool{}
	for _, t := range pkg.Tables {
		requireSchema(t.Schema, fmt.Sprintf("table %s.%s", t.Schema, t.Name))
		k := tableKey(t)
		if seenTable[k] {
			errs = append(errs, perrors.NewProjectError("duplicate table %s", k))
		}
		seenTable[k] = true
		tablesByKey[k] = t

		colNames := map[string]bool{}
		for _, c := range t.Columns {
			if colNames[c.Name] {
				errs = append(errs, perrors.NewProjectError("table %s has duplicate column %q", k, c.Name))
			}
			colNames[c.Name] = true

			base := baseTypeName(c.SQLType)
			if !closedTypeKeywords[strings.ToLower(base)] && !userTypes[key(t.Schema, base)] && !userTypes[key("", base)] {
				errs = append(errs, perrors.NewProjectError(
					"column %s.%s has unknown type %q (not a built-in type or a package-defined enum/composite type)", k, c.Name, c.SQLType))
			}
		}

		for _, c := range t.Constraints {
			for _, col := range c.Columns {
				if !colNames[col] {
					errs = append(errs, perrors.NewProjectError("constraint %s on table %s references unknown column %q", c.Name, k, col))
				}
			}
		}
	}

	// Foreign key resolution happens in a second pass since it may
	// reference a table defined later in source order.
	pkSet := func(t *Table) (map[string]bool, bool) {
		for _, c := range t.Constraints {
			if c.Kind == PrimaryKeyConstraint {
				s := map[string]bool{}
				for _, col := range c.Columns {
					s[col] = true
				}
				return s, true
			}
		}
		return nil, false
	}
	uniqueSets := func(t *Table) []map[string]bool {
		var sets []map[string]bool
		for _, c := range t.Constraints {
			if c.Kind == UniqueConstraint {
				s := map[string]bool{}
				for _, col := range c.Columns {
					s[col] = true
				}
				sets = append(sets, s)
			}
		}
		return sets
	}

	for _, t := range pkg.Tables {
		tk := tableKey(t)
		for _, c := range t.Constraints {
			if c.Kind != ForeignKeyConstraint {
				continue
			}
			refKey := key(c.RefSchema, c.RefTable)
			refTable, ok := tablesByKey[refKey]
			if !ok {
				errs = append(errs, perrors.NewProjectError("foreign key %s on table %s references undefined table %s", c.Name, tk, refKey))
				continue
			}
			refCols := map[string]bool{}
			for _, rc := range c.RefColumns {
				refCols[rc] = true
			}
			satisfied := false
			if pk, ok := pkSet(refTable); ok && setsEqual(pk, refCols) {
				satisfied = true
			}
			if !satisfied {
				for _, us := range uniqueSets(refTable) {
					if setsEqual(us, refCols) {
						satisfied = true
						break
					}
				}
			}
			if !satisfied {
				errs = append(errs, perrors.NewProjectError(
					"foreign key %s on table %s references columns of %s that are not a primary or unique key", c.Name, tk, refKey))
			}
		}
	}

	seenIndex := map[string]bool{}
	for _, idx := range pkg.Indexes {
		requireSchema(idx.Schema, fmt.Sprintf("index %s.%s", idx.Schema, idx.Name))
		k := idxKey(idx)
		if seenIndex[k] {
			errs = append(errs, perrors.NewProjectError("duplicate index %s", k))
		}
		seenIndex[k] = true

		tk := key(idx.Schema, idx.Table)
		table, ok := tablesByKey[tk]
		if !ok {
			errs = append(errs, perrors.NewProjectError("index %s references undefined table %s", k, tk))
			continue
		}
		colNames := map[string]bool{}
		for _, c := range table.Columns {
			colNames[c.Name] = true
		}
		for _, c := range idx.Columns {
			if !colNames[c.Name] {
				errs = append(errs, perrors.NewProjectError("index %s references unknown column %q of table %s", k, c.Name, tk))
			}
		}
	}

	seenFn := map[string]bool{}
	for _, fn := range pkg.Functions {
		requireSchema(fn.Schema, fmt.Sprintf("function %s.%s", fn.Schema, fn.Name))
		k := fnKey(fn)
		if seenFn[k] && !fn.OrReplace {
			errs = append(errs, perrors.NewProjectError("duplicate function %s (use CREATE OR REPLACE to redefine)", k))
		}
		seenFn[k] = true
	}

	return errs
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
