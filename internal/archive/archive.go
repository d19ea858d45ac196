// Package archive implements the package codec (spec §4.4, §6): a schema
// graph serializes to a single container file holding one JSON blob per
// object plus a toc.json manifest, with entries sorted by path and fixed
// JSON key order so two packages with the same graph produce
// byte-identical archives modulo container metadata. archive/zip is a
// stdlib fallback — see DESIGN.md for why no
// third-party container format in the example pack fits a single-file,
// sorted-entry container better than it does.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/psqlpack/psqlpack/internal/ast"
	"github.com/psqlpack/psqlpack/internal/perrors"
	"github.com/psqlpack/psqlpack/internal/schema"
)

// entryTime is a fixed timestamp stamped on every zip entry so that two
// encodings of the same package are byte-identical, not merely
// semantically identical.
var entryTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

type tocEntry struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`
}

type tableOfContents struct {
	Entries []tocEntry `json:"entries"`
}

type columnDTO struct {
	Name     string  `json:"name"`
	SQLType  string  `json:"sqlType"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
	Identity bool    `json:"identity,omitempty"`
}

type constraintDTO struct {
	Kind       string   `json:"kind"`
	Name       string   `json:"name"`
	Columns    []string `json:"columns,omitempty"`
	RefSchema  string   `json:"refSchema,omitempty"`
	RefTable   string   `json:"refTable,omitempty"`
	RefColumns []string `json:"refColumns,omitempty"`
	OnUpdate   string   `json:"onUpdate,omitempty"`
	OnDelete   string   `json:"onDelete,omitempty"`
	CheckExpr  string   `json:"checkExpr,omitempty"`
}

type tableDTO struct {
	Schema      string          `json:"schema"`
	Name        string          `json:"name"`
	Columns     []columnDTO     `json:"columns"`
	Constraints []constraintDTO `json:"constraints,omitempty"`
}

type extensionDTO struct {
	Name string `json:"name"`
}

type schemaDTO struct {
	Name string `json:"name"`
}

type enumDTO struct {
	Schema string   `json:"schema"`
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type compositeAttrDTO struct {
	Name    string `json:"name"`
	SQLType string `json:"sqlType"`
}

type compositeDTO struct {
	Schema     string             `json:"schema"`
	Name       string             `json:"name"`
	Attributes []compositeAttrDTO `json:"attributes"`
}

type indexColumnDTO struct {
	Name  string `json:"name"`
	Order string `json:"order"`
	Nulls string `json:"nulls"`
}

type indexDTO struct {
	Schema      string           `json:"schema"`
	Table       string           `json:"table"`
	Name        string           `json:"name"`
	Method      string           `json:"method"`
	Columns     []indexColumnDTO `json:"columns"`
	Unique      bool             `json:"unique"`
	Concurrent  bool             `json:"concurrent,omitempty"`
	PartialExpr string           `json:"partialExpr,omitempty"`
	Fillfactor  *int             `json:"fillfactor,omitempty"`
}

type functionArgDTO struct {
	Name    string `json:"name"`
	SQLType string `json:"sqlType"`
}

type functionDTO struct {
	Schema    string           `json:"schema"`
	Name      string           `json:"name"`
	Args      []functionArgDTO `json:"args"`
	Returns   string           `json:"returns"`
	Language  string           `json:"language"`
	Body      string           `json:"body"`
	OrReplace bool             `json:"orReplace,omitempty"`
}

// Encode serializes a validated package to its archive byte form.
func Encode(pkg *schema.Package) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	var toc tableOfContents
	writeJSON := func(path string, v interface{}) error {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return perrors.NewGenerationError("encoding %s: %v", path, err)
		}
		fw, err := w.CreateHeader(&zip.FileHeader{Name: path, Method: zip.Deflate, Modified: entryTime})
		if err != nil {
			return perrors.NewGenerationError("writing %s: %v", path, err)
		}
		_, err = fw.Write(data)
		return err
	}

	for _, e := range pkg.Extensions {
		path := fmt.Sprintf("extensions/%s.json", e.Name)
		if err := writeJSON(path, extensionDTO{Name: e.Name}); err != nil {
			return nil, err
		}
		toc.Entries = append(toc.Entries, tocEntry{Path: path, Kind: "extension", Name: e.Name})
	}
	for _, s := range pkg.Schemas {
		path := fmt.Sprintf("schemas/%s.json", s.Name)
		if err := writeJSON(path, schemaDTO{Name: s.Name}); err != nil {
			return nil, err
		}
		toc.Entries = append(toc.Entries, tocEntry{Path: path, Kind: "schema", Name: s.Name})
	}
	for _, e := range pkg.Enums {
		path := fmt.Sprintf("types/%s.%s.json", e.Schema, e.Name)
		if err := writeJSON(path, enumDTO{Schema: e.Schema, Name: e.Name, Values: e.Values}); err != nil {
			return nil, err
		}
		toc.Entries = append(toc.Entries, tocEntry{Path: path, Kind: "enum", Schema: e.Schema, Name: e.Name})
	}
	for _, c := range pkg.Composites {
		path := fmt.Sprintf("types/%s.%s.json", c.Schema, c.Name)
		attrs := make([]compositeAttrDTO, len(c.Attributes))
		for i, a := range c.Attributes {
			attrs[i] = compositeAttrDTO{Name: a.Name, SQLType: a.SQLType}
		}
		if err := writeJSON(path, compositeDTO{Schema: c.Schema, Name: c.Name, Attributes: attrs}); err != nil {
			return nil, err
		}
		toc.Entries = append(toc.Entries, tocEntry{Path: path, Kind: "composite", Schema: c.Schema, Name: c.Name})
	}
	for _, t := range pkg.Tables {
		path := fmt.Sprintf("tables/%s.%s.json", t.Schema, t.Name)
		cols := make([]columnDTO, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = columnDTO{Name: c.Name, SQLType: c.SQLType, Nullable: c.Nullable, Default: c.Default, Identity: c.Identity}
		}
		cons := make([]constraintDTO, len(t.Constraints))
		for i, c := range t.Constraints {
			cons[i] = constraintDTO{
				Kind: c.Kind.String(), Name: c.Name, Columns: c.Columns,
				RefSchema: c.RefSchema, RefTable: c.RefTable, RefColumns: c.RefColumns,
				OnUpdate: c.OnUpdate, OnDelete: c.OnDelete, CheckExpr: c.CheckExpr,
			}
		}
		if err := writeJSON(path, tableDTO{Schema: t.Schema, Name: t.Name, Columns: cols, Constraints: cons}); err != nil {
			return nil, err
		}
		toc.Entries = append(toc.Entries, tocEntry{Path: path, Kind: "table", Schema: t.Schema, Name: t.Name})
	}
	for _, idx := range pkg.Indexes {
		path := fmt.Sprintf("indexes/%s.%s.json", idx.Schema, idx.Name)
		cols := make([]indexColumnDTO, len(idx.Columns))
		for i, c := range idx.Columns {
			cols[i] = indexColumnDTO{Name: c.Name, Order: orderString(c.Order), Nulls: nullsString(c.Nulls)}
		}
		if err := writeJSON(path, indexDTO{
			Schema: idx.Schema, Table: idx.Table, Name: idx.Name, Method: idx.Method.String(),
			Columns: cols, Unique: idx.Unique, Concurrent: idx.Concurrent,
			PartialExpr: idx.PartialExpr, Fillfactor: idx.Fillfactor,
		}); err != nil {
			return nil, err
		}
		toc.Entries = append(toc.Entries, tocEntry{Path: path, Kind: "index", Schema: idx.Schema, Name: idx.Name})
	}
	for _, fn := range pkg.Functions {
		path := fmt.Sprintf("functions/%s.%s.json", fn.Schema, fn.Name)
		args := make([]functionArgDTO, len(fn.Args))
		for i, a := range fn.Args {
			args[i] = functionArgDTO{Name: a.Name, SQLType: a.SQLType}
		}
		if err := writeJSON(path, functionDTO{
			Schema: fn.Schema, Name: fn.Name, Args: args, Returns: fn.Returns,
			Language: fn.Language.String(), Body: fn.Body, OrReplace: fn.OrReplace,
		}); err != nil {
			return nil, err
		}
		toc.Entries = append(toc.Entries, tocEntry{Path: path, Kind: "function", Schema: fn.Schema, Name: fn.Name})
	}

	sort.Slice(toc.Entries, func(i, j int) bool { return toc.Entries[i].Path < toc.Entries[j].Path })
	if err := writeJSON("toc.json", toc); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, perrors.NewGenerationError("closing archive: %v", err)
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a package from archive bytes, reading exactly the
// entries toc.json names.
func Decode(path string, data []byte) (*schema.Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, perrors.NewPackageUnarchiveError(path, err)
	}

	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}

	readEntry := func(name string, v interface{}) error {
		f, ok := files[name]
		if !ok {
			return perrors.NewPackageInternalReadError(name, fmt.Errorf("entry not found"))
		}
		rc, err := f.Open()
		if err != nil {
			return perrors.NewPackageInternalReadError(name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return perrors.NewPackageInternalReadError(name, err)
		}
		if err := json.Unmarshal(data, v); err != nil {
			return perrors.NewFormatError(name, "invalid JSON", err)
		}
		return nil
	}

	var toc tableOfContents
	if err := readEntry("toc.json", &toc); err != nil {
		return nil, err
	}

	pkg := &schema.Package{}
	for _, entry := range toc.Entries {
		switch entry.Kind {
		case "extension":
			var dto extensionDTO
			if err := readEntry(entry.Path, &dto); err != nil {
				return nil, err
			}
			pkg.Extensions = append(pkg.Extensions, &schema.Extension{Name: dto.Name})
		case "schema":
			var dto schemaDTO
			if err := readEntry(entry.Path, &dto); err != nil {
				return nil, err
			}
			pkg.Schemas = append(pkg.Schemas, &schema.Schema{Name: dto.Name})
		case "enum":
			var dto enumDTO
			if err := readEntry(entry.Path, &dto); err != nil {
				return nil, err
			}
			pkg.Enums = append(pkg.Enums, &schema.EnumType{Schema: dto.Schema, Name: dto.Name, Values: dto.Values})
		case "composite":
			var dto compositeDTO
			if err := readEntry(entry.Path, &dto); err != nil {
				return nil, err
			}
			attrs := make([]schema.CompositeAttr, len(dto.Attributes))
			for i, a := range dto.Attributes {
				attrs[i] = schema.CompositeAttr{Name: a.Name, SQLType: a.SQLType}
			}
			pkg.Composites = append(pkg.Composites, &schema.CompositeType{Schema: dto.Schema, Name: dto.Name, Attributes: attrs})
		case "table":
			var dto tableDTO
			if err := readEntry(entry.Path, &dto); err != nil {
				return nil, err
			}
			cols := make([]*schema.Column, len(dto.Columns))
			for i, c := range dto.Columns {
				cols[i] = &schema.Column{Name: c.Name, SQLType: c.SQLType, Nullable: c.Nullable, Default: c.Default, Identity: c.Identity}
			}
			cons := make([]*schema.Constraint, len(dto.Constraints))
			for i, c := range dto.Constraints {
				cons[i] = &schema.Constraint{
					Kind: constraintKindFromString(c.Kind), Name: c.Name, Columns: c.Columns,
					RefSchema: c.RefSchema, RefTable: c.RefTable, RefColumns: c.RefColumns,
					OnUpdate: c.OnUpdate, OnDelete: c.OnDelete, CheckExpr: c.CheckExpr,
				}
			}
			pkg.Tables = append(pkg.Tables, &schema.Table{Schema: dto.Schema, Name: dto.Name, Columns: cols, Constraints: cons})
		case "index":
			var dto indexDTO
			if err := readEntry(entry.Path, &dto); err != nil {
				return nil, err
			}
			cols := make([]schema.IndexColumn, len(dto.Columns))
			for i, c := range dto.Columns {
				cols[i] = schema.IndexColumn{Name: c.Name, Order: orderFromString(c.Order), Nulls: nullsFromString(c.Nulls)}
			}
			pkg.Indexes = append(pkg.Indexes, &schema.Index{
				Schema: dto.Schema, Table: dto.Table, Name: dto.Name, Method: methodFromString(dto.Method),
				Columns: cols, Unique: dto.Unique, Concurrent: dto.Concurrent, PartialExpr: dto.PartialExpr, Fillfactor: dto.Fillfactor,
			})
		case "function":
			var dto functionDTO
			if err := readEntry(entry.Path, &dto); err != nil {
				return nil, err
			}
			args := make([]schema.FunctionArg, len(dto.Args))
			for i, a := range dto.Args {
				args[i] = schema.FunctionArg{Name: a.Name, SQLType: a.SQLType}
			}
			pkg.Functions = append(pkg.Functions, &schema.Function{
				Schema: dto.Schema, Name: dto.Name, Args: args, Returns: dto.Returns,
				Language: languageFromString(dto.Language), Body: dto.Body, OrReplace: dto.OrReplace,
			})
		default:
			return nil, perrors.NewFormatError(path, fmt.Sprintf("unknown toc entry kind %q", entry.Kind), nil)
		}
	}

	return pkg, nil
}

func orderString(o ast.SortOrder) string {
	if o == ast.Descending {
		return "desc"
	}
	return "asc"
}
func orderFromString(s string) ast.SortOrder {
	if s == "desc" {
		return ast.Descending
	}
	return ast.Ascending
}

func nullsString(n ast.NullsPosition) string {
	switch n {
	case ast.NullsFirst:
		return "first"
	case ast.NullsLast:
		return "last"
	default:
		return "default"
	}
}
func nullsFromString(s string) ast.NullsPosition {
	switch s {
	case "first":
		return ast.NullsFirst
	case "last":
		return ast.NullsLast
	default:
		return ast.NullsDefault
	}
}

func methodFromString(s string) ast.IndexMethod {
	switch s {
	case "gin":
		return ast.Gin
	case "gist":
		return ast.Gist
	case "hash":
		return ast.HashMethod
	default:
		return ast.BTree
	}
}

func constraintKindFromString(s string) ast.ConstraintKind {
	switch s {
	case "FOREIGN KEY":
		return ast.ForeignKeyConstraint
	case "UNIQUE":
		return ast.UniqueConstraint
	case "CHECK":
		return ast.CheckConstraint
	default:
		return ast.PrimaryKeyConstraint
	}
}
