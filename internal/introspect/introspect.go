// Package introspect builds a schema.Package by querying a live
// PostgreSQL catalog, the other half of spec §4.6's "target_graph (built
// either from a target package or from live catalog queries)". It is
// adapted from the teacher's database/postgres Introspector: same
// information_schema/pg_catalog query shapes, generalized here from a
// single current_schema() table list to every user schema plus the
// extension/enum/function kinds the teacher's multi-dialect Schema type
// didn't model, and rewritten to return a *schema.Package directly
// (through the dbsession.Session contract) instead of the teacher's own
// database.Schema DTO.
package introspect

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/psqlpack/psqlpack/internal/ast"
	"github.com/psqlpack/psqlpack/internal/dbsession"
	"github.com/psqlpack/psqlpack/internal/perrors"
	"github.com/psqlpack/psqlpack/internal/schema"
)

// systemSchemas are never introspected as package content.
var systemSchemas = map[string]bool{
	"pg_catalog":         true,
	"information_schema": true,
	"pg_toast":           true,
}

// Introspect reads every user schema, extension, enum type, table,
// constraint, index, and function visible to sess and assembles them
// into a *schema.Package, in the same (schema, name) sorted order
// schema.Build produces so the result is delta-comparable against a
// built package without further normalization.
func Introspect(ctx context.Context, sess dbsession.Session) (*schema.Package, error) {
	pkg := &schema.Package{}

	schemas, err := introspectSchemas(ctx, sess)
	if err != nil {
		return nil, err
	}
	pkg.Schemas = schemas

	extensions, err := introspectExtensions(ctx, sess)
	if err != nil {
		return nil, err
	}
	pkg.Extensions = extensions

	enums, err := introspectEnums(ctx, sess)
	if err != nil {
		return nil, err
	}
	pkg.Enums = enums

	tables, err := introspectTables(ctx, sess)
	if err != nil {
		return nil, err
	}
	pkg.Tables = tables

	indexes, err := introspectIndexes(ctx, sess)
	if err != nil {
		return nil, err
	}
	pkg.Indexes = indexes

	functions, err := introspectFunctions(ctx, sess)
	if err != nil {
		return nil, err
	}
	pkg.Functions = functions

	return pkg, nil
}

func isSystemSchema(name string) bool {
	return systemSchemas[name] || strings.HasPrefix(name, "pg_temp_") || strings.HasPrefix(name, "pg_toast_")
}

func introspectSchemas(ctx context.Context, sess dbsession.Session) ([]*schema.Schema, error) {
	rows, err := sess.Query(ctx, `SELECT nspname FROM pg_catalog.pg_namespace ORDER BY nspname`)
	if err != nil {
		return nil, perrors.NewDatabaseErrorf("failed to query schemas: %v", err)
	}
	defer rows.Close()

	var out []*schema.Schema
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, perrors.NewDatabaseErrorf("failed to scan schema row: %v", err)
		}
		// public is implicit in a built package and never listed there.
		if isSystemSchema(name) || name == "public" {
			continue
		}
		out = append(out, &schema.Schema{Name: name})
	}
	return out, rows.Err()
}

func introspectExtensions(ctx context.Context, sess dbsession.Session) ([]*schema.Extension, error) {
	rows, err := sess.Query(ctx, `SELECT extname FROM pg_catalog.pg_extension ORDER BY extname`)
	if err != nil {
		return nil, perrors.NewDatabaseErrorf("failed to query extensions: %v", err)
	}
	defer rows.Close()

	var out []*schema.Extension
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, perrors.NewDatabaseErrorf("failed to scan extension row: %v", err)
		}
		out = append(out, &schema.Extension{Name: name})
	}
	return out, rows.Err()
}

func introspectEnums(ctx context.Context, sess dbsession.Session) ([]*schema.EnumType, error) {
	rows, err := sess.Query(ctx, `
		SELECT n.nspname, t.typname, e.enumlabel
		FROM pg_catalog.pg_type t
		JOIN pg_catalog.pg_enum e ON e.enumtypid = t.oid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		ORDER BY n.nspname, t.typname, e.enumsortorder
	`)
	if err != nil {
		return nil, perrors.NewDatabaseErrorf("failed to query enum types: %v", err)
	}
	defer rows.Close()

	byKey := map[string]*schema.EnumType{}
	var order []string
	for rows.Next() {
		var schemaName, typeName, label string
		if err := rows.Scan(&schemaName, &typeName, &label); err != nil {
			return nil, perrors.NewDatabaseErrorf("failed to scan enum row: %v", err)
		}
		if isSystemSchema(schemaName) {
			continue
		}
		k := schemaName + "." + typeName
		e, ok := byKey[k]
		if !ok {
			e = &schema.EnumType{Schema: schemaName, Name: typeName}
			byKey[k] = e
			order = append(order, k)
		}
		e.Values = append(e.Values, label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*schema.EnumType, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out, nil
}

type columnRow struct {
	schemaName, tableName, columnName, dataType string
	nullable                                    bool
	defaultVal                                  sql.NullString
	isPK                                        bool
}

func introspectTables(ctx context.Context, sess dbsession.Session) ([]*schema.Table, error) {
	tableNames, err := listTables(ctx, sess)
	if err != nil {
		return nil, err
	}

	constraints, err := introspectConstraints(ctx, sess)
	if err != nil {
		return nil, err
	}

	var out []*schema.Table
	for _, tk := range tableNames {
		cols, err := introspectColumns(ctx, sess, tk.schemaName, tk.tableName)
		if err != nil {
			return nil, err
		}
		cons := constraints[tk.schemaName+"."+tk.tableName]
		sort.Slice(cons, func(i, j int) bool { return cons[i].Name < cons[j].Name })
		out = append(out, &schema.Table{
			Schema:      tk.schemaName,
			Name:        tk.tableName,
			Columns:     cols,
			Constraints: cons,
		})
	}
	return out, nil
}

type tableKey struct{ schemaName, tableName string }

func listTables(ctx context.Context, sess dbsession.Session) ([]tableKey, error) {
	rows, err := sess.Query(ctx, `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		ORDER BY table_schema, table_name
	`)
	if err != nil {
		return nil, perrors.NewDatabaseErrorf("failed to query tables: %v", err)
	}
	defer rows.Close()

	var out []tableKey
	for rows.Next() {
		var k tableKey
		if err := rows.Scan(&k.schemaName, &k.tableName); err != nil {
			return nil, perrors.NewDatabaseErrorf("failed to scan table row: %v", err)
		}
		if isSystemSchema(k.schemaName) {
			continue
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func introspectColumns(ctx context.Context, sess dbsession.Session, schemaName, tableName string) ([]*schema.Column, error) {
	rows, err := sess.Query(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.column_default
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`, schemaName, tableName)
	if err != nil {
		return nil, perrors.NewDatabaseErrorf("failed to query columns for %s.%s: %v", schemaName, tableName, err)
	}
	defer rows.Close()

	var out []*schema.Column
	for rows.Next() {
		var name, dataType, nullable string
		var defaultVal sql.NullString
		if err := rows.Scan(&name, &dataType, &nullable, &defaultVal); err != nil {
			return nil, perrors.NewDatabaseErrorf("failed to scan column row: %v", err)
		}

		sqlType := strings.TrimSpace(dataType)
		identity := false
		var def *string
		if defaultVal.Valid {
			if isSerialDefault(defaultVal.String) {
				identity = true
				switch strings.ToLower(sqlType) {
				case "bigint":
					sqlType = "bigserial"
				case "integer":
					sqlType = "serial"
				case "smallint":
					sqlType = "smallserial"
				}
			} else {
				normalized := normalizeDefault(defaultVal.String)
				def = &normalized
			}
		}

		out = append(out, &schema.Column{
			Name: name, SQLType: sqlType, Nullable: nullable == "YES", Default: def, Identity: identity,
		})
	}
	return out, rows.Err()
}

// isSerialDefault detects the nextval('..._seq'::regclass) default
// PostgreSQL generates for SERIAL/BIGSERIAL/SMALLSERIAL columns.
func isSerialDefault(defaultVal string) bool {
	return strings.HasPrefix(defaultVal, "nextval(") && strings.Contains(defaultVal, "_seq")
}

// normalizeDefault strips a trailing type cast (e.g. "'{}'::jsonb" ->
// "'{}'") so introspected defaults compare equal to the literal text the
// parser captured from source, which never carries an explicit cast.
func normalizeDefault(defaultVal string) string {
	if idx := strings.LastIndex(defaultVal, "::"); idx > 0 {
		before := defaultVal[:idx]
		if strings.Count(before, "'")%2 == 0 {
			return before
		}
	}
	return defaultVal
}

func introspectConstraints(ctx context.Context, sess dbsession.Session) (map[string][]*schema.Constraint, error) {
	out := map[string][]*schema.Constraint{}

	pkUnique, err := introspectKeyConstraints(ctx, sess)
	if err != nil {
		return nil, err
	}
	for k, cons := range pkUnique {
		out[k] = append(out[k], cons...)
	}

	fks, err := introspectForeignKeys(ctx, sess)
	if err != nil {
		return nil, err
	}
	for k, cons := range fks {
		out[k] = append(out[k], cons...)
	}

	return out, nil
}

func introspectKeyConstraints(ctx context.Context, sess dbsession.Session) (map[string][]*schema.Constraint, error) {
	rows, err := sess.Query(ctx, `
		SELECT tc.table_schema, tc.table_name, tc.constraint_name, tc.constraint_type, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name, kcu.ordinal_position
	`)
	if err != nil {
		return nil, perrors.NewDatabaseErrorf("failed to query key constraints: %v", err)
	}
	defer rows.Close()

	byName := map[string]*schema.Constraint{}
	out := map[string][]*schema.Constraint{}
	var order []string
	for rows.Next() {
		var schemaName, tableName, constraintName, constraintType, columnName string
		if err := rows.Scan(&schemaName, &tableName, &constraintName, &constraintType, &columnName); err != nil {
			return nil, perrors.NewDatabaseErrorf("failed to scan key constraint row: %v", err)
		}
		if isSystemSchema(schemaName) {
			continue
		}
		tk := schemaName + "." + tableName
		ck := tk + "." + constraintName
		c, ok := byName[ck]
		if !ok {
			kind := ast.UniqueConstraint
			if constraintType == "PRIMARY KEY" {
				kind = ast.PrimaryKeyConstraint
			}
			c = &schema.Constraint{Kind: kind, Name: constraintName}
			byName[ck] = c
			out[tk] = append(out[tk], c)
			order = append(order, ck)
		}
		c.Columns = append(c.Columns, columnName)
	}
	return out, rows.Err()
}

func introspectForeignKeys(ctx context.Context, sess dbsession.Session) (map[string][]*schema.Constraint, error) {
	rows, err := sess.Query(ctx, `
		SELECT
			tc.table_schema, tc.table_name, tc.constraint_name,
			kcu.column_name, ccu.table_schema, ccu.table_name, ccu.column_name,
			rc.update_rule, rc.delete_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_name = tc.constraint_name AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name, kcu.ordinal_position
	`)
	if err != nil {
		return nil, perrors.NewDatabaseErrorf("failed to query foreign keys: %v", err)
	}
	defer rows.Close()

	byName := map[string]*schema.Constraint{}
	out := map[string][]*schema.Constraint{}
	for rows.Next() {
		var schemaName, tableName, constraintName, columnName string
		var refSchema, refTable, refColumn, updateRule, deleteRule string
		if err := rows.Scan(&schemaName, &tableName, &constraintName, &columnName, &refSchema, &refTable, &refColumn, &updateRule, &deleteRule); err != nil {
			return nil, perrors.NewDatabaseErrorf("failed to scan foreign key row: %v", err)
		}
		if isSystemSchema(schemaName) {
			continue
		}
		tk := schemaName + "." + tableName
		ck := tk + "." + constraintName
		c, ok := byName[ck]
		if !ok {
			c = &schema.Constraint{
				Kind: ast.ForeignKeyConstraint, Name: constraintName,
				RefSchema: refSchema, RefTable: refTable,
				OnUpdate: normalizeRule(updateRule), OnDelete: normalizeRule(deleteRule),
			}
			byName[ck] = c
			out[tk] = append(out[tk], c)
		}
		c.Columns = append(c.Columns, columnName)
		c.RefColumns = append(c.RefColumns, refColumn)
	}
	return out, rows.Err()
}

func normalizeRule(rule string) string {
	if rule == "NO ACTION" {
		return ""
	}
	return rule
}

func introspectIndexes(ctx context.Context, sess dbsession.Session) ([]*schema.Index, error) {
	rows, err := sess.Query(ctx, `
		SELECT
			n.nspname, t.relname, i.relname, ix.indisunique,
			am.amname, a.attname, k.ord
		FROM pg_catalog.pg_index ix
		JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
		JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_catalog.pg_am am ON am.oid = i.relam
		JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE ix.indisprimary = false
		  AND NOT EXISTS (
			SELECT 1 FROM pg_catalog.pg_constraint con
			WHERE con.conindid = ix.indexrelid AND con.contype IN ('p', 'u')
		  )
		ORDER BY n.nspname, t.relname, i.relname, k.ord
	`)
	if err != nil {
		return nil, perrors.NewDatabaseErrorf("failed to query indexes: %v", err)
	}
	defer rows.Close()

	byKey := map[string]*schema.Index{}
	var order []string
	for rows.Next() {
		var schemaName, tableName, indexName, method, colName string
		var unique bool
		var ord int
		if err := rows.Scan(&schemaName, &tableName, &indexName, &unique, &method, &colName, &ord); err != nil {
			return nil, perrors.NewDatabaseErrorf("failed to scan index row: %v", err)
		}
		if isSystemSchema(schemaName) {
			continue
		}
		k := schemaName + "." + indexName
		idx, ok := byKey[k]
		if !ok {
			idx = &schema.Index{
				Schema: schemaName, Table: tableName, Name: indexName, Unique: unique, Method: methodFromName(method),
			}
			byKey[k] = idx
			order = append(order, k)
		}
		idx.Columns = append(idx.Columns, schema.IndexColumn{Name: colName})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(order)
	out := make([]*schema.Index, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out, nil
}

func methodFromName(name string) ast.IndexMethod {
	switch strings.ToLower(name) {
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

func introspectFunctions(ctx context.Context, sess dbsession.Session) ([]*schema.Function, error) {
	rows, err := sess.Query(ctx, `
		SELECT n.nspname, p.proname, l.lanname, pg_catalog.pg_get_function_result(p.oid), p.prosrc
		FROM pg_catalog.pg_proc p
		JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
		JOIN pg_catalog.pg_language l ON l.oid = p.prolang
		ORDER BY n.nspname, p.proname
	`)
	if err != nil {
		return nil, perrors.NewDatabaseErrorf("failed to query functions: %v", err)
	}
	defer rows.Close()

	var out []*schema.Function
	for rows.Next() {
		var schemaName, name, lang, returns, body string
		if err := rows.Scan(&schemaName, &name, &lang, &returns, &body); err != nil {
			return nil, perrors.NewDatabaseErrorf("failed to scan function row: %v", err)
		}
		if isSystemSchema(schemaName) {
			continue
		}
		out = append(out, &schema.Function{
			Schema: schemaName, Name: name, Returns: returns, Language: languageFromName(lang), Body: body,
		})
	}
	return out, rows.Err()
}

func languageFromName(name string) ast.FunctionLanguage {
	switch strings.ToLower(name) {
	case "plpgsql":
		return ast.LangPLPGSQL
	case "c":
		return ast.LangC
	case "internal":
		return ast.LangInternal
	default:
		return ast.LangSQL
	}
}
