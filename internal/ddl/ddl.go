// Package ddl renders each DeltaStep into the SQL text the publish
// executor runs (spec §4.6, "textual DDL emission"). Each function is a
// small string builder in the same style as the teacher's
// database/postgres generator (CreateTable/AddColumn/DropColumn/...):
// build the statement piece by piece, quote every identifier, and leave
// literals exactly as the parser captured them.
package ddl

import (
	"fmt"
	"strings"

	"github.com/psqlpack/psqlpack/internal/schema"
)

// quoteIdent double-quotes a PostgreSQL identifier, escaping embedded
// quotes by doubling them.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func qualified(schemaName, name string) string {
	if schemaName == "" {
		return quoteIdent(name)
	}
	return quoteIdent(schemaName) + "." + quoteIdent(name)
}

func DropDatabase() string   { return "DROP DATABASE IF EXISTS current_database();" }
func CreateDatabase() string { return "CREATE DATABASE current_database();" }

func CreateExtension(name string) string {
	return fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s;", quoteIdent(name))
}

func CreateSchema(name string) string {
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", quoteIdent(name))
}

func DropSchema(name string) string {
	return fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE;", quoteIdent(name))
}

func CreateEnum(e *schema.EnumType) string {
	values := make([]string, len(e.Values))
	for i, v := range e.Values {
		values[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s);", qualified(e.Schema, e.Name), strings.Join(values, ", "))
}

func DropType(schemaName, name string) string {
	return fmt.Sprintf("DROP TYPE IF EXISTS %s;", qualified(schemaName, name))
}

func CreateComposite(c *schema.CompositeType) string {
	attrs := make([]string, len(c.Attributes))
	for i, a := range c.Attributes {
		attrs[i] = fmt.Sprintf("%s %s", quoteIdent(a.Name), a.SQLType)
	}
	return fmt.Sprintf("CREATE TYPE %s AS (%s);", qualified(c.Schema, c.Name), strings.Join(attrs, ", "))
}

func formatColumn(c *schema.Column) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", quoteIdent(c.Name), c.SQLType)
	if !c.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		fmt.Fprintf(&sb, " DEFAULT %s", *c.Default)
	}
	return sb.String()
}

func CreateTable(t *schema.Table) string {
	var parts []string
	for _, c := range t.Columns {
		parts = append(parts, formatColumn(c))
	}
	for _, c := range t.Constraints {
		parts = append(parts, formatInlineConstraint(c))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", qualified(t.Schema, t.Name), strings.Join(parts, ",\n  "))
}

func DropTable(t *schema.Table) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", qualified(t.Schema, t.Name))
}

func AddColumn(t *schema.Table, c *schema.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", qualified(t.Schema, t.Name), formatColumn(c))
}

func DropColumn(t *schema.Table, c *schema.Column) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", qualified(t.Schema, t.Name), quoteIdent(c.Name))
}

func AlterColumnType(t *schema.Table, c *schema.Column) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ALTER TABLE %s ALTER COLUMN %s TYPE %s", qualified(t.Schema, t.Name), quoteIdent(c.Name), c.SQLType)
	fmt.Fprintf(&sb, ";\nALTER TABLE %s ALTER COLUMN %s %s", qualified(t.Schema, t.Name), quoteIdent(c.Name),
		map[bool]string{true: "DROP NOT NULL", false: "SET NOT NULL"}[c.Nullable])
	sb.WriteString(";")
	if c.Default != nil {
		fmt.Fprintf(&sb, "\nALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", qualified(t.Schema, t.Name), quoteIdent(c.Name), *c.Default)
	}
	return sb.String()
}

func formatInlineConstraint(c *schema.Constraint) string {
	prefix := ""
	if c.Name != "" {
		prefix = fmt.Sprintf("CONSTRAINT %s ", quoteIdent(c.Name))
	}
	return prefix + constraintBody(c)
}

func constraintBody(c *schema.Constraint) string {
	quoted := quoteColumns(c.Columns)
	switch c.Kind {
	case schema.PrimaryKeyConstraint:
		return fmt.Sprintf("PRIMARY KEY (%s)", quoted)
	case schema.UniqueConstraint:
		return fmt.Sprintf("UNIQUE (%s)", quoted)
	case schema.CheckConstraint:
		return fmt.Sprintf("CHECK (%s)", c.CheckExpr)
	case schema.ForeignKeyConstraint:
		var sb strings.Builder
		fmt.Fprintf(&sb, "FOREIGN KEY (%s) REFERENCES %s (%s)", quoted, qualified(c.RefSchema, c.RefTable), quoteColumns(c.RefColumns))
		if c.OnUpdate != "" {
			fmt.Fprintf(&sb, " ON UPDATE %s", c.OnUpdate)
		}
		if c.OnDelete != "" {
			fmt.Fprintf(&sb, " ON DELETE %s", c.OnDelete)
		}
		return sb.String()
	default:
		return ""
	}
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func AddConstraint(t *schema.Table, c *schema.Constraint) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s;", qualified(t.Schema, t.Name), formatInlineConstraint(c))
}

func DropConstraint(t *schema.Table, c *schema.Constraint) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;", qualified(t.Schema, t.Name), quoteIdent(c.Name))
}

func CreateIndex(idx *schema.Index, concurrent bool) string {
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if idx.Unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	if concurrent {
		sb.WriteString("CONCURRENTLY ")
	}
	fmt.Fprintf(&sb, "%s ON %s USING %s (", quoteIdent(idx.Name), qualified(idx.Schema, idx.Table), strings.ToLower(idx.Method.String()))

	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		col := quoteIdent(c.Name)
		if c.Order == schema.Descending {
			col += " DESC"
		}
		switch c.Nulls {
		case schema.NullsFirst:
			col += " NULLS FIRST"
		case schema.NullsLast:
			col += " NULLS LAST"
		}
		cols[i] = col
	}
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(")")

	if idx.Fillfactor != nil {
		fmt.Fprintf(&sb, " WITH (fillfactor=%d)", *idx.Fillfactor)
	}
	if idx.PartialExpr != "" {
		fmt.Fprintf(&sb, " WHERE %s", idx.PartialExpr)
	}
	sb.WriteString(";")
	return sb.String()
}

func DropIndex(idx *schema.Index) string {
	return fmt.Sprintf("DROP INDEX IF EXISTS %s;", qualified(idx.Schema, idx.Name))
}

func CreateFunction(fn *schema.Function) string {
	args := make([]string, len(fn.Args))
	for i, a := range fn.Args {
		args[i] = fmt.Sprintf("%s %s", quoteIdent(a.Name), a.SQLType)
	}
	or := ""
	if fn.OrReplace {
		or = "OR REPLACE "
	}
	return fmt.Sprintf("CREATE %sFUNCTION %s(%s) RETURNS %s AS $$%s$$ LANGUAGE %s;",
		or, qualified(fn.Schema, fn.Name), strings.Join(args, ", "), fn.Returns, fn.Body, fn.Language.String())
}

func DropFunction(fn *schema.Function) string {
	return fmt.Sprintf("DROP FUNCTION IF EXISTS %s;", qualified(fn.Schema, fn.Name))
}
