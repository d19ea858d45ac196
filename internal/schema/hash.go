package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash returns a stable content hash of the package, used by the CLI to
// detect whether a rebuilt package changed without doing a full delta.
// It walks the already-sorted slices in Build's deterministic order, so
// two structurally-equal packages always hash identically regardless of
// original source file layout.
func (p *Package) Hash() string {
	var sb strings.Builder

	for _, e := range p.Extensions {
		fmt.Fprintf(&sb, "extension %s\n", e.Name)
	}
	for _, s := range p.Schemas {
		fmt.Fprintf(&sb, "schema %s\n", s.Name)
	}
	for _, e := range p.Enums {
		fmt.Fprintf(&sb, "enum %s.%s %s\n", e.Schema, e.Name, strings.Join(e.Values, ","))
	}
	for _, c := range p.Composites {
		fmt.Fprintf(&sb, "composite %s.%s\n", c.Schema, c.Name)
		for _, a := range c.Attributes {
			fmt.Fprintf(&sb, "  %s %s\n", a.Name, a.SQLType)
		}
	}
	for _, t := range p.Tables {
		fmt.Fprintf(&sb, "table %s.%s\n", t.Schema, t.Name)
		for _, c := range t.Columns {
			def := ""
			if c.Default != nil {
				def = *c.Default
			}
			fmt.Fprintf(&sb, "  column %s %s null=%v default=%s\n", c.Name, c.SQLType, c.Nullable, def)
		}
		for _, c := range t.Constraints {
			fmt.Fprintf(&sb, "  constraint %s %s %s -> %s.%s(%s)\n",
				c.Name, c.Kind, strings.Join(c.Columns, ","), c.RefSchema, c.RefTable, strings.Join(c.RefColumns, ","))
		}
	}
	for _, idx := range p.Indexes {
		fmt.Fprintf(&sb, "index %s.%s on %s.%s unique=%v method=%s\n", idx.Schema, idx.Name, idx.Schema, idx.Table, idx.Unique, idx.Method)
	}
	for _, fn := range p.Functions {
		fmt.Fprintf(&sb, "function %s.%s returns %s lang=%s\n%s\n", fn.Schema, fn.Name, fn.Returns, fn.Language, fn.Body)
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
