// Package parser turns a lexer.Token stream into typed ast fragments
// (spec §4.2). It is error-accumulating: a malformed statement is
// recorded as a *perrors.ParserError and the parser resynchronizes at the
// next semicolon rather than aborting, so one file can report every
// independent error it contains in a single pass.
package parser

import (
	"fmt"
	"strings"

	"github.com/psqlpack/psqlpack/internal/ast"
	"github.com/psqlpack/psqlpack/internal/lexer"
	"github.com/psqlpack/psqlpack/internal/perrors"
)

type parser struct {
	file   string
	toks   []lexer.Token
	pos    int
	errors []*perrors.ParserError
}

// Parse splits tokens on top-level semicolons and dispatches each
// statement by its leading keyword. It returns the populated ast.File and,
// if any statement failed, a *perrors.ParseError aggregating every error
// found.
func Parse(file string, tokens []lexer.Token) (*ast.File, error) {
	statements := splitStatements(tokens)
	out := &ast.File{Path: file}
	p := &parser{file: file}

	for _, stmt := range statements {
		if len(stmt) == 0 {
			continue
		}
		p.toks = stmt
		p.pos = 0
		p.parseStatement(out)
	}

	if len(p.errors) > 0 {
		return out, perrors.NewParseError(file, p.errors)
	}
	return out, nil
}

// splitStatements breaks the token stream on Semicolon boundaries. The
// lexer already collapses dollar-quoted bodies into a single Literal
// token, so a function body's internal semicolons never appear here.
func splitStatements(tokens []lexer.Token) [][]lexer.Token {
	var statements [][]lexer.Token
	var cur []lexer.Token
	for _, t := range tokens {
		if t.Kind == lexer.Semicolon {
			statements = append(statements, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		statements = append(statements, cur)
	}
	return statements
}

func (p *parser) peek() (lexer.Token, bool) {
	if p.pos >= len(p.toks) {
		return lexer.Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) advance() (lexer.Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) pos0() (line, col int) {
	if p.pos < len(p.toks) {
		return p.toks[p.pos].Line, p.toks[p.pos].StartCol
	}
	if len(p.toks) > 0 {
		last := p.toks[len(p.toks)-1]
		return last.Line, last.EndCol
	}
	return 0, 0
}

func (p *parser) unrecognized(expected ...string) {
	line, col := p.pos0()
	tok := "end of statement"
	if !p.atEnd() {
		tok = describe(p.toks[p.pos])
	}
	p.errors = append(p.errors, &perrors.ParserError{
		Kind: perrors.UnrecognizedToken, Token: tok, Expected: expected, Line: line, Column: col,
	})
}

func (p *parser) userError(format string, args ...interface{}) {
	line, col := p.pos0()
	p.errors = append(p.errors, &perrors.ParserError{
		Kind: perrors.UserError, Message: fmt.Sprintf(format, args...), Line: line, Column: col,
	})
}

func (p *parser) extraToken() {
	line, col := p.pos0()
	p.errors = append(p.errors, &perrors.ParserError{
		Kind: perrors.ExtraToken, Token: describe(p.toks[p.pos]), Line: line, Column: col,
	})
}

func describe(t lexer.Token) string {
	switch t.Kind {
	case lexer.Identifier:
		return fmt.Sprintf("identifier %q", t.Text)
	case lexer.StringValue:
		return fmt.Sprintf("string %q", t.Text)
	case lexer.Digit:
		return fmt.Sprintf("digit %d", t.IntVal)
	case lexer.PackageParameter:
		return fmt.Sprintf("package parameter $(%s)", t.Text)
	default:
		return t.Kind.String()
	}
}

// expect consumes a token of kind k or records an UnrecognizedToken error.
func (p *parser) expect(k lexer.Kind, expectedDesc string) (lexer.Token, bool) {
	t, ok := p.peek()
	if !ok || t.Kind != k {
		p.unrecognized(expectedDesc)
		return lexer.Token{}, false
	}
	p.pos++
	return t, true
}

func (p *parser) match(k lexer.Kind) bool {
	t, ok := p.peek()
	if ok && t.Kind == k {
		p.pos++
		return true
	}
	return false
}

// qualifiedName parses `ident[.ident]` and returns (schema, name); schema
// is "" when unqualified (the builder applies the project default).
func (p *parser) qualifiedName() (schema, name string, ok bool) {
	first, ok := p.expect(lexer.Identifier, "identifier")
	if !ok {
		return "", "", false
	}
	if p.match(lexer.Period) {
		second, ok := p.expect(lexer.Identifier, "identifier")
		if !ok {
			return "", "", false
		}
		return first.Text, second.Text, true
	}
	return "", first.Text, true
}

func (p *parser) parseStatement(out *ast.File) {
	first, ok := p.peek()
	if !ok {
		return
	}

	switch first.Kind {
	case lexer.CREATE:
		p.pos++
		p.parseCreate(out)
	default:
		p.unrecognized("CREATE")
	}

	if !p.atEnd() {
		p.extraToken()
	}
}

func (p *parser) parseCreate(out *ast.File) {
	t, ok := p.peek()
	if !ok {
		p.unrecognized("EXTENSION", "SCHEMA", "TABLE", "TYPE", "INDEX", "FUNCTION", "OR")
		return
	}

	orReplace := false
	if t.Kind == lexer.OR {
		p.pos++
		if _, ok := p.expect(lexer.REPLACE, "REPLACE"); !ok {
			return
		}
		orReplace = true
		t, ok = p.peek()
		if !ok {
			p.unrecognized("FUNCTION")
			return
		}
	}

	switch t.Kind {
	case lexer.EXTENSION:
		p.pos++
		p.parseExtension(out)
	case lexer.SCHEMA:
		p.pos++
		p.parseSchema(out)
	case lexer.TABLE:
		p.pos++
		p.parseTable(out)
	case lexer.TYPE:
		p.pos++
		p.parseType(out)
	case lexer.INDEX:
		p.pos++
		p.parseIndex(out, false)
	case lexer.UNIQUE:
		p.pos++
		if _, ok := p.expect(lexer.INDEX, "INDEX"); ok {
			p.parseIndex(out, true)
		}
	case lexer.FUNCTION:
		p.pos++
		p.parseFunction(out, orReplace)
	default:
		p.unrecognized("EXTENSION", "SCHEMA", "TABLE", "TYPE", "INDEX", "FUNCTION")
	}
}

func (p *parser) parseExtension(out *ast.File) {
	name, ok := p.expect(lexer.Identifier, "extension name")
	if !ok {
		return
	}
	out.Extensions = append(out.Extensions, &ast.Extension{
		Pos: ast.Pos{File: p.file, Line: name.Line, Column: name.StartCol}, Name: name.Text,
	})
}

func (p *parser) parseSchema(out *ast.File) {
	name, ok := p.expect(lexer.Identifier, "schema name")
	if !ok {
		return
	}
	out.Schemas = append(out.Schemas, &ast.Schema{
		Pos: ast.Pos{File: p.file, Line: name.Line, Column: name.StartCol}, Name: name.Text,
	})
}

func (p *parser) parseTable(out *ast.File) {
	schema, name, ok := p.qualifiedName()
	if !ok {
		return
	}
	pos := ast.Pos{File: p.file}
	table := &ast.Table{Pos: pos, Schema: schema, Name: name}

	if _, ok := p.expect(lexer.LeftBracket, "("); !ok {
		return
	}
	for {
		if t, ok := p.peek(); ok && t.Kind == lexer.RightBracket {
			p.pos++
			break
		}
		if p.atEnd() {
			p.unrecognized(")")
			return
		}
		if t, ok := p.peek(); ok && (t.Kind == lexer.CONSTRAINT || t.Kind == lexer.PRIMARY || t.Kind == lexer.FOREIGN || t.Kind == lexer.UNIQUE) {
			c := p.parseTableConstraint()
			if c != nil {
				table.Constraints = append(table.Constraints, c)
			}
		} else {
			col := p.parseColumnDef()
			if col != nil {
				table.Columns = append(table.Columns, col)
			}
		}
		if t, ok := p.peek(); ok && t.Kind == lexer.Comma {
			p.pos++
			continue
		}
		if t, ok := p.peek(); ok && t.Kind == lexer.RightBracket {
			p.pos++
			break
		}
		p.unrecognized(",", ")")
		return
	}

	out.Tables = append(out.Tables, table)
}

func (p *parser) parseColumnDef() *ast.Column {
	name, ok := p.expect(lexer.Identifier, "column name")
	if !ok {
		return nil
	}
	col := &ast.Column{
		Pos:      ast.Pos{File: p.file, Line: name.Line, Column: name.StartCol},
		Name:     name.Text,
		Nullable: true,
	}

	sqlType, ok := p.parseSQLType()
	if !ok {
		return nil
	}
	col.SQLType = sqlType

	for {
		t, ok := p.peek()
		if !ok {
			break
		}
		switch t.Kind {
		case lexer.NOT:
			p.pos++
			if _, ok := p.expect(lexer.NULL, "NULL"); !ok {
				return nil
			}
			col.Nullable = false
		case lexer.NULL:
			p.pos++
			col.Nullable = true
		case lexer.DEFAULT:
			p.pos++
			lit, ok := p.parseLiteralText()
			if !ok {
				return nil
			}
			col.Default = &lit
		case lexer.PRIMARY:
			p.pos++
			if _, ok := p.expect(lexer.KEY, "KEY"); !ok {
				return nil
			}
			col.Nullable = false
		default:
			return col
		}
	}
	return col
}

// parseSQLType accepts a type name token plus an optional array suffix
// ([]) and an optional (n[,m]) precision/length, reconstructing the type's
// spelling: a user-defined type keeps its name as written, while a keyword
// type is rendered from its keyword spelling, since keyword tokens carry no
// source text.
func (p *parser) parseSQLType() (string, bool) {
	t, ok := p.peek()
	if !ok {
		p.unrecognized("type name")
		return "", false
	}
	if !isTypeToken(t.Kind) {
		p.unrecognized("type name")
		return "", false
	}
	p.pos++
	name := t.Kind.String()
	if t.Kind == lexer.Identifier {
		name = t.Text
	}

	// multi-word types: DOUBLE PRECISION, CHARACTER VARYING, TIMESTAMP WITH/WITHOUT TIME ZONE
	if t.Kind == lexer.DOUBLE {
		if _, ok := p.expect(lexer.PRECISION, "PRECISION"); ok {
			name = "double precision"
		}
	} else if t.Kind == lexer.CHARACTER {
		if n, ok := p.peek(); ok && n.Kind == lexer.VARYING {
			p.pos++
			name = "character varying"
		}
	} else if t.Kind == lexer.TIMESTAMP || t.Kind == lexer.TIME {
		if n, ok := p.peek(); ok && (n.Kind == lexer.WITH || n.Kind == lexer.WITHOUT) {
			p.pos++
			withZone := n.Kind == lexer.WITH
			if _, ok := p.expect(lexer.TIME, "TIME"); ok {
				if _, ok := p.expect(lexer.ZONE, "ZONE"); ok {
					if withZone {
						name += " with time zone"
					} else {
						name += " without time zone"
					}
				}
			}
		}
	}

	if n, ok := p.peek(); ok && n.Kind == lexer.LeftBracket {
		p.pos++
		var nums []string
		for {
			d, ok := p.expect(lexer.Digit, "digit")
			if !ok {
				return "", false
			}
			nums = append(nums, fmt.Sprintf("%d", d.IntVal))
			if p.match(lexer.Comma) {
				continue
			}
			break
		}
		if _, ok := p.expect(lexer.RightBracket, ")"); !ok {
			return "", false
		}
		name = fmt.Sprintf("%s(%s)", name, strings.Join(nums, ","))
	}

	if n, ok := p.peek(); ok && n.Kind == lexer.LeftSquare {
		p.pos++
		if _, ok := p.expect(lexer.RightSquare, "]"); !ok {
			return "", false
		}
		name += "[]"
	}

	return name, true
}

func isTypeToken(k lexer.Kind) bool {
	switch k {
	case lexer.BIGINT, lexer.BIGSERIAL, lexer.BIT, lexer.BOOL, lexer.BOOLEAN, lexer.CHAR, lexer.CHARACTER,
		lexer.DATE, lexer.DOUBLE, lexer.INT, lexer.INT2, lexer.INT4, lexer.INT8, lexer.INTEGER,
		lexer.MONEY, lexer.NUMERIC, lexer.REAL, lexer.SERIAL, lexer.SERIAL2, lexer.SERIAL4, lexer.SERIAL8,
		lexer.SMALLINT, lexer.SMALLSERIAL, lexer.TEXT, lexer.TIME, lexer.TIMESTAMP, lexer.TIMESTAMPTZ,
		lexer.TIMETZ, lexer.UUID, lexer.VARBIT, lexer.VARCHAR, lexer.Identifier:
		return true
	default:
		return false
	}
}

// parseLiteralText renders a DEFAULT value's token as its literal source
// text, so the delta engine can inline it unchanged.
func (p *parser) parseLiteralText() (string, bool) {
	t, ok := p.advance()
	if !ok {
		p.unrecognized("literal")
		return "", false
	}
	switch t.Kind {
	case lexer.StringValue:
		return "'" + t.Text + "'", true
	case lexer.Digit:
		return fmt.Sprintf("%d", t.IntVal), true
	case lexer.Boolean:
		if t.BoolVal {
			return "true", true
		}
		return "false", true
	case lexer.NULL:
		return "NULL", true
	case lexer.Identifier:
		// function-call defaults like now() are lexed as an identifier
		// followed by brackets; reconstruct them verbatim.
		text := t.Text
		if n, ok := p.peek(); ok && n.Kind == lexer.LeftBracket {
			depth := 0
			for {
				tok, ok := p.advance()
				if !ok {
					break
				}
				text += tokenText(tok)
				if tok.Kind == lexer.LeftBracket {
					depth++
				}
				if tok.Kind == lexer.RightBracket {
					depth--
					if depth == 0 {
						break
					}
				}
			}
		}
		return text, true
	default:
		p.unrecognized("literal")
		return "", false
	}
}

func tokenText(t lexer.Token) string {
	switch t.Kind {
	case lexer.LeftBracket:
		return "("
	case lexer.RightBracket:
		return ")"
	case lexer.Identifier:
		return t.Text
	case lexer.StringValue:
		return "'" + t.Text + "'"
	case lexer.Digit:
		return fmt.Sprintf("%d", t.IntVal)
	case lexer.Comma:
		return ","
	default:
		return t.Kind.String()
	}
}

func (p *parser) parseTableConstraint() *ast.Constraint {
	var name string
	if p.match(lexer.CONSTRAINT) {
		n, ok := p.expect(lexer.Identifier, "constraint name")
		if !ok {
			return nil
		}
		name = n.Text
	}

	t, ok := p.peek()
	if !ok {
		p.unrecognized("PRIMARY", "FOREIGN", "UNIQUE")
		return nil
	}

	switch t.Kind {
	case lexer.PRIMARY:
		p.pos++
		if _, ok := p.expect(lexer.KEY, "KEY"); !ok {
			return nil
		}
		cols, ok := p.parseColumnList()
		if !ok {
			return nil
		}
		return &ast.Constraint{Kind: ast.PrimaryKeyConstraint, Name: name, Columns: cols}
	case lexer.UNIQUE:
		p.pos++
		cols, ok := p.parseColumnList()
		if !ok {
			return nil
		}
		return &ast.Constraint{Kind: ast.UniqueConstraint, Name: name, Columns: cols}
	case lexer.FOREIGN:
		p.pos++
		if _, ok := p.expect(lexer.KEY, "KEY"); !ok {
			return nil
		}
		cols, ok := p.parseColumnList()
		if !ok {
			return nil
		}
		if _, ok := p.expect(lexer.REFERENCES, "REFERENCES"); !ok {
			return nil
		}
		refSchema, refTable, ok := p.qualifiedName()
		if !ok {
			return nil
		}
		refCols, ok := p.parseColumnList()
		if !ok {
			return nil
		}
		c := &ast.Constraint{
			Kind: ast.ForeignKeyConstraint, Name: name, Columns: cols,
			RefSchema: refSchema, RefTable: refTable, RefColumns: refCols,
		}
		for {
			t, ok := p.peek()
			if !ok || t.Kind != lexer.ON {
				break
			}
			p.pos++
			action, ok := p.peek()
			if !ok {
				p.unrecognized("UPDATE", "DELETE")
				return nil
			}
			p.pos++
			rule := p.parseReferentialAction()
			if action.Kind == lexer.UPDATE {
				c.OnUpdate = rule
			} else if action.Kind == lexer.DELETE {
				c.OnDelete = rule
			} else {
				p.unrecognized("UPDATE", "DELETE")
				return nil
			}
		}
		return c
	default:
		p.unrecognized("PRIMARY", "FOREIGN", "UNIQUE")
		return nil
	}
}

func (p *parser) parseReferentialAction() string {
	t, ok := p.peek()
	if !ok {
		return ""
	}
	switch t.Kind {
	case lexer.CASCADE:
		p.pos++
		return "CASCADE"
	case lexer.RESTRICT:
		p.pos++
		return "RESTRICT"
	case lexer.NO:
		p.pos++
		if _, ok := p.expect(lexer.ACTION, "ACTION"); ok {
			return "NO ACTION"
		}
		return ""
	case lexer.SET:
		p.pos++
		n, ok := p.peek()
		if !ok {
			return ""
		}
		p.pos++
		if n.Kind == lexer.NULL {
			return "SET NULL"
		}
		if n.Kind == lexer.DEFAULT {
			return "SET DEFAULT"
		}
		return ""
	default:
		return ""
	}
}

func (p *parser) parseColumnList() ([]string, bool) {
	if _, ok := p.expect(lexer.LeftBracket, "("); !ok {
		return nil, false
	}
	var cols []string
	for {
		t, ok := p.expect(lexer.Identifier, "column name")
		if !ok {
			return nil, false
		}
		cols = append(cols, t.Text)
		if p.match(lexer.Comma) {
			continue
		}
		break
	}
	if _, ok := p.expect(lexer.RightBracket, ")"); !ok {
		return nil, false
	}
	return cols, true
}

func (p *parser) parseType(out *ast.File) {
	schema, name, ok := p.qualifiedName()
	if !ok {
		return
	}
	if _, ok := p.expect(lexer.AS, "AS"); !ok {
		return
	}

	if p.match(lexer.ENUM) {
		if _, ok := p.expect(lexer.LeftBracket, "("); !ok {
			return
		}
		var values []string
		for {
			v, ok := p.expect(lexer.StringValue, "string literal")
			if !ok {
				return
			}
			values = append(values, v.Text)
			if p.match(lexer.Comma) {
				continue
			}
			break
		}
		if _, ok := p.expect(lexer.RightBracket, ")"); !ok {
			return
		}
		out.Enums = append(out.Enums, &ast.EnumType{Pos: ast.Pos{File: p.file}, Schema: schema, Name: name, Values: values})
		return
	}

	if _, ok := p.expect(lexer.LeftBracket, "("); !ok {
		return
	}
	var attrs []ast.CompositeAttr
	for {
		attrName, ok := p.expect(lexer.Identifier, "attribute name")
		if !ok {
			return
		}
		attrType, ok := p.parseSQLType()
		if !ok {
			return
		}
		attrs = append(attrs, ast.CompositeAttr{Name: attrName.Text, SQLType: attrType})
		if p.match(lexer.Comma) {
			continue
		}
		break
	}
	if _, ok := p.expect(lexer.RightBracket, ")"); !ok {
		return
	}
	out.Composites = append(out.Composites, &ast.CompositeType{Pos: ast.Pos{File: p.file}, Schema: schema, Name: name, Attributes: attrs})
}

func (p *parser) parseIndex(out *ast.File, unique bool) {
	concurrent := false
	if t, ok := p.peek(); ok && t.Kind == lexer.Identifier && strings.EqualFold(t.Text, "concurrently") {
		p.pos++
		concurrent = true
	}
	name, ok := p.expect(lexer.Identifier, "index name")
	if !ok {
		return
	}
	if _, ok := p.expect(lexer.ON, "ON"); !ok {
		return
	}
	schema, table, ok := p.qualifiedName()
	if !ok {
		return
	}

	method := ast.BTree
	if p.match(lexer.USING) {
		t, ok := p.peek()
		if !ok {
			p.unrecognized("BTREE", "GIN", "GIST", "HASH")
			return
		}
		p.pos++
		switch t.Kind {
		case lexer.BTREE:
			method = ast.BTree
		case lexer.GIN:
			method = ast.Gin
		case lexer.GIST:
			method = ast.Gist
		case lexer.HASH:
			method = ast.HashMethod
		default:
			p.unrecognized("BTREE", "GIN", "GIST", "HASH")
			return
		}
	}

	if _, ok := p.expect(lexer.LeftBracket, "("); !ok {
		return
	}
	var cols []ast.IndexColumn
	for {
		cn, ok := p.expect(lexer.Identifier, "column name")
		if !ok {
			return
		}
		ic := ast.IndexColumn{Name: cn.Text}
		if p.match(lexer.ASC) {
			ic.Order = ast.Ascending
		} else if p.match(lexer.DESC) {
			ic.Order = ast.Descending
		}
		if p.match(lexer.NULLS) {
			if p.match(lexer.FIRST) {
				ic.Nulls = ast.NullsFirst
			} else if p.match(lexer.LAST) {
				ic.Nulls = ast.NullsLast
			} else {
				p.unrecognized("FIRST", "LAST")
				return
			}
		}
		cols = append(cols, ic)
		if p.match(lexer.Comma) {
			continue
		}
		break
	}
	if _, ok := p.expect(lexer.RightBracket, ")"); !ok {
		return
	}

	idx := &ast.Index{
		Pos: ast.Pos{File: p.file, Line: name.Line, Column: name.StartCol},
		Schema: schema, Table: table, Name: name.Text,
		Method: method, Columns: cols, Unique: unique, Concurrent: concurrent,
	}

	if t, ok := p.peek(); ok && t.Kind == lexer.Identifier && strings.EqualFold(t.Text, "where") {
		p.pos++
		idx.PartialExpr = p.restAsText()
		out.Indexes = append(out.Indexes, idx)
		return
	}

	if p.match(lexer.WITH) {
		if _, ok := p.expect(lexer.LeftBracket, "("); !ok {
			return
		}
		if _, ok := p.expect(lexer.FILLFACTOR, "FILLFACTOR"); !ok {
			return
		}
		if _, ok := p.expect(lexer.Equals, "="); !ok {
			return
		}
		d, ok := p.expect(lexer.Digit, "digit")
		if !ok {
			return
		}
		n := d.IntVal
		idx.Fillfactor = &n
		if _, ok := p.expect(lexer.RightBracket, ")"); !ok {
			return
		}
	}

	out.Indexes = append(out.Indexes, idx)
}

// restAsText reconstructs whatever tokens remain in the statement as a
// best-effort textual expression (used for partial-index predicates, whose
// grammar this dialect otherwise leaves opaque).
func (p *parser) restAsText() string {
	var sb strings.Builder
	for !p.atEnd() {
		t, _ := p.advance()
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(tokenText(t))
	}
	return sb.String()
}

func (p *parser) parseFunction(out *ast.File, orReplace bool) {
	schema, name, ok := p.qualifiedName()
	if !ok {
		return
	}
	if _, ok := p.expect(lexer.LeftBracket, "("); !ok {
		return
	}
	var args []ast.FunctionArg
	if t, ok := p.peek(); !ok || t.Kind != lexer.RightBracket {
		for {
			argName, ok := p.expect(lexer.Identifier, "argument name")
			if !ok {
				return
			}
			argType, ok := p.parseSQLType()
			if !ok {
				return
			}
			args = append(args, ast.FunctionArg{Name: argName.Text, SQLType: argType})
			if p.match(lexer.Comma) {
				continue
			}
			break
		}
	}
	if _, ok := p.expect(lexer.RightBracket, ")"); !ok {
		return
	}
	if _, ok := p.expect(lexer.RETURNS, "RETURNS"); !ok {
		return
	}
	returns, ok := p.parseSQLType()
	if !ok {
		return
	}
	if _, ok := p.expect(lexer.AS, "AS"); !ok {
		return
	}
	body, ok := p.expect(lexer.Literal, "dollar-quoted body")
	if !ok {
		return
	}
	if _, ok := p.expect(lexer.LANGUAGE, "LANGUAGE"); !ok {
		return
	}
	langTok, ok := p.peek()
	if !ok {
		p.unrecognized("SQL", "PLPGSQL", "C", "INTERNAL")
		return
	}
	p.pos++
	var lang ast.FunctionLanguage
	switch langTok.Kind {
	case lexer.SQL:
		lang = ast.LangSQL
	case lexer.PLPGSQL:
		lang = ast.LangPLPGSQL
	case lexer.C:
		lang = ast.LangC
	case lexer.INTERNAL:
		lang = ast.LangInternal
	default:
		p.unrecognized("SQL", "PLPGSQL", "C", "INTERNAL")
		return
	}

	out.Functions = append(out.Functions, &ast.Function{
		Pos: ast.Pos{File: p.file, Line: name.Line, Column: name.StartCol},
		Schema: schema, Name: name.Text, Args: args, Returns: returns,
		Language: lang, Body: body.Text, OrReplace: orReplace,
	})
}
