package lexer

import "testing"

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeKeywordsAndPunctuation(t *testing.T) {
	tokens, err := Tokenize("t.sql", "CREATE TABLE foo (id INT);")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	got := kinds(tokens)
	want := []Kind{CREATE, TABLE, Identifier, LeftBracket, Identifier, INT, RightBracket, Semicolon}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
	if tokens[2].Text != "foo" {
		t.Errorf("identifier text = %q, want foo", tokens[2].Text)
	}
}

func TestTokenizeDollarQuotedLiteral(t *testing.T) {
	tokens, err := Tokenize("t.sql", "$$select 1$$")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Kind != Literal {
		t.Fatalf("got %v, want single Literal token", tokens)
	}
	if tokens[0].Text != "select 1" {
		t.Errorf("literal text = %q, want %q", tokens[0].Text, "select 1")
	}
}

func TestTokenizeMultilineLiteral(t *testing.T) {
	tokens, err := Tokenize("t.sql", "$$line one\nline two$$")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Kind != Literal {
		t.Fatalf("got %v, want single Literal token", tokens)
	}
	want := "line one\nline two"
	if tokens[0].Text != want {
		t.Errorf("literal text = %q, want %q", tokens[0].Text, want)
	}
}

func TestTokenizePackageParameter(t *testing.T) {
	tokens, err := Tokenize("t.sql", "$(env)")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Kind != PackageParameter {
		t.Fatalf("got %v, want single PackageParameter token", tokens)
	}
	if tokens[0].Text != "env" {
		t.Errorf("package parameter text = %q, want env", tokens[0].Text)
	}
}

func TestTokenizeStringValue(t *testing.T) {
	tokens, err := Tokenize("t.sql", "'hello world'")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Kind != StringValue {
		t.Fatalf("got %v, want single StringValue token", tokens)
	}
	if tokens[0].Text != "hello world" {
		t.Errorf("string text = %q, want %q", tokens[0].Text, "hello world")
	}
}

func TestTokenizeBooleanAndDigit(t *testing.T) {
	tokens, err := Tokenize("t.sql", "true FALSE 42")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3", len(tokens))
	}
	if tokens[0].Kind != Boolean || !tokens[0].BoolVal {
		t.Errorf("token 0 = %+v, want Boolean true", tokens[0])
	}
	if tokens[1].Kind != Boolean || tokens[1].BoolVal {
		t.Errorf("token 1 = %+v, want Boolean false", tokens[1])
	}
	if tokens[2].Kind != Digit || tokens[2].IntVal != 42 {
		t.Errorf("token 2 = %+v, want Digit 42", tokens[2])
	}
}

func TestTokenizeLineComment(t *testing.T) {
	tokens, err := Tokenize("t.sql", "CREATE -- a table\nTABLE")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	got := kinds(tokens)
	want := []Kind{CREATE, TABLE}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeBlockComment(t *testing.T) {
	tokens, err := Tokenize("t.sql", "CREATE /* multi\nline */ TABLE")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	got := kinds(tokens)
	want := []Kind{CREATE, TABLE}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeUnterminatedStringIsSyntaxError(t *testing.T) {
	_, err := Tokenize("t.sql", "'unterminated")
	if err == nil {
		t.Fatal("expected a syntax error for an unterminated string")
	}
}

func TestTokenizeInvalidWordIsSyntaxError(t *testing.T) {
	_, err := Tokenize("t.sql", "123abc")
	if err == nil {
		t.Fatal("expected a syntax error for a malformed word")
	}
}

func TestKindStringRoundTripsKeywords(t *testing.T) {
	if CREATE.String() != "CREATE" {
		t.Errorf("CREATE.String() = %q, want CREATE", CREATE.String())
	}
	if Semicolon.String() != ";" {
		t.Errorf("Semicolon.String() = %q, want ;", Semicolon.String())
	}
}
