// Optional emission linter: rather than reimplement PostgreSQL's full DDL
// grammar, delta step SQL can be checked for parse-validity with
// pg_query_go, the teacher's primary SQL front end (displaced from that
// role by the bespoke lexer/parser above — see SPEC_FULL.md §C). It is a
// helper for catching generator bugs before they reach a live session; no
// test in this module calls it, and it is not on the runtime path of
// build or publish.
package ddl

import (
	pgquery "github.com/pganalyze/pg_query_go/v6"
)

// LooksValid reports whether stmt parses as PostgreSQL SQL. Multi-statement
// blobs separated by ";" are checked as a whole, matching how the publish
// executor runs them.
func LooksValid(stmt string) (bool, error) {
	_, err := pgquery.Parse(stmt)
	if err != nil {
		return false, err
	}
	return true, nil
}
