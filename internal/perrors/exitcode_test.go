package perrors

import (
	"fmt"
	"testing"
)

func TestExitCodeSuccess(t *testing.T) {
	if got := ExitCode(nil); got != ExitSuccess {
		t.Errorf("got %d, want ExitSuccess", got)
	}
}

func TestExitCodeUserErrorDefault(t *testing.T) {
	if got := ExitCode(NewProjectError("bad project")); got != ExitUserError {
		t.Errorf("got %d, want ExitUserError", got)
	}
}

func TestExitCodeIOError(t *testing.T) {
	if got := ExitCode(NewIOError("a.sql", fmt.Errorf("disk full"))); got != ExitIOError {
		t.Errorf("got %d, want ExitIOError", got)
	}
}

func TestExitCodeDatabaseError(t *testing.T) {
	if got := ExitCode(NewDatabaseErrorf("connection reset")); got != ExitDatabaseErr {
		t.Errorf("got %d, want ExitDatabaseErr", got)
	}
}

func TestExitCodeMultipleErrorsTakesMostSevere(t *testing.T) {
	err := NewMultipleErrors([]error{
		NewProjectError("bad schema"),
		NewDatabaseErrorf("connection reset"),
		NewIOError("a.sql", fmt.Errorf("disk full")),
	})
	if got := ExitCode(err); got != ExitDatabaseErr {
		t.Errorf("got %d, want ExitDatabaseErr (most severe among the three)", got)
	}
}
