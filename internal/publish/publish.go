// Package publish implements the publish executor (spec §4.7): it
// consumes a Delta and a session and executes each group in order,
// opening one transaction per transactional group and halting on the
// first statement failure without rolling back groups already committed.
// Grounded on the teacher's internal/executor/executor.go ApplyPlan,
// which follows the same per-step transaction-and-trace shape using
// fatih/color for its verbose output.
package publish

import (
	"context"
	"log/slog"

	"github.com/fatih/color"

	"github.com/psqlpack/psqlpack/internal/delta"
	"github.com/psqlpack/psqlpack/internal/dbsession"
	"github.com/psqlpack/psqlpack/internal/perrors"
)

// Result reports how far a publish progressed, per spec §4.7's "the user
// is told how far the publish progressed".
type Result struct {
	GroupsCompleted int
	StepsApplied    int
	Halted          bool
}

// Options controls the executor's tracing; Verbose mirrors the teacher's
// color-coded step-by-step output.
type Options struct {
	Verbose bool
	Logger  *slog.Logger
}

// Execute runs d's groups against sess in order. A statement failure
// rolls back its own group, halts the executor, and returns the partial
// Result alongside a DatabaseError; already-committed groups are left in
// place. Cancellation via ctx is observed only between groups (spec §5).
func Execute(ctx context.Context, sess dbsession.Session, d *delta.Delta, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "publish")
	// Statements run under a context that ignores cancellation, so a cancel
	// lets the current group finish; ctx itself is checked between groups.
	runCtx := context.WithoutCancel(ctx)

	var result Result

	for gi, g := range d.Groups {
		select {
		case <-ctx.Done():
			result.Halted = true
			return result, ctx.Err()
		default:
		}

		if opts.Verbose {
			label := color.CyanString("group %d", gi+1)
			if !g.Transactional {
				label = color.YellowString("group %d (non-transactional)", gi+1)
			}
			log.Info(label)
		}

		if !g.Transactional {
			for _, step := range g.Steps {
				if opts.Verbose {
					log.Info(color.GreenString("  %s", step.Kind.String()), "sql", step.SQL)
				}
				if _, err := sess.Exec(runCtx, step.SQL); err != nil {
					result.Halted = true
					return result, perrors.NewDatabaseErrorf("step %s failed: %v", step.Kind, err)
				}
				result.StepsApplied++
			}
			result.GroupsCompleted++
			continue
		}

		tx, err := sess.Begin(runCtx)
		if err != nil {
			result.Halted = true
			return result, err
		}

		var groupErr error
		for _, step := range g.Steps {
			if opts.Verbose {
				log.Info(color.GreenString("  %s", step.Kind.String()), "sql", step.SQL)
			}
			if _, err := tx.Exec(runCtx, step.SQL); err != nil {
				groupErr = perrors.NewDatabaseErrorf("step %s failed: %v", step.Kind, err)
				break
			}
			result.StepsApplied++
		}

		if groupErr != nil {
			_ = tx.Rollback()
			result.Halted = true
			return result, groupErr
		}

		if err := tx.Commit(); err != nil {
			result.Halted = true
			return result, err
		}
		result.GroupsCompleted++
	}

	return result, nil
}
