package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/futurecoach/internal/models"
)

// OpKind is the kind of a single reconciliation call.
type OpKind string

const (
	OpUpdate     OpKind = "update"
	OpCreateBulk OpKind = "create_bulk"
	OpDelete     OpKind = "delete"
)

// Fields is the exercise/reps/weight triple written to the backend.
type Fields struct {
	Exercise string   `json:"exercise"`
	Reps     int      `json:"reps"`
	Weight   *float64 `json:"weight"`
}

// Op is one backend call. SetID is used by update and delete, WorkoutID and
// Count by bulk create.
type Op struct {
	Kind      OpKind `json:"kind"`
	SetID     int    `json:"set_id,omitempty"`
	WorkoutID int    `json:"workout_id,omitempty"`
	Count     int    `json:"count,omitempty"`
	Fields    Fields `json:"fields"`
}

func (o Op) String() string {
	switch o.Kind {
	case OpUpdate:
		return fmt.Sprintf("update set %d", o.SetID)
	case OpDelete:
		return fmt.Sprintf("delete set %d", o.SetID)
	default:
		return fmt.Sprintf("create %d x %s", o.Count, o.Fields.Exercise)
	}
}

// SetWriter is the subset of the gateway used to apply a plan.
type SetWriter interface {
	UpdateSet(ctx context.Context, id int, in models.SetUpdate) (models.Set, error)
	CreateSetsBulk(ctx context.Context, in models.SetBulkCreate) ([]models.Set, error)
	DeleteSet(ctx context.Context, id int) error
}

// ApplyError reports a reconciliation that stopped part-way. The backend keeps
// the first Applied operations; nothing is rolled back.
type ApplyError struct {
	Applied int
	Total   int
	Op      Op
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("%s failed after %d of %d operations: %v", e.Op, e.Applied, e.Total, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// rowFields normalizes a row for saving: a blank exercise becomes "Exercise".
func rowFields(r Row) Fields {
	ex := strings.TrimSpace(r.Exercise)
	if ex == "" {
		ex = "Exercise"
	}
	return Fields{Exercise: ex, Reps: r.Reps, Weight: copyWeight(r.Weight)}
}

// Plan computes the calls that turn original into rows. Per row: a changed
// hydrated row updates every member, a grown row bulk-creates the difference,
// a shrunk row deletes its first members, and a new row with a positive count
// bulk-creates it. Original groups that no row references lose all members.
func Plan(original []Group, rows []Row, workoutID int) []Op {
	byKey := make(map[string]Group, len(original))
	for _, g := range original {
		byKey[g.Key] = g
	}

	var ops []Op
	referenced := make(map[string]bool)
	for _, r := range rows {
		target := max(0, r.Count)
		f := rowFields(r)
		if r.OrigKey != "" {
			referenced[r.OrigKey] = true
		}

		og, ok := byKey[r.OrigKey]
		if r.OrigKey == "" || !ok {
			if target > 0 {
				ops = append(ops, Op{Kind: OpCreateBulk, WorkoutID: workoutID, Count: target, Fields: f})
			}
			continue
		}

		if f.Exercise != og.Exercise || f.Reps != og.Reps || !sameWeight(f.Weight, og.Weight) {
			for _, id := range og.IDs {
				ops = append(ops, Op{Kind: OpUpdate, SetID: id, Fields: f})
			}
		}

		delta := target - len(og.IDs)
		switch {
		case delta > 0:
			ops = append(ops, Op{Kind: OpCreateBulk, WorkoutID: workoutID, Count: delta, Fields: f})
		case delta < 0:
			for _, id := range og.IDs[:-delta] {
				ops = append(ops, Op{Kind: OpDelete, SetID: id})
			}
		}
	}

	for _, g := range original {
		if referenced[g.Key] {
			continue
		}
		for _, id := range g.IDs {
			ops = append(ops, Op{Kind: OpDelete, SetID: id})
		}
	}
	return ops
}

// Apply issues ops one at a time in order and stops at the first failure.
// It returns the number of operations that succeeded.
func Apply(ctx context.Context, w SetWriter, ops []Op) (int, error) {
	for i, op := range ops {
		var err error
		switch op.Kind {
		case OpUpdate:
			ex, reps := op.Fields.Exercise, op.Fields.Reps
			_, err = w.UpdateSet(ctx, op.SetID, models.SetUpdate{
				Exercise:  &ex,
				Reps:      &reps,
				SetWeight: true,
				Weight:    op.Fields.Weight,
			})
		case OpCreateBulk:
			_, err = w.CreateSetsBulk(ctx, models.SetBulkCreate{
				WorkoutID: op.WorkoutID,
				Exercise:  op.Fields.Exercise,
				Reps:      op.Fields.Reps,
				Count:     op.Count,
				Weight:    op.Fields.Weight,
			})
		case OpDelete:
			err = w.DeleteSet(ctx, op.SetID)
		default:
			err = fmt.Errorf("unknown op kind %q", op.Kind)
		}
		if err != nil {
			return i, &ApplyError{Applied: i, Total: len(ops), Op: op, Err: err}
		}
	}
	return len(ops), nil
}
