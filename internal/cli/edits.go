package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/claude/futurecoach/internal/tracker"
)

// parseEdit reads one row edit written as
//
//	add:exercise=Bench,reps=5,weight=185,count=3
//	update:INDEX:count=4,weight=
//	remove:INDEX
//	duplicate:INDEX
//
// An empty value is kept as an empty string, so "weight=" clears the weight.
func parseEdit(s string) (tracker.Edit, error) {
	op, rest, _ := strings.Cut(strings.TrimSpace(s), ":")
	var e tracker.Edit
	switch strings.ToLower(op) {
	case "add":
		e.Op = tracker.EditAdd
		if err := parseFields(&e, rest); err != nil {
			return e, fmt.Errorf("edit %q: %w", s, err)
		}
		if e.Exercise == nil || e.Reps == nil {
			return e, fmt.Errorf("edit %q: add needs exercise and reps", s)
		}
		return e, nil
	case "update":
		e.Op = tracker.EditUpdate
	case "remove", "rm":
		e.Op = tracker.EditRemove
	case "duplicate", "dup":
		e.Op = tracker.EditDuplicate
	default:
		return e, fmt.Errorf("edit %q: unknown op %q", s, op)
	}

	idx, fields, _ := strings.Cut(rest, ":")
	n, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil {
		return e, fmt.Errorf("edit %q: row index must be a number", s)
	}
	e.Index = n
	if e.Op != tracker.EditUpdate {
		if fields != "" {
			return e, fmt.Errorf("edit %q: %s takes no fields", s, e.Op)
		}
		return e, nil
	}
	if err := parseFields(&e, fields); err != nil {
		return e, fmt.Errorf("edit %q: %w", s, err)
	}
	if e.Exercise == nil && e.Reps == nil && e.Weight == nil && e.Count == nil {
		return e, fmt.Errorf("edit %q: update needs at least one field", s)
	}
	return e, nil
}

func parseFields(e *tracker.Edit, s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("field %q is not key=value", kv)
		}
		v = strings.TrimSpace(v)
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "exercise", "ex":
			e.Exercise = &v
		case "reps", "r":
			e.Reps = &v
		case "weight", "w":
			e.Weight = &v
		case "count", "sets", "n":
			e.Count = &v
		default:
			return fmt.Errorf("unknown field %q", k)
		}
	}
	return nil
}
