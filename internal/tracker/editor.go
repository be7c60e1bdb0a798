package tracker

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ErrRowIndex is returned when a row index is out of range.
var ErrRowIndex = errors.New("row index out of range")

// Row is one editable logical row. Hydrated rows carry OrigKey and one id per
// set (Count == len(IDs) until edited). New rows have no ids and IsNew set.
// A hydrated row with Count 0 deletes all of its members on save.
type Row struct {
	Exercise string   `json:"exercise"`
	Reps     int      `json:"reps"`
	Weight   *float64 `json:"weight"`
	Count    int      `json:"count"`
	IDs      []int    `json:"ids"`
	OrigKey  string   `json:"orig_key,omitempty"`
	IsNew    bool     `json:"is_new"`
}

func (r Row) clone() Row {
	r.Weight = copyWeight(r.Weight)
	r.IDs = slices.Clone(r.IDs)
	if r.IDs == nil {
		r.IDs = []int{}
	}
	return r
}

// Hydrate builds one row per group.
func Hydrate(groups []Group) []Row {
	rows := make([]Row, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, Row{
			Exercise: g.Exercise,
			Reps:     g.Reps,
			Weight:   copyWeight(g.Weight),
			Count:    len(g.IDs),
			IDs:      slices.Clone(g.IDs),
			OrigKey:  g.Key,
		})
	}
	return rows
}

// RowInput is a new row as typed by a user. Reps must be numeric; a blank or
// invalid weight means bodyweight; count defaults to 1.
type RowInput struct {
	Exercise string `json:"exercise"`
	Reps     string `json:"reps"`
	Weight   string `json:"weight"`
	Count    string `json:"count"`
}

// RowPatch is a raw-text edit of one row. Nil fields are left unchanged.
type RowPatch struct {
	Exercise *string `json:"exercise,omitempty"`
	Reps     *string `json:"reps,omitempty"`
	Weight   *string `json:"weight,omitempty"`
	Count    *string `json:"count,omitempty"`
}

// Editor is a working copy of the rows of one workout. Edits never touch the
// original groups.
type Editor struct {
	original []Group
	rows     []Row
	dirty    bool
}

// NewEditor hydrates an editor from the original groups.
func NewEditor(original []Group) *Editor {
	return &Editor{original: original, rows: Hydrate(original)}
}

// Original returns the groups the editor was hydrated from.
func (e *Editor) Original() []Group { return e.original }

// Rows returns a copy of the working rows.
func (e *Editor) Rows() []Row {
	out := make([]Row, len(e.rows))
	for i, r := range e.rows {
		out[i] = r.clone()
	}
	return out
}

func (e *Editor) Dirty() bool { return e.dirty }

// Add appends a new row.
func (e *Editor) Add(in RowInput) error {
	exercise := strings.TrimSpace(in.Exercise)
	if exercise == "" {
		return errors.New("exercise is required")
	}
	reps, err := strconv.Atoi(strings.TrimSpace(in.Reps))
	if err != nil {
		return fmt.Errorf("reps must be a number, got %q", in.Reps)
	}
	count := 1
	if n, ok := parseInt(in.Count); ok {
		count = max(1, n)
	}
	e.rows = append(e.rows, Row{
		Exercise: exercise,
		Reps:     max(0, reps),
		Weight:   parseWeight(in.Weight),
		Count:    count,
		IDs:      []int{},
		IsNew:    true,
	})
	e.dirty = true
	return nil
}

// Update applies a raw-text patch. Blank or invalid reps become 0, blank or
// invalid weight becomes absent, blank, invalid or negative count becomes 0.
func (e *Editor) Update(i int, p RowPatch) error {
	if i < 0 || i >= len(e.rows) {
		return fmt.Errorf("%w: %d", ErrRowIndex, i)
	}
	r := &e.rows[i]
	if p.Exercise != nil {
		r.Exercise = *p.Exercise
	}
	if p.Reps != nil {
		n, _ := parseInt(*p.Reps)
		r.Reps = max(0, n)
	}
	if p.Weight != nil {
		r.Weight = parseWeight(*p.Weight)
	}
	if p.Count != nil {
		n, _ := parseInt(*p.Count)
		r.Count = max(0, n)
	}
	e.dirty = true
	return nil
}

// Remove marks a hydrated row for deletion (count 0) and drops a new row.
func (e *Editor) Remove(i int) error {
	if i < 0 || i >= len(e.rows) {
		return fmt.Errorf("%w: %d", ErrRowIndex, i)
	}
	if len(e.rows[i].IDs) > 0 {
		e.rows[i].Count = 0
	} else {
		e.rows = slices.Delete(e.rows, i, i+1)
	}
	e.dirty = true
	return nil
}

// Duplicate appends a copy of row i as a new row.
func (e *Editor) Duplicate(i int) error {
	if i < 0 || i >= len(e.rows) {
		return fmt.Errorf("%w: %d", ErrRowIndex, i)
	}
	cp := e.rows[i].clone()
	cp.OrigKey = ""
	cp.IDs = []int{}
	cp.IsNew = true
	e.rows = append(e.rows, cp)
	e.dirty = true
	return nil
}

// parseInt accepts integers and truncates decimals ("8.0" is 8).
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func parseWeight(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return &f
}
