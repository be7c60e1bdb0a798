package tracker

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/futurecoach/internal/models"
)

func benchSets() []models.Set {
	return []models.Set{
		{ID: 1, WorkoutID: 7, Exercise: "Bench", Reps: 10, Weight: weight(135)},
		{ID: 2, WorkoutID: 7, Exercise: "Bench", Reps: 10, Weight: weight(135)},
		{ID: 3, WorkoutID: 7, Exercise: "Bench", Reps: 10, Weight: weight(135)},
	}
}

func strp(s string) *string { return &s }

func TestGroupKey(t *testing.T) {
	assert.Equal(t, "Bench|10|135", GroupKey("Bench", 10, weight(135)))
	assert.Equal(t, "Bench|10|132.5", GroupKey("Bench", 10, weight(132.5)))
	assert.Equal(t, "Pull-up|8|", GroupKey("Pull-up", 8, nil))
	assert.Equal(t, "Bench|10|0", GroupKey("Bench", 10, weight(0)))
}

func TestGroupSetsOrder(t *testing.T) {
	sets := []models.Set{
		{ID: 5, Exercise: "Squat", Reps: 5, Weight: weight(225)},
		{ID: 1, Exercise: "Bench", Reps: 10, Weight: weight(135)},
		{ID: 9, Exercise: "Squat", Reps: 5, Weight: weight(225)},
		{ID: 2, Exercise: "Bench", Reps: 10},
	}
	groups := GroupSets(sets)
	require.Len(t, groups, 3)
	assert.Equal(t, "Squat|5|225", groups[0].Key)
	assert.Equal(t, []int{5, 9}, groups[0].IDs)
	assert.Equal(t, "Bench|10|135", groups[1].Key)
	assert.Equal(t, "Bench|10|", groups[2].Key)
	assert.Equal(t, 2, groups[0].Count())
}

// TestGroupingIdempotent checks that regrouping the sets listed in group order
// yields the same groups.
func TestGroupingIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	exercises := []string{"Bench", "Squat", "Row"}
	for trial := 0; trial < 50; trial++ {
		var sets []models.Set
		for i := 1; i <= 20; i++ {
			var w *float64
			if rng.Intn(3) > 0 {
				w = weight(float64(rng.Intn(3) * 45))
			}
			sets = append(sets, models.Set{ID: i, Exercise: exercises[rng.Intn(3)], Reps: 5 + rng.Intn(2), Weight: w})
		}
		first := GroupSets(sets)

		byID := make(map[int]models.Set)
		for _, s := range sets {
			byID[s.ID] = s
		}
		var flattened []models.Set
		for _, g := range first {
			for _, id := range g.IDs {
				flattened = append(flattened, byID[id])
			}
		}
		assert.Equal(t, first, GroupSets(flattened))

		// Shuffling changes group order but not membership counts.
		shuffled := append([]models.Set(nil), sets...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		counts := func(gs []Group) map[string]int {
			m := map[string]int{}
			for _, g := range gs {
				m[g.Key] = len(g.IDs)
			}
			return m
		}
		assert.Equal(t, counts(first), counts(GroupSets(shuffled)))
	}
}

func TestPlanNoEditsIsEmpty(t *testing.T) {
	groups := GroupSets(benchSets())
	assert.Empty(t, Plan(groups, Hydrate(groups), 7))
}

func TestPlanNewRowSingleBulkCreate(t *testing.T) {
	groups := GroupSets(benchSets())
	e := NewEditor(groups)
	require.NoError(t, e.Add(RowInput{Exercise: "Squat", Reps: "5", Weight: "225", Count: "3"}))
	ops := Plan(groups, e.Rows(), 7)
	require.Len(t, ops, 1)
	assert.Equal(t, OpCreateBulk, ops[0].Kind)
	assert.Equal(t, 3, ops[0].Count)
	assert.Equal(t, 7, ops[0].WorkoutID)
	assert.Equal(t, 225.0, *ops[0].Fields.Weight)
}

func TestPlanShrinkDeletesFirstIDs(t *testing.T) {
	groups := GroupSets(benchSets())
	e := NewEditor(groups)
	require.NoError(t, e.Update(0, RowPatch{Count: strp("1")}))
	ops := Plan(groups, e.Rows(), 7)
	require.Len(t, ops, 2)
	assert.Equal(t, Op{Kind: OpDelete, SetID: 1}, ops[0])
	assert.Equal(t, Op{Kind: OpDelete, SetID: 2}, ops[1])
}

func TestPlanRemoveDeletesAllMembers(t *testing.T) {
	groups := GroupSets(benchSets())
	e := NewEditor(groups)
	require.NoError(t, e.Remove(0))
	rows := e.Rows()
	require.Len(t, rows, 1, "hydrated row stays with count 0")
	assert.Equal(t, 0, rows[0].Count)

	ops := Plan(groups, rows, 7)
	require.Len(t, ops, 3)
	for i, op := range ops {
		assert.Equal(t, OpDelete, op.Kind)
		assert.Equal(t, i+1, op.SetID)
	}
}

func TestPlanUnreferencedGroupDeleted(t *testing.T) {
	groups := GroupSets(benchSets())
	ops := Plan(groups, nil, 7)
	assert.Len(t, ops, 3)
}

func TestPlanChangedFieldsUpdateEveryMember(t *testing.T) {
	groups := GroupSets(benchSets())
	e := NewEditor(groups)
	require.NoError(t, e.Update(0, RowPatch{Weight: strp("")}))
	ops := Plan(groups, e.Rows(), 7)
	require.Len(t, ops, 3)
	for _, op := range ops {
		assert.Equal(t, OpUpdate, op.Kind)
		assert.Nil(t, op.Fields.Weight)
	}
}

func TestPlanBlankExerciseBecomesDefault(t *testing.T) {
	groups := GroupSets(benchSets())
	e := NewEditor(groups)
	require.NoError(t, e.Update(0, RowPatch{Exercise: strp("   ")}))
	ops := Plan(groups, e.Rows(), 7)
	require.Len(t, ops, 3)
	assert.Equal(t, "Exercise", ops[0].Fields.Exercise)
}

func TestEditorCoercion(t *testing.T) {
	e := NewEditor(GroupSets(benchSets()))
	require.NoError(t, e.Update(0, RowPatch{Reps: strp("abc"), Weight: strp("heavy"), Count: strp("-4")}))
	r := e.Rows()[0]
	assert.Equal(t, 0, r.Reps)
	assert.Nil(t, r.Weight)
	assert.Equal(t, 0, r.Count)

	require.NoError(t, e.Update(0, RowPatch{Reps: strp(" 8 "), Weight: strp("132.5"), Count: strp("")}))
	r = e.Rows()[0]
	assert.Equal(t, 8, r.Reps)
	assert.Equal(t, 132.5, *r.Weight)
	assert.Equal(t, 0, r.Count)

	assert.ErrorIs(t, e.Update(5, RowPatch{}), ErrRowIndex)
}

func TestEditorAdd(t *testing.T) {
	e := NewEditor(nil)
	assert.Error(t, e.Add(RowInput{Exercise: "", Reps: "5"}))
	assert.Error(t, e.Add(RowInput{Exercise: "Squat", Reps: "five"}))
	assert.False(t, e.Dirty())

	require.NoError(t, e.Add(RowInput{Exercise: " Squat ", Reps: "5", Count: "0"}))
	r := e.Rows()[0]
	assert.Equal(t, "Squat", r.Exercise)
	assert.Equal(t, 1, r.Count, "count is at least 1")
	assert.True(t, r.IsNew)
	assert.Nil(t, r.Weight)
	assert.True(t, e.Dirty())
}

func TestEditorRemoveNewRowDrops(t *testing.T) {
	e := NewEditor(GroupSets(benchSets()))
	require.NoError(t, e.Add(RowInput{Exercise: "Dip", Reps: "10"}))
	require.Len(t, e.Rows(), 2)
	require.NoError(t, e.Remove(1))
	assert.Len(t, e.Rows(), 1)
}

func TestEditorDuplicate(t *testing.T) {
	groups := GroupSets(benchSets())
	e := NewEditor(groups)
	require.NoError(t, e.Duplicate(0))
	rows := e.Rows()
	require.Len(t, rows, 2)
	assert.Empty(t, rows[1].OrigKey)
	assert.Empty(t, rows[1].IDs)
	assert.True(t, rows[1].IsNew)
	assert.Equal(t, 3, rows[1].Count)

	ops := Plan(groups, rows, 7)
	require.Len(t, ops, 1)
	assert.Equal(t, OpCreateBulk, ops[0].Kind)
	assert.Equal(t, 3, ops[0].Count)
}

func TestEditorRowsAreCopies(t *testing.T) {
	groups := GroupSets(benchSets())
	e := NewEditor(groups)
	rows := e.Rows()
	rows[0].IDs[0] = 999
	*rows[0].Weight = 1
	assert.Equal(t, 1, e.Rows()[0].IDs[0])
	assert.Equal(t, 135.0, *e.Rows()[0].Weight)
	assert.Equal(t, 1, groups[0].IDs[0])
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	fb.failAt = 2
	ops := []Op{
		{Kind: OpDelete, SetID: 1},
		{Kind: OpDelete, SetID: 2},
		{Kind: OpDelete, SetID: 3},
	}
	n, err := Apply(context.Background(), fb, ops)
	assert.Equal(t, 1, n)
	var ae *ApplyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 1, ae.Applied)
	assert.Equal(t, 3, ae.Total)
	assert.Equal(t, []string{"delete 1", "delete 2"}, fb.writeCalls())
}

// Bench 3x10@135 edited to 5 sets issues one bulk create of 2.
func TestSessionSaveGrowBench(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)

	_, err = s.UpdateRow(0, RowPatch{Count: strp("5")})
	require.NoError(t, err)
	assert.True(t, s.Dirty())

	v, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bulk Bench x2"}, fb.writeCalls())
	assert.False(t, v.Dirty)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, 5, v.Rows[0].Count)
	assert.Len(t, v.Rows[0].IDs, 5)
}

// Bench 3x10@135 plus Squat 2x5@225; removing Squat and editing Bench reps to 8
// updates the three Bench sets and deletes both Squat sets.
func TestSessionSaveBenchSquat(t *testing.T) {
	sets := append(benchSets(),
		models.Set{ID: 4, Exercise: "Squat", Reps: 5, Weight: weight(225)},
		models.Set{ID: 5, Exercise: "Squat", Reps: 5, Weight: weight(225)},
	)
	fb := newFakeBackend(7, sets...)
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)

	_, err = s.UpdateRow(0, RowPatch{Reps: strp("8")})
	require.NoError(t, err)
	_, err = s.RemoveRow(1)
	require.NoError(t, err)

	v, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"update 1", "update 2", "update 3", "delete 4", "delete 5"}, fb.writeCalls())
	require.Len(t, v.Rows, 1)
	assert.Equal(t, "Bench|8|135", v.Rows[0].OrigKey)
}

func TestSessionOpenFallsBackToSetList(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	fb.detailNo = true
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)
	assert.Contains(t, fb.calls, "list")
	assert.Len(t, s.View().Rows, 1)
}

func TestSessionSaveFailureKeepsRows(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	j := &fakeJournal{}
	s, err := Open(context.Background(), fb, 7, WithJournal(j))
	require.NoError(t, err)
	_, err = s.UpdateRow(0, RowPatch{Count: strp("1")})
	require.NoError(t, err)

	fb.failAt = 2
	v, err := s.Save(context.Background())
	var ae *ApplyError
	require.ErrorAs(t, err, &ae)
	assert.True(t, v.Dirty)
	assert.Equal(t, 1, v.Rows[0].Count)
	require.Len(t, j.entries, 1)
	assert.Equal(t, SyncEntry{WorkoutID: 7, Action: "save", Planned: 2, Applied: 1, Err: j.entries[0].Err}, j.entries[0])
	assert.NotEmpty(t, j.entries[0].Err)
}

// Complete performs the reconciliation first and only then flips the status.
func TestSessionCompleteOrdering(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)
	_, err = s.AddRow(RowInput{Exercise: "Dip", Reps: "12", Count: "2"})
	require.NoError(t, err)

	v, err := s.Complete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, v.Workout.Status)

	last := fb.calls[len(fb.calls)-1]
	assert.Equal(t, "patch workout", last)
	assert.Contains(t, fb.calls, "bulk Dip x2")
}

func TestSessionCompleteSkipsStatusOnSaveFailure(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)
	_, err = s.RemoveRow(0)
	require.NoError(t, err)

	fb.failAt = 1
	_, err = s.Complete(context.Background())
	require.Error(t, err)
	assert.NotContains(t, fb.calls, "patch workout")
	assert.Equal(t, models.StatusPlanned, fb.workout.Status)
}

func TestSessionCompleteStatusFailure(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	fb.patchErr = errors.New("patch rejected")
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)
	v, err := s.Complete(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.StatusPlanned, v.Workout.Status)
}

func TestSessionBusyGuard(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)
	_, err = s.RemoveRow(0)
	require.NoError(t, err)

	fb.block = make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	var saveErr error
	go func() {
		defer wg.Done()
		_, saveErr = s.Save(context.Background())
	}()

	require.Eventually(t, func() bool { return s.busy.Load() }, time.Second, time.Millisecond)
	_, err = s.Save(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.Complete(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.AddRow(RowInput{Exercise: "Dip", Reps: "5"})
	assert.ErrorIs(t, err, ErrBusy)

	close(fb.block)
	wg.Wait()
	require.NoError(t, saveErr)
	assert.Empty(t, s.View().Rows)
}

// A save whose ops all landed but whose reload failed leaves the session
// stale: it stays dirty, refuses further edits, and the next save resyncs
// without replaying anything.
func TestSessionStaleAfterReloadFailure(t *testing.T) {
	fb := newFakeBackend(7, models.Set{ID: 1, Exercise: "Squat", Reps: 5, Weight: weight(225)})
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)
	_, err = s.UpdateRow(0, RowPatch{Count: strp("2")})
	require.NoError(t, err)

	fb.detailFails = 1
	v, err := s.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reload after save")
	assert.Equal(t, []string{"bulk Squat x1"}, fb.writeCalls())
	assert.True(t, v.Dirty)
	assert.True(t, v.Stale)
	assert.True(t, s.Stale())

	_, err = s.UpdateRow(0, RowPatch{Count: strp("5")})
	assert.ErrorIs(t, err, ErrStale)
	_, err = s.AddRow(RowInput{Exercise: "Lunge", Reps: "10"})
	assert.ErrorIs(t, err, ErrStale)

	v, err = s.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, v.Dirty)
	assert.False(t, v.Stale)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, 2, v.Rows[0].Count)
	assert.Equal(t, []string{"bulk Squat x1"}, fb.writeCalls())

	_, err = s.UpdateRow(0, RowPatch{Count: strp("5")})
	require.NoError(t, err)
	v, err = s.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, v.Dirty)
	assert.Equal(t, 5, v.Rows[0].Count)
	assert.Equal(t, []string{"bulk Squat x1", "bulk Squat x3"}, fb.writeCalls())
}

func TestSessionReloadClearsStale(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)
	_, err = s.RemoveRow(0)
	require.NoError(t, err)

	fb.detailFails = 1
	_, err = s.Save(context.Background())
	require.Error(t, err)
	require.True(t, s.Stale())

	v, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, v.Stale)
	assert.Empty(t, v.Rows)
	_, err = s.AddRow(RowInput{Exercise: "Dip", Reps: "8"})
	assert.NoError(t, err)
}

// An edit that holds the session before a save starts is part of that save.
func TestSessionEditBeforeSaveIsPlanned(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)

	s.mu.Lock()
	done := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background())
		done <- err
	}()
	assert.Never(t, func() bool { return s.busy.Load() }, 50*time.Millisecond, time.Millisecond)
	require.NoError(t, s.editor.Update(0, RowPatch{Count: strp("4")}))
	s.mu.Unlock()

	require.NoError(t, <-done)
	assert.Equal(t, []string{"bulk Bench x1"}, fb.writeCalls())
	v := s.View()
	assert.False(t, v.Dirty)
	assert.Equal(t, 4, v.Rows[0].Count)
}

func TestSessionReloadDiscardsEdits(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)
	_, err = s.UpdateRow(0, RowPatch{Count: strp("9")})
	require.NoError(t, err)

	v, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, v.Dirty)
	assert.Equal(t, 3, v.Rows[0].Count)
	assert.Empty(t, fb.writeCalls())
}

func TestSessionApplyEdit(t *testing.T) {
	fb := newFakeBackend(7, benchSets()...)
	s, err := Open(context.Background(), fb, 7)
	require.NoError(t, err)

	v, err := s.ApplyEdit(Edit{Op: EditAdd, Exercise: strp("Dip"), Reps: strp("12")})
	require.NoError(t, err)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, 1, v.Rows[1].Count)

	v, err = s.ApplyEdit(Edit{Op: EditUpdate, Index: 1, Count: strp("3")})
	require.NoError(t, err)
	assert.Equal(t, 3, v.Rows[1].Count)

	v, err = s.ApplyEdit(Edit{Op: EditDuplicate, Index: 0})
	require.NoError(t, err)
	assert.True(t, v.Rows[2].IsNew)

	_, err = s.ApplyEdit(Edit{Op: EditRemove, Index: 5})
	assert.ErrorIs(t, err, ErrRowIndex)

	_, err = s.ApplyEdit(Edit{Op: "swap"})
	assert.Error(t, err)
}
