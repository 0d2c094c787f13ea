// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreview/pkg/types"
)

// tick returns a clock that advances one second per call.
func tick() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(context.Background(), nil, WithClock(tick()))
	require.NoError(t, err)
	return m
}

func newSQLiteManager(t *testing.T, dir string) *Manager {
	t.Helper()
	store, err := OpenSQLite(types.CollectionConfig{DataDir: dir})
	require.NoError(t, err)
	m, err := Open(context.Background(), store, WithClock(tick()))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func record(title, doi string) *types.PaperRecord {
	return &types.PaperRecord{
		Title:   title,
		Authors: []string{"Smith, Jane"},
		Year:    "2021",
		DOI:     doi,
		URL:     types.DOIURL(doi),
	}
}

func completed(t *testing.T, m *Manager, file string, rec *types.PaperRecord) string {
	t.Helper()
	ctx := context.Background()
	id, err := m.Accept(ctx, file)
	require.NoError(t, err)
	require.NoError(t, m.CompleteAnalysis(ctx, id, rec))
	return id
}

func TestAccept(t *testing.T) {
	m := newManager(t)
	id, err := m.Accept(context.Background(), "paperA.pdf")
	require.NoError(t, err)

	p, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAnalyzing, p.Status)
	assert.Equal(t, "paperA.pdf", p.FileName)
	assert.Nil(t, p.Record)
	assert.False(t, p.UploadedAt.IsZero())
}

func TestCompleteAnalysis(t *testing.T) {
	m := newManager(t)
	id := completed(t, m, "a.pdf", record("A", "10.1/a"))

	p, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusComplete, p.Status)
	require.NotNil(t, p.Record)
	assert.Equal(t, id, p.Record.ID, "record takes the paper id")
	assert.False(t, p.IsDuplicate)
}

func TestTransitionsAreTerminal(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	id := completed(t, m, "a.pdf", record("A", ""))

	err := m.CompleteAnalysis(ctx, id, record("A2", ""))
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	err = m.FailAnalysis(ctx, id, "late failure")
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	err = m.CompleteAnalysis(ctx, "missing", record("X", ""))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFailAnalysis(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	id, err := m.Accept(ctx, "bad.pdf")
	require.NoError(t, err)
	require.NoError(t, m.FailAnalysis(ctx, id, "could not parse extraction response"))

	p, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, p.Status)
	assert.Equal(t, "could not parse extraction response", p.Error)
	assert.Nil(t, p.Record)
}

func TestDuplicateDOIScenario(t *testing.T) {
	m := newManager(t)
	a := completed(t, m, "paperA.pdf", record("Paper A", "10.1/x"))
	b := completed(t, m, "paperB.pdf", record("Paper B", "10.1/X"))

	pa, _ := m.Get(a)
	pb, _ := m.Get(b)
	assert.False(t, pa.IsDuplicate, "earlier record is never re-flagged")
	assert.True(t, pb.IsDuplicate, "later record with same normalized DOI is flagged")
}

func TestDuplicateDOINormalization(t *testing.T) {
	m := newManager(t)
	completed(t, m, "a.pdf", record("A", "https://doi.org/10.1145/ABC"))
	c := completed(t, m, "c.pdf", record("C", "  10.1145/abc "))
	d := completed(t, m, "d.pdf", record("D", "10.1145/abd"))

	pc, _ := m.Get(c)
	pd, _ := m.Get(d)
	assert.True(t, pc.IsDuplicate)
	assert.False(t, pd.IsDuplicate)
}

func TestEmptyDOINeverDuplicate(t *testing.T) {
	m := newManager(t)
	completed(t, m, "a.pdf", record("A", ""))
	b := completed(t, m, "b.pdf", record("B", ""))
	pb, _ := m.Get(b)
	assert.False(t, pb.IsDuplicate)
}

func TestDuplicateIgnoresNonCompleteRecords(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	pending, err := m.Accept(ctx, "a.pdf")
	require.NoError(t, err)
	b := completed(t, m, "b.pdf", record("B", "10.1/x"))
	require.NoError(t, m.CompleteAnalysis(ctx, pending, record("A", "10.1/x")))

	pb, _ := m.Get(b)
	pa, _ := m.Get(pending)
	assert.False(t, pb.IsDuplicate)
	assert.True(t, pa.IsDuplicate, "completion order decides, not upload order")
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	id, err := m.Accept(ctx, "a.pdf")
	require.NoError(t, err)
	require.NoError(t, m.Remove(ctx, id))

	_, err = m.Get(id)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(m.Remove(ctx, id), ErrNotFound))
	assert.Empty(t, m.Snapshot())
}

func TestEditClearsDuplicateFlag(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	completed(t, m, "a.pdf", record("A", "10.1/x"))
	b := completed(t, m, "b.pdf", record("B", "10.1/x"))

	err := m.Edit(ctx, b, record("B", "10.1/y"), nil)
	require.NoError(t, err)

	pb, _ := m.Get(b)
	assert.False(t, pb.IsDuplicate)
	assert.Equal(t, "10.1/y", pb.Record.DOI)
	assert.Equal(t, b, pb.Record.ID)
}

func TestEditConflictNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	a := completed(t, m, "a.pdf", record("A", "10.1/x"))
	b := completed(t, m, "b.pdf", record("B", "10.1/y"))

	err := m.Edit(ctx, b, record("B edited", "10.1/X"), nil)
	assert.True(t, errors.Is(err, ErrEditDeclined))

	var seen []types.AnalyzedPaper
	err = m.Edit(ctx, b, record("B edited", "10.1/X"), func(c []types.AnalyzedPaper) bool {
		seen = c
		return false
	})
	assert.True(t, errors.Is(err, ErrEditDeclined))
	require.Len(t, seen, 1)
	assert.Equal(t, a, seen[0].ID)

	pb, _ := m.Get(b)
	assert.Equal(t, "B", pb.Record.Title, "declined edit leaves record untouched")

	err = m.Edit(ctx, b, record("B edited", "10.1/X"), func([]types.AnalyzedPaper) bool { return true })
	require.NoError(t, err)
	pb, _ = m.Get(b)
	assert.Equal(t, "B edited", pb.Record.Title)
	assert.False(t, pb.IsDuplicate, "confirmed edit clears the flag")
}

func TestEditSameDOIAsItselfIsNotConflict(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	a := completed(t, m, "a.pdf", record("A", "10.1/x"))
	called := false
	err := m.Edit(ctx, a, record("A retitled", "10.1/x"), func([]types.AnalyzedPaper) bool {
		called = true
		return false
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestEditRequiresComplete(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	id, err := m.Accept(ctx, "a.pdf")
	require.NoError(t, err)
	err = m.Edit(ctx, id, record("A", ""), nil)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestImportMerge(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	existing := completed(t, m, "a.pdf", record("Original", "10.1/a"))

	batch := []types.AnalyzedPaper{
		{ID: existing, FileName: "a.pdf", Status: types.StatusComplete, Record: record("Overwritten?", "10.1/a")},
		{ID: "new-id", FileName: "n.pdf", Status: types.StatusComplete, Record: record("New", "10.1/n")},
	}
	sum, err := m.ImportBatch(ctx, batch, ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Added: 1, Skipped: 1}, sum)

	assert.Len(t, m.Snapshot(), 2)
	p, _ := m.Get(existing)
	assert.Equal(t, "Original", p.Record.Title, "pre-existing record untouched")
}

func TestImportReplace(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	completed(t, m, "a.pdf", record("A", ""))

	batch := []types.AnalyzedPaper{
		{ID: "x", FileName: "x.pdf", Status: types.StatusError, Error: "boom"},
	}
	sum, err := m.ImportBatch(ctx, batch, ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Added)

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "x", snap[0].ID)
}

func TestImportRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	completed(t, m, "a.pdf", record("A", ""))

	tests := []types.AnalyzedPaper{
		{ID: "", Status: types.StatusError},
		{ID: "p", Status: types.StatusPendingRelevance},
		{ID: "c", Status: types.StatusComplete},
		{ID: "e", Status: types.StatusError, Record: record("E", "")},
	}
	for _, p := range tests {
		_, err := m.ImportBatch(ctx, []types.AnalyzedPaper{p}, ImportReplace)
		assert.True(t, errors.Is(err, ErrInvalidRecord), "id %q", p.ID)
	}
	assert.Len(t, m.Snapshot(), 1, "rejected batch changes nothing")

	_, err := m.ImportBatch(ctx, nil, ImportMode("upsert"))
	assert.Error(t, err)
}

func snapshotJSON(t *testing.T, m *Manager) string {
	t.Helper()
	data, err := json.Marshal(m.Snapshot())
	require.NoError(t, err)
	return string(data)
}

func TestRoundTripReplace(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	completed(t, m, "a.pdf", record("A", "10.1/x"))
	completed(t, m, "b.pdf", record("B", "10.1/X"))
	failed, _ := m.Accept(ctx, "c.pdf")
	require.NoError(t, m.FailAnalysis(ctx, failed, "boom"))
	_, _ = m.Accept(ctx, "d.pdf")

	want := snapshotJSON(t, m)

	other := newManager(t)
	completed(t, other, "zzz.pdf", record("Z", ""))
	_, err := other.ImportBatch(ctx, m.Snapshot(), ImportReplace)
	require.NoError(t, err)
	assert.JSONEq(t, want, snapshotJSON(t, other))
}

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	completed(t, m, "a.pdf", record("A", "10.1/x"))
	completed(t, m, "b.pdf", record("B", "10.1/x"))

	var buf bytes.Buffer
	require.NoError(t, m.Backup(&buf))
	assert.True(t, bytes.HasPrefix(bytes.TrimSpace(buf.Bytes()), []byte("[")))

	restored := newManager(t)
	sum, err := restored.Restore(ctx, bytes.NewReader(buf.Bytes()), ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Added)
	assert.JSONEq(t, snapshotJSON(t, m), snapshotJSON(t, restored))
}

func TestBackupEmptyCollection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newManager(t).Backup(&buf))
	assert.JSONEq(t, "[]", buf.String())
}

func TestRestoreBadJSON(t *testing.T) {
	_, err := newManager(t).Restore(context.Background(), bytes.NewReader([]byte("{not json")), ImportReplace)
	assert.Error(t, err)
}

func TestCheckFilename(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	id, _ := m.Accept(ctx, "paperA.pdf")
	require.NoError(t, m.FailAnalysis(ctx, id, "boom"))

	matches := m.CheckFilename("paperA.pdf")
	require.Len(t, matches, 1)
	assert.Equal(t, id, matches[0].ID)
	assert.Empty(t, m.CheckFilename("paperB.pdf"))
}

func TestSnapshotIsolation(t *testing.T) {
	m := newManager(t)
	id := completed(t, m, "a.pdf", record("A", ""))
	snap := m.Snapshot()
	snap[0].Record.Title = "mutated"
	snap[0].Record.Authors[0] = "mutated"

	p, _ := m.Get(id)
	assert.Equal(t, "A", p.Record.Title)
	assert.Equal(t, "Smith, Jane", p.Record.Authors[0])
}

func TestSearchAndStats(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	completed(t, m, "a.pdf", record("Robot arm gestures", "10.1/x"))
	completed(t, m, "b.pdf", record("Drone motion legibility", "10.1/x"))
	id, _ := m.Accept(ctx, "c.pdf")
	require.NoError(t, m.FailAnalysis(ctx, id, "boom"))
	_, _ = m.Accept(ctx, "d.pdf")

	hits := m.Search("ROBOT gestures")
	require.Len(t, hits, 1)
	assert.Equal(t, "Robot arm gestures", hits[0].Record.Title)
	assert.Len(t, m.Search("smith"), 2)
	assert.Empty(t, m.Search("submarine"))

	st := m.Stats()
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 2, st.Complete)
	assert.Equal(t, 1, st.Error)
	assert.Equal(t, 1, st.Analyzing)
	assert.Equal(t, 1, st.Duplicates)
	assert.Equal(t, map[string]int{"2021": 2}, st.Years)
	assert.Len(t, m.Records(), 2)
}

func TestResolvePrefix(t *testing.T) {
	m := newManager(t)
	_, err := m.ImportBatch(context.Background(), []types.AnalyzedPaper{
		{ID: "abc-1", Status: types.StatusError, Error: "x"},
		{ID: "abd-2", Status: types.StatusError, Error: "y"},
	}, ImportReplace)
	require.NoError(t, err)

	p, err := m.Resolve("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc-1", p.ID)

	_, err = m.Resolve("ab")
	assert.Error(t, err)
	_, err = m.Resolve("zz")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConcurrentCompletions(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	const n = 20
	ids := make([]string, n)
	for i := range ids {
		id, err := m.Accept(ctx, "p.pdf")
		require.NoError(t, err)
		ids[i] = id
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, m.CompleteAnalysis(ctx, id, record("Same", "10.1/same")))
		}(id)
	}
	wg.Wait()

	st := m.Stats()
	assert.Equal(t, n, st.Complete)
	assert.Equal(t, n-1, st.Duplicates, "exactly one record, the first committed, stays unflagged")
}

func TestSQLitePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenSQLite(types.CollectionConfig{DataDir: dir})
	require.NoError(t, err)
	m, err := Open(ctx, store, WithClock(tick()))
	require.NoError(t, err)

	a := completed(t, m, "a.pdf", record("A", "10.1/x"))
	b := completed(t, m, "b.pdf", record("B", "10.1/X"))
	c, _ := m.Accept(ctx, "c.pdf")
	require.NoError(t, m.FailAnalysis(ctx, c, "boom"))
	d, _ := m.Accept(ctx, "d.pdf")
	require.NoError(t, m.Remove(ctx, d))
	want := snapshotJSON(t, m)
	require.NoError(t, m.Close())

	assert.FileExists(t, filepath.Join(dir, DBFile))

	reopened := newSQLiteManager(t, dir)
	assert.JSONEq(t, want, snapshotJSON(t, reopened))

	pb, err := reopened.Get(b)
	require.NoError(t, err)
	assert.True(t, pb.IsDuplicate)
	pa, _ := reopened.Get(a)
	assert.False(t, pa.IsDuplicate)
}

func TestFailInterruptedAfterReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m := newSQLiteManager(t, dir)
	done := completed(t, m, "done.pdf", record("Done", "10.1/done"))
	left, err := m.Accept(ctx, "left.pdf")
	require.NoError(t, err)
	require.NoError(t, m.Close())

	reopened := newSQLiteManager(t, dir)
	p, err := reopened.Get(left)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAnalyzing, p.Status, "loading alone does not change state")

	n, err := reopened.FailInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, _ = reopened.Get(left)
	assert.Equal(t, types.StatusError, p.Status)
	assert.Equal(t, InterruptedMessage, p.Error)
	assert.Nil(t, p.Record)
	pd, _ := reopened.Get(done)
	assert.Equal(t, types.StatusComplete, pd.Status)

	n, err = reopened.FailInterrupted(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, reopened.Close())

	again := newSQLiteManager(t, dir)
	p, _ = again.Get(left)
	assert.Equal(t, types.StatusError, p.Status, "the failure is persisted")
}

func TestSQLiteReplacePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m := newSQLiteManager(t, dir)
	completed(t, m, "a.pdf", record("A", ""))
	_, err := m.ImportBatch(ctx, []types.AnalyzedPaper{
		{ID: "r1", FileName: "r.pdf", UploadedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Status: types.StatusComplete, Record: record("R", "10.1/r")},
	}, ImportReplace)
	require.NoError(t, err)
	want := snapshotJSON(t, m)

	reopened := newSQLiteManager(t, dir)
	assert.JSONEq(t, want, snapshotJSON(t, reopened))
}
