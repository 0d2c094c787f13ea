// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collection owns the set of analyzed papers: identity, lifecycle
// transitions, duplicate flags, import and backup.
//
// Every write goes through Manager.mutate, which applies the change to a
// copy of the state, persists it, and only then publishes the copy.
// Readers always see a consistent snapshot.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/litreview/pkg/types"
)

var (
	// ErrNotFound means no record has the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition means the record's status does not allow the operation.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrEditDeclined means an edit collided with another record's DOI and
	// the caller did not confirm it.
	ErrEditDeclined = errors.New("edit declined")

	// ErrInvalidRecord means an imported record is malformed.
	ErrInvalidRecord = errors.New("invalid record")
)

// ConfirmFunc decides whether an edit may proceed despite DOI conflicts
// with the listed records.
type ConfirmFunc func(conflicts []types.AnalyzedPaper) bool

// state is an immutable-once-published view of the collection.
type state struct {
	papers map[string]types.AnalyzedPaper
	order  []string
}

func (s *state) clone() *state {
	c := &state{
		papers: make(map[string]types.AnalyzedPaper, len(s.papers)),
		order:  append([]string(nil), s.order...),
	}
	for id, p := range s.papers {
		c.papers[id] = p
	}
	return c
}

func (s *state) put(p types.AnalyzedPaper) {
	if _, ok := s.papers[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.papers[p.ID] = p
}

func (s *state) remove(id string) {
	delete(s.papers, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// change lists what a mutation touched so it can be persisted.
type change struct {
	put     []types.AnalyzedPaper
	del     []string
	replace bool
}

// Manager is safe for concurrent use.
type Manager struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	state *state
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock replaces time.Now for upload timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Open loads the collection from store. A nil store keeps the collection
// in memory only.
func Open(ctx context.Context, store Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
		state:  &state{papers: map[string]types.AnalyzedPaper{}},
	}
	for _, o := range opts {
		o(m)
	}
	if store == nil {
		return m, nil
	}

	papers, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading collection: %w", err)
	}
	for _, p := range papers {
		m.state.put(p)
	}
	return m, nil
}

// InterruptedMessage is the error recorded by FailInterrupted.
const InterruptedMessage = "analysis interrupted"

// FailInterrupted moves every analyzing record to error with
// InterruptedMessage and returns how many were moved. Analysis runs inside
// the process that accepted the paper, so a record loaded in analyzing
// state belongs to a process that exited before finishing it. Call this
// only from the process that is about to run the pipeline.
func (m *Manager) FailInterrupted(ctx context.Context) (int, error) {
	var n int
	err := m.mutate(ctx, func(s *state) (change, error) {
		var ch change
		for _, id := range s.order {
			p := s.papers[id]
			if p.Status != types.StatusAnalyzing {
				continue
			}
			p.Status = types.StatusError
			p.Error = InterruptedMessage
			s.put(p)
			ch.put = append(ch.put, p)
		}
		n = len(ch.put)
		return ch, nil
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Warn("collection: interrupted analyses marked as failed", zap.Int("count", n))
	}
	return n, nil
}

// Close releases the store.
func (m *Manager) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

// mutate is the single write path.
func (m *Manager) mutate(ctx context.Context, fn func(s *state) (change, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.clone()
	ch, err := fn(next)
	if err != nil {
		return err
	}
	if err := m.persist(ctx, next, ch); err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *Manager) persist(ctx context.Context, s *state, ch change) error {
	if m.store == nil {
		return nil
	}
	if ch.replace {
		papers := make([]types.AnalyzedPaper, 0, len(s.order))
		for _, id := range s.order {
			papers = append(papers, s.papers[id])
		}
		if err := m.store.Replace(ctx, papers); err != nil {
			return fmt.Errorf("persisting collection: %w", err)
		}
		return nil
	}
	for _, p := range ch.put {
		if err := m.store.Put(ctx, p); err != nil {
			return fmt.Errorf("persisting record %s: %w", p.ID, err)
		}
	}
	for _, id := range ch.del {
		if err := m.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting record %s: %w", id, err)
		}
	}
	return nil
}

func (m *Manager) current() *state {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Accept creates a record in analyzing state for fileName and returns its id.
func (m *Manager) Accept(ctx context.Context, fileName string) (string, error) {
	p := types.AnalyzedPaper{
		ID:         uuid.NewString(),
		FileName:   fileName,
		UploadedAt: m.now().UTC().Round(0),
		Status:     types.StatusAnalyzing,
	}
	err := m.mutate(ctx, func(s *state) (change, error) {
		s.put(p)
		return change{put: []types.AnalyzedPaper{p}}, nil
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("collection: accepted", zap.String("id", p.ID), zap.String("file", fileName))
	return p.ID, nil
}

// CompleteAnalysis attaches rec to an analyzing record and marks it
// complete. If another complete record already carries the same
// normalized DOI the new record is flagged as a duplicate; existing
// records are never touched.
func (m *Manager) CompleteAnalysis(ctx context.Context, id string, rec *types.PaperRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record for %s", ErrInvalidRecord, id)
	}
	var dup bool
	err := m.mutate(ctx, func(s *state) (change, error) {
		p, err := analyzing(s, id)
		if err != nil {
			return change{}, err
		}
		r := rec.Clone()
		r.ID = id
		p.Status = types.StatusComplete
		p.Record = r
		p.Error = ""
		p.IsDuplicate = len(doiConflicts(s, id, r.DOI)) > 0
		dup = p.IsDuplicate
		s.put(p)
		return change{put: []types.AnalyzedPaper{p}}, nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("collection: complete", zap.String("id", id), zap.String("doi", rec.DOI), zap.Bool("duplicate", dup))
	return nil
}

// FailAnalysis marks an analyzing record as failed with message.
func (m *Manager) FailAnalysis(ctx context.Context, id, message string) error {
	err := m.mutate(ctx, func(s *state) (change, error) {
		p, err := analyzing(s, id)
		if err != nil {
			return change{}, err
		}
		p.Status = types.StatusError
		p.Error = message
		p.Record = nil
		p.IsDuplicate = false
		s.put(p)
		return change{put: []types.AnalyzedPaper{p}}, nil
	})
	if err != nil {
		return err
	}
	m.logger.Warn("collection: analysis failed", zap.String("id", id), zap.String("error", message))
	return nil
}

func analyzing(s *state, id string) (types.AnalyzedPaper, error) {
	p, ok := s.papers[id]
	if !ok {
		return p, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if p.Status != types.StatusAnalyzing {
		return p, fmt.Errorf("%w: %s is %s, not %s", ErrInvalidTransition, id, p.Status, types.StatusAnalyzing)
	}
	return p, nil
}

// doiConflicts returns the complete records other than id whose DOI
// matches doi after normalization. An empty DOI matches nothing.
func doiConflicts(s *state, id, doi string) []types.AnalyzedPaper {
	key := types.NormalizeDOI(doi)
	if key == "" {
		return nil
	}
	var out []types.AnalyzedPaper
	for _, oid := range s.order {
		if oid == id {
			continue
		}
		p := s.papers[oid]
		if p.Status == types.StatusComplete && p.Record != nil && types.NormalizeDOI(p.Record.DOI) == key {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Remove deletes a record in any state.
func (m *Manager) Remove(ctx context.Context, id string) error {
	err := m.mutate(ctx, func(s *state) (change, error) {
		if _, ok := s.papers[id]; !ok {
			return change{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		s.remove(id)
		return change{del: []string{id}}, nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("collection: removed", zap.String("id", id))
	return nil
}

// DOIConflicts lists the other complete records that share rec's DOI.
func (m *Manager) DOIConflicts(id string, rec *types.PaperRecord) []types.AnalyzedPaper {
	if rec == nil {
		return nil
	}
	return doiConflicts(m.current(), id, rec.DOI)
}

// Edit replaces the record of a complete paper. When rec's DOI collides
// with another record, confirm is asked first; a nil confirm or a false
// answer returns ErrEditDeclined. A successful edit always clears the
// duplicate flag. confirm runs without the collection lock held.
func (m *Manager) Edit(ctx context.Context, id string, rec *types.PaperRecord, confirm ConfirmFunc) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record for %s", ErrInvalidRecord, id)
	}
	p, err := m.Get(id)
	if err != nil {
		return err
	}
	if p.Status != types.StatusComplete {
		return fmt.Errorf("%w: %s is %s, only complete records can be edited", ErrInvalidTransition, id, p.Status)
	}
	if conflicts := m.DOIConflicts(id, rec); len(conflicts) > 0 {
		if confirm == nil || !confirm(conflicts) {
			return fmt.Errorf("%w: DOI %s already used by %d record(s)", ErrEditDeclined, rec.DOI, len(conflicts))
		}
	}

	err = m.mutate(ctx, func(s *state) (change, error) {
		p, ok := s.papers[id]
		if !ok {
			return change{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if p.Status != types.StatusComplete {
			return change{}, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, p.Status)
		}
		r := rec.Clone()
		r.ID = id
		p.Record = r
		p.IsDuplicate = false
		s.put(p)
		return change{put: []types.AnalyzedPaper{p}}, nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("collection: edited", zap.String("id", id))
	return nil
}

// ImportMode selects how ImportBatch treats the existing collection.
type ImportMode string

const (
	// ImportReplace discards the current collection.
	ImportReplace ImportMode = "replace"
	// ImportMerge keeps existing records and adds only unseen ids.
	ImportMerge ImportMode = "merge"
)

// ParseImportMode accepts "replace" or "merge" in any case.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case ImportReplace:
		return ImportReplace, nil
	case ImportMerge:
		return ImportMerge, nil
	}
	return "", fmt.Errorf("unknown import mode %q (want replace or merge)", s)
}

// ImportSummary counts the outcome of an import.
type ImportSummary struct {
	Added   int
	Skipped int
}

// ImportBatch loads papers into the collection. In merge mode a paper
// whose id already exists is skipped without error and the existing
// record is left untouched. Within one batch the first occurrence of an
// id wins. Malformed papers reject the whole batch before any change.
func (m *Manager) ImportBatch(ctx context.Context, papers []types.AnalyzedPaper, mode ImportMode) (ImportSummary, error) {
	if mode != ImportReplace && mode != ImportMerge {
		return ImportSummary{}, fmt.Errorf("unknown import mode %q", mode)
	}
	for i, p := range papers {
		if err := validate(p); err != nil {
			return ImportSummary{}, fmt.Errorf("%w: entry %d: %v", ErrInvalidRecord, i, err)
		}
	}

	var sum ImportSummary
	err := m.mutate(ctx, func(s *state) (change, error) {
		sum = ImportSummary{}
		if mode == ImportReplace {
			*s = state{papers: make(map[string]types.AnalyzedPaper, len(papers))}
		}
		var added []types.AnalyzedPaper
		for _, p := range papers {
			if _, exists := s.papers[p.ID]; exists {
				sum.Skipped++
				continue
			}
			p = p.Clone()
			if p.Record != nil {
				p.Record.ID = p.ID
			}
			s.put(p)
			added = append(added, p)
			sum.Added++
		}
		if mode == ImportReplace {
			return change{replace: true}, nil
		}
		return change{put: added}, nil
	})
	if err != nil {
		return ImportSummary{}, err
	}
	m.logger.Info("collection: imported", zap.String("mode", string(mode)),
		zap.Int("added", sum.Added), zap.Int("skipped", sum.Skipped))
	return sum, nil
}

func validate(p types.AnalyzedPaper) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("missing id")
	}
	switch p.Status {
	case types.StatusAnalyzing, types.StatusError:
		if p.Record != nil {
			return fmt.Errorf("%s: record present on %s entry", p.ID, p.Status)
		}
	case types.StatusComplete:
		if p.Record == nil {
			return fmt.Errorf("%s: complete entry has no record", p.ID)
		}
	default:
		return fmt.Errorf("%s: status %q cannot be stored", p.ID, p.Status)
	}
	return nil
}

// Snapshot returns deep copies of all records in upload order.
func (m *Manager) Snapshot() []types.AnalyzedPaper {
	s := m.current()
	out := make([]types.AnalyzedPaper, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.papers[id].Clone())
	}
	return out
}

// Records returns the PaperRecords of all complete papers in upload order.
func (m *Manager) Records() []types.PaperRecord {
	var out []types.PaperRecord
	for _, p := range m.Snapshot() {
		if p.Status == types.StatusComplete && p.Record != nil {
			out = append(out, *p.Record)
		}
	}
	return out
}

// Get returns a copy of one record.
func (m *Manager) Get(id string) (types.AnalyzedPaper, error) {
	p, ok := m.current().papers[id]
	if !ok {
		return types.AnalyzedPaper{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p.Clone(), nil
}

// Resolve finds a record by full id or by an unambiguous id prefix.
func (m *Manager) Resolve(idOrPrefix string) (types.AnalyzedPaper, error) {
	s := m.current()
	if p, ok := s.papers[idOrPrefix]; ok {
		return p.Clone(), nil
	}
	var found []string
	for _, id := range s.order {
		if idOrPrefix != "" && strings.HasPrefix(id, idOrPrefix) {
			found = append(found, id)
		}
	}
	switch len(found) {
	case 0:
		return types.AnalyzedPaper{}, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	case 1:
		return s.papers[found[0]].Clone(), nil
	}
	return types.AnalyzedPaper{}, fmt.Errorf("id prefix %q is ambiguous (%d matches)", idOrPrefix, len(found))
}

// CheckFilename returns every record, in any status, uploaded under
// fileName. A non-empty result is advisory: the caller decides whether to
// submit again.
func (m *Manager) CheckFilename(fileName string) []types.AnalyzedPaper {
	var out []types.AnalyzedPaper
	for _, p := range m.Snapshot() {
		if p.FileName == fileName {
			out = append(out, p)
		}
	}
	return out
}

// Search returns complete records whose bibliographic or finding text
// contains every whitespace-separated term of query, ignoring case.
func (m *Manager) Search(query string) []types.AnalyzedPaper {
	terms := strings.Fields(strings.ToLower(query))
	var out []types.AnalyzedPaper
	for _, p := range m.Snapshot() {
		if p.Record == nil {
			continue
		}
		hay := strings.ToLower(searchText(p.Record))
		match := true
		for _, t := range terms {
			if !strings.Contains(hay, t) {
				match = false
				break
			}
		}
		if match {
			out = append(out, p)
		}
	}
	return out
}

func searchText(r *types.PaperRecord) string {
	return strings.Join([]string{
		r.CitationKey, r.Title, strings.Join(r.Authors, " "), r.Journal, r.Year, r.DOI, r.Abstract,
		r.ProblemFraming.CoreProblem, r.DesignTaxonomy.InteractionParadigm, r.DesignTaxonomy.EmbodimentType,
		r.DesignTaxonomy.SocialGesture, r.Results.KeyFinding,
	}, "\n")
}

// Stats summarizes the collection by status.
type Stats struct {
	Total      int
	Analyzing  int
	Complete   int
	Error      int
	Duplicates int
	// Years counts complete records by publication year.
	Years map[string]int
}

// SortedYears returns the keys of Years in ascending order.
func (s Stats) SortedYears() []string {
	years := make([]string, 0, len(s.Years))
	for y := range s.Years {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

// Stats counts records by status.
func (m *Manager) Stats() Stats {
	st := Stats{Years: map[string]int{}}
	for _, p := range m.Snapshot() {
		st.Total++
		switch p.Status {
		case types.StatusAnalyzing:
			st.Analyzing++
		case types.StatusComplete:
			st.Complete++
			if p.IsDuplicate {
				st.Duplicates++
			}
			if p.Record != nil && p.Record.Year != "" {
				st.Years[p.Record.Year]++
			}
		case types.StatusError:
			st.Error++
		}
	}
	return st
}
