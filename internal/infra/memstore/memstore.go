// Package memstore is an in-memory port.Store for local development and
// tests. Units of work are serialized and copy-on-write: a transaction edits
// a private copy of the mutable tables which replaces the live state only
// when the closure succeeds.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
)

// tables holds the data mutated by lifecycle operations.
type tables struct {
	seq            int64
	companies      map[int64]domain.Company
	processes      map[int64]domain.CertificationProcess
	results        map[int64]domain.QualificationResult
	questionnaires map[int64]domain.Questionnaire
	items          map[int64]domain.QuestionnaireItem
	observations   map[int64]domain.Observation
	files          map[int64]domain.ItemFile
}

func newTables() *tables {
	return &tables{
		companies:      map[int64]domain.Company{},
		processes:      map[int64]domain.CertificationProcess{},
		results:        map[int64]domain.QualificationResult{},
		questionnaires: map[int64]domain.Questionnaire{},
		items:          map[int64]domain.QuestionnaireItem{},
		observations:   map[int64]domain.Observation{},
		files:          map[int64]domain.ItemFile{},
	}
}

func (t *tables) clone() *tables {
	return &tables{
		seq:            t.seq,
		companies:      cloneMap(t.companies),
		processes:      cloneMap(t.processes),
		results:        cloneMap(t.results),
		questionnaires: cloneMap(t.questionnaires),
		items:          cloneMap(t.items),
		observations:   cloneMap(t.observations),
		files:          cloneMap(t.files),
	}
}

func (t *tables) nextID() int64 {
	t.seq++
	return t.seq
}

func cloneMap[V any](m map[int64]V) map[int64]V {
	out := make(map[int64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// reference is the static questionnaire reference data. It is only written while seeding.
type reference struct {
	typologies map[int64]domain.Typology
	modules    map[int64]domain.Module
	sections   map[int64]domain.Section
	subtitles  map[int64]domain.Subtitle
	questions  map[int64]domain.Question
	badges     map[int64]domain.Badge
	thresholds []domain.ComplianceThreshold
}

// Store is the in-memory store.
type Store struct {
	writeMu sync.Mutex   // serializes units of work
	mu      sync.RWMutex // guards live and ref
	live    *tables
	ref     *reference
}

// New creates an empty store.
func New() *Store {
	return &Store{
		live: newTables(),
		ref: &reference{
			typologies: map[int64]domain.Typology{},
			modules:    map[int64]domain.Module{},
			sections:   map[int64]domain.Section{},
			subtitles:  map[int64]domain.Subtitle{},
			questions:  map[int64]domain.Question{},
			badges:     map[int64]domain.Badge{},
		},
	}
}

var (
	_ port.Store      = (*Store)(nil)
	_ port.UnitOfWork = (*Store)(nil)
)

// RunInTx runs fn against a private copy of the tables and publishes the copy
// only when fn returns nil. Errors leave the live state untouched.
func (s *Store) RunInTx(ctx context.Context, operation string, fn func(ctx context.Context, store port.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	draft := s.live.clone()
	ref := s.ref
	s.mu.RUnlock()

	if err := fn(ctx, &view{t: draft, ref: ref}); err != nil {
		return err
	}

	s.mu.Lock()
	s.live = draft
	s.mu.Unlock()
	return nil
}

// snapshot returns a view of the live tables. Published tables are never
// mutated, so the view stays consistent without holding the lock.
func (s *Store) snapshot() *view {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &view{t: s.live, ref: s.ref}
}

// autoCommit runs a single write as its own unit of work.
func (s *Store) autoCommit(ctx context.Context, operation string, fn func(v *view) error) error {
	return s.RunInTx(ctx, operation, func(_ context.Context, st port.Store) error {
		return fn(st.(*view))
	})
}

// view is the port.Store over one version of the tables.
type view struct {
	t   *tables
	ref *reference
}

func sortedByID[V any](m map[int64]V, keep func(V) bool) []V {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]V, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}
