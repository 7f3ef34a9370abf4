package memstore

import "github.com/boddenberg/certificacion-calidad-go/internal/domain"

// Seeding replaces whole entries and is meant to run before the store serves
// traffic. Reference data is shared by every snapshot, so it is swapped in as
// a new copy rather than edited in place.

func (s *Store) seedRef(fn func(ref *reference)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	next := &reference{
		typologies: cloneMap(s.ref.typologies),
		modules:    cloneMap(s.ref.modules),
		sections:   cloneMap(s.ref.sections),
		subtitles:  cloneMap(s.ref.subtitles),
		questions:  cloneMap(s.ref.questions),
		badges:     cloneMap(s.ref.badges),
		thresholds: append([]domain.ComplianceThreshold(nil), s.ref.thresholds...),
	}
	s.mu.RUnlock()

	fn(next)

	s.mu.Lock()
	s.ref = next
	s.mu.Unlock()
}

func (s *Store) seedTables(fn func(t *tables)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	next := s.live.clone()
	s.mu.RUnlock()

	fn(next)

	s.mu.Lock()
	s.live = next
	s.mu.Unlock()
}

// AddTypology registers a typology.
func (s *Store) AddTypology(t domain.Typology) {
	s.seedRef(func(ref *reference) { ref.typologies[t.ID] = t })
}

// AddModule registers a module.
func (s *Store) AddModule(m domain.Module) {
	s.seedRef(func(ref *reference) { ref.modules[m.ID] = m })
}

// AddSection registers a section.
func (s *Store) AddSection(sec domain.Section) {
	s.seedRef(func(ref *reference) { ref.sections[sec.ID] = sec })
}

// AddSubtitle registers a subtitle.
func (s *Store) AddSubtitle(sub domain.Subtitle) {
	s.seedRef(func(ref *reference) { ref.subtitles[sub.ID] = sub })
}

// AddQuestion registers a question.
func (s *Store) AddQuestion(q domain.Question) {
	s.seedRef(func(ref *reference) { ref.questions[q.ID] = q })
}

// AddBadge registers a badge.
func (s *Store) AddBadge(b domain.Badge) {
	s.seedRef(func(ref *reference) { ref.badges[b.ID] = b })
}

// AddThreshold registers a compliance threshold.
func (s *Store) AddThreshold(t domain.ComplianceThreshold) {
	s.seedRef(func(ref *reference) { ref.thresholds = append(ref.thresholds, t) })
}

// AddCompany registers a company. Generated ids start above the highest seeded id.
func (s *Store) AddCompany(c domain.Company) {
	s.seedTables(func(t *tables) {
		t.companies[c.ID] = c
		if c.ID > t.seq {
			t.seq = c.ID
		}
	})
}

// AddProcess stores a process as is, keeping its id.
func (s *Store) AddProcess(p domain.CertificationProcess) {
	s.seedTables(func(t *tables) {
		t.processes[p.ID] = p
		if p.ID > t.seq {
			t.seq = p.ID
		}
	})
}
