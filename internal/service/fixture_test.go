package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/cache"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/client"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/memstore"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/observability"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
	"github.com/boddenberg/certificacion-calidad-go/internal/service"
)

// Reference data of the test rulebook: module 1 has two mandatory and two
// complementary questions; module 11 is biosecurity.
const (
	companyID  int64 = 1
	typologyID int64 = 1

	moduleM   int64 = 1
	moduleBio int64 = 11

	qMandatory1     int64 = 101
	qMandatory2     int64 = 102
	qComplementary1 int64 = 103
	qComplementary2 int64 = 104
	qBio            int64 = 1101

	badgeBronze int64 = 1
	badgeSilver int64 = 2
	badgeGold   int64 = 3
)

var (
	fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	admin   = domain.User{ID: 1, Name: "Admin", Role: domain.RoleAdmin}
	asesor  = domain.User{ID: 100, Name: "Asesora", Role: domain.RoleAsesor}
	auditor = domain.User{ID: 200, Name: "Auditor", Role: domain.RoleAuditor}
	tecnico = domain.User{ID: 300, Name: "Técnica", Role: domain.RoleTecnicoPais}
)

func seedStore() *memstore.Store {
	s := memstore.New()
	s.AddTypology(domain.Typology{ID: typologyID, Name: domain.LocalizedText{ES: "Hotel", EN: "Hotel"}})

	s.AddBadge(domain.Badge{ID: badgeBronze, Name: domain.LocalizedText{ES: "Bronce", EN: "Bronze"}, Importance: 1, Active: true})
	s.AddBadge(domain.Badge{ID: badgeSilver, Name: domain.LocalizedText{ES: "Plata", EN: "Silver"}, Importance: 2, Active: true})
	s.AddBadge(domain.Badge{ID: badgeGold, Name: domain.LocalizedText{ES: "Oro", EN: "Gold"}, Importance: 3, Active: true})

	s.AddModule(domain.Module{ID: moduleM, Name: domain.LocalizedText{ES: "Gestión", EN: "Management"}, Order: 1})
	s.AddModule(domain.Module{ID: moduleBio, Name: domain.LocalizedText{ES: "Bioseguridad", EN: "Biosecurity"}, Order: 11})
	s.AddSection(domain.Section{ID: 10, ModuleID: moduleM, Name: domain.LocalizedText{ES: "Dirección", EN: "Leadership"}, Order: 1})
	s.AddSection(domain.Section{ID: 110, ModuleID: moduleBio, Name: domain.LocalizedText{ES: "Protocolos", EN: "Protocols"}, Order: 1})

	for i, q := range []struct {
		id        int64
		mandatory bool
		na        bool
	}{
		{qMandatory1, true, false},
		{qMandatory2, true, false},
		{qComplementary1, false, false},
		{qComplementary2, false, true},
	} {
		s.AddQuestion(domain.Question{
			ID:                  q.id,
			SectionID:           10,
			Text:                domain.LocalizedText{ES: fmt.Sprintf("Pregunta %d", q.id), EN: fmt.Sprintf("Question %d", q.id)},
			Nomenclature:        fmt.Sprintf("1.%d", i+1),
			Order:               fmt.Sprintf("%d", i+1),
			Mandatory:           q.mandatory,
			AllowsNotApplicable: q.na,
		})
	}
	s.AddQuestion(domain.Question{ID: qBio, SectionID: 110, Text: domain.LocalizedText{ES: "Protocolo"}, Nomenclature: "mb-1.1", Order: "1", Mandatory: true})

	s.AddThreshold(domain.ComplianceThreshold{ID: 1, ModuleID: moduleM, Min: 0, Max: 50, BadgeID: badgeBronze})
	s.AddThreshold(domain.ComplianceThreshold{ID: 2, ModuleID: moduleM, Min: 50, Max: 90, BadgeID: badgeSilver})
	s.AddThreshold(domain.ComplianceThreshold{ID: 3, ModuleID: moduleM, Min: 90, Max: 100, BadgeID: badgeGold})

	s.AddCompany(domain.Company{ID: companyID, Name: "Hotel Quetzal", TypologyIDs: []int64{typologyID}})
	return s
}

func testRules() service.Rules {
	r := service.DefaultRules()
	r.Now = func() time.Time { return fixedNow }
	return r
}

// env wires the services over the in-memory store.
type env struct {
	store     *memstore.Store
	rules     service.Rules
	metrics   *observability.Metrics
	tree      *service.TreeBuilder
	cert      *service.CertificationService
	ledger    *service.ResponseLedger
	dashboard *service.DashboardService
	read      *service.ReadModelService
	files     *fakeFileStore
	notifier  *mockNotifier
}

func newEnv() *env {
	return newEnvWith(seedStore(), nil)
}

// newEnvWith wires the services; uow defaults to the store itself.
func newEnvWith(store *memstore.Store, uow port.UnitOfWork) *env {
	if uow == nil {
		uow = store
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	rules := testRules()

	e := &env{
		store:    store,
		rules:    rules,
		metrics:  metrics,
		files:    &fakeFileStore{},
		notifier: &mockNotifier{},
	}
	e.tree = service.NewTreeBuilder(store, cache.New[*domain.QuestionnaireTree](time.Minute), rules, metrics, logger)
	e.cert = service.NewCertificationService(uow, store, e.tree, client.NewLocalReopening(logger), rules, metrics, logger)
	e.ledger = service.NewResponseLedger(uow, store, e.files, rules, metrics, logger)
	e.dashboard = service.NewDashboardService(store, e.notifier, rules, metrics, logger)
	e.read = service.NewReadModelService(store, e.tree, rules, logger)
	return e
}

func (e *env) companyStatus(ctx context.Context) domain.ProcessStatus {
	c, err := e.store.GetCompany(ctx, companyID)
	if err != nil {
		panic(err)
	}
	return c.Status
}

// ============================================================
// Mocks
// ============================================================

type fakeFileStore struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (f *fakeFileStore) SaveFile(_ context.Context, content []byte, subfolder, originalName string) (string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", 0, f.err
	}
	rel := fmt.Sprintf("%s/%d-%s", subfolder, len(f.saved)+1, originalName)
	f.saved = append(f.saved, rel)
	return rel, int64(len(content)), nil
}

func (f *fakeFileStore) GetFullPath() string { return "/srv/archivos" }

type mockNotifier struct {
	mu        sync.Mutex
	notified  map[int64]bool
	sent      []int64
	lookupErr error
	sendErr   error
}

func (m *mockNotifier) HasBeenNotified(_ context.Context, _, certificationID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return false, m.lookupErr
	}
	return m.notified[certificationID], nil
}

func (m *mockNotifier) SendExpirationNotification(_ context.Context, _ domain.User, certification domain.CertificationProcess, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, certification.ID)
	return nil
}
