package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
	"github.com/boddenberg/certificacion-calidad-go/internal/service"
)

// auditUnderway walks a fresh company to status 5 and returns the process and
// the official questionnaire.
func auditUnderway(t *testing.T, e *env) (*domain.CertificationProcess, *domain.Questionnaire) {
	t.Helper()
	ctx := context.Background()

	p, err := e.cert.BeginProcess(ctx, companyID, service.BeginProcessRequest{CaseNumber: "EXP-2025-001"}, admin)
	require.NoError(t, err)

	draft, err := e.cert.GenerateQuestionnaire(ctx, p.ID, asesor)
	require.NoError(t, err)
	_, err = e.cert.FinalizeQuestionnaire(ctx, draft.ID, asesor)
	require.NoError(t, err)

	_, err = e.cert.AssignAuditor(ctx, companyID, service.AssignAuditorRequest{AuditorID: auditor.ID, ScheduledDate: fixedNow.AddDate(0, 0, 14)}, admin)
	require.NoError(t, err)

	official, err := e.cert.GenerateQuestionnaire(ctx, p.ID, auditor)
	require.NoError(t, err)
	return p, official
}

func answerAll(t *testing.T, e *env, questionnaireID int64, results map[int64]domain.AnswerResult) {
	t.Helper()
	for questionID, result := range results {
		_, err := e.ledger.RecordAnswer(context.Background(), questionnaireID, questionID, result, auditor)
		require.NoError(t, err)
	}
}

func allCompliant() map[int64]domain.AnswerResult {
	return map[int64]domain.AnswerResult{
		qMandatory1:     domain.AnswerCompliant,
		qMandatory2:     domain.AnswerCompliant,
		qComplementary1: domain.AnswerCompliant,
		qComplementary2: domain.AnswerCompliant,
		qBio:            domain.AnswerNonCompliant,
	}
}

func TestLifecycle_GoldEndToEnd(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	var seen []domain.ProcessStatus
	observe := func() { seen = append(seen, e.companyStatus(ctx)) }

	p, err := e.cert.BeginProcess(ctx, companyID, service.BeginProcessRequest{CaseNumber: "EXP-2025-001"}, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInitial, p.Status)
	assert.False(t, p.Recertification)
	require.NotNil(t, p.TypologyID)
	assert.Equal(t, typologyID, *p.TypologyID)
	observe()

	draft, err := e.cert.GenerateQuestionnaire(ctx, p.ID, asesor)
	require.NoError(t, err)
	assert.True(t, draft.Draft)
	assert.Equal(t, domain.StatusConsultancyUnderway, e.companyStatus(ctx))
	observe()

	_, err = e.cert.FinalizeQuestionnaire(ctx, draft.ID, asesor)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAdvisoryFinished, e.companyStatus(ctx))
	observe()

	assigned, err := e.cert.AssignAuditor(ctx, companyID, service.AssignAuditorRequest{AuditorID: auditor.ID, ScheduledDate: fixedNow.AddDate(0, 0, 14)}, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuditingAssigned, assigned.Status)
	observe()

	official, err := e.cert.GenerateQuestionnaire(ctx, p.ID, auditor)
	require.NoError(t, err)
	assert.False(t, official.Draft)
	assert.Equal(t, domain.StatusAuditingUnderway, e.companyStatus(ctx))
	observe()

	answerAll(t, e, official.ID, allCompliant())

	_, err = e.cert.FinalizeQuestionnaire(ctx, official.ID, auditor)
	require.NoError(t, err)
	company, err := e.store.GetCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, "Oro", company.SuggestedResult)
	observe()

	english, err := e.cert.SaveSuggestedResult(ctx, official.ID, domain.LanguageEN)
	require.NoError(t, err)
	assert.Equal(t, "Gold", english)

	_, err = e.cert.FinalizeQuestionnaire(ctx, official.ID, tecnico)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuditingFinished, e.companyStatus(ctx))
	observe()

	badge := badgeGold
	result, err := e.cert.RecordFinalQualification(ctx, p.ID, service.QualificationRequest{
		Approved:       true,
		BadgeID:        &badge,
		DictamenNumber: "DIC-77",
	}, admin)
	require.NoError(t, err)
	assert.True(t, result.Approved)
	observe()

	closed, err := e.store.GetProcess(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, closed.Status)
	require.NotNil(t, closed.FinishedAt)
	require.NotNil(t, closed.ExpiresAt)
	assert.Equal(t, closed.StartedAt.AddDate(2, 0, 0), *closed.ExpiresAt)

	company, err = e.store.GetCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, "Oro", company.CurrentResult)
	assert.Equal(t, domain.StatusCompleted, company.Status)

	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1], "company status regressed at step %d", i)
	}
}

func TestFinalize_TecnicoPaisTwiceIsRejected(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	_, official := auditUnderway(t, e)
	answerAll(t, e, official.ID, allCompliant())

	_, err := e.cert.FinalizeQuestionnaire(ctx, official.ID, auditor)
	require.NoError(t, err)
	_, err = e.cert.FinalizeQuestionnaire(ctx, official.ID, tecnico)
	require.NoError(t, err)

	_, err = e.cert.FinalizeQuestionnaire(ctx, official.ID, tecnico)
	var guard *domain.ErrStateGuard
	require.ErrorAs(t, err, &guard)
}

func TestFinalize_TecnicoPaisBeforeAuditorReview(t *testing.T) {
	e := newEnv()
	_, official := auditUnderway(t, e)

	_, err := e.cert.FinalizeQuestionnaire(context.Background(), official.ID, tecnico)
	var guard *domain.ErrStateGuard
	require.ErrorAs(t, err, &guard)
	assert.Contains(t, guard.Reason, "auditor review")
}

func TestFinalize_AuditorTwiceIsRejected(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	_, official := auditUnderway(t, e)
	answerAll(t, e, official.ID, allCompliant())

	_, err := e.cert.FinalizeQuestionnaire(ctx, official.ID, auditor)
	require.NoError(t, err)
	_, err = e.cert.FinalizeQuestionnaire(ctx, official.ID, auditor)
	var guard *domain.ErrStateGuard
	require.ErrorAs(t, err, &guard)
}

func TestFinalize_AdminIsForbidden(t *testing.T) {
	e := newEnv()
	_, official := auditUnderway(t, e)

	_, err := e.cert.FinalizeQuestionnaire(context.Background(), official.ID, admin)
	var forbidden *domain.ErrForbidden
	require.ErrorAs(t, err, &forbidden)

	var guard *domain.ErrStateGuard
	assert.ErrorAs(t, err, &guard, "forbidden is a state guard violation too")
}

func TestFinalize_AuditorVetoedByNonCompliantMandatory(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	_, official := auditUnderway(t, e)

	answers := allCompliant()
	answers[qMandatory2] = domain.AnswerNonCompliant
	answerAll(t, e, official.ID, answers)

	_, err := e.cert.FinalizeQuestionnaire(ctx, official.ID, auditor)
	require.NoError(t, err)

	company, err := e.store.GetCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, "No Certificado", company.SuggestedResult)
}

func TestGenerateQuestionnaire_RejectsOtherRoles(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, err := e.cert.BeginProcess(ctx, companyID, service.BeginProcessRequest{CaseNumber: "EXP-1"}, admin)
	require.NoError(t, err)

	_, err = e.cert.GenerateQuestionnaire(ctx, p.ID, tecnico)
	var forbidden *domain.ErrForbidden
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, domain.StatusInitial, e.companyStatus(ctx))
}

func TestGenerateQuestionnaire_OfficialNeedsAuditor(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, err := e.cert.BeginProcess(ctx, companyID, service.BeginProcessRequest{CaseNumber: "EXP-1"}, admin)
	require.NoError(t, err)

	_, err = e.cert.GenerateQuestionnaire(ctx, p.ID, auditor)
	var guard *domain.ErrStateGuard
	require.ErrorAs(t, err, &guard)
}

func TestBeginProcess_Validation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.cert.BeginProcess(ctx, companyID, service.BeginProcessRequest{CaseNumber: "   "}, admin)
	var validation *domain.ErrValidation
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "caseNumber", validation.Field)

	_, err = e.cert.BeginProcess(ctx, 999, service.BeginProcessRequest{CaseNumber: "EXP-1"}, admin)
	var notFound *domain.ErrNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "999", notFound.ID)
}

func TestBeginProcess_OnlyOneOpenProcess(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.cert.BeginProcess(ctx, companyID, service.BeginProcessRequest{CaseNumber: "EXP-1"}, admin)
	require.NoError(t, err)
	_, err = e.cert.BeginProcess(ctx, companyID, service.BeginProcessRequest{CaseNumber: "EXP-2"}, admin)
	var guard *domain.ErrStateGuard
	require.ErrorAs(t, err, &guard)
}

func TestBeginProcess_RecertificationAfterClosedCycle(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, official := auditUnderway(t, e)
	answerAll(t, e, official.ID, allCompliant())
	_, err := e.cert.FinalizeQuestionnaire(ctx, official.ID, auditor)
	require.NoError(t, err)
	_, err = e.cert.FinalizeQuestionnaire(ctx, official.ID, tecnico)
	require.NoError(t, err)
	_, err = e.cert.RecordFinalQualification(ctx, p.ID, service.QualificationRequest{Approved: false, Observations: "pendientes"}, admin)
	require.NoError(t, err)

	next, err := e.cert.BeginProcess(ctx, companyID, service.BeginProcessRequest{CaseNumber: "EXP-2027-001"}, admin)
	require.NoError(t, err)
	assert.True(t, next.Recertification)
	assert.Equal(t, domain.StatusCompleted, e.companyStatus(ctx), "a new cycle never lowers the company status")
}

func TestAssignAuditor_AfterAuditStartedIsRejected(t *testing.T) {
	e := newEnv()
	auditUnderway(t, e)

	_, err := e.cert.AssignAuditor(context.Background(), companyID, service.AssignAuditorRequest{AuditorID: 201, ScheduledDate: fixedNow}, admin)
	var guard *domain.ErrStateGuard
	require.ErrorAs(t, err, &guard)
}

func TestAssignAuditor_NoOpenProcess(t *testing.T) {
	e := newEnv()
	_, err := e.cert.AssignAuditor(context.Background(), companyID, service.AssignAuditorRequest{AuditorID: 201, ScheduledDate: fixedNow}, admin)
	var notFound *domain.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestRecordFinalQualification_Guards(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, _ := auditUnderway(t, e)

	_, err := e.cert.RecordFinalQualification(ctx, p.ID, service.QualificationRequest{Approved: true}, admin)
	var validation *domain.ErrValidation
	require.ErrorAs(t, err, &validation)

	badge := badgeGold
	_, err = e.cert.RecordFinalQualification(ctx, p.ID, service.QualificationRequest{Approved: true, BadgeID: &badge, DictamenNumber: "D-1"}, admin)
	var guard *domain.ErrStateGuard
	require.ErrorAs(t, err, &guard, "the audit is not finished yet")
}

func TestRecordFinalQualification_RejectedStillCloses(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, official := auditUnderway(t, e)
	answerAll(t, e, official.ID, allCompliant())
	_, err := e.cert.FinalizeQuestionnaire(ctx, official.ID, auditor)
	require.NoError(t, err)
	_, err = e.cert.FinalizeQuestionnaire(ctx, official.ID, tecnico)
	require.NoError(t, err)

	unknown := int64(42)
	_, err = e.cert.RecordFinalQualification(ctx, p.ID, service.QualificationRequest{Approved: true, BadgeID: &unknown, DictamenNumber: "D-1"}, admin)
	var notFound *domain.ErrNotFound
	require.ErrorAs(t, err, &notFound)

	_, err = e.cert.RecordFinalQualification(ctx, p.ID, service.QualificationRequest{Approved: false}, admin)
	require.NoError(t, err)

	closed, err := e.store.GetProcess(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, closed.Status)
	assert.Nil(t, closed.ExpiresAt)

	company, err := e.store.GetCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Empty(t, company.CurrentResult)

	results, err := e.store.ListQualificationResults(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestConvertToRecertification(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	finished := fixedNow.AddDate(-3, 0, 0)
	e.store.AddProcess(domain.CertificationProcess{ID: 50, CompanyID: companyID, Status: domain.StatusCompleted, FinishedAt: &finished})
	e.store.AddProcess(domain.CertificationProcess{ID: 51, CompanyID: companyID, Status: domain.StatusConsultancyUnderway})

	_, err := e.cert.ConvertToRecertification(ctx, 50, 2, admin)
	var validation *domain.ErrValidation
	require.ErrorAs(t, err, &validation)

	_, err = e.cert.ConvertToRecertification(ctx, 51, companyID, admin)
	var guard *domain.ErrStateGuard
	require.ErrorAs(t, err, &guard)

	p, err := e.cert.ConvertToRecertification(ctx, 50, companyID, admin)
	require.NoError(t, err)
	assert.True(t, p.Recertification)
}

func TestChangeAuditor_CascadesToOpenOfficialQuestionnaires(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, official := auditUnderway(t, e)

	n, err := e.cert.ChangeAuditorOrAdvisor(ctx, p.ID, 250, true, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	q, err := e.store.GetQuestionnaire(ctx, official.ID)
	require.NoError(t, err)
	require.NotNil(t, q.AuditorID)
	assert.Equal(t, int64(250), *q.AuditorID)

	questionnaires, err := e.store.ListQuestionnairesByProcess(ctx, p.ID)
	require.NoError(t, err)
	for _, other := range questionnaires {
		if other.Draft {
			assert.Nil(t, other.AuditorID, "drafts are not reassigned")
		}
	}
}

// failingQuestionnaireUpdates makes every questionnaire update inside a unit of work fail.
type failingQuestionnaireUpdates struct {
	port.UnitOfWork
}

type failingStore struct {
	port.Store
}

func (failingStore) UpdateQuestionnaire(context.Context, *domain.Questionnaire) error {
	return errors.New("connection reset by peer")
}

func (f failingQuestionnaireUpdates) RunInTx(ctx context.Context, operation string, fn func(ctx context.Context, store port.Store) error) error {
	return f.UnitOfWork.RunInTx(ctx, operation, func(ctx context.Context, st port.Store) error {
		return fn(ctx, failingStore{Store: st})
	})
}

func TestChangeAuditor_PartialReassignmentIsNeverVisible(t *testing.T) {
	store := seedStore()
	healthy := newEnvWith(store, nil)
	p, official := auditUnderway(t, healthy)

	broken := newEnvWith(store, failingQuestionnaireUpdates{UnitOfWork: store})
	ctx := context.Background()
	_, err := broken.cert.ChangeAuditorOrAdvisor(ctx, p.ID, 250, true, admin)
	require.Error(t, err)

	process, err := store.GetProcess(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, process.AuditorID)
	assert.Equal(t, auditor.ID, *process.AuditorID, "process update must roll back with the failed cascade")

	q, err := store.GetQuestionnaire(ctx, official.ID)
	require.NoError(t, err)
	assert.Equal(t, auditor.ID, *q.AuditorID)
}

func TestReopenQuestionnaire_RollsBackProcessNotCompany(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, official := auditUnderway(t, e)
	answerAll(t, e, official.ID, allCompliant())
	_, err := e.cert.FinalizeQuestionnaire(ctx, official.ID, auditor)
	require.NoError(t, err)
	_, err = e.cert.FinalizeQuestionnaire(ctx, official.ID, tecnico)
	require.NoError(t, err)

	_, err = e.cert.ReopenQuestionnaire(ctx, official.ID, asesor)
	var guard *domain.ErrStateGuard
	require.ErrorAs(t, err, &guard, "the local workflow only approves Admin and TecnicoPais")

	q, err := e.cert.ReopenQuestionnaire(ctx, official.ID, tecnico)
	require.NoError(t, err)
	assert.Nil(t, q.FinishedAt)
	assert.Nil(t, q.AuditorReviewedAt)
	assert.Nil(t, q.CountryTechnicianID)

	process, err := e.store.GetProcess(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuditingUnderway, process.Status)
	assert.Equal(t, domain.StatusAuditingFinished, e.companyStatus(ctx))

	_, err = e.cert.FinalizeQuestionnaire(ctx, official.ID, auditor)
	require.NoError(t, err, "a reopened questionnaire can be reviewed again")
}

func TestReopenQuestionnaire_OpenQuestionnaireIsRejected(t *testing.T) {
	e := newEnv()
	_, official := auditUnderway(t, e)

	_, err := e.cert.ReopenQuestionnaire(context.Background(), official.ID, admin)
	var guard *domain.ErrStateGuard
	require.ErrorAs(t, err, &guard)
}

func TestTransitions_AreCounted(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.cert.BeginProcess(ctx, companyID, service.BeginProcessRequest{CaseNumber: "EXP-1"}, admin)
	require.NoError(t, err)
	_, err = e.cert.BeginProcess(ctx, companyID, service.BeginProcessRequest{CaseNumber: "EXP-2"}, admin)
	require.Error(t, err)

	snap := e.metrics.LifecycleSnapshot()
	assert.Equal(t, float64(1), snap.Transitions["begin_process"])
	assert.Equal(t, float64(1), snap.Rejections["begin_process"])
}

func TestSaveSuggestedResult_UnknownQuestionnaire(t *testing.T) {
	e := newEnv()
	_, err := e.cert.SaveSuggestedResult(context.Background(), 9999, domain.LanguageES)
	var notFound *domain.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestAssignAuditor_ScheduledDateIsStored(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	_, err := e.cert.BeginProcess(ctx, companyID, service.BeginProcessRequest{CaseNumber: "EXP-1"}, admin)
	require.NoError(t, err)

	when := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	p, err := e.cert.AssignAuditor(ctx, companyID, service.AssignAuditorRequest{AuditorID: auditor.ID, ScheduledDate: when}, admin)
	require.NoError(t, err)
	require.NotNil(t, p.AuditScheduledAt)
	assert.True(t, p.AuditScheduledAt.Equal(when))
	assert.Equal(t, domain.StatusAuditingAssigned, e.companyStatus(ctx))
}
