package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/service"
)

func TestGetQuestionnaireView(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	_, official := auditUnderway(t, e)
	answerAll(t, e, official.ID, allCompliant())

	item, err := e.store.GetItem(ctx, official.ID, qMandatory1)
	require.NoError(t, err)
	_, err = e.ledger.RecordObservation(ctx, item.ID, "Manual vigente", auditor)
	require.NoError(t, err)
	_, err = e.ledger.AttachFiles(ctx, item.ID, []domain.UploadedFile{{Name: "manual.pdf", Content: []byte("pdf")}}, auditor)
	require.NoError(t, err)

	view, err := e.read.GetQuestionnaireView(ctx, official.ID, domain.LanguageEN)
	require.NoError(t, err)

	assert.Equal(t, "Hotel Quetzal", view.Company.Name)
	assert.Equal(t, "5 - Auditing underway", view.StatusLabel)
	assert.Equal(t, "Gold", view.SuggestedResult)
	require.Len(t, view.Modules, 2)

	m := view.Modules[0]
	assert.Equal(t, "Management", m.Name)
	assert.Equal(t, "Gold", m.Result.Result)
	assert.Equal(t, 100, m.Result.PctMandatory)

	var found bool
	for _, ai := range m.Items {
		if ai.Type != domain.NodeQuestion || ai.ID != qMandatory1 {
			continue
		}
		found = true
		require.NotNil(t, ai.ItemID)
		assert.Equal(t, item.ID, *ai.ItemID)
		assert.Equal(t, domain.AnswerCompliant, ai.Result)
		assert.Equal(t, "Manual vigente", ai.Observation)
		assert.Len(t, ai.Files, 1)
	}
	assert.True(t, found, "question %d missing from the view", qMandatory1)

	bio := view.Modules[1]
	assert.Equal(t, moduleBio, bio.ID)
	assert.Equal(t, "-", bio.Result.Result)
	assert.True(t, bio.Result.Biosecurity)
}

func TestGetQuestionnaireView_UnansweredQuestions(t *testing.T) {
	e := newEnv()
	q := draftQuestionnaire(t, e)

	view, err := e.read.GetQuestionnaireView(context.Background(), q.ID, domain.LanguageES)
	require.NoError(t, err)
	assert.Equal(t, "No Certificado", view.SuggestedResult)
	for _, ai := range view.Modules[0].Items {
		assert.Nil(t, ai.ItemID)
		assert.Equal(t, domain.AnswerUnanswered, ai.Result)
	}
}

func TestGetQuestionnaireView_NotFound(t *testing.T) {
	e := newEnv()

	_, err := e.read.GetQuestionnaireView(context.Background(), 9999, domain.LanguageES)
	var notFound *domain.ErrNotFound
	assert.True(t, errors.As(err, &notFound), "got %v", err)
}

func TestProcessHistory(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	p, official := auditUnderway(t, e)

	history, err := e.read.ProcessHistory(ctx, p.ID, domain.LanguageES)
	require.NoError(t, err)
	assert.Equal(t, p.ID, history.Process.ID)
	assert.Equal(t, "5 - Auditoría en curso", history.StatusLabel)
	assert.Len(t, history.Questionnaires, 2)
	assert.NotNil(t, history.Results)
	assert.Empty(t, history.Results)

	answerAll(t, e, official.ID, allCompliant())
	_, err = e.cert.FinalizeQuestionnaire(ctx, official.ID, auditor)
	require.NoError(t, err)
	_, err = e.cert.FinalizeQuestionnaire(ctx, official.ID, tecnico)
	require.NoError(t, err)
	_, err = e.cert.RecordFinalQualification(ctx, p.ID, service.QualificationRequest{
		Approved:       true,
		BadgeID:        ptr(badgeGold),
		DictamenNumber: "DIC-2025-014",
	}, tecnico)
	require.NoError(t, err)

	history, err = e.read.ProcessHistory(ctx, p.ID, domain.LanguageES)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, history.Process.Status)
	require.Len(t, history.Results, 1)
	assert.Equal(t, "DIC-2025-014", history.Results[0].DictamenNumber)
}

func TestProcessHistory_NotFound(t *testing.T) {
	e := newEnv()

	_, err := e.read.ProcessHistory(context.Background(), 9999, domain.LanguageES)
	var notFound *domain.ErrNotFound
	assert.True(t, errors.As(err, &notFound), "got %v", err)
}
