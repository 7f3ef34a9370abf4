package handler

import (
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

// maxUploadBytes bounds the multipart body of an evidence upload.
const maxUploadBytes = 32 << 20

// ============================================================
// Reference Data Handlers
// ============================================================

func treeHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/typologies/{typologyId}/tree")
		defer span.End()

		_, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		typologyID, err := pathID(r, "typologyId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		lang, err := queryLanguage(r, svc.DefaultLanguage)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		biosecurity := false
		if raw := r.URL.Query().Get("biosecurity"); raw != "" {
			biosecurity, err = strconv.ParseBool(raw)
			if err != nil {
				handleServiceError(w, &domain.ErrValidation{Field: "biosecurity", Message: "must be true or false"}, log)
				return
			}
		}

		tree, err := svc.Tree.Build(ctx, typologyID, lang, biosecurity)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "", tree)
	}
}

// ============================================================
// Questionnaire Handlers
// ============================================================

func questionnaireViewHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/questionnaires/{questionnaireId}")
		defer span.End()

		_, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		qID, err := pathID(r, "questionnaireId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		lang, err := queryLanguage(r, svc.DefaultLanguage)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}

		view, err := svc.ReadModel.GetQuestionnaireView(ctx, qID, lang)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "", view)
	}
}

func finalizeHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/questionnaires/{questionnaireId}/finalize")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		qID, err := pathID(r, "questionnaireId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}

		q, err := svc.Certification.FinalizeQuestionnaire(ctx, qID, user)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "questionnaire finalized", q)
	}
}

func reopenHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/questionnaires/{questionnaireId}/reopen")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		qID, err := pathID(r, "questionnaireId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}

		q, err := svc.Certification.ReopenQuestionnaire(ctx, qID, user)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "questionnaire reopened", q)
	}
}

func suggestedResultHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/questionnaires/{questionnaireId}/suggested-result")
		defer span.End()

		_, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		qID, err := pathID(r, "questionnaireId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		lang, err := queryLanguage(r, svc.DefaultLanguage)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}

		result, err := svc.Certification.SaveSuggestedResult(ctx, qID, lang)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "suggested result saved", map[string]string{"suggestedResult": result})
	}
}

func progressHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/questionnaires/{questionnaireId}/progress")
		defer span.End()

		_, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		qID, err := pathID(r, "questionnaireId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}

		points, err := svc.Ledger.QuestionnaireProgress(ctx, qID)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "", points)
	}
}

type answerRequest struct {
	Result *int `json:"resultado"`
}

func recordAnswerHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/questionnaires/{questionnaireId}/questions/{questionId}")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		qID, err := pathID(r, "questionnaireId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		questionID, err := pathID(r, "questionId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		var req answerRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, log)
			return
		}
		if req.Result == nil {
			handleServiceError(w, &domain.ErrValidation{Field: "resultado", Message: "resultado is required"}, log)
			return
		}
		result, err := domain.ParseAnswerResult(*req.Result)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}

		itemID, err := svc.Ledger.RecordAnswer(ctx, qID, questionID, result, user)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "answer recorded", map[string]int64{"itemId": itemID})
	}
}

// ============================================================
// Item Handlers
// ============================================================

type observationRequest struct {
	Text string `json:"text"`
}

func recordObservationHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/questionnaire-items/{itemId}/observation")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		itemID, err := pathID(r, "itemId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		var req observationRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, log)
			return
		}

		obs, err := svc.Ledger.RecordObservation(ctx, itemID, req.Text, user)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "observation recorded", obs)
	}
}

func getObservationHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/questionnaire-items/{itemId}/observation")
		defer span.End()

		_, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		itemID, err := pathID(r, "itemId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}

		obs, err := svc.Ledger.GetObservation(ctx, itemID)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		if obs == nil {
			writeOK(w, http.StatusOK, "no observation recorded", nil)
			return
		}
		writeOK(w, http.StatusOK, "", obs)
	}
}

func attachFilesHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/questionnaire-items/{itemId}/files")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		itemID, err := pathID(r, "itemId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			handleServiceError(w, &domain.ErrValidation{Field: "files", Message: "expected a multipart form with 'files'"}, log)
			return
		}
		defer r.MultipartForm.RemoveAll()

		var uploads []domain.UploadedFile
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				handleServiceError(w, err, log)
				return
			}
			content, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				handleServiceError(w, err, log)
				return
			}
			uploads = append(uploads, domain.UploadedFile{Name: fh.Filename, Content: content})
		}

		files, err := svc.Ledger.AttachFiles(ctx, itemID, uploads, user)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusCreated, "files attached", files)
	}
}
