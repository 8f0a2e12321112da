package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AmmarJamshed/FDA-checker/internal/application/services"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/observability"
	apperrors "github.com/AmmarJamshed/FDA-checker/pkg/errors"
)

const maxRequestBody = 64 << 10

// ComplianceEvaluator is the subset of the compliance service the handler uses.
type ComplianceEvaluator interface {
	Evaluate(ctx context.Context, record *entities.DrugCandidateRecord) (*entities.Evaluation, error)
}

// ComplianceHandler serves the compliance form endpoints
type ComplianceHandler struct {
	evaluator ComplianceEvaluator
	model     *services.ModelContext
	streams   *SSEHandler
}

// NewComplianceHandler creates a new compliance handler
func NewComplianceHandler(evaluator ComplianceEvaluator, model *services.ModelContext) *ComplianceHandler {
	return &ComplianceHandler{
		evaluator: evaluator,
		model:     model,
	}
}

// evaluateRequest uses pointers so a missing score can be told apart from zero.
type evaluateRequest struct {
	DrugName     string `json:"drug_name"`
	Phase        string `json:"phase"`
	SafetyData   *int   `json:"safety_data"`
	EfficacyData *int   `json:"efficacy_data"`
	TrialResults string `json:"trial_results"`
}

// EvaluationResponse is the body returned by POST /api/compliance/evaluate
type EvaluationResponse struct {
	ID           string                    `json:"id"`
	DrugName     string                    `json:"drug_name"`
	Status       entities.EvaluationStatus `json:"status"`
	Verdict      entities.Verdict          `json:"verdict"`
	Compliant    bool                      `json:"compliant"`
	Message      string                    `json:"message"`
	Warnings     []string                  `json:"warnings"`
	Features     *entities.FeatureVector   `json:"features,omitempty"`
	ModelVersion string                    `json:"model_version,omitempty"`
	EvaluatedAt  time.Time                 `json:"evaluated_at"`
}

// FieldVocabulary lists the accepted values of one categorical field
type FieldVocabulary struct {
	Field   string   `json:"field"`
	Classes []string `json:"classes"`
}

// ScoreRange is the accepted range of a numeric field
type ScoreRange struct {
	Field string `json:"field"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
}

// VocabulariesResponse is the body returned by GET /api/compliance/vocabularies
type VocabulariesResponse struct {
	Categorical []FieldVocabulary `json:"categorical"`
	Numeric     []ScoreRange      `json:"numeric"`
}

// Evaluate handles POST /api/compliance/evaluate
func (h *ComplianceHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	record, err := decodeRecord(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	evaluation, err := h.evaluator.Evaluate(r.Context(), record)
	if err != nil {
		respondWithAppError(r.Context(), w, err)
		return
	}

	warnings := evaluation.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	respondWithJSON(w, http.StatusOK, EvaluationResponse{
		ID:           evaluation.ID,
		DrugName:     evaluation.DrugName,
		Status:       evaluation.Status,
		Verdict:      evaluation.Verdict,
		Compliant:    evaluation.Compliant,
		Message:      evaluation.Message,
		Warnings:     warnings,
		Features:     evaluation.Features,
		ModelVersion: evaluation.ModelVersion,
		EvaluatedAt:  evaluation.EvaluatedAt,
	})
}

// Vocabularies handles GET /api/compliance/vocabularies
func (h *ComplianceHandler) Vocabularies(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, VocabulariesResponse{
		Categorical: []FieldVocabulary{
			{Field: h.model.Phase().Field(), Classes: h.model.Phase().Classes()},
			{Field: h.model.TrialResults().Field(), Classes: h.model.TrialResults().Classes()},
		},
		Numeric: []ScoreRange{
			{Field: "safety_data", Min: entities.MinScore, Max: entities.MaxScore},
			{Field: "efficacy_data", Min: entities.MinScore, Max: entities.MaxScore},
		},
	})
}

// Model handles GET /api/compliance/model
func (h *ComplianceHandler) Model(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.model.Info())
}

// WithEventStream makes Health report the number of connected stream clients.
func (h *ComplianceHandler) WithEventStream(streams *SSEHandler) *ComplianceHandler {
	h.streams = streams
	return h
}

// Health handles GET /health
func (h *ComplianceHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":        "healthy",
		"model_version": h.model.Info().Version,
	}
	if h.streams != nil {
		body["stream_clients"] = h.streams.ClientCount()
	}
	respondWithJSON(w, http.StatusOK, body)
}

func decodeRecord(r *http.Request) (*entities.DrugCandidateRecord, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var req evaluateRequest
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form body")
		}
		req.DrugName = r.PostForm.Get("drug_name")
		req.Phase = r.PostForm.Get("phase")
		req.TrialResults = r.PostForm.Get("trial_results")

		var err error
		if req.SafetyData, err = formInt(r, "safety_data"); err != nil {
			return nil, err
		}
		if req.EfficacyData, err = formInt(r, "efficacy_data"); err != nil {
			return nil, err
		}
	default:
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				return nil, fmt.Errorf("%s must be an integer", typeErr.Field)
			}
			return nil, fmt.Errorf("invalid request body")
		}
	}

	if req.SafetyData == nil {
		return nil, fmt.Errorf("safety_data is required")
	}
	if req.EfficacyData == nil {
		return nil, fmt.Errorf("efficacy_data is required")
	}

	return &entities.DrugCandidateRecord{
		DrugName:     req.DrugName,
		Phase:        req.Phase,
		SafetyData:   *req.SafetyData,
		EfficacyData: *req.EfficacyData,
		TrialResults: req.TrialResults,
	}, nil
}

func formInt(r *http.Request, field string) (*int, error) {
	raw := strings.TrimSpace(r.PostForm.Get(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", field)
	}
	return &v, nil
}

// respondWithAppError maps the error taxonomy onto status codes. Internal
// details are logged, never returned.
func respondWithAppError(ctx context.Context, w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
			return
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
			return
		}
	}

	observability.LoggerFromContext(ctx).Error().Err(err).Msg("compliance evaluation failed")
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}

// Helper functions

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
