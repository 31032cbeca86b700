package rest

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/StanNowak/Surveys/internal/platform/errors"
	"github.com/StanNowak/Surveys/internal/services/study/domain/experience"
	"github.com/StanNowak/Surveys/internal/services/study/storage"
)

type assignRequest struct {
	ParticipantID   string   `json:"p_uuid"`
	Stratum         string   `json:"p_stratum"`
	Candidates      []string `json:"p_ap_list"`
	ExperienceYears string   `json:"p_experience_years"`
	Training        string   `json:"p_training"`
}

// stratum returns the explicit stratum, or one derived from background
// answers when the client leaves the stratum blank.
func (req assignRequest) stratum() string {
	if strings.TrimSpace(req.Stratum) != "" {
		return req.Stratum
	}
	if strings.TrimSpace(req.ExperienceYears) == "" && strings.TrimSpace(req.Training) == "" {
		return req.Stratum
	}
	return experience.DeriveBand(req.ExperienceYears, req.Training)
}

type assignResponse struct {
	Pair    [2]string `json:"pair"`
	Stratum string    `json:"stratum"`
}

type submitRequest struct {
	Payload json.RawMessage `json:"p_payload"`
}

type submitPayload struct {
	ParticipantID string   `json:"uuid"`
	SurveyID      string   `json:"survey_id"`
	Pair          []string `json:"pair"`
	Stratum       string   `json:"stratum"`
	PanelMember   bool     `json:"panel_member"`
	BankVersion   string   `json:"bank_version"`
	ConfigVersion string   `json:"config_version"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "study-engine-api",
	})
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.balancer == nil {
		writeError(w, apperrors.New(apperrors.CodeStorageUnavailable, "balancer is not configured"))
		return
	}
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	assignment, err := h.balancer.Assign(r.Context(), req.ParticipantID, req.stratum(), req.Candidates)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignResponse{
		Pair:    assignment.Pair,
		Stratum: assignment.Stratum,
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.balancer == nil || h.responses == nil {
		writeError(w, apperrors.New(apperrors.CodeStorageUnavailable, "submission storage is not configured"))
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}
	if len(req.Payload) == 0 {
		writeError(w, apperrors.New(apperrors.CodeResponsePayloadMissing, "p_payload is required"))
		return
	}
	var payload submitPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "p_payload must be a JSON object")
		return
	}
	if strings.TrimSpace(payload.ParticipantID) == "" {
		writeError(w, apperrors.New(apperrors.CodeResponseParticipantMissing, "uuid is required in payload"))
		return
	}

	// A submission without a pair still archives the response; a malformed
	// pair is a client error and must not touch any tally.
	if len(payload.Pair) > 0 {
		if err := h.balancer.RecordResponse(r.Context(), payload.Stratum, payload.Pair); err != nil {
			writeError(w, err)
			return
		}
	}

	surveyID := strings.TrimSpace(payload.SurveyID)
	if surveyID == "" {
		surveyID = r.PathValue("study")
	}
	err := h.responses.SaveResponse(r.Context(), storage.Response{
		ParticipantID: payload.ParticipantID,
		SurveyID:      surveyID,
		Payload:       req.Payload,
		PanelMember:   payload.PanelMember,
		BankVersion:   payload.BankVersion,
		ConfigVersion: payload.ConfigVersion,
	})
	if err != nil {
		log.Printf("save response for %s: %v", payload.ParticipantID, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleContent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.library == nil {
		writeDetail(w, http.StatusInternalServerError, "content library is not configured")
		return
	}
	data, err := h.library.Document(r.PathValue("study"), r.PathValue("document"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeRawJSON(w, data)
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.library == nil {
		writeDetail(w, http.StatusInternalServerError, "content library is not configured")
		return
	}
	data, err := h.library.Config(r.PathValue("study"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeRawJSON(w, data)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeRawJSON(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps domain errors onto HTTP statuses. Anything without a
// domain code is an internal failure and keeps its detail out of the
// response body.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"detail": "internal server error",
			"code":   string(code),
		})
		return
	}
	writeJSON(w, code.HTTPStatus(), map[string]string{
		"detail": err.Error(),
		"code":   string(code),
	})
}
