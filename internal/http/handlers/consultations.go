package handlers

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"styliq/internal/domain"
	"styliq/internal/recommend"
	"styliq/internal/session"
	"styliq/internal/stylist"
)

type consultationResponse struct {
	SessionID     string         `json:"session_id"`
	Stylist       domain.Persona `json:"stylist"`
	Ratio         float64        `json:"ratio"`
	Report        string         `json:"report"`
	HairstyleName string         `json:"hairstyle_name"`
	Strategy      string         `json:"strategy"`
	SearchURL     string         `json:"search_url"`
	CreatedAt     time.Time      `json:"created_at"`
}

type visualizationResponse struct {
	SessionID string `json:"session_id"`
	ImageURL  string `json:"image_url"`
	Prompt    string `json:"prompt"`
	Model     string `json:"model,omitempty"`
}

func toConsultationResponse(s domain.Session) consultationResponse {
	resp := consultationResponse{
		SessionID: s.ID,
		Stylist:   s.Persona,
		Ratio:     math.Round(float64(s.Ratio)*100) / 100,
		CreatedAt: s.CreatedAt,
	}
	if c := s.Consultation; c != nil {
		resp.Report = c.CleanReport
		resp.HairstyleName = c.Hairstyle
		resp.Strategy = c.Strategy
		resp.SearchURL = recommend.SearchURL(c.Hairstyle)
	}
	return resp
}

// CreateConsultation accepts a multipart upload in the "image" field and an
// optional "session_id" to overwrite.
func (a *App) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "image exceeds upload limit")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "multipart form with an image field required")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image field required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read image")
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "image is empty")
		return
	}

	sess, err := a.Stylist.Analyze(r.Context(), stylist.AnalyzeRequest{
		SessionID: strings.TrimSpace(r.FormValue("session_id")),
		Image:     data,
	})
	if err != nil {
		a.pipelineError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toConsultationResponse(sess))
}

func (a *App) GetConsultation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := a.Stylist.Session(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "session not found or expired")
		return
	}
	if err != nil {
		a.pipelineError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toConsultationResponse(sess))
}

// DeleteConsultation discards the session and its stored portrait.
func (a *App) DeleteConsultation(w http.ResponseWriter, r *http.Request) {
	if err := a.Stylist.Forget(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.pipelineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) CreateVisualization(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	vis, err := a.Stylist.Visualize(r.Context(), id)
	if err != nil {
		a.pipelineError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, visualizationResponse{SessionID: id, ImageURL: vis.ImageURL, Prompt: vis.Prompt, Model: vis.Model})
}

func (a *App) ListPersonas(w http.ResponseWriter, _ *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": a.Personas})
}
