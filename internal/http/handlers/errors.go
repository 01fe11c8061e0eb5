package handlers

import (
	"net/http"

	"styliq/internal/domain"
	"styliq/internal/middleware"
)

// statusFor maps a pipeline error kind to an HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindDecode:
		return http.StatusUnsupportedMediaType
	case domain.KindNoFace, domain.KindAnalysis, domain.KindDivision:
		return http.StatusUnprocessableEntity
	case domain.KindAuth, domain.KindModel, domain.KindEmptyResponse, domain.KindRender:
		return http.StatusBadGateway
	case domain.KindStaleSession:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// pipelineError writes the typed error. Unknown errors are logged and hidden.
func (a *App) pipelineError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	if kind == "" {
		a.Logger.Error().
			Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("unexpected pipeline failure")
		a.error(w, status, "internal", "internal error")
		return
	}
	a.Logger.Warn().
		Err(err).
		Str("kind", string(kind)).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Msg("request failed")
	a.error(w, status, string(kind), domain.MessageOf(err))
}
