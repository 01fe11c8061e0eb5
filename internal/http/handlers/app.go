package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"styliq/internal/domain"
	"styliq/internal/infra"
	"styliq/internal/stylist"
)

// Stylist is the pipeline surface the handlers drive.
type Stylist interface {
	Analyze(ctx context.Context, req stylist.AnalyzeRequest) (domain.Session, error)
	Visualize(ctx context.Context, sessionID string) (domain.Visualization, error)
	Session(ctx context.Context, id string) (domain.Session, error)
	Forget(ctx context.Context, id string) error
}

type App struct {
	Stylist        Stylist
	Personas       []domain.Persona
	MaxUploadBytes int64
	Logger         *infra.Logger
}

func NewApp(svc Stylist, personas []domain.Persona, maxUploadBytes int64, logger *infra.Logger) *App {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &App{Stylist: svc, Personas: personas, MaxUploadBytes: maxUploadBytes, Logger: logger}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}
