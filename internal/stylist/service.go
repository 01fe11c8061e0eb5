// Package stylist runs the consultation pipeline: ingestion, landmark
// detection, ratio, persona, prompt, hosted consultation and hairstyle
// extraction, plus the optional try-on render.
package stylist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"styliq/internal/domain"
	"styliq/internal/facegeo"
	"styliq/internal/infra"
	"styliq/internal/prompt"
	"styliq/internal/providers/consult"
	"styliq/internal/providers/landmark"
	"styliq/internal/providers/render"
	"styliq/internal/recommend"
	"styliq/internal/session"
)

// Decoder turns an upload into a pixel buffer.
type Decoder interface {
	Decode(data []byte) (*domain.Image, error)
}

// PersonaPicker returns the persona for the next analysis.
type PersonaPicker interface {
	Pick() domain.Persona
}

// Deps wires the pipeline collaborators.
type Deps struct {
	Decoder    Decoder
	Detector   landmark.Detector
	Personas   PersonaPicker
	Template   *prompt.Template
	Consultant consult.Consultant
	Renderer   render.Renderer
	Sessions   session.Store
	Logger     *infra.Logger
	Now        func() time.Time
	NewID      func() string
}

// Service is safe for concurrent use as long as its collaborators are.
type Service struct {
	decoder    Decoder
	detector   landmark.Detector
	personas   PersonaPicker
	template   *prompt.Template
	consultant consult.Consultant
	renderer   render.Renderer
	sessions   session.Store
	logger     *infra.Logger
	now        func() time.Time
	newID      func() string
}

// AnalyzeRequest carries one upload. SessionID is optional; when set, a
// successful analysis replaces that session.
type AnalyzeRequest struct {
	SessionID string
	Image     []byte
}

// NewService validates the wiring.
func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Decoder == nil:
		return nil, errors.New("stylist: decoder is required")
	case deps.Detector == nil:
		return nil, errors.New("stylist: landmark detector is required")
	case deps.Personas == nil:
		return nil, errors.New("stylist: persona picker is required")
	case deps.Template == nil:
		return nil, errors.New("stylist: prompt template is required")
	case deps.Consultant == nil:
		return nil, errors.New("stylist: consultant is required")
	case deps.Renderer == nil:
		return nil, errors.New("stylist: renderer is required")
	case deps.Sessions == nil:
		return nil, errors.New("stylist: session store is required")
	}
	s := &Service{
		decoder:    deps.Decoder,
		detector:   deps.Detector,
		personas:   deps.Personas,
		template:   deps.Template,
		consultant: deps.Consultant,
		renderer:   deps.Renderer,
		sessions:   deps.Sessions,
		logger:     deps.Logger,
		now:        deps.Now,
		newID:      deps.NewID,
	}
	if s.logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		s.logger = &l
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// Analyze runs the full consultation and stores the result. On failure the
// previously stored session, if any, is left as it was.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (domain.Session, error) {
	start := s.now()
	img, err := s.decoder.Decode(req.Image)
	if err != nil {
		return domain.Session{}, err
	}
	landmarks, err := s.detector.Detect(ctx, img)
	if err != nil {
		return domain.Session{}, err
	}
	ratio, err := facegeo.Ratio(landmarks, img.Width, img.Height)
	if err != nil {
		return domain.Session{}, err
	}
	persona := s.personas.Pick()
	instruction := s.template.Render(persona, ratio)

	report, err := s.consultant.Consult(ctx, instruction, img)
	if err != nil {
		return domain.Session{}, err
	}
	result := recommend.Extract(report)

	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		id = s.newID()
	}
	now := s.now()
	sess := domain.Session{
		ID:        id,
		ImageData: img.Data,
		ImageMIME: img.MIME,
		Persona:   persona,
		Ratio:     ratio,
		Consultation: &domain.Consultation{
			Report:      report,
			CleanReport: recommend.Clean(report, result),
			Hairstyle:   result.Name,
			Strategy:    string(result.Strategy),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("stylist: store session: %w", err)
	}
	s.logger.Info().
		Str("session_id", id).
		Str("persona", persona.Name).
		Str("ratio", ratio.Format()).
		Str("hairstyle", result.Name).
		Str("strategy", string(result.Strategy)).
		Dur("elapsed", now.Sub(start)).
		Msg("consultation stored")
	return sess, nil
}

// Visualize renders the stored hairstyle onto the stored portrait.
func (s *Service) Visualize(ctx context.Context, sessionID string) (domain.Visualization, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return domain.Visualization{}, domain.NewError(domain.KindStaleSession, "session expired, upload again", err)
	}
	if err != nil {
		return domain.Visualization{}, err
	}
	if sess.Consultation == nil {
		return domain.Visualization{}, domain.NewError(domain.KindStaleSession, "no consultation in session, analyze first", nil)
	}
	if !sess.HasImage() {
		return domain.Visualization{}, domain.NewError(domain.KindStaleSession, "session holds no image, upload again", nil)
	}
	vis, err := s.renderer.Render(ctx, sess.ImageData, sess.ImageMIME, sess.Consultation.Hairstyle)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("visualization failed")
		return domain.Visualization{}, err
	}
	return vis, nil
}

// Session returns the stored bundle or session.ErrNotFound.
func (s *Service) Session(ctx context.Context, id string) (domain.Session, error) {
	return s.sessions.Get(ctx, id)
}

// Forget drops the stored bundle, image bytes included. Unknown IDs are not an
// error.
func (s *Service) Forget(ctx context.Context, id string) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("stylist: delete session: %w", err)
	}
	s.logger.Info().Str("session_id", id).Msg("session deleted")
	return nil
}
