// Package app wires configuration into a ready pipeline. Both the HTTP
// server and the CLI build their service through here.
package app

import (
	"context"
	"fmt"

	"styliq/internal/domain"
	"styliq/internal/imaging"
	"styliq/internal/infra"
	"styliq/internal/persona"
	"styliq/internal/providers/consult"
	"styliq/internal/providers/landmark"
	"styliq/internal/providers/render"
	"styliq/internal/session"
	"styliq/internal/stylist"
)

// Components is everything a surface needs at runtime.
type Components struct {
	Service  *stylist.Service
	Personas []domain.Persona
	Renderer *render.ReplicateRenderer
	closers  []func() error
}

// Close releases external connections.
func (c *Components) Close() error {
	var first error
	for _, fn := range c.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build constructs every provider from cfg. A Redis address selects the Redis
// session store, otherwise sessions live in memory.
func Build(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Components, error) {
	var catalog []domain.Persona
	if cfg.PersonaCatalogPath != "" {
		loaded, err := persona.LoadCatalog(cfg.PersonaCatalogPath)
		if err != nil {
			return nil, domain.NewError(domain.KindConfig, "load persona catalog", err)
		}
		catalog = loaded
	}
	selector, err := persona.NewSelector(persona.Options{Catalog: catalog, Fixed: cfg.PersonaFixed})
	if err != nil {
		return nil, domain.NewError(domain.KindConfig, "persona selector", err)
	}

	detector, err := landmark.NewClient(landmark.Options{
		Addr:    cfg.LandmarkAddr,
		Timeout: cfg.LandmarkTimeout,
		Logger:  infra.Component(logger, "landmark"),
	})
	if err != nil {
		return nil, domain.NewError(domain.KindConfig, "landmark sidecar address", err)
	}

	temperature := cfg.ConsultTemperature
	consultant, err := consult.NewGeminiConsultant(ctx, consult.Options{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		Temperature: &temperature,
		MaxAttempts: cfg.ConsultMaxAttempts,
		Logger:      infra.Component(logger, "consult"),
	})
	if err != nil {
		return nil, err
	}

	renderer := render.NewReplicateRenderer(render.Options{
		APIToken: cfg.ReplicateAPIToken,
		BaseURL:  cfg.ReplicateBaseURL,
		Model:    cfg.ReplicateModel,
		Timeout:  cfg.RenderTimeout,
		Logger:   infra.Component(logger, "render"),
	})
	if !renderer.Configured() {
		logger.Warn().Msg("REPLICATE_API_TOKEN not set, visualization disabled")
	}

	comps := &Components{Personas: selector.Catalog(), Renderer: renderer}

	var store session.Store
	if cfg.RedisAddr != "" {
		redisStore, err := session.NewRedisStore(ctx, session.RedisOptions{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		})
		if err != nil {
			return nil, domain.NewError(domain.KindConfig, fmt.Sprintf("connect redis %s", cfg.RedisAddr), err)
		}
		comps.closers = append(comps.closers, redisStore.Close)
		store = redisStore
	} else {
		store = session.NewMemoryStore(cfg.SessionTTL)
	}

	svc, err := stylist.NewService(stylist.Deps{
		Decoder:    imaging.NewDecoder(cfg.ImageMaxWidth),
		Detector:   detector,
		Personas:   selector,
		Template:   cfg.Template,
		Consultant: consultant,
		Renderer:   renderer,
		Sessions:   store,
		Logger:     infra.Component(logger, "stylist"),
	})
	if err != nil {
		_ = comps.Close()
		return nil, err
	}
	comps.Service = svc
	logger.Info().
		Str("gemini_model", consultant.Model()).
		Str("render_model", renderer.Model()).
		Int("personas", len(comps.Personas)).
		Bool("redis_sessions", cfg.RedisAddr != "").
		Msg("pipeline ready")
	return comps, nil
}
