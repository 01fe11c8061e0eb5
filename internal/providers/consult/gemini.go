package consult

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"styliq/internal/domain"
	"styliq/internal/infra"
)

const (
	defaultModel       = "gemini-2.5-flash"
	defaultTemperature = float32(0.2)
	defaultMaxAttempts = 2
	defaultBackoff     = time.Second
)

// Consultant sends the rendered instruction plus the portrait to a hosted
// multimodal model and returns its free-text report.
type Consultant interface {
	Consult(ctx context.Context, instruction string, img *domain.Image) (string, error)
}

// contentGenerator is the slice of *genai.Models the consultant needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures the Gemini consultant.
type Options struct {
	APIKey string
	Model  string
	// Temperature defaults to 0.2 when nil and is clamped to [0, 1].
	Temperature *float32
	// MaxAttempts bounds the number of calls for transient failures.
	MaxAttempts int
	Backoff     time.Duration
	Logger      *infra.Logger
}

// GeminiConsultant calls Models.GenerateContent once per attempt.
type GeminiConsultant struct {
	models      contentGenerator
	model       string
	temperature float32
	maxAttempts int
	backoff     time.Duration
	logger      *infra.Logger
}

// NewGeminiConsultant builds the genai client. A missing key is an AuthError.
func NewGeminiConsultant(ctx context.Context, opts Options) (*GeminiConsultant, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, domain.NewError(domain.KindAuth, "GEMINI_API_KEY is missing", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindConfig, "create gemini client", err)
	}
	return newConsultant(client.Models, opts), nil
}

func newConsultant(models contentGenerator, opts Options) *GeminiConsultant {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = min(max(*opts.Temperature, 0), 1)
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &GeminiConsultant{
		models:      models,
		model:       model,
		temperature: temperature,
		maxAttempts: attempts,
		backoff:     backoff,
		logger:      logger,
	}
}

// Model returns the configured model identifier.
func (c *GeminiConsultant) Model() string {
	return c.model
}

// Consult sends one user content: the instruction text followed by the image.
func (c *GeminiConsultant) Consult(ctx context.Context, instruction string, img *domain.Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", domain.NewError(domain.KindModel, "no image to send", nil)
	}
	mime := img.MIME
	if mime == "" {
		mime = "image/jpeg"
	}
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromText(instruction),
			genai.NewPartFromBytes(img.Data, mime),
		},
	}}
	temperature := c.temperature
	config := &genai.GenerateContentConfig{Temperature: &temperature}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * c.backoff
			c.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("wait", wait).Msg("retrying consultation")
			select {
			case <-ctx.Done():
				return "", domain.NewError(domain.KindModel, "consultation cancelled", ctx.Err())
			case <-time.After(wait):
			}
		}
		start := time.Now()
		resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
		if err != nil {
			lastErr = classify(err)
			if ctx.Err() != nil || !isTransient(err) || errors.Is(lastErr, domain.ErrAuth) {
				return "", lastErr
			}
			continue
		}
		text := responseText(resp)
		c.logger.Info().
			Str("model", c.model).
			Int("attempt", attempt).
			Dur("latency", time.Since(start)).
			Int("chars", len(text)).
			Msg("consultation completed")
		if strings.TrimSpace(text) == "" {
			return "", domain.NewError(domain.KindEmptyResponse, "model returned no text", nil)
		}
		return text, nil
	}
	return "", lastErr
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought || part.Text == "" {
				continue
			}
			b.WriteString(part.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

func classify(err error) error {
	if isAuthFailure(err) {
		return domain.NewError(domain.KindAuth, "gemini rejected the credentials", err)
	}
	return domain.NewError(domain.KindModel, "consultation failed", err)
}

func isAuthFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"401", "403", "api key not valid", "api_key_invalid", "permission_denied", "unauthenticated"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"429", "quota", "resource_exhausted", "500", "502", "503", "504", "unavailable", "deadline", "timeout"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

var _ Consultant = (*GeminiConsultant)(nil)
