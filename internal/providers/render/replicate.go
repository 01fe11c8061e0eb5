package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"styliq/internal/domain"
	"styliq/internal/infra"
)

// DefaultModel is the InstantID identity-preserving portrait model.
const DefaultModel = "zedge/instantid:ba2d5293be8794a05841a6f6eed81e810340142c3c25fab4838ff2b5d9574420"

const negativePrompt = "bald, distorted, bad eyes, low quality, illustration"

// Renderer produces a try-on portrait for a hairstyle.
type Renderer interface {
	Render(ctx context.Context, image []byte, mime, hairstyle string) (domain.Visualization, error)
}

// Options configures the Replicate renderer.
type Options struct {
	APIToken     string
	BaseURL      string
	Model        string
	HTTPClient   *http.Client
	PollInterval time.Duration
	// Timeout bounds the whole render including upload and polling.
	Timeout time.Duration
	Logger  *infra.Logger
}

// ReplicateRenderer drives the Replicate HTTP API: scoped file upload,
// prediction, polling and cleanup.
type ReplicateRenderer struct {
	token        string
	baseURL      string
	model        string
	httpClient   *http.Client
	pollInterval time.Duration
	timeout      time.Duration
	logger       *infra.Logger
}

type fileResponse struct {
	ID   string `json:"id"`
	URLs struct {
		Get string `json:"get"`
	} `json:"urls"`
}

type predictionRequest struct {
	Version string          `json:"version,omitempty"`
	Input   predictionInput `json:"input"`
}

type predictionInput struct {
	Image                       string  `json:"image"`
	Prompt                      string  `json:"prompt"`
	NegativePrompt              string  `json:"negative_prompt"`
	IPAdapterScale              float64 `json:"ip_adapter_scale"`
	ControlnetConditioningScale float64 `json:"controlnet_conditioning_scale"`
	NumInferenceSteps           int     `json:"num_inference_steps"`
	GuidanceScale               float64 `json:"guidance_scale"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

type apiError struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
}

// NewReplicateRenderer applies defaults. A missing token is not an error here;
// Render reports it so the consultation path keeps working.
func NewReplicateRenderer(opts Options) *ReplicateRenderer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &ReplicateRenderer{
		token:        strings.TrimSpace(opts.APIToken),
		baseURL:      baseURL,
		model:        model,
		httpClient:   httpClient,
		pollInterval: poll,
		timeout:      timeout,
		logger:       logger,
	}
}

// Configured reports whether a token is present.
func (r *ReplicateRenderer) Configured() bool {
	return r.token != ""
}

// Model returns the configured model reference.
func (r *ReplicateRenderer) Model() string {
	return r.model
}

// Prompt builds the positive prompt for a hairstyle.
func Prompt(hairstyle string) string {
	return fmt.Sprintf("portrait of a person, %s hairstyle, photorealistic, 8k", hairstyle)
}

// Render uploads the portrait, runs one prediction and returns the first
// output URL. The uploaded file is deleted on every exit path.
func (r *ReplicateRenderer) Render(ctx context.Context, image []byte, mime, hairstyle string) (domain.Visualization, error) {
	if len(image) == 0 {
		return domain.Visualization{}, domain.NewError(domain.KindStaleSession, "no stored image, upload again", nil)
	}
	if !r.Configured() {
		return domain.Visualization{}, domain.NewError(domain.KindRender, "visualization not configured", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	file, err := r.upload(ctx, image, mime)
	if err != nil {
		return domain.Visualization{}, domain.NewError(domain.KindRender, "upload portrait", err)
	}
	defer r.deleteFile(ctx, file.ID)

	prompt := Prompt(hairstyle)
	pred, err := r.createPrediction(ctx, predictionInput{
		Image:                       file.URLs.Get,
		Prompt:                      prompt,
		NegativePrompt:              negativePrompt,
		IPAdapterScale:              0.8,
		ControlnetConditioningScale: 0.8,
		NumInferenceSteps:           30,
		GuidanceScale:               5,
	})
	if err != nil {
		return domain.Visualization{}, domain.NewError(domain.KindRender, "create prediction", err)
	}
	pred, err = r.wait(ctx, pred)
	if err != nil {
		return domain.Visualization{}, domain.NewError(domain.KindRender, "prediction did not finish", err)
	}
	imageURL, err := firstOutput(pred.Output)
	if err != nil {
		return domain.Visualization{}, domain.NewError(domain.KindRender, "read prediction output", err)
	}
	r.logger.Info().
		Str("model", r.model).
		Str("prediction_id", pred.ID).
		Str("hairstyle", hairstyle).
		Msg("visualization rendered")
	return domain.Visualization{ImageURL: imageURL, Prompt: prompt, Model: r.model}, nil
}

func (r *ReplicateRenderer) upload(ctx context.Context, image []byte, mime string) (*fileResponse, error) {
	if mime == "" {
		mime = "image/jpeg"
	}
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="content"; filename="portrait"`)
	header.Set("Content-Type", mime)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/files", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	var file fileResponse
	if err := r.do(req, &file); err != nil {
		return nil, err
	}
	if file.ID == "" || file.URLs.Get == "" {
		return nil, errors.New("replicate: file response missing id or url")
	}
	return &file, nil
}

func (r *ReplicateRenderer) deleteFile(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.baseURL+"/files/"+id, nil)
	if err != nil {
		return
	}
	if err := r.do(req, nil); err != nil {
		r.logger.Warn().Err(err).Str("file_id", id).Msg("replicate: delete uploaded file")
	}
}

func (r *ReplicateRenderer) createPrediction(ctx context.Context, input predictionInput) (*prediction, error) {
	endpoint := r.baseURL + "/predictions"
	payload := predictionRequest{Input: input}
	name, version, hasVersion := strings.Cut(r.model, ":")
	if hasVersion {
		payload.Version = version
	} else {
		endpoint = r.baseURL + "/models/" + name + "/predictions"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")
	var pred prediction
	if err := r.do(req, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

func (r *ReplicateRenderer) wait(ctx context.Context, pred *prediction) (*prediction, error) {
	for {
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			return nil, fmt.Errorf("replicate: prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
		}
		if pred.URLs.Get == "" {
			return nil, fmt.Errorf("replicate: prediction %s has no poll url", pred.ID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollInterval):
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pred.URLs.Get, nil)
		if err != nil {
			return nil, err
		}
		var next prediction
		if err := r.do(req, &next); err != nil {
			return nil, err
		}
		pred = &next
	}
}

func (r *ReplicateRenderer) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+r.token)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("replicate: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail apiError
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
			return fmt.Errorf("replicate: status %d: %s", resp.StatusCode, detail.Detail)
		}
		return fmt.Errorf("replicate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("replicate: decode response: %w", err)
	}
	return nil
}

// firstOutput accepts either a list of URLs or a bare URL string.
func firstOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("replicate: empty output")
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if s := strings.TrimSpace(item); s != "" {
				return s, nil
			}
		}
		return "", errors.New("replicate: empty output")
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && strings.TrimSpace(single) != "" {
		return strings.TrimSpace(single), nil
	}
	return "", fmt.Errorf("replicate: unexpected output %s", string(raw))
}

var _ Renderer = (*ReplicateRenderer)(nil)
