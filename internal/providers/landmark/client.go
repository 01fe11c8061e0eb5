package landmark

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"styliq/internal/domain"
	"styliq/internal/infra"
)

// Detector returns the landmarks of the first face found in an image.
type Detector interface {
	Detect(ctx context.Context, img *domain.Image) (domain.LandmarkSet, error)
}

// Options configures the face mesh sidecar client.
type Options struct {
	// Addr is "unix:///path/to.sock" or "tcp://host:port". A bare path is
	// treated as a unix socket.
	Addr    string
	Timeout time.Duration
	Logger  *infra.Logger
}

// Client talks to the face mesh sidecar: one msgpack request and one msgpack
// response per connection. The sidecar runs in static image mode and is
// asked for a single face.
type Client struct {
	network string
	address string
	timeout time.Duration
	logger  *infra.Logger
}

type meshRequest struct {
	Width    int    `msgpack:"w"`
	Height   int    `msgpack:"h"`
	Data     []byte `msgpack:"d"` // RGB uint8, row-major
	MaxFaces int    `msgpack:"m"`
	Static   bool   `msgpack:"s"`
}

type meshResponse struct {
	Faces       [][]float32 `msgpack:"faces"` // per face: x0, y0, x1, y1, ...
	Error       string      `msgpack:"error"`
	InferenceMs float32     `msgpack:"inference_ms"`
}

// NewClient parses the sidecar address.
func NewClient(opts Options) (*Client, error) {
	network, address, err := parseAddr(opts.Addr)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{network: network, address: address, timeout: timeout, logger: logger}, nil
}

// Detect sends the RGB buffer to the sidecar and returns the first face.
func (c *Client) Detect(ctx context.Context, img *domain.Image) (domain.LandmarkSet, error) {
	if img == nil || len(img.Pix) == 0 {
		return nil, domain.NewError(domain.KindAnalysis, "no pixels to analyze", nil)
	}
	resp, err := c.roundTrip(ctx, meshRequest{
		Width:    img.Width,
		Height:   img.Height,
		Data:     img.Pix,
		MaxFaces: 1,
		Static:   true,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindAnalysis, "landmark detection failed", err)
	}
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return nil, domain.NewError(domain.KindAnalysis, "landmark detection failed", fmt.Errorf("sidecar: %s", msg))
	}
	if len(resp.Faces) == 0 {
		return nil, domain.NewError(domain.KindNoFace, "no face detected", nil)
	}
	if len(resp.Faces) > 1 {
		c.logger.Debug().Int("faces", len(resp.Faces)).Msg("landmark: multiple faces reported, using the first")
	}

	set := toLandmarkSet(resp.Faces[0])
	for _, idx := range []int{domain.LandmarkForehead, domain.LandmarkChin, domain.LandmarkLeftEdge, domain.LandmarkRightEdge} {
		if !set.Has(idx) {
			return nil, domain.NewError(domain.KindAnalysis, "landmark detection failed",
				fmt.Errorf("face has %d landmarks, index %d missing", len(set), idx))
		}
	}

	c.logger.Debug().
		Int("landmarks", len(set)).
		Float32("inference_ms", resp.InferenceMs).
		Msg("landmark: face detected")
	return set, nil
}

// Ping checks that the sidecar accepts connections.
func (c *Client) Ping(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, c.network, c.address)
	if err != nil {
		return fmt.Errorf("landmark: connect to sidecar: %w", err)
	}
	return conn.Close()
}

// Addr returns the resolved sidecar address.
func (c *Client) Addr() string {
	return c.network + "://" + c.address
}

func (c *Client) roundTrip(ctx context.Context, req meshRequest) (*meshResponse, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, c.network, c.address)
	if err != nil {
		return nil, fmt.Errorf("connect to sidecar: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	if err := msgpack.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	var resp meshResponse
	if err := msgpack.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &resp, nil
}

func toLandmarkSet(flat []float32) domain.LandmarkSet {
	set := make(domain.LandmarkSet, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		set = append(set, domain.Point{X: float64(flat[i]), Y: float64(flat[i+1])})
	}
	return set
}

func parseAddr(addr string) (string, string, error) {
	addr = strings.TrimSpace(addr)
	switch {
	case addr == "":
		return "", "", fmt.Errorf("landmark: sidecar address is required")
	case strings.HasPrefix(addr, "unix://"):
		return "unix", strings.TrimPrefix(addr, "unix://"), nil
	case strings.HasPrefix(addr, "tcp://"):
		return "tcp", strings.TrimPrefix(addr, "tcp://"), nil
	case strings.Contains(addr, "://"):
		return "", "", fmt.Errorf("landmark: unsupported address %q", addr)
	default:
		return "unix", addr, nil
	}
}

var _ Detector = (*Client)(nil)
