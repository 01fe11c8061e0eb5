package stylist

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"styliq/internal/domain"
	"styliq/internal/imaging"
	"styliq/internal/persona"
	"styliq/internal/prompt"
	"styliq/internal/session"
)

const testTemplate = "You are {s_name} ({s_role}, {s_style}, {s_tone}). Face ratio {ratio}. End with HAIRSTYLE_NAME: [insert name]."

type stubDetector struct {
	calls int
	set   domain.LandmarkSet
	err   error
}

func (d *stubDetector) Detect(context.Context, *domain.Image) (domain.LandmarkSet, error) {
	d.calls++
	return d.set, d.err
}

type stubConsultant struct {
	calls       int
	instruction string
	report      string
	err         error
}

func (c *stubConsultant) Consult(_ context.Context, instruction string, _ *domain.Image) (string, error) {
	c.calls++
	c.instruction = instruction
	return c.report, c.err
}

type stubRenderer struct {
	calls     int
	hairstyle string
	image     []byte
}

func (r *stubRenderer) Render(_ context.Context, image []byte, _ string, hairstyle string) (domain.Visualization, error) {
	r.calls++
	r.hairstyle = hairstyle
	r.image = image
	return domain.Visualization{ImageURL: "https://replicate.delivery/out.png", Prompt: "portrait of a person, " + hairstyle + " hairstyle"}, nil
}

// faceLandmarks yields a 1.45 ratio on a square image.
func faceLandmarks() domain.LandmarkSet {
	set := make(domain.LandmarkSet, 468)
	set[domain.LandmarkForehead] = domain.Point{X: 0.5, Y: 0.1}
	set[domain.LandmarkChin] = domain.Point{X: 0.5, Y: 0.68}
	set[domain.LandmarkLeftEdge] = domain.Point{X: 0.3, Y: 0.4}
	set[domain.LandmarkRightEdge] = domain.Point{X: 0.7, Y: 0.4}
	return set
}

func portraitPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 180, G: 140, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

type fixture struct {
	svc        *Service
	detector   *stubDetector
	consultant *stubConsultant
	renderer   *stubRenderer
	store      session.Store
}

func newFixture(t *testing.T, store session.Store) *fixture {
	t.Helper()
	tpl, err := prompt.Parse(testTemplate)
	if err != nil {
		t.Fatalf("prompt.Parse: %v", err)
	}
	sel, err := persona.NewSelector(persona.Options{Fixed: "CASEY"})
	if err != nil {
		t.Fatalf("persona.NewSelector: %v", err)
	}
	f := &fixture{
		detector:   &stubDetector{set: faceLandmarks()},
		consultant: &stubConsultant{report: "Angular features.\nHAIRSTYLE_NAME: Sharp Pixie\n"},
		renderer:   &stubRenderer{},
		store:      store,
	}
	f.svc, err = NewService(Deps{
		Decoder:    imaging.NewDecoder(0),
		Detector:   f.detector,
		Personas:   sel,
		Template:   tpl,
		Consultant: f.consultant,
		Renderer:   f.renderer,
		Sessions:   store,
		NewID:      func() string { return "sess-1" },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return f
}

func TestAnalyzeEndToEnd(t *testing.T) {
	f := newFixture(t, session.NewMemoryStore(time.Minute))
	data := portraitPNG(t)

	sess, err := f.svc.Analyze(context.Background(), AnalyzeRequest{Image: data})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if sess.ID != "sess-1" || sess.Persona.Name != "CASEY" || sess.Ratio.Format() != "1.45" {
		t.Fatalf("unexpected session: id=%s persona=%s ratio=%s", sess.ID, sess.Persona.Name, sess.Ratio.Format())
	}
	for _, want := range []string{"You are CASEY (Geometric Architect, Structural, Sharp)", "Face ratio 1.45."} {
		if !strings.Contains(f.consultant.instruction, want) {
			t.Fatalf("instruction %q missing %q", f.consultant.instruction, want)
		}
	}
	c := sess.Consultation
	if c.Hairstyle != "Sharp Pixie" || c.Strategy != "marker" {
		t.Fatalf("consultation = %+v", c)
	}
	if strings.Contains(c.CleanReport, "HAIRSTYLE_NAME") {
		t.Fatalf("clean report still carries the marker: %q", c.CleanReport)
	}
	if !bytes.Equal(sess.ImageData, data) || sess.ImageMIME != "image/png" {
		t.Fatalf("original upload not retained")
	}

	vis, err := f.svc.Visualize(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Visualize returned error: %v", err)
	}
	if f.renderer.hairstyle != "Sharp Pixie" || !bytes.Equal(f.renderer.image, data) {
		t.Fatalf("renderer got hairstyle=%q", f.renderer.hairstyle)
	}
	if !strings.Contains(vis.Prompt, "Sharp Pixie hairstyle") {
		t.Fatalf("prompt = %q", vis.Prompt)
	}
}

func TestAnalyzeNoFaceNeverReachesConsultant(t *testing.T) {
	f := newFixture(t, session.NewMemoryStore(time.Minute))
	f.detector.set = nil
	f.detector.err = domain.NewError(domain.KindNoFace, "no face found", nil)

	_, err := f.svc.Analyze(context.Background(), AnalyzeRequest{Image: portraitPNG(t)})
	if !errors.Is(err, domain.ErrNoFaceDetected) {
		t.Fatalf("err = %v, want NoFaceDetected", err)
	}
	if f.consultant.calls != 0 {
		t.Fatalf("consultant called %d times", f.consultant.calls)
	}
}

func TestAnalyzeRejectsUndecodableUpload(t *testing.T) {
	f := newFixture(t, session.NewMemoryStore(time.Minute))
	_, err := f.svc.Analyze(context.Background(), AnalyzeRequest{Image: []byte("not an image")})
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if f.detector.calls != 0 {
		t.Fatalf("detector called on bad upload")
	}
}

func TestAnalyzeFailureKeepsPreviousSession(t *testing.T) {
	f := newFixture(t, session.NewMemoryStore(time.Minute))
	ctx := context.Background()
	if _, err := f.svc.Analyze(ctx, AnalyzeRequest{Image: portraitPNG(t)}); err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	f.consultant.err = domain.NewError(domain.KindModel, "consultation failed", errors.New("503"))
	_, err := f.svc.Analyze(ctx, AnalyzeRequest{SessionID: "sess-1", Image: portraitPNG(t)})
	if !errors.Is(err, domain.ErrModel) {
		t.Fatalf("err = %v, want ModelError", err)
	}
	sess, err := f.svc.Session(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.Consultation == nil || sess.Consultation.Hairstyle != "Sharp Pixie" {
		t.Fatalf("previous consultation lost: %+v", sess.Consultation)
	}
}

func TestAnalyzeDefaultsHairstyleWhenUntagged(t *testing.T) {
	f := newFixture(t, session.NewMemoryStore(time.Minute))
	f.consultant.report = "Lovely symmetry. HAIRSTYLE_NAME: [insert name]"
	sess, err := f.svc.Analyze(context.Background(), AnalyzeRequest{Image: portraitPNG(t)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sess.Consultation.Hairstyle != domain.DefaultHairstyleName || sess.Consultation.Strategy != "default" {
		t.Fatalf("consultation = %+v", sess.Consultation)
	}
}

func TestVisualizeAfterExpiryIsStale(t *testing.T) {
	mr := miniredis.RunT(t)
	store := session.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	f := newFixture(t, store)
	ctx := context.Background()
	if _, err := f.svc.Analyze(ctx, AnalyzeRequest{Image: portraitPNG(t)}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	_, err := f.svc.Visualize(ctx, "sess-1")
	if !errors.Is(err, domain.ErrStaleSession) {
		t.Fatalf("err = %v, want StaleSessionError", err)
	}
	if f.renderer.calls != 0 {
		t.Fatalf("renderer called after expiry")
	}
}

func TestVisualizeWithoutImageIsStale(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)
	f := newFixture(t, store)
	ctx := context.Background()
	_ = store.Put(ctx, domain.Session{
		ID:           "bare",
		Consultation: &domain.Consultation{Hairstyle: "Sharp Pixie"},
	})

	_, err := f.svc.Visualize(ctx, "bare")
	if !errors.Is(err, domain.ErrStaleSession) {
		t.Fatalf("err = %v, want StaleSessionError", err)
	}
	if f.renderer.calls != 0 {
		t.Fatalf("renderer called without an image")
	}
}

func TestForgetDropsSession(t *testing.T) {
	f := newFixture(t, session.NewMemoryStore(time.Minute))
	ctx := context.Background()
	if _, err := f.svc.Analyze(ctx, AnalyzeRequest{Image: portraitPNG(t)}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := f.svc.Forget(ctx, "sess-1"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, err := f.svc.Session(ctx, "sess-1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Visualize(ctx, "sess-1"); !errors.Is(err, domain.ErrStaleSession) {
		t.Fatalf("Visualize err = %v, want StaleSessionError", err)
	}
	if err := f.svc.Forget(ctx, "unknown"); err != nil {
		t.Fatalf("Forget unknown: %v", err)
	}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	if _, err := NewService(Deps{}); err == nil {
		t.Fatalf("expected error for empty deps")
	}
}
