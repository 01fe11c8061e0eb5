package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := NewError(KindNoFace, "no face detected", nil)
	wrapped := fmt.Errorf("analyze: %w", err)

	if !errors.Is(wrapped, ErrNoFaceDetected) {
		t.Fatalf("errors.Is(%v, ErrNoFaceDetected) = false", wrapped)
	}
	if errors.Is(wrapped, ErrAnalysis) {
		t.Fatalf("no-face error must not match ErrAnalysis")
	}
	if got := KindOf(wrapped); got != KindNoFace {
		t.Fatalf("KindOf = %q, want %q", got, KindNoFace)
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("quota exhausted")
	err := NewError(KindModel, "consultation failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable through Unwrap")
	}
	if got, want := err.Error(), "model_error: consultation failed: quota exhausted"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(NewError(KindStaleSession, "please re-upload your photo", nil)); got != "please re-upload your photo" {
		t.Fatalf("MessageOf = %q", got)
	}
	if got := MessageOf(errors.New("plain")); got != "plain" {
		t.Fatalf("MessageOf(plain) = %q", got)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Fatalf("KindOf(plain) = %q, want empty", got)
	}
}

func TestFaceRatioFormat(t *testing.T) {
	if got := FaceRatio(1.4549).Format(); got != "1.45" {
		t.Fatalf("Format = %q, want 1.45", got)
	}
}
