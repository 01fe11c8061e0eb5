package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"styliq/internal/domain"
)

func sampleSession() domain.Session {
	return domain.Session{
		ID:      "sess-1",
		Persona: domain.Persona{Name: "CASEY", Role: "Geometric Architect", Style: "Structural", Tone: "Sharp", Avatar: "📐"},
		Ratio:   1.4549,
		Consultation: &domain.Consultation{
			Report:      "Strong angles.\nHAIRSTYLE_NAME: Sharp Pixie",
			CleanReport: "Strong angles.\n",
			Hairstyle:   "Sharp Pixie",
			Strategy:    "marker",
		},
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	vis := &domain.Visualization{ImageURL: "https://replicate.delivery/out.png"}
	if err := writeReport(&buf, sampleSession(), vis); err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"CASEY", "1.45", "Sharp Pixie", "Sharp+Pixie+hairstyle", "TRY-ON", "Strong angles."} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "HAIRSTYLE_NAME") {
		t.Fatalf("marker leaked into output:\n%s", out)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, sampleSession(), nil); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	var got cliResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Ratio != "1.45" || got.HairstyleName != "Sharp Pixie" || got.ImageURL != "" {
		t.Fatalf("result = %+v", got)
	}
}

func TestAnalyzeRequiresImageFlag(t *testing.T) {
	flag := analyzeCmd.Flags().Lookup("image")
	if flag == nil {
		t.Fatalf("image flag not registered")
	}
	if _, ok := flag.Annotations[cobra.BashCompOneRequiredFlag]; !ok {
		t.Fatalf("image flag not marked required")
	}
}

func TestWriteChecksReportsFailures(t *testing.T) {
	var buf bytes.Buffer
	err := writeChecks(&buf, []checkResult{
		{name: "gemini key", status: "present"},
		{name: "landmark sidecar", status: "unix:///tmp/facemesh.sock", err: errors.New("connection refused")},
	})
	if err == nil {
		t.Fatalf("expected error for failed check")
	}
	out := buf.String()
	if !strings.Contains(out, "FAIL") || !strings.Contains(out, "connection refused") {
		t.Fatalf("output = %q", out)
	}
}
