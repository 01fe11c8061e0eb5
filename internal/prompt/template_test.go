package prompt

import (
	"errors"
	"strings"
	"testing"

	"styliq/internal/domain"
)

const sampleTemplate = `You are {s_name}, a {s_role} with a {s_style} eye and a {s_tone} voice.
The client's face ratio is {ratio}. {s_name} answers in JSON-ish blocks like {{"cut": "..."}}.
End with a line HAIRSTYLE_NAME: [insert name].`

func TestTemplateRenderSubstitutesEveryPlaceholder(t *testing.T) {
	tpl, err := Parse(sampleTemplate)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	casey := domain.Persona{Name: "CASEY", Role: "Geometric Architect", Style: "Structural", Tone: "Sharp"}
	out := tpl.Render(casey, domain.FaceRatio(1.4549))

	for _, want := range []string{
		"You are CASEY, a Geometric Architect with a Structural eye and a Sharp voice.",
		"face ratio is 1.45.",
		"CASEY answers",
		`{"cut": "..."}`,
		"HAIRSTYLE_NAME: [insert name]",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered prompt missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "{s_") || strings.Contains(out, "{ratio}") {
		t.Fatalf("unresolved placeholder left in output:\n%s", out)
	}
}

func TestParseRejectsBadTemplates(t *testing.T) {
	tests := map[string]string{
		"empty":          "   ",
		"missing ratio":  "{s_name} {s_role} {s_style} {s_tone}",
		"unknown token":  "{s_name} {s_role} {s_style} {s_tone} {ratio} {client}",
		"unclosed brace": "{s_name} {s_role} {s_style} {s_tone} {ratio",
		"stray closer":   "{s_name} {s_role} {s_style} {s_tone} {ratio} }",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(raw)
			if !errors.Is(err, domain.ErrTemplate) {
				t.Fatalf("Parse error = %v, want TemplateError", err)
			}
		})
	}
}
