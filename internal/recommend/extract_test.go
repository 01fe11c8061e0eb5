package recommend

import (
	"net/url"
	"strings"
	"testing"

	"styliq/internal/domain"
)

func TestExtractMarker(t *testing.T) {
	report := "Your oval face suits volume at the jaw.\n\nHAIRSTYLE_NAME: Soft Layered Bob\n"
	got := Extract(report)
	if !got.Found || got.Name != "Soft Layered Bob" || got.Strategy != StrategyMarker {
		t.Fatalf("Extract = %+v, want Soft Layered Bob via marker", got)
	}
}

func TestExtractMarkerStripsEmphasis(t *testing.T) {
	got := Extract("**HAIRSTYLE_NAME: Curtain Fringe**")
	if got.Name != "Curtain Fringe" {
		t.Fatalf("Name = %q, want Curtain Fringe", got.Name)
	}
}

func TestExtractPlaceholderFallsBackToDefault(t *testing.T) {
	got := Extract("Great bones.\nHAIRSTYLE_NAME: [insert name]\n")
	if got.Found || got.Name != domain.DefaultHairstyleName || got.Strategy != StrategyDefault {
		t.Fatalf("Extract = %+v, want default sentinel", got)
	}
}

func TestExtractLastMarkerWins(t *testing.T) {
	report := strings.Join([]string{
		"HAIRSTYLE_NAME: Buzz Cut",
		"On reflection, something softer.",
		"HAIRSTYLE_NAME: Textured Quiff",
		"HAIRSTYLE_NAME: [name]",
	}, "\n")
	if got := Extract(report).Name; got != "Textured Quiff" {
		t.Fatalf("Name = %q, want Textured Quiff", got)
	}
}

func TestExtractHeadingFallback(t *testing.T) {
	report := "### 1. Analysis\nStrong jaw.\n\n### 3. Recommendation\n\n**Textured Crop** keeps the sides tight.\n"
	got := Extract(report)
	if !got.Found || got.Name != "Textured Crop" || got.Strategy != StrategyHeading {
		t.Fatalf("Extract = %+v, want Textured Crop via heading", got)
	}
}

func TestExtractHeadingWithoutBoldUsesDefault(t *testing.T) {
	got := Extract("## Recommendation\nGo shorter on the sides.\n**Undercut**")
	if got.Found {
		t.Fatalf("Extract = %+v, want default", got)
	}
}

func TestExtractEmptyReport(t *testing.T) {
	if got := Extract(""); got.Name != domain.DefaultHairstyleName {
		t.Fatalf("Name = %q", got.Name)
	}
}

func TestClean(t *testing.T) {
	report := "Looks great.\nHAIRSTYLE_NAME: Soft Layered Bob\nThanks!"
	got := Clean(report, Extract(report))
	if strings.Contains(got, "HAIRSTYLE_NAME") {
		t.Fatalf("marker not removed: %q", got)
	}
	if got != "Looks great.\n\nThanks!" {
		t.Fatalf("report body altered: %q", got)
	}
}

func TestCleanRemovesEmphasizedMarker(t *testing.T) {
	tests := []struct {
		name   string
		report string
		want   string
	}{
		{"bold value", "Bold choice.\nHAIRSTYLE_NAME: **Curtain Fringe**\nEnjoy.", "Bold choice.\n\nEnjoy."},
		{"bold line", "Bold choice.\n**HAIRSTYLE_NAME: Curtain Fringe**  \nEnjoy.", "Bold choice.\n  \nEnjoy."},
		{"code value", "HAIRSTYLE_NAME: `Curtain Fringe`", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Extract(tc.report)
			if res.Name != "Curtain Fringe" {
				t.Fatalf("Name = %q, want Curtain Fringe", res.Name)
			}
			if got := Clean(tc.report, res); got != tc.want {
				t.Fatalf("Clean = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCleanWithoutMarkerLeavesReport(t *testing.T) {
	report := "## Recommendation\n**Textured Crop** suits you."
	if got := Clean(report, Extract(report)); got != report {
		t.Fatalf("Clean = %q, want report unchanged", got)
	}
}

func TestSearchURL(t *testing.T) {
	want := "https://www.pinterest.com/search/pins/?q=Soft+Layered+Bob+hairstyle"
	if got := SearchURL("Soft Layered Bob"); got != want {
		t.Fatalf("SearchURL = %q, want %q", got, want)
	}
}

func TestSearchURLEscapesQueryDelimiters(t *testing.T) {
	raw := SearchURL("Wash & Go + Curls")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	if got := u.Query().Get("q"); got != "Wash & Go + Curls hairstyle" {
		t.Fatalf("q = %q from %q", got, raw)
	}
	if len(u.Query()) != 1 {
		t.Fatalf("query split into %v", u.Query())
	}
}
