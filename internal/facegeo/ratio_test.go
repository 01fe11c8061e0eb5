package facegeo

import (
	"errors"
	"math"
	"testing"

	"styliq/internal/domain"
)

func landmarks(forehead, chin, left, right domain.Point) domain.LandmarkSet {
	set := make(domain.LandmarkSet, 468)
	set[domain.LandmarkForehead] = forehead
	set[domain.LandmarkChin] = chin
	set[domain.LandmarkLeftEdge] = left
	set[domain.LandmarkRightEdge] = right
	return set
}

func TestRatioScalesToPixels(t *testing.T) {
	// 640x480 image: length = (0.8-0.2)*480 = 288, width = (0.7-0.3)*640 = 256.
	set := landmarks(
		domain.Point{X: 0.5, Y: 0.2},
		domain.Point{X: 0.5, Y: 0.8},
		domain.Point{X: 0.3, Y: 0.5},
		domain.Point{X: 0.7, Y: 0.5},
	)
	got, err := Ratio(set, 640, 480)
	if err != nil {
		t.Fatalf("Ratio returned error: %v", err)
	}
	if math.Abs(float64(got)-1.125) > 1e-9 {
		t.Fatalf("Ratio = %v, want 1.125", got)
	}
	if got.Format() != "1.13" && got.Format() != "1.12" {
		t.Fatalf("Format = %q", got.Format())
	}
}

func TestRatioUsesEuclideanDistanceForBothSpans(t *testing.T) {
	// A tilted face: both spans have x and y components.
	set := landmarks(
		domain.Point{X: 0.4, Y: 0.1},
		domain.Point{X: 0.6, Y: 0.9},
		domain.Point{X: 0.2, Y: 0.45},
		domain.Point{X: 0.8, Y: 0.55},
	)
	got, err := Ratio(set, 1000, 1000)
	if err != nil {
		t.Fatalf("Ratio returned error: %v", err)
	}
	want := math.Hypot(200, 800) / math.Hypot(600, 100)
	if math.Abs(float64(got)-want) > 1e-9 {
		t.Fatalf("Ratio = %v, want %v", got, want)
	}
}

func TestRatioDegenerateWidth(t *testing.T) {
	p := domain.Point{X: 0.5, Y: 0.5}
	set := landmarks(domain.Point{X: 0.5, Y: 0.1}, domain.Point{X: 0.5, Y: 0.9}, p, p)
	_, err := Ratio(set, 100, 100)
	if !errors.Is(err, domain.ErrDivision) {
		t.Fatalf("err = %v, want DivisionError", err)
	}
}

func TestRatioRejectsIncompleteInput(t *testing.T) {
	if _, err := Ratio(make(domain.LandmarkSet, 100), 100, 100); !errors.Is(err, domain.ErrAnalysis) {
		t.Fatalf("short set err = %v, want AnalysisError", err)
	}
	if _, err := Ratio(make(domain.LandmarkSet, 468), 0, 100); !errors.Is(err, domain.ErrAnalysis) {
		t.Fatalf("zero width err = %v, want AnalysisError", err)
	}
}
