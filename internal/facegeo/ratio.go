// Package facegeo derives the face-shape ratio fed to the consultation
// prompt.
package facegeo

import (
	"fmt"
	"math"

	"styliq/internal/domain"
)

// Ratio returns face length over face width. Both spans are Euclidean
// distances between landmarks scaled to pixels: forehead to chin, and left
// face edge to right face edge.
func Ratio(set domain.LandmarkSet, width, height int) (domain.FaceRatio, error) {
	if width <= 0 || height <= 0 {
		return 0, domain.NewError(domain.KindAnalysis, "invalid image size",
			fmt.Errorf("%dx%d", width, height))
	}
	for _, idx := range []int{domain.LandmarkForehead, domain.LandmarkChin, domain.LandmarkLeftEdge, domain.LandmarkRightEdge} {
		if !set.Has(idx) {
			return 0, domain.NewError(domain.KindAnalysis, "missing landmark",
				fmt.Errorf("index %d not in set of %d", idx, len(set)))
		}
	}

	w, h := float64(width), float64(height)
	length := distance(set[domain.LandmarkForehead], set[domain.LandmarkChin], w, h)
	faceWidth := distance(set[domain.LandmarkLeftEdge], set[domain.LandmarkRightEdge], w, h)
	if faceWidth == 0 {
		return 0, domain.NewError(domain.KindDivision, "face width collapsed to zero", nil)
	}
	ratio := length / faceWidth
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, domain.NewError(domain.KindAnalysis, "ratio is not finite", nil)
	}
	return domain.FaceRatio(ratio), nil
}

func distance(a, b domain.Point, w, h float64) float64 {
	return math.Hypot((b.X-a.X)*w, (b.Y-a.Y)*h)
}
