package domain

import (
	"fmt"
	"time"
)

// DefaultHairstyleName is shown when no recommendation can be extracted from
// a report.
const DefaultHairstyleName = "New Look"

// Face mesh indices consulted by the ratio calculator.
const (
	LandmarkForehead  = 10
	LandmarkChin      = 152
	LandmarkLeftEdge  = 234
	LandmarkRightEdge = 454
)

// Image is a decoded upload. Pix holds RGB bytes, row-major, 3 channels.
// Data and MIME are what the hosted models receive.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
	Data     []byte
	MIME     string
}

// Point is a landmark in normalized image coordinates.
type Point struct {
	X float64
	Y float64
}

// LandmarkSet is the ordered landmark list of a single face.
type LandmarkSet []Point

// Has reports whether idx is populated.
func (s LandmarkSet) Has(idx int) bool {
	return idx >= 0 && idx < len(s)
}

// FaceRatio is face length divided by face width, in pixels.
type FaceRatio float64

// Format renders the ratio the way it is embedded in prompts.
func (r FaceRatio) Format() string {
	return fmt.Sprintf("%.2f", float64(r))
}

// Persona is a stylist profile used to flavour the consultation.
type Persona struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Style  string `json:"style"`
	Tone   string `json:"tone"`
	Avatar string `json:"avatar"`
}

// Consultation is the outcome of a successful hosted model call.
type Consultation struct {
	Report      string `json:"report"`
	CleanReport string `json:"clean_report"`
	Hairstyle   string `json:"hairstyle"`
	Strategy    string `json:"strategy"`
}

// Visualization references a rendered try-on image.
type Visualization struct {
	ImageURL string `json:"image_url"`
	Prompt   string `json:"prompt"`
	Model    string `json:"model"`
}

// Session bundles everything one analysis produced. It is replaced
// wholesale by the next successful analysis.
type Session struct {
	ID           string        `json:"id"`
	// ImageData is the payload the hosted models received: the upload as sent,
	// or its JPEG re-encode when the upload was wider than the decoder bound.
	ImageData    []byte        `json:"image_data"`
	ImageMIME    string        `json:"image_mime"`
	Persona      Persona       `json:"persona"`
	Ratio        FaceRatio     `json:"ratio"`
	Consultation *Consultation `json:"consultation,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// HasImage reports whether the image payload is still retained.
func (s Session) HasImage() bool {
	return len(s.ImageData) > 0
}
