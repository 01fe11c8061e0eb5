// Package imaging turns uploaded bytes into the RGB buffer consumed by the
// landmark detector and the payload sent to hosted models.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"

	"styliq/internal/domain"
)

// DefaultMaxWidth bounds the width handed to downstream models.
const DefaultMaxWidth = 1024

// DefaultMaxPixels caps the declared dimensions accepted before a full
// decode.
const DefaultMaxPixels = 40_000_000

const reencodeQuality = 90

// Decoder decodes uploads and optionally bounds their width. MaxPixels
// rejects images whose header declares more pixels than that.
type Decoder struct {
	MaxWidth  int
	MaxPixels int
}

// NewDecoder returns a decoder that downsizes anything wider than maxWidth.
// A non-positive maxWidth falls back to DefaultMaxWidth.
func NewDecoder(maxWidth int) *Decoder {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	return &Decoder{MaxWidth: maxWidth, MaxPixels: DefaultMaxPixels}
}

// Decode parses JPEG or PNG bytes. Other formats fail with a DecodeError.
func (d *Decoder) Decode(data []byte) (*domain.Image, error) {
	if len(data) == 0 {
		return nil, domain.NewError(domain.KindDecode, "image is empty", nil)
	}
	conf, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewError(domain.KindDecode, "image decode failed", err)
	}
	mime, ok := mimeForFormat(format)
	if !ok {
		return nil, domain.NewError(domain.KindDecode, "unsupported image format "+format, nil)
	}
	maxPixels := d.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if conf.Width <= 0 || conf.Height <= 0 || int64(conf.Width)*int64(conf.Height) > int64(maxPixels) {
		return nil, domain.NewError(domain.KindDecode,
			fmt.Sprintf("image dimensions %dx%d out of range", conf.Width, conf.Height), nil)
	}

	var img image.Image
	switch format {
	case "jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "png":
		img, err = png.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, domain.NewError(domain.KindDecode, "image decode failed", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, domain.NewError(domain.KindDecode, "image has no pixels", nil)
	}

	payload := data
	maxWidth := d.MaxWidth
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if bounds.Dx() > maxWidth {
		img = resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)
		payload, err = encodeJPEG(img)
		if err != nil {
			return nil, domain.NewError(domain.KindDecode, "image re-encode failed", err)
		}
		mime = "image/jpeg"
	}

	rgb, w, h := toRGB(img)
	return &domain.Image{
		Width:    w,
		Height:   h,
		Channels: 3,
		Pix:      rgb,
		Data:     payload,
		MIME:     mime,
	}, nil
}

// Decode uses a decoder with the default width bound.
func Decode(data []byte) (*domain.Image, error) {
	return NewDecoder(DefaultMaxWidth).Decode(data)
}

func mimeForFormat(format string) (string, bool) {
	switch format {
	case "jpeg":
		return "image/jpeg", true
	case "png":
		return "image/png", true
	default:
		return "", false
	}
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: reencodeQuality}); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, errors.New("empty jpeg output")
	}
	return buf.Bytes(), nil
}

func toRGB(img image.Image) ([]byte, int, int) {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	out := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		for x := 0; x < w; x++ {
			out = append(out, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return out, w, h
}
