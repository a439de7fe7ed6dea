// Package covers normalizes uploaded cover images into downscaled WebP.
package covers

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"

	"github.com/mrlokans/kitaplik/internal/apperror"
	"github.com/mrlokans/kitaplik/internal/config"
)

const (
	defaultMaxWidth = 800
	defaultQuality  = 80
)

// Processor decodes jpeg, png or webp uploads, downscales them to a maximum
// width keeping the aspect ratio and re-encodes them as lossy WebP.
type Processor struct {
	maxWidth int
	quality  float32
	maxBytes int64
}

func NewProcessor(cfg config.Covers) *Processor {
	p := &Processor{maxWidth: cfg.MaxWidth, quality: cfg.Quality, maxBytes: cfg.MaxUploadBytes}
	if p.maxWidth <= 0 {
		p.maxWidth = defaultMaxWidth
	}
	if p.quality <= 0 || p.quality > 100 {
		p.quality = defaultQuality
	}
	return p
}

func (p *Processor) ContentType() string { return "image/webp" }

func (p *Processor) Extension() string { return ".webp" }

// MaxBytes is the largest accepted upload; zero means unlimited.
func (p *Processor) MaxBytes() int64 { return p.maxBytes }

// Normalize returns the WebP encoding of data.
func (p *Processor) Normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, apperror.Validation("Image is empty")
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return nil, apperror.Validation(fmt.Sprintf("Image is too large (max %d bytes)", p.maxBytes))
	}

	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	img = downscale(img, p.maxWidth)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (image.Image, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	contentType := http.DetectContentType(head)

	var (
		img image.Image
		err error
	)
	switch {
	case strings.Contains(contentType, "jpeg"):
		img, err = jpeg.Decode(bytes.NewReader(data))
	case strings.Contains(contentType, "png"):
		img, err = png.Decode(bytes.NewReader(data))
	case strings.Contains(contentType, "webp"):
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		return nil, apperror.Validation("Unsupported image format (use jpg, png or webp)")
	}
	if err != nil {
		return nil, apperror.Validation("Image could not be decoded")
	}
	return img, nil
}

func downscale(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxWidth {
		return src
	}
	nh := h * maxWidth / w
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
