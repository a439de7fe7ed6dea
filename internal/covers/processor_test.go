package covers

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kitaplik/internal/apperror"
	"github.com/mrlokans/kitaplik/internal/config"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessor_DownscalesToWebP(t *testing.T) {
	p := NewProcessor(config.Covers{MaxWidth: 100, Quality: 70})

	out, err := p.Normalize(encodePNG(t, testImage(400, 600)))
	require.NoError(t, err)

	decoded, err := webp.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 150, decoded.Bounds().Dy())
}

func TestProcessor_KeepsSmallImages(t *testing.T) {
	p := NewProcessor(config.Covers{MaxWidth: 800})

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(60, 90), nil))

	out, err := p.Normalize(buf.Bytes())
	require.NoError(t, err)

	decoded, err := webp.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 60, decoded.Bounds().Dx())
}

func TestProcessor_Rejects(t *testing.T) {
	p := NewProcessor(config.Covers{MaxUploadBytes: 1024})

	_, err := p.Normalize(nil)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = p.Normalize([]byte("GIF89a not really"))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = p.Normalize(bytes.Repeat([]byte{0xff}, 2048))
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestNewProcessor_Defaults(t *testing.T) {
	p := NewProcessor(config.Covers{})
	assert.Equal(t, defaultMaxWidth, p.maxWidth)
	assert.Equal(t, float32(defaultQuality), p.quality)
	assert.Equal(t, "image/webp", p.ContentType())
	assert.Equal(t, ".webp", p.Extension())
}
