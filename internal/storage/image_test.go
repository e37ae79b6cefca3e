package storage

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeImagePassthroughOnUndecodable(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	out, ct, err := NormalizeImage(data, "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.Equal(t, "application/octet-stream", ct)
}

func TestNormalizeImageBoundsWidth(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2000, 100))))

	out, ct, err := NormalizeImage(buf.Bytes(), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, maxImageWidth, decoded.Bounds().Dx())
}

func TestNormalizeImageKeepsSmallImages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 64))))

	out, ct, err := NormalizeImage(buf.Bytes(), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Bounds().Dx())
}
