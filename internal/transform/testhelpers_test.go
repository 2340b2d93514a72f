package transform

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// subjectOnBackdrop draws a w×h backdrop with a filled square subject in the
// middle, inset by margin pixels.
func subjectOnBackdrop(w, h, margin int, backdrop, subject color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := backdrop
			if x >= margin && x < w-margin && y >= margin && y < h-margin {
				c = subject
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodeTestPNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeTestImage(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	return img
}

// withDeclaredSize rewrites the IHDR dimensions of a PNG without touching its
// pixel data, fixing up the chunk CRC so headers still parse.
func withDeclaredSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, pngSignature))
	out := append([]byte{}, data...)
	// signature(8) + length(4) + "IHDR"(4), then width, height.
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}
