// Package imaging pads raster images onto a 4:3 canvas.
package imaging

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"imgharvest/pkg/storage"
)

// TargetRatio is the width/height ratio every normalized image has
const TargetRatio = 4.0 / 3.0

// Tolerance is how far from TargetRatio an image may be and still count
// as already 4:3
const Tolerance = 1e-3

// CanvasSize returns the smallest 4:3 canvas that contains a w×h image.
// One dimension is always kept.
func CanvasSize(w, h int) (int, int) {
	ratio := float64(w) / float64(h)
	switch {
	case math.Abs(ratio-TargetRatio) < Tolerance:
		return w, h
	case ratio > TargetRatio:
		return w, int(math.Round(float64(w) / TargetRatio))
	default:
		return int(math.Round(float64(h) * TargetRatio)), h
	}
}

// Pad centers src on a transparent 4:3 canvas. It never crops.
func Pad(src image.Image) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	cw, ch := CanvasSize(w, h)

	canvas := image.NewNRGBA(image.Rect(0, 0, cw, ch))
	offset := image.Pt((cw-w)/2, (ch-h)/2)
	draw.Draw(canvas, image.Rectangle{Min: offset, Max: offset.Add(b.Size())}, src, b.Min, draw.Src)
	return canvas
}

// NormalizeAspect decodes the image at src, pads it to 4:3 and writes it
// as PNG to dst. dst may equal src. On failure src is left untouched.
func NormalizeAspect(src, dst string) error {
	img, err := decodeFile(src)
	if err != nil {
		return err
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("image %s has no pixels", src)
	}

	out := Pad(img)
	return storage.WriteFileAtomic(dst, func(w io.Writer) error {
		return png.Encode(w, out)
	})
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
