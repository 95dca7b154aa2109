// pkg/services/transform.go
package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"imgvault/pkg/models"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// fitInside returns the largest size with the source aspect ratio that fits
// in the box. Sources already inside the box keep their size.
func fitInside(sw, sh, tw, th int) (int, int) {
	if sw <= tw && sh <= th {
		return sw, sh
	}
	ratio := math.Min(float64(tw)/float64(sw), float64(th)/float64(sh))
	w := int(math.Round(float64(sw) * ratio))
	h := int(math.Round(float64(sh) * ratio))
	return max(w, 1), max(h, 1)
}

// coverCrop returns the centered source rectangle that, scaled to tw x th,
// fills the box with no letterboxing.
func coverCrop(b image.Rectangle, tw, th int) image.Rectangle {
	sw, sh := b.Dx(), b.Dy()
	scale := math.Max(float64(tw)/float64(sw), float64(th)/float64(sh))
	cw := min(sw, max(int(math.Round(float64(tw)/scale)), 1))
	ch := min(sh, max(int(math.Round(float64(th)/scale)), 1))
	x0 := b.Min.X + (sw-cw)/2
	y0 := b.Min.Y + (sh-ch)/2
	return image.Rect(x0, y0, x0+cw, y0+ch)
}

// resizeVariant scales src for a tier, flattening any transparency on white
func resizeVariant(src image.Image, spec models.VariantSpec) *image.RGBA {
	b := src.Bounds()

	srcRect := b
	w, h := spec.Width, spec.Height
	if spec.Fit == models.FitCover {
		srcRect = coverCrop(b, spec.Width, spec.Height)
	} else {
		w, h = fitInside(b.Dx(), b.Dy(), spec.Width, spec.Height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, srcRect, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// renderPlaceholder produces the blurred micro image as a data URL
func renderPlaceholder(src image.Image) (string, error) {
	spec, _ := models.TierSpec(models.TierPlaceholder)
	small := resizeVariant(src, spec)
	blurred := imaging.Blur(small, models.PlaceholderBlurSigma)

	data, err := encodeJPEG(blurred, spec.Quality)
	if err != nil {
		return "", err
	}
	return "data:" + models.EncodedMimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// hasAlpha reports whether a color model can carry transparency
func hasAlpha(m color.Model) bool {
	switch m {
	case color.NRGBAModel, color.NRGBA64Model, color.NYCbCrAModel, color.AlphaModel, color.Alpha16Model:
		return true
	}
	if p, ok := m.(color.Palette); ok {
		for _, c := range p {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}
