// Package preprocess turns an uploaded image into the float32 tensor the
// trash classifier expects.
//
// The pipeline is fixed: decode, resize to Size x Size, drop alpha, scale each
// channel by 1/255 and lay the result out as NHWC with a batch of one. The
// default Nearest filter point-samples the source the way the training
// pipeline loaded images; Bilinear is for models trained on smoothed input. No cropping, EXIF rotation or
// colour-space correction is applied; images that rely on EXIF orientation
// are classified as stored.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"trashd/internal/apperr"
)

const (
	// Size is the square input resolution of the classifier.
	Size = 224
	// Channels is the number of colour channels (RGB).
	Channels = 3
	// Len is the number of float32 values in one preprocessed image.
	Len = Size * Size * Channels
	// DefaultMaxPixels bounds decoded image area to reject decompression bombs.
	DefaultMaxPixels = 50_000_000
)

// Filter selects the resampling used to reach Size x Size.
type Filter string

const (
	// Nearest picks the source pixel under each output pixel centre, with no
	// blending, also when downscaling.
	Nearest Filter = "nearest"
	// Bilinear interpolates with nfnt/resize.
	Bilinear Filter = "bilinear"
)

// ParseFilter maps a config value to a Filter; empty means Nearest.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", Nearest:
		return Nearest, nil
	case Bilinear:
		return Bilinear, nil
	default:
		return "", fmt.Errorf("unknown resample filter %q: want nearest or bilinear", s)
	}
}

// Shape is the tensor shape produced by Tensor: (batch, height, width, channels).
var Shape = []int64{1, Size, Size, Channels}

// Decode decodes b into an image. Formats: JPEG, PNG, GIF, BMP, TIFF, WebP.
// Images whose area exceeds maxPixels are rejected before full decoding;
// maxPixels <= 0 uses DefaultMaxPixels.
func Decode(b []byte, maxPixels int) (image.Image, string, error) {
	if len(b) == 0 {
		return nil, "", apperr.Decode(fmt.Errorf("empty image"))
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, "", apperr.Decode(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", apperr.Decode(fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height))
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, "", apperr.Decode(fmt.Errorf("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxPixels))
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", apperr.Decode(err)
	}
	return img, format, nil
}

func scale(img image.Image, f Filter) image.Image {
	if f == Bilinear {
		return resize.Resize(Size, Size, img, resize.Bilinear)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Tensor resizes img with f and returns its normalized NHWC pixel data. The
// result always has Len elements, each in [0,1].
func Tensor(img image.Image, f Filter) []float32 {
	resized := scale(img, f)
	b := resized.Bounds()
	out := make([]float32, Len)
	i := 0
	for y := b.Min.Y; y < b.Min.Y+Size; y++ {
		for x := b.Min.X; x < b.Min.X+Size; x++ {
			c := color.NRGBAModel.Convert(resized.At(x, y)).(color.NRGBA)
			out[i] = float32(c.R) / 255
			out[i+1] = float32(c.G) / 255
			out[i+2] = float32(c.B) / 255
			i += Channels
		}
	}
	return out
}

// Prepare decodes b and returns the classifier input tensor.
func Prepare(b []byte, maxPixels int, f Filter) ([]float32, error) {
	img, _, err := Decode(b, maxPixels)
	if err != nil {
		return nil, err
	}
	return Tensor(img, f), nil
}
