package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"slidefit/config"
	"slidefit/layout"
)

// maxRasterDim is the maximum pixel dimension (width or height) allowed when
// rasterizing an SVG. Prevents OOM from enormous viewBox values - an
// unconstrained 100000x100000 viewBox would allocate ~37 GB for the RGBA
// buffer. 8192 matches common GPU texture limits and is very generous for
// slide imagery.
const maxRasterDim = 8192

// RasterizeSVG renders SVG data to a PNG at the resolved target size on a
// white background. Target sides of zero fall back to the intrinsic viewBox
// size.
func RasterizeSVG(svgData []byte, target layout.Dimension) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, err
	}

	w, h := target.Width, target.Height
	if w <= 0 || h <= 0 {
		intr, err := svgDimensions(svgData)
		if err != nil {
			return nil, err
		}
		w, h = intr.Width, intr.Height
	}
	if w > maxRasterDim || h > maxRasterDim {
		s := min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(float64(w)*s), 1)
		h = max(int(float64(h)*s), 1)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Prescale physically resizes raster image data to the resolved target size.
// keepAR resizes by height preserving the source aspect ratio, stretch
// forces both sides to the target. Returns the re-encoded image and whether
// anything changed.
func Prescale(data []byte, target layout.Dimension, mode config.PrescaleMode, jpegQuality int) ([]byte, bool, error) {
	if mode == config.PrescaleModeNone || target.IsZero() {
		return data, false, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("unable to decode image for prescaling: %w", err)
	}
	if img.Bounds().Dx() == target.Width && img.Bounds().Dy() == target.Height {
		return data, false, nil
	}

	var resized image.Image
	switch mode {
	case config.PrescaleModeKeepAR:
		resized = imaging.Resize(img, 0, target.Height, imaging.Lanczos)
	case config.PrescaleModeStretch:
		resized = imaging.Resize(img, target.Width, target.Height, imaging.Lanczos)
	default:
		return data, false, nil
	}
	if resized == nil {
		return nil, false, fmt.Errorf("unable to resize image to %dx%d", target.Width, target.Height)
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = imaging.Encode(&buf, resized, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case "jpeg":
		err = imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	default:
		// formats a deck is unlikely to carry stay untouched
		return data, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("unable to encode prescaled image: %w", err)
	}
	return buf.Bytes(), true, nil
}
