package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/h2non/filetype"
	"github.com/srwiley/oksvg"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"slidefit/layout"
)

// Prober resolves image references to their natural dimensions. Results are
// memoized per instance; an optional persistent cache survives runs.
type Prober struct {
	fetcher Fetcher
	cache   *DimCache
	log     *zap.Logger

	seen map[string]layout.Dimension
	data map[string][]byte
}

// NewProber creates a prober over the given fetcher. cache may be nil.
func NewProber(fetcher Fetcher, cache *DimCache, log *zap.Logger) *Prober {
	if log == nil {
		log = zap.NewNop()
	}
	return &Prober{
		fetcher: fetcher,
		cache:   cache,
		log:     log.Named("probe"),
		seen:    make(map[string]layout.Dimension),
		data:    make(map[string][]byte),
	}
}

// Probe returns the natural dimension for the referenced image, fetching and
// decoding it on first use. Each reference is loaded at most once per pass -
// a second probe for the same reference completes from the memo immediately.
func (p *Prober) Probe(ctx context.Context, ref string) (layout.Dimension, error) {
	if dim, ok := p.seen[ref]; ok {
		return dim, nil
	}
	if p.cache != nil {
		if dim, ok := p.cache.Get(ref); ok {
			p.seen[ref] = dim
			return dim, nil
		}
	}

	data, err := p.fetcher.Fetch(ctx, ref)
	if err != nil {
		return layout.Dimension{}, fmt.Errorf("unable to load image %q: %w", ref, err)
	}
	p.data[ref] = data

	dim, err := Dimensions(data)
	if err != nil {
		return layout.Dimension{}, fmt.Errorf("unable to measure image %q: %w", ref, err)
	}

	p.seen[ref] = dim
	if p.cache != nil {
		if err := p.cache.Put(ref, dim); err != nil {
			p.log.Debug("Unable to persist probed dimensions", zap.String("ref", ref), zap.Error(err))
		}
	}
	p.log.Debug("Probed image", zap.String("ref", ref), zap.Int("width", dim.Width), zap.Int("height", dim.Height))
	return dim, nil
}

// Bytes returns the raw content of a previously probed reference, if the
// probe had to fetch it during this pass.
func (p *Prober) Bytes(ref string) ([]byte, bool) {
	data, ok := p.data[ref]
	return data, ok
}

// Dimensions measures the natural size of image data without a full decode.
// Raster formats go through image.DecodeConfig, SVG through its viewBox.
func Dimensions(data []byte) (layout.Dimension, error) {
	if IsSVG(data) {
		return svgDimensions(data)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return layout.Dimension{}, err
	}
	return layout.Dimension{Width: cfg.Width, Height: cfg.Height}, nil
}

// IsSVG sniffs whether data looks like an SVG document. filetype has no SVG
// matcher (it is text, not magic bytes), so fall back to content inspection
// when no known raster signature matches.
func IsSVG(data []byte) bool {
	if t, err := filetype.Match(data); err == nil && t != filetype.Unknown {
		return false
	}
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return strings.Contains(string(head), "<svg")
}

// svgDimensions reads the intrinsic size from the SVG viewBox.
func svgDimensions(data []byte) (layout.Dimension, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return layout.Dimension{}, err
	}
	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return layout.Dimension{}, fmt.Errorf("svg viewBox has no usable size (%dx%d)", w, h)
	}
	return layout.Dimension{Width: w, Height: h}, nil
}
