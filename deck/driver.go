package deck

import (
	"context"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"slidefit/assets"
	"slidefit/config"
	"slidefit/css"
	"slidefit/layout"
)

// Positioner is the service surface other components program against.
// Availability is a property of the service value, not of a process-wide
// flag - a caller holding an unavailable Positioner gets a truthful answer
// instead of racing initialization.
type Positioner interface {
	Available() bool
	Position(ctx context.Context, doc *Document) (Stats, error)
}

// Stats summarizes one positioning pass over a document.
type Stats struct {
	Containers int
	Images     int
	Positioned int
	Skipped    int
	Structural int
}

// Driver walks labeled containers of a document and positions their member
// images through the layout resolver.
type Driver struct {
	cfg    config.DeckConfig
	parser *css.Parser
	prober *assets.Prober
	log    *zap.Logger

	listeners []Listener
}

var _ Positioner = (*Driver)(nil)

// NewDriver creates a positioning driver. prober supplies natural image
// dimensions for raster references.
func NewDriver(cfg config.DeckConfig, prober *assets.Prober, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		cfg:    cfg,
		parser: css.NewParser(log),
		prober: prober,
		log:    log.Named("position"),
	}
}

// Available reports whether the driver can position images.
func (d *Driver) Available() bool {
	return d != nil && d.prober != nil
}

// Position runs one positioning pass over the document. Per-image problems
// are diagnostics, not run aborts; containers outside any slide element are
// structural errors collected into the returned error. Stats are valid even
// when an error is returned.
func (d *Driver) Position(ctx context.Context, doc *Document) (Stats, error) {
	var (
		stats Stats
		errs  error
	)
	for _, container := range doc.Containers(d.cfg.ContainerClass) {
		if err := ctx.Err(); err != nil {
			return stats, multierr.Append(errs, err)
		}
		stats.Containers++

		if SlideFor(container, d.cfg.SlideTag) == nil {
			stats.Structural++
			errs = multierr.Append(errs, &StructuralError{Label: d.cfg.ContainerClass, Doc: doc.Name})
			continue
		}

		containerDim, err := d.measureContainer(doc, container)
		if err != nil {
			d.log.Warn("Unable to measure container", zap.String("doc", doc.Name), zap.Error(err))
			stats.Skipped += len(Images(container))
			stats.Images += len(Images(container))
			continue
		}

		for _, img := range Images(container) {
			stats.Images++
			if d.positionOne(ctx, doc, img, containerDim) {
				stats.Positioned++
			} else {
				stats.Skipped++
			}
		}
	}
	d.log.Debug("Positioning pass finished",
		zap.String("doc", doc.Name),
		zap.Int("containers", stats.Containers),
		zap.Int("positioned", stats.Positioned),
		zap.Int("skipped", stats.Skipped))
	return stats, errs
}

// positionOne resolves and applies geometry for a single image. Returns true
// when the element was positioned.
func (d *Driver) positionOne(ctx context.Context, doc *Document, img *etree.Element, container layout.Dimension) bool {
	ref := img.SelectAttrValue("src", "")
	if ref == "" && img.Tag == "svg" {
		ref = img.SelectAttrValue("id", "inline svg")
	}

	natural, err := d.naturalSize(ctx, img, container)
	if err != nil {
		d.log.Warn("Unable to determine natural image size", zap.String("ref", ref), zap.Error(err))
		return false
	}
	if natural.IsZero() {
		d.log.Warn("Image has no usable natural size", zap.String("ref", ref))
		return false
	}

	style := d.resolvedStyle(doc, img)
	margins, err := resolveMargins(style, container)
	if err != nil {
		d.log.Warn("Malformed margin on image", zap.String("ref", ref), zap.Error(err))
		return false
	}

	keywords, fit := layout.KeywordsFromClass(img.SelectAttrValue("class", ""))

	res, err := layout.Resolve(
		layout.BoxMetrics{Natural: natural, Container: container, Margins: margins},
		layout.ScaleConstraint{MaxWidth: rawOf(style, "max-width"), MaxHeight: rawOf(style, "max-height")},
		keywords, fit)
	if err != nil {
		d.log.Warn("Unable to resolve image layout", zap.String("ref", ref), zap.Error(err))
		return false
	}

	ev := &Event{Ref: ref, Element: img, Result: res}
	d.dispatch(ev)
	if ev.Canceled() {
		d.log.Debug("Positioning canceled by listener", zap.String("ref", ref))
		return false
	}

	applyResult(img, res)
	return true
}

// naturalSize finds the intrinsic pixel size of an image element. Inlined
// SVG elements carry explicit width/height attributes; raster images are
// probed through the asset layer.
func (d *Driver) naturalSize(ctx context.Context, img *etree.Element, container layout.Dimension) (layout.Dimension, error) {
	if img.Tag == "svg" {
		w, err := css.Normalize(img.SelectAttrValue("width", ""), float64(container.Width))
		if err != nil {
			return layout.Dimension{}, fmt.Errorf("svg width attribute: %w", err)
		}
		h, err := css.Normalize(img.SelectAttrValue("height", ""), float64(container.Height))
		if err != nil {
			return layout.Dimension{}, fmt.Errorf("svg height attribute: %w", err)
		}
		return layout.Dimension{Width: w, Height: h}, nil
	}
	src := img.SelectAttrValue("src", "")
	if src == "" {
		return layout.Dimension{}, fmt.Errorf("img element has no src attribute")
	}
	return d.prober.Probe(ctx, src)
}

// measureContainer resolves the container's content-box size from its
// styles, percentages against the deck's slide design size. A container with
// no sizing styles fills the whole slide. Measurement runs with the
// container's subtree forced visible so display:none never yields a zero
// box; original styles are restored on every exit path.
func (d *Driver) measureContainer(doc *Document, container *etree.Element) (dim layout.Dimension, err error) {
	restore := forceVisible(container)
	defer restore()

	style := d.resolvedStyle(doc, container)

	dim.Width = d.cfg.Slide.Width
	if raw := rawOf(style, "width"); raw != "" {
		if dim.Width, err = css.Normalize(raw, float64(d.cfg.Slide.Width)); err != nil {
			return layout.Dimension{}, fmt.Errorf("container width: %w", err)
		}
	}
	dim.Height = d.cfg.Slide.Height
	if raw := rawOf(style, "height"); raw != "" {
		if dim.Height, err = css.Normalize(raw, float64(d.cfg.Slide.Height)); err != nil {
			return layout.Dimension{}, fmt.Errorf("container height: %w", err)
		}
	}
	// a zero side would feed degenerate ratios into the resolver
	if dim.Width <= 0 || dim.Height <= 0 {
		return layout.Dimension{}, fmt.Errorf("container has no usable size (%dx%d)", dim.Width, dim.Height)
	}
	return dim, nil
}

// forceVisible strips inline display:none from el and its ancestors,
// returning a closure restoring the original style attributes. The closure
// is safe to call exactly once, typically via defer.
func forceVisible(el *etree.Element) func() {
	type saved struct {
		el   *etree.Element
		orig string
	}
	var overridden []saved
	for e := el; e != nil; e = e.Parent() {
		style := e.SelectAttrValue("style", "")
		if style == "" {
			continue
		}
		stripped, changed := stripDisplayNone(style)
		if !changed {
			continue
		}
		overridden = append(overridden, saved{el: e, orig: style})
		if stripped == "" {
			e.RemoveAttr("style")
		} else {
			e.CreateAttr("style", stripped)
		}
	}
	return func() {
		for _, s := range overridden {
			s.el.CreateAttr("style", s.orig)
		}
	}
}

// stripDisplayNone removes a display:none declaration from an inline style
// string, reporting whether anything was removed.
func stripDisplayNone(style string) (string, bool) {
	var (
		kept    []string
		changed bool
	)
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(prop), "display") && strings.EqualFold(strings.TrimSpace(val), "none") {
			changed = true
			continue
		}
		if strings.TrimSpace(decl) != "" {
			kept = append(kept, strings.TrimSpace(decl))
		}
	}
	return strings.Join(kept, "; "), changed
}

// resolvedStyle merges stylesheet rules matching the element with its inline
// style, inline winning. Shorthands are expanded so margin lookups always
// see longhand properties.
func (d *Driver) resolvedStyle(doc *Document, el *etree.Element) map[string]css.Value {
	classes := strings.Fields(el.SelectAttrValue("class", ""))
	props := make(map[string]css.Value)
	for _, prop := range []string{
		"width", "height", "display", "margin",
		"margin-top", "margin-right", "margin-bottom", "margin-left",
		"max-width", "max-height",
	} {
		if v, ok := doc.Styles.PropertyFor(el.Tag, classes, prop); ok {
			props[prop] = v
		}
	}
	for prop, v := range d.parser.ParseDeclarations(el.SelectAttrValue("style", "")) {
		props[prop] = v
	}
	css.ExpandShorthand(props)
	return props
}

// resolveMargins normalizes the four margin properties to pixels,
// percentages against the container side they offset. A missing margin is
// zero; a malformed one fails the image.
func resolveMargins(style map[string]css.Value, container layout.Dimension) (layout.Margins, error) {
	var (
		m   layout.Margins
		err error
	)
	resolve := func(prop string, side int) (int, error) {
		raw := rawOf(style, prop)
		if raw == "" {
			return 0, nil
		}
		px, err := css.Normalize(raw, float64(side))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", prop, err)
		}
		return px, nil
	}
	if m.Top, err = resolve("margin-top", container.Height); err != nil {
		return m, err
	}
	if m.Bottom, err = resolve("margin-bottom", container.Height); err != nil {
		return m, err
	}
	if m.Left, err = resolve("margin-left", container.Width); err != nil {
		return m, err
	}
	if m.Right, err = resolve("margin-right", container.Width); err != nil {
		return m, err
	}
	return m, nil
}

func rawOf(style map[string]css.Value, prop string) string {
	if v, ok := style[prop]; ok {
		return v.Raw
	}
	return ""
}

// applyResult writes the resolved geometry onto the element's inline style.
// Properties the driver owns are overwritten, everything else in the style
// attribute is preserved; a data attribute marks the element as positioned.
func applyResult(el *etree.Element, res layout.Result) {
	owned := map[string]bool{
		"position": true, "left": true, "top": true,
		"width": true, "height": true,
	}
	var kept []string
	for _, decl := range strings.Split(el.SelectAttrValue("style", ""), ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		prop, _, _ := strings.Cut(decl, ":")
		if owned[strings.ToLower(strings.TrimSpace(prop))] {
			continue
		}
		kept = append(kept, decl)
	}

	kept = append(kept, "position: absolute")
	if res.HasLeft {
		kept = append(kept, fmt.Sprintf("left: %dpx", res.Left))
	}
	if res.HasTop {
		kept = append(kept, fmt.Sprintf("top: %dpx", res.Top))
	}
	kept = append(kept,
		fmt.Sprintf("width: %dpx", res.Size.Width),
		fmt.Sprintf("height: %dpx", res.Size.Height))

	el.CreateAttr("style", strings.Join(kept, "; "))
	el.CreateAttr("data-positioned", "true")
}
