// Package inline replaces <img> elements referencing SVG files with the SVG
// markup itself, so internal SVG elements become stylable and targetable
// from the deck's stylesheets and scripts.
package inline

import (
	"context"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"slidefit/assets"
)

// Inliner swaps SVG image references for inlined markup. Replacement is
// complete - including final natural width/height on the replacement
// element - before any caller measures it, which is the contract the
// positioning driver relies on.
type Inliner struct {
	fetcher assets.Fetcher
	log     *zap.Logger
}

// New creates an inliner fetching SVG content through fetcher.
func New(fetcher assets.Fetcher, log *zap.Logger) *Inliner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inliner{fetcher: fetcher, log: log.Named("inline")}
}

// InlineAll replaces every <img> element in the document whose src
// references an SVG file. A failure to inline one image is a per-image
// diagnostic, not a run abort - the element stays as it was. Returns the
// number of elements replaced.
func (in *Inliner) InlineAll(ctx context.Context, doc *etree.Document) int {
	replaced := 0
	for _, img := range doc.FindElements("//img") {
		if err := ctx.Err(); err != nil {
			return replaced
		}
		src := img.SelectAttrValue("src", "")
		if !strings.HasSuffix(strings.ToLower(src), ".svg") {
			continue
		}
		if err := in.inlineOne(ctx, img, src); err != nil {
			in.log.Warn("Unable to inline SVG image", zap.String("src", src), zap.Error(err))
			continue
		}
		in.log.Debug("Inlined SVG image", zap.String("src", src))
		replaced++
	}
	return replaced
}

// inlineOne fetches, parses and substitutes a single image element.
func (in *Inliner) inlineOne(ctx context.Context, img *etree.Element, src string) error {
	data, err := in.fetcher.Fetch(ctx, src)
	if err != nil {
		return err
	}

	svgDoc := etree.NewDocument()
	if err := svgDoc.ReadFromBytes(data); err != nil {
		return fmt.Errorf("unable to parse SVG content: %w", err)
	}
	root := svgDoc.Root()
	if root == nil || root.Tag != "svg" {
		return fmt.Errorf("content of %q is not an SVG document", src)
	}

	carryAttributes(img, root)
	ensureNaturalSize(root, data)

	parent := img.Parent()
	if parent == nil {
		return fmt.Errorf("image element for %q has no parent", src)
	}
	idx := img.Index()
	parent.RemoveChild(img)
	parent.InsertChildAt(idx, root.Copy())
	return nil
}

// carryAttributes moves the presentational attributes of the original img
// onto the SVG root. Class lists are merged with the img's tokens appended
// so deck-authored classes stay last; other attributes overwrite.
func carryAttributes(img, svg *etree.Element) {
	for _, attr := range img.Attr {
		switch attr.Key {
		case "src", "alt":
			// meaningless on an svg element
		case "class":
			merged := strings.TrimSpace(svg.SelectAttrValue("class", "") + " " + attr.Value)
			svg.CreateAttr("class", merged)
		default:
			svg.CreateAttr(attr.Key, attr.Value)
		}
	}
}

// ensureNaturalSize guarantees the replacement element carries explicit
// width/height attributes so it can be measured without refetching.
func ensureNaturalSize(svg *etree.Element, data []byte) {
	if svg.SelectAttrValue("width", "") != "" && svg.SelectAttrValue("height", "") != "" {
		return
	}
	dim, err := assets.Dimensions(data)
	if err != nil {
		return
	}
	if svg.SelectAttrValue("width", "") == "" {
		svg.CreateAttr("width", fmt.Sprintf("%d", dim.Width))
	}
	if svg.SelectAttrValue("height", "") == "" {
		svg.CreateAttr("height", fmt.Sprintf("%d", dim.Height))
	}
}
