// Package deck models an HTML slide deck document and drives image
// positioning over it: discovering labeled containers, measuring their
// geometry and invoking the layout resolver for every member image.
package deck

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"slidefit/css"
)

// Document is a parsed deck file together with its collected styles.
type Document struct {
	Tree   *etree.Document
	Name   string
	Styles *css.Stylesheet
}

// Load parses a deck document from r. name identifies the source in
// diagnostics. Styles from every <style> element plus the optional extra
// stylesheet are collected in source order, extra stylesheet first so
// document styles override it.
func Load(r io.Reader, name string, extra []byte, parser *css.Parser, log *zap.Logger) (*Document, error) {
	if log == nil {
		log = zap.NewNop()
	}
	tree := etree.NewDocument()
	tree.ReadSettings = etree.ReadSettings{
		Permissive:    true,
		CharsetReader: charset.NewReaderLabel,
	}
	if _, err := tree.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to parse deck document %q: %w", name, err)
	}
	if tree.Root() == nil {
		return nil, fmt.Errorf("deck document %q has no root element", name)
	}

	sheet := &css.Stylesheet{}
	if len(extra) > 0 {
		merge(sheet, parser.Parse(extra, "extra stylesheet"))
	}
	for _, styleEl := range tree.FindElements("//style") {
		merge(sheet, parser.Parse([]byte(styleEl.Text()), name))
	}
	log.Debug("Loaded deck document", zap.String("name", name), zap.Int("rules", len(sheet.Rules)))

	return &Document{Tree: tree, Name: name, Styles: sheet}, nil
}

func merge(dst, src *css.Stylesheet) {
	dst.Rules = append(dst.Rules, src.Rules...)
	dst.Warnings = append(dst.Warnings, src.Warnings...)
}

// WriteTo serializes the processed document.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return d.Tree.WriteTo(w)
}

// Bytes returns the serialized document.
func (d *Document) Bytes() ([]byte, error) {
	var sb strings.Builder
	if _, err := d.Tree.WriteTo(&sb); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// Containers returns all elements labeled with the given class, in document
// order.
func (d *Document) Containers(label string) []*etree.Element {
	var found []*etree.Element
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if hasClassToken(el.SelectAttrValue("class", ""), label) {
			found = append(found, el)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(d.Tree.Root())
	return found
}

// Images returns the positionable member elements of a container: img
// elements and inlined svg replacements, in document order.
func Images(container *etree.Element) []*etree.Element {
	var found []*etree.Element
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if el.Tag == "img" || el.Tag == "svg" {
			found = append(found, el)
			return
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	for _, child := range container.ChildElements() {
		walk(child)
	}
	return found
}

// SlideFor walks up from el to the enclosing structural slide element.
func SlideFor(el *etree.Element, slideTag string) *etree.Element {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if strings.EqualFold(p.Tag, slideTag) {
			return p
		}
	}
	return nil
}

func hasClassToken(classAttr, want string) bool {
	for _, token := range strings.Fields(classAttr) {
		if token == want {
			return true
		}
	}
	return false
}

// StructuralError reports a labeled container with no enclosing slide
// element - an authoring mistake in the document, handled fail-fast for that
// container rather than silently skipped.
type StructuralError struct {
	Label string
	Doc   string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("container labeled %q in %q has no enclosing slide element", e.Label, e.Doc)
}
