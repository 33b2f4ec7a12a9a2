package deck

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// treeWriter accumulates an indented textual tree for debug dumps.
type treeWriter struct {
	w *strings.Builder
}

func newTreeWriter() *treeWriter {
	return &treeWriter{
		w: &strings.Builder{},
	}
}

func (tw treeWriter) String() string {
	return tw.w.String()
}

func (tw treeWriter) Line(depth int, format string, args ...any) {
	for range depth {
		tw.w.WriteString("  ")
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw treeWriter) TextBlock(depth int, label, value string) {
	for range depth {
		tw.w.WriteString("  ")
	}
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}

// DebugDump renders the positioning-relevant structure of the document -
// slides, labeled containers and their member images with classes and
// resolved inline styles - for inclusion in debug reports.
func (d *Document) DebugDump(slideTag, containerClass string) string {
	tw := newTreeWriter()
	tw.Line(0, "document %s", d.Name)
	tw.Line(0, "stylesheet rules: %d, warnings: %d", len(d.Styles.Rules), len(d.Styles.Warnings))

	slideNo := 0
	for _, slide := range d.Tree.FindElements("//" + slideTag) {
		slideNo++
		tw.Line(1, "slide %d", slideNo)
		for _, container := range d.Containers(containerClass) {
			if SlideFor(container, slideTag) != slide {
				continue
			}
			tw.Line(2, "container <%s>", container.Tag)
			tw.TextBlock(3, "class", container.SelectAttrValue("class", ""))
			tw.TextBlock(3, "style", container.SelectAttrValue("style", ""))
			for _, img := range Images(container) {
				dumpImage(tw, img)
			}
		}
	}
	for _, container := range d.Containers(containerClass) {
		if SlideFor(container, slideTag) == nil {
			tw.Line(1, "DETACHED container <%s>", container.Tag)
			tw.TextBlock(2, "class", container.SelectAttrValue("class", ""))
		}
	}
	return tw.String()
}

func dumpImage(tw *treeWriter, img *etree.Element) {
	ref := img.SelectAttrValue("src", "")
	if ref == "" && img.Tag == "svg" {
		ref = "(inline svg)"
	}
	tw.Line(3, "image <%s> %s", img.Tag, ref)
	tw.TextBlock(4, "class", img.SelectAttrValue("class", ""))
	tw.TextBlock(4, "style", img.SelectAttrValue("style", ""))
	if v := img.SelectAttrValue("data-positioned", ""); v != "" {
		tw.Line(4, "positioned: %s", v)
	}
}
