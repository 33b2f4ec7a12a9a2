package deck_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"slidefit/assets"
	"slidefit/config"
	"slidefit/css"
	"slidefit/deck"
)

type mapFetcher map[string][]byte

func (f mapFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	if d, ok := f[ref]; ok {
		return d, nil
	}
	return nil, errors.New("no such asset")
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("unable to encode test image: %v", err)
	}
	return buf.Bytes()
}

func deckConfig() config.DeckConfig {
	var cfg config.DeckConfig
	cfg.SlideTag = "section"
	cfg.ContainerClass = "fit-box"
	cfg.Slide.Width = 960
	cfg.Slide.Height = 700
	return cfg
}

func loadDoc(t *testing.T, src string) *deck.Document {
	t.Helper()
	doc, err := deck.Load(strings.NewReader(src), "test.html", nil, css.NewParser(nil), nil)
	if err != nil {
		t.Fatalf("unable to load test document: %v", err)
	}
	return doc
}

func newDriver(t *testing.T, f mapFetcher) *deck.Driver {
	t.Helper()
	return deck.NewDriver(deckConfig(), assets.NewProber(f, nil, nil), nil)
}

const scenarioDoc = `<html><head><style>
.fit-box { width: 400px; height: 300px; }
</style></head><body>
<section><div class="fit-box"><img src="wide.png" class="center middle maximize" style="border: 1px solid red"/></div></section>
</body></html>`

func TestPosition(t *testing.T) {
	doc := loadDoc(t, scenarioDoc)
	drv := newDriver(t, mapFetcher{"wide.png": encodePNG(t, 800, 300)})

	stats, err := drv.Position(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Containers != 1 || stats.Images != 1 || stats.Positioned != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	img := doc.Tree.FindElement("//img")
	style := img.SelectAttrValue("style", "")

	// 800x300 into 400x300: width branch, half scale, centered both axes
	for _, want := range []string{"position: absolute", "left: 0px", "top: 75px", "width: 400px", "height: 150px"} {
		if !strings.Contains(style, want) {
			t.Errorf("style %q is missing %q", style, want)
		}
	}
	if !strings.Contains(style, "border: 1px solid red") {
		t.Errorf("unrelated inline style was lost: %q", style)
	}
	if img.SelectAttrValue("data-positioned", "") != "true" {
		t.Error("positioned element must carry the data-positioned marker")
	}
}

func TestPosition_Idempotent(t *testing.T) {
	doc := loadDoc(t, scenarioDoc)
	drv := newDriver(t, mapFetcher{"wide.png": encodePNG(t, 800, 300)})

	if _, err := drv.Position(context.Background(), doc); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	first := doc.Tree.FindElement("//img").SelectAttrValue("style", "")

	if _, err := drv.Position(context.Background(), doc); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	second := doc.Tree.FindElement("//img").SelectAttrValue("style", "")

	if first != second {
		t.Errorf("second pass changed the style:\n  first:  %q\n  second: %q", first, second)
	}
}

func TestPosition_ContainerOutsideSlide(t *testing.T) {
	doc := loadDoc(t, `<html><body>
<div class="fit-box"><img src="wide.png" class="top"/></div>
</body></html>`)
	drv := newDriver(t, mapFetcher{"wide.png": encodePNG(t, 100, 100)})

	stats, err := drv.Position(context.Background(), doc)
	if err == nil {
		t.Fatal("expected structural error")
	}
	var serr *deck.StructuralError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StructuralError, got %v", err)
	}
	if stats.Structural != 1 || stats.Positioned != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if doc.Tree.FindElement("//img").SelectAttrValue("data-positioned", "") != "" {
		t.Error("image in a detached container must not be positioned")
	}
}

func TestPosition_ListenerCancel(t *testing.T) {
	doc := loadDoc(t, scenarioDoc)
	drv := newDriver(t, mapFetcher{"wide.png": encodePNG(t, 800, 300)})

	var order []string
	drv.Subscribe(func(ev *deck.Event) {
		order = append(order, "first")
		ev.Cancel()
	})
	drv.Subscribe(func(ev *deck.Event) {
		order = append(order, "second")
	})

	stats, err := drv.Position(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Positioned != 0 || stats.Skipped != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(order) != 1 || order[0] != "first" {
		t.Errorf("cancel must stop delivery, got %v", order)
	}
	if doc.Tree.FindElement("//img").SelectAttrValue("data-positioned", "") != "" {
		t.Error("canceled event must leave the element untouched")
	}
}

func TestPosition_HiddenContainerRestored(t *testing.T) {
	doc := loadDoc(t, `<html><body><section>
<div class="fit-box" style="display: none; width: 400px; height: 300px"><img src="wide.png" class="left top"/></div>
</section></body></html>`)
	drv := newDriver(t, mapFetcher{"wide.png": encodePNG(t, 200, 100)})

	stats, err := drv.Position(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Positioned != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	box := doc.Tree.FindElement("//div")
	if !strings.Contains(box.SelectAttrValue("style", ""), "display: none") {
		t.Errorf("container visibility override must be restored, got %q", box.SelectAttrValue("style", ""))
	}

	img := doc.Tree.FindElement("//img")
	style := img.SelectAttrValue("style", "")
	// 200x100 fits 400x300, no fit flag - natural size, pinned top-left
	for _, want := range []string{"left: 0px", "top: 0px", "width: 200px", "height: 100px"} {
		if !strings.Contains(style, want) {
			t.Errorf("style %q is missing %q", style, want)
		}
	}
}

func TestPosition_PercentContainer(t *testing.T) {
	doc := loadDoc(t, `<html><body><section>
<div class="fit-box" style="width: 50%; height: 50%"><img src="tall.png" class="right bottom"/></div>
</section></body></html>`)
	drv := newDriver(t, mapFetcher{"tall.png": encodePNG(t, 100, 700)})

	if _, err := drv.Position(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// container is 480x350; 100x700 overflows height, scales to 50x350
	style := doc.Tree.FindElement("//img").SelectAttrValue("style", "")
	for _, want := range []string{"left: 430px", "top: 0px", "width: 50px", "height: 350px"} {
		if !strings.Contains(style, want) {
			t.Errorf("style %q is missing %q", style, want)
		}
	}
}

func TestPosition_InlinedSVGUsesAttributes(t *testing.T) {
	doc := loadDoc(t, `<html><head><style>.fit-box { width: 400px; height: 300px; }</style></head><body><section>
<div class="fit-box"><svg width="120" height="60" class="centre middle"><circle r="5"/></svg></div>
</section></body></html>`)
	drv := newDriver(t, mapFetcher{})

	stats, err := drv.Position(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Positioned != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	style := doc.Tree.FindElement("//svg").SelectAttrValue("style", "")
	for _, want := range []string{"left: 140px", "top: 120px", "width: 120px", "height: 60px"} {
		if !strings.Contains(style, want) {
			t.Errorf("style %q is missing %q", style, want)
		}
	}
}

func TestPosition_UnloadableImageSkipped(t *testing.T) {
	doc := loadDoc(t, scenarioDoc)
	drv := newDriver(t, mapFetcher{})

	stats, err := drv.Position(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Skipped != 1 || stats.Positioned != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestPosition_ZeroSizeContainerSkipped(t *testing.T) {
	doc := loadDoc(t, `<html><head><style>
.fit-box { width: 0px; height: 300px; }
</style></head><body>
<section><div class="fit-box"><img src="wide.png" class="center middle maximize"/></div></section>
</body></html>`)
	drv := newDriver(t, mapFetcher{"wide.png": encodePNG(t, 800, 300)})

	stats, err := drv.Position(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Skipped != 1 || stats.Positioned != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if doc.Tree.FindElement("//img").SelectAttrValue("data-positioned", "") != "" {
		t.Error("image in a zero-size container must not be positioned")
	}
}

func TestDriverAvailable(t *testing.T) {
	if !newDriver(t, mapFetcher{}).Available() {
		t.Error("driver with a prober must report available")
	}
	if deck.NewDriver(deckConfig(), nil, nil).Available() {
		t.Error("driver without a prober must report unavailable")
	}
}
