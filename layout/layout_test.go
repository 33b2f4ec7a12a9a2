package layout

import (
	"math"
	"testing"
)

func metrics(nw, nh, cw, ch int) BoxMetrics {
	return BoxMetrics{
		Natural:   Dimension{Width: nw, Height: nh},
		Container: Dimension{Width: cw, Height: ch},
	}
}

func TestResolve_Scenario(t *testing.T) {
	// container 400x300, image 800x300, fit requested, centered both ways
	m := metrics(800, 300, 400, 300)
	c := ScaleConstraint{MaxWidth: "100%", MaxHeight: "100%"}

	res, err := Resolve(m, c, []Keyword{KeywordCenter, KeywordMiddle}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Size.Width != 400 || res.Size.Height != 150 {
		t.Errorf("expected 400x150, got %dx%d", res.Size.Width, res.Size.Height)
	}
	if !res.HasLeft || res.Left != 0 {
		t.Errorf("expected left offset 0, got %d (set=%v)", res.Left, res.HasLeft)
	}
	if !res.HasTop || res.Top != 75 {
		t.Errorf("expected top offset 75, got %d (set=%v)", res.Top, res.HasTop)
	}
	if !res.Positioned {
		t.Error("expected result to be marked positioned")
	}
}

func TestResolve_PassthroughWhenFits(t *testing.T) {
	m := metrics(200, 100, 400, 300)

	res, err := Resolve(m, ScaleConstraint{}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Size != m.Natural {
		t.Errorf("expected natural size %v unchanged, got %v", m.Natural, res.Size)
	}
	if res.HasTop || res.HasLeft {
		t.Error("expected no offsets without alignment keywords")
	}
}

func TestResolve_FitTriggersScalingEvenWhenImageFits(t *testing.T) {
	m := metrics(200, 100, 400, 300)

	res, err := Resolve(m, ScaleConstraint{}, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// wRatio 0.5 > hRatio 0.333 so width is clamped to the container
	if res.Size.Width != 400 || res.Size.Height != 200 {
		t.Errorf("expected 400x200, got %dx%d", res.Size.Width, res.Size.Height)
	}
}

func TestResolve_LastKeywordWins(t *testing.T) {
	m := metrics(100, 100, 400, 300)

	res, err := Resolve(m, ScaleConstraint{}, []Keyword{KeywordTop, KeywordBottom}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Top != 300-100 {
		t.Errorf("expected bottom formula result 200, got %d", res.Top)
	}

	// and the reverse ordering resolves to top
	res, err = Resolve(m, ScaleConstraint{}, []Keyword{KeywordBottom, KeywordTop}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Top != 0 {
		t.Errorf("expected top formula result 0, got %d", res.Top)
	}
}

func TestResolve_AxesIndependent(t *testing.T) {
	m := metrics(100, 100, 400, 300)

	res, err := Resolve(m, ScaleConstraint{}, []Keyword{KeywordRight}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.HasLeft || res.Left != 300 {
		t.Errorf("expected left offset 300, got %d (set=%v)", res.Left, res.HasLeft)
	}
	if res.HasTop {
		t.Error("vertical axis must stay untouched without a vertical keyword")
	}
}

func TestResolve_AspectRatioPreserved(t *testing.T) {
	cases := []struct {
		name   string
		nw, nh int
		cw, ch int
	}{
		{"wide image", 1600, 900, 400, 300},
		{"tall image", 300, 1200, 400, 300},
		{"square image", 1000, 1000, 400, 300},
		{"slightly oversized", 401, 300, 400, 300},
		{"odd dimensions", 733, 517, 400, 300},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics(tc.nw, tc.nh, tc.cw, tc.ch)
			res, err := Resolve(m, ScaleConstraint{}, nil, true)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Size.Width <= 0 || res.Size.Height <= 0 {
				t.Fatalf("degenerate size %v", res.Size)
			}
			natural := float64(tc.nw) / float64(tc.nh)
			got := float64(res.Size.Width) / float64(res.Size.Height)
			// truncation may shift the scaled ratio by at most one pixel
			// on the derived dimension
			maxErr := (natural + 1) / math.Min(float64(res.Size.Width), float64(res.Size.Height))
			if diff := math.Abs(natural - got); diff > maxErr {
				t.Errorf("aspect ratio drifted: natural %f, scaled %f (diff %f > %f)", natural, got, diff, maxErr)
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	m := metrics(800, 300, 400, 300)
	m.Margins = Margins{Top: 10, Right: 20, Bottom: 10, Left: 20}
	c := ScaleConstraint{MaxWidth: "90%", MaxHeight: "80%"}
	kws := []Keyword{KeywordCenter, KeywordMiddle, KeywordRight}

	first, err := Resolve(m, c, kws, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Resolve(m, c, kws, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("resolver is not idempotent: %+v vs %+v", first, second)
	}
}

func TestResolve_MarginsReduceAvailableSpace(t *testing.T) {
	m := metrics(800, 300, 400, 300)
	m.Margins = Margins{Left: 10, Right: 10}

	res, err := Resolve(m, ScaleConstraint{}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// width branch: maxWidth defaults to the full container side, margins
	// subtracted: 400-10-10=380, height follows the aspect ratio
	if res.Size.Width != 380 {
		t.Errorf("expected width 380, got %d", res.Size.Width)
	}
	// 300*380/800 = 142.5, truncated toward zero
	if res.Size.Height != 142 {
		t.Errorf("expected height 142, got %d", res.Size.Height)
	}
}

func TestResolve_TieGoesToHeightBranch(t *testing.T) {
	// equal ratios: 800/400 == 600/300 == 2.0
	m := metrics(800, 600, 400, 300)

	res, err := Resolve(m, ScaleConstraint{}, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// height branch clamps height to the container
	if res.Size.Height != 300 || res.Size.Width != 400 {
		t.Errorf("expected 400x300 via height branch, got %dx%d", res.Size.Width, res.Size.Height)
	}
}

func TestResolve_MalformedConstraint(t *testing.T) {
	m := metrics(800, 300, 400, 300)

	_, err := Resolve(m, ScaleConstraint{MaxWidth: "garbage"}, nil, true)
	if err == nil {
		t.Fatal("expected measurement error for malformed max-width")
	}
	res, err2 := Resolve(m, ScaleConstraint{MaxWidth: "garbage"}, nil, true)
	if err2 == nil {
		t.Fatal("expected measurement error on repeat invocation")
	}
	if res.Positioned {
		t.Error("failed resolution must not claim positioned state")
	}
}

func TestKeywordsFromClass(t *testing.T) {
	cases := []struct {
		class string
		want  []Keyword
		fit   bool
	}{
		{"", nil, false},
		{"top", []Keyword{KeywordTop}, false},
		{"top bottom", []Keyword{KeywordTop, KeywordBottom}, false},
		{"fragment center maximize middle", []Keyword{KeywordCenter, KeywordMiddle}, true},
		{"maximise", nil, true},
		{"CENTRE Right", []Keyword{KeywordCentre, KeywordRight}, false},
		{"centered topmost", nil, false},
	}
	for _, tc := range cases {
		kws, fit := KeywordsFromClass(tc.class)
		if fit != tc.fit {
			t.Errorf("%q: fit = %v, want %v", tc.class, fit, tc.fit)
		}
		if len(kws) != len(tc.want) {
			t.Errorf("%q: keywords = %v, want %v", tc.class, kws, tc.want)
			continue
		}
		for i := range kws {
			if kws[i] != tc.want[i] {
				t.Errorf("%q: keyword %d = %v, want %v", tc.class, i, kws[i], tc.want[i])
			}
		}
	}
}

func TestFloorHalf(t *testing.T) {
	cases := []struct{ in, want int }{
		{150, 75},
		{151, 75},
		{0, 0},
		{-1, -1},
		{-50, -25},
		{-51, -26},
	}
	for _, tc := range cases {
		if got := floorHalf(tc.in); got != tc.want {
			t.Errorf("floorHalf(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
