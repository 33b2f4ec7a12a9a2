package css_test

import (
	"testing"

	"go.uber.org/zap"

	"slidefit/css"
)

func TestParser_ElementSelector(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet := p.Parse([]byte(`img { max-width: 95%; }`))

	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}
	rule := sheet.Rules[0]
	if rule.Selector.Element != "img" {
		t.Errorf("expected element 'img', got '%s'", rule.Selector.Element)
	}
	val, ok := rule.GetProperty("max-width")
	if !ok {
		t.Fatal("expected max-width property")
	}
	if val.Value != 95 || val.Unit != "%" {
		t.Errorf("expected 95%%, got %v%s", val.Value, val.Unit)
	}
}

func TestParser_ClassSelector(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet := p.Parse([]byte(`.fit-box { width: 400px; height: 300px; }`))

	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}
	rule := sheet.Rules[0]
	if rule.Selector.Class != "fit-box" {
		t.Errorf("expected class 'fit-box', got '%s'", rule.Selector.Class)
	}
	if v, _ := rule.GetProperty("width"); v.Value != 400 || v.Unit != "px" {
		t.Errorf("expected 400px width, got %v%s", v.Value, v.Unit)
	}
}

func TestParser_GroupedSelectors(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet := p.Parse([]byte(`img, svg { margin: 10px; }`))

	if len(sheet.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(sheet.Rules))
	}
	for _, rule := range sheet.Rules {
		if v, ok := rule.GetProperty("margin-top"); !ok || v.Value != 10 {
			t.Errorf("%s: expected expanded margin-top 10px, got %+v", rule.Selector.Raw, v)
		}
	}
}

func TestParser_SkipsUnsupportedSelectors(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet := p.Parse([]byte(`section > img { width: 1px; } img[alt] { width: 2px; } img:hover { width: 3px; }`))

	if len(sheet.Rules) != 0 {
		t.Fatalf("expected no rules, got %d", len(sheet.Rules))
	}
	if len(sheet.Warnings) != 3 {
		t.Errorf("expected 3 warnings, got %d: %v", len(sheet.Warnings), sheet.Warnings)
	}
}

func TestParser_SkipsAtRules(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet := p.Parse([]byte(`@media print { img { display: none; } } .x { width: 5px; }`))

	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule after @media skip, got %d", len(sheet.Rules))
	}
	if sheet.Rules[0].Selector.Class != "x" {
		t.Errorf("unexpected rule: %+v", sheet.Rules[0].Selector)
	}
}

func TestParser_ParseDeclarations(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	props := p.ParseDeclarations(`max-width: 80%; margin: 5px 10px; display: none`)

	if v, ok := props["max-width"]; !ok || v.Value != 80 || v.Unit != "%" {
		t.Errorf("max-width: got %+v", v)
	}
	if v, ok := props["margin-top"]; !ok || v.Value != 5 || v.Unit != "px" {
		t.Errorf("margin-top: got %+v", v)
	}
	if v, ok := props["margin-left"]; !ok || v.Value != 10 || v.Unit != "px" {
		t.Errorf("margin-left: got %+v", v)
	}
	if v, ok := props["display"]; !ok || v.Keyword != "none" {
		t.Errorf("display: got %+v", v)
	}
	if _, ok := props["margin"]; ok {
		t.Error("margin shorthand must be expanded away")
	}
}

func TestStylesheet_PropertyFor(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet := p.Parse([]byte(`
img { max-width: 50%; }
.hero { max-width: 90%; }
.thumb { max-width: 10%; }
`))

	if v, ok := sheet.PropertyFor("img", nil, "max-width"); !ok || v.Value != 50 {
		t.Errorf("element match: got %+v (found=%v)", v, ok)
	}
	// class beats element regardless of order
	if v, ok := sheet.PropertyFor("img", []string{"hero"}, "max-width"); !ok || v.Value != 90 {
		t.Errorf("class match: got %+v (found=%v)", v, ok)
	}
	// later matching class rule wins
	if v, ok := sheet.PropertyFor("img", []string{"hero", "thumb"}, "max-width"); !ok || v.Value != 10 {
		t.Errorf("later class rule: got %+v (found=%v)", v, ok)
	}
	if _, ok := sheet.PropertyFor("svg", nil, "max-width"); ok {
		t.Error("unexpected match for unrelated element")
	}
}

func TestExpandShorthand_LonghandWins(t *testing.T) {
	props := map[string]css.Value{
		"margin":     {Raw: "10px"},
		"margin-top": {Raw: "1px", Value: 1, Unit: "px"},
	}
	css.ExpandShorthand(props)

	if v := props["margin-top"]; v.Value != 1 {
		t.Errorf("explicit margin-top must win over shorthand, got %+v", v)
	}
	if v := props["margin-bottom"]; v.Value != 10 {
		t.Errorf("margin-bottom from shorthand: got %+v", v)
	}
}
