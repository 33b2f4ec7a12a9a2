// Package css provides the small slice of CSS handling the positioning
// engine needs: parsing style declarations and class rules from deck
// documents and normalizing measurement strings to concrete pixel values.
package css

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Value represents a parsed CSS property value.
type Value struct {
	Raw     string  // Original CSS value string (e.g., "1.2em", "50%", "#ff0000")
	Value   float64 // Numeric value if applicable
	Unit    string  // Unit if applicable: "em", "px", "%", "pt", etc.
	Keyword string  // Keyword if applicable: "none", "center", etc.
}

// IsNumeric returns true if the value has a numeric component.
// This includes explicit zero values like "0" or "0px".
func (v Value) IsNumeric() bool {
	if v.Unit != "" {
		return true
	}
	if v.Value != 0 && v.Keyword == "" {
		return true
	}
	// Raw starting with a digit, dot or sign covers the "0" case
	if v.Raw != "" && v.Keyword == "" {
		firstChar := rune(v.Raw[0])
		if unicode.IsDigit(firstChar) || firstChar == '.' || firstChar == '-' || firstChar == '+' {
			return true
		}
	}
	return false
}

// IsKeyword returns true if the value is a keyword (no numeric component).
func (v Value) IsKeyword() bool {
	return v.Keyword != "" && v.Unit == ""
}

// Selector represents a parsed CSS selector. Only simple element and class
// selectors participate in style resolution - everything deck documents
// realistically use for sizing containers and images.
type Selector struct {
	Raw     string // Original selector string
	Element string // Element name (e.g., "img", "section") or empty for class-only
	Class   string // Class name without dot or empty
}

// IsSimple returns true if this is a selector we can match.
func (s Selector) IsSimple() bool {
	return s.Element != "" || s.Class != ""
}

// Rule represents a single CSS rule (selector + properties).
type Rule struct {
	Selector   Selector
	Properties map[string]Value
}

// GetProperty returns the value for a property, or empty Value if not found.
func (r Rule) GetProperty(name string) (Value, bool) {
	v, ok := r.Properties[name]
	return v, ok
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Rules    []Rule   // Rules in source order
	Warnings []string // Warnings for skipped selectors
}

// PropertyFor resolves a property for an element with the given tag and class
// list. Rules are applied in source order, later matches override earlier
// ones; class matches override element matches regardless of order, mirroring
// specificity as far as deck styling needs it.
func (s *Stylesheet) PropertyFor(tag string, classes []string, prop string) (Value, bool) {
	var (
		val     Value
		found   bool
		byClass bool
	)
	for _, rule := range s.Rules {
		v, ok := rule.Properties[prop]
		if !ok {
			continue
		}
		switch {
		case rule.Selector.Class != "":
			if !hasClass(classes, rule.Selector.Class) {
				continue
			}
			if rule.Selector.Element != "" && !strings.EqualFold(rule.Selector.Element, tag) {
				continue
			}
			val, found, byClass = v, true, true
		case rule.Selector.Element != "":
			if !strings.EqualFold(rule.Selector.Element, tag) {
				continue
			}
			if byClass {
				continue
			}
			val, found = v, true
		}
	}
	return val, found
}

func hasClass(classes []string, want string) bool {
	for _, c := range classes {
		if c == want {
			return true
		}
	}
	return false
}

// MeasurementError reports a computed-style string that could not be parsed
// to a numeric pixel value. It is not recoverable where it happens - a
// malformed style is an authoring defect surfaced once, never retried.
type MeasurementError struct {
	Raw string
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("unparseable measurement %q", e.Raw)
}

// IsMeasurementError reports whether err has a MeasurementError in its chain.
func IsMeasurementError(err error) bool {
	var me *MeasurementError
	return errors.As(err, &me)
}
