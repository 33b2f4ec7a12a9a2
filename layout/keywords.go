package layout

import (
	"strings"
)

// Keyword is a declarative alignment token read from an image's class list.
type Keyword int

const (
	KeywordTop Keyword = iota
	KeywordBottom
	KeywordLeft
	KeywordRight
	KeywordCenter
	KeywordCentre
	KeywordMiddle
)

var keywordNames = map[string]Keyword{
	"top":    KeywordTop,
	"bottom": KeywordBottom,
	"left":   KeywordLeft,
	"right":  KeywordRight,
	"center": KeywordCenter,
	"centre": KeywordCentre,
	"middle": KeywordMiddle,
}

func (k Keyword) String() string {
	for n, kw := range keywordNames {
		if kw == k {
			return n
		}
	}
	return "unknown"
}

// KeywordsFromClass extracts alignment keywords from a class attribute in
// the attribute's token order, and separately whether the fit flag
// (maximize/maximise) is present. Order is preserved - conflict resolution
// between keywords affecting the same axis is strictly "last wins".
func KeywordsFromClass(classAttr string) (keywords []Keyword, fit bool) {
	for _, token := range strings.Fields(classAttr) {
		switch t := strings.ToLower(token); t {
		case "maximize", "maximise":
			fit = true
		default:
			if kw, ok := keywordNames[t]; ok {
				keywords = append(keywords, kw)
			}
		}
	}
	return keywords, fit
}
