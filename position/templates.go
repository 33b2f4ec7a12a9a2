package position

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"slidefit/config"
	"slidefit/deck"
)

// Values holds the variables available to output name template expansion.
type Values struct {
	Context    string
	Title      string
	Language   string
	SourceFile string
	DeckID     string
	Slides     int
}

// collectValues extracts template variables from a loaded deck document.
func collectValues(doc *deck.Document, slideTag, src, deckID string) Values {
	v := Values{
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		DeckID:     deckID,
		Slides:     len(doc.Tree.FindElements("//" + slideTag)),
	}
	if title := doc.Tree.FindElement("//title"); title != nil {
		v.Title = strings.TrimSpace(title.Text())
	}
	if root := doc.Tree.Root(); root != nil {
		v.Language = root.SelectAttrValue("lang", "")
	}
	return v
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values.Context = string(name)

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
