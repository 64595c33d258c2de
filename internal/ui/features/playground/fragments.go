package playground

import (
	"html/template"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/leapstack-labs/psplay/internal/feedback"
	"github.com/leapstack-labs/psplay/internal/ui/resources"
)

// RenderFeedback renders the four feedback regions of id showing v. Each
// region carries its own element id so a patch replaces it in place.
func RenderFeedback(id string, v feedback.View) (string, error) {
	var b strings.Builder
	for _, n := range feedbackNodes(id, v) {
		if err := html.Render(&b, n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func feedbackNodes(id string, v feedback.View) []*html.Node {
	errs := element(atom.P, attr("id", errorsID(id)), attr("class", "js-errors"))
	if v.Error != "" {
		errs.AppendChild(text(v.Error))
	}

	results := element(atom.Pre, attr("id", resultsID(id)), attr("class", "js-results"))
	if len(v.Results) > 0 {
		results.AppendChild(text(strings.Join(v.Results, "\n")))
	}

	return []*html.Node{
		errs,
		results,
		indicator(okID(id), "js-ok", resources.StaticPath("ok.svg"), "passed", v.OK),
		indicator(nokID(id), "js-nok", resources.StaticPath("nok.svg"), "failed", v.NOK),
	}
}

func indicator(id, class, src, alt string, visible bool) *html.Node {
	n := element(atom.Img, attr("id", id), attr("class", class), attr("src", src), attr("alt", alt))
	if !visible {
		n.Attr = append(n.Attr, attr("hidden", "hidden"))
	}
	return n
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// feedbackHTML is RenderFeedback for templates.
func feedbackHTML(id string, v feedback.View) (template.HTML, error) {
	s, err := RenderFeedback(id, v)
	if err != nil {
		return "", err
	}
	return template.HTML(s), nil //nolint:gosec // built from escaped nodes
}
