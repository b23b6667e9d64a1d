// Package selector resolves domain.Selector values against a parsed HTML
// document, supporting CSS, XPath, and literal-text strategies behind one
// engine-agnostic API.
package selector

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// Document wraps a parsed HTML page. CSS resolution goes through goquery;
// XPath resolution walks the same underlying golang.org/x/net/html.Node
// tree via htmlquery, so both strategies see an identical DOM regardless of
// which engine produced the markup (static fetch or headless render).
type Document struct {
	gq   *goquery.Document
	root *html.Node
}

// Element is a single matched node (e.g. one search-result "article"),
// scoped for nested selector resolution relative to itself.
type Element struct {
	gq   *goquery.Selection
	root *html.Node
}

// ParseHTML parses r into a Document. Callers are responsible for decoding
// to UTF-8 first (the static-html engine does this via golang.org/x/net/html/charset
// before handing bytes here).
func ParseHTML(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("selector: parsing HTML: %w", err)
	}
	var root *html.Node
	if len(doc.Nodes) > 0 {
		root = doc.Nodes[0]
	}
	return &Document{gq: doc, root: root}, nil
}

// Resolve returns the first non-null extraction among sel's fallback values,
// or ("", false) if every fallback failed, was empty, or failed MatchText.
func (d *Document) Resolve(sel domain.Selector) (string, bool) {
	return resolveValue(d.gq.Selection, d.root, sel)
}

// Exists reports whether sel resolves to anything on the document.
func (d *Document) Exists(sel domain.Selector) bool {
	_, ok := d.Resolve(sel)
	return ok
}

// FindAll resolves sel's first matching fallback value to a list of
// elements (e.g. search-result article containers), trying subsequent
// fallback values only if an earlier one matched nothing.
func (d *Document) FindAll(sel domain.Selector) []Element {
	for _, v := range sel.Value {
		switch sel.Type {
		case domain.SelectorCSS:
			found := d.gq.Find(v)
			if found.Length() == 0 {
				continue
			}
			return selectionToElements(found)
		case domain.SelectorXPath:
			nodes := htmlquery.Find(d.root, v)
			if len(nodes) == 0 {
				continue
			}
			return nodesToElements(nodes)
		default:
			continue
		}
	}
	return nil
}

// Resolve resolves sel relative to this element.
func (e Element) Resolve(sel domain.Selector) (string, bool) {
	return resolveValue(e.gq, e.root, sel)
}

// Exists reports whether sel resolves to anything within this element.
func (e Element) Exists(sel domain.Selector) bool {
	_, ok := e.Resolve(sel)
	return ok
}

func selectionToElements(sel *goquery.Selection) []Element {
	elements := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		var root *html.Node
		if len(s.Nodes) > 0 {
			root = s.Nodes[0]
		}
		elements = append(elements, Element{gq: s, root: root})
	})
	return elements
}

func nodesToElements(nodes []*html.Node) []Element {
	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, Element{gq: goquery.NewDocumentFromNode(n).Selection, root: n})
	}
	return elements
}

// resolveValue is the shared resolution loop: try each fallback value in
// order, returning the first one that extracts non-empty text and (if set)
// satisfies MatchText.
func resolveValue(cssScope *goquery.Selection, xpathScope *html.Node, sel domain.Selector) (string, bool) {
	for _, v := range sel.Value {
		extracted, ok := resolveOne(cssScope, xpathScope, sel.Type, sel.Extract, v)
		if !ok || extracted == "" {
			continue
		}
		if sel.MatchText != "" && !textEquals(extracted, sel.MatchText) {
			continue
		}
		return extracted, true
	}
	return "", false
}

func resolveOne(
	cssScope *goquery.Selection,
	xpathScope *html.Node,
	typ domain.SelectorType,
	mode domain.ExtractMode,
	value string,
) (string, bool) {
	switch typ {
	case domain.SelectorCSS:
		found := cssScope.Find(value)
		if found.Length() == 0 {
			return "", false
		}
		return extractFromSelection(found.First(), mode)
	case domain.SelectorXPath:
		nodes := htmlquery.Find(xpathScope, value)
		if len(nodes) == 0 {
			return "", false
		}
		return extractFromNode(nodes[0], mode)
	case domain.SelectorText:
		return matchLiteralText(cssScope, value)
	default:
		return "", false
	}
}

func extractFromSelection(sel *goquery.Selection, mode domain.ExtractMode) (string, bool) {
	switch mode {
	case domain.ExtractHref:
		v, exists := sel.Attr("href")
		return v, exists
	case domain.ExtractInnerHTML:
		h, err := sel.Html()
		return h, err == nil
	default: // domain.ExtractText and unset
		return strings.TrimSpace(sel.Text()), true
	}
}

func extractFromNode(n *html.Node, mode domain.ExtractMode) (string, bool) {
	switch mode {
	case domain.ExtractHref:
		v := htmlquery.SelectAttr(n, "href")
		return v, v != ""
	case domain.ExtractInnerHTML:
		var sb strings.Builder
		if err := html.Render(&sb, n); err != nil {
			return "", false
		}
		return sb.String(), true
	default: // domain.ExtractText and unset
		return strings.TrimSpace(htmlquery.InnerText(n)), true
	}
}

// matchLiteralText reports a case-insensitive substring match of literal
// against scope's rendered text, used for availability phrases like
// "Out of Stock" that have no reliable selector of their own.
func matchLiteralText(scope *goquery.Selection, literal string) (string, bool) {
	text := strings.ToLower(scope.Text())
	if strings.Contains(text, strings.ToLower(literal)) {
		return literal, true
	}
	return "", false
}

// textEquals compares extracted text to a configured literal
// case-insensitively with whitespace normalized to single spaces.
func textEquals(extracted, literal string) bool {
	return normalizeWhitespace(extracted) == normalizeWhitespace(literal)
}

func normalizeWhitespace(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ResolveURL joins ref against base, accepting relative, protocol-relative,
// and absolute forms.
func ResolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("selector: parsing base URL %q: %w", base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("selector: parsing reference URL %q: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// MatchAny reports whether any selector in sels resolves against doc —
// used for the "ANY match in available/unavailable" availability rule.
func MatchAny(doc interface {
	Resolve(domain.Selector) (string, bool)
}, sels []domain.Selector,
) bool {
	for _, s := range sels {
		if _, ok := doc.Resolve(s); ok {
			return true
		}
	}
	return false
}
