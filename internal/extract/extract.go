// Package extract turns fetched documents into article items.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"prensabot/internal/source"
)

// Item is one article discovered in a document.
type Item struct {
	Title string
	URL   string
	// Published is the raw date text exposed by the page, empty when absent.
	Published string
}

// Extractor parses one document family. Implementations return items in
// document order, with URLs resolved against pageURL and deduplicated.
type Extractor interface {
	Extract(pageURL string, body []byte) ([]Item, error)
}

// Registry resolves the extractor for a source family.
type Registry struct {
	byFamily map[source.Family]Extractor
}

func NewRegistry() *Registry {
	return &Registry{byFamily: map[source.Family]Extractor{
		source.FamilyListing: Listing{},
		source.FamilyLookup:  Lookup{},
		source.FamilyFeed:    Feed{},
	}}
}

func (r *Registry) ForFamily(f source.Family) (Extractor, error) {
	ex, ok := r.byFamily[f]
	if !ok {
		return nil, fmt.Errorf("no extractor for source family %q", f)
	}
	return ex, nil
}

func parseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// cleanText joins the text nodes under sel with single spaces and collapses
// internal whitespace, so titles split across inline elements read naturally.
func cleanText(sel *goquery.Selection) string {
	var parts []string
	for _, node := range sel.Nodes {
		collectText(node, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		*parts = append(*parts, strings.Fields(n.Data)...)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// resolveURL resolves href against the page URL, as a browser would for
// relative article links.
func resolveURL(pageURL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}
