package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Lookup pages link articles through a numeric id in the path; the date
// lives in a separate cell whose class carries the same id.
var (
	lookupArticlePattern   = regexp.MustCompile(`/Sala-de-prensa/Noticias/\d+:`)
	lookupArticleIDPattern = regexp.MustCompile(`/Noticias/(\d+):`)
	lookupIDClassPattern   = regexp.MustCompile(`^aid-(\d+)$`)
)

// Lookup extracts articles from pages whose dates are keyed by article id.
type Lookup struct{}

func (Lookup) Extract(pageURL string, body []byte) ([]Item, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	// First date cell per id wins.
	dateByID := make(map[string]string)
	doc.Find("div.fecha").Each(func(_ int, date *goquery.Selection) {
		text := cleanText(date)
		if text == "" {
			return
		}
		id := classArticleID(date)
		if id == "" {
			return
		}
		if _, exists := dateByID[id]; !exists {
			dateByID[id] = text
		}
	})

	seen := make(map[string]struct{})
	var items []Item
	doc.Find("div.titulo").Each(func(_ int, cell *goquery.Selection) {
		link := cell.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		title := cleanText(link)
		fullURL, ok := resolveURL(pageURL, href)
		if title == "" || !ok {
			return
		}
		if _, dup := seen[fullURL]; dup {
			return
		}
		if !lookupArticlePattern.MatchString(fullURL) {
			return
		}

		id := classArticleID(cell)
		if id == "" {
			if m := lookupArticleIDPattern.FindStringSubmatch(fullURL); m != nil {
				id = m[1]
			}
		}

		items = append(items, Item{Title: title, URL: fullURL, Published: dateByID[id]})
		seen[fullURL] = struct{}{}
	})
	return items, nil
}

// classArticleID pulls the numeric id from an aid-<n> class token.
func classArticleID(sel *goquery.Selection) string {
	for _, token := range strings.Fields(sel.AttrOr("class", "")) {
		if m := lookupIDClassPattern.FindStringSubmatch(token); m != nil {
			return m[1]
		}
	}
	return ""
}
