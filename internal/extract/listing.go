package extract

import "github.com/PuerkitoBio/goquery"

// Selector groups for listing pages; they cover the WordPress and Elementor
// markup variants the watched portals switch between.
const (
	listingBlockSelector         = "div.post.type-post, div.post"
	listingBlockFallbackSelector = "article.post"
	listingTitleSelector         = "h1 a, h2 a, h3 a, .elementor-heading-title a, a[rel='bookmark']"
	listingDateSelector          = "time, .entry-date, .elementor-post-info__item--type-date"
)

// Listing extracts articles from pages that repeat a post block carrying the
// title link and date inline.
type Listing struct{}

func (Listing) Extract(pageURL string, body []byte) ([]Item, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	blocks := doc.Find(listingBlockSelector)
	if blocks.Length() == 0 {
		blocks = doc.Find(listingBlockFallbackSelector)
	}

	seen := make(map[string]struct{})
	var items []Item
	blocks.Each(func(_ int, block *goquery.Selection) {
		link := block.Find(listingTitleSelector).First()
		if link.Length() == 0 {
			return
		}
		title := cleanText(link)
		href, _ := link.Attr("href")
		fullURL, ok := resolveURL(pageURL, href)
		if title == "" || !ok {
			return
		}
		if _, dup := seen[fullURL]; dup {
			return
		}

		var published string
		if date := block.Find(listingDateSelector).First(); date.Length() > 0 {
			published = cleanText(date)
		}

		items = append(items, Item{Title: title, URL: fullURL, Published: published})
		seen[fullURL] = struct{}{}
	})
	return items, nil
}
