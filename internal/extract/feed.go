package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Feed extracts articles from RSS and Atom documents. Entries without a
// usable link are skipped; an entry GUID that looks like an HTTP URL counts
// as a link.
type Feed struct{}

func (Feed) Extract(pageURL string, body []byte) ([]Item, error) {
	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	seen := make(map[string]struct{}, len(parsed.Items))
	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		link := entryLink(entry)
		if link == "" {
			continue
		}
		fullURL, ok := resolveURL(pageURL, link)
		if !ok {
			continue
		}
		title := strings.Join(strings.Fields(entry.Title), " ")
		if title == "" {
			continue
		}
		if _, dup := seen[fullURL]; dup {
			continue
		}

		items = append(items, Item{
			Title:     title,
			URL:       fullURL,
			Published: entryPublished(entry),
		})
		seen[fullURL] = struct{}{}
	}
	return items, nil
}

func entryLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if strings.HasPrefix(entry.GUID, "http") {
		return entry.GUID
	}
	return ""
}

// entryPublished prefers the feed's own date text; a parsed timestamp is the
// fallback, rendered in UTC.
func entryPublished(entry *gofeed.Item) string {
	if text := strings.Join(strings.Fields(entry.Published), " "); text != "" {
		return text
	}
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC().Format(time.RFC3339)
	}
	return ""
}
