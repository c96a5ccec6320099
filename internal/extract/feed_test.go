package extract

import (
	"testing"

	"prensabot/internal/source"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Boletin institucional</title>
  <item>
    <title>Primer   comunicado</title>
    <link>https://example.gov.co/comunicados/1</link>
    <pubDate>Mon, 11 Aug 2025 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Segundo comunicado</title>
    <guid>https://example.gov.co/comunicados/2</guid>
  </item>
  <item>
    <title>Sin enlace utilizable</title>
    <guid isPermaLink="false">tag:interno,2025:3</guid>
  </item>
</channel>
</rss>`

func TestFeedExtractRSS(t *testing.T) {
	t.Parallel()

	items, err := Feed{}.Extract("https://example.gov.co/rss.xml", []byte(rssFixture))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}

	if items[0].Title != "Primer comunicado" {
		t.Fatalf("title whitespace not collapsed: %q", items[0].Title)
	}
	if items[0].Published != "Mon, 11 Aug 2025 09:00:00 GMT" {
		t.Fatalf("expected raw feed date, got %q", items[0].Published)
	}

	// Link missing, HTTP GUID used instead.
	if items[1].URL != "https://example.gov.co/comunicados/2" {
		t.Fatalf("guid fallback failed: %+v", items[1])
	}
}

func TestFeedExtractAtom(t *testing.T) {
	t.Parallel()

	atom := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Avisos</title>
  <entry>
    <title>Aviso de mantenimiento</title>
    <link href="https://example.gov.co/avisos/9"/>
    <updated>2025-08-12T15:04:05Z</updated>
  </entry>
</feed>`

	items, err := Feed{}.Extract("https://example.gov.co/atom.xml", []byte(atom))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %+v", items)
	}
	if items[0].URL != "https://example.gov.co/avisos/9" || items[0].Title != "Aviso de mantenimiento" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if items[0].Published == "" {
		t.Fatal("expected a published value from the atom entry")
	}
}

func TestFeedExtractRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := (Feed{}).Extract("https://example.gov.co/rss.xml", []byte("<html>no soy un feed</html>")); err == nil {
		t.Fatal("expected parse error for non-feed content")
	}
}

func TestRegistryCoversAllFamilies(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	for _, family := range []source.Family{source.FamilyListing, source.FamilyLookup, source.FamilyFeed} {
		if _, err := r.ForFamily(family); err != nil {
			t.Fatalf("family %s missing: %v", family, err)
		}
	}
	if _, err := r.ForFamily(source.Family("scrape")); err == nil {
		t.Fatal("expected error for unknown family")
	}
}
