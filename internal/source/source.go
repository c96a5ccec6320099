// Package source holds the catalog of watched pages and selection of the
// enabled subset for a run.
package source

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrUnknown reports requested source keys missing from the registry.
var ErrUnknown = errors.New("unknown sources")

// Family tells the engine which extraction strategy a source needs.
type Family string

const (
	// FamilyListing pages repeat article blocks with the date inline.
	FamilyListing Family = "listing"
	// FamilyLookup pages carry date cells keyed by article id; titles come
	// from a separate link scan over the same document.
	FamilyLookup Family = "lookup"
	// FamilyFeed sources are RSS or Atom documents.
	FamilyFeed Family = "feed"
)

func ParseFamily(s string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(s))); f {
	case FamilyListing, FamilyLookup, FamilyFeed:
		return f, nil
	default:
		return "", fmt.Errorf("unknown source family %q", s)
	}
}

// Source is one watched page.
type Source struct {
	// Key identifies the source in state documents and ENABLED_SOURCES.
	Key string
	// Name is the display name used in notification messages.
	Name   string
	URL    string
	Family Family
}

// Catalog returns the built-in sources in presentation order.
func Catalog() []Source {
	return []Source{
		{
			Key:    "cucuta",
			Name:   "Alcaldia de Cucuta - Ultimas noticias",
			URL:    "https://cucuta.gov.co/ultimas-noticias/",
			Family: FamilyListing,
		},
		{
			Key:    "mintic_convocatorias",
			Name:   "MinTIC - Convocatorias",
			URL:    "https://www.mintic.gov.co/portal/inicio/Sala-de-prensa/Convocatorias/",
			Family: FamilyLookup,
		},
		{
			Key:    "mintic_noticias",
			Name:   "MinTIC - Noticias",
			URL:    "https://www.mintic.gov.co/portal/inicio/Sala-de-prensa/Noticias/",
			Family: FamilyLookup,
		},
	}
}

// Registry maps source keys to definitions. Declared sources override
// built-ins with the same key and otherwise append after the catalog.
type Registry struct {
	byKey map[string]Source
	order []string
}

func NewRegistry() *Registry {
	r := &Registry{byKey: make(map[string]Source)}
	for _, src := range Catalog() {
		r.byKey[src.Key] = src
		r.order = append(r.order, src.Key)
	}
	return r
}

// Add registers or overrides a source definition.
func (r *Registry) Add(src Source) error {
	src.Key = strings.ToLower(strings.TrimSpace(src.Key))
	if src.Key == "" {
		return fmt.Errorf("source key is required")
	}
	if strings.TrimSpace(src.Name) == "" {
		src.Name = src.Key
	}
	u, err := url.Parse(strings.TrimSpace(src.URL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source %s: invalid url %q", src.Key, src.URL)
	}
	src.URL = u.String()
	if _, err := ParseFamily(string(src.Family)); err != nil {
		return fmt.Errorf("source %s: %w", src.Key, err)
	}

	if _, exists := r.byKey[src.Key]; !exists {
		r.order = append(r.order, src.Key)
	}
	r.byKey[src.Key] = src
	return nil
}

func (r *Registry) Get(key string) (Source, bool) {
	src, ok := r.byKey[key]
	return src, ok
}

// Keys returns every registered key in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Select resolves the enabled subset for a run. An empty request selects
// every registered source in registration order; otherwise the requested
// order is preserved. Any unknown key fails the whole selection.
func (r *Registry) Select(requested []string) ([]Source, error) {
	if len(requested) == 0 {
		out := make([]Source, 0, len(r.order))
		for _, key := range r.order {
			out = append(out, r.byKey[key])
		}
		return out, nil
	}

	seen := make(map[string]struct{}, len(requested))
	var out []Source
	var unknown []string
	for _, raw := range requested {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		src, ok := r.byKey[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		out = append(out, src)
	}
	if len(unknown) > 0 {
		valid := r.Keys()
		sort.Strings(valid)
		return nil, fmt.Errorf("%w: %s (options: %s)",
			ErrUnknown, strings.Join(unknown, ", "), strings.Join(valid, ", "))
	}
	if len(out) == 0 {
		return r.Select(nil)
	}
	return out, nil
}
