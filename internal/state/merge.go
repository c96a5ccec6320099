package state

import "strings"

// Merge prepends newURLs to existing, dropping blanks and duplicates, and
// caps the result at maxItems. Newest entries stay first, so the cap expires
// the oldest URLs.
func Merge(existing, newURLs []string, maxItems int) []string {
	capHint := len(existing) + len(newURLs)
	if maxItems > 0 && maxItems < capHint {
		capHint = maxItems
	}
	merged := make([]string, 0, capHint)
	seen := make(map[string]struct{}, capHint)

	for _, lst := range [2][]string{newURLs, existing} {
		for _, raw := range lst {
			url := strings.TrimSpace(raw)
			if url == "" {
				continue
			}
			if _, dup := seen[url]; dup {
				continue
			}
			merged = append(merged, url)
			seen[url] = struct{}{}
			if maxItems > 0 && len(merged) >= maxItems {
				return merged
			}
		}
	}
	return merged
}
