package state

import (
	"reflect"
	"testing"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing []string
		newURLs  []string
		maxItems int
		want     []string
	}{
		{
			name:     "new urls go first",
			existing: []string{"c", "d"},
			newURLs:  []string{"a", "b"},
			maxItems: 10,
			want:     []string{"a", "b", "c", "d"},
		},
		{
			name:     "duplicates keep first position",
			existing: []string{"a", "b"},
			newURLs:  []string{"b", "c"},
			maxItems: 10,
			want:     []string{"b", "c", "a"},
		},
		{
			name:     "blanks dropped",
			existing: []string{" ", "a"},
			newURLs:  []string{"", "  b  "},
			maxItems: 10,
			want:     []string{"b", "a"},
		},
		{
			name:     "cap drops oldest",
			existing: []string{"c", "d", "e"},
			newURLs:  []string{"a", "b"},
			maxItems: 3,
			want:     []string{"a", "b", "c"},
		},
		{
			name:     "duplicates do not consume the cap",
			existing: []string{"a", "b", "c"},
			newURLs:  []string{"a", "a"},
			maxItems: 3,
			want:     []string{"a", "b", "c"},
		},
		{
			name:     "non-positive cap keeps everything",
			existing: []string{"b", "c"},
			newURLs:  []string{"a"},
			maxItems: 0,
			want:     []string{"a", "b", "c"},
		},
		{
			name:     "no new input keeps existing order",
			existing: []string{"a", "b", "c"},
			newURLs:  nil,
			maxItems: 10,
			want:     []string{"a", "b", "c"},
		},
		{
			name:     "empty inputs",
			existing: nil,
			newURLs:  nil,
			maxItems: 5,
			want:     []string{},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Merge(tt.existing, tt.newURLs, tt.maxItems)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	existing := []string{"x", "y"}
	newURLs := []string{"z"}
	_ = Merge(existing, newURLs, 2)

	if existing[0] != "x" || existing[1] != "y" || newURLs[0] != "z" {
		t.Fatal("inputs were mutated")
	}
}
