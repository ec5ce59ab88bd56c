package classifications_test

import (
	"slices"
	"testing"

	"github.com/JaimeStill/glimpse/internal/classifications"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name  string
		input []classifications.Classification
		want  []string
	}{
		{
			name:  "empty",
			input: nil,
			want:  []string{},
		},
		{
			name: "fewer than three",
			input: []classifications.Classification{
				{Name: "dog", Score: 0.2},
				{Name: "cat", Score: 0.9},
			},
			want: []string{"cat", "dog"},
		},
		{
			name: "truncated to three",
			input: []classifications.Classification{
				{Name: "a", Score: 0.1},
				{Name: "b", Score: 0.5},
				{Name: "c", Score: 0.3},
				{Name: "d", Score: 0.7},
				{Name: "e", Score: 0.05},
			},
			want: []string{"d", "b", "c"},
		},
		{
			name: "stable on ties",
			input: []classifications.Classification{
				{Name: "first", Score: 0.4},
				{Name: "high", Score: 0.8},
				{Name: "second", Score: 0.4},
				{Name: "third", Score: 0.4},
			},
			want: []string{"high", "first", "second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifications.Rank(tt.input)

			names := make([]string, len(got))
			for i, c := range got {
				names[i] = c.Name
			}
			if !slices.Equal(names, tt.want) {
				t.Errorf("Rank = %v, want %v", names, tt.want)
			}

			for i := 1; i < len(got); i++ {
				if got[i].Score > got[i-1].Score {
					t.Errorf("not descending at %d: %v", i, got)
				}
			}
		})
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	input := []classifications.Classification{
		{Name: "low", Score: 0.1},
		{Name: "high", Score: 0.9},
	}

	classifications.Rank(input)

	if input[0].Name != "low" || input[1].Name != "high" {
		t.Errorf("input reordered: %v", input)
	}
}

func TestTop(t *testing.T) {
	if _, ok := classifications.Top(nil); ok {
		t.Error("Top(nil) should report ok=false")
	}

	top, ok := classifications.Top([]classifications.Classification{
		{Name: "dog", Score: 0.3},
		{Name: "cat", Score: 0.9},
		{Name: "lynx", Score: 0.9},
	})
	if !ok {
		t.Fatal("Top reported ok=false")
	}
	if top.Name != "cat" {
		t.Errorf("Top = %q, want cat", top.Name)
	}
}
