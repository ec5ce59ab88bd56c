// Package classifications holds the labels a classifier produces for a
// frame and the ranking applied before they are shown.
package classifications

import (
	"cmp"
	"slices"
)

// TopN is the number of classifications kept by Rank.
const TopN = 3

// Classification is a single label with its confidence score.
// Values are produced fresh per analyzed frame and never persisted.
type Classification struct {
	Name  string  `json:"name" msgpack:"name"`
	Score float64 `json:"score" msgpack:"score"`
}

// Rank returns at most TopN classifications ordered by descending score.
// Equal scores keep their input order. The input slice is not modified.
func Rank(list []Classification) []Classification {
	ranked := slices.Clone(list)
	slices.SortStableFunc(ranked, func(a, b Classification) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(ranked) > TopN {
		ranked = ranked[:TopN]
	}
	return ranked
}

// Top returns the highest scoring classification. The first of several
// equal scores wins. ok is false for an empty list.
func Top(list []Classification) (top Classification, ok bool) {
	for i, c := range list {
		if i == 0 || c.Score > top.Score {
			top = c
		}
	}
	return top, len(list) > 0
}
