// Package sov computes share-of-voice metrics over a mention collection.
package sov

import (
	"math"

	"github.com/pressbeat/press-tracker/internal/models"
)

// Compute groups mentions by brand and derives each brand's count and
// percentage of the total. Brands absent from the collection get a zero
// share; when the collection is empty every percentage is zero and no
// division happens.
func Compute(mentions []models.Mention, brands []string) models.ShareOfVoice {
	counts := make(map[string]int, len(brands))
	for _, brand := range brands {
		counts[brand] = 0
	}

	total := 0
	for _, mention := range mentions {
		if _, tracked := counts[mention.Brand]; !tracked {
			continue
		}
		counts[mention.Brand]++
		total++
	}

	result := make(models.ShareOfVoice, len(brands))
	for _, brand := range brands {
		share := models.BrandShare{Count: counts[brand]}
		if total > 0 {
			share.Percentage = math.Round(float64(counts[brand])/float64(total)*1000) / 10
		}
		result[brand] = share
	}

	return result
}

// Top returns the brand with the strictly highest mention count. Ties are
// broken by first occurrence in the brands order, which keeps the ranking
// deterministic. Returns "" when sov holds no tracked brands.
func Top(sov models.ShareOfVoice, brands []string) string {
	top := ""
	best := -1

	for _, brand := range brands {
		share, ok := sov[brand]
		if !ok {
			continue
		}
		if share.Count > best {
			top = brand
			best = share.Count
		}
	}

	return top
}
