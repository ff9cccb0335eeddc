package recommend

import (
	"sort"

	"github.com/shopfront/api/internal/domain"
	"github.com/shopfront/api/internal/platform/textutil"
)

// Field weights applied when a store has no native text scoring. They mirror the weights the
// Mongo text index is created with.
const (
	SearchWeightName        = 10
	SearchWeightTags        = 5
	SearchWeightBrand       = 3
	SearchWeightDescription = 1
)

// SearchTokens returns the folded tokens indexed for a product.
func SearchTokens(p domain.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(tokens []string) {
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	add(textutil.Tokens(p.Name))
	add(textutil.Tokens(p.Brand))
	for _, tag := range p.Tags {
		add(textutil.Tokens(tag))
	}
	add(textutil.Tokens(p.Description))
	return out
}

// TextRelevance scores how well the product matches the query tokens using the field weights.
// Zero means no match.
func TextRelevance(queryTokens []string, p domain.Product) float64 {
	fields := []struct {
		tokens []string
		weight float64
	}{
		{textutil.Tokens(p.Name), SearchWeightName},
		{tagTokens(p.Tags), SearchWeightTags},
		{textutil.Tokens(p.Brand), SearchWeightBrand},
		{textutil.Tokens(p.Description), SearchWeightDescription},
	}
	var score float64
	for _, q := range queryTokens {
		for _, field := range fields {
			if rankOf(field.tokens, q) >= 0 {
				score += field.weight
			}
		}
	}
	return score
}

// RankSearchResults drops inactive and non-matching hits and orders the rest by relevance then
// rating.
func RankSearchResults(hits []domain.SearchHit, limit int) []domain.SearchHit {
	out := make([]domain.SearchHit, 0, len(hits))
	for _, hit := range hits {
		if !hit.Product.Active || hit.Relevance <= 0 {
			continue
		}
		out = append(out, hit)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].Product.Rating > out[j].Product.Rating
	})
	return truncate(out, limit)
}

func tagTokens(tags []string) []string {
	var out []string
	for _, tag := range tags {
		out = append(out, textutil.Tokens(tag)...)
	}
	return out
}
