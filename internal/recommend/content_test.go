package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfront/api/internal/domain"
)

func TestContentBased_ColdStartWithoutCategorySignal(t *testing.T) {
	catalog := []domain.Product{
		product("low", domain.CategoryBooksMedia, "Inkwell", withRating(3.1), withSales(900)),
		product("top", domain.CategoryToysGames, "Blocky", withRating(4.9), withSales(10)),
		product("tie-more-sales", domain.CategoryAutomotive, "Torque", withRating(4.5), withSales(300)),
		product("tie-less-sales", domain.CategoryAutomotive, "Torque", withRating(4.5), withSales(200)),
		product("hidden", domain.CategoryAutomotive, "Torque", withRating(5), inactive()),
	}

	results := ContentBased(domain.PreferenceSnapshot{}, catalog, 3)

	assert.Equal(t, []string{"top", "tie-more-sales", "tie-less-sales"}, scoredIDs(results))
	for _, r := range results {
		assert.Equal(t, domain.SourceContentBased, r.Source)
		assert.Equal(t, r.Product.Rating, r.Score)
	}
}

func TestContentBased_ColdStartNeverEmptyWhenActiveProductsExist(t *testing.T) {
	catalog := []domain.Product{product("only", domain.CategoryHomeGarden, "Leafy")}

	results := ContentBased(ExtractPreferences(nil, nil, nil), catalog, 10)

	require.Len(t, results, 1)
	assert.Equal(t, "only", results[0].Product.ID)
}

func TestContentScore_CategoryRankBonusDecreases(t *testing.T) {
	prefs := domain.PreferenceSnapshot{
		Categories: []domain.Category{domain.CategoryElectronics, domain.CategoryBooksMedia, domain.CategoryToysGames, domain.CategoryAutomotive},
	}
	first := product("1", domain.CategoryElectronics, "")
	second := product("2", domain.CategoryBooksMedia, "")
	third := product("3", domain.CategoryToysGames, "")
	fourth := product("4", domain.CategoryAutomotive, "")

	assert.Equal(t, 9.0, ContentScore(prefs, first))
	assert.Equal(t, 6.0, ContentScore(prefs, second))
	assert.Equal(t, 3.0, ContentScore(prefs, third))
	assert.Equal(t, 0.0, ContentScore(prefs, fourth), "only the top three categories earn a bonus")
}

func TestContentScore_Components(t *testing.T) {
	prefs := domain.PreferenceSnapshot{
		Categories: []domain.Category{domain.CategoryElectronics},
		Brands:     []string{"Other", "Apex"},
		PriceRange: domain.PriceRange{Avg: 100},
	}

	tests := []struct {
		name     string
		product  domain.Product
		expected float64
	}{
		{
			name:     "category brand exact price and capped sales",
			product:  product("a", domain.CategoryElectronics, "Apex", withPrice(100), withRating(4), withSales(1000)),
			expected: 9 + 4 + 2 + 4 + 2,
		},
		{
			name:     "price far from average earns nothing",
			product:  product("b", domain.CategoryElectronics, "", withPrice(400), withSales(50)),
			expected: 9 + 0 + 0 + 0.5,
		},
		{
			name:     "price half away from average",
			product:  product("c", domain.CategoryToysGames, "Other", withPrice(150)),
			expected: 6 + 1.5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, ContentScore(prefs, tc.product), 1e-9)
		})
	}
}

func TestContentScore_ZeroAveragePriceSkipsPriceBonus(t *testing.T) {
	prefs := domain.PreferenceSnapshot{Categories: []domain.Category{domain.CategoryElectronics}}

	score := ContentScore(prefs, product("a", domain.CategoryElectronics, "", withPrice(0)))

	assert.Equal(t, 9.0, score)
}

func TestContentBased_ElectronicsPreferenceRanksElectronicsFirst(t *testing.T) {
	laptop := product("A", domain.CategoryElectronics, "Apex", withRating(4.8), withSales(234), withPrice(999.99))
	prefs := ExtractPreferences([]PurchaseLine{{Product: laptop, UnitPrice: 999.99, Quantity: 2}}, nil, nil)

	catalog := []domain.Product{
		laptop,
		product("B", domain.CategoryBooksMedia, "Inkwell", withRating(4), withSales(100), withPrice(20)),
		product("C", domain.CategoryElectronics, "Volt", withRating(4), withSales(100), withPrice(50)),
		product("D", domain.CategoryToysGames, "Blocky", withRating(4), withSales(100), withPrice(999.99)),
		product("E", domain.CategoryElectronics, "Zing", withRating(4), withSales(100), withPrice(20)),
	}

	results := ContentBased(prefs, catalog, 10)

	// B and D match neither the preferred category nor the preferred brand.
	assert.Equal(t, []string{"A", "C", "E"}, scoredIDs(results))
}

func TestContentBased_BrandMatchExpandsCandidates(t *testing.T) {
	prefs := domain.PreferenceSnapshot{
		Categories: []domain.Category{domain.CategoryElectronics},
		Brands:     []string{"Stride"},
	}
	catalog := []domain.Product{
		product("shoe", domain.CategoryClothingFashion, "Stride"),
		product("misc", domain.CategoryClothingFashion, "Other"),
		product("tv", domain.CategoryElectronics, "Volt"),
	}

	results := ContentBased(prefs, catalog, 10)

	assert.Equal(t, []string{"tv", "shoe"}, scoredIDs(results))
}

func TestContentBased_Deterministic(t *testing.T) {
	prefs := domain.PreferenceSnapshot{Categories: []domain.Category{domain.CategoryHomeGarden}}
	catalog := []domain.Product{
		product("1", domain.CategoryHomeGarden, "A"),
		product("2", domain.CategoryHomeGarden, "B"),
		product("3", domain.CategoryHomeGarden, "C"),
	}

	first := ContentBased(prefs, catalog, 3)
	second := ContentBased(prefs, catalog, 3)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"1", "2", "3"}, scoredIDs(first))
}
