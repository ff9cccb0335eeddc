package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfront/api/internal/domain"
)

func TestExtractPreferences_NoHistory(t *testing.T) {
	snapshot := ExtractPreferences(nil, nil, nil)

	assert.Empty(t, snapshot.Categories)
	assert.Empty(t, snapshot.Brands)
	assert.Zero(t, snapshot.PriceRange.Avg)
	assert.Nil(t, snapshot.PriceRange.Max)
	assert.Zero(t, snapshot.TotalItems)
	assert.False(t, snapshot.HasCategorySignal())
}

func TestExtractPreferences_SingleElectronicsOrder(t *testing.T) {
	laptop := product("a", domain.CategoryElectronics, "Apex", withRating(4.8), withSales(234), withPrice(999.99))

	snapshot := ExtractPreferences([]PurchaseLine{{Product: laptop, UnitPrice: 999.99, Quantity: 2}}, nil, nil)

	assert.Equal(t, []domain.Category{domain.CategoryElectronics}, snapshot.Categories)
	assert.Equal(t, []string{"Apex"}, snapshot.Brands)
	assert.InDelta(t, 999.99, snapshot.PriceRange.Avg, 1e-9)
	require.NotNil(t, snapshot.PriceRange.Max)
	assert.InDelta(t, 999.99, *snapshot.PriceRange.Max, 1e-9)
	assert.Equal(t, 2, snapshot.TotalItems)
}

func TestExtractPreferences_SignalWeights(t *testing.T) {
	book := product("b1", domain.CategoryBooksMedia, "Inkwell")
	toy := product("t1", domain.CategoryToysGames, "Blocky")
	shoe := product("s1", domain.CategoryClothingFashion, "Stride")

	// One purchase (weight 1) beats a wishlist (0.5) which beats a cart entry (0.3).
	snapshot := ExtractPreferences(
		[]PurchaseLine{{Product: shoe, UnitPrice: 50, Quantity: 1}},
		[]domain.Product{book},
		[]domain.Product{toy},
	)

	assert.Equal(t, []domain.Category{
		domain.CategoryClothingFashion,
		domain.CategoryBooksMedia,
		domain.CategoryToysGames,
	}, snapshot.Categories)
	assert.Equal(t, []string{"Stride", "Inkwell", "Blocky"}, snapshot.Brands)
	assert.InDelta(t, 50, snapshot.PriceRange.Avg, 1e-9)
}

func TestExtractPreferences_TiesKeepEncounterOrder(t *testing.T) {
	garden := product("g", domain.CategoryHomeGarden, "Leafy")
	sport := product("s", domain.CategorySportsOutdoors, "Sprint")

	snapshot := ExtractPreferences(nil, []domain.Product{garden, sport}, nil)

	assert.Equal(t, []domain.Category{domain.CategoryHomeGarden, domain.CategorySportsOutdoors}, snapshot.Categories)
	assert.Zero(t, snapshot.PriceRange.Avg)
	assert.Nil(t, snapshot.PriceRange.Max, "wishlist alone must not produce a max price")
}

func TestExtractPreferences_AverageAndMaxAcrossLines(t *testing.T) {
	cheap := product("c", domain.CategoryAutomotive, "Torque")
	pricey := product("p", domain.CategoryAutomotive, "Torque")

	snapshot := ExtractPreferences([]PurchaseLine{
		{Product: cheap, UnitPrice: 10, Quantity: 3},
		{Product: pricey, UnitPrice: 70, Quantity: 1},
		{Product: pricey, UnitPrice: 0, Quantity: 0},
	}, nil, nil)

	assert.InDelta(t, 25, snapshot.PriceRange.Avg, 1e-9)
	require.NotNil(t, snapshot.PriceRange.Max)
	assert.InDelta(t, 70, *snapshot.PriceRange.Max, 1e-9)
	assert.Equal(t, 4, snapshot.TotalItems)
}

func TestExtractPreferences_IgnoresEmptyBrand(t *testing.T) {
	unbranded := product("u", domain.CategoryHealthBeauty, "")

	snapshot := ExtractPreferences([]PurchaseLine{{Product: unbranded, UnitPrice: 5, Quantity: 1}}, nil, nil)

	assert.Equal(t, []domain.Category{domain.CategoryHealthBeauty}, snapshot.Categories)
	assert.Empty(t, snapshot.Brands)
}
