package recommend

import (
	"time"

	"github.com/shopfront/api/internal/domain"
)

// Season is a fixed bucket of months with the tags and categories promoted during it.
type Season struct {
	Name       string
	Tags       []string
	Categories []domain.Category
}

var (
	seasonSpring = Season{
		Name:       "spring",
		Tags:       []string{"spring", "outdoor", "garden", "fashion"},
		Categories: []domain.Category{domain.CategoryHomeGarden, domain.CategorySportsOutdoors, domain.CategoryClothingFashion},
	}
	seasonSummer = Season{
		Name:       "summer",
		Tags:       []string{"summer", "outdoor", "sports", "vacation", "swimwear"},
		Categories: []domain.Category{domain.CategorySportsOutdoors, domain.CategoryClothingFashion, domain.CategoryElectronics},
	}
	seasonFall = Season{
		Name:       "fall",
		Tags:       []string{"fall", "autumn", "back-to-school", "warm", "cozy"},
		Categories: []domain.Category{domain.CategoryClothingFashion, domain.CategoryElectronics, domain.CategoryBooksMedia},
	}
	seasonWinter = Season{
		Name:       "winter",
		Tags:       []string{"winter", "holiday", "warm", "indoor", "gifts"},
		Categories: []domain.Category{domain.CategoryElectronics, domain.CategoryToysGames, domain.CategoryHomeGarden},
	}
)

// SeasonFor maps a calendar month to its season: Mar-May, Jun-Aug, Sep-Nov, Dec-Feb.
func SeasonFor(month time.Month) Season {
	switch month {
	case time.March, time.April, time.May:
		return seasonSpring
	case time.June, time.July, time.August:
		return seasonSummer
	case time.September, time.October, time.November:
		return seasonFall
	default:
		return seasonWinter
	}
}

// Matches reports whether the product carries a seasonal tag or sits in a seasonal category.
func (s Season) Matches(p domain.Product) bool {
	if rankOf(s.Categories, p.Category) >= 0 {
		return true
	}
	for _, tag := range s.Tags {
		if p.HasTag(tag) {
			return true
		}
	}
	return false
}

// Seasonal returns active products matching the season, ranked by rating then sales.
func Seasonal(season Season, catalog []domain.Product, limit int) []domain.Product {
	candidates := activeOnly(catalog, season.Matches)
	sortProducts(candidates, byRating, bySales)
	return truncate(candidates, limit)
}
