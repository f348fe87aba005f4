package store

import (
	"strings"

	"CamuPos/app/models"
)

// Name fragments used to detect a catalog stored by an older release.
// Matching is by product name, so a rename of the flagship breaks detection.
var (
	RetiredNameMarkers = []string{"Smoothie", "Dragon"}
	FlagshipNameMarker = "Banana Roll"
)

// DefaultCatalog returns a fresh copy of the compiled-in menu
func DefaultCatalog() []models.Product {
	return []models.Product{
		{
			ID:          "1",
			Name:        "Banana Roll Coklat",
			Category:    models.CategoryFood,
			Price:       10000,
			Cost:        6000,
			Description: "Pisang raja gulung renyah dengan topping coklat lumer yang melimpah",
			Image:       "/assets/menu/banana_roll.png",
			Popular:     true,
			Stock:       50,
		},
		{
			ID:          "2",
			Name:        "French Fries",
			Category:    models.CategoryFood,
			Price:       10000,
			Cost:        5000,
			Description: "Kentang goreng gurih nan renyah dengan bumbu spesial Camu Camu",
			Image:       "/assets/menu/french_fries.png",
			Popular:     true,
			Stock:       40,
		},
		{
			ID:          "3",
			Name:        "Banana Roll Coklat Keju",
			Category:    models.CategoryFood,
			Price:       15000,
			Cost:        7500,
			Description: "Perpaduan sempurna pisang gulung, coklat lumer, dan parutan keju premium",
			Image:       "/assets/menu/banana_roll.png",
			Popular:     true,
			Stock:       30,
		},
		{
			ID:          "4",
			Name:        "Banana Roll Coklat + Tiramisu + Strowbery",
			Category:    models.CategoryFood,
			Price:       12000,
			Cost:        7500,
			Description: "Sensasi tiga rasa dalam satu porsi pisang gulung yang unik",
			Image:       "/assets/menu/banana_roll.png",
			Stock:       25,
		},
		{
			ID:          "5",
			Name:        "Ice Choco Milo",
			Category:    models.CategoryDrink,
			Price:       12000,
			Cost:        7000,
			Description: "Minuman coklat milo dingin yang nyegerin banget",
			Image:       "/assets/menu/ice_milo.png",
			Popular:     true,
			Stock:       60,
		},
		{
			ID:          "6",
			Name:        "Ice Chocho Milo Latte",
			Category:    models.CategoryDrink,
			Price:       15000,
			Cost:        8000,
			Description: "Kombinasi milo dan susu latte yang creamy dan berkelas",
			Image:       "/assets/menu/ice_milo.png",
			Stock:       40,
		},
		{
			ID:          "7",
			Name:        "Ice Fanta Susu",
			Category:    models.CategoryDrink,
			Price:       9000,
			Cost:        5000,
			Description: "Kesegaran fanta merah berpadu dengan manisnya susu kental manis",
			Image:       "/assets/menu/fansus.png",
			Stock:       50,
		},
	}
}

// IsStaleCatalog reports whether a stored product list predates the current
// menu: it names a retired item, or lacks the flagship.
func IsStaleCatalog(products []models.Product) bool {
	flagship := false
	for _, p := range products {
		for _, marker := range RetiredNameMarkers {
			if strings.Contains(p.Name, marker) {
				return true
			}
		}
		if strings.Contains(p.Name, FlagshipNameMarker) {
			flagship = true
		}
	}
	return !flagship
}

// HealImages replaces glyph images with the asset path of the same-named
// catalog entry, when that entry has one.
func HealImages(products []models.Product, catalog []models.Product) []models.Product {
	byName := make(map[string]models.Product, len(catalog))
	for _, d := range catalog {
		if _, seen := byName[d.Name]; !seen {
			byName[d.Name] = d
		}
	}
	out := make([]models.Product, len(products))
	for i, p := range products {
		if d, ok := byName[p.Name]; ok && !p.HasImagePath() && d.HasImagePath() {
			p.Image = d.Image
		}
		out[i] = p
	}
	return out
}
