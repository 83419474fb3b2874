package model

// ProductFilter is extracted from free text by the language model. Every
// field may be absent.
type ProductFilter struct {
	Category *string  `json:"category"`
	Brand    *string  `json:"brand"`
	PriceMax *float64 `json:"price_max"`
	PriceMin *float64 `json:"price_min,omitempty"`
	Keywords []string `json:"keywords"`
}

type Product struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
