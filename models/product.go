package models

import "time"

type Nutrient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

type Product struct {
	FDCID       int        `json:"fdc_id,omitempty"`
	UPC         string     `json:"upc,omitempty"`
	Description string     `json:"description"`
	Brand       string     `json:"brand,omitempty"`
	Category    string     `json:"category,omitempty"`
	Ingredients string     `json:"ingredients,omitempty"`
	Nutrients   []Nutrient `json:"nutrients,omitempty"`
}

// ProductDocument is a product fact sheet stored in Postgres and indexed
// into the vector store by cmd/indexdocs.
type ProductDocument struct {
	ID        int       `json:"id"`
	UPC       string    `json:"upc"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateProductDocumentRequest struct {
	UPC     string `json:"upc"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
