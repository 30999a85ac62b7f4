package model

import "time"

// Category is a product category row.
type Category struct {
	ID    int    `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Slug  string `json:"slug" db:"slug"`
	Count int    `json:"count" db:"count"`
}

// Tag is a product tag row.
type Tag struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Term is one option of a global product attribute (e.g. "Polished" of pa_finish).
type Term struct {
	ID        int    `json:"id" db:"id"`
	Attribute string `json:"attribute" db:"attribute"`
	Name      string `json:"name" db:"name"`
	Slug      string `json:"slug" db:"slug"`
}

// Product is the minimum a lookup needs to know about a product.
type Product struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// CategoryRef is the result of a category lookup.
type CategoryRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CatalogData is everything a snapshot is built from.
type CatalogData struct {
	Categories []Category
	Tags       []Tag
	Terms      []Term
	Products   []Product
	LoadedAt   time.Time
}

// CatalogDigest is the customer-free summary handed to the generative model.
type CatalogDigest struct {
	ProductNames  []string            `json:"product_names"`
	CategoryNames []string            `json:"category_names"`
	Attributes    map[string][]string `json:"attributes"`
}

// CatalogStats summarises a snapshot.
type CatalogStats struct {
	Categories int       `json:"categories"`
	Tags       int       `json:"tags"`
	Terms      int       `json:"terms"`
	Products   int       `json:"products"`
	LoadedAt   time.Time `json:"loaded_at"`
}
