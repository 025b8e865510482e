package entity

import "time"

// Book is a catalog entry. Free titles are delivered as PDF downloads;
// paid titles are printed and shipped.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Bio         string    `json:"bio,omitempty"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	IsFree      bool      `json:"isFree"`
	CoverURL    string    `json:"coverUrl"`
	PDFURL      string    `json:"pdfUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BookPatch describes a partial update to a Book. Nil fields are left
// untouched, so an edit without a new upload keeps the prior asset URLs.
type BookPatch struct {
	Title       *string
	Author      *string
	Bio         *string
	Description *string
	Price       *float64
	IsFree      *bool
	CoverURL    *string
	PDFURL      *string
}
