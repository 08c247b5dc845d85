package domain

import "time"

// Product is the shop-catalog subset the cart denormalizes from. It is parsed
// at the CMS client boundary rather than passed around as loose JSON.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Price     int64     `json:"price"`
	Currency  string    `json:"currency"`
	Category  string    `json:"category,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Tour is a bookable tour from the CMS catalog.
type Tour struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Category     string    `json:"category"`
	Price        int64     `json:"price"`
	Currency     string    `json:"currency"`
	DurationDays int       `json:"duration_days"`
	Rating       float64   `json:"rating"`
	Image        string    `json:"image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Video is an entry in the history-video library.
type Video struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Era         string    `json:"era,omitempty"`
	DurationSec int       `json:"duration_sec"`
	URL         string    `json:"url"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
