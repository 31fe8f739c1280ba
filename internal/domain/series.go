package domain

import "time"

// Genres is the fixed set of genre tokens a series may be tagged with.
var Genres = []string{
	"shonen", "shojo", "seinen", "romance",
	"sports", "action", "adventure", "comedy", "drama",
	"slice of life", "fantasy", "horror", "psychological",
	"mecha", "historical", "cyberpunk",
}

// Series is a catalogued work. Rating is derived from the review ledger and
// is nil while the series has no reviews.
type Series struct {
	ID                  int64
	Title               string
	Author              string
	Rating              *float64
	Genre               []string
	Year                int
	About               string
	Completed           bool
	Anime               bool
	Chapters            *int
	Volumes             *int
	OfficialTranslation bool
	NumberOfReviews     int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
