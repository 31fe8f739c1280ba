package domain

import "time"

// Review is a single user's rating and commentary on a series.
type Review struct {
	ID               int64
	SeriesID         int64
	SeriesTitle      string
	ReviewerID       int64
	ReviewerUsername string
	Content          string
	Rating           float64
	Likes            int64
	Date             time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
