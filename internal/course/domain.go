package course

import "time"

// Instructor is an embedded teaching credit on a course.
type Instructor struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Photo string `json:"photo,omitempty"`
}

// Stats aggregates display counters for a course card.
type Stats struct {
	Enrolled     int     `json:"enrolled"`
	Lessons      int     `json:"lessons"`
	Rating       float64 `json:"rating"`
	RatingsCount int     `json:"ratingsCount"`
}

// Course is a sellable unit of content. Modules hang off it in their own
// package; the course record itself only carries catalog-level data.
type Course struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Slug          string       `json:"slug"`
	Description   string       `json:"description,omitempty"`
	Thumbnail     string       `json:"thumbnail,omitempty"`
	Price         int64        `json:"price"`
	DiscountPrice int64        `json:"discountPrice,omitempty"`
	Published     bool         `json:"published"`
	Instructors   []Instructor `json:"instructors,omitempty"`
	Stats         Stats        `json:"stats"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	IsDeleted     bool         `json:"-"`
}
