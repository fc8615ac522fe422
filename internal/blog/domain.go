package blog

import "time"

// Post is a published article on the public blog.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Excerpt    string    `json:"excerpt,omitempty"`
	Content    string    `json:"content,omitempty"`
	CoverImage string    `json:"coverImage,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Published  bool      `json:"published"`
	Views      int64     `json:"views"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	IsDeleted  bool      `json:"-"`
}
