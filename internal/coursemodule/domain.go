package coursemodule

import "time"

// Lesson is one playable item inside a module. Content URLs for locked
// lessons are stripped before leaving the service.
type Lesson struct {
	Title     string `json:"title"`
	Duration  int    `json:"duration,omitempty"`
	VideoURL  string `json:"videoUrl,omitempty"`
	IsPreview bool   `json:"isPreview"`
}

// Module is an ordered group of lessons within a course.
type Module struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"courseId"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	Lessons   []Lesson  `json:"lessons"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsDeleted bool      `json:"-"`
}

// Locked returns a copy with non-preview lesson content removed. Titles
// and durations stay visible so the syllabus still renders.
func (m Module) Locked() Module {
	lessons := make([]Lesson, len(m.Lessons))
	for i, lesson := range m.Lessons {
		if !lesson.IsPreview {
			lesson.VideoURL = ""
		}
		lessons[i] = lesson
	}
	m.Lessons = lessons
	return m
}
