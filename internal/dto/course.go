package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/course-gateway/internal/models"
)

// CreateCourseRequest payload for a teacher creating a course.
type CreateCourseRequest struct {
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
	Category   string          `json:"category"`
	Difficulty string          `json:"difficulty"`
}

// ToModel converts the request into the descriptive fields of a new course.
func (r CreateCourseRequest) ToModel() models.NewCourse {
	return models.NewCourse{
		Title:      r.Title,
		Price:      r.Price,
		Category:   r.Category,
		Difficulty: r.Difficulty,
	}
}

// CourseQuery mirrors the listing flags.
type CourseQuery struct {
	Refresh bool `form:"refresh"`
}
