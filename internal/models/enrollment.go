package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	NextLessonStartCourse  = "Start Course"
	NextLessonFirstChapter = "Start with Chapter 1"
	NextLessonCompleted    = "Course completed"
)

// Enrollment grants a user access to one course and tracks progress through it.
type Enrollment struct {
	Record

	UserID     uint      `json:"userId" gorm:"not null;uniqueIndex:idx_enrollment_user_course,priority:1"`
	CourseID   uint      `json:"courseId" gorm:"not null;uniqueIndex:idx_enrollment_user_course,priority:2;index"`
	EnrolledAt time.Time `json:"enrolledAt" gorm:"not null"`

	Progress EnrollmentProgress `json:"progress" gorm:"embedded;embeddedPrefix:progress_"`

	IsCompleted bool       `json:"isCompleted" gorm:"default:false"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	NextLesson  string     `json:"nextLesson" gorm:"size:255;default:'Start Course'"`
}

// EnrollmentProgress is stored inline on the enrollment row.
type EnrollmentProgress struct {
	CompletedChapters datatypes.JSON `json:"completedChapters"`
	CurrentChapterID  *uint          `json:"currentChapter,omitempty"`
	Percentage        float64        `json:"progressPercentage" gorm:"default:0"`
	LastAccessed      time.Time      `json:"lastAccessed"`
}

// CompletedChapterIDs decodes the completed chapter list. A malformed column reads as empty.
func (p *EnrollmentProgress) CompletedChapterIDs() []uint {
	var ids []uint
	if len(p.CompletedChapters) == 0 {
		return ids
	}
	if err := json.Unmarshal(p.CompletedChapters, &ids); err != nil {
		return nil
	}
	return ids
}

// SetCompletedChapterIDs encodes ids into the JSON column.
func (p *EnrollmentProgress) SetCompletedChapterIDs(ids []uint) {
	if ids == nil {
		ids = []uint{}
	}
	raw, _ := json.Marshal(ids)
	p.CompletedChapters = datatypes.JSON(raw)
}
