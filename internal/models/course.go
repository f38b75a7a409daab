package models

// Course is catalog content managed by the content admin tool.
type Course struct {
	BaseModel
	Title       string    `json:"title" gorm:"size:100;not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Image       string    `json:"image" gorm:"default:'/images/default-course.png'"`
	Duration    string    `json:"duration"`
	Icon        string    `json:"icon" gorm:"size:20;default:'code'"`
	Level       string    `json:"level" gorm:"size:20;default:'Intermediate'"`
	Category    string    `json:"category"`
	BgColor     string    `json:"bgColor" gorm:"default:'from-blue-500 to-purple-500'"`
	Instructor  string    `json:"instructor"`
	IsPublished bool      `json:"isPublished" gorm:"default:false"`
	Chapters    []Chapter `json:"chapters,omitempty"`
}

// Chapter is an ordered section of a course.
type Chapter struct {
	BaseModel
	CourseID    uint    `json:"courseId" gorm:"not null;index"`
	Title       string  `json:"title" gorm:"not null"`
	Description string  `json:"description" gorm:"type:text"`
	Position    int     `json:"position" gorm:"not null;default:0"`
	Videos      []Video `json:"videos,omitempty"`
}

// Video belongs to a chapter and points at the hosted media file.
type Video struct {
	BaseModel
	ChapterID uint   `json:"chapterId" gorm:"not null;index"`
	Title     string `json:"title" gorm:"not null"`
	URL       string `json:"url" gorm:"not null"`
	Duration  string `json:"duration"`
	Position  int    `json:"position" gorm:"not null;default:0"`
}
