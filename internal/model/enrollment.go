package model

import "time"

// Enrollment is created lazily on a user's first video interaction in a course.
type Enrollment struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt      time.Time `json:"enrolled_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	UserID         uint      `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"user_id"`
	CourseID       uint      `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"course_id"`
	IsCompleted    bool      `gorm:"default:false" json:"is_completed"`
	CertificateURL string    `gorm:"size:512" json:"certificate_url,omitempty"`
	LastActiveAt   time.Time `json:"last_active_at"`
	Course         *Course   `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
