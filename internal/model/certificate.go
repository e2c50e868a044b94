package model

import "time"

// Certificate is issued at most once per (user, course) and never regenerated.
type Certificate struct {
	UUIDBase
	UserID      uint      `gorm:"uniqueIndex:idx_certificate_user_course;not null" json:"user_id"`
	CourseID    uint      `gorm:"uniqueIndex:idx_certificate_user_course;not null" json:"course_id"`
	IssuedAt    time.Time `gorm:"not null" json:"issued_at"`
	ArtifactURL string    `gorm:"size:512" json:"artifact_url"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Course      *Course   `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Certificate) TableName() string {
	return "certificates"
}

// All lists the persisted domain models in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&Video{},
		&Enrollment{},
		&VideoProgress{},
		&Certificate{},
	}
}
