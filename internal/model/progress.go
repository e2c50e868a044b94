package model

import "time"

type WatchStatus string

const (
	NotStarted WatchStatus = "NOT_STARTED"
	InProgress WatchStatus = "IN_PROGRESS"
	Watched    WatchStatus = "WATCHED"
)

var watchRank = map[WatchStatus]int{NotStarted: 0, InProgress: 1, Watched: 2}

// Before reports whether s precedes o in the watch lifecycle.
func (s WatchStatus) Before(o WatchStatus) bool {
	return watchRank[s] < watchRank[o]
}

type VideoProgress struct {
	ID             uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	EnrollmentID   uint        `gorm:"uniqueIndex:idx_progress_enrollment_video;not null" json:"enrollment_id"`
	VideoID        uint        `gorm:"uniqueIndex:idx_progress_enrollment_video;not null" json:"video_id"`
	WatchStatus    WatchStatus `gorm:"size:20;default:'NOT_STARTED'" json:"watch_status"`
	SecondsWatched int         `gorm:"default:0" json:"seconds_watched"`
	QuizScore      *int        `json:"quiz_score"`
	IsQuizPassed   bool        `gorm:"default:false" json:"is_quiz_passed"`
}

func (VideoProgress) TableName() string {
	return "video_progress"
}

// Advance moves the status forward to s; it never moves backward.
func (p *VideoProgress) Advance(s WatchStatus) bool {
	if p.WatchStatus.Before(s) {
		p.WatchStatus = s
		return true
	}
	return false
}
