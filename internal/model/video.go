package model

import (
	"gorm.io/datatypes"
)

type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "PENDING"
	AnalysisCompleted AnalysisStatus = "COMPLETED"
	AnalysisFailed    AnalysisStatus = "FAILED"
)

// QuizQuestion is one multiple-choice question. Answer holds the exact text of
// the correct option.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// QuizData is what the analysis provider produces for a video.
type QuizData struct {
	HasQuiz   bool           `json:"has_quiz"`
	Reason    string         `json:"reason,omitempty"`
	Questions []QuizQuestion `json:"questions"`
}

type Video struct {
	BaseModel
	CourseID        uint                         `gorm:"index;not null" json:"course_id"`
	YoutubeVideoID  string                       `gorm:"size:32;index;not null" json:"youtube_video_id"`
	Title           string                       `gorm:"size:255;not null" json:"title"`
	Position        int                          `gorm:"default:0" json:"position"`
	DurationSeconds int                          `gorm:"default:0" json:"duration_seconds"`
	Transcript      string                       `gorm:"type:text" json:"-"`
	HasQuiz         bool                         `gorm:"default:false" json:"has_quiz"`
	QuizData        datatypes.JSONType[QuizData] `json:"-"`
	AnalysisStatus  AnalysisStatus               `gorm:"size:20;default:'PENDING';index" json:"analysis_status"`
}

func (Video) TableName() string {
	return "videos"
}

// Questions returns the stored quiz questions, or nil when the video has no quiz.
func (v *Video) Questions() []QuizQuestion {
	if !v.HasQuiz {
		return nil
	}
	return v.QuizData.Data().Questions
}

// Analyzed reports whether the video has reached a terminal successful analysis.
func (v *Video) Analyzed() bool {
	return v.AnalysisStatus == AnalysisCompleted
}
