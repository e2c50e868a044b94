package model

// Course is an ingested YouTube playlist.
type Course struct {
	BaseModel
	CreatorID         uint    `gorm:"index;not null" json:"creator_id"`
	YoutubePlaylistID string  `gorm:"size:64;uniqueIndex;not null" json:"youtube_playlist_id"`
	Title             string  `gorm:"size:255;not null" json:"title"`
	Description       string  `gorm:"type:text" json:"description"`
	TotalVideos       int     `gorm:"default:0" json:"total_videos"`
	IsPublished       bool    `gorm:"default:false" json:"is_published"`
	Videos            []Video `gorm:"foreignKey:CourseID" json:"videos,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}
