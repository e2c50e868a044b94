package util

import "time"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	QuizPassThreshold = 75

	QuizPassedMessage    = "Quiz passed! Great job!"
	QuizNotPassedMessage = "Quiz not passed. You need 75% to pass."
)

const (
	CacheTranscript = "transcript"
	CacheQuiz       = "quiz"

	TranscriptCacheSize = 1000
	TranscriptCacheTTL  = time.Hour
	QuizCacheSize       = 500
	QuizCacheTTL        = 4 * time.Hour
)

const MimePNG = "image/png"

// YoutubeThumbnailURL is the medium-quality thumbnail for a video.
func YoutubeThumbnailURL(youtubeVideoID string) string {
	if youtubeVideoID == "" {
		return ""
	}
	return "https://img.youtube.com/vi/" + youtubeVideoID + "/mqdefault.jpg"
}
