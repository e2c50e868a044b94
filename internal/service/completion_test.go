package service

import (
	"credlyse_backend/internal/model"
	"reflect"
	"testing"
)

func video(id uint, title string, hasQuiz bool) model.Video {
	v := model.Video{Title: title, HasQuiz: hasQuiz}
	v.ID = id
	return v
}

func TestQuizCompletion(t *testing.T) {
	videos := []model.Video{video(1, "intro", false), video(2, "vars", true), video(3, "funcs", true)}

	tests := []struct {
		name     string
		videos   []model.Video
		progress map[uint]model.VideoProgress
		want     bool
	}{
		{"no progress", videos, nil, false},
		{"one of two passed", videos, map[uint]model.VideoProgress{
			2: {VideoID: 2, IsQuizPassed: true},
			3: {VideoID: 3, IsQuizPassed: false},
		}, false},
		{"both passed, quiz-less video untouched", videos, map[uint]model.VideoProgress{
			2: {VideoID: 2, IsQuizPassed: true},
			3: {VideoID: 3, IsQuizPassed: true},
		}, true},
		{"no quiz videos never completes", []model.Video{video(1, "intro", false)}, map[uint]model.VideoProgress{
			1: {VideoID: 1, WatchStatus: model.Watched, IsQuizPassed: true},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuizCompletion(tt.videos, tt.progress); got != tt.want {
				t.Fatalf("want=%v got=%v", tt.want, got)
			}
		})
	}
}

func TestCertificateEligibility(t *testing.T) {
	videos := []model.Video{video(1, "intro", false), video(2, "vars", true), video(3, "funcs", true)}

	tests := []struct {
		name     string
		videos   []model.Video
		progress map[uint]model.VideoProgress
		want     []string
	}{
		{"empty course", nil, nil, []string{"Course has no videos"}},
		{"all done", videos, map[uint]model.VideoProgress{
			1: {WatchStatus: model.Watched, IsQuizPassed: true},
			2: {WatchStatus: model.Watched, IsQuizPassed: true},
			3: {WatchStatus: model.Watched, IsQuizPassed: true},
		}, nil},
		{"watched but quiz failed", videos, map[uint]model.VideoProgress{
			1: {WatchStatus: model.Watched, IsQuizPassed: true},
			2: {WatchStatus: model.Watched, IsQuizPassed: false},
			3: {WatchStatus: model.Watched, IsQuizPassed: true},
		}, []string{"Video 'vars' quiz not passed"}},
		{"gaps of every kind", videos, map[uint]model.VideoProgress{
			2: {WatchStatus: model.InProgress, IsQuizPassed: true},
			3: {WatchStatus: model.InProgress},
		}, []string{
			"Video 'intro' not started",
			"Video 'vars' not fully watched",
			"Video 'funcs' not fully watched",
			"Video 'funcs' quiz not passed",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CertificateEligibility(tt.videos, tt.progress)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("want=%q got=%q", tt.want, got)
			}
		})
	}
}

func TestPredicatesDiverge(t *testing.T) {
	// quiz videos passed but never marked watched: complete, yet not certifiable
	videos := []model.Video{video(1, "a", true)}
	progress := map[uint]model.VideoProgress{1: {WatchStatus: model.InProgress, IsQuizPassed: true}}

	if !QuizCompletion(videos, progress) {
		t.Fatalf("quiz completion should hold")
	}
	if len(CertificateEligibility(videos, progress)) == 0 {
		t.Fatalf("certificate eligibility should not hold")
	}
}
