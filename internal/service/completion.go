package service

import (
	"credlyse_backend/internal/model"
	"fmt"
)

// QuizCompletion is the quiz-only completion signal: every quiz-bearing video
// has a passed quiz. A course without quiz-bearing videos is never complete
// through this path.
func QuizCompletion(videos []model.Video, progress map[uint]model.VideoProgress) bool {
	quizVideos := 0
	for _, v := range videos {
		if !v.HasQuiz {
			continue
		}
		quizVideos++
		p, ok := progress[v.ID]
		if !ok || !p.IsQuizPassed {
			return false
		}
	}
	return quizVideos > 0
}

// CertificateEligibility checks every video of the course, quiz or not, and
// returns one description per unmet requirement. An empty result means the
// learner may be certified.
func CertificateEligibility(videos []model.Video, progress map[uint]model.VideoProgress) []string {
	if len(videos) == 0 {
		return []string{"Course has no videos"}
	}

	var missing []string
	for _, v := range videos {
		p, ok := progress[v.ID]
		if !ok {
			missing = append(missing, fmt.Sprintf("Video '%s' not started", v.Title))
			continue
		}
		if p.WatchStatus != model.Watched {
			missing = append(missing, fmt.Sprintf("Video '%s' not fully watched", v.Title))
		}
		if !p.IsQuizPassed {
			missing = append(missing, fmt.Sprintf("Video '%s' quiz not passed", v.Title))
		}
	}
	return missing
}
