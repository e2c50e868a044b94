// Runs transcript and quiz analysis for one course outside the server.
//
// The server already sweeps pending videos on a schedule; this is for a first
// import or for re-running a course by hand.
//
// Usage: go run scripts/analyze_course.go -course 42 [-status] [-format yaml]

package main

import (
	"context"
	"credlyse_backend/internal/config"
	"credlyse_backend/internal/model"
	"credlyse_backend/internal/repository"
	"credlyse_backend/internal/service"
	"credlyse_backend/internal/util"
	"credlyse_backend/pkg/cache"
	"credlyse_backend/pkg/database"
	"credlyse_backend/pkg/logger"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type report struct {
	CourseID  uint                       `json:"course_id" yaml:"course_id"`
	Processed int                        `json:"processed" yaml:"processed"`
	Failed    int                        `json:"failed" yaml:"failed"`
	Skipped   int                        `json:"skipped" yaml:"skipped"`
	Message   string                     `json:"message,omitempty" yaml:"message,omitempty"`
	Status    *repository.AnalysisCounts `json:"status" yaml:"status"`
}

func main() {
	courseID := flag.Uint("course", 0, "course id to analyze")
	statusOnly := flag.Bool("status", false, "print the analysis status without processing")
	format := flag.String("format", "text", "output format: text, json or yaml")
	flag.Parse()

	if *courseID == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Sync()

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var store service.TranscriptStore
	if cfg.Redis.Enabled {
		if rdb, err := database.InitRedis(&cfg.Redis); err != nil {
			logger.Log.Warn("Redis unavailable, continuing without it", zap.Error(err))
		} else {
			defer rdb.Close()
			store = &service.RedisTranscriptStore{Client: rdb, TTL: cfg.Redis.TranscriptTTL}
		}
	}

	ai := service.NewAIService(cfg.AI,
		cache.New[string](util.TranscriptCacheSize, util.TranscriptCacheTTL),
		cache.New[model.QuizData](util.QuizCacheSize, util.QuizCacheTTL),
		store)
	analysis := service.NewAnalysisService(
		repository.NewCourseRepository(db),
		repository.NewVideoRepository(db),
		ai,
		cfg.Batch.Concurrency,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := report{CourseID: *courseID}
	if !*statusOnly {
		res, err := analysis.ProcessCourse(ctx, *courseID)
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		out.Processed, out.Failed, out.Skipped, out.Message = res.Processed, res.Failed, res.Skipped, res.Message
	}

	out.Status, err = analysis.Status(ctx, *courseID)
	if err != nil {
		log.Fatalf("Failed to read analysis status: %v", err)
	}

	if err := writeReport(out, *format); err != nil {
		log.Fatal(err)
	}
}

func writeReport(r report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(r)
	case "text":
		fmt.Printf("course %d: processed=%d failed=%d skipped=%d\n", r.CourseID, r.Processed, r.Failed, r.Skipped)
		if r.Message != "" {
			fmt.Println(r.Message)
		}
		s := r.Status
		fmt.Printf("videos: total=%d completed=%d pending=%d failed=%d with_quiz=%d\n",
			s.Total, s.Completed, s.Pending, s.Failed, s.WithQuiz)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
