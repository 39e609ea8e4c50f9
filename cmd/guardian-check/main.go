package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"wisefido-guardian/internal/apperrors"
	"wisefido-guardian/internal/config"
	"wisefido-guardian/internal/logger"
	"wisefido-guardian/internal/service"

	"go.uber.org/zap"
)

// 运维检查工具：查看或操作单个被监护人的阈值、基线与评估结果
//
//	guardian-check -subject s-1 show
//	guardian-check -subject s-1 evaluate
//	guardian-check -subject s-1 -days 14 learn
//	guardian-check -subject s-1 reset
func main() {
	subjectID := flag.String("subject", "", "subject id")
	days := flag.Int("days", 0, "baseline learning window in days (default BASELINE_WINDOW_DAYS)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	action := flag.Arg(0)
	if *subjectID == "" || action == "" {
		fmt.Fprintln(os.Stderr, "usage: guardian-check -subject <id> [-days N] show|evaluate|learn|reset")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.TenantID == "" {
		fmt.Fprintln(os.Stderr, "TENANT_ID environment variable is required")
		os.Exit(1)
	}

	// 检查工具的日志走 console 格式，结果输出到 stdout
	log, err := logger.NewLogger(cfg.Log.Level, "console", "guardian-check")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	guardianService, err := service.NewGuardianService(cfg, log, cfg.TenantID)
	if err != nil {
		log.Fatal("Failed to create guardian service", zap.Error(err))
	}
	defer guardianService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, guardianService, *subjectID, action, *days); err != nil {
		log.Error("Check failed",
			zap.String("subject_id", *subjectID),
			zap.String("action", action),
			zap.Error(err),
		)
		guardianService.Stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, s *service.GuardianService, subjectID, action string, days int) error {
	subject, err := s.GetSubject(ctx, subjectID)
	if err != nil {
		return err
	}

	switch action {
	case "show":
		settings, err := s.GetSettings(ctx, subjectID)
		if err != nil {
			return err
		}
		profile, err := s.GetProfile(ctx, subjectID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return printJSON(map[string]any{
			"subject":  subject,
			"settings": settings,
			"profile":  profile,
		})

	case "evaluate":
		result, err := s.EvaluateSubject(ctx, *subject)
		if err != nil {
			return err
		}
		return printJSON(result)

	case "learn":
		profile, err := s.LearnBaseline(ctx, *subject, days)
		if err != nil {
			return err
		}
		return printJSON(profile)

	case "reset":
		settings, err := s.ResetSettings(ctx, subjectID)
		if err != nil {
			return err
		}
		return printJSON(settings)
	}

	return fmt.Errorf("unknown action %q", action)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
