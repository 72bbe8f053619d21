package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"intervoice/internal/core"
	"intervoice/internal/feedback"
	"intervoice/internal/repository"
	"intervoice/internal/server"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "❌ Failed to load config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("feedback-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", cfg.HTTPAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "❌ Invalid config: %v\n", err)
		return 1
	}
	logger := core.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.OpenStore(ctx, cfg.FeedbackStore, cfg.DataDir, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Failed to open store: %v\n", err)
		return 1
	}
	defer store.Close()

	completer, model, err := feedback.NewCompleter(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "❌ Failed to create LLM backend: %v\n", err)
		return 1
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := feedback.NewService(feedback.NewLLMAssessor(completer, model, feedback.DefaultMaxRetries), store, logger)
	srv := server.New(svc, server.NewMetrics("intervoice"), logger)

	logger.Info("starting feedback server",
		"addr", *addr,
		"store", cfg.FeedbackStore,
		"backend", cfg.LLMBackend,
		"model", model,
	)
	if err := srv.Run(ctx, *addr); err != nil {
		logger.Error("feedback server failed", "error", err)
		return 1
	}
	return 0
}
