package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"intervoice/internal/core"
	"intervoice/internal/feedback"
	"intervoice/internal/provider"
	"intervoice/internal/repository"
	"intervoice/pkg/schema"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	userID        string
	userName      string
	sessionType   string
	interviewID   string
	interviewFile string
	feedbackID    string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("interview-call", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.userID, "user", os.Getenv("INTERVOICE_USER_ID"), "user id of the candidate")
	fs.StringVar(&opts.userName, "name", "", "candidate display name")
	fs.StringVar(&opts.sessionType, "type", string(schema.SessionGenerate), "session type: generate or evaluate")
	fs.StringVar(&opts.interviewID, "interview", "", "stored interview id (evaluate)")
	fs.StringVar(&opts.interviewFile, "interview-file", "", "interview YAML file (evaluate)")
	fs.StringVar(&opts.feedbackID, "feedback-id", "", "existing feedback id to overwrite on retake")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.userID == "" {
		return nil, errors.New("-user is required")
	}

	switch schema.SessionType(opts.sessionType) {
	case schema.SessionGenerate:
	case schema.SessionEvaluate:
		if opts.interviewID == "" && opts.interviewFile == "" {
			return nil, errors.New("evaluate sessions need -interview or -interview-file")
		}
	default:
		return nil, fmt.Errorf("unknown session type %q", opts.sessionType)
	}
	return opts, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 2
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "❌ Failed to load config: %v\n", err)
		return 1
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

	sc, err := sessionContext(ctx, opts, store)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	collaborator, err := feedbackCollaborator(ctx, cfg, store, logger)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}

	calls := provider.NewWSProvider(cfg.CallProviderURL, nil, logger)
	defer calls.Close()

	lock := repository.NewFileLock(filepath.Join(cfg.DataDir, ".lock"), "interview-call")

	// The controller outlives the signal context so an interrupted call still runs its post-call workflow
	session, err := core.NewCLISession(context.Background(), calls, core.ControllerOptions{
		Targets:    cfg.Targets(),
		Dispatcher: core.NewFeedbackDispatcher(collaborator, cfg.DispatchTimeout, logger),
		Recorder:   store,
		Logger:     logger,
	}, lock)
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	session.In = stdin
	session.Out = stdout
	session.StopWait = cfg.DispatchTimeout + core.DefaultStopWait

	if _, err := session.Run(ctx, sc); err != nil {
		fmt.Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}

// sessionContext builds the call context, loading the interview for evaluate sessions.
// An interview read from a file is also saved to the store so later calls can use its id.
func sessionContext(ctx context.Context, opts *options, store repository.Store) (*schema.SessionContext, error) {
	sc := &schema.SessionContext{
		UserID:     opts.userID,
		UserName:   opts.userName,
		FeedbackID: opts.feedbackID,
		Type:       schema.SessionType(opts.sessionType),
	}
	if sc.Type != schema.SessionEvaluate {
		return sc, nil
	}

	var iv *schema.Interview
	var err error
	if opts.interviewFile != "" {
		iv, err = repository.LoadInterviewFile(opts.interviewFile)
		if err != nil {
			return nil, err
		}
		if err := store.SaveInterview(ctx, iv); err != nil {
			return nil, fmt.Errorf("save interview: %w", err)
		}
	} else {
		iv, err = store.LoadInterview(ctx, opts.interviewID)
		if err != nil {
			return nil, fmt.Errorf("load interview %s: %w", opts.interviewID, err)
		}
	}

	sc.InterviewID = iv.ID
	sc.Questions = iv.Questions
	return sc, nil
}

// feedbackCollaborator talks to a remote feedback server when FEEDBACK_URL is set
// and otherwise assesses transcripts in-process.
func feedbackCollaborator(ctx context.Context, cfg *core.Config, store repository.Store, logger core.Logger) (core.FeedbackCollaborator, error) {
	if cfg.FeedbackURL != "" {
		return feedback.NewHTTPClient(cfg.FeedbackURL, cfg.DispatchTimeout), nil
	}

	completer, model, err := feedback.NewCompleter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create LLM backend: %w", err)
	}
	return feedback.NewService(feedback.NewLLMAssessor(completer, model, feedback.DefaultMaxRetries), store, logger), nil
}
