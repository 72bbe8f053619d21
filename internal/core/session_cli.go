package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"intervoice/internal/repository"
	"intervoice/pkg/schema"
)

// DefaultStopWait bounds how long an interrupted session waits for its post-call workflow.
const DefaultStopWait = 90 * time.Second

var (
	statusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	interviewerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("208"))

	candidateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	resultStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

// CLISession runs one interactive call in the terminal.
// It owns the controller and holds the workspace call lock for the whole call.
type CLISession struct {
	Controller *Controller
	Lock       *repository.FileLock
	In         io.Reader
	Out        io.Writer
	StopWait   time.Duration

	outMu      sync.Mutex
	lastStatus schema.CallStatus
	printed    int
}

// NewCLISession subscribes a controller to provider. The session's renderer is chained
// in front of any OnChange and OnError callbacks already set in opts.
func NewCLISession(ctx context.Context, provider CallProvider, opts ControllerOptions, lock *repository.FileLock) (*CLISession, error) {
	s := &CLISession{
		Lock:     lock,
		In:       os.Stdin,
		Out:      os.Stdout,
		StopWait: DefaultStopWait,
	}

	onChange, onError := opts.OnChange, opts.OnError
	opts.OnChange = func(v View) {
		s.render(v)
		if onChange != nil {
			onChange(v)
		}
	}
	opts.OnError = func(err error) {
		s.printf("%s\n", errorStyle.Render("⚠️  "+err.Error()))
		if onError != nil {
			onError(err)
		}
	}

	c, err := NewController(ctx, provider, opts)
	if err != nil {
		return nil, err
	}
	s.Controller = c
	return s, nil
}

// Run places the call and blocks until its navigation is decided.
// Typing "stop" ends the call; cancelling ctx does the same.
func (s *CLISession) Run(ctx context.Context, sc *schema.SessionContext) (Navigation, error) {
	defer s.Controller.Close()

	s.printf("🔒 Acquiring call lock...\n")
	if err := s.Lock.Acquire(); err != nil {
		return Navigation{}, &LockError{Operation: "acquire", Message: err.Error(), Err: err}
	}
	defer func() {
		if err := s.Lock.Release(); err != nil {
			s.printf("⚠️  Failed to release lock: %v\n", err)
		}
	}()

	s.printf("📞 Starting %s interview...\n", sc.Type)
	if err := s.Controller.StartCall(ctx, sc); err != nil {
		return Navigation{}, fmt.Errorf("start call: %w", err)
	}
	if err := s.Lock.SetSession(s.Controller.SessionID()); err != nil {
		s.printf("⚠️  Failed to record session in lock: %v\n", err)
	}
	s.printf("%s\n", dimStyle.Render("Type 'stop' and press Enter to end the call."))

	go s.readCommands(ctx)

	nav, err := s.Controller.WaitNavigation(ctx)
	if err == nil {
		s.printNavigation(nav)
		return nav, nil
	}
	if ctx.Err() == nil {
		return Navigation{}, err
	}

	// Interrupted: end the call and let the post-call workflow finish
	s.printf("\n🛑 Interrupted, ending call...\n")
	s.stop(context.Background())

	waitCtx, cancel := context.WithTimeout(context.Background(), s.StopWait)
	defer cancel()
	nav, err = s.Controller.WaitNavigation(waitCtx)
	if err != nil {
		return Navigation{}, fmt.Errorf("wait for post-call workflow: %w", err)
	}
	s.printNavigation(nav)
	return nav, nil
}

func (s *CLISession) readCommands(ctx context.Context) {
	scanner := bufio.NewScanner(s.In)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "stop", "quit", "q":
			s.stop(ctx)
			return
		case "":
		default:
			s.printf("%s\n", dimStyle.Render("Unknown command. Type 'stop' to end the call."))
		}
	}
}

// stop ends the call. Provider failures reach the user through OnError, and a
// call that already finished has nothing to stop.
func (s *CLISession) stop(ctx context.Context) {
	_ = s.Controller.StopCall(ctx)
}

// render prints status transitions and newly finalized messages.
func (s *CLISession) render(v View) {
	var b strings.Builder

	s.outMu.Lock()
	defer s.outMu.Unlock()

	if v.Status != s.lastStatus {
		if v.Status == schema.CallConnecting {
			s.printed = 0
		}
		s.lastStatus = v.Status
		fmt.Fprintf(&b, "%s\n", statusStyle.Render("● "+string(v.Status)))
	}

	if v.Messages > s.printed {
		messages := s.Controller.Snapshot()
		for _, m := range messages[s.printed:] {
			fmt.Fprintf(&b, "%s %s\n", speakerLabel(m.Role), m.Content)
		}
		s.printed = len(messages)
	}

	if b.Len() > 0 {
		fmt.Fprint(s.Out, b.String())
	}
}

func (s *CLISession) printNavigation(nav Navigation) {
	var text string
	switch nav.Kind {
	case NavigateFeedback:
		text = fmt.Sprintf("✨ Feedback ready: %s", nav.Path())
	default:
		text = fmt.Sprintf("🏠 Returning home: %s", nav.Path())
	}
	s.printf("\n%s\n", resultStyle.Render(text))
}

func (s *CLISession) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.Out, format, args...)
}

func speakerLabel(role schema.Role) string {
	switch role {
	case schema.RoleAssistant:
		return interviewerStyle.Render("interviewer:")
	case schema.RoleUser:
		return candidateStyle.Render("you:")
	default:
		return dimStyle.Render(string(role) + ":")
	}
}
