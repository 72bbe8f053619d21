package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"intervoice/internal/repository"
	"intervoice/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the event loop and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type cliHarness struct {
	session  *CLISession
	provider *MockCallProvider
	collab   *MockFeedbackCollaborator
	out      *syncBuffer
	stdin    *io.PipeWriter
	lockPath string
}

func newCLIHarness(t *testing.T, opts ControllerOptions) *cliHarness {
	t.Helper()

	h := &cliHarness{
		provider: NewMockCallProvider(),
		collab:   NewMockFeedbackCollaborator("FB-cli"),
		out:      &syncBuffer{},
		lockPath: filepath.Join(t.TempDir(), ".intervoice", ".lock"),
	}

	opts.Targets = Targets{WorkflowID: "wf-1", InterviewerID: "iv-1"}
	opts.Dispatcher = NewFeedbackDispatcher(h.collab, time.Second, nil)

	session, err := NewCLISession(context.Background(), h.provider, opts,
		repository.NewFileLock(h.lockPath, "interview-call-test"))
	require.NoError(t, err)

	r, w := io.Pipe()
	session.In = r
	session.Out = h.out
	session.StopWait = 2 * time.Second
	h.stdin = w
	h.session = session

	t.Cleanup(func() {
		_ = w.Close()
		_ = session.Controller.Close()
	})
	return h
}

type runResult struct {
	nav Navigation
	err error
}

func (h *cliHarness) runAsync(ctx context.Context, sc *schema.SessionContext) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		nav, err := h.session.Run(ctx, sc)
		done <- runResult{nav: nav, err: err}
	}()
	return done
}

func (h *cliHarness) waitStarted(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		starts, _ := h.provider.Counts()
		return starts == 1 && h.session.Controller.Status() == schema.CallConnecting
	}, 2*time.Second, 5*time.Millisecond)
}

func waitResult(t *testing.T, done <-chan runResult) runResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("session did not finish")
		return runResult{}
	}
}

func TestCLISession_FullCall(t *testing.T) {
	h := newCLIHarness(t, ControllerOptions{})
	done := h.runAsync(context.Background(), evaluateSession())
	h.waitStarted(t)

	assert.Eventually(t, func() bool {
		holder, err := h.session.Lock.Holder()
		return err == nil && holder.SessionID == h.session.Controller.SessionID()
	}, 2*time.Second, 5*time.Millisecond)

	h.provider.Emit(CallStarted())
	h.provider.Emit(FinalTranscript(schema.RoleAssistant, "Tell me about yourself"))
	h.provider.Emit(PartialTranscript(schema.RoleUser, "I am"))
	h.provider.Emit(FinalTranscript(schema.RoleUser, "I am a backend engineer"))
	h.provider.Emit(CallEnded())

	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, FeedbackFor("IV-1"), res.nav)

	out := h.out.String()
	assert.Contains(t, out, "Starting evaluate interview")
	assert.Contains(t, out, "● connecting")
	assert.Contains(t, out, "● active")
	assert.Contains(t, out, "● finished")
	assert.Contains(t, out, "interviewer: Tell me about yourself")
	assert.Contains(t, out, "you: I am a backend engineer")
	assert.NotContains(t, out, "you: I am\n")
	assert.Contains(t, out, "Feedback ready: /interview/IV-1/feedback")

	_, err := os.Stat(h.lockPath)
	assert.True(t, os.IsNotExist(err), "lock should be released")
}

func TestCLISession_StopCommand(t *testing.T) {
	h := newCLIHarness(t, ControllerOptions{})
	done := h.runAsync(context.Background(), generateSession())
	h.waitStarted(t)

	h.provider.Emit(CallStarted())
	_, err := io.WriteString(h.stdin, "hello\nstop\n")
	require.NoError(t, err)

	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, Home(), res.nav)

	_, stops := h.provider.Counts()
	assert.Equal(t, 1, stops)
	assert.Equal(t, 0, h.collab.CallCount())
	assert.Contains(t, h.out.String(), "Unknown command")
	assert.Contains(t, h.out.String(), "Returning home: /")
}

func TestCLISession_Interrupted(t *testing.T) {
	h := newCLIHarness(t, ControllerOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := h.runAsync(ctx, evaluateSession())
	h.waitStarted(t)

	h.provider.Emit(CallStarted())
	h.provider.Emit(FinalTranscript(schema.RoleUser, "Hello"))
	cancel()

	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, FeedbackFor("IV-1"), res.nav)

	_, stops := h.provider.Counts()
	assert.Equal(t, 1, stops)
	require.NotNil(t, h.collab.LastRequest())
	assert.Equal(t, "Hello", h.collab.LastRequest().Transcript[0].Content)
	assert.Contains(t, h.out.String(), "Interrupted")
}

func TestCLISession_LockHeld(t *testing.T) {
	h := newCLIHarness(t, ControllerOptions{})

	other := repository.NewFileLock(h.lockPath, "other-call")
	require.NoError(t, other.Acquire())
	defer other.Release()

	_, err := h.session.Run(context.Background(), evaluateSession())

	var lockErr *LockError
	require.ErrorAs(t, err, &lockErr)
	assert.Contains(t, err.Error(), "other-call")

	starts, _ := h.provider.Counts()
	assert.Equal(t, 0, starts)
}

func TestCLISession_StartFailure(t *testing.T) {
	h := newCLIHarness(t, ControllerOptions{})
	h.provider.StartErr = errors.New("assistant not found")

	_, err := h.session.Run(context.Background(), evaluateSession())

	var startErr *ProviderStartError
	require.ErrorAs(t, err, &startErr)
	assert.Contains(t, h.out.String(), "assistant not found")

	_, statErr := os.Stat(h.lockPath)
	assert.True(t, os.IsNotExist(statErr), "lock should be released")
}

func TestCLISession_InvalidSession(t *testing.T) {
	h := newCLIHarness(t, ControllerOptions{})

	_, err := h.session.Run(context.Background(), &schema.SessionContext{Type: schema.SessionGenerate})

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestCLISession_ChainsCallbacks(t *testing.T) {
	var mu sync.Mutex
	var views []View
	var errs []error

	h := newCLIHarness(t, ControllerOptions{
		OnChange: func(v View) {
			mu.Lock()
			views = append(views, v)
			mu.Unlock()
		},
		OnError: func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	})
	done := h.runAsync(context.Background(), generateSession())
	h.waitStarted(t)

	h.provider.Emit(CallStarted())
	h.provider.Emit(ProviderFailure(errors.New("jitter")))
	h.provider.Emit(CallEnded())
	waitResult(t, done)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, views)
	assert.Equal(t, schema.CallFinished, views[len(views)-1].Status)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "jitter")
	assert.Contains(t, h.out.String(), "jitter")
}
