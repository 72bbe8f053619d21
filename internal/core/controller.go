package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"intervoice/pkg/schema"
)

// ErrClosed is returned by commands issued after Close.
var ErrClosed = errors.New("call controller closed")

// recordTimeout bounds archiving a finished call.
const recordTimeout = 10 * time.Second

// CallRecorder archives finished calls.
type CallRecorder interface {
	SaveCallRecord(ctx context.Context, rec *schema.CallRecord) error
}

// View is a point-in-time copy of controller state for display.
type View struct {
	SessionID   string
	Status      schema.CallStatus
	Pending     string
	LastMessage string
	Messages    int
	Speaking    bool
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Targets    Targets
	Dispatcher *FeedbackDispatcher
	Recorder   CallRecorder
	Logger     Logger

	// OnError receives every reported failure. It may be called from any goroutine.
	OnError func(error)

	// OnNavigate receives the terminal navigation of each session, once.
	OnNavigate func(Navigation)

	// OnChange is called after each state change with a fresh View.
	// It runs on the event loop and must not call back into StartCall or StopCall.
	OnChange func(View)
}

// Controller is the single authority over call status and transcript for one call session.
// Provider events and user commands are funneled through one event loop goroutine,
// so state changes are applied one at a time, in order.
type Controller struct {
	provider CallProvider
	opts     ControllerOptions
	logger   Logger

	sub  Subscription
	cmds chan command
	done chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
	workflows sync.WaitGroup

	mu       sync.Mutex
	status   schema.CallStatus
	buffer   *TranscriptBuffer
	session  *callSession
	speaking bool
}

// callSession is the per-call state that is replaced on every StartCall.
type callSession struct {
	id        string
	context   *schema.SessionContext
	startedAt time.Time

	// starting is set while the provider start command is in flight.
	// A stop that arrives meanwhile sets stopPending and is sent once the start returns.
	starting    bool
	stopPending bool

	// postCall is the one-shot latch for the post-call workflow.
	postCall bool
	navDone  chan struct{}
	nav      Navigation
}

type command struct {
	fn   func()
	done chan struct{}
}

// NewController subscribes to the provider and starts the event loop.
// The subscription lives exactly as long as the controller; Close releases it.
func NewController(ctx context.Context, provider CallProvider, opts ControllerOptions) (*Controller, error) {
	sub, err := provider.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("subscribe to call provider: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NopLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		provider: provider,
		opts:     opts,
		logger:   logger,
		sub:      sub,
		cmds:     make(chan command),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		status:   schema.CallInactive,
		buffer:   NewTranscriptBuffer(),
	}

	go c.run()
	return c, nil
}

// StartCall begins a new session and asks the provider to place the call.
// Allowed only while inactive or finished. If the provider rejects the start the
// failure is reported, the session returns to inactive, and the error is returned.
func (c *Controller) StartCall(ctx context.Context, sc *schema.SessionContext) error {
	if err := schema.ValidateSessionContext(sc); err != nil {
		return &ValidationError{Field: "session", Message: err.Error(), Err: err}
	}
	session := sc.Clone()

	targetID, params := c.callParams(session)
	if targetID == "" {
		return &ValidationError{Field: "target", Message: fmt.Sprintf("no call target configured for %s sessions", session.Type)}
	}

	var (
		stateErr  error
		sessionID string
	)
	err := c.do(ctx, func() {
		c.mu.Lock()
		if c.status != schema.CallInactive && c.status != schema.CallFinished {
			stateErr = &StateError{Operation: "start call", Status: c.status}
			c.mu.Unlock()
			return
		}
		if c.session != nil && c.session.starting {
			stateErr = &StateError{Operation: "start call during pending start", Status: c.status}
			c.mu.Unlock()
			return
		}
		c.session = &callSession{
			id:        uuid.NewString(),
			context:   session,
			startedAt: time.Now(),
			starting:  true,
			navDone:   make(chan struct{}),
		}
		sessionID = c.session.id
		c.buffer.Reset()
		c.speaking = false
		c.status = schema.CallConnecting
		c.mu.Unlock()

		c.logger.Info("call connecting",
			"session_id", sessionID,
			"type", session.Type,
			"target", targetID,
		)
		c.notifyChange()
	})
	if err != nil {
		return err
	}
	if stateErr != nil {
		return stateErr
	}

	var startErr error
	if err := c.provider.Start(ctx, targetID, params); err != nil {
		startErr = &ProviderStartError{TargetID: targetID, Err: err}
	}

	var stopPending bool
	settle := func() {
		c.mu.Lock()
		if c.session != nil && c.session.id == sessionID {
			c.session.starting = false
			stopPending = c.session.stopPending
		}
		c.mu.Unlock()
		if startErr != nil {
			c.startFailed(sessionID, startErr)
		}
	}
	if doErr := c.do(context.Background(), settle); doErr != nil {
		// Closed while starting. The loop is gone and nothing will stop a call placed now.
		settle()
		stopPending = true
	}

	if startErr != nil {
		return startErr
	}
	if stopPending {
		c.logger.Info("sending stop deferred during start", "session_id", sessionID)
		if err := c.provider.Stop(context.WithoutCancel(ctx)); err != nil {
			c.report(&ProviderRuntimeError{Operation: "stop", Message: err.Error(), Err: err})
		}
	}
	return nil
}

// StopCall ends the call from the user side. Allowed only while connecting or active.
// The session is finished immediately; a later call-ended from the provider is ignored.
// If the provider start is still in flight, the stop command is sent after it returns.
func (c *Controller) StopCall(ctx context.Context) error {
	var (
		stateErr error
		deferred bool
	)
	err := c.do(ctx, func() {
		c.mu.Lock()
		status := c.status
		c.mu.Unlock()

		if status != schema.CallConnecting && status != schema.CallActive {
			stateErr = &StateError{Operation: "stop call", Status: status}
			return
		}
		c.mu.Lock()
		if c.session.starting {
			c.session.stopPending = true
			deferred = true
		}
		c.mu.Unlock()
		c.finish("stopped by user")
	})
	if err != nil {
		return err
	}
	if stateErr != nil {
		return stateErr
	}
	if deferred {
		// StartCall sends the stop once the provider has accepted the start
		return nil
	}

	if err := c.provider.Stop(ctx); err != nil {
		stopErr := &ProviderRuntimeError{Operation: "stop", Message: err.Error(), Err: err}
		c.report(stopErr)
		return stopErr
	}

	return nil
}

// Close cancels pending work, releases the provider subscription and waits for
// any post-call workflow to resolve. A cancelled feedback request resolves home.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
		c.closeErr = c.sub.Close()
		c.workflows.Wait()
	})
	return c.closeErr
}

// Status returns the current call status.
func (c *Controller) Status() schema.CallStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionID returns the id of the current session, or "" before the first call.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.id
}

// Snapshot returns the finalized transcript of the current session.
func (c *Controller) Snapshot() []schema.TranscriptMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.Snapshot()
}

// Pending returns the in-flight utterance.
func (c *Controller) Pending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.Pending()
}

// IsSpeaking reports whether the provider says someone is currently speaking.
func (c *Controller) IsSpeaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// LastMessage returns the content of the latest finalized message.
func (c *Controller) LastMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, _ := c.buffer.Last()
	return last.Content
}

// View returns a copy of the state shown to the user.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Status:   c.status,
		Pending:  c.buffer.Pending(),
		Messages: c.buffer.Len(),
		Speaking: c.speaking,
	}
	if c.session != nil {
		v.SessionID = c.session.id
	}
	if last, ok := c.buffer.Last(); ok {
		v.LastMessage = last.Content
	}
	return v
}

// Navigation returns the current session's navigation once it has been decided.
func (c *Controller) Navigation() (Navigation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Navigation{}, false
	}
	select {
	case <-c.session.navDone:
		return c.session.nav, true
	default:
		return Navigation{}, false
	}
}

// WaitNavigation blocks until the current session has a navigation decision.
func (c *Controller) WaitNavigation(ctx context.Context) (Navigation, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return Navigation{}, errors.New("no call session started")
	}

	select {
	case <-s.navDone:
		c.mu.Lock()
		defer c.mu.Unlock()
		return s.nav, nil
	case <-ctx.Done():
		return Navigation{}, ctx.Err()
	}
}

// FormatQuestions joins prepared questions into the single text block the interviewer expects.
func FormatQuestions(questions []string) string {
	lines := make([]string, len(questions))
	for i, q := range questions {
		lines[i] = "- " + q
	}
	return strings.Join(lines, "\n")
}

func (c *Controller) callParams(sc *schema.SessionContext) (string, CallParams) {
	if sc.Type == schema.SessionGenerate {
		return c.opts.Targets.WorkflowID, CallParams{
			"username": sc.UserName,
			"userid":   sc.UserID,
		}
	}
	return c.opts.Targets.InterviewerID, CallParams{
		"questions": FormatQuestions(sc.Questions),
	}
}

// do runs fn on the event loop and waits for it to complete.
func (c *Controller) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-cmd.done
	return nil
}

func (c *Controller) run() {
	defer close(c.done)

	events := c.sub.Events()
	for {
		select {
		case <-c.ctx.Done():
			return
		case cmd := <-c.cmds:
			cmd.fn()
			close(cmd.done)
		case ev, ok := <-events:
			if !ok {
				c.logger.Warn("call provider event stream closed")
				events = nil
				continue
			}
			c.handleEvent(ev)
		}
	}
}

func (c *Controller) handleEvent(ev ProviderEvent) {
	switch ev.Type {
	case EventCallStarted:
		c.mu.Lock()
		if c.status != schema.CallConnecting {
			status := c.status
			c.mu.Unlock()
			c.logger.Debug("ignoring call-started", "status", status)
			return
		}
		c.status = schema.CallActive
		c.mu.Unlock()
		c.logger.Info("call active", "session_id", c.SessionID())
		c.notifyChange()

	case EventCallEnded:
		c.mu.Lock()
		status := c.status
		c.mu.Unlock()
		if status != schema.CallConnecting && status != schema.CallActive {
			c.logger.Debug("ignoring call-ended", "status", status)
			return
		}
		c.finish("ended by provider")

	case EventTranscript:
		c.applyTranscript(ev)

	case EventSpeechStarted, EventSpeechEnded:
		c.mu.Lock()
		c.speaking = ev.Type == EventSpeechStarted
		c.mu.Unlock()
		c.notifyChange()

	case EventError:
		msg := "unknown error"
		if ev.Err != nil {
			msg = ev.Err.Error()
		} else if ev.Text != "" {
			msg = ev.Text
		}
		c.report(&ProviderRuntimeError{Message: msg, Err: ev.Err})

	default:
		c.logger.Debug("ignoring unknown provider event", "type", ev.Type)
	}
}

func (c *Controller) applyTranscript(ev ProviderEvent) {
	c.mu.Lock()
	if c.status != schema.CallActive {
		status := c.status
		c.mu.Unlock()
		c.logger.Debug("ignoring transcript outside active call", "status", status, "kind", ev.Kind)
		return
	}

	switch ev.Kind {
	case TranscriptFinal:
		if !schema.ValidRole(ev.Role) {
			c.mu.Unlock()
			c.logger.Warn("dropping final transcript with unknown role", "role", ev.Role)
			return
		}
		c.buffer.AppendFinal(ev.Role, ev.Text)
	case TranscriptPartial:
		c.buffer.SetPartial(ev.Text)
	default:
		c.mu.Unlock()
		c.logger.Warn("ignoring transcript with unknown kind", "kind", ev.Kind)
		return
	}
	c.mu.Unlock()
	c.notifyChange()
}

// finish moves the session to finished and starts the post-call workflow at most once.
// It runs on the event loop.
func (c *Controller) finish(reason string) {
	c.mu.Lock()
	c.status = schema.CallFinished
	c.speaking = false
	s := c.session
	if s.postCall {
		c.mu.Unlock()
		return
	}
	s.postCall = true
	snapshot := c.buffer.Snapshot()
	c.mu.Unlock()

	c.logger.Info("call finished",
		"session_id", s.id,
		"reason", reason,
		"messages", len(snapshot),
	)
	c.notifyChange()

	c.workflows.Add(1)
	go c.runPostCall(s, snapshot)
}

// startFailed reverts a session that never connected. It runs on the event loop.
func (c *Controller) startFailed(sessionID string, err error) {
	c.mu.Lock()
	reverted := false
	if c.session != nil && c.session.id == sessionID && c.status == schema.CallConnecting {
		c.status = schema.CallInactive
		reverted = true
	}
	c.mu.Unlock()

	c.report(err)
	if reverted {
		c.notifyChange()
	}
}

func (c *Controller) runPostCall(s *callSession, transcript []schema.TranscriptMessage) {
	defer c.workflows.Done()

	nav := Home()
	var feedbackID string

	if s.context.Type == schema.SessionEvaluate {
		feedbackID = c.requestFeedback(s, transcript)
		if feedbackID != "" {
			nav = FeedbackFor(s.context.InterviewID)
		}
	}

	c.resolve(s, nav)
	c.record(s, transcript, nav, feedbackID)
}

// requestFeedback returns the produced feedback id, or "" after reporting the failure.
func (c *Controller) requestFeedback(s *callSession, transcript []schema.TranscriptMessage) string {
	sc := s.context
	if c.opts.Dispatcher == nil {
		c.report(&FeedbackDispatchError{InterviewID: sc.InterviewID, Message: "no feedback dispatcher configured"})
		return ""
	}

	result := c.opts.Dispatcher.Generate(c.ctx, &schema.FeedbackRequest{
		InterviewID: sc.InterviewID,
		UserID:      sc.UserID,
		FeedbackID:  sc.FeedbackID,
		Transcript:  transcript,
	})

	switch {
	case result.Success && result.FeedbackID != "":
		return result.FeedbackID
	case result.Err != nil:
		c.report(&FeedbackDispatchError{InterviewID: sc.InterviewID, Message: "request failed", Err: result.Err})
	case result.Success:
		c.report(&FeedbackDispatchError{InterviewID: sc.InterviewID, Message: "no feedback id returned"})
	default:
		c.report(&FeedbackDispatchError{InterviewID: sc.InterviewID, Message: "feedback service reported failure"})
	}
	return ""
}

func (c *Controller) resolve(s *callSession, nav Navigation) {
	c.mu.Lock()
	s.nav = nav
	close(s.navDone)
	c.mu.Unlock()

	c.logger.Info("navigation decided",
		"session_id", s.id,
		"kind", nav.Kind,
		"path", nav.Path(),
	)
	if c.opts.OnNavigate != nil {
		c.opts.OnNavigate(nav)
	}
}

func (c *Controller) record(s *callSession, transcript []schema.TranscriptMessage, nav Navigation, feedbackID string) {
	if c.opts.Recorder == nil {
		return
	}

	ended := time.Now()
	rec := &schema.CallRecord{
		SessionID:    s.id,
		UserID:       s.context.UserID,
		InterviewID:  s.context.InterviewID,
		Type:         s.context.Type,
		Transcript:   transcript,
		StartedAt:    s.startedAt,
		EndedAt:      ended,
		DurationSecs: int(ended.Sub(s.startedAt).Seconds()),
		Outcome:      string(nav.Kind),
		FeedbackID:   feedbackID,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), recordTimeout)
	defer cancel()
	if err := c.opts.Recorder.SaveCallRecord(ctx, rec); err != nil {
		c.logger.Warn("failed to archive call", "session_id", s.id, "error", err)
	}
}

func (c *Controller) report(err error) {
	c.logger.Error("call session error", "session_id", c.SessionID(), "error", err)
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}

func (c *Controller) notifyChange() {
	if c.opts.OnChange != nil {
		c.opts.OnChange(c.View())
	}
}
