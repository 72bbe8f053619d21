package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"intervoice/internal/core"
)

const (
	connectTimeout = 15 * time.Second
	writeTimeout   = 5 * time.Second
	closeTimeout   = 2 * time.Second
)

// ErrNotConnected is returned by Stop when no call connection is open.
var ErrNotConnected = errors.New("call service not connected")

// WSProvider is a core.CallProvider speaking JSON frames over a websocket.
// Start dials the call service when no connection is open; the connection
// stays open after Stop so the service can still report call-end.
type WSProvider struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	logger core.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	done    chan struct{}
	inCall  bool
	placing bool // start sent, call-start not yet received
	subs    map[*wsSubscription]struct{}
	closed  bool

	writeMu sync.Mutex
}

// NewWSProvider creates a provider for the call service at url.
func NewWSProvider(url string, header http.Header, logger core.Logger) *WSProvider {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &WSProvider{
		url:    url,
		header: header,
		dialer: websocket.DefaultDialer,
		logger: logger.With("provider_url", url),
		subs:   make(map[*wsSubscription]struct{}),
	}
}

// Start places a call against targetID.
func (p *WSProvider) Start(ctx context.Context, targetID string, params core.CallParams) error {
	conn, err := p.connect(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.placing = true
	p.mu.Unlock()

	cmd := clientCommand{Type: cmdStart, TargetID: targetID, VariableValues: params}
	if err := p.write(conn, cmd); err != nil {
		p.mu.Lock()
		p.placing = false
		p.mu.Unlock()
		return fmt.Errorf("send start: %w", err)
	}

	p.logger.Debug("start sent", "target_id", targetID)
	return nil
}

// Stop asks the call service to end the current call.
func (p *WSProvider) Stop(ctx context.Context) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	if err := p.write(conn, clientCommand{Type: cmdStop}); err != nil {
		return fmt.Errorf("send stop: %w", err)
	}

	p.logger.Debug("stop sent")
	return nil
}

// Subscribe opens an event stream. Every subscription receives every event.
func (p *WSProvider) Subscribe() (core.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("provider closed")
	}

	sub := &wsSubscription{
		provider: p,
		events:   make(chan core.ProviderEvent, 64),
		closing:  make(chan struct{}),
	}
	p.subs[sub] = struct{}{}
	return sub, nil
}

// Close shuts the connection and ends every subscription.
func (p *WSProvider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conn, done := p.conn, p.done
	subs := make([]*wsSubscription, 0, len(p.subs))
	for sub := range p.subs {
		subs = append(subs, sub)
	}
	p.mu.Unlock()

	// Subscriptions close first so a blocked broadcast cannot stall the read loop
	for _, sub := range subs {
		_ = sub.Close()
	}

	if conn != nil {
		p.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeTimeout))
		p.writeMu.Unlock()
		_ = conn.Close()
		<-done
	}
	return nil
}

func (p *WSProvider) connect(ctx context.Context) (*websocket.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New("provider closed")
	}
	if p.conn != nil {
		return p.conn, nil
	}

	dialCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}

	conn, resp, err := p.dialer.DialContext(dialCtx, p.url, p.header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, &core.NetworkError{Operation: "dial", URL: p.url, Message: "connect to call service", Err: err}
	}

	p.conn = conn
	p.done = make(chan struct{})
	go p.readLoop(conn, p.done)

	p.logger.Info("connected to call service")
	return conn, nil
}

func (p *WSProvider) write(conn *websocket.Conn, v any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

func (p *WSProvider) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	var readErr error
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		ev, ok, err := decodeEvent(data)
		if err != nil {
			p.logger.Warn("bad frame from call service", "error", err)
			p.broadcast(core.ProviderFailure(err))
			continue
		}
		if !ok {
			continue
		}

		p.mu.Lock()
		switch ev.Type {
		case core.EventCallStarted:
			p.inCall = true
			p.placing = false
		case core.EventCallEnded:
			p.inCall = false
			p.placing = false
		}
		p.mu.Unlock()

		p.broadcast(ev)
	}

	p.mu.Lock()
	if p.conn == conn {
		p.conn = nil
	}
	// A call being placed is lost with the connection just like one in progress
	wasInCall := p.inCall || p.placing
	p.inCall = false
	p.placing = false
	closing := p.closed
	p.mu.Unlock()

	_ = conn.Close()

	if closing || websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		if wasInCall && !closing {
			p.broadcast(core.CallEnded())
		}
		return
	}

	p.logger.Warn("call service connection lost", "error", readErr)
	p.broadcast(core.ProviderFailure(&core.NetworkError{
		Operation: "read",
		URL:       p.url,
		Message:   "connection lost",
		Err:       readErr,
	}))
	// The call cannot continue without the connection
	if wasInCall {
		p.broadcast(core.CallEnded())
	}
}

func (p *WSProvider) broadcast(ev core.ProviderEvent) {
	p.mu.Lock()
	subs := make([]*wsSubscription, 0, len(p.subs))
	for sub := range p.subs {
		subs = append(subs, sub)
	}
	p.mu.Unlock()

	for _, sub := range subs {
		sub.send(ev)
	}
}

func (p *WSProvider) unsubscribe(sub *wsSubscription) {
	p.mu.Lock()
	delete(p.subs, sub)
	p.mu.Unlock()
}

type wsSubscription struct {
	provider *WSProvider

	mu        sync.Mutex
	events    chan core.ProviderEvent
	closing   chan struct{}
	closeOnce sync.Once
	closed    bool
}

func (s *wsSubscription) Events() <-chan core.ProviderEvent {
	return s.events
}

func (s *wsSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.provider.unsubscribe(s)
		close(s.closing)
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
	})
	return nil
}

// send blocks until the subscriber takes ev or the subscription closes.
func (s *wsSubscription) send(ev core.ProviderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	case <-s.closing:
	}
}
