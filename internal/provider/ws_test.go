package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intervoice/internal/core"
	"intervoice/pkg/schema"
)

// fakeCallService accepts websocket connections and records client commands.
type fakeCallService struct {
	server   *httptest.Server
	commands chan clientCommand
	conns    chan *websocket.Conn
}

func newFakeCallService(t *testing.T) *fakeCallService {
	t.Helper()
	f := &fakeCallService{
		commands: make(chan clientCommand, 16),
		conns:    make(chan *websocket.Conn, 4),
	}
	upgrader := websocket.Upgrader{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- conn
		for {
			var cmd clientCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			f.commands <- cmd
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCallService) url() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func (f *fakeCallService) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection to call service")
		return nil
	}
}

func (f *fakeCallService) command(t *testing.T) clientCommand {
	t.Helper()
	select {
	case cmd := <-f.commands:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("no command received")
		return clientCommand{}
	}
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func recv(t *testing.T, sub core.Subscription) core.ProviderEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return core.ProviderEvent{}
	}
}

func TestWSProvider_StartAndEvents(t *testing.T) {
	svc := newFakeCallService(t)
	p := NewWSProvider(svc.url(), nil, nil)
	defer p.Close()

	sub, err := p.Subscribe()
	require.NoError(t, err)

	err = p.Start(context.Background(), "iv-1", core.CallParams{"questions": "- Why Go?"})
	require.NoError(t, err)

	cmd := svc.command(t)
	assert.Equal(t, cmdStart, cmd.Type)
	assert.Equal(t, "iv-1", cmd.TargetID)
	assert.Equal(t, map[string]string{"questions": "- Why Go?"}, cmd.VariableValues)

	conn := svc.conn(t)
	send(t, conn, `{"type":"call-start"}`)
	send(t, conn, `{"type":"volume-level","volume":0.2}`)
	send(t, conn, `{"type":"transcript","role":"assistant","transcriptType":"partial","transcript":"Wel"}`)
	send(t, conn, `{"type":"transcript","role":"assistant","transcriptType":"final","transcript":"Welcome"}`)
	send(t, conn, `{"type":"call-end"}`)

	assert.Equal(t, core.CallStarted(), recv(t, sub))
	assert.Equal(t, core.PartialTranscript(schema.RoleAssistant, "Wel"), recv(t, sub))
	assert.Equal(t, core.FinalTranscript(schema.RoleAssistant, "Welcome"), recv(t, sub))
	assert.Equal(t, core.CallEnded(), recv(t, sub))
}

func TestWSProvider_Stop(t *testing.T) {
	svc := newFakeCallService(t)
	p := NewWSProvider(svc.url(), nil, nil)
	defer p.Close()

	assert.ErrorIs(t, p.Stop(context.Background()), ErrNotConnected)

	require.NoError(t, p.Start(context.Background(), "wf-1", nil))
	svc.command(t)

	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, cmdStop, svc.command(t).Type)
}

func TestWSProvider_StartReusesConnection(t *testing.T) {
	svc := newFakeCallService(t)
	p := NewWSProvider(svc.url(), nil, nil)
	defer p.Close()

	require.NoError(t, p.Start(context.Background(), "wf-1", nil))
	svc.command(t)
	require.NoError(t, p.Start(context.Background(), "wf-1", nil))
	svc.command(t)

	svc.conn(t)
	select {
	case <-svc.conns:
		t.Fatal("second connection opened")
	default:
	}
}

func TestWSProvider_DialFailure(t *testing.T) {
	svc := newFakeCallService(t)
	url := svc.url()
	svc.server.Close()

	p := NewWSProvider(url, nil, nil)
	defer p.Close()

	err := p.Start(context.Background(), "wf-1", nil)

	var netErr *core.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "dial", netErr.Operation)
}

func TestWSProvider_BadFrame(t *testing.T) {
	svc := newFakeCallService(t)
	p := NewWSProvider(svc.url(), nil, nil)
	defer p.Close()

	sub, err := p.Subscribe()
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background(), "wf-1", nil))

	conn := svc.conn(t)
	send(t, conn, `{garbage`)
	send(t, conn, `{"type":"speech-start"}`)

	ev := recv(t, sub)
	assert.Equal(t, core.EventError, ev.Type)
	assert.Equal(t, core.EventSpeechStarted, recv(t, sub).Type)
}

func TestWSProvider_ConnectionLostEndsCall(t *testing.T) {
	svc := newFakeCallService(t)
	p := NewWSProvider(svc.url(), nil, nil)
	defer p.Close()

	sub, err := p.Subscribe()
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background(), "wf-1", nil))

	conn := svc.conn(t)
	send(t, conn, `{"type":"call-start"}`)
	assert.Equal(t, core.CallStarted(), recv(t, sub))

	// Drop the connection without a close handshake
	require.NoError(t, conn.UnderlyingConn().Close())

	ev := recv(t, sub)
	assert.Equal(t, core.EventError, ev.Type)
	var netErr *core.NetworkError
	assert.ErrorAs(t, ev.Err, &netErr)
	assert.Equal(t, core.CallEnded(), recv(t, sub))

	assert.ErrorIs(t, p.Stop(context.Background()), ErrNotConnected)
}

func TestWSProvider_ConnectionLostWhilePlacingCall(t *testing.T) {
	svc := newFakeCallService(t)
	p := NewWSProvider(svc.url(), nil, nil)
	defer p.Close()

	c, err := core.NewController(context.Background(), p, core.ControllerOptions{
		Targets: core.Targets{WorkflowID: "wf-1", InterviewerID: "iv-1"},
	})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.StartCall(context.Background(), &schema.SessionContext{
		UserID: "user-1",
		Type:   schema.SessionGenerate,
	}))
	svc.command(t)
	assert.Equal(t, schema.CallConnecting, c.Status())

	// The service goes away before it ever reports call-start
	require.NoError(t, svc.conn(t).UnderlyingConn().Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	nav, err := c.WaitNavigation(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Home(), nav)
	assert.Equal(t, schema.CallFinished, c.Status())
}

func TestWSProvider_SubscriptionClose(t *testing.T) {
	svc := newFakeCallService(t)
	p := NewWSProvider(svc.url(), nil, nil)
	defer p.Close()

	closed, err := p.Subscribe()
	require.NoError(t, err)
	open, err := p.Subscribe()
	require.NoError(t, err)

	require.NoError(t, closed.Close())
	require.NoError(t, closed.Close())
	_, ok := <-closed.Events()
	assert.False(t, ok)

	require.NoError(t, p.Start(context.Background(), "wf-1", nil))
	send(t, svc.conn(t), `{"type":"call-start"}`)
	assert.Equal(t, core.CallStarted(), recv(t, open))
}

func TestWSProvider_CloseEndsSubscriptions(t *testing.T) {
	svc := newFakeCallService(t)
	p := NewWSProvider(svc.url(), nil, nil)

	sub, err := p.Subscribe()
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background(), "wf-1", nil))
	svc.conn(t)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, ok := <-sub.Events()
	assert.False(t, ok)

	_, err = p.Subscribe()
	assert.Error(t, err)
	assert.Error(t, p.Start(context.Background(), "wf-1", nil))
}

func TestWSProvider_DrivesController(t *testing.T) {
	svc := newFakeCallService(t)
	p := NewWSProvider(svc.url(), nil, nil)
	defer p.Close()

	collab := core.NewMockFeedbackCollaborator("FB-ws")
	c, err := core.NewController(context.Background(), p, core.ControllerOptions{
		Targets:    core.Targets{WorkflowID: "wf-1", InterviewerID: "iv-1"},
		Dispatcher: core.NewFeedbackDispatcher(collab, time.Second, nil),
	})
	require.NoError(t, err)
	defer c.Close()

	err = c.StartCall(context.Background(), &schema.SessionContext{
		UserID:      "user-1",
		InterviewID: "IV-9",
		Type:        schema.SessionEvaluate,
		Questions:   []string{"What is a goroutine?"},
	})
	require.NoError(t, err)

	cmd := svc.command(t)
	assert.Equal(t, "iv-1", cmd.TargetID)
	assert.Equal(t, "- What is a goroutine?", cmd.VariableValues["questions"])

	conn := svc.conn(t)
	send(t, conn, `{"type":"call-start"}`)
	send(t, conn, `{"type":"transcript","role":"assistant","transcriptType":"final","transcript":"What is a goroutine?"}`)
	send(t, conn, `{"type":"transcript","role":"user","transcriptType":"final","transcript":"A lightweight thread."}`)
	send(t, conn, `{"type":"call-end"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	nav, err := c.WaitNavigation(ctx)
	require.NoError(t, err)

	assert.Equal(t, core.FeedbackFor("IV-9"), nav)
	req := collab.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, []schema.TranscriptMessage{
		{Role: schema.RoleAssistant, Content: "What is a goroutine?"},
		{Role: schema.RoleUser, Content: "A lightweight thread."},
	}, req.Transcript)
}
