package plugin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowmerak/spotter.go/lib/plugintest"
	"github.com/snowmerak/spotter.go/lib/protocol"
)

const testTimeout = 5 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	module *Module
	host   *plugintest.Host
	errCh  chan error
	cancel context.CancelFunc
}

// startModule connects a module serving p to a fresh fake host and waits for the handshake.
func startModule(t *testing.T, p Plugin, mutate func(*Config), opts ...ModuleOption) *harness {
	t.Helper()

	host := plugintest.NewHost()
	t.Cleanup(host.Close)

	cfg := DefaultConfig()
	cfg.Host, cfg.Port = host.Addr()
	cfg.ConnectionID = "cfg"
	cfg.DrainTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	module, err := New(p, cfg, append([]ModuleOption{WithLogger(discardLogger())}, opts...)...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- module.Listen(ctx)
	}()

	acceptCtx, acceptCancel := context.WithTimeout(context.Background(), testTimeout)
	defer acceptCancel()

	ready, err := host.Accept(acceptCtx)
	require.NoError(t, err)
	require.Equal(t, "cfg", ready.ConnectionID)

	return &harness{module: module, host: host, errCh: errCh, cancel: cancel}
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.errCh:
		return err
	case <-time.After(testTimeout):
		t.Fatal("Listen did not return")
		return nil
	}
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func queryReturning(options ...Option) Hooks {
	return Hooks{OnQueryFunc: func(context.Context, string) ([]Option, error) {
		return options, nil
	}}
}

func TestModule_New_Validates(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Port = 0
	_, err = New(Hooks{}, cfg)
	assert.Error(t, err)

	m, err := New(Hooks{}, DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, m.Callbacks())
	assert.False(t, m.Connected())
}

func TestModule_HandshakeIsFirstFrame(t *testing.T) {
	h := startModule(t, queryReturning(Option{Name: "Open File"}), nil)

	_, err := h.host.Query(testCtx(t), "open")
	require.NoError(t, err)

	frames := h.host.Frames()
	require.GreaterOrEqual(t, len(frames), 2)
	assert.JSONEq(t, `{"type":"pluginReady","connectionId":"cfg"}`, string(frames[0]))
	assert.True(t, h.module.Connected())
}

func TestModule_Handshake_DefaultConnectionID(t *testing.T) {
	host := plugintest.NewHost()
	defer host.Close()

	cfg := DefaultConfig()
	cfg.Host, cfg.Port = host.Addr()

	m, err := New(Hooks{}, cfg, WithLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Listen(ctx)

	ready, err := host.Accept(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultConnectionID, ready.ConnectionID)
}

func TestModule_QueryScenario(t *testing.T) {
	gotQuery := make(chan string, 1)
	hooks := Hooks{OnQueryFunc: func(_ context.Context, q string) ([]Option, error) {
		gotQuery <- q
		return []Option{{Name: "Open File"}}, nil
	}}
	h := startModule(t, hooks, nil)

	resp, err := h.host.Query(testCtx(t), "open")
	require.NoError(t, err)

	assert.Equal(t, "open", <-gotQuery)
	assert.Equal(t, protocol.ResponseTypeQuery, resp.Kind)
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, []protocol.MappedOption{{Name: "Open File"}}, resp.Options)
	assert.False(t, resp.Complete)
	assert.Equal(t, "cfg", resp.ConnectionID)

	frames := h.host.Frames()
	assert.JSONEq(t,
		`{"type":"onQueryResponse","id":"1","options":[{"name":"Open File","isHovered":false,"priority":0,"important":false}],"complete":false,"connectionId":"cfg"}`,
		string(frames[len(frames)-1]))
}

func TestModule_ExecActionTerminal(t *testing.T) {
	var calls atomic.Int32
	h := startModule(t, queryReturning(Option{
		Name: "Close",
		Action: func(context.Context) (Result, error) {
			calls.Add(1)
			return Done(true), nil
		},
	}), nil)
	ctx := testCtx(t)

	menu, err := h.host.Query(ctx, "")
	require.NoError(t, err)
	require.Len(t, menu.Options, 1)
	actionID := menu.Options[0].ActionID
	require.NotEmpty(t, actionID)
	assert.Empty(t, menu.Options[0].OnQueryID)

	resp, err := h.host.ExecAction(ctx, actionID)
	require.NoError(t, err)

	assert.Equal(t, protocol.ResponseTypeExecAction, resp.Kind)
	assert.Equal(t, "2", resp.ID)
	assert.Empty(t, resp.Options)
	assert.True(t, resp.Complete)
	assert.Equal(t, int32(1), calls.Load())

	frames := h.host.Frames()
	assert.Contains(t, string(frames[len(frames)-1]), `"options":[]`)
}

func TestModule_ExecActionReturnsOptions(t *testing.T) {
	h := startModule(t, queryReturning(Option{
		Name: "Browse",
		Action: func(context.Context) (Result, error) {
			return Next(
				Option{Name: "Child", Hint: "nested", Action: func(context.Context) (Result, error) { return Done(false), nil }},
				Option{Name: "Leaf"},
			), nil
		},
	}), nil)
	ctx := testCtx(t)

	menu, err := h.host.Query(ctx, "")
	require.NoError(t, err)

	resp, err := h.host.ExecAction(ctx, menu.Options[0].ActionID)
	require.NoError(t, err)
	assert.False(t, resp.Complete)
	require.Len(t, resp.Options, 2)
	assert.Equal(t, "Child", resp.Options[0].Name)
	assert.Equal(t, "nested", resp.Options[0].Hint)
	assert.NotEmpty(t, resp.Options[0].ActionID)
	assert.Equal(t, protocol.MappedOption{Name: "Leaf"}, resp.Options[1])

	// The nested action answers with complete=false.
	child, err := h.host.ExecAction(ctx, resp.Options[0].ActionID)
	require.NoError(t, err)
	assert.False(t, child.Complete)
	assert.Empty(t, child.Options)
}

func TestModule_UnknownActionIsDropped(t *testing.T) {
	h := startModule(t, queryReturning(Option{Name: "Still here"}), nil)

	short, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := h.host.ExecAction(short, "bogus")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	resp, err := h.host.Query(testCtx(t), "again")
	require.NoError(t, err)
	assert.Equal(t, "Still here", resp.Options[0].Name)
}

func TestModule_OptionQuery(t *testing.T) {
	h := startModule(t, queryReturning(
		Option{
			Name: "Upper",
			OnQuery: func(_ context.Context, q string) (Result, error) {
				return Next(Option{Name: strings.ToUpper(q)}), nil
			},
		},
		Option{
			Name: "Refuse",
			OnQuery: func(context.Context, string) (Result, error) {
				return Done(false), nil
			},
		},
	), nil)
	ctx := testCtx(t)

	menu, err := h.host.Query(ctx, "")
	require.NoError(t, err)
	require.Len(t, menu.Options, 2)

	resp, err := h.host.OptionQuery(ctx, menu.Options[0].OnQueryID, "abc")
	require.NoError(t, err)
	assert.Equal(t, protocol.ResponseTypeOptionQuery, resp.Kind)
	assert.False(t, resp.Complete)
	assert.Equal(t, []protocol.MappedOption{{Name: "ABC"}}, resp.Options)

	resp, err = h.host.OptionQuery(ctx, menu.Options[1].OnQueryID, "x")
	require.NoError(t, err)
	assert.False(t, resp.Complete)
	assert.Empty(t, resp.Options)
}

func TestModule_ActionIDIsNotAQueryID(t *testing.T) {
	h := startModule(t, queryReturning(Option{
		Name:   "Act",
		Action: func(context.Context) (Result, error) { return Done(true), nil },
	}), nil)

	menu, err := h.host.Query(testCtx(t), "")
	require.NoError(t, err)

	short, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = h.host.OptionQuery(short, menu.Options[0].ActionID, "q")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestModule_BadFramesAreDropped(t *testing.T) {
	h := startModule(t, queryReturning(Option{Name: "ok"}), nil)

	require.NoError(t, h.host.SendRaw(websocket.TextMessage, []byte(`{not json`)))
	require.NoError(t, h.host.SendRaw(websocket.TextMessage, []byte(`{"type":"renderOptions","id":"9"}`)))
	require.NoError(t, h.host.SendRaw(websocket.TextMessage, []byte(`{"type":"execActionRequest","id":"9"}`)))
	require.NoError(t, h.host.SendRaw(websocket.BinaryMessage, []byte(`{"type":"onQueryRequest","id":"99","query":""}`)))

	resp, err := h.host.Query(testCtx(t), "")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Options[0].Name)

	// Handshake plus the single query reply; nothing answered the bad frames.
	assert.Len(t, h.host.Frames(), 2)
}

func TestModule_HookErrorsAnswerIncomplete(t *testing.T) {
	h := startModule(t, Hooks{OnQueryFunc: func(_ context.Context, q string) ([]Option, error) {
		switch q {
		case "fail":
			return nil, errors.New("backend down")
		case "panic":
			panic("unexpected")
		}
		return []Option{{
			Name:   "explode",
			Action: func(context.Context) (Result, error) { panic("action blew up") },
		}}, nil
	}}, nil)
	ctx := testCtx(t)

	resp, err := h.host.Query(ctx, "fail")
	require.NoError(t, err)
	assert.False(t, resp.Complete)
	assert.Empty(t, resp.Options)

	resp, err = h.host.Query(ctx, "panic")
	require.NoError(t, err)
	assert.False(t, resp.Complete)

	menu, err := h.host.Query(ctx, "")
	require.NoError(t, err)
	resp, err = h.host.ExecAction(ctx, menu.Options[0].ActionID)
	require.NoError(t, err)
	assert.False(t, resp.Complete)
	assert.Empty(t, resp.Options)
}

func TestModule_NotificationHooks(t *testing.T) {
	opened := make(chan struct{}, 1)
	saved := make(chan string, 1)
	h := startModule(t, Hooks{
		OnOpenFunc:         func(context.Context) { opened <- struct{}{} },
		SaveSuggestionFunc: func(_ context.Context, path string) { saved <- path },
	}, nil)

	require.NoError(t, h.host.OpenSpotter())
	require.NoError(t, h.host.SaveSuggestion("apps#Finder"))

	select {
	case <-opened:
	case <-time.After(testTimeout):
		t.Fatal("open hook not called")
	}
	select {
	case path := <-saved:
		assert.Equal(t, "apps#Finder", path)
	case <-time.After(testTimeout):
		t.Fatal("save suggestion hook not called")
	}

	// Neither notification is answered.
	_, err := h.host.Query(testCtx(t), "")
	require.NoError(t, err)
	assert.Len(t, h.host.Frames(), 2)
}

type queryOnly struct{}

func (queryOnly) OnQuery(context.Context, string) ([]Option, error) { return nil, nil }

func TestModule_NotificationsWithoutHooks(t *testing.T) {
	h := startModule(t, queryOnly{}, nil)

	require.NoError(t, h.host.OpenSpotter())
	require.NoError(t, h.host.SaveSuggestion("x"))

	resp, err := h.host.Query(testCtx(t), "")
	require.NoError(t, err)
	assert.NotNil(t, resp.Options)
	assert.Empty(t, resp.Options)
}

func TestModule_SendSuggestions(t *testing.T) {
	h := startModule(t, Hooks{}, nil)

	require.NoError(t, h.module.SendSuggestions(testCtx(t), "apps#Safari"))

	select {
	case s := <-h.host.Suggestions():
		assert.Equal(t, "apps#Safari", s.Path)
		assert.Equal(t, "cfg", s.ConnectionID)
	case <-time.After(testTimeout):
		t.Fatal("no suggestions received")
	}
}

func TestModule_SendWithoutConnection(t *testing.T) {
	m, err := New(Hooks{}, DefaultConfig(), WithLogger(discardLogger()))
	require.NoError(t, err)

	err = m.SendSuggestions(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestModule_ListenOnce(t *testing.T) {
	h := startModule(t, Hooks{}, nil)

	err := h.module.Listen(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyListening)
}

func TestModule_ConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	var logs bytes.Buffer
	var logsMu sync.Mutex
	logger := slog.New(slog.NewTextHandler(&lockedWriter{w: &logs, mu: &logsMu}, nil))

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.RetryAttempts = 2
	cfg.RetryDelay = 10 * time.Millisecond

	m, err := New(Hooks{}, cfg, WithLogger(logger))
	require.NoError(t, err)

	err = m.Listen(testCtx(t))
	assert.ErrorIs(t, err, ErrConnect)
	assert.False(t, m.Connected())

	logsMu.Lock()
	defer logsMu.Unlock()
	assert.Equal(t, 3, strings.Count(logs.String(), "connect failed"))
}

type lockedWriter struct {
	w  io.Writer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func TestModule_ResetOnQuery(t *testing.T) {
	opts := []Option{{
		Name:   "Act",
		Action: func(context.Context) (Result, error) { return Done(true), nil },
	}}

	t.Run("Enabled", func(t *testing.T) {
		h := startModule(t, queryReturning(opts...), func(c *Config) { c.ResetOnQuery = true })
		ctx := testCtx(t)

		first, err := h.host.Query(ctx, "")
		require.NoError(t, err)
		second, err := h.host.Query(ctx, "")
		require.NoError(t, err)

		actions, _ := h.module.Callbacks().Len()
		assert.Equal(t, 1, actions)

		short, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		_, err = h.host.ExecAction(short, first.Options[0].ActionID)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		resp, err := h.host.ExecAction(ctx, second.Options[0].ActionID)
		require.NoError(t, err)
		assert.True(t, resp.Complete)
	})

	t.Run("Disabled", func(t *testing.T) {
		h := startModule(t, queryReturning(opts...), nil)
		ctx := testCtx(t)

		first, err := h.host.Query(ctx, "")
		require.NoError(t, err)
		_, err = h.host.Query(ctx, "")
		require.NoError(t, err)

		actions, _ := h.module.Callbacks().Len()
		assert.Equal(t, 2, actions)

		resp, err := h.host.ExecAction(ctx, first.Options[0].ActionID)
		require.NoError(t, err)
		assert.True(t, resp.Complete)
	})
}

func TestModule_ConcurrentRequests(t *testing.T) {
	release := make(chan struct{})
	h := startModule(t, queryReturning(Option{
		Name: "Slow",
		Action: func(ctx context.Context) (Result, error) {
			select {
			case <-release:
				return Done(true), nil
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		},
	}), nil)
	ctx := testCtx(t)

	menu, err := h.host.Query(ctx, "")
	require.NoError(t, err)

	slow := make(chan protocol.OptionsResponse, 1)
	go func() {
		resp, err := h.host.ExecAction(ctx, menu.Options[0].ActionID)
		if err == nil {
			slow <- resp
		}
	}()

	require.Eventually(t, func() bool { return h.module.getActiveJobCount() == 1 }, testTimeout, 5*time.Millisecond)

	// A later request is answered while the earlier one is still pending.
	fast, err := h.host.Query(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Slow", fast.Options[0].Name)

	close(release)
	select {
	case resp := <-slow:
		assert.True(t, resp.Complete)
	case <-time.After(testTimeout):
		t.Fatal("slow action never answered")
	}
}

func TestModule_RequestContextEndsWithRequest(t *testing.T) {
	captured := make(chan context.Context, 1)
	h := startModule(t, queryReturning(Option{
		Name: "Capture",
		Action: func(ctx context.Context) (Result, error) {
			captured <- ctx
			return Done(true), nil
		},
	}), nil)
	ctx := testCtx(t)

	menu, err := h.host.Query(ctx, "")
	require.NoError(t, err)
	_, err = h.host.ExecAction(ctx, menu.Options[0].ActionID)
	require.NoError(t, err)

	reqCtx := <-captured
	assert.Eventually(t, func() bool { return reqCtx.Err() != nil }, testTimeout, 5*time.Millisecond)
}

func TestModule_Shutdown(t *testing.T) {
	h := startModule(t, Hooks{}, nil)

	h.module.Shutdown()
	assert.True(t, h.module.IsShutdown())

	assert.NoError(t, h.wait(t))
	assert.False(t, h.module.Connected())

	select {
	case <-h.host.Done():
	case <-time.After(testTimeout):
		t.Fatal("host connection still open")
	}
}

// holdingAction returns an option whose action signals started and then blocks until release closes.
func holdingAction(started chan<- struct{}, release <-chan struct{}) Option {
	return Option{
		Name: "Hold",
		Action: func(context.Context) (Result, error) {
			started <- struct{}{}
			<-release
			return Done(true), nil
		},
	}
}

func TestModule_ShutdownDrainsInFlight(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	h := startModule(t, queryReturning(holdingAction(started, release)), nil)
	ctx := testCtx(t)

	menu, err := h.host.Query(ctx, "")
	require.NoError(t, err)
	actionID := menu.Options[0].ActionID

	replies := make(chan protocol.OptionsResponse, 1)
	errs := make(chan error, 1)
	go func() {
		resp, err := h.host.ExecAction(ctx, actionID)
		if err != nil {
			errs <- err
			return
		}
		replies <- resp
	}()

	select {
	case <-started:
	case <-time.After(testTimeout):
		t.Fatal("action never started")
	}

	h.module.Shutdown()

	// Listen keeps the socket open while the action is still running.
	select {
	case err := <-h.errCh:
		t.Fatalf("Listen returned before the action finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case resp := <-replies:
		assert.Equal(t, protocol.ResponseTypeExecAction, resp.Kind)
		assert.True(t, resp.Complete)
	case err := <-errs:
		t.Fatalf("in-flight request got no reply: %v", err)
	case <-time.After(testTimeout):
		t.Fatal("in-flight request got no reply")
	}

	assert.NoError(t, h.wait(t))
}

func TestModule_ShutdownDrainTimeout(t *testing.T) {
	const drainTimeout = 200 * time.Millisecond

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	h := startModule(t, queryReturning(holdingAction(started, release)), func(c *Config) {
		c.DrainTimeout = drainTimeout
	})
	ctx := testCtx(t)

	menu, err := h.host.Query(ctx, "")
	require.NoError(t, err)

	go func() {
		_, _ = h.host.ExecAction(ctx, menu.Options[0].ActionID)
	}()

	select {
	case <-started:
	case <-time.After(testTimeout):
		t.Fatal("action never started")
	}

	begin := time.Now()
	h.module.Shutdown()

	assert.NoError(t, h.wait(t))
	elapsed := time.Since(begin)
	assert.GreaterOrEqual(t, elapsed, drainTimeout)
	assert.Less(t, elapsed, testTimeout)
	assert.False(t, h.module.Connected())
}

func TestModule_HostDisconnect(t *testing.T) {
	h := startModule(t, Hooks{}, nil)

	require.NoError(t, h.host.Disconnect())
	assert.NoError(t, h.wait(t))
}

func TestModule_ContextCancel(t *testing.T) {
	h := startModule(t, Hooks{}, nil)

	h.cancel()
	assert.ErrorIs(t, h.wait(t), context.Canceled)
}
