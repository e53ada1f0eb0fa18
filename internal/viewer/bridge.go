package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"greenlens/internal/domain"
	"greenlens/internal/port"
)

// Command types sent down to the browser viewer.
const (
	CmdLoad      = "load"
	CmdJump      = "jump"
	CmdHighlight = "highlight"
	CmdSurface   = "surface"
)

// Signal types sent up by the browser viewer.
const (
	SignalLoaded = "loaded"
	SignalReady  = "ready"
)

const writeWait = 10 * time.Second

// Command is one instruction for the remote viewer.
type Command struct {
	Type  string   `json:"type"`
	URL   string   `json:"url,omitempty"`
	Page  *int     `json:"page,omitempty"`
	Texts []string `json:"texts,omitempty"`
}

// Signal is one notification from the remote viewer.
type Signal struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type client struct {
	conn   *websocket.Conn
	layout domain.Layout

	writeMu sync.Mutex
	loaded  chan struct{}
	ready   chan struct{}
	done    chan struct{}
}

func (c *client) send(cmd Command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(cmd)
}

// Bridge drives a browser-hosted document viewer over a websocket. Only the
// most recently attached client is driven; an older one is disconnected.
// The last load and highlight commands are replayed to late joiners.
type Bridge struct {
	readyTimeout time.Duration
	logger       *slog.Logger

	mu            sync.Mutex
	current       *client
	attached      chan struct{}
	lastLoad      *Command
	lastHighlight *Command
}

var _ port.DocumentViewer = (*Bridge)(nil)

// NewBridge creates a Bridge. readyTimeout bounds each wait for a viewer
// signal; zero means wait as long as ctx allows.
func NewBridge(readyTimeout time.Duration, logger *slog.Logger) *Bridge {
	return &Bridge{
		readyTimeout: readyTimeout,
		logger:       logger,
		attached:     make(chan struct{}),
	}
}

// Attached reports whether a viewer is currently connected.
func (b *Bridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current != nil
}

// Serve attaches conn as the active viewer and blocks reading its signals
// until the connection fails or is replaced.
func (b *Bridge) Serve(conn *websocket.Conn, layout domain.Layout) {
	c := &client{
		conn:   conn,
		layout: layout,
		loaded: make(chan struct{}, 1),
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	prev := b.current
	if prev == nil {
		close(b.attached)
	}
	b.current = c
	replay := make([]Command, 0, 2)
	if b.lastLoad != nil {
		replay = append(replay, *b.lastLoad)
	}
	if b.lastHighlight != nil {
		replay = append(replay, *b.lastHighlight)
	}
	b.mu.Unlock()

	if prev != nil {
		b.logger.Info("viewer replaced by newer client")
		_ = prev.conn.Close()
	}
	b.logger.Info("viewer attached", "layout", layout)

	for _, cmd := range replay {
		if err := c.send(cmd); err != nil {
			b.logger.Warn("replaying viewer command failed", "type", cmd.Type, "error", err)
		}
	}

	defer b.detach(c)
	for {
		var sig Signal
		if err := conn.ReadJSON(&sig); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Warn("viewer read error", "error", err)
			}
			return
		}
		switch sig.Type {
		case SignalLoaded:
			notify(c.loaded)
		case SignalReady:
			notify(c.ready)
		default:
			b.logger.Debug("ignoring viewer signal", "type", sig.Type, "message", sig.Message)
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

func (b *Bridge) detach(c *client) {
	close(c.done)
	_ = c.conn.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == c {
		b.current = nil
		b.attached = make(chan struct{})
		b.logger.Info("viewer detached")
	}
}

// waitClient waits until a viewer is attached or ctx ends.
func (b *Bridge) waitClient(ctx context.Context) (*client, error) {
	for {
		b.mu.Lock()
		c, attached := b.current, b.attached
		b.mu.Unlock()
		if c != nil {
			return c, nil
		}
		select {
		case <-attached:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrViewerDetached, ctx.Err())
		}
	}
}

// await blocks until sig fires on c, c goes away, ctx ends or the ready timeout elapses.
func (b *Bridge) await(ctx context.Context, c *client, sig chan struct{}, name string) error {
	var timeout <-chan time.Time
	if b.readyTimeout > 0 {
		t := time.NewTimer(b.readyTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-sig:
		return nil
	case <-c.done:
		return domain.ErrViewerDetached
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("viewer did not signal %s within %s", name, b.readyTimeout)
	}
}

// Load sends the document URL and waits for the viewer's loaded signal.
func (b *Bridge) Load(ctx context.Context, url string) error {
	cmd := Command{Type: CmdLoad, URL: url}
	b.mu.Lock()
	b.lastLoad = &cmd
	b.lastHighlight = nil
	b.mu.Unlock()

	c, err := b.waitClient(ctx)
	if err != nil {
		return err
	}
	drain(c.loaded)
	if err := c.send(cmd); err != nil {
		return fmt.Errorf("sending load: %w", err)
	}
	return b.await(ctx, c, c.loaded, SignalLoaded)
}

// Highlight sends the search strings to highlight.
func (b *Bridge) Highlight(ctx context.Context, texts []string) error {
	cmd := Command{Type: CmdHighlight, Texts: texts}
	b.mu.Lock()
	b.lastHighlight = &cmd
	b.mu.Unlock()

	c, err := b.waitClient(ctx)
	if err != nil {
		return err
	}
	if err := c.send(cmd); err != nil {
		return fmt.Errorf("sending highlight: %w", err)
	}
	return nil
}

// JumpToPage navigates to a 0-based page index. Range checking is left to the viewer.
func (b *Bridge) JumpToPage(ctx context.Context, index int) error {
	c, err := b.waitClient(ctx)
	if err != nil {
		return err
	}
	if err := c.send(Command{Type: CmdJump, Page: &index}); err != nil {
		return fmt.Errorf("sending jump: %w", err)
	}
	return nil
}

// Surface asks a hidden viewer to show itself and waits for its ready signal.
func (b *Bridge) Surface(ctx context.Context) error {
	c, err := b.waitClient(ctx)
	if err != nil {
		return err
	}
	drain(c.ready)
	if err := c.send(Command{Type: CmdSurface}); err != nil {
		return fmt.Errorf("sending surface: %w", err)
	}
	return b.await(ctx, c, c.ready, SignalReady)
}

// Layout returns the layout declared by the attached viewer, or wide when none is attached.
func (b *Bridge) Layout() domain.Layout {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return domain.LayoutWide
	}
	return b.current.layout
}
