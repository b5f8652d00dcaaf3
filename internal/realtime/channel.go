package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/cart"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/metrics"
)

// EventCartUpdated is the only event the channel recognizes; everything else
// is ignored so newer backends can add events without breaking old clients.
const EventCartUpdated = "cart_updated"

// Status describes the channel's connection state. The channel itself never
// returns errors: every failure degrades to "no live updates".
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusOpen         Status = "open"
	StatusRetrying     Status = "closed_retrying"
	StatusClosed       Status = "closed_permanently"
	StatusNoCredential Status = "no_credential"
)

// Conn is one established push socket. Close(true) must use the normal
// closure code so the peer can tell intentional shutdown from failure.
type Conn interface {
	ReadMessage() ([]byte, error)
	Close(normal bool) error
}

// Dialer opens push sockets. Production uses the websocket dialer from
// transport.go; tests inject fakes.
type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

// TokenSource supplies the bearer credential sent in the connect URL.
type TokenSource interface {
	Token() (string, error)
}

// ResyncFunc fetches a fresh cart snapshot. It runs after every successful
// (re)open to cover events missed while the channel was down.
type ResyncFunc func(ctx context.Context) (*cart.Snapshot, error)

type Config struct {
	BaseURL     string // ws://host, without path
	MaxAttempts int
	RetryDelay  time.Duration
	OnStatus    func(Status)
}

type Deps struct {
	Dialer Dialer
	Tokens TokenSource
	Store  *cart.Store
	Resync ResyncFunc
	Logger *zap.Logger
}

// Channel maintains the server-to-client cart push connection. One channel
// per consumer; lifecycle is Connect once, Close once. After Close the
// channel is spent and a new one must be constructed.
type Channel struct {
	cfg    Config
	dialer Dialer
	tokens TokenSource
	store  *cart.Store
	resync ResyncFunc
	logger *zap.Logger

	group singleflight.Group

	mu      sync.Mutex
	state   Status
	attempt int
	conn    Conn
	closed  bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(cfg Config, deps Deps) *Channel {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 3 * time.Second
	}
	return &Channel{
		cfg:    cfg,
		dialer: deps.Dialer,
		tokens: deps.Tokens,
		store:  deps.Store,
		resync: deps.Resync,
		logger: deps.Logger,
		stopCh: make(chan struct{}),
	}
}

// Connect opens the channel for one user. Idempotent: a connecting or open
// channel is left alone. Missing credential is not an error — the channel is
// a best-effort enhancement — but it is observable through OnStatus.
func (c *Channel) Connect(ctx context.Context, userID int64) {
	c.mu.Lock()
	if c.closed || c.state == StatusConnecting || c.state == StatusOpen {
		c.mu.Unlock()
		return
	}

	token, err := c.tokens.Token()
	if err != nil {
		c.state = StatusNoCredential
		c.mu.Unlock()
		c.logger.Info("Realtime channel skipped: no stored credential")
		c.notify(StatusNoCredential)
		return
	}

	c.state = StatusConnecting
	c.mu.Unlock()
	c.notify(StatusConnecting)

	c.wg.Add(1)
	go c.run(ctx, userID, token)
}

// Close tears the channel down with a normal closure, resets the retry
// budget and guarantees that no reconnect fires afterwards. Idempotent.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.attempt = 0
	c.state = StatusClosed
	conn := c.conn
	c.mu.Unlock()

	close(c.stopCh)
	if conn != nil {
		if err := conn.Close(true); err != nil {
			c.logger.Debug("Error closing realtime socket", zap.Error(err))
		}
	}
	c.wg.Wait()
	c.notify(StatusClosed)
}

// Status reports the current connection state.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) run(ctx context.Context, userID int64, token string) {
	defer c.wg.Done()

	for {
		rawURL := fmt.Sprintf("%s/ws/cart?userId=%d&token=%s", c.cfg.BaseURL, userID, url.QueryEscape(token))

		conn, err := c.dialer.Dial(ctx, rawURL)
		if err != nil {
			c.logger.Warn("Realtime channel dial failed", zap.Error(err))
			if !c.scheduleRetry(ctx) {
				return
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close(true)
			return
		}
		c.conn = conn
		c.attempt = 0
		c.state = StatusOpen
		c.mu.Unlock()

		metrics.ChannelOpensTotal.Inc()
		c.logger.Info("Realtime channel open", zap.Int64("userID", userID))
		c.notify(StatusOpen)

		c.resyncCart(ctx)
		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		if !c.scheduleRetry(ctx) {
			return
		}
	}
}

// scheduleRetry reports whether another dial should happen. Dial failures and
// mid-connection drops funnel through here identically.
func (c *Channel) scheduleRetry(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if c.attempt >= c.cfg.MaxAttempts {
		// Budget exhausted: the channel is spent, a later Connect must not
		// dial again with no budget left.
		c.closed = true
		c.state = StatusClosed
		c.mu.Unlock()
		c.logger.Warn("Realtime channel giving up", zap.Int("attempts", c.cfg.MaxAttempts))
		c.notify(StatusClosed)
		return false
	}
	c.attempt++
	attempt := c.attempt
	c.state = StatusRetrying
	c.mu.Unlock()

	metrics.ChannelReconnectsTotal.Inc()
	c.logger.Info("Realtime channel reconnecting",
		zap.Int("attempt", attempt),
		zap.Int("maxAttempts", c.cfg.MaxAttempts),
		zap.Duration("delay", c.cfg.RetryDelay),
	)
	c.notify(StatusRetrying)

	timer := time.NewTimer(c.cfg.RetryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-c.stopCh:
		// Close() owns the terminal transition and notification.
		return false
	case <-ctx.Done():
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return false
		}
		c.closed = true
		c.state = StatusClosed
		c.mu.Unlock()
		c.logger.Info("Realtime channel stopped: context cancelled")
		c.notify(StatusClosed)
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.state = StatusConnecting
	c.mu.Unlock()
	c.notify(StatusConnecting)
	return true
}

func (c *Channel) readLoop(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			// Clean closes and transport errors are treated identically.
			c.logger.Info("Realtime channel dropped", zap.Error(err))
			return
		}
		c.handleMessage(data)
	}
}

type envelope struct {
	Event string         `json:"event"`
	Cart  *cart.Snapshot `json:"cart"`
}

func (c *Channel) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.EventsIgnoredTotal.WithLabelValues("malformed").Inc()
		c.logger.Warn("Dropping malformed realtime payload", zap.Error(err))
		return
	}

	if env.Event != EventCartUpdated {
		metrics.EventsIgnoredTotal.WithLabelValues("unknown_event").Inc()
		c.logger.Info("Ignoring unrecognized realtime event", zap.String("event", env.Event))
		return
	}

	if env.Cart == nil {
		metrics.EventsIgnoredTotal.WithLabelValues("empty_payload").Inc()
		c.logger.Warn("cart_updated event without cart payload")
		return
	}

	c.store.Replace(*env.Cart)
	metrics.CartUpdatesAppliedTotal.Inc()
}

// resyncCart covers the gap between the last delivered snapshot and the
// reopen. Deduplicated so overlapping reopens issue a single fetch.
func (c *Channel) resyncCart(ctx context.Context) {
	if c.resync == nil {
		return
	}
	_, err, _ := c.group.Do("cart", func() (any, error) {
		snapshot, err := c.resync(ctx)
		if err != nil {
			return nil, err
		}
		c.store.Replace(*snapshot)
		return nil, nil
	})
	if err != nil {
		// Best effort: the next pushed snapshot is a full replacement anyway.
		c.logger.Warn("Cart resync after reconnect failed", zap.Error(err))
	}
}

func (c *Channel) notify(status Status) {
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(status)
	}
}
