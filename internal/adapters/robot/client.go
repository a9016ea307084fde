package robot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/athena-robotics/workcell-go/internal/adapters/metrics"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

const (
	defaultRetryInterval  = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultRateLimit      = 8.0

	// reconnectMaxDelay caps the growing delay between reconnect
	// attempts; jitterFraction spreads simultaneous reconnects.
	reconnectMaxDelay = 60 * time.Second
	backoffFactor     = 2.0
	jitterFraction    = 0.2
)

// Config holds the connection parameters for one robot link
type Config struct {
	// ID is the robot identifier, e.g. "robot_a"
	ID string

	// Address is the rosbridge endpoint as host:port
	Address string

	// RetryInterval is the delay before the first reconnect attempt.
	// Subsequent attempts back off exponentially up to a fixed cap.
	RetryInterval time.Duration

	// MaxRetryAttempts bounds connect attempts; zero means unlimited
	MaxRetryAttempts int

	// RequestTimeout is the per-call reply deadline when the caller
	// does not override it
	RequestTimeout time.Duration

	// RateLimit is the maximum outbound requests per second
	RateLimit float64
}

func (c *Config) applyDefaults() {
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetryInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaultRateLimit
	}
}

type serviceResponse struct {
	result bool
	values map[string]any
}

// Client is one WebSocket JSON-RPC link to a robot. A single reader
// goroutine owns the read side and demultiplexes replies onto waiters
// installed by Call; writes are serialized under the client mutex.
type Client struct {
	cfg     Config
	logger  *zap.Logger
	limiter *rate.Limiter

	mu           sync.Mutex
	conn         *websocket.Conn
	connected    bool
	reconnecting bool
	inflight     map[string]chan serviceResponse
	latest       map[string]map[string]any
	subs         map[string]request
	seq          uint64
	sessions     int

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a Client; call Connect before issuing requests
func NewClient(cfg Config, logger *zap.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:      cfg,
		logger:   logger.Named("robot").With(zap.String("robot_id", cfg.ID)),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		inflight: make(map[string]chan serviceResponse),
		latest:   make(map[string]map[string]any),
		subs:     make(map[string]request),
		done:     make(chan struct{}),
	}
}

// ID returns the robot identifier
func (c *Client) ID() string {
	return c.cfg.ID
}

// Connected reports whether the link is currently up
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect establishes the link, retrying per the configured policy.
// Returns the last dial error once the retry budget is exhausted.
func (c *Client) Connect(ctx context.Context) error {
	delay := c.cfg.RetryInterval
	attempts := 0

	for {
		err := c.dial(ctx)
		if err == nil {
			return nil
		}

		attempts++
		if c.cfg.MaxRetryAttempts > 0 && attempts >= c.cfg.MaxRetryAttempts {
			return fmt.Errorf("robot %s: connect failed after %d attempts: %w", c.cfg.ID, attempts, err)
		}

		c.logger.Warn("connect failed, retrying",
			zap.Error(err),
			zap.Duration("delay", delay),
			zap.Int("attempt", attempts),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return errors.New("client closed")
		case <-time.After(jitter(delay)):
		}
		delay = nextDelay(delay)
	}
}

// dial performs one connection attempt: DNS resolution, TCP dial and
// WebSocket upgrade, each failure reported distinctly.
func (c *Client) dial(ctx context.Context) error {
	host, _, err := net.SplitHostPort(c.cfg.Address)
	if err != nil {
		return fmt.Errorf("robot %s: bad address %q: %w", c.cfg.ID, c.cfg.Address, err)
	}
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return fmt.Errorf("robot %s: dns resolution failed for %s: %w", c.cfg.ID, host, err)
		}
	}

	endpoint := url.URL{Scheme: "ws", Host: c.cfg.Address}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) {
			return fmt.Errorf("robot %s: websocket handshake failed: %w", c.cfg.ID, err)
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return fmt.Errorf("robot %s: connection refused at %s: %w", c.cfg.ID, c.cfg.Address, err)
		}
		return fmt.Errorf("robot %s: dial failed: %w", c.cfg.ID, err)
	}

	c.mu.Lock()
	if c.connected && c.conn != nil {
		// another path won the dial race; keep the live session
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.connected = true
	c.sessions++
	resumed := c.sessions > 1
	for _, sub := range c.subs {
		if err := conn.WriteJSON(sub); err != nil {
			c.logger.Warn("resubscribe failed", zap.String("topic", sub.Topic), zap.Error(err))
		}
	}
	c.mu.Unlock()

	metrics.SetRobotConnected(c.cfg.ID, true)
	if resumed {
		metrics.RecordReconnect(c.cfg.ID)
	}
	go c.readPump(conn)
	c.logger.Info("connected", zap.String("address", c.cfg.Address))
	return nil
}

// Close shuts the link down and fails all outstanding waiters
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.conn = nil
		}
		c.connected = false
		c.failWaitersLocked()
		c.mu.Unlock()
	})
}

// Call sends one service request and waits for the correlated reply.
// On result:false the error is a RemoteCallError; no reply within the
// timeout is a PrimitiveTimeoutError; a down link that a single
// synchronous reconnect cannot restore is a RobotDisconnectedError.
func (c *Client) Call(ctx context.Context, service, action string, args map[string]any, timeout time.Duration) (map[string]any, error) {
	if timeout <= 0 {
		timeout = c.cfg.RequestTimeout
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if !c.Connected() {
		if err := c.redialOnce(ctx); err != nil {
			return nil, shared.NewRobotDisconnectedError(c.cfg.ID)
		}
	}

	merged := make(map[string]any, len(args)+1)
	merged["action"] = action
	for k, v := range args {
		merged[k] = v
	}

	waiter := make(chan serviceResponse, 1)

	c.mu.Lock()
	if !c.connected || c.conn == nil {
		c.mu.Unlock()
		return nil, shared.NewRobotDisconnectedError(c.cfg.ID)
	}
	c.seq++
	id := fmt.Sprintf("%s:%s:%d", opCallService, service, c.seq)
	c.inflight[id] = waiter
	err := c.conn.WriteJSON(request{Op: opCallService, ID: id, Service: service, Args: merged})
	c.mu.Unlock()
	if err != nil {
		c.removeWaiter(id)
		return nil, shared.NewRobotDisconnectedError(c.cfg.ID)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-waiter:
		if !ok {
			return nil, shared.NewRobotDisconnectedError(c.cfg.ID)
		}
		if !resp.result {
			return nil, shared.NewRemoteCallError(c.cfg.ID, action, remoteDetail(resp.values))
		}
		return resp.values, nil
	case <-timer.C:
		c.removeWaiter(id)
		return nil, shared.NewPrimitiveTimeoutError(c.cfg.ID, action, timeout)
	case <-ctx.Done():
		c.removeWaiter(id)
		return nil, ctx.Err()
	}
}

// SubscribeTopic registers a topic subscription. If the link is down
// the frame is sent on the next successful connect.
func (c *Client) SubscribeTopic(topic, msgType string, throttleRate, queueLength int) error {
	sub := request{
		Op:           opSubscribe,
		ID:           opSubscribe + ":" + topic,
		Topic:        topic,
		Type:         msgType,
		ThrottleRate: throttleRate,
		QueueLength:  queueLength,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[topic] = sub
	if c.connected && c.conn != nil {
		return c.conn.WriteJSON(sub)
	}
	return nil
}

// UnsubscribeTopic drops a subscription and its cached message
func (c *Client) UnsubscribeTopic(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, topic)
	delete(c.latest, topic)
	if c.connected && c.conn != nil {
		return c.conn.WriteJSON(request{Op: opUnsubscribe, ID: opUnsubscribe + ":" + topic, Topic: topic})
	}
	return nil
}

// TopicMessage returns the last message received on a subscribed topic
func (c *Client) TopicMessage(topic string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.latest[topic]
	return msg, ok
}

// readPump is the sole reader of conn. It dispatches service replies
// to their waiters and caches published topic messages. On any read
// error it tears the session down and starts the background reconnect.
func (c *Client) readPump(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		switch env.Op {
		case opServiceResponse:
			c.mu.Lock()
			waiter, ok := c.inflight[env.ID]
			if ok {
				delete(c.inflight, env.ID)
			}
			c.mu.Unlock()
			if !ok {
				c.logger.Warn("dropping reply with no waiter", zap.String("id", env.ID))
				continue
			}
			waiter <- serviceResponse{result: env.Result, values: env.Values}

		case opPublish:
			c.mu.Lock()
			c.latest[env.Topic] = env.Msg
			c.mu.Unlock()

		default:
			c.logger.Debug("ignoring frame", zap.String("op", env.Op))
		}
	}
}

// handleDisconnect marks the session down, fails every outstanding
// waiter and kicks off a single background reconnect loop.
func (c *Client) handleDisconnect(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// a stale pump from a session already replaced
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connected = false
	c.failWaitersLocked()
	_ = conn.Close()

	select {
	case <-c.done:
		c.mu.Unlock()
		return
	default:
	}

	startLoop := !c.reconnecting
	c.reconnecting = startLoop
	c.mu.Unlock()

	metrics.SetRobotConnected(c.cfg.ID, false)
	c.logger.Warn("link lost", zap.Error(err))
	if startLoop {
		go c.reconnectLoop()
	}
}

// reconnectLoop retries the dial with growing jittered delays until
// the link is back, the retry budget runs out or the client closes.
func (c *Client) reconnectLoop() {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	delay := c.cfg.RetryInterval
	attempts := 0

	for {
		select {
		case <-c.done:
			return
		case <-time.After(jitter(delay)):
		}

		if err := c.dial(context.Background()); err != nil {
			attempts++
			if c.cfg.MaxRetryAttempts > 0 && attempts >= c.cfg.MaxRetryAttempts {
				c.logger.Error("reconnect budget exhausted", zap.Int("attempts", attempts), zap.Error(err))
				return
			}
			c.logger.Warn("reconnect failed",
				zap.Error(err),
				zap.Duration("next_delay", nextDelay(delay)),
				zap.Int("attempt", attempts),
			)
			delay = nextDelay(delay)
			continue
		}
		return
	}
}

// redialOnce makes the single synchronous reconnect attempt the call
// path is allowed. When a background reconnect is already running the
// call does not compete with it and reports the link as down.
func (c *Client) redialOnce(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	if c.reconnecting {
		c.mu.Unlock()
		return errors.New("reconnect in progress")
	}
	c.reconnecting = true
	c.mu.Unlock()

	err := c.dial(ctx)

	c.mu.Lock()
	c.reconnecting = false
	if err != nil && !c.connected {
		select {
		case <-c.done:
		default:
			// keep a background loop working on the link
			c.reconnecting = true
			go c.reconnectLoop()
		}
	}
	c.mu.Unlock()
	return err
}

func (c *Client) removeWaiter(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

// failWaitersLocked closes every in-flight waiter so blocked callers
// observe the disconnect. Caller holds c.mu.
func (c *Client) failWaitersLocked() {
	for id, waiter := range c.inflight {
		close(waiter)
		delete(c.inflight, id)
	}
}

func remoteDetail(values map[string]any) string {
	if values == nil {
		return ""
	}
	if msg, ok := values["message"].(string); ok {
		return msg
	}
	return ""
}

// nextDelay doubles the delay up to the cap
func nextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * backoffFactor)
	if next > reconnectMaxDelay {
		return reconnectMaxDelay
	}
	return next
}

// jitter perturbs d by up to ±jitterFraction
func jitter(d time.Duration) time.Duration {
	delta := float64(d) * jitterFraction
	offset := (rand.Float64()*2 - 1) * delta
	return time.Duration(float64(d) + offset)
}
