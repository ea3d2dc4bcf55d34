package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/Darlykn/ClockIn/common"
)

// RefreshInvoker performs one call to the refresh endpoint using ambient
// session state (the refresh cookie held by the transport's jar). AuthClient
// satisfies it.
type RefreshInvoker interface {
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

type refreshResult struct {
	token *oauth2.Token
	err   error
}

// RefreshCoordinator guarantees at most one in-flight refresh per client
// session. The first caller that finds the coordinator idle performs the
// refresh; every caller that arrives while it is in flight is queued and
// receives that same outcome. On success the new token is stored before the
// queue drains; on failure the store is cleared, the session-expired callback
// fires exactly once for the burst, and every waiter gets a RefreshError.
//
// The coordinator is constructed once per session and passed by handle to the
// request pipeline; it exclusively owns its queue.
type RefreshCoordinator struct {
	invoker        RefreshInvoker
	tokens         common.TokenStore
	sessionExpired func()
	log            zerolog.Logger

	refreshTimeout time.Duration // 0 = rely on the transport timeout
	queueLimit     int           // 0 = unbounded

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

// CoordinatorOption configures a RefreshCoordinator.
type CoordinatorOption func(*RefreshCoordinator)

// WithRefreshTimeout caps a single refresh call with a context deadline.
func WithRefreshTimeout(d time.Duration) CoordinatorOption {
	return func(c *RefreshCoordinator) { c.refreshTimeout = d }
}

// WithQueueLimit bounds the number of callers that may wait on one refresh
// attempt. Overflowing callers are rejected immediately with a RefreshError
// rather than queued.
func WithQueueLimit(n int) CoordinatorOption {
	return func(c *RefreshCoordinator) { c.queueLimit = n }
}

// WithLogger sets the coordinator's logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) CoordinatorOption {
	return func(c *RefreshCoordinator) { c.log = log }
}

// NewRefreshCoordinator wires the refresh invoker, the token store and the
// session-expired callback. sessionExpired may be nil.
func NewRefreshCoordinator(invoker RefreshInvoker, tokens common.TokenStore, sessionExpired func(), opts ...CoordinatorOption) *RefreshCoordinator {
	c := &RefreshCoordinator{
		invoker:        invoker,
		tokens:         tokens,
		sessionExpired: sessionExpired,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errQueueFull rejects waiters beyond the configured queue limit.
var errQueueFull = errors.New("refresh waiter queue is full")

// RequestRefresh returns a fresh access token, performing at most one call to
// the refresh endpoint no matter how many callers need it concurrently.
// A caller that joins an in-flight refresh commits to its outcome; ctx only
// governs the refresh call made by the initiating caller.
func (c *RefreshCoordinator) RequestRefresh(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	if c.refreshing {
		if c.queueLimit > 0 && len(c.waiters) >= c.queueLimit {
			c.mu.Unlock()
			c.log.Warn().Int("limit", c.queueLimit).Msg("refresh queue full, rejecting waiter")
			return nil, &common.RefreshError{Err: errQueueFull}
		}
		ch := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		res := <-ch
		return res.token, res.err
	}
	// The Idle -> Refreshing transition happens under the lock, before any
	// blocking call, so two callers can never both see Idle.
	c.refreshing = true
	c.mu.Unlock()

	c.log.Debug().Msg("starting token refresh")
	token, err := c.doRefresh(ctx)

	// The store write happens while the coordinator is still Refreshing: a
	// burst that starts after this one's Clear/Set can never have its token
	// overwritten by it.
	if err != nil {
		refreshErr := &common.RefreshError{Err: err}
		c.tokens.Clear()
		// Once per burst, not once per waiter.
		if c.sessionExpired != nil {
			c.sessionExpired()
		}
		waiters := c.finish()
		c.log.Warn().Err(err).Int("waiters", len(waiters)).Msg("token refresh failed, session expired")
		for _, ch := range waiters {
			ch <- refreshResult{err: refreshErr}
		}
		return nil, refreshErr
	}

	c.tokens.Set(token)
	waiters := c.finish()
	c.log.Debug().Int("waiters", len(waiters)).Msg("token refresh succeeded")
	// Waiters drain in arrival order.
	for _, ch := range waiters {
		ch <- refreshResult{token: token}
	}
	return token, nil
}

// finish publishes the Refreshing -> Idle transition and takes ownership of
// the queue that accumulated during the attempt.
func (c *RefreshCoordinator) finish() []chan refreshResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	return waiters
}

// Pending reports how many callers are currently queued on an in-flight refresh.
func (c *RefreshCoordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *RefreshCoordinator) doRefresh(ctx context.Context) (*oauth2.Token, error) {
	if c.refreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.refreshTimeout)
		defer cancel()
	}
	return c.invoker.Refresh(ctx)
}
