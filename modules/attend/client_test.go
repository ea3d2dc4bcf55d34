package attend_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/Darlykn/ClockIn/common"
	"github.com/Darlykn/ClockIn/modules/attend"
	"github.com/Darlykn/ClockIn/modules/auth"
)

// fakeAPI is a ClockIn backend stub: any path under /api/ping is protected
// and answers 200 only for the currently valid bearer; /api/auth/refresh
// rotates the valid token after an optional delay.
type fakeAPI struct {
	mu           sync.Mutex
	validToken   string
	nextToken    string
	refreshCalls int
	refreshDelay time.Duration
	refreshFail  bool
	alwaysReject bool
	lastAuth     string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.refreshCalls++
		fail := f.refreshFail
		delay := f.refreshDelay
		next := f.nextToken
		f.mu.Unlock()

		time.Sleep(delay)
		if fail {
			http.Error(w, `{"detail":"Refresh token invalid or expired"}`, http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		f.validToken = next
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": next, "token_type": "bearer"})
	})

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		valid := "Bearer " + f.validToken
		reject := f.alwaysReject
		f.lastAuth = r.Header.Get("Authorization")
		got := f.lastAuth
		f.mu.Unlock()

		if reject || got != valid {
			http.Error(w, `{"detail":"Could not validate credentials"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path})
	})

	return mux
}

func (f *fakeAPI) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeAPI) lastAuthHeader() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

type pipelineFixture struct {
	client  attend.AttendClient
	store   common.TokenStore
	expired *int64
	server  *httptest.Server
}

func newPipelineFixture(t *testing.T, backend *fakeAPI) *pipelineFixture {
	t.Helper()
	ts := httptest.NewServer(backend.handler())
	t.Cleanup(ts.Close)

	hc := common.NewClockInHttpClient("clockin-test", &http.Client{})
	store := common.NewMemoryTokenStore()
	responses := common.NewCacheStore()
	authClient := auth.NewAuthClient(ts.URL, hc, store, responses, zerolog.Nop())

	var expired int64
	coord := auth.NewRefreshCoordinator(authClient, store, func() {
		atomic.AddInt64(&expired, 1)
	})

	client := attend.NewAttendClient(ts.URL, hc, responses, store, coord, zerolog.Nop())
	return &pipelineFixture{client: client, store: store, expired: &expired, server: ts}
}

func TestPipeline_ConcurrentBurstRefreshesOnce(t *testing.T) {
	backend := &fakeAPI{validToken: "c2", nextToken: "c2", refreshDelay: 100 * time.Millisecond}
	fx := newPipelineFixture(t, backend)

	// everyone starts with an expired token
	fx.store.Set(&oauth2.Token{AccessToken: "c1"})

	var g errgroup.Group
	for i := 0; i < 5; i++ {
		i := i
		g.Go(func() error {
			var out map[string]string
			endpoint := fmt.Sprintf("/api/ping/%d", i)
			if err := fx.client.GetJSONFresh(context.Background(), endpoint, &out, nil); err != nil {
				return err
			}
			if out["path"] != endpoint {
				return fmt.Errorf("unexpected payload: %v", out)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait(), "every request in the burst completes with the renewed token")

	assert.Equal(t, 1, backend.refreshCount(), "one refresh call for the whole burst")
	stored, ok := fx.store.Get()
	require.True(t, ok)
	assert.Equal(t, "c2", stored.AccessToken)
}

func TestPipeline_ReplayCarriesRenewedToken(t *testing.T) {
	backend := &fakeAPI{validToken: "c2", nextToken: "c2"}
	fx := newPipelineFixture(t, backend)
	fx.store.Set(&oauth2.Token{AccessToken: "c1"})

	var out map[string]string
	err := fx.client.GetJSONFresh(context.Background(), "/api/ping/me", &out, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.refreshCount())
	assert.Equal(t, "Bearer c2", backend.lastAuthHeader(),
		"the replay reads the renewed token from the store, never the stale one")
}

func TestPipeline_SecondAuthFailureIsTerminal(t *testing.T) {
	// refresh "succeeds" but the server keeps rejecting: the replayed request
	// must fail terminally instead of looping into another refresh
	backend := &fakeAPI{validToken: "c2", nextToken: "c2", alwaysReject: true}
	fx := newPipelineFixture(t, backend)
	fx.store.Set(&oauth2.Token{AccessToken: "c1"})

	var out map[string]string
	err := fx.client.GetJSONFresh(context.Background(), "/api/ping/me", &out, nil)
	require.Error(t, err)

	var httpErr *common.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.False(t, common.IsRefreshFailed(err))
	assert.Equal(t, 1, backend.refreshCount(), "no second refresh for the same logical request")
}

func TestPipeline_RefreshFailureIsTerminalForCaller(t *testing.T) {
	backend := &fakeAPI{validToken: "c2", nextToken: "c2", refreshFail: true}
	fx := newPipelineFixture(t, backend)
	fx.store.Set(&oauth2.Token{AccessToken: "c1"})

	var out map[string]string
	err := fx.client.GetJSONFresh(context.Background(), "/api/ping/me", &out, nil)
	require.Error(t, err)
	assert.True(t, common.IsRefreshFailed(err))
	assert.False(t, common.IsAuthFailure(err),
		"the refresh endpoint's 401 is absorbed into the terminal refresh error")

	assert.EqualValues(t, 1, atomic.LoadInt64(fx.expired), "session-expired signal fires once")
	_, ok := fx.store.Get()
	assert.False(t, ok, "stored token is cleared when the session is unrecoverable")
	assert.Equal(t, 1, backend.refreshCount())
}

func TestPipeline_NetworkErrorPassesThrough(t *testing.T) {
	backend := &fakeAPI{validToken: "c1", nextToken: "c1"}
	fx := newPipelineFixture(t, backend)
	fx.store.Set(&oauth2.Token{AccessToken: "c1"})
	fx.server.Close()

	var out map[string]string
	err := fx.client.GetJSONFresh(context.Background(), "/api/ping/me", &out, nil)
	require.Error(t, err)
	assert.False(t, common.IsAuthFailure(err), "transport errors are not auth failures")
	assert.False(t, common.IsRefreshFailed(err))
	assert.Equal(t, 0, backend.refreshCount(), "transport errors never reach the coordinator")
}

func TestPipeline_NonAuthStatusPassesThrough(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	hc := common.NewClockInHttpClient("clockin-test", &http.Client{})
	store := common.NewMemoryTokenStore()
	store.Set(&oauth2.Token{AccessToken: "c1"})

	refreshCalls := 0
	client := attend.NewAttendClient(ts.URL, hc, common.NewCacheStore(), store, refresherFunc(func(ctx context.Context) (*oauth2.Token, error) {
		refreshCalls++
		return nil, errors.New("must not be called")
	}), zerolog.Nop())

	_, err := client.PostJSON(context.Background(), "/api/users/", nil)
	require.Error(t, err)

	var httpErr *common.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, 0, refreshCalls, "non-401 errors never trigger a refresh")
}

// refresherFunc adapts a func to the Refresher interface.
type refresherFunc func(ctx context.Context) (*oauth2.Token, error)

func (f refresherFunc) RequestRefresh(ctx context.Context) (*oauth2.Token, error) {
	return f(ctx)
}
