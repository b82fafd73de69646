package authsdk

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type profile struct {
	Name string `json:"name"`
}

func TestSend_AttachesBearerAndJSONHeaders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /items", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		ok(w, map[string]string{"name": "widget"})
	})

	client, store := newTestClient(t, newTestServer(t, mux))
	require.NoError(t, store.SetToken(ctx, "tok-1"))

	env := Post[profile](ctx, client, "/items", map[string]string{"name": "widget"})
	require.True(t, env.Success)
	require.Equal(t, "widget", env.Data.Name)
}

func TestSend_NoBearerWithoutToken(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /public", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		ok(w, "hello")
	})

	client, _ := newTestClient(t, newTestServer(t, mux))

	env := Get[string](context.Background(), client, "/public")
	require.True(t, env.Success)
	require.Equal(t, "hello", env.Data)
}

func TestSend_SendsCookies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /set", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refresh", Value: "abc", Path: "/", HttpOnly: true})
		ok(w, nil)
	})
	mux.HandleFunc("GET /echo", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("refresh")
		if err != nil {
			unauthorized(w, "no cookie")
			return
		}
		ok(w, c.Value)
	})

	client, _ := newTestClient(t, newTestServer(t, mux))

	require.True(t, Get[any](ctx, client, "/set").Success)

	env := Get[string](ctx, client, "/echo")
	require.True(t, env.Success)
	require.Equal(t, "abc", env.Data)
}

func TestSend_Timeout(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(150 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		ok(w, "done")
	})
	srv := newTestServer(t, mux)

	t.Run("hang shorter than timeout succeeds", func(t *testing.T) {
		client, _ := newTestClient(t, srv, WithTimeout(time.Second))
		env := Get[string](context.Background(), client, "/slow")
		require.True(t, env.Success)
		require.Equal(t, "done", env.Data)
	})

	t.Run("hang longer than timeout fails", func(t *testing.T) {
		client, _ := newTestClient(t, srv, WithTimeout(30*time.Millisecond))
		env := Get[string](context.Background(), client, "/slow")
		require.False(t, env.Success)
		require.Equal(t, MsgTimeout, env.Message)
	})
}

func TestSend_ProtocolFailures(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>oops</html>"))
	})
	mux.HandleFunc("GET /broken", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": tr`))
	})
	mux.HandleFunc("GET /shape", func(w http.ResponseWriter, r *http.Request) {
		ok(w, []int{1, 2, 3})
	})

	client, _ := newTestClient(t, newTestServer(t, mux))

	for _, endpoint := range []string{"/html", "/broken", "/shape"} {
		t.Run(endpoint, func(t *testing.T) {
			env := Get[profile](context.Background(), client, endpoint)
			require.False(t, env.Success)
			require.Equal(t, MsgInvalidResponse, env.Message)
		})
	}
}

func TestSend_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, http.NewServeMux())
	client, _ := newTestClient(t, srv)
	srv.Close()

	env := Get[string](context.Background(), client, "/anything")
	require.False(t, env.Success)
	require.True(t, strings.HasPrefix(env.Message, MsgNetwork), env.Message)
}

func TestSend_UnencodableBody(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, newTestServer(t, http.NewServeMux()))

	env := Post[string](context.Background(), client, "/items", map[string]any{"c": make(chan int)})
	require.False(t, env.Success)
	require.True(t, strings.HasPrefix(env.Message, MsgEncodeRequest), env.Message)
}

func TestSend_ServerFailurePassesThrough(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/register", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "validation failed",
			"errors":  []map[string]string{{"field": "UserName", "message": "taken"}},
		})
	})

	client, _ := newTestClient(t, newTestServer(t, mux))

	env := client.Register(context.Background(), RegisterRequest{UserName: "joe"})
	require.False(t, env.Success)
	require.Equal(t, "validation failed", env.Message)
	require.Equal(t, map[string]string{"userName": "taken"}, env.FieldErrors())
}

// refreshAPI serves /user/me, which only accepts the token minted by
// /auth/refresh-token, and counts the calls it receives.
type refreshAPI struct {
	meCalls      atomic.Int32
	refreshCalls atomic.Int32

	// refreshOK controls whether the refresh endpoint issues a token.
	refreshOK bool
	// alwaysReject makes /user/me reject every token.
	alwaysReject bool
	// beforeRefresh runs at the start of every refresh call.
	beforeRefresh func()
}

func (a *refreshAPI) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/me", func(w http.ResponseWriter, r *http.Request) {
		a.meCalls.Add(1)
		if a.alwaysReject || r.Header.Get("Authorization") != "Bearer fresh" {
			unauthorized(w, "token expired")
			return
		}
		ok(w, map[string]string{"name": "Joe"})
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		a.refreshCalls.Add(1)
		if a.beforeRefresh != nil {
			a.beforeRefresh()
		}
		if r.Header.Get("Authorization") != "" {
			unauthorized(w, "refresh must not carry a bearer token")
			return
		}
		if !a.refreshOK {
			unauthorized(w, "refresh token expired")
			return
		}
		ok(w, "fresh")
	})
	return mux
}

func TestSend_RefreshAndRetry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	api := &refreshAPI{refreshOK: true}
	client, store := newTestClient(t, newTestServer(t, api.mux()))
	require.NoError(t, store.SetToken(ctx, "stale"))

	env := Get[profile](ctx, client, "/user/me")
	require.True(t, env.Success)
	require.Equal(t, "Joe", env.Data.Name)

	require.EqualValues(t, 2, api.meCalls.Load())
	require.EqualValues(t, 1, api.refreshCalls.Load())

	tok, err := store.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "fresh", tok)
}

func TestSend_RefreshFailureReturnsOriginal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	api := &refreshAPI{refreshOK: false}
	client, store := newTestClient(t, newTestServer(t, api.mux()))
	require.NoError(t, store.SetToken(ctx, "stale"))

	env := Get[profile](ctx, client, "/user/me")
	require.False(t, env.Success)
	require.Equal(t, "token expired", env.Message)

	require.EqualValues(t, 1, api.meCalls.Load())
	require.EqualValues(t, 1, api.refreshCalls.Load())

	tok, err := store.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "stale", tok)
}

func TestSend_RetriesOnlyOnce(t *testing.T) {
	t.Parallel()

	api := &refreshAPI{refreshOK: true, alwaysReject: true}
	client, _ := newTestClient(t, newTestServer(t, api.mux()))

	env := Get[profile](context.Background(), client, "/user/me")
	require.False(t, env.Success)
	require.Equal(t, "token expired", env.Message)

	require.EqualValues(t, 2, api.meCalls.Load())
	require.EqualValues(t, 1, api.refreshCalls.Load())
}

func TestSend_RefreshEndpointNeverRefreshes(t *testing.T) {
	t.Parallel()

	api := &refreshAPI{refreshOK: false}
	client, _ := newTestClient(t, newTestServer(t, api.mux()))

	env := Post[string](context.Background(), client, RefreshEndpoint, nil)
	require.False(t, env.Success)
	require.EqualValues(t, 1, api.refreshCalls.Load())
}

func TestSend_AuthEndpointsNeverRefresh(t *testing.T) {
	t.Parallel()

	api := &refreshAPI{refreshOK: true}
	mux := api.mux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		unauthorized(w, "invalid username or password")
	})

	client, store := newTestClient(t, newTestServer(t, mux))

	env := client.Login(context.Background(), LoginRequest{UserName: "joe", Password: "wrong"})
	require.False(t, env.Success)
	require.Equal(t, "invalid username or password", env.Message)
	require.Zero(t, api.refreshCalls.Load())

	tok, err := store.Token(context.Background())
	require.NoError(t, err)
	require.Empty(t, tok)
}

func TestSend_NonUnauthorizedFailureDoesNotRefresh(t *testing.T) {
	t.Parallel()

	api := &refreshAPI{refreshOK: true}
	mux := api.mux()
	mux.HandleFunc("GET /forbidden", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusForbidden, map[string]any{"success": false, "message": "nope"})
	})

	client, _ := newTestClient(t, newTestServer(t, mux))

	env := Get[any](context.Background(), client, "/forbidden")
	require.False(t, env.Success)
	require.Equal(t, "nope", env.Message)
	require.Zero(t, api.refreshCalls.Load())
}

// concurrentExpiry fires n requests that all hold an expired token and
// returns how many refresh calls they caused.
func concurrentExpiry(t *testing.T, n int, opts ...Option) int32 {
	t.Helper()
	ctx := context.Background()

	api := &refreshAPI{refreshOK: true}
	api.beforeRefresh = func() {
		// Hold the first refresh until every request has seen its 401, then
		// give the callers time to reach Refresh.
		deadline := time.Now().Add(5 * time.Second)
		for api.meCalls.Load() < int32(n) && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		time.Sleep(100 * time.Millisecond)
	}

	client, store := newTestClient(t, newTestServer(t, api.mux()), opts...)
	require.NoError(t, store.SetToken(ctx, "stale"))

	var wg sync.WaitGroup
	results := make([]Envelope[profile], n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Get[profile](ctx, client, "/user/me")
		}(i)
	}
	wg.Wait()

	for _, env := range results {
		require.True(t, env.Success, env.Message)
	}
	return api.refreshCalls.Load()
}

func TestSend_ConcurrentRefreshes(t *testing.T) {
	t.Parallel()

	t.Run("independent by default", func(t *testing.T) {
		t.Parallel()
		require.EqualValues(t, 4, concurrentExpiry(t, 4))
	})

	t.Run("coalesced", func(t *testing.T) {
		t.Parallel()
		require.EqualValues(t, 1, concurrentExpiry(t, 4, WithRefreshCoalescing()))
	})
}

func TestRefresh_Limiter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	api := &refreshAPI{refreshOK: true}
	client, _ := newTestClient(t, newTestServer(t, api.mux()),
		WithRefreshLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))

	first := client.Refresh(ctx)
	require.True(t, first.Success)
	require.Equal(t, "fresh", first.Data)

	second := client.Refresh(ctx)
	require.False(t, second.Success)
	require.Equal(t, MsgRefreshThrottled, second.Message)
	require.EqualValues(t, 1, api.refreshCalls.Load())
}

func TestRefresh_SuccessWithoutToken(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		ok(w, nil)
	})
	client, _ := newTestClient(t, newTestServer(t, mux))

	env := client.Refresh(context.Background())
	require.False(t, env.Success)
	require.Equal(t, MsgRefreshFailed, env.Message)
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	api := &refreshAPI{refreshOK: true}
	client, store := newTestClient(t, newTestServer(t, api.mux()), WithMetrics(metrics))
	require.NoError(t, store.SetToken(ctx, "stale"))

	require.True(t, Get[profile](ctx, client, "/user/me").Success)

	// 401, refresh, retry.
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.Requests.WithLabelValues(OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues(OutcomeFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Refreshes.WithLabelValues(RefreshSucceeded)))

	count, err := testutil.GatherAndCount(reg, "authclient_request_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
