package gate

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestGate(t *testing.T, cfg Config) *Gate {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	v, err := NewCredentialValidator(testSecret(), true, log)
	require.NoError(t, err)
	g := New(cfg, v, log, nil)
	t.Cleanup(g.Stop)
	return g
}

func TestCheckOrdering(t *testing.T) {
	t.Run("ban check wins over everything, even a correct credential", func(t *testing.T) {
		g := newTestGate(t, Config{})
		g.bans.Ban("9.9.9.9", time.Hour)

		assert.Equal(t, OutcomeBanned, g.Check("9.9.9.9", testSecret()))
	})

	t.Run("banned requests touch no counters", func(t *testing.T) {
		g := newTestGate(t, Config{})
		g.bans.Ban("9.9.9.9", time.Hour)

		g.Check("9.9.9.9", "wrong")
		g.Check("9.9.9.9", "wrong")

		_, ok := g.rates.Peek("9.9.9.9")
		assert.False(t, ok, "rate counter must not move for banned clients")
		_, ok = g.failures.Peek("9.9.9.9")
		assert.False(t, ok, "failure counter must not move for banned clients")
	})

	t.Run("rate check precedes credential check", func(t *testing.T) {
		g := newTestGate(t, Config{MaxRequestsPerMinute: 1})

		assert.Equal(t, OutcomeAllow, g.Check("1.2.3.4", testSecret()))
		// Over the ceiling now; the valid key no longer helps.
		assert.Equal(t, OutcomeRateLimited, g.Check("1.2.3.4", testSecret()))
	})

	t.Run("missing credential yields rather than rejects", func(t *testing.T) {
		g := newTestGate(t, Config{})
		assert.Equal(t, OutcomeNoCredential, g.Check("1.2.3.4", ""))
	})
}

func TestRateLimiting(t *testing.T) {
	t.Run("request N+1 within a window is rate limited", func(t *testing.T) {
		const limit = 30
		g := newTestGate(t, Config{MaxRequestsPerMinute: limit})

		for i := 0; i < limit; i++ {
			assert.Equal(t, OutcomeNoCredential, g.Check("1.2.3.4", ""), "request %d should pass", i+1)
		}
		assert.Equal(t, OutcomeRateLimited, g.Check("1.2.3.4", ""))
		assert.Equal(t, OutcomeRateLimited, g.Check("1.2.3.4", ""))
	})

	t.Run("rejected requests still consume the counter", func(t *testing.T) {
		g := newTestGate(t, Config{MaxRequestsPerMinute: 2})

		g.Check("1.2.3.4", "")
		g.Check("1.2.3.4", "")
		g.Check("1.2.3.4", "")

		n, ok := g.rates.Peek("1.2.3.4")
		require.True(t, ok)
		assert.Equal(t, 3, n, "over-limit requests must also increment")
	})

	t.Run("a fresh window is unaffected", func(t *testing.T) {
		g := newTestGate(t, Config{MaxRequestsPerMinute: 2})

		now := time.Now()
		g.rates.now = func() time.Time { return now }

		g.Check("1.2.3.4", "")
		g.Check("1.2.3.4", "")
		require.Equal(t, OutcomeRateLimited, g.Check("1.2.3.4", ""))

		now = now.Add(61 * time.Second)
		assert.Equal(t, OutcomeNoCredential, g.Check("1.2.3.4", ""))
	})

	t.Run("identities are limited independently", func(t *testing.T) {
		g := newTestGate(t, Config{MaxRequestsPerMinute: 1})

		g.Check("1.2.3.4", "")
		require.Equal(t, OutcomeRateLimited, g.Check("1.2.3.4", ""))

		assert.Equal(t, OutcomeNoCredential, g.Check("5.6.7.8", ""))
	})
}

func TestFailedAttemptsAndBans(t *testing.T) {
	t.Run("exactly maxFailedAttempts wrong keys trigger a ban", func(t *testing.T) {
		const maxAttempts = 5
		g := newTestGate(t, Config{MaxFailedAttempts: maxAttempts, MaxRequestsPerMinute: 100})

		for i := 0; i < maxAttempts; i++ {
			assert.Equal(t, OutcomeUnauthenticated, g.Check("9.9.9.9", "wrong-key"))
		}

		// Banned now, even with the correct key.
		assert.Equal(t, OutcomeBanned, g.Check("9.9.9.9", testSecret()))
	})

	t.Run("one attempt below the threshold does not ban", func(t *testing.T) {
		g := newTestGate(t, Config{MaxFailedAttempts: 5, MaxRequestsPerMinute: 100})

		for i := 0; i < 4; i++ {
			g.Check("9.9.9.9", "wrong-key")
		}
		assert.Equal(t, OutcomeAllow, g.Check("9.9.9.9", testSecret()))
	})

	t.Run("a successful match clears the failed streak", func(t *testing.T) {
		g := newTestGate(t, Config{MaxFailedAttempts: 3, MaxRequestsPerMinute: 100})

		g.Check("9.9.9.9", "wrong-key")
		g.Check("9.9.9.9", "wrong-key")
		require.Equal(t, OutcomeAllow, g.Check("9.9.9.9", testSecret()))

		// A full new streak is required to trigger a ban.
		g.Check("9.9.9.9", "wrong-key")
		g.Check("9.9.9.9", "wrong-key")
		assert.Equal(t, OutcomeAllow, g.Check("9.9.9.9", testSecret()))
		g.Check("9.9.9.9", "wrong-key")
		g.Check("9.9.9.9", "wrong-key")
		g.Check("9.9.9.9", "wrong-key")
		assert.Equal(t, OutcomeBanned, g.Check("9.9.9.9", testSecret()))
	})

	t.Run("ban expiry restores access for a correct credential", func(t *testing.T) {
		g := newTestGate(t, Config{
			MaxFailedAttempts:    2,
			MaxRequestsPerMinute: 100,
			BlockDuration:        30 * time.Minute,
		})

		now := time.Now()
		g.bans.now = func() time.Time { return now }
		g.failures.now = func() time.Time { return now }

		g.Check("9.9.9.9", "wrong-key")
		g.Check("9.9.9.9", "wrong-key")
		require.Equal(t, OutcomeBanned, g.Check("9.9.9.9", testSecret()))

		now = now.Add(31 * time.Minute)
		assert.Equal(t, OutcomeAllow, g.Check("9.9.9.9", testSecret()))
	})

	t.Run("K simultaneous wrong keys count exactly K with no ban below threshold", func(t *testing.T) {
		const k = 4
		g := newTestGate(t, Config{MaxFailedAttempts: 5, MaxRequestsPerMinute: 1000})

		var start sync.WaitGroup
		start.Add(1)
		var wg sync.WaitGroup
		for i := 0; i < k; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				start.Wait()
				g.Check("9.9.9.9", "wrong-key")
			}()
		}
		start.Done()
		wg.Wait()

		n, ok := g.failures.Peek("9.9.9.9")
		require.True(t, ok)
		assert.Equal(t, k, n, "no increments may be lost")
		assert.False(t, g.bans.IsBanned("9.9.9.9"))
	})
}

func newGateRouter(g *Gate) *gin.Engine {
	r := gin.New()
	r.Use(g.Middleware())
	handler := func(c *gin.Context) {
		principal := c.GetString(ContextPrincipal)
		c.JSON(http.StatusOK, gin.H{"principal": principal})
	}
	r.POST("/api/v1/alerts", handler)
	r.GET("/api/v1/alerts", handler)
	r.GET("/api/v1/cameras", handler)
	return r
}

func doRequest(r *gin.Engine, method, path, ip, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":41234"
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	t.Run("correct key passes and attaches the service principal", func(t *testing.T) {
		g := newTestGate(t, Config{})
		r := newGateRouter(g)

		w := doRequest(r, http.MethodPost, "/api/v1/alerts", "1.2.3.4", testSecret())
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), ServicePrincipal)
	})

	t.Run("missing key falls through to the handler", func(t *testing.T) {
		g := newTestGate(t, Config{})
		r := newGateRouter(g)

		w := doRequest(r, http.MethodGet, "/api/v1/alerts", "1.2.3.4", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), ServicePrincipal)
	})

	t.Run("wrong key gets 401", func(t *testing.T) {
		g := newTestGate(t, Config{})
		r := newGateRouter(g)

		w := doRequest(r, http.MethodPost, "/api/v1/alerts", "1.2.3.4", "wrong-key")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid API key")
	})

	t.Run("31st request in a minute gets 429 with error and message", func(t *testing.T) {
		g := newTestGate(t, Config{MaxRequestsPerMinute: 30})
		r := newGateRouter(g)

		for i := 0; i < 30; i++ {
			w := doRequest(r, http.MethodGet, "/api/v1/alerts", "1.2.3.4", "")
			require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		}

		w := doRequest(r, http.MethodGet, "/api/v1/alerts", "1.2.3.4", "")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "Too Many Requests")
		assert.Contains(t, w.Body.String(), "Rate limit exceeded")
	})

	t.Run("banned client is rejected even with the correct key", func(t *testing.T) {
		g := newTestGate(t, Config{MaxFailedAttempts: 5, MaxRequestsPerMinute: 100})
		r := newGateRouter(g)

		for i := 0; i < 5; i++ {
			w := doRequest(r, http.MethodPost, "/api/v1/alerts", "9.9.9.9", "wrong-key")
			require.Equal(t, http.StatusUnauthorized, w.Code)
		}

		w := doRequest(r, http.MethodPost, "/api/v1/alerts", "9.9.9.9", testSecret())
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "temporarily blocked")
	})

	t.Run("paths outside the scope bypass the gate", func(t *testing.T) {
		g := newTestGate(t, Config{MaxRequestsPerMinute: 1})
		r := newGateRouter(g)

		for i := 0; i < 10; i++ {
			w := doRequest(r, http.MethodGet, "/api/v1/cameras", "1.2.3.4", "")
			assert.Equal(t, http.StatusOK, w.Code)
		}
		_, ok := g.rates.Peek("1.2.3.4")
		assert.False(t, ok, "out-of-scope requests must not touch the stores")
	})

	t.Run("identity follows X-Forwarded-For", func(t *testing.T) {
		g := newTestGate(t, Config{MaxRequestsPerMinute: 1})
		r := newGateRouter(g)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
		req.RemoteAddr = "10.0.0.1:555"
		req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.6.7")
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		n, ok := g.rates.Peek("1.2.3.4")
		require.True(t, ok)
		assert.Equal(t, 1, n)
	})
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "allow", OutcomeAllow.String())
	assert.Equal(t, "no_credential", OutcomeNoCredential.String())
	assert.Equal(t, "rate_limited", OutcomeRateLimited.String())
	assert.Equal(t, "banned", OutcomeBanned.String())
	assert.Equal(t, "unauthenticated", OutcomeUnauthenticated.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30, cfg.MaxRequestsPerMinute)
	assert.Equal(t, time.Minute, cfg.RateWindow)
	assert.Equal(t, 5, cfg.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.FailedAttemptTTL)
	assert.Equal(t, 30*time.Minute, cfg.BlockDuration)
	assert.Equal(t, []string{"/api/v1/alerts"}, cfg.PathPrefixes)
}
