package gate

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sentry-vision/management-server/pkg/apiresponses"
	"github.com/sentry-vision/management-server/pkg/audit"
	"github.com/sentry-vision/management-server/pkg/metrics"
)

const (
	// APIKeyHeader carries the AI-engine credential.
	APIKeyHeader = "X-API-Key"

	// ContextPrincipal and ContextRole are the gin context keys an Allow
	// outcome populates for downstream authorization.
	ContextPrincipal = "principal"
	ContextRole      = "role"

	// ServicePrincipal and RoleAIService identify the single service
	// identity this credential scheme authenticates.
	ServicePrincipal = "ai-service"
	RoleAIService    = "AI_SERVICE"
)

// Outcome is the terminal result of one pass through the decision
// pipeline. Exactly one outcome is produced per request.
type Outcome int

const (
	// OutcomeAllow means the credential matched; a service principal is
	// attached to the request.
	OutcomeAllow Outcome = iota
	// OutcomeNoCredential means no credential was presented; the gate
	// yields to the next authentication mechanism.
	OutcomeNoCredential
	// OutcomeRateLimited means the per-client request ceiling was hit.
	OutcomeRateLimited
	// OutcomeBanned means the client carries a live temporary ban.
	OutcomeBanned
	// OutcomeUnauthenticated means a credential was presented and did not
	// match.
	OutcomeUnauthenticated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeNoCredential:
		return "no_credential"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeBanned:
		return "banned"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Config holds the gate's limits and scope. Zero values are replaced with
// the defaults the original deployment shipped with.
type Config struct {
	// MaxRequestsPerMinute is the per-client request ceiling within one
	// rate window.
	MaxRequestsPerMinute int
	// RateWindow is the length of the fixed rate-counting window.
	RateWindow time.Duration
	// MaxFailedAttempts is the invalid-credential streak that triggers a
	// ban.
	MaxFailedAttempts int
	// FailedAttemptTTL is how long a failed-attempt streak is remembered.
	FailedAttemptTTL time.Duration
	// BlockDuration is how long a triggered ban lasts.
	BlockDuration time.Duration
	// PathPrefixes restricts the gate to matching request paths. Requests
	// outside the scope bypass the pipeline entirely.
	PathPrefixes []string
}

// DefaultConfig returns the limits of the original deployment: 30 requests
// per minute, 5 failed attempts within 15 minutes, 30 minute bans, scoped
// to the alert ingestion API.
func DefaultConfig() Config {
	return Config{
		MaxRequestsPerMinute: 30,
		RateWindow:           time.Minute,
		MaxFailedAttempts:    5,
		FailedAttemptTTL:     15 * time.Minute,
		BlockDuration:        30 * time.Minute,
		PathPrefixes:         []string{"/api/v1/alerts"},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRequestsPerMinute <= 0 {
		c.MaxRequestsPerMinute = d.MaxRequestsPerMinute
	}
	if c.RateWindow <= 0 {
		c.RateWindow = d.RateWindow
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = d.MaxFailedAttempts
	}
	if c.FailedAttemptTTL <= 0 {
		c.FailedAttemptTTL = d.FailedAttemptTTL
	}
	if c.BlockDuration <= 0 {
		c.BlockDuration = d.BlockDuration
	}
	if len(c.PathPrefixes) == 0 {
		c.PathPrefixes = d.PathPrefixes
	}
	return c
}

// Gate runs the ordered decision pipeline: ban check, rate check,
// credential check. All of its state is in-memory and per-instance;
// horizontal scaling multiplies the limits per replica.
//
// The pipeline has no failure path of its own: every step is a synchronous
// in-memory lookup, and the surrounding recovery middleware turns a panic
// into a rejection, never an allow.
type Gate struct {
	cfg       Config
	validator *CredentialValidator

	rates    *ExpiringCounterStore
	failures *ExpiringCounterStore
	bans     *BanList

	log      *zap.SugaredLogger
	recorder audit.Recorder
}

// New constructs a gate with its own stores. Call Stop during shutdown.
func New(cfg Config, validator *CredentialValidator, log *zap.SugaredLogger, recorder audit.Recorder) *Gate {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Gate{
		cfg:       cfg.withDefaults(),
		validator: validator,
		rates:     NewExpiringCounterStore(DefaultMaxEntries, defaultSweepInterval),
		failures:  NewExpiringCounterStore(DefaultMaxEntries, defaultSweepInterval),
		bans:      NewBanList(defaultSweepInterval),
		log:       log,
		recorder:  recorder,
	}
}

// Stop stops the store janitors.
func (g *Gate) Stop() {
	g.rates.Stop()
	g.failures.Stop()
	g.bans.Stop()
}

// Check runs the pipeline once for the given client identity and presented
// credential and returns the terminal outcome. Checks are strictly
// ordered; each one short-circuits.
func (g *Gate) Check(identity, presentedKey string) Outcome {
	// 1. Ban check. Banned clients touch no counters: probing while
	// banned must not teach the attacker anything about window resets.
	if g.bans.IsBanned(identity) {
		return OutcomeBanned
	}

	// 2. Rate check. Every request increments, including ones rejected
	// below, so an attacker cannot probe around a window reset for free.
	count := g.rates.IncrementAndGet(identity, g.cfg.RateWindow)
	if count > g.cfg.MaxRequestsPerMinute {
		return OutcomeRateLimited
	}

	// 3. Credential check. Absence is a yield, not a rejection: this gate
	// owns exactly one credential scheme and defers otherwise.
	if presentedKey == "" {
		return OutcomeNoCredential
	}

	if g.validator.Matches(presentedKey) {
		g.failures.Invalidate(identity)
		return OutcomeAllow
	}

	attempts := g.failures.IncrementAndGet(identity, g.cfg.FailedAttemptTTL)
	metrics.GateFailedAttempts.Inc()
	g.log.Warnw("SECURITY: invalid API key attempt",
		"attempt", attempts,
		"client_ip", identity)

	if attempts >= g.cfg.MaxFailedAttempts {
		g.bans.Ban(identity, g.cfg.BlockDuration)
		metrics.GateBansIssued.Inc()
		g.log.Errorw("SECURITY: client banned after repeated invalid API key attempts",
			"client_ip", identity,
			"attempts", attempts,
			"block_duration", g.cfg.BlockDuration)
		g.recorder.Record(audit.NewEvent(audit.EventIPBanned, audit.SeverityCritical).
			WithSource(identity).
			WithDetail("attempts", strconv.Itoa(attempts)).
			WithDetail("block_duration", g.cfg.BlockDuration.String()))
	}

	return OutcomeUnauthenticated
}

// InScope reports whether the gate applies to the given request path.
func (g *Gate) InScope(path string) bool {
	for _, prefix := range g.cfg.PathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware returns a Gin middleware running the pipeline on every
// request within the gate's path scope. Out-of-scope requests pass through
// untouched.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.InScope(c.Request.URL.Path) {
			c.Next()
			return
		}

		identity := ClientIdentity(c.Request)
		outcome := g.Check(identity, c.GetHeader(APIKeyHeader))
		metrics.GateDecisions.WithLabelValues(outcome.String()).Inc()

		switch outcome {
		case OutcomeBanned:
			g.log.Warnw("SECURITY: banned client attempted access",
				"client_ip", identity,
				"path", c.Request.URL.Path)
			apiresponses.RespondTooManyRequests(c, "IP address is temporarily blocked due to too many failed attempts")
			c.Abort()

		case OutcomeRateLimited:
			g.log.Warnw("SECURITY: rate limit exceeded",
				"client_ip", identity,
				"path", c.Request.URL.Path)
			g.recorder.Record(audit.NewEvent(audit.EventRateLimited, audit.SeverityWarning).
				WithSource(identity).
				WithPath(c.Request.URL.Path))
			apiresponses.RespondTooManyRequests(c, "Rate limit exceeded. Try again later.")
			c.Abort()

		case OutcomeUnauthenticated:
			g.recorder.Record(audit.NewEvent(audit.EventKeyInvalid, audit.SeverityWarning).
				WithSource(identity).
				WithPath(c.Request.URL.Path))
			apiresponses.RespondUnauthorizedWithMessage(c, "invalid API key")
			c.Abort()

		case OutcomeAllow:
			c.Set(ContextPrincipal, ServicePrincipal)
			c.Set(ContextRole, RoleAIService)
			g.log.Debugw("API key authentication successful",
				"client_ip", identity,
				"path", c.Request.URL.Path)
			c.Next()

		default: // OutcomeNoCredential: defer to session auth downstream.
			c.Next()
		}
	}
}
