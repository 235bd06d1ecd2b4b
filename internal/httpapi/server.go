package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const (
	refreshCookie = "refresh_token"
	authPrefix    = "/auth"
)

// Engine is the part of *goSession.Engine the HTTP layer calls.
type Engine interface {
	SignUp(ctx context.Context, in goSession.SignUpInput) (goSession.TokenPair, error)
	SignIn(ctx context.Context, identifier, password string) (goSession.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (goSession.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, refreshToken, oldPassword, newPassword string) error
	ValidateAccess(token string) (*goSession.AccessResult, error)
	Health(ctx context.Context) goSession.HealthStatus
}

// Policies are the per-route request budgets, counted per client IP.
type Policies struct {
	SignUp         rate.Policy
	SignIn         rate.Policy
	Refresh        rate.Policy
	ChangePassword rate.Policy
}

// DefaultPolicies returns the stock budgets.
func DefaultPolicies() Policies {
	return Policies{
		SignUp:         rate.Policy{Name: "sign_up", Requests: 1000, Window: 5 * time.Minute},
		SignIn:         rate.Policy{Name: "sign_in", Requests: 3000, Window: 5 * time.Minute},
		Refresh:        rate.Policy{Name: "refresh", Requests: 20, Window: 5 * time.Minute},
		ChangePassword: rate.Policy{Name: "change_password", Requests: 20, Window: 5 * time.Minute},
	}
}

// Config tunes the HTTP layer.
type Config struct {
	// RefreshTTL is the cookie Max-Age. It should match the engine's refresh TTL.
	RefreshTTL   time.Duration
	CookieSecure bool
	// Limiter is optional; nil disables rate limiting.
	Limiter  rate.Limiter
	Policies Policies
	// Metrics, when set, is served at GET /metrics.
	Metrics http.Handler
	Logger  zerolog.Logger
}

// Server owns the route handlers.
type Server struct {
	engine Engine
	cfg    Config
	log    zerolog.Logger
}

// New returns a Server. Zero policies fall back to DefaultPolicies.
func New(engine Engine, cfg Config) *Server {
	if cfg.Policies == (Policies{}) {
		cfg.Policies = DefaultPolicies()
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Server{engine: engine, cfg: cfg, log: cfg.Logger}
}

// Echo returns a configured echo instance with every route registered.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleHTTPError

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(goSession.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(s.accessLog)

	s.RegisterRoutes(e)
	return e
}

// RegisterRoutes registers the auth, health and metrics routes on e.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	g := e.Group(authPrefix)
	p := s.cfg.Policies

	g.POST("/sign_up", s.SignUpHandler, s.limit(p.SignUp))
	g.POST("/sign_in", s.SignInHandler, s.limit(p.SignIn))
	g.POST("/refresh", s.RefreshHandler, s.limit(p.Refresh))
	g.POST("/change_password", s.ChangePasswordHandler,
		echo.WrapMiddleware(middleware.RequireAccess(s.engine)),
		s.limit(p.ChangePassword),
	)
	g.POST("/logout", s.LogoutHandler)
	g.POST("/logout_all", s.LogoutAllHandler)

	e.GET("/healthz", s.HealthHandler)
	if s.cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.cfg.Metrics))
	}
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		s.log.Info().
			Str("request_id", goSession.RequestIDFromContext(req.Context())).
			Str("method", req.Method).
			Str("path", c.Path()).
			Int("status", c.Response().Status).
			Dur("latency", time.Since(start)).
			Msg("request")
		return nil
	}
}

func (s *Server) limit(p rate.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.cfg.Limiter == nil {
				return next(c)
			}

			d, err := s.cfg.Limiter.Allow(c.Request().Context(), p, c.RealIP())
			if err != nil {
				s.log.Warn().Err(err).Str("policy", p.Name).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}
			if !d.Allowed {
				secs := int(d.RetryAfter.Seconds())
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return writeDetail(c, http.StatusTooManyRequests, fieldError{
					Msg:  "Too many requests",
					Type: "rate_limit_exceeded",
				})
			}
			return next(c)
		}
	}
}
