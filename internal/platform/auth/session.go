package auth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SessionState is the lifecycle of a portal session.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateOnboarding      SessionState = "onboarding"
	StateAuthenticated   SessionState = "authenticated"
)

// Profile is the patient record behind an identity, as seen by the guard.
type Profile interface {
	ProfileID() uuid.UUID
	IsOnboarded() bool
}

// ProfileLoader returns nil, nil when the account has no patient yet.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, userID string) (Profile, error)
}

type Session struct {
	State    SessionState `json:"state"`
	Identity *Identity    `json:"identity,omitempty"`
	Profile  Profile      `json:"patient,omitempty"`
}

// PatientID is uuid.Nil unless the session is authenticated.
func (s *Session) PatientID() uuid.UUID {
	if s == nil || s.State != StateAuthenticated || s.Profile == nil {
		return uuid.Nil
	}
	return s.Profile.ProfileID()
}

// Resolve computes the session for ctx with one profile lookup.
func Resolve(ctx context.Context, loader ProfileLoader) (*Session, error) {
	id := IdentityFromContext(ctx)
	if id == nil {
		return &Session{State: StateUnauthenticated}, nil
	}
	profile, err := loader.LoadProfile(ctx, id.Email)
	if err != nil {
		return nil, err
	}
	s := &Session{State: StateOnboarding, Identity: id, Profile: profile}
	if profile != nil && profile.IsOnboarded() {
		s.State = StateAuthenticated
	}
	return s, nil
}

// guardError is the body of 401/403 guard responses.
type guardError struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// LoginRedirect builds "<loginURL>?return=<path>".
func LoginRedirect(loginURL, returnPath string) string {
	u, err := url.Parse(loginURL)
	if err != nil {
		return loginURL
	}
	q := u.Query()
	q.Set("return", returnPath)
	u.RawQuery = q.Encode()
	return u.String()
}

// RequireIdentity rejects anonymous requests with a login redirect.
func RequireIdentity(loginURL string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IdentityFromContext(c.Request().Context()) == nil {
				return c.JSON(http.StatusUnauthorized, guardError{
					Error:    "authentication required",
					Redirect: LoginRedirect(loginURL, c.Request().URL.RequestURI()),
				})
			}
			return next(c)
		}
	}
}

// RequireSession admits only fully onboarded patients. Anonymous requests get
// 401 with a login redirect; accounts without a completed profile get 403
// pointing at onboarding. The resolved session is stored on the context.
func RequireSession(loader ProfileLoader, loginURL string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			s, err := Resolve(ctx, loader)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to load session")
			}
			switch s.State {
			case StateUnauthenticated:
				return c.JSON(http.StatusUnauthorized, guardError{
					Error:    "authentication required",
					Redirect: LoginRedirect(loginURL, c.Request().URL.RequestURI()),
				})
			case StateOnboarding:
				return c.JSON(http.StatusForbidden, guardError{
					Error:    "onboarding required",
					Redirect: "/onboarding",
				})
			}
			c.SetRequest(c.Request().WithContext(context.WithValue(ctx, sessionKey, s)))
			return next(c)
		}
	}
}

func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// WithSession is used by tests and background callers to attach a session.
func WithSession(ctx context.Context, s *Session) context.Context {
	if s.Identity != nil {
		ctx = WithIdentity(ctx, s.Identity)
	}
	return context.WithValue(ctx, sessionKey, s)
}

// PatientIDFromContext returns the guarded patient's id or uuid.Nil.
func PatientIDFromContext(ctx context.Context) uuid.UUID {
	return SessionFromContext(ctx).PatientID()
}

// SessionHandler serves GET /session. It reports the lifecycle state and
// never fails for a valid or absent token.
func SessionHandler(loader ProfileLoader) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := Resolve(c.Request().Context(), loader)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to load session")
		}
		return c.JSON(http.StatusOK, s)
	}
}
