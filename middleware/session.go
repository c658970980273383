package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/conduit/core/cookie"
	"github.com/dmitrymomot/conduit/core/pipeline"
	"github.com/dmitrymomot/conduit/core/session"
)

// DefaultSessionCookie is the cookie name carrying the session id.
const DefaultSessionCookie = "conduit_sid"

// sessionContextKey is used as a key for storing session state in the
// request context.
type sessionContextKey struct{}

// ErrNoSession is returned by the session helpers when the session
// middleware did not run for this request.
var ErrNoSession = errors.New("middleware: no session on context")

// SessionConfig configures the session middleware.
type SessionConfig[Data any] struct {
	// Store is the session persistence backend (required).
	Store session.Store[Data]
	// CookieName overrides the session cookie name (default: DefaultSessionCookie)
	CookieName string
	// CookieOptions customize the emitted session cookie.
	CookieOptions []func(*http.Cookie)
	// Cookie optionally signs the session cookie through a cookie.Manager.
	// Tampered ids fail verification and are treated as absent.
	Cookie *cookie.Manager
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx *pipeline.Context) bool
	// IDGenerator overrides session id generation (default: session.GenerateID)
	IDGenerator func() (string, error)
	// Logger reports store failures (default: discard)
	Logger *slog.Logger
}

// sessionState is the mutable per-request session record shared between
// the middleware and the package helpers.
type sessionState[Data any] struct {
	sess      session.Session[Data]
	store     session.Store[Data]
	hadCookie bool
	destroyed bool
}

// Session creates a session middleware backed by store with default
// configuration.
func Session[Data any](store session.Store[Data]) pipeline.Handler {
	return SessionWithConfig(SessionConfig[Data]{Store: store})
}

// SessionWithConfig creates a session middleware with custom configuration.
//
// On each request it resolves the session id from the decoded cookies (or
// the raw Cookie header when the Cookies middleware did not run), loads the
// session from the store, and attaches it to the context. An unknown or
// expired id, or a store read failure, degrades to a fresh empty session so
// the site stays usable. The session cookie is emitted just before response
// headers are flushed, and the session is persisted once the downstream
// chain completes; persist failures are logged, never surfaced into the
// already-delivered response.
func SessionWithConfig[Data any](cfg SessionConfig[Data]) pipeline.Handler {
	if cfg.Store == nil {
		panic("middleware: session store is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = session.GenerateID
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		if cfg.Skip != nil && cfg.Skip(ctx) {
			next(nil)
			return
		}

		state := &sessionState[Data]{store: cfg.Store}

		id, hadCookie := sessionID(ctx, cfg.CookieName)
		if hadCookie && cfg.Cookie != nil {
			verified, err := cfg.Cookie.Verify(id)
			if err != nil {
				hadCookie = false
			} else {
				id = verified
			}
		}
		state.hadCookie = hadCookie

		resolved := false
		if hadCookie {
			sess, err := cfg.Store.Get(ctx, id)
			switch {
			case err == nil:
				state.sess = sess
				resolved = true
			case errors.Is(err, session.ErrNotFound):
				// Unknown or expired id, fall through to a fresh session.
			default:
				cfg.Logger.ErrorContext(ctx, "session load failed, starting fresh",
					slog.String("error", err.Error()))
			}
		}

		if !resolved {
			newID, err := cfg.IDGenerator()
			if err != nil {
				next(err)
				return
			}
			sess, err := session.New[Data]()
			if err != nil {
				next(err)
				return
			}
			sess.ID = newID
			state.sess = sess
		}

		ctx.SetValue(sessionContextKey{}, state)

		// Emit the cookie at the last moment before headers flush, so a
		// regenerate or destroy later in the chain is still reflected.
		ctx.Response().OnBeforeWriteHeader(func() {
			writeSessionCookie(ctx, cfg, state)
		})

		next(nil)

		// Downstream has completed; persist unless explicitly destroyed.
		// The request context may already be cancelled here (client gone,
		// deadline fired), and mutations made during the request must
		// still reach the store.
		if state.destroyed {
			return
		}
		persistCtx := context.WithoutCancel(ctx)
		if err := cfg.Store.Set(persistCtx, state.sess.ID, state.sess); err != nil {
			cfg.Logger.ErrorContext(persistCtx, "session persist failed",
				slog.String("session_id", state.sess.ID),
				slog.String("error", err.Error()))
		}
	})
}

// sessionID resolves the incoming session id, preferring the map attached
// by the Cookies middleware and falling back to the raw header.
func sessionID(ctx *pipeline.Context, name string) (string, bool) {
	if cookies, ok := CookiesFromContext(ctx); ok {
		id, found := cookies[name]
		return id, found && id != ""
	}
	if c, err := ctx.Request().Cookie(name); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

func writeSessionCookie[Data any](ctx *pipeline.Context, cfg SessionConfig[Data], state *sessionState[Data]) {
	if state.destroyed {
		if state.hadCookie {
			http.SetCookie(ctx.Response(), &http.Cookie{
				Name:     cfg.CookieName,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		return
	}

	value := state.sess.ID
	if cfg.Cookie != nil {
		value = cfg.Cookie.Sign(value)
	}

	c := &http.Cookie{
		Name:     cfg.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	for _, opt := range cfg.CookieOptions {
		opt(c)
	}
	http.SetCookie(ctx.Response(), c)
}

// GetSession returns the session attached to the context by the session
// middleware.
func GetSession[Data any](ctx *pipeline.Context) (session.Session[Data], error) {
	state, ok := ctx.Value(sessionContextKey{}).(*sessionState[Data])
	if !ok {
		return session.Session[Data]{}, ErrNoSession
	}
	return state.sess, nil
}

// SetSessionData replaces the session's data payload. The change is
// persisted when the response completes.
func SetSessionData[Data any](ctx *pipeline.Context, data Data) error {
	state, ok := ctx.Value(sessionContextKey{}).(*sessionState[Data])
	if !ok {
		return ErrNoSession
	}
	state.sess.Data = data
	return nil
}

// GetStore returns the session store attached to the context.
func GetStore[Data any](ctx *pipeline.Context) (session.Store[Data], error) {
	state, ok := ctx.Value(sessionContextKey{}).(*sessionState[Data])
	if !ok {
		return nil, ErrNoSession
	}
	return state.store, nil
}

// RegenerateSession swaps the current session id for a fresh one and
// destroys the old store entry, defeating session fixation. When preserve
// is true the data payload carries over to the new session; otherwise the
// new session starts empty. Returns the new session.
func RegenerateSession[Data any](ctx *pipeline.Context, preserve bool) (session.Session[Data], error) {
	state, ok := ctx.Value(sessionContextKey{}).(*sessionState[Data])
	if !ok {
		return session.Session[Data]{}, ErrNoSession
	}

	fresh, err := session.New[Data]()
	if err != nil {
		return session.Session[Data]{}, err
	}
	if preserve {
		fresh.Data = state.sess.Data
	}

	if err := state.store.Destroy(ctx, state.sess.ID); err != nil {
		return session.Session[Data]{}, err
	}

	state.sess = fresh
	state.destroyed = false
	return fresh, nil
}

// DestroySession removes the session from the store and suppresses both
// the cookie and the end-of-request persist. The client receives an
// expired cookie if it sent one.
func DestroySession[Data any](ctx *pipeline.Context) error {
	state, ok := ctx.Value(sessionContextKey{}).(*sessionState[Data])
	if !ok {
		return ErrNoSession
	}

	if err := state.store.Destroy(ctx, state.sess.ID); err != nil {
		return err
	}
	state.destroyed = true
	return nil
}
