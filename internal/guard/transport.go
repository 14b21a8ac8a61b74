package guard

// Package guard wraps outbound authenticated calls. A 401 or 403 response to
// a request that carried a credential is authoritative proof the server-side
// session is gone, whatever the cause; the guard forces the local session
// down and notifies, then hands the original response back untouched.
// Unauthenticated calls (sign-in attempts) and transport-level failures pass
// through and never end the session.

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/target/sessionkit/internal/events"
	"github.com/target/sessionkit/internal/observability/statsd"
)

// SessionTerminator forces the session back to the logged-out state.
// Implemented by session.Manager.
type SessionTerminator interface {
	ForceLogout(ctx context.Context, reason string)
}

// Publisher broadcasts process-wide notifications. Implemented by events.Bus.
type Publisher interface {
	Publish(ev events.Event)
}

// SessionEndedReason is the human-readable reason attached to forced logouts.
const SessionEndedReason = "your session has ended, please sign in again"

// Transport is an http.RoundTripper that observes responses for authoritative
// session loss. It never swallows or rewrites the response.
type Transport struct {
	// Base is the wrapped transport. Nil falls back to http.DefaultTransport.
	Base http.RoundTripper

	// Sessions is assigned during bootstrap once the manager exists;
	// responses observed before that pass through unguarded.
	Sessions SessionTerminator

	Bus     Publisher
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// RoundTrip issues the request exactly as given and inspects the response
// status. Only an authoritative server response to a credentialed request
// triggers the forced logout; a rejected sign-in attempt or a request that
// produced no response at all is returned as-is.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil || resp == nil {
		return resp, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// A request without a credential cannot prove session loss; a 401
		// on a login attempt is just a rejected login.
		if req.Header.Get("Authorization") != "" {
			t.terminate(req, resp.StatusCode)
		}
	}
	return resp, nil
}

func (t *Transport) terminate(req *http.Request, status int) {
	t.logger().Info("authoritative session loss detected",
		slog.Int("status", status),
		slog.String("path", req.URL.Path))

	if t.Sessions != nil {
		t.Sessions.ForceLogout(req.Context(), SessionEndedReason)
	}
	if t.Bus != nil {
		t.Bus.Publish(events.Event{Topic: events.TopicSessionEnded, Reason: SessionEndedReason})
	}
	if t.Metrics != nil {
		t.Metrics.Count("guard.session_terminated", 1, map[string]string{
			"status": strconv.Itoa(status),
		})
	}
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}
