package loopback

// Package loopback is the production window adapter: it opens the
// authorization URL in the system browser and receives the provider's
// hand-back on a loopback HTTP listener. The listener plays the child
// context's message channel; each received callback becomes one AuthMessage
// stamped with the origin it arrived from.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/target/sessionkit/internal/ports"
)

const defaultAddr = "127.0.0.1:53682"

// OpenerOptions groups construction parameters for Opener.
type OpenerOptions struct {
	// Addr is the loopback address to listen on. Must agree with the
	// redirect URL registered at the provider.
	Addr string

	// OpenBrowser launches the user's browser. Defaults to the platform
	// opener. A launch failure reports the window as blocked.
	OpenBrowser func(url string) error

	Logger *slog.Logger
}

// Opener implements ports.WindowOpener over a loopback listener.
type Opener struct {
	addr        string
	openBrowser func(url string) error
	logger      *slog.Logger
}

var _ ports.WindowOpener = (*Opener)(nil)

// NewOpener constructs an Opener.
func NewOpener(opts OpenerOptions) *Opener {
	addr := opts.Addr
	if addr == "" {
		addr = defaultAddr
	}
	open := opts.OpenBrowser
	if open == nil {
		open = openBrowser
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{addr: addr, openBrowser: open, logger: logger}
}

// Open starts the listener and launches the browser. Failure to do either is
// reported as a blocked window, before any message can be received.
func (o *Opener) Open(_ context.Context, authURL string) (ports.Window, error) {
	ln, err := net.Listen("tcp", o.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen on %s: %v", ports.ErrWindowBlocked, o.addr, err)
	}

	w := &window{
		messages: make(chan ports.AuthMessage, 4),
		logger:   o.logger,
	}
	w.server = &http.Server{
		Handler:           http.HandlerFunc(w.handleCallback),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if serveErr := w.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			o.logger.Warn("loopback listener stopped", slog.String("error", serveErr.Error()))
		}
		w.markClosed()
	}()

	if err := o.openBrowser(authURL); err != nil {
		w.Close()
		return nil, fmt.Errorf("%w: launch browser: %v", ports.ErrWindowBlocked, err)
	}
	return w, nil
}

type window struct {
	server   *http.Server
	messages chan ports.AuthMessage
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

var _ ports.Window = (*window)(nil)

func (w *window) Messages() <-chan ports.AuthMessage { return w.messages }

func (w *window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *window) Close() {
	w.once.Do(func() {
		// Mark closed first so in-flight handlers stop posting, then drain
		// the server and close the channel under the same lock discipline.
		w.markClosed()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := w.server.Shutdown(ctx); err != nil {
			w.logger.Debug("loopback shutdown failed", slog.String("error", err.Error()))
		}

		w.mu.Lock()
		close(w.messages)
		w.mu.Unlock()
	})
}

func (w *window) markClosed() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

// handleCallback turns one provider redirect into one message. The origin is
// taken from the Origin header when the hand-back is a cross-origin POST,
// otherwise from the address the request actually arrived on.
func (w *window) handleCallback(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "http://" + r.Host
	}

	msg := ports.AuthMessage{
		Origin:  origin,
		Type:    r.Form.Get("type"),
		Token:   r.Form.Get("token"),
		State:   r.Form.Get("state"),
		Message: r.Form.Get("message"),
	}
	if msg.Type == "" {
		// Provider error redirects carry error/error_description instead.
		if errCode := r.Form.Get("error"); errCode != "" {
			msg.Type = ports.MessageTypeError
			msg.Message = r.Form.Get("error_description")
			if msg.Message == "" {
				msg.Message = errCode
			}
		}
	}

	w.mu.Lock()
	if !w.closed {
		select {
		case w.messages <- msg:
		default:
			w.logger.Warn("dropping extra handshake callback")
		}
	}
	w.mu.Unlock()

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = rw.Write([]byte("<!doctype html><title>Signed in</title><p>You can close this window.</p>"))
}

// openBrowser launches the platform's default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
