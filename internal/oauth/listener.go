package oauth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/yapweiyih/auth-agent/internal/apperrors"
	"github.com/yapweiyih/auth-agent/internal/logger"
)

const (
	successPage = "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>"
	statePage   = "<html><body><h1>Authorization failed!</h1><p>Invalid state parameter (CSRF protection).</p></body></html>"
	failurePage = "<html><body><h1>Authorization failed!</h1></body></html>"
)

// CallbackListener is a short-lived HTTP server bound to the redirect URI that
// captures the single authorization code the provider sends back. Each
// authorization attempt gets its own listener, so concurrent orchestrators
// never share state.
type CallbackListener struct {
	addr          string
	path          string
	expectedState string
	logger        logger.Logger

	srv  *http.Server
	done chan struct{}

	// Single-slot handoff from the handler goroutine to Wait. Only the first
	// valid code is delivered, later hits still get a friendly page.
	code chan string
	once sync.Once
}

// NewCallbackListener builds a listener for the given redirect URI. The URI
// decides the bind address and callback path, everything else answers 404.
func NewCallbackListener(redirectURL string, expectedState string, l logger.Logger) (*CallbackListener, error) {
	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL %q: %w", redirectURL, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("redirect URL %q has no host", redirectURL)
	}

	path := parsed.Path
	if path == "" {
		path = "/"
	}

	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &CallbackListener{
		addr:          parsed.Host,
		path:          path,
		expectedState: expectedState,
		logger:        l,
		done:          make(chan struct{}),
		code:          make(chan string, 1),
	}, nil
}

// Start binds the local port and begins serving in a background goroutine.
// Callers must Close the listener whether or not a code arrives.
func (cl *CallbackListener) Start() error {
	ln, err := net.Listen("tcp", cl.addr)
	if err != nil {
		return fmt.Errorf("error while binding callback listener on %s: %w", cl.addr, err)
	}

	cl.srv = &http.Server{Handler: http.HandlerFunc(cl.handle)}

	go func() {
		defer close(cl.done)
		if err := cl.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			cl.logger.Error("callback listener stopped unexpectedly", "error", err)
		}
	}()

	cl.logger.Debug("callback listener started", "addr", cl.addr, "path", cl.path)
	return nil
}

// Wait blocks until a valid authorization code arrives or the timeout
// elapses. On timeout it returns apperrors.ErrAuthorizationTimeout and never
// a partial code.
func (cl *CallbackListener) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case code := <-cl.code:
		return code, nil
	case <-timer.C:
		return "", apperrors.ErrAuthorizationTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts the server down and waits for the serve goroutine to exit, so
// no listener thread outlives the authorization attempt
func (cl *CallbackListener) Close() error {
	if cl.srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := cl.srv.Shutdown(shutdownCtx)
	<-cl.done
	return err
}

// handle dispatches the enumerated callback outcomes: not-found,
// invalid-state, success, missing-code
func (cl *CallbackListener) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || r.URL.Path != cl.path {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()

	// A mismatched state is rejected but not fatal: stray or malicious hits
	// must not abort the legitimate wait
	if state := query.Get("state"); state != "" && state != cl.expectedState {
		cl.logger.Warn("callback with mismatched state rejected")
		writePage(w, http.StatusBadRequest, statePage)
		return
	}

	code := query.Get("code")
	if code == "" {
		writePage(w, http.StatusBadRequest, failurePage)
		return
	}

	cl.once.Do(func() { cl.code <- code })
	writePage(w, http.StatusOK, successPage)
}

func writePage(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
