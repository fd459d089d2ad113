package oauth

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/browser"

	"github.com/yapweiyih/auth-agent/internal/logger"
)

// Initiator drives one interactive authorization attempt: it generates the
// state token, opens the provider's consent page and waits for the callback
// listener to capture the code
type Initiator struct {
	cfg    Config
	logger logger.Logger

	// User guidance output (browser fallback URL), defaults to stdout
	out io.Writer

	// Browser launcher, replaceable in tests
	openURL func(url string) error
}

func NewInitiator(cfg Config, l logger.Logger) (*Initiator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid oauth config: %w", err)
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Initiator{
		cfg:     cfg,
		logger:  l,
		out:     os.Stdout,
		openURL: browser.OpenURL,
	}, nil
}

// AcquireCode runs a full interactive attempt and returns the captured
// authorization code. On timeout it returns apperrors.ErrAuthorizationTimeout.
func (i *Initiator) AcquireCode(ctx context.Context) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", err
	}

	listener, err := NewCallbackListener(i.cfg.RedirectURL, state, i.logger)
	if err != nil {
		return "", err
	}
	if err := listener.Start(); err != nil {
		return "", err
	}
	defer listener.Close() // nolint:errcheck

	authURL := i.cfg.endpoint().AuthCodeURL(state)

	fmt.Fprintln(i.out, "Opening browser for authorization...")
	fmt.Fprintf(i.out, "If the browser doesn't open, visit: %s\n", authURL)

	// Headless environments have no browser, the printed URL is the fallback
	if err := i.openURL(authURL); err != nil {
		i.logger.Warn("could not open browser", "error", err)
	}

	fmt.Fprintln(i.out, "Waiting for authorization...")

	code, err := listener.Wait(ctx, i.cfg.authorizeTimeout())
	if err != nil {
		return "", fmt.Errorf("authorization attempt failed: %w", err)
	}

	return code, nil
}
