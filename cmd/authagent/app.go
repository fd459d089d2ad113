package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/logging/logadmin"

	"github.com/yapweiyih/auth-agent/internal/agent"
	"github.com/yapweiyih/auth-agent/internal/engine"
	"github.com/yapweiyih/auth-agent/internal/gcp"
	"github.com/yapweiyih/auth-agent/internal/logdump"
	"github.com/yapweiyih/auth-agent/internal/logger"
	"github.com/yapweiyih/auth-agent/internal/oauth"
	"github.com/yapweiyih/auth-agent/internal/secrets"
)

// envVarAuthID is set on the deployed agent so the runtime knows which
// authorization resource carries the delegated token
const envVarAuthID = "AGENT_AUTH_ID"

type App struct {
	cfg    *Config
	logger logger.Logger
}

func NewApp(cfg *Config) (*App, error) {
	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	return &App{cfg: cfg, logger: log}, nil
}

// oauthConfig resolves client credentials from Secret Manager and assembles
// the provider configuration
func (a *App) oauthConfig(ctx context.Context) (oauth.Config, error) {
	provider, err := secrets.NewManager(ctx, a.cfg.Project)
	if err != nil {
		return oauth.Config{}, err
	}
	defer provider.Close() // nolint:errcheck

	clientID, err := provider.Get(ctx, a.cfg.ClientIDSecret)
	if err != nil {
		return oauth.Config{}, fmt.Errorf("failed to resolve client id: %w", err)
	}
	clientSecret, err := provider.Get(ctx, a.cfg.ClientSecretSecret)
	if err != nil {
		return oauth.Config{}, fmt.Errorf("failed to resolve client secret: %w", err)
	}

	return oauth.Config{
		AuthURL:          a.cfg.AuthURL(),
		TokenURL:         a.cfg.TokenURL(),
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		RedirectURL:      a.cfg.RedirectURL,
		Scopes:           a.cfg.ScopeList(),
		AuthorizeTimeout: a.cfg.AuthorizeTimeout,
	}, nil
}

// tokenSource builds the resolution chain: explicit token from the
// environment first, interactive orchestrator last
func (a *App) tokenSource(ctx context.Context) (agent.TokenSource, error) {
	cfg, err := a.oauthConfig(ctx)
	if err != nil {
		return nil, err
	}

	initiator, err := oauth.NewInitiator(cfg, a.logger)
	if err != nil {
		return nil, err
	}

	orchestrator, err := oauth.NewOrchestrator(
		oauth.NewFileCache(a.cfg.TokenCachePath),
		oauth.NewExchanger(cfg, a.logger),
		initiator,
		a.logger,
	)
	if err != nil {
		return nil, err
	}

	return agent.ChainTokenSource{
		Sources: []agent.TokenSource{
			agent.StaticTokenSource(a.cfg.AccessToken),
			orchestrator,
		},
		Logger: a.logger,
	}, nil
}

// RunToken obtains a valid access token and prints it
func (a *App) RunToken(ctx context.Context) error {
	source, err := a.tokenSource(ctx)
	if err != nil {
		return err
	}

	token, err := source.AccessToken(ctx)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

// RunCheckAuth obtains a token and prints who it belongs to
func (a *App) RunCheckAuth(ctx context.Context) error {
	source, err := a.tokenSource(ctx)
	if err != nil {
		return err
	}

	token, err := source.AccessToken(ctx)
	if err != nil {
		return err
	}

	result := agent.NewChecker(a.logger).Introspect(ctx, token)
	if result.Status == agent.StatusAuthenticated {
		fmt.Println("Status: authenticated")
		for _, claim := range []string{"email", "sub", "scope", "expires_in"} {
			if value, ok := result.UserInfo[claim]; ok {
				fmt.Printf("%s: %v\n", claim, value)
			}
		}
		return nil
	}

	// Introspection endpoint down or rejecting: fall back to the id_token the
	// provider passed through with the cached record. Decode only, the token
	// itself was already accepted by the provider.
	rec, loadErr := oauth.NewFileCache(a.cfg.TokenCachePath).Load()
	if loadErr == nil {
		if claims, ok := agent.IDTokenClaimsFromRecord(rec); ok {
			a.logger.Warn("introspection unavailable, showing unverified id token claims",
				"message", result.Message,
			)
			fmt.Println("Status: authenticated (unverified, from cached id token)")
			if claims.Email != "" {
				fmt.Printf("email: %s\n", claims.Email)
			}
			if claims.Subject != "" {
				fmt.Printf("sub: %s\n", claims.Subject)
			}
			if claims.Name != "" {
				fmt.Printf("name: %s\n", claims.Name)
			}
			return nil
		}
	}

	return fmt.Errorf("introspection failed: %s", result.Message)
}

// RunSendEmail obtains a token and sends one message through the Gmail API
func (a *App) RunSendEmail(ctx context.Context) error {
	if a.cfg.MailTo == "" || a.cfg.MailSubject == "" {
		return fmt.Errorf("send-email needs --to and --subject")
	}

	source, err := a.tokenSource(ctx)
	if err != nil {
		return err
	}

	token, err := source.AccessToken(ctx)
	if err != nil {
		return err
	}

	result, err := agent.NewMailer(a.logger).Send(ctx, token, a.cfg.MailTo, a.cfg.MailSubject, a.cfg.MailBody)
	if err != nil {
		return err
	}

	fmt.Printf("Email sent: message %s, thread %s\n", result.MessageID, result.ThreadID)
	return nil
}

// RunCreateURI builds the consent URL for registering the authorization
// resource with the runtime and records it in .env for later use
func (a *App) RunCreateURI(ctx context.Context) error {
	provider, err := secrets.NewManager(ctx, a.cfg.Project)
	if err != nil {
		return err
	}
	defer provider.Close() // nolint:errcheck

	clientJSON, err := provider.Get(ctx, a.cfg.WebClientSecret)
	if err != nil {
		return fmt.Errorf("failed to resolve web client config: %w", err)
	}

	webClient, err := oauth.ParseWebClient([]byte(clientJSON))
	if err != nil {
		return err
	}

	uri, err := oauth.RegistrationURI(webClient, a.cfg.RegistrationScopeList())
	if err != nil {
		return err
	}

	if err := appendDotEnv("OAUTH_AUTH_URI", uri); err != nil {
		a.logger.Warn("could not record the URI in .env", "error", err)
	}

	fmt.Println("OAUTH_AUTH_URI:")
	fmt.Println(uri)
	return nil
}

// appendDotEnv appends one quoted key=value line to the working directory's
// .env file, creating it when missing
func appendDotEnv(key, value string) error {
	f, err := os.OpenFile(".env", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close() // nolint:errcheck

	_, err = fmt.Fprintf(f, "%s=%q\n", key, value)
	return err
}

// RunDeploy creates the engine and smoke tests it with one prompt
func (a *App) RunDeploy(ctx context.Context) error {
	if a.cfg.DisplayName == "" {
		return fmt.Errorf("deploy needs --display-name")
	}

	httpClient, err := gcp.NewHTTPClient(ctx)
	if err != nil {
		return err
	}

	client, err := engine.NewClient(a.cfg.Project, a.cfg.Location, httpClient, a.logger)
	if err != nil {
		return err
	}

	engineID, err := client.Deploy(ctx, engine.DeploySpec{
		DisplayName:     a.cfg.DisplayName,
		PackageURI:      a.cfg.PackageURI,
		RequirementsURI: a.cfg.RequirementsURI,
		EnvVars:         map[string]string{envVarAuthID: a.cfg.AuthID},
	})
	if err != nil {
		return err
	}

	fmt.Printf("Agent deployed. Engine ID: %s\n", engineID)
	return client.SmokeTest(ctx, engineID, "hi?")
}

// RunLogs downloads recent engine logs and writes the JSON artifact
func (a *App) RunLogs(ctx context.Context) error {
	if a.cfg.EngineID == "" {
		return fmt.Errorf("logs needs --engine")
	}

	client, err := logadmin.NewClient(ctx, a.cfg.Project)
	if err != nil {
		return fmt.Errorf("failed to create logging client: %w", err)
	}
	defer client.Close() // nolint:errcheck

	downloader, err := logdump.NewDownloader(client, a.logger)
	if err != nil {
		return err
	}

	query := logdump.Query{
		EngineID: a.cfg.EngineID,
		Location: a.cfg.Location,
		Minutes:  a.cfg.LogMinutes,
		Now:      time.Now().UTC(),
	}

	entries, err := downloader.Download(ctx, query)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No log entries found matching the criteria.")
		return nil
	}

	artifact := logdump.NewArtifact(query, entries, time.Now().UTC())
	path, err := artifact.Write(a.cfg.LogOutDir)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d log entries to: %s\n", len(entries), path)

	for i, payload := range artifact.TextPayloads {
		fmt.Fprintf(os.Stdout, "%4d: %s\n", i+1, payload)
	}
	return nil
}
