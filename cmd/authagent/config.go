package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/yapweiyih/auth-agent/internal/logger"
)

const (
	defaultRedirectURL      = "http://localhost:8080/callback"
	defaultScopes           = "useraccount"
	defaultTokenCachePath   = "token_info.json"
	defaultAuthorizeTimeout = 60 * time.Second
	defaultLocation         = "us-central1"
	defaultLogMinutes       = 5
	defaultLoggingLevel     = logger.LevelInfo
	defaultEnvironment      = logger.EnvProduction

	defaultRegistrationScopes = "https://www.googleapis.com/auth/gmail.modify," +
		"https://www.googleapis.com/auth/gmail.labels"
)

var validate = validator.New()

type Config struct {
	// Default logging level
	LogLevel string

	// Environment
	Environment string

	// Provider instance host the OAuth endpoints live on, e.g. dev12345.service-now.com
	ProviderInstance string `validate:"required,hostname"`

	// Secret Manager IDs holding the OAuth client credentials
	ClientIDSecret     string `validate:"required"`
	ClientSecretSecret string `validate:"required"`

	// Redirect URI registered with the provider, the listener binds to its host:port
	RedirectURL string `validate:"required,url"`

	// Requested scopes, comma separated
	Scopes string `validate:"required"`

	// Where the token record is cached between runs
	TokenCachePath string `validate:"required"`

	// How long to wait for the user to finish authorizing
	AuthorizeTimeout time.Duration

	// Access token injected directly, skips the whole flow when set
	AccessToken string

	// GCP settings shared by secrets, deploy and logs
	Project  string `validate:"required"`
	Location string `validate:"required"`

	// Authorization resource ID the runtime stores the token under
	AuthID string

	// create-uri settings: Secret Manager ID of the web-client JSON and the
	// scopes to request in the registration consent URL
	WebClientSecret    string
	RegistrationScopes string

	// Deploy settings
	DisplayName     string
	StagingBucket   string
	PackageURI      string
	RequirementsURI string

	// send-email settings
	MailTo      string
	MailSubject string
	MailBody    string

	// Logs settings
	EngineID   string
	LogMinutes int
	LogOutDir  string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:           defaultLoggingLevel,
		Environment:        defaultEnvironment,
		ClientIDSecret:     "CLIENT_ID",
		ClientSecretSecret: "CLIENT_SECRET",
		RedirectURL:        defaultRedirectURL,
		Scopes:             defaultScopes,
		TokenCachePath:     defaultTokenCachePath,
		AuthorizeTimeout:   defaultAuthorizeTimeout,
		Location:           defaultLocation,
		LogMinutes:         defaultLogMinutes,
		LogOutDir:          "logs",
		WebClientSecret:    "WEB_CLIENT_SECRET_JSON",
		RegistrationScopes: defaultRegistrationScopes,
	}
}

// Load variables from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if parsed, err := strconv.Atoi(value); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"PROVIDER_INSTANCE":     setString(&c.ProviderInstance),
		"CLIENT_ID_SECRET":      setString(&c.ClientIDSecret),
		"CLIENT_SECRET_SECRET":  setString(&c.ClientSecretSecret),
		"REDIRECT_URL":          setString(&c.RedirectURL),
		"SCOPES":                setString(&c.Scopes),
		"TOKEN_CACHE":           setString(&c.TokenCachePath),
		"ACCESS_TOKEN":          setString(&c.AccessToken),
		"GOOGLE_CLOUD_PROJECT":  setString(&c.Project),
		"GOOGLE_CLOUD_LOCATION": setString(&c.Location),
		"AUTH_ID":               setString(&c.AuthID),
		"WEB_CLIENT_SECRET":     setString(&c.WebClientSecret),
		"REGISTRATION_SCOPES":   setString(&c.RegistrationScopes),
		"DISPLAY_NAME":          setString(&c.DisplayName),
		"STAGING_BUCKET":        setString(&c.StagingBucket),
		"ENGINE_ID":             setString(&c.EngineID),
		"LOG_MINUTES":           setInt(&c.LogMinutes),
		"LOG_LEVEL":             setString(&c.LogLevel),
		"ENVIRONMENT":           setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authagent", pflag.ContinueOnError)

	fs.StringVarP(&c.ProviderInstance, "instance", "i", c.ProviderInstance, "Provider instance host")
	fs.StringVar(&c.ClientIDSecret, "client-id-secret", c.ClientIDSecret, "Secret Manager ID of the OAuth client id")
	fs.StringVar(&c.ClientSecretSecret, "client-secret-secret", c.ClientSecretSecret, "Secret Manager ID of the OAuth client secret")
	fs.StringVarP(&c.RedirectURL, "redirect", "r", c.RedirectURL, "Registered redirect URL")
	fs.StringVarP(&c.Scopes, "scopes", "s", c.Scopes, "Requested scopes, comma separated")
	fs.StringVarP(&c.TokenCachePath, "cache", "c", c.TokenCachePath, "Token cache file path")
	fs.DurationVarP(&c.AuthorizeTimeout, "timeout", "t", c.AuthorizeTimeout, "Authorization wait timeout")
	fs.StringVarP(&c.Project, "project", "p", c.Project, "GCP project id")
	fs.StringVar(&c.Location, "location", c.Location, "GCP location")
	fs.StringVar(&c.AuthID, "auth-id", c.AuthID, "Runtime authorization resource id")
	fs.StringVar(&c.WebClientSecret, "web-secret", c.WebClientSecret, "Secret Manager ID of the web-client JSON")
	fs.StringVar(&c.RegistrationScopes, "registration-scopes", c.RegistrationScopes, "Scopes for the registration consent URL, comma separated")
	fs.StringVar(&c.DisplayName, "display-name", c.DisplayName, "Deployed agent display name")
	fs.StringVar(&c.StagingBucket, "staging-bucket", c.StagingBucket, "GCS staging bucket for deploys")
	fs.StringVar(&c.PackageURI, "package", c.PackageURI, "GCS URI of the packaged agent object")
	fs.StringVar(&c.RequirementsURI, "requirements", c.RequirementsURI, "GCS URI of the runtime requirements file")
	fs.StringVar(&c.MailTo, "to", c.MailTo, "Recipient address for send-email")
	fs.StringVar(&c.MailSubject, "subject", c.MailSubject, "Subject for send-email")
	fs.StringVar(&c.MailBody, "body", c.MailBody, "Body for send-email")
	fs.StringVar(&c.EngineID, "engine", c.EngineID, "Deployed engine id")
	fs.IntVarP(&c.LogMinutes, "minutes", "m", c.LogMinutes, "Log lookback window in minutes")
	fs.StringVar(&c.LogOutDir, "out-dir", c.LogOutDir, "Directory for downloaded log artifacts")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}

// Validate checks the fields every subcommand needs
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("invalid config: field %s failed %q check", first.Field(), first.Tag())
		}
		return err
	}
	return nil
}

// AuthURL is the provider's authorization page
func (c *Config) AuthURL() string {
	return fmt.Sprintf("https://%s/oauth_auth.do", c.ProviderInstance)
}

// TokenURL is the provider's token endpoint
func (c *Config) TokenURL() string {
	return fmt.Sprintf("https://%s/oauth_token.do", c.ProviderInstance)
}

// ScopeList splits the comma-separated provider scopes
func (c *Config) ScopeList() []string {
	return splitScopes(c.Scopes)
}

// RegistrationScopeList splits the comma-separated registration scopes
func (c *Config) RegistrationScopeList() []string {
	return splitScopes(c.RegistrationScopes)
}

func splitScopes(joined string) []string {
	var scopes []string
	for _, scope := range strings.Split(joined, ",") {
		if trimmed := strings.TrimSpace(scope); trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return scopes
}
