package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

const usage = `Usage: authagent [command] [flags]

Commands:
  token       Obtain a valid access token and print it (default)
  check-auth  Obtain a token and print the identity it belongs to
  send-email  Send one message through the Gmail API (--to, --subject, --body)
  create-uri  Build the consent URL for registering the authorization resource
  deploy      Deploy the agent object and smoke test it
  logs        Download recent engine logs (--engine, --minutes)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("command failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(args []string) error {
	command := "token"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}

	if command == "help" {
		fmt.Print(usage)
		return nil
	}

	config := NewConfig()
	if err := config.LoadDotEnv(os.Getwd); err != nil {
		return err
	}
	config.LoadEnv(os.Getenv)
	if err := config.ParseFlags(args); err != nil {
		return err
	}

	// Only the token-flow commands need the full provider configuration,
	// create-uri/deploy/logs talk to GCP alone
	switch command {
	case "token", "check-auth", "send-email":
		if err := config.Validate(); err != nil {
			return err
		}
	default:
		if config.Project == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT or --project is required")
		}
	}

	app, err := NewApp(config)
	if err != nil {
		return err
	}

	// Cancel on SIGTERM so a stuck browser wait can be interrupted cleanly
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "token":
		return app.RunToken(ctx)
	case "check-auth":
		return app.RunCheckAuth(ctx)
	case "send-email":
		return app.RunSendEmail(ctx)
	case "create-uri":
		return app.RunCreateURI(ctx)
	case "deploy":
		return app.RunDeploy(ctx)
	case "logs":
		return app.RunLogs(ctx)
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
