// Package gcp holds the Application Default Credentials plumbing shared by
// the deploy and log-download clients.
package gcp

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// NewHTTPClient returns an http.Client that authenticates with Application
// Default Credentials. Works with gcloud user credentials locally and with
// the service account when deployed.
func NewHTTPClient(ctx context.Context) (*http.Client, error) {
	source, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve application default credentials: %w", err)
	}
	return oauth2.NewClient(ctx, source), nil
}
