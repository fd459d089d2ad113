package secrets

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"github.com/yapweiyih/auth-agent/internal/apperrors"
)

// Provider resolves a named secret to its string value
type Provider interface {
	// Get returns the secret value for the given id
	// Has to return apperrors.ErrSecretNotFound if the id is unknown
	Get(ctx context.Context, id string) (string, error)
}

// Manager reads secrets from Google Secret Manager, always the latest version
type Manager struct {
	client    *secretmanager.Client
	projectID string
}

func NewManager(ctx context.Context, projectID string) (*Manager, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id must not be empty")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error while creating secret manager client: %w", err)
	}

	return &Manager{client: client, projectID: projectID}, nil
}

func (m *Manager) Get(ctx context.Context, id string) (string, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", m.projectID, id)

	resp, err := m.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("error while accessing secret %q: %w", name, err)
	}

	return string(resp.GetPayload().GetData()), nil
}

func (m *Manager) Close() error {
	return m.client.Close()
}

// Static is a map-backed provider for tests and env-only setups
type Static map[string]string

func (s Static) Get(_ context.Context, id string) (string, error) {
	value, ok := s[id]
	if !ok {
		return "", fmt.Errorf("secret %q: %w", id, apperrors.ErrSecretNotFound)
	}
	return value, nil
}
