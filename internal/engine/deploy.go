package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yapweiyih/auth-agent/internal/apperrors"
)

// DeploySpec describes the agent object to deploy
type DeploySpec struct {
	// Human-readable name shown in the runtime console
	DisplayName string

	// GCS URI of the packaged agent object in the staging bucket
	PackageURI string

	// GCS URI of the requirements file for the runtime image
	RequirementsURI string

	// Environment variables for the deployed agent, carries the auth ID
	EnvVars map[string]string
}

type envVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type createEngineRequest struct {
	DisplayName string     `json:"displayName"`
	Spec        engineSpec `json:"spec"`
}

type engineSpec struct {
	PackageSpec    packageSpec    `json:"packageSpec"`
	DeploymentSpec deploymentSpec `json:"deploymentSpec"`
}

type packageSpec struct {
	PickleObjectGcsURI string `json:"pickleObjectGcsUri,omitempty"`
	RequirementsGcsURI string `json:"requirementsGcsUri,omitempty"`
}

type deploymentSpec struct {
	Env []envVar `json:"env,omitempty"`
}

type operation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response struct {
		Name string `json:"name"`
	} `json:"response"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Deploy creates the engine and waits for the long-running operation to
// finish. Returns the engine ID, the last segment of the resource name.
func (c *Client) Deploy(ctx context.Context, spec DeploySpec) (string, error) {
	if spec.DisplayName == "" {
		return "", fmt.Errorf("display name must not be empty")
	}

	request := createEngineRequest{
		DisplayName: spec.DisplayName,
		Spec: engineSpec{
			PackageSpec: packageSpec{
				PickleObjectGcsURI: spec.PackageURI,
				RequirementsGcsURI: spec.RequirementsURI,
			},
			DeploymentSpec: deploymentSpec{Env: envVarList(spec.EnvVars)},
		},
	}

	c.logger.Info("deploying agent", "display_name", spec.DisplayName)

	var op operation
	if err := c.postJSON(ctx, c.enginesURL(), request, &op); err != nil {
		return "", fmt.Errorf("failed to create engine: %w", err)
	}

	finished, err := c.waitOperation(ctx, op)
	if err != nil {
		return "", err
	}

	engineID := lastSegment(finished.Response.Name)
	c.logger.Info("agent deployed", "engine_id", engineID)
	return engineID, nil
}

// waitOperation polls the operation until it reports done
func (c *Client) waitOperation(ctx context.Context, op operation) (operation, error) {
	deadline := time.Now().Add(c.pollTimeout)

	for {
		if op.Done {
			if op.Error != nil {
				return op, fmt.Errorf("deployment failed with code %d: %s", op.Error.Code, op.Error.Message)
			}
			return op, nil
		}
		if time.Now().After(deadline) {
			return op, fmt.Errorf("operation %s: %w", op.Name, apperrors.ErrOperationNotDone)
		}

		select {
		case <-ctx.Done():
			return op, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		c.logger.Debug("polling deployment operation", "operation", op.Name)
		if err := c.getJSON(ctx, fmt.Sprintf("%s/%s", c.baseURL, op.Name), &op); err != nil {
			return op, fmt.Errorf("failed to poll operation: %w", err)
		}
	}
}

func envVarList(vars map[string]string) []envVar {
	if len(vars) == 0 {
		return nil
	}
	list := make([]envVar, 0, len(vars))
	for name, value := range vars {
		list = append(list, envVar{Name: name, Value: value})
	}
	return list
}

func lastSegment(resourceName string) string {
	parts := strings.Split(resourceName, "/")
	return parts[len(parts)-1]
}
