package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SmokeTest runs one prompt against a deployed engine and logs what came
// back, part by part. It fails when the run produced no events at all.
func (c *Client) SmokeTest(ctx context.Context, engineID, prompt string) error {
	userID := fmt.Sprintf("smoke-%s", uuid.NewString())

	sessionID, err := c.CreateSession(ctx, engineID, userID)
	if err != nil {
		return err
	}
	c.logger.Info("smoke test session created", "session_id", sessionID, "user_id", userID)

	events, err := c.StreamQuery(ctx, engineID, userID, sessionID, prompt)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("smoke test produced no events")
	}

	for _, event := range events {
		for _, part := range event.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				c.logger.Info("function call", "name", part.FunctionCall.Name, "args", part.FunctionCall.Args)
			case part.FunctionResponse != nil:
				c.logger.Info("function response", "name", part.FunctionResponse.Name)
			case part.Text != "":
				c.logger.Info("agent text", "text", part.Text)
			}
		}
	}

	c.logger.Info("smoke test completed", "events", len(events))
	return nil
}
