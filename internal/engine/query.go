package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// FunctionCall is a tool invocation the agent decided on
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// FunctionResponse is the tool's answer fed back to the agent
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Part is one piece of an event's content
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

// Event is one streamed step of an agent run
type Event struct {
	Content struct {
		Role  string `json:"role"`
		Parts []Part `json:"parts"`
	} `json:"content"`
}

// CreateSession starts a runtime session for the given user and returns the
// session ID
func (c *Client) CreateSession(ctx context.Context, engineID, userID string) (string, error) {
	url := fmt.Sprintf("%s/%s:query", c.baseURL, c.EngineName(engineID))
	request := map[string]any{
		"classMethod": "create_session",
		"input":       map[string]any{"user_id": userID},
	}

	var response struct {
		Output struct {
			ID string `json:"id"`
		} `json:"output"`
	}
	if err := c.postJSON(ctx, url, request, &response); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	if response.Output.ID == "" {
		return "", fmt.Errorf("session response carried no id")
	}

	c.logger.Debug("session created", "session_id", response.Output.ID)
	return response.Output.ID, nil
}

// StreamQuery sends one user message to a session and collects the streamed
// events. The runtime answers with one JSON event per line.
func (c *Client) StreamQuery(ctx context.Context, engineID, userID, sessionID, message string) ([]Event, error) {
	requestJSON, err := json.Marshal(map[string]any{
		"user_id":    userID,
		"session_id": sessionID,
		"message": map[string]any{
			"role":  "user",
			"parts": []map[string]string{{"text": message}},
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s:streamQuery", c.baseURL, c.EngineName(engineID))
	body, err := json.Marshal(map[string]any{
		"classMethod": "streaming_agent_run_with_events",
		"input":       map[string]any{"request_json": string(requestJSON)},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("agent runtime returned %d: %s", resp.StatusCode, string(raw))
	}

	return parseEventStream(resp.Body)
}

// parseEventStream decodes newline-delimited JSON. Each line holds either a
// bare event or a group with an events array.
func parseEventStream(r io.Reader) ([]Event, error) {
	var events []Event

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseBytes)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var group struct {
			Events []Event `json:"events"`
		}
		if err := json.Unmarshal(line, &group); err != nil {
			return nil, fmt.Errorf("bad event line: %w", err)
		}

		if len(group.Events) > 0 {
			events = append(events, group.Events...)
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("bad event line: %w", err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
