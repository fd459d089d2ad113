package agent

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yapweiyih/auth-agent/internal/logger"
)

const defaultGmailSendURL = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"

// SendResult is the tool-call answer for a send_email request
type SendResult struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
}

// Mailer sends mail through the Gmail REST API on behalf of the user whose
// delegated token it is handed
type Mailer struct {
	client  *http.Client
	sendURL string
	logger  logger.Logger
}

func NewMailer(l logger.Logger) *Mailer {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Mailer{
		client:  &http.Client{Timeout: 30 * time.Second},
		sendURL: defaultGmailSendURL,
		logger:  l,
	}
}

// rawMessage builds the RFC 2822 message and encodes it the way the Gmail API
// wants it: URL-safe base64 over CRLF-joined headers
func rawMessage(to, subject, body string) string {
	msg := fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s", to, subject, body)
	return base64.URLEncoding.EncodeToString([]byte(msg))
}

// Send delivers one plain-text message. The access token must carry the
// gmail.send scope.
func (m *Mailer) Send(ctx context.Context, accessToken, to, subject, body string) (SendResult, error) {
	payload, err := json.Marshal(map[string]string{"raw": rawMessage(to, subject, body)})
	if err != nil {
		return SendResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.sendURL, bytes.NewReader(payload))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("gmail send request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return SendResult{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return SendResult{}, fmt.Errorf("gmail send returned %d: %s", resp.StatusCode, string(respBody))
	}

	var sent struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	if err := json.Unmarshal(respBody, &sent); err != nil {
		return SendResult{}, fmt.Errorf("bad gmail send response: %w", err)
	}

	m.logger.Info("email sent", "to", to, "message_id", sent.ID)
	return SendResult{MessageID: sent.ID, ThreadID: sent.ThreadID}, nil
}
