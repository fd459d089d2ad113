// Package logdump downloads runtime logs for a deployed engine from Cloud
// Logging and writes them to a timestamped JSON artifact.
package logdump

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/logging/logadmin"
	"google.golang.org/api/iterator"

	"github.com/yapweiyih/auth-agent/internal/logger"
)

const engineResourceType = "aiplatform.googleapis.com/ReasoningEngine"

// Query bounds one download: which engine and how far back
type Query struct {
	EngineID string
	Location string

	// Lookback window ending at Now
	Minutes int
	Now     time.Time
}

// Filter renders the Cloud Logging filter expression for the query
func (q Query) Filter() string {
	end := q.Now
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start := end.Add(-time.Duration(q.Minutes) * time.Minute)

	lines := []string{
		fmt.Sprintf("resource.type=%q", engineResourceType),
		fmt.Sprintf("resource.labels.location=%q", q.Location),
		fmt.Sprintf("resource.labels.reasoning_engine_id=%q", q.EngineID),
		fmt.Sprintf("timestamp>=%q", start.Format(time.RFC3339)),
		fmt.Sprintf("timestamp<=%q", end.Format(time.RFC3339)),
	}
	return strings.Join(lines, "\n")
}

// Entry is the slice of a log entry the artifact keeps
type Entry struct {
	Timestamp   time.Time `json:"timestamp"`
	TextPayload string    `json:"textPayload,omitempty"`
}

// Downloader lists engine log entries through the Cloud Logging admin API
type Downloader struct {
	client *logadmin.Client
	logger logger.Logger
}

func NewDownloader(client *logadmin.Client, l logger.Logger) (*Downloader, error) {
	if client == nil {
		return nil, fmt.Errorf("logadmin client must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &Downloader{client: client, logger: l}, nil
}

// Download lists all entries matching the query, oldest first
func (d *Downloader) Download(ctx context.Context, query Query) ([]Entry, error) {
	filter := query.Filter()
	d.logger.Info("downloading engine logs",
		"engine_id", query.EngineID,
		"lookback_minutes", query.Minutes,
	)
	d.logger.Debug("log filter", "filter", filter)

	var entries []Entry

	it := d.client.Entries(ctx, logadmin.Filter(filter))
	for {
		entry, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list log entries: %w", err)
		}

		converted := Entry{Timestamp: entry.Timestamp}
		if text, ok := entry.Payload.(string); ok {
			converted.TextPayload = text
		}
		entries = append(entries, converted)
	}

	d.logger.Info("log download finished", "entries", len(entries))
	return entries, nil
}

// ExtractText pulls the text payloads out of the entries, skipping
// structured-payload entries
func ExtractText(entries []Entry) []string {
	var payloads []string
	for _, entry := range entries {
		if entry.TextPayload != "" {
			payloads = append(payloads, entry.TextPayload)
		}
	}
	return payloads
}
