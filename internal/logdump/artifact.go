package logdump

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact is the JSON document one download run produces
type Artifact struct {
	Metadata     ArtifactMetadata `json:"metadata"`
	Entries      []Entry          `json:"log_entries"`
	TextPayloads []string         `json:"text_payloads"`
}

type ArtifactMetadata struct {
	DownloadTime      time.Time `json:"download_time"`
	TotalEntries      int       `json:"total_entries"`
	EntriesWithText   int       `json:"entries_with_text_payload"`
	QueryFilter       string    `json:"query_filter"`
	LookbackMinutes   int       `json:"lookback_minutes"`
	ReasoningEngineID string    `json:"reasoning_engine_id"`
}

// NewArtifact assembles the document for a finished download
func NewArtifact(query Query, entries []Entry, downloadedAt time.Time) Artifact {
	payloads := ExtractText(entries)

	return Artifact{
		Metadata: ArtifactMetadata{
			DownloadTime:      downloadedAt,
			TotalEntries:      len(entries),
			EntriesWithText:   len(payloads),
			QueryFilter:       query.Filter(),
			LookbackMinutes:   query.Minutes,
			ReasoningEngineID: query.EngineID,
		},
		Entries:      entries,
		TextPayloads: payloads,
	}
}

// Write saves the artifact as downloaded-logs-<yyyymmdd-hhmmss>.json in dir
// and returns the file path
func (a Artifact) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	name := fmt.Sprintf("downloaded-logs-%s.json", a.Metadata.DownloadTime.Format("20060102-150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write log artifact: %w", err)
	}
	return path, nil
}
