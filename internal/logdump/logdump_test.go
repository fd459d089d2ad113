package logdump

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_Filter(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	query := Query{
		EngineID: "794794",
		Location: "us-central1",
		Minutes:  30,
		Now:      now,
	}

	filter := query.Filter()

	assert.Contains(t, filter, `resource.type="aiplatform.googleapis.com/ReasoningEngine"`)
	assert.Contains(t, filter, `resource.labels.location="us-central1"`)
	assert.Contains(t, filter, `resource.labels.reasoning_engine_id="794794"`)
	assert.Contains(t, filter, `timestamp>="2025-03-10T11:30:00Z"`, "window starts minutes before now")
	assert.Contains(t, filter, `timestamp<="2025-03-10T12:00:00Z"`)
}

func TestExtractText(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{TextPayload: "first line"},
		{}, // structured payload, no text
		{TextPayload: "second line"},
	}

	payloads := ExtractText(entries)

	assert.Equal(t, []string{"first line", "second line"}, payloads,
		"structured entries are skipped, order preserved")
}

func TestArtifact(t *testing.T) {
	t.Parallel()

	downloadedAt := time.Date(2025, 3, 10, 12, 34, 56, 0, time.UTC)
	query := Query{EngineID: "794794", Location: "us-central1", Minutes: 5, Now: downloadedAt}
	entries := []Entry{
		{Timestamp: downloadedAt.Add(-time.Minute), TextPayload: "check_auth called"},
		{Timestamp: downloadedAt},
	}

	artifact := NewArtifact(query, entries, downloadedAt)

	t.Run("metadata counts both totals", func(t *testing.T) {
		assert.Equal(t, 2, artifact.Metadata.TotalEntries)
		assert.Equal(t, 1, artifact.Metadata.EntriesWithText)
		assert.Equal(t, "794794", artifact.Metadata.ReasoningEngineID)
		assert.Equal(t, query.Filter(), artifact.Metadata.QueryFilter)
	})

	t.Run("written file carries the timestamped name", func(t *testing.T) {
		dir := t.TempDir()

		path, err := artifact.Write(filepath.Join(dir, "logs"))
		require.NoError(t, err)
		assert.Equal(t, "downloaded-logs-20250310-123456.json", filepath.Base(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var loaded Artifact
		require.NoError(t, json.Unmarshal(data, &loaded))
		assert.Equal(t, []string{"check_auth called"}, loaded.TextPayloads)
		assert.Equal(t, 2, loaded.Metadata.TotalEntries)
	})
}
