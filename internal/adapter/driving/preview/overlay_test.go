package preview

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
)

func TestErrorOverlay(t *testing.T) {
	run := model.BuildRun{
		ID:        "run-1",
		Tasks:     []model.BuildTask{model.TaskStyles, model.TaskPages},
		Status:    model.BuildStatusFailed,
		Error:     `task styles: <script>alert("x")</script>`,
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, errorOverlay(run).Render(context.Background(), &buf))
	out := buf.String()

	assert.Contains(t, out, "<h1>Build failed</h1>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, `<script>alert`)
	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "tasks styles, pages")
	assert.Contains(t, out, "2026-01-02 03:04:05 UTC")
	assert.Contains(t, out, string(scriptTag))
}
