package extraction

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell tool stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "extract.sh")
	content := "#!/bin/sh\n" + script + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestExtractParsesToolOutput(t *testing.T) {
	tool := writeTool(t, `cat <<'EOF'
{"success": true, "frames": [{"timestamp": 0.0, "data": "data:image/jpeg;base64,AAAA"}, {"timestamp": 10.0, "data": "data:image/jpeg;base64,BBBB"}], "total_duration": 12.5, "frame_count": 2}
EOF`)

	client := NewClient(tool, 10*time.Second)
	result, err := client.Extract(context.Background(), "video.mp4")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 2, result.FrameCount)
	assert.Equal(t, 12.5, result.TotalDuration)
	require.Len(t, result.Frames, 2)
	assert.Equal(t, 0.0, result.Frames[0].Timestamp)
	assert.Equal(t, 10.0, result.Frames[1].Timestamp)
	assert.Contains(t, result.Frames[0].Data, "base64,")
}

func TestExtractToolReportsFailure(t *testing.T) {
	tool := writeTool(t, `echo '{"success": false, "error": "no video stream found"}'`)

	client := NewClient(tool, 10*time.Second)
	result, err := client.Extract(context.Background(), "broken.mp4")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "no video stream found")
}

func TestExtractToolExitError(t *testing.T) {
	tool := writeTool(t, `exit 3`)

	client := NewClient(tool, 10*time.Second)
	_, err := client.Extract(context.Background(), "video.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction tool failed")
}

func TestExtractMalformedOutput(t *testing.T) {
	tool := writeTool(t, `echo 'not json at all'`)

	client := NewClient(tool, 10*time.Second)
	_, err := client.Extract(context.Background(), "video.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse extraction output")
}

func TestExtractEmptyLocator(t *testing.T) {
	client := NewClient("/usr/bin/true", 10*time.Second)
	_, err := client.Extract(context.Background(), "")
	require.Error(t, err)
}
