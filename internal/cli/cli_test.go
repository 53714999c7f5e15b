package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recares/dme-matcher/internal/config"
	"github.com/recares/dme-matcher/internal/domain"
	"github.com/recares/dme-matcher/internal/matching"
	"github.com/recares/dme-matcher/internal/storage"
)

func writeConfig(t *testing.T) (path, snapshots string) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "REDIS_URL", "NOTIFY_CHANNEL", "SNAPSHOT_S3_BUCKET", "CONFIG_PATH"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	snapshots = filepath.Join(dir, "snapshots")
	path = filepath.Join(dir, "config.yaml")
	content := "log:\n  level: error\nstore:\n  type: memory\nstorage:\n  type: local\n  local_path: " + snapshots + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path, snapshots
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEnsureSchema_JSON(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "--format", "json", "ensure-schema")
	require.NoError(t, err)

	var h matching.FieldHandles
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.Equal(t, 0, h.OptOut)
	assert.Equal(t, 3, h.SuccessfulMatch)
	assert.Equal(t, -1, h.OptIn)
}

func TestSubmit_OptOutSheet(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "--format", "text", "submit", "--sheet", "opt-out", "--", "", "a@x.com", "A", "Walker", "No")
	require.NoError(t, err)
	assert.Contains(t, out, "kind: opt_out")
	assert.Contains(t, out, "found_own: false")
	assert.Contains(t, out, "row: 1")
}

func TestSubmit_UnknownSheet(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "submit", "--sheet", "Sheet1", "--", "x")
	assert.Error(t, err)
}

func TestInvalidFormat(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "--format", "yaml", "resync")
	assert.ErrorContains(t, err, "invalid format")
}

func TestSnapshotShow(t *testing.T) {
	cfgPath, snapshots := writeConfig(t)

	s, err := storage.New(context.Background(), config.StorageConfig{Type: "local", LocalPath: snapshots})
	require.NoError(t, err)
	at := time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)
	_, err = s.Archive(context.Background(), at, map[string]domain.Grid{
		"Large DME Form": {Header: []string{"Timestamp"}, Rows: [][]string{{"a"}, {"b"}}},
	})
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "--format", "json", "snapshot", "show", s.Key(at))
	require.NoError(t, err)

	var got struct {
		Rows map[string]int `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Rows["Large DME Form"])
}
