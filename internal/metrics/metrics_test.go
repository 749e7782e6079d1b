package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	RecordProbe("stat", ProbeMiss)
	RecordProbe("stat", ProbeHit)
	RecordDiscovery("list_functions", 25*time.Millisecond)
	RecordFunctionListed("js")
	RecordISCFailure()

	path := filepath.Join(t.TempDir(), "fnlist.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	require.Contains(t, out, `fnlist_probe_cache_total{kind="stat",result="miss"}`)
	require.Contains(t, out, `fnlist_probe_cache_total{kind="stat",result="hit"}`)
	require.Contains(t, out, `fnlist_discovery_duration_seconds_count{operation="list_functions"}`)
	require.Contains(t, out, `fnlist_functions_listed_total{runtime="js"}`)
	require.Contains(t, out, "fnlist_isc_failures_total")
}

func TestWriteTextfile_BadPath(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "fnlist.prom"))
	require.Error(t, err)
}
