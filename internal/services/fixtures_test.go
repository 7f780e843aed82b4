package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"acsf-platform/pkg/logging"
	"acsf-platform/pkg/metrics"
)

// recording describes one XML fixture file
type recording struct {
	dir      string // relative "<type>/<device>" directory
	name     string // file name without extension
	devices  []string
	contexts []string
	points   []string
}

// xml renders the recording in the ACS-F2 layout
func (r recording) xml() string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<acquisition>\n")
	for _, c := range r.contexts {
		fmt.Fprintf(&b, "  <acquisitionContext %s/>\n", c)
	}
	for _, d := range r.devices {
		fmt.Fprintf(&b, "  <targetDevice %s/>\n", d)
	}
	b.WriteString("  <signalCurve>\n")
	for _, p := range r.points {
		fmt.Fprintf(&b, "    <signalPoint %s/>\n", p)
	}
	b.WriteString("  </signalCurve>\n</acquisition>\n")
	return b.String()
}

// writeTree writes the recordings under a fresh temp root and returns it
func writeTree(t *testing.T, recs ...recording) string {
	t.Helper()
	root := t.TempDir()
	for _, r := range recs {
		dir := filepath.Join(root, filepath.FromSlash(r.dir))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, r.name+".xml"), []byte(r.xml()), 0o644))
	}
	return root
}

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("acsf-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func testCollector() *metrics.Collector {
	return metrics.NewCollectorWithRegisterer("acsf_test", prometheus.NewRegistry())
}

// fridgeAndFan is the two-device scenario: the fridge has one non-numeric
// power sample, the fan a single one.
func fridgeAndFan() []recording {
	return []recording{
		{
			dir:      "01_fridge/dev1",
			name:     "session1",
			contexts: []string{`session="1"`},
			devices:  []string{`type="fridge"`},
			points:   []string{`power="10.0"`, `power="bad"`, `power="12.0"`},
		},
		{
			dir:      "02_fan/dev1",
			name:     "session1",
			contexts: []string{`session="1"`},
			devices:  []string{`type="fan"`},
			points:   []string{`power="5.0"`},
		},
	}
}
