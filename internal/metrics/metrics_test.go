package metrics

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordLoad(t *testing.T) {
	m := NewMetrics()
	m.RecordLoad("consolidated", "success", 5*time.Millisecond, 7, 3)
	m.RecordLoad("hierarchical", "error", time.Millisecond, 0, 0)

	if got := testutil.ToFloat64(m.LoadsTotal.WithLabelValues("consolidated", "success")); got != 1 {
		t.Errorf("Expected 1 consolidated load, got %v", got)
	}
	if got := testutil.ToFloat64(m.VariablesDiscovered); got != 7 {
		t.Errorf("Expected 7 variables, got %v", got)
	}
	if got := testutil.ToFloat64(m.DimensionsInferred); got != 3 {
		t.Errorf("Expected failed load to keep 3 dimensions, got %v", got)
	}
}

func TestRecordIssuesAndReads(t *testing.T) {
	m := NewMetrics()
	m.RecordIssues(4, 2, 1)
	m.RecordIssues(1, 0, 0)
	m.RecordSampleRead("success")
	m.RecordSampleRead("error")
	m.RecordSampleRead("success")

	if got := testutil.ToFloat64(m.IssuesTotal.WithLabelValues("info")); got != 5 {
		t.Errorf("Expected 5 info issues, got %v", got)
	}
	if got := testutil.ToFloat64(m.SampleReadsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("Expected 2 successful reads, got %v", got)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RecordGrpcRequest("/zarrdump.v1.Inspector/Check", "success", time.Millisecond)

	if got := testutil.ToFloat64(b.GrpcRequestsTotal.WithLabelValues("/zarrdump.v1.Inspector/Check", "success")); got != 0 {
		t.Errorf("Expected second registry to be untouched, got %v", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewMetrics()
	m.RecordSampleRead("success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), `zarrdump_sample_reads_total{status="success"} 1`) {
		t.Errorf("Expected sample read counter in output, got:\n%s", rec.Body.String())
	}
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordLoad("v3", "success", time.Millisecond, 2, 1)

	path := filepath.Join(t.TempDir(), "zarrdump.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `zarrdump_loads_total{status="success",strategy="v3"} 1`) {
		t.Errorf("Expected load counter in textfile, got:\n%s", data)
	}
}

func TestTrackUptimeStopsOnCancel(t *testing.T) {
	m := NewMetrics()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.TrackUptime(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TrackUptime did not return after cancel")
	}
}
