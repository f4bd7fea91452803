package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.Submission(OutcomeSuccess)
	r.Submission(OutcomeSuccess)
	r.Submission(OutcomeTransport)
	r.SetRemaining(2)
	r.ResultsClamped()
	r.ObserveRequest(1500 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.submissions.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.submissions.WithLabelValues(OutcomeTransport)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.remainingRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resultsClamped))
	assert.Equal(t, 1, testutil.CollectAndCount(r.requestDuration))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Submission(OutcomeSuccess)
		r.SetRemaining(1)
		r.ResultsClamped()
		r.ObserveRequest(time.Second)
	})
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Submission(OutcomeFormat)
	r.SetRemaining(0)

	path := filepath.Join(t.TempDir(), "mapleads.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `mapleads_submissions_total{outcome="format_error"} 1`), text)
	assert.True(t, strings.Contains(text, "mapleads_remaining_runs 0"), text)
}
