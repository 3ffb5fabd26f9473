package workflow

import (
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spypry/spypry/internal/api"
)

func scanCompanies() []map[string]any {
	return []map[string]any{
		{
			"domain":     "netflix.com",
			"confidence": "high",
			"evidence":   []string{"welcome", "receipt"},
			"lastSeen":   "2026-08-01T10:00:00Z",
			"count":      12,
		},
		{
			"domain":      "acme.com",
			"displayName": "Acme Corp",
			"confidence":  "medium",
			"evidence":    []string{"login_alert"},
			"lastSeen":    "2026-07-15T09:30:00Z",
			"count":       3,
		},
	}
}

func TestScanRejectedWhileDisconnected(t *testing.T) {
	b := newBackendStub(t)
	b.handle("/gmail/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"connected": false})
	})
	c := newTestController(t, b)

	err := c.StartScan()
	require.ErrorIs(t, err, ErrNotConnected)

	st := c.Snapshot()
	assert.Equal(t, PhaseIdle, st.Scan.Phase, "rejected scan leaves state untouched")
	assert.Equal(t, 0, b.count("/gmail/scan"), "precondition checked before any network call")
}

func TestScanRejectedWhileRunning(t *testing.T) {
	b := newBackendStub(t)
	release := make(chan struct{})
	b.handle("/gmail/scan", func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, scanCompanies())
	})
	c := newTestController(t, b)

	require.NoError(t, c.StartScan())
	err := c.StartScan()
	assert.ErrorIs(t, err, ErrScanInProgress)

	close(release)
	waitForPhase(t, c, PhaseResults)
	assert.Equal(t, 1, b.count("/gmail/scan"))
}

func TestScanSuccessKeepsBackendOrder(t *testing.T) {
	b := newBackendStub(t)
	b.handle("/gmail/scan", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, scanCompanies())
	})
	c := newTestController(t, b)

	require.NoError(t, c.StartScan())
	st := waitForPhase(t, c, PhaseResults)

	require.Len(t, st.Scan.Companies, 2)
	assert.Equal(t, "netflix.com", st.Scan.Companies[0].Domain)
	assert.Equal(t, "acme.com", st.Scan.Companies[1].Domain)
	assert.Equal(t, api.ConfidenceHigh, st.Scan.Companies[0].Confidence)
	assert.Equal(t, 12, st.Scan.Companies[0].Count)
	assert.Empty(t, st.Scan.Err)
}

func TestScanProgressAdvancesAndEndsOnFinalStep(t *testing.T) {
	b := newBackendStub(t)
	b.handle("/gmail/scan", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(60 * time.Millisecond)
		writeJSON(w, scanCompanies())
	})
	c := newTestController(t, b)

	require.NoError(t, c.StartScan())

	// With a 5ms interval and a 60ms backend, the label must visibly move
	// while the call is still in flight.
	sawAdvance := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := c.Snapshot()
		if st.Scan.Phase == PhaseScanning && st.Scan.Step > 0 {
			sawAdvance = true
			break
		}
		if st.Scan.Phase != PhaseScanning {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.True(t, sawAdvance, "progress label should advance while the scan runs")

	st := waitForPhase(t, c, PhaseResults)
	assert.Equal(t, len(ScanSteps)-1, st.Scan.Step, "results always land on the final label")
	assert.Equal(t, ScanSteps[len(ScanSteps)-1], st.Scan.StepLabel)
}

func TestScanProgressCapsAtLastLabel(t *testing.T) {
	b := newBackendStub(t)
	release := make(chan struct{})
	b.handle("/gmail/scan", func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, scanCompanies())
	})
	c := newTestController(t, b)

	require.NoError(t, c.StartScan())

	// Give the ticker far more ticks than there are labels.
	time.Sleep(100 * time.Millisecond)
	st := c.Snapshot()
	assert.Equal(t, PhaseScanning, st.Scan.Phase)
	assert.Equal(t, len(ScanSteps)-1, st.Scan.Step, "label caps at the last entry")

	close(release)
	waitForPhase(t, c, PhaseResults)
}

func TestScanFailureStopsProgressTicker(t *testing.T) {
	b := newBackendStub(t)
	b.handle("/gmail/scan", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"detail": "mailbox provider unavailable"}`))
	})
	c := newTestController(t, b)

	require.NoError(t, c.StartScan())
	st := waitForPhase(t, c, PhaseError)
	assert.Contains(t, st.Scan.Err, "mailbox provider unavailable")

	// The ticker must be dead: the step may not move after the failure.
	frozen := st.Scan.Step
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, c.Snapshot().Scan.Step, "no label advance after a failed scan")
	assert.Equal(t, PhaseError, c.Snapshot().Scan.Phase)
}

func TestRetryAfterFailure(t *testing.T) {
	b := newBackendStub(t)
	var fail atomic.Bool
	fail.Store(true)
	b.handle("/gmail/scan", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, scanCompanies())
	})
	c := newTestController(t, b)

	require.NoError(t, c.StartScan())
	waitForPhase(t, c, PhaseError)

	fail.Store(false)
	require.NoError(t, c.RetryScan())
	st := waitForPhase(t, c, PhaseResults)
	assert.Len(t, st.Scan.Companies, 2)
}

func TestBackToResultsKeepsPriorList(t *testing.T) {
	b := newBackendStub(t)
	var fail atomic.Bool
	b.handle("/gmail/scan", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, scanCompanies())
	})
	c := newTestController(t, b)

	require.NoError(t, c.StartScan())
	waitForPhase(t, c, PhaseResults)

	fail.Store(true)
	require.NoError(t, c.StartScan())
	waitForPhase(t, c, PhaseError)

	c.BackToResults()
	st := c.Snapshot()
	assert.Equal(t, PhaseResults, st.Scan.Phase)
	assert.Empty(t, st.Scan.Err)
	assert.Len(t, st.Scan.Companies, 2, "the previous list survives the failed rescan")
}

func TestScanHookObservesOutcome(t *testing.T) {
	b := newBackendStub(t)
	b.handle("/gmail/scan", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, scanCompanies())
	})

	got := make(chan []api.Company, 1)
	c := newTestController(t, b, WithScanHook(func(companies []api.Company, err error) {
		if err == nil {
			got <- companies
		}
	}))

	require.NoError(t, c.StartScan())

	select {
	case companies := <-got:
		assert.Len(t, companies, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("scan hook never fired")
	}
}
