package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/spypry/spypry/internal/api"
)

// ScanPhase is the orchestrator's state: idle until the first scan, scanning
// while one runs, then results or error.
type ScanPhase string

const (
	PhaseIdle     ScanPhase = "idle"
	PhaseScanning ScanPhase = "scanning"
	PhaseResults  ScanPhase = "results"
	PhaseError    ScanPhase = "error"
)

// ScanSteps is the fixed progress label sequence shown while a scan runs.
// The labels advance on a timer independent of the real network call and cap
// at the last entry until the scan settles.
var ScanSteps = []string{
	"Connecting to your inbox",
	"Searching for signup emails",
	"Identifying companies",
	"Checking how recently they wrote",
	"Putting your results together",
}

type scanState struct {
	phase     ScanPhase
	step      int
	companies []api.Company
	err       string
	run       *scanRun
}

// scanRun owns one scan's progress ticker. halt is safe to call from every
// exit path (success, failure, supersession, controller teardown); the
// ticker goroutine must never outlive the scan that started it.
type scanRun struct {
	stop chan struct{}
	once sync.Once
}

func (r *scanRun) halt() {
	r.once.Do(func() { close(r.stop) })
}

// StartScan begins a mailbox scan. It is rejected with ErrNotConnected, with
// no state change, unless the mailbox is linked, and with ErrScanInProgress
// while a scan is already running. The call returns immediately; the scan and
// its progress ticker run in the background and consumers follow along via
// Snapshot.
func (c *Controller) StartScan() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if c.scan.phase == PhaseScanning {
		c.mu.Unlock()
		return ErrScanInProgress
	}

	run := &scanRun{stop: make(chan struct{})}
	c.scan.phase = PhaseScanning
	c.scan.step = 0
	c.scan.err = ""
	c.scan.run = run
	c.mu.Unlock()

	go c.advanceProgress(run)
	go c.runScan(run)
	return nil
}

// advanceProgress moves the progress label forward on a fixed interval,
// capped at the last label, until the run is halted.
func (c *Controller) advanceProgress(run *scanRun) {
	ticker := time.NewTicker(c.progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-run.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.scan.run == run && c.scan.phase == PhaseScanning && c.scan.step < len(ScanSteps)-1 {
				c.scan.step++
			}
			c.mu.Unlock()
		}
	}
}

// runScan performs the real network call and reconciles with the progress
// ticker: whichever way the call settles, the ticker is torn down before the
// terminal state becomes visible.
func (c *Controller) runScan(run *scanRun) {
	ctx, cancel := context.WithTimeout(context.Background(), c.scanTimeout)
	defer cancel()

	companies, err := c.api.Scan(ctx)

	c.mu.Lock()
	if c.scan.run != run {
		// Superseded by logout/teardown; discard.
		c.mu.Unlock()
		run.halt()
		return
	}
	run.halt()
	if err != nil {
		c.scan.phase = PhaseError
		c.scan.err = err.Error()
	} else {
		c.scan.step = len(ScanSteps) - 1
		c.scan.companies = companies
		c.scan.phase = PhaseResults
	}
	hook := c.scanHook
	c.mu.Unlock()

	if hook != nil {
		hook(companies, err)
	}
}

// RetryScan re-enters scanning from scratch after a failure.
func (c *Controller) RetryScan() error { return c.StartScan() }

// BackToResults leaves the error state and shows whatever company list was
// previously held, which may be stale or empty.
func (c *Controller) BackToResults() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scan.phase == PhaseError {
		c.scan.phase = PhaseResults
		c.scan.err = ""
	}
}

// WaitForScan blocks until the current scan settles or ctx expires, polling
// the orchestrator state. Convenience for CLI callers.
func (c *Controller) WaitForScan(ctx context.Context) (ScanPhase, error) {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		c.mu.Lock()
		phase := c.scan.phase
		c.mu.Unlock()
		if phase != PhaseScanning {
			return phase, nil
		}

		select {
		case <-ctx.Done():
			return PhaseScanning, ctx.Err()
		case <-tick.C:
		}
	}
}

// Companies returns a copy of the most recent scan's company list.
func (c *Controller) Companies() []api.Company {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.Company(nil), c.scan.companies...)
}
