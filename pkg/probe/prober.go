package probe

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/chaosproof/chaosproof/pkg/types"
)

// Prober continuously samples the health endpoint of the target. Probing is
// fully independent of fault state: it starts before the fault, keeps going
// while the fault is active and only stops when the orchestrator collects
// the samples.
type Prober struct {
	client   *http.Client
	timeout  time.Duration
	interval time.Duration
}

// NewProber builds a prober with the given sampling interval and per-request
// timeout
func NewProber(interval, timeout time.Duration) *Prober {
	return &Prober{
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		interval: interval,
	}
}

// Handle owns the sample list of one probing session. Samples are written by
// the probing goroutine alone; readers only ever get copies until Stop
// returns the final, read-only slice.
type Handle struct {
	mu      sync.Mutex
	samples []types.ProbeSample
	stop    chan struct{}
	done    chan struct{}
	stopped bool
}

// StartProbing starts sampling the endpoint on the prober's interval until
// Stop is called on the returned handle
func (p *Prober) StartProbing(endpoint string) *Handle {
	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go p.loop(endpoint, h)
	return h
}

func (p *Prober) loop(endpoint string, h *Handle) {
	defer close(h.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.record(p.probeOnce(endpoint))
		}
	}
}

// probeOnce sends a single GET to the endpoint. Any failure, including a
// fully unreachable target, is turned into a failed sample and never an
// error.
func (p *Prober) probeOnce(endpoint string) types.ProbeSample {
	started := time.Now()
	sample := types.ProbeSample{Timestamp: started}

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		sample.LatencyMS = float64(time.Since(started).Milliseconds())
		sample.ErrorDetail = err.Error()
		return sample
	}

	resp, err := p.client.Do(req)
	elapsed := time.Since(started)
	if err != nil {
		// a request that ran into the timeout is recorded with
		// latency = timeout, not dropped
		if elapsed >= p.timeout || errors.Is(err, context.DeadlineExceeded) {
			sample.LatencyMS = float64(p.timeout.Milliseconds())
		} else {
			sample.LatencyMS = float64(elapsed.Milliseconds())
		}
		sample.ErrorDetail = err.Error()
		return sample
	}
	defer resp.Body.Close()

	sample.LatencyMS = float64(elapsed.Milliseconds())
	if resp.StatusCode >= 500 {
		sample.ErrorDetail = resp.Status
		return sample
	}
	sample.Success = true
	return sample
}

func (h *Handle) record(sample types.ProbeSample) {
	h.mu.Lock()
	h.samples = append(h.samples, sample)
	h.mu.Unlock()
}

// Snapshot returns a copy of the samples collected so far, used by the
// degradation monitor while probing is still running
func (h *Handle) Snapshot() []types.ProbeSample {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.ProbeSample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Stop ends the probing session and returns the full, timestamp-ordered
// sample list. Safe to call more than once.
func (h *Handle) Stop() []types.ProbeSample {
	h.mu.Lock()
	if !h.stopped {
		h.stopped = true
		close(h.stop)
	}
	h.mu.Unlock()

	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.samples
}
