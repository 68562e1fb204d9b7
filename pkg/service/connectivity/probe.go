package connectivity

import (
	"context"
	"net/http"
	"time"

	"github.com/hearthlist/relay/pkg/utils/logging"
	"github.com/hearthlist/relay/pkg/utils/safe"
)

// Probe derives connectivity from periodic HEAD requests against a health
// endpoint of the remote API. It feeds a Signal, so subscribers see the
// same transition interface regardless of how state is detected.
type Probe struct {
	*Signal
	url        string
	interval   time.Duration
	httpClient *http.Client
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewProbe creates a probe against the given URL. The probe starts
// offline until the first successful check.
func NewProbe(url string, interval time.Duration) *Probe {
	return &Probe{
		Signal:   NewSignal(false),
		url:      url,
		interval: interval,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background probe loop. Does not block.
func (p *Probe) Start(ctx context.Context) {
	logging.From(ctx).Info("connectivity probe starting",
		"url", p.url, "interval", p.interval.String())
	go p.run(ctx)
}

// Stop signals the probe to stop and waits for completion
func (p *Probe) Stop() {
	close(p.stopCh)
	<-p.doneCh
}

func (p *Probe) run(ctx context.Context) {
	defer close(p.doneCh)

	p.Set(p.check(ctx))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Set(p.check(ctx))
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Probe) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		logging.From(ctx).Error("failed to build probe request", "url", p.url, "error", err.Error())
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer safe.Close(ctx, resp.Body)

	return resp.StatusCode < 500
}
