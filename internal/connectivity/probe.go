package connectivity

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/angelmondragon/marco-pos/pkg/config"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

const (
	DefaultProbeURL      = "https://www.gstatic.com/generate_204"
	DefaultProbeTimeout  = 3 * time.Second
	DefaultProbeInterval = 15 * time.Second
)

// ProbeSource decides connectivity by fetching a reachability URL. Any 2xx answer
// means online; errors, timeouts and other statuses mean offline.
type ProbeSource struct {
	url      string
	timeout  time.Duration
	interval time.Duration
	client   *http.Client
	logg     *logger.Logger
}

type ProbeOption func(*ProbeSource)

func WithHTTPClient(client *http.Client) ProbeOption {
	return func(p *ProbeSource) {
		if client != nil {
			p.client = client
		}
	}
}

func WithLogger(logg *logger.Logger) ProbeOption {
	return func(p *ProbeSource) {
		if logg != nil {
			p.logg = logg
		}
	}
}

func NewProbeSource(cfg config.ConnectivityConfig, opts ...ProbeOption) *ProbeSource {
	p := &ProbeSource{
		url:      cfg.ProbeURL,
		timeout:  cfg.ProbeTimeout,
		interval: cfg.ProbeInterval,
		logg:     logger.Nop(),
	}
	if p.url == "" {
		p.url = DefaultProbeURL
	}
	if p.timeout <= 0 {
		p.timeout = DefaultProbeTimeout
	}
	if p.interval <= 0 {
		p.interval = DefaultProbeInterval
	}
	p.client = &http.Client{Timeout: p.timeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe performs a single reachability check bounded by the probe timeout.
func (p *ProbeSource) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "probe_url", p.url), "connectivity probe request invalid")
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logg.Debug(p.logg.WithField(ctx, "error", err.Error()), "connectivity probe failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (p *ProbeSource) Current(ctx context.Context) bool {
	return p.Probe(ctx)
}

// Watch probes once per interval and reports every result; the Monitor collapses
// repeats. The channel closes when ctx is done.
func (p *ProbeSource) Watch(ctx context.Context) <-chan bool {
	out := make(chan bool)
	go func() {
		defer close(out)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				online := p.Probe(ctx)
				select {
				case out <- online:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
