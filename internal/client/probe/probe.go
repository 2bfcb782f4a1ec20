// Package probe checks whether a document URL still resolves.
package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/gojektech/heimdall/v6"
	"github.com/gojektech/heimdall/v6/httpclient"
)

const DefaultTimeout = 5 * time.Second

// Prober reports whether url answers a HEAD request with a 2xx status.
type Prober interface {
	Exists(ctx context.Context, url string) bool
}

// HTTPProber never retries. Any transport error or non-2xx status counts as
// missing.
type HTTPProber struct {
	client heimdall.Doer
}

// NewHTTPProber builds a prober. With safeMode on, requests to private,
// loopback and link-local addresses are refused at dial time.
func NewHTTPProber(timeout time.Duration, safeMode bool) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := []httpclient.Option{
		httpclient.WithHTTPTimeout(timeout),
		httpclient.WithRetryCount(0),
	}
	if safeMode {
		cfg := safeurl.GetConfigBuilder().
			SetTimeout(timeout).
			SetAllowedSchemes("http", "https").
			Build()
		opts = append(opts, httpclient.WithHTTPClient(safeurl.Client(cfg).Client))
	}

	return &HTTPProber{client: httpclient.NewClient(opts...)}
}

func (p *HTTPProber) Exists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return false
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
