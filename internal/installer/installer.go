// Package installer downloads release assets and extracts the managed
// executable from them.
package installer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/scout-sh/scoutbin/internal/registry"
)

// Download timeouts are much longer than registry metadata calls since
// asset payloads are large.
const defaultDownloadTimeout = 5 * time.Minute

// DownloadError reports a failed or empty asset download.
type DownloadError struct {
	URL    string
	Status int
	Reason string
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("installer: download %s failed: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("installer: download %s failed: %s", e.URL, e.Reason)
}

// Progress describes a download in flight. Percent is computed from the
// asset's declared size, not re-measured from the response.
type Progress struct {
	Downloaded int64
	Total      int64
	Percent    float64
}

// ProgressFunc receives progress updates as chunks arrive.
type ProgressFunc func(Progress)

// HTTPClient is the minimal HTTP capability needed for downloads.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures an Installer.
type Option func(*Installer)

// WithHTTPClient overrides the download HTTP client.
func WithHTTPClient(h HTTPClient) Option {
	return func(i *Installer) {
		if h != nil {
			i.httpClient = h
		}
	}
}

// Installer streams assets to disk and extracts executables from them.
type Installer struct {
	httpClient HTTPClient
}

// New creates an Installer with a long-timeout HTTP client.
func New(opts ...Option) *Installer {
	inst := &Installer{
		httpClient: &http.Client{Timeout: defaultDownloadTimeout},
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// Download streams the asset body to destPath, reporting progress per
// chunk against the asset's declared size. Non-2xx responses and empty
// bodies fail with a DownloadError.
func (i *Installer) Download(ctx context.Context, asset *registry.Asset, destPath string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.BrowserDownloadURL, nil)
	if err != nil {
		return fmt.Errorf("installer: build request: %w", err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("installer: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DownloadError{URL: asset.BrowserDownloadURL, Status: resp.StatusCode}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("installer: create %s: %w", destPath, err)
	}
	defer out.Close()

	reader := io.Reader(resp.Body)
	if onProgress != nil {
		reader = &progressReader{r: resp.Body, total: asset.Size, report: onProgress}
	}

	written, err := io.Copy(out, reader)
	if err != nil {
		return fmt.Errorf("installer: write %s: %w", destPath, err)
	}
	if written == 0 {
		return &DownloadError{URL: asset.BrowserDownloadURL, Reason: "empty response body"}
	}
	return out.Sync()
}

// progressReader reports cumulative progress as the body is consumed.
type progressReader struct {
	r          io.Reader
	total      int64
	downloaded int64
	report     ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.downloaded += int64(n)
		percent := 0.0
		if p.total > 0 {
			percent = float64(p.downloaded) / float64(p.total) * 100
		}
		p.report(Progress{Downloaded: p.downloaded, Total: p.total, Percent: percent})
	}
	return n, err
}
