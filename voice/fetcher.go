package voice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	fetchTimeout = 30 * time.Second

	// maxClipSize caps a single download. Voice messages are short; a
	// response bigger than this is not one.
	maxClipSize = 64 << 20
)

// HTTPFetcher downloads clips over HTTP into a spool directory. Remote
// requests go through a shared rate limiter so a burst of presses across
// many messages doesn't hammer the media host. Local paths (no URL
// scheme) are copied instead of downloaded, so the original file
// survives the cache's rename-based store.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	tempDir string
	logger  *log.Logger
}

// NewHTTPFetcher creates a fetcher spooling into tempDir. tempDir should
// live on the same filesystem as the cache so storing a fetched file is a
// rename, not a copy.
func NewHTTPFetcher(tempDir string) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: fetchTimeout},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 4),
		tempDir: tempDir,
		logger:  log.Default().With("component", "fetcher"),
	}
}

// Fetch resolves ref into a complete temporary file and returns its path.
// On any error the temp file is removed before returning.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref MediaRef) (string, error) {
	if !ref.HasIdentity() {
		return "", ErrNoIdentity
	}

	if isRemote(ref.Locator) {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return f.download(ctx, ref)
	}
	return f.copyLocal(ref.Locator)
}

func isRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

func (f *HTTPFetcher) download(ctx context.Context, ref MediaRef) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.Locator, nil)
	if err != nil {
		return "", err
	}
	if ref.MimeType != "" {
		req.Header.Set("Accept", ref.MimeType)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	path, err := f.spool(io.LimitReader(resp.Body, maxClipSize+1))
	if err != nil {
		return "", err
	}

	f.logger.Debug("clip downloaded",
		"url", ref.Locator,
		"elapsed", time.Since(start))
	return path, nil
}

func (f *HTTPFetcher) copyLocal(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close() //nolint:errcheck
	return f.spool(in)
}

// spool drains r into a fresh temp file, removing it on any failure so a
// partial file is never handed to the caller.
func (f *HTTPFetcher) spool(r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(f.tempDir, "fetch-*.audio")
	if err != nil {
		return "", err
	}

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > maxClipSize {
		err = fmt.Errorf("clip exceeds %d bytes", int64(maxClipSize))
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
