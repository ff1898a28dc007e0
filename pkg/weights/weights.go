// Package weights fetches classifier weight files, downloading them with
// backoff when missing. The models themselves stay opaque to this module.
package weights

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// Fetcher downloads model weight files to local paths.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// New returns a Fetcher. A nil client gets a 5-minute-timeout default, sized
// for weight archives of a few hundred megabytes.
func New(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Fetcher{client: client, logger: logger}
}

// Ensure makes sure the weight file at path exists, downloading it from url
// when absent or when force is set. It returns the path the caller should
// load.
func (f *Fetcher) Ensure(ctx context.Context, url, path string, force bool) (string, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			f.logger.Debug("weights already present", "path", path)
			return path, nil
		}
	}

	f.logger.Info("downloading model weights", "url", url, "path", path)
	err := retry.Do(
		func() error {
			return f.download(ctx, url, path)
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(250*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Warn("weights download retry", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("downloading weights from %s: %w", url, err)
	}
	return path, nil
}

func (f *Fetcher) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("building request: %w", err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		// Client errors won't heal on retry.
		return retry.Unrecoverable(fmt.Errorf("weights fetch returned %s", resp.Status))
	default:
		return fmt.Errorf("weights fetch returned %s", resp.Status)
	}

	tmp := path + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("creating weights file: %w", err))
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing weights: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing weights file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return retry.Unrecoverable(fmt.Errorf("replacing weights file: %w", err))
	}
	return nil
}
