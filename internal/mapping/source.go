package mapping

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Download retry tuning. The desired-state file is small and served from a
// web endpoint or file share; two extra attempts with a short constant
// backoff cover transient blips without stalling logon noticeably.
const (
	downloadRetries = 2
	downloadBackoff = 2 * time.Second
)

// maxDesiredStateBytes caps the desired-state download. Real lists are a
// few KB; anything beyond this is a misconfigured source URL.
const maxDesiredStateBytes = 1 << 20

// Load reads the desired-state list from src, which is either an HTTP(S)
// URL or a local/UNC file path, and parses it. The returned slice preserves
// source row order.
func Load(ctx context.Context, client *http.Client, src string, logger *slog.Logger) ([]DriveMapping, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		data []byte
		err  error
	)

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err = fetch(ctx, client, src, logger)
	} else {
		data, err = os.ReadFile(src)
	}

	if err != nil {
		return nil, fmt.Errorf("mapping: loading desired state from %s: %w", src, err)
	}

	mappings, err := ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	logger.Info("desired state loaded",
		slog.String("source", src),
		slog.Int("mappings", len(mappings)),
	)

	return mappings, nil
}

// fetch downloads the desired-state file with bounded retry. Server errors
// and transport errors are retryable; client errors (404, 403) are not —
// retrying a misconfigured URL only delays the fatal report.
func fetch(ctx context.Context, client *http.Client, url string, logger *slog.Logger) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var data []byte

	backoff := retry.WithMaxRetries(downloadRetries, retry.NewConstant(downloadBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		body, attemptErr := fetchOnce(ctx, client, url)
		if attemptErr != nil {
			logger.Warn("desired state download failed",
				slog.String("url", url),
				slog.String("error", attemptErr.Error()),
			)

			return attemptErr
		}

		data = body

		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// fetchOnce performs a single download attempt. Retryable failures are
// wrapped with retry.RetryableError.
func fetchOnce(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		// Transport-level failure — worth another attempt unless the
		// context itself is done.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, retry.RetryableError(httpErr)
		}

		return nil, httpErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDesiredStateBytes+1))
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("reading body: %w", err))
	}

	if len(data) > maxDesiredStateBytes {
		return nil, fmt.Errorf("desired-state file exceeds %d bytes", maxDesiredStateBytes)
	}

	return data, nil
}
