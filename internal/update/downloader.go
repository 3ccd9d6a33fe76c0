package update

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTPDownloader downloads binaries over HTTP
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
}

// NewHTTPDownloader creates a new HTTP downloader
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		client:    &http.Client{},
		userAgent: "deskshell-updater",
	}
}

// Download downloads a file from url to dst, reporting progress to onProgress
// whenever the whole-number percentage changes. A partial file is removed on failure.
func (d *HTTPDownloader) Download(ctx context.Context, url, dst string, onProgress ProgressFunc) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	counter := newProgressCounter(resp.ContentLength, onProgress)
	if _, err = io.Copy(out, io.TeeReader(resp.Body, counter)); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	counter.finish()

	return nil
}

// VerifyChecksum verifies the downloaded file against the checksums file at checksumURL
func (d *HTTPDownloader) VerifyChecksum(ctx context.Context, file, checksumURL string) error {
	checksums, err := d.downloadChecksums(ctx, checksumURL)
	if err != nil {
		return fmt.Errorf("failed to download checksums: %w", err)
	}

	filename := getFilename(file)
	expected, ok := checksums[filename]
	if !ok {
		return fmt.Errorf("checksum for %s not found in checksums file", filename)
	}

	actual, err := calculateSHA256(file)
	if err != nil {
		return fmt.Errorf("failed to calculate checksum: %w", err)
	}

	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}

	return nil
}

// downloadChecksums fetches a checksums.txt file ("<sha256>  <filename>" per line)
// and returns a filename to checksum map. Malformed lines are skipped.
func (d *HTTPDownloader) downloadChecksums(ctx context.Context, url string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("checksums download returned status %d", resp.StatusCode)
	}

	checksums := make(map[string]string)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) != 2 {
			continue
		}
		checksums[parts[1]] = parts[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}

	return checksums, nil
}

// calculateSHA256 returns the hex encoded SHA-256 of a file
func calculateSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

func getFilename(path string) string {
	return filepath.Base(path)
}

// progressCounter is an io.Writer that counts bytes passing through a download.
type progressCounter struct {
	total       int64
	transferred int64
	started     time.Time
	lastPercent int
	onProgress  ProgressFunc
}

func newProgressCounter(total int64, onProgress ProgressFunc) *progressCounter {
	if total < 0 {
		total = 0
	}
	return &progressCounter{
		total:       total,
		started:     time.Now(),
		lastPercent: -1,
		onProgress:  onProgress,
	}
}

func (p *progressCounter) Write(b []byte) (int, error) {
	p.transferred += int64(len(b))
	if p.total > 0 {
		if percent := int(p.transferred * 100 / p.total); percent != p.lastPercent {
			p.lastPercent = percent
			p.report()
		}
	}
	return len(b), nil
}

// finish reports completion when the final snapshot was not already sent.
func (p *progressCounter) finish() {
	if p.lastPercent == 100 {
		return
	}
	if p.total == 0 {
		p.total = p.transferred
	}
	p.lastPercent = 100
	p.report()
}

func (p *progressCounter) report() {
	if p.onProgress == nil {
		return
	}
	p.onProgress(p.snapshot())
}

func (p *progressCounter) snapshot() ProgressInfo {
	info := ProgressInfo{
		Transferred: p.transferred,
		Total:       p.total,
	}
	if p.total > 0 {
		info.Percent = float64(p.transferred) * 100 / float64(p.total)
	}
	if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
		info.BytesPerSecond = float64(p.transferred) / elapsed
	}
	return info
}
