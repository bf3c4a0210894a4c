package exif

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
)

// DefaultUserAgent is sent with every image download unless the Fetcher is
// configured otherwise.
const DefaultUserAgent = "exif-extractor-mcp"

// Fetcher downloads images over HTTP(S) under a FetchPolicy.
//
// A Fetcher holds no per-request state and is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher returns a Fetcher using client, or a fresh client when nil.
//
// The client's own Timeout is left alone; each call to Fetch applies the
// policy timeout through its context instead.
func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{client: client, userAgent: userAgent}
}

// Fetch performs exactly one GET for u and returns the body.
//
// The body is streamed through a reader capped at policy.MaxBytes+1, so no
// more than MaxBytes plus one read buffer is ever held in memory; the request
// is abandoned as soon as the cap is crossed. A declared Content-Length above
// the limit is rejected before reading anything.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL, policy FetchPolicy) ([]byte, error) {
	const op = "fetch image"

	ctx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, wrapError(KindInvalidInput, op, "cannot build request", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/jpeg, image/png;q=0.9, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, op, policy, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, newError(KindFetch, op, fmt.Sprintf("unexpected status: %s", resp.Status))
	}

	if resp.ContentLength > policy.MaxBytes {
		return nil, newError(KindPayloadTooLarge, op,
			fmt.Sprintf("remote image is %d bytes, limit is %s", resp.ContentLength, FormatBytes(policy.MaxBytes)))
	}

	initial := int64(32 * 1024)
	if resp.ContentLength > 0 {
		initial = resp.ContentLength
	}
	buf := bytes.NewBuffer(make([]byte, 0, min(initial, policy.MaxBytes)))

	// One byte past the limit proves the body is too large.
	readLimit := policy.MaxBytes
	if readLimit < math.MaxInt64 {
		readLimit++
	}
	n, err := io.Copy(buf, io.LimitReader(resp.Body, readLimit))
	if n > policy.MaxBytes {
		return nil, newError(KindPayloadTooLarge, op,
			fmt.Sprintf("remote image exceeds the %s limit", FormatBytes(policy.MaxBytes)))
	}
	if err != nil {
		return nil, classifyTransportError(ctx, op, policy, err)
	}

	return buf.Bytes(), nil
}

// classifyTransportError maps a client or body-read error to FetchTimeout or
// Fetch.
func classifyTransportError(ctx context.Context, op string, policy FetchPolicy, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return wrapError(KindFetchTimeout, op,
			fmt.Sprintf("download did not finish within %s", policy.Timeout), err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return wrapError(KindFetchTimeout, op,
			fmt.Sprintf("download did not finish within %s", policy.Timeout), err)
	}
	return wrapError(KindFetch, op, "download failed", err)
}
