package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"net/http"
	"time"
)

const (
	// maxLineSize bounds a single streamed line.
	maxLineSize = 1 << 20
	// maxErrorBody caps how much of a non-2xx body is echoed into errors.
	maxErrorBody = 4 << 10
)

// ResponseHeaderTimeout is how long adapters wait for a vendor to start
// answering. Local models that generate before replying need longer.
const ResponseHeaderTimeout = 2 * time.Minute

// NewHTTPClient returns a client without an overall deadline: connection setup
// and the wait for response headers are bounded, while the body (a stream
// that may run for minutes) is bounded only by the request context.
func NewHTTPClient(headerTimeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
			ResponseHeaderTimeout: headerTimeout,
		},
	}
}

// Header is a single request header.
type Header struct {
	Key   string
	Value string
}

// Bearer builds an Authorization bearer header.
func Bearer(token string) Header {
	return Header{Key: "Authorization", Value: "Bearer " + token}
}

// PostJSON sends body as JSON and decodes a 2xx response into out.
func PostJSON(ctx context.Context, client *http.Client, url string, body, out any, headers ...Header) error {
	resp, err := post(ctx, client, url, body, "application/json", headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// PostStream sends body as JSON and returns the response with its body open.
// The caller closes the body.
func PostStream(ctx context.Context, client *http.Client, url string, body any, headers ...Header) (*http.Response, error) {
	return post(ctx, client, url, body, "text/event-stream", headers)
}

func post(ctx context.Context, client *http.Client, url string, body any, accept string, headers []Header) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return resp, nil
}

// Lines yields each non-empty line of r. The byte slice is a fresh copy.
func Lines(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			line := bytes.TrimRight(sc.Bytes(), "\r")
			if len(line) == 0 {
				continue
			}
			if !yield(bytes.Clone(line), nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(nil, fmt.Errorf("read stream: %w", err))
		}
	}
}

// Batches yields what each read of r delivers, cut back to the last complete
// line; the partial tail is carried into the next batch. A batch may therefore
// hold several lines. The byte slice is a fresh copy.
func Batches(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, 32*1024)
		var pending []byte
		for {
			n, err := r.Read(buf)
			if n > 0 {
				pending = append(pending, buf[:n]...)
				if i := bytes.LastIndexByte(pending, '\n'); i >= 0 {
					batch := bytes.Clone(pending[:i+1])
					pending = append(pending[:0], pending[i+1:]...)
					if !yield(batch, nil) {
						return
					}
				} else if len(pending) > maxLineSize {
					yield(nil, fmt.Errorf("read stream: line exceeds %d bytes", maxLineSize))
					return
				}
			}
			if errors.Is(err, io.EOF) {
				if len(pending) > 0 {
					yield(bytes.Clone(pending), nil)
				}
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read stream: %w", err))
				return
			}
		}
	}
}

// SSEData returns the payload of an SSE "data:" line and whether it was one.
func SSEData(line []byte) ([]byte, bool) {
	rest, ok := bytes.CutPrefix(line, []byte("data:"))
	if !ok {
		return nil, false
	}
	return bytes.TrimSpace(rest), true
}

// Failed yields a single error, for adapters that fail before streaming.
func Failed(err error) iter.Seq2[RawEvent, error] {
	return func(yield func(RawEvent, error) bool) {
		yield(RawEvent{}, err)
	}
}
