// Package resample invokes the external resampling routine and parses its
// tabular input/output.
package resample

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/datakite/resampled/pkg/types"
)

// Runner executes a resampling method on CSV data and returns the transformed
// CSV, or an error when the routine rejects the data.
type Runner interface {
	Resample(ctx context.Context, method types.Method, targetColumn string, rawCSV []byte) ([]byte, error)
}

// DefaultTimeout bounds a single resampling call.
const DefaultTimeout = 10 * time.Minute

// HTTPRunner calls the resampling service over HTTP. Calls run through a
// circuit breaker so a hard-down service fails fast instead of burning the
// invocation timeout on every request.
type HTTPRunner struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// RunnerOption configures an HTTPRunner.
type RunnerOption func(*HTTPRunner)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *HTTPRunner) { r.timeout = d }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) RunnerOption {
	return func(r *HTTPRunner) { r.client = c }
}

// NewHTTPRunner creates a runner against the given service base URL.
func NewHTTPRunner(baseURL string, opts ...RunnerOption) *HTTPRunner {
	r := &HTTPRunner{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "resampler",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return r
}

// Resample posts the raw CSV to the resampling service and returns the
// resampled CSV. A 4xx response means the routine rejected the supplied data
// (ProcessingError); connection failures and 5xx responses are transport
// faults.
func (r *HTTPRunner) Resample(ctx context.Context, method types.Method, targetColumn string, rawCSV []byte) ([]byte, error) {
	if r.baseURL == "" {
		return nil, fmt.Errorf("no resampler base URL configured")
	}

	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.call(ctx, method, targetColumn, rawCSV)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &types.TransportError{Op: "resampler call", Err: err}
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (r *HTTPRunner) call(ctx context.Context, method types.Method, targetColumn string, rawCSV []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/resample", bytes.NewReader(rawCSV))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("X-Resample-Method", string(method))
	req.Header.Set("X-Target-Column", targetColumn)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &types.TransportError{Op: "resampler request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.TransportError{Op: "reading resampler response", Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, &types.TransportError{
			Op:  "resampler call",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	case resp.StatusCode >= 400:
		return nil, &types.ProcessingError{
			Err: fmt.Errorf("resampling %s failed: %s", method, strings.TrimSpace(string(body))),
		}
	}
	return body, nil
}

// Column extracts the numeric values of the named column from CSV data. The
// header is matched exactly: CSV headers may legitimately begin or end with
// whitespace.
func Column(csvData []byte, name string) ([]float64, error) {
	rows, err := readCSV(csvData)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty CSV data")
	}

	col := -1
	for i, h := range rows[0] {
		if h == name {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("target column %q not found", name)
	}

	values := make([]float64, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if col >= len(row) || row[col] == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: non-numeric value %q in column %q", i+1, row[col], name)
		}
		values = append(values, v)
	}
	return values, nil
}
