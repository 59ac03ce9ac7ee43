// Package power fetches daily temperature extremes from the NASA POWER
// temporal daily point API in bounded date-range blocks.
package power

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/agroclim/gdd-tracker/internal/config"
	"github.com/agroclim/gdd-tracker/internal/domain"
	"github.com/agroclim/gdd-tracker/internal/observability"
)

const (
	paramTMax = "T2M_MAX"
	paramTMin = "T2M_MIN"

	// POWER reports -999 for days with no data yet (typically the most
	// recent days). Such days are omitted from the block.
	fillValue = -999.0

	dateLayout = "20060102"
)

// Client implements engine.BlockFetcher against NASA POWER, with bounded
// retry, backoff between attempts, and a circuit breaker shared across runs.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxAttempts int
	backoff     time.Duration
	maxBackoff  time.Duration
	breaker     *gobreaker.CircuitBreaker
	metrics     *observability.Metrics
	logger      *slog.Logger
	sink        domain.ProgressSink
}

// NewClient creates a POWER client from service configuration.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	maxAttempts := cfg.PowerMaxAttempts
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "nasa-power",
		Interval: time.Minute,
		Timeout:  2 * time.Minute,
		// Trip only after more consecutive failures than a single fetch
		// can produce, so one fetch's retry semantics are unaffected.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > uint32(2*maxAttempts)
		},
	})

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.PowerTimeout},
		baseURL:     cfg.PowerBaseURL,
		maxAttempts: maxAttempts,
		backoff:     cfg.PowerBackoff,
		maxBackoff:  cfg.PowerMaxBackoff,
		breaker:     breaker,
		metrics:     metrics,
		logger:      logger,
		sink:        domain.NopSink{},
	}
}

// WithSink returns a view of the client that reports retry attempts to the
// given sink. The underlying transport, breaker, and metrics are shared.
func (c *Client) WithSink(sink domain.ProgressSink) *Client {
	if sink == nil {
		return c
	}
	view := *c
	view.sink = sink
	return &view
}

// FetchRange fetches one inclusive date-range block of daily observations,
// ordered ascending by date. Transient failures (5xx, network errors) are
// retried up to the attempt bound with backoff; anything else fails
// immediately. The returned error is always a *domain.RemoteError carrying
// the last observed status and cause.
func (c *Client) FetchRange(ctx context.Context, lat, lon float64, start, end time.Time) ([]domain.Observation, error) {
	reqURL := c.requestURL(lat, lon, start, end)

	var last attemptError
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &domain.RemoteError{Attempts: attempt - 1, Err: err}
		}

		body, aerr := c.attempt(ctx, reqURL)
		if aerr == nil {
			obs, perr := parseObservations(body)
			if perr != nil {
				c.metrics.FetchErrors.WithLabelValues("malformed").Inc()
				return nil, &domain.RemoteError{Status: http.StatusOK, Attempts: attempt, Err: perr}
			}
			return obs, nil
		}

		last = *aerr
		if !aerr.transient {
			c.metrics.FetchErrors.WithLabelValues("status").Inc()
			return nil, &domain.RemoteError{Status: aerr.status, Attempts: attempt, Err: aerr.err}
		}
		if attempt == c.maxAttempts {
			break
		}

		c.metrics.FetchRetries.Inc()
		c.sink.FetchRetried(attempt, c.maxAttempts, aerr.err)
		c.logger.Warn("transient POWER failure, retrying",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"status", aerr.status,
			"error", aerr.err,
		)
		if !sleepWithContext(ctx, backoffFor(attempt, c.backoff, c.maxBackoff)) {
			return nil, &domain.RemoteError{Status: aerr.status, Attempts: attempt, Err: ctx.Err()}
		}
	}

	c.metrics.FetchErrors.WithLabelValues("transient").Inc()
	return nil, &domain.RemoteError{Status: last.status, Attempts: c.maxAttempts, Err: last.err}
}

// attemptError classifies a single failed attempt.
type attemptError struct {
	status    int // 0 for network-level failures
	transient bool
	err       error
}

func (e *attemptError) Error() string { return e.err.Error() }

// attempt performs one HTTP round trip through the circuit breaker and
// returns the response body on success.
func (c *Client) attempt(ctx context.Context, reqURL string) ([]byte, *attemptError) {
	result, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, &attemptError{err: fmt.Errorf("create request: %w", err)}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &attemptError{transient: true, err: fmt.Errorf("power request: %w", err)}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &attemptError{
				status:    resp.StatusCode,
				transient: true,
				err:       fmt.Errorf("power server error: status %d: %s", resp.StatusCode, body),
			}
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &attemptError{
				status: resp.StatusCode,
				err:    fmt.Errorf("power API error: status %d: %s", resp.StatusCode, body),
			}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &attemptError{transient: true, err: fmt.Errorf("read response: %w", err)}
		}
		return body, nil
	})
	if err != nil {
		var aerr *attemptError
		if errors.As(err, &aerr) {
			return nil, aerr
		}
		// Breaker open: no request was made; treat as transient so the
		// terminal error reports exhausted retries.
		return nil, &attemptError{transient: true, err: err}
	}
	return result.([]byte), nil
}

func (c *Client) requestURL(lat, lon float64, start, end time.Time) string {
	params := url.Values{
		"start":      {domain.Day(start).Format(dateLayout)},
		"end":        {domain.Day(end).Format(dateLayout)},
		"latitude":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(lon, 'f', -1, 64)},
		"community":  {"AG"},
		"parameters": {paramTMax + "," + paramTMin},
		"format":     {"JSON"},
	}
	return c.baseURL + "?" + params.Encode()
}

// parseObservations decodes a POWER daily-point response into observations
// for every date present in both parameter maps, ascending. Days carrying
// the POWER fill value are skipped.
func parseObservations(body []byte) ([]domain.Observation, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	tmax, okMax := resp.Properties.Parameter[paramTMax]
	tmin, okMin := resp.Properties.Parameter[paramTMin]
	if !okMax || !okMin {
		return nil, fmt.Errorf("%w: missing %s/%s parameter maps", domain.ErrMalformedResponse, paramTMax, paramTMin)
	}

	keys := make([]string, 0, len(tmax))
	for k := range tmax {
		if _, ok := tmin[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys) // YYYYMMDD sorts chronologically

	obs := make([]domain.Observation, 0, len(keys))
	for _, k := range keys {
		date, err := time.Parse(dateLayout, k)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date key %q", domain.ErrMalformedResponse, k)
		}
		if tmax[k] == fillValue || tmin[k] == fillValue {
			continue
		}
		obs = append(obs, domain.Observation{
			Date: domain.Day(date),
			TMax: tmax[k],
			TMin: tmin[k],
		})
	}
	return obs, nil
}

func backoffFor(attempt int, initial, maxBackoff time.Duration) time.Duration {
	d := initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// POWER API response shape (subset).

type response struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}
