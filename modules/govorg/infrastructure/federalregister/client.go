package federalregister

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned when the API could not be reached after all
// retry attempts. The sync orchestrator treats it as "sync failed to start".
var ErrUnavailable = errors.New("federal register: source unavailable")

const initialRetryDelay = time.Second

type Config struct {
	BaseURL        string
	MinRequestGap  time.Duration
	RetryAttempts  int
	RequestTimeout time.Duration
}

// Client fetches agency records from the Federal Register API. It spaces
// consecutive outbound requests by at least MinRequestGap and retries
// transient failures with exponential backoff.
type Client struct {
	baseURL       string
	retryAttempts int
	http          *http.Client
	limiter       *rate.Limiter
	log           *logrus.Logger
}

func NewClient(cfg Config, log *logrus.Logger) *Client {
	gap := cfg.MinRequestGap
	if gap <= 0 {
		gap = 100 * time.Millisecond
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 3
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		retryAttempts: attempts,
		http:          &http.Client{Timeout: timeout},
		limiter:       rate.NewLimiter(rate.Every(gap), 1),
		log:           log,
	}
}

// FetchAll returns every agency the API knows about. On exhausted retries a
// single ErrUnavailable is returned instead of a partial result.
func (c *Client) FetchAll(ctx context.Context) ([]Agency, error) {
	body, err := c.getWithRetry(ctx, c.baseURL+"/agencies")
	if err != nil {
		return nil, err
	}

	var agencies []Agency
	if err := json.Unmarshal(body, &agencies); err != nil {
		return nil, errors.Wrap(err, "federal register: parse agencies response")
	}

	c.log.WithField("count", len(agencies)).Info("fetched agencies from federal register")
	return agencies, nil
}

// FetchAgency returns a single agency by its slug (e.g. "agriculture-department").
func (c *Client) FetchAgency(ctx context.Context, slug string) (*Agency, error) {
	body, err := c.getWithRetry(ctx, c.baseURL+"/agencies/"+slug)
	if err != nil {
		return nil, err
	}

	var agency Agency
	if err := json.Unmarshal(body, &agency); err != nil {
		return nil, errors.Wrap(err, "federal register: parse agency response")
	}
	return &agency, nil
}

// IsAvailable probes the API with a lightweight HEAD request. It reports
// reachability and never returns an error; status reporting depends on that.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/agencies", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Warn("federal register api is unavailable")
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < http.StatusInternalServerError
}

func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	delay := initialRetryDelay

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		body, retryable, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.log.WithError(err).Warnf("federal register request failed (attempt %d/%d)", attempt, c.retryAttempts)
	}

	return nil, errors.Wrapf(ErrUnavailable, "after %d attempts: %s", c.retryAttempts, lastErr)
}

// get performs a single GET. The second return value reports whether the
// failure is transient (5xx, 429, network error) and worth retrying.
func (c *Client) get(ctx context.Context, url string) ([]byte, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, err
		}
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("federal register: status %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("federal register: status %d", resp.StatusCode)
	}
}
