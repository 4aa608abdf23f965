package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

const owmBaseURL = "https://api.openweathermap.org/data/3.0/onecall"

type owmDaily struct {
	Dt   int64   `json:"dt"`
	Rain float64 `json:"rain"`
}

type owmResp struct {
	Daily []owmDaily `json:"daily"`
}

// OWMClient fetches the daily forecast from the OpenWeather One Call API.
// Transient failures are retried with exponential backoff; a run of
// consecutive failures trips a circuit breaker so a dead upstream fails
// fast instead of stalling the gate.
type OWMClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewOWMClient(apiKey string) *OWMClient {
	return &OWMClient{
		apiKey:  apiKey,
		baseURL: owmBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "openweather",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Daily implements Provider. The returned sequence starts at today.
func (c *OWMClient) Daily(ctx context.Context, loc Location) ([]Day, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openweather: missing api key")
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		var days []Day
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 500 * time.Millisecond
		op := func() error {
			d, err := c.fetch(ctx, loc)
			if err != nil {
				return err
			}
			days = d
			return nil
		}
		if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx)); err != nil {
			return nil, err
		}
		return days, nil
	})
	if err != nil {
		return nil, fmt.Errorf("openweather: %w", err)
	}
	return res.([]Day), nil
}

func (c *OWMClient) fetch(ctx context.Context, loc Location) ([]Day, error) {
	url := fmt.Sprintf("%s?lat=%f&lon=%f&exclude=current,minutely,hourly,alerts&units=metric&appid=%s",
		c.baseURL, loc.Latitude, loc.Longitude, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}

	var out owmResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Daily) == 0 {
		return nil, fmt.Errorf("no daily data in response")
	}

	days := make([]Day, 0, len(out.Daily))
	for _, d := range out.Daily {
		days = append(days, Day{PrecipitationMM: d.Rain})
	}
	return days, nil
}
