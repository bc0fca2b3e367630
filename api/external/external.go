/* external.go
 * Contains the ESPN scoreboard client used to fetch a week of games. Requests are rate limited and go through a
 * circuit breaker so a failing provider is not hammered while the refresh layer retries
 * Authors: Zachary Bower
 */

package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"survivor-pool/api/shared"
)

// DefaultESPNBaseURL is the public NFL scoreboard endpoint
const DefaultESPNBaseURL = "https://site.api.espn.com/apis/site/v2/sports/football/nfl/scoreboard"

// regularSeason is ESPN's seasontype for regular season games
const regularSeason = 2

type ESPNConfig struct {
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// ESPNClient implements Provider against the ESPN scoreboard api
type ESPNClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

var _ Provider = (*ESPNClient)(nil)

// NewESPNClient creates a scoreboard client.
// Preconditions: Receives client config, zero values fall back to defaults, and a logger
// Postconditions: Returns a client ready to use
func NewESPNClient(cfg ESPNConfig, logger *logrus.Logger) *ESPNClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultESPNBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	settings := gobreaker.Settings{
		Name:        "espn",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &ESPNClient{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
	}
}

// FetchWeek gets every regular season game of a week from the scoreboard.
// Preconditions: Receives a context, the season year and a week number
// Postconditions: Returns the parsed (not yet validated) games, or a ProviderUnavailable error if the request failed,
// was rate limited, or the breaker is open
func (c *ESPNClient) FetchWeek(ctx context.Context, season int, week int) ([]shared.GameResult, error) {
	if week < shared.FirstWeek || week > shared.LastWeek {
		return nil, fmt.Errorf("week %d is outside %d-%d", week, shared.FirstWeek, shared.LastWeek)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, shared.ProviderUnavailable(err, "waiting for rate limiter")
	}

	requestURL, err := c.scoreboardURL(season, week)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, requestURL)
	})
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"component": "espn",
			"season":    season,
			"week":      week,
			"error":     err,
		}).Warn("Scoreboard request failed")
		return nil, shared.ProviderUnavailable(err, "fetching week %d scoreboard", week)
	}

	games, err := ParseScoreboard(body.([]byte), week)
	if err != nil {
		return nil, shared.ProviderUnavailable(err, "parsing week %d scoreboard", week)
	}

	c.logger.WithFields(logrus.Fields{
		"component": "espn",
		"season":    season,
		"week":      week,
		"games":     len(games),
		"duration":  time.Since(start).String(),
	}).Debug("Fetched scoreboard")
	return games, nil
}

func (c *ESPNClient) scoreboardURL(season int, week int) (string, error) {
	parsedURL, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid scoreboard url: %w", err)
	}
	params := parsedURL.Query()
	params.Set("week", strconv.Itoa(week))
	params.Set("seasontype", strconv.Itoa(regularSeason))
	if season > 0 {
		params.Set("dates", strconv.Itoa(season))
	}
	parsedURL.RawQuery = params.Encode()
	return parsedURL.String(), nil
}

// get performs one request. Any non 200 response counts as a failure for the breaker
func (c *ESPNClient) get(ctx context.Context, requestURL string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", "SurvivorPool/1.0")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch scoreboard, status code: %d", response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
