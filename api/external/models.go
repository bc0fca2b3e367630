/* models.go
 * This file contains the models used by the external package when fetching data from external sources
 * Authors: Zachary Bower
 */

package external

import (
	"context"

	"survivor-pool/api/shared"
)

// Provider supplies the games of one week. Responses are untrusted and must go through ValidateGames before caching
type Provider interface {
	FetchWeek(ctx context.Context, season int, week int) ([]shared.GameResult, error)
}

// Scoreboard is the subset of the ESPN scoreboard response used to build game results
type Scoreboard struct {
	Season struct {
		Year int `json:"year"`
		Type int `json:"type"`
	} `json:"season"`
	Week struct {
		Number int `json:"number"`
	} `json:"week"`
	Events []Event `json:"events"`
}

type Event struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
	Week struct {
		Number int `json:"number"`
	} `json:"week"`
	Competitions []Competition `json:"competitions"`
}

type Competition struct {
	ID          string       `json:"id"`
	Competitors []Competitor `json:"competitors"`
	Status      EventStatus  `json:"status"`
}

type Competitor struct {
	ID       string `json:"id"`
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Winner   bool   `json:"winner"`
	Team     struct {
		ID           string `json:"id"`
		Abbreviation string `json:"abbreviation"`
		DisplayName  string `json:"displayName"`
	} `json:"team"`
}

type EventStatus struct {
	Type struct {
		Name      string `json:"name"`
		State     string `json:"state"`
		Completed bool   `json:"completed"`
		Detail    string `json:"detail"`
	} `json:"type"`
}

// Rejection is a provider game that failed validation and was not cached
type Rejection struct {
	Game   shared.GameResult
	Reason string
}
