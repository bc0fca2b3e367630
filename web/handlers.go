/* handlers.go
 * Contains the HTTP handlers for the results webhook and the survivor status endpoint
 * Authors: Zachary Bower
 */

package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"survivor-pool/api/shared"
)

// maxWebhookBody limits how much of a webhook body is read
const maxWebhookBody = 64 << 10

// NewServer creates a server and registers its status cache with the api so that status writes drop stale entries
// Preconditions: cfg.API is an initialised api
// Postconditions: Returns the server, ready to be mounted with Handler
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = cfg.API.Logger
	}
	timeout := cfg.RefreshTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	s := &Server{
		api:            cfg.API,
		statuses:       NewStatusCache(cfg.StatusTTL, nil),
		logger:         logger,
		refreshTimeout: timeout,
	}
	cfg.API.AddInvalidator(s.statuses)
	return s
}

// Handler returns the routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	// bind handler methods that have access to s.api
	mux.HandleFunc("/webhooks/results", s.ResultsWebhookHandler)
	mux.HandleFunc("/survivor/status", s.SurvivorStatusHandler)
	return mux
}

// Wait blocks until every refresh started by a webhook has finished
func (s *Server) Wait() {
	s.background.Wait()
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// ResultsWebhookHandler HTTP endpoint that receives a notification from the results provider used to kick off
// refreshing the week's results and recalculating the pool
// Preconditions: HTTP server has been started, receives HTTP ResponseWriter and Http Request
// Postconditions: Responds 202 and refreshes in the background, or responds 4xx if the request is not usable
func (s *Server) ResultsWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var event ResultsEvent
	if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody)).Decode(&event); err != nil && !errors.Is(err, io.EOF) {
		s.logger.WithFields(logrus.Fields{"component": "web", "error": err}).Warn("Failed to decode webhook")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	week := event.Week
	if week == 0 {
		week = s.api.CurrentWeek()
	}
	if week < shared.FirstWeek || week > shared.LastWeek {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("week %d is outside %d-%d", week, shared.FirstWeek, shared.LastWeek)})
		return
	}

	s.logger.WithFields(logrus.Fields{"component": "web", "week": week, "event": event.Event}).Info("Results webhook received")

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.refresh(week)
	}()

	w.WriteHeader(http.StatusAccepted)
}

// refresh fetches a week's results and recalculates the pool. Ambiguous data is stored as far as it can be and the
// pool is still recalculated
func (s *Server) refresh(week int) {
	ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
	defer cancel()
	log := s.logger.WithFields(logrus.Fields{"component": "web", "week": week})

	report, err := s.api.RefreshWeek(ctx, week)
	if err != nil && !errors.Is(err, shared.ErrDataAmbiguous) {
		log.WithField("error", err).Error("Webhook refresh failed")
		return
	}
	recalc, err := s.api.RecalculatePool(ctx)
	if err != nil {
		log.WithField("error", err).Error("Webhook recalculation failed")
		return
	}
	log.WithFields(logrus.Fields{
		"fetched":   report.Fetched,
		"rejected":  len(report.Rejected),
		"updated":   len(recalc.Updated),
		"unchanged": len(recalc.Unchanged),
		"failed":    len(recalc.Failed),
	}).Info("Webhook refresh complete")
}

// SurvivorStatusHandler HTTP endpoint that returns a member's survivor status
// Preconditions: Receives a GET request with a user query parameter
// Postconditions: Responds with the status as JSON, served from the display cache when fresh
func (s *Server) SurvivorStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user is required"})
		return
	}

	if status, ok := s.statuses.Get(userID); ok {
		writeJSON(w, http.StatusOK, StatusResponse{UserID: userID, Summary: status.Summary(), Status: status, Cached: true})
		return
	}

	status, err := s.api.CheckSurvivor(r.Context(), userID)
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, shared.ErrDataMissing):
			code = http.StatusNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			code = http.StatusServiceUnavailable
		default:
			s.logger.WithFields(logrus.Fields{"component": "web", "user_id": userID, "error": err}).Error("Status check failed")
		}
		writeJSON(w, code, errorResponse{Error: err.Error()})
		return
	}

	// Statuses carrying warnings are not cached
	if len(status.Warnings) == 0 {
		s.statuses.Put(userID, status)
	}
	writeJSON(w, http.StatusOK, StatusResponse{UserID: userID, Summary: status.Summary(), Status: status})
}
