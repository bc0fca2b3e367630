/* models.go
 * Contains the types used by the web server
 * Authors: Zachary Bower
 */

package web

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"survivor-pool/api/api"
	"survivor-pool/api/shared"
)

// Config holds the configuration for the web server
type Config struct {
	Addr      string
	API       *api.API
	StatusTTL time.Duration
	Logger    *logrus.Logger
	// RefreshTimeout bounds the background work started by a webhook
	RefreshTimeout time.Duration
}

// Server is the HTTP server that handles webhook and status requests
type Server struct {
	api            *api.API
	statuses       *StatusCache
	logger         *logrus.Logger
	refreshTimeout time.Duration
	background     sync.WaitGroup
}

// ResultsEvent is the body of a results webhook. A zero week means the current week
type ResultsEvent struct {
	Week  int    `json:"week"`
	Event string `json:"event"`
}

// StatusResponse is the body returned by the status endpoint
type StatusResponse struct {
	UserID  string                `json:"userId"`
	Summary string                `json:"summary"`
	Status  shared.SurvivorStatus `json:"status"`
	Cached  bool                  `json:"cached"`
}

// errorResponse is the body returned with any non 2xx status
type errorResponse struct {
	Error string `json:"error"`
}
