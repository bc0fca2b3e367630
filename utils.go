/* utils.go
 * Utility functions used across the application
 * Authors: Zachary Bower
 */

package main

import (
	"context"
	"fmt"
	"strings"

	"survivor-pool/api/api"
	"survivor-pool/api/config"
	"survivor-pool/api/store"
)

// convertStrToBool converts a string of true or false into a boolean for comparisons
// Preconditions: Receives string containing either true or false (case insensitive)
// Postconditions: Returns boolean value or an error if the string is not true or false
func convertStrToBool(str string) (bool, error) {
	str = strings.TrimSpace(str)
	str = strings.ToLower(str)

	if str == "true" {
		return true, nil
	} else if str == "false" {
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean string")
}

// openStore connects to the configured store backend
// Preconditions: Receives a context and a validated config
// Postconditions: Returns the connected store, or an error if the backend is unknown or cannot be reached
func openStore(ctx context.Context, cfg config.Config) (store.Interface, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		s, err := store.NewStore(ctx, cfg.DBName, cfg.MongoURI, cfg.PoolID, cfg.Season)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendFirestore:
		s, err := store.NewFirestoreStore(ctx, cfg.FirestoreProject, cfg.PoolID, cfg.Season)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

// apiOptions maps the config onto the api's options
func apiOptions(cfg config.Config) api.Options {
	return api.Options{
		CurrentWeek:       cfg.CurrentWeek,
		CacheMaxAge:       cfg.CacheMaxAge,
		MaxRetries:        cfg.ProviderMaxRetries,
		PollInterval:      cfg.PollInterval,
		PollMaxIterations: cfg.PollMaxIterations,
		AuditConcurrency:  cfg.AuditConcurrency,
	}
}

// schedulerConfig maps the config onto the scheduler's jobs
func schedulerConfig(cfg config.Config) api.SchedulerConfig {
	return api.SchedulerConfig{
		RefreshSchedule:  cfg.RefreshSchedule,
		AuditSchedule:    cfg.AuditSchedule,
		AuditAutoCorrect: cfg.AuditAutoCorrect,
	}
}
