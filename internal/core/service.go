// Package core implements the donor CRM domain: donor records and their
// filters, gift and interaction history, segments, CSV import sessions,
// exports and outbound sync pushes.
package core

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/citykid/crm/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service coordinates all domain operations over a shared connection pool.
type Service struct {
	pool *pgxpool.Pool
	cfg  *config.Config

	// Import sessions are held in memory only; a server restart discards
	// any import that has not finished.
	mu      sync.Mutex
	imports map[string]*ImportSession

	// inserter is the write seam the import loop goes through.
	inserter donorInserter

	// Outbound sync plumbing. baseURL fields are overridable in tests.
	httpClient       *http.Client
	mailchimpBaseURL string
}

// NewService creates a Service and starts the import-session janitor.
func NewService(pool *pgxpool.Pool, cfg *config.Config) *Service {
	s := &Service{
		pool:    pool,
		cfg:     cfg,
		imports: make(map[string]*ImportSession),
		httpClient: &http.Client{
			Timeout: cfg.Sync.RequestTimeout,
		},
		mailchimpBaseURL: "https://" + cfg.Sync.MailchimpServerPrefix + ".api.mailchimp.com/3.0",
	}
	s.inserter = s

	go s.expireImports(cfg.Import.SessionTTL)

	return s
}

// expireImports drops import sessions idle longer than ttl.
func (s *Service) expireImports(ttl time.Duration) {
	for {
		time.Sleep(time.Minute)
		cutoff := time.Now().Add(-ttl)

		s.mu.Lock()
		for id, sess := range s.imports {
			if sess.State != StateImporting && sess.LastActive.Before(cutoff) {
				delete(s.imports, id)
			}
		}
		s.mu.Unlock()
	}
}

// Ping verifies database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
