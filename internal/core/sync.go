package core

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sync providers.
const (
	ProviderMailchimp = "mailchimp"
	ProviderPowerApps = "powerapps"
)

// SyncResult summarizes one push to an external provider.
type SyncResult struct {
	Provider string `json:"provider"`
	Total    int    `json:"total"`
	Synced   int    `json:"synced"`
	Failed   int    `json:"failed"`
}

// SyncLog is a persisted record of a sync run.
type SyncLog struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Status      string    `json:"status"`
	SyncedCount int       `json:"synced_count"`
	ErrorCount  int       `json:"error_count"`
	Message     *string   `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunSync pushes the active donor list to a provider once, with no
// retries, and records the outcome in sync_logs.
func (s *Service) RunSync(ctx context.Context, provider string) (*SyncResult, error) {
	var result *SyncResult
	var runErr error

	switch provider {
	case ProviderMailchimp:
		result, runErr = s.syncMailchimp(ctx)
	case ProviderPowerApps:
		result, runErr = s.syncPowerApps(ctx)
	default:
		return nil, fmt.Errorf("unknown sync provider %q", provider)
	}

	status := "complete"
	var message *string
	if runErr != nil {
		status = "failed"
		msg := runErr.Error()
		message = &msg
		result = &SyncResult{Provider: provider}
	} else if result.Failed > 0 {
		status = "partial"
	}

	if err := s.recordSync(ctx, provider, status, result, message); err != nil {
		return nil, err
	}

	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

func (s *Service) recordSync(ctx context.Context, provider, status string, r *SyncResult, message *string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_logs (provider, status, synced_count, error_count, message)
		VALUES ($1, $2, $3, $4, $5)`,
		provider, status, r.Synced, r.Failed, message)
	if err != nil {
		return fmt.Errorf("record sync: %w", err)
	}
	return nil
}

// ListSyncLogs returns the most recent sync runs, newest first.
func (s *Service) ListSyncLogs(ctx context.Context, limit int) ([]*SyncLog, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, provider, status, synced_count, error_count, message, created_at
		FROM sync_logs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}
	defer rows.Close()

	logs := []*SyncLog{}
	for rows.Next() {
		var l SyncLog
		if err := rows.Scan(&l.ID, &l.Provider, &l.Status, &l.SyncedCount,
			&l.ErrorCount, &l.Message, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// syncMailchimp upserts every active donor with an email address into
// the configured audience. Upserting by subscriber hash makes the push
// idempotent on the Mailchimp side.
func (s *Service) syncMailchimp(ctx context.Context) (*SyncResult, error) {
	cfg := s.cfg.Sync
	if cfg.MailchimpAPIKey == "" || cfg.MailchimpListID == "" {
		return nil, errors.New("mailchimp is not configured")
	}

	donors, err := s.donorsForExport(ctx, FilterSet{
		MatchType: MatchAll,
		Rules:     []FilterRule{{Field: "is_active", Operator: OpEq, Value: "true"}},
	}, "")
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Provider: ProviderMailchimp}
	for _, d := range donors {
		email := strings.TrimSpace(deref(d.Email))
		if email == "" {
			continue
		}
		result.Total++

		url := fmt.Sprintf("%s/lists/%s/members/%s",
			s.mailchimpBaseURL, cfg.MailchimpListID, subscriberHash(email))

		body, err := json.Marshal(mailchimpMember(d, email))
		if err != nil {
			result.Failed++
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
		if err != nil {
			result.Failed++
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth("anystring", cfg.MailchimpAPIKey)

		if err := s.doSync(req); err != nil {
			result.Failed++
			continue
		}
		result.Synced++
	}

	return result, nil
}

// mailchimpMember is the audience upsert payload.
func mailchimpMember(d *Donor, email string) map[string]any {
	return map[string]any{
		"email_address": email,
		"status_if_new": "subscribed",
		"merge_fields": map[string]string{
			"FNAME": deref(d.FirstName),
			"LNAME": deref(d.LastName),
			"PHONE": deref(d.Phone),
		},
	}
}

// subscriberHash is Mailchimp's member key: MD5 of the lowercased email.
func subscriberHash(email string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(strings.ToLower(email))))
}

// syncPowerApps forwards every active donor to the configured webhook.
func (s *Service) syncPowerApps(ctx context.Context) (*SyncResult, error) {
	cfg := s.cfg.Sync
	if cfg.PowerAppsWebhookURL == "" {
		return nil, errors.New("powerapps is not configured")
	}

	donors, err := s.donorsForExport(ctx, FilterSet{
		MatchType: MatchAll,
		Rules:     []FilterRule{{Field: "is_active", Operator: OpEq, Value: "true"}},
	}, "")
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Provider: ProviderPowerApps}
	for _, d := range donors {
		result.Total++

		body, err := json.Marshal(map[string]any{
			"source":    "citykid-crm",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"data":      d,
		})
		if err != nil {
			result.Failed++
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			cfg.PowerAppsWebhookURL, bytes.NewReader(body))
		if err != nil {
			result.Failed++
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		if err := s.doSync(req); err != nil {
			result.Failed++
			continue
		}
		result.Synced++
	}

	return result, nil
}

// doSync executes one provider call and maps non-2xx responses to errors.
func (s *Service) doSync(req *http.Request) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("provider returned %s", resp.Status)
	}
	return nil
}
