package core

import (
	"context"
	"fmt"
)

// DashboardStats is the aggregate block on the landing page.
type DashboardStats struct {
	TotalDonors   int        `json:"total_donors"`
	ActiveDonors  int        `json:"active_donors"`
	GiftCount     int        `json:"gift_count"`
	GiftTotal     float64    `json:"gift_total"`
	GiftAverage   float64    `json:"gift_average"`
	RecentGifts   []*Gift    `json:"recent_gifts"`
	TopDonors     []TopDonor `json:"top_donors"`
	SegmentCount  int        `json:"segment_count"`
	PendingImport bool       `json:"pending_import"`
}

// TopDonor is a donor ranked by lifetime giving.
type TopDonor struct {
	DonorID  string  `json:"donor_id"`
	Name     string  `json:"name"`
	Lifetime float64 `json:"lifetime"`
}

// GetDashboardStats computes the landing-page aggregates in one pass.
func (s *Service) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM donors),
			(SELECT COUNT(*) FROM donors WHERE is_active),
			(SELECT COUNT(*) FROM gifts),
			(SELECT COALESCE(SUM(amount), 0) FROM gifts),
			(SELECT COUNT(*) FROM segments)`).
		Scan(&stats.TotalDonors, &stats.ActiveDonors, &stats.GiftCount,
			&stats.GiftTotal, &stats.SegmentCount)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	if stats.GiftCount > 0 {
		stats.GiftAverage = stats.GiftTotal / float64(stats.GiftCount)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM gifts g JOIN donors d ON d.id = g.donor_id
		ORDER BY g.given_at DESC, g.id DESC LIMIT 5`, giftColumns))
	if err != nil {
		return nil, fmt.Errorf("recent gifts: %w", err)
	}
	defer rows.Close()

	stats.RecentGifts = []*Gift{}
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gift: %w", err)
		}
		stats.RecentGifts = append(stats.RecentGifts, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent gifts: %w", err)
	}

	top, err := s.pool.Query(ctx, `
		SELECT d.id,
			COALESCE(d.full_name, TRIM(COALESCE(d.first_name, '') || ' ' || COALESCE(d.last_name, ''))),
			SUM(g.amount) AS lifetime
		FROM gifts g JOIN donors d ON d.id = g.donor_id
		GROUP BY d.id, d.full_name, d.first_name, d.last_name
		ORDER BY lifetime DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("top donors: %w", err)
	}
	defer top.Close()

	stats.TopDonors = []TopDonor{}
	for top.Next() {
		var t TopDonor
		if err := top.Scan(&t.DonorID, &t.Name, &t.Lifetime); err != nil {
			return nil, fmt.Errorf("scan top donor: %w", err)
		}
		stats.TopDonors = append(stats.TopDonors, t)
	}
	if err := top.Err(); err != nil {
		return nil, fmt.Errorf("top donors: %w", err)
	}

	s.mu.Lock()
	for _, sess := range s.imports {
		if sess.State == StateImporting {
			stats.PendingImport = true
			break
		}
	}
	s.mu.Unlock()

	return stats, nil
}
