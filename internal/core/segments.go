package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Segment kinds. Manual segments carry an explicit member list;
// rule-based segments store a FilterSet and resolve members on read.
const (
	SegmentManual    = "manual"
	SegmentRuleBased = "rule_based"
)

// Segment is a named group of donors.
type Segment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Kind        string    `json:"kind"`
	RuleJSON    *string   `json:"rule_json,omitempty"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// SegmentInput carries a new segment. MemberIDs applies to manual
// segments, Rules to rule-based ones.
type SegmentInput struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Kind        string     `json:"kind"`
	MemberIDs   []string   `json:"member_ids"`
	Rules       *FilterSet `json:"rules"`
}

// ListSegments returns all segments with their current member counts.
// Rule-based counts are computed through the filter compiler, so they
// track the donor table instead of a stale materialized list.
func (s *Service) ListSegments(ctx context.Context) ([]*Segment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.name, s.description, s.kind, s.rule_json, s.created_at,
			(SELECT COUNT(*) FROM segment_members m WHERE m.segment_id = s.id)
		FROM segments s
		ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	segments := []*Segment{}
	for rows.Next() {
		var seg Segment
		if err := rows.Scan(&seg.ID, &seg.Name, &seg.Description, &seg.Kind,
			&seg.RuleJSON, &seg.CreatedAt, &seg.MemberCount); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, &seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}

	for _, seg := range segments {
		if seg.Kind != SegmentRuleBased || seg.RuleJSON == nil {
			continue
		}
		count, err := s.countByRule(ctx, *seg.RuleJSON)
		if err != nil {
			return nil, err
		}
		seg.MemberCount = count
	}

	return segments, nil
}

// countByRule counts donors matching a stored FilterSet.
func (s *Service) countByRule(ctx context.Context, ruleJSON string) (int, error) {
	filters := ParseFilterSet(ruleJSON, nil)
	where, args := filters.Compile("")
	cond := ""
	if where != "" {
		cond = " WHERE " + where
	}

	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM donors"+cond, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count segment members: %w", err)
	}
	return count, nil
}

// CreateSegment stores a segment. Manual member lists are written in one
// transaction with the segment row.
func (s *Service) CreateSegment(ctx context.Context, in SegmentInput) (*Segment, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	if in.Kind != SegmentManual && in.Kind != SegmentRuleBased {
		return nil, errors.New("kind must be manual or rule_based")
	}

	var ruleJSON *string
	if in.Kind == SegmentRuleBased {
		if in.Rules == nil || in.Rules.IsEmpty() {
			return nil, errors.New("a rule_based segment needs at least one rule")
		}
		for _, r := range in.Rules.Rules {
			if !validOperator(r.Operator) || !filterableFields[r.Field] {
				return nil, fmt.Errorf("invalid rule on field %q", r.Field)
			}
		}
		raw, err := json.Marshal(in.Rules)
		if err != nil {
			return nil, fmt.Errorf("encode rules: %w", err)
		}
		js := string(raw)
		ruleJSON = &js
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var seg Segment
	err = tx.QueryRow(ctx, `
		INSERT INTO segments (name, description, kind, rule_json)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, kind, rule_json, created_at`,
		name, in.Description, in.Kind, ruleJSON).
		Scan(&seg.ID, &seg.Name, &seg.Description, &seg.Kind, &seg.RuleJSON, &seg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create segment: %w", err)
	}

	if in.Kind == SegmentManual {
		for _, donorID := range in.MemberIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO segment_members (segment_id, donor_id)
				VALUES ($1, $2) ON CONFLICT DO NOTHING`, seg.ID, donorID); err != nil {
				return nil, fmt.Errorf("add segment member: %w", err)
			}
		}
		seg.MemberCount = len(in.MemberIDs)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if seg.Kind == SegmentRuleBased && seg.RuleJSON != nil {
		if count, err := s.countByRule(ctx, *seg.RuleJSON); err == nil {
			seg.MemberCount = count
		}
	}

	return &seg, nil
}

// SegmentMembers resolves the donors in a segment: the stored list for
// manual segments, a fresh compile of the stored rules for rule-based.
func (s *Service) SegmentMembers(ctx context.Context, id string) ([]*Donor, error) {
	var kind string
	var ruleJSON *string
	err := s.pool.QueryRow(ctx,
		"SELECT kind, rule_json FROM segments WHERE id = $1", id).Scan(&kind, &ruleJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}

	if kind == SegmentRuleBased {
		if ruleJSON == nil {
			return []*Donor{}, nil
		}
		return s.donorsForExport(ctx, ParseFilterSet(*ruleJSON, nil), "")
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM donors
		WHERE id IN (SELECT donor_id FROM segment_members WHERE segment_id = $1)
		ORDER BY created_at DESC, id DESC`, donorColumns), id)
	if err != nil {
		return nil, fmt.Errorf("segment members: %w", err)
	}
	defer rows.Close()

	donors := []*Donor{}
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		donors = append(donors, d)
	}
	return donors, rows.Err()
}

// DeleteSegment removes a segment and its memberships.
func (s *Service) DeleteSegment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM segments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
