package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// GiftsPerPage is the page size for gift list views.
const GiftsPerPage = 25

// Gift is a single donation. DonorName is populated on list reads for
// display and omitted elsewhere.
type Gift struct {
	ID        string    `json:"id"`
	DonorID   string    `json:"donor_id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Fund      *string   `json:"fund"`
	Note      *string   `json:"note"`
	GivenAt   time.Time `json:"given_at"`
	CreatedAt time.Time `json:"created_at"`
	DonorName *string   `json:"donor_name,omitempty"`
}

// GiftInput carries gift attributes for create and update.
type GiftInput struct {
	DonorID  string     `json:"donor_id"`
	Amount   *float64   `json:"amount"`
	Currency string     `json:"currency"`
	Fund     *string    `json:"fund"`
	Note     *string    `json:"note"`
	GivenAt  *time.Time `json:"given_at"`
}

// GiftListOptions select and paginate the gift list.
type GiftListOptions struct {
	Page    int
	DonorID string
	Fund    string
	From    string // inclusive lower bound on given_at, YYYY-MM-DD
	To      string // inclusive upper bound on given_at, YYYY-MM-DD
}

// GiftPage is one page of gifts plus the aggregate totals for the same
// selection and the distinct fund list for the filter dropdown.
type GiftPage struct {
	Gifts       []*Gift  `json:"gifts"`
	Total       int      `json:"total"`
	TotalAmount float64  `json:"total_amount"`
	Page        int      `json:"page"`
	TotalPages  int      `json:"total_pages"`
	Funds       []string `json:"funds"`
}

// giftColumns selects from gifts g joined to donors d.
const giftColumns = `g.id, g.donor_id, g.amount, g.currency, g.fund, g.note, g.given_at, g.created_at,
	COALESCE(d.full_name, TRIM(COALESCE(d.first_name, '') || ' ' || COALESCE(d.last_name, '')))`

// ListGifts returns one page of gifts newest first, with totals computed
// over the whole selection rather than the page.
func (s *Service) ListGifts(ctx context.Context, opts GiftListOptions) (*GiftPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}

	var conds []string
	var args []any
	add := func(clause string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(clause, len(args)))
	}

	if opts.DonorID != "" {
		add("g.donor_id = $%d", opts.DonorID)
	}
	if opts.Fund != "" {
		add("g.fund = $%d", opts.Fund)
	}
	if opts.From != "" {
		add("g.given_at >= $%d", opts.From)
	}
	if opts.To != "" {
		add("g.given_at <= $%d", opts.To)
	}

	cond := ""
	if len(conds) > 0 {
		cond = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	var totalAmount float64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*), COALESCE(SUM(g.amount), 0) FROM gifts g"+cond, args...).
		Scan(&total, &totalAmount)
	if err != nil {
		return nil, fmt.Errorf("gift totals: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM gifts g JOIN donors d ON d.id = g.donor_id%s
		ORDER BY g.given_at DESC, g.id DESC LIMIT $%d OFFSET $%d`,
		giftColumns, cond, len(args)+1, len(args)+2)
	args = append(args, GiftsPerPage, (opts.Page-1)*GiftsPerPage)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list gifts: %w", err)
	}
	defer rows.Close()

	gifts := []*Gift{}
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gift: %w", err)
		}
		gifts = append(gifts, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list gifts: %w", err)
	}

	funds, err := s.listFunds(ctx)
	if err != nil {
		return nil, err
	}

	totalPages := (total + GiftsPerPage - 1) / GiftsPerPage
	if totalPages < 1 {
		totalPages = 1
	}

	return &GiftPage{
		Gifts:       gifts,
		Total:       total,
		TotalAmount: totalAmount,
		Page:        opts.Page,
		TotalPages:  totalPages,
		Funds:       funds,
	}, nil
}

func scanGift(row pgx.Row) (*Gift, error) {
	var g Gift
	err := row.Scan(&g.ID, &g.DonorID, &g.Amount, &g.Currency, &g.Fund, &g.Note,
		&g.GivenAt, &g.CreatedAt, &g.DonorName)
	if err != nil {
		return nil, err
	}
	if g.DonorName != nil && strings.TrimSpace(*g.DonorName) == "" {
		g.DonorName = nil
	}
	return &g, nil
}

// listFunds returns the distinct fund names in use.
func (s *Service) listFunds(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT fund FROM gifts WHERE fund IS NOT NULL AND fund <> '' ORDER BY fund")
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}
	defer rows.Close()

	funds := []string{}
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan fund: %w", err)
		}
		funds = append(funds, f)
	}
	return funds, rows.Err()
}

// giftsForDonor returns a donor's most recent gifts.
func (s *Service) giftsForDonor(ctx context.Context, donorID string, limit int) ([]*Gift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, donor_id, amount, currency, fund, note, given_at, created_at
		FROM gifts WHERE donor_id = $1
		ORDER BY given_at DESC, id DESC LIMIT $2`, donorID, limit)
	if err != nil {
		return nil, fmt.Errorf("donor gifts: %w", err)
	}
	defer rows.Close()

	gifts := []*Gift{}
	for rows.Next() {
		var g Gift
		if err := rows.Scan(&g.ID, &g.DonorID, &g.Amount, &g.Currency, &g.Fund, &g.Note,
			&g.GivenAt, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan gift: %w", err)
		}
		gifts = append(gifts, &g)
	}
	return gifts, rows.Err()
}

// CreateGift records a donation. Currency defaults to USD and the gift
// date defaults to now.
func (s *Service) CreateGift(ctx context.Context, in GiftInput) (*Gift, error) {
	if in.DonorID == "" {
		return nil, errors.New("donor_id is required")
	}
	if in.Amount == nil || *in.Amount <= 0 {
		return nil, errors.New("amount must be positive")
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}
	givenAt := time.Now()
	if in.GivenAt != nil {
		givenAt = *in.GivenAt
	}

	var g Gift
	err := s.pool.QueryRow(ctx, `
		INSERT INTO gifts (donor_id, amount, currency, fund, note, given_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, donor_id, amount, currency, fund, note, given_at, created_at`,
		in.DonorID, *in.Amount, currency, in.Fund, in.Note, givenAt).
		Scan(&g.ID, &g.DonorID, &g.Amount, &g.Currency, &g.Fund, &g.Note, &g.GivenAt, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create gift: %w", err)
	}
	return &g, nil
}

// UpdateGift applies the provided attributes to a gift.
func (s *Service) UpdateGift(ctx context.Context, id string, in GiftInput) (*Gift, error) {
	var sets []string
	var args []any
	set := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if in.Amount != nil {
		if *in.Amount <= 0 {
			return nil, errors.New("amount must be positive")
		}
		set("amount", *in.Amount)
	}
	if c := strings.ToUpper(strings.TrimSpace(in.Currency)); c != "" {
		set("currency", c)
	}
	if in.Fund != nil {
		set("fund", *in.Fund)
	}
	if in.Note != nil {
		set("note", *in.Note)
	}
	if in.GivenAt != nil {
		set("given_at", *in.GivenAt)
	}

	if len(sets) == 0 {
		return nil, errors.New("nothing to update")
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE gifts SET %s WHERE id = $%d
		RETURNING id, donor_id, amount, currency, fund, note, given_at, created_at`,
		strings.Join(sets, ", "), len(args))

	var g Gift
	err := s.pool.QueryRow(ctx, query, args...).
		Scan(&g.ID, &g.DonorID, &g.Amount, &g.Currency, &g.Fund, &g.Note, &g.GivenAt, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update gift: %w", err)
	}
	return &g, nil
}

// DeleteGift removes a gift.
func (s *Service) DeleteGift(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM gifts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete gift: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
