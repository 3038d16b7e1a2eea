package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// DonorsPerPage is the page size for donor list views.
const DonorsPerPage = 20

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Donor is a donor record. Optional attributes are pointers so a missing
// value and an empty string stay distinct through JSON and SQL.
type Donor struct {
	ID               string    `json:"id"`
	FullName         *string   `json:"full_name"`
	FirstName        *string   `json:"first_name"`
	LastName         *string   `json:"last_name"`
	Email            *string   `json:"email"`
	Phone            *string   `json:"phone"`
	AlternatePhone   *string   `json:"alternate_phone"`
	AddressLine1     *string   `json:"address_line1"`
	AddressLine2     *string   `json:"address_line2"`
	City             *string   `json:"city"`
	State            *string   `json:"state"`
	PostalCode       *string   `json:"postal_code"`
	Country          string    `json:"country"`
	NonprofitOrg     *string   `json:"nonprofit_org"`
	Business         *string   `json:"business"`
	Church           *string   `json:"church"`
	School           *string   `json:"school"`
	ExternalRef      *string   `json:"external_ref"`
	PreferredChannel *string   `json:"preferred_channel"`
	Facebook         *string   `json:"facebook"`
	Instagram        *string   `json:"instagram"`
	XTwitter         *string   `json:"x_twitter"`
	LinkedIn         *string   `json:"linkedin"`
	Venmo            *string   `json:"venmo"`
	Messenger        *string   `json:"messenger"`
	Substack         *string   `json:"substack"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DonorInput carries donor attributes for create and update. Nil pointers
// are "not provided": ignored on update, NULL on create.
type DonorInput struct {
	FullName         *string `json:"full_name"`
	FirstName        *string `json:"first_name"`
	LastName         *string `json:"last_name"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	AlternatePhone   *string `json:"alternate_phone"`
	AddressLine1     *string `json:"address_line1"`
	AddressLine2     *string `json:"address_line2"`
	City             *string `json:"city"`
	State            *string `json:"state"`
	PostalCode       *string `json:"postal_code"`
	Country          string  `json:"country"`
	NonprofitOrg     *string `json:"nonprofit_org"`
	Business         *string `json:"business"`
	Church           *string `json:"church"`
	School           *string `json:"school"`
	ExternalRef      *string `json:"external_ref"`
	PreferredChannel *string `json:"preferred_channel"`
	Facebook         *string `json:"facebook"`
	Instagram        *string `json:"instagram"`
	XTwitter         *string `json:"x_twitter"`
	LinkedIn         *string `json:"linkedin"`
	Venmo            *string `json:"venmo"`
	Messenger        *string `json:"messenger"`
	Substack         *string `json:"substack"`
	IsActive         *bool   `json:"is_active"`
}

// HasIdentity reports whether the input carries at least one attribute a
// donor can be identified by. Rows without identity are rejected.
func (in DonorInput) HasIdentity() bool {
	for _, p := range []*string{in.FullName, in.FirstName, in.LastName, in.Email} {
		if p != nil && strings.TrimSpace(*p) != "" {
			return true
		}
	}
	return false
}

// donorColumns is the canonical column list every donor query selects, in
// Donor field order.
const donorColumns = `id, full_name, first_name, last_name, email, phone, alternate_phone,
	address_line1, address_line2, city, state, postal_code, country,
	nonprofit_org, business, church, school, external_ref, preferred_channel,
	facebook, instagram, x_twitter, linkedin, venmo, messenger, substack,
	is_active, created_at, updated_at`

func scanDonor(row pgx.Row) (*Donor, error) {
	var d Donor
	err := row.Scan(
		&d.ID, &d.FullName, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.AlternatePhone,
		&d.AddressLine1, &d.AddressLine2, &d.City, &d.State, &d.PostalCode, &d.Country,
		&d.NonprofitOrg, &d.Business, &d.Church, &d.School, &d.ExternalRef, &d.PreferredChannel,
		&d.Facebook, &d.Instagram, &d.XTwitter, &d.LinkedIn, &d.Venmo, &d.Messenger, &d.Substack,
		&d.IsActive, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DonorListOptions select and paginate the donor list.
type DonorListOptions struct {
	Page    int
	Search  string
	Filters FilterSet
}

// DonorPage is one page of the donor list.
type DonorPage struct {
	Donors     []*Donor `json:"donors"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	TotalPages int      `json:"total_pages"`
}

// ListDonors returns one page of donors matching the compiled filters,
// newest first. The list and the CSV export compile the same FilterSet,
// so what you see is what you download.
func (s *Service) ListDonors(ctx context.Context, opts DonorListOptions) (*DonorPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}

	where, args := opts.Filters.Compile(opts.Search)
	cond := ""
	if where != "" {
		cond = " WHERE " + where
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM donors"+cond, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count donors: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM donors%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		donorColumns, cond, len(args)+1, len(args)+2)
	args = append(args, DonorsPerPage, (opts.Page-1)*DonorsPerPage)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}

	totalPages := (total + DonorsPerPage - 1) / DonorsPerPage
	if totalPages < 1 {
		totalPages = 1
	}

	return &DonorPage{
		Donors:     donors,
		Total:      total,
		Page:       opts.Page,
		TotalPages: totalPages,
	}, nil
}

// donorsForExport returns all donors matching the filters, unpaginated,
// in the same order the list shows them.
func (s *Service) donorsForExport(ctx context.Context, filters FilterSet, search string) ([]*Donor, error) {
	where, args := filters.Compile(search)
	cond := ""
	if where != "" {
		cond = " WHERE " + where
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM donors%s ORDER BY created_at DESC, id DESC", donorColumns, cond),
		args...)
	if err != nil {
		return nil, fmt.Errorf("export donors: %w", err)
	}
	defer rows.Close()

	var donors []*Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		donors = append(donors, d)
	}
	return donors, rows.Err()
}

// GetDonor fetches a single donor by ID.
func (s *Service) GetDonor(ctx context.Context, id string) (*Donor, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM donors WHERE id = $1", donorColumns), id)
	d, err := scanDonor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get donor: %w", err)
	}
	return d, nil
}

// DonorDetail is a donor with their recent history embedded.
type DonorDetail struct {
	Donor        *Donor         `json:"donor"`
	Gifts        []*Gift        `json:"gifts"`
	Interactions []*Interaction `json:"interactions"`
}

// GetDonorDetail fetches a donor together with recent gifts and the
// interaction timeline.
func (s *Service) GetDonorDetail(ctx context.Context, id string) (*DonorDetail, error) {
	d, err := s.GetDonor(ctx, id)
	if err != nil {
		return nil, err
	}

	gifts, err := s.giftsForDonor(ctx, id, 25)
	if err != nil {
		return nil, err
	}

	interactions, err := s.ListInteractions(ctx, id)
	if err != nil {
		return nil, err
	}

	return &DonorDetail{Donor: d, Gifts: gifts, Interactions: interactions}, nil
}

// CreateDonor inserts a donor and returns the stored record. A missing
// country defaults to USA and new donors start active.
func (s *Service) CreateDonor(ctx context.Context, in DonorInput) (*Donor, error) {
	if !in.HasIdentity() {
		return nil, errors.New("donor needs a name or an email")
	}

	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = "USA"
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO donors (
			full_name, first_name, last_name, email, phone, alternate_phone,
			address_line1, address_line2, city, state, postal_code, country,
			nonprofit_org, business, church, school, external_ref, preferred_channel,
			facebook, instagram, x_twitter, linkedin, venmo, messenger, substack,
			is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		) RETURNING `+donorColumns,
		in.FullName, in.FirstName, in.LastName, in.Email, in.Phone, in.AlternatePhone,
		in.AddressLine1, in.AddressLine2, in.City, in.State, in.PostalCode, country,
		in.NonprofitOrg, in.Business, in.Church, in.School, in.ExternalRef, in.PreferredChannel,
		in.Facebook, in.Instagram, in.XTwitter, in.LinkedIn, in.Venmo, in.Messenger, in.Substack,
		active,
	)

	d, err := scanDonor(row)
	if err != nil {
		return nil, fmt.Errorf("create donor: %w", err)
	}
	return d, nil
}

// insertDonorRow is the import loop's write path. It shares CreateDonor's
// defaulting but skips the RETURNING round trip.
func (s *Service) insertDonorRow(ctx context.Context, in DonorInput) error {
	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = "USA"
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO donors (
			full_name, first_name, last_name, email, phone, alternate_phone,
			address_line1, address_line2, city, state, postal_code, country,
			nonprofit_org, business, church, school, external_ref, preferred_channel,
			facebook, instagram, x_twitter, linkedin, venmo, messenger, substack,
			is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, true
		)`,
		in.FullName, in.FirstName, in.LastName, in.Email, in.Phone, in.AlternatePhone,
		in.AddressLine1, in.AddressLine2, in.City, in.State, in.PostalCode, country,
		in.NonprofitOrg, in.Business, in.Church, in.School, in.ExternalRef, in.PreferredChannel,
		in.Facebook, in.Instagram, in.XTwitter, in.LinkedIn, in.Venmo, in.Messenger, in.Substack,
	)
	return err
}

// UpdateDonor applies the provided attributes to a donor and returns the
// updated record. Nil pointers leave the stored value untouched.
func (s *Service) UpdateDonor(ctx context.Context, id string, in DonorInput) (*Donor, error) {
	var sets []string
	var args []any

	set := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", quoteIdentifier(col), len(args)))
	}

	textFields := []struct {
		col string
		val *string
	}{
		{"full_name", in.FullName}, {"first_name", in.FirstName}, {"last_name", in.LastName},
		{"email", in.Email}, {"phone", in.Phone}, {"alternate_phone", in.AlternatePhone},
		{"address_line1", in.AddressLine1}, {"address_line2", in.AddressLine2},
		{"city", in.City}, {"state", in.State}, {"postal_code", in.PostalCode},
		{"nonprofit_org", in.NonprofitOrg}, {"business", in.Business},
		{"church", in.Church}, {"school", in.School},
		{"external_ref", in.ExternalRef}, {"preferred_channel", in.PreferredChannel},
		{"facebook", in.Facebook}, {"instagram", in.Instagram}, {"x_twitter", in.XTwitter},
		{"linkedin", in.LinkedIn}, {"venmo", in.Venmo}, {"messenger", in.Messenger},
		{"substack", in.Substack},
	}
	for _, f := range textFields {
		if f.val != nil {
			set(f.col, *f.val)
		}
	}
	if strings.TrimSpace(in.Country) != "" {
		set("country", strings.TrimSpace(in.Country))
	}
	if in.IsActive != nil {
		set("is_active", *in.IsActive)
	}

	if len(sets) == 0 {
		return s.GetDonor(ctx, id)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE donors SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), donorColumns)

	d, err := scanDonor(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update donor: %w", err)
	}
	return d, nil
}

// DeleteDonor removes a donor. Gifts, interactions and segment
// memberships cascade at the schema level.
func (s *Service) DeleteDonor(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM donors WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete donor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
