package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ImportState is a step of the CSV import flow.
type ImportState string

const (
	StateUpload    ImportState = "upload"
	StateMapping   ImportState = "mapping"
	StatePreview   ImportState = "preview"
	StateImporting ImportState = "importing"
	StateComplete  ImportState = "complete"
)

// ErrImportNotFound is returned when no session has the given ID.
var ErrImportNotFound = errors.New("import session not found")

// ImportProgress is the live counter block a polling client renders.
// success + errors == current at every observable moment.
type ImportProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
	Success int `json:"success"`
	Errors  int `json:"errors"`
}

// ImportSession is one in-flight CSV import. Sessions live in memory
// only and are guarded by the Service mutex.
type ImportSession struct {
	ID         string
	FileName   string
	Headers    []string
	Rows       [][]string
	Mapping    map[string]string
	State      ImportState
	Progress   ImportProgress
	CreatedAt  time.Time
	LastActive time.Time
}

// ImportSnapshot is the client view of a session.
type ImportSnapshot struct {
	ID       string              `json:"id"`
	FileName string              `json:"file_name"`
	State    ImportState         `json:"state"`
	Headers  []string            `json:"headers"`
	Mapping  map[string]string   `json:"mapping"`
	Total    int                 `json:"total_rows"`
	Preview  []map[string]string `json:"preview,omitempty"`
	Progress ImportProgress      `json:"progress"`
}

// donorInserter is the import loop's write seam.
type donorInserter interface {
	insertDonorRow(ctx context.Context, in DonorInput) error
}

// StartImport parses an uploaded CSV, auto-maps its headers against the
// donor field catalog and registers a session in the mapping state.
func (s *Service) StartImport(ctx context.Context, fileName string, data []byte) (*ImportSnapshot, error) {
	records, err := parseCSV(sanitizeUTF8(data))
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("file is empty")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for _, row := range records[1:] {
		if !isEmptyRow(row) {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, errors.New("no data rows after header")
	}

	now := time.Now()
	sess := &ImportSession{
		ID:         uuid.New().String(),
		FileName:   fileName,
		Headers:    headers,
		Rows:       rows,
		Mapping:    AutoMapHeaders(headers),
		State:      StateMapping,
		Progress:   ImportProgress{Total: len(rows)},
		CreatedAt:  now,
		LastActive: now,
	}

	s.mu.Lock()
	s.imports[sess.ID] = sess
	s.mu.Unlock()

	slog.Info("import session opened",
		"import_id", sess.ID,
		"file", fileName,
		"rows", len(rows),
		"auto_mapped", len(sess.Mapping),
	)

	return s.snapshotLocked(sess), nil
}

// SetImportMapping replaces the column mapping of a session still in the
// mapping step. Every target must be a known donor field.
func (s *Service) SetImportMapping(id string, mapping map[string]string) (*ImportSnapshot, error) {
	headers := make(map[string]bool)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.imports[id]
	if !ok {
		return nil, ErrImportNotFound
	}
	if sess.State != StateMapping {
		return nil, fmt.Errorf("mapping is not editable in the %s step", sess.State)
	}

	for _, h := range sess.Headers {
		headers[h] = true
	}

	clean := make(map[string]string, len(mapping))
	for header, field := range mapping {
		if field == "" {
			continue
		}
		if !headers[header] {
			return nil, fmt.Errorf("unknown column %q", header)
		}
		if !IsDonorField(field) {
			return nil, fmt.Errorf("unknown donor field %q", field)
		}
		clean[header] = field
	}

	sess.Mapping = clean
	sess.LastActive = time.Now()

	return s.snapshotLocked(sess), nil
}

// AdvanceImport moves a session one step forward: mapping to preview.
// The importing step is entered through RunImport only.
func (s *Service) AdvanceImport(id string) (*ImportSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.imports[id]
	if !ok {
		return nil, ErrImportNotFound
	}
	if sess.State != StateMapping {
		return nil, fmt.Errorf("cannot advance from the %s step", sess.State)
	}
	if len(sess.Mapping) == 0 {
		return nil, errors.New("map at least one column before previewing")
	}

	sess.State = StatePreview
	sess.LastActive = time.Now()
	return s.snapshotLocked(sess), nil
}

// BackImport moves a session one step back. Only preview to mapping and
// mapping to upload are legal; a running or finished import cannot be
// rewound.
func (s *Service) BackImport(id string) (*ImportSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.imports[id]
	if !ok {
		return nil, ErrImportNotFound
	}

	switch sess.State {
	case StatePreview:
		sess.State = StateMapping
	case StateMapping:
		sess.State = StateUpload
	default:
		return nil, fmt.Errorf("cannot go back from the %s step", sess.State)
	}

	sess.LastActive = time.Now()
	return s.snapshotLocked(sess), nil
}

// RunImport starts the insert loop for a previewed session. The loop is
// strictly sequential with one insert in flight; clients follow along by
// polling ImportStatus.
func (s *Service) RunImport(ctx context.Context, id string) (*ImportSnapshot, error) {
	s.mu.Lock()
	sess, ok := s.imports[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrImportNotFound
	}
	if sess.State != StatePreview {
		s.mu.Unlock()
		return nil, fmt.Errorf("cannot start the import from the %s step", sess.State)
	}

	sess.State = StateImporting
	sess.Progress = ImportProgress{Total: len(sess.Rows)}
	sess.LastActive = time.Now()
	snap := s.snapshotLocked(sess)
	s.mu.Unlock()

	go s.runImport(context.WithoutCancel(ctx), sess)

	return snap, nil
}

// runImport walks the rows one at a time. A row that cannot identify a
// donor counts as an error without touching the store; a failed insert
// counts as an error and the loop moves on. Counters update before the
// next row starts so polling never observes a stale total.
func (s *Service) runImport(ctx context.Context, sess *ImportSession) {
	logger := slog.With("import_id", sess.ID, "file", sess.FileName)
	start := time.Now()

	for i, row := range sess.Rows {
		in := projectRow(sess.Headers, row, sess.Mapping)

		var rowErr error
		if !in.HasIdentity() {
			rowErr = errors.New("row has no name or email")
		} else {
			rowErr = s.inserter.insertDonorRow(ctx, in)
		}

		s.mu.Lock()
		sess.Progress.Current = i + 1
		if rowErr != nil {
			sess.Progress.Errors++
		} else {
			sess.Progress.Success++
		}
		sess.LastActive = time.Now()
		s.mu.Unlock()

		if rowErr != nil {
			logger.Debug("row skipped", "row", i+1, "error", rowErr)
		}
	}

	s.mu.Lock()
	sess.State = StateComplete
	sess.LastActive = time.Now()
	progress := sess.Progress
	s.mu.Unlock()

	logger.Info("import finished",
		"total", progress.Total,
		"success", progress.Success,
		"errors", progress.Errors,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := s.recordImport(ctx, sess.ID, sess.FileName, progress); err != nil {
		logger.Error("failed to record import summary", "error", err)
	}
}

// recordImport persists the completed run's summary row.
func (s *Service) recordImport(ctx context.Context, id, fileName string, p ImportProgress) error {
	if s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO imports (id, file_name, total_rows, success_count, error_count, status)
		VALUES ($1, $2, $3, $4, $5, 'complete')`,
		id, fileName, p.Total, p.Success, p.Errors)
	return err
}

// ImportStatus returns the current snapshot of a session.
func (s *Service) ImportStatus(id string) (*ImportSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.imports[id]
	if !ok {
		return nil, ErrImportNotFound
	}
	return s.snapshotLocked(sess), nil
}

// snapshotLocked builds the client view. Callers hold s.mu.
func (s *Service) snapshotLocked(sess *ImportSession) *ImportSnapshot {
	snap := &ImportSnapshot{
		ID:       sess.ID,
		FileName: sess.FileName,
		State:    sess.State,
		Headers:  append([]string(nil), sess.Headers...),
		Mapping:  make(map[string]string, len(sess.Mapping)),
		Total:    len(sess.Rows),
		Progress: sess.Progress,
	}
	for k, v := range sess.Mapping {
		snap.Mapping[k] = v
	}

	if sess.State == StatePreview {
		n := s.previewRows()
		if n > len(sess.Rows) {
			n = len(sess.Rows)
		}
		for _, row := range sess.Rows[:n] {
			snap.Preview = append(snap.Preview, previewRow(sess.Headers, row, sess.Mapping))
		}
	}

	return snap
}

func (s *Service) previewRows() int {
	if s.cfg == nil || s.cfg.Import.PreviewRows <= 0 {
		return 5
	}
	return s.cfg.Import.PreviewRows
}

// projectRow applies the column mapping to one CSV row.
func projectRow(headers, row []string, mapping map[string]string) DonorInput {
	var in DonorInput
	for i, h := range headers {
		field, ok := mapping[h]
		if !ok || i >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[i])
		if val == "" {
			continue
		}
		applyDonorField(&in, field, val)
	}
	return in
}

// previewRow projects one row keyed by field label for display.
func previewRow(headers, row []string, mapping map[string]string) map[string]string {
	out := make(map[string]string)
	for i, h := range headers {
		field, ok := mapping[h]
		if !ok || i >= len(row) {
			continue
		}
		out[FieldLabel(field)] = strings.TrimSpace(row[i])
	}
	return out
}

// applyDonorField assigns one mapped cell to its DonorInput slot.
func applyDonorField(in *DonorInput, field, val string) {
	switch field {
	case "full_name":
		in.FullName = &val
	case "first_name":
		in.FirstName = &val
	case "last_name":
		in.LastName = &val
	case "email":
		in.Email = &val
	case "phone":
		in.Phone = &val
	case "alternate_phone":
		in.AlternatePhone = &val
	case "address_line1":
		in.AddressLine1 = &val
	case "address_line2":
		in.AddressLine2 = &val
	case "city":
		in.City = &val
	case "state":
		in.State = &val
	case "postal_code":
		in.PostalCode = &val
	case "country":
		in.Country = val
	case "nonprofit_org":
		in.NonprofitOrg = &val
	case "business":
		in.Business = &val
	case "church":
		in.Church = &val
	case "school":
		in.School = &val
	case "external_ref":
		in.ExternalRef = &val
	case "preferred_channel":
		in.PreferredChannel = &val
	case "facebook":
		in.Facebook = &val
	case "instagram":
		in.Instagram = &val
	case "x_twitter":
		in.XTwitter = &val
	case "linkedin":
		in.LinkedIn = &val
	case "venmo":
		in.Venmo = &val
	case "messenger":
		in.Messenger = &val
	case "substack":
		in.Substack = &val
	}
}

// CSV helpers

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
