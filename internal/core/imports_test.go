package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeInserter records import writes and can fail specific rows.
type fakeInserter struct {
	inserted []DonorInput
	failRows map[int]bool // 0-based attempt index
	calls    int
}

func (f *fakeInserter) insertDonorRow(_ context.Context, in DonorInput) error {
	idx := f.calls
	f.calls++
	if f.failRows[idx] {
		return errors.New("insert failed")
	}
	f.inserted = append(f.inserted, in)
	return nil
}

func newTestService(inserter donorInserter) *Service {
	s := &Service{imports: make(map[string]*ImportSession)}
	if inserter == nil {
		inserter = &fakeInserter{}
	}
	s.inserter = inserter
	return s
}

const sampleCSV = "Full Name,E-Mail,City,Notes\n" +
	"Pat Smith,pat@example.org,Austin,loves dogs\n" +
	"Kim Jones,kim@example.org,Dallas,\n" +
	",,,\n" +
	",,Houston,no name here\n"

func startSession(t *testing.T, s *Service) *ImportSnapshot {
	t.Helper()
	snap, err := s.StartImport(context.Background(), "donors.csv", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("StartImport() error = %v", err)
	}
	return snap
}

func TestStartImport_AutoMapsAndEntersMapping(t *testing.T) {
	s := newTestService(nil)
	snap := startSession(t, s)

	if snap.State != StateMapping {
		t.Errorf("State = %q, want %q", snap.State, StateMapping)
	}
	// Blank row is dropped, the no-name row is kept
	if snap.Total != 3 {
		t.Errorf("Total = %d, want 3", snap.Total)
	}
	if snap.Mapping["Full Name"] != "full_name" || snap.Mapping["E-Mail"] != "email" || snap.Mapping["City"] != "city" {
		t.Errorf("auto mapping = %v", snap.Mapping)
	}
	if _, ok := snap.Mapping["Notes"]; ok {
		t.Error("Notes should stay unmapped")
	}
}

func TestStartImport_RejectsEmptyFiles(t *testing.T) {
	s := newTestService(nil)

	if _, err := s.StartImport(context.Background(), "empty.csv", nil); err == nil {
		t.Error("StartImport() should reject an empty file")
	}
	if _, err := s.StartImport(context.Background(), "header.csv", []byte("Full Name,Email\n")); err == nil {
		t.Error("StartImport() should reject a header-only file")
	}
}

func TestSetImportMapping_Validates(t *testing.T) {
	s := newTestService(nil)
	snap := startSession(t, s)

	if _, err := s.SetImportMapping(snap.ID, map[string]string{"City": "favorite_color"}); err == nil {
		t.Error("SetImportMapping() should reject an unknown donor field")
	}
	if _, err := s.SetImportMapping(snap.ID, map[string]string{"Zodiac": "city"}); err == nil {
		t.Error("SetImportMapping() should reject an unknown column")
	}
	if _, err := s.SetImportMapping("missing", nil); !errors.Is(err, ErrImportNotFound) {
		t.Errorf("SetImportMapping(missing) error = %v, want ErrImportNotFound", err)
	}

	got, err := s.SetImportMapping(snap.ID, map[string]string{"Full Name": "full_name", "Notes": ""})
	if err != nil {
		t.Fatalf("SetImportMapping() error = %v", err)
	}
	if len(got.Mapping) != 1 || got.Mapping["Full Name"] != "full_name" {
		t.Errorf("Mapping = %v", got.Mapping)
	}
}

func TestImportStateMachine(t *testing.T) {
	s := newTestService(nil)
	snap := startSession(t, s)

	// The run step is only reachable from preview
	if _, err := s.RunImport(context.Background(), snap.ID); err == nil {
		t.Error("RunImport() from mapping should fail")
	}

	prev, err := s.AdvanceImport(snap.ID)
	if err != nil {
		t.Fatalf("AdvanceImport() error = %v", err)
	}
	if prev.State != StatePreview {
		t.Errorf("State = %q, want %q", prev.State, StatePreview)
	}
	if _, err := s.AdvanceImport(snap.ID); err == nil {
		t.Error("AdvanceImport() from preview should fail")
	}

	back, err := s.BackImport(snap.ID)
	if err != nil {
		t.Fatalf("BackImport() error = %v", err)
	}
	if back.State != StateMapping {
		t.Errorf("State after back = %q, want %q", back.State, StateMapping)
	}

	back, err = s.BackImport(snap.ID)
	if err != nil {
		t.Fatalf("BackImport() error = %v", err)
	}
	if back.State != StateUpload {
		t.Errorf("State after second back = %q, want %q", back.State, StateUpload)
	}
	if _, err := s.BackImport(snap.ID); err == nil {
		t.Error("BackImport() from upload should fail")
	}
}

func TestPreviewProjectsMappedColumns(t *testing.T) {
	s := newTestService(nil)
	snap := startSession(t, s)

	prev, err := s.AdvanceImport(snap.ID)
	if err != nil {
		t.Fatalf("AdvanceImport() error = %v", err)
	}

	if len(prev.Preview) != 3 {
		t.Fatalf("Preview has %d rows, want 3", len(prev.Preview))
	}
	first := prev.Preview[0]
	if first["Full Name"] != "Pat Smith" || first["Email"] != "pat@example.org" || first["City"] != "Austin" {
		t.Errorf("preview row = %v", first)
	}
	if _, ok := first["Notes"]; ok {
		t.Error("unmapped column leaked into the preview")
	}
}

func waitForComplete(t *testing.T, s *Service, id string) *ImportSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := s.ImportStatus(id)
		if err != nil {
			t.Fatalf("ImportStatus() error = %v", err)
		}
		if snap.State == StateComplete {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("import did not complete in time")
	return nil
}

func TestRunImport_CountersAndProjection(t *testing.T) {
	ins := &fakeInserter{}
	s := newTestService(ins)
	snap := startSession(t, s)

	if _, err := s.AdvanceImport(snap.ID); err != nil {
		t.Fatalf("AdvanceImport() error = %v", err)
	}
	running, err := s.RunImport(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("RunImport() error = %v", err)
	}
	if running.State != StateImporting {
		t.Errorf("State = %q, want %q", running.State, StateImporting)
	}

	done := waitForComplete(t, s, snap.ID)

	// Two identifiable rows insert; the city-only row is an error without
	// an insert attempt.
	p := done.Progress
	if p.Current != 3 || p.Total != 3 {
		t.Errorf("Current/Total = %d/%d, want 3/3", p.Current, p.Total)
	}
	if p.Success != 2 || p.Errors != 1 {
		t.Errorf("Success/Errors = %d/%d, want 2/1", p.Success, p.Errors)
	}
	if p.Success+p.Errors != p.Current {
		t.Errorf("success+errors = %d, want current %d", p.Success+p.Errors, p.Current)
	}

	if len(ins.inserted) != 2 {
		t.Fatalf("inserted %d rows, want 2", len(ins.inserted))
	}
	first := ins.inserted[0]
	if first.FullName == nil || *first.FullName != "Pat Smith" {
		t.Errorf("first insert FullName = %v", first.FullName)
	}
	if first.Email == nil || *first.Email != "pat@example.org" {
		t.Errorf("first insert Email = %v", first.Email)
	}
	if first.City == nil || *first.City != "Austin" {
		t.Errorf("first insert City = %v", first.City)
	}
}

func TestRunImport_FailedInsertCountsAndContinues(t *testing.T) {
	ins := &fakeInserter{failRows: map[int]bool{0: true}}
	s := newTestService(ins)
	snap := startSession(t, s)

	if _, err := s.AdvanceImport(snap.ID); err != nil {
		t.Fatalf("AdvanceImport() error = %v", err)
	}
	if _, err := s.RunImport(context.Background(), snap.ID); err != nil {
		t.Fatalf("RunImport() error = %v", err)
	}

	done := waitForComplete(t, s, snap.ID)

	p := done.Progress
	if p.Success != 1 || p.Errors != 2 {
		t.Errorf("Success/Errors = %d/%d, want 1/2", p.Success, p.Errors)
	}
	// The loop kept going after the failure
	if len(ins.inserted) != 1 || ins.inserted[0].Email == nil || *ins.inserted[0].Email != "kim@example.org" {
		t.Errorf("inserted = %+v", ins.inserted)
	}
}

func TestProjectRow_SkipsBlankCells(t *testing.T) {
	headers := []string{"Full Name", "Email", "Country"}
	mapping := map[string]string{"Full Name": "full_name", "Email": "email", "Country": "country"}

	in := projectRow(headers, []string{"  Pat Smith  ", "", "Canada"}, mapping)
	if in.FullName == nil || *in.FullName != "Pat Smith" {
		t.Errorf("FullName = %v", in.FullName)
	}
	if in.Email != nil {
		t.Errorf("Email = %v, want nil for blank cell", in.Email)
	}
	if in.Country != "Canada" {
		t.Errorf("Country = %q", in.Country)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	clean := []byte("hello")
	if got := sanitizeUTF8(clean); string(got) != "hello" {
		t.Errorf("sanitizeUTF8(valid) = %q", got)
	}

	dirty := []byte{'h', 0xff, 'i'}
	got := string(sanitizeUTF8(dirty))
	if !strings.Contains(got, "h") || !strings.Contains(got, "i") {
		t.Errorf("sanitizeUTF8 dropped valid bytes: %q", got)
	}
	if strings.Contains(got, "\xff") {
		t.Errorf("sanitizeUTF8 kept an invalid byte: %q", got)
	}
}

func TestIsEmptyRow(t *testing.T) {
	if !isEmptyRow([]string{"", "  ", "\t"}) {
		t.Error("whitespace-only row should be empty")
	}
	if isEmptyRow([]string{"", "x"}) {
		t.Error("row with a value should not be empty")
	}
}
