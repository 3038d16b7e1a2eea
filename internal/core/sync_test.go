package core

import (
	"encoding/json"
	"testing"
)

func TestSubscriberHash(t *testing.T) {
	// Hash is case-insensitive on the email
	a := subscriberHash("Pat@Example.org")
	b := subscriberHash("pat@example.org")
	if a != b {
		t.Errorf("hash should be case-insensitive: %q != %q", a, b)
	}
	if len(a) != 32 {
		t.Errorf("hash length = %d, want 32 hex chars", len(a))
	}
}

func TestMailchimpMember(t *testing.T) {
	d := &Donor{
		FirstName: strptr("Pat"),
		LastName:  strptr("Smith"),
		Phone:     strptr("555-0100"),
	}

	payload := mailchimpMember(d, "pat@example.org")
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got struct {
		EmailAddress string `json:"email_address"`
		StatusIfNew  string `json:"status_if_new"`
		MergeFields  struct {
			FName string `json:"FNAME"`
			LName string `json:"LNAME"`
			Phone string `json:"PHONE"`
		} `json:"merge_fields"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.EmailAddress != "pat@example.org" {
		t.Errorf("email_address = %q", got.EmailAddress)
	}
	if got.StatusIfNew != "subscribed" {
		t.Errorf("status_if_new = %q", got.StatusIfNew)
	}
	if got.MergeFields.FName != "Pat" || got.MergeFields.LName != "Smith" || got.MergeFields.Phone != "555-0100" {
		t.Errorf("merge_fields = %+v", got.MergeFields)
	}
}

func TestMailchimpMember_MissingFieldsStayEmpty(t *testing.T) {
	payload := mailchimpMember(&Donor{}, "x@example.org")
	merge := payload["merge_fields"].(map[string]string)
	if merge["FNAME"] != "" || merge["LNAME"] != "" || merge["PHONE"] != "" {
		t.Errorf("merge_fields = %v, want empty strings", merge)
	}
}
