package core

import "strings"

// DonorField describes one mappable donor attribute: the database column
// key and the label shown in mapping and preview screens.
type DonorField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// DonorFields is the closed set of donor attributes a CSV column can be
// mapped to, in display order.
var DonorFields = []DonorField{
	{Key: "full_name", Label: "Full Name"},
	{Key: "first_name", Label: "First Name"},
	{Key: "last_name", Label: "Last Name"},
	{Key: "email", Label: "Email"},
	{Key: "phone", Label: "Phone"},
	{Key: "alternate_phone", Label: "Alternate Phone"},
	{Key: "address_line1", Label: "Address Line 1"},
	{Key: "address_line2", Label: "Address Line 2"},
	{Key: "city", Label: "City"},
	{Key: "state", Label: "State"},
	{Key: "postal_code", Label: "Postal Code"},
	{Key: "country", Label: "Country"},
	{Key: "nonprofit_org", Label: "Non-profit Org"},
	{Key: "business", Label: "Business"},
	{Key: "church", Label: "Church"},
	{Key: "school", Label: "School"},
	{Key: "external_ref", Label: "External ID"},
	{Key: "preferred_channel", Label: "Preferred Channel"},
	{Key: "facebook", Label: "Facebook"},
	{Key: "instagram", Label: "Instagram"},
	{Key: "x_twitter", Label: "X (Twitter)"},
	{Key: "linkedin", Label: "LinkedIn"},
	{Key: "venmo", Label: "Venmo"},
	{Key: "messenger", Label: "Messenger"},
	{Key: "substack", Label: "Substack"},
}

// donorFieldKeys indexes DonorFields by key for membership checks.
var donorFieldKeys = func() map[string]DonorField {
	m := make(map[string]DonorField, len(DonorFields))
	for _, f := range DonorFields {
		m[f.Key] = f
	}
	return m
}()

// IsDonorField reports whether key names a mappable donor attribute.
func IsDonorField(key string) bool {
	_, ok := donorFieldKeys[key]
	return ok
}

// FieldLabel returns the display label for a donor field key, or the key
// itself if it is unknown.
func FieldLabel(key string) string {
	if f, ok := donorFieldKeys[key]; ok {
		return f.Label
	}
	return key
}

// filterableFields is the allow-list for filter rules. It covers every
// mappable donor attribute plus the bookkeeping columns a list view can
// reasonably filter on.
var filterableFields = func() map[string]bool {
	m := make(map[string]bool, len(DonorFields)+3)
	for _, f := range DonorFields {
		m[f.Key] = true
	}
	m["id"] = true
	m["is_active"] = true
	m["created_at"] = true
	return m
}()

// AutoMapHeaders guesses a column mapping for the given CSV headers.
//
// A header matches a donor field when its normalized form (lowercase,
// letters only) equals the normalized field label or field key. The
// first field in catalog order wins and each field is claimed at most
// once; headers with no match are left unmapped.
func AutoMapHeaders(headers []string) map[string]string {
	mapping := make(map[string]string)
	claimed := make(map[string]bool)

	for _, h := range headers {
		norm := normalizeHeader(h)
		if norm == "" {
			continue
		}
		for _, f := range DonorFields {
			if claimed[f.Key] {
				continue
			}
			if norm == normalizeHeader(f.Label) || norm == normalizeHeader(f.Key) {
				mapping[h] = f.Key
				claimed[f.Key] = true
				break
			}
		}
	}

	return mapping
}

// normalizeHeader lowercases s and strips everything but letters, so
// "E-Mail", "email" and "E Mail " all compare equal.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
