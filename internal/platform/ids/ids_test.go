package ids

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseUserID(t *testing.T) {
	raw := uuid.New().String()
	id, err := ParseUserID(raw)
	if err != nil {
		t.Fatalf("ParseUserID: %v", err)
	}
	if id.String() != raw {
		t.Errorf("String() = %q, want %q", id.String(), raw)
	}
	if id.IsZero() {
		t.Error("parsed id should not be zero")
	}
}

func TestParseUserID_Invalid(t *testing.T) {
	for _, raw := range []string{"", "not-a-uuid", "12345", "00000000-0000-0000-0000-000000000000"} {
		if _, err := ParseUserID(raw); err == nil {
			t.Errorf("ParseUserID(%q) should fail", raw)
		}
	}
}

func TestParseTenantID_Invalid(t *testing.T) {
	for _, raw := range []string{"", "tenant-42", "00000000-0000-0000-0000-000000000000"} {
		if _, err := ParseTenantID(raw); err == nil {
			t.Errorf("ParseTenantID(%q) should fail", raw)
		}
	}
}

func TestTenantID_NullRoundTrip(t *testing.T) {
	var id TenantID
	v, err := id.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != nil {
		t.Errorf("zero TenantID should map to NULL, got %v", v)
	}

	var scanned TenantID
	if err := scanned.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if !scanned.IsZero() {
		t.Error("NULL should scan to the zero TenantID")
	}
}

func TestTenantID_ScanValue(t *testing.T) {
	id := NewTenantID()
	v, err := id.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var scanned TenantID
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if scanned != id {
		t.Errorf("round trip changed id: %v != %v", scanned, id)
	}
}

func TestUserID_ZeroValueNotPersistable(t *testing.T) {
	var id UserID
	if _, err := id.Value(); err == nil {
		t.Error("zero UserID must not be persistable")
	}
}
