package accounting

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

type named struct{ id string }

func (n named) String() string { return n.id }

func TestIDOf(t *testing.T) {
	u := uuid.MustParse("6f1c2b1e-58f4-4a52-9d0c-3c2f8f7a9e10")
	s := "6F1C2B1E-58F4-4A52-9D0C-3C2F8F7A9E10"
	var nilUUID *uuid.UUID
	var nilStr *string

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"uuid", u, u.String()},
		{"uuid pointer", &u, u.String()},
		{"nil uuid pointer", nilUUID, ""},
		{"zero uuid", uuid.Nil, ""},
		{"upper-case string", s, u.String()},
		{"padded string", "  abc  ", "abc"},
		{"string pointer", &s, u.String()},
		{"nil string pointer", nilStr, ""},
		{"object _id", map[string]any{"_id": s}, u.String()},
		{"object id", map[string]any{"id": "42"}, "42"},
		{"object _id wins", map[string]any{"_id": "a", "id": "b"}, "a"},
		{"object without id", map[string]any{"name": "x"}, ""},
		{"nested object", map[string]any{"_id": map[string]any{"id": "7"}}, "7"},
		{"number", 42, "42"},
		{"json number", float64(42), "42"},
		{"stringer", named{"x-1"}, "x-1"},
		{"raw json object", json.RawMessage(`{"_id":"abc"}`), "abc"},
		{"raw json garbage", json.RawMessage(`{`), ""},
		{"unsupported", []int{1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IDOf(tt.in); got != tt.want {
				t.Errorf("IDOf(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSameID(t *testing.T) {
	u := uuid.New()
	if !SameID(u, map[string]any{"_id": u.String()}) {
		t.Error("uuid and embedded object should match")
	}
	if !SameID(&u, u.String()) {
		t.Error("pointer and string should match")
	}
	if SameID(nil, nil) {
		t.Error("two empty ids must not match")
	}
	if SameID(map[string]any{}, "") {
		t.Error("unreadable ids must not match")
	}
	if SameID(u, uuid.New()) {
		t.Error("distinct ids matched")
	}
}

func TestRefUnmarshal(t *testing.T) {
	u := uuid.New()
	tests := []struct {
		in   string
		want string
	}{
		{`"` + u.String() + `"`, u.String()},
		{`{"_id":"` + u.String() + `"}`, u.String()},
		{`{"id":"` + u.String() + `","name":"Gold"}`, u.String()},
		{`null`, ""},
		{`17`, "17"},
	}
	for _, tt := range tests {
		var r Ref
		if err := json.Unmarshal([]byte(tt.in), &r); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if string(r) != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, r, tt.want)
		}
	}

	var body struct {
		Purchase Ref `json:"membershipPurchaseBillId"`
	}
	if err := json.Unmarshal([]byte(`{"membershipPurchaseBillId":{"_id":"`+u.String()+`"}}`), &body); err != nil {
		t.Fatal(err)
	}
	got, err := body.Purchase.UUID()
	if err != nil || got != u {
		t.Errorf("UUID() = %v, %v", got, err)
	}
}
