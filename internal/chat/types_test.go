package chat

import (
	"testing"

	relayerrors "ombridge/internal/errors"
)

func TestParseCallbackSelectedOption(t *testing.T) {
	raw := []byte(`{
		"token": "tok",
		"callback_id": "work_entry_option_chosen",
		"user": {"name": "nico"},
		"actions": [{"name": "objective", "selected_options": [{"value": "obj-1"}]}],
		"message_ts": "111.222",
		"response_url": "https://hooks.example/abc"
	}`)
	inv, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.CallbackID != "work_entry_option_chosen" {
		t.Fatalf("wrong callback id: %q", inv.CallbackID)
	}
	if inv.Field != "objective" || inv.Value != "obj-1" {
		t.Fatalf("wrong selection: field=%q value=%q", inv.Field, inv.Value)
	}
	if inv.MessageRef != "111.222" {
		t.Fatalf("wrong message ref: %q", inv.MessageRef)
	}
	if inv.UserName != "nico" || inv.ResponseURL != "https://hooks.example/abc" {
		t.Fatalf("wrong identity fields: %+v", inv)
	}
}

func TestParseCallbackButtonValue(t *testing.T) {
	raw := []byte(`{
		"callback_id": "undo_last_work_entry",
		"user": {"name": "nico"},
		"actions": [{"name": "undo", "value": "yes"}],
		"original_message": {"ts": "333.444"}
	}`)
	inv, err := ParseCallback(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Value != "yes" {
		t.Fatalf("expected button value, got %q", inv.Value)
	}
	if inv.MessageRef != "333.444" {
		t.Fatalf("expected original message ts fallback, got %q", inv.MessageRef)
	}
}

func TestParseCallbackRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bad json", `{"callback_id":`},
		{"missing callback id", `{"user": {"name": "nico"}}`},
		{"missing user", `{"callback_id": "work_entry_cta"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCallback([]byte(tt.raw))
			if !relayerrors.IsValidation(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}
