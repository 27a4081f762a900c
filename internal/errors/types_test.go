package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestClassifiers(t *testing.T) {
	validation := &ValidationError{Field: "user_name", Message: "missing"}
	auth := &AuthError{Message: "bad token"}
	state := &StateError{Message: "please restart the command"}
	upstream := &UpstreamError{Kind: UpstreamDomain, Op: "create-task", Message: "project not found"}

	if !IsValidation(validation) || IsValidation(auth) {
		t.Fatal("validation classification broken")
	}
	if !IsAuth(auth) || IsAuth(state) {
		t.Fatal("auth classification broken")
	}
	if got, ok := AsUpstream(upstream); !ok || got.Kind != UpstreamDomain {
		t.Fatal("upstream extraction broken")
	}
}

func TestClassifiersSeeThroughWrapping(t *testing.T) {
	inner := &UpstreamError{Kind: UpstreamNetwork, Op: "fetch-objectives", Err: stderrors.New("dial tcp: refused")}
	wrapped := fmt.Errorf("render step: %w", inner)

	if !IsUpstreamNetwork(wrapped) {
		t.Fatalf("expected network classification through wrap, got %v", wrapped)
	}
	upstream, ok := AsUpstream(wrapped)
	if !ok || upstream.Op != "fetch-objectives" {
		t.Fatalf("expected wrapped upstream error, got %v", wrapped)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"state", &StateError{Message: "please restart the command"}, "please restart the command"},
		{"domain passthrough", &UpstreamError{Kind: UpstreamDomain, Message: "objective is closed"}, "objective is closed"},
		{"network generic", &UpstreamError{Kind: UpstreamNetwork, Op: "commit", Err: stderrors.New("refused")}, "The task service did not respond. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Fatalf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
