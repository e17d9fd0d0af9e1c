package domain

import (
	"errors"
	"testing"
)

func TestIdentityFor(t *testing.T) {
	t.Parallel()

	// Known SHA-256 test vector
	if got := IdentityFor("abc"); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("Expected SHA-256 hex of title, got %s", got)
	}

	if IdentityFor("Tarte Tatin") != IdentityFor("Tarte Tatin") {
		t.Error("Expected identical titles to share an identity")
	}

	if IdentityFor("Tarte Tatin") == IdentityFor("Tarte tatin") {
		t.Error("Expected different titles to have different identities")
	}
}

func TestNewWorkItem(t *testing.T) {
	t.Parallel()

	item, err := NewWorkItem(2, "Ratatouille", "légumes du soleil")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if item.Identity != IdentityFor("Ratatouille") {
		t.Errorf("Expected identity derived from title, got %s", item.Identity)
	}

	if item.Status() != StatusPending {
		t.Errorf("Expected status %s, got %s", StatusPending, item.Status())
	}

	if item.Progress(10) != "[3/10]" {
		t.Errorf("Expected progress [3/10], got %s", item.Progress(10))
	}

	// Identity must not depend on the description
	other, err := NewWorkItem(0, "Ratatouille", "autre description")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if other.Identity != item.Identity {
		t.Error("Expected identity to ignore description and position")
	}

	_, err = NewWorkItem(0, "   ", "")
	if !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("Expected error %v, got %v", ErrEmptyTitle, err)
	}

	_, err = NewWorkItemWithIdentity(0, "", "t", "")
	if !errors.Is(err, ErrEmptyIdentity) {
		t.Errorf("Expected error %v, got %v", ErrEmptyIdentity, err)
	}
}

func TestWorkItemTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		steps   []func(*WorkItem) error
		want    Status
		wantErr bool
	}{
		{
			name:  "pending to succeeded",
			steps: []func(*WorkItem) error{(*WorkItem).MarkSucceeded},
			want:  StatusSucceeded,
		},
		{
			name:  "submitted to failed",
			steps: []func(*WorkItem) error{(*WorkItem).MarkSubmitted, (*WorkItem).MarkFailed},
			want:  StatusFailed,
		},
		{
			name:    "succeeded is terminal",
			steps:   []func(*WorkItem) error{(*WorkItem).MarkSucceeded, (*WorkItem).MarkFailed},
			want:    StatusSucceeded,
			wantErr: true,
		},
		{
			name:    "failed is terminal",
			steps:   []func(*WorkItem) error{(*WorkItem).MarkFailed, (*WorkItem).MarkSucceeded},
			want:    StatusFailed,
			wantErr: true,
		},
		{
			name:    "cannot submit twice",
			steps:   []func(*WorkItem) error{(*WorkItem).MarkSubmitted, (*WorkItem).MarkSubmitted},
			want:    StatusSubmitted,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item, err := NewWorkItem(0, "Quiche", "")
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			var lastErr error
			for _, step := range tc.steps {
				lastErr = step(item)
			}

			if tc.wantErr && !errors.Is(lastErr, ErrInvalidTransition) {
				t.Errorf("Expected %v, got %v", ErrInvalidTransition, lastErr)
			}
			if !tc.wantErr && lastErr != nil {
				t.Errorf("Expected no error, got %v", lastErr)
			}
			if item.Status() != tc.want {
				t.Errorf("Expected status %s, got %s", tc.want, item.Status())
			}
		})
	}
}

func TestWorkItemFields(t *testing.T) {
	t.Parallel()

	item, err := NewWorkItem(0, "Soupe", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	item.Require("title_en", "text_en")

	if item.Complete() {
		t.Error("Expected item with no results to be incomplete")
	}

	if err := item.SetField("title_en", "Soup"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := item.SetField("title_de", "Suppe"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Expected %v, got %v", ErrUnknownField, err)
	}

	missing := item.MissingFields()
	if len(missing) != 1 || missing[0] != "text_en" {
		t.Errorf("Expected [text_en] missing, got %v", missing)
	}

	if _, err := item.Results(); !errors.Is(err, ErrIncomplete) {
		t.Errorf("Expected %v for partial item, got %v", ErrIncomplete, err)
	}

	if err := item.SetField("text_en", "Heat the water."); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	results, err := item.Results()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if results["title_en"] != "Soup" || results["text_en"] != "Heat the water." {
		t.Errorf("Unexpected results %v", results)
	}

	// Narrowing the requirement drops stale results
	item.Require("text_en")
	if _, ok := item.Field("title_en"); ok {
		t.Error("Expected result for a no longer required field to be dropped")
	}
}
