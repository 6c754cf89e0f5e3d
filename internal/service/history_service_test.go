package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"cms-collab-server/internal/domain"
)

func recordChange(t *testing.T, s *HistoryService, docID, userID, field string) *domain.ChangeEvent {
	t.Helper()
	event, err := s.RecordChange(&domain.RecordChangeRequest{
		DocumentID: docID,
		Collection: "pages",
		UserID:     userID,
		ChangeType: domain.ChangeTypeUpdate,
		Field:      field,
	})
	if err != nil {
		t.Fatalf("RecordChange() error = %v", err)
	}
	return event
}

func TestHistoryService_RecordChangeValidation(t *testing.T) {
	s := NewHistoryService(nil)

	tests := []struct {
		name string
		req  *domain.RecordChangeRequest
	}{
		{"missing document id", &domain.RecordChangeRequest{Collection: "pages", UserID: "u1", ChangeType: domain.ChangeTypeUpdate}},
		{"missing collection", &domain.RecordChangeRequest{DocumentID: "doc1", UserID: "u1", ChangeType: domain.ChangeTypeUpdate}},
		{"missing user id", &domain.RecordChangeRequest{DocumentID: "doc1", Collection: "pages", ChangeType: domain.ChangeTypeUpdate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.RecordChange(tt.req)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestHistoryService_InsertionOrder(t *testing.T) {
	s := NewHistoryService(nil)
	for i := 0; i < 5; i++ {
		recordChange(t, s, "doc1", fmt.Sprintf("user%d", i), "title")
	}

	history := s.GetChangeHistory("doc1", domain.HistoryQuery{})
	if len(history) != 5 {
		t.Fatalf("expected 5 events, got %d", len(history))
	}
	for i, event := range history {
		if event.UserID != fmt.Sprintf("user%d", i) {
			t.Fatalf("history out of insertion order at %d: %s", i, event.UserID)
		}
	}
}

func TestHistoryService_PagesAreDisjointAndComplete(t *testing.T) {
	s := NewHistoryService(nil)
	for i := 0; i < 10; i++ {
		recordChange(t, s, "doc1", fmt.Sprintf("user%d", i), "title")
	}

	var union []*domain.ChangeEvent
	for offset := 0; offset < 10; offset += 3 {
		page := s.GetChangeHistory("doc1", domain.HistoryQuery{Limit: 3, Offset: offset})
		union = append(union, page...)
	}

	if len(union) != 10 {
		t.Fatalf("union of pages has %d events, want 10", len(union))
	}
	for i, event := range union {
		if event.UserID != fmt.Sprintf("user%d", i) {
			t.Fatalf("paged union out of order at %d: %s", i, event.UserID)
		}
	}

	if page := s.GetChangeHistory("doc1", domain.HistoryQuery{Limit: 3, Offset: 100}); page != nil {
		t.Errorf("expected empty page past the end, got %d events", len(page))
	}
}

func TestHistoryService_Filters(t *testing.T) {
	s := NewHistoryService(nil)
	recordChange(t, s, "doc1", "user1", "title")
	mid := time.Now()
	recordChange(t, s, "doc1", "user2", "body")
	recordChange(t, s, "doc2", "user1", "title")

	byUser := s.GetChangeHistory("doc1", domain.HistoryQuery{UserID: "user2"})
	if len(byUser) != 1 || byUser[0].Field != "body" {
		t.Fatalf("user filter failed: %+v", byUser)
	}

	since := s.GetChangeHistory("doc1", domain.HistoryQuery{FromDate: &mid})
	if len(since) != 1 || since[0].UserID != "user2" {
		t.Fatalf("from-date filter failed: %+v", since)
	}

	until := s.GetChangeHistory("doc1", domain.HistoryQuery{ToDate: &mid})
	if len(until) != 1 || until[0].UserID != "user1" {
		t.Fatalf("to-date filter failed: %+v", until)
	}

	if other := s.GetChangeHistory("doc3", domain.HistoryQuery{}); len(other) != 0 {
		t.Errorf("expected empty history for unknown document, got %d", len(other))
	}
}
