package domain

import (
	"encoding/json"
	"time"
)

type ConflictType string

const (
	ConflictTypeConcurrentEdit ConflictType = "concurrent_edit"
)

type ResolutionType string

const (
	ResolutionAcceptCandidate ResolutionType = "accept_candidate"
	ResolutionAcceptExisting  ResolutionType = "accept_existing"
	ResolutionManual          ResolutionType = "manual"
)

// Conflict is returned ephemeral by detection and only materialized as
// a record once resolution is requested. Resolution never rewrites the
// underlying document; the caller applies SelectedValue itself.
type Conflict struct {
	ID                string          `json:"id"`
	DocumentID        string          `json:"document_id"`
	Field             string          `json:"field"`
	CandidateChange   *ChangeEvent    `json:"candidate_change"`
	ConflictingChange *ChangeEvent    `json:"conflicting_change"`
	ConflictType      ConflictType    `json:"conflict_type"`
	IsResolved        bool            `json:"is_resolved"`
	SelectedValue     json.RawMessage `json:"selected_value,omitempty"`
	ResolvedBy        *string         `json:"resolved_by,omitempty"`
	DetectedAt        time.Time       `json:"detected_at"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty"`
}

type ResolveConflictRequest struct {
	ResolutionType ResolutionType  `json:"resolution_type" validate:"required,oneof=accept_candidate accept_existing manual"`
	SelectedValue  json.RawMessage `json:"selected_value"`
	ResolvedBy     string          `json:"resolved_by" validate:"required"`
}
