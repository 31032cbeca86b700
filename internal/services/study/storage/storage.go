// Package storage defines persistence contracts for study engine state.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Assignment is the pair handed to one participant within a stratum.
type Assignment struct {
	Pair    [2]string
	Stratum string
}

// Allocation stores one participant's assignment. An allocation is written
// exactly once per (participant, stratum) key and never mutated afterwards;
// its existence is the sole authority for "already assigned".
type Allocation struct {
	ParticipantID string
	Stratum       string
	Pair          [2]string
	CreatedAt     time.Time
}

// Assignment returns the allocation as the externally visible assignment.
func (a Allocation) Assignment() Assignment {
	return Assignment{Pair: a.Pair, Stratum: a.Stratum}
}

// Response stores one submitted survey payload for later analysis.
type Response struct {
	ID            string
	ParticipantID string
	SurveyID      string
	Payload       json.RawMessage
	PanelMember   bool
	BankVersion   string
	ConfigVersion string
	ReceivedAt    time.Time
}

// AllocationStore persists participant allocations.
type AllocationStore interface {
	// CreateAllocation inserts the allocation unless one already exists for
	// its (participant, stratum) key, then returns the stored row. Under
	// concurrent duplicate calls exactly one insert wins and every caller
	// observes the winning row.
	CreateAllocation(ctx context.Context, allocation Allocation) (Allocation, error)

	// GetAllocation returns the allocation for the key, or ErrNotFound.
	GetAllocation(ctx context.Context, participantID, stratum string) (Allocation, error)
}

// TallyStore exposes the per-stratum exposure counters. Absent keys read as
// zero; counts only ever increase.
type TallyStore interface {
	ItemTypeCount(ctx context.Context, stratum, itemType string) (int64, error)
	PairCount(ctx context.Context, stratum, itemA, itemB string) (int64, error)
	IncrementItemTypeCount(ctx context.Context, stratum, itemType string) error
	IncrementPairCount(ctx context.Context, stratum, itemA, itemB string) error

	// IncrementTallies bumps the pair tally and both item tallies for one
	// submitted pair inside a single transaction.
	IncrementTallies(ctx context.Context, stratum string, pair [2]string) error
}

// ResponseStore archives submitted response payloads.
type ResponseStore interface {
	SaveResponse(ctx context.Context, response Response) error
}

// Store combines the persistence contracts backing the study engine.
type Store interface {
	AllocationStore
	TallyStore
	ResponseStore
}
