// Package balancer orchestrates idempotent pair assignment and post-hoc
// tally updates for stratified studies.
package balancer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/StanNowak/Surveys/internal/platform/errors"
	"github.com/StanNowak/Surveys/internal/platform/random"
	"github.com/StanNowak/Surveys/internal/services/study/domain/balance"
	"github.com/StanNowak/Surveys/internal/services/study/storage"
)

// Service implements the stratified balancing facade over study storage.
type Service struct {
	store storage.Store
	seed  func() (int64, error)
	clock func() time.Time
}

// NewService creates a balancer service backed by study storage.
func NewService(store storage.Store) *Service {
	return &Service{
		store: store,
		seed:  random.NewSeed,
		clock: time.Now,
	}
}

// Assign returns the participant's assignment for the stratum, creating it
// on first call.
//
// The first call computes the least-filled pair from the current item
// tallies and persists it; every later call for the same (participant,
// stratum) key returns the stored assignment unchanged, regardless of the
// candidates argument. Tallies are read outside the insert, so a
// concurrently advancing tally may make the chosen pair slightly stale;
// the insert's uniqueness guarantee is what matters.
func (s *Service) Assign(ctx context.Context, participantID, stratum string, candidates []string) (storage.Assignment, error) {
	if s == nil || s.store == nil {
		return storage.Assignment{}, apperrors.New(apperrors.CodeStorageUnavailable, "study storage is not configured")
	}
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return storage.Assignment{}, apperrors.New(apperrors.CodeAssignParticipantMissing, "participant id is required")
	}
	if len(candidates) < 2 {
		return storage.Assignment{}, apperrors.New(apperrors.CodeAssignCandidatesTooFew, "at least two candidate item types are required")
	}
	stratum = balance.NormalizeStratum(stratum)

	existing, err := s.store.GetAllocation(ctx, participantID, stratum)
	if err == nil {
		return existing.Assignment(), nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.Assignment{}, fmt.Errorf("look up allocation: %w", err)
	}

	tallies := make(map[string]int64, len(candidates))
	for _, itemType := range candidates {
		count, err := s.store.ItemTypeCount(ctx, stratum, itemType)
		if err != nil {
			return storage.Assignment{}, fmt.Errorf("read tally for %s: %w", itemType, err)
		}
		tallies[itemType] = count
	}

	seed, err := s.seed()
	if err != nil {
		return storage.Assignment{}, fmt.Errorf("seed pair selection: %w", err)
	}
	pair, err := balance.ChoosePair(balance.Request{
		Tallies:    tallies,
		Candidates: candidates,
		Seed:       seed,
	})
	if err != nil {
		switch {
		case errors.Is(err, balance.ErrTooFewCandidates):
			return storage.Assignment{}, apperrors.Wrap(apperrors.CodeAssignCandidatesTooFew, "at least two candidate item types are required", err)
		case errors.Is(err, balance.ErrRepeatedCandidate):
			return storage.Assignment{}, apperrors.Wrap(apperrors.CodeAssignCandidatesRepeated, "candidate item types must be distinct", err)
		default:
			return storage.Assignment{}, fmt.Errorf("choose pair: %w", err)
		}
	}

	stored, err := s.store.CreateAllocation(ctx, storage.Allocation{
		ParticipantID: participantID,
		Stratum:       stratum,
		Pair:          pair,
		CreatedAt:     s.clock().UTC(),
	})
	if err != nil {
		return storage.Assignment{}, fmt.Errorf("persist allocation: %w", err)
	}
	return stored.Assignment(), nil
}

// RecordResponse bumps the pair tally and both item tallies for one
// submitted pair.
//
// Unlike Assign this is not idempotent: repeated calls for the same
// submission keep incrementing. Deduplicating retries is the caller's
// tradeoff to make.
func (s *Service) RecordResponse(ctx context.Context, stratum string, pair []string) error {
	if s == nil || s.store == nil {
		return apperrors.New(apperrors.CodeStorageUnavailable, "study storage is not configured")
	}
	if len(pair) != 2 {
		return apperrors.New(apperrors.CodeResponsePairSize, "pair must contain exactly 2 items")
	}
	stratum = balance.NormalizeStratum(stratum)

	if err := s.store.IncrementTallies(ctx, stratum, [2]string{pair[0], pair[1]}); err != nil {
		return fmt.Errorf("increment tallies: %w", err)
	}
	return nil
}
