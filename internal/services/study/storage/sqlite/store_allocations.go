package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/StanNowak/Surveys/internal/services/study/storage"
)

// CreateAllocation inserts the allocation unless the (participant, stratum)
// key is already taken, then reads back whichever row won. The insert relies
// on the primary key constraint rather than a prior existence check, so
// concurrent duplicate calls race safely: one insert lands, the rest no-op on
// conflict, and every caller returns the stored row.
func (s *Store) CreateAllocation(ctx context.Context, allocation storage.Allocation) (storage.Allocation, error) {
	if err := ctx.Err(); err != nil {
		return storage.Allocation{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Allocation{}, err
	}
	participantID := strings.TrimSpace(allocation.ParticipantID)
	stratum := strings.TrimSpace(allocation.Stratum)
	if participantID == "" {
		return storage.Allocation{}, fmt.Errorf("participant id is required")
	}
	if stratum == "" {
		return storage.Allocation{}, fmt.Errorf("stratum is required")
	}
	if allocation.Pair[0] == "" || allocation.Pair[1] == "" {
		return storage.Allocation{}, fmt.Errorf("pair items are required")
	}
	createdAt := allocation.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO allocations (participant_id, stratum, pair_first, pair_second, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (participant_id, stratum) DO NOTHING`,
		participantID,
		stratum,
		allocation.Pair[0],
		allocation.Pair[1],
		toMillis(createdAt),
	)
	if err != nil {
		return storage.Allocation{}, fmt.Errorf("create allocation: %w", err)
	}

	stored, err := s.GetAllocation(ctx, participantID, stratum)
	if err != nil {
		return storage.Allocation{}, fmt.Errorf("read allocation after insert: %w", err)
	}
	return stored, nil
}

// GetAllocation returns the allocation for one (participant, stratum) key.
func (s *Store) GetAllocation(ctx context.Context, participantID, stratum string) (storage.Allocation, error) {
	if err := ctx.Err(); err != nil {
		return storage.Allocation{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Allocation{}, err
	}
	participantID = strings.TrimSpace(participantID)
	stratum = strings.TrimSpace(stratum)
	if participantID == "" {
		return storage.Allocation{}, fmt.Errorf("participant id is required")
	}
	if stratum == "" {
		return storage.Allocation{}, fmt.Errorf("stratum is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT participant_id, stratum, pair_first, pair_second, created_at
		   FROM allocations
		  WHERE participant_id = ? AND stratum = ?`,
		participantID,
		stratum,
	)

	var allocation storage.Allocation
	var createdAt int64
	err := row.Scan(
		&allocation.ParticipantID,
		&allocation.Stratum,
		&allocation.Pair[0],
		&allocation.Pair[1],
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Allocation{}, storage.ErrNotFound
		}
		return storage.Allocation{}, fmt.Errorf("get allocation: %w", err)
	}
	allocation.CreatedAt = fromMillis(createdAt)
	return allocation, nil
}
