package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/StanNowak/Surveys/internal/services/study/domain/balance"
	"github.com/StanNowak/Surveys/internal/services/study/storage"
)

const (
	incrementItemTypeSQL = `INSERT INTO ap_type_counts (stratum, ap_type, count, updated_at)
	 VALUES (?, ?, 1, ?)
	 ON CONFLICT (stratum, ap_type)
	 DO UPDATE SET count = count + 1, updated_at = excluded.updated_at`

	incrementPairSQL = `INSERT INTO pair_counts (stratum, ap_a, ap_b, count, updated_at)
	 VALUES (?, ?, ?, 1, ?)
	 ON CONFLICT (stratum, ap_a, ap_b)
	 DO UPDATE SET count = count + 1, updated_at = excluded.updated_at`
)

// ItemTypeCount returns the submission count for one (stratum, item type)
// key. Absent keys read as zero, never as an error.
func (s *Store) ItemTypeCount(ctx context.Context, stratum, itemType string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(stratum) == "" || strings.TrimSpace(itemType) == "" {
		return 0, fmt.Errorf("stratum and item type are required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT count FROM ap_type_counts WHERE stratum = ? AND ap_type = ?`,
		stratum,
		itemType,
	)
	var count int64
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get item type count: %w", err)
	}
	return count, nil
}

// PairCount returns the submission count for one canonicalized pair key.
// Absent keys read as zero.
func (s *Store) PairCount(ctx context.Context, stratum, itemA, itemB string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(stratum) == "" || strings.TrimSpace(itemA) == "" || strings.TrimSpace(itemB) == "" {
		return 0, fmt.Errorf("stratum and pair items are required")
	}

	first, second := balance.CanonicalPair(itemA, itemB)
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT count FROM pair_counts WHERE stratum = ? AND ap_a = ? AND ap_b = ?`,
		stratum,
		first,
		second,
	)
	var count int64
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get pair count: %w", err)
	}
	return count, nil
}

// IncrementItemTypeCount upserts one item type tally, starting at zero when
// absent. The increment happens inside the upsert so concurrent submissions
// for the same key never lose updates.
func (s *Store) IncrementItemTypeCount(ctx context.Context, stratum, itemType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(stratum) == "" || strings.TrimSpace(itemType) == "" {
		return fmt.Errorf("stratum and item type are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, incrementItemTypeSQL, stratum, itemType, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("increment item type count: %w", err)
	}
	return nil
}

// IncrementPairCount upserts one pair tally after canonicalizing the pair,
// so (a, b) and (b, a) land on the same row.
func (s *Store) IncrementPairCount(ctx context.Context, stratum, itemA, itemB string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(stratum) == "" || strings.TrimSpace(itemA) == "" || strings.TrimSpace(itemB) == "" {
		return fmt.Errorf("stratum and pair items are required")
	}

	first, second := balance.CanonicalPair(itemA, itemB)
	_, err := s.sqlDB.ExecContext(ctx, incrementPairSQL, stratum, first, second, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("increment pair count: %w", err)
	}
	return nil
}

// IncrementTallies bumps the pair tally and both item tallies for one
// submitted pair in a single transaction, so a failure leaves no partial
// counts behind.
func (s *Store) IncrementTallies(ctx context.Context, stratum string, pair [2]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(stratum) == "" || pair[0] == "" || pair[1] == "" {
		return fmt.Errorf("stratum and pair items are required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tally transaction: %w", err)
	}
	now := toMillis(time.Now())

	first, second := balance.CanonicalPair(pair[0], pair[1])
	if _, err := tx.ExecContext(ctx, incrementPairSQL, stratum, first, second, now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("increment pair count: %w", err)
	}
	for _, itemType := range pair {
		if _, err := tx.ExecContext(ctx, incrementItemTypeSQL, stratum, itemType, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("increment item type count: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tally transaction: %w", err)
	}
	return nil
}

var _ storage.TallyStore = (*Store)(nil)
