package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertPriceChangeSQL = `INSERT INTO price_changes (
        mint,
        symbol,
        price,
        previous_price,
        percent_change,
        changed_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    );`

	listPriceChangesBetweenSQL = `SELECT
        id,
        mint,
        symbol,
        price,
        previous_price,
        percent_change,
        changed_at,
        created_at
    FROM price_changes
    WHERE mint = $1
      AND changed_at >= $2
      AND changed_at < $3
    ORDER BY changed_at;`

	listRecentPriceChangesSQL = `SELECT
        id,
        mint,
        symbol,
        price,
        previous_price,
        percent_change,
        changed_at,
        created_at
    FROM price_changes
    ORDER BY changed_at DESC
    LIMIT $1;`

	countPriceChangesSQL = `SELECT COUNT(*) FROM price_changes;`

	insertPlaySQL = `INSERT INTO settled_plays (
        signature,
        user_address,
        token_mint,
        game_name,
        wager,
        multiplier,
        profit,
        jackpot_payout,
        played_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    ON CONFLICT (signature) DO NOTHING;`

	listRecentPlaysSQL = `SELECT
        signature,
        user_address,
        token_mint,
        game_name,
        wager,
        multiplier,
        profit,
        jackpot_payout,
        played_at,
        created_at
    FROM settled_plays
    ORDER BY played_at DESC
    LIMIT $1;`

	deletePlaysBeforeSQL = `DELETE FROM settled_plays WHERE played_at < $1;`

	countPlaysSQL = `SELECT COUNT(*) FROM settled_plays;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PriceChangeStore defines operations for ticker history persistence.
type PriceChangeStore interface {
	InsertPriceChange(ctx context.Context, change PriceChange) error
	ListPriceChangesBetween(ctx context.Context, mint string, from, to time.Time) ([]PriceChange, error)
	ListRecentPriceChanges(ctx context.Context, limit int) ([]PriceChange, error)
	CountPriceChanges(ctx context.Context) (int64, error)
}

// PlayStore defines operations for settled-play persistence.
type PlayStore interface {
	InsertPlay(ctx context.Context, play SettledPlay) (inserted bool, err error)
	ListRecentPlays(ctx context.Context, limit int) ([]SettledPlay, error)
	DeletePlaysBefore(ctx context.Context, olderThan time.Time) error
	CountPlays(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to price changes and settled plays.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertPriceChange persists one price transition.
func (s *Store) InsertPriceChange(ctx context.Context, change PriceChange) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertPriceChangeSQL,
		change.Mint,
		change.Symbol,
		change.Price.String(),
		change.PreviousPrice.String(),
		change.PercentChange.String(),
		change.ChangedAt,
	)
	if execErr != nil {
		return fmt.Errorf("insert price change: %w", execErr)
	}
	return nil
}

// ListPriceChangesBetween lists one instrument's transitions in a window.
func (s *Store) ListPriceChangesBetween(ctx context.Context, mint string, from, to time.Time) ([]PriceChange, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPriceChangesBetweenSQL, mint, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list price changes between: %w", queryErr)
	}
	defer rows.Close()

	return collectPriceChanges(rows, 0)
}

// ListRecentPriceChanges lists the most recent transitions across all
// instruments.
func (s *Store) ListRecentPriceChanges(ctx context.Context, limit int) ([]PriceChange, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentPriceChangesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent price changes: %w", queryErr)
	}
	defer rows.Close()

	return collectPriceChanges(rows, limit)
}

// CountPriceChanges counts stored transitions.
func (s *Store) CountPriceChanges(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countPriceChangesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count price changes: %w", scanErr)
	}
	return count, nil
}

// InsertPlay persists one settled play. Duplicate signatures are ignored;
// inserted reports whether a row was written.
func (s *Store) InsertPlay(ctx context.Context, play SettledPlay) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	tag, execErr := pool.Exec(ctx, insertPlaySQL,
		play.Signature,
		play.UserAddress,
		play.TokenMint,
		play.GameName,
		play.Wager.String(),
		play.Multiplier.String(),
		play.Profit.String(),
		play.JackpotPayout.String(),
		play.PlayedAt,
	)
	if execErr != nil {
		return false, fmt.Errorf("insert settled play: %w", execErr)
	}
	return tag.RowsAffected() > 0, nil
}

// ListRecentPlays lists the most recent settled plays.
func (s *Store) ListRecentPlays(ctx context.Context, limit int) ([]SettledPlay, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentPlaysSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent plays: %w", queryErr)
	}
	defer rows.Close()

	plays := make([]SettledPlay, 0, limit)
	for rows.Next() {
		play, scanErr := scanPlay(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		plays = append(plays, play)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return plays, nil
}

// DeletePlaysBefore deletes historical plays.
func (s *Store) DeletePlaysBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deletePlaysBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete plays before: %w", execErr)
	}
	return nil
}

// CountPlays counts stored plays.
func (s *Store) CountPlays(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countPlaysSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count plays: %w", scanErr)
	}
	return count, nil
}

func collectPriceChanges(rows pgx.Rows, sizeHint int) ([]PriceChange, error) {
	changes := make([]PriceChange, 0, sizeHint)
	for rows.Next() {
		change, err := scanPriceChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return changes, nil
}

func scanPriceChange(rows pgx.Rows) (PriceChange, error) {
	var (
		change      PriceChange
		priceStr    string
		previousStr string
		pctStr      string
	)

	if err := rows.Scan(
		&change.ID,
		&change.Mint,
		&change.Symbol,
		&priceStr,
		&previousStr,
		&pctStr,
		&change.ChangedAt,
		&change.CreatedAt,
	); err != nil {
		return PriceChange{}, err
	}

	var err error
	change.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return PriceChange{}, fmt.Errorf("parse price: %w", err)
	}
	change.PreviousPrice, err = decimal.NewFromString(previousStr)
	if err != nil {
		return PriceChange{}, fmt.Errorf("parse previous price: %w", err)
	}
	change.PercentChange, err = decimal.NewFromString(pctStr)
	if err != nil {
		return PriceChange{}, fmt.Errorf("parse percent change: %w", err)
	}

	return change, nil
}

func scanPlay(rows pgx.Rows) (SettledPlay, error) {
	var (
		play       SettledPlay
		wagerStr   string
		multStr    string
		profitStr  string
		jackpotStr string
	)

	if err := rows.Scan(
		&play.Signature,
		&play.UserAddress,
		&play.TokenMint,
		&play.GameName,
		&wagerStr,
		&multStr,
		&profitStr,
		&jackpotStr,
		&play.PlayedAt,
		&play.CreatedAt,
	); err != nil {
		return SettledPlay{}, err
	}

	var err error
	play.Wager, err = decimal.NewFromString(wagerStr)
	if err != nil {
		return SettledPlay{}, fmt.Errorf("parse wager: %w", err)
	}
	play.Multiplier, err = decimal.NewFromString(multStr)
	if err != nil {
		return SettledPlay{}, fmt.Errorf("parse multiplier: %w", err)
	}
	play.Profit, err = decimal.NewFromString(profitStr)
	if err != nil {
		return SettledPlay{}, fmt.Errorf("parse profit: %w", err)
	}
	play.JackpotPayout, err = decimal.NewFromString(jackpotStr)
	if err != nil {
		return SettledPlay{}, fmt.Errorf("parse jackpot payout: %w", err)
	}

	return play, nil
}
