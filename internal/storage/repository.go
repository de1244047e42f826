package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createSchemaSQL = `CREATE TABLE IF NOT EXISTS stake_records (
        asset           TEXT        NOT NULL,
        holder          TEXT        NOT NULL,
        staked_amount   NUMERIC     NOT NULL,
        staked_at       TIMESTAMPTZ NOT NULL,
        unstaked_amount NUMERIC     NOT NULL,
        unstaked_at     TIMESTAMPTZ NOT NULL,
        reward_amount   NUMERIC     NOT NULL,
        updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (asset, holder)
    );
    CREATE TABLE IF NOT EXISTS reward_rates (
        asset      TEXT        PRIMARY KEY,
        percent    SMALLINT    NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS ledger_settings (
        name       TEXT        PRIMARY KEY,
        value      TEXT        NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS ledger_events (
        id          BIGSERIAL   PRIMARY KEY,
        name        TEXT        NOT NULL,
        asset       TEXT,
        holder      TEXT        NOT NULL,
        amount      NUMERIC,
        old_owner   TEXT,
        new_owner   TEXT,
        occurred_at TIMESTAMPTZ NOT NULL,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	upsertStakeRecordSQL = `INSERT INTO stake_records (
        asset, holder, staked_amount, staked_at, unstaked_amount, unstaked_at, reward_amount, updated_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,now())
    ON CONFLICT (asset, holder) DO UPDATE
    SET staked_amount   = EXCLUDED.staked_amount,
        staked_at       = EXCLUDED.staked_at,
        unstaked_amount = EXCLUDED.unstaked_amount,
        unstaked_at     = EXCLUDED.unstaked_at,
        reward_amount   = EXCLUDED.reward_amount,
        updated_at      = now();`

	listStakeRecordsSQL = `SELECT
        asset, holder, staked_amount, staked_at, unstaked_amount, unstaked_at, reward_amount, updated_at
    FROM stake_records
    ORDER BY asset, holder;`

	getStakeRecordSQL = `SELECT
        asset, holder, staked_amount, staked_at, unstaked_amount, unstaked_at, reward_amount, updated_at
    FROM stake_records
    WHERE asset = $1 AND holder = $2;`

	upsertRewardRateSQL = `INSERT INTO reward_rates (asset, percent, updated_at)
    VALUES ($1,$2,now())
    ON CONFLICT (asset) DO UPDATE
    SET percent = EXCLUDED.percent, updated_at = now();`

	listRewardRatesSQL = `SELECT asset, percent, updated_at FROM reward_rates ORDER BY asset;`

	upsertSettingSQL = `INSERT INTO ledger_settings (name, value, updated_at)
    VALUES ($1,$2,now())
    ON CONFLICT (name) DO UPDATE
    SET value = EXCLUDED.value, updated_at = now();`

	getSettingSQL = `SELECT value FROM ledger_settings WHERE name = $1;`

	insertEventSQL = `INSERT INTO ledger_events (
        name, asset, holder, amount, old_owner, new_owner, occurred_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id, created_at;`

	listRecentEventsSQL = `SELECT
        id, name, asset, holder, amount, old_owner, new_owner, occurred_at, created_at
    FROM ledger_events
    ORDER BY id DESC
    LIMIT $1;`

	listEventsBetweenSQL = `SELECT
        id, name, asset, holder, amount, old_owner, new_owner, occurred_at, created_at
    FROM ledger_events
    WHERE occurred_at >= $1
      AND occurred_at < $2
    ORDER BY id;`

	countEventsSQL = `SELECT COUNT(*) FROM ledger_events;`
)

// StakeRecordStore defines persistence for stake records.
type StakeRecordStore interface {
	UpsertStakeRecord(ctx context.Context, row StakeRecordRow) error
	GetStakeRecord(ctx context.Context, asset, holder common.Address) (StakeRecordRow, error)
	ListStakeRecords(ctx context.Context) ([]StakeRecordRow, error)
}

// RewardRateStore defines persistence for reward rates.
type RewardRateStore interface {
	UpsertRewardRate(ctx context.Context, row RewardRateRow) error
	ListRewardRates(ctx context.Context) ([]RewardRateRow, error)
}

// SettingStore defines persistence for ledger settings (owner, pause flag).
type SettingStore interface {
	UpsertSetting(ctx context.Context, name, value string) error
	GetSetting(ctx context.Context, name string) (string, bool, error)
}

// EventStore defines persistence for the audit log.
type EventStore interface {
	InsertEvent(ctx context.Context, row EventRow) (EventRow, error)
	ListRecentEvents(ctx context.Context, limit int) ([]EventRow, error)
	ListEventsBetween(ctx context.Context, from, to time.Time) ([]EventRow, error)
	CountEvents(ctx context.Context) (int64, error)
}

// LedgerMirror is the slice of the store the staking service writes through.
type LedgerMirror interface {
	UpsertStakeRecord(ctx context.Context, row StakeRecordRow) error
	UpsertRewardRate(ctx context.Context, row RewardRateRow) error
	UpsertSetting(ctx context.Context, name, value string) error
}

// Store aggregates access to records, rates, settings, and the audit log.
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

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the ledger tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, createSchemaSQL); execErr != nil {
		return fmt.Errorf("ensure schema: %w", execErr)
	}
	return nil
}

// UpsertStakeRecord persists or updates one stake record.
func (s *Store) UpsertStakeRecord(ctx context.Context, row StakeRecordRow) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, execErr := pool.Exec(ctx, upsertStakeRecordSQL,
		row.Asset.Hex(),
		row.Holder.Hex(),
		row.StakedAmount.String(),
		row.StakedAt,
		row.UnstakedAmount.String(),
		row.UnstakedAt,
		row.RewardAmount.String(),
	)
	if execErr != nil {
		return fmt.Errorf("upsert stake record: %w", execErr)
	}
	return nil
}

// GetStakeRecord loads one stake record; pgx.ErrNoRows when absent.
func (s *Store) GetStakeRecord(ctx context.Context, asset, holder common.Address) (StakeRecordRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return StakeRecordRow{}, err
	}
	rows, queryErr := pool.Query(ctx, getStakeRecordSQL, asset.Hex(), holder.Hex())
	if queryErr != nil {
		return StakeRecordRow{}, fmt.Errorf("get stake record: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return StakeRecordRow{}, rows.Err()
		}
		return StakeRecordRow{}, pgx.ErrNoRows
	}
	return scanStakeRecord(rows)
}

// ListStakeRecords loads all stake records for hydration.
func (s *Store) ListStakeRecords(ctx context.Context) ([]StakeRecordRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listStakeRecordsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list stake records: %w", queryErr)
	}
	defer rows.Close()

	records := make([]StakeRecordRow, 0)
	for rows.Next() {
		row, scanErr := scanStakeRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// UpsertRewardRate persists or updates one reward rate.
func (s *Store) UpsertRewardRate(ctx context.Context, row RewardRateRow) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertRewardRateSQL, row.Asset.Hex(), int16(row.Percent)); execErr != nil {
		return fmt.Errorf("upsert reward rate: %w", execErr)
	}
	return nil
}

// ListRewardRates loads all configured rates.
func (s *Store) ListRewardRates(ctx context.Context) ([]RewardRateRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listRewardRatesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list reward rates: %w", queryErr)
	}
	defer rows.Close()

	rates := make([]RewardRateRow, 0)
	for rows.Next() {
		var (
			assetStr string
			percent  int16
			updated  time.Time
		)
		if err := rows.Scan(&assetStr, &percent, &updated); err != nil {
			return nil, err
		}
		rates = append(rates, RewardRateRow{
			Asset:     common.HexToAddress(assetStr),
			Percent:   uint8(percent),
			UpdatedAt: updated,
		})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rates, nil
}

// UpsertSetting persists one ledger setting.
func (s *Store) UpsertSetting(ctx context.Context, name, value string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertSettingSQL, name, value); execErr != nil {
		return fmt.Errorf("upsert setting %s: %w", name, execErr)
	}
	return nil
}

// GetSetting loads one setting; the second return reports presence.
func (s *Store) GetSetting(ctx context.Context, name string) (string, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return "", false, err
	}
	var value string
	if scanErr := pool.QueryRow(ctx, getSettingSQL, name).Scan(&value); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting %s: %w", name, scanErr)
	}
	return value, true, nil
}

// InsertEvent appends one audit entry.
func (s *Store) InsertEvent(ctx context.Context, row EventRow) (EventRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return EventRow{}, err
	}

	var asset, amount, oldOwner, newOwner interface{}
	if row.Asset != nil {
		asset = row.Asset.Hex()
	}
	if row.Amount != nil {
		amount = row.Amount.String()
	}
	if row.OldOwner != nil {
		oldOwner = row.OldOwner.Hex()
	}
	if row.NewOwner != nil {
		newOwner = row.NewOwner.Hex()
	}

	out := row
	if scanErr := pool.QueryRow(ctx, insertEventSQL,
		row.Name, asset, row.Holder.Hex(), amount, oldOwner, newOwner, row.OccurredAt,
	).Scan(&out.ID, &out.CreatedAt); scanErr != nil {
		return EventRow{}, fmt.Errorf("insert event: %w", scanErr)
	}
	return out, nil
}

// ListRecentEvents lists the newest audit entries.
func (s *Store) ListRecentEvents(ctx context.Context, limit int) ([]EventRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listRecentEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent events: %w", queryErr)
	}
	defer rows.Close()
	return collectEvents(rows, limit)
}

// ListEventsBetween lists audit entries within a time window, oldest first.
func (s *Store) ListEventsBetween(ctx context.Context, from, to time.Time) ([]EventRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listEventsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list events between: %w", queryErr)
	}
	defer rows.Close()
	return collectEvents(rows, 0)
}

// CountEvents counts stored audit entries.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countEventsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count events: %w", scanErr)
	}
	return count, nil
}

func collectEvents(rows pgx.Rows, sizeHint int) ([]EventRow, error) {
	events := make([]EventRow, 0, sizeHint)
	for rows.Next() {
		row, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

func scanStakeRecord(rows pgx.Rows) (StakeRecordRow, error) {
	var (
		assetStr    string
		holderStr   string
		stakedStr   string
		stakedAt    time.Time
		unstakedStr string
		unstakedAt  time.Time
		rewardStr   string
		updatedAt   time.Time
	)
	if err := rows.Scan(
		&assetStr, &holderStr, &stakedStr, &stakedAt, &unstakedStr, &unstakedAt, &rewardStr, &updatedAt,
	); err != nil {
		return StakeRecordRow{}, err
	}

	staked, err := decimal.NewFromString(stakedStr)
	if err != nil {
		return StakeRecordRow{}, fmt.Errorf("parse staked amount: %w", err)
	}
	unstaked, err := decimal.NewFromString(unstakedStr)
	if err != nil {
		return StakeRecordRow{}, fmt.Errorf("parse unstaked amount: %w", err)
	}
	rewardAmt, err := decimal.NewFromString(rewardStr)
	if err != nil {
		return StakeRecordRow{}, fmt.Errorf("parse reward amount: %w", err)
	}

	return StakeRecordRow{
		Asset:          common.HexToAddress(assetStr),
		Holder:         common.HexToAddress(holderStr),
		StakedAmount:   staked,
		StakedAt:       stakedAt,
		UnstakedAmount: unstaked,
		UnstakedAt:     unstakedAt,
		RewardAmount:   rewardAmt,
		UpdatedAt:      updatedAt,
	}, nil
}

func scanEvent(rows pgx.Rows) (EventRow, error) {
	var (
		id        int64
		name      string
		asset     sql.NullString
		holderStr string
		amount    sql.NullString
		oldOwner  sql.NullString
		newOwner  sql.NullString
		occurred  time.Time
		created   time.Time
	)
	if err := rows.Scan(&id, &name, &asset, &holderStr, &amount, &oldOwner, &newOwner, &occurred, &created); err != nil {
		return EventRow{}, err
	}

	row := EventRow{
		ID:         id,
		Name:       name,
		Holder:     common.HexToAddress(holderStr),
		OccurredAt: occurred,
		CreatedAt:  created,
	}
	if asset.Valid {
		addr := common.HexToAddress(asset.String)
		row.Asset = &addr
	}
	if amount.Valid {
		value, err := decimal.NewFromString(amount.String)
		if err != nil {
			return EventRow{}, fmt.Errorf("parse event amount: %w", err)
		}
		row.Amount = &value
	}
	if oldOwner.Valid {
		addr := common.HexToAddress(oldOwner.String)
		row.OldOwner = &addr
	}
	if newOwner.Valid {
		addr := common.HexToAddress(newOwner.String)
		row.NewOwner = &addr
	}
	return row, nil
}
