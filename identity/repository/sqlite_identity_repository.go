package identityrepo

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mvc"
)

//go:embed schema.sql
var schemaSQL string

var (
	_ mvc.IdentityStore = &Repository{}
	_ mvc.GroupStore    = &Repository{}
)

// Repository owns the durable identity-link and group records.
// Single-record upserts and removes are atomic; cross-key concurrency is
// handled by SQLite itself, while same-key write ordering is guaranteed
// by the reconciler's per-key lock.
type Repository struct {
	db *sql.DB
}

// New opens (creating if needed) the store at dbPath and initializes the
// schema. Pass ":memory:" for an ephemeral store in tests.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = dbPath +
			"?_pragma=journal_mode(WAL)" +
			"&_pragma=foreign_keys(ON)" +
			"&_pragma=busy_timeout(5000)" +
			"&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open identity store: %w", err)
	}

	// SQLite handles concurrent writers poorly; keep the pool small.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize identity store schema: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the underlying store is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// LinkIdentity implements mvc.IdentityStore.
func (r *Repository) LinkIdentity(ctx context.Context, identityID, address, groupID string) error {
	normalized, err := domain.NormalizeAddress(address)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)

	// Last write wins: a new link for the same (identity, group) pair
	// replaces the old address and clears any join confirmation made
	// under it, except when re-linking the identical address, which is a
	// pure no-op to keep the operation idempotent.
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO identity_links (identity_id, group_id, address, created_at, joined_at)
		 VALUES (?, ?, ?, ?, NULL)
		 ON CONFLICT (identity_id, group_id) DO UPDATE SET
		     address    = excluded.address,
		     created_at = CASE WHEN identity_links.address = excluded.address THEN identity_links.created_at ELSE excluded.created_at END,
		     joined_at  = CASE WHEN identity_links.address = excluded.address THEN identity_links.joined_at ELSE NULL END`,
		identityID, groupID, normalized, now)
	if err != nil {
		return domain.StoreFaultError{Op: "link identity", Err: err}
	}

	return nil
}

// ResolveIdentity implements mvc.IdentityStore.
func (r *Repository) ResolveIdentity(ctx context.Context, identityID, groupID string) (domain.IdentityLink, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT identity_id, group_id, address, created_at, joined_at
		 FROM identity_links
		 WHERE identity_id = ? AND group_id = ?`,
		identityID, groupID)

	return scanLink(row, "resolve identity")
}

// ResolveAddress implements mvc.IdentityStore.
func (r *Repository) ResolveAddress(ctx context.Context, address, groupID string) (domain.IdentityLink, error) {
	normalized, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.IdentityLink{}, err
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT identity_id, group_id, address, created_at, joined_at
		 FROM identity_links
		 WHERE address = ? AND group_id = ?`,
		normalized, groupID)

	return scanLink(row, "resolve address")
}

// ConfirmJoin implements mvc.IdentityStore.
func (r *Repository) ConfirmJoin(ctx context.Context, identityID, groupID string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE identity_links SET joined_at = ?
		 WHERE identity_id = ? AND group_id = ?`,
		now, identityID, groupID)
	if err != nil {
		return domain.StoreFaultError{Op: "confirm join", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return domain.StoreFaultError{Op: "confirm join", Err: err}
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Unlink implements mvc.IdentityStore.
func (r *Repository) Unlink(ctx context.Context, identityID, groupID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM identity_links WHERE identity_id = ? AND group_id = ?`,
		identityID, groupID)
	if err != nil {
		return domain.StoreFaultError{Op: "unlink", Err: err}
	}

	return nil
}

// ListLinked implements mvc.IdentityStore.
func (r *Repository) ListLinked(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT identity_id FROM identity_links WHERE group_id = ? ORDER BY identity_id`,
		groupID)
	if err != nil {
		return nil, domain.StoreFaultError{Op: "list linked", Err: err}
	}
	defer rows.Close()

	var identityIDs []string
	for rows.Next() {
		var identityID string
		if err := rows.Scan(&identityID); err != nil {
			return nil, domain.StoreFaultError{Op: "list linked", Err: err}
		}
		identityIDs = append(identityIDs, identityID)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.StoreFaultError{Op: "list linked", Err: err}
	}

	return identityIDs, nil
}

// GetGroup implements mvc.GroupStore.
func (r *Repository) GetGroup(ctx context.Context, groupID string) (domain.Group, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT group_id, pool_address, token_address, thresholds, sweep_interval
		 FROM groups
		 WHERE group_id = ?`,
		groupID)

	var (
		group         domain.Group
		thresholdsStr string
		sweepSeconds  int64
	)

	err := row.Scan(&group.ID, &group.PoolAddress, &group.TokenAddress, &thresholdsStr, &sweepSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Group{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Group{}, domain.StoreFaultError{Op: "get group", Err: err}
	}

	group.Thresholds, err = parseThresholds(thresholdsStr)
	if err != nil {
		return domain.Group{}, domain.StoreFaultError{Op: "get group", Err: err}
	}
	group.SweepInterval = time.Duration(sweepSeconds) * time.Second

	return group, nil
}

// UpsertGroup implements mvc.GroupStore.
func (r *Repository) UpsertGroup(ctx context.Context, group domain.Group) error {
	if err := validateThresholds(group); err != nil {
		return err
	}

	poolAddress, err := domain.NormalizeAddress(group.PoolAddress)
	if err != nil {
		return err
	}
	tokenAddress, err := domain.NormalizeAddress(group.TokenAddress)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO groups (group_id, pool_address, token_address, thresholds, sweep_interval)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (group_id) DO UPDATE SET
		     pool_address   = excluded.pool_address,
		     token_address  = excluded.token_address,
		     thresholds     = excluded.thresholds,
		     sweep_interval = excluded.sweep_interval`,
		group.ID, poolAddress, tokenAddress, formatThresholds(group.Thresholds), int64(group.SweepInterval.Seconds()))
	if err != nil {
		return domain.StoreFaultError{Op: "upsert group", Err: err}
	}

	return nil
}

// ListGroups implements mvc.GroupStore.
func (r *Repository) ListGroups(ctx context.Context) ([]domain.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id, pool_address, token_address, thresholds, sweep_interval
		 FROM groups ORDER BY group_id`)
	if err != nil {
		return nil, domain.StoreFaultError{Op: "list groups", Err: err}
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		var (
			group         domain.Group
			thresholdsStr string
			sweepSeconds  int64
		)

		if err := rows.Scan(&group.ID, &group.PoolAddress, &group.TokenAddress, &thresholdsStr, &sweepSeconds); err != nil {
			return nil, domain.StoreFaultError{Op: "list groups", Err: err}
		}

		group.Thresholds, err = parseThresholds(thresholdsStr)
		if err != nil {
			return nil, domain.StoreFaultError{Op: "list groups", Err: err}
		}
		group.SweepInterval = time.Duration(sweepSeconds) * time.Second

		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.StoreFaultError{Op: "list groups", Err: err}
	}

	return groups, nil
}

func scanLink(row *sql.Row, op string) (domain.IdentityLink, error) {
	var (
		link      domain.IdentityLink
		createdAt string
		joinedAt  sql.NullString
	)

	err := row.Scan(&link.IdentityID, &link.GroupID, &link.Address, &createdAt, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IdentityLink{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.IdentityLink{}, domain.StoreFaultError{Op: op, Err: err}
	}

	link.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return domain.IdentityLink{}, domain.StoreFaultError{Op: op, Err: err}
	}

	if joinedAt.Valid {
		parsed, err := time.Parse(time.RFC3339, joinedAt.String)
		if err != nil {
			return domain.IdentityLink{}, domain.StoreFaultError{Op: op, Err: err}
		}
		link.JoinedAt = &parsed
	}

	return link, nil
}

func validateThresholds(group domain.Group) error {
	for i := 1; i < len(group.Thresholds); i++ {
		if group.Thresholds[i].Cmp(group.Thresholds[i-1]) >= 0 {
			return domain.ThresholdsNotDescendingError{GroupID: group.ID, Rank: i + 1}
		}
	}

	return nil
}

// Thresholds are persisted as a comma-separated decimal string to keep
// arbitrary-precision amounts exact.
func formatThresholds(thresholds []*big.Int) string {
	parts := make([]string, 0, len(thresholds))
	for _, threshold := range thresholds {
		parts = append(parts, threshold.String())
	}

	return strings.Join(parts, ",")
}

func parseThresholds(value string) ([]*big.Int, error) {
	if value == "" {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	thresholds := make([]*big.Int, 0, len(parts))
	for _, part := range parts {
		threshold, ok := new(big.Int).SetString(part, 10)
		if !ok {
			return nil, fmt.Errorf("malformed threshold value (%s)", part)
		}
		thresholds = append(thresholds, threshold)
	}

	return thresholds, nil
}
