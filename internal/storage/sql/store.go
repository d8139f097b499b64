package sql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

var _ storage.Storage = (*Store)(nil)

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store and applies pending migrations.
// driver is "sqlite3" or "postgres".
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.configurePool(); err != nil {
		db.Close()
		return nil, err
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// configurePool serializes SQLite access through a single connection so that
// concurrent writers queue instead of failing with "database is locked".
func (s *Store) configurePool() error {
	if s.driver != "sqlite3" {
		return nil
	}
	s.db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("configuring sqlite: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// ============================================
// Hosts
// ============================================

const hostColumns = `id, name, address, created_at, updated_at`

func (s *Store) CreateHost(ctx context.Context, host *domain.Host) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO hosts (id, name, address, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			host.ID, host.Name, host.Address, host.CreatedAt, host.UpdatedAt)
		if err != nil {
			return wrapUniqueError(err)
		}
		tags, err := setHostTags(ctx, tx, host.ID, host.TagNames())
		if err != nil {
			return err
		}
		host.Tags = tags
		return nil
	})
}

func (s *Store) GetHost(ctx context.Context, id string) (*domain.Host, error) {
	return getHost(ctx, s.db, id)
}

func getHost(ctx context.Context, db dbInterface, id string) (*domain.Host, error) {
	var host domain.Host
	err := db.GetContext(ctx, &host,
		`SELECT `+hostColumns+` FROM hosts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	host.Tags, err = getHostTags(ctx, db, host.ID)
	if err != nil {
		return nil, err
	}
	return &host, nil
}

func (s *Store) ListHosts(ctx context.Context, filter domain.HostFilter) ([]*domain.Host, error) {
	query := `SELECT ` + hostColumns + ` FROM hosts`
	var (
		conds []string
		args  []any
	)
	if filter.Name != "" {
		args = append(args, likePattern(filter.Name))
		conds = append(conds, fmt.Sprintf(`LOWER(name) LIKE $%d ESCAPE '\'`, len(args)))
	}
	if filter.Address != "" {
		args = append(args, likePattern(filter.Address))
		conds = append(conds, fmt.Sprintf(`LOWER(address) LIKE $%d ESCAPE '\'`, len(args)))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY created_at, id`

	var hosts []*domain.Host
	if err := s.db.SelectContext(ctx, &hosts, query, args...); err != nil {
		return nil, err
	}
	return withHostTags(ctx, s.db, hosts)
}

func withHostTags(ctx context.Context, db dbInterface, hosts []*domain.Host) ([]*domain.Host, error) {
	if hosts == nil {
		hosts = []*domain.Host{}
	}
	for _, h := range hosts {
		tags, err := getHostTags(ctx, db, h.ID)
		if err != nil {
			return nil, err
		}
		h.Tags = tags
	}
	return hosts, nil
}

func (s *Store) UpdateHost(ctx context.Context, host *domain.Host) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE hosts SET name = $1, address = $2, updated_at = $3 WHERE id = $4`,
			host.Name, host.Address, host.UpdatedAt, host.ID)
		if err != nil {
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return domain.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM host_tags WHERE host_id = $1`, host.ID); err != nil {
			return err
		}
		tags, err := setHostTags(ctx, tx, host.ID, host.TagNames())
		if err != nil {
			return err
		}
		var createdAt time.Time
		if err := tx.GetContext(ctx, &createdAt, `SELECT created_at FROM hosts WHERE id = $1`, host.ID); err != nil {
			return err
		}
		host.Tags = tags
		host.CreatedAt = createdAt
		return nil
	})
}

// DeleteHost removes the host, its tag associations and its ping history.
// Dependent rows are deleted explicitly since SQLite does not enforce
// foreign keys unless asked to per connection.
func (s *Store) DeleteHost(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pings WHERE host_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM host_tags WHERE host_id = $1`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM hosts WHERE id = $1`, id)
		if err != nil {
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// ============================================
// Tags
// ============================================

func upsertTag(ctx context.Context, db dbInterface, name string) (*domain.Tag, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO tags (id, name, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`,
		uuid.New().String(), name, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	var tag domain.Tag
	if err := db.GetContext(ctx, &tag,
		`SELECT id, name, created_at FROM tags WHERE name = $1`, name); err != nil {
		return nil, err
	}
	return &tag, nil
}

func setHostTags(ctx context.Context, db dbInterface, hostID string, names []string) ([]*domain.Tag, error) {
	tags := make([]*domain.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		tag, err := upsertTag(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("upserting tag %q: %w", name, err)
		}
		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		_, err = db.ExecContext(ctx,
			`INSERT INTO host_tags (host_id, tag_id, position) VALUES ($1, $2, $3)`,
			hostID, tag.ID, len(tags))
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func getHostTags(ctx context.Context, db dbInterface, hostID string) ([]*domain.Tag, error) {
	tags := []*domain.Tag{}
	err := db.SelectContext(ctx, &tags,
		`SELECT t.id, t.name, t.created_at FROM tags t
		 JOIN host_tags ht ON ht.tag_id = t.id
		 WHERE ht.host_id = $1 ORDER BY ht.position`, hostID)
	return tags, err
}

func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	tags := []*domain.Tag{}
	err := s.db.SelectContext(ctx, &tags,
		`SELECT id, name, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *Store) ListHostsByTag(ctx context.Context, tagName string) ([]*domain.Host, error) {
	var hosts []*domain.Host
	err := s.db.SelectContext(ctx, &hosts,
		`SELECT h.id, h.name, h.address, h.created_at, h.updated_at FROM hosts h
		 JOIN host_tags ht ON ht.host_id = h.id
		 JOIN tags t ON t.id = ht.tag_id
		 WHERE t.name = $1 ORDER BY h.created_at, h.id`, tagName)
	if err != nil {
		return nil, err
	}
	return withHostTags(ctx, s.db, hosts)
}

// ============================================
// Pings
// ============================================

type pingRow struct {
	ID          string    `db:"id"`
	HostID      string    `db:"host_id"`
	Output      string    `db:"output"`
	ICMPsJSON   string    `db:"icmps_json"`
	Transmitted int       `db:"transmitted"`
	Received    int       `db:"received"`
	TimeMS      float64   `db:"time_ms"`
	CreatedAt   time.Time `db:"created_at"`
}

func rowToPing(row *pingRow) (*domain.Ping, error) {
	ping := &domain.Ping{
		ID:     row.ID,
		HostID: row.HostID,
		Output: row.Output,
		Stats: domain.PingStats{
			Transmitted: row.Transmitted,
			Received:    row.Received,
			Time:        row.TimeMS,
		},
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.ICMPsJSON), &ping.ICMPs); err != nil {
		return nil, fmt.Errorf("decoding icmps for ping %s: %w", row.ID, err)
	}
	if ping.ICMPs == nil {
		ping.ICMPs = []domain.ICMP{}
	}
	return ping, nil
}

func (s *Store) CreatePing(ctx context.Context, ping *domain.Ping) error {
	icmps := ping.ICMPs
	if icmps == nil {
		icmps = []domain.ICMP{}
	}
	icmpsJSON, err := json.Marshal(icmps)
	if err != nil {
		return fmt.Errorf("encoding icmps: %w", err)
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM hosts WHERE id = $1`, ping.HostID)
		if err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO pings (id, host_id, output, icmps_json, transmitted, received, time_ms, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			ping.ID, ping.HostID, ping.Output, string(icmpsJSON),
			ping.Stats.Transmitted, ping.Stats.Received, ping.Stats.Time, ping.CreatedAt)
		return wrapUniqueError(err)
	})
}

func (s *Store) ListPings(ctx context.Context, hostID string) ([]*domain.Ping, error) {
	query := `SELECT id, host_id, output, icmps_json, transmitted, received, time_ms, created_at FROM pings`
	var args []any
	if hostID != "" {
		query += ` WHERE host_id = $1`
		args = append(args, hostID)
	}
	query += ` ORDER BY created_at, id`

	var rows []*pingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	hosts := make(map[string]*domain.Host)
	pings := make([]*domain.Ping, 0, len(rows))
	for _, row := range rows {
		ping, err := rowToPing(row)
		if err != nil {
			return nil, err
		}
		host, ok := hosts[row.HostID]
		if !ok {
			host, err = getHost(ctx, s.db, row.HostID)
			if err != nil {
				return nil, err
			}
			hosts[row.HostID] = host
		}
		ping.Host = host
		pings = append(pings, ping)
	}
	return pings, nil
}

// ============================================
// Users
// ============================================

const userColumns = `id, name, email, password_hash, created_at`

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	return wrapUniqueError(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
