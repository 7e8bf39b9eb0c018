package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DevRickLin/adaptive-slowmode/internal/biz/domain"
	"github.com/DevRickLin/adaptive-slowmode/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// policyRepo implements the guild policy repository
type policyRepo struct {
	db *sql.DB
}

// NewPolicyRepo creates a new policy repository
func NewPolicyRepo(dbPath string) (repo.PolicyRepo, error) {
	if dbPath != ":memory:" {
		// Ensure directory exists
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS guild_policies (
			guild_id TEXT PRIMARY KEY,
			enabled INTEGER NOT NULL DEFAULT 0,
			min_delay INTEGER NOT NULL,
			max_delay INTEGER NOT NULL,
			target INTEGER NOT NULL,
			report_channel_id TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS policy_channels (
			guild_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (guild_id, channel_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_guild_policies_enabled ON guild_policies(enabled)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &policyRepo{db: db}, nil
}

// Get gets the policy of a guild, or the default policy if none is stored
func (r *policyRepo) Get(ctx context.Context, guildID string) (*domain.GuildPolicy, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT guild_id, enabled, min_delay, max_delay, target, report_channel_id
		FROM guild_policies
		WHERE guild_id = ?
	`, guildID)

	var p domain.GuildPolicy
	var enabled int
	err := row.Scan(&p.GuildID, &enabled, &p.MinDelay, &p.MaxDelay, &p.Target, &p.ReportChannelID)
	if err == sql.ErrNoRows {
		return domain.DefaultGuildPolicy(guildID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query policy: %w", err)
	}
	p.Enabled = enabled != 0

	p.Channels, err = r.channels(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *policyRepo) channels(ctx context.Context, guildID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT channel_id FROM policy_channels
		WHERE guild_id = ?
		ORDER BY position ASC
	`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, id)
	}
	return channels, rows.Err()
}

// Save saves a policy and replaces its monitored channel set
func (r *policyRepo) Save(ctx context.Context, p *domain.GuildPolicy) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	enabled := 0
	if p.Enabled {
		enabled = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO guild_policies (guild_id, enabled, min_delay, max_delay, target, report_channel_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.GuildID, enabled, p.MinDelay, p.MaxDelay, p.Target, p.ReportChannelID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM policy_channels WHERE guild_id = ?`, p.GuildID); err != nil {
		return fmt.Errorf("failed to clear channels: %w", err)
	}
	for i, channelID := range p.Channels {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO policy_channels (guild_id, channel_id, position)
			VALUES (?, ?, ?)
		`, p.GuildID, channelID, i)
		if err != nil {
			return fmt.Errorf("failed to save channel: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit policy: %w", err)
	}
	return nil
}

// ListEnabled lists the policies of all enabled guilds
func (r *policyRepo) ListEnabled(ctx context.Context) ([]*domain.GuildPolicy, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT guild_id FROM guild_policies
		WHERE enabled = 1
		ORDER BY guild_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}

	var guildIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		guildIDs = append(guildIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate policies: %w", err)
	}

	// Rows are closed before the follow-up queries since the pool holds one connection
	policies := make([]*domain.GuildPolicy, 0, len(guildIDs))
	for _, id := range guildIDs {
		p, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}

// Close closes the database connection
func (r *policyRepo) Close() error {
	return r.db.Close()
}
