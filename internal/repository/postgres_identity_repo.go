package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/driftbottle/internal/model"
)

// PostgresIdentityRepo はPostgreSQLを使用したIdentityリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByID は指定IDのIdentityを取得する。見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	identity := &model.Identity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, display_name, created_at, last_seen_at FROM identities WHERE id = $1`,
		id,
	).Scan(&identity.ID, &identity.DisplayName, &identity.CreatedAt, &identity.LastSeenAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity by ID: %w", err)
	}

	return identity, nil
}

// Create はIdentityを作成する。
func (r *PostgresIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, display_name, created_at, last_seen_at)
		 VALUES ($1, $2, $3, $4)`,
		identity.ID, identity.DisplayName, identity.CreatedAt, identity.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

// Touch はlast_seen_atを指定時刻に更新する。
func (r *PostgresIdentityRepo) Touch(ctx context.Context, id string, seenAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET last_seen_at = $2 WHERE id = $1`,
		id, seenAt,
	)
	if err != nil {
		return fmt.Errorf("failed to touch identity: %w", err)
	}
	return nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
