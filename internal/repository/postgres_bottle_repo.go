package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/driftbottle/internal/model"
)

// PostgresBottleRepo はPostgreSQLを使用したボトルリポジトリ。
type PostgresBottleRepo struct {
	db *sql.DB
}

// NewPostgresBottleRepo はPostgresBottleRepoを生成する。
func NewPostgresBottleRepo(db *sql.DB) *PostgresBottleRepo {
	return &PostgresBottleRepo{db: db}
}

// FindByID は指定IDのボトルを取得する。見つからない場合はnilを返す。
func (r *PostgresBottleRepo) FindByID(ctx context.Context, id int64) (*model.Bottle, error) {
	bottle := &model.Bottle{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, author_id, content, created_at, hidden, report_count
		 FROM bottles WHERE id = $1`,
		id,
	).Scan(&bottle.ID, &bottle.AuthorID, &bottle.Content, &bottle.CreatedAt, &bottle.Hidden, &bottle.ReportCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find bottle by ID: %w", err)
	}

	return bottle, nil
}

// Create はボトルを作成し、採番されたIDをbottle.IDに書き戻す。
func (r *PostgresBottleRepo) Create(ctx context.Context, bottle *model.Bottle) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO bottles (author_id, content, created_at, hidden, report_count)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		bottle.AuthorID, bottle.Content, bottle.CreatedAt, bottle.Hidden, bottle.ReportCount,
	).Scan(&bottle.ID)
	if err != nil {
		return fmt.Errorf("failed to insert bottle: %w", err)
	}
	return nil
}

// IncrementReport は通報カウントをアトミックに+1し、新カウントが閾値以上なら
// hiddenをtrueにする。カウントアップと非表示化を1文のUPDATEで行うため、
// 並行通報でも閾値を跨いだ時点で必ず非表示になる。
// 見つからない場合はnilを返す。
func (r *PostgresBottleRepo) IncrementReport(ctx context.Context, id int64, threshold int) (*model.Bottle, error) {
	bottle := &model.Bottle{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE bottles
		 SET report_count = report_count + 1,
		     hidden = hidden OR (report_count + 1 >= $2)
		 WHERE id = $1
		 RETURNING id, author_id, content, created_at, hidden, report_count`,
		id, threshold,
	).Scan(&bottle.ID, &bottle.AuthorID, &bottle.Content, &bottle.CreatedAt, &bottle.Hidden, &bottle.ReportCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment report count: %w", err)
	}

	return bottle, nil
}

// CountByAuthorBetween は指定authorが [start, end) に投稿した本数を返す。
func (r *PostgresBottleRepo) CountByAuthorBetween(ctx context.Context, authorID string, start, end time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bottles
		 WHERE author_id = $1 AND created_at >= $2 AND created_at < $3`,
		authorID, start, end,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bottles by author: %w", err)
	}
	return count, nil
}

// FindRandomCandidate は「hiddenでなく、かつ指定Identityへ過去に一度も
// 配達されていない」ボトルから一様ランダムに1本を返す。
// 既配達の除外は配達台帳全履歴に対して行い、同じボトルが同じIdentityに
// 二度届かないことを生涯にわたって保証する。
// 候補が存在しない場合はnilを返す。
func (r *PostgresBottleRepo) FindRandomCandidate(ctx context.Context, identityID string) (*model.Bottle, error) {
	bottle := &model.Bottle{}
	err := r.db.QueryRowContext(ctx,
		`SELECT b.id, b.author_id, b.content, b.created_at, b.hidden, b.report_count
		 FROM bottles b
		 WHERE b.hidden = FALSE
		   AND NOT EXISTS (
		     SELECT 1 FROM deliveries d
		     WHERE d.identity_id = $1 AND d.bottle_id = b.id
		   )
		 ORDER BY random()
		 LIMIT 1`,
		identityID,
	).Scan(&bottle.ID, &bottle.AuthorID, &bottle.Content, &bottle.CreatedAt, &bottle.Hidden, &bottle.ReportCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find random candidate bottle: %w", err)
	}

	return bottle, nil
}

// compile-time interface check
var _ BottleRepository = (*PostgresBottleRepo)(nil)
