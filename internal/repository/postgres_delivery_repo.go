package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/driftbottle/internal/model"
)

// pqUniqueViolation はPostgreSQLのunique_violationエラーコード。
const pqUniqueViolation = "23505"

// PostgresDeliveryRepo はPostgreSQLを使用した配達台帳リポジトリ。
type PostgresDeliveryRepo struct {
	db *sql.DB
}

// NewPostgresDeliveryRepo はPostgresDeliveryRepoを生成する。
func NewPostgresDeliveryRepo(db *sql.DB) *PostgresDeliveryRepo {
	return &PostgresDeliveryRepo{db: db}
}

// FindByIdentityAndDay は指定Identityの指定暦日の配達を取得する。
// 見つからない場合はnilを返す。
func (r *PostgresDeliveryRepo) FindByIdentityAndDay(ctx context.Context, identityID, day string) (*model.Delivery, error) {
	delivery := &model.Delivery{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, identity_id, bottle_id, to_char(delivered_on, 'YYYY-MM-DD'), delivered_at
		 FROM deliveries
		 WHERE identity_id = $1 AND delivered_on = $2`,
		identityID, day,
	).Scan(&delivery.ID, &delivery.IdentityID, &delivery.BottleID, &delivery.DeliveredOn, &delivery.DeliveredAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find delivery: %w", err)
	}

	return delivery, nil
}

// Create は配達記録を作成し、採番されたIDをdelivery.IDに書き戻す。
// (identity_id, delivered_on) のユニークインデックス違反は
// ErrDeliveryExistsに変換して返す。check-then-insertではなく、
// この制約こそが1日1通の不変条件を複数プロセス間で成立させる。
func (r *PostgresDeliveryRepo) Create(ctx context.Context, delivery *model.Delivery) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO deliveries (identity_id, bottle_id, delivered_on, delivered_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		delivery.IdentityID, delivery.BottleID, delivery.DeliveredOn, delivery.DeliveredAt,
	).Scan(&delivery.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDeliveryExists
		}
		return fmt.Errorf("failed to insert delivery: %w", err)
	}

	return nil
}

// DeleteByID は指定IDの配達記録を削除する。
func (r *PostgresDeliveryRepo) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM deliveries WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete delivery: %w", err)
	}
	return nil
}

// compile-time interface check
var _ DeliveryRepository = (*PostgresDeliveryRepo)(nil)
