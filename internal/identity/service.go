// Package identity は匿名Identityの登録・参照のドメインロジックを提供する。
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/driftbottle/internal/clock"
	"github.com/hitoshi/driftbottle/internal/model"
	"github.com/hitoshi/driftbottle/internal/repository"
)

// Service は匿名Identityのサービス層。
type Service struct {
	identityRepo repository.IdentityRepository
	clk          *clock.Clock
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(identityRepo repository.IdentityRepository, clk *clock.Clock) *Service {
	return &Service{
		identityRepo: identityRepo,
		clk:          clk,
	}
}

// RegisterResult は登録処理の結果。
// 既存Identityを再利用した場合はCreatedがfalseになる。
type RegisterResult struct {
	Identity *model.Identity
	Created  bool
}

// Register はニックネームを検証し、新しい匿名Identityを発行する。
// presentedIDが既存のIdentityに解決できる場合は新規作成せず既存の
// Identityをそのまま返す（同一呼び出し元の重複登録を防ぐ冪等動作）。
// IDは推測不能なUUIDで、連番などの予測可能な系列は使わない。
func (s *Service) Register(ctx context.Context, presentedID, displayName string) (*RegisterResult, error) {
	// 既にCookieを持っている呼び出し元は登録をno-opにする
	if presentedID != "" {
		existing, err := s.identityRepo.FindByID(ctx, presentedID)
		if err != nil {
			return nil, fmt.Errorf("Identityの取得に失敗しました: %w", err)
		}
		if existing != nil {
			return &RegisterResult{Identity: existing, Created: false}, nil
		}
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, model.NewNicknameRequiredError()
	}
	if utf8.RuneCountInString(displayName) > model.DisplayNameMaxLength {
		return nil, model.NewNicknameTooLongError()
	}

	now := s.clk.Now()
	identity := &model.Identity{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		CreatedAt:   now,
		LastSeenAt:  now,
	}

	if err := s.identityRepo.Create(ctx, identity); err != nil {
		return nil, fmt.Errorf("Identityの作成に失敗しました: %w", err)
	}

	slog.Info("identity registered",
		slog.String("identity_id", identity.ID),
	)

	return &RegisterResult{Identity: identity, Created: true}, nil
}

// Lookup は指定IDのIdentityを取得する。見つからない場合はnilを返す。
// 呼び出し元が提示した識別子の有効性確認に使用する。
func (s *Service) Lookup(ctx context.Context, id string) (*model.Identity, error) {
	identity, err := s.identityRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Identityの取得に失敗しました: %w", err)
	}
	return identity, nil
}

// Touch はlast_seen_atを現在時刻に更新する。配達リクエストごとに1回呼ばれる。
func (s *Service) Touch(ctx context.Context, id string) error {
	if err := s.identityRepo.Touch(ctx, id, s.clk.Now()); err != nil {
		return fmt.Errorf("last_seen_atの更新に失敗しました: %w", err)
	}
	return nil
}
