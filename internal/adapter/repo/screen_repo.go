package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"photobooth/internal/domain"
	"photobooth/internal/infra"
	"photobooth/internal/sqlinline"
)

// ScreenRepositoryPG implements domain.ScreenRepository.
type ScreenRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewScreenRepository(sql infra.SQLExecutor) *ScreenRepositoryPG {
	return &ScreenRepositoryPG{sql: sql}
}

func (r *ScreenRepositoryPG) GetScreen(ctx context.Context, id string) (domain.ScreenConfig, error) {
	var (
		screen domain.ScreenConfig
		flags  []byte
	)
	if err := r.sql.QueryRow(ctx, sqlinline.QGetScreen, id).Scan(&screen.ID, &screen.EffectIDs, &flags); err != nil {
		if infra.IsNoRows(err) {
			return domain.ScreenConfig{}, domain.NewError(domain.KindNotFound, "screen %q", id)
		}
		return domain.ScreenConfig{}, fmt.Errorf("repo: get screen %s: %w", id, err)
	}
	screen.GroupEnabled = map[domain.EffectGroup]bool{}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &screen.GroupEnabled); err != nil {
			return domain.ScreenConfig{}, fmt.Errorf("repo: decode group flags of %s: %w", id, err)
		}
	}
	return screen, nil
}

func (r *ScreenRepositoryPG) SetScreenEffects(ctx context.Context, id string, effectIDs []int64) error {
	if effectIDs == nil {
		effectIDs = []int64{}
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QUpsertScreenEffects, id, effectIDs); err != nil {
		return fmt.Errorf("repo: set screen effects %s: %w", id, err)
	}
	return nil
}

func (r *ScreenRepositoryPG) SetGroupEnabled(ctx context.Context, id string, group domain.EffectGroup, enabled bool) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QUpsertScreenGroupFlag, id, string(group), enabled); err != nil {
		return fmt.Errorf("repo: set group %s on %s: %w", group, id, err)
	}
	return nil
}

var _ domain.ScreenRepository = (*ScreenRepositoryPG)(nil)
