package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"photobooth/internal/domain"
	"photobooth/internal/infra"
	"photobooth/internal/sqlinline"
)

// EffectRepositoryPG implements domain.EffectRepository on the effects and
// effect_params tables.
type EffectRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewEffectRepository constructs a new effect repository instance.
func NewEffectRepository(sql infra.SQLExecutor) *EffectRepositoryPG {
	return &EffectRepositoryPG{sql: sql}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEffect(row scanner) (domain.EffectDefinition, error) {
	var (
		def    domain.EffectDefinition
		group  string
		params []byte
	)
	if err := row.Scan(
		&def.ID,
		&def.DisplayName,
		&def.ProviderName,
		&def.Endpoint,
		&def.AuthKeyRef,
		&def.PreviewAssetURL,
		&group,
		&def.IsVisible,
		&params,
	); err != nil {
		return domain.EffectDefinition{}, err
	}
	def.EffectGroup = domain.EffectGroup(group)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &def.StaticParams); err != nil {
			return domain.EffectDefinition{}, fmt.Errorf("repo: decode params of effect %d: %w", def.ID, err)
		}
	}
	return def, nil
}

// ListEffects returns the whole catalog ordered by id.
func (r *EffectRepositoryPG) ListEffects(ctx context.Context) ([]domain.EffectDefinition, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListEffects)
	if err != nil {
		return nil, fmt.Errorf("repo: list effects: %w", err)
	}
	defer rows.Close()

	var effects []domain.EffectDefinition
	for rows.Next() {
		def, err := scanEffect(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan effect: %w", err)
		}
		effects = append(effects, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list effects: %w", err)
	}
	return effects, nil
}

// GetEffect loads one effect with its params.
func (r *EffectRepositoryPG) GetEffect(ctx context.Context, id int64) (domain.EffectDefinition, error) {
	def, err := scanEffect(r.sql.QueryRow(ctx, sqlinline.QGetEffect, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return domain.EffectDefinition{}, domain.NewError(domain.KindNotFound, "effect %d", id)
		}
		return domain.EffectDefinition{}, fmt.Errorf("repo: get effect %d: %w", id, err)
	}
	return def, nil
}

// CreateEffect inserts the effect and its params in one statement and returns
// the stored definition with generated ids.
func (r *EffectRepositoryPG) CreateEffect(ctx context.Context, def domain.EffectDefinition) (domain.EffectDefinition, error) {
	names, values := splitParams(def.StaticParams)
	var paramIDs []int64
	if err := r.sql.QueryRow(ctx, sqlinline.QCreateEffect,
		def.DisplayName,
		def.ProviderName,
		def.Endpoint,
		def.AuthKeyRef,
		def.PreviewAssetURL,
		string(def.EffectGroup),
		names,
		values,
		def.IsVisible,
	).Scan(&def.ID, &paramIDs); err != nil {
		return domain.EffectDefinition{}, fmt.Errorf("repo: create effect: %w", err)
	}
	def.StaticParams = assignParamIDs(def.StaticParams, paramIDs)
	return def, nil
}

// UpdateEffect rewrites the effect row and replaces the params it owns.
func (r *EffectRepositoryPG) UpdateEffect(ctx context.Context, def domain.EffectDefinition) (domain.EffectDefinition, error) {
	names, values := splitParams(def.StaticParams)
	var paramIDs []int64
	if err := r.sql.QueryRow(ctx, sqlinline.QUpdateEffect,
		def.ID,
		def.DisplayName,
		def.ProviderName,
		def.Endpoint,
		def.AuthKeyRef,
		def.PreviewAssetURL,
		string(def.EffectGroup),
		names,
		values,
		def.IsVisible,
	).Scan(&paramIDs); err != nil {
		if infra.IsNoRows(err) {
			return domain.EffectDefinition{}, domain.NewError(domain.KindNotFound, "effect %d", def.ID)
		}
		return domain.EffectDefinition{}, fmt.Errorf("repo: update effect %d: %w", def.ID, err)
	}
	def.StaticParams = assignParamIDs(def.StaticParams, paramIDs)
	return def, nil
}

// DeleteEffect removes the effect and cascades to its own param rows.
func (r *EffectRepositoryPG) DeleteEffect(ctx context.Context, id int64) error {
	var removed, params int64
	if err := r.sql.QueryRow(ctx, sqlinline.QDeleteEffect, id).Scan(&removed, &params); err != nil {
		return fmt.Errorf("repo: delete effect %d: %w", id, err)
	}
	if removed == 0 {
		return domain.NewError(domain.KindNotFound, "effect %d", id)
	}
	return nil
}

func splitParams(params []domain.Param) ([]string, []string) {
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Name)
		values = append(values, p.Value)
	}
	return names, values
}

func assignParamIDs(params []domain.Param, ids []int64) []domain.Param {
	out := make([]domain.Param, len(params))
	copy(out, params)
	for i := range out {
		if i < len(ids) {
			out[i].ID = ids[i]
		}
	}
	return out
}

var _ domain.EffectRepository = (*EffectRepositoryPG)(nil)
