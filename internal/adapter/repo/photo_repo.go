package repo

import (
	"context"
	"fmt"

	"photobooth/internal/domain"
	"photobooth/internal/infra"
	"photobooth/internal/sqlinline"
)

// PhotoRepositoryPG implements domain.PhotoRepository on the photos table.
type PhotoRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewPhotoRepository(sql infra.SQLExecutor) *PhotoRepositoryPG {
	return &PhotoRepositoryPG{sql: sql}
}

func (r *PhotoRepositoryPG) InsertPhoto(ctx context.Context, rec domain.PhotoRecord) (domain.PhotoRecord, error) {
	if err := r.sql.QueryRow(ctx, sqlinline.QInsertPhoto,
		rec.URL,
		rec.OriginalURL,
		rec.EventID,
		rec.StandID,
		rec.ScreenType,
		rec.FilterName,
		rec.MagicalEffect,
		rec.NormalEffect,
	).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return domain.PhotoRecord{}, fmt.Errorf("repo: insert photo: %w", err)
	}
	return rec, nil
}

func scanPhoto(row scanner) (domain.PhotoRecord, error) {
	var rec domain.PhotoRecord
	err := row.Scan(
		&rec.ID,
		&rec.URL,
		&rec.OriginalURL,
		&rec.EventID,
		&rec.StandID,
		&rec.ScreenType,
		&rec.FilterName,
		&rec.MagicalEffect,
		&rec.NormalEffect,
		&rec.CreatedAt,
	)
	return rec, err
}

func (r *PhotoRepositoryPG) GetPhoto(ctx context.Context, id string) (domain.PhotoRecord, error) {
	rec, err := scanPhoto(r.sql.QueryRow(ctx, sqlinline.QGetPhoto, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return domain.PhotoRecord{}, domain.NewError(domain.KindNotFound, "photo %s", id)
		}
		return domain.PhotoRecord{}, fmt.Errorf("repo: get photo %s: %w", id, err)
	}
	return rec, nil
}

func (r *PhotoRepositoryPG) ListPhotosByEvent(ctx context.Context, eventID string) ([]domain.PhotoRecord, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListPhotosByEvent, eventID)
	if err != nil {
		return nil, fmt.Errorf("repo: list photos: %w", err)
	}
	defer rows.Close()

	photos := []domain.PhotoRecord{}
	for rows.Next() {
		rec, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan photo: %w", err)
		}
		photos = append(photos, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list photos: %w", err)
	}
	return photos, nil
}

var _ domain.PhotoRepository = (*PhotoRepositoryPG)(nil)
