package repositories

import (
	"context"
	"database/sql"

	"github.com/nbekov/race-control/models"
)

type PitStopRepository interface {
	Create(ctx context.Context, exec SQLExecutor, pit *models.PitStop) error
	ListByRace(ctx context.Context, raceID int) ([]*models.PitStop, error)
}

type postgresPitStopRepository struct {
	db *sql.DB
}

func NewPostgresPitStopRepository(db *sql.DB) PitStopRepository {
	return &postgresPitStopRepository{db: db}
}

func (r *postgresPitStopRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPitStopRepository) Create(ctx context.Context, exec SQLExecutor, pit *models.PitStop) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO pit_stops (race_id, racer_id, tyre_type, pit_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		pit.RaceID, pit.RacerID, pit.TyreType, pit.PitTime,
	).Scan(&pit.ID, &pit.CreatedAt)
}

func (r *postgresPitStopRepository) ListByRace(ctx context.Context, raceID int) ([]*models.PitStop, error) {
	query := `
		SELECT id, race_id, racer_id, tyre_type, pit_time, created_at
		FROM pit_stops
		WHERE race_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pits := make([]*models.PitStop, 0)
	for rows.Next() {
		pit := &models.PitStop{}
		if scanErr := rows.Scan(
			&pit.ID, &pit.RaceID, &pit.RacerID, &pit.TyreType, &pit.PitTime, &pit.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		pits = append(pits, pit)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return pits, nil
}
