package repositories

import (
	"context"
	"database/sql"

	"github.com/nbekov/race-control/models"
)

type LapTimeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, lap *models.LapTime) error
	ListByRace(ctx context.Context, raceID int) ([]*models.LapTime, error)
}

type postgresLapTimeRepository struct {
	db *sql.DB
}

func NewPostgresLapTimeRepository(db *sql.DB) LapTimeRepository {
	return &postgresLapTimeRepository{db: db}
}

func (r *postgresLapTimeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLapTimeRepository) Create(ctx context.Context, exec SQLExecutor, lap *models.LapTime) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO lap_times (race_id, racer_id, lap_time)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		lap.RaceID, lap.RacerID, lap.LapTime,
	).Scan(&lap.ID, &lap.CreatedAt)
}

func (r *postgresLapTimeRepository) ListByRace(ctx context.Context, raceID int) ([]*models.LapTime, error) {
	query := `
		SELECT id, race_id, racer_id, lap_time, created_at
		FROM lap_times
		WHERE race_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	laps := make([]*models.LapTime, 0)
	for rows.Next() {
		lap := &models.LapTime{}
		if scanErr := rows.Scan(
			&lap.ID, &lap.RaceID, &lap.RacerID, &lap.LapTime, &lap.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		laps = append(laps, lap)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return laps, nil
}
