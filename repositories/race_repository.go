package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nbekov/race-control/models"
)

var ErrRaceNotFound = errors.New("race not found")

type RaceRepository interface {
	Create(ctx context.Context, exec SQLExecutor, race *models.Race) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Race, error)
	List(ctx context.Context) ([]models.Race, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RaceStatus) error
}

type postgresRaceRepository struct {
	db *sql.DB
}

func NewPostgresRaceRepository(db *sql.DB) RaceRepository {
	return &postgresRaceRepository{db: db}
}

func (r *postgresRaceRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRaceRepository) Create(ctx context.Context, exec SQLExecutor, race *models.Race) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO races (venue, total_laps, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		race.Venue, race.TotalLaps, race.Status,
	).Scan(&race.ID, &race.CreatedAt)
}

func (r *postgresRaceRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Race, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, venue, total_laps, status, created_at
		FROM races
		WHERE id = $1`

	race := &models.Race{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&race.ID, &race.Venue, &race.TotalLaps, &race.Status, &race.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRaceNotFound
		}
		return nil, err
	}
	return race, nil
}

func (r *postgresRaceRepository) List(ctx context.Context) ([]models.Race, error) {
	query := `
		SELECT id, venue, total_laps, status, created_at
		FROM races
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	races := make([]models.Race, 0)
	for rows.Next() {
		var race models.Race
		if scanErr := rows.Scan(
			&race.ID, &race.Venue, &race.TotalLaps, &race.Status, &race.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		races = append(races, race)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return races, nil
}

func (r *postgresRaceRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RaceStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE races SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRaceNotFound)
}
