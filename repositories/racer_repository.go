package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/nbekov/race-control/models"
)

var (
	ErrRacerNotFound             = errors.New("racer not found")
	ErrRacerNumberConflict       = errors.New("racing number is already in use")
	ErrRacerInvalidTeamReference = errors.New("invalid team reference")
)

type RacerRepository interface {
	Create(ctx context.Context, racer *models.Racer) error
	GetByID(ctx context.Context, id int) (*models.Racer, error)
	List(ctx context.Context) ([]models.Racer, error)
	Update(ctx context.Context, racer *models.Racer) error
	UpdatePhotoKey(ctx context.Context, racerID int, photoKey *string) error
	CountByTeam(ctx context.Context, teamID int) (int, error)
	// MissingIDs возвращает те из переданных id, которых нет в таблице.
	MissingIDs(ctx context.Context, ids []int) ([]int, error)
}

type postgresRacerRepository struct {
	db *sql.DB
}

func NewPostgresRacerRepository(db *sql.DB) RacerRepository {
	return &postgresRacerRepository{db: db}
}

func (r *postgresRacerRepository) Create(ctx context.Context, racer *models.Racer) error {
	query := `
		INSERT INTO racers (name, age, country, racing_number, team_id, photo_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		racer.Name, racer.Age, racer.Country, racer.RacingNumber, racer.TeamID, racer.PhotoKey,
	).Scan(&racer.ID, &racer.CreatedAt)

	return r.handleRacerError(err)
}

func (r *postgresRacerRepository) GetByID(ctx context.Context, id int) (*models.Racer, error) {
	query := `
		SELECT id, name, age, country, racing_number, team_id, photo_key, created_at
		FROM racers
		WHERE id = $1`

	racer := &models.Racer{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&racer.ID, &racer.Name, &racer.Age, &racer.Country,
		&racer.RacingNumber, &racer.TeamID, &racer.PhotoKey, &racer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRacerNotFound
		}
		return nil, err
	}
	return racer, nil
}

func (r *postgresRacerRepository) List(ctx context.Context) ([]models.Racer, error) {
	query := `
		SELECT
			rc.id, rc.name, rc.age, rc.country, rc.racing_number, rc.team_id, rc.photo_key, rc.created_at,
			t.id, t.name, t.country
		FROM racers rc
		JOIN teams t ON t.id = rc.team_id
		ORDER BY rc.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	racers := make([]models.Racer, 0)
	for rows.Next() {
		racer := models.Racer{Team: &models.Team{}}
		if scanErr := rows.Scan(
			&racer.ID, &racer.Name, &racer.Age, &racer.Country,
			&racer.RacingNumber, &racer.TeamID, &racer.PhotoKey, &racer.CreatedAt,
			&racer.Team.ID, &racer.Team.Name, &racer.Team.Country,
		); scanErr != nil {
			return nil, scanErr
		}
		racers = append(racers, racer)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return racers, nil
}

func (r *postgresRacerRepository) Update(ctx context.Context, racer *models.Racer) error {
	query := `
		UPDATE racers SET
			name = $1,
			age = $2,
			country = $3,
			racing_number = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		racer.Name, racer.Age, racer.Country, racer.RacingNumber, racer.ID,
	)
	if err != nil {
		return r.handleRacerError(err)
	}
	return checkAffectedRows(result, ErrRacerNotFound)
}

func (r *postgresRacerRepository) UpdatePhotoKey(ctx context.Context, racerID int, photoKey *string) error {
	query := `UPDATE racers SET photo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, photoKey, racerID)
	if err != nil {
		return fmt.Errorf("failed to update racer photo key: %w", err)
	}
	return checkAffectedRows(result, ErrRacerNotFound)
}

func (r *postgresRacerRepository) CountByTeam(ctx context.Context, teamID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM racers WHERE team_id = $1`, teamID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresRacerRepository) MissingIDs(ctx context.Context, ids []int) ([]int, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT candidate.id
		FROM unnest($1::int[]) AS candidate(id)
		LEFT JOIN racers rc ON rc.id = candidate.id
		WHERE rc.id IS NULL`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missing []int
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, scanErr
		}
		missing = append(missing, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return missing, nil
}

func (r *postgresRacerRepository) handleRacerError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrRacerNumberConflict
		case "23503":
			return ErrRacerInvalidTeamReference
		}
	}
	return err
}
