package repositories

import (
	"context"
	"database/sql"

	"github.com/nbekov/race-control/models"
)

// EventRepository - журнал событий гонки. Только append и чтение,
// записи никогда не изменяются и не удаляются.
type EventRepository interface {
	Append(ctx context.Context, exec SQLExecutor, event *models.Event) error
	ListByRace(ctx context.Context, raceID int) ([]*models.Event, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEventRepository) Append(ctx context.Context, exec SQLExecutor, event *models.Event) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO events (race_id, type, data)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		event.RaceID, event.Type, []byte(event.Data),
	).Scan(&event.ID, &event.CreatedAt)
}

// ListByRace возвращает события по возрастанию времени создания; serial id
// разрешает порядок событий, созданных в один и тот же момент.
func (r *postgresEventRepository) ListByRace(ctx context.Context, raceID int) ([]*models.Event, error) {
	query := `
		SELECT id, race_id, type, data, created_at
		FROM events
		WHERE race_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		event := &models.Event{}
		var data []byte
		if scanErr := rows.Scan(
			&event.ID, &event.RaceID, &event.Type, &data, &event.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		event.Data = data
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
