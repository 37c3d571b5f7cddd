package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nbekov/race-control/models"
)

var (
	ErrEntryNotFound        = errors.New("race entry not found")
	ErrEntryVersionConflict = errors.New("race entry was modified concurrently")
)

type EntryRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, entries []*models.RaceEntry) error
	GetByRaceAndRacer(ctx context.Context, exec SQLExecutor, raceID, racerID int) (*models.RaceEntry, error)
	ListByRace(ctx context.Context, raceID int) ([]*models.RaceEntry, error)
	CountByRace(ctx context.Context, exec SQLExecutor, raceID int) (int, error)
	// UpdatePosition выполняет compare-and-swap по version: запись
	// обновляется только если её версия не изменилась с момента чтения.
	UpdatePosition(ctx context.Context, exec SQLExecutor, entryID, newPosition, expectedVersion int) error
	UpdateTyre(ctx context.Context, exec SQLExecutor, entryID int, tyre models.TyreType) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, entryID int, status models.EntryStatus) error
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEntryRepository) CreateBatch(ctx context.Context, exec SQLExecutor, entries []*models.RaceEntry) error {
	if len(entries) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)

	valueStrings := make([]string, 0, len(entries))
	args := make([]interface{}, 0, len(entries)*5)
	argID := 1
	for _, e := range entries {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			argID, argID+1, argID+2, argID+3, argID+4))
		args = append(args, e.RaceID, e.RacerID, e.Position, e.TyreType, e.Status)
		argID += 5
	}

	query := fmt.Sprintf(`
		INSERT INTO race_entries (race_id, racer_id, position, tyre_type, status)
		VALUES %s
		RETURNING id`, strings.Join(valueStrings, ", "))

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert race entries: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if scanErr := rows.Scan(&entries[i].ID); scanErr != nil {
			return scanErr
		}
		i++
	}
	return rows.Err()
}

func (r *postgresEntryRepository) GetByRaceAndRacer(ctx context.Context, exec SQLExecutor, raceID, racerID int) (*models.RaceEntry, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, race_id, racer_id, position, tyre_type, status, version
		FROM race_entries
		WHERE race_id = $1 AND racer_id = $2`

	entry := &models.RaceEntry{}
	err := executor.QueryRowContext(ctx, query, raceID, racerID).Scan(
		&entry.ID, &entry.RaceID, &entry.RacerID,
		&entry.Position, &entry.TyreType, &entry.Status, &entry.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// ListByRace возвращает записи гонки по возрастанию позиции вместе с
// данными гонщика и его команды для отображения в таблице лидеров.
func (r *postgresEntryRepository) ListByRace(ctx context.Context, raceID int) ([]*models.RaceEntry, error) {
	query := `
		SELECT
			e.id, e.race_id, e.racer_id, e.position, e.tyre_type, e.status, e.version,
			rc.id, rc.name, rc.country, rc.racing_number, rc.team_id,
			t.id, t.name, t.country
		FROM race_entries e
		JOIN racers rc ON rc.id = e.racer_id
		JOIN teams t ON t.id = rc.team_id
		WHERE e.race_id = $1
		ORDER BY e.position ASC`

	rows, err := r.db.QueryContext(ctx, query, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.RaceEntry, 0)
	for rows.Next() {
		entry := &models.RaceEntry{Racer: &models.Racer{Team: &models.Team{}}}
		if scanErr := rows.Scan(
			&entry.ID, &entry.RaceID, &entry.RacerID,
			&entry.Position, &entry.TyreType, &entry.Status, &entry.Version,
			&entry.Racer.ID, &entry.Racer.Name, &entry.Racer.Country,
			&entry.Racer.RacingNumber, &entry.Racer.TeamID,
			&entry.Racer.Team.ID, &entry.Racer.Team.Name, &entry.Racer.Team.Country,
		); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *postgresEntryRepository) CountByRace(ctx context.Context, exec SQLExecutor, raceID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM race_entries WHERE race_id = $1`, raceID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresEntryRepository) UpdatePosition(ctx context.Context, exec SQLExecutor, entryID, newPosition, expectedVersion int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE race_entries
		SET position = $1, version = version + 1
		WHERE id = $2 AND version = $3`
	result, err := executor.ExecContext(ctx, query, newPosition, entryID, expectedVersion)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEntryVersionConflict)
}

func (r *postgresEntryRepository) UpdateTyre(ctx context.Context, exec SQLExecutor, entryID int, tyre models.TyreType) error {
	executor := r.getExecutor(exec)
	query := `UPDATE race_entries SET tyre_type = $1, version = version + 1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, tyre, entryID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}

func (r *postgresEntryRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, entryID int, status models.EntryStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE race_entries SET status = $1, version = version + 1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, entryID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}
