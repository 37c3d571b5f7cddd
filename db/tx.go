package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nbekov/race-control/repositories"
)

// Runner выполняет функцию внутри одной транзакции: либо все записи
// команды (мутации сущностей + запись события) фиксируются вместе,
// либо не фиксируется ничего.
type Runner struct {
	DB *sql.DB
}

func NewRunner(db *sql.DB) *Runner {
	return &Runner{DB: db}
}

func (r *Runner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				err = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()

	err = fn(tx)
	return err
}
