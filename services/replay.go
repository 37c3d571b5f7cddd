package services

import (
	"fmt"

	"github.com/nbekov/race-control/models"
)

// EntryState - проекция состояния записи участия, восстановленная из
// журнала событий без обращения к таблице race_entries.
type EntryState struct {
	RacerID  int
	Position int
	TyreType models.TyreType
	Status   models.EntryStatus
}

// ReplayEntryStates сворачивает журнал событий одной гонки в терминальное
// состояние её записей участия. Журнал должен начинаться с race_created.
// Результат обязан совпадать с прямым состоянием race_entries - это
// проверяемое свойство журнала как единственного источника истории.
func ReplayEntryStates(events []*models.Event) (map[int]*EntryState, error) {
	states := make(map[int]*EntryState)

	for _, event := range events {
		switch event.Type {
		case models.EventRaceCreated:
			var data models.RaceCreatedData
			if err := event.DecodeData(&data); err != nil {
				return nil, err
			}
			for i, racerID := range data.Grid {
				states[racerID] = &EntryState{
					RacerID:  racerID,
					Position: i + 1,
					TyreType: data.DefaultTyreType,
					Status:   models.EntryStatusActive,
				}
			}

		case models.EventPositionChange:
			var data models.PositionChangeData
			if err := event.DecodeData(&data); err != nil {
				return nil, err
			}
			state, ok := states[data.RacerID]
			if !ok {
				return nil, fmt.Errorf("position_change for unknown racer %d", data.RacerID)
			}
			state.Position = data.NewPosition

		case models.EventPitStop:
			var data models.PitStopData
			if err := event.DecodeData(&data); err != nil {
				return nil, err
			}
			// Пит-стоп без записи участия допустим: резину менять некому.
			if state, ok := states[data.RacerID]; ok {
				state.TyreType = data.TyreType
			}

		case models.EventDNF:
			var data models.DNFData
			if err := event.DecodeData(&data); err != nil {
				return nil, err
			}
			state, ok := states[data.RacerID]
			if !ok {
				return nil, fmt.Errorf("dnf for unknown racer %d", data.RacerID)
			}
			state.Status = models.EntryStatusDNF

		case models.EventRaceStarted, models.EventLapCompleted, models.EventRaceCompleted:
			// Не затрагивают состояние записей участия.

		default:
			return nil, fmt.Errorf("unknown event type %q", event.Type)
		}
	}

	return states, nil
}
