package models

type EntryStatus string

const (
	EntryStatusActive EntryStatus = "active"
	EntryStatusDNF    EntryStatus = "DNF"
)

// RaceEntry - запись участия гонщика в конкретной гонке.
// Позиции при создании гонки образуют перестановку 1..N по порядку стартовой решетки.
// Version используется для compare-and-swap при обновлении позиции.
type RaceEntry struct {
	ID       int         `json:"id"`
	RaceID   int         `json:"raceId"`
	RacerID  int         `json:"racerId"`
	Position int         `json:"position"`
	TyreType TyreType    `json:"tyreType"`
	Status   EntryStatus `json:"status"`
	Version  int         `json:"-"`

	// Опциональные связанные данные для отображения (не мапятся напрямую)
	Racer *Racer `json:"racer,omitempty"`
}
