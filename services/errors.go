package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации команд гонки
	ErrVenueRequired        = errors.New("venue is required")
	ErrInvalidTotalLaps     = errors.New("total laps must be between 1 and 200")
	ErrGridTooSmall         = errors.New("at least 2 racers required for a race")
	ErrDuplicateRacerInGrid = errors.New("starting grid contains duplicate racer ids")
	ErrInvalidTyreType      = errors.New("invalid tyre type")
	ErrInvalidLapTime       = errors.New("lap time must be greater than 0 and at most 300 seconds")
	ErrInvalidPitTime       = errors.New("pit time must be greater than 0 and at most 60 seconds")
	ErrInvalidPosition      = errors.New("position must be a positive integer")

	// Ошибки переходов состояния гонки
	ErrRaceNotPending       = errors.New("race has already been started")
	ErrRaceAlreadyCompleted = errors.New("race is already completed")
	ErrRaceCompleted        = errors.New("race is completed and no longer accepts updates")
	ErrRaceHasNoEntries     = errors.New("race has no entries")

	// Ресурсы не найдены
	ErrRaceNotFound  = errors.New("race not found")
	ErrEntryNotFound = errors.New("race entry not found")
	ErrRacerNotFound = errors.New("racer not found")
	ErrTeamNotFound  = errors.New("team not found")

	// Конфликты и правила реестра команд
	ErrTeamNameRequired    = errors.New("team name is required")
	ErrTeamNameConflict    = errors.New("team name is already in use")
	ErrRacerNumberConflict = errors.New("racing number is already in use")
	ErrTeamFull            = errors.New("team already has maximum racers")
	ErrEntryConflict       = errors.New("race entry was modified concurrently, retry the update")

	// Аутентификация и авторизация
	ErrAuthInvalidCredentials = errors.New("invalid username or password")
	ErrAuthUsernameTaken      = errors.New("username is already taken")
	ErrInvalidRole            = errors.New("invalid role specified")
	ErrPasswordTooShort       = errors.New("password must be at least 6 characters long")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Загрузка файлов
	ErrUploadsNotConfigured = errors.New("file uploads are not configured")
)
