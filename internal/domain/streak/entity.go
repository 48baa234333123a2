// Package streak содержит доменную модель серий активных дней.
// Серия ведётся отдельно по каждой категории активности и обновляется
// детерминированной машиной состояний: тот же день - без изменений,
// следующий день - продление, пропуск - сброс до 1.
package streak

import (
	"errors"
	"time"

	"github.com/collectors-hub/collectors-hub/pkg/timeutil"
)

// Доменные ошибки пакета streak.
var (
	ErrStreakNotFound  = errors.New("streak: streak not found")
	ErrInvalidCategory = errors.New("streak: invalid category")
	ErrInvalidUserID   = errors.New("streak: invalid user ID")
)

// Category - категория активности, по которой ведётся серия.
type Category string

const (
	CategoryCards    Category = "cards"
	CategoryComments Category = "comments"
	CategoryLogin    Category = "login"
)

// IsValid проверяет, известна ли категория.
func (c Category) IsValid() bool {
	switch c {
	case CategoryCards, CategoryComments, CategoryLogin:
		return true
	}
	return false
}

// String возвращает строковое представление категории.
func (c Category) String() string {
	return string(c)
}

// AllCategories возвращает все известные категории.
func AllCategories() []Category {
	return []Category{CategoryCards, CategoryComments, CategoryLogin}
}

// Outcome - результат записи активности в серию.
type Outcome int

const (
	// OutcomeNoChange - активность в тот же день, серия не изменилась.
	OutcomeNoChange Outcome = iota

	// OutcomeStarted - первая активность, серия началась с 1.
	OutcomeStarted

	// OutcomeExtended - активность на следующий день, серия продлена.
	OutcomeExtended

	// OutcomeReset - пропущен минимум один день, серия сброшена до 1.
	OutcomeReset
)

// String возвращает строковое представление результата.
func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeExtended:
		return "extended"
	case OutcomeReset:
		return "reset"
	default:
		return "no_change"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE (Состояние серии)
// ══════════════════════════════════════════════════════════════════════════════

// State представляет состояние серии пользователя в одной категории.
// Все даты хранятся как начало дня в UTC.
type State struct {
	// UserID - идентификатор пользователя.
	UserID int64

	// Category - категория активности.
	Category Category

	// CurrentCount - длина текущей серии в днях.
	CurrentCount int

	// LongestCount - длина лучшей серии за всё время.
	// Монотонно не убывает: сброс текущей серии её не уменьшает.
	LongestCount int

	// LastActivityDate - дата последней учтённой активности.
	LastActivityDate time.Time

	// StreakStartDate - дата начала текущей серии.
	StreakStartDate time.Time

	// UpdatedAt - момент последнего изменения записи.
	UpdatedAt time.Time
}

// NewState создаёт пустое состояние серии.
func NewState(userID int64, category Category) (*State, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if !category.IsValid() {
		return nil, ErrInvalidCategory
	}

	return &State{
		UserID:   userID,
		Category: category,
	}, nil
}

// RecordActivity записывает активность за указанный момент времени
// и возвращает результат перехода. Повторный вызов за тот же день
// идемпотентен: состояние не меняется.
func (s *State) RecordActivity(at time.Time) Outcome {
	day := timeutil.StartOfDay(at)

	// Первая активность
	if s.LastActivityDate.IsZero() {
		s.CurrentCount = 1
		s.LongestCount = 1
		s.LastActivityDate = day
		s.StreakStartDate = day
		s.UpdatedAt = at
		return OutcomeStarted
	}

	lastDay := timeutil.StartOfDay(s.LastActivityDate)

	switch timeutil.DaysBetween(lastDay, day) {
	case 0:
		// Тот же день - ничего не меняем
		return OutcomeNoChange
	case 1:
		// Следующий день - продолжаем серию
		s.CurrentCount++
		if s.CurrentCount > s.LongestCount {
			s.LongestCount = s.CurrentCount
		}
		s.LastActivityDate = day
		s.UpdatedAt = at
		return OutcomeExtended
	default:
		// Пропущены дни - сбрасываем серию
		s.CurrentCount = 1
		s.StreakStartDate = day
		s.LastActivityDate = day
		s.UpdatedAt = at
		return OutcomeReset
	}
}

// IsBroken проверяет, сломана ли серия относительно указанного момента:
// последняя активность была раньше вчерашнего дня.
func (s *State) IsBroken(now time.Time) bool {
	if s.LastActivityDate.IsZero() {
		return false
	}
	return timeutil.DaysBetween(timeutil.StartOfDay(s.LastActivityDate), timeutil.StartOfDay(now)) > 1
}

// ActiveCount возвращает длину серии с учётом возможного разрыва:
// если серия сломана, возвращает 0, не дожидаясь записи новой активности.
func (s *State) ActiveCount(now time.Time) int {
	if s.IsBroken(now) {
		return 0
	}
	return s.CurrentCount
}
