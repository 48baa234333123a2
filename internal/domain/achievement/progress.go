package achievement

import (
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER ACHIEVEMENT PROGRESS (Прогресс пользователя)
// ══════════════════════════════════════════════════════════════════════════════

// UserAchievementProgress представляет прогресс одного пользователя по одному
// достижению. Составной ключ (UserID, AchievementID). Запись создаётся лениво
// при первом вычислении; отсутствие записи эквивалентно нулевому состоянию.
//
// Инварианты:
//   - Completed => Progress >= порога на момент последнего вычисления;
//   - для неповторяемых достижений Completed после установки не сбрасывается;
//   - TimesCompleted увеличивается только при новом выполнении, прошедшем
//     проверку перезарядки.
type UserAchievementProgress struct {
	// UserID - идентификатор пользователя.
	UserID int64

	// AchievementID - идентификатор достижения.
	AchievementID int64

	// Progress - последнее вычисленное значение метрики.
	Progress float64

	// ProgressPercentage - производный процент выполнения (0-100).
	ProgressPercentage float64

	// Completed - достижение выполнено хотя бы один раз.
	Completed bool

	// CompletedAt - момент последнего выполнения (nil, если не выполнено).
	CompletedAt *time.Time

	// TimesCompleted - сколько раз выполнено (>= 0).
	TimesCompleted int

	// PointsAwarded - накопленные очки по этому достижению.
	PointsAwarded int

	// LastUpdate - момент последнего обновления записи.
	LastUpdate time.Time
}

// NewUserAchievementProgress возвращает нулевое состояние прогресса.
func NewUserAchievementProgress(userID, achievementID int64) *UserAchievementProgress {
	return &UserAchievementProgress{
		UserID:        userID,
		AchievementID: achievementID,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE DECISION (Правила обновления прогресса)
// ══════════════════════════════════════════════════════════════════════════════

// SkipReason объясняет, почему обновление прогресса пропущено.
type SkipReason string

const (
	// SkipNone - обновление не пропущено.
	SkipNone SkipReason = ""

	// SkipCooldown - повторяемое достижение в периоде перезарядки.
	// Намеренный ранний выход, не ошибка.
	SkipCooldown SkipReason = "cooldown"

	// SkipNoChange - значение и статус выполнения не изменились.
	SkipNoChange SkipReason = "no_change"
)

// UpdateDecision описывает, что нужно записать в хранилище прогресса
// (или что запись не нужна вовсе).
type UpdateDecision struct {
	// Skip - запись не выполняется.
	Skip bool

	// SkipReason - причина пропуска.
	SkipReason SkipReason

	// NewValue - новое значение метрики (не меньше 0).
	NewValue float64

	// Percentage - производный процент (0-100).
	Percentage float64

	// CompletedNow - порог достигнут текущим значением.
	CompletedNow bool

	// WasJustCompleted - зафиксирован переход в состояние "выполнено"
	// (первичное выполнение или повторное после перезарядки).
	WasJustCompleted bool

	// PointsDelta - очки, начисляемые этим обновлением.
	PointsDelta int

	// TimesDelta - приращение счётчика выполнений (0 или 1).
	TimesDelta int
}

// DecideUpdate применяет правила обновления прогресса к паре
// (предыдущее состояние, новое значение метрики).
//
// prior может быть nil - это ленивое нулевое состояние.
// Значения метрики меньше нуля приводятся к нулю.
func DecideUpdate(prior *UserAchievementProgress, a *Achievement, newValue float64, now time.Time) UpdateDecision {
	if newValue < 0 {
		newValue = 0
	}
	if prior == nil {
		prior = NewUserAchievementProgress(0, a.ID)
	}

	// Повторяемое достижение в периоде перезарядки: ранний выход,
	// значение не читается и не записывается.
	if a.Repeatable && prior.TimesCompleted > 0 && prior.CompletedAt != nil {
		if a.CooldownActiveAt(*prior.CompletedAt, now) {
			return UpdateDecision{Skip: true, SkipReason: SkipCooldown, NewValue: newValue}
		}
	}

	completedNow := a.SatisfiedBy(newValue)
	wasJustCompleted := completedNow && (!prior.Completed || a.Repeatable)
	percentage := a.ProgressPercentage(newValue)

	// Запись не нужна, если ни значение, ни статус не изменились.
	// Повторное выполнение после перезарядки это правило подавлять не должно.
	if newValue == prior.Progress && completedNow == prior.Completed && !wasJustCompleted {
		return UpdateDecision{Skip: true, SkipReason: SkipNoChange, NewValue: newValue}
	}

	decision := UpdateDecision{
		NewValue:         newValue,
		Percentage:       percentage,
		CompletedNow:     completedNow,
		WasJustCompleted: wasJustCompleted,
	}
	if wasJustCompleted {
		decision.PointsDelta = a.Points
		decision.TimesDelta = 1
	}
	return decision
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS UPDATE (Атомарная запись)
// ══════════════════════════════════════════════════════════════════════════════

// ProgressUpdate описывает одну атомарную запись прогресса.
// Хранилище обязано выполнить её единственной условной операцией
// insert-or-update по составному ключу (см. ProgressRepository.Apply).
type ProgressUpdate struct {
	UserID        int64
	AchievementID int64

	Progress           float64
	ProgressPercentage float64
	Completed          bool

	// CompletedAt устанавливается только при WasJustCompleted.
	CompletedAt *time.Time

	// TimesDelta и PointsDelta - приращения, вычисляемые хранилищем
	// поверх существующей записи.
	TimesDelta  int
	PointsDelta int

	// Repeatable переносится из достижения: хранилище использует его,
	// чтобы не допустить двойного начисления неповторяемого достижения
	// двумя одновременными триггерами.
	Repeatable bool

	// CooldownDays переносится из достижения: хранилище не начисляет
	// повторяемое достижение, если с прошлого выполнения прошло меньше
	// дней, даже когда два триггера одновременно прошли проверку
	// кулдауна на уровне приложения.
	CooldownDays int

	LastUpdate time.Time
}

// BuildProgressUpdate собирает запись из решения DecideUpdate.
func BuildProgressUpdate(userID int64, a *Achievement, d UpdateDecision, now time.Time) ProgressUpdate {
	u := ProgressUpdate{
		UserID:             userID,
		AchievementID:      a.ID,
		Progress:           d.NewValue,
		ProgressPercentage: d.Percentage,
		Completed:          d.CompletedNow,
		TimesDelta:         d.TimesDelta,
		PointsDelta:        d.PointsDelta,
		Repeatable:         a.Repeatable,
		CooldownDays:       a.CooldownDays,
		LastUpdate:         now,
	}
	if d.WasJustCompleted {
		completedAt := now
		u.CompletedAt = &completedAt
	}
	return u
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HISTORY (Журнал изменений)
// ══════════════════════════════════════════════════════════════════════════════

// HistoryEntry - одна запись журнала изменений прогресса.
// Журнал только пополняется и никогда не изменяется.
type HistoryEntry struct {
	// ID - идентификатор записи.
	ID string

	// UserID / AchievementID - по какой паре изменение.
	UserID        int64
	AchievementID int64

	// PreviousProgress / NewProgress - значение до и после.
	PreviousProgress float64
	NewProgress      float64

	// PointsDelta - начисленные очки (0, если выполнение не фиксировалось).
	PointsDelta int

	// TriggerEvent - событие, вызвавшее изменение.
	TriggerEvent TriggerEvent

	// CreatedAt - момент записи.
	CreatedAt time.Time
}

// NewHistoryEntry создаёт запись журнала с новым идентификатором.
func NewHistoryEntry(userID int64, achievementID int64, previous, current float64, pointsDelta int, event TriggerEvent, now time.Time) *HistoryEntry {
	return &HistoryEntry{
		ID:               uuid.NewString(),
		UserID:           userID,
		AchievementID:    achievementID,
		PreviousProgress: previous,
		NewProgress:      current,
		PointsDelta:      pointsDelta,
		TriggerEvent:     event,
		CreatedAt:        now,
	}
}
