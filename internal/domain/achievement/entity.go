// Package achievement содержит доменную модель каталога достижений Collectors Hub.
// Достижения - это награды за действия коллекционера: пополнение коллекции,
// комментарии, ежедневные входы. Каталог редактируется администратором и
// неизменяем в течение одного прохода вычисления прогресса.
package achievement

import (
	"errors"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// TIER (Редкость достижения)
// ══════════════════════════════════════════════════════════════════════════════

// Tier представляет упорядоченную категорию редкости достижения.
type Tier string

const (
	TierCommon    Tier = "common"
	TierUncommon  Tier = "uncommon"
	TierRare      Tier = "rare"
	TierEpic      Tier = "epic"
	TierLegendary Tier = "legendary"
	TierMythic    Tier = "mythic"
)

// Order возвращает порядковый номер редкости (Common = 0 ... Mythic = 5).
func (t Tier) Order() int {
	switch t {
	case TierCommon:
		return 0
	case TierUncommon:
		return 1
	case TierRare:
		return 2
	case TierEpic:
		return 3
	case TierLegendary:
		return 4
	case TierMythic:
		return 5
	default:
		return -1
	}
}

// IsValid проверяет, что редкость известна.
func (t Tier) IsValid() bool {
	return t.Order() >= 0
}

// AllTiers возвращает все редкости в порядке возрастания.
func AllTiers() []Tier {
	return []Tier{TierCommon, TierUncommon, TierRare, TierEpic, TierLegendary, TierMythic}
}

// ══════════════════════════════════════════════════════════════════════════════
// METRIC CATEGORIES (Категории метрик)
// ══════════════════════════════════════════════════════════════════════════════

// MetricCategory группирует метрики по источнику данных.
// Событие-триггер затрагивает одну или несколько категорий.
type MetricCategory string

const (
	// CategoryCollection - метрики по коллекции карточек пользователя.
	CategoryCollection MetricCategory = "collection"

	// CategoryComments - метрики по комментариям пользователя.
	CategoryComments MetricCategory = "comments"

	// CategoryLogin - метрики по входам в систему.
	CategoryLogin MetricCategory = "login"
)

// IsValid проверяет, что категория известна.
func (c MetricCategory) IsValid() bool {
	switch c {
	case CategoryCollection, CategoryComments, CategoryLogin:
		return true
	default:
		return false
	}
}

// AllCategories возвращает все известные категории.
func AllCategories() []MetricCategory {
	return []MetricCategory{CategoryCollection, CategoryComments, CategoryLogin}
}

// MetricDescriptor связывает достижение с зарегистрированной стратегией
// вычисления метрики. Достижение может принадлежать нескольким категориям,
// чтобы не пропустить триггер (пересечение множеств, а не одиночный тег).
type MetricDescriptor struct {
	// Metric - имя зарегистрированной стратегии (см. metrics.go).
	Metric MetricName

	// Categories - категории, по которым достижение становится кандидатом.
	Categories []MetricCategory
}

// MatchesAny проверяет пересечение категорий дескриптора с данным множеством.
func (d MetricDescriptor) MatchesAny(categories []MetricCategory) bool {
	for _, dc := range d.Categories {
		for _, c := range categories {
			if dc == c {
				return true
			}
		}
	}
	return false
}

// Validate проверяет корректность дескриптора.
func (d MetricDescriptor) Validate() error {
	if d.Metric == "" {
		return errors.New("achievement: metric name is required")
	}
	if !IsRegisteredMetric(d.Metric) {
		return fmt.Errorf("achievement: metric %q is not registered", d.Metric)
	}
	if len(d.Categories) == 0 {
		return errors.New("achievement: at least one metric category is required")
	}
	for _, c := range d.Categories {
		if !c.IsValid() {
			return fmt.Errorf("achievement: unknown metric category %q", c)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRIGGER EVENTS (События-триггеры)
// ══════════════════════════════════════════════════════════════════════════════

// TriggerEvent представляет действие пользователя, запускающее пересчёт.
type TriggerEvent string

const (
	// EventCardAdded - карточка добавлена в коллекцию.
	EventCardAdded TriggerEvent = "card_added"
	// EventCardRemoved - карточка удалена из коллекции.
	EventCardRemoved TriggerEvent = "card_removed"
	// EventCardUpdated - карточка изменена (состояние, оценка, стоимость).
	EventCardUpdated TriggerEvent = "card_updated"
	// EventCommentAdded - оставлен комментарий.
	EventCommentAdded TriggerEvent = "comment_added"
	// EventLogin - вход в систему.
	EventLogin TriggerEvent = "login"
	// EventManualCheck - ручной пересчёт по всем категориям.
	EventManualCheck TriggerEvent = "manual_check"
)

// IsValid проверяет, что событие из фиксированного перечня.
func (e TriggerEvent) IsValid() bool {
	switch e {
	case EventCardAdded, EventCardRemoved, EventCardUpdated,
		EventCommentAdded, EventLogin, EventManualCheck:
		return true
	default:
		return false
	}
}

// Categories возвращает категории метрик, затронутые событием.
// Для EventManualCheck возвращает nil - это означает "все категории".
func (e TriggerEvent) Categories() []MetricCategory {
	switch e {
	case EventCardAdded, EventCardRemoved, EventCardUpdated:
		return []MetricCategory{CategoryCollection}
	case EventCommentAdded:
		return []MetricCategory{CategoryComments}
	case EventLogin:
		return []MetricCategory{CategoryLogin}
	case EventManualCheck:
		return nil // все категории
	default:
		return nil
	}
}

// StreakEligible проверяет, участвует ли событие в сериях активности.
func (e TriggerEvent) StreakEligible() bool {
	switch e {
	case EventCardAdded, EventCommentAdded, EventLogin:
		return true
	default:
		return false
	}
}

// StreakCategory возвращает категорию серии для события.
// Возвращает пустую строку, если событие не участвует в сериях.
func (e TriggerEvent) StreakCategory() string {
	switch e {
	case EventCardAdded:
		return "cards"
	case EventCommentAdded:
		return "comments"
	case EventLogin:
		return "login"
	default:
		return ""
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT (Достижение)
// ══════════════════════════════════════════════════════════════════════════════

// Ошибки доменной модели достижений.
var (
	// ErrAchievementNotFound - достижение не найдено в каталоге.
	ErrAchievementNotFound = errors.New("achievement: not found")

	// ErrProgressNotFound - запись прогресса отсутствует (ленивое создание).
	ErrProgressNotFound = errors.New("achievement: progress not found")

	// ErrInvalidAchievement - достижение не проходит валидацию.
	ErrInvalidAchievement = errors.New("achievement: invalid definition")
)

// Achievement представляет одно достижение каталога.
// Сущность неизменяема в течение одного прохода вычисления прогресса.
type Achievement struct {
	// ID - идентификатор достижения.
	ID int64

	// Name - название ("Collector", "Weekly Login").
	Name string

	// Description - описание условия для пользователя.
	Description string

	// Tier - редкость.
	Tier Tier

	// Points - количество очков за выполнение (>= 0).
	Points int

	// RequirementThreshold - пороговое значение метрики.
	RequirementThreshold float64

	// Metric - дескриптор стратегии вычисления.
	Metric MetricDescriptor

	// Repeatable - можно ли выполнять повторно.
	Repeatable bool

	// CooldownDays - минимум дней между повторными выполнениями.
	// Имеет смысл только при Repeatable = true.
	CooldownDays int

	// Active - участвует ли достижение в вычислениях.
	Active bool

	// CreatedAt / UpdatedAt - служебные отметки времени каталога.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет корректность определения достижения.
func (a *Achievement) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAchievement)
	}
	if !a.Tier.IsValid() {
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidAchievement, a.Tier)
	}
	if a.Points < 0 {
		return fmt.Errorf("%w: points must be >= 0", ErrInvalidAchievement)
	}
	if a.CooldownDays < 0 {
		return fmt.Errorf("%w: cooldown days must be >= 0", ErrInvalidAchievement)
	}
	if err := a.Metric.Validate(); err != nil {
		return err
	}
	return nil
}

// SatisfiedBy проверяет, достигнут ли порог данным значением метрики.
// Порог <= 0 считается выполненным при первом же вычислении (прогресс 0 >= 0).
func (a *Achievement) SatisfiedBy(value float64) bool {
	return value >= a.RequirementThreshold
}

// ProgressPercentage вычисляет процент выполнения: min(100, 100*value/порог),
// не меньше 0. Для порога <= 0 всегда 100.
func (a *Achievement) ProgressPercentage(value float64) float64 {
	if a.RequirementThreshold <= 0 {
		return 100
	}
	pct := 100 * value / a.RequirementThreshold
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// CooldownActiveAt проверяет, действует ли период перезарядки в момент now
// для достижения, последний раз выполненного в lastCompleted.
func (a *Achievement) CooldownActiveAt(lastCompleted time.Time, now time.Time) bool {
	if !a.Repeatable || a.CooldownDays <= 0 {
		return false
	}
	elapsed := now.Sub(lastCompleted)
	return elapsed < time.Duration(a.CooldownDays)*24*time.Hour
}
