package achievement

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRIC STRATEGIES (Стратегии вычисления метрик)
//
// Закрытый набор именованных стратегий. Достижение ссылается на стратегию
// по имени; произвольный исполняемый текст в каталоге запрещён.
// ══════════════════════════════════════════════════════════════════════════════

// MetricName - имя зарегистрированной стратегии вычисления метрики.
type MetricName string

const (
	// MetricDistinctCardCount - количество различных карточек в коллекции.
	MetricDistinctCardCount MetricName = "distinct_card_count"

	// MetricDistinctPlayerCount - количество различных игроков в коллекции.
	MetricDistinctPlayerCount MetricName = "distinct_player_count"

	// MetricDistinctTeamCount - количество различных команд в коллекции.
	MetricDistinctTeamCount MetricName = "distinct_team_count"

	// MetricTotalEstimatedValue - суммарная оценочная стоимость коллекции.
	MetricTotalEstimatedValue MetricName = "total_estimated_value"

	// MetricGradedCardCount - количество карточек с профессиональной оценкой.
	MetricGradedCardCount MetricName = "graded_card_count"

	// MetricRookieCardCount - количество карточек новичков.
	MetricRookieCardCount MetricName = "rookie_card_count"

	// MetricCommentCount - количество комментариев пользователя.
	MetricCommentCount MetricName = "comment_count"

	// MetricLoginCount - количество входов в систему.
	MetricLoginCount MetricName = "login_count"
)

// ErrUnknownMetric - дескриптор ссылается на незарегистрированную стратегию.
// Диспетчер пропускает такое достижение, не прерывая пакет.
var ErrUnknownMetric = errors.New("achievement: unknown metric")

// MetricSource предоставляет доступ на чтение к данным коллекции,
// комментариев и входов. Все методы - чистые чтения без побочных эффектов.
// Реализация в infrastructure/persistence; для тестов - in-memory подделка.
type MetricSource interface {
	DistinctCardCount(ctx context.Context, userID int64) (int64, error)
	DistinctPlayerCount(ctx context.Context, userID int64) (int64, error)
	DistinctTeamCount(ctx context.Context, userID int64) (int64, error)
	TotalEstimatedValue(ctx context.Context, userID int64) (float64, error)
	GradedCardCount(ctx context.Context, userID int64) (int64, error)
	RookieCardCount(ctx context.Context, userID int64) (int64, error)
	CommentCount(ctx context.Context, userID int64) (int64, error)
	LoginCount(ctx context.Context, userID int64) (int64, error)
}

// metricFn - сигнатура стратегии.
type metricFn func(ctx context.Context, src MetricSource, userID int64) (float64, error)

// intMetric адаптирует целочисленное чтение к общей сигнатуре.
func intMetric(read func(MetricSource) func(context.Context, int64) (int64, error)) metricFn {
	return func(ctx context.Context, src MetricSource, userID int64) (float64, error) {
		v, err := read(src)(ctx, userID)
		if err != nil {
			return 0, err
		}
		return float64(v), nil
	}
}

// registry - статический реестр стратегий. Заполняется один раз при
// инициализации пакета; динамическая регистрация не поддерживается.
var registry = map[MetricName]metricFn{
	MetricDistinctCardCount:   intMetric(func(s MetricSource) func(context.Context, int64) (int64, error) { return s.DistinctCardCount }),
	MetricDistinctPlayerCount: intMetric(func(s MetricSource) func(context.Context, int64) (int64, error) { return s.DistinctPlayerCount }),
	MetricDistinctTeamCount:   intMetric(func(s MetricSource) func(context.Context, int64) (int64, error) { return s.DistinctTeamCount }),
	MetricGradedCardCount:     intMetric(func(s MetricSource) func(context.Context, int64) (int64, error) { return s.GradedCardCount }),
	MetricRookieCardCount:     intMetric(func(s MetricSource) func(context.Context, int64) (int64, error) { return s.RookieCardCount }),
	MetricCommentCount:        intMetric(func(s MetricSource) func(context.Context, int64) (int64, error) { return s.CommentCount }),
	MetricLoginCount:          intMetric(func(s MetricSource) func(context.Context, int64) (int64, error) { return s.LoginCount }),
	MetricTotalEstimatedValue: func(ctx context.Context, src MetricSource, userID int64) (float64, error) {
		return src.TotalEstimatedValue(ctx, userID)
	},
}

// IsRegisteredMetric проверяет, что имя стратегии известно.
func IsRegisteredMetric(name MetricName) bool {
	_, ok := registry[name]
	return ok
}

// RegisteredMetrics возвращает имена всех стратегий в устойчивом порядке.
func RegisteredMetrics() []MetricName {
	names := make([]MetricName, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR (Вычислитель метрик)
// ══════════════════════════════════════════════════════════════════════════════

// Evaluator вычисляет текущее значение метрики достижения для пользователя.
type Evaluator struct {
	source MetricSource
}

// NewEvaluator создаёт вычислитель поверх источника данных.
func NewEvaluator(source MetricSource) *Evaluator {
	return &Evaluator{source: source}
}

// Evaluate возвращает неотрицательное значение метрики достижения.
// Незарегистрированная стратегия - ErrUnknownMetric; ошибка источника
// данных пробрасывается с контекстом. Вычисление не изменяет данные.
func (e *Evaluator) Evaluate(ctx context.Context, userID int64, a *Achievement) (float64, error) {
	fn, ok := registry[a.Metric.Metric]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, a.Metric.Metric)
	}

	value, err := fn(ctx, e.source, userID)
	if err != nil {
		return 0, fmt.Errorf("achievement: evaluate %q for user %d: %w", a.Metric.Metric, userID, err)
	}
	if value < 0 {
		value = 0
	}
	return value, nil
}
