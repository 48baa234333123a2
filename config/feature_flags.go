package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles for the achievement engine.
// Flags are read from the environment at startup and can be adjusted
// at runtime for gradual rollout.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// userOverrides pins a flag on or off for specific users.
	userOverrides map[int64]map[string]bool
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// RolloutPercent enables the flag for a stable hash-based slice of
	// users (0-100). 100 means everyone when Enabled is true.
	RolloutPercent int
}

// Predefined feature flag names.
const (
	// FeatureNotifications controls notification creation on unlock.
	FeatureNotifications = "engine.notifications"

	// FeatureStreaks controls daily streak tracking.
	FeatureStreaks = "engine.streaks"

	// FeatureStatsCache controls the Redis summary cache.
	FeatureStatsCache = "engine.stats_cache"

	// FeatureReconcileJob controls the nightly reconcile pass.
	FeatureReconcileJob = "engine.reconcile_job"

	// FeatureProgressEvents controls publishing of progress events
	// (not just unlocks) onto the event bus.
	FeatureProgressEvents = "engine.progress_events"
)

// LoadFeatureFlags builds the flag set from the environment.
// Each flag reads FEATURE_<NAME> with dots replaced by underscores,
// e.g. FEATURE_ENGINE_NOTIFICATIONS=false.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[int64]map[string]bool),
	}

	ff.register(FeatureNotifications, "Create notifications on achievement unlock", true)
	ff.register(FeatureStreaks, "Track daily activity streaks", true)
	ff.register(FeatureStatsCache, "Cache user stats summaries in Redis", true)
	ff.register(FeatureReconcileJob, "Nightly full re-evaluation for active users", true)
	ff.register(FeatureProgressEvents, "Publish progress events, not only unlocks", false)

	return ff
}

func (ff *FeatureFlags) register(name, description string, defaultEnabled bool) {
	envKey := "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))

	enabled := defaultEnabled
	if val, ok := os.LookupEnv(envKey); ok && val != "" {
		switch strings.ToLower(val) {
		case "1", "true", "yes", "on":
			enabled = true
		case "0", "false", "no", "off":
			enabled = false
		}
	}

	rollout := 100
	if val, ok := os.LookupEnv(envKey + "_ROLLOUT"); ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 && n <= 100 {
			rollout = n
		}
	}

	ff.features[name] = &Feature{
		Name:           name,
		Description:    description,
		Enabled:        enabled,
		RolloutPercent: rollout,
	}
}

// IsEnabled reports whether a flag is globally on.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[name]
	return ok && f.Enabled && f.RolloutPercent >= 100
}

// IsEnabledForUser reports whether a flag is on for a specific user,
// honoring per-user overrides and the rollout percentage.
func (ff *FeatureFlags) IsEnabledForUser(name string, userID int64) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if overrides, ok := ff.userOverrides[userID]; ok {
		if enabled, ok := overrides[name]; ok {
			return enabled
		}
	}

	f, ok := ff.features[name]
	if !ok || !f.Enabled {
		return false
	}
	if f.RolloutPercent >= 100 {
		return true
	}
	return userBucket(name, userID) < f.RolloutPercent
}

// SetEnabled flips a flag at runtime.
func (ff *FeatureFlags) SetEnabled(name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if f, ok := ff.features[name]; ok {
		f.Enabled = enabled
	}
}

// OverrideForUser pins a flag for one user, for debugging and support.
func (ff *FeatureFlags) OverrideForUser(userID int64, name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.userOverrides[userID] == nil {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][name] = enabled
}

// userBucket maps (flag, user) to a stable bucket 0-99.
func userBucket(name string, userID int64) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte(strconv.FormatInt(userID, 10)))
	return int(h.Sum32() % 100)
}
