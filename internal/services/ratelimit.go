package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/applyforge/applyforge-backend/internal/pkg/faults"
	"github.com/applyforge/applyforge-backend/internal/platform/logger"
)

// Operation classes guarded by the rate limiter. Search-augmented research is
// the expensive class; the rest are plain text generation.
const (
	OpCompanyResearch = "company_research"
	OpFitAnalysis     = "fit_analysis"
	OpCoverLetter     = "cover_letter"
	OpOutreachMessage = "outreach_message"
	OpInterviewPrep   = "interview_prep"
)

type RateLimitRule struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowMinutes int `yaml:"window_minutes"`
}

func (r RateLimitRule) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}

func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		OpCompanyResearch: {MaxRequests: 10, WindowMinutes: 60},
		OpFitAnalysis:     {MaxRequests: 20, WindowMinutes: 60},
		OpCoverLetter:     {MaxRequests: 30, WindowMinutes: 60},
		OpOutreachMessage: {MaxRequests: 30, WindowMinutes: 60},
		OpInterviewPrep:   {MaxRequests: 20, WindowMinutes: 60},
	}
}

// LoadRateLimitRules overlays rules from a YAML file onto the defaults.
func LoadRateLimitRules(path string) (map[string]RateLimitRule, error) {
	rules := DefaultRateLimitRules()
	if path == "" {
		return rules, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate limit rules: %w", err)
	}
	var file struct {
		Classes map[string]RateLimitRule `yaml:"classes"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rate limit rules: %w", err)
	}
	for class, rule := range file.Classes {
		if rule.MaxRequests > 0 && rule.WindowMinutes > 0 {
			rules[class] = rule
		}
	}
	return rules, nil
}

type RateLimiter interface {
	// Check counts one attempt for (actor, operation class) and rejects with
	// RateLimitError once the window's budget is spent. Check-then-increment
	// is one logical step; two near-simultaneous calls cannot both pass on
	// the last slot.
	Check(ctx context.Context, actorID uuid.UUID, operationClass string) error
}

type rateLimitEntry struct {
	count         int
	windowResetAt time.Time
}

// MemoryRateLimiter is a fixed-window counter over an in-process map. Bursts
// straddling a window boundary are accepted as a known approximation. It does
// not coordinate across instances; use the Redis limiter for that.
type MemoryRateLimiter struct {
	log   *logger.Logger
	rules map[string]RateLimitRule

	mu      sync.Mutex
	entries map[string]*rateLimitEntry

	now        func() time.Time
	sweepEvery time.Duration
}

func NewMemoryRateLimiter(baseLog *logger.Logger, rules map[string]RateLimitRule) *MemoryRateLimiter {
	if rules == nil {
		rules = DefaultRateLimitRules()
	}
	return &MemoryRateLimiter{
		log:        baseLog.With("service", "RateLimiter"),
		rules:      rules,
		entries:    map[string]*rateLimitEntry{},
		now:        func() time.Time { return time.Now().UTC() },
		sweepEvery: 10 * time.Minute,
	}
}

func (l *MemoryRateLimiter) Check(_ context.Context, actorID uuid.UUID, operationClass string) error {
	if actorID == uuid.Nil {
		return faults.ErrUnauthorized
	}
	rule, ok := l.rules[operationClass]
	if !ok || rule.MaxRequests <= 0 {
		return fmt.Errorf("%w: unknown operation class %q", faults.ErrInvalidArgument, operationClass)
	}

	key := actorID.String() + "|" + operationClass
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[key]
	if !exists || !now.Before(entry.windowResetAt) {
		l.entries[key] = &rateLimitEntry{count: 1, windowResetAt: now.Add(rule.Window())}
		return nil
	}
	if entry.count >= rule.MaxRequests {
		return &faults.RateLimitError{
			OperationClass: operationClass,
			ResetInMinutes: minutesUntil(now, entry.windowResetAt),
		}
	}
	entry.count++
	return nil
}

// Start launches the periodic sweep of expired entries to bound memory.
func (l *MemoryRateLimiter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(l.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

func (l *MemoryRateLimiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, entry := range l.entries {
		if !now.Before(entry.windowResetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	if removed > 0 {
		l.log.Debug("swept expired rate limit entries", "removed", removed, "remaining", len(l.entries))
	}
}

func minutesUntil(now, resetAt time.Time) int {
	mins := int(math.Ceil(resetAt.Sub(now).Minutes()))
	if mins < 1 {
		mins = 1
	}
	return mins
}
