package flowctx

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds the reaper's tunables. Per-protocol idle thresholds are
// resolved by context type name rather than one global number (spec.md §9
// open question, resolved in SPEC_FULL.md §6 "Reaper configuration").
type Config struct {
	SweepInterval time.Duration            `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	DefaultIdle   time.Duration            `mapstructure:"default_idle" yaml:"default_idle"`
	IdleByType    map[string]time.Duration `mapstructure:"idle_by_type" yaml:"idle_by_type"`
}

var configOnce sync.Once

func initConfigDefaults() {
	viper.SetDefault("reaper.sweep_interval", 30*time.Second)
	viper.SetDefault("reaper.default_idle", 5*time.Minute)
}

// DefaultConfig returns the reaper configuration with teacher-idiom
// viper-backed defaults (mirrors voip.GetConfig).
func DefaultConfig() Config {
	configOnce.Do(initConfigDefaults)
	return Config{
		SweepInterval: viper.GetDuration("reaper.sweep_interval"),
		DefaultIdle:   viper.GetDuration("reaper.default_idle"),
		IdleByType:    make(map[string]time.Duration),
	}
}

// Reaper is a background inactivity sweeper that prunes idle contexts
// (spec.md §4.2). It never removes roots; roots only disappear via
// target_down.
type Reaper struct {
	registry *Registry
	cfg      Config

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewReaper constructs a reaper over registry, not yet started.
func NewReaper(registry *Registry, cfg Config) *Reaper {
	return &Reaper{registry: registry, cfg: cfg, done: make(chan struct{})}
}

// idleThreshold resolves the configured threshold for a context type,
// falling back to DefaultIdle.
func (r *Reaper) idleThreshold(typeName string) time.Duration {
	if d, ok := r.cfg.IdleByType[typeName]; ok {
		return d
	}
	return r.cfg.DefaultIdle
}

// Start launches the sweeper goroutine on a ticker (teacher idiom:
// voip.CallTracker.janitorLoop).
func (r *Reaper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	go func() {
		ticker := time.NewTicker(r.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(time.Now())
			}
		}
	}()
}

// Stop cancels the sweeper goroutine. Idempotent.
func (r *Reaper) Stop() {
	r.once.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		close(r.done)
	})
}

// Sweep walks every root's subtree once and prunes contexts whose
// last-used time is older than their type's idle threshold, recursively
// -- pruning a parent removes its children (spec.md §4.2 "Pruning is
// subtree-recursive").
func (r *Reaper) Sweep(now time.Time) {
	for _, root := range r.registry.Roots() {
		r.sweepChildren(root, now)
	}
}

// sweepChildren prunes expired direct children of ctx, then recurses into
// the survivors. It acquires ctx's structural lock only for the duration
// of listing/removing entries, and removes an expired child while holding
// that child's subtype lock -- the same per-context mutex decoders hold
// while processing a slice -- so reaping cannot race with decoding.
func (r *Reaper) sweepChildren(ctx *Context, now time.Time) {
	for _, child := range ctx.Children() {
		threshold := r.idleThreshold(child.TypeName())
		if now.Sub(child.LastUsed()) > threshold {
			child.subtypeMu.Lock()
			ctx.removeChildByFlow(child.FlowAddress())
			child.subtypeMu.Unlock()
			continue
		}
		r.sweepChildren(child, now)
	}
}
