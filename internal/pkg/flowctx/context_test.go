package flowctx

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/wiresense/internal/pkg/address"
)

func flow(a, b string) address.FlowAddress {
	return address.NewFlow(address.LayerIP4,
		address.FromIP(net.ParseIP(a)), address.FromIP(net.ParseIP(b)))
}

func TestGetOrCreateChildIsIdempotent(t *testing.T) {
	root := NewRoot("dev1", "net1")
	f := flow("10.0.0.1", "10.0.0.2")

	c1, created1 := root.GetOrCreateChild("ip4", f, func() any { return nil })
	c2, created2 := root.GetOrCreateChild("ip4", f, func() any { return nil })

	assert.True(t, created1)
	assert.False(t, created2)
	assert.Same(t, c1, c2)
}

func TestReverseFlowResolvesTwin(t *testing.T) {
	root := NewRoot("dev1", "net1")
	f := flow("10.0.0.1", "10.0.0.2")

	forward, _ := root.GetOrCreateChild("ip4", f, func() any { return nil })
	reverse, _ := root.GetOrCreateChild("ip4", f.Reverse(), func() any { return nil })

	assert.Same(t, reverse, forward.Twin())
	assert.Same(t, forward, reverse.Twin())
}

func TestContextDestroyedWhenParentReleasesChild(t *testing.T) {
	root := NewRoot("dev1", "net1")
	f := flow("10.0.0.1", "10.0.0.2")
	root.GetOrCreateChild("ip4", f, func() any { return nil })

	require.NotNil(t, root.GetChild(f))
	root.removeChildByFlow(f)
	assert.Nil(t, root.GetChild(f))
}

func TestReaperPrunesIdleNotActive(t *testing.T) {
	registry := NewRegistry()
	root := registry.GetOrCreateRoot("dev1", "net1")

	idle := flow("10.0.0.1", "10.0.0.2")
	active := flow("10.0.0.3", "10.0.0.4")

	idleCtx, _ := root.GetOrCreateChild("tcp", idle, func() any { return nil })
	activeCtx, _ := root.GetOrCreateChild("tcp", active, func() any { return nil })

	cfg := Config{DefaultIdle: time.Minute, IdleByType: map[string]time.Duration{}}
	reaper := NewReaper(registry, cfg)

	base := time.Now()
	idleCtx.structMu.Lock()
	idleCtx.lastUsed = base.Add(-2 * time.Minute)
	idleCtx.structMu.Unlock()
	activeCtx.Touch()

	reaper.Sweep(base)

	assert.Nil(t, root.GetChild(idle))
	assert.NotNil(t, root.GetChild(active))
}

func TestReaperNeverRemovesRoot(t *testing.T) {
	registry := NewRegistry()
	registry.GetOrCreateRoot("dev1", "net1")

	cfg := Config{DefaultIdle: time.Nanosecond}
	reaper := NewReaper(registry, cfg)
	reaper.Sweep(time.Now().Add(time.Hour))

	_, ok := registry.Get("dev1", "net1")
	assert.True(t, ok)
}

func TestRegistryRemoveCascadesChildren(t *testing.T) {
	registry := NewRegistry()
	root := registry.GetOrCreateRoot("dev1", "net1")
	f := flow("10.0.0.1", "10.0.0.2")
	root.GetOrCreateChild("ip4", f, func() any { return nil })

	removed, ok := registry.Remove("dev1", "net1")
	require.True(t, ok)
	assert.Same(t, root, removed)

	_, ok = registry.Get("dev1", "net1")
	assert.False(t, ok)

	// A subsequent packet recreates a fresh root with no residual state.
	fresh := registry.GetOrCreateRoot("dev1", "net1")
	assert.NotSame(t, root, fresh)
	assert.Nil(t, fresh.GetChild(f))
}

func TestRemoveUnknownRootIsNoop(t *testing.T) {
	registry := NewRegistry()
	_, ok := registry.Remove("ghost", "net1")
	assert.False(t, ok)
}
