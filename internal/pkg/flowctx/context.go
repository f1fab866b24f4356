// Package flowctx implements the hierarchical flow-context tree: the
// keyed hierarchy of per-flow state objects described in spec.md §3-§4.1.
//
// Grounded on the teacher's voip.CallTracker (callMap + janitorLoop) for
// the ticker-driven sweep and owning-map-deletion-cascades-children shape,
// and on original_source's cyberprobe/analyser/engine.h (contexts map,
// parent weak pointer, get_context_stack) for the tree topology itself.
package flowctx

import (
	"sync"
	"time"

	"github.com/corvid-labs/wiresense/internal/pkg/address"
)

// Context is a node in the per-flow tree. Exactly one of Parent/children
// applies at the root: a root context has no parent and carries a trigger
// address instead (spec.md §3 invariants).
type Context struct {
	// structMu guards children, lastUsed and watermark -- the structural
	// bookkeeping a reaper or registry walk touches. Held only for the
	// duration of a single structural operation.
	structMu sync.Mutex

	// subtypeMu guards Subtype only; decoders hold it for the duration of
	// processing one slice, and release it before emitting any event
	// (spec.md §9 "Scoped-resource acquisition").
	subtypeMu sync.Mutex

	flowAddr address.FlowAddress
	typeName string

	parent   *Context // non-owning; nil for roots
	children map[string]*Context

	lastUsed  time.Time
	watermark bool

	// Subtype carries protocol-specific decoder state (e.g. *tcp.State,
	// *ip4.FragState, *http.State). Decoders type-assert it themselves.
	Subtype any

	// set only on root contexts.
	device, network string
	triggerAddr     *address.Address
}

// NewRoot creates a parentless root context for (device, network).
func NewRoot(device, network string) *Context {
	return &Context{
		typeName: "root",
		children: make(map[string]*Context),
		lastUsed: time.Now(),
		device:   device,
		network:  network,
	}
}

// newChild creates a context for flowAddr under parent. Callers must hold
// parent.structMu.
func newChild(parent *Context, typeName string, flowAddr address.FlowAddress, subtype any) *Context {
	return &Context{
		typeName: typeName,
		flowAddr: flowAddr,
		parent:   parent,
		children: make(map[string]*Context),
		lastUsed: time.Now(),
		Subtype:  subtype,
	}
}

// FlowAddress returns the flow key this context was created for.
func (c *Context) FlowAddress() address.FlowAddress { return c.flowAddr }

// TypeName identifies the decoder layer owning this context ("tcp", "ip4",
// "http", ...).
func (c *Context) TypeName() string { return c.typeName }

// Parent returns the non-owning back-reference, or nil at the root.
func (c *Context) Parent() *Context { return c.parent }

// IsRoot reports whether this context has no parent.
func (c *Context) IsRoot() bool { return c.parent == nil }

// Device/Network are only meaningful on a root context.
func (c *Context) Device() string  { return c.device }
func (c *Context) Network() string { return c.network }

// TriggerAddress returns the observed target address set on a root by
// target_up, or nil if none has been set.
func (c *Context) TriggerAddress() *address.Address {
	c.structMu.Lock()
	defer c.structMu.Unlock()
	return c.triggerAddr
}

// SetTriggerAddress records the trigger address on a root context.
func (c *Context) SetTriggerAddress(a address.Address) {
	c.structMu.Lock()
	defer c.structMu.Unlock()
	c.triggerAddr = &a
}

// Touch updates last_used to now. Decoders call this once per processed
// slice; the reaper reads it to decide what is idle.
func (c *Context) Touch() {
	c.structMu.Lock()
	c.lastUsed = time.Now()
	c.structMu.Unlock()
}

// LastUsed returns the last touch time.
func (c *Context) LastUsed() time.Time {
	c.structMu.Lock()
	defer c.structMu.Unlock()
	return c.lastUsed
}

// Watermark reports/sets the GC watermark flag used to mark a context as
// a reap candidate between sweeps without removing it immediately.
func (c *Context) Watermark() bool {
	c.structMu.Lock()
	defer c.structMu.Unlock()
	return c.watermark
}

func (c *Context) SetWatermark(v bool) {
	c.structMu.Lock()
	c.watermark = v
	c.structMu.Unlock()
}

// WithSubtype runs fn with the subtype mutex held, for the duration of
// processing a single slice. fn must not call back into Manager.Handle;
// emit events after WithSubtype returns.
func (c *Context) WithSubtype(fn func(subtype any)) {
	c.subtypeMu.Lock()
	defer c.subtypeMu.Unlock()
	fn(c.Subtype)
}

// GetOrCreateChild resolves the child at flowAddr, creating it via make if
// absent. The second return reports whether a new context was created.
// This is the single entry point through which every decoder materializes
// a nested flow (spec.md §4.7's "resolves a child flow context").
func (c *Context) GetOrCreateChild(typeName string, flowAddr address.FlowAddress, make func() any) (*Context, bool) {
	key := flowAddr.Key()

	c.structMu.Lock()
	defer c.structMu.Unlock()

	if child, ok := c.children[key]; ok {
		return child, false
	}

	child := newChild(c, typeName, flowAddr, make())
	c.children[key] = child
	return child, true
}

// GetChild looks up an existing child without creating one.
func (c *Context) GetChild(flowAddr address.FlowAddress) *Context {
	c.structMu.Lock()
	defer c.structMu.Unlock()
	return c.children[flowAddr.Key()]
}

// Twin returns the reverse-flow sibling of this context if the parent has
// already materialized it -- looked up via the parent's children map, not
// a direct pointer, so reverse-flow pairs can't form a reference cycle
// (spec.md §9 "Cyclic references").
func (c *Context) Twin() *Context {
	if c.parent == nil {
		return nil
	}
	return c.parent.GetChild(c.flowAddr.Reverse())
}

// Children returns a snapshot slice of the current children, safe to
// range over without holding structMu.
func (c *Context) Children() []*Context {
	c.structMu.Lock()
	defer c.structMu.Unlock()
	out := make([]*Context, 0, len(c.children))
	for _, ch := range c.children {
		out = append(out, ch)
	}
	return out
}

// removeChild deletes the entry for key from c.children, if present.
// Dropping the map entry is what destroys the subtree: Go's GC reclaims
// it once nothing else references it (spec.md §3 "A context is destroyed
// iff its parent releases its child entry").
func (c *Context) removeChild(key string) {
	c.structMu.Lock()
	delete(c.children, key)
	c.structMu.Unlock()
}

// removeChildByFlow is removeChild keyed by a FlowAddress.
func (c *Context) removeChildByFlow(f address.FlowAddress) {
	c.removeChild(f.Key())
}

// Stack returns the ancestry of ctx from root to ctx inclusive, the
// get_context_stack helper from original_source/.../engine.h.
func Stack(ctx *Context) []*Context {
	var l []*Context
	for p := ctx; p != nil; p = p.parent {
		l = append([]*Context{p}, l...)
	}
	return l
}

// Root walks up to the root context of ctx's tree.
func Root(ctx *Context) *Context {
	p := ctx
	for p.parent != nil {
		p = p.parent
	}
	return p
}

// Describe renders a human-readable path from root to ctx, e.g.
// "10.0.0.1 -> 10.0.0.2 / 53124 -> 80" for a tcp context (spec.md §9,
// supplemented from original_source's describe_src/describe_dest).
func Describe(ctx *Context) string {
	stack := Stack(ctx)
	s := ""
	for _, c := range stack {
		if c.IsRoot() {
			continue
		}
		if s != "" {
			s += " / "
		}
		s += c.flowAddr.String()
	}
	return s
}
