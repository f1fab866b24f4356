package engine

import (
	"time"

	"github.com/corvid-labs/wiresense/internal/pkg/address"
	"github.com/corvid-labs/wiresense/internal/pkg/event"
	"github.com/corvid-labs/wiresense/internal/pkg/flowctx"
	"github.com/corvid-labs/wiresense/internal/pkg/ip4"
	"github.com/corvid-labs/wiresense/internal/pkg/ip6"
	"github.com/corvid-labs/wiresense/internal/pkg/pdu"
)

// Engine is the assembled decoder tree: one context registry, one idle
// reaper, and the shared TCP resolver / UDP dispatcher every captured
// packet is routed through. Grounded on
// original_source/include/cyberprobe/analyser/engine.h's engine class,
// which plays the identical role around a context_registry.
type Engine struct {
	cfg Config

	mgr event.Manager
	gen event.IDGenerator

	registry *flowctx.Registry
	reaper   *flowctx.Reaper

	ip4Deps ip4.Dependencies
	ip6Deps ip6.Dependencies
}

// New assembles an Engine: it builds the shared tcp.Resolver and
// udp.Dispatcher once, registering every application-layer package's
// signatures/routes onto them, then wires both into the ip4/ip6
// Dependencies every decoded datagram flows through. Events produced by
// the decoder tree are delivered to mgr, stamped with IDs from gen; if
// gen is nil, event.UUIDGenerator{} is used (teacher idiom: zero-value
// friendly constructors with a sane default).
func New(cfg Config, mgr event.Manager, gen event.IDGenerator) *Engine {
	if gen == nil {
		gen = event.UUIDGenerator{}
	}

	resolver := buildTCPResolver(cfg)
	dispatcher := buildUDPDispatcher(cfg)

	registry := flowctx.NewRegistry()

	// Each decoder's own IdleTimeout becomes the reaper threshold for its
	// context type, unless the reaper config already names that type.
	reaperCfg := cfg.Reaper
	reaperCfg.IdleByType = make(map[string]time.Duration, len(cfg.Reaper.IdleByType)+3)
	for typeName, d := range cfg.Reaper.IdleByType {
		reaperCfg.IdleByType[typeName] = d
	}
	for typeName, d := range map[string]time.Duration{"ip4": cfg.IP4.IdleTimeout, "ip6": cfg.IP6.IdleTimeout, "tcp": cfg.TCP.IdleTimeout} {
		if _, set := reaperCfg.IdleByType[typeName]; !set && d > 0 {
			reaperCfg.IdleByType[typeName] = d
		}
	}

	return &Engine{
		cfg:      cfg,
		mgr:      mgr,
		gen:      gen,
		registry: registry,
		reaper:   flowctx.NewReaper(registry, reaperCfg),
		ip4Deps: ip4.Dependencies{
			TCPResolver: resolver,
			TCPConfig:   cfg.TCP,
			UDPRoutes:   dispatcher,
		},
		ip6Deps: ip6.Dependencies{
			TCPResolver: resolver,
			TCPConfig:   cfg.TCP,
			UDPRoutes:   dispatcher,
		},
	}
}

// Start launches the background idle-context reaper.
func (e *Engine) Start() {
	e.reaper.Start()
}

// Stop halts the reaper. Idempotent.
func (e *Engine) Stop() {
	e.reaper.Stop()
}

// Registry exposes the root-context registry, mainly so callers can
// report Size() for diagnostics.
func (e *Engine) Registry() *flowctx.Registry {
	return e.registry
}

// Process decodes one captured link-layer frame for (device, network)
// (original_source engine::process). The root context for the pair is
// created on first use and persists across calls until TargetDown.
func (e *Engine) Process(device, network string, dir pdu.Direction, t time.Time, raw []byte) {
	root := e.registry.GetOrCreateRoot(device, network)
	root.Touch()

	slice := pdu.New(device, network, dir, t, raw)
	e.dispatchLink(root, raw, slice, e.mgr, e.gen)
}

// TargetUp records that (device, network) now corresponds to a live
// target at addr and emits TRIGGER_UP (original_source
// engine::target_up). Calling it more than once simply updates the
// trigger address on the existing root.
func (e *Engine) TargetUp(device, network string, addr address.Address, t time.Time) {
	root := e.registry.GetOrCreateRoot(device, network)
	root.SetTriggerAddress(addr)

	e.emit(event.ActionTriggerUp, device, network, t, addr)
}

// TargetDown removes the root context for (device, network) and emits
// TRIGGER_DOWN (original_source engine::target_down /
// close_root_context). A full no-op, including the event, if the pair
// was never brought up or was already torn down -- target_down is
// idempotent (spec.md §6).
func (e *Engine) TargetDown(device, network string, t time.Time) {
	if _, ok := e.registry.Remove(device, network); !ok {
		return
	}
	e.emit(event.ActionTriggerDown, device, network, t, nil)
}

func (e *Engine) emit(action event.ActionType, device, network string, t time.Time, payload any) {
	ev := event.New(e.gen, action, t, device, network, pdu.DirectionUnknown, payload)
	e.mgr.Handle(ev)
}
