package tcp

import (
	"sort"
	"sync"
)

// Processor is the upper-layer handler bound to a TCP direction once its
// service has been identified (original_source's tcp_context::processor).
// It receives the owning context (so it can materialize its own
// application-layer subtype as a grandchild) and the in-order bytes
// delivered since the last call.
type Processor func(h ProcessorHandle)

// Signature is a candidate upper-layer protocol a Resolver can bind a TCP
// stream to, modeled on the teacher's detector.Signature but scoped down
// to what TCP service identification needs: a port hint plus a
// buffer-prefix matcher (spec.md §4.5 "Service identification").
type Signature struct {
	Name      string
	Ports     []uint16
	Processor Processor
	// Match inspects the identification buffer accumulated so far and
	// reports whether it recognizes this stream. May be called
	// repeatedly as more bytes arrive.
	Match func(buf []byte) bool
}

// Resolver maps (port, buffer prefix) to a Processor, mirroring
// detector.Detector's portMap fast path plus priority-ordered signature
// fallback.
type Resolver struct {
	mu      sync.RWMutex
	sigs    []Signature
	portMap map[uint16]Signature
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{portMap: make(map[uint16]Signature)}
}

// Register adds a signature. After the port-map fast path misses,
// signatures are tried in order of how many ports they declare (most
// first), ties kept in registration order. First registration wins a given
// port: when two signatures share a port (e.g. an HTTP request and its
// response both registering 80), only the first occupies the fast
// path and the second always falls through to the linear scan below --
// still correct, just slower for that signature on that port.
func (r *Resolver) Register(sig Signature) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sigs = append(r.sigs, sig)
	for _, port := range sig.Ports {
		if _, exists := r.portMap[port]; !exists {
			r.portMap[port] = sig
		}
	}
}

// Resolve attempts to identify the service behind dstPort/srcPort given
// the bytes buffered so far. Returns the zero Signature and false if
// nothing matches yet.
func (r *Resolver) Resolve(dstPort, srcPort uint16, buf []byte) (Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if sig, ok := r.portMap[dstPort]; ok && sig.Match(buf) {
		return sig, true
	}
	if sig, ok := r.portMap[srcPort]; ok && sig.Match(buf) {
		return sig, true
	}

	sigs := make([]Signature, len(r.sigs))
	copy(sigs, r.sigs)
	sort.SliceStable(sigs, func(i, j int) bool { return len(sigs[i].Ports) > len(sigs[j].Ports) })

	for _, sig := range sigs {
		if sig.Match(buf) {
			return sig, true
		}
	}
	return Signature{}, false
}
