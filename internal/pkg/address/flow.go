package address

// FlowAddress is a directional (src, dst) endpoint pair at a single layer.
// It is the key type used to locate a child context in a parent's children
// map (spec.md §3 "Flow address").
type FlowAddress struct {
	Layer Layer
	Src   Address
	Dst   Address
}

// NewFlow builds a FlowAddress from a pair of addresses at a common layer.
func NewFlow(layer Layer, src, dst Address) FlowAddress {
	return FlowAddress{Layer: layer, Src: src, Dst: dst}
}

// Reverse returns the flow address with src/dst swapped, i.e. the key the
// opposite-direction traffic of this same flow would resolve to.
func (f FlowAddress) Reverse() FlowAddress {
	return FlowAddress{Layer: f.Layer, Src: f.Dst, Dst: f.Src}
}

// Key returns a comparable string usable as a map key. Equal(a,b) and
// Equal(a,b.Reverse()) produce different keys on purpose: forward and
// reverse flows are distinct map entries that reference each other via
// Registry/Context lookup, not via a shared canonical key (see
// flowctx.Context.Twin).
func (f FlowAddress) Key() string {
	return f.Src.Key() + ">" + f.Dst.Key()
}

// Equal reports whether two flow addresses are identical in direction.
func (f FlowAddress) Equal(o FlowAddress) bool {
	return f.Layer == o.Layer && f.Src.Equal(o.Src) && f.Dst.Equal(o.Dst)
}

// String renders "src -> dst" for logging.
func (f FlowAddress) String() string {
	return f.Src.String() + " -> " + f.Dst.String()
}
