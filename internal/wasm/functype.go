package wasm

// FuncType is a function signature: an ordered sequence of parameter kinds
// and at most one result kind (WebAssembly MVP disallows multi-value
// returns).
type FuncType struct {
	Params  []ValKind
	Results []ValKind // length 0 or 1
	mask    uint64
}

// NewFuncType builds a FuncType and pre-computes its type mask.
func NewFuncType(params, results []ValKind) FuncType {
	t := FuncType{Params: params, Results: results}
	t.mask = computeTypeMask(t)
	return t
}

// Mask returns the packed 64-bit digest of the signature. Two types are
// equal in the MVP's call_indirect sense iff their masks match.
func (t FuncType) Mask() uint64 { return t.mask }

// Result returns the declared result kind and whether one is present.
func (t FuncType) Result() (ValKind, bool) {
	if len(t.Results) == 0 {
		return KindNone, false
	}
	return t.Results[0], true
}

// computeTypeMask packs the parameter count into the low nibble, parameter
// kind i (for the first 15 parameters) into nibble i+1, and the result kind
// into the top nibble. This mirrors the reference implementation's packing
// scheme. Signatures with at most 14 parameters get distinct masks; beyond
// that the 15th parameter's nibble overlaps the result nibble, counts of 16
// or more spill into the first parameter's nibble, and parameters past the
// 15th are not encoded, so distinct signatures can share a mask.
func computeTypeMask(t FuncType) uint64 {
	mask := uint64(len(t.Params))
	for i, p := range t.Params {
		if i >= 15 {
			break
		}
		mask |= p.nibble() << uint(i*4+4)
	}
	if len(t.Results) > 0 {
		mask |= t.Results[0].nibble() << 60
	}
	return mask
}

// Equal reports whether two signatures have the same mask.
func (t FuncType) Equal(other FuncType) bool { return t.mask == other.mask }
