// Package cipher implements the classical substitution ciphers applied
// to outbound responses.
//
// These transforms are obfuscation, not security primitives: every one
// of them is a reversible per-letter substitution.  All functions are
// pure and safe for concurrent use.
package cipher

import (
	"sort"
	"strconv"
	"sync"

	wxerr "wxcipher/internal/errors"
)

// Variant identifies a registered transform.
type Variant string

const (
	None     Variant = "NONE"
	Caesar   Variant = "CAESAR"
	Vigenere Variant = "VIGENERE"
	Atbash   Variant = "ATBASH"
)

// Params carries variant-specific parameters.  Each variant reads only
// the fields it needs.
type Params struct {
	Shift int    // Caesar
	Key   string // Vigenère
}

// Transform is one cipher variant.
type Transform interface {
	// Variant returns the identifier the transform is registered under.
	Variant() Variant

	// DisplayName is the name clients send on the wire ("Caesar").
	DisplayName() string

	// Param names the variant's single parameter, or "" if it takes none.
	Param() string

	// Validate rejects parameters the transform cannot use.
	Validate(p Params) error

	// Encode and Decode assume p has passed Validate.
	Encode(text string, p Params) string
	Decode(text string, p Params) string
}

var (
	registryMu sync.RWMutex
	registry   = map[Variant]Transform{}
)

// Register adds t to the set of negotiable variants, replacing any
// transform previously registered under the same identifier.
func Register(t Transform) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t.Variant()] = t
}

// Lookup returns the transform registered for v.
func Lookup(v Variant) (Transform, error) {
	registryMu.RLock()
	t, ok := registry[v]
	registryMu.RUnlock()
	if !ok {
		return nil, &wxerr.UnsupportedCipherError{Variant: string(v)}
	}
	return t, nil
}

// Variants lists the registered identifiers in sorted order.
func Variants() []Variant {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Variant, 0, len(registry))
	for v := range registry {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Encode transforms plaintext with variant v.
func Encode(text string, v Variant, p Params) (string, error) {
	t, err := resolve(v, p)
	if err != nil {
		return "", err
	}
	return t.Encode(text, p), nil
}

// Decode inverts [Encode].
func Decode(text string, v Variant, p Params) (string, error) {
	t, err := resolve(v, p)
	if err != nil {
		return "", err
	}
	return t.Decode(text, p), nil
}

func resolve(v Variant, p Params) (Transform, error) {
	t, err := Lookup(v)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(p); err != nil {
		return nil, err
	}
	return t, nil
}

// ── Spec ─────────────────────────────────────────────────────────────

// Spec is a negotiated variant together with its parameters.
type Spec struct {
	Variant Variant
	Params  Params
}

// Plain is the identity spec every session falls back to.
var Plain = Spec{Variant: None}

// Encode applies the spec to text.
func (s Spec) Encode(text string) (string, error) { return Encode(text, s.Variant, s.Params) }

// Decode inverts the spec.
func (s Spec) Decode(text string) (string, error) { return Decode(text, s.Variant, s.Params) }

// Validate checks that the spec names a registered variant with usable
// parameters.
func (s Spec) Validate() error {
	_, err := resolve(s.Variant, s.Params)
	return err
}

// String renders the spec as a cipher-selection frame, always carrying
// the parameter explicitly: "Caesar:3", "Vigenère:key", "None".
func (s Spec) String() string {
	t, err := Lookup(s.Variant)
	if err != nil {
		return string(s.Variant)
	}
	switch t.Param() {
	case paramShift:
		return t.DisplayName() + paramSep + strconv.Itoa(s.Params.Shift)
	case paramKey:
		return t.DisplayName() + paramSep + s.Params.Key
	default:
		return t.DisplayName()
	}
}
