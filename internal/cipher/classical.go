package cipher

import wxerr "wxcipher/internal/errors"

const (
	paramShift = "shift"
	paramKey   = "key"
)

func init() {
	Register(identity{})
	Register(caesar{})
	Register(vigenere{})
	Register(atbash{})
}

// rotate shifts an ASCII letter by n positions within its own case.
// Any other byte is returned unchanged.
func rotate(c byte, n int) byte {
	var base byte
	switch {
	case c >= 'a' && c <= 'z':
		base = 'a'
	case c >= 'A' && c <= 'Z':
		base = 'A'
	default:
		return c
	}
	off := (int(c-base) + n) % 26
	if off < 0 {
		off += 26
	}
	return base + byte(off)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// mapBytes applies fn to every byte of text.  Letters are ASCII, so
// working on bytes leaves multi-byte runes and invalid UTF-8 intact.
func mapBytes(text string, fn func(byte) byte) string {
	b := []byte(text)
	for i, c := range b {
		b[i] = fn(c)
	}
	return string(b)
}

// ── NONE ─────────────────────────────────────────────────────────────

type identity struct{}

func (identity) Variant() Variant                    { return None }
func (identity) DisplayName() string                 { return "None" }
func (identity) Param() string                       { return "" }
func (identity) Validate(Params) error               { return nil }
func (identity) Encode(text string, _ Params) string { return text }
func (identity) Decode(text string, _ Params) string { return text }

// ── CAESAR ───────────────────────────────────────────────────────────

type caesar struct{}

func (caesar) Variant() Variant      { return Caesar }
func (caesar) DisplayName() string   { return "Caesar" }
func (caesar) Param() string         { return paramShift }
func (caesar) Validate(Params) error { return nil }

func (caesar) Encode(text string, p Params) string { return shiftAll(text, p.Shift) }
func (caesar) Decode(text string, p Params) string { return shiftAll(text, -p.Shift) }

func shiftAll(text string, n int) string {
	n %= 26
	if n == 0 {
		return text
	}
	return mapBytes(text, func(c byte) byte { return rotate(c, n) })
}

// ── VIGENERE ─────────────────────────────────────────────────────────

type vigenere struct{}

func (vigenere) Variant() Variant    { return Vigenere }
func (vigenere) DisplayName() string { return "Vigenère" }
func (vigenere) Param() string       { return paramKey }

func (vigenere) Validate(p Params) error {
	if p.Key == "" {
		return &wxerr.InvalidParameterError{Variant: string(Vigenere), Param: paramKey, Reason: "must not be empty"}
	}
	for i := 0; i < len(p.Key); i++ {
		if !isLetter(p.Key[i]) {
			return &wxerr.InvalidParameterError{
				Variant: string(Vigenere),
				Param:   paramKey,
				Reason:  "must contain only ASCII letters",
			}
		}
	}
	return nil
}

func (vigenere) Encode(text string, p Params) string { return vigenereApply(text, p.Key, 1) }
func (vigenere) Decode(text string, p Params) string { return vigenereApply(text, p.Key, -1) }

// vigenereApply rotates each letter of text by the matching key letter
// times sign.  The key position only advances on letters, so spaces and
// punctuation never consume key material.
func vigenereApply(text, key string, sign int) string {
	shifts := make([]int, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		shifts[i] = int(c-'a') * sign
	}

	i := 0
	return mapBytes(text, func(c byte) byte {
		if !isLetter(c) {
			return c
		}
		c = rotate(c, shifts[i%len(shifts)])
		i++
		return c
	})
}

// ── ATBASH ───────────────────────────────────────────────────────────

type atbash struct{}

func (atbash) Variant() Variant      { return Atbash }
func (atbash) DisplayName() string   { return "Atbash" }
func (atbash) Param() string         { return "" }
func (atbash) Validate(Params) error { return nil }

func (atbash) Encode(text string, _ Params) string { return mapBytes(text, mirror) }
func (atbash) Decode(text string, _ Params) string { return mapBytes(text, mirror) }

func mirror(c byte) byte {
	switch {
	case c >= 'a' && c <= 'z':
		return 'z' - (c - 'a')
	case c >= 'A' && c <= 'Z':
		return 'Z' - (c - 'A')
	}
	return c
}
