package cipher

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	wxerr "wxcipher/internal/errors"
)

// paramSep separates the variant name from its parameter in a
// cipher-selection frame.
const paramSep = ":"

// plainAliases name the identity transform in addition to "None".
var plainAliases = []string{"", "plain", "plaintext", "identity"}

// canonical folds a variant name so that "Vigenère", "vigenere" and
// "VIGENERE" compare equal.
func canonical(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, strings.TrimSpace(name))
	if err != nil {
		s = name
	}
	return cases.Fold().String(s)
}

// ParseSelection parses a cipher-selection frame of the form
// "<name>[:<param>]".  A missing parameter is taken from defaults.
//
// Unknown names yield *errors.UnsupportedCipherError; unusable
// parameters yield *errors.InvalidParameterError.
func ParseSelection(frame string, defaults Params) (Spec, error) {
	name, param, hasParam := strings.Cut(frame, paramSep)

	t, err := lookupName(name)
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{Variant: t.Variant()}
	switch t.Param() {
	case paramShift:
		spec.Params.Shift = defaults.Shift
		if hasParam {
			n, err := strconv.Atoi(strings.TrimSpace(param))
			if err != nil {
				return Spec{}, &wxerr.InvalidParameterError{
					Variant: string(t.Variant()),
					Param:   paramShift,
					Reason:  strconv.Quote(param) + " is not an integer",
				}
			}
			spec.Params.Shift = n
		}
	case paramKey:
		spec.Params.Key = defaults.Key
		if hasParam {
			spec.Params.Key = strings.TrimSpace(param)
		}
	default:
		if hasParam && param != "" {
			return Spec{}, &wxerr.InvalidParameterError{
				Variant: string(t.Variant()),
				Param:   "parameter",
				Reason:  "variant takes no parameter",
			}
		}
	}

	if err := t.Validate(spec.Params); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func lookupName(name string) (Transform, error) {
	want := canonical(name)
	for _, alias := range plainAliases {
		if want == alias {
			return Lookup(None)
		}
	}

	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, t := range registry {
		if want == canonical(t.DisplayName()) || want == canonical(string(t.Variant())) {
			return t, nil
		}
	}
	return nil, &wxerr.UnsupportedCipherError{Variant: strings.TrimSpace(name)}
}
