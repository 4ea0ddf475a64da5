package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math/big"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// IDField is the name of the mandatory identifier field.
const IDField = "id"

// Document is a JSON object: field names mapped to strings, numbers,
// booleans, nested objects or lists. Stored documents always carry a
// non-empty string "id".
type Document map[string]any

// Filter selects documents whose fields equal the filter's values. A nil
// or empty filter matches every document. A filter holding "id" is
// answered by a direct key lookup on that id alone.
type Filter map[string]any

// ID returns the document's id, or "" when it is missing or not a string.
func (d Document) ID() string {
	s, _ := d[IDField].(string)
	return s
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return deepCopy(map[string]any(d)).(map[string]any)
}

// Decode copies the document into out, a pointer to a struct or map.
// Struct fields are matched by their json tag.
//
//	var u struct {
//		ID   string `json:"id"`
//		Name string `json:"name"`
//	}
//	err := doc.Decode(&u)
func (d Document) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(d))
}

// Matches reports whether every field of f is present in d with an equal
// value. Values are compared after JSON normalisation; numbers compare by
// exact value, so Filter{"n": 3} matches a stored 3.0 but 2^53 does not
// match 2^53+1. Nested objects compare field by field.
func (f Filter) Matches(d Document) bool {
	nf, err := normalizeFilter(f)
	if err != nil {
		return false
	}
	nd, err := normalizeDoc(d)
	if err != nil {
		return false
	}
	return nf.matches(nd)
}

func (f Filter) matches(d Document) bool {
	for k, want := range f {
		got, ok := d[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual is deep equality over decoded JSON values with numbers
// compared numerically.
func valuesEqual(a, b any) bool {
	if ra, ok := toRat(a); ok {
		rb, ok := toRat(b)
		return ok && ra.Cmp(rb) == 0
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, ok := bv[k]
			if !ok || !valuesEqual(ae, be) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// toRat returns the exact value of a JSON number.
func toRat(v any) (*big.Rat, bool) {
	switch n := v.(type) {
	case json.Number:
		return new(big.Rat).SetString(n.String())
	case float64:
		r := new(big.Rat).SetFloat64(n)
		return r, r != nil
	case int:
		return new(big.Rat).SetInt64(int64(n)), true
	case int64:
		return new(big.Rat).SetInt64(n), true
	default:
		return nil, false
	}
}

// lookupID returns the filter's id when it carries one.
func (f Filter) lookupID() (id string, ok bool, err error) {
	v, ok := f[IDField]
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", true, fmt.Errorf("%w: id must be a string, got %T", ErrInvalidFilter, v)
	}
	return s, true, nil
}

// documentID returns the document's id when it carries one.
func documentID(d Document) (id string, ok bool, err error) {
	v, ok := d[IDField]
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString || s == "" {
		return "", true, fmt.Errorf("%w: id must be a non-empty string, got %#v", ErrInvalidDocument, v)
	}
	return s, true, nil
}

// normalizeDoc returns a copy of d shaped exactly as it would be after a
// round trip through the store: numbers become json.Number holding their
// exact literal, structs become maps, and so on.
func normalizeDoc(d Document) (Document, error) {
	if len(d) == 0 {
		return Document{}, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	out := Document{}
	if err := decodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return out, nil
}

func normalizeFilter(f Filter) (Filter, error) {
	if len(f) == 0 {
		return Filter{}, nil
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	out := Filter{}
	if err := decodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return out, nil
}

// decodeJSON unmarshals raw keeping numbers as json.Number so integers
// beyond float64 precision survive.
func decodeJSON(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}

// merge overlays the top-level fields of src onto a copy of dst.
func merge(dst, src map[string]any) Document {
	out := make(Document, len(dst)+len(src))
	maps.Copy(out, dst)
	maps.Copy(out, src)
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = deepCopy(e)
		}
		return m
	case Document:
		return Document(deepCopy(map[string]any(t)).(map[string]any))
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = deepCopy(e)
		}
		return s
	default:
		return v
	}
}
