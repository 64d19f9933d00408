package verifier

import (
	"errors"
	"fmt"
	"io"
	"strings"

	gojson "github.com/goccy/go-json"
)

var errTrailingData = errors.New("unexpected data after top-level value")

// BlobKind tags the outcome of a successful blob parse.
type BlobKind int

const (
	// BlobAbsent means the cell was empty or whitespace only.
	BlobAbsent BlobKind = iota
	// BlobObject means the cell held a JSON object.
	BlobObject
	// BlobNonObject means the cell held valid JSON that is not an object.
	BlobNonObject
)

// Blob is a parsed blob cell. Fields is set for BlobObject, Value for
// BlobNonObject.
type Blob struct {
	Kind   BlobKind
	Fields map[string]any
	Value  any
}

// ParseBlob decodes a blob cell. Strict JSON is tried first; if that fails
// every single quote is replaced by a double quote and decoding is retried.
// The retry is a heuristic: it breaks values containing apostrophes.
// A cell that decodes under neither attempt returns ErrBlobParse.
func ParseBlob(raw string) (Blob, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Blob{Kind: BlobAbsent}, nil
	}

	v, err := decodeJSON(s)
	if err != nil {
		v, err = decodeJSON(strings.ReplaceAll(s, "'", `"`))
		if err != nil {
			return Blob{}, &FormatError{Source: "blob", Reason: ErrBlobParse, Err: err}
		}
	}

	if obj, ok := v.(*object); ok {
		return Blob{Kind: BlobObject, Fields: obj.values}, nil
	}
	return Blob{Kind: BlobNonObject, Value: v}, nil
}

// decodeJSON decodes exactly one JSON value, keeping numbers as literals and
// objects in key order.
func decodeJSON(s string) (any, error) {
	dec := gojson.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}

	// The text is valid JSON now; walk it again by token to keep key order.
	tokens := gojson.NewDecoder(strings.NewReader(s))
	tokens.UseNumber()
	return readValue(tokens)
}

func readValue(dec *gojson.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return valueFromToken(dec, tok)
}

func valueFromToken(dec *gojson.Decoder, tok gojson.Token) (any, error) {
	switch t := tok.(type) {
	case gojson.Delim:
		switch t {
		case '{':
			return readObject(dec)
		case '[':
			return readArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", rune(t))
	case gojson.Number:
		// Token returns a view into the decoder buffer.
		return gojson.Number(strings.Clone(string(t))), nil
	default:
		return t, nil
	}
}

func readObject(dec *gojson.Decoder) (*object, error) {
	obj := newObject()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(gojson.Delim); ok && d == '}' {
			return obj, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		v, err := readValue(dec)
		if err != nil {
			return nil, err
		}
		obj.set(key, v)
	}
}

func readArray(dec *gojson.Decoder) ([]any, error) {
	items := []any{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(gojson.Delim); ok && d == ']' {
			return items, nil
		}
		v, err := valueFromToken(dec, tok)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
}
