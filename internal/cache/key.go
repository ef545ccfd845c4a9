package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when a request parameter holds a string that is
// not valid UTF-8. encoding/json would replace the bad bytes with U+FFFD, so
// distinct values would share a key.
var ErrInvalidUTF8 = errors.New("request params contain invalid UTF-8")

// Params is the logical request-parameter mapping an entry is keyed on.
type Params map[string]any

// Canonicalize returns the canonical JSON encoding of params. Mapping keys
// are sorted at every depth; sequence order is kept. Values are first reduced
// to plain JSON data so that a struct and the equivalent map canonicalize the
// same way. Strings that are not valid UTF-8 are rejected.
func Canonicalize(params Params) ([]byte, error) {
	if err := checkUTF8(reflect.ValueOf(params)); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding request params: %w", err)
	}
	var plain any
	if err := decodeNumbers(raw, &plain); err != nil {
		return nil, fmt.Errorf("decoding request params: %w", err)
	}
	// encoding/json writes map keys in sorted order.
	out, err := json.Marshal(plain)
	if err != nil {
		return nil, fmt.Errorf("encoding canonical params: %w", err)
	}
	return out, nil
}

// Fingerprint returns the lowercase hex SHA-256 digest of the canonical form
// of params.
func Fingerprint(params Params) (string, error) {
	canonical, err := Canonicalize(params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}

func checkUTF8(v reflect.Value) error {
	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return fmt.Errorf("%w: %q", ErrInvalidUTF8, v.String())
		}
	case reflect.Interface, reflect.Pointer:
		if !v.IsNil() {
			return checkUTF8(v.Elem())
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkUTF8(iter.Key()); err != nil {
				return err
			}
			if err := checkUTF8(iter.Value()); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		// Byte slices encode as base64, which is lossless.
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkUTF8(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				if err := checkUTF8(v.Field(i)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
