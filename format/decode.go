package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// errNotObject is returned when a record is valid JSON but not an object.
var errNotObject = errors.New("expected a JSON object")

// shape lists the fields a record must carry, and the nested objects whose
// own fields must be checked. A field that is absent or null is missing.
type shape struct {
	required []string
	nested   map[string]shape
}

func (s shape) check(obj map[string]json.RawMessage, path string) error {
	for _, key := range s.required {
		raw, ok := obj[key]
		if !ok || isNull(raw) {
			return fmt.Errorf("missing field %q", join(path, key))
		}
	}
	for key, sub := range s.nested {
		raw, ok := obj[key]
		if !ok || isNull(raw) {
			continue
		}
		child, err := parseObject(raw)
		if err != nil {
			return fmt.Errorf("field %q: %w", join(path, key), err)
		}
		if err := sub.check(child, join(path, key)); err != nil {
			return err
		}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// parseObject splits one JSON object into its top-level fields.
func parseObject(data []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNotObject
	}
	return obj, nil
}

// stringField reads an optional string discriminator from obj.
func stringField(obj map[string]json.RawMessage, key string) (string, error) {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %q: %w", key, err)
	}
	return s, nil
}

// decodeVariant decodes obj, minus its discriminator keys, into v.
// In strict mode any field v does not declare is an error, at any depth.
func decodeVariant(obj map[string]json.RawMessage, s shape, strict bool, v any, discriminators ...string) error {
	if err := s.check(obj, ""); err != nil {
		return err
	}
	body := make(map[string]json.RawMessage, len(obj))
	for k, raw := range obj {
		body[k] = raw
	}
	for _, k := range discriminators {
		delete(body, k)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(v)
}

// encodeTagged marshals v and prepends the discriminator pairs to the
// resulting object. pairs alternates key and value.
func encodeTagged(v any, pairs ...string) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("cannot tag non-object encoding of %T", v)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(pairs[i]))
		buf.WriteByte(':')
		buf.WriteString(strconv.Quote(pairs[i+1]))
	}
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
