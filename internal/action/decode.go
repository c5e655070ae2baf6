package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Decode builds the command named by name from a JSON payload.
//
// The payload is an object whose keys match the command's fields
// (for example {"post_id": 3}). An empty or null payload yields the zero
// command. For single-field commands a bare scalar is also accepted, so
// {"post_id": 3} and 3 decode the same way. Unknown keys are rejected.
func Decode(name string, raw json.RawMessage) (Command, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	ptr := registry[kind]()

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return deref(ptr), nil
	}

	if trimmed[0] != '{' {
		if err := decodeScalar(ptr, trimmed); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return deref(ptr), nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ptr); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return deref(ptr), nil
}

// decodeScalar fills the only field of a single-field command.
func decodeScalar(ptr Command, raw []byte) error {
	v := reflect.ValueOf(ptr).Elem()
	if v.NumField() != 1 {
		return fmt.Errorf("payload must be an object with %d fields", v.NumField())
	}
	return json.Unmarshal(raw, v.Field(0).Addr().Interface())
}

// deref converts the registry's pointer into the value form the platform
// switches on.
func deref(ptr Command) Command {
	return reflect.ValueOf(ptr).Elem().Interface().(Command)
}
