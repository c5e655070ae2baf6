package action

// Result is the map every handler returns. It always carries "success";
// failures add "error" or "message", successes add identifiers or lists.
type Result map[string]any

// OK builds a successful result from alternating key/value pairs.
func OK(kv ...any) Result {
	r := Result{"success": true}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		r[key] = kv[i+1]
	}
	return r
}

// Fail builds a rejection carrying an error string.
func Fail(err string) Result {
	return Result{"success": false, "error": err}
}

// Notice builds a non-error failure carrying a message, used for empty
// search, trend and feed results.
func Notice(msg string) Result {
	return Result{"success": false, "message": msg}
}

// Success reports the "success" flag.
func (r Result) Success() bool {
	ok, _ := r["success"].(bool)
	return ok
}

// Error returns the "error" string, if any.
func (r Result) Error() string {
	s, _ := r["error"].(string)
	return s
}

// Message returns the "message" string, if any.
func (r Result) Message() string {
	s, _ := r["message"].(string)
	return s
}

// Int returns an integer field. JSON-decoded numbers arrive as float64.
func (r Result) Int(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
