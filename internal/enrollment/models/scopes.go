package models

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Scopes maps a permission name to whether it is requested. Values are always
// canonical booleans in memory; coercion from the wire happens exactly once,
// in UnmarshalJSON / NormalizeScopes, so validation and persistence never see
// string-typed flags.
type Scopes map[string]bool

// NormalizeScopes coerces a loosely typed scope map (form submissions deliver
// textual "true"/"false") into canonical booleans. Unrecognized values count
// as false.
func NormalizeScopes(raw map[string]any) Scopes {
	if raw == nil {
		return nil
	}
	out := make(Scopes, len(raw))
	for name, v := range raw {
		out[name] = coerceBool(v)
	}
	return out
}

func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(t)
		return err == nil && b
	default:
		return false
	}
}

// UnmarshalJSON accepts both boolean and string-typed values.
func (s *Scopes) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NormalizeScopes(raw)
	return nil
}

// GrantedNames returns the sorted names of scopes whose value is true. This is
// the list sent to the token manager on registration.
func (s Scopes) GrantedNames() []string {
	names := make([]string, 0, len(s))
	for name, granted := range s {
		if granted {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
