package domain

import (
	"encoding/json"
	"fmt"
)

// ID is a server-assigned identifier. The upstream API emits identifiers as
// either JSON strings or JSON numbers depending on the storage backend, so
// the type normalizes both to their string form; equality is by value.
type ID string

// UnmarshalJSON accepts a JSON string, number, or null (empty ID).
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// IsZero reports whether the identifier is absent.
func (id ID) IsZero() bool {
	return id == ""
}

func (id ID) String() string {
	return string(id)
}
