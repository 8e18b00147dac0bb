package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Allotments maps a session category ("SPA", "Jacuzzi", ...) to the number
// of sessions granted. Stored as a JSON object.
type Allotments map[string]int

func (a Allotments) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]int(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Allotments) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("allotments: type assertion to []byte failed")
	}
	if len(b) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(b, (*map[string]int)(a))
}
