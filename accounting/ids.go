package accounting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// IDOf normalises an id reference to its string form. It accepts raw strings,
// uuid values, pointers to either, fmt.Stringers, numbers and embedded
// objects carrying "_id" or "id". Anything it cannot read yields "".
func IDOf(x any) string {
	switch v := x.(type) {
	case nil:
		return ""
	case string:
		return normalizeID(v)
	case Ref:
		return normalizeID(string(v))
	case uuid.UUID:
		if v == uuid.Nil {
			return ""
		}
		return v.String()
	case *uuid.UUID:
		if v == nil || *v == uuid.Nil {
			return ""
		}
		return v.String()
	case map[string]any:
		if id, ok := v["_id"]; ok {
			return IDOf(id)
		}
		if id, ok := v["id"]; ok {
			return IDOf(id)
		}
		return ""
	case json.RawMessage:
		var r Ref
		if err := json.Unmarshal(v, &r); err != nil {
			return ""
		}
		return string(r)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return formatNumber(v)
	}

	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return IDOf(rv.Elem().Interface())
	}
	if s, ok := x.(fmt.Stringer); ok {
		return normalizeID(s.String())
	}
	return ""
}

// SameID reports whether a and b reference the same record. Two unreadable
// ids never match.
func SameID(a, b any) bool {
	ida := IDOf(a)
	return ida != "" && ida == IDOf(b)
}

func normalizeID(s string) string {
	s = strings.TrimSpace(s)
	if u, err := uuid.Parse(s); err == nil {
		if u == uuid.Nil {
			return ""
		}
		return u.String()
	}
	return s
}

func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Ref is an id that may arrive on the wire either as a raw value or as an
// embedded object such as {"_id": "..."} or {"id": "..."}.
type Ref string

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Ref(IDOf(raw))
	return nil
}

func (r Ref) String() string { return string(r) }

// UUID parses the reference as a uuid.
func (r Ref) UUID() (uuid.UUID, error) {
	if r == "" {
		return uuid.Nil, fmt.Errorf("empty reference")
	}
	return uuid.Parse(string(r))
}
