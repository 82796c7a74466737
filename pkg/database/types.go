package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray stores a []string column portably: written as a JSON
// array, readable from JSON (MySQL, SQLite) and from the native
// {a,b,c} literal Postgres may hand back for text[] columns.
type StringArray []string

// Value implements driver.Valuer. Always writes JSON.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (a *StringArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}

	var raw string
	switch v := src.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("StringArray: cannot scan %T", src)
	}

	switch {
	case strings.HasPrefix(raw, "["):
		return json.Unmarshal([]byte(raw), a)
	case strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}"):
		*a = splitPgArray(raw[1 : len(raw)-1])
		return nil
	case raw == "":
		*a = StringArray{}
		return nil
	default:
		*a = StringArray{raw}
		return nil
	}
}

// splitPgArray splits the inside of a Postgres array literal on commas
// outside double quotes, honoring backslash escapes.
func splitPgArray(body string) StringArray {
	if body == "" {
		return StringArray{}
	}

	var (
		out     StringArray
		elem    strings.Builder
		quoted  bool
		escaped bool
	)
	for _, r := range body {
		switch {
		case escaped:
			elem.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			out = append(out, elem.String())
			elem.Reset()
		default:
			elem.WriteRune(r)
		}
	}
	out = append(out, elem.String())
	return out
}

// GormDataType tells gorm to map the column as text.
func (StringArray) GormDataType() string {
	return "text"
}
