package models

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is the canonical numeric identifier used by every record.
// The remote store may send ids as numbers or as numeric strings; both decode to the same ID.
type ID int64

// ParseID converts a transport value ("7", "7.0", " 7 ") into an ID.
func ParseID(raw string) (ID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return ID(f), nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// UnmarshalJSON accepts 7, "7" and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("invalid id %s: %w", data, err)
		}
		data = []byte(unquoted)
	}
	parsed, err := ParseID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
