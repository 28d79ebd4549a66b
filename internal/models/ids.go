package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"arthings/internal/apperr"
)

// Identifier prefixes used on the HTTP boundary. Internally every key is a
// plain integer.
const (
	ProductPrefix  = "prod-"
	UserPrefix     = "user-"
	RentalPrefix   = "rental-"
	FavoritePrefix = "fav-"
)

func FormatID(prefix string, id int) string {
	return prefix + strconv.Itoa(id)
}

// ParseID accepts both the prefixed ("prod-12") and the bare ("12") form.
func ParseID(raw, prefix string) (int, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), prefix)
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid %sID", idLabel(prefix))
	}
	return id, nil
}

func idLabel(prefix string) string {
	switch prefix {
	case ProductPrefix:
		return "product "
	case UserPrefix:
		return "user "
	case RentalPrefix:
		return "rental "
	case FavoritePrefix:
		return "favorite "
	}
	return ""
}

// RawID holds an identifier from a JSON body, given either as a string or a number.
type RawID string

func (r *RawID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = RawID(n.String())
	return nil
}

func (r RawID) Parse(prefix string) (int, error) {
	return ParseID(string(r), prefix)
}
