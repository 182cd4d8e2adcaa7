package message

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Field aliases in priority order. The first alias present in a record wins.
var (
	authorFields    = []string{"username", "user"}
	textFields      = []string{"text", "msg"}
	timestampFields = []string{"created_at", "time", "ts"}
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Normalize maps a raw JSON record onto a Message. room is the room the record
// arrived for; a "room" field inside the record takes precedence. Records
// without a usable timestamp are stamped with receivedAt.
func Normalize(raw []byte, room string, receivedAt time.Time) (Message, error) {
	if !gjson.ValidBytes(raw) {
		return Message{}, &NormalizationError{Reason: "invalid json"}
	}
	record := gjson.ParseBytes(raw)
	if !record.IsObject() {
		return Message{}, &NormalizationError{Reason: "record is not an object"}
	}

	author, err := stringField(record, "author", authorFields)
	if err != nil {
		return Message{}, err
	}
	if strings.TrimSpace(author) == "" {
		return Message{}, &NormalizationError{Field: "author", Reason: "empty"}
	}

	text, err := stringField(record, "text", textFields)
	if err != nil {
		return Message{}, err
	}

	if r := record.Get("room"); r.Type == gjson.String && r.Str != "" {
		room = r.Str
	}

	createdAt, ok := timestamp(record)
	if !ok {
		createdAt = receivedAt.UTC()
	}

	id := serverID(record)
	if id == "" {
		id = DeriveID(room, author, text, createdAt)
	}

	return Message{
		ID:        id,
		Room:      room,
		Author:    author,
		Text:      text,
		CreatedAt: createdAt,
	}, nil
}

func stringField(record gjson.Result, name string, aliases []string) (string, error) {
	for _, alias := range aliases {
		r := record.Get(alias)
		if !r.Exists() {
			continue
		}
		if r.Type != gjson.String {
			return "", &NormalizationError{Field: name, Reason: alias + " is not a string"}
		}
		return r.Str, nil
	}
	return "", &NormalizationError{Field: name, Reason: "missing"}
}

func timestamp(record gjson.Result) (time.Time, bool) {
	for _, alias := range timestampFields {
		r := record.Get(alias)
		switch r.Type {
		case gjson.String:
			if t, ok := parseTime(r.Str); ok {
				return t, true
			}
		case gjson.Number:
			if t, ok := unixTime(r.Float()); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil && !t.IsZero() {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// maxUnix bounds numeric timestamps so the int64 conversion cannot overflow.
const maxUnix = 1e15

func unixTime(v float64) (time.Time, bool) {
	if v <= 0 || v >= maxUnix {
		return time.Time{}, false
	}
	var t time.Time
	if v > 1e12 {
		t = time.UnixMilli(int64(v)).UTC()
	} else {
		sec := int64(v)
		nsec := int64((v - float64(sec)) * 1e9)
		t = time.Unix(sec, nsec).UTC()
	}
	if t.Year() > 9999 {
		return time.Time{}, false
	}
	return t, true
}

func serverID(record gjson.Result) string {
	r := record.Get("id")
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str)
	case gjson.Number:
		if n := r.Int(); n > 0 {
			return strconv.FormatInt(n, 10)
		}
	}
	return ""
}
