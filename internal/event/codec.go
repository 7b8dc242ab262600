package event

import (
	"time"
)

// Document field layouts shared with every storage backend. Field names must
// stay stable: documents already written with them are read back by the same
// codec.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	timeShortLayout = "15:04"
	createdAtLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Decode converts a stored document into an Event. It never fails on
// malformed fields: strings of the wrong type become empty strings, and an
// unparsable date or time is replaced with the current one. A nil or empty
// document is reported as absent via ok=false.
func Decode(doc map[string]any) (Event, bool) {
	if len(doc) == 0 {
		return Event{}, false
	}
	now := time.Now()
	return Event{
		ID:             docString(doc, "id"),
		Title:          docString(doc, "title"),
		Description:    docString(doc, "description"),
		Date:           decodeDate(doc["date"], now),
		Time:           decodeTime(doc["time"], now),
		CreatedAt:      decodeCreatedAt(doc["createdAt"], now),
		Location:       docString(doc, "location"),
		Category:       docString(doc, "category"),
		PhotoURL:       docString(doc, "photoUrl"),
		UserProfileURL: docString(doc, "userProfileUrl"),
	}, true
}

// Encode converts an Event into its document form. Absent optional URLs are
// written as empty strings, not omitted. CreatedAt is passed through as-is;
// a zero CreatedAt is the "assign at write time" sentinel resolved by the
// storage backend.
func Encode(e Event) map[string]any {
	return map[string]any{
		"id":             e.ID,
		"title":          e.Title,
		"description":    e.Description,
		"date":           e.Date.Format(DateLayout),
		"time":           e.Time.Format(TimeLayout),
		"createdAt":      e.CreatedAt,
		"location":       e.Location,
		"category":       e.Category,
		"photoUrl":       e.PhotoURL,
		"userProfileUrl": e.UserProfileURL,
	}
}

func docString(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

func decodeDate(v any, now time.Time) time.Time {
	if s, ok := v.(string); ok {
		if d, err := time.Parse(DateLayout, s); err == nil {
			return d
		}
	}
	return DateOf(now)
}

func decodeTime(v any, now time.Time) time.Time {
	if s, ok := v.(string); ok {
		if t, err := time.Parse(TimeLayout, s); err == nil {
			return t
		}
		if t, err := time.Parse(timeShortLayout, s); err == nil {
			return t
		}
	}
	return TimeOf(now)
}

// decodeCreatedAt accepts the three encodings found in already-stored
// documents: a native timestamp, an ISO-8601 string, and a unix-millisecond
// number. Anything else becomes "now at decode time".
func decodeCreatedAt(v any, now time.Time) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if ts, err := time.Parse(createdAtLayout, t); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts
		}
	case int64:
		return time.UnixMilli(t).UTC()
	case float64:
		return time.UnixMilli(int64(t)).UTC()
	}
	return now
}
