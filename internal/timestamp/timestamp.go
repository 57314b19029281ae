// Package timestamp turns the timestamp encodings found in XRGI event logs and
// telemetry payloads into time.Time values.
package timestamp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Placeholder is rendered instead of a time that could not be parsed.
const Placeholder = "Invalid Date"

// DisplayLayout is DD-MM-YYYY HH:MM in 24-hour time.
const DisplayLayout = "02-01-2006 15:04"

// Values below this are unix seconds, values at or above it unix milliseconds.
const millisThreshold = 1_000_000_000_000

// Far beyond any plausible reading; keeps the float to int64 conversion in range.
const maxMillis = 1e15

var ErrParseFailure = errors.New("unparseable timestamp")

type kind int

const (
	kindNone kind = iota
	kindNumber
	kindString
)

// RawTimestamp is an untyped timestamp as it arrives from upstream: a unix
// seconds or millis number, an ISO-8601 string, or a locale string such as
// "19.09.2025, 14:30".
type RawTimestamp struct {
	kind kind
	num  float64
	str  string
}

func FromNumber(v float64) RawTimestamp {
	return RawTimestamp{kind: kindNumber, num: v}
}

func FromString(s string) RawTimestamp {
	return RawTimestamp{kind: kindString, str: s}
}

// FromAny wraps a decoded JSON value. Anything other than a number or a
// string produces an empty RawTimestamp, which never parses.
func FromAny(v any) RawTimestamp {
	switch val := v.(type) {
	case float64:
		return FromNumber(val)
	case int:
		return FromNumber(float64(val))
	case int64:
		return FromNumber(float64(val))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return RawTimestamp{}
		}
		return FromNumber(f)
	case string:
		return FromString(val)
	default:
		return RawTimestamp{}
	}
}

func (r RawTimestamp) IsZero() bool {
	return r.kind == kindNone
}

func (r RawTimestamp) String() string {
	switch r.kind {
	case kindNumber:
		return strconv.FormatFloat(r.num, 'f', -1, 64)
	case kindString:
		return r.str
	default:
		return ""
	}
}

func (r *RawTimestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = RawTimestamp{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to decode timestamp string: %w", err)
		}
		*r = FromString(s)
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("failed to decode timestamp number: %w", err)
	}
	*r = FromNumber(f)
	return nil
}

func (r RawTimestamp) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case kindNumber:
		return []byte(strconv.FormatFloat(r.num, 'f', -1, 64)), nil
	case kindString:
		return json.Marshal(r.str)
	default:
		return []byte("null"), nil
	}
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Tried after "." became "-" and "," was removed.
var genericLayouts = []string{
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"02-01-2006",
	"2-1-2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

type Normalizer struct {
	loc *time.Location
}

// New returns a Normalizer that interprets zone-less strings in loc.
// A nil loc means UTC.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

var defaultNormalizer = New(time.UTC)

func Normalize(raw RawTimestamp) (time.Time, error) {
	return defaultNormalizer.Normalize(raw)
}

func Format(raw RawTimestamp) string {
	return defaultNormalizer.Format(raw)
}

func (n *Normalizer) Location() *time.Location {
	return n.loc
}

func (n *Normalizer) Normalize(raw RawTimestamp) (time.Time, error) {
	switch raw.kind {
	case kindNumber:
		return n.fromNumber(raw.num)
	case kindString:
		return n.fromString(raw.str)
	default:
		return time.Time{}, ErrParseFailure
	}
}

// Format renders raw as DD-MM-YYYY HH:MM, or Placeholder when it does not parse.
func (n *Normalizer) Format(raw RawTimestamp) string {
	t, err := n.Normalize(raw)
	if err != nil {
		return Placeholder
	}
	return n.FormatTime(t)
}

func (n *Normalizer) FormatTime(t time.Time) string {
	return t.In(n.loc).Format(DisplayLayout)
}

func (n *Normalizer) fromNumber(v float64) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, ErrParseFailure
	}

	var ms float64
	if v < millisThreshold {
		ms = math.Round(v * 1000)
	} else {
		ms = math.Round(v)
	}
	if math.Abs(ms) > maxMillis {
		return time.Time{}, ErrParseFailure
	}

	return time.UnixMilli(int64(ms)).In(n.loc), nil
}

func (n *Normalizer) fromString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrParseFailure
	}

	if strings.Contains(s, "T") || isoDate.MatchString(s) {
		return n.parseLayouts(s, isoLayouts)
	}

	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), " ")

	return n.parseLayouts(s, genericLayouts)
}

func (n *Normalizer) parseLayouts(s string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrParseFailure, s)
}
