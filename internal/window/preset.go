package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/speedwagon-io/xrgimon/internal/timestamp"
)

type Kind int

const (
	Last7Days Kind = iota
	Last183Days
	Last365Days
	SinceFirstCall
	CalendarYear
	Custom
)

var kindNames = map[Kind]string{
	Last7Days:      "last7days",
	Last183Days:    "last183days",
	Last365Days:    "last365days",
	SinceFirstCall: "since_first_call",
	CalendarYear:   "year",
	Custom:         "custom",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Preset is the filter the user picked. Year is read only for CalendarYear,
// Start and End only for Custom.
type Preset struct {
	Kind  Kind
	Year  int
	Start time.Time
	End   time.Time
}

func Year(y int) Preset {
	return Preset{Kind: CalendarYear, Year: y}
}

func Range(start, end time.Time) Preset {
	return Preset{Kind: Custom, Start: start, End: end}
}

func (p Preset) String() string {
	switch p.Kind {
	case CalendarYear:
		return fmt.Sprintf("%s(%d)", p.Kind, p.Year)
	case Custom:
		return fmt.Sprintf("%s(%s..%s)", p.Kind, p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
	default:
		return p.Kind.String()
	}
}

// ParsePreset builds a Preset from query or flag text. Custom bounds accept
// any encoding the timestamp package understands and are read in loc.
func ParsePreset(name, year, start, end string, loc *time.Location) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "last7days", "7d":
		return Preset{Kind: Last7Days}, nil
	case "last183days", "183d":
		return Preset{Kind: Last183Days}, nil
	case "last365days", "365d":
		return Preset{Kind: Last365Days}, nil
	case "since_first_call", "all":
		return Preset{Kind: SinceFirstCall}, nil
	case "year":
		y, err := strconv.Atoi(strings.TrimSpace(year))
		if err != nil || y < 1 {
			return Preset{}, fmt.Errorf("%w: bad year %q", ErrInvalidWindow, year)
		}
		return Year(y), nil
	case "custom":
		norm := timestamp.New(loc)
		s, err := norm.Normalize(timestamp.FromString(start))
		if err != nil {
			return Preset{}, fmt.Errorf("%w: bad start %q", ErrInvalidWindow, start)
		}
		e, err := norm.Normalize(timestamp.FromString(end))
		if err != nil {
			return Preset{}, fmt.Errorf("%w: bad end %q", ErrInvalidWindow, end)
		}
		return Range(s, e), nil
	default:
		return Preset{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidWindow, name)
	}
}
