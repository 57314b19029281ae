// Package reports groups service reports by month for the report list.
package reports

import (
	"sort"
	"time"

	"github.com/speedwagon-io/xrgimon/internal/timestamp"
)

const monthLayout = "01-2006"

type Report struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	CreatedAt timestamp.RawTimestamp `json:"createdAt"`
}

type Group struct {
	Month   time.Time `json:"month"`
	Label   string    `json:"label"`
	Reports []Report  `json:"reports"`
}

// DisplayMonth is the month a report is listed under: always the calendar
// month before createdAt. Only used for the service report list.
func DisplayMonth(createdAt time.Time) time.Time {
	first := time.Date(createdAt.Year(), createdAt.Month(), 1, 0, 0, 0, 0, createdAt.Location())
	return first.AddDate(0, -1, 0)
}

// GroupByMonth returns newest month first, keeping input order inside a
// month. Reports with an unreadable createdAt go into a trailing group
// labelled timestamp.Placeholder.
func GroupByMonth(list []Report, norm *timestamp.Normalizer) []Group {
	if norm == nil {
		norm = timestamp.New(nil)
	}

	index := make(map[time.Time]int)
	var groups []Group
	var invalid []Report

	for _, r := range list {
		created, err := norm.Normalize(r.CreatedAt)
		if err != nil {
			invalid = append(invalid, r)
			continue
		}

		month := DisplayMonth(created.In(norm.Location()))
		i, ok := index[month]
		if !ok {
			i = len(groups)
			index[month] = i
			groups = append(groups, Group{Month: month, Label: month.Format(monthLayout)})
		}
		groups[i].Reports = append(groups[i].Reports, r)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Month.After(groups[j].Month)
	})

	if len(invalid) > 0 {
		groups = append(groups, Group{Label: timestamp.Placeholder, Reports: invalid})
	}

	return groups
}
