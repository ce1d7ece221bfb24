// Package tools contains the built-in tool implementations and their
// registration helpers.
package tools

import (
	"context"
	"time"

	"github.com/insightfinder/mcp-server-go/internal/tool"
)

// zonedTime is one timezone's rendering of the current instant.
type zonedTime struct {
	ISOFormat     string `json:"iso_format"`
	HumanReadable string `json:"human_readable"`
	DateOnly      string `json:"date_only"`
	TimeOnly      string `json:"time_only"`
	Timestamp     int64  `json:"timestamp"`
}

type currentTimeResult struct {
	CurrentUTC          string               `json:"current_utc"`
	CurrentUTCTimestamp int64                `json:"current_utc_timestamp"`
	FormattedTimes      map[string]zonedTime `json:"formatted_times"`
	RelativeTimes       map[string]int64     `json:"relative_times"`
}

type currentTimeArgs struct{}

// reportedZones are the timezones included alongside UTC in every
// get_current_datetime response.
var reportedZones = []string{"America/New_York", "America/Los_Angeles"}

// RegisterTime registers the get_current_datetime tool. The now
// function is injectable for tests; pass nil for the wall clock.
func RegisterTime(r *tool.Registry, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	return tool.RegisterTyped(r, "get_current_datetime",
		"Get the current date and time in UTC and common timezones, with relative timestamps for time-based queries.",
		func(ctx context.Context, _ currentTimeArgs) (any, error) {
			nowUTC := now().UTC()

			result := currentTimeResult{
				CurrentUTC:          nowUTC.Format(time.RFC3339Nano),
				CurrentUTCTimestamp: nowUTC.Unix(),
				FormattedTimes: map[string]zonedTime{
					"UTC": formatZoned(nowUTC),
				},
				RelativeTimes: map[string]int64{
					"1_hour_ago":     nowUTC.Add(-time.Hour).Unix(),
					"30_minutes_ago": nowUTC.Add(-30 * time.Minute).Unix(),
					"24_hours_ago":   nowUTC.Add(-24 * time.Hour).Unix(),
					"1_week_ago":     nowUTC.Add(-7 * 24 * time.Hour).Unix(),
				},
			}

			for _, name := range reportedZones {
				loc, err := time.LoadLocation(name)
				if err != nil {
					// Zone data unavailable on this host, skip it.
					continue
				}
				result.FormattedTimes[name] = formatZoned(nowUTC.In(loc))
			}
			return result, nil
		})
}

func formatZoned(t time.Time) zonedTime {
	return zonedTime{
		ISOFormat:     t.Format(time.RFC3339Nano),
		HumanReadable: t.Format("2006-01-02 15:04:05 MST"),
		DateOnly:      t.Format("2006-01-02"),
		TimeOnly:      t.Format("15:04:05"),
		Timestamp:     t.Unix(),
	}
}
