package classify

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ordinalSuffix strips "1st"/"2nd"/"3rd"/"4th" day ordinals, which the
// site mixes into some date renderings.
var ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)

// siteTimeLayouts covers the date renderings observed across the
// site's template generations.
var siteTimeLayouts = []string{
	"Jan 2, 2006 03:04 PM",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006, 03:04 PM",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// parseSiteTime parses a timestamp string in any of the site's known
// formats. Timestamps carry no zone marker; they are taken as UTC so a
// given page always yields the same instant.
func parseSiteTime(raw string) (time.Time, error) {
	cleaned := collapseText(ordinalSuffix.ReplaceAllString(raw, "$1"))
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	// Normalize lowercase meridiems ("am"/"pm") before layout matching.
	cleaned = strings.NewReplacer(" am", " AM", " pm", " PM").Replace(cleaned)
	for _, layout := range siteTimeLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
