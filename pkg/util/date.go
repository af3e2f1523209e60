package util

import (
	"strings"
	"time"
)

var dateTpl = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
	"hh", "15",
	"mm", "04",
	"ss", "05",
)

// FormatDateTpl formats a Unix millisecond timestamp with a placeholder template.
//
// Supported placeholders: YYYY, YY, MM, DD, hh (00-23), mm, ss.
// Returns "" when ts == 0. Times are rendered in UTC.
//
//	FormatDateTpl(1699603200000, "YYYY-MM-DD hh:mm") // "2023-11-10 08:00"
func FormatDateTpl(ts int64, tpl string) string {
	if ts == 0 {
		return ""
	}
	return time.UnixMilli(ts).UTC().Format(dateTpl.Replace(tpl))
}
