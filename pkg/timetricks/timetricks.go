package timetricks

import (
	"strconv"
	"strings"
	"time"
)

const (
	isoFormat     = "2006-01-02"
	serviceFormat = "02/01/2006"
)

// ToDDMMYYYY rewrites an ISO YYYY-MM-DD date as DD/MM/YYYY by reordering its
// fields. There is no calendar validation and no timezone adjustment. Input
// that does not have three dash-separated fields yields an empty string.
func ToDDMMYYYY(iso string) string {
	if iso == "" {
		return ""
	}
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return ""
	}
	y, m, d := parts[0], parts[1], parts[2]
	return d + "/" + m + "/" + y
}

// ParseISO parses a YYYY-MM-DD date as midnight UTC.
func ParseISO(s string) (time.Time, error) {
	return time.Parse(isoFormat, s)
}

// FormatService formats t the way the prediction service expects dates.
func FormatService(t time.Time) string {
	return t.Format(serviceFormat)
}

// SameDay reports whether two times fall on the same calendar date.
func SameDay(t time.Time, t2 time.Time) bool {
	return t.Format(isoFormat) == t2.Format(isoFormat)
}

// Hyphenate replaces the slashes of a DD/MM/YYYY date so it can be embedded in
// a file name.
func Hyphenate(date string) string {
	return strings.ReplaceAll(date, "/", "-")
}

// CacheBust returns a value that changes every millisecond, for use as a
// throwaway query parameter.
func CacheBust(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
