package timeutil

import "time"

// Stored timestamps are always UTC RFC3339 strings. Naive user input is
// interpreted in the app timezone before conversion.

func NowUTC() time.Time {
	return time.Now().UTC()
}

// FormatUTC renders t as an RFC3339 UTC string with a trailing Z.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseUTC parses an RFC3339 string and normalizes it to UTC.
func ParseUTC(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// AppLocation resolves an IANA timezone name, falling back to UTC on an
// unknown name so a bad APP_TIMEZONE never takes the app down.
func AppLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseLocal parses a "2006-01-02T15:04" form input without a zone,
// interprets it in loc and returns the UTC instant. Full RFC3339 input
// is accepted as-is.
func ParseLocal(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
