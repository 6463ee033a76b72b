package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a civil calendar date with no time zone attached. Stored dates are
// abstract calendar days, so weekday and day arithmetic never consult a clock
// or a location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a normalized Date (e.g. Feb 30 becomes Mar 1 or 2)
func NewDate(year int, month time.Month, day int) Date {
	return DateFromDays(daysFromCivil(year, month, day))
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf returns the calendar date of instant t as observed in loc
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// DateFromDays converts a day number (days since 1970-01-01) back to a Date
func DateFromDays(days int) Date {
	// Howard Hinnant's civil_from_days
	z := days + 719468
	era := z
	if z < 0 {
		era = z - 146096
	}
	era /= 146097
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d := doy - (153*mp+2)/5 + 1
	m := mp + 3
	if mp >= 10 {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return Date{Year: y, Month: time.Month(m), Day: d}
}

func daysFromCivil(year int, month time.Month, day int) int {
	// Normalize out-of-range months first so NewDate(2026, 13, 1) works
	m := int(month) - 1
	year += m / 12
	m %= 12
	if m < 0 {
		m += 12
		year--
	}
	mm := m + 1

	y := year
	if mm <= 2 {
		y--
	}
	era := y
	if y < 0 {
		era = y - 399
	}
	era /= 400
	yoe := y - era*400
	mp := (mm + 9) % 12
	doy := (153*mp+2)/5 + day - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

// Days returns the number of days since 1970-01-01
func (d Date) Days() int {
	return daysFromCivil(d.Year, d.Month, d.Day)
}

// Weekday returns the day of week; 1970-01-01 was a Thursday
func (d Date) Weekday() time.Weekday {
	w := (d.Days() + 4) % 7
	if w < 0 {
		w += 7
	}
	return time.Weekday(w)
}

func (d Date) AddDays(n int) Date {
	return DateFromDays(d.Days() + n)
}

// DaysUntil returns other - d in days
func (d Date) DaysUntil(other Date) int {
	return other.Days() - d.Days()
}

func (d Date) Before(other Date) bool { return d.Days() < other.Days() }
func (d Date) After(other Date) bool  { return d.Days() > other.Days() }
func (d Date) Equal(other Date) bool  { return d.Days() == other.Days() }

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// WeekStart returns the Monday of the ISO week containing d
func (d Date) WeekStart() Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

func (d Date) MonthStart() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

func (d Date) MonthEnd() Date {
	return NewDate(d.Year, d.Month+1, 1).AddDays(-1)
}

// DaysInMonth returns the length of the given month
func DaysInMonth(year int, month time.Month) int {
	return NewDate(year, month+1, 1).AddDays(-1).Day
}

// SameMonthDay reports whether both dates fall on the same month and day, ignoring the year
func (d Date) SameMonthDay(other Date) bool {
	return d.Month == other.Month && d.Day == other.Day
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (Date) GormDataType() string { return "string" }

// Value stores the date as YYYY-MM-DD text so range comparisons stay lexical
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan accepts the text form as well as driver-parsed time values
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case time.Time:
		*d = Date{Year: v.Year(), Month: v.Month(), Day: v.Day()}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
}

func (d *Date) scanString(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal(nil)
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.scanString(s)
}

// Clock is a wall-clock time of day in minutes since midnight. 24:00 is a
// valid end bound.
type Clock int

const EndOfDay Clock = 24 * 60

// ParseClock parses an "HH:MM" string
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return Clock(h*60 + m), nil
}

// MustClock is for literals in seeds and tests
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

func (c Clock) Valid() bool {
	return c >= 0 && c <= EndOfDay
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (Clock) GormDataType() string { return "string" }

// Value stores "HH:MM"; zero-padded text compares in clock order
func (c Clock) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c *Clock) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		*c = Clock(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Clock", value)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Window is a half-open [Start, End) interval of wall-clock time
type Window struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Overlaps uses half-open comparison: [a,b) and [c,d) overlap iff a < d and c < b
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && other.Start < w.End
}

// Contains reports whether other lies fully inside w
func (w Window) Contains(other Window) bool {
	return w.Start <= other.Start && other.End <= w.End
}

func (w Window) Minutes() int {
	return int(w.End - w.Start)
}
