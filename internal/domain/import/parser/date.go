package parser

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrDateOutOfRange = errors.New("date outside accepted range")
)

// Date order hints understood by the parser
const (
	HintDayFirst   = "DD/MM/YYYY"
	HintMonthFirst = "MM/DD/YYYY"
)

// DateOptions carries per-file context for date parsing
type DateOptions struct {
	Hint     string // HintDayFirst or HintMonthFirst
	Date1904 bool
}

// DateParser converts cell values into dates and rejects implausible results
type DateParser struct {
	Now         func() time.Time
	Location    *time.Location
	PastYears   int
	FutureYears int
}

// NewDateParser creates a parser accepting dates from ten years ago to one year ahead
func NewDateParser() *DateParser {
	return &DateParser{
		Now:         time.Now,
		Location:    time.UTC,
		PastYears:   10,
		FutureYears: 1,
	}
}

type datePattern struct {
	re                  *regexp.Regexp
	year, month, day    int // submatch positions
	twoDigitYearAllowed bool
}

var (
	patternDMYDot   = datePattern{re: regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4}|\d{2})$`), day: 1, month: 2, year: 3, twoDigitYearAllowed: true}
	patternDMYSlash = datePattern{re: regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})$`), day: 1, month: 2, year: 3, twoDigitYearAllowed: true}
	patternYMDDash  = datePattern{re: regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`), year: 1, month: 2, day: 3}
	patternDMYDash  = datePattern{re: regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`), day: 1, month: 2, year: 3}
	patternMDYSlash = datePattern{re: regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})$`), month: 1, day: 2, year: 3, twoDigitYearAllowed: true}
	patternYMDSlash = datePattern{re: regexp.MustCompile(`^(\d{4})[/.](\d{1,2})[/.](\d{1,2})$`), year: 1, month: 2, day: 3}

	dayFirstOrder   = []datePattern{patternDMYDot, patternDMYSlash, patternYMDDash, patternDMYDash, patternMDYSlash, patternYMDSlash}
	monthFirstOrder = []datePattern{patternDMYDot, patternMDYSlash, patternYMDDash, patternDMYDash, patternDMYSlash, patternYMDSlash}

	timeOfDayRe = regexp.MustCompile(`(?:^|[T\s])(\d{1,2}):(\d{2})(?::(\d{2}))?(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?\s*$`)
	serialRe    = regexp.MustCompile(`^\d{5}(?:[.,]\d+)?$`)
)

var generalLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"02 January 2006",
	"2-Jan-2006",
	"02-Jan-06",
	"20060102",
}

// Parse converts a cell into a date. The second return reports whether
// the value carried a time of day.
func (p *DateParser) Parse(c Cell, opts DateOptions) (time.Time, bool, error) {
	t, hasTime, err := p.parse(c, opts)
	if err != nil {
		return time.Time{}, false, err
	}
	if err := p.checkRange(t); err != nil {
		return time.Time{}, false, err
	}
	return t, hasTime, nil
}

func (p *DateParser) parse(c Cell, opts DateOptions) (time.Time, bool, error) {
	if c.Numeric {
		return p.fromSerial(c.Number, opts.Date1904)
	}

	s := strings.TrimSpace(c.Text)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}

	if serialRe.MatchString(s) {
		v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err == nil {
			return p.fromSerial(v, opts.Date1904)
		}
	}

	datePart := s
	var (
		clock   [3]int
		hasTime bool
	)
	if m := timeOfDayRe.FindStringSubmatchIndex(s); m != nil {
		h, _ := strconv.Atoi(s[m[2]:m[3]])
		mi, _ := strconv.Atoi(s[m[4]:m[5]])
		sec := 0
		if m[6] >= 0 {
			sec, _ = strconv.Atoi(s[m[6]:m[7]])
		}
		if h < 24 && mi < 60 && sec < 60 {
			clock = [3]int{h, mi, sec}
			hasTime = true
			datePart = strings.TrimRight(strings.TrimSpace(s[:m[0]]), ",T")
		}
	}

	order := dayFirstOrder
	if strings.EqualFold(opts.Hint, HintMonthFirst) {
		order = monthFirstOrder
	}
	for _, pat := range order {
		if d, ok := p.matchPattern(pat, datePart); ok {
			if hasTime {
				d = time.Date(d.Year(), d.Month(), d.Day(), clock[0], clock[1], clock[2], 0, p.location())
			}
			return d, hasTime, nil
		}
	}

	for _, layout := range generalLayouts {
		if t, err := time.ParseInLocation(layout, s, p.location()); err == nil {
			return t, strings.Contains(layout, "15"), nil
		}
	}

	return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// matchPattern returns a date only when the components form a real calendar day
func (p *DateParser) matchPattern(pat datePattern, s string) (time.Time, bool) {
	m := pat.re.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	year, _ := strconv.Atoi(m[pat.year])
	month, _ := strconv.Atoi(m[pat.month])
	day, _ := strconv.Atoi(m[pat.day])
	if len(m[pat.year]) == 2 {
		if !pat.twoDigitYearAllowed {
			return time.Time{}, false
		}
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.location())
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// fromSerial converts a spreadsheet serial number. Serials below 61 predate the
// fictitious 1900-02-29 and are counted from 1899-12-31.
func (p *DateParser) fromSerial(v float64, date1904 bool) (time.Time, bool, error) {
	if v <= 0 || v > 2958465 || math.IsNaN(v) {
		return time.Time{}, false, fmt.Errorf("%w: serial %v", ErrInvalidDate, v)
	}

	whole, frac := math.Modf(v)
	hasTime := frac > 1e-9

	var t time.Time
	if !date1904 && v < 61 {
		epoch := time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
		t = epoch.AddDate(0, 0, int(whole)).Add(time.Duration(math.Round(frac*86400)) * time.Second)
	} else {
		var err error
		t, err = excelize.ExcelDateToTime(v, date1904)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%w: serial %v: %v", ErrInvalidDate, v, err)
		}
	}

	t = t.Round(time.Second)
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, p.location())
	if !hasTime {
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.location())
	}
	return t, hasTime, nil
}

func (p *DateParser) checkRange(t time.Time) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	ref := now().In(p.location())
	earliest := ref.AddDate(-p.PastYears, 0, 0)
	latest := ref.AddDate(p.FutureYears, 0, 0)
	if t.Before(earliest) || t.After(latest) {
		return fmt.Errorf("%w: %s", ErrDateOutOfRange, t.Format("2006-01-02"))
	}
	return nil
}

func (p *DateParser) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}
