package query

import (
	"strconv"
	"strings"

	"keuangan/internal/clock"
	"keuangan/internal/core"
)

// Period names understood in QueryFilters.Period.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodThisWeek  = "this_week"
	PeriodLastWeek  = "last_week"
	PeriodThisMonth = "this_month"
	PeriodLastMonth = "last_month"
	PeriodThisYear  = "this_year"
	PeriodMonth     = "month"
)

var periodAliases = map[string]string{
	"hari_ini":       PeriodToday,
	"kemarin":        PeriodYesterday,
	"current_week":   PeriodThisWeek,
	"week":           PeriodThisWeek,
	"minggu_ini":     PeriodThisWeek,
	"pekan_ini":      PeriodThisWeek,
	"previous_week":  PeriodLastWeek,
	"minggu_lalu":    PeriodLastWeek,
	"pekan_lalu":     PeriodLastWeek,
	"current_month":  PeriodThisMonth,
	"bulan_ini":      PeriodThisMonth,
	"previous_month": PeriodLastMonth,
	"bulan_lalu":     PeriodLastMonth,
	"current_year":   PeriodThisYear,
	"year":           PeriodThisYear,
	"tahun_ini":      PeriodThisYear,
	"specific_month": PeriodMonth,
}

// NormalizePeriod maps a period name onto one of the Period constants,
// accepting case, space and hyphen variants and Indonesian names. The empty
// period is valid and stays empty. ok is false for anything unrecognized.
func NormalizePeriod(p string) (period string, ok bool) {
	key := strings.ToLower(strings.Join(strings.FieldsFunc(p, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_"))
	switch key {
	case "", PeriodToday, PeriodYesterday, PeriodThisWeek, PeriodLastWeek,
		PeriodThisMonth, PeriodLastMonth, PeriodThisYear, PeriodMonth:
		return key, true
	}
	if alias, found := periodAliases[key]; found {
		return alias, true
	}
	return "", false
}

// Window is a half-open range of calendar days [Start, End).
type Window struct {
	Start core.Date
	End   core.Date
	Label string
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d core.Date) bool {
	if d.IsEmpty() {
		return false
	}
	return !d.Before(w.Start.Time) && d.Before(w.End.Time)
}

func addDays(d core.Date, n int) core.Date {
	return core.Date{Time: d.AddDate(0, 0, n)}
}

func monthStart(year, month int) core.Date {
	return core.NewDate(year, month, 1)
}

// WeekStart returns the Monday on or before d.
func WeekStart(d core.Date) core.Date {
	offset := (int(d.Weekday()) + 6) % 7
	return addDays(d, -offset)
}

// ResolveWindow turns filters into a date window. ok is false when the
// filters carry no time restriction or an unrecognized period.
func ResolveWindow(f core.QueryFilters, now clock.Info) (w Window, ok bool) {
	today := now.Today()
	period, known := NormalizePeriod(f.Period)
	if !known {
		return Window{}, false
	}
	if period == "" && (f.Month != 0 || f.Year != 0) {
		period = PeriodMonth
	}

	switch period {
	case PeriodToday:
		return Window{today, addDays(today, 1), "Hari ini"}, true
	case PeriodYesterday:
		return Window{addDays(today, -1), today, "Kemarin"}, true
	case PeriodThisWeek:
		start := WeekStart(today)
		return Window{start, addDays(start, 7), "Minggu ini"}, true
	case PeriodLastWeek:
		start := WeekStart(today)
		return Window{addDays(start, -7), start, "Minggu lalu"}, true
	case PeriodThisMonth:
		start := monthStart(now.Year, now.Month)
		return Window{start, core.Date{Time: start.AddDate(0, 1, 0)}, "Bulan ini"}, true
	case PeriodLastMonth:
		end := monthStart(now.Year, now.Month)
		return Window{core.Date{Time: end.AddDate(0, -1, 0)}, end, "Bulan lalu"}, true
	case PeriodThisYear:
		start := core.NewDate(now.Year, 1, 1)
		return Window{start, core.NewDate(now.Year+1, 1, 1), "Tahun ini"}, true
	case PeriodMonth:
		year := f.Year
		if year == 0 {
			year = now.Year
		}
		if f.Month == 0 && f.Year != 0 {
			return Window{core.NewDate(year, 1, 1), core.NewDate(year+1, 1, 1), "Tahun " + strconv.Itoa(year)}, true
		}
		month := f.Month
		if month < 1 || month > 12 {
			month = now.Month
		}
		start := monthStart(year, month)
		return Window{start, core.Date{Time: start.AddDate(0, 1, 0)}, clock.MonthName(month) + " " + strconv.Itoa(year)}, true
	}
	return Window{}, false
}
