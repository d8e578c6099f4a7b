package clock

import (
	"fmt"
	"strings"
	"time"

	"keuangan/internal/core"
)

// DefaultZone is the zone every "now" is expressed in.
const DefaultZone = "Asia/Jakarta"

var (
	weekdayNames = [...]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}
	monthNames   = [...]string{
		"Januari", "Februari", "Maret", "April", "Mei", "Juni",
		"Juli", "Agustus", "September", "Oktober", "November", "Desember",
	}
)

// Info is a resolved "now". It is passed explicitly to every operation that
// needs the current date instead of reading a global clock.
type Info struct {
	Now       time.Time
	Timezone  string
	Date      string // YYYY-MM-DD
	Time      string // HH:MM:SS
	Weekday   string
	MonthName string
	Month     int
	Year      int
	Fallback  bool
}

// FromTime builds an Info for t in t's location.
func FromTime(t time.Time, fallback bool) Info {
	return Info{
		Now:       t,
		Timezone:  t.Location().String(),
		Date:      t.Format(core.DateLayout),
		Time:      t.Format("15:04:05"),
		Weekday:   WeekdayName(t.Weekday()),
		MonthName: MonthName(int(t.Month())),
		Month:     int(t.Month()),
		Year:      t.Year(),
		Fallback:  fallback,
	}
}

// Fixed returns a non-fallback Info for t. Used by tests and the CLI.
func Fixed(t time.Time) Info {
	return FromTime(t, false)
}

// Today is the calendar day of Now.
func (i Info) Today() core.Date {
	return core.DateOf(i.Now)
}

// WeekdayName returns the Indonesian weekday name.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

// MonthName returns the Indonesian month name for 1-12.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return fmt.Sprintf("%d", m)
	}
	return monthNames[m-1]
}

// ParseMonthName maps an Indonesian month name or its three-letter
// abbreviation ("maret", "Agu") onto 1-12, case-insensitively.
func ParseMonthName(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for i, name := range monthNames {
		lower := strings.ToLower(name)
		if s == lower || s == lower[:3] {
			return i + 1, true
		}
	}
	return 0, false
}

// PromptContext renders the time block prepended to AI prompts.
func (i Info) PromptContext() string {
	var b strings.Builder
	fmt.Fprintf(&b, "INFORMASI WAKTU SAAT INI (%s):\n", i.Timezone)
	fmt.Fprintf(&b, "- Tanggal dan Waktu: %s\n", i.Now.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Hari: %s\n", i.Weekday)
	fmt.Fprintf(&b, "- Tanggal: %s\n", i.Date)
	fmt.Fprintf(&b, "- Jam: %s\n", i.Time)
	fmt.Fprintf(&b, "- Bulan: %s\n", i.MonthName)
	fmt.Fprintf(&b, "- Tahun: %d\n", i.Year)
	if i.Fallback {
		b.WriteString("(Menggunakan waktu fallback)\n")
	}
	b.WriteString("\nGunakan informasi ini untuk memahami konteks waktu \"hari ini\", \"kemarin\", \"besok\", dll dalam pesan pengguna.")
	return b.String()
}
