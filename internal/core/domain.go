package core

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	IntentCommand         IntentKind = "COMMAND"
	IntentStructuredQuery IntentKind = "STRUCTURED_QUERY"
	IntentOpenQuestion    IntentKind = "OPEN_QUESTION"
	IntentNarration       IntentKind = "NARRATION"
)

const (
	ScopeAll  = "all"
	ScopeSelf = "self"
)

// DateLayout is the ISO 8601 calendar date layout used in the ledger.
const DateLayout = "2006-01-02"

type (
	IntentKind string

	Date struct {
		time.Time
	}

	// Transaction is one ledger row. ID is the 1-based row position in the
	// snapshot it was read from; Key is the durable identity assigned at append.
	Transaction struct {
		ID          int
		Key         string
		Date        Date
		Amount      Money
		Category    Category
		Description string
		OwnerID     string
		RecordedAt  time.Time
	}

	// RawTransaction is a transaction candidate as returned by the AI.
	// Any field may be missing or malformed.
	RawTransaction struct {
		Amount      *RawValue `json:"amount,omitempty"`
		Category    *string   `json:"category,omitempty"`
		Description *string   `json:"description,omitempty"`
		Date        *string   `json:"date,omitempty"`
	}

	// RawValue keeps the textual form of a JSON number or string.
	RawValue struct {
		Text   string
		Number bool
	}

	QueryFilters struct {
		Period    string `json:"period,omitempty"`
		Category  string `json:"category,omitempty"`
		Limit     int    `json:"limit,omitempty"`
		UserScope string `json:"user_scope,omitempty"`
		Month     int    `json:"month,omitempty"`
		Year      int    `json:"year,omitempty"`
	}

	QueryIntent struct {
		Kind       IntentKind    `json:"kind"`
		Confidence float64       `json:"confidence"`
		Filters    *QueryFilters `json:"filters,omitempty"`
	}

	// InboundEvent is a chat message delivered by a transport.
	InboundEvent struct {
		SenderID      string `json:"sender_id"`
		Body          string `json:"body"`
		HasMedia      bool   `json:"has_media"`
		Media         []byte `json:"media_base64,omitempty"`
		MediaMIMEType string `json:"media_mime_type,omitempty"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyOwner      = errors.New("empty owner")
	ErrStorage         = errors.New("ledger storage fault")
	ErrExtraction      = errors.New("extraction failed")
	ErrUnknownIntent   = errors.New("unknown intent kind")
	ErrInvalidArgument = errors.New("invalid argument")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

var dateLayouts = []string{
	DateLayout,
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseDate accepts the ISO layout plus the day-first layouts users and
// receipts commonly carry.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrInvalidDate
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	if d.Year() < 1900 || d.Year() > 9999 {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(string(t.Category)) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// IsIncome reports whether the transaction adds money.
func (t Transaction) IsIncome() bool {
	return t.Amount.Sign() > 0
}

// RawText wraps a string value.
func RawText(s string) *RawValue {
	return &RawValue{Text: s}
}

// RawNumber wraps a JSON number literal.
func RawNumber(s string) *RawValue {
	return &RawValue{Text: s, Number: true}
}

// UnmarshalJSON accepts any JSON value; null leaves the value unset. Strings
// are unquoted, everything else keeps its literal text.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*v = RawValue{Text: str}
		return nil
	}
	var n json.Number
	*v = RawValue{Text: s, Number: json.Unmarshal(data, &n) == nil}
	return nil
}

func (v RawValue) String() string {
	return v.Text
}

// Valid reports whether k is one of the known intent kinds.
func (k IntentKind) Valid() bool {
	switch k {
	case IntentCommand, IntentStructuredQuery, IntentOpenQuestion, IntentNarration:
		return true
	}
	return false
}

// IsQuery reports whether the intent asks about existing data.
func (k IntentKind) IsQuery() bool {
	return k == IntentStructuredQuery || k == IntentOpenQuestion
}

// Validate checks kind and confidence bounds.
func (q QueryIntent) Validate() error {
	if !q.Kind.Valid() {
		return ErrUnknownIntent
	}
	if q.Confidence < 0 || q.Confidence > 1 {
		return errors.New("confidence out of range: " + strconv.FormatFloat(q.Confidence, 'f', -1, 64))
	}
	return nil
}

// FiltersOrEmpty never returns nil.
func (q QueryIntent) FiltersOrEmpty() QueryFilters {
	if q.Filters == nil {
		return QueryFilters{}
	}
	return *q.Filters
}

// IsEmpty reports whether no filter field is set.
func (f QueryFilters) IsEmpty() bool {
	return f.Period == "" && f.Category == "" && f.Limit <= 0 &&
		(f.UserScope == "" || f.UserScope == ScopeAll) && f.Month == 0 && f.Year == 0
}

// NormalizeSenderID strips transport suffixes like "@c.us".
func NormalizeSenderID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.IndexByte(id, '@'); i >= 0 {
		id = id[:i]
	}
	return id
}
