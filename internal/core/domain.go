package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Monthly BillingCycle = "monthly"
	Yearly  BillingCycle = "yearly"
)

// DateLayout is the ISO calendar-date layout used for renewal dates.
const DateLayout = "2006-01-02"

const maxNameLength = 200

type (
	BillingCycle string

	// Date is a calendar day. The time part is always UTC midnight.
	Date struct {
		time.Time
	}

	Subscription struct {
		ID            string       `json:"id"`
		Name          string       `json:"name"`
		Price         float64      `json:"price"`
		Currency      string       `json:"currency"`
		BillingCycle  BillingCycle `json:"billingCycle"`
		RenewalDate   Date         `json:"renewalDate"`
		Category      string       `json:"category"`
		PaymentMethod string       `json:"paymentMethod"`
		Notes         string       `json:"notes,omitempty"`
		IsActive      bool         `json:"isActive"`
		Color         string       `json:"color"`
		Icon          string       `json:"icon"`
		CreatedAt     time.Time    `json:"createdAt"`
		UpdatedAt     time.Time    `json:"updatedAt"`
	}

	// SubscriptionInput carries every Subscription field the caller may set on creation.
	// ID and timestamps are always assigned by the store.
	SubscriptionInput struct {
		Name          string       `json:"name"`
		Price         float64      `json:"price"`
		Currency      string       `json:"currency"`
		BillingCycle  BillingCycle `json:"billingCycle"`
		RenewalDate   Date         `json:"renewalDate"`
		Category      string       `json:"category"`
		PaymentMethod string       `json:"paymentMethod"`
		Notes         string       `json:"notes,omitempty"`
		IsActive      bool         `json:"isActive"`
		Color         string       `json:"color"`
		Icon          string       `json:"icon"`
	}

	// SubscriptionPatch is a partial update. Nil fields keep the current value.
	SubscriptionPatch struct {
		Name          *string       `json:"name,omitempty"`
		Price         *float64      `json:"price,omitempty"`
		Currency      *string       `json:"currency,omitempty"`
		BillingCycle  *BillingCycle `json:"billingCycle,omitempty"`
		RenewalDate   *Date         `json:"renewalDate,omitempty"`
		Category      *string       `json:"category,omitempty"`
		PaymentMethod *string       `json:"paymentMethod,omitempty"`
		Notes         *string       `json:"notes,omitempty"`
		IsActive      *bool         `json:"isActive,omitempty"`
		Color         *string       `json:"color,omitempty"`
		Icon          *string       `json:"icon,omitempty"`
	}
)

var (
	ErrInvalidDate         = errors.New("invalid date")
	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long (max 200 characters)")
	ErrNegativePrice       = errors.New("price must be a non-negative number")
	ErrEmptyCurrency       = errors.New("empty currency")
	ErrInvalidBillingCycle = errors.New("invalid billing cycle")
	ErrEmptyCategory       = errors.New("empty category")
	ErrEmptyPaymentMethod  = errors.New("empty payment method")
	ErrEmptyColor          = errors.New("empty color")
)

// IsValid reports whether c is one of the supported billing cycles.
func (c BillingCycle) IsValid() bool {
	return c == Monthly || c == Yearly
}

func (c BillingCycle) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. A full RFC 3339 timestamp is accepted
// too and truncated to its calendar day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, ErrInvalidDate
}

func (d Date) Validate() error {
	if d.IsZero() {
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

// AddDays returns the date n calendar days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

// DaysUntil returns the number of whole calendar days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(math.Round(o.Time.Sub(d.Time).Hours() / 24))
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (in SubscriptionInput) Validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := validatePrice(in.Price); err != nil {
		return err
	}
	if strings.TrimSpace(in.Currency) == "" {
		return ErrEmptyCurrency
	}
	if !in.BillingCycle.IsValid() {
		return ErrInvalidBillingCycle
	}
	if err := in.RenewalDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return ErrEmptyPaymentMethod
	}
	if strings.TrimSpace(in.Color) == "" {
		return ErrEmptyColor
	}
	return nil
}

// Validate checks only the fields present in the patch.
func (p SubscriptionPatch) Validate() error {
	if p.Name != nil {
		if err := validateName(*p.Name); err != nil {
			return err
		}
	}
	if p.Price != nil {
		if err := validatePrice(*p.Price); err != nil {
			return err
		}
	}
	if p.Currency != nil && strings.TrimSpace(*p.Currency) == "" {
		return ErrEmptyCurrency
	}
	if p.BillingCycle != nil && !p.BillingCycle.IsValid() {
		return ErrInvalidBillingCycle
	}
	if p.RenewalDate != nil {
		if err := p.RenewalDate.Validate(); err != nil {
			return err
		}
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return ErrEmptyCategory
	}
	if p.PaymentMethod != nil && strings.TrimSpace(*p.PaymentMethod) == "" {
		return ErrEmptyPaymentMethod
	}
	if p.Color != nil && strings.TrimSpace(*p.Color) == "" {
		return ErrEmptyColor
	}
	return nil
}

// IsEmpty reports whether the patch sets no field at all.
func (p SubscriptionPatch) IsEmpty() bool {
	return p == SubscriptionPatch{}
}

// ApplyTo merges the patch over s. ID and timestamps are left untouched.
func (p SubscriptionPatch) ApplyTo(s Subscription) Subscription {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Price != nil {
		s.Price = *p.Price
	}
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.BillingCycle != nil {
		s.BillingCycle = *p.BillingCycle
	}
	if p.RenewalDate != nil {
		s.RenewalDate = *p.RenewalDate
	}
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.PaymentMethod != nil {
		s.PaymentMethod = *p.PaymentMethod
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
	if p.Icon != nil {
		s.Icon = *p.Icon
	}
	return s
}

// NewSubscription builds a record from input with the store-assigned fields.
func NewSubscription(id string, in SubscriptionInput, now time.Time) Subscription {
	return Subscription{
		ID:            id,
		Name:          in.Name,
		Price:         in.Price,
		Currency:      in.Currency,
		BillingCycle:  in.BillingCycle,
		RenewalDate:   in.RenewalDate,
		Category:      in.Category,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		IsActive:      in.IsActive,
		Color:         in.Color,
		Icon:          in.Icon,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func validateName(name string) error {
	if len(strings.TrimSpace(name)) == 0 {
		return ErrEmptyName
	}
	if len([]rune(name)) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return ErrNegativePrice
	}
	return nil
}
