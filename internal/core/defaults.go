package core

import "time"

// DefaultSubscriptions returns the sample collection used on first run and
// when a persisted snapshot cannot be read.
func DefaultSubscriptions() []Subscription {
	ts := func(s string) time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return t
	}
	return []Subscription{
		{
			ID:            "1",
			Name:          "Netflix",
			Price:         49.99,
			RenewalDate:   NewDate(2024, 2, 15),
			PaymentMethod: "فيزا",
			Category:      "ترفيه",
			Notes:         "خطة العائلة",
			IsActive:      true,
			Color:         "#E50914",
			Icon:          "Play",
			Currency:      "ريال",
			BillingCycle:  Monthly,
			CreatedAt:     ts("2024-01-15T10:00:00Z"),
			UpdatedAt:     ts("2024-01-15T10:00:00Z"),
		},
		{
			ID:            "2",
			Name:          "Spotify",
			Price:         19.99,
			RenewalDate:   NewDate(2024, 2, 20),
			PaymentMethod: "ماستركارد",
			Category:      "موسيقى",
			Notes:         "خطة بريميوم",
			IsActive:      true,
			Color:         "#1DB954",
			Icon:          "Music",
			Currency:      "ريال",
			BillingCycle:  Monthly,
			CreatedAt:     ts("2024-01-20T10:00:00Z"),
			UpdatedAt:     ts("2024-01-20T10:00:00Z"),
		},
		{
			ID:            "3",
			Name:          "Adobe Creative Cloud",
			Price:         199.99,
			RenewalDate:   NewDate(2024, 2, 10),
			PaymentMethod: "فيزا",
			Category:      "إنتاجية",
			Notes:         "خطة كاملة للمصممين",
			IsActive:      true,
			Color:         "#FF0000",
			Icon:          "Palette",
			Currency:      "ريال",
			BillingCycle:  Monthly,
			CreatedAt:     ts("2024-01-10T10:00:00Z"),
			UpdatedAt:     ts("2024-01-10T10:00:00Z"),
		},
	}
}

// Input forms offer these vocabularies. The store accepts any string.
var (
	SuggestedCategories = []string{
		"ترفيه",
		"موسيقى",
		"إنتاجية",
		"تعليم",
		"رياضة",
		"أخبار",
		"طعام",
		"مواصلات",
		"أخرى",
	}

	SuggestedPaymentMethods = []string{
		"فيزا",
		"ماستركارد",
		"مدى",
		"آبل باي",
		"STC Pay",
		"أخرى",
	}

	SuggestedColors = []string{
		"#E50914",
		"#1DB954",
		"#4285F4",
		"#FF6900",
		"#7B68EE",
		"#20B2AA",
		"#FF1493",
		"#32CD32",
		"#FF4500",
		"#9370DB",
	}
)

// Values a new-subscription form starts from.
const (
	DefaultCurrency = "ريال"
	DefaultIcon     = "CreditCard"
)
