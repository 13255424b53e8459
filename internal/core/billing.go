// This file implements the Strategy Pattern for billing-cycle normalisation.
// Each billing cycle has a normalizer that converts a price into its
// monthly and yearly equivalent.

package core

import "fmt"

// CycleNormalizer is the strategy interface for converting a price billed on a
// given cycle into comparable monthly and yearly amounts.
type CycleNormalizer interface {
	Monthly(price float64) float64
	Yearly(price float64) float64
}

// MonthlyNormalizer implements CycleNormalizer for prices billed every month.
type MonthlyNormalizer struct{}

func (MonthlyNormalizer) Monthly(price float64) float64 { return price }
func (MonthlyNormalizer) Yearly(price float64) float64  { return price * 12 }

// YearlyNormalizer implements CycleNormalizer for prices billed once a year.
type YearlyNormalizer struct{}

func (YearlyNormalizer) Monthly(price float64) float64 { return price / 12 }
func (YearlyNormalizer) Yearly(price float64) float64  { return price }

var cycleNormalizers = map[BillingCycle]CycleNormalizer{
	Monthly: MonthlyNormalizer{},
	Yearly:  YearlyNormalizer{},
}

// GetCycleNormalizer returns the normalizer registered for cycle.
func GetCycleNormalizer(cycle BillingCycle) (CycleNormalizer, error) {
	n, ok := cycleNormalizers[cycle]
	if !ok {
		return nil, fmt.Errorf("unknown billing cycle: %s", cycle)
	}
	return n, nil
}

// MonthlyPrice returns the subscription's price expressed per month.
// Unknown cycles are treated as monthly: only a yearly price is ever divided.
func (s Subscription) MonthlyPrice() float64 {
	n, err := GetCycleNormalizer(s.BillingCycle)
	if err != nil {
		return s.Price
	}
	return n.Monthly(s.Price)
}

// YearlyPrice returns the subscription's price expressed per year.
func (s Subscription) YearlyPrice() float64 {
	n, err := GetCycleNormalizer(s.BillingCycle)
	if err != nil {
		return s.Price * 12
	}
	return n.Yearly(s.Price)
}
