package usecase

import (
	"sort"

	"vpn-subscription-bot/internal/config"
)

// Plan is what a subscriber can buy for a given device count.
type Plan struct {
	Devices int
	prices  map[string]map[int]int
}

// Price returns the price of days in currency.
func (p Plan) Price(currency string, days int) (int, bool) {
	byDays, ok := p.prices[currency]
	if !ok {
		return 0, false
	}
	v, ok := byDays[days]
	return v, ok
}

// Durations lists the durations priced in currency, shortest first.
func (p Plan) Durations(currency string) []int {
	out := make([]int, 0, len(p.prices[currency]))
	for d := range p.prices[currency] {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// PlanCatalog indexes configured plans by device count.
type PlanCatalog struct {
	currency string
	byDevice map[int]Plan
	order    []int
}

func NewPlanCatalog(shop config.ShopConfig) *PlanCatalog {
	c := &PlanCatalog{currency: shop.Currency, byDevice: make(map[int]Plan, len(shop.Plans))}
	for _, pc := range shop.Plans {
		c.byDevice[pc.Devices] = Plan{Devices: pc.Devices, prices: pc.Prices}
		c.order = append(c.order, pc.Devices)
	}
	sort.Ints(c.order)
	return c
}

func (c *PlanCatalog) Currency() string { return c.currency }

func (c *PlanCatalog) Get(devices int) (Plan, bool) {
	p, ok := c.byDevice[devices]
	return p, ok
}

// All returns plans ordered by device count.
func (c *PlanCatalog) All() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, d := range c.order {
		out = append(out, c.byDevice[d])
	}
	return out
}
