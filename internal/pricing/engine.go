// Package pricing turns a service choice and vehicle attributes into a quote.
package pricing

import (
	"fmt"
	"strings"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/domain"
)

// Service is one entry of the catalog.
type Service struct {
	Key       string       `json:"key"`
	Name      string       `json:"name"`
	FromPrice domain.Money `json:"from_price"`
}

// Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	inspection string
	tiers      []int
	order      []string
	services   map[string]serviceTable
	aliases    map[string]string
	discounts  map[string]domain.Money
	fuel       map[string]map[domain.FuelType]domain.Money
}

type serviceTable struct {
	name   string
	prices []domain.Money
}

func NewEngine(cfg config.PricingConfig) *Engine {
	e := &Engine{
		inspection: cfg.InspectionService,
		tiers:      append([]int(nil), cfg.Tiers...),
		services:   make(map[string]serviceTable, len(cfg.Services)),
		aliases:    make(map[string]string, 2*len(cfg.Services)),
		discounts:  make(map[string]domain.Money, len(cfg.ComboDiscounts)),
		fuel:       make(map[string]map[domain.FuelType]domain.Money, len(cfg.FuelAdjustments)),
	}
	for _, svc := range cfg.Services {
		prices := make([]domain.Money, len(svc.Prices))
		for i, p := range svc.Prices {
			prices[i] = domain.Money(p)
		}
		e.services[svc.Key] = serviceTable{name: svc.Name, prices: prices}
		e.order = append(e.order, svc.Key)
		e.aliases[strings.ToLower(svc.Key)] = svc.Key
		if svc.Name != "" {
			e.aliases[strings.ToLower(svc.Name)] = svc.Key
		}
	}
	for key, d := range cfg.ComboDiscounts {
		e.discounts[key] = domain.Money(d)
	}
	for key, adj := range cfg.FuelAdjustments {
		m := make(map[domain.FuelType]domain.Money, len(adj))
		for fuel, delta := range adj {
			m[domain.ParseFuelType(fuel)] = domain.Money(delta)
		}
		e.fuel[key] = m
	}
	return e
}

// ServiceKey resolves a service key or display name ("MOT Test") to the
// canonical key.
func (e *Engine) ServiceKey(serviceType string) (string, error) {
	key, ok := e.aliases[strings.ToLower(strings.TrimSpace(serviceType))]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownService, serviceType)
	}
	return key, nil
}

// ServiceName returns the display name for a canonical key.
func (e *Engine) ServiceName(key string) string {
	if svc, ok := e.services[key]; ok && svc.name != "" {
		return svc.name
	}
	return key
}

func (e *Engine) Catalog() []Service {
	out := make([]Service, 0, len(e.order))
	for _, key := range e.order {
		svc := e.services[key]
		out = append(out, Service{Key: key, Name: svc.name, FromPrice: svc.prices[0]})
	}
	return out
}

// Quote prices serviceType for a vehicle. With a combo selection the
// inspection is added and the service's combo discount taken off. An empty
// serviceType quotes zero.
func (e *Engine) Quote(serviceType string, engineCapacity int, fuel domain.FuelType, selection *domain.ServiceSelection) (domain.Money, error) {
	if strings.TrimSpace(serviceType) == "" {
		return 0, nil
	}
	key, err := e.ServiceKey(serviceType)
	if err != nil {
		return 0, err
	}
	base := e.price(key, engineCapacity, fuel)
	if selection == nil || !selection.Combo {
		return base, nil
	}

	total := base + e.price(e.inspection, engineCapacity, fuel) - e.Discount(key)
	if total < 0 {
		return 0, nil
	}
	return total, nil
}

// Discount is the combo reduction for a service key, zero when none is
// configured.
func (e *Engine) Discount(key string) domain.Money {
	return e.discounts[key]
}

// Price is the single-service price for a canonical key. Unknown keys
// price at zero.
func (e *Engine) Price(key string, engineCapacity int, fuel domain.FuelType) domain.Money {
	return e.price(key, engineCapacity, fuel)
}

func (e *Engine) price(key string, engineCapacity int, fuel domain.FuelType) domain.Money {
	svc, ok := e.services[key]
	if !ok {
		return 0
	}
	p := svc.prices[e.tier(engineCapacity)]
	if adj, ok := e.fuel[key]; ok {
		p += adj[domain.ParseFuelType(string(fuel))]
	}
	if p < 0 {
		return 0
	}
	return p
}

// tier picks the first bracket whose upper bound covers engineCapacity.
// Unknown capacities (<= 0) use the first bracket.
func (e *Engine) tier(engineCapacity int) int {
	if engineCapacity <= 0 {
		return 0
	}
	for i, max := range e.tiers {
		if max == 0 || engineCapacity <= max {
			return i
		}
	}
	return len(e.tiers) - 1
}

// StageSelection builds the indicative selection shown before the vehicle
// is known, priced at the lowest tier.
func (e *Engine) StageSelection(serviceType string, combo bool) (domain.ServiceSelection, error) {
	key, err := e.ServiceKey(serviceType)
	if err != nil {
		return domain.ServiceSelection{}, err
	}
	sel := domain.ServiceSelection{ServiceKey: key, Combo: combo}
	sel.UnitPrice = e.price(key, 0, "")
	total, err := e.Quote(key, 0, "", &sel)
	if err != nil {
		return domain.ServiceSelection{}, err
	}
	sel.TotalPrice = total
	return sel, nil
}
