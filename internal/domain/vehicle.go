package domain

import "strings"

type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
	FuelOther    FuelType = "other"
)

// VehicleAttributes is what the garage needs to know about a car to price
// and carry out a service.
type VehicleAttributes struct {
	Registration   string   `json:"registration"`
	Make           string   `json:"make"`
	Model          string   `json:"model"`
	Year           int      `json:"year"`
	EngineCapacity int      `json:"engine_capacity"`
	FuelType       FuelType `json:"fuel_type"`
	Colour         string   `json:"colour,omitempty"`
	UsingMockData  bool     `json:"using_mock_data"`
}

// Descriptor renders the vehicle for customer-facing text, e.g.
// "FORD FOCUS (AB12CDE)".
func (v VehicleAttributes) Descriptor() string {
	name := strings.TrimSpace(strings.TrimSpace(v.Make) + " " + strings.TrimSpace(v.Model))
	if name == "" {
		return v.Registration
	}
	if v.Registration == "" {
		return name
	}
	return name + " (" + v.Registration + ")"
}

// NormalizeRegistration strips whitespace and upper-cases a registration
// mark so "ab12 cde" and "AB12CDE" are the same vehicle.
func NormalizeRegistration(reg string) string {
	return strings.ToUpper(strings.Join(strings.Fields(reg), ""))
}

// ParseFuelType maps registry and form spellings onto the fuel types the
// price table knows about.
func ParseFuelType(s string) FuelType {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return ""
	case strings.Contains(v, "hybrid"):
		return FuelHybrid
	case strings.Contains(v, "electric"), v == "ev":
		return FuelElectric
	case strings.Contains(v, "diesel"), strings.Contains(v, "heavy oil"):
		return FuelDiesel
	case strings.Contains(v, "petrol"), v == "gasoline":
		return FuelPetrol
	default:
		return FuelOther
	}
}
