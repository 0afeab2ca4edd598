package vehicle

import (
	"hash/fnv"

	"github.com/Domenick1991/garagebooking/internal/domain"
)

var syntheticModels = []struct{ make, model string }{
	{"FORD", "FOCUS"},
	{"VAUXHALL", "ASTRA"},
	{"VOLKSWAGEN", "GOLF"},
	{"BMW", "3 SERIES"},
	{"AUDI", "A3"},
	{"TOYOTA", "YARIS"},
	{"NISSAN", "QASHQAI"},
	{"MERCEDES-BENZ", "C CLASS"},
	{"HONDA", "CIVIC"},
	{"PEUGEOT", "208"},
}

var syntheticCapacities = []int{998, 1197, 1395, 1598, 1968, 1995, 2143, 2993}

var syntheticFuels = []domain.FuelType{domain.FuelPetrol, domain.FuelPetrol, domain.FuelDiesel, domain.FuelHybrid}

// Synthesize derives a plausible vehicle from the registration alone. The
// same registration always yields the same record.
func Synthesize(registration string) domain.VehicleAttributes {
	reg := domain.NormalizeRegistration(registration)
	h := fnv.New64a()
	_, _ = h.Write([]byte(reg))
	sum := h.Sum64()

	m := syntheticModels[sum%uint64(len(syntheticModels))]
	sum /= uint64(len(syntheticModels))
	capacity := syntheticCapacities[sum%uint64(len(syntheticCapacities))]
	sum /= uint64(len(syntheticCapacities))
	fuel := syntheticFuels[sum%uint64(len(syntheticFuels))]
	sum /= uint64(len(syntheticFuels))
	year := 2008 + int(sum%16)

	return domain.VehicleAttributes{
		Registration:   reg,
		Make:           m.make,
		Model:          m.model,
		Year:           year,
		EngineCapacity: capacity,
		FuelType:       fuel,
		UsingMockData:  true,
	}
}
