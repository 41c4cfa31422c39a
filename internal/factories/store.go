package factories

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/alenjb/deli/internal/models"
	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"
)

var fake = faker.New()

type StoreFactory struct {
	nameCache sync.Map // to keep store names unique
}

// CreateStore places a store at a random point within the configured radius (km) of the
// city centre.
func (sf *StoreFactory) CreateStore(cfg models.SeedConfig) *models.Store {
	latRange := cfg.UrbanRadius / 111.0
	lonRange := latRange / math.Cos(cfg.CityLat*math.Pi/180.0)

	latOffset := (rand.Float64()*2 - 1) * latRange
	lonOffset := (rand.Float64()*2 - 1) * lonRange

	minPrep, maxPrep := cfg.MinPrepTime, cfg.MaxPrepTime
	if maxPrep < minPrep {
		minPrep, maxPrep = maxPrep, minPrep
	}

	return &models.Store{
		ID:             cuid.New(),
		Name:           sf.uniqueName(fake.Company().Name()),
		AvgPrepMinutes: fake.IntBetween(minPrep, maxPrep),
		Address:        fake.Address().Address(),
		Location: models.Location{
			Lat: cfg.CityLat + latOffset,
			Lon: cfg.CityLon + lonOffset,
		},
	}
}

func (sf *StoreFactory) uniqueName(base string) string {
	name := base
	counter := 1

	for {
		if _, exists := sf.nameCache.LoadOrStore(name, true); !exists {
			return name
		}
		counter++
		name = fmt.Sprintf("%s #%d", base, counter)
	}
}
