package lookup

import (
	"fmt"
	"math/rand"
	"strings"
)

// DefaultGenerateCount is the number of records Generate produces by default.
const DefaultGenerateCount = 10000

// Year range of generated vehicles.
const (
	MinYear = 1990
	MaxYear = 2025
)

const (
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	alnum   = letters + digits
)

var (
	vehicleModels = map[string][]string{
		"Toyota":     {"Corolla", "Camry", "RAV4", "Prius", "Highlander"},
		"Honda":      {"Civic", "Accord", "CR-V", "Fit", "Pilot"},
		"Ford":       {"Focus", "Fiesta", "Mustang", "Explorer", "F-150"},
		"Volkswagen": {"Golf", "Passat", "Polo", "Tiguan", "Jetta"},
		"BMW":        {"3 Series", "5 Series", "X3", "X5", "1 Series"},
		"Mercedes":   {"C-Class", "E-Class", "A-Class", "GLC", "S-Class"},
		"Audi":       {"A3", "A4", "A6", "Q5", "Q7"},
		"Nissan":     {"Altima", "Sentra", "Qashqai", "Leaf", "Rogue"},
		"Hyundai":    {"Elantra", "Tucson", "i30", "Kona", "Santa Fe"},
		"Kia":        {"Rio", "Sportage", "Ceed", "Sorento", "Picanto"},
	}
	vehicleMakes = []string{
		"Toyota", "Honda", "Ford", "Volkswagen", "BMW",
		"Mercedes", "Audi", "Nissan", "Hyundai", "Kia",
	}
	firstNames = []string{
		"James", "Mary", "John", "Patricia", "Robert", "Jennifer", "Michael",
		"Linda", "William", "Elizabeth", "David", "Barbara", "Richard", "Susan",
		"Joseph", "Jessica", "Thomas", "Sarah", "Charles", "Karen",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez",
		"Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin",
	}
)

// Generator builds synthetic plate databases for testing and demos.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // synthetic data
}

// Plate returns a random plate in one of three layouts:
// ABC123, 1234AB or six mixed alphanumerics.
func (g *Generator) Plate() string {
	switch g.rng.Intn(3) {
	case 0:
		return g.pick(letters, 3) + g.pick(digits, 3)
	case 1:
		return g.pick(digits, 4) + g.pick(letters, 2)
	default:
		return g.pick(alnum, 6)
	}
}

func (g *Generator) pick(set string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(set[g.rng.Intn(len(set))])
	}
	return b.String()
}

// Record returns a random vehicle record.
func (g *Generator) Record() Record {
	mk := vehicleMakes[g.rng.Intn(len(vehicleMakes))]
	models := vehicleModels[mk]
	return Record{
		Make:  mk,
		Model: models[g.rng.Intn(len(models))],
		Year:  MinYear + g.rng.Intn(MaxYear-MinYear+1),
		Owner: fmt.Sprintf("%s %s",
			firstNames[g.rng.Intn(len(firstNames))],
			lastNames[g.rng.Intn(len(lastNames))]),
	}
}

// Generate returns n records under unique plates. n <= 0 selects
// DefaultGenerateCount.
func (g *Generator) Generate(n int) Database {
	if n <= 0 {
		n = DefaultGenerateCount
	}
	db := make(Database, n)
	for len(db) < n {
		plate := g.Plate()
		if _, dup := db[plate]; dup {
			continue
		}
		db[plate] = g.Record()
	}
	return db
}
