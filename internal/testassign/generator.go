package testassign

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/okian/cohort/pkg/logger"
)

// Attribute pools for synthetic rosters.
var (
	genders      = []string{"Male", "Female"}
	jobFunctions = []string{"Manager", "Executive", "Contributor", "Engineer", "Designer"}
	timeZones    = []string{"UTC", "America/New_York", "Europe/Berlin", "Asia/Tokyo"}
	workingTimes = []string{"Morning", "Afternoon", "Evening", "Morning; Afternoon"}
)

// Experience generation range.
const (
	maxExperienceYears = 20
)

// pickRandom returns a uniformly random element using crypto/rand.
func pickRandom(pool []string) string {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
	return pool[n.Int64()]
}

// randomInt returns a random int in [0, limit).
func randomInt(limit int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	return int(n.Int64())
}

// generateRoster creates a synthetic roster with varied attributes.
func generateRoster(ctx context.Context, config *Config, stats *Stats) []map[string]any {
	logger.Get().Info(ctx, "generating synthetic roster",
		logger.Int("numParticipants", config.NumParticipants))

	roster := make([]map[string]any, config.NumParticipants)
	for i := range roster {
		roster[i] = map[string]any{
			"id":               strconv.Itoa(i + 1),
			"gender":           pickRandom(genders),
			"job_function":     pickRandom(jobFunctions),
			"years_experience": float64(randomInt(maxExperienceYears)),
			"time_zone":        pickRandom(timeZones),
			"working_time":     pickRandom(workingTimes),
		}
	}

	stats.ParticipantsGenerated = len(roster)
	logger.Get().Info(ctx, "generated roster successfully", logger.Int("count", len(roster)))
	return roster
}

// defaultConstraints exercises every supported constraint type.
func defaultConstraints() []Constraint {
	return []Constraint{
		{Attribute: "gender", Type: "diversify", Weight: 1},
		{Attribute: "job_function", Type: "cluster", Weight: 1},
		{Attribute: "years_experience", Type: "cluster_numeric", Weight: 1},
		{Attribute: "time_zone", Type: "different", Weight: 1},
	}
}
