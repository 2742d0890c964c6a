// Package synthetic generates pseudo-absence points and derived habitat
// indices from the standardized layers.
package synthetic

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/model"
)

// ErrInsufficientSpace means the region outside the presence buffers is too
// small to place the requested number of absence points.
var ErrInsufficientSpace = eris.New("synthetic: insufficient space outside presence buffers")

// AbsenceOptions configures pseudo-absence generation.
type AbsenceOptions struct {
	BufferKM        float64 // minimum distance from any presence point
	Ratio           float64 // absences per presence, per life stage
	Seed            uint64  // RNG seed; fixed seed gives reproducible points
	AttemptsPerGoal int     // rejection-sampling attempts allowed per requested point
}

// DefaultAbsenceOptions mirror the published sampling design: one absence
// per presence, 100 km exclusion buffer, seed 42.
func DefaultAbsenceOptions() AbsenceOptions {
	return AbsenceOptions{
		BufferKM:        100,
		Ratio:           1.0,
		Seed:            42,
		AttemptsPerGoal: 1000,
	}
}

// GenerateAbsences draws pseudo-absence points uniformly over the region,
// rejecting draws that fall within the buffer distance of any presence point
// of the same life stage. Generation is per life stage so each stage gets a
// balanced presence/absence set. Returns ErrInsufficientSpace (wrapped) when
// the attempt budget runs out before the goal is met.
func GenerateAbsences(region grid.Region, presences []model.Point, opts AbsenceOptions) ([]model.Point, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}
	if opts.Ratio <= 0 {
		return nil, eris.Errorf("synthetic: ratio must be positive, got %g", opts.Ratio)
	}
	if opts.AttemptsPerGoal <= 0 {
		opts.AttemptsPerGoal = DefaultAbsenceOptions().AttemptsPerGoal
	}

	byStage := make(map[string][]model.Point)
	for _, p := range presences {
		byStage[p.LifeStage] = append(byStage[p.LifeStage], p)
	}

	// Deterministic order: one RNG stream shared across stages.
	stages := make([]string, 0, len(byStage))
	for stage := range byStage {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	var absences []model.Point
	for _, stage := range stages {
		stagePresences := byStage[stage]
		goal := int(math.Round(float64(len(stagePresences)) * opts.Ratio))
		if goal == 0 {
			continue
		}

		generated, err := sampleStage(rng, region, stagePresences, goal, opts)
		if err != nil {
			return nil, eris.Wrapf(err, "synthetic: life stage %q", stage)
		}
		absences = append(absences, generated...)

		zap.L().Debug("synthetic: absences generated",
			zap.String("life_stage", stage),
			zap.Int("count", len(generated)),
		)
	}

	return absences, nil
}

func sampleStage(rng *rand.Rand, region grid.Region, presences []model.Point, goal int, opts AbsenceOptions) ([]model.Point, error) {
	budget := goal * opts.AttemptsPerGoal
	out := make([]model.Point, 0, goal)

	for attempt := 0; attempt < budget && len(out) < goal; attempt++ {
		lon := region.MinLon + rng.Float64()*(region.MaxLon-region.MinLon)
		lat := region.MinLat + rng.Float64()*(region.MaxLat-region.MinLat)

		if tooClose(lon, lat, presences, opts.BufferKM) {
			continue
		}

		// Borrow the timestamp of a random presence so the absence carries
		// comparable calendar features.
		donor := presences[rng.IntN(len(presences))]
		out = append(out, model.Point{
			Lon:       lon,
			Lat:       lat,
			Time:      donor.Time,
			Species:   donor.Species,
			LifeStage: donor.LifeStage,
			Presence:  0,
			Type:      model.AbsencePoint,
			Source:    "synthetic",
		})
	}

	if len(out) < goal {
		return nil, eris.Wrapf(ErrInsufficientSpace, "placed %d of %d", len(out), goal)
	}
	return out, nil
}

func tooClose(lon, lat float64, presences []model.Point, bufferKM float64) bool {
	for _, p := range presences {
		if grid.HaversineKM(lon, lat, p.Lon, p.Lat) < bufferKM {
			return true
		}
	}
	return false
}
