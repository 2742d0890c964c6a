package synthetic

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shark-voyager/voyager-cli/internal/grid"
	"github.com/shark-voyager/voyager-cli/internal/model"
)

func presenceSet() []model.Point {
	when := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	return []model.Point{
		{Lon: -120.0, Lat: 30.0, Time: when, Species: "Carcharodon carcharias", LifeStage: "Juvenile", Presence: 1, Type: model.PresencePoint},
		{Lon: -121.0, Lat: 31.0, Time: when, Species: "Carcharodon carcharias", LifeStage: "Juvenile", Presence: 1, Type: model.PresencePoint},
		{Lon: -115.0, Lat: 40.0, Time: when, Species: "Carcharodon carcharias", LifeStage: "Adult_Female", Presence: 1, Type: model.PresencePoint},
	}
}

func wideRegion() grid.Region {
	return grid.Region{MinLon: -130, MaxLon: -110, MinLat: 25, MaxLat: 45}
}

func TestGenerateAbsencesBufferProperty(t *testing.T) {
	presences := presenceSet()
	opts := DefaultAbsenceOptions()

	absences, err := GenerateAbsences(wideRegion(), presences, opts)
	require.NoError(t, err)

	// Every absence is at least the buffer distance from every presence of
	// its own life stage.
	for _, a := range absences {
		assert.Equal(t, model.AbsencePoint, a.Type)
		assert.Equal(t, 0, a.Presence)
		for _, p := range presences {
			if p.LifeStage != a.LifeStage {
				continue
			}
			d := grid.HaversineKM(a.Lon, a.Lat, p.Lon, p.Lat)
			assert.GreaterOrEqual(t, d, opts.BufferKM)
		}
	}
}

func TestGenerateAbsencesRatio(t *testing.T) {
	absences, err := GenerateAbsences(wideRegion(), presenceSet(), DefaultAbsenceOptions())
	require.NoError(t, err)

	// Ratio 1.0: one absence per presence, per life stage.
	byStage := make(map[string]int)
	for _, a := range absences {
		byStage[a.LifeStage]++
	}
	assert.Equal(t, 2, byStage["Juvenile"])
	assert.Equal(t, 1, byStage["Adult_Female"])
}

func TestGenerateAbsencesDeterministic(t *testing.T) {
	first, err := GenerateAbsences(wideRegion(), presenceSet(), DefaultAbsenceOptions())
	require.NoError(t, err)
	second, err := GenerateAbsences(wideRegion(), presenceSet(), DefaultAbsenceOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateAbsencesDifferentSeeds(t *testing.T) {
	optsA := DefaultAbsenceOptions()
	optsB := DefaultAbsenceOptions()
	optsB.Seed = 7

	a, err := GenerateAbsences(wideRegion(), presenceSet(), optsA)
	require.NoError(t, err)
	b, err := GenerateAbsences(wideRegion(), presenceSet(), optsB)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerateAbsencesInsufficientSpace(t *testing.T) {
	// A region ~100 km across with a central presence and a 100 km buffer
	// leaves nowhere to place an absence.
	region := grid.Region{MinLon: -120.5, MaxLon: -119.5, MinLat: 29.5, MaxLat: 30.5}
	presences := []model.Point{
		{Lon: -120.0, Lat: 30.0, LifeStage: "Juvenile", Presence: 1, Type: model.PresencePoint},
	}

	opts := DefaultAbsenceOptions()
	opts.AttemptsPerGoal = 200

	_, err := GenerateAbsences(region, presences, opts)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInsufficientSpace))
}

func TestGenerateAbsencesInvalidRegion(t *testing.T) {
	region := grid.Region{MinLon: -110, MaxLon: -120, MinLat: 25, MaxLat: 45}
	_, err := GenerateAbsences(region, presenceSet(), DefaultAbsenceOptions())
	require.Error(t, err)
	assert.True(t, eris.Is(err, grid.ErrInvalidRegion))
}

func TestGenerateAbsencesTimestampBorrowed(t *testing.T) {
	absences, err := GenerateAbsences(wideRegion(), presenceSet(), DefaultAbsenceOptions())
	require.NoError(t, err)
	require.NotEmpty(t, absences)
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), absences[0].Time)
}
