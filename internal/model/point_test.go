package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func stagedPoints() []Point {
	return []Point{
		{Lon: -120, Lat: 30, LifeStage: "Juvenile"},
		{Lon: -119, Lat: 31, LifeStage: "Adult_Female"},
		{Lon: -118, Lat: 32, LifeStage: "Juvenile"},
		{Lon: -117, Lat: 33},
	}
}

func TestFilterLifeStage(t *testing.T) {
	points := stagedPoints()

	juveniles := FilterLifeStage(points, "Juvenile")
	assert.Len(t, juveniles, 2)

	all := FilterLifeStage(points, "")
	assert.Len(t, all, 4)

	assert.Empty(t, FilterLifeStage(points, "Pup"))
}

func TestLifeStages(t *testing.T) {
	stages := LifeStages(stagedPoints())
	// First-seen order, empty stages skipped.
	assert.Equal(t, []string{"Juvenile", "Adult_Female"}, stages)

	assert.Empty(t, LifeStages(nil))
}
