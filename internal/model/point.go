// Package model holds the shared domain types passed between collectors, the
// standardizer, and the synthetic generators.
package model

import "time"

// PointType distinguishes observed occurrences from generated background
// locations.
type PointType string

const (
	PresencePoint PointType = "Presence"
	AbsencePoint  PointType = "Absence"
)

// Point is a single observation record. Collectors produce points with the
// location, timestamp, and label fields set; the standardizer appends the
// calendar features.
type Point struct {
	Lon       float64   `json:"lon"`
	Lat       float64   `json:"lat"`
	Time      time.Time `json:"time,omitzero"`
	Species   string    `json:"species,omitempty"`
	LifeStage string    `json:"life_stage,omitempty"`
	Presence  int       `json:"presence"` // 1 = observed, 0 = generated background
	Type      PointType `json:"point_type"`
	Source    string    `json:"source,omitempty"`

	// Calendar features, appended during standardization.
	Month      int    `json:"month,omitempty"`
	WeekOfYear int    `json:"week_of_year,omitempty"`
	Season     string `json:"season,omitempty"`
}

// PointSet is a named collection of point records.
type PointSet struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// FilterLifeStage returns the subset of points with the given life stage. An
// empty stage returns all points.
func FilterLifeStage(points []Point, stage string) []Point {
	if stage == "" {
		return points
	}
	var out []Point
	for _, p := range points {
		if p.LifeStage == stage {
			out = append(out, p)
		}
	}
	return out
}

// LifeStages returns the distinct life stages present, in first-seen order.
func LifeStages(points []Point) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range points {
		if p.LifeStage != "" && !seen[p.LifeStage] {
			seen[p.LifeStage] = true
			out = append(out, p.LifeStage)
		}
	}
	return out
}
