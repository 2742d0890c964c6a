package raster

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/shark-voyager/voyager-cli/internal/grid"
)

// Stack is a time-indexed sequence of rasters sharing one grid. Layers are
// aligned with Times; a gap week is represented by an all-no-data layer
// rather than a missing entry.
type Stack struct {
	Grid   grid.Grid
	Name   string
	Units  string
	NoData float64
	Times  []time.Time
	Layers []*Raster
}

// NewStack creates an empty stack on the given grid.
func NewStack(g grid.Grid, name, units string) *Stack {
	return &Stack{Grid: g, Name: name, Units: units, NoData: DefaultNoData}
}

// Append adds a layer at the given time. The layer must be on the stack's
// grid.
func (s *Stack) Append(t time.Time, layer *Raster) error {
	if err := layer.CheckShape(s.Grid); err != nil {
		return err
	}
	s.Times = append(s.Times, t)
	s.Layers = append(s.Layers, layer)
	return nil
}

// AppendGap adds an all-no-data layer at the given time, marking a week with
// no observations.
func (s *Stack) AppendGap(t time.Time) {
	layer := New(s.Grid, s.Name, s.Units)
	layer.NoData = s.NoData
	s.Times = append(s.Times, t)
	s.Layers = append(s.Layers, layer)
}

// Len returns the number of time steps.
func (s *Stack) Len() int { return len(s.Times) }

// MeanOver returns the per-cell mean across the selected layers, skipping
// no-data values. Cells with no valid value in any selected layer are
// no-data in the result.
func (s *Stack) MeanOver(selected []int, name string) (*Raster, error) {
	if len(selected) == 0 {
		return nil, eris.Errorf("raster: stack %s: no layers selected for mean", s.Name)
	}

	out := New(s.Grid, name, s.Units)
	sum := make([]float64, s.Grid.NumCells())
	count := make([]int, s.Grid.NumCells())

	for _, idx := range selected {
		if idx < 0 || idx >= len(s.Layers) {
			return nil, eris.Errorf("raster: stack %s: layer index %d out of range", s.Name, idx)
		}
		layer := s.Layers[idx]
		for i, v := range layer.Data {
			if layer.IsNoData(v) {
				continue
			}
			sum[i] += v
			count[i]++
		}
	}

	for i := range sum {
		if count[i] > 0 {
			out.Data[i] = sum[i] / float64(count[i])
		}
	}
	return out, nil
}

// SelectMonths returns the indices of layers whose time falls in one of the
// given months.
func (s *Stack) SelectMonths(months []int) []int {
	var idx []int
	for i, t := range s.Times {
		m := int(t.Month())
		for _, want := range months {
			if m == want {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

// All returns the indices of every layer.
func (s *Stack) All() []int {
	idx := make([]int, len(s.Layers))
	for i := range idx {
		idx[i] = i
	}
	return idx
}
