package models

import "fmt"

// Vectors holds K three-component vectors as parallel arrays. It is used
// both for magnetic fields evaluated at observation points and for the
// dipole moments of a source layer.
type Vectors struct {
	East  []float64
	North []float64
	Up    []float64
}

// NewVectors allocates n zero vectors
func NewVectors(n int) Vectors {
	return Vectors{
		East:  make([]float64, n),
		North: make([]float64, n),
		Up:    make([]float64, n),
	}
}

// Len returns the number of vectors
func (v Vectors) Len() int {
	return len(v.East)
}

// At returns vector i as an array of components
func (v Vectors) At(i int) [3]float64 {
	return [3]float64{v.East[i], v.North[i], v.Up[i]}
}

// Validate checks that all three component arrays have the same length
func (v Vectors) Validate() error {
	if len(v.East) != len(v.North) || len(v.East) != len(v.Up) {
		return fmt.Errorf("%w: east=%d north=%d up=%d",
			ErrLengthMismatch, len(v.East), len(v.North), len(v.Up))
	}
	return nil
}

// Subset returns the vectors at the given indices
func (v Vectors) Subset(indices []int) Vectors {
	out := NewVectors(len(indices))
	for k, i := range indices {
		out.East[k] = v.East[i]
		out.North[k] = v.North[i]
		out.Up[k] = v.Up[i]
	}
	return out
}

// Append returns the concatenation of the receiver and w
func (v Vectors) Append(w Vectors) Vectors {
	out := NewVectors(0)
	out.East = append(append(out.East, v.East...), w.East...)
	out.North = append(append(out.North, v.North...), w.North...)
	out.Up = append(append(out.Up, v.Up...), w.Up...)
	return out
}
