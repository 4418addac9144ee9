package dipole

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"eqsmagnetics/internal/models"
)

// Jacobian builds the N×M sensitivity matrix between N observation points
// and M sources. Entry (i, j) is the total-field anomaly at observation i
// caused by a unit-amplitude dipole at source j oriented along
// momentDirection, projected onto fieldDirection.
//
// The projection is fused into the kernel so the three field components are
// never materialised. Rows are filled in parallel.
func Jacobian(obs, sources models.Points, momentDirection, fieldDirection [3]float64, workers int) (*mat.Dense, error) {
	if err := obs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observation points: %w", err)
	}
	if err := sources.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source points: %w", err)
	}

	me, mn, mu := momentDirection[0], momentDirection[1], momentDirection[2]
	fe, fn, fu := fieldDirection[0], fieldDirection[1], fieldDirection[2]
	// m·f does not depend on the geometry
	momentDotField := me*fe + mn*fn + mu*fu

	a := mat.NewDense(obs.Len(), sources.Len(), nil)
	err := parallelRange(obs.Len(), workers, func(start, end int) error {
		for i := start; i < end; i++ {
			row := a.RawRowView(i)
			for j := range row {
				re := obs.Easting[i] - sources.Easting[j]
				rn := obs.Northing[i] - sources.Northing[j]
				ru := obs.Upward[i] - sources.Upward[j]
				dist2 := re*re + rn*rn + ru*ru
				if dist2 == 0 {
					return fmt.Errorf("observation %d, source %d: %w", i, j, ErrCoincidentPoints)
				}
				dist := math.Sqrt(dist2)
				mr := (me*re + mn*rn + mu*ru) / dist2
				fr := fe*re + fn*rn + fu*ru
				row[j] = fieldConstant / (dist2 * dist) * (3*mr*fr - momentDotField)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// JacobianByColumns builds the same matrix as Jacobian by evaluating the
// dipole kernel once per source and projecting the result. It is much slower
// and kept as the reference the fused builder is checked against.
func JacobianByColumns(obs, sources models.Points, momentDirection, fieldDirection [3]float64, workers int) (*mat.Dense, error) {
	if err := sources.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source points: %w", err)
	}

	a := mat.NewDense(obs.Len(), sources.Len(), nil)
	for j := 0; j < sources.Len(); j++ {
		field, err := MagneticFieldUniform(obs, sources.Subset([]int{j}), momentDirection, workers)
		if err != nil {
			return nil, err
		}
		a.SetCol(j, TotalFieldAnomaly(field, fieldDirection))
	}
	return a, nil
}
