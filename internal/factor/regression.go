package factor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ridgeBetas solves the ridge-regularized least squares problem
//
//	beta = (X'X + lambda*I)^-1 X'y
//
// over mean-centered inputs. Centering absorbs the intercept, so the
// returned slice holds exactly one coefficient per factor column.
// lambda = 0 degenerates to ordinary least squares; a small positive
// lambda keeps correlated factor columns (market vs style proxies)
// from blowing up the solution.
func ridgeBetas(y []float64, columns [][]float64, lambda float64) ([]float64, error) {
	n := len(y)
	k := len(columns)
	if k == 0 {
		return nil, fmt.Errorf("regression requires at least one factor column")
	}
	for i, col := range columns {
		if len(col) != n {
			return nil, fmt.Errorf("factor column %d has %d observations, want %d", i, len(col), n)
		}
	}
	if n <= k {
		return nil, fmt.Errorf("regression requires more observations (%d) than factors (%d)", n, k)
	}

	// Mean-center y and every column
	yc := center(y)
	data := make([]float64, n*k)
	for j, col := range columns {
		cc := center(col)
		for i := 0; i < n; i++ {
			data[i*k+j] = cc[i]
		}
	}

	X := mat.NewDense(n, k, data)
	yVec := mat.NewVecDense(n, yc)

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	for i := 0; i < k; i++ {
		xtx.Set(i, i, xtx.At(i, i)+lambda)
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), yVec)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return nil, fmt.Errorf("ridge solve failed: %w", err)
	}

	out := make([]float64, k)
	for i := 0; i < k; i++ {
		out[i] = beta.AtVec(i)
	}
	return out, nil
}

// center subtracts the mean from every element
func center(v []float64) []float64 {
	m := stat.Mean(v, nil)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x - m
	}
	return out
}
