package fem

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/spatialsim/internal/dynamo"
)

// operator applies (M + dt * K_D) where M is the lumped mass and K_D the
// stiffness weighted by the per-element diffusion coefficient.
type operator struct {
	mesh *Mesh
	diff []float64
	dt   float64
	pool *dynamo.Pool
	// acc holds one accumulator per worker.
	acc [][]float64
}

func newOperator(mesh *Mesh, pool *dynamo.Pool) *operator {
	acc := make([][]float64, pool.Workers())
	for w := range acc {
		acc[w] = make([]float64, len(mesh.Nodes))
	}
	return &operator{mesh: mesh, pool: pool, acc: acc}
}

// apply writes (M + dt K_D) v into out. Elements are split between the
// workers, each scattering into its own accumulator; the accumulators are
// summed afterwards.
func (op *operator) apply(v, out []float64) {
	for _, a := range op.acc {
		for i := range a {
			a[i] = 0
		}
	}
	mesh := op.mesh
	n := mesh.Dim + 1
	_ = op.pool.Run(len(mesh.Elements), func(worker, start, end int) error {
		acc := op.acc[worker]
		for e := start; e < end; e++ {
			d := op.diff[mesh.ElemVoxel[e]]
			if d == 0 {
				continue
			}
			k := mesh.Stiffness[mesh.ElemType[e]]
			elem := mesh.Elements[e]
			for a := 0; a < n; a++ {
				sum := 0.0
				for b := 0; b < n; b++ {
					sum += k[a*n+b] * v[elem[b]]
				}
				acc[elem[a]] += d * sum
			}
		}
		return nil
	})

	floats.MulTo(out, mesh.Mass, v)
	for _, a := range op.acc {
		floats.AddScaled(out, op.dt, a)
	}
}

// diagonal writes the diagonal of the operator into out.
func (op *operator) diagonal(out []float64) {
	copy(out, op.mesh.Mass)
	n := op.mesh.Dim + 1
	for e, elem := range op.mesh.Elements {
		d := op.diff[op.mesh.ElemVoxel[e]]
		k := op.mesh.Stiffness[op.mesh.ElemType[e]]
		for a := 0; a < n; a++ {
			out[elem[a]] += op.dt * d * k[a*n+a]
		}
	}
}

// cgWork holds the vectors of one conjugate gradient solve.
type cgWork struct {
	r, z, p, ap, diag, b []float64
}

func newCGWork(n int) *cgWork {
	return &cgWork{
		r:    make([]float64, n),
		z:    make([]float64, n),
		p:    make([]float64, n),
		ap:   make([]float64, n),
		diag: make([]float64, n),
	}
}

// solve runs Jacobi-preconditioned conjugate gradients on op x = b, using
// x as the initial guess. It returns the number of iterations.
func (w *cgWork) solve(op *operator, b, x []float64, tol float64, maxIter int) (int, error) {
	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		for i := range x {
			x[i] = 0
		}
		return 0, nil
	}
	op.diagonal(w.diag)

	op.apply(x, w.ap)
	floats.SubTo(w.r, b, w.ap)
	if floats.Norm(w.r, 2) <= tol*bnorm {
		return 0, nil
	}
	floats.DivTo(w.z, w.r, w.diag)
	copy(w.p, w.z)
	rz := floats.Dot(w.r, w.z)

	for it := 1; it <= maxIter; it++ {
		op.apply(w.p, w.ap)
		alpha := rz / floats.Dot(w.p, w.ap)
		floats.AddScaled(x, alpha, w.p)
		floats.AddScaled(w.r, -alpha, w.ap)
		if floats.Norm(w.r, 2) <= tol*bnorm {
			return it, nil
		}
		floats.DivTo(w.z, w.r, w.diag)
		next := floats.Dot(w.r, w.z)
		beta := next / rz
		rz = next
		floats.AddScaledTo(w.p, w.z, beta, w.p)
	}
	return maxIter, fmt.Errorf("%w: conjugate gradient did not converge in %d iterations", dynamo.ErrNumerical, maxIter)
}

func (w *cgWork) rhs(n int) []float64 {
	if cap(w.b) < n {
		w.b = make([]float64, n)
	}
	return w.b[:n]
}
