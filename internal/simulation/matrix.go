package simulation

// PricePathMatrix holds simulated prices as Steps()+1 time rows by
// Simulations() columns, stored row-major. Row 0 is the initial price.
// A matrix is read-only once returned by the simulator.
type PricePathMatrix struct {
	steps int
	sims  int
	data  []float64
}

func newPricePathMatrix(steps, sims int, s0 float64) *PricePathMatrix {
	m := &PricePathMatrix{
		steps: steps,
		sims:  sims,
		data:  make([]float64, (steps+1)*sims),
	}
	for j := 0; j < sims; j++ {
		m.data[j] = s0
	}
	return m
}

// Steps returns the number of time steps (rows minus one)
func (m *PricePathMatrix) Steps() int {
	return m.steps
}

// Simulations returns the number of simulated paths (columns)
func (m *PricePathMatrix) Simulations() int {
	return m.sims
}

// Shape returns (rows, columns)
func (m *PricePathMatrix) Shape() (int, int) {
	return m.steps + 1, m.sims
}

// At returns the price at time row t on path j
func (m *PricePathMatrix) At(t, j int) float64 {
	return m.data[t*m.sims+j]
}

// Row returns time row t. The slice aliases the matrix and must not be modified.
func (m *PricePathMatrix) Row(t int) []float64 {
	return m.data[t*m.sims : (t+1)*m.sims]
}

// FinalRow returns the prices at maturity. The slice aliases the matrix.
func (m *PricePathMatrix) FinalRow() []float64 {
	return m.Row(m.steps)
}

// Column returns a copy of path j across all time rows
func (m *PricePathMatrix) Column(j int) []float64 {
	col := make([]float64, m.steps+1)
	for t := range col {
		col[t] = m.data[t*m.sims+j]
	}
	return col
}

// SamplePaths returns copies of the first n paths, or of all of them when
// fewer exist
func (m *PricePathMatrix) SamplePaths(n int) [][]float64 {
	n = min(n, m.sims)
	if n < 0 {
		n = 0
	}

	paths := make([][]float64, n)
	for j := range paths {
		paths[j] = m.Column(j)
	}
	return paths
}
