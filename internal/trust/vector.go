package trust

import "math"

// Vector is a dense vector of trust values indexed like the nodes of a
// Context.
type Vector []float64

// NewVector returns a zero vector of the given size.
func NewVector(size int) Vector { return make(Vector, size) }

// Sum returns the sum of all elements.
func (v Vector) Sum() float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum
}

// Max returns the largest element, or 0 for an empty vector.
func (v Vector) Max() float64 {
	max := 0.0
	for i, x := range v {
		if i == 0 || x > max {
			max = x
		}
	}
	return max
}

// IsZero reports whether every element is zero.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Normalize scales v in place so its elements sum to one. A vector with a
// zero sum is left untouched.
func (v Vector) Normalize() Vector {
	sum := v.Sum()
	if sum == 0 {
		return v
	}
	for i := range v {
		v[i] /= sum
	}
	return v
}

// Scale multiplies every element by factor in place.
func (v Vector) Scale(factor float64) Vector {
	for i := range v {
		v[i] *= factor
	}
	return v
}

// Add adds other element-wise in place.
func (v Vector) Add(other Vector) Vector {
	for i := range v {
		v[i] += other[i]
	}
	return v
}

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	return append(Vector(nil), v...)
}

// L1Distance returns Σ|v_i - other_i|.
func (v Vector) L1Distance(other Vector) float64 {
	var d float64
	for i := range v {
		d += math.Abs(v[i] - other[i])
	}
	return d
}

// Matrix is a dense row-major matrix.
type Matrix struct {
	rows, cols int
	data       []float64
}

// NewMatrix returns a zero matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) At(i, j int) float64 { return m.data[i*m.cols+j] }
func (m *Matrix) Set(i, j int, x float64) { m.data[i*m.cols+j] = x }

// Row returns row i. The returned vector aliases the matrix.
func (m *Matrix) Row(i int) Vector {
	return Vector(m.data[i*m.cols : (i+1)*m.cols])
}

// SetRow copies v into row i.
func (m *Matrix) SetRow(i int, v Vector) {
	copy(m.Row(i), v)
}

// NormalizeRows normalizes every row with a non-zero sum.
func (m *Matrix) NormalizeRows() *Matrix {
	for i := 0; i < m.rows; i++ {
		m.Row(i).Normalize()
	}
	return m
}

// MultiplyTransposed returns Mᵀ·v, i.e. result_j = Σ_i v_i·M_ij.
func (m *Matrix) MultiplyTransposed(v Vector) Vector {
	result := NewVector(m.cols)
	for i := 0; i < m.rows; i++ {
		if v[i] == 0 {
			continue
		}
		row := m.Row(i)
		for j, x := range row {
			result[j] += v[i] * x
		}
	}
	return result
}
