package mat

import "fmt"

// Matrix is a dense 2-D float64 matrix stored row-major.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

func New(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

func (m *Matrix) At(r, c int) float64 {
	return m.Data[r*m.Cols+c]
}

func (m *Matrix) Set(r, c int, v float64) {
	m.Data[r*m.Cols+c] = v
}

// ToRows converts the matrix to a slice-of-rows form, the shape submissions
// receive across the worker boundary. The rows are copies; mutating them
// never touches the original matrix.
func (m *Matrix) ToRows() [][]float64 {
	rows := make([][]float64, m.Rows)
	for r := 0; r < m.Rows; r++ {
		row := make([]float64, m.Cols)
		copy(row, m.Data[r*m.Cols:(r+1)*m.Cols])
		rows[r] = row
	}
	return rows
}

// FromRows builds a matrix from slice-of-rows form. All rows must have the
// same length.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("matrix has zero columns")
	}
	m := New(len(rows), cols)
	for r, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged matrix: row %d has %d columns, want %d", r, len(row), cols)
		}
		copy(m.Data[r*cols:], row)
	}
	return m, nil
}
