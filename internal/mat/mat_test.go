package mat_test

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/mfellner/squeezeoff/internal/mat"
)

func testMatrix() *mat.Matrix {
	m := mat.New(3, 2)
	vals := [][]float64{{1, 2}, {3, 4}, {250.5, -7}}
	for r := 0; r < 3; r++ {
		for c := 0; c < 2; c++ {
			m.Set(r, c, vals[r][c])
		}
	}
	return m
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.mat")
	want := testMatrix()
	if err := mat.WriteFile(path, "X", want); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := mat.ReadFile(path, "X")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Rows != want.Rows || got.Cols != want.Cols {
		t.Fatalf("shape: got %dx%d, want %dx%d", got.Rows, got.Cols, want.Rows, want.Cols)
	}
	for i := range want.Data {
		if got.Data[i] != want.Data[i] {
			t.Errorf("data[%d]: got %v, want %v", i, got.Data[i], want.Data[i])
		}
	}
}

func TestReadMissingVariable(t *testing.T) {
	var buf bytes.Buffer
	if err := mat.Write(&buf, "X", testMatrix()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := mat.Read(bytes.NewReader(buf.Bytes()), "Y"); err == nil {
		t.Error("expected error for missing variable")
	}
}

func TestReadCompressedElement(t *testing.T) {
	var buf bytes.Buffer
	if err := mat.Write(&buf, "X", testMatrix()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw := buf.Bytes()

	// Rebuild the file with the matrix element wrapped in a compressed
	// element, the way scipy writes MAT files by default.
	var deflated bytes.Buffer
	zw := zlib.NewWriter(&deflated)
	if _, err := zw.Write(raw[128:]); err != nil {
		t.Fatalf("compressing element: %v", err)
	}
	zw.Close()

	var file bytes.Buffer
	file.Write(raw[:128])
	var tag [8]byte
	binary.LittleEndian.PutUint32(tag[:], 15) // miCOMPRESSED
	binary.LittleEndian.PutUint32(tag[4:], uint32(deflated.Len()))
	file.Write(tag[:])
	file.Write(deflated.Bytes())

	got, err := mat.Read(bytes.NewReader(file.Bytes()), "X")
	if err != nil {
		t.Fatalf("Read compressed: %v", err)
	}
	want := testMatrix()
	for i := range want.Data {
		if got.Data[i] != want.Data[i] {
			t.Errorf("data[%d]: got %v, want %v", i, got.Data[i], want.Data[i])
		}
	}
}

func TestReadTruncated(t *testing.T) {
	if _, err := mat.Read(bytes.NewReader([]byte("not a mat file")), "X"); err == nil {
		t.Error("expected error for truncated file")
	}
}

func TestFromRows(t *testing.T) {
	m, err := mat.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if m.Rows != 2 || m.Cols != 3 {
		t.Fatalf("shape: got %dx%d, want 2x3", m.Rows, m.Cols)
	}
	if m.At(1, 2) != 6 {
		t.Errorf("At(1,2): got %v, want 6", m.At(1, 2))
	}
	if _, err := mat.FromRows([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("expected error for ragged rows")
	}
	if _, err := mat.FromRows(nil); err == nil {
		t.Error("expected error for empty matrix")
	}
}

func TestToRowsCopies(t *testing.T) {
	m := testMatrix()
	rows := m.ToRows()
	rows[0][0] = 99
	if m.At(0, 0) == 99 {
		t.Error("ToRows must copy, not alias, the matrix data")
	}
}
