// Package mat loads and saves 2-D matrices in MATLAB level-5 MAT files, the
// interchange format the competition's reference images are distributed in.
// Only the subset needed by the harness is supported: little-endian files,
// dense 2-D numeric arrays, and zlib-compressed elements on read.
package mat

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// MAT-file data types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miMATRIX     = 14
	miCOMPRESSED = 15
)

// MAT-file array classes.
const (
	mxDOUBLE = 6
	mxSINGLE = 7
	mxINT8   = 8
	mxUINT8  = 9
	mxINT16  = 10
	mxUINT16 = 11
	mxINT32  = 12
	mxUINT32 = 13
)

const headerLen = 128

// ReadFile loads the named 2-D numeric variable from a MAT file on disk.
func ReadFile(path, name string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := Read(bytes.NewReader(data), name)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// Read loads the named 2-D numeric variable from MAT-file content.
func Read(r io.Reader, name string) (*Matrix, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerLen {
		return nil, fmt.Errorf("truncated MAT header (%d bytes)", len(data))
	}
	if data[126] != 'I' || data[127] != 'M' {
		return nil, fmt.Errorf("unsupported MAT endian indicator %q", string(data[126:128]))
	}

	off := headerLen
	for off < len(data) {
		dtype, payload, next, err := readElement(data, off)
		if err != nil {
			return nil, err
		}
		switch dtype {
		case miCOMPRESSED:
			zr, err := zlib.NewReader(bytes.NewReader(payload))
			if err != nil {
				return nil, fmt.Errorf("opening compressed element: %w", err)
			}
			inflated, err := io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil, fmt.Errorf("inflating compressed element: %w", err)
			}
			itype, ipayload, _, err := readElement(inflated, 0)
			if err != nil {
				return nil, err
			}
			if itype == miMATRIX {
				m, varName, err := parseMatrix(ipayload)
				if err != nil {
					return nil, err
				}
				if varName == name {
					return m, nil
				}
			}
		case miMATRIX:
			m, varName, err := parseMatrix(payload)
			if err != nil {
				return nil, err
			}
			if varName == name {
				return m, nil
			}
		}
		off = next
	}
	return nil, fmt.Errorf("variable %q not found", name)
}

// readElement parses one tagged data element starting at off, handling the
// small-element packing used for payloads of four bytes or fewer.
func readElement(data []byte, off int) (dtype int, payload []byte, next int, err error) {
	if off+8 > len(data) {
		return 0, nil, 0, fmt.Errorf("truncated element tag at offset %d", off)
	}
	first := binary.LittleEndian.Uint32(data[off:])
	if first>>16 != 0 {
		// Small element: size and type share the first word.
		size := int(first >> 16)
		dtype = int(first & 0xffff)
		if size > 4 {
			return 0, nil, 0, fmt.Errorf("small element with size %d at offset %d", size, off)
		}
		return dtype, data[off+4 : off+4+size], off + 8, nil
	}
	dtype = int(first)
	size := int(binary.LittleEndian.Uint32(data[off+4:]))
	if off+8+size > len(data) {
		return 0, nil, 0, fmt.Errorf("element at offset %d overruns file (size %d)", off, size)
	}
	payload = data[off+8 : off+8+size]
	next = off + 8 + size
	// Compressed elements are not padded; everything else aligns to 8 bytes.
	if dtype != miCOMPRESSED && next%8 != 0 {
		next += 8 - next%8
	}
	return dtype, payload, next, nil
}

// parseMatrix decodes a miMATRIX payload into a Matrix and its variable name.
func parseMatrix(payload []byte) (*Matrix, string, error) {
	off := 0

	ftype, flags, next, err := readElement(payload, off)
	if err != nil {
		return nil, "", err
	}
	if ftype != miUINT32 || len(flags) < 8 {
		return nil, "", fmt.Errorf("malformed array flags element (type %d)", ftype)
	}
	class := int(flags[0])
	switch class {
	case mxDOUBLE, mxSINGLE, mxINT8, mxUINT8, mxINT16, mxUINT16, mxINT32, mxUINT32:
	default:
		return nil, "", fmt.Errorf("unsupported array class %d", class)
	}
	off = next

	dtype, dims, next, err := readElement(payload, off)
	if err != nil {
		return nil, "", err
	}
	if dtype != miINT32 || len(dims) != 8 {
		return nil, "", fmt.Errorf("only 2-D arrays are supported")
	}
	rows := int(int32(binary.LittleEndian.Uint32(dims)))
	cols := int(int32(binary.LittleEndian.Uint32(dims[4:])))
	if rows <= 0 || cols <= 0 {
		return nil, "", fmt.Errorf("invalid dimensions %dx%d", rows, cols)
	}
	off = next

	ntype, nameBytes, next, err := readElement(payload, off)
	if err != nil {
		return nil, "", err
	}
	if ntype != miINT8 {
		return nil, "", fmt.Errorf("malformed array name element (type %d)", ntype)
	}
	varName := string(nameBytes)
	off = next

	vtype, values, _, err := readElement(payload, off)
	if err != nil {
		return nil, "", err
	}
	m, err := decodeValues(vtype, values, rows, cols)
	if err != nil {
		return nil, "", fmt.Errorf("variable %q: %w", varName, err)
	}
	return m, varName, nil
}

// decodeValues converts raw column-major element data to a row-major matrix.
func decodeValues(dtype int, data []byte, rows, cols int) (*Matrix, error) {
	n := rows * cols
	read := func(width int, at func(i int) float64) (*Matrix, error) {
		if len(data) < n*width {
			return nil, fmt.Errorf("data element too short: %d bytes for %d values", len(data), n)
		}
		m := New(rows, cols)
		for c := 0; c < cols; c++ {
			for r := 0; r < rows; r++ {
				m.Set(r, c, at(c*rows+r))
			}
		}
		return m, nil
	}
	le := binary.LittleEndian
	switch dtype {
	case miDOUBLE:
		return read(8, func(i int) float64 { return math.Float64frombits(le.Uint64(data[i*8:])) })
	case miSINGLE:
		return read(4, func(i int) float64 { return float64(math.Float32frombits(le.Uint32(data[i*4:]))) })
	case miINT8:
		return read(1, func(i int) float64 { return float64(int8(data[i])) })
	case miUINT8:
		return read(1, func(i int) float64 { return float64(data[i]) })
	case miINT16:
		return read(2, func(i int) float64 { return float64(int16(le.Uint16(data[i*2:]))) })
	case miUINT16:
		return read(2, func(i int) float64 { return float64(le.Uint16(data[i*2:])) })
	case miINT32:
		return read(4, func(i int) float64 { return float64(int32(le.Uint32(data[i*4:]))) })
	case miUINT32:
		return read(4, func(i int) float64 { return float64(le.Uint32(data[i*4:])) })
	}
	return nil, fmt.Errorf("unsupported data element type %d", dtype)
}

// WriteFile saves a matrix as an uncompressed double-precision MAT file.
func WriteFile(path, name string, m *Matrix) error {
	var buf bytes.Buffer
	if err := Write(&buf, name, m); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Write serializes a matrix as an uncompressed double-precision MAT file.
func Write(w io.Writer, name string, m *Matrix) error {
	if m.Rows <= 0 || m.Cols <= 0 {
		return fmt.Errorf("cannot write empty matrix")
	}

	le := binary.LittleEndian
	header := make([]byte, headerLen)
	copy(header, "MATLAB 5.0 MAT-file, created by squeezeoff")
	for i := len("MATLAB 5.0 MAT-file, created by squeezeoff"); i < 124; i++ {
		header[i] = ' '
	}
	le.PutUint16(header[124:], 0x0100)
	header[126] = 'I'
	header[127] = 'M'
	if _, err := w.Write(header); err != nil {
		return err
	}

	nameBytes := []byte(name)
	namePad := pad8(len(nameBytes))
	dataLen := m.Rows * m.Cols * 8
	dataPad := pad8(dataLen)
	// flags(16) + dims(16) + name(8+len+pad) + data(8+len+pad)
	total := 16 + 16 + 8 + len(nameBytes) + namePad + 8 + dataLen + dataPad

	var buf bytes.Buffer
	writeTag := func(dtype, size int) {
		var tag [8]byte
		le.PutUint32(tag[:], uint32(dtype))
		le.PutUint32(tag[4:], uint32(size))
		buf.Write(tag[:])
	}

	writeTag(miMATRIX, total)

	writeTag(miUINT32, 8)
	var flags [8]byte
	flags[0] = mxDOUBLE
	buf.Write(flags[:])

	writeTag(miINT32, 8)
	var dims [8]byte
	le.PutUint32(dims[:], uint32(m.Rows))
	le.PutUint32(dims[4:], uint32(m.Cols))
	buf.Write(dims[:])

	writeTag(miINT8, len(nameBytes))
	buf.Write(nameBytes)
	buf.Write(make([]byte, namePad))

	writeTag(miDOUBLE, dataLen)
	var v [8]byte
	for c := 0; c < m.Cols; c++ {
		for r := 0; r < m.Rows; r++ {
			le.PutUint64(v[:], math.Float64bits(m.At(r, c)))
			buf.Write(v[:])
		}
	}
	buf.Write(make([]byte, dataPad))

	_, err := w.Write(buf.Bytes())
	return err
}

func pad8(n int) int {
	if n%8 == 0 {
		return 0
	}
	return 8 - n%8
}
