// Package submission loads third-party codec submissions. A submission is a
// Go source file (or a directory of Go files in one package) interpreted at
// runtime, so broken code fails at load or call time instead of requiring a
// compile step, and each worker process can re-load it independently.
//
// A submission must export exactly three functions:
//
//	func Encode(X [][]float64) ([][2]int64, interface{})
//	func Decode(vlc [][2]int64, header interface{}) [][]float64
//	func HeaderBits(header interface{}) int
//
// The header value is owned by the submission; the harness only requires
// that it survives a JSON round trip between the encode and decode workers.
package submission

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// EncodeFunc produces a codeword stream and an opaque header for an image.
type EncodeFunc func(x [][]float64) ([][2]int64, interface{})

// DecodeFunc reconstructs an image from a codeword stream and header.
type DecodeFunc func(vlc [][2]int64, header interface{}) [][]float64

// HeaderBitsFunc declares the bit cost of a header. The count is
// submission-supplied and trusted beyond a non-negativity check.
type HeaderBitsFunc func(header interface{}) int

// Submission is a validated capability triple loaded from user code.
type Submission struct {
	Path       string
	Package    string
	Encode     EncodeFunc
	Decode     DecodeFunc
	HeaderBits HeaderBitsFunc
}

// MissingCapabilityError reports that a required function is absent from the
// submission. Loading stops at the first missing capability, before any
// image is processed.
type MissingCapabilityError struct {
	Capability string
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("no %s function found in submission", e.Capability)
}

// Load interprets the submission source at path and resolves its three
// capabilities. Interpreting the source may run package-level code; that is
// accepted risk, bounded by process isolation at call time, not here.
func Load(path string) (*Submission, error) {
	files, err := sourceFiles(path)
	if err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading interpreter stdlib: %w", err)
	}

	pkg := ""
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading submission: %w", err)
		}
		if pkg == "" {
			pkg = packageName(string(src))
		}
		if _, err := i.Eval(string(src)); err != nil {
			return nil, fmt.Errorf("interpreting %s: %w", filepath.Base(file), err)
		}
	}
	if pkg == "" {
		return nil, fmt.Errorf("no package clause found in %s", path)
	}

	sub := &Submission{Path: path, Package: pkg}

	v, err := i.Eval(pkg + ".HeaderBits")
	if err != nil {
		return nil, &MissingCapabilityError{Capability: "HeaderBits"}
	}
	hb, ok := v.Interface().(func(interface{}) int)
	if !ok {
		return nil, fmt.Errorf("HeaderBits has wrong signature: want func(interface{}) int")
	}
	sub.HeaderBits = hb

	v, err = i.Eval(pkg + ".Encode")
	if err != nil {
		return nil, &MissingCapabilityError{Capability: "Encode"}
	}
	enc, ok := v.Interface().(func([][]float64) ([][2]int64, interface{}))
	if !ok {
		return nil, fmt.Errorf("Encode has wrong signature: want func([][]float64) ([][2]int64, interface{})")
	}
	sub.Encode = enc

	v, err = i.Eval(pkg + ".Decode")
	if err != nil {
		return nil, &MissingCapabilityError{Capability: "Decode"}
	}
	dec, ok := v.Interface().(func([][2]int64, interface{}) [][]float64)
	if !ok {
		return nil, fmt.Errorf("Decode has wrong signature: want func([][2]int64, interface{}) [][]float64")
	}
	sub.Decode = dec

	return sub, nil
}

// sourceFiles resolves a submission path to the Go files it comprises.
func sourceFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("resolving submission %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading submission dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(path, name))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Go source files in submission %s", path)
	}
	sort.Strings(files)
	return files, nil
}

// packageName extracts the package clause from Go source.
func packageName(src string) string {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "package ") {
			name := strings.TrimPrefix(line, "package ")
			if i := strings.IndexAny(name, " \t/"); i >= 0 {
				name = name[:i]
			}
			return name
		}
	}
	return ""
}
