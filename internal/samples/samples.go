// Package samples bundles the competition's reference image bank into the
// binary. Images are addressed with the sample:// scheme, e.g.
// sample://gradient or sample://gradient.mat.
package samples

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

// Scheme is the identifier prefix that resolves into the bundled bank.
const Scheme = "sample://"

//go:embed images/*.mat
var bank embed.FS

// Is reports whether an image identifier addresses the bundled bank.
func Is(id string) bool {
	return strings.HasPrefix(id, Scheme)
}

// List returns the bundled image names, without the .mat extension.
func List() []string {
	entries, err := bank.ReadDir("images")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".mat"))
	}
	sort.Strings(names)
	return names
}

// Open returns the MAT-file content for a bundled image. The name may be
// given with or without the .mat extension.
func Open(name string) ([]byte, error) {
	if !strings.HasSuffix(name, ".mat") {
		name += ".mat"
	}
	data, err := bank.ReadFile("images/" + name)
	if err != nil {
		return nil, fmt.Errorf("no bundled sample %q", strings.TrimSuffix(name, ".mat"))
	}
	return data, nil
}
