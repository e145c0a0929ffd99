package runner

import (
	"bytes"
	"strings"

	"github.com/mfellner/squeezeoff/internal/mat"
	"github.com/mfellner/squeezeoff/internal/samples"
)

// matVariable is the variable name reference images are stored under.
const matVariable = "X"

// ResolveImage maps an image identifier to a display name and a source.
// Identifiers with the sample:// scheme address the bundled bank, with the
// scheme and .mat suffix stripped from the display name; a bare identifier
// gets the .mat extension appended; an identifier already carrying it is
// used verbatim.
func ResolveImage(id string) (name, path string, bundled bool) {
	if samples.Is(id) {
		name = strings.TrimPrefix(id, samples.Scheme)
		path = name
		name = strings.TrimSuffix(name, ".mat")
		return name, path, true
	}
	if !strings.HasSuffix(id, ".mat") {
		return id, id + ".mat", false
	}
	return id, id, false
}

// LoadImage resolves and loads a reference image. The returned matrix is
// treated as read-only for the rest of the run; workers only ever receive
// serialized copies of it.
func LoadImage(id string) (name string, x *mat.Matrix, err error) {
	name, path, bundled := ResolveImage(id)
	if bundled {
		data, err := samples.Open(path)
		if err != nil {
			return name, nil, err
		}
		x, err = mat.Read(bytes.NewReader(data), matVariable)
		return name, x, err
	}
	x, err = mat.ReadFile(path, matVariable)
	return name, x, err
}
