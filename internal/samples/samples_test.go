package samples_test

import (
	"bytes"
	"testing"

	"github.com/mfellner/squeezeoff/internal/mat"
	"github.com/mfellner/squeezeoff/internal/samples"
)

func TestList(t *testing.T) {
	names := samples.List()
	if len(names) == 0 {
		t.Fatal("no bundled samples")
	}
	for _, name := range names {
		if name == "" {
			t.Error("empty sample name")
		}
	}
}

func TestOpenAndParse(t *testing.T) {
	for _, name := range samples.List() {
		data, err := samples.Open(name)
		if err != nil {
			t.Fatalf("Open(%q): %v", name, err)
		}
		m, err := mat.Read(bytes.NewReader(data), "X")
		if err != nil {
			t.Fatalf("parsing sample %q: %v", name, err)
		}
		if m.Rows == 0 || m.Cols == 0 {
			t.Errorf("sample %q has empty dimensions", name)
		}
		for _, v := range m.Data {
			if v < 0 || v > 255 {
				t.Errorf("sample %q has out-of-range pixel %v", name, v)
				break
			}
		}
	}
}

func TestOpenWithExtension(t *testing.T) {
	name := samples.List()[0]
	plain, err := samples.Open(name)
	if err != nil {
		t.Fatalf("Open(%q): %v", name, err)
	}
	withExt, err := samples.Open(name + ".mat")
	if err != nil {
		t.Fatalf("Open(%q.mat): %v", name, err)
	}
	if !bytes.Equal(plain, withExt) {
		t.Error("Open with and without extension returned different data")
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := samples.Open("no-such-sample"); err == nil {
		t.Error("expected error for missing sample")
	}
}

func TestIs(t *testing.T) {
	if !samples.Is("sample://gradient") {
		t.Error("sample:// identifier not recognized")
	}
	if samples.Is("gradient") {
		t.Error("bare identifier wrongly recognized as bundled")
	}
}
