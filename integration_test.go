//go:build integration

package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// These tests exercise the built binary end to end, including the process
// isolation boundary. Build the binary first and point SQUEEZEOFF_BIN at it:
//
//	go build -o squeezeoff .
//	SQUEEZEOFF_BIN=$PWD/squeezeoff go test -tags integration .

const integrationCodec = `package codec

func Encode(X [][]float64) ([][2]int64, interface{}) {
	var stream [][2]int64
	for _, row := range X {
		for _, v := range row {
			stream = append(stream, [2]int64{int64(v), 8})
		}
	}
	header := map[string]interface{}{"rows": len(X), "cols": len(X[0])}
	return stream, header
}

func Decode(vlc [][2]int64, header interface{}) [][]float64 {
	h := header.(map[string]interface{})
	rows := int(h["rows"].(float64))
	cols := int(h["cols"].(float64))
	out := make([][]float64, rows)
	i := 0
	for r := 0; r < rows; r++ {
		out[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			out[r][c] = float64(vlc[i][0])
			i++
		}
	}
	return out
}

func HeaderBits(header interface{}) int { return 32 }
`

func binaryPath(t *testing.T) string {
	t.Helper()
	bin := os.Getenv("SQUEEZEOFF_BIN")
	if bin == "" {
		t.Skip("SQUEEZEOFF_BIN not set")
	}
	return bin
}

func setupSubmission(t *testing.T) (subPath, outDir string) {
	t.Helper()
	dir := t.TempDir()
	subPath = filepath.Join(dir, "codec.go")
	if err := os.WriteFile(subPath, []byte(integrationCodec), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir = filepath.Join(dir, "outputs")
	if err := os.Mkdir(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return subPath, outDir
}

func TestRunIdentityCodec(t *testing.T) {
	bin := binaryPath(t)
	subPath, outDir := setupSubmission(t)

	// 64x64 at 8 bits is 32768 payload bits, within budget, so the run
	// passes against the bundled gradient image.
	out, err := exec.Command(bin, "run", subPath, "--required", "sample://gradient").CombinedOutput()
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "summary.json"))
	if err != nil {
		t.Fatalf("summary.json not written: %v", err)
	}
	var summary struct {
		Required map[string]struct {
			RMS       float64 `json:"rms"`
			Fail      bool    `json:"fail"`
			TotalBits *int64  `json:"total_bits"`
		} `json:"required"`
		Failed bool `json:"failed"`
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("parsing summary: %v", err)
	}
	if summary.Failed {
		t.Errorf("run marked failed:\n%s", data)
	}
	r, ok := summary.Required["gradient"]
	if !ok {
		t.Fatalf("gradient missing from summary:\n%s", data)
	}
	if r.TotalBits == nil || *r.TotalBits != 64*64*8+32 {
		t.Errorf("total bits: got %v, want 32800", r.TotalBits)
	}
	if r.RMS != 0 {
		t.Errorf("identity codec RMS: got %v, want 0", r.RMS)
	}
}

func TestCheckCommand(t *testing.T) {
	bin := binaryPath(t)
	subPath, _ := setupSubmission(t)

	if out, err := exec.Command(bin, "check", subPath).CombinedOutput(); err != nil {
		t.Fatalf("check failed: %v\n%s", err, out)
	}
}

func TestRunFailsOnPanickingSubmission(t *testing.T) {
	bin := binaryPath(t)
	subPath, outDir := setupSubmission(t)
	broken := `package codec

func Encode(X [][]float64) ([][2]int64, interface{}) { panic("nope") }
func Decode(vlc [][2]int64, header interface{}) [][]float64 { return nil }
func HeaderBits(header interface{}) int { return 0 }
`
	if err := os.WriteFile(subPath, []byte(broken), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := exec.Command(bin, "run", subPath, "--required", "sample://gradient").CombinedOutput()
	if err == nil {
		t.Fatalf("run should exit non-zero for a failing required image:\n%s", out)
	}

	if _, err := os.Stat(filepath.Join(outDir, "summary.md")); err != nil {
		t.Errorf("summary.md should be written even for failed runs: %v", err)
	}
}
