// Package report turns evaluated image records into the run's artifacts:
// the human-readable summary.md, the machine-readable summary.json, the
// per-image reconstruction/difference/container files, and CI annotations.
// Rendering is a side effect; the pass/fail aggregation itself is pure.
package report

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mfellner/squeezeoff/internal/result"
	"github.com/mfellner/squeezeoff/internal/runner"
	"go.uber.org/zap"
)

//go:embed show_image.svg
var svgTemplate string

// Aggregate combines per-image records into the competition verdict. A
// record fails if encode or decode raised, the payload bit count could not
// be computed, or the total exceeds the budget — all of which the pipeline
// has already folded into Failed. Only required-group failures flip the
// overall flag; supplementary failures are reported and nothing more.
func Aggregate(required, extra []*runner.ImageRecord) *result.Summary {
	s := &result.Summary{
		Required: make(map[string]result.ImageResult),
		Extra:    make(map[string]result.ImageResult),
	}
	for _, r := range required {
		s.Required[r.Name] = toResult(r)
		s.Failed = s.Failed || r.Failed
	}
	for _, r := range extra {
		s.Extra[r.Name] = toResult(r)
	}
	return s
}

func toResult(r *runner.ImageRecord) result.ImageResult {
	return result.ImageResult{RMS: r.RMS, Fail: r.Failed, TotalBits: r.TotalBits}
}

// Render writes every run artifact into outDir and returns the verdict.
// It always enumerates every attempted image, failed or not.
func Render(outDir string, required, extra []*runner.ImageRecord, ci *CISink, logger *zap.Logger) (*result.Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	summary := Aggregate(required, extra)

	f, err := os.Create(filepath.Join(outDir, "summary.md"))
	if err != nil {
		return nil, fmt.Errorf("creating summary.md: %w", err)
	}
	defer f.Close()

	groups := []struct {
		header  string
		records []*runner.ImageRecord
	}{
		{"Submission results", required},
		{"Other images", extra},
	}
	for _, g := range groups {
		if len(g.records) == 0 {
			continue
		}
		fmt.Fprintf(f, "<h1>%s</h1>\n\n", g.header)
		fmt.Fprintln(f, "<table>")
		fmt.Fprintln(f, "<tr>")
		for _, r := range g.records {
			if err := renderCell(f, outDir, r, logger); err != nil {
				return nil, err
			}
		}
		fmt.Fprintln(f, "</tr>")
		fmt.Fprintln(f, "</table>")
	}

	if err := result.WriteSummary(outDir, summary); err != nil {
		return nil, err
	}

	emitCI(ci, required, extra)
	return summary, nil
}

// renderCell writes one image's table cell plus its artifact files.
func renderCell(w io.Writer, outDir string, r *runner.ImageRecord, logger *zap.Logger) error {
	mark := "✔️"
	if r.Failed {
		mark = "❌"
	}
	fmt.Fprintln(w, "<td>")
	fmt.Fprintf(w, "<h2>%s %s</h2>\n", r.Name, mark)

	if err := os.MkdirAll(filepath.Dir(filepath.Join(outDir, r.Name)), 0o755); err != nil {
		return fmt.Errorf("creating image output dir: %w", err)
	}

	if r.ExecErr != nil {
		fmt.Fprintf(w, "<p><b>❌ FAILED</b></p>\n")
		fmt.Fprintf(w, "<pre>%s</pre>\n", html.EscapeString(r.ExecErr.Message))
		if trace := r.ExecErr.Trace(); trace != "" {
			fmt.Fprintf(w, "<details><summary>Stack trace</summary><pre>%s</pre></details>\n",
				html.EscapeString(trace))
		}
	}

	if r.Clipped != nil {
		pngPath := filepath.Join(outDir, r.Name+".png")
		diffPath := filepath.Join(outDir, r.Name+"-diff.png")
		if err := writePNG(pngPath, GrayImage(r.Clipped)); err != nil {
			return err
		}
		if err := writePNG(diffPath, DiffImage(r.X, r.Clipped)); err != nil {
			return err
		}
		if err := writeSVG(filepath.Join(outDir, r.Name+".svg"), pngPath, diffPath); err != nil {
			return err
		}
		fmt.Fprintf(w, "<img src=\"./%s.svg?raw=true\" alt=\"%s (output)\">\n", r.Name, r.Name)
	}

	if r.Enc != nil {
		encPath := filepath.Join(outDir, r.Name+".enc.json")
		artifact := &result.Artifact{VLC: r.Enc.VLC, Header: r.Enc.Header, HeaderBits: r.Enc.HeaderBits}
		if err := result.WriteArtifact(encPath, artifact); err != nil {
			return err
		}

		fmt.Fprintln(w, "<table>")
		fmt.Fprintf(w, "<tr><th rowspan='3' scope='row'>Bit counts</th><th scope='row'>header</th><td>%d</td></tr>\n", r.Enc.HeaderBits)
		if r.VLCBits == nil {
			fmt.Fprintf(w, "<tr><th scope='row'>vlc</th><td>❌ INVALID!<br />%s</td></tr>\n", html.EscapeString(r.VLCErr))
			fmt.Fprintln(w, "<tr><th scope='row'>total</th><td>&mdash;</td></tr>")
		} else {
			fmt.Fprintf(w, "<tr><th scope='row'>vlc</th><td>%d</td></tr>\n", *r.VLCBits)
			fmt.Fprintf(w, "<tr><th scope='row'>total</th><td>%d</td></tr>\n", *r.TotalBits)
		}
		if r.Clipped != nil {
			fmt.Fprintf(w, "<tr><th colspan='2' scope='row'>RMS Error</th><td>%.3f</td></tr>\n", r.RMS)
		}
		fmt.Fprintln(w, "</table>")
		if r.TotalBits != nil && *r.TotalBits > runner.BitBudget {
			fmt.Fprintf(w, "<p><b>❌ TOO LARGE!</b> Must be at most %d bits</p>\n", runner.BitBudget)
		}
		if len(r.Enc.Header) > 0 && string(r.Enc.Header) != "null" {
			fmt.Fprintln(w, "<details><summary>Header contents</summary><pre>")
			fmt.Fprintln(w, html.EscapeString(string(r.Enc.Header)))
			fmt.Fprintln(w, "</pre></details>")
		}
		fmt.Fprintf(w, "<a href=\"./%s.enc.json?raw=true\" download>🗄️ Download encoded data</a>\n", r.Name)
	}

	fmt.Fprintln(w, "</td>")
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

// writeSVG embeds both rendered PNGs into the container template as inline
// base64 data, so the file previews standalone.
func writeSVG(path, imgPath, diffPath string) error {
	imgData, err := asBase64(imgPath)
	if err != nil {
		return err
	}
	diffData, err := asBase64(diffPath)
	if err != nil {
		return err
	}
	svg := strings.Replace(svgTemplate, "$DATA", imgData, 1)
	svg = strings.Replace(svg, "$DIFF_DATA", diffData, 1)
	return os.WriteFile(path, []byte(svg), 0o644)
}

func asBase64(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return "data:image/png; base64, " + base64.StdEncoding.EncodeToString(data), nil
}

// emitCI writes per-frame error annotations for every failed call and the
// machine-readable RMS map for the required group.
func emitCI(ci *CISink, required, extra []*runner.ImageRecord) {
	if ci == nil || !ci.Enabled {
		return
	}
	for _, r := range append(append([]*runner.ImageRecord{}, required...), extra...) {
		if r.ExecErr == nil {
			continue
		}
		trace := r.ExecErr.Trace()
		for _, frame := range r.ExecErr.Frames {
			ci.ErrorAnnotation(frame.File, frame.Line, r.ExecErr.Message, trace)
		}
		if len(r.ExecErr.Frames) == 0 {
			ci.ErrorAnnotation("", 0, r.ExecErr.Message, r.ExecErr.Message)
		}
	}
	rms := make(map[string]float64, len(required))
	for _, r := range required {
		rms[r.Name] = r.RMS
	}
	data, err := json.Marshal(rms)
	if err == nil {
		ci.SetOutput("RMS", string(data))
	}
}
