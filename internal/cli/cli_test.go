package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-geometry/pkg/geometry"
	"github.com/menta2k/image-geometry/pkg/modifier"
)

// run executes the command tree with a config file written into a temp dir
func run(t *testing.T, cfgYAML string, args ...string) (string, string, error) {
	t.Helper()

	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("output:\n  colors: false\n"+cfgYAML), 0o644))

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", cfgFile}, args...))

	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestHelpListsCommands(t *testing.T) {
	out, _, err := run(t, "", "--help")
	require.NoError(t, err)

	for _, name := range []string{"resolve", "crop", "render", "detect", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)

	out, _, err = run(t, "", "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version, info["version"])
	assert.Contains(t, info, "goVersion")
}

func TestResolveTable(t *testing.T) {
	out, _, err := run(t, "", "resolve", "--original", "1600x900", "--width", "800")
	require.NoError(t, err)

	assert.Contains(t, out, "800x450")
	assert.Contains(t, out, "16:9")
	assert.Contains(t, out, "original")
}

func TestResolveJSON(t *testing.T) {
	out, _, err := run(t, "", "resolve", "--original", "1600x900", "--query", "w=800", "--json")
	require.NoError(t, err)

	var res resolveResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, geometry.NewDimensions(1600, 900), res.Original)
	assert.Equal(t, 800, res.Request.Width)
	assert.Equal(t, 0, res.Request.Height)
	assert.Equal(t, geometry.NewDimensions(800, 450), res.Resolved.Dimensions())
	assert.Equal(t, geometry.NewDimensions(1, 1), res.Resolved.Density)
	assert.Equal(t, geometry.NewDimensions(800, 450), res.Pixels)
	assert.Nil(t, res.Crop)
}

func TestResolveWithCropAndDensity(t *testing.T) {
	out, _, err := run(t, "", "resolve", "--original", "100x100", "--size", "400x400", "--json")
	require.NoError(t, err)

	var res resolveResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, geometry.NewDimensions(100, 100), res.Resolved.Dimensions())
	assert.Equal(t, geometry.NewDimensions(4, 4), res.Resolved.Density)

	out, _, err = run(t, "", "resolve", "--original", "1600x900", "--width", "400", "--crop", "0,0,800,900", "--json")
	require.NoError(t, err)

	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Crop)
	assert.Equal(t, geometry.NewDimensions(400, 450), res.Resolved.Dimensions())
}

func TestResolveLimit(t *testing.T) {
	_, _, err := run(t, "limits:\n  max_width: 500\n", "resolve", "--original", "1600x900", "--width", "800")
	require.Error(t, err)
	assert.ErrorIs(t, err, modifier.ErrSizeLimit)

	// flags win over the file
	_, _, err = run(t, "limits:\n  max_width: 500\n", "--max-width", "1000", "resolve", "--original", "1600x900", "--width", "800")
	assert.NoError(t, err)
}

func TestResolveRequiresOriginal(t *testing.T) {
	_, _, err := run(t, "", "resolve", "--width", "800")
	assert.Error(t, err)
}

func TestCropRemap(t *testing.T) {
	out, _, err := run(t, "", "crop", "--crop", "100,50,800,600@1600x900", "--to", "800x450", "--json")
	require.NoError(t, err)

	var c geometry.Crop
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, 50, c.X)
	assert.Equal(t, 25, c.Y)
	assert.Equal(t, 400, c.Width)
	assert.Equal(t, 300, c.Height)
	assert.Equal(t, geometry.NewDimensions(800, 450), c.Source())

	out, _, err = run(t, "", "crop", "--crop", "100,50,800,600@1600x900", "--to", "800x450")
	require.NoError(t, err)
	assert.Contains(t, out, "normalized")
}

func TestCropRatio(t *testing.T) {
	out, _, err := run(t, "", "crop", "--original", "1600x900", "--ratio", "square", "--json")
	require.NoError(t, err)

	var results []struct {
		Name string        `json:"name"`
		Crop geometry.Crop `json:"crop"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 900, results[0].Crop.Width)
	assert.Equal(t, 900, results[0].Crop.Height)
	assert.Equal(t, 350, results[0].Crop.X)
}

func TestCropNeedsMode(t *testing.T) {
	_, _, err := run(t, "", "crop")
	assert.Error(t, err)

	_, _, err = run(t, "", "crop", "--crop", "0,0,10,10")
	assert.Error(t, err)

	_, _, err = run(t, "", "crop", "--original", "100x100", "--ratio", "square", "--focus", "2,0")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	writePNG(t, input, 200, 100)
	outDir := filepath.Join(dir, "out")

	out, _, err := run(t, "", "render", input, "--width", "100", "--out", outDir)
	require.NoError(t, err)

	expected := filepath.Join(outDir, "photo_100x50.png")
	assert.FileExists(t, expected)
	assert.Contains(t, out, "100x50")
	assert.Contains(t, out, "[OK]")
}

func TestRenderDirectoryJSON(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(in, 0o755))
	writePNG(t, filepath.Join(in, "a.png"), 120, 60)
	writePNG(t, filepath.Join(in, "b.png"), 60, 120)
	outDir := filepath.Join(dir, "out")

	out, _, err := run(t, "", "render", in, "--size", "30x30", "--ratio", "square", "--format", "jpg", "--out", outDir, "--json")
	require.NoError(t, err)

	var results []struct {
		Output string          `json:"output"`
		Format modifier.Format `json:"format"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, modifier.FormatJPEG, r.Format)
		assert.True(t, strings.HasSuffix(r.Output, "_30x30.jpg"), r.Output)
		assert.FileExists(t, r.Output)
	}
}

func TestRenderReportsFailures(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	writePNG(t, input, 40, 40)

	_, stderr, err := run(t, "", "render", input, filepath.Join(dir, "missing.png"), "--out", filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, stderr, "missing.png")
}

func fakeOllama(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "minicpm-v4.5",
			"message": map[string]string{"role": "assistant", "content": answer},
			"done":    true,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDetect(t *testing.T) {
	answer := `{"primary":{"label":"dog","confidence":0.9,"box":{"x":0.25,"y":0.25,"w":0.5,"h":0.5},"cx":0.5,"cy":0.5},"description":"a dog","tags":["Dog"]}`
	srv := fakeOllama(t, answer)

	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	writePNG(t, input, 400, 300)
	outDir := filepath.Join(dir, "out")

	out, _, err := run(t, "", "detect", input,
		"--url", srv.URL,
		"--out", outDir,
		"--sizes", "100x100,200x100",
		"--debug",
		"--json",
	)
	require.NoError(t, err)

	var res detectResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "dog", res.Subject.Primary.Label)
	require.NotNil(t, res.Region)
	assert.Equal(t, 100, res.Region.X)
	assert.Equal(t, 200, res.Region.Width)

	require.Len(t, res.Crops, 2)
	assert.Equal(t, filepath.Join(outDir, "001_100x100.png"), res.Crops[0].Output)
	assert.Equal(t, 300, res.Crops[0].Crop.Width)
	assert.Equal(t, 300, res.Crops[0].Crop.Height)
	assert.Equal(t, filepath.Join(outDir, "002_200x100.png"), res.Crops[1].Output)
	for _, c := range res.Crops {
		assert.FileExists(t, c.Output)
		assert.FileExists(t, c.Debug)
	}
	assert.FileExists(t, filepath.Join(outDir, "model_output.json"))
}

func TestDetectTable(t *testing.T) {
	srv := fakeOllama(t, `no json here`)

	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	writePNG(t, input, 200, 200)

	out, stderr, err := run(t, "", "detect", input, "--url", srv.URL, "--out", filepath.Join(dir, "out"), "--sizes", "50x50")
	require.NoError(t, err)
	assert.Contains(t, stderr, "no subject detected")
	assert.Contains(t, out, "Subject")
	assert.Contains(t, out, "50x50")
}

func TestDetectProbe(t *testing.T) {
	srv := fakeOllama(t, "  I can see a gradient.  ")

	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	writePNG(t, input, 64, 64)

	out, _, err := run(t, "", "detect", input, "--url", srv.URL, "--probe")
	require.NoError(t, err)
	assert.Equal(t, "I can see a gradient.\n", out)
}

func TestDetectRejectsBadSizes(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	writePNG(t, input, 64, 64)

	_, _, err := run(t, "", "detect", input, "--sizes", "100x")
	assert.Error(t, err)
}
