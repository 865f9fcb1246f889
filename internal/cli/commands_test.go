package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	kernelsDir    = filepath.Join("testdata", "kernels")
	badKernelsDir = filepath.Join("testdata", "bad_kernels")
	scenariosDir  = filepath.Join("testdata", "scenarios")
)

func decode(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func TestValidate(t *testing.T) {
	out, _, err := execute(t, "validate", kernelsDir, "--backend", "hlsl")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All kernels valid (4)")
}

func TestValidate_BackendRejectsKernel(t *testing.T) {
	out, _, err := execute(t, "validate", kernelsDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "add3 [opencl]")
	assert.Contains(t, out, "TYPE_NOT_SUPPORTED")
}

func TestValidate_BadKernelsJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", badKernelsDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)

	codes := map[string]bool{}
	for _, e := range resp.Data.Errors {
		codes[e.Code] = true
	}
	assert.True(t, codes["E102"], "empty params: %v", resp.Data.Errors)
	assert.True(t, codes[ErrCodeTranslationFailed], "undeclared buffer: %v", resp.Data.Errors)
}

func TestValidate_MissingDirectory(t *testing.T) {
	out, _, err := execute(t, "validate", "/nonexistent/kernels")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "not found")
}

func TestValidate_EmptyDirectory(t *testing.T) {
	_, _, err := execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
}

func TestValidate_UnknownBackend(t *testing.T) {
	_, _, err := execute(t, "validate", kernelsDir, "--backend", "metal")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTranslate(t *testing.T) {
	out, _, err := execute(t, "translate", kernelsDir, "--kernel", "scale", "--backend", "opencl")
	require.NoError(t, err)
	assert.Contains(t, out, "__kernel void brahma_main")
	assert.Contains(t, out, "* 2.0f")
}

func TestTranslate_OutputFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scale.comp")
	out, _, err := execute(t, "--format", "json", "translate", kernelsDir, "--kernel", "scale", "--backend", "glsl", "-o", path)
	require.NoError(t, err)

	resp := decode(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "glsl", data["backend"])
	assert.NotEmpty(t, data["key"])

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data["source"], string(written))
}

func TestTranslate_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		exit int
		want string
	}{
		{"unknown kernel", []string{"--kernel", "nope"}, ExitCommandError, ErrCodeKernelNotFound},
		{"unknown backend", []string{"--kernel", "scale", "--backend", "metal"}, ExitCommandError, "unknown backend"},
		{"unsupported type", []string{"--kernel", "add3", "--backend", "opencl"}, ExitFailure, "TYPE_NOT_SUPPORTED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"translate", kernelsDir}, tt.args...)
			_, _, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTranslateThenArchive(t *testing.T) {
	db := filepath.Join(t.TempDir(), "brahma.db")
	for _, b := range []string{"opencl", "hlsl"} {
		_, _, err := execute(t, "translate", kernelsDir, "--kernel", "copy", "--backend", b, "--archive", db)
		require.NoError(t, err)
	}

	out, _, err := execute(t, "--format", "json", "archive", db)
	require.NoError(t, err)
	var resp struct {
		Data ArchiveResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Translations, 2)
	assert.Equal(t, "opencl", resp.Data.Translations[0].Backend)
	assert.Equal(t, "hlsl", resp.Data.Translations[1].Backend)
	assert.NotEqual(t, resp.Data.Translations[0].Key, resp.Data.Translations[1].Key, "the program key covers the backend")
	assert.Equal(t, map[string]int{"hlsl": 1, "opencl": 1}, resp.Data.Counts)

	out, _, err = execute(t, "archive", db, "--key", resp.Data.Translations[0].Key, "--source")
	require.NoError(t, err)
	assert.Contains(t, out, "1 translation(s)")
	assert.Contains(t, out, "__kernel")

	out, _, err = execute(t, "archive", db, "--key", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, "No translations archived.")
}

func TestArchive_Missing(t *testing.T) {
	_, _, err := execute(t, "archive", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "archive not found")
}

func TestRun(t *testing.T) {
	out, _, err := execute(t, "run", filepath.Join(scenariosDir, "copy.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario: copy (opencl)")
	assert.Contains(t, out, "output = [1, 2, 3, 4]")
	assert.Contains(t, out, "✓ PASS")
}

func TestRun_FailingAssertion(t *testing.T) {
	out, _, err := execute(t, "run", filepath.Join(scenariosDir, "scale_wrong.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ FAIL")
	assert.Contains(t, out, "output = [2, 4]")
}

func TestRun_InvalidScenario(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeScenarioInvalid)
}

func TestTest(t *testing.T) {
	out, _, err := execute(t, "test", scenariosDir, "--filter", "copy")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ copy")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTest_ReportsFailures(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "test", scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
}

func TestTest_UpdateAndMismatch(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(scenariosDir, "copy.yaml"))
	require.NoError(t, err)
	kernels, err := filepath.Abs(kernelsDir)
	require.NoError(t, err)
	scenario := strings.Replace(string(src), "kernels: ../kernels", "kernels: "+kernels, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "copy.yaml"), []byte(scenario), 0o644))

	_, _, err = execute(t, "test", dir, "--update")
	require.NoError(t, err)
	golden, err := os.ReadFile(filepath.Join(dir, "golden", "copy.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(scenariosDir, "golden", "copy.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(golden))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "copy.golden"), []byte("{}"), 0o644))
	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTest_NoScenarios(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestDevices(t *testing.T) {
	out, _, err := execute(t, "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "host-0")
	assert.Contains(t, out, "opencl, hlsl, glsl")

	out, _, err = execute(t, "devices", "--type", "GPU")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching devices.")

	out, _, err = execute(t, "--format", "json", "devices", "--backend", "GLSL")
	require.NoError(t, err)
	resp := decode(t, out)
	assert.Len(t, resp.Data, 1)
}
