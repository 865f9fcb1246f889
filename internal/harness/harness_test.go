package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquavit/Brahma-sub001/internal/compute"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Copy(t *testing.T) {
	s := loadScenario(t, "copy")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Nil(t, result.Failure)
	assert.Equal(t, []string{"1", "2", "3", "4"}, result.Buffers["output"])
	assert.Equal(t, 1, result.Compiles)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, TraceEvent{Seq: 2, Command: "run", Target: "copy", Detail: "1D[4]"}, result.Trace[1])
	assert.Contains(t, result.Sources["copy"], "__kernel")
	assert.NotEmpty(t, result.Keys["copy"])
}

func TestRun_Deterministic(t *testing.T) {
	s := loadScenario(t, "scale_twice")

	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Buffers, second.Buffers)
	assert.Equal(t, first.Keys, second.Keys)
}

func TestRun_AccessViolation(t *testing.T) {
	s := loadScenario(t, "access_violation")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.NotNil(t, result.Failure)
	assert.Equal(t, 2, result.Failure.Step)
	assert.Equal(t, string(compute.ErrCodeDeviceAccessViolation), result.Failure.Code)
	assert.Len(t, result.Trace, 2)
}

func TestRun_TranslationFailure(t *testing.T) {
	s := loadScenario(t, "float3_opencl")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.NotNil(t, result.Failure)
	assert.Equal(t, -1, result.Failure.Step)
	assert.Equal(t, "TYPE_NOT_SUPPORTED", result.Failure.Code)
	assert.Empty(t, result.Trace)
	assert.Zero(t, result.Compiles)
}

func TestRun_UnexpectedFailure(t *testing.T) {
	s := loadScenario(t, "access_violation")
	s.Assertions = []Assertion{{Type: AssertBufferEquals, Buffer: "data", Values: []any{1, 2}}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected failure at step 2")
}

func TestRun_BuildTimeFailure(t *testing.T) {
	s := loadScenario(t, "copy")
	five, step := 5, 2
	s.Flow[2] = FlowStep{Read: "output", Length: &five}
	s.Assertions = []Assertion{{Type: AssertErrorCode, Code: "RANGE", Step: &step}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Trace, "nothing is submitted when a command cannot be built")
}

func TestRun_CancelledContext(t *testing.T) {
	s := loadScenario(t, "copy")
	s.Assertions = []Assertion{{Type: AssertErrorCode, Code: "CANCELLED"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, -1, result.Failure.Step)
}

func TestRun_UnknownKernel(t *testing.T) {
	s := loadScenario(t, "copy")
	s.Flow[1].Run = "missing"

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kernel "missing"`)
}

type recordingArchive struct {
	got []compute.Translation
}

func (a *recordingArchive) Record(tr compute.Translation) error {
	a.got = append(a.got, tr)
	return nil
}

func TestRun_WithArchive(t *testing.T) {
	s := loadScenario(t, "scale_twice")
	archive := &recordingArchive{}

	result, err := Run(context.Background(), s, WithArchive(archive))
	require.NoError(t, err)
	require.True(t, result.Pass)
	require.Len(t, archive.got, 1)
	assert.Equal(t, "scale", archive.got[0].KernelName)
	assert.Equal(t, "provider-0001", archive.got[0].ProviderID)
	assert.Equal(t, result.Sources["scale"], archive.got[0].Source)
}

func TestGolden(t *testing.T) {
	for _, name := range []string{"copy", "scale_twice", "access_violation", "float3_opencl", "float3_hlsl"} {
		t.Run(name, func(t *testing.T) {
			s := loadScenario(t, name)
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
