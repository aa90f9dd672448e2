package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type renderedWorkflow struct {
	Name string `yaml:"name"`
	On   struct {
		WorkflowDispatch struct {
			Inputs map[string]struct {
				Default  string `yaml:"default"`
				Required bool   `yaml:"required"`
			} `yaml:"inputs"`
		} `yaml:"workflow_dispatch"`
		Schedule []struct {
			Cron string `yaml:"cron"`
		} `yaml:"schedule"`
	} `yaml:"on"`
	Jobs map[string]struct {
		Steps []struct {
			Name string            `yaml:"name"`
			Uses string            `yaml:"uses"`
			Run  string            `yaml:"run"`
			Env  map[string]string `yaml:"env"`
		} `yaml:"steps"`
	} `yaml:"jobs"`
}

func parseWorkflow(t *testing.T, out string) renderedWorkflow {
	t.Helper()
	var wf renderedWorkflow
	require.NoError(t, yaml.Unmarshal([]byte(out), &wf), out)
	return wf
}

func TestRenderWorkflow(t *testing.T) {
	out, err := RenderWorkflow(WorkflowParams{
		RoutineID:    "0f8fad5b-d9cb-469f-a165-70867728950e",
		RoutineTitle: "Morning: stretch & 'breathe'",
		Command:      "echo one\necho two",
		Schedule:     "0 6 * * *",
	})
	require.NoError(t, err)

	assert.Contains(t, out, ".github/workflows/routine-0f8fad5b.yml")

	wf := parseWorkflow(t, out)
	assert.Equal(t, "Routine: Morning: stretch & 'breathe'", wf.Name)
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", wf.On.WorkflowDispatch.Inputs["routine_id"].Default)
	assert.True(t, wf.On.WorkflowDispatch.Inputs["routine_id"].Required)
	assert.Equal(t, "Morning: stretch & 'breathe'", wf.On.WorkflowDispatch.Inputs["routine_title"].Default)
	require.Len(t, wf.On.Schedule, 1)
	assert.Equal(t, "0 6 * * *", wf.On.Schedule[0].Cron)

	job, ok := wf.Jobs["run-routine"]
	require.True(t, ok)
	require.Len(t, job.Steps, 2)
	assert.Equal(t, "actions/checkout@v4", job.Steps[0].Uses)
	assert.Equal(t, "echo one\necho two\n", job.Steps[1].Run)
	assert.Equal(t,
		"${{ github.event.inputs.routine_id || '0f8fad5b-d9cb-469f-a165-70867728950e' }}",
		job.Steps[1].Env["ROUTINE_ID"])
}

func TestRenderWorkflow_Defaults(t *testing.T) {
	out, err := RenderWorkflow(WorkflowParams{RoutineID: "abc", RoutineTitle: "Read"})
	require.NoError(t, err)

	wf := parseWorkflow(t, out)
	assert.Equal(t, "Routine: Read", wf.Name)
	assert.Empty(t, wf.On.Schedule)
	assert.Contains(t, wf.Jobs["run-routine"].Steps[1].Run, "Running routine")
}

func TestRenderWorkflow_RequiresRoutineID(t *testing.T) {
	_, err := RenderWorkflow(WorkflowParams{RoutineTitle: "x"})
	assert.Error(t, err)
}

func TestWorkflowFileName(t *testing.T) {
	assert.Equal(t, "routine-abc.yml", WorkflowFileName("abc"))
	assert.Equal(t, "routine-12345678.yml", WorkflowFileName("123456789abc"))
}
