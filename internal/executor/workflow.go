package executor

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// WorkflowParams fills the GitHub Actions workflow template.
type WorkflowParams struct {
	Name         string
	RoutineID    string
	RoutineTitle string
	// Command is the shell step run for the routine.
	Command string
	// Schedule is an optional cron expression for unattended runs.
	Schedule string
}

const workflowTemplate = `# Generated by routinekit. Commit as .github/workflows/{{ .FileName }}
name: {{ quote .Name }}

on:
  workflow_dispatch:
    inputs:
      routine_id:
        description: "Routine identifier"
        required: true
        default: {{ quote .RoutineID }}
      routine_title:
        description: "Routine title"
        required: false
        default: {{ quote .RoutineTitle }}
{{- if .Schedule }}
  schedule:
    - cron: {{ quote .Schedule }}
{{- end }}

jobs:
  run-routine:
    runs-on: ubuntu-latest
    timeout-minutes: 30
    steps:
      - name: Checkout
        uses: actions/checkout@v4

      - name: Run routine
        env:
          ROUTINE_ID: ${{"{{"}} github.event.inputs.routine_id || {{ exprstr .RoutineID }} {{"}}"}}
          ROUTINE_TITLE: ${{"{{"}} github.event.inputs.routine_title {{"}}"}}
        run: |
{{ indent 10 .Command }}
`

var workflowTmpl = template.Must(template.New("workflow").Funcs(template.FuncMap{
	"quote":   yamlQuote,
	"indent":  indentLines,
	"exprstr": expressionString,
}).Parse(workflowTemplate))

// WorkflowFileName returns the file name the workflow should be committed as.
func WorkflowFileName(routineID string) string {
	id := routineID
	if len(id) > 8 {
		id = id[:8]
	}
	return "routine-" + id + ".yml"
}

// RenderWorkflow renders the workflow file accepting dispatches from the
// github_action executor.
func RenderWorkflow(p WorkflowParams) (string, error) {
	if p.RoutineID == "" {
		return "", fmt.Errorf("routine id is required")
	}
	if p.Name == "" {
		p.Name = "Routine: " + p.RoutineTitle
	}
	if strings.TrimSpace(p.Command) == "" {
		p.Command = `echo "Running routine $ROUTINE_TITLE ($ROUTINE_ID)"`
	}

	data := struct {
		WorkflowParams
		FileName string
	}{p, WorkflowFileName(p.RoutineID)}

	var buf bytes.Buffer
	if err := workflowTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// yamlQuote renders s as a YAML scalar on one line.
func yamlQuote(s string) string {
	out, err := yaml.Marshal(s)
	if err != nil || strings.Contains(strings.TrimRight(string(out), "\n"), "\n") {
		return fmt.Sprintf("%q", s)
	}
	return strings.TrimRight(string(out), "\n")
}

// expressionString renders s as a string literal inside a ${{ }} expression.
func expressionString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func indentLines(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n")
}
