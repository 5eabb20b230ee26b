package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	out, err := exporter.Render(Table{
		Title:   "Class 4-C Attendance",
		Headers: []string{"Roll No", "Student", "Percent"},
		Rows: [][]string{
			{"001", "Aarav Sharma", "92.5"},
			{"002", "Diya Patel", "87.0"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Roll No,Student,Percent", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "Aarav Sharma")
	assert.Contains(t, lines[2], "87.0")
	assert.NotContains(t, string(out), "Class 4-C Attendance")
}

func TestCSVExporterPadsShortRows(t *testing.T) {
	exporter := NewCSVExporter()

	out, err := exporter.Render(Table{
		Headers: []string{"A", "B", "C"},
		Rows:    [][]string{{"only"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "only,,")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Table{Rows: [][]string{{"x"}}})
	assert.Error(t, err)
}
