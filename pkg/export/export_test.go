package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"Course", "Attendance %"},
		Rows: []map[string]string{
			{"Course": "Math", "Attendance %": "50.0"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Course,Attendance %", lines[0])
	assert.Equal(t, "Math,50.0", lines[1])
	assert.Contains(t, lines[2], "Generated ")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"Course", "Present"},
		Rows:    []map[string]string{{"Course": "Math", "Present": "2"}},
	}

	out, err := NewPDFExporter().Render(data, "Progress Report")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestCellAlign(t *testing.T) {
	assert.Equal(t, "R", cellAlign("50.0"))
	assert.Equal(t, "R", cellAlign("85%"))
	assert.Equal(t, "", cellAlign("Math"))
	assert.Equal(t, "", cellAlign(""))
}
