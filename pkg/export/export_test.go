package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Kode", "SKS"},
		Rows: []map[string]string{
			{"Kode": "IF101", "SKS": "3"},
			{"Kode": "IF102", "SKS": "2"},
		},
		Footer: map[string]string{"Kode": "Total", "SKS": "5"},
	}
}

func TestCSVExporterWritesFooterLast(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Kode,SKS\nIF101,3\nIF102,2\nTotal,5\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), Document{
		Title:   "Kartu Rencana Studi",
		Lines:   [][2]string{{"NIM", "2201001"}},
		Weights: []float64{3, 1},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRejectsWeightMismatch(t *testing.T) {
	_, err := NewPDFExporter().Render(sampleDataset(), Document{Weights: []float64{1}})
	assert.Error(t, err)
}

func TestColumnWidths(t *testing.T) {
	assert.Equal(t, []float64{95, 95}, columnWidths(2, nil))
	assert.InDelta(t, 142.5, columnWidths(2, []float64{3, 1})[0], 0.001)
}
