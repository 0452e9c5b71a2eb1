package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRows_CSV(t *testing.T) {
	path := writeFile(t, "table.csv", "code,score\n10001,12\n10002, 7\n")

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"code", "score"}, rows[0])
	assert.Equal(t, []string{"10002", "7"}, rows[2])
}

func TestReadRows_TSV(t *testing.T) {
	path := writeFile(t, "table.tsv", "code\tscore\nSW1\t3\n")

	rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"code", "score"}, {"SW1", "3"}}, rows)
}

func TestReadRows_RaggedCSV(t *testing.T) {
	path := writeFile(t, "ragged.csv", "code,score\n10001\n10002,4,extra\n")

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Len(t, rows[1], 1)
	assert.Len(t, rows[2], 3)
}

func TestReadRows_XLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"code", "score"},
		{"10001", " 12 "},
	})

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"10001", "12"}, rows[1])
}

func TestReadRows_MissingFile(t *testing.T) {
	_, err := ReadRows("/nonexistent/table.csv")
	assert.Error(t, err)

	_, err = ReadRows("/nonexistent/table.xlsx")
	assert.Error(t, err)
}
