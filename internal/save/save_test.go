package save

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "MSR-save-control.json", FileName("MSR"))
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	records := []Record{
		{Name: "FREQ", DomainType: 3, DomainIdx: 0, Setting: 2.2e9},
		{Name: "FREQ", DomainType: 3, DomainIdx: 1, Setting: 2.4e9},
	}

	require.NoError(t, Write(dir, "P1", records))

	got, err := Read(dir, "P1")
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestWriteEmptyRecords(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, "P1", nil))

	got, err := Read(dir, "P1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(dir, "NoSuchProvider")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteRejectsSchemaViolation(t *testing.T) {
	dir := t.TempDir()
	err := Write(dir, "P1", []Record{{Name: "", DomainType: 0, DomainIdx: 0, Setting: 1}})
	assert.Error(t, err)
}
