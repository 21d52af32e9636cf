package locations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delegues-backend/internal/domain"
)

func testDirectory(t *testing.T) *Directory {
	t.Helper()
	d, err := New([]domain.Location{
		{Insee: "42218", Bureau: "0001", Commune: "Saint-Étienne"},
		{Insee: "42218", Bureau: "0002", Commune: "Saint-Étienne"},
		{Insee: "75056", Bureau: "0042", Commune: "Paris"},
		{Insee: "93066", Bureau: "0001", Commune: "Saint-Denis"},
		{Insee: "63113", Bureau: "0003", Commune: "Clermont-Ferrand"},
	})
	require.NoError(t, err)
	return d
}

func TestLookup(t *testing.T) {
	d := testDirectory(t)

	locs, ok := d.Lookup("42218")
	require.True(t, ok)
	require.Len(t, locs, 2)
	assert.Equal(t, "0001", locs[0].Bureau)
	assert.Equal(t, "0002", locs[1].Bureau)

	// Callers get a copy.
	locs[0].Bureau = "mutated"
	again, _ := d.Lookup("42218")
	assert.Equal(t, "0001", again[0].Bureau)

	_, ok = d.Lookup("00000")
	assert.False(t, ok)
}

func TestHas(t *testing.T) {
	d := testDirectory(t)
	assert.True(t, d.Has(domain.Station{LocationID: "75056", RoleID: "0042"}))
	assert.False(t, d.Has(domain.Station{LocationID: "75056", RoleID: "0043"}))
}

func TestNew_Rejects(t *testing.T) {
	_, err := New([]domain.Location{{Insee: "1"}})
	assert.Error(t, err)

	_, err = New([]domain.Location{
		{Insee: "1", Bureau: "1"},
		{Insee: "1", Bureau: "1"},
	})
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	d := testDirectory(t)

	t.Run("AccentInsensitive", func(t *testing.T) {
		res, err := d.Search("saint etienne", 0)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "42218", res[0].Insee)
		assert.Equal(t, 2, res[0].Bureaux)
	})

	t.Run("PrefixBeforeSubstring", func(t *testing.T) {
		res, err := d.Search("SAINT", 10)
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "Saint-Étienne", res[0].Name)
		assert.Equal(t, "Saint-Denis", res[1].Name)

		res, err = d.Search("ferr", 10)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "63113", res[0].Insee)
	})

	t.Run("ByCode", func(t *testing.T) {
		res, err := d.Search("750", 10)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "Paris", res[0].Name)
	})

	t.Run("Limit", func(t *testing.T) {
		res, err := d.Search("a", 1)
		require.NoError(t, err)
		assert.Len(t, res, 1)
	})

	t.Run("InvalidQuery", func(t *testing.T) {
		_, err := d.Search("   ", 10)
		assert.ErrorIs(t, err, domain.ErrInvalidQuery)
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.yaml")
	content := `locations:
  - insee: "75056"
    bur: "0001"
    nomcom: Paris
    address: École élémentaire, 3 rue Blanche
  - insee: "75056"
    bur: "0002"
    nomcom: Paris
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())

	locs, ok := d.Lookup("75056")
	require.True(t, ok)
	assert.Equal(t, "École élémentaire, 3 rue Blanche", locs[0].Address)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
