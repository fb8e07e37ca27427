package plugindef

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeDeck(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.inp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanVariablesUniqueSorted(t *testing.T) {
	deck := writeDeck(t, `set title "pin"
mat fuel -10.4 tmp ${fuel_temp}
92235.09c ${enrichment}
92238.09c ${enrichment}
set pop ${pop_size} 200 20
`)

	names, err := Default().ScanVariables(deck)
	require.NoError(t, err)
	require.Equal(t, []string{"enrichment", "fuel_temp", "pop_size"}, names)
}

func TestScanVariablesSkipsCommentLines(t *testing.T) {
	deck := writeDeck(t, `% old variant used ${ghost_var}
  % indented comment with ${another_ghost}
mat water -${water_density} tmp 600
`)

	names, err := Default().ScanVariables(deck)
	require.NoError(t, err)
	require.Equal(t, []string{"water_density"}, names)
}

func TestScanVariablesIgnoresBareDollar(t *testing.T) {
	deck := writeDeck(t, `set title "costs $100"
set pop ${pop_size} 200 20
`)

	names, err := Default().ScanVariables(deck)
	require.NoError(t, err)
	require.Equal(t, []string{"pop_size"}, names)
}

func TestScanFormulas(t *testing.T) {
	deck := writeDeck(t, `surf 10 sqc 0.0 0.0 @{pitch / 2}
cell 98 0 fill 1 -10
set pop @{cycles * 1000} 200 20
`)

	formulas, err := Default().ScanFormulas(deck)
	require.NoError(t, err)
	require.Equal(t, []string{"cycles * 1000", "pitch / 2"}, formulas)
}

func TestScanExampleDeck(t *testing.T) {
	names, err := Default().ScanVariables(filepath.Join("..", "..", "examples", "Serpent", "input.inp"))
	require.NoError(t, err)
	require.Equal(t, []string{
		"active_cycles",
		"clad_inner_radius",
		"clad_outer_radius",
		"enrichment",
		"fuel_radius",
		"inactive_cycles",
		"neutrons_per_cycle",
		"pitch_half",
		"seed",
		"u238_fraction",
		"water_density",
		"water_temp",
	}, names)
}

func TestScanRejectsInvalidModel(t *testing.T) {
	deck := writeDeck(t, "set pop 1000 200 20\n")
	_, err := Model{ID: "Serpent"}.ScanVariables(deck)
	require.Error(t, err)
}

func TestScanMissingFile(t *testing.T) {
	_, err := Default().ScanVariables(filepath.Join(t.TempDir(), "missing.inp"))
	require.Error(t, err)
}
