package normalize

import (
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairs_ReordersSiteDescriptor(t *testing.T) {
	pairs, err := Pairs([][]string{
		{"1 Rue A", "Paris", "75001", "Acme;Lyon"},
	})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "1 Rue A Paris 75001", pairs[0].EmployeeAddress)
	assert.Equal(t, "Lyon Acme", pairs[0].EmployerAddress)
}

func TestPairs_PlainSiteDescriptorKept(t *testing.T) {
	pairs, err := Pairs([][]string{
		{"3 Rue B", "Bordeaux", "33000", "12 Quai de Paludate Bordeaux"},
	})
	require.NoError(t, err)
	assert.Equal(t, "12 Quai de Paludate Bordeaux", pairs[0].EmployerAddress)
}

func TestPairs_MultiDelimiterFlattened(t *testing.T) {
	pairs, err := Pairs([][]string{
		{"3 Rue B", "Bordeaux", "33000", "Acme;Site Nord;Lyon"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Site Nord Lyon", pairs[0].EmployerAddress)
}

func TestPairs_TrimsAndCollapsesFields(t *testing.T) {
	pairs, err := Pairs([][]string{
		{"  8 Cours Victor Hugo ", "", " 33000 ", " Depot;Talence "},
	})
	require.NoError(t, err)
	assert.Equal(t, "8 Cours Victor Hugo 33000", pairs[0].EmployeeAddress)
	assert.Equal(t, "Talence Depot", pairs[0].EmployerAddress)
}

func TestPairs_DropsIncompleteRows(t *testing.T) {
	pairs, err := Pairs([][]string{
		{"", "", "", "Acme;Lyon"},               // no employee address
		{"1 Rue A", "Paris", "75001", "  "},     // no employer address
		{"2 Rue C", "Paris", "75002", "Site X"}, // valid
		{"short row"},
	})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "2 Rue C Paris 75002", pairs[0].EmployeeAddress)
}

func TestPairs_AllRowsDroppedIsError(t *testing.T) {
	_, err := Pairs([][]string{
		{"", "", "", ""},
		{"", "", "", "Acme"},
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoValidRows))
}

func TestReadRows_SkipsHeaderAndBlankLines(t *testing.T) {
	input := "rue,ville,cp,site\n" +
		"1 Rue A,Paris,75001,Acme;Lyon\n" +
		",,,\n" +
		"2 Rue C,Paris,75002,Site X\n"

	rows, err := ReadRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1 Rue A", "Paris", "75001", "Acme;Lyon"}, rows[0])
}

func TestReadRows_VariableWidthRows(t *testing.T) {
	input := "rue,ville,cp,site\n1 Rue A,Paris\n"
	rows, err := ReadRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 2)
}
