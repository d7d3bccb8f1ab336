package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndex(t *testing.T) {
	idx := NewIndex([]string{"  Correo electrónico ", "", "Bloque", "correo electrónico"})

	pos, ok := idx.Lookup("Correo electrónico")
	require.True(t, ok)
	assert.Equal(t, 0, pos, "first occurrence wins on duplicate headers")

	pos, ok = idx.Lookup("BLOQUE")
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	_, ok = idx.Lookup("inexistente")
	assert.False(t, ok)
}

func TestFindColumn_CandidateOrder(t *testing.T) {
	header := []string{"Nro", "Foto del bloque", "VALIDA FOTO", "Diploma OK"}

	// "valida foto" outranks the broader "foto" even though "foto" matches an
	// earlier column.
	pos, ok := FindColumn(header, TrackerValidatedTerms)
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	pos, ok = FindColumn(header, TrackerDiplomaTerms)
	require.True(t, ok)
	assert.Equal(t, 3, pos)

	_, ok = FindColumn(header, TrackerReceivedTerms)
	assert.False(t, ok)
}

func TestFindColumn_CaseInsensitive(t *testing.T) {
	header := []string{"NÚMERO", "E-Mail del participante"}
	pos, ok := FindColumn(header, TrackerEmailTerms)
	require.True(t, ok)
	assert.Equal(t, 1, pos)
}

func TestColumnTables_CoverNaturalKeys(t *testing.T) {
	assert.Equal(t, "email", SubscriberColumns["Correo electrónico"])
	assert.Equal(t, "email", InstitutionColumns["Correo electrónico"])
	assert.Equal(t, "email", NodeColumns["Correo electrónico:"])
	assert.Equal(t, "numero_bloque", NodeColumns["Numero/s de bloque/s de 2 cifras:"])
}
