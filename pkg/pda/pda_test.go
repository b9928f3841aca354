package pda_test

import (
	"bytes"
	"testing"

	"github.com/scalarorg/bridge-core/pkg/pda"
	"github.com/scalarorg/bridge-core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgramID = func() types.Address {
	var id types.Address
	copy(id[:], []byte("bridge-test-program-id"))
	return id
}()

func TestDeriveDeterministic(t *testing.T) {
	seeds := [][]byte{[]byte("settings")}

	addr1, bump1, err := pda.Derive(seeds, testProgramID)
	require.NoError(t, err)
	addr2, bump2, err := pda.Derive(seeds, testProgramID)
	require.NoError(t, err)

	assert.Equal(t, addr1, addr2)
	assert.Equal(t, bump1, bump2)
	assert.False(t, addr1.IsZero())
}

func TestDeriveDistinctSeedsDistinctAddresses(t *testing.T) {
	addr1, _, err := pda.Derive([][]byte{[]byte("relay_round"), {0, 0, 0, 1}}, testProgramID)
	require.NoError(t, err)
	addr2, _, err := pda.Derive([][]byte{[]byte("relay_round"), {0, 0, 0, 2}}, testProgramID)
	require.NoError(t, err)

	assert.NotEqual(t, addr1, addr2)
}

func TestDeriveDistinctPrograms(t *testing.T) {
	var otherProgram types.Address
	copy(otherProgram[:], []byte("another-program"))

	seeds := [][]byte{[]byte("settings")}
	addr1, _, err := pda.Derive(seeds, testProgramID)
	require.NoError(t, err)
	addr2, _, err := pda.Derive(seeds, otherProgram)
	require.NoError(t, err)

	assert.NotEqual(t, addr1, addr2)
}

func TestValidate(t *testing.T) {
	seeds := [][]byte{[]byte("proposal"), []byte("abc")}
	addr, bump, err := pda.Derive(seeds, testProgramID)
	require.NoError(t, err)

	gotBump, err := pda.Validate(seeds, testProgramID, addr)
	require.NoError(t, err)
	assert.Equal(t, bump, gotBump)

	var forged types.Address
	forged[0] = 0x42
	_, err = pda.Validate(seeds, testProgramID, forged)
	assert.ErrorIs(t, err, pda.ErrInvalidSeeds)
}

func TestSeedLimits(t *testing.T) {
	tooMany := make([][]byte, pda.MaxSeeds+1)
	for i := range tooMany {
		tooMany[i] = []byte{byte(i)}
	}
	_, err := pda.CreateAddress(tooMany, testProgramID)
	assert.ErrorIs(t, err, pda.ErrTooManySeeds)

	_, err = pda.CreateAddress([][]byte{bytes.Repeat([]byte{1}, pda.MaxSeedLen+1)}, testProgramID)
	assert.ErrorIs(t, err, pda.ErrSeedTooLong)
}
