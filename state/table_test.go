package state_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/epmsg/laplace"
	"github.com/katalvlaran/epmsg/state"
)

func TestTable_Lifecycle(t *testing.T) {
	tab := state.NewTable[laplace.Buffer]()

	id, err := tab.Register(*laplace.NewBuffer(0.5))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, 1, tab.Len())

	buf, err := tab.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 0.5, buf.X)

	buf.X, buf.Sweeps = 1.25, 1
	require.NoError(t, tab.Put(id, buf))
	got, err := tab.Get(id)
	require.NoError(t, err)
	assert.Equal(t, laplace.Buffer{X: 1.25, Sweeps: 1}, got)

	require.NoError(t, tab.Delete(id))
	assert.Equal(t, 0, tab.Len())
	_, err = tab.Get(id)
	assert.ErrorIs(t, err, state.ErrUnknownHandle)
}

func TestTable_UnknownHandle(t *testing.T) {
	tab := state.NewTable[int]()
	stranger := uuid.New()
	assert.ErrorIs(t, tab.Put(stranger, 1), state.ErrUnknownHandle)
	assert.ErrorIs(t, tab.Delete(stranger), state.ErrUnknownHandle)
}

func TestTable_HandlesStableOrder(t *testing.T) {
	tab := state.NewTable[int]()
	for i := 0; i < 5; i++ {
		_, err := tab.Register(i)
		require.NoError(t, err)
	}
	first := tab.Handles()
	require.Len(t, first, 5)
	assert.Equal(t, first, tab.Handles())
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].String(), first[i].String())
	}
}
