package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateGetDelete(t *testing.T) {
	m := NewManager()

	g, err := m.Create(shortConfig(5), Rules{})
	require.NoError(t, err)
	require.NotEmpty(t, g.ID)

	got, err := m.Get(g.ID)
	require.NoError(t, err)
	assert.Same(t, g, got)

	require.NoError(t, m.Delete(g.ID))
	_, err = m.Get(g.ID)
	assert.Error(t, err)
	assert.Error(t, m.Delete(g.ID))
}

func TestManager_Create_InvalidConfig_Errors(t *testing.T) {
	m := NewManager()
	cfg := shortConfig(5)
	cfg.OrderDelay = 0

	_, err := m.Create(cfg, Rules{})
	assert.Error(t, err)
	assert.Empty(t, m.List())
}

func TestManager_List_SortedByID(t *testing.T) {
	m := NewManager()
	for i := 0; i < 4; i++ {
		_, err := m.Create(shortConfig(5), Rules{})
		require.NoError(t, err)
	}

	games := m.List()
	require.Len(t, games, 4)
	for i := 1; i < len(games); i++ {
		assert.Less(t, games[i-1].ID, games[i].ID)
	}
}
