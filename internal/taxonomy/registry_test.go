package taxonomy

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pii-redactor/internal/model"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(filepath.Join(t.TempDir(), "taxonomy.json"))
	require.NoError(t, err)
	return r
}

func TestRegistry_SeedsPresetsOnFirstRun(t *testing.T) {
	r := newTestRegistry(t)

	list := r.List(false)
	require.NotEmpty(t, list)

	_, err := r.Get("PERSON")
	require.NoError(t, err)

	for i := 1; i < len(list); i++ {
		assert.True(t, list[i-1].Order < list[i].Order ||
			(list[i-1].Order == list[i].Order && list[i-1].ID <= list[i].ID))
	}
}

func TestRegistry_ListEnabledOnly(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Toggle("WITNESS")
	require.NoError(t, err)

	for _, t2 := range r.List(true) {
		assert.NotEqual(t, "WITNESS", t2.ID)
	}
}

func TestRegistry_CreateGeneratesCustomID(t *testing.T) {
	r := newTestRegistry(t)

	created, err := r.Create(model.EntityTypeConfig{Name: "Passport Number", UseLLM: true})
	require.NoError(t, err)
	assert.Equal(t, "custom_passport_number", created.ID)
	assert.Equal(t, 200, created.Order)
	assert.False(t, created.Preset)
}

func TestRegistry_CreateRequiresRegexOrLLM(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create(model.EntityTypeConfig{Name: "Broken"})
	require.Error(t, err)
	assert.Equal(t, model.ErrorInvalidInput, model.KindOf(err))
}

func TestRegistry_DeletePresetIsProtected(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Delete("PERSON")
	require.Error(t, err)
	assert.Equal(t, model.ErrorPresetProtected, model.KindOf(err))
}

func TestRegistry_DeleteUserEntry(t *testing.T) {
	r := newTestRegistry(t)
	created, err := r.Create(model.EntityTypeConfig{Name: "Custom", UseLLM: true})
	require.NoError(t, err)

	require.NoError(t, r.Delete(created.ID))
	_, err = r.Get(created.ID)
	assert.Equal(t, model.ErrorNotFound, model.KindOf(err))
}

func TestRegistry_ResetDropsUserEntries(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create(model.EntityTypeConfig{Name: "Custom", UseLLM: true})
	require.NoError(t, err)

	require.NoError(t, r.Reset())

	for _, t2 := range r.List(false) {
		assert.True(t, t2.Preset)
	}
}

func TestRegistry_UnknownIDIsNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Get("NOPE")
	assert.Equal(t, model.ErrorNotFound, model.KindOf(err))
}
