package regexmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pii-redactor/internal/model"
)

func TestMatcher_ExtractsPhone(t *testing.T) {
	m, errs := NewMatcher(nil)
	require.Empty(t, errs)

	entities, err := m.Extract("联系电话：13812345678。", []string{"PHONE"})
	require.NoError(t, err)
	require.Len(t, entities, 1)

	e := entities[0]
	assert.Equal(t, "13812345678", e.Text)
	assert.Equal(t, "PHONE", e.Type)
	assert.Equal(t, model.SourceRegex, e.Source)
	assert.Equal(t, e.Text, string([]rune("联系电话：13812345678。")[e.Start:e.End]))
}

func TestMatcher_MobileNumberIsOneEntity(t *testing.T) {
	m, errs := NewMatcher(nil)
	require.Empty(t, errs)

	// The looser landline pattern needs a word boundary right after 7-8
	// digits, so it never matches inside an 11-digit mobile number; the
	// mobile pattern reports the whole number as a single span.
	entities, err := m.Extract("13812345678", []string{"PHONE"})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "13812345678", entities[0].Text)
}

func TestMatcher_UserPatternOverridesBuiltin(t *testing.T) {
	m, errs := NewMatcher(map[string]string{"PHONE": `\d{4}`})
	require.Empty(t, errs)

	entities, err := m.Extract("13812345678", []string{"PHONE"})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "1381", entities[0].Text)
}

func TestMatcher_InvalidUserPatternReportsError(t *testing.T) {
	_, errs := NewMatcher(map[string]string{"BROKEN": `(unterminated`})
	require.NotEmpty(t, errs)
}

func TestMatcher_EmptyTextReturnsNoEntities(t *testing.T) {
	m, _ := NewMatcher(nil)
	entities, err := m.Extract("", []string{"PHONE"})
	require.NoError(t, err)
	assert.Empty(t, entities)
}
