package ner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityMap_DirectJSON(t *testing.T) {
	m, err := parseEntityMap(`{"PERSON":["张三"],"ORG":[]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"张三"}, m["PERSON"])
}

func TestParseEntityMap_FencedJSON(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"PERSON\":[\"李四\"]}\n```\nThanks."
	m, err := parseEntityMap(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"李四"}, m["PERSON"])
}

func TestParseEntityMap_LenientGJSONFallback(t *testing.T) {
	raw := `{"PERSON": "张三", "ORG": ["A公司", "B公司"]} // trailing`
	m, err := parseEntityMap(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"张三"}, m["PERSON"])
	assert.ElementsMatch(t, []string{"A公司", "B公司"}, m["ORG"])
}

func TestParseEntityMap_TotalFailureIsParseError(t *testing.T) {
	_, err := parseEntityMap("not json at all, no braces here")
	require.Error(t, err)
}

func TestMapTypeToID_KnownAndFallback(t *testing.T) {
	assert.Equal(t, "PERSON", MapTypeToID("人名"))
	assert.Equal(t, "UNKNOWNTYPE", MapTypeToID("unknownType"))
}

func TestMapIDToZH_RoundTrip(t *testing.T) {
	assert.Equal(t, "人名", MapIDToZH("PERSON"))
	assert.Equal(t, "NOPE", MapIDToZH("NOPE"))
}

func TestMemoryResponseCache_SetGet(t *testing.T) {
	c := NewMemoryResponseCache()
	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "v")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestCacheKey_StableAndDistinguishesParts(t *testing.T) {
	a := CacheKey("ner", "hello", "PERSON,ORG")
	b := CacheKey("ner", "hello", "PERSON,ORG")
	c := CacheKey("ner", "hello", "PERSON")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestAllEmpty(t *testing.T) {
	assert.True(t, allEmpty(map[string][]string{"PERSON": {}}))
	assert.False(t, allEmpty(map[string][]string{"PERSON": {"张三"}}))
}

func TestCloneHistory_IsIndependentCopy(t *testing.T) {
	orig := map[string][]string{"PERSON_1": {"张三"}}
	clone := cloneHistory(orig)
	clone["PERSON_1"][0] = "mutated"
	assert.Equal(t, "张三", orig["PERSON_1"][0])
}
