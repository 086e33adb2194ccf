package replace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rezonia/pii-redactor/internal/model"
)

func TestReplacement_SmartModeCountsPerTypeAndLabelsInChinese(t *testing.T) {
	e := NewEngine(model.ReplacementSmart)
	first := e.Replacement(model.Entity{Text: "张三", Type: "PERSON", CorefID: "e1"})
	second := e.Replacement(model.Entity{Text: "李四", Type: "PERSON", CorefID: "e2"})
	assert.Equal(t, "[当事人一]", first)
	assert.Equal(t, "[当事人二]", second)
}

func TestReplacement_SmartModeUnknownTypeUsesDefaultLabel(t *testing.T) {
	e := NewEngine(model.ReplacementSmart)
	r := e.Replacement(model.Entity{Text: "xyz", Type: "UNKNOWN_TYPE", CorefID: "e1"})
	assert.Equal(t, "[敏感信息一]", r)
}

func TestReplacement_IsStableAcrossCallsForSameCorefID(t *testing.T) {
	e := NewEngine(model.ReplacementSmart)
	first := e.Replacement(model.Entity{Text: "张三", Type: "PERSON", CorefID: "e1"})
	again := e.Replacement(model.Entity{Text: "张三", Type: "PERSON", CorefID: "e1"})
	assert.Equal(t, first, again)
}

func TestReplacement_MaskModePerson(t *testing.T) {
	e := NewEngine(model.ReplacementMask)
	r := e.Replacement(model.Entity{Text: "张三丰", Type: "PERSON"})
	assert.Equal(t, "张**", r)
}

func TestReplacement_MaskModePhoneShortFallsBackToAllStars(t *testing.T) {
	e := NewEngine(model.ReplacementMask)
	r := e.Replacement(model.Entity{Text: "138", Type: "PHONE"})
	assert.Equal(t, "***", r)
}

func TestReplacement_MaskModePhoneLongKeepsPrefixAndSuffix(t *testing.T) {
	e := NewEngine(model.ReplacementMask)
	r := e.Replacement(model.Entity{Text: "13800138000", Type: "PHONE"})
	assert.Equal(t, "138****8000", r)
}

func TestReplacement_MaskModeIDCard(t *testing.T) {
	e := NewEngine(model.ReplacementMask)
	r := e.Replacement(model.Entity{Text: "110101199001011234", Type: "ID_CARD"})
	assert.Equal(t, "110101********1234", r)
}

func TestReplacement_MaskModeBankCard(t *testing.T) {
	e := NewEngine(model.ReplacementMask)
	r := e.Replacement(model.Entity{Text: "6222021234567890", Type: "BANK_CARD"})
	assert.Equal(t, "************7890", r)
}

func TestReplacement_StructuredModeCorefIDAsTagWinsOutright(t *testing.T) {
	e := NewEngine(model.ReplacementStructured)
	r := e.Replacement(model.Entity{Text: "张三", Type: "PERSON", CorefID: "<人物[001].个人.姓名>"})
	assert.Equal(t, "<人物[001].个人.姓名>", r)
}

func TestReplacement_StructuredModeFallsBackToBuiltinDefault(t *testing.T) {
	e := NewEngine(model.ReplacementStructured)
	r := e.Replacement(model.Entity{Text: "张三", Type: "PERSON"})
	assert.Equal(t, "<人物[001].个人.姓名>", r)
}

func TestReplacement_StructuredModeUsesTagTemplateWhenConfigured(t *testing.T) {
	e := NewEngine(model.ReplacementStructured)
	e.SetTaxonomy([]model.EntityTypeConfig{{ID: "CUSTOM_TYPE", TagTemplate: "<自定义[{index}].值>"}})
	r := e.Replacement(model.Entity{Text: "foo", Type: "CUSTOM_TYPE"})
	assert.Equal(t, "<自定义[001].值>", r)
}

func TestReplacement_StructuredModeUnknownTypeFallsBackGeneric(t *testing.T) {
	e := NewEngine(model.ReplacementStructured)
	r := e.Replacement(model.Entity{Text: "foo", Type: "WEIRD_TYPE"})
	assert.Equal(t, "<WEIRD_TYPE[001].完整名称>", r)
}

func TestReplacement_StructuredModeHonorsHideModeMapping(t *testing.T) {
	e := NewEngine(model.ReplacementStructured)
	e.SetStructuredMapping(map[string][]string{"<人物[007].个人.姓名>": {"张三"}})
	r := e.Replacement(model.Entity{Text: "张三", Type: "PERSON"})
	assert.Equal(t, "<人物[007].个人.姓名>", r)
}

func TestReplacement_CustomModePrefersCallerMapping(t *testing.T) {
	e := NewEngine(model.ReplacementCustom)
	e.SetCustomReplacements(map[string]string{"张三": "某甲"})
	r := e.Replacement(model.Entity{Text: "张三", Type: "PERSON"})
	assert.Equal(t, "某甲", r)
}

func TestReplacement_CustomModeFallsBackToSmartWhenUnmapped(t *testing.T) {
	e := NewEngine(model.ReplacementCustom)
	r := e.Replacement(model.Entity{Text: "李四", Type: "PERSON"})
	assert.Equal(t, "[当事人一]", r)
}

func TestEntityMap_AccumulatesFirstReplacementPerOriginalText(t *testing.T) {
	e := NewEngine(model.ReplacementSmart)
	e.Replacement(model.Entity{Text: "张三", Type: "PERSON", CorefID: "e1"})
	e.Replacement(model.Entity{Text: "张三", Type: "PERSON", CorefID: "e1"})
	m := e.EntityMap()
	assert.Equal(t, "[当事人一]", m["张三"])
	assert.Len(t, m, 1)
}

func TestGetComparison_ListsEveryAccumulatedPair(t *testing.T) {
	e := NewEngine(model.ReplacementSmart)
	e.Replacement(model.Entity{Text: "张三", Type: "PERSON", CorefID: "e1"})
	e.Replacement(model.Entity{Text: "李四", Type: "PERSON", CorefID: "e2"})
	entries := e.GetComparison()
	assert.Len(t, entries, 2)
}
