package ner

// legalEntityTypesZH is the default Chinese type list HaS-style models
// were trained against, ported verbatim from `has_client.py`'s
// `LEGAL_ENTITY_TYPES`. No function in this package reads it; MapTypeToID
// and MapIDToZH work from the two tables below.
var legalEntityTypesZH = []string{
	"人名", "组织", "地址", "职务",
	"联系方式", "身份证号", "银行卡号",
	"案件编号", "金额", "日期", "合同编号",
}

// zhToTypeID maps the Chinese label set above back to taxonomy type ids,
// ported from `has_client.py`'s `_map_type_to_english`.
var zhToTypeID = map[string]string{
	"人名":   "PERSON",
	"组织":   "ORG",
	"地址":   "ADDRESS",
	"职务":   "TITLE",
	"联系方式": "PHONE",
	"身份证号": "ID_CARD",
	"银行卡号": "BANK_CARD",
	"案件编号": "CASE_NUMBER",
	"金额":   "MONEY",
	"日期":   "DATE",
	"合同编号": "CONTRACT_NO",
	"邮箱":   "EMAIL",
	"文件":   "DOCUMENT",
	"账号":   "ACCOUNT",
	"密码":   "PASSWORD",
}

// typeIDToZH is the reverse table, used when the caller passes taxonomy
// type ids but needs to prompt a model trained on the Chinese label set.
var typeIDToZH = func() map[string]string {
	m := make(map[string]string, len(zhToTypeID))
	for zh, id := range zhToTypeID {
		if _, exists := m[id]; !exists {
			m[id] = zh
		}
	}
	return m
}()

// MapTypeToID translates a (possibly Chinese) model-chosen label to a
// stable taxonomy type id, falling back to an uppercased copy of the
// input when no mapping is known (mirrors `_map_type_to_english`'s
// `.upper()` fallback).
func MapTypeToID(label string) string {
	if id, ok := zhToTypeID[label]; ok {
		return id
	}
	return toUpper(label)
}

// MapIDToZH translates a taxonomy type id to its Chinese label, falling
// back to the id itself when unknown.
func MapIDToZH(id string) string {
	if zh, ok := typeIDToZH[id]; ok {
		return zh
	}
	return id
}

func toUpper(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			r -= 32
		}
		out = append(out, r)
	}
	return string(out)
}
