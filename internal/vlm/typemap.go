package vlm

import "strings"

// labelToTypeID maps model-chosen labels (Chinese and English synonyms)
// to stable taxonomy type ids. spec.md §4.6 describes a many-to-one table
// of "hundreds" of entries trained against observed model vocabulary; this
// is the representative working subset for the types the taxonomy
// actually ships presets for, extended with a keyword fallback below for
// anything the table misses.
var labelToTypeID = map[string]string{
	"person": "PERSON", "name": "PERSON", "人名": "PERSON", "姓名": "PERSON", "当事人": "LEGAL_PARTY",
	"organization": "ORG", "company": "ORG", "组织": "ORG", "公司": "ORG", "单位": "ORG",
	"address": "ADDRESS", "地址": "ADDRESS", "住址": "ADDRESS",
	"lawyer": "LAWYER", "律师": "LAWYER", "attorney": "LAWYER",
	"judge": "JUDGE", "法官": "JUDGE", "审判员": "JUDGE",
	"amount": "AMOUNT", "money": "AMOUNT", "金额": "AMOUNT", "款项": "AMOUNT",
	"contract_no": "CONTRACT_NO", "合同编号": "CONTRACT_NO", "合同号": "CONTRACT_NO",
	"witness": "WITNESS", "证人": "WITNESS",
	"id_card": "ID_CARD", "身份证": "ID_CARD", "身份证号": "ID_CARD", "id number": "ID_CARD",
	"phone": "PHONE", "电话": "PHONE", "手机号": "PHONE", "联系方式": "PHONE",
	"bank_card": "BANK_CARD", "银行卡": "BANK_CARD", "银行卡号": "BANK_CARD", "card number": "BANK_CARD",
	"case_number": "CASE_NUMBER", "案号": "CASE_NUMBER", "案件编号": "CASE_NUMBER",
	"email": "EMAIL", "邮箱": "EMAIL", "电子邮件": "EMAIL",
	"license_plate": "LICENSE_PLATE", "车牌": "LICENSE_PLATE", "车牌号": "LICENSE_PLATE",
	"date": "DATE", "日期": "DATE",
	"seal": "SEAL", "stamp": "SEAL", "印章": "SEAL", "公章": "SEAL", "章": "SEAL",
}

// keywordFallback catches labels the exact table misses, matching
// spec.md §4.6's "heuristic fallback: keyword matching".
var keywordFallback = []struct {
	keyword string
	typeID  string
}{
	{"seal", "SEAL"}, {"stamp", "SEAL"}, {"章", "SEAL"},
	{"phone", "PHONE"}, {"电话", "PHONE"}, {"手机", "PHONE"},
	{"address", "ADDRESS"}, {"地址", "ADDRESS"},
	{"name", "PERSON"}, {"姓名", "PERSON"}, {"人名", "PERSON"},
	{"org", "ORG"}, {"公司", "ORG"}, {"单位", "ORG"},
	{"card", "BANK_CARD"}, {"卡号", "BANK_CARD"},
	{"id", "ID_CARD"}, {"身份证", "ID_CARD"},
}

// MapLabelToTypeID translates a model-chosen label to a taxonomy type id,
// trying the exact table (case-insensitive) first, then keyword matching,
// and finally uppercasing the raw label as a last resort.
func MapLabelToTypeID(label string) string {
	lower := strings.ToLower(strings.TrimSpace(label))
	if id, ok := labelToTypeID[lower]; ok {
		return id
	}
	for _, kw := range keywordFallback {
		if strings.Contains(lower, kw.keyword) {
			return kw.typeID
		}
	}
	return strings.ToUpper(label)
}
