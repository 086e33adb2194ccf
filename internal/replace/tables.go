package replace

// typeLabels is the smart-mode noun-per-type table, ported verbatim from
// `redactor.py`'s `_generate_smart_replacement`.
var typeLabels = map[string]string{
	"PERSON":      "当事人",
	"ORG":         "公司",
	"ID_CARD":     "证件号",
	"PHONE":       "电话",
	"ADDRESS":     "地址",
	"BANK_CARD":   "账号",
	"CASE_NUMBER": "案号",
	"DATE":        "日期",
	"MONEY":       "金额",
	"AMOUNT":      "金额",
	"EMAIL":       "邮箱",
	"LICENSE_PLATE": "车牌",
	"CONTRACT_NO": "合同编号",
	"CUSTOM":      "敏感信息",
}

const defaultSmartLabel = "敏感信息"

// chineseNumerals backs smart-mode's "[<LABEL><numeral>]" counting,
// ported from the same function: one through ten spelled out, Arabic
// numerals from 11 on.
var chineseNumerals = []string{"零", "一", "二", "三", "四", "五", "六", "七", "八", "九", "十"}

// structuredTypeInfo is a (category, path) pair for the built-in
// structured-tag fallback, ported from `_generate_structured_replacement`.
type structuredTypeInfo struct {
	category string
	path     string
}

var structuredDefaults = map[string]structuredTypeInfo{
	"PERSON":        {"人物", "个人.姓名"},
	"ORG":           {"组织", "企业.完整名称"},
	"ADDRESS":       {"地点", "办公地址.完整地址"},
	"PHONE":         {"电话", "固定电话.号码"},
	"ID_CARD":       {"编号", "身份证.号码"},
	"BANK_CARD":     {"编号", "银行卡.号码"},
	"CASE_NUMBER":   {"编号", "案件编号.号码"},
	"DATE":          {"日期/时间", "具体日期.年月日"},
	"MONEY":         {"金额", "合同金额.数值"},
	"AMOUNT":        {"金额", "合同金额.数值"},
	"EMAIL":         {"邮箱", "个人邮箱.地址"},
	"LICENSE_PLATE": {"编号", "车牌.号码"},
	"CONTRACT_NO":   {"编号", "合同编号.代码"},
}
