package taxonomy

import "github.com/rezonia/pii-redactor/internal/model"

// presetDefs is the built-in entity-type catalog. Ported from the Python
// original's `PRESET_ENTITY_TYPES` (regex patterns, descriptions, default
// tag templates, `order`) with `category`/`risk_level` added per the
// expanded DATA MODEL (fields the original didn't carry; assigned here by
// standard de-identification convention — names/identifiers that alone
// identify a person are `direct`, fields that narrow but don't alone
// identify are `quasi`, financial/ID numbers are `sensitive`).
//
// Patterns are regexp2 syntax (.NET-flavored). The Regex Matcher does not
// compile these preset patterns: Service.RebuildMatcher passes it only
// non-preset types' patterns, and preset types are matched with the
// built-in table in internal/regexmatch.
var presetDefs = []model.EntityTypeConfig{
	{
		ID:          "PERSON",
		Name:        "人名",
		Category:    model.CategoryDirect,
		Description: "自然人姓名，包括中文名、英文名、笔名、艺名等",
		Examples:    []string{"张三", "李明华", "王小二", "John Smith"},
		Color:       "#3B82F6",
		UseLLM:      true,
		TagTemplate: "<人物[{index}].个人.姓名>",
		Order:       1,
		RiskLevel:   5,
	},
	{
		ID:          "ORG",
		Name:        "机构名称",
		Category:    model.CategoryQuasi,
		Description: "公司、组织、政府机构、法院等单位名称",
		Examples:    []string{"北京某某科技有限公司", "某某市中级人民法院", "某某银行"},
		Color:       "#10B981",
		UseLLM:      true,
		TagTemplate: "<组织[{index}].企业.完整名称>",
		Order:       2,
		RiskLevel:   3,
	},
	{
		ID:          "ADDRESS",
		Name:        "地址",
		Category:    model.CategoryQuasi,
		Description: "详细地址，包括省市区街道门牌号",
		Examples:    []string{"北京市朝阳区某某路123号", "上海市浦东新区某某街道某某小区1栋101室"},
		Color:       "#6366F1",
		UseLLM:      true,
		TagTemplate: "<地点[{index}].办公地址.完整地址>",
		Order:       3,
		RiskLevel:   4,
	},
	{
		ID:          "LEGAL_PARTY",
		Name:        "案件当事人",
		Category:    model.CategoryDirect,
		Description: "法律文书中的原告、被告、申请人、被申请人、上诉人、被上诉人等当事人称谓及姓名",
		Examples:    []string{"原告张三", "被告某公司", "申请人李四", "被上诉人王五"},
		Color:       "#F59E0B",
		UseLLM:      true,
		TagTemplate: "<人物[{index}].当事人.姓名>",
		Order:       4,
		RiskLevel:   5,
	},
	{
		ID:          "LAWYER",
		Name:        "律师/代理人",
		Category:    model.CategoryDirect,
		Description: "委托代理人、辩护人、律师姓名及其所属律所",
		Examples:    []string{"北京某某律师事务所律师张三", "委托代理人李四"},
		Color:       "#A855F7",
		UseLLM:      true,
		TagTemplate: "<人物[{index}].律师.姓名>",
		Order:       5,
		RiskLevel:   4,
	},
	{
		ID:          "JUDGE",
		Name:        "法官/书记员",
		Category:    model.CategoryDirect,
		Description: "审判长、审判员、书记员、人民陪审员姓名",
		Examples:    []string{"审判长：张某某", "书记员：李某"},
		Color:       "#0EA5E9",
		UseLLM:      true,
		TagTemplate: "<人物[{index}].司法人员.姓名>",
		Order:       6,
		RiskLevel:   4,
	},
	{
		ID:          "AMOUNT",
		Name:        "金额",
		Category:    model.CategoryOther,
		Description: "涉及的具体金额数目",
		Examples:    []string{"人民币10万元", "500,000元", "叁拾万元整"},
		Color:       "#F43F5E",
		UseLLM:      true,
		TagTemplate: "<金额[{index}].合同金额.数值>",
		Order:       7,
		RiskLevel:   2,
	},
	{
		ID:          "CONTRACT_NO",
		Name:        "合同编号",
		Category:    model.CategoryQuasi,
		Description: "合同、协议的编号",
		Examples:    []string{"合同编号：HT-2024-001", "协议编号：XY20240115"},
		Color:       "#64748B",
		UseLLM:      true,
		TagTemplate: "<编号[{index}].合同编号.代码>",
		Order:       8,
		RiskLevel:   2,
	},
	{
		ID:          "WITNESS",
		Name:        "证人",
		Category:    model.CategoryDirect,
		Description: "证人姓名",
		Examples:    []string{"证人张某", "证人李某某"},
		Color:       "#78716C",
		UseLLM:      true,
		Order:       9,
		RiskLevel:   4,
	},
	{
		ID:           "ID_CARD",
		Name:         "身份证号",
		Category:     model.CategorySensitive,
		Description:  "中国大陆居民身份证号码，18位或15位数字",
		Examples:     []string{"110101199003071234", "11010119900307123X"},
		Color:        "#EF4444",
		RegexPattern: `[1-9]\d{5}(?:19|20)\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])\d{3}[\dXx]`,
		UseLLM:       false,
		TagTemplate:  "<编号[{index}].身份证.号码>",
		Order:        10,
		RiskLevel:    5,
	},
	{
		ID:           "PHONE",
		Name:         "电话号码",
		Category:     model.CategorySensitive,
		Description:  "手机号码或座机号码",
		Examples:     []string{"13812345678", "021-12345678", "010-87654321"},
		Color:        "#F97316",
		RegexPattern: `1[3-9]\d{9}|(?:0\d{2,3}[-\s]?)?\d{7,8}`,
		UseLLM:       false,
		TagTemplate:  "<电话[{index}].固定电话.号码>",
		Order:        11,
		RiskLevel:    4,
	},
	{
		ID:           "BANK_CARD",
		Name:         "银行卡号",
		Category:     model.CategorySensitive,
		Description:  "银行借记卡或信用卡卡号，16-19位数字",
		Examples:     []string{"6222021234567890123", "4367421234567890"},
		Color:        "#EC4899",
		RegexPattern: `(?:62|4|5)\d{14,17}`,
		UseLLM:       false,
		TagTemplate:  "<编号[{index}].银行卡.号码>",
		Order:        12,
		RiskLevel:    5,
	},
	{
		ID:           "CASE_NUMBER",
		Name:         "案件编号",
		Category:     model.CategoryQuasi,
		Description:  "法院案件编号，如(2024)京01民初123号",
		Examples:     []string{"(2024)京01民初123号", "(2023)沪0115民初9876号"},
		Color:        "#8B5CF6",
		RegexPattern: `[\(（]\d{4}[\)）][京津沪渝冀豫云辽黑湘皖鲁新苏浙赣鄂桂甘晋蒙陕吉闽贵粤青藏川宁琼使领A-Za-z]{1,4}\d{0,4}[民刑行执破知赔财商][初终复再抗申裁监督撤]?\d+号`,
		UseLLM:       false,
		TagTemplate:  "<编号[{index}].案件编号.号码>",
		Order:        13,
		RiskLevel:    2,
	},
	{
		ID:           "EMAIL",
		Name:         "邮箱地址",
		Category:     model.CategoryQuasi,
		Description:  "电子邮件地址",
		Examples:     []string{"user@example.com", "info@company.cn"},
		Color:        "#06B6D4",
		RegexPattern: `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
		UseLLM:       false,
		TagTemplate:  "<邮箱[{index}].个人邮箱.地址>",
		Order:        14,
		RiskLevel:    3,
	},
	{
		ID:           "LICENSE_PLATE",
		Name:         "车牌号",
		Category:     model.CategoryQuasi,
		Description:  "机动车号牌",
		Examples:     []string{"京A12345", "沪B67890"},
		Color:        "#14B8A6",
		RegexPattern: `[京津沪渝冀豫云辽黑湘皖鲁新苏浙赣鄂桂甘晋蒙陕吉闽贵粤青藏川宁琼使领][A-Z][A-Z0-9]{5,6}`,
		UseLLM:       false,
		TagTemplate:  "<编号[{index}].车牌.号码>",
		Order:        15,
		RiskLevel:    3,
	},
	{
		ID:           "DATE",
		Name:         "日期",
		Category:     model.CategoryOther,
		Description:  "具体日期信息",
		Examples:     []string{"2024年1月15日", "2024-01-15"},
		Color:        "#84CC16",
		RegexPattern: `\d{4}年\d{1,2}月\d{1,2}日|\d{4}[-/]\d{1,2}[-/]\d{1,2}`,
		UseLLM:       false,
		TagTemplate:  "<日期/时间[{index}].具体日期.年月日>",
		Order:        20,
		RiskLevel:    1,
	},
}

// LoadPresets returns the preset catalog with the Preset flag and
// Enabled default set. Presets with the same id appearing more than once
// in this slice are resolved "newest-import-wins" (§9 Open Question): a
// later entry overwrites an earlier one sharing an id, which matters if
// a future preset update appends a revised definition rather than
// editing in place.
func LoadPresets() []model.EntityTypeConfig {
	byID := make(map[string]model.EntityTypeConfig, len(presetDefs))
	order := make([]string, 0, len(presetDefs))
	for _, def := range presetDefs {
		def.Preset = true
		def.Enabled = true
		if def.RegexPattern == "" {
			def.UseLLM = true
		}
		if _, seen := byID[def.ID]; !seen {
			order = append(order, def.ID)
		}
		byID[def.ID] = def
	}

	out := make([]model.EntityTypeConfig, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}
