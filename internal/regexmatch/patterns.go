package regexmatch

// patternDef is one regex alternative for a type, with a priority
// used to break ties when two patterns of the same type match the same
// region. Ported from `regex_service.py`'s `BUILTIN_PATTERNS`: several
// types carry more than one pattern (a strict form and a looser
// compatibility form) so the stricter, higher-priority one wins on
// overlap.
type patternDef struct {
	pattern    string
	priority   int
	confidence float64
}

// builtinPatternDefs mirrors `regex_service.py`'s BUILTIN_PATTERNS plus the
// taxonomy's per-type defaults (spec.md §12 "exact regex pattern table").
// Types present in the taxonomy preset but absent here (ORG, PERSON, ...)
// are LLM-only and never reach the Regex Matcher.
var builtinPatternDefs = map[string][]patternDef{
	"ID_CARD": {
		{`(?<!\d)[1-9]\d{5}(?:19|20)\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])\d{3}[\dXx](?!\d)`, 10, 0.99},
		{`(?<!\d)[1-9]\d{5}\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])\d{3}(?!\d)`, 9, 0.95},
	},
	"PHONE": {
		{`(?<!\d)1[3-9]\d{9}(?!\d)`, 10, 0.99},
		{`\b(?:0\d{2,3}[-\s]?)?\d{7,8}\b`, 5, 0.9},
	},
	"BANK_CARD": {
		{`\b(?:62|4|5)\d{14,17}\b`, 10, 0.97},
	},
	"EMAIL": {
		{`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, 10, 0.99},
	},
	"CASE_NUMBER": {
		{`[\(（]\d{4}[\)）][京津沪渝冀豫云辽黑湘皖鲁新苏浙赣鄂桂甘晋蒙陕吉闽贵粤青藏川宁琼使领A-Z]{1,4}\d{0,4}[民刑行执破知赔财商][初终复再抗申裁监督撤]?\d+号`, 10, 0.97},
		{`[\(（]\d{4}[\)）][A-Za-z\p{Han}]+\d*[A-Za-z\p{Han}]*\d+号`, 8, 0.9},
	},
	"DATE": {
		{`\d{4}年\d{1,2}月\d{1,2}日`, 10, 0.95},
		{`\d{4}[-/]\d{1,2}[-/]\d{1,2}`, 9, 0.9},
	},
	"MONEY": {
		{`(?:人民币|￥|¥|RMB)\s*\d[\d,]*(?:\.\d{1,2})?(?:\s*(?:元|万元))?`, 8, 0.8},
		{`\d[\d,]*(?:\.\d{1,2})?\s*(?:元|万元|亿元)`, 9, 0.9},
	},
	"LICENSE_PLATE": {
		{`[京津沪渝冀豫云辽黑湘皖鲁新苏浙赣鄂桂甘晋蒙陕吉闽贵粤青藏川宁琼使领][A-Z][A-Z0-9]{5,6}`, 10, 0.95},
	},
	"IP_ADDRESS": {
		{`\b(?:(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\b`, 10, 0.95},
	},
	"URL": {
		{`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`, 10, 0.95},
	},
}
