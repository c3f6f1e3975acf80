package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagSeparator = regexp.MustCompile(`[,\s]+`)
	nonAlnum     = regexp.MustCompile(`[^a-z0-9]`)
)

// MaxTagLength 单个标签的最大长度，超出部分截断
const MaxTagLength = 64

// ParseTags 把 "dp, graphs  two-pointers" 解析成 [DP GRAPHS TWO-POINTERS]。
// 按逗号和空白切分，去空、转大写、去重并保持首次出现的顺序
func ParseTags(raw string) []string {
	parts := tagSeparator.Split(raw, -1)
	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		tag := strings.ToUpper(strings.TrimSpace(p))
		if tag == "" {
			continue
		}
		tag = truncateUTF8(tag, MaxTagLength)
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// truncateUTF8 按字节上限截断，但不会切开多字节字符
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// NormalizeCompany 公司匹配键：小写后去掉非字母数字，再转大写。"J.P. Morgan" -> "JPMORGAN"
func NormalizeCompany(name string) string {
	return strings.ToUpper(nonAlnum.ReplaceAllString(strings.ToLower(name), ""))
}
