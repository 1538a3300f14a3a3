package node

import "strings"

// 供应商对 response_format/json_schema 不支持时的报错特征
var responseFormatMarkers = [][]string{
	{"response_format"},
	{"json_schema"},
	{"response_schema"},
	{"failed to parse"},
	{"unknown parameter", "response"},
	{"invalid", "response"},
}

// IsResponseFormatUnsupportedError 判断是否应去掉结构化输出约束后重试
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range responseFormatMarkers {
		if containsAll(msg, marker) {
			return true
		}
	}
	return false
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
