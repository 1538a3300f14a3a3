// Package node 工作流节点共用的小工具
package node

import (
	"encoding/json"
	"strings"
)

const codeFence = "```"

// ExtractJSONObject 从模型输出中截取第一个 JSON 对象或数组
// 先剥离 markdown 代码块，再按首个括号定位；无法定位时原样返回去空白后的文本
func ExtractJSONObject(s string) string {
	raw := stripCodeFence(strings.TrimSpace(s))
	if raw == "" {
		return raw
	}

	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return raw
	}
	closer := "}"
	if raw[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(raw, closer)
	if end <= start {
		return raw
	}
	candidate := raw[start : end+1]

	// 末尾可能夹带第二个值，仅保留第一个
	dec := json.NewDecoder(strings.NewReader(candidate))
	var v json.RawMessage
	if err := dec.Decode(&v); err == nil {
		return string(v)
	}
	return candidate
}

func stripCodeFence(s string) string {
	open := strings.Index(s, codeFence)
	if open < 0 {
		return s
	}
	body := s[open+len(codeFence):]
	// 跳过语言标记行，如 ```json
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, codeFence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
