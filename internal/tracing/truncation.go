package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200
	// MaxSQLLength SQL语句最大长度
	MaxSQLLength = 500
	// MaxRedisLength Redis键最大长度
	MaxRedisLength = 100
	// MaxResumeLength 简历内容最大长度
	MaxResumeLength = 150
)

// piiKeywords 属性名包含这些关键字时值需要掩码
var piiKeywords = []string{
	"email", "phone", "password", "linkedin", "address", "name", "secret", "token", "姓名", "地址",
}

// SafeAttributeValue 敏感字段掩码，其余超长截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for _, keyword := range piiKeywords {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 对个人敏感信息进行掩码处理。
// 邮箱保留 local 部分首字符和域名: "jane.doe@example.com" -> "j*******@example.com"
func MaskPII(value string) string {
	if value == "" {
		return ""
	}

	if at := strings.LastIndex(value, "@"); at > 0 {
		local := []rune(value[:at])
		return string(local[0]) + strings.Repeat("*", len(local)-1) + value[at:]
	}

	runes := []rune(value)
	length := len(runes)
	if length <= 1 {
		return "*"
	}
	if length <= 4 {
		if length == 2 {
			return string(runes[0:1]) + "*"
		}
		return string(runes[0:1]) + strings.Repeat("*", length-2) + string(runes[length-1:])
	}
	// "9876543210" -> "98******10"
	return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
}

// TruncateString 截断字符串，保留首尾，中间用...连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeSQL 安全处理SQL语句
func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

// SafeRedisKey 安全处理Redis键
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeResumeContent 安全处理简历内容
func SafeResumeContent(content string) string {
	return TruncateString(content, MaxResumeLength)
}
