package utils

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// StringPtr 空串返回 nil，便于写入可空列
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Float64Ptr returns a pointer to a float64
func Float64Ptr(f float64) *float64 {
	return &f
}

// Uint64Ptr returns a pointer to a uint64
func Uint64Ptr(u uint64) *uint64 {
	return &u
}

// ParseOptionalFloat 表单里的可选数字，空串返回 nil
func ParseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("无效的数字 %q: %w", s, err)
	}
	return &f, nil
}

// ParseOptionalInt 同 ParseOptionalFloat
func ParseOptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("无效的整数 %q: %w", s, err)
	}
	return &i, nil
}

// SafeFilename 取上传文件名的最后一段，去掉路径分隔符和控制字符
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '/' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "resume.pdf"
	}
	return name
}
