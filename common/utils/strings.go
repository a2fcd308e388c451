package utils

import "strings"

// TrimOrDefault 去除首尾空白，结果为空时返回默认值
func TrimOrDefault(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}

func Contains[T comparable](data []T, value T) bool {
	for _, v := range data {
		if v == value {
			return true
		}
	}
	return false
}
