package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt 容忍接口返回的数字、数字字符串、null 与浮点，解析失败时取 0。
type FlexInt int64

// UnmarshalJSON 实现宽松解析。
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			*f = FlexInt(v)
		} else if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = FlexInt(int64(v))
		}
		return nil
	}

	if v, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*f = FlexInt(v)
		return nil
	}
	if v, err := strconv.ParseFloat(string(data), 64); err == nil {
		*f = FlexInt(int64(v))
	}
	return nil
}

// Int64 返回原生整数值。
func (f FlexInt) Int64() int64 { return int64(f) }

// ParseClockDuration 将搜索结果中的 "SS"、"MM:SS"、"HH:MM:SS" 时长文本转为秒，异常输入取 0。
func ParseClockDuration(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0
	}
	var total int64
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || v < 0 {
			return 0
		}
		total = total*60 + v
	}
	return total
}
