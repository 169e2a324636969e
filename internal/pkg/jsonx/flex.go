// Package jsonx 处理第三方接口里类型不稳定的 JSON 字段
package jsonx

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexString 同时接受 JSON 字符串和数字，如 "123" 与 123，null 解析为空串
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// bool 之类的值按字面量保存
		*s = FlexString(string(data))
		return nil
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// Int 非数字时返回 0
func (s FlexString) Int() int64 {
	n, _ := strconv.ParseInt(string(s), 10, 64)
	return n
}

// Float 非数字时返回 0
func (s FlexString) Float() float64 {
	f, _ := strconv.ParseFloat(string(s), 64)
	return f
}
