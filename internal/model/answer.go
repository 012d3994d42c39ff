package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// OptionList 选项按顺序存为 JSON 数组，下标即答案字母表
type OptionList []string

func (l OptionList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *OptionList) Scan(src interface{}) error {
	return scanJSON(src, (*[]string)(l))
}

// IndexSet 标准答案的选项下标，按录入顺序保存以保证原样往返
type IndexSet []int

func (s IndexSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *IndexSet) Scan(src interface{}) error {
	return scanJSON(src, (*[]int)(s))
}

func (s IndexSet) Contains(idx int) bool {
	for _, v := range s {
		if v == idx {
			return true
		}
	}
	return false
}

// Equal 按集合比较，忽略顺序与重复
func (s IndexSet) Equal(other IndexSet) bool {
	a := s.set()
	b := other.set()
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func (s IndexSet) set() map[int]struct{} {
	m := make(map[int]struct{}, len(s))
	for _, v := range s {
		m[v] = struct{}{}
	}
	return m
}

// Breakdown 逐题判分明细，键为题目 ID 字符串
type Breakdown map[string]QuestionOutcome

func (b Breakdown) Value() (driver.Value, error) {
	if b == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]QuestionOutcome(b))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (b *Breakdown) Scan(src interface{}) error {
	return scanJSON(src, (*map[string]QuestionOutcome)(b))
}

func scanJSON(src interface{}, dst interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// SubmittedAnswer 客户端提交的原始答案，可以是数字、字符串或它们的数组。
// Tokens 为各个值的字符串形式，数字保留 JSON 原文。
type SubmittedAnswer struct {
	Raw    json.RawMessage
	Tokens []string
	IsList bool
}

// Present JSON null 或缺省均视为未作答
func (a SubmittedAnswer) Present() bool {
	return len(a.Raw) > 0
}

func (a SubmittedAnswer) MarshalJSON() ([]byte, error) {
	if !a.Present() {
		return []byte("null"), nil
	}
	return a.Raw, nil
}

func (a *SubmittedAnswer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = SubmittedAnswer{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}

	out := SubmittedAnswer{Raw: append(json.RawMessage(nil), trimmed...)}
	if list, ok := v.([]interface{}); ok {
		out.IsList = true
		out.Tokens = make([]string, 0, len(list))
		for _, item := range list {
			out.Tokens = append(out.Tokens, tokenString(item))
		}
	} else {
		out.Tokens = []string{tokenString(v)}
	}
	*a = out
	return nil
}

// NewAnswer 由 Go 值构造提交答案，主要供测试和服务端内部使用
func NewAnswer(v interface{}) SubmittedAnswer {
	raw, err := json.Marshal(v)
	if err != nil {
		return SubmittedAnswer{}
	}
	var a SubmittedAnswer
	if err := a.UnmarshalJSON(raw); err != nil {
		return SubmittedAnswer{}
	}
	return a
}

func tokenString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return "null"
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// CanonicalIndex 仅当 token 恰好是某个整数的十进制规范写法时才视为该下标，
// 因此 "1" 与 1 等价，而 "01"、" 1"、"1.0" 都不匹配下标 1。
func CanonicalIndex(token string) (int, bool) {
	n, err := strconv.Atoi(token)
	if err != nil || strconv.Itoa(n) != token {
		return 0, false
	}
	return n, true
}
