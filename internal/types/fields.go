package types

import (
	"bytes"
	"encoding/json"
)

// Fields 保持插入顺序的字段映射。
// 对已存在的键再次赋值只覆盖值，位置保持首次插入时的位置。
type Fields struct {
	keys   []string
	values map[string]any
}

// NewFields 创建空的Fields
func NewFields() *Fields {
	return &Fields{values: make(map[string]any)}
}

// Set 设置字段值，返回该键此前是否已存在
func (f *Fields) Set(key string, value any) bool {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	_, exists := f.values[key]
	if !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
	return exists
}

// Get 读取字段值
func (f *Fields) Get(key string) (any, bool) {
	if f == nil || f.values == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// GetString 读取字符串类型的字段值，不存在或类型不符时返回空串
func (f *Fields) GetString(key string) string {
	v, ok := f.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Keys 按插入顺序返回字段名
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len 字段数量
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Merge 把other中的字段依次写入f，同名字段被覆盖。返回发生覆盖的字段名。
func (f *Fields) Merge(other *Fields) []string {
	if other == nil {
		return nil
	}
	var collisions []string
	for _, key := range other.keys {
		if f.Set(key, other.values[key]) {
			collisions = append(collisions, key)
		}
	}
	return collisions
}

// MarshalJSON 按插入顺序输出JSON对象
func (f *Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeValue(&buf, key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeValue(&buf, f.values[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeValue 写入不做HTML转义的JSON
func encodeValue(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}
