package jsonrecord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"json2rst/pkg/contract"
)

// Options: 解码选项。
type Options struct {
	// KeepCRLF: 为 true 时保留字符串中的 CRLF；默认归一为 LF。
	KeepCRLF bool `json:"keep_crlf"`
}

// Decoder 将单个 JSON 对象解码为保持键顺序的 contract.Record。
type Decoder struct {
	keepCRLF bool
}

// New 创建解码器。
func New(opts *Options) *Decoder {
	d := &Decoder{}
	if opts != nil {
		d.keepCRLF = opts.KeepCRLF
	}
	return d
}

var _ contract.Decoder = (*Decoder)(nil)

// Decode 读取 r 中的顶层 JSON 对象。
// 值的形状：
//   - JSON 标量 → Value.Scalar（数字保留字面量，null 为空串）；
//   - 数组 → Value.Nodes，元素必须是单键对象；
//   - 嵌套对象 → ErrTypeContract。
//
// 重复键以首次出现为准，后续重复记录到 Record.Duplicates。
func (d *Decoder) Decode(ctx context.Context, fileID contract.FileID, r io.Reader) (contract.Record, error) {
	select {
	case <-ctx.Done():
		return contract.Record{}, ctx.Err()
	default:
	}
	rec := contract.Record{FileID: fileID}
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return rec, d.syntax(fileID, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return rec, fmt.Errorf("%s: top-level JSON value must be an object: %w", fileID, contract.ErrTypeContract)
	}
	seen := make(map[string]struct{})
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return rec, d.syntax(fileID, err)
		}
		key, _ := kt.(string)
		val, err := d.value(dec, fileID, key)
		if err != nil {
			return rec, err
		}
		if _, dup := seen[key]; dup {
			rec.Duplicates = append(rec.Duplicates, key)
			continue
		}
		seen[key] = struct{}{}
		rec.Fields = append(rec.Fields, contract.Field{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil { // '}'
		return rec, d.syntax(fileID, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return rec, fmt.Errorf("%s: trailing data after top-level object: %w", fileID, contract.ErrInvalidInput)
	}
	return rec, nil
}

func (d *Decoder) value(dec *json.Decoder, fileID contract.FileID, key string) (contract.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return contract.Value{}, d.syntax(fileID, err)
	}
	switch t := tok.(type) {
	case json.Delim:
		if t == '{' {
			return contract.Value{}, fmt.Errorf("%s: field %q: nested objects are not supported: %w", fileID, key, contract.ErrTypeContract)
		}
		nodes := make([]contract.RawNode, 0)
		for i := 0; dec.More(); i++ {
			n, err := d.node(dec, fileID, key, i)
			if err != nil {
				return contract.Value{}, err
			}
			nodes = append(nodes, n)
		}
		if _, err := dec.Token(); err != nil { // ']'
			return contract.Value{}, d.syntax(fileID, err)
		}
		return contract.Value{Nodes: nodes}, nil
	default:
		return contract.Value{Scalar: d.scalar(tok)}, nil
	}
}

// node 读取一个单键对象 {"<kind>": <content>}。
func (d *Decoder) node(dec *json.Decoder, fileID contract.FileID, key string, i int) (contract.RawNode, error) {
	shape := func() error {
		return fmt.Errorf("%s: field %q element %d: rich content must be a single-key object: %w", fileID, key, i, contract.ErrInputShape)
	}
	tok, err := dec.Token()
	if err != nil {
		return contract.RawNode{}, d.syntax(fileID, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return contract.RawNode{}, shape()
	}
	if !dec.More() {
		return contract.RawNode{}, shape()
	}
	kt, err := dec.Token()
	if err != nil {
		return contract.RawNode{}, d.syntax(fileID, err)
	}
	var content any
	if err := dec.Decode(&content); err != nil {
		return contract.RawNode{}, d.syntax(fileID, err)
	}
	if dec.More() {
		return contract.RawNode{}, shape()
	}
	if _, err := dec.Token(); err != nil { // '}'
		return contract.RawNode{}, d.syntax(fileID, err)
	}
	if s, ok := content.(string); ok {
		content = d.text(s)
	}
	kind, _ := kt.(string)
	return contract.RawNode{Key: kind, Content: content}, nil
}

func (d *Decoder) scalar(tok json.Token) string {
	switch v := tok.(type) {
	case string:
		return d.text(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default: // null
		return ""
	}
}

func (d *Decoder) text(s string) string {
	if d.keepCRLF {
		return s
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func (d *Decoder) syntax(fileID contract.FileID, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%s: invalid JSON: %w: %w", fileID, contract.ErrInvalidInput, err)
}
