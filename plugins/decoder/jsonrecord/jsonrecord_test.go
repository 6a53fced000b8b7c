package jsonrecord

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"json2rst/pkg/contract"
)

func decode(t *testing.T, in string) (contract.Record, error) {
	t.Helper()
	return New(nil).Decode(context.Background(), "in/rec.json", strings.NewReader(in))
}

// 保持键顺序，标量按字面量转为字符串
func TestDecodeOrderAndScalars(t *testing.T) {
	rec, err := decode(t, `{"Zeta":"z","Alpha":1.50,"ok":true,"none":null,"n":-3e2}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []contract.Field{
		{Key: "Zeta", Value: contract.Value{Scalar: "z"}},
		{Key: "Alpha", Value: contract.Value{Scalar: "1.50"}},
		{Key: "ok", Value: contract.Value{Scalar: "true"}},
		{Key: "none", Value: contract.Value{Scalar: ""}},
		{Key: "n", Value: contract.Value{Scalar: "-3e2"}},
	}
	if diff := cmp.Diff(want, rec.Fields); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if rec.FileID != "in/rec.json" {
		t.Fatalf("FileID 未设置")
	}
}

func TestDecodeNodes(t *testing.T) {
	rec, err := decode(t, `{"Body":[{"heading":"Intro"},{"p":"a\r\nb"},{"code":7}],"Empty":[]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []contract.Field{
		{Key: "Body", Value: contract.Value{Nodes: []contract.RawNode{
			{Key: "heading", Content: "Intro"},
			{Key: "p", Content: "a\nb"},
			{Key: "code", Content: json.Number("7")},
		}}},
		{Key: "Empty", Value: contract.Value{Nodes: []contract.RawNode{}}},
	}
	if diff := cmp.Diff(want, rec.Fields); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if !rec.Fields[1].Value.IsSequence() {
		t.Fatalf("空数组应为序列")
	}
}

func TestDecodeKeepCRLF(t *testing.T) {
	rec, err := New(&Options{KeepCRLF: true}).Decode(context.Background(), "x.json", strings.NewReader(`{"a":"1\r\n2"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Fields[0].Value.Scalar != "1\r\n2" {
		t.Fatalf("CRLF 应保留")
	}
}

// 重复键：首次出现为准
func TestDecodeDuplicates(t *testing.T) {
	rec, err := decode(t, `{"ID":"first","Name":"n","ID":"second","ID":[{"p":"x"}]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rec.Fields) != 2 || rec.Fields[0].Value.Scalar != "first" {
		t.Fatalf("应保留首次出现: %+v", rec.Fields)
	}
	if diff := cmp.Diff([]string{"ID", "ID"}, rec.Duplicates); diff != "" {
		t.Fatalf("Duplicates 不符:\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"array top", `[{"a":"b"}]`, contract.ErrTypeContract},
		{"scalar top", `"x"`, contract.ErrTypeContract},
		{"nested object", `{"a":{"b":"c"}}`, contract.ErrTypeContract},
		{"two keys", `{"a":[{"p":"x","ul":"y"}]}`, contract.ErrInputShape},
		{"empty node", `{"a":[{}]}`, contract.ErrInputShape},
		{"string element", `{"a":["p"]}`, contract.ErrInputShape},
		{"nested array element", `{"a":[["p"]]}`, contract.ErrInputShape},
		{"syntax", `{"a":`, contract.ErrInvalidInput},
		{"empty", ``, contract.ErrInvalidInput},
		{"trailing", `{"a":"b"} {"c":"d"}`, contract.ErrInvalidInput},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(t, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v got %v", tt.want, err)
			}
			if !strings.Contains(err.Error(), "in/rec.json") {
				t.Fatalf("错误应包含文件名: %v", err)
			}
		})
	}
}

func TestDecodeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil).Decode(ctx, "x", strings.NewReader(`{}`)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expect canceled: %v", err)
	}
}
