// Package pivot 将多个扁平 JSON 记录按选定表头投影为一张 CSV 表。
package pivot

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"json2rst/pkg/contract"
)

// Order 排序方向。
type Order string

const (
	Ascending  Order = "ascending"
	Descending Order = "descending"
)

// ParseOrder 解析排序方向；空串视为升序。
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	}
	return "", errors.Wrapf(contract.ErrInvalidInput, "sort order %q (expected ascending or descending)", s)
}

// Table 表头 + 行；每行与表头等长。
type Table struct {
	Headers []string
	Rows    [][]string
	// Duplicates 记录构造时被丢弃的重复表头（首次出现者保留）。
	Duplicates []string
}

// NewTable 去重表头，保持首次出现的顺序。
func NewTable(headers []string) (*Table, error) {
	t := &Table{}
	seen := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, errors.Wrap(contract.ErrInvalidInput, "empty header name")
		}
		if _, ok := seen[h]; ok {
			t.Duplicates = append(t.Duplicates, h)
			continue
		}
		seen[h] = struct{}{}
		t.Headers = append(t.Headers, h)
	}
	if len(t.Headers) == 0 {
		return nil, errors.Wrap(contract.ErrInvalidInput, "pivot needs at least one header")
	}
	return t, nil
}

// Add 按表头顺序抽取 rec 的字段并追加一行。
// 缺失字段：strict 时返回 ErrPivotStrict，否则留空单元格。
func (t *Table) Add(src contract.FileID, rec contract.Record, strict bool) error {
	row := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		v, ok := rec.Lookup(h)
		if !ok {
			if strict {
				return errors.Wrapf(contract.ErrPivotStrict, "%s: missing field %q", src, h)
			}
			continue
		}
		if v.IsSequence() {
			return errors.Wrapf(contract.ErrTypeContract, "%s: field %q is not a scalar", src, h)
		}
		row[i] = v.Scalar
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Len 行数（不含表头）。
func (t *Table) Len() int { return len(t.Rows) }

// WriteCSV 写出表头与所有行。
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return errors.Wrap(err, "write csv rows")
	}
	return nil
}

// ReadCSV 读回 WriteCSV 的输出；首行为表头。
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(recs) == 0 {
		return nil, errors.Wrap(contract.ErrInvalidInput, "csv has no header row")
	}
	return &Table{Headers: recs[0], Rows: recs[1:]}, nil
}

// Sort 按列 by 稳定排序；比较使用数字感知的 Unicode 排序规则。
func (t *Table) Sort(by string, order Order) error {
	col := -1
	for i, h := range t.Headers {
		if h == by {
			col = i
			break
		}
	}
	if col < 0 {
		return errors.Wrapf(contract.ErrInvalidInput, "sort column %q not in headers %v", by, t.Headers)
	}
	c := collate.New(language.Und, collate.Numeric)
	sort.SliceStable(t.Rows, func(i, j int) bool {
		cmp := c.CompareString(t.Rows[i][col], t.Rows[j][col])
		if order == Descending {
			return cmp > 0
		}
		return cmp < 0
	})
	return nil
}
