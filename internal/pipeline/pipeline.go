package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"json2rst/internal/diag"
	"json2rst/internal/pivot"
	"json2rst/pkg/contract"
)

// - 严格顺序：一次一个文件、一条记录；组件均为同步实现。
// - 首错即止：任一阶段出现错误立即返回，不产生该文件的部分输出。
// - 先渲染后写出：页面完整渲染成功后才调用 Writer。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader   contract.Reader
	Decoder  contract.Decoder
	Renderer contract.PageRenderer
	Writer   contract.Writer
}

// PivotSettings 透视模式参数。
type PivotSettings struct {
	Headers   []string
	Strict    bool
	SortBy    string
	SortOrder string
	// CSVOut 输出工件名（相对输出根）；空串使用 DefaultCSVOut。
	CSVOut string
}

// DefaultCSVOut 透视表默认工件名。
const DefaultCSVOut = "pivot.csv"

// Settings 运行期配置（最小必要）。
type Settings struct {
	Inputs []string
	Pivot  PivotSettings
}

// Run 执行渲染流水线：Reader → Decoder → Renderer → Writer（<name>.rst）。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	if err := sanity(comp, set, true); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	names := make(map[string]contract.FileID)
	perFile := func(fid contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		rec, err := decode(ctx, comp.Decoder, fid, rc, logger)
		if err != nil {
			return err
		}
		if t := diag.GetTerminal(); t != nil {
			t.FileStart(string(fid), len(rec.Fields))
		}
		var written int64
		ok := false
		defer func() {
			if t := diag.GetTerminal(); t != nil {
				t.FileFinish(ok, written)
			}
		}()

		rtimer := logger.StartWith("renderer", "render", string(fid))
		page, err := comp.Renderer.Render(ctx, rec)
		if err != nil {
			logFailure(logger, "renderer", "render failed", rtimer, string(fid), err)
			return fmt.Errorf("renderer render: %w", err)
		}
		finish(rtimer, "renderer", "render", int64(len(rec.Fields)))

		if strings.TrimSpace(page.Name) == "" {
			err := fmt.Errorf("%w: %s has no usable output name", contract.ErrInvalidInput, fid)
			logFailure(logger, "writer", "empty output name", nil, string(fid), err)
			return err
		}
		id := contract.ArtifactID(page.Name + ".rst")
		if prev, dup := names[string(id)]; dup {
			err := fmt.Errorf("%w: %s and %s both render to %s", contract.ErrInvalidInput, prev, fid, id)
			logFailure(logger, "writer", "output name collision", nil, string(fid), err)
			return err
		}
		names[string(id)] = fid

		wtimer := logger.StartWithKV("writer", "write", string(fid), map[string]string{"artifact": string(id)})
		if err := comp.Writer.Write(ctx, id, strings.NewReader(page.Text)); err != nil {
			logFailure(logger, "writer", "write failed", wtimer, string(fid), err)
			return fmt.Errorf("writer write %s: %w", id, err)
		}
		written = int64(len(page.Text))
		finish(wtimer, "writer", "write", written)
		ok = true
		return nil
	}
	return iterate(ctx, comp.Reader, set.Inputs, logger, perFile)
}

// RunPivot 执行透视流水线：Reader → Decoder → pivot.Table → Writer（CSV），
// 若设置了排序列，则读回已写出的 CSV，排序后重写。
func RunPivot(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	if err := sanity(comp, set, false); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	ps := set.Pivot
	order, err := pivot.ParseOrder(ps.SortOrder)
	if err != nil {
		return err
	}
	tbl, err := pivot.NewTable(ps.Headers)
	if err != nil {
		return err
	}
	for _, h := range tbl.Duplicates {
		logger.Warn("pivot", "duplicate header dropped", "", map[string]string{"header": h})
	}
	sortBy := strings.TrimSpace(ps.SortBy)
	if sortBy != "" && !contains(tbl.Headers, sortBy) {
		return fmt.Errorf("%w: sort column %q not in headers %v", contract.ErrInvalidInput, sortBy, tbl.Headers)
	}
	csvOut := contract.ArtifactID(strings.TrimSpace(ps.CSVOut))
	if csvOut == "" {
		csvOut = DefaultCSVOut
	}

	perFile := func(fid contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		rec, err := decode(ctx, comp.Decoder, fid, rc, logger)
		if err != nil {
			return err
		}
		if t := diag.GetTerminal(); t != nil {
			t.FileStart(string(fid), len(rec.Fields))
		}
		if err := tbl.Add(fid, rec, ps.Strict); err != nil {
			if t := diag.GetTerminal(); t != nil {
				t.FileFinish(false, 0)
			}
			logFailure(logger, "pivot", "add row failed", nil, string(fid), err)
			return fmt.Errorf("pivot add: %w", err)
		}
		diag.IncOp("pivot", "finish", "success")
		if t := diag.GetTerminal(); t != nil {
			t.FileFinish(true, 0)
		}
		return nil
	}
	if err := iterate(ctx, comp.Reader, set.Inputs, logger, perFile); err != nil {
		return err
	}

	if err := writeTable(ctx, comp.Writer, csvOut, tbl, logger); err != nil {
		return err
	}
	if sortBy == "" {
		return nil
	}

	// 排序：读回已写出的文件，保证排序对象与落盘内容一致
	rb, ok := comp.Writer.(contract.ReadBacker)
	if !ok {
		return fmt.Errorf("%w: writer cannot read back %s for sorting", contract.ErrInvalidInput, csvOut)
	}
	stimer := logger.StartWithKV("pivot", "sort", "", map[string]string{"by": sortBy, "order": string(order)})
	rc, err := rb.Open(ctx, csvOut)
	if err != nil {
		logFailure(logger, "pivot", "read back failed", stimer, "", err)
		return fmt.Errorf("pivot read back %s: %w", csvOut, err)
	}
	sorted, err := pivot.ReadCSV(rc)
	_ = rc.Close()
	if err != nil {
		logFailure(logger, "pivot", "read back failed", stimer, "", err)
		return fmt.Errorf("pivot read back %s: %w", csvOut, err)
	}
	if err := sorted.Sort(sortBy, order); err != nil {
		logFailure(logger, "pivot", "sort failed", stimer, "", err)
		return fmt.Errorf("pivot sort: %w", err)
	}
	finish(stimer, "pivot", "sort", int64(sorted.Len()))
	return writeTable(ctx, comp.Writer, csvOut, sorted, logger)
}

func writeTable(ctx context.Context, w contract.Writer, id contract.ArtifactID, tbl *pivot.Table, logger *diag.Logger) error {
	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		return fmt.Errorf("pivot csv: %w", err)
	}
	n := int64(buf.Len())
	wtimer := logger.StartWithKV("writer", "write", "", map[string]string{"artifact": string(id)})
	if err := w.Write(ctx, id, &buf); err != nil {
		logFailure(logger, "writer", "write failed", wtimer, "", err)
		return fmt.Errorf("writer write %s: %w", id, err)
	}
	finish(wtimer, "writer", "write", n)
	return nil
}

func iterate(ctx context.Context, r contract.Reader, inputs []string, logger *diag.Logger, fn func(contract.FileID, io.ReadCloser) error) error {
	rtimer := logger.Start("reader", "iterate")
	files := int64(0)
	err := r.Iterate(ctx, inputs, func(fid contract.FileID, rc io.ReadCloser) error {
		files++
		return fn(fid, rc)
	})
	if err != nil {
		logFailure(logger, "reader", "iterate failed", rtimer, "", err)
		return fmt.Errorf("reader iterate: %w", err)
	}
	finish(rtimer, "reader", "iterate", files)
	return nil
}

func decode(ctx context.Context, d contract.Decoder, fid contract.FileID, r io.Reader, logger *diag.Logger) (contract.Record, error) {
	dtimer := logger.StartWith("decoder", "decode", string(fid))
	rec, err := d.Decode(ctx, fid, r)
	if err != nil {
		logFailure(logger, "decoder", "decode failed", dtimer, string(fid), err)
		return contract.Record{}, fmt.Errorf("decoder decode: %w", err)
	}
	for _, k := range rec.Duplicates {
		logger.Warn("decoder", "duplicate key dropped, first occurrence kept", string(fid), map[string]string{"key": k})
	}
	finish(dtimer, "decoder", "decode", int64(len(rec.Fields)))
	return rec, nil
}

// logFailure 统一记录错误事件与错误指标。
func logFailure(logger *diag.Logger, comp, msg string, t *diag.Timer, fileID string, err error) {
	code := diag.Classify(err)
	logger.ErrorWithKV(comp, string(code), msg, t.Since(), fileID, map[string]string{"err": err.Error()})
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func finish(t *diag.Timer, comp, stage string, count int64) {
	if t != nil {
		t.Finish(stage, count)
		if since := t.Since(); since != nil {
			diag.ObserveDuration(comp, stage, time.Since(*since).Milliseconds())
		}
	}
	diag.IncOp(comp, "finish", "success")
}

func sanity(c Components, s Settings, render bool) error {
	if c.Reader == nil || c.Decoder == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if render && c.Renderer == nil {
		return errors.New("pipeline: missing renderer")
	}
	if len(s.Inputs) == 0 {
		return errors.New("pipeline: empty inputs")
	}
	return nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
