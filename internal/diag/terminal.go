package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

// Terminal: 终端信息提示（非日志）。
// - 输出到提供的 io.Writer（默认建议 stderr）。
// - TTY: 处理中的文件以单行 \r 覆盖；非 TTY: 关键节点分行打印。
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	mode      string
	filesDone int
	bytesOut  int64
	runStart  time.Time

	curFileID string // 短名（base + 按显示宽度截断）
	fileStart time.Time

	lastLen int

	mu sync.Mutex
}

// 进程级终端（可选，全局设置后供 pipeline 旁路调用）。
var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal 构造终端提示器。
// enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	// CI 环境视为非 TTY
	if os.Getenv("CI") != "" {
		t.isTTY = false
	} else if f, ok := w.(*os.File); ok {
		t.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return t
}

// RunStart: 记录运行模式（render|pivot）。
func (t *Terminal) RunStart(mode string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.mode = mode
	t.filesDone = 0
	t.bytesOut = 0
	t.runStart = time.Now()
	t.println(fmt.Sprintf("[run] 模式=%s", safe(mode)))
}

// FileStart: 标记当前文件与字段数。
func (t *Terminal) FileStart(fileID string, fields int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.curFileID = shortenBase(fileID, 48)
	t.fileStart = time.Now()
	line := fmt.Sprintf("[file] %s | 字段=%d", t.curFileID, fields)
	if t.isTTY {
		t.printInline(line)
		return
	}
	t.println(line)
}

// FileFinish: 完成当前文件（立即换行；FilesDone++）；written 为写出字节数。
func (t *Terminal) FileFinish(ok bool, written int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.filesDone++
	t.bytesOut += written
	status := "done"
	if !ok {
		status = "fail"
	}
	// 先清掉可能的行尾
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	t.println(fmt.Sprintf("[%s] %s | 写出 %s | 用时 %s",
		status, t.curFileID, humanize.Bytes(uint64(written)), formatSince(t.fileStart)))
}

// RunFinish: 结束总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	t.println(fmt.Sprintf("[%s] 全部完成 | 文件 %d | 写出 %s | 总用时 %s",
		tag, t.filesDone, humanize.Bytes(uint64(t.bytesOut)), formatDur(dur)))
}

func (t *Terminal) println(s string) {
	if t == nil || !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		// 写失败即禁用
		t.enabled = false
	}
	t.lastLen = 0
}

func (t *Terminal) printInline(s string) {
	if t == nil || !t.enabled {
		return
	}
	// 若新行比旧行短，填充空格覆盖残留
	pad := 0
	if l := visLen(s); t.lastLen > l {
		pad = t.lastLen - l
	}
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

// shortenBase: 取基名并按显示宽度截断（尾部省略号）。
func shortenBase(s string, max int) string {
	if max <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	if visLen(base) <= max {
		return base
	}
	return runewidth.Truncate(base, max, "…")
}

func visLen(s string) int { return runewidth.StringWidth(s) }

func safe(s string) string {
	// 避免换行等控制字符污染终端
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatSince(t0 time.Time) string { return formatDur(time.Since(t0)) }

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms <= 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	s := float64(d.Milliseconds()) / 1000.0
	return fmt.Sprintf("%.1fs", s)
}
