package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// 级别定义
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Logger 为最小结构化日志器：单行 JSON。
// 配置了目录时写入轮转文件，否则写 stderr。
type Logger struct {
	corrID string
	level  Level
	sink   *RotatingFile
	out    io.Writer
	mu     sync.Mutex
}

// NewLogger 通过配置的 level 初始化；dir 非空时日志写入 dir，10MiB 轮转。
func NewLogger(corrID, level, dir string) *Logger {
	l := &Logger{corrID: corrID, level: parseLevel(strings.TrimSpace(level)), out: os.Stderr}
	if d := strings.TrimSpace(dir); d != "" {
		l.sink = NewRotatingFile(d, 10*1024*1024)
	}
	return l
}

// NewWriterLogger 将日志直接写入 w（测试与嵌入场景）。
func NewWriterLogger(corrID, level string, w io.Writer) *Logger {
	return &Logger{corrID: corrID, level: parseLevel(strings.TrimSpace(level)), out: w}
}

// CorrID 返回本次运行的关联 ID。
func (l *Logger) CorrID() string { return l.corrID }

// Close 关闭文件 sink（若有）。
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// Event 为标准事件结构。
type Event struct {
	Level  string            `json:"level"`
	TS     string            `json:"ts"`
	CorrID string            `json:"corr_id"`
	Comp   string            `json:"comp"`
	Stage  string            `json:"stage"` // start|finish|warn|error
	Code   string            `json:"code,omitempty"`
	DurMS  int64             `json:"dur_ms,omitempty"`
	Count  int64             `json:"count,omitempty"`
	FileID string            `json:"file_id,omitempty"`
	Msg    string            `json:"msg"`
	KV     map[string]string `json:"kv,omitempty"`
}

func (l *Logger) log(lv Level, ev Event) {
	if l == nil || lv < l.level {
		return
	}
	ev.Level = lv.String()
	ev.TS = NowUTC()
	ev.CorrID = l.corrID
	b, _ := json.Marshal(ev)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink == nil {
		_, _ = l.out.Write(append(b, '\n'))
		return
	}
	if err := l.sink.WriteLine(b); err != nil {
		fmt.Fprintf(os.Stderr, "logger sink error: %v\n", err)
		_, _ = os.Stderr.Write(append(b, '\n'))
	}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带 file_id 的 start。
func (l *Logger) StartWith(comp, msg, fileID string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", FileID: fileID, Msg: msg})
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

// StartWithKV 记录带 file_id 与键值的 start。
func (l *Logger) StartWithKV(comp, msg, fileID string, kv map[string]string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", FileID: fileID, Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

// Warn 记录可继续运行的异常（例如被丢弃的重复键）。
func (l *Logger) Warn(comp, msg, fileID string, kv map[string]string) {
	l.log(Warn, Event{Comp: comp, Stage: "warn", FileID: fileID, Msg: msg, KV: kv})
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", nil)
}

// ErrorWith 支持 file_id。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID string) {
	l.ErrorWithKV(comp, code, msg, durSince, fileID, nil)
}

// ErrorWithKV 支持附带键值对（例如字段名、节点序号）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, fileID string, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, FileID: fileID, KV: kv})
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.log(Info, Event{Comp: comp, Stage: "finish", DurMS: time.Since(start).Milliseconds(), Count: count, Msg: msg})
}

// Debug 输出调试事件（仅在 level=debug 时生效）。
func (l *Logger) Debug(comp, msg, fileID string, kv map[string]string) {
	l.log(Debug, Event{Comp: comp, Stage: "start", FileID: fileID, Msg: msg, KV: kv})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	t0     time.Time
}

// Since 返回计时起点，用于错误事件的 dur_ms。
func (t *Timer) Since() *time.Time {
	if t == nil {
		return nil
	}
	return &t.t0
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(Info, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, FileID: t.fileID, Msg: msg})
}
