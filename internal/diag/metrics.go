package diag

import (
	"sort"
	"strings"
	"sync"
)

// 进程内指标（仅计数与累计耗时），名称：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}
var (
	metricsMu sync.Mutex
	counters  = map[string]int64{}
)

func metricKey(name string, labels ...string) string {
	return name + "{" + strings.Join(labels, ",") + "}"
}

func add(key string, v int64) {
	metricsMu.Lock()
	counters[key] += v
	metricsMu.Unlock()
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	add(metricKey("op_total", comp, stage, result), 1)
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	add(metricKey("error_total", comp, code), 1)
}

// ObserveDuration 累计阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	add(metricKey("op_duration_ms", comp, stage), durMS)
}

// Snapshot 返回当前计数的副本。
func Snapshot() map[string]int64 {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	out := make(map[string]int64, len(counters))
	for k, v := range counters {
		out[k] = v
	}
	return out
}

// SnapshotKeys 按字典序返回已出现的指标键。
func SnapshotKeys() []string {
	snap := Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResetMetrics 清空全部计数。
func ResetMetrics() {
	metricsMu.Lock()
	counters = map[string]int64{}
	metricsMu.Unlock()
}
