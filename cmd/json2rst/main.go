package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	cfgpkg "json2rst/internal/config"
	"json2rst/internal/diag"
	"json2rst/internal/pipeline"
)

var (
	pipelineRun = pipeline.Run
	pivotRun    = pipeline.RunPivot
)

// 退出码
const (
	exitOK     = 0
	exitRun    = 1
	exitConfig = 3
)

// 用法：
//
//	json2rst --input <file|dir> [--output <dir>]
//	json2rst pivot --input <file|dir> --headers a,b,c [--strict] [--sort-by f] [--sort-order ascending|descending] [--csv-out name]
func main() {
	os.Exit(run())
}

func run() int {
	start := time.Now()
	corrID := uuid.NewString()
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")
	// 先用 stderr 占位，合并配置后按最终 level/dir 重建
	logger := diag.NewLogger(corrID, "info", "")

	var (
		flagConfig    string
		flagInput     string
		flagOutput    string
		flagHeaders   string
		flagStrict    bool
		flagSortBy    string
		flagSortOrder string
		flagCSVOut    string
		flagLogLevel  string
		flagLogDir    string
		flagInitDir   string
		flagStatus    bool
	)
	flag.StringVar(&flagConfig, "config", "", "配置文件路径（.json/.yaml/.yml）；缺省读取 ./config.json（若存在）")
	flag.StringVar(&flagInput, "input", "", "输入 JSON 文件或目录（多个用逗号分隔；\"-\" 表示 STDIN）")
	flag.StringVar(&flagOutput, "output", "", "输出目录（默认 .）")
	flag.StringVar(&flagHeaders, "headers", "", "pivot：逗号分隔的表头字段")
	flag.BoolVar(&flagStrict, "strict", false, "pivot：缺少任一表头字段即失败")
	flag.StringVar(&flagSortBy, "sort-by", "", "pivot：排序列")
	flag.StringVar(&flagSortOrder, "sort-order", "", "pivot：ascending|descending（默认 ascending）")
	flag.StringVar(&flagCSVOut, "csv-out", "", "pivot：CSV 文件名（默认 pivot.csv）")
	flag.StringVar(&flagLogLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	flag.StringVar(&flagLogDir, "log-dir", "", "日志目录（为空写 stderr）")
	flag.StringVar(&flagInitDir, "init-config", "", "在指定目录生成默认配置 config.json 和 .env 模板（若已存在则跳过，不覆盖）；不带值时默认当前目录")
	flag.BoolVar(&flagStatus, "status", true, "终端状态提示（stderr）。TTY 单行刷新；非 TTY 打点输出")
	normalizeInitArg()
	flag.Parse()

	// 位置参数：可选子命令 pivot，其后的旗标继续解析
	pivotMode := false
	for args := flag.Args(); len(args) > 0; args = flag.Args() {
		if args[0] != "pivot" || pivotMode {
			fprintf(os.Stderr, "未知参数: %q\n", args[0])
			return exitConfig
		}
		pivotMode = true
		if err := flag.CommandLine.Parse(args[1:]); err != nil {
			fprintf(os.Stderr, "参数解析失败: %v\n", err)
			return exitConfig
		}
	}
	strictSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "strict" {
			strictSet = true
		}
	})

	// --init-config: 生成模板并退出
	if initDir := strings.TrimSpace(flagInitDir); initDir != "" {
		if err := os.MkdirAll(initDir, 0o755); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			logger.Error("cli", string(diag.Classify(err)), "init-config failed", &start)
			return exitConfig
		}
		if err := writeConfig(filepath.Join(initDir, "config.json"), cfgpkg.DefaultTemplateConfig()); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			logger.Error("cli", string(diag.Classify(err)), "init-config failed", &start)
			return exitConfig
		}
		if err := writeDotEnv(filepath.Join(initDir, ".env")); err != nil {
			fprintf(os.Stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
		}
		return exitOK
	}

	// 原样 JSON 配置（ENV: JSON2RST_CONFIG_JSON），与配置文件二选一，ENV 优先
	var cfgJSON []byte
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		cfgJSON = []byte(s)
	}
	if flagConfig == "" {
		flagConfig = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if flagConfig == "" {
		if _, err := os.Stat("config.json"); err == nil {
			flagConfig = "config.json"
		}
	}

	cfg := cfgpkg.Defaults()
	if flagConfig != "" || len(cfgJSON) > 0 {
		var (
			base cfgpkg.Config
			err  error
		)
		if len(cfgJSON) > 0 {
			base, err = cfgpkg.LoadJSON("", cfgJSON)
		} else {
			base, err = cfgpkg.Load(flagConfig)
		}
		if err != nil {
			fprintf(os.Stderr, "配置解析失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "load failed", &start)
			return exitConfig
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		fprintf(os.Stderr, "环境变量解析失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "env overlay failed", &start)
		return exitConfig
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	// CLI 覆盖
	var overCLI cfgpkg.Config
	overCLI.Inputs = cfgpkg.SplitComma(flagInput)
	overCLI.OutputDir = flagOutput
	overCLI.Logging = cfgpkg.Logging{Level: flagLogLevel, Dir: flagLogDir}
	if pivotMode {
		overCLI.Pivot.Enabled = cfgpkg.Bool(true)
	}
	overCLI.Pivot.Headers = cfgpkg.SplitComma(flagHeaders)
	if strictSet {
		overCLI.Pivot.Strict = cfgpkg.Bool(flagStrict)
	}
	overCLI.Pivot.SortBy = flagSortBy
	overCLI.Pivot.SortOrder = flagSortOrder
	overCLI.Pivot.CSVOut = flagCSVOut
	cfg = cfgpkg.Merge(cfg, overCLI)

	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(os.Stderr, "配置校验失败: %v\n", err)
		_ = dumpConfig(cfg)
		logger.Error("config", string(diag.Classify(err)), "validate failed", &start)
		return exitConfig
	}

	logger = diag.NewLogger(corrID, cfg.Logging.Level, cfg.Logging.Dir)
	defer logger.Close()

	if err := preflightCheckOutputDir(cfg); err != nil {
		fprintf(os.Stderr, "输出目录不可写或无法创建: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "preflight failed", &start)
		return exitConfig
	}

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fprintf(os.Stderr, "装配失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "assemble failed", &start)
		return exitConfig
	}

	mode := "render"
	runner := pipelineRun
	if cfg.Pivot.IsEnabled() {
		mode = "pivot"
		runner = pivotRun
	}

	term := diag.NewTerminal(os.Stderr, flagStatus)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	term.RunStart(mode)

	logger.Debug("config", "effective", "", map[string]string{
		"mode":       mode,
		"inputs":     strings.Join(cfg.Inputs, ","),
		"output_dir": cfgpkg.EffectiveOutputDir(cfg),
		"reader":     cfg.Components.Reader,
		"decoder":    cfg.Components.Decoder,
		"image":      cfg.Components.Image,
		"writer":     cfg.Components.Writer,
		"headers":    strings.Join(cfg.Pivot.Headers, ","),
		"sort_by":    cfg.Pivot.SortBy,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	t := logger.StartWithKV("pipeline", "run", "", map[string]string{"mode": mode})
	if err := runner(ctx, comp, set, logger); err != nil {
		code := string(diag.Classify(err))
		logger.Error("pipeline", code, "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(os.Stderr, "运行失败: %v\n", err)
		}
		term.RunFinish(false, time.Since(start))
		return exitRun
	}
	t.Finish("run", 0)
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	term.RunFinish(true, time.Since(start))
	return exitOK
}

func fprintf(w *os.File, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, _ = os.Stderr.Write(append([]byte("有效配置:\n"), b...))
	_, _ = os.Stderr.Write([]byte("\n"))
	return nil
}

func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	// 不覆盖已存在文件
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；
// - 跳过空行与以 # 开头的行；支持可选的前缀 "export "；
// - 仅按首个 '=' 分割；若 value 被成对的单/双引号包裹，则去除外层引号；
// - 不覆盖已存在的环境变量（保持系统/调用者优先）。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if len(val) >= 2 {
			if (val[0] == '\'' && val[len(val)-1] == '\'') || (val[0] == '"' && val[len(val)-1] == '"') {
				quoted := val[0]
				val = val[1 : len(val)-1]
				if quoted == '"' {
					val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`).Replace(val)
				}
			}
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

// normalizeInitArg: 允许 --init-config 在未提供路径值时采用当前目录 "."。
//
//	--init-config                => 等价于 --init-config .
//	--init-config=out
//	--init-config out
func normalizeInitArg() {
	args := os.Args
	if len(args) <= 1 {
		return
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0])
	for i := 1; i < len(args); i++ {
		a := args[i]
		out = append(out, a)
		if a == "--init-config" || a == "-init-config" {
			if i == len(args)-1 || strings.HasPrefix(args[i+1], "-") || args[i+1] == "pivot" {
				out = append(out, ".")
			}
		}
	}
	os.Args = out
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
func writeDotEnv(path string) error {
	p := cfgpkg.EnvPrefix
	var b strings.Builder
	b.WriteString("# json2rst .env 模板（由 --init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件\n")
	b.WriteString("# 空值表示未设置。\n\n")
	b.WriteString("# 配置文件（.json/.yaml）\n")
	b.WriteString(p + "CONFIG_FILE=\n")
	b.WriteString(p + "CONFIG_JSON=\n\n")
	b.WriteString("# 输入输出与日志\n")
	for _, k := range []string{"INPUTS", "OUTPUT_DIR", "LOG_LEVEL", "LOG_DIR"} {
		b.WriteString(p + k + "=\n")
	}
	b.WriteString("\n# 组件选择与原样 JSON 选项\n")
	for _, k := range []string{"READER", "DECODER", "IMAGE", "WRITER"} {
		b.WriteString(p + "COMPONENTS_" + k + "=\n")
	}
	for _, k := range []string{"READER", "DECODER", "IMAGE", "WRITER", "PAGE"} {
		b.WriteString(p + "OPTIONS_" + k + "_JSON=\n")
	}
	b.WriteString("\n# 透视模式\n")
	for _, k := range []string{"ENABLED", "HEADERS", "STRICT", "SORT_BY", "SORT_ORDER", "CSV_OUT"} {
		b.WriteString(p + "PIVOT_" + k + "=\n")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

// preflightCheckOutputDir: 使用文件系统 Writer 时，启动前检查输出目录可写性。
// - 目录已存在：尝试创建并删除临时文件；
// - 目录不存在：检查父目录是否可写。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	name := strings.TrimSpace(cfg.Components.Writer)
	if name == "" {
		name = cfgpkg.Defaults().Components.Writer
	}
	if name != "fs" {
		return nil
	}
	dir := cfgpkg.EffectiveOutputDir(cfg)
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		tmp := f.Name()
		_ = f.Close()
		_ = os.Remove(tmp)
		return nil
	} else if err == nil {
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	} else if !os.IsNotExist(err) {
		return err
	}
	parent := filepath.Dir(filepath.Clean(dir))
	pst, err := os.Stat(parent)
	if err != nil {
		return err
	}
	if !pst.IsDir() {
		return fmt.Errorf("父路径不是目录: %s", parent)
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	_ = os.RemoveAll(tmpd)
	return nil
}
