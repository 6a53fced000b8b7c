package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix 为所有环境变量覆盖项的前缀。
const EnvPrefix = "JSON2RST_"

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：Inputs 不设默认（必须由文件/ENV/CLI 提供）。
func Defaults() Config {
	return Config{
		Logging: Logging{Level: "info"},
		Components: Components{
			Reader:  "fs",
			Decoder: "json",
			Image:   "embed",
			Writer:  "fs",
		},
		Pivot: Pivot{CSVOut: "pivot.csv", SortOrder: "ascending"},
	}
}

// Load 按扩展名选择解析器：.yaml/.yml 为 YAML，其余按 JSON。
func Load(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path, nil)
	default:
		return LoadJSON(path, nil)
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadYAML 解析 YAML 配置：先转为等价 JSON，再走 LoadJSON 的严格解码，
// 因此两种格式共享字段名、未知字段检查与 options 原样透传。
func LoadYAML(path string, raw []byte) (Config, error) {
	if len(raw) == 0 {
		if path == "" {
			return Config{}, errors.New("no config source provided")
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		raw = b
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	if doc == nil {
		return Config{}, nil
	}
	norm, err := normalizeYAML(doc)
	if err != nil {
		return Config{}, err
	}
	b, err := json.Marshal(norm)
	if err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	return LoadJSON("", b)
}

// normalizeYAML 将 yaml.v3 产出的 map[any]any 统一为 map[string]any，以便 JSON 编码。
func normalizeYAML(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			n, err := normalizeYAML(e)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("yaml: non-string key %v", k)
			}
			n, err := normalizeYAML(e)
			if err != nil {
				return nil, err
			}
			out[ks] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := normalizeYAML(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return v, nil
	}
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if s := strings.TrimSpace(over.OutputDir); s != "" {
		out.OutputDir = s
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Decoder != "" {
		out.Components.Decoder = over.Components.Decoder
	}
	if over.Components.Image != "" {
		out.Components.Image = over.Components.Image
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Decoder) > 0 {
		out.Options.Decoder = cloneRaw(over.Options.Decoder)
	}
	if len(over.Options.Image) > 0 {
		out.Options.Image = cloneRaw(over.Options.Image)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	if len(over.Options.Page) > 0 {
		out.Options.Page = cloneRaw(over.Options.Page)
	}

	// Pivot
	if over.Pivot.Enabled != nil {
		out.Pivot.Enabled = Bool(*over.Pivot.Enabled)
	}
	if over.Pivot.Strict != nil {
		out.Pivot.Strict = Bool(*over.Pivot.Strict)
	}
	if len(over.Pivot.Headers) > 0 {
		out.Pivot.Headers = cloneStrings(over.Pivot.Headers)
	}
	if s := strings.TrimSpace(over.Pivot.SortBy); s != "" {
		out.Pivot.SortBy = s
	}
	if s := strings.TrimSpace(over.Pivot.SortOrder); s != "" {
		out.Pivot.SortOrder = s
	}
	if s := strings.TrimSpace(over.Pivot.CSVOut); s != "" {
		out.Pivot.CSVOut = s
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 JSON2RST_；集合之外的键忽略；空值视为未设置。
// 支持：INPUTS, OUTPUT_DIR, LOG_LEVEL, LOG_DIR, COMPONENTS_*, OPTIONS_*_JSON, PIVOT_*。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		nk := kv[len(EnvPrefix):eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}
		switch nk {
		case "INPUTS":
			over.Inputs = SplitComma(val)
		case "OUTPUT_DIR":
			over.OutputDir = val
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_DECODER":
			over.Components.Decoder = val
		case "COMPONENTS_IMAGE":
			over.Components.Image = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "OPTIONS_READER_JSON":
			over.Options.Reader = json.RawMessage(val)
		case "OPTIONS_DECODER_JSON":
			over.Options.Decoder = json.RawMessage(val)
		case "OPTIONS_IMAGE_JSON":
			over.Options.Image = json.RawMessage(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = json.RawMessage(val)
		case "OPTIONS_PAGE_JSON":
			over.Options.Page = json.RawMessage(val)
		case "PIVOT_ENABLED", "PIVOT_STRICT":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return Config{}, fmt.Errorf("env %s%s: %w", EnvPrefix, nk, err)
			}
			if nk == "PIVOT_ENABLED" {
				over.Pivot.Enabled = Bool(b)
			} else {
				over.Pivot.Strict = Bool(b)
			}
		case "PIVOT_HEADERS":
			over.Pivot.Headers = SplitComma(val)
		case "PIVOT_SORT_BY":
			over.Pivot.SortBy = val
		case "PIVOT_SORT_ORDER":
			over.Pivot.SortOrder = val
		case "PIVOT_CSV_OUT":
			over.Pivot.CSVOut = val
		default:
			// CONFIG_FILE 等由 CLI 层读取；其余未知键忽略。
		}
	}
	for _, raw := range []json.RawMessage{over.Options.Reader, over.Options.Decoder, over.Options.Image, over.Options.Writer, over.Options.Page} {
		if len(raw) > 0 && !json.Valid(raw) {
			return Config{}, fmt.Errorf("env %sOPTIONS_*_JSON: invalid JSON %q", EnvPrefix, string(raw))
		}
	}
	return over, nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

// SplitComma 按逗号切分并去除空白项。
func SplitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
