package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 默认输入为 STDIN（"-"），输出到 ./out 目录；
// - 组件名采用仓库内置实现；
// - 选项给出全部键与安全中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Inputs:     []string{"-"},
		OutputDir:  "out",
		Logging:    Logging{Level: "info", Dir: ""},
		Components: d.Components,
		Pivot: Pivot{
			Enabled:   Bool(false),
			Headers:   []string{},
			Strict:    Bool(false),
			SortBy:    "",
			SortOrder: "ascending",
			CSVOut:    "pivot.csv",
		},
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "allow_exts": [".json"],
  "recursive": false,
  "exclude_dir_names": [".git", "node_modules", "vendor"]
}`)
	cfg.Options.Decoder = json.RawMessage(`{
  "keep_crlf": false
}`)
	cfg.Options.Image = json.RawMessage(`{
  "formats": [".jpg", ".png"],
  "max_bytes": 0,
  "verify": false
}`)
	// output_dir 由顶层 output_dir 决定，此处不重复
	cfg.Options.Writer = json.RawMessage(`{
  "atomic": true,
  "flat": true,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	cfg.Options.Page = json.RawMessage(`{
  "header_rows": 0,
  "title_from": ""
}`)
	return cfg
}
