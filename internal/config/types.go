package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	Inputs []string `json:"inputs"`
	// OutputDir: 输出根目录；为空时使用 options.writer.output_dir，再缺省为 "."。
	OutputDir string  `json:"output_dir"`
	Logging   Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`

	Pivot Pivot `json:"pivot"`
}

// Logging: 日志等级与目录；目录为空时写 stderr。
type Logging struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader  string `json:"reader"`
	Decoder string `json:"decoder"`
	Image   string `json:"image"`
	Writer  string `json:"writer"`
}

// Options: 各组件的原样 JSON Options；Page 为页面渲染选项。
type Options struct {
	Reader  json.RawMessage `json:"reader"`
	Decoder json.RawMessage `json:"decoder"`
	Image   json.RawMessage `json:"image"`
	Writer  json.RawMessage `json:"writer"`
	Page    json.RawMessage `json:"page"`
}

// Pivot: 透视模式设置。
// 布尔项使用指针以区分“未设置”与显式 false（合并时需要）。
type Pivot struct {
	Enabled   *bool    `json:"enabled"`
	Headers   []string `json:"headers"`
	Strict    *bool    `json:"strict"`
	SortBy    string   `json:"sort_by"`
	SortOrder string   `json:"sort_order"`
	CSVOut    string   `json:"csv_out"`
}

// IsEnabled 报告是否运行透视模式。
func (p Pivot) IsEnabled() bool { return p.Enabled != nil && *p.Enabled }

// IsStrict 报告透视模式是否要求所有表头字段存在。
func (p Pivot) IsStrict() bool { return p.Strict != nil && *p.Strict }

// Bool 返回指向 v 的指针，便于构造覆盖层。
func Bool(v bool) *bool { return &v }
