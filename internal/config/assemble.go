package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"json2rst/internal/pipeline"
	"json2rst/pkg/registry"
)

var logLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return errors.New("config: inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			return errors.New("config: input path cannot be empty")
		}
		if strings.TrimSpace(r) == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return errors.New("config: '-' cannot be mixed with other roots")
	}
	if !logLevels[strings.ToLower(strings.TrimSpace(cfg.Logging.Level))] {
		return fmt.Errorf("config: logging.level %q (expected debug|info|warn|error)", cfg.Logging.Level)
	}
	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Decoder, d.Components.Decoder); registry.Decoder[name] == nil {
		return fmt.Errorf("config: decoder %q not registered", name)
	}
	if name := effName(cfg.Components.Image, d.Components.Image); registry.Image[name] == nil {
		return fmt.Errorf("config: image %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	if cfg.Pivot.IsEnabled() {
		if err := validatePivot(cfg.Pivot); err != nil {
			return err
		}
	}
	return nil
}

func validatePivot(p Pivot) error {
	if len(p.Headers) == 0 {
		return errors.New("config: pivot.headers required in pivot mode")
	}
	for _, h := range p.Headers {
		if strings.TrimSpace(h) == "" {
			return errors.New("config: pivot.headers cannot contain empty names")
		}
	}
	switch strings.ToLower(strings.TrimSpace(p.SortOrder)) {
	case "", "ascending", "descending":
	default:
		return fmt.Errorf("config: pivot.sort_order %q (expected ascending|descending)", p.SortOrder)
	}
	if by := strings.TrimSpace(p.SortBy); by != "" {
		found := false
		for _, h := range p.Headers {
			if strings.TrimSpace(h) == by {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("config: pivot.sort_by %q not in headers %v", by, p.Headers)
		}
	}
	return nil
}

// EffectiveOutputDir 返回最终输出根：output_dir > options.writer.output_dir > "."。
func EffectiveOutputDir(cfg Config) string {
	if s := strings.TrimSpace(cfg.OutputDir); s != "" {
		return s
	}
	var wopts struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &wopts)
	}
	if s := strings.TrimSpace(wopts.OutputDir); s != "" {
		return s
	}
	return "."
}

// writerOptions 将有效输出根写回 writer 的原样 Options。
func writerOptions(cfg Config) (json.RawMessage, error) {
	m := map[string]json.RawMessage{}
	if len(cfg.Options.Writer) > 0 {
		if err := json.Unmarshal(cfg.Options.Writer, &m); err != nil {
			return nil, fmt.Errorf("config: options.writer: %w", err)
		}
	}
	dir, err := json.Marshal(EffectiveOutputDir(cfg))
	if err != nil {
		return nil, err
	}
	m["output_dir"] = dir
	return json.Marshal(m)
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	dn := effName(cfg.Components.Decoder, d.Components.Decoder)
	in := effName(cfg.Components.Image, d.Components.Image)
	wn := effName(cfg.Components.Writer, d.Components.Writer)

	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("reader %s: %w", rn, err)
	}
	dec, err := registry.Decoder[dn](cfg.Options.Decoder)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("decoder %s: %w", dn, err)
	}
	img, err := registry.Image[in](cfg.Options.Image)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("image %s: %w", in, err)
	}
	page, err := registry.NewPageRenderer(cfg.Options.Page, img)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("page: %w", err)
	}
	wraw := cfg.Options.Writer
	if wn == "fs" {
		if wraw, err = writerOptions(cfg); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, err
		}
	}
	w, err := registry.Writer[wn](wraw)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("writer %s: %w", wn, err)
	}

	comp := pipeline.Components{
		Reader:   r,
		Decoder:  dec,
		Renderer: page,
		Writer:   w,
	}
	set := pipeline.Settings{
		Inputs: cloneStrings(cfg.Inputs),
		Pivot: pipeline.PivotSettings{
			Headers:   cloneStrings(cfg.Pivot.Headers),
			Strict:    cfg.Pivot.IsStrict(),
			SortBy:    strings.TrimSpace(cfg.Pivot.SortBy),
			SortOrder: strings.TrimSpace(cfg.Pivot.SortOrder),
			CSVOut:    strings.TrimSpace(cfg.Pivot.CSVOut),
		},
	}
	return comp, set, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
