package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"json2rst/internal/rst"
	"json2rst/pkg/contract"
	djson "json2rst/plugins/decoder/jsonrecord"
	ilocal "json2rst/plugins/image/local"
	rfs "json2rst/plugins/reader/filesystem"
	wfs "json2rst/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	return nil
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewDecoder 工厂签名：接收原样 JSON Options。
type NewDecoder func(raw json.RawMessage) (contract.Decoder, error)

// NewImageResolver 工厂签名：接收原样 JSON Options。
type NewImageResolver func(raw json.RawMessage) (contract.ImageResolver, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Decoder 工厂注册表。
var Decoder = map[string]NewDecoder{
	// json: 保持键顺序的单对象解码器
	"json": func(raw json.RawMessage) (contract.Decoder, error) {
		var opts djson.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return djson.New(&opts), nil
	},
}

func newLocalImage(mode ilocal.Mode) NewImageResolver {
	return func(raw json.RawMessage) (contract.ImageResolver, error) {
		var opts ilocal.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ilocal.New(mode, &opts)
	}
}

// Image 工厂注册表。
var Image = map[string]NewImageResolver{
	// embed: 内联为 data URI
	"embed": newLocalImage(ilocal.ModeEmbed),
	// link: 仅校验，输出路径
	"link": newLocalImage(ilocal.ModeLink),
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}

// NewPageRenderer 以 options.page 构造 rST 页面渲染器。
func NewPageRenderer(raw json.RawMessage, images contract.ImageResolver) (contract.PageRenderer, error) {
	var opts rst.PageOptions
	if err := strictUnmarshal(raw, &opts); err != nil {
		return nil, err
	}
	if opts.HeaderRows < 0 {
		return nil, fmt.Errorf("page: header_rows must be >= 0: %w", contract.ErrInvalidInput)
	}
	return rst.NewRenderer(images, &opts), nil
}
