package json

import (
	"errors"
	"os"
	"regexp"
	"time"

	"dario.cat/mergo"

	"github.com/ninja0404/whale-trader/pkg/config/encoder"
	"github.com/ninja0404/whale-trader/pkg/config/reader"
	"github.com/ninja0404/whale-trader/pkg/config/source"
)

const READER_NAME string = "json"

type jsonReader struct {
	opts reader.Options
	json encoder.Encoder
}

// Merge 将多个ChangeSet按顺序合并成一个json格式的ChangeSet，后者覆盖前者
func (j *jsonReader) Merge(changes ...*source.ChangeSet) (*source.ChangeSet, error) {
	var merged map[string]interface{}

	for _, m := range changes {
		if m == nil {
			continue
		}

		if len(m.Data) == 0 {
			continue
		}

		codec, ok := j.opts.Encoding[m.Format]
		if !ok {
			// 格式未知时按json处理
			codec = j.json
		}

		var data map[string]interface{}
		if err := codec.Decode(m.Data, &data); err != nil {
			return nil, err
		}
		if err := mergo.Map(&merged, data, mergo.WithOverride); err != nil {
			return nil, err
		}
	}

	b, err := j.json.Encode(merged)
	if err != nil {
		return nil, err
	}

	cs := &source.ChangeSet{
		Timestamp: time.Now(),
		Data:      b,
		Source:    "json",
		Format:    j.json.String(),
	}
	cs.Checksum = cs.Sum()

	return cs, nil
}

// Values 把ChangeSet转换成可按路径读取的Values
func (j *jsonReader) Values(ch *source.ChangeSet) (reader.Values, error) {
	if ch == nil {
		return nil, errors.New("changeset is nil")
	}
	return newValues(ch)
}

func (j *jsonReader) String() string {
	return READER_NAME
}

// NewReader 创建json读取器
func NewReader(opts ...reader.Option) reader.Reader {
	options := reader.NewOptions(opts...)
	return &jsonReader{
		opts: options,
		json: options.Encoding["json"],
	}
}

// 匹配 ${VAR} 形式的环境变量占位符
var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// ReplaceEnvVars 将配置内容中的 ${VAR} 占位符替换为对应的环境变量值
func ReplaceEnvVars(data []byte) ([]byte, error) {
	replaced := envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
	return replaced, nil
}
