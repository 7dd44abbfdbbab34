package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/agilira/go-errors"

	"github.com/lwmacct/251207-go-pkg-secmap/pkg/templexp"
)

type loadOptions struct {
	expand templexp.Lookup // 非 nil 时在解析前展开 ${...}
}

// LoadOption 文件加载选项。
type LoadOption func(*loadOptions)

// WithTemplateExpansion 在解析前对文件内容执行 ${...} 展开，lookup 为 nil 时读取环境变量。
func WithTemplateExpansion(lookup templexp.Lookup) LoadOption {
	return func(o *loadOptions) {
		if lookup == nil {
			lookup = templexp.Environ()
		}
		o.expand = lookup
	}
}

// LoadFile 读取并解析配置文件。
func LoadFile(path string, opts ...LoadOption) (*Document, error) {
	options := &loadOptions{}
	for _, opt := range opts {
		opt(options)
	}

	content, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if options.expand != nil {
		expanded, expandErr := templexp.Expand(string(content), options.expand)
		if expandErr != nil {
			return nil, fmt.Errorf("expand template in %s: %w", path, expandErr)
		}
		content = []byte(expanded)
	}

	doc, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	slog.Debug("Loaded config from file", "path", path, "templateExpansion", options.expand != nil)

	return doc, nil
}

// SaveFile 原子写入：先写同目录临时文件再重命名。
func SaveFile(path string, doc *Document) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return errors.New(ErrCodeWrite, fmt.Sprintf("unexpected directory at %s", path))
	}

	content, err := doc.Bytes()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, ErrCodeWrite, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()

		return errors.Wrap(err, ErrCodeWrite, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, ErrCodeWrite, "close temp file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, ErrCodeWrite, fmt.Sprintf("replace %s", path))
	}

	return nil
}
