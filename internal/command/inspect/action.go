package inspect

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v3"
	yamlv3 "go.yaml.in/yaml/v3"

	"github.com/lwmacct/251207-go-pkg-secmap/internal/command"
	"github.com/lwmacct/251207-go-pkg-secmap/internal/config"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/confdir"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/store"
)

func load(cmd *cli.Command) (*confdir.Loaded, error) {
	h, err := command.OpenHandler(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := h.Load(config.FileName); err != nil {
		return nil, err
	}
	loaded, _ := h.Get(config.FileName)

	return loaded, nil
}

func getAction(_ context.Context, cmd *cli.Command) error {
	loaded, err := load(cmd)
	if err != nil {
		return err
	}

	path := cmd.Args().First()
	value := loaded.Document.Get(path)
	if value == nil {
		return fmt.Errorf("no value at path %q", path)
	}

	w := cmd.Root().Writer
	switch format := cmd.String("format"); format {
	case "yaml":
		return writeYAML(w, value)
	case "spew":
		spew.Fdump(w, plainValue(value))

		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func keysAction(_ context.Context, cmd *cli.Command) error {
	loaded, err := load(cmd)
	if err != nil {
		return err
	}

	prefix := cmd.String("env-prefix")
	tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	for _, key := range loaded.Document.Keys() {
		if prefix == "" {
			_, _ = fmt.Fprintln(tw, key)

			continue
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", key, store.EnvName(prefix, key))
	}

	return tw.Flush()
}

func dumpAction(_ context.Context, cmd *cli.Command) error {
	_, cfg, err := command.Load(cmd)
	if err != nil {
		return err
	}

	return writeYAML(cmd.Root().Writer, secmap.Dump(cfg))
}

func extendAction(_ context.Context, cmd *cli.Command) error {
	loaded, err := load(cmd)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.Root().Writer, "%s is up to date (%d keys)\n", loaded.Path, len(loaded.Document.Keys()))

	return err
}

// writeYAML 映射按原有顺序输出，其他值按普通 YAML 编码。
func writeYAML(w io.Writer, value any) error {
	if m, ok := value.(*store.Map); ok {
		return store.NewDocumentFrom(m).Encode(w)
	}

	out, err := yamlv3.Marshal(plainValue(value))
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	_, err = w.Write(out)

	return err
}

// plainValue 把 *store.Map 转为普通 map，便于 spew 与 yaml 输出。
func plainValue(value any) any {
	switch typed := value.(type) {
	case *store.Map:
		return typed.ToGo()
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = plainValue(typed[i])
		}

		return out
	default:
		return value
	}
}
