package store

import (
	"bytes"
	"fmt"
	"io"

	"github.com/agilira/go-errors"
	yamlv3 "go.yaml.in/yaml/v3"
)

// 存储层错误码。
const (
	ErrCodeParse = "STORE_PARSE"
	ErrCodeWrite = "STORE_WRITE"
)

// Parse 解析 YAML（JSON 作为 YAML 子集同样适用），保留 mapping 的 key 顺序。
//
// 空文档得到空的根映射；根节点必须是 mapping。
func Parse(content []byte) (*Document, error) {
	var node yamlv3.Node
	if err := yamlv3.Unmarshal(content, &node); err != nil {
		return nil, errors.Wrap(err, ErrCodeParse, "invalid yaml document")
	}

	if node.Kind == 0 || len(node.Content) == 0 {
		return NewDocument(), nil
	}

	root := node.Content[0]
	if root.Kind == yamlv3.ScalarNode && root.Tag == "!!null" {
		return NewDocument(), nil
	}

	value, err := fromNode(root)
	if err != nil {
		return nil, err
	}
	m, ok := value.(*Map)
	if !ok {
		return nil, errors.New(ErrCodeParse, "config root must be object")
	}

	return &Document{root: m}, nil
}

func fromNode(node *yamlv3.Node) (any, error) {
	switch node.Kind {
	case yamlv3.AliasNode:
		return fromNode(node.Alias)
	case yamlv3.MappingNode:
		out := NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			if keyNode.Tag == "!!merge" {
				if err := mergeInto(out, valueNode); err != nil {
					return nil, err
				}

				continue
			}

			key, err := scalarKey(keyNode)
			if err != nil {
				return nil, err
			}
			value, err := fromNode(valueNode)
			if err != nil {
				return nil, err
			}
			out.Set(key, value)
		}

		return out, nil
	case yamlv3.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := fromNode(child)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}

		return out, nil
	case yamlv3.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, errors.Wrap(err, ErrCodeParse, fmt.Sprintf("invalid scalar at line %d", node.Line))
		}

		return value, nil
	default:
		return nil, errors.New(ErrCodeParse, fmt.Sprintf("unexpected yaml node kind %d at line %d", node.Kind, node.Line))
	}
}

// mergeInto 处理 "<<" 合并键，仅补充尚不存在的 key。
func mergeInto(dst *Map, node *yamlv3.Node) error {
	value, err := fromNode(node)
	if err != nil {
		return err
	}

	sources := []any{value}
	if seq, ok := value.([]any); ok {
		sources = seq
	}
	for _, src := range sources {
		m, ok := src.(*Map)
		if !ok {
			return errors.New(ErrCodeParse, fmt.Sprintf("merge value at line %d must be a mapping", node.Line))
		}
		for key, val := range m.All() {
			if _, exists := dst.Get(key); !exists {
				dst.Set(key, val)
			}
		}
	}

	return nil
}

func scalarKey(node *yamlv3.Node) (any, error) {
	if node.Kind == yamlv3.AliasNode {
		node = node.Alias
	}
	if node.Kind != yamlv3.ScalarNode {
		return nil, errors.New(ErrCodeParse, fmt.Sprintf("mapping key at line %d must be a scalar", node.Line))
	}

	var key any
	if err := node.Decode(&key); err != nil {
		return nil, errors.Wrap(err, ErrCodeParse, fmt.Sprintf("invalid mapping key at line %d", node.Line))
	}

	return key, nil
}

// Encode 以两空格缩进输出 YAML，保持 key 顺序。
func (d *Document) Encode(w io.Writer) error {
	node, err := toNode(d.root)
	if err != nil {
		return err
	}

	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return errors.Wrap(err, ErrCodeWrite, "encode yaml")
	}

	if err := enc.Close(); err != nil {
		return errors.Wrap(err, ErrCodeWrite, "flush yaml encoder")
	}

	return nil
}

// Bytes 返回文档的 YAML 表示。
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func toNode(value any) (*yamlv3.Node, error) {
	switch typed := value.(type) {
	case *Map:
		node := &yamlv3.Node{Kind: yamlv3.MappingNode, Tag: "!!map"}
		for key, val := range typed.All() {
			keyNode, err := toNode(key)
			if err != nil {
				return nil, err
			}
			valNode, err := toNode(val)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, keyNode, valNode)
		}

		return node, nil
	case []any:
		node := &yamlv3.Node{Kind: yamlv3.SequenceNode, Tag: "!!seq"}
		for _, item := range typed {
			child, err := toNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}

		return node, nil
	default:
		node := &yamlv3.Node{}
		if err := node.Encode(value); err != nil {
			return nil, errors.Wrap(err, ErrCodeWrite, fmt.Sprintf("encode value %v", value))
		}

		return node, nil
	}
}
