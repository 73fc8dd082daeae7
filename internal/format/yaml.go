package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"snaptool/internal/content"
)

// renderYAML builds a yaml.Node tree and lets the encoder handle scalar
// quoting; quoting decisions then depend only on the string content.
func renderYAML(v content.Content) (string, error) {
	node, err := yamlNode(v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func yamlScalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlNode(v content.Content) (*yaml.Node, error) {
	switch v.Kind() {
	case content.KindNil, content.KindUnit, content.KindUnitStruct:
		return yamlScalar("!!null", "~"), nil
	case content.KindBool:
		b, _ := v.AsBool()
		return yamlScalar("!!bool", strconv.FormatBool(b)), nil
	case content.KindUint:
		u, _ := v.AsUint64()
		// values beyond the signed 64-bit range downgrade to floats
		if u > math.MaxInt64 {
			return yamlScalar("!!float", formatYAMLFloat(float64(u))), nil
		}
		return yamlScalar("!!int", strconv.FormatUint(u, 10)), nil
	case content.KindInt:
		i, _ := v.AsInt64()
		return yamlScalar("!!int", strconv.FormatInt(i, 10)), nil
	case content.KindFloat32, content.KindFloat64:
		f, _ := v.AsFloat64()
		return yamlScalar("!!float", formatYAMLFloat(f)), nil
	case content.KindChar, content.KindString:
		s, _ := v.AsString()
		return &yaml.Node{Kind: yaml.ScalarNode, Value: s}, nil
	case content.KindBytes:
		bs, _ := v.AsBytes()
		items := make([]content.Content, len(bs))
		for i, b := range bs {
			items[i] = content.NewUint(uint64(b))
		}
		return yamlSeq(items)
	case content.KindSome, content.KindNewtypeStruct:
		return yamlNode(v.Child())
	case content.KindUnitVariant:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: v.Variant()}, nil
	case content.KindNewtypeVariant:
		inner, err := yamlNode(v.Child())
		if err != nil {
			return nil, err
		}
		return yamlVariantWrapper(v.Variant(), inner), nil
	case content.KindSeq, content.KindTuple, content.KindTupleStruct:
		return yamlSeq(v.Items())
	case content.KindTupleVariant:
		inner, err := yamlSeq(v.Items())
		if err != nil {
			return nil, err
		}
		return yamlVariantWrapper(v.Variant(), inner), nil
	case content.KindMap:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, e := range v.Entries() {
			key, err := stringKeyOf(e.Key, YAML)
			if err != nil {
				return nil, err
			}
			val, err := yamlNode(e.Value)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: key}, val)
		}
		return node, nil
	case content.KindStruct, content.KindStructVariant:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, f := range v.Fields() {
			val, err := yamlNode(f.Value)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: f.Name}, val)
		}
		if v.Kind() == content.KindStructVariant {
			return yamlVariantWrapper(v.Variant(), node), nil
		}
		return node, nil
	}
	return nil, fmt.Errorf("yaml: cannot render kind %v", v.Kind())
}

func yamlSeq(items []content.Content) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode}
	for _, item := range items {
		child, err := yamlNode(item)
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, child)
	}
	return node, nil
}

func yamlVariantWrapper(variant string, inner *yaml.Node) *yaml.Node {
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: variant},
			inner,
		},
	}
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func parseYAML(text string) (content.Content, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return content.Content{}, &ParseError{Format: YAML, Err: err}
	}
	node := &doc
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return content.Nil(), nil
		}
		node = node.Content[0]
	}
	c, err := contentFromYAMLNode(node)
	if err != nil {
		return content.Content{}, &ParseError{Format: YAML, Err: err}
	}
	return c, nil
}

func contentFromYAMLNode(node *yaml.Node) (content.Content, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return contentFromYAMLNode(node.Alias)
	case yaml.ScalarNode:
		return contentFromYAMLScalar(node)
	case yaml.SequenceNode:
		items := make([]content.Content, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := contentFromYAMLNode(child)
			if err != nil {
				return content.Content{}, err
			}
			items = append(items, v)
		}
		return content.NewSeq(items...), nil
	case yaml.MappingNode:
		entries := make([]content.MapEntry, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, err := contentFromYAMLNode(node.Content[i])
			if err != nil {
				return content.Content{}, err
			}
			val, err := contentFromYAMLNode(node.Content[i+1])
			if err != nil {
				return content.Content{}, err
			}
			entries = append(entries, content.MapEntry{Key: key, Value: val})
		}
		return content.NewMap(entries...), nil
	}
	return content.Content{}, fmt.Errorf("unsupported node kind %d", node.Kind)
}

func contentFromYAMLScalar(node *yaml.Node) (content.Content, error) {
	switch node.Tag {
	case "!!null":
		return content.Nil(), nil
	case "!!bool":
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			return content.Content{}, err
		}
		return content.NewBool(b), nil
	case "!!int":
		if i, err := strconv.ParseInt(node.Value, 10, 64); err == nil {
			if i >= 0 {
				return content.NewUint(uint64(i)), nil
			}
			return content.NewInt(i), nil
		}
		u, err := strconv.ParseUint(node.Value, 10, 64)
		if err != nil {
			return content.Content{}, err
		}
		return content.NewUint(u), nil
	case "!!float":
		switch node.Value {
		case ".nan":
			return content.NewFloat64(math.NaN()), nil
		case ".inf", "+.inf":
			return content.NewFloat64(math.Inf(1)), nil
		case "-.inf":
			return content.NewFloat64(math.Inf(-1)), nil
		}
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return content.Content{}, err
		}
		return content.NewFloat64(f), nil
	default:
		return content.NewString(node.Value), nil
	}
}
