package bridge

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ConradIrwin/tson-go"
)

// FromYAML converts the first document in data to a TSON value. Aliases
// are expanded. Scalars tagged !!binary become bytes and !!timestamp
// become datetimes.
func FromYAML(data []byte) (tson.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return tson.Null(), fmt.Errorf("parsing yaml: %w", err)
	}
	if doc.Kind == 0 {
		return tson.Null(), nil
	}
	return fromNode(&doc, 0)
}

const maxAliasDepth = 1000

func fromNode(n *yaml.Node, depth int) (tson.Value, error) {
	if depth > maxAliasDepth {
		return tson.Null(), fmt.Errorf("line %d: document nested too deeply", n.Line)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return tson.Null(), nil
		}
		return fromNode(n.Content[0], depth+1)
	case yaml.AliasNode:
		return fromNode(n.Alias, depth+1)
	case yaml.MappingNode:
		members := make([]tson.Member, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind == yaml.AliasNode {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				return tson.Null(), fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			value, err := fromNode(v, depth+1)
			if err != nil {
				return tson.Null(), err
			}
			members = append(members, tson.Member{Key: k.Value, Value: value})
		}
		return tson.Object(members...), nil
	case yaml.SequenceNode:
		items := make([]tson.Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := fromNode(c, depth+1)
			if err != nil {
				return tson.Null(), err
			}
			items = append(items, item)
		}
		return tson.Array(items...), nil
	case yaml.ScalarNode:
		v, err := fromScalar(n)
		if err != nil {
			return tson.Null(), fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return tson.Null(), fmt.Errorf("line %d: unexpected yaml node", n.Line)
}

func fromScalar(n *yaml.Node) (tson.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return tson.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return tson.Null(), err
		}
		return tson.Bool(b), nil
	case "!!int":
		s := strings.ReplaceAll(n.Value, "_", "")
		if v, err := number(s); err == nil {
			return v, nil
		}
		var i int64
		if err := n.Decode(&i); err == nil {
			return tson.Int64(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err != nil {
			return tson.Null(), err
		}
		return tson.Uint64(u), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return tson.Null(), err
		}
		return tson.Float64(f), nil
	case "!!binary":
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return tson.Null(), err
		}
		return tson.Bytes(b), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return tson.Null(), err
		}
		return tson.Timestamp(t), nil
	}
	return tson.String(n.Value), nil
}

// ToYAML writes v as a YAML document.
func ToYAML(v tson.Value, opts Options) ([]byte, error) {
	n, err := toNode(v)
	if err != nil {
		return nil, err
	}
	indent := opts.Indent
	if indent == 0 {
		indent = 4
	}

	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(indent)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func toNode(v tson.Value) (*yaml.Node, error) {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}

	switch v.Kind() {
	case tson.KindObject:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range v.Members() {
			value, err := toNode(m.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", m.Key, err)
			}
			n.Content = append(n.Content, scalar("!!str", m.Key), value)
		}
		if len(n.Content) == 0 {
			n.Style = yaml.FlowStyle
		}
		return n, nil
	case tson.KindArray:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range v.Items() {
			value, err := toNode(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			n.Content = append(n.Content, value)
		}
		if len(n.Content) == 0 {
			n.Style = yaml.FlowStyle
		}
		return n, nil
	case tson.KindNull:
		return scalar("!!null", "null"), nil
	case tson.KindBool:
		return scalar("!!bool", strconv.FormatBool(v.AsBool())), nil
	case tson.KindFloat32, tson.KindFloat64:
		f, _ := v.AsFloat()
		switch {
		case math.IsNaN(f):
			return scalar("!!float", ".nan"), nil
		case math.IsInf(f, 1):
			return scalar("!!float", ".inf"), nil
		case math.IsInf(f, -1):
			return scalar("!!float", "-.inf"), nil
		}
		bits := 64
		if v.Kind() == tson.KindFloat32 {
			bits = 32
		}
		s := strconv.FormatFloat(f, 'g', -1, bits)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return scalar("!!float", s), nil
	case tson.KindChar:
		r, _ := v.AsChar()
		return scalar("!!str", string(r)), nil
	case tson.KindString:
		s, _ := v.AsString()
		return scalar("!!str", s), nil
	case tson.KindBytes:
		raw, _ := v.AsBytes()
		return scalar("!!binary", base64.StdEncoding.EncodeToString(raw)), nil
	case tson.KindTimestamp:
		t, _ := v.AsTime()
		return scalar("!!timestamp", t.Format(time.RFC3339Nano)), nil
	case tson.KindURI:
		u, _ := v.AsURI()
		return scalar("!!str", u.String()), nil
	}
	if i, ok := v.AsInt(); ok {
		return scalar("!!int", strconv.FormatInt(i, 10)), nil
	}
	if u, ok := v.AsUint(); ok {
		return scalar("!!int", strconv.FormatUint(u, 10)), nil
	}
	return nil, fmt.Errorf("unsupported kind %v", v.Kind())
}
