// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wireNode is the superset of fields any serialized node may carry.
// Shorthand kinds emitted by upstream exporters (item_check, helper, ...)
// are folded into the closed Node set during decoding.
type wireNode struct {
	Type       string            `json:"type"`
	Value      json.RawMessage   `json:"value"`
	Name       string            `json:"name"`
	Object     *Node             `json:"object"`
	Attr       string            `json:"attr"`
	Function   json.RawMessage   `json:"function"`
	Method     string            `json:"method"`
	Args       []json.RawMessage `json:"args"`
	Op         string            `json:"op"`
	Left       *Node             `json:"left"`
	Right      *Node             `json:"right"`
	Conditions []*Node           `json:"conditions"`
	Condition  *Node             `json:"condition"`
	Item       json.RawMessage   `json:"item"`
	Group      json.RawMessage   `json:"group"`
	Count      json.RawMessage   `json:"count"`
}

// UnmarshalJSON decodes a tagged rule node. A bare JSON scalar or array
// decodes as a constant.
func (n *Node) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty rule node")
	}
	if trimmed[0] != '{' {
		v, err := decodeValue(trimmed)
		if err != nil {
			return err
		}
		*n = Node{Kind: KindConstant, Value: v}
		return nil
	}

	var w wireNode
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return fmt.Errorf("decoding rule node: %w", err)
	}

	args, err := decodeArgs(w.Args)
	if err != nil {
		return err
	}

	switch w.Type {
	case "constant", "literal":
		v, err := decodeValue(w.Value)
		if err != nil {
			return err
		}
		*n = Node{Kind: KindConstant, Value: v}

	case "name":
		*n = Node{Kind: KindName, Name: w.Name}

	case "attribute":
		*n = Node{Kind: KindAttribute, Object: w.Object, Attr: w.Attr}

	case "call", "function_call":
		fn, err := decodeFunction(w.Function)
		if err != nil {
			return err
		}
		*n = Node{Kind: KindCall, Function: fn, Args: args}

	case "state_method":
		*n = *Method(w.Method, args...)

	case "helper":
		*n = *Call(w.Name, args...)

	case "item_check":
		item, err := decodeArg(w.Item)
		if err != nil {
			return err
		}
		callArgs := []*Node{item}
		if len(w.Count) > 0 {
			count, err := decodeArg(w.Count)
			if err != nil {
				return err
			}
			callArgs = append(callArgs, count)
		}
		*n = *Call("has", callArgs...)

	case "count_check":
		item, err := decodeArg(w.Item)
		if err != nil {
			return err
		}
		count, err := decodeArg(w.Count)
		if err != nil {
			return err
		}
		op := w.Op
		if op == "" {
			op = OpGe
		}
		*n = *Compare(Call("count", item), op, count)

	case "group_check":
		group, err := decodeArg(w.Group)
		if err != nil {
			return err
		}
		callArgs := []*Node{group}
		if len(w.Count) > 0 {
			count, err := decodeArg(w.Count)
			if err != nil {
				return err
			}
			callArgs = append(callArgs, count)
		}
		*n = *Call("has_group", callArgs...)

	case "compare":
		*n = Node{Kind: KindCompare, Left: w.Left, Op: w.Op, Right: w.Right}

	case "and":
		*n = Node{Kind: KindAnd, Conditions: w.Conditions}

	case "or":
		*n = Node{Kind: KindOr, Conditions: w.Conditions}

	case "not":
		cond := w.Condition
		if cond == nil && len(w.Conditions) == 1 {
			cond = w.Conditions[0]
		}
		*n = Node{Kind: KindNot, Condition: cond}

	case "":
		return fmt.Errorf("rule node has no type")

	default:
		return fmt.Errorf("unknown rule node type %q", w.Type)
	}
	return nil
}

// MarshalJSON encodes the canonical form: only closed-set kinds, with the
// fields their kind uses.
func (n Node) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": string(n.Kind)}
	switch n.Kind {
	case KindConstant:
		out["value"] = n.Value
	case KindName:
		out["name"] = n.Name
	case KindAttribute:
		out["object"] = n.Object
		out["attr"] = n.Attr
	case KindCall:
		out["function"] = n.Function
		args := n.Args
		if args == nil {
			args = []*Node{}
		}
		out["args"] = args
	case KindCompare:
		out["left"] = n.Left
		out["op"] = n.Op
		out["right"] = n.Right
	case KindAnd, KindOr:
		conds := n.Conditions
		if conds == nil {
			conds = []*Node{}
		}
		out["conditions"] = conds
	case KindNot:
		out["condition"] = n.Condition
	default:
		return nil, fmt.Errorf("cannot encode rule node of kind %q", n.Kind)
	}
	return json.Marshal(out)
}

// ParseJSON decodes a rule from its JSON form.
func ParseJSON(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding constant: %w", err)
	}
	return v, nil
}

func decodeArg(raw json.RawMessage) (*Node, error) {
	var n Node
	if err := n.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return &n, nil
}

func decodeArgs(raws []json.RawMessage) ([]*Node, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	args := make([]*Node, 0, len(raws))
	for i, raw := range raws {
		arg, err := decodeArg(raw)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args = append(args, arg)
	}
	return args, nil
}

// decodeFunction accepts either a node or a bare string naming the callee.
func decodeFunction(raw json.RawMessage) (*Node, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("call node has no function")
	}
	if trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return nil, fmt.Errorf("decoding function name: %w", err)
		}
		return Ident(name), nil
	}
	return decodeArg(trimmed)
}
