// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package rule defines the serialized access-rule AST consumed by the
// evaluator, its JSON wire form, and a text parser for authoring rules.
package rule

import (
	"fmt"
)

// Kind tags a Node with its variant.
type Kind string

// Node kinds. The set is closed; decoding rejects anything else.
const (
	KindConstant  Kind = "constant"
	KindName      Kind = "name"
	KindAttribute Kind = "attribute"
	KindCall      Kind = "call"
	KindCompare   Kind = "compare"
	KindAnd       Kind = "and"
	KindOr        Kind = "or"
	KindNot       Kind = "not"
)

// Comparison operators accepted by Compare nodes.
const (
	OpEq = "=="
	OpNe = "!="
	OpLt = "<"
	OpLe = "<="
	OpGt = ">"
	OpGe = ">="
)

// Node is a single rule AST node. Which fields are meaningful depends on Kind:
//
//	constant:  Value
//	name:      Name
//	attribute: Object, Attr
//	call:      Function, Args
//	compare:   Left, Op, Right
//	and, or:   Conditions
//	not:       Condition
type Node struct {
	Kind Kind

	Value any
	Name  string

	Object *Node
	Attr   string

	Function *Node
	Args     []*Node

	Op    string
	Left  *Node
	Right *Node

	Conditions []*Node
	Condition  *Node
}

// Const returns a constant node.
func Const(v any) *Node { return &Node{Kind: KindConstant, Value: v} }

// Ident returns a name node.
func Ident(name string) *Node { return &Node{Kind: KindName, Name: name} }

// Attribute returns an attribute access node.
func Attribute(object *Node, attr string) *Node {
	return &Node{Kind: KindAttribute, Object: object, Attr: attr}
}

// Call returns a call of the named function.
func Call(function string, args ...*Node) *Node {
	return &Node{Kind: KindCall, Function: Ident(function), Args: args}
}

// Method returns a call of state.<method>, the upstream convention for
// built-in queries.
func Method(method string, args ...*Node) *Node {
	return &Node{Kind: KindCall, Function: Attribute(Ident("state"), method), Args: args}
}

// Compare returns a comparison node.
func Compare(left *Node, op string, right *Node) *Node {
	return &Node{Kind: KindCompare, Left: left, Op: op, Right: right}
}

// And returns a conjunction.
func And(conditions ...*Node) *Node { return &Node{Kind: KindAnd, Conditions: conditions} }

// Or returns a disjunction.
func Or(conditions ...*Node) *Node { return &Node{Kind: KindOr, Conditions: conditions} }

// Not returns a negation.
func Not(condition *Node) *Node { return &Node{Kind: KindNot, Condition: condition} }

// ValidOp reports whether op is a supported comparison operator.
func ValidOp(op string) bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// Depth returns the height of the tree rooted at n. A nil node has depth 0.
// Traversal stops once limit is exceeded so that pathological trees cost
// at most limit levels of recursion.
func (n *Node) Depth(limit int) int {
	return depth(n, 0, limit)
}

func depth(n *Node, level, limit int) int {
	if n == nil {
		return level
	}
	level++
	if level > limit {
		return level
	}
	deepest := level
	for _, child := range n.children() {
		if d := depth(child, level, limit); d > deepest {
			deepest = d
			if deepest > limit {
				break
			}
		}
	}
	return deepest
}

func (n *Node) children() []*Node {
	switch n.Kind {
	case KindAttribute:
		return []*Node{n.Object}
	case KindCall:
		return append([]*Node{n.Function}, n.Args...)
	case KindCompare:
		return []*Node{n.Left, n.Right}
	case KindAnd, KindOr:
		return n.Conditions
	case KindNot:
		return []*Node{n.Condition}
	default:
		return nil
	}
}

// Validate checks structural well-formedness: required children are
// present, operators are known, and the tree is no deeper than maxDepth.
func (n *Node) Validate(maxDepth int) error {
	if n == nil {
		return fmt.Errorf("rule is nil")
	}
	if d := n.Depth(maxDepth); d > maxDepth {
		return fmt.Errorf("rule nesting depth exceeds maximum of %d", maxDepth)
	}
	return n.validate()
}

func (n *Node) validate() error {
	switch n.Kind {
	case KindConstant:
		return nil
	case KindName:
		if n.Name == "" {
			return fmt.Errorf("name node has empty name")
		}
		return nil
	case KindAttribute:
		if n.Object == nil {
			return fmt.Errorf("attribute %q has no object", n.Attr)
		}
		if n.Attr == "" {
			return fmt.Errorf("attribute node has empty attr")
		}
	case KindCall:
		if n.Function == nil {
			return fmt.Errorf("call node has no function")
		}
	case KindCompare:
		if !ValidOp(n.Op) {
			return fmt.Errorf("unknown comparison operator %q", n.Op)
		}
		if n.Left == nil || n.Right == nil {
			return fmt.Errorf("comparison %q is missing an operand", n.Op)
		}
	case KindAnd, KindOr:
		for i, c := range n.Conditions {
			if c == nil {
				return fmt.Errorf("%s condition %d is nil", n.Kind, i)
			}
		}
	case KindNot:
		if n.Condition == nil {
			return fmt.Errorf("not node has no condition")
		}
	default:
		return fmt.Errorf("unknown node kind %q", n.Kind)
	}
	for _, child := range n.children() {
		if child == nil {
			return fmt.Errorf("%s node has a nil child", n.Kind)
		}
		if err := child.validate(); err != nil {
			return err
		}
	}
	return nil
}
