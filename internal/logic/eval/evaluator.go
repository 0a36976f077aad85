// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package eval implements the access-rule interpreter. An Evaluator walks
// a rule tree against an Interface and returns a boolean or a typed fault.
// It holds no per-call state and is safe for concurrent use.
package eval

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/reachlogic/internal/logic/rule"
)

// DefaultMaxDepth bounds rule nesting when no depth is configured.
const DefaultMaxDepth = 128

// Region, location and exit kinds accepted by can_reach.
const (
	KindRegion   = "Region"
	KindLocation = "Location"
	KindEntrance = "Entrance"
)

// playerArgIndex gives, for each built-in reached through a state.<name>
// call, the position of the interleaved player argument that is dropped
// before dispatch.
var playerArgIndex = map[string]int{
	"has":         1,
	"count":       1,
	"has_any":     1,
	"has_all":     1,
	"has_group":   1,
	"count_group": 1,
	"can_reach":   2,
}

// Evaluator interprets rule trees.
type Evaluator struct {
	maxDepth int
	lenient  bool
	logger   *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxDepth sets the maximum rule nesting depth. Values <= 0 select
// DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(e *Evaluator) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithLenientHelpers makes unknown helpers evaluate to undefined, logged at
// warn level, instead of faulting.
func WithLenientHelpers(lenient bool) Option {
	return func(e *Evaluator) { e.lenient = lenient }
}

// WithLogger sets the logger for unresolved references. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// MaxDepth returns the configured nesting limit.
func (e *Evaluator) MaxDepth() int { return e.maxDepth }

// Evaluate evaluates node as a truth condition. A nil node is an absent
// rule and passes. contextName identifies what is being evaluated in logs
// and error context.
func Evaluate(node *rule.Node, iface Interface, contextName string) (bool, error) {
	return New().Evaluate(node, iface, contextName)
}

// Evaluate evaluates node as a truth condition. See the package-level
// Evaluate.
func (e *Evaluator) Evaluate(node *rule.Node, iface Interface, contextName string) (bool, error) {
	if node == nil {
		return true, nil
	}
	v, err := e.Value(node, iface, contextName)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Value evaluates node to a rule value without boolean coercion.
func (e *Evaluator) Value(node *rule.Node, iface Interface, contextName string) (any, error) {
	w := &walker{e: e, iface: iface, context: contextName}
	v, err := w.value(node, 1)
	if err != nil {
		return nil, oops.With("rule_context", contextName).Wrap(err)
	}
	return v, nil
}

type walker struct {
	e       *Evaluator
	iface   Interface
	context string
}

func (w *walker) value(n *rule.Node, depth int) (any, error) {
	if depth > w.e.maxDepth {
		return nil, ErrDepthExceeded(w.e.maxDepth)
	}
	if n == nil {
		return nil, ErrMalformedRule("missing rule node")
	}

	switch n.Kind {
	case rule.KindConstant:
		return n.Value, nil

	case rule.KindName:
		v, ok := w.iface.ResolveName(n.Name)
		if !ok {
			w.unresolved("name", n.Name)
			return nil, nil
		}
		return v, nil

	case rule.KindAttribute:
		base, err := w.value(n.Object, depth+1)
		if err != nil {
			return nil, err
		}
		if base == nil {
			return nil, nil
		}
		v, ok := w.iface.ResolveAttribute(base, n.Attr)
		if !ok {
			w.unresolved("attribute", n.Attr)
			return nil, nil
		}
		return v, nil

	case rule.KindCall:
		return w.call(n, depth)

	case rule.KindCompare:
		left, err := w.value(n.Left, depth+1)
		if err != nil {
			return nil, err
		}
		right, err := w.value(n.Right, depth+1)
		if err != nil {
			return nil, err
		}
		return compare(n.Op, left, right)

	case rule.KindAnd:
		for _, c := range n.Conditions {
			v, err := w.value(c, depth+1)
			if err != nil {
				return nil, err
			}
			if !Truthy(v) {
				return false, nil
			}
		}
		return true, nil

	case rule.KindOr:
		for _, c := range n.Conditions {
			v, err := w.value(c, depth+1)
			if err != nil {
				return nil, err
			}
			if Truthy(v) {
				return true, nil
			}
		}
		return false, nil

	case rule.KindNot:
		v, err := w.value(n.Condition, depth+1)
		if err != nil {
			return nil, err
		}
		return !Truthy(v), nil

	default:
		return nil, ErrMalformedRule("unknown rule node kind %q", n.Kind)
	}
}

func (w *walker) unresolved(kind, name string) {
	w.e.logger.Warn("unresolved reference",
		"code", CodeUnresolvedReference,
		"kind", kind,
		"name", name,
		"context", w.context)
}

// callee extracts the target of a call node: a name, a state.<method>
// attribute, or a string constant.
func callee(fn *rule.Node) (name string, method bool, err error) {
	switch {
	case fn == nil:
		return "", false, ErrMalformedRule("call node has no function")
	case fn.Kind == rule.KindName:
		return fn.Name, false, nil
	case fn.Kind == rule.KindAttribute && fn.Object != nil &&
		fn.Object.Kind == rule.KindName && fn.Object.Name == "state":
		return fn.Attr, true, nil
	case fn.Kind == rule.KindConstant:
		if s, ok := fn.Value.(string); ok && s != "" {
			return s, false, nil
		}
	}
	return "", false, ErrMalformedRule("unsupported call target of kind %q", fn.Kind)
}

func (w *walker) call(n *rule.Node, depth int) (any, error) {
	name, method, err := callee(n.Function)
	if err != nil {
		return nil, err
	}

	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := w.value(a, depth+1)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if fn, ok := builtins[name]; ok {
		if method {
			args = dropArg(args, playerArgIndex[name])
		}
		return fn(w.iface, name, args)
	}

	v, err := w.iface.ExecuteHelper(HelperCall{Name: name, Args: args, Method: method})
	if err != nil {
		if w.e.lenient && HasCode(err, CodeUnknownHelper) {
			w.e.logger.Warn("unknown helper evaluated as undefined",
				"code", CodeUnknownHelper,
				"helper", name,
				"context", w.context)
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func dropArg(args []any, i int) []any {
	if i < 0 || i >= len(args) {
		return args
	}
	out := make([]any, 0, len(args)-1)
	out = append(out, args[:i]...)
	return append(out, args[i+1:]...)
}
