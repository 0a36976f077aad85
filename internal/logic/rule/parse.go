// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// ruleLexer tokenizes the text form of rules. Multi-character comparison
// operators must precede their single-character prefixes.
var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `\d+(\.\d+)?`},
	{Name: "Op", Pattern: `==|!=|<=|>=|<|>`},
	{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
	{Name: "Punct", Pattern: `[()\[\],.]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Grammar:
//
//	or      = and { "or" and }
//	and     = not { "and" not }
//	not     = "not" not | compare
//	compare = postfix [ op postfix ]
//	postfix = primary { "." ident | "(" [ or { "," or } ] ")" }
//	primary = string | number | bool | none | list | "(" or ")" | ident
type orExpr struct {
	Left *andExpr   `parser:"@@"`
	Rest []*andExpr `parser:"( 'or' @@ )*"`
}

type andExpr struct {
	Left *notExpr   `parser:"@@"`
	Rest []*notExpr `parser:"( 'and' @@ )*"`
}

type notExpr struct {
	Not *notExpr `parser:"  'not' @@"`
	Cmp *cmpExpr `parser:"| @@"`
}

type cmpExpr struct {
	Left  *postfixExpr `parser:"@@"`
	Op    string       `parser:"( @('==' | '!=' | '<=' | '>=' | '<' | '>')"`
	Right *postfixExpr `parser:"  @@ )?"`
}

type postfixExpr struct {
	Base     *primaryExpr `parser:"@@"`
	Suffixes []*suffix    `parser:"@@*"`
}

type suffix struct {
	Field string    `parser:"  '.' @Ident"`
	Call  bool      `parser:"| ( @'('"`
	Args  []*orExpr `parser:"    ( @@ ( ',' @@ )* )? ')' )"`
}

type primaryExpr struct {
	Str    *string   `parser:"  @String"`
	Number *float64  `parser:"| @Number"`
	Bool   *string   `parser:"| @('True' | 'False' | 'true' | 'false')"`
	None   bool      `parser:"| @('None' | 'null')"`
	List   bool      `parser:"| ( @'['"`
	Items  []*orExpr `parser:"    ( @@ ( ',' @@ )* )? ']' )"`
	Sub    *orExpr   `parser:"| '(' @@ ')'"`
	Name   string    `parser:"| @Ident"`
}

// CodeMalformed is the error code for rule text or trees that cannot be
// turned into a valid Node.
const CodeMalformed = "MALFORMED_RULE"

// textParser is the singleton participle parser instance.
var textParser *participle.Parser[orExpr]

func init() {
	var err error
	textParser, err = participle.Build[orExpr](
		participle.Lexer(ruleLexer),
		participle.Unquote("String"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to build rule parser: %v", err))
	}
}

// Parse parses the text form of a rule, e.g.
//
//	has("Hookshot") and (count("Small Key") >= 2 or settings.open_mode)
//
// into a Node. Calls written as state.has(...) keep the state receiver so
// the evaluator applies the upstream argument convention.
func Parse(text string) (*Node, error) {
	parsed, err := textParser.ParseString("", text)
	if err != nil {
		return nil, oops.Code(CodeMalformed).With("rule", text).Wrapf(err, "parsing rule")
	}
	n, err := parsed.node()
	if err != nil {
		return nil, oops.Code(CodeMalformed).With("rule", text).Wrap(err)
	}
	return n, nil
}

// MustParse is Parse for rules known to be valid, such as test fixtures.
func MustParse(text string) *Node {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

func (e *orExpr) node() (*Node, error) {
	first, err := e.Left.node()
	if err != nil {
		return nil, err
	}
	if len(e.Rest) == 0 {
		return first, nil
	}
	conds := []*Node{first}
	for _, r := range e.Rest {
		c, err := r.node()
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return Or(conds...), nil
}

func (e *andExpr) node() (*Node, error) {
	first, err := e.Left.node()
	if err != nil {
		return nil, err
	}
	if len(e.Rest) == 0 {
		return first, nil
	}
	conds := []*Node{first}
	for _, r := range e.Rest {
		c, err := r.node()
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return And(conds...), nil
}

func (e *notExpr) node() (*Node, error) {
	if e.Not != nil {
		inner, err := e.Not.node()
		if err != nil {
			return nil, err
		}
		return Not(inner), nil
	}
	return e.Cmp.node()
}

func (e *cmpExpr) node() (*Node, error) {
	left, err := e.Left.node()
	if err != nil {
		return nil, err
	}
	if e.Op == "" {
		return left, nil
	}
	right, err := e.Right.node()
	if err != nil {
		return nil, err
	}
	return Compare(left, e.Op, right), nil
}

func (e *postfixExpr) node() (*Node, error) {
	n, err := e.Base.node()
	if err != nil {
		return nil, err
	}
	for _, s := range e.Suffixes {
		if s.Call {
			var args []*Node
			for _, a := range s.Args {
				arg, err := a.node()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
			n = &Node{Kind: KindCall, Function: n, Args: args}
			continue
		}
		n = Attribute(n, s.Field)
	}
	return n, nil
}

func (e *primaryExpr) node() (*Node, error) {
	switch {
	case e.Str != nil:
		return Const(*e.Str), nil
	case e.Number != nil:
		return Const(*e.Number), nil
	case e.Bool != nil:
		return Const(*e.Bool == "True" || *e.Bool == "true"), nil
	case e.None:
		return Const(nil), nil
	case e.List:
		items := make([]any, 0, len(e.Items))
		for _, it := range e.Items {
			n, err := it.node()
			if err != nil {
				return nil, err
			}
			if n.Kind != KindConstant {
				return nil, fmt.Errorf("list elements must be literals")
			}
			items = append(items, n.Value)
		}
		return Const(items), nil
	case e.Sub != nil:
		return e.Sub.node()
	case e.Name != "":
		return Ident(e.Name), nil
	default:
		return nil, fmt.Errorf("empty expression")
	}
}
