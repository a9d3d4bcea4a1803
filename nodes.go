package linecalc

import (
	"strconv"
	"strings"
)

// node is a node in the abstract syntax tree of an expression.
type node struct {
	kind nodeKind

	// name is the literal text of a number or the name of a variable.
	name string
	num  float64
	// pos is the column of the token that produced the node: the literal,
	// the variable, or the operator.
	pos int

	left  *node
	right *node
}

type nodeKind int8

const (
	nodeNone nodeKind = iota

	nodeNum  // num
	nodeName // lookup(name)

	nodeNeg // evaluate left, then negate
	nodeAdd // evaluate left, add right
	nodeSub // evaluate left, sub right
	nodeMul // evaluate left, mul right
	nodeDiv // evaluate left, div by right
	nodeMod // evaluate left, remainder by right
	nodePow // evaluate left, exp by right
)

func (k nodeKind) String() string {
	switch k {
	case nodeNone:
		return "None"
	case nodeNum:
		return "Num"
	case nodeName:
		return "Name"
	case nodeNeg:
		return "Neg"
	case nodeAdd:
		return "Add"
	case nodeSub:
		return "Sub"
	case nodeMul:
		return "Mul"
	case nodeDiv:
		return "Div"
	case nodeMod:
		return "Mod"
	case nodePow:
		return "Pow"
	default:
		return "nodeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// binops maps binary node kinds to their operator text.
var binops = [...]string{
	nodeAdd: " + ",
	nodeSub: " - ",
	nodeMul: " * ",
	nodeDiv: " / ",
	nodeMod: " % ",
	nodePow: " ^ ",
}

func (n *node) String() string {
	var b strings.Builder
	n.fmt(&b, false)
	return b.String()
}

// fmt writes n with every subexpression bracketed, alternating round and
// square brackets by depth.
func (n *node) fmt(b *strings.Builder, square bool) {
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	b.WriteByte(l)
	defer b.WriteByte(r)
	switch n.kind {
	case nodeNone:
		// Invalid nodes use invalid characters.
		b.WriteByte('$')
		if n.left != nil {
			n.left.fmt(b, !square)
		}
		b.WriteByte('#')
		if n.right != nil {
			n.right.fmt(b, !square)
		}
		b.WriteByte('$')
	case nodeNum, nodeName:
		b.WriteString(n.name)
	case nodeNeg:
		b.WriteByte('-')
		n.left.fmt(b, !square)
	case nodeAdd, nodeSub, nodeMul, nodeDiv, nodeMod, nodePow:
		n.left.fmt(b, !square)
		b.WriteString(binops[n.kind])
		n.right.fmt(b, !square)
	default:
		panic("linecalc: invalid node kind " + n.kind.String() + " after writing " + b.String())
	}
}
