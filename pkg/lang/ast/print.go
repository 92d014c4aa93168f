package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders n as a compact s-expression, e.g. (+ 1 €/mois [a . b]).
// References are bracketed since rule names may contain spaces.
func Print(n Node) string {
	var sb strings.Builder
	printNode(&sb, n)
	return sb.String()
}

// FormatNumber renders a float the way it would be written in a rule source.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func printNode(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case nil:
		sb.WriteString("nil")
	case *Constant:
		switch v := n.Value.(type) {
		case float64:
			sb.WriteString(FormatNumber(v))
			if n.Unit != "" {
				sb.WriteString(" " + n.Unit)
			}
		case bool:
			if v {
				sb.WriteString("oui")
			} else {
				sb.WriteString("non")
			}
		case string:
			sb.WriteString(strconv.Quote(v))
		default:
			fmt.Fprintf(sb, "%v", v)
		}
	case *Undefined:
		sb.WriteString("undefined")
	case *Reference:
		sb.WriteString("[" + n.Name + "]")
	case *BinaryOp:
		printCall(sb, n.Op, n.Left, n.Right)
	case *UnitConversion:
		fmt.Fprintf(sb, "(convert %s ", FormatNumber(n.Factor))
		printNode(sb, n.Value)
		sb.WriteString(")")
	case *Bareme:
		sb.WriteString("(barème ")
		printNode(sb, n.Assiette)
		for _, t := range n.Tranches {
			sb.WriteString(" (tranche ")
			printNode(sb, t.Taux)
			if t.Plafond != nil {
				sb.WriteString(" ")
				printNode(sb, t.Plafond)
			}
			sb.WriteString(")")
		}
		sb.WriteString(")")
	case *Variations:
		sb.WriteString("(variations")
		for _, b := range n.Branches {
			sb.WriteString(" (si ")
			printNode(sb, b.Condition)
			sb.WriteString(" alors ")
			printNode(sb, b.Consequence)
			sb.WriteString(")")
		}
		if n.Default != nil {
			sb.WriteString(" (sinon ")
			printNode(sb, n.Default)
			sb.WriteString(")")
		}
		sb.WriteString(")")
	case *UniteAnnotation:
		sb.WriteString("(unité " + n.Unit + " ")
		printNode(sb, n.Value)
		sb.WriteString(")")
	case *Possibilites:
		sb.WriteString("(possibilités")
		for _, v := range n.Values {
			sb.WriteString(" " + strconv.Quote(v))
		}
		sb.WriteString(")")
	case *Record:
		sb.WriteString("{")
		for i, e := range n.Entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.Key + ": ")
			printNode(sb, e.Value)
		}
		sb.WriteString("}")
	case *List:
		sb.WriteString("[")
		for i, item := range n.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			printNode(sb, item)
		}
		sb.WriteString("]")
	default:
		printCall(sb, string(n.Kind()), Children(n)...)
	}
}

func printCall(sb *strings.Builder, head string, args ...Node) {
	sb.WriteString("(" + head)
	for _, a := range args {
		sb.WriteString(" ")
		printNode(sb, a)
	}
	sb.WriteString(")")
}
