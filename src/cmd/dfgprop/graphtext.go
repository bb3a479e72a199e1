package main

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/zihong/dfgprop/src/compiler/collab"
	"github.com/zihong/dfgprop/src/compiler/graph"
)

// loadGraph reads the tiny textual graph description cmd/dfgprop accepts
// in place of a real bytecode-to-IR front end (out of scope per
// package collab's doc comment). The format is line-oriented:
//
//	node <Opcode> <c0> <c1> <c2> [key=value ...]
//	block <begin> <end> <succ0,succ1,...>
//
// Children are node indices in declaration order, or "-" for none. Nodes
// must be declared 0..N-1 in order; blocks are declared after every node.
// Recognized keys: const=<kind>:<value>, id=<n>, depth=<n>, local=<slot>,
// struct=<id0>,<id1>,..., heap=<PredictionAtom>.
func loadGraph(r io.Reader) (*graph.Graph, *collab.CodeBlock, *collab.GlobalData, error) {
	g := graph.NewGraph()
	cb := collab.NewCodeBlock()
	gd := collab.NewGlobalData()

	locals := map[int]int{} // source local slot -> VarAccessPool index

	sc := bufio.NewScanner(r)
	lineNo := 0

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "node":
			if err := loadNode(g, cb, locals, fields[1:]); err != nil {
				return nil, nil, nil, errors.Wrap(err, "line %d", lineNo)
			}
		case "block":
			if err := loadBlock(g, fields[1:]); err != nil {
				return nil, nil, nil, errors.Wrap(err, "line %d", lineNo)
			}
		default:
			return nil, nil, nil, errors.New("line %d: unknown directive %q", lineNo, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, nil, errors.Wrap(err, "scan")
	}

	return g, cb, gd, nil
}

func loadNode(g *graph.Graph, cb *collab.CodeBlock, locals map[int]int, fields []string) error {
	if len(fields) < 4 {
		return errors.New("node needs an opcode and three children, got %v", fields)
	}
	op, ok := graph.ParseOpcode(fields[0])
	if !ok {
		return errors.New("unknown opcode %q", fields[0])
	}

	children := [3]graph.NodeIndex{graph.NoNode, graph.NoNode, graph.NoNode}
	for k := 0; k < 3; k++ {
		c, err := parseChild(fields[1+k])
		if err != nil {
			return err
		}
		children[k] = c
	}

	n := graph.NewNode(op, children[0], children[1], children[2])
	n.MarkMustGenerate()

	for _, kv := range fields[4:] {
		if err := applyNodeAttr(g, cb, locals, &n, kv); err != nil {
			return err
		}
	}

	g.AddNode(n)
	return nil
}

func parseChild(s string) (graph.NodeIndex, error) {
	if s == "-" {
		return graph.NoNode, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return graph.NoNode, errors.Wrap(err, "child %q", s)
	}
	return graph.NodeIndex(v), nil
}

func applyNodeAttr(g *graph.Graph, cb *collab.CodeBlock, locals map[int]int, n *graph.Node, kv string) error {
	key, val, ok := strings.Cut(kv, "=")
	if !ok {
		return errors.New("malformed attribute %q", kv)
	}

	switch key {
	case "const":
		v, err := parseConstant(val)
		if err != nil {
			return err
		}
		n.Constant = v

	case "id":
		v, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrap(err, "id")
		}
		n.Identifier = v

	case "depth":
		v, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrap(err, "depth")
		}
		n.ScopeDepth = v

	case "local":
		slot, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrap(err, "local")
		}
		idx, ok := locals[slot]
		if !ok {
			idx = g.VarAccess.New(slot)
			locals[slot] = idx
		}
		n.VarAccessIndex = idx

	case "struct":
		var set graph.StructureSet
		for _, s := range strings.Split(val, ",") {
			id, err := strconv.Atoi(s)
			if err != nil {
				return errors.Wrap(err, "struct")
			}
			set = append(set, graph.StructureID(id))
		}
		n.StructAccess = len(g.StructAccess)
		g.StructAccess = append(g.StructAccess, graph.StructureAccessData{Structures: set})

	case "heap":
		p, ok := graph.ParsePrediction(val)
		if !ok {
			return errors.New("unknown prediction atom %q", val)
		}
		n.HeapType = p

	default:
		return errors.New("unknown node attribute %q", key)
	}

	return nil
}

func parseConstant(val string) (graph.Value, error) {
	kind, raw, ok := strings.Cut(val, ":")
	if !ok {
		return graph.Value{}, errors.New("malformed const %q", val)
	}
	switch kind {
	case "int32":
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return graph.Value{}, errors.Wrap(err, "const int32")
		}
		return graph.Int32Value(int32(v)), nil
	case "double":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return graph.Value{}, errors.Wrap(err, "const double")
		}
		return graph.DoubleValue(v), nil
	case "bool":
		return graph.BoolValue(raw == "true"), nil
	case "string":
		return graph.StringValue(raw), nil
	default:
		return graph.Value{}, errors.New("unknown const kind %q", kind)
	}
}

func loadBlock(g *graph.Graph, fields []string) error {
	if len(fields) < 2 {
		return errors.New("block needs begin and end, got %v", fields)
	}
	begin, err := strconv.Atoi(fields[0])
	if err != nil {
		return errors.Wrap(err, "block begin")
	}
	end, err := strconv.Atoi(fields[1])
	if err != nil {
		return errors.Wrap(err, "block end")
	}

	var succ []int
	if len(fields) > 2 {
		for _, s := range strings.Split(fields[2], ",") {
			v, err := strconv.Atoi(s)
			if err != nil {
				return errors.Wrap(err, "block successor")
			}
			succ = append(succ, v)
		}
	}

	g.AddBlock(begin, end, succ...)
	return nil
}
