package cast

// Children returns the direct child nodes of n in source order. Nil children
// are omitted.
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		switch v := c.(type) {
		case nil:
			return
		case Expr:
			if v == nil {
				return
			}
		case Stmt:
			if v == nil {
				return
			}
		}
		out = append(out, c)
	}

	switch v := n.(type) {
	case *File:
		for _, f := range v.Funcs {
			add(f)
		}
	case *FuncDef:
		if v.Body != nil {
			add(v.Body)
		}
	case *Compound:
		for _, s := range v.List {
			add(s)
		}
	case *ExprStmt:
		add(v.X)
	case *Decl:
		add(v.Init)
	case *Return:
		add(v.X)
	case *If:
		add(v.Cond)
		add(v.Then)
		add(v.Else)
	case *Switch:
		add(v.Cond)
		add(v.Body)
	case *Case:
		add(v.Expr)
		for _, s := range v.Body {
			add(s)
		}
	case *While:
		add(v.Cond)
		add(v.Body)
	case *DoWhile:
		add(v.Body)
		add(v.Cond)
	case *For:
		add(v.Init)
		add(v.Cond)
		add(v.Next)
		add(v.Body)
	case *Label:
		add(v.Stmt)
	case *FuncCall:
		add(v.Fun)
		for _, a := range v.Args {
			add(a)
		}
	case *Unary:
		add(v.X)
	case *Binary:
		add(v.X)
		add(v.Y)
	case *Assign:
		add(v.Lhs)
		add(v.Rhs)
	case *Ternary:
		add(v.Cond)
		add(v.Then)
		add(v.Else)
	case *Index:
		add(v.X)
		add(v.Idx)
	case *Member:
		add(v.X)
	case *Opaque:
		for _, c := range v.Calls {
			add(c)
		}
	}
	return out
}

// Inspect traverses the tree rooted at n in depth-first source order,
// calling f for every node. If f returns false, traversal stops early and
// Inspect returns false.
func Inspect(n Node, f func(Node) bool) bool {
	if n == nil {
		return true
	}
	if !f(n) {
		return false
	}
	for _, c := range Children(n) {
		if !Inspect(c, f) {
			return false
		}
	}
	return true
}

// Contains reports whether pred holds for any node in the tree rooted at n,
// including n itself.
func Contains(n Node, pred func(Node) bool) bool {
	found := false
	Inspect(n, func(c Node) bool {
		if pred(c) {
			found = true
			return false
		}
		return true
	})
	return found
}
