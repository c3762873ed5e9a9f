package expr

// Visitor visits nodes of an expression tree.
type Visitor interface {
	// Visit is invoked for each node encountered by Walk. If the result
	// Visitor is not nil, Walk visits each of the children of the node
	// with that visitor, followed by a call of Visit(nil).
	Visit(e Expr) Visitor
}

// Walk traverses the tree in depth-first order. It starts by calling
// v.Visit(e); e must not be nil.
func Walk(v Visitor, e Expr) {
	if v = v.Visit(e); v == nil {
		return
	}
	for _, child := range Children(e) {
		Walk(v, child)
	}
	v.Visit(nil)
}

type inspector func(Expr) bool

func (f inspector) Visit(e Expr) Visitor {
	if f(e) {
		return f
	}
	return nil
}

// Inspect traverses the tree in depth-first order calling f for each
// node. If f returns true, Inspect invokes f recursively for each child
// of the node, followed by a call of f(nil).
func Inspect(e Expr, f func(Expr) bool) {
	Walk(inspector(func(n Expr) bool {
		if n == nil {
			return false
		}
		return f(n)
	}), e)
}

// Children returns the direct operands of e in evaluation order.
func Children(e Expr) []Expr {
	switch e := e.(type) {
	case *Binary:
		return []Expr{e.L, e.R}
	case *Unary:
		return []Expr{e.X}
	case *Cast:
		return []Expr{e.X}
	case *Func:
		return e.Args
	case *Case:
		children := make([]Expr, 0, 2*len(e.Whens)+1)
		for _, w := range e.Whens {
			children = append(children, w.Cond, w.Then)
		}
		if e.Else != nil {
			children = append(children, e.Else)
		}
		return children
	}
	return nil
}

// Columns returns the distinct columns referenced by e in first-occurrence
// order.
func Columns(e Expr) []*Column {
	var (
		cols []*Column
		seen = make(map[*Column]struct{})
	)
	Inspect(e, func(n Expr) bool {
		if c, ok := n.(*Column); ok {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				cols = append(cols, c)
			}
		}
		return true
	})
	return cols
}

// Transform rebuilds the tree bottom-up, replacing each node with the
// result of f. Rebuilt compound nodes are type-checked again.
func Transform(e Expr, f func(Expr) (Expr, error)) (Expr, error) {
	var err error
	switch n := e.(type) {
	case *Binary:
		var l, r Expr
		if l, err = Transform(n.L, f); err != nil {
			return nil, err
		}
		if r, err = Transform(n.R, f); err != nil {
			return nil, err
		}
		if l != n.L || r != n.R {
			if e, err = NewBinary(n.Op, l, r); err != nil {
				return nil, err
			}
		}
	case *Unary:
		var x Expr
		if x, err = Transform(n.X, f); err != nil {
			return nil, err
		}
		if x != n.X {
			if e, err = NewUnary(n.Op, x); err != nil {
				return nil, err
			}
		}
	case *Cast:
		var x Expr
		if x, err = Transform(n.X, f); err != nil {
			return nil, err
		}
		if x != n.X {
			if e, err = NewCast(x, n.To); err != nil {
				return nil, err
			}
		}
	case *Func:
		args := make([]Expr, len(n.Args))
		changed := false
		for i, a := range n.Args {
			if args[i], err = Transform(a, f); err != nil {
				return nil, err
			}
			changed = changed || args[i] != a
		}
		if changed {
			if e, err = NewFunc(n.Fn, args...); err != nil {
				return nil, err
			}
		}
	case *Case:
		whens := make([]When, len(n.Whens))
		changed := false
		for i, w := range n.Whens {
			if whens[i].Cond, err = Transform(w.Cond, f); err != nil {
				return nil, err
			}
			if whens[i].Then, err = Transform(w.Then, f); err != nil {
				return nil, err
			}
			changed = changed || whens[i].Cond != w.Cond || whens[i].Then != w.Then
		}
		els := n.Else
		if els != nil {
			if els, err = Transform(n.Else, f); err != nil {
				return nil, err
			}
			changed = changed || els != n.Else
		}
		if changed {
			if e, err = NewCase(whens, els); err != nil {
				return nil, err
			}
		}
	}
	return f(e)
}
