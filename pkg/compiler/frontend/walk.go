package frontend

import (
	"github.com/dop251/goja/ast"
)

// Inspect traverses node depth-first. fn is called for every node before its
// children; returning false skips them. Nested functions and classes are
// entered like any other node.
func Inspect(node ast.Node, fn func(ast.Node) bool) {
	if node == nil || isNilNode(node) {
		return
	}
	if !fn(node) {
		return
	}

	walk := func(n ast.Node) { Inspect(n, fn) }
	walkExprs := func(list []ast.Expression) {
		for _, e := range list {
			if e != nil {
				Inspect(e, fn)
			}
		}
	}
	walkStmts := func(list []ast.Statement) {
		for _, s := range list {
			Inspect(s, fn)
		}
	}
	walkBindings := func(list []*ast.Binding) {
		for _, b := range list {
			Inspect(b, fn)
		}
	}

	switch n := node.(type) {
	// Statements
	case *ast.Program:
		walkStmts(n.Body)
	case *ast.BlockStatement:
		walkStmts(n.List)
	case *ast.ExpressionStatement:
		walk(n.Expression)
	case *ast.VariableStatement:
		walkBindings(n.List)
	case *ast.LexicalDeclaration:
		walkBindings(n.List)
	case *ast.Binding:
		walk(n.Target)
		walk(n.Initializer)
	case *ast.FunctionDeclaration:
		walk(n.Function)
	case *ast.ClassDeclaration:
		walk(n.Class)
	case *ast.IfStatement:
		walk(n.Test)
		walk(n.Consequent)
		walk(n.Alternate)
	case *ast.ForStatement:
		walk(n.Initializer)
		walk(n.Test)
		walk(n.Update)
		walk(n.Body)
	case *ast.ForLoopInitializerExpression:
		walk(n.Expression)
	case *ast.ForLoopInitializerVarDeclList:
		walkBindings(n.List)
	case *ast.ForLoopInitializerLexicalDecl:
		walkBindings(n.LexicalDeclaration.List)
	case *ast.ForInStatement:
		walk(n.Into)
		walk(n.Source)
		walk(n.Body)
	case *ast.ForOfStatement:
		walk(n.Into)
		walk(n.Source)
		walk(n.Body)
	case *ast.ForIntoVar:
		walk(n.Binding)
	case *ast.ForDeclaration:
		walk(n.Target)
	case *ast.ForIntoExpression:
		walk(n.Expression)
	case *ast.WhileStatement:
		walk(n.Test)
		walk(n.Body)
	case *ast.DoWhileStatement:
		walk(n.Body)
		walk(n.Test)
	case *ast.LabelledStatement:
		walk(n.Statement)
	case *ast.ReturnStatement:
		walk(n.Argument)
	case *ast.ThrowStatement:
		walk(n.Argument)
	case *ast.SwitchStatement:
		walk(n.Discriminant)
		for _, c := range n.Body {
			walk(c)
		}
	case *ast.CaseStatement:
		walk(n.Test)
		walkStmts(n.Consequent)
	case *ast.TryStatement:
		walk(n.Body)
		if n.Catch != nil {
			walk(n.Catch)
		}
		if n.Finally != nil {
			walk(n.Finally)
		}
	case *ast.CatchStatement:
		walk(n.Parameter)
		walk(n.Body)
	case *ast.WithStatement:
		walk(n.Object)
		walk(n.Body)

	// Functions and classes
	case *ast.FunctionLiteral:
		walk(n.ParameterList)
		walk(n.Body)
	case *ast.ArrowFunctionLiteral:
		walk(n.ParameterList)
		walk(n.Body)
	case *ast.ExpressionBody:
		walk(n.Expression)
	case *ast.ParameterList:
		walkBindings(n.List)
		walk(n.Rest)
	case *ast.ClassLiteral:
		walk(n.SuperClass)
		for _, el := range n.Body {
			walk(el)
		}
	case *ast.FieldDefinition:
		walk(n.Key)
		walk(n.Initializer)
	case *ast.MethodDefinition:
		walk(n.Key)
		walk(n.Body)
	case *ast.ClassStaticBlock:
		walk(n.Block)

	// Expressions
	case *ast.AssignExpression:
		walk(n.Left)
		walk(n.Right)
	case *ast.BinaryExpression:
		walk(n.Left)
		walk(n.Right)
	case *ast.UnaryExpression:
		walk(n.Operand)
	case *ast.ConditionalExpression:
		walk(n.Test)
		walk(n.Consequent)
		walk(n.Alternate)
	case *ast.SequenceExpression:
		walkExprs(n.Sequence)
	case *ast.CallExpression:
		walk(n.Callee)
		walkExprs(n.ArgumentList)
	case *ast.NewExpression:
		walk(n.Callee)
		walkExprs(n.ArgumentList)
	case *ast.DotExpression:
		walk(n.Left)
	case *ast.PrivateDotExpression:
		walk(n.Left)
	case *ast.BracketExpression:
		walk(n.Left)
		walk(n.Member)
	case *ast.OptionalChain:
		walk(n.Expression)
	case *ast.Optional:
		walk(n.Expression)
	case *ast.ArrayLiteral:
		walkExprs(n.Value)
	case *ast.ArrayPattern:
		walkExprs(n.Elements)
		walk(n.Rest)
	case *ast.ObjectLiteral:
		for _, p := range n.Value {
			walk(p)
		}
	case *ast.ObjectPattern:
		for _, p := range n.Properties {
			walk(p)
		}
		walk(n.Rest)
	case *ast.PropertyKeyed:
		walk(n.Key)
		walk(n.Value)
	case *ast.PropertyShort:
		walk(&n.Name)
		walk(n.Initializer)
	case *ast.SpreadElement:
		walk(n.Expression)
	case *ast.TemplateLiteral:
		walk(n.Tag)
		walkExprs(n.Expressions)
	case *ast.YieldExpression:
		walk(n.Argument)
	case *ast.AwaitExpression:
		walk(n.Argument)
	}
}

// isNilNode catches typed nils stored in interface fields, such as a nil
// *ast.BlockStatement passed as ast.Node.
func isNilNode(n ast.Node) bool {
	switch v := n.(type) {
	case *ast.BlockStatement:
		return v == nil
	case *ast.CatchStatement:
		return v == nil
	case *ast.ParameterList:
		return v == nil
	case *ast.Identifier:
		return v == nil
	case *ast.Binding:
		return v == nil
	case *ast.FunctionLiteral:
		return v == nil
	case *ast.ClassLiteral:
		return v == nil
	}
	return false
}

// Suspends reports whether node holds an `await`, a `yield` or a
// `for await` loop that belongs to the enclosing function. Nested functions
// are not entered.
func (u *Unit) Suspends(node ast.Node) bool {
	found := false
	Inspect(node, func(n ast.Node) bool {
		if found {
			return false
		}
		switch n := n.(type) {
		case *ast.AwaitExpression, *ast.YieldExpression:
			found = true
			return false
		case *ast.ForOfStatement:
			if u.AsyncLoops[n.For] {
				found = true
				return false
			}
		case *ast.FunctionLiteral, *ast.ArrowFunctionLiteral, *ast.ClassLiteral:
			return false
		}
		return true
	})
	return found
}
