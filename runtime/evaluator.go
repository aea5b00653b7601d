package runtime

import (
	"fmt"
	"math"
	"reflect"

	"github.com/deicod/webity/nodes"
)

// returnSignal carries the value of a `return` statement up to the
// enclosing function or script
type returnSignal struct {
	value interface{}
}

// chainBroken is produced when an optional chain meets null or undefined;
// the rest of the chain is skipped and the whole chain yields undefined
type chainBroken struct{}

// Evaluator implements the visitor pattern for evaluating AST nodes
type Evaluator struct {
	ctx *Context
}

// NewEvaluator creates a new evaluator
func NewEvaluator(ctx *Context) *Evaluator {
	return &Evaluator{ctx: ctx}
}

// Evaluate evaluates a node and returns the result. Failures are returned
// as error values.
func (e *Evaluator) Evaluate(node nodes.Node) interface{} {
	if node == nil {
		return undefinedValue
	}
	result := node.Accept(e)
	if _, ok := result.(chainBroken); ok {
		return undefinedValue
	}
	return result
}

// EvalExpression evaluates a single expression
func (e *Evaluator) EvalExpression(expr nodes.Expr) (interface{}, error) {
	result := e.Evaluate(expr)
	if err, ok := result.(error); ok {
		return nil, err
	}
	return result, nil
}

// ExecProgram runs a script and returns the value of its top-level
// `return`, or undefined
func (e *Evaluator) ExecProgram(program *nodes.Program) (interface{}, error) {
	result := e.execStatements(program.Body)
	switch r := result.(type) {
	case error:
		return nil, r
	case returnSignal:
		return r.value, nil
	}
	return undefinedValue, nil
}

// chainPart evaluates the object of a member access or call without
// collapsing a broken optional chain
func (e *Evaluator) chainPart(node nodes.Expr) interface{} {
	return node.Accept(e)
}

// Visit implements the Visitor interface
func (e *Evaluator) Visit(node nodes.Node) interface{} {
	switch n := node.(type) {
	case *nodes.Program:
		return e.execStatements(n.Body)
	case *nodes.VarDecl:
		return e.visitVarDecl(n)
	case *nodes.ExprStmt:
		return e.visitExprStmt(n)
	case *nodes.Assign:
		return e.visitAssign(n)
	case *nodes.Return:
		return e.visitReturn(n)
	case *nodes.If:
		return e.visitIf(n)
	case *nodes.Block:
		return e.visitBlock(n)

	// Expression nodes
	case *nodes.Name:
		return e.visitName(n)
	case *nodes.Const:
		return n.Value
	case *nodes.TemplateLiteral:
		return e.visitTemplateLiteral(n)
	case *nodes.Array:
		return e.visitArray(n)
	case *nodes.Object:
		return e.visitObject(n)
	case *nodes.Getattr:
		return e.visitGetattr(n)
	case *nodes.Getitem:
		return e.visitGetitem(n)
	case *nodes.Call:
		return e.visitCall(n)
	case *nodes.New:
		return e.visitNew(n)
	case *nodes.Arrow:
		return &Function{node: n, scope: e.ctx.scope, ev: e}
	case *nodes.UnaryExpr:
		return e.visitUnaryExpr(n)
	case *nodes.BinExpr:
		return e.visitBinExpr(n)
	case *nodes.CondExpr:
		return e.visitCondExpr(n)
	case *nodes.Spread:
		return NewError(ErrorTypeSyntax, "spread is only allowed in calls, arrays and objects", n.GetPosition(), n)

	default:
		return NewError(ErrorTypeTemplate, fmt.Sprintf("unknown node type: %T", node), node.GetPosition(), node)
	}
}

// Statement node visitors

// execStatements runs statements in the current scope. The result is nil,
// a returnSignal or an error.
func (e *Evaluator) execStatements(body []nodes.Stmt) interface{} {
	for _, stmt := range body {
		if stmt == nil {
			continue
		}
		if err := e.ctx.guard.check(stmt.GetPosition(), stmt); err != nil {
			return err
		}
		result := stmt.Accept(e)
		switch result.(type) {
		case error, returnSignal:
			return result
		}
	}
	return nil
}

// withScope runs fn with scope as the current scope
func (e *Evaluator) withScope(scope *Scope, fn func() interface{}) interface{} {
	saved := e.ctx.scope
	e.ctx.scope = scope
	defer func() { e.ctx.scope = saved }()
	return fn()
}

func (e *Evaluator) visitVarDecl(node *nodes.VarDecl) interface{} {
	var value interface{} = undefinedValue
	if node.Value != nil {
		value = e.Evaluate(node.Value)
		if err, ok := value.(error); ok {
			return err
		}
	}

	switch node.Kind {
	case nodes.DeclVar:
		e.ctx.scope.functionScope().Set(node.Name, value)
	case nodes.DeclConst:
		if e.ctx.scope.declaredHere(node.Name) {
			return NewAssignmentError(node.Name, "identifier has already been declared", node.GetPosition(), node)
		}
		e.ctx.scope.SetConst(node.Name, value)
	default:
		if e.ctx.scope.declaredHere(node.Name) {
			return NewAssignmentError(node.Name, "identifier has already been declared", node.GetPosition(), node)
		}
		e.ctx.scope.Set(node.Name, value)
	}
	return nil
}

func (e *Evaluator) visitExprStmt(node *nodes.ExprStmt) interface{} {
	if err, ok := e.Evaluate(node.Node).(error); ok {
		return err
	}
	return nil
}

func (e *Evaluator) visitReturn(node *nodes.Return) interface{} {
	if node.Value == nil {
		return returnSignal{value: undefinedValue}
	}
	value := e.Evaluate(node.Value)
	if err, ok := value.(error); ok {
		return err
	}
	return returnSignal{value: value}
}

func (e *Evaluator) visitIf(node *nodes.If) interface{} {
	test := e.Evaluate(node.Test)
	if err, ok := test.(error); ok {
		return err
	}

	body := node.Else
	if ToBoolean(test) {
		body = node.Body
	}
	if len(body) == 0 {
		return nil
	}
	return e.withScope(e.ctx.scope.NewChildScope(), func() interface{} {
		return e.execStatements(body)
	})
}

func (e *Evaluator) visitBlock(node *nodes.Block) interface{} {
	return e.withScope(e.ctx.scope.NewChildScope(), func() interface{} {
		return e.execStatements(node.Body)
	})
}

func (e *Evaluator) visitAssign(node *nodes.Assign) interface{} {
	value := e.Evaluate(node.Value)
	if err, ok := value.(error); ok {
		return err
	}

	if node.Operator != "=" {
		current := e.Evaluate(node.Target)
		if err, ok := current.(error); ok {
			return err
		}
		switch node.Operator {
		case "+=":
			value = add(current, value)
		case "-=":
			value = ToNumber(current) - ToNumber(value)
		default:
			return NewError(ErrorTypeAssignment, fmt.Sprintf("unknown assignment operator: %s", node.Operator), node.GetPosition(), node)
		}
	}

	if err := e.assignTarget(node.Target, value, node); err != nil {
		return err
	}
	return nil
}

func (e *Evaluator) assignTarget(target nodes.Expr, value interface{}, node nodes.Node) error {
	pos := target.GetPosition()
	switch t := target.(type) {
	case *nodes.Name:
		owner := e.ctx.scope.lookup(t.Name)
		if owner == nil {
			e.ctx.globals.Set(t.Name, value)
			return nil
		}
		if owner.consts[t.Name] {
			return NewTypeError(fmt.Sprintf("assignment to constant variable %q", t.Name), pos, node)
		}
		owner.Set(t.Name, value)
		return nil

	case *nodes.Getattr:
		obj := e.Evaluate(t.Node)
		if err, ok := obj.(error); ok {
			return err
		}
		return setMember(obj, t.Attr, value, pos, node)

	case *nodes.Getitem:
		obj := e.Evaluate(t.Node)
		if err, ok := obj.(error); ok {
			return err
		}
		key := e.Evaluate(t.Arg)
		if err, ok := key.(error); ok {
			return err
		}
		if items, ok := obj.([]interface{}); ok && isNumber(key) {
			idx := int(ToNumber(key))
			if idx < 0 || idx >= len(items) {
				return NewError(ErrorTypeAssignment, fmt.Sprintf("index %d out of range", idx), pos, node)
			}
			items[idx] = value
			return nil
		}
		return setMember(obj, ToString(key), value, pos, node)
	}

	return NewAssignmentError(target.String(), "invalid assignment target", pos, node)
}

// Expression node visitors

func (e *Evaluator) visitName(node *nodes.Name) interface{} {
	value, ok := e.ctx.Get(node.Name)
	if !ok {
		return NewUndefinedError(node.Name, node.GetPosition(), node)
	}
	return value
}

func (e *Evaluator) visitTemplateLiteral(node *nodes.TemplateLiteral) interface{} {
	out := make([]byte, 0, 64)
	for i, quasi := range node.Quasis {
		out = append(out, quasi...)
		if i < len(node.Exprs) {
			value := e.Evaluate(node.Exprs[i])
			if err, ok := value.(error); ok {
				return err
			}
			out = append(out, ToString(value)...)
		}
	}
	return string(out)
}

func (e *Evaluator) visitArray(node *nodes.Array) interface{} {
	items, err := e.evalList(node.Items)
	if err != nil {
		return err
	}
	return items
}

// evalList evaluates array items or call arguments, expanding spreads
func (e *Evaluator) evalList(exprs []nodes.Expr) ([]interface{}, error) {
	out := make([]interface{}, 0, len(exprs))
	for _, expr := range exprs {
		if spread, ok := expr.(*nodes.Spread); ok {
			value := e.Evaluate(spread.Node)
			if err, ok := value.(error); ok {
				return nil, err
			}
			items, ok := iterate(value)
			if !ok {
				return nil, NewTypeError(fmt.Sprintf("%s is not iterable", spread.Node.String()), spread.GetPosition(), spread)
			}
			out = append(out, items...)
			continue
		}
		value := e.Evaluate(expr)
		if err, ok := value.(error); ok {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// iterate lists the elements a spread expands to
func iterate(value interface{}) ([]interface{}, bool) {
	if s, ok := value.(string); ok {
		out := make([]interface{}, 0, len(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		return out, true
	}
	return toSlice(value)
}

func (e *Evaluator) visitObject(node *nodes.Object) interface{} {
	obj := NewObject()
	for _, prop := range node.Props {
		if prop.Spread != nil {
			value := e.Evaluate(prop.Spread)
			if err, ok := value.(error); ok {
				return err
			}
			if items, ok := iterate(value); ok {
				for i, item := range items {
					obj.Set(formatNumber(float64(i)), item)
				}
				continue
			}
			if src, ok := toObject(value); ok {
				for _, k := range src.Keys() {
					v, _ := src.Get(k)
					obj.Set(k, v)
				}
			}
			continue
		}

		key := prop.Key
		if prop.KeyExpr != nil {
			k := e.Evaluate(prop.KeyExpr)
			if err, ok := k.(error); ok {
				return err
			}
			key = ToString(k)
		}
		value := e.Evaluate(prop.Value)
		if err, ok := value.(error); ok {
			return err
		}
		obj.Set(key, value)
	}
	return obj
}

func (e *Evaluator) visitGetattr(node *nodes.Getattr) interface{} {
	obj := e.chainPart(node.Node)
	switch obj.(type) {
	case error, chainBroken:
		return obj
	}
	if node.Optional && isNullish(obj) {
		return chainBroken{}
	}

	value, err := e.getMember(obj, node.Attr, node)
	if err != nil {
		return err
	}
	return value
}

func (e *Evaluator) visitGetitem(node *nodes.Getitem) interface{} {
	obj := e.chainPart(node.Node)
	switch obj.(type) {
	case error, chainBroken:
		return obj
	}
	if node.Optional && isNullish(obj) {
		return chainBroken{}
	}

	index := e.Evaluate(node.Arg)
	if err, ok := index.(error); ok {
		return err
	}

	if isNumber(index) {
		if value, ok := indexValue(obj, ToNumber(index)); ok {
			return value
		}
	}
	value, err := e.getMember(obj, ToString(index), node)
	if err != nil {
		return err
	}
	return value
}

func (e *Evaluator) visitCall(node *nodes.Call) interface{} {
	callable := e.chainPart(node.Node)
	switch callable.(type) {
	case error, chainBroken:
		return callable
	}
	if node.Optional && isNullish(callable) {
		return chainBroken{}
	}

	args, err := e.evalList(node.Args)
	if err != nil {
		return err
	}

	result, err := e.callValue(callable, args, node.Node.String(), node)
	if err != nil {
		return err
	}
	return result
}

func (e *Evaluator) visitNew(node *nodes.New) interface{} {
	callee := e.Evaluate(node.Node)
	if err, ok := callee.(error); ok {
		return err
	}
	ctor, ok := callee.(*Constructor)
	if !ok {
		return NewTypeError(fmt.Sprintf("%s is not a constructor", node.Node.String()), node.GetPosition(), node)
	}

	args, err := e.evalList(node.Args)
	if err != nil {
		return err
	}
	result, err := ctor.construct(args...)
	if err != nil {
		return WrapError(err, node.GetPosition(), node)
	}
	return result
}

func (e *Evaluator) visitUnaryExpr(node *nodes.UnaryExpr) interface{} {
	if node.Operator == "typeof" {
		if name, ok := node.Node.(*nodes.Name); ok && !e.ctx.scope.Has(name.Name) {
			return "undefined"
		}
	}

	operand := e.Evaluate(node.Node)
	if err, ok := operand.(error); ok {
		return err
	}

	switch node.Operator {
	case "!":
		return !ToBoolean(operand)
	case "-":
		return -ToNumber(operand)
	case "+":
		return ToNumber(operand)
	case "typeof":
		return typeOf(operand)
	default:
		return NewError(ErrorTypeTemplate, fmt.Sprintf("unknown unary operator: %s", node.Operator), node.GetPosition(), node)
	}
}

func (e *Evaluator) visitBinExpr(node *nodes.BinExpr) interface{} {
	left := e.Evaluate(node.Left)
	if err, ok := left.(error); ok {
		return err
	}

	switch node.Operator {
	case "&&":
		if !ToBoolean(left) {
			return left
		}
		return e.Evaluate(node.Right)
	case "||":
		if ToBoolean(left) {
			return left
		}
		return e.Evaluate(node.Right)
	case "??":
		if !isNullish(left) {
			return left
		}
		return e.Evaluate(node.Right)
	}

	right := e.Evaluate(node.Right)
	if err, ok := right.(error); ok {
		return err
	}

	switch node.Operator {
	case "+":
		return add(left, right)
	case "-":
		return ToNumber(left) - ToNumber(right)
	case "*":
		return ToNumber(left) * ToNumber(right)
	case "/":
		return ToNumber(left) / ToNumber(right)
	case "%":
		return math.Mod(ToNumber(left), ToNumber(right))
	case "==":
		return looseEquals(left, right)
	case "!=":
		return !looseEquals(left, right)
	case "===":
		return strictEquals(left, right)
	case "!==":
		return !strictEquals(left, right)
	case "<", ">", "<=", ">=":
		return compareValues(node.Operator, left, right)
	default:
		return NewError(ErrorTypeTemplate, fmt.Sprintf("unknown binary operator: %s", node.Operator), node.GetPosition(), node)
	}
}

func (e *Evaluator) visitCondExpr(node *nodes.CondExpr) interface{} {
	test := e.Evaluate(node.Test)
	if err, ok := test.(error); ok {
		return err
	}
	if ToBoolean(test) {
		return e.Evaluate(node.Expr1)
	}
	return e.Evaluate(node.Expr2)
}

// add implements `+`: string concatenation when either side is a string or
// a non-primitive, numeric addition otherwise
func add(left, right interface{}) interface{} {
	if isPrimitive(left) && isPrimitive(right) {
		_, ls := left.(string)
		_, rs := right.(string)
		if !ls && !rs {
			return ToNumber(left) + ToNumber(right)
		}
	}
	return ToString(left) + ToString(right)
}

func isPrimitive(value interface{}) bool {
	switch value.(type) {
	case nil, Undefined, bool, string:
		return true
	}
	return isNumber(value)
}

// callValue invokes any callable value
func (e *Evaluator) callValue(callable interface{}, args []interface{}, label string, node nodes.Node) (interface{}, error) {
	pos := node.GetPosition()
	if err := e.ctx.guard.check(pos, node); err != nil {
		return nil, err
	}

	switch fn := callable.(type) {
	case *Function:
		return fn.call(args, pos, node)
	case NativeFunc:
		leave, err := e.ctx.guard.enter(pos, node)
		if err != nil {
			return nil, err
		}
		defer leave()
		result, err := fn(args...)
		if err != nil {
			return nil, WrapError(err, pos, node)
		}
		return fromGo(result), nil
	case *Constructor:
		return nil, NewTypeError(fmt.Sprintf("class constructor %s cannot be invoked without 'new'", fn.Name), pos, node)
	}

	val := reflect.ValueOf(callable)
	if val.Kind() != reflect.Func {
		return nil, NewTypeError(fmt.Sprintf("%s is not a function", label), pos, node)
	}
	result, err := callReflect(val, args)
	if err != nil {
		return nil, WrapError(err, pos, node)
	}
	return result, nil
}

// nativeCallSite stands in for the call expression when Go code calls back
// into script functions
var nativeCallSite = nodes.NewName("<native>", 0, 0)

// Call invokes a callable value from Go code
func (e *Evaluator) Call(callable interface{}, args ...interface{}) (interface{}, error) {
	return e.callValue(callable, args, "callback", nativeCallSite)
}

// Call invokes the function with args
func (f *Function) Call(args ...interface{}) (interface{}, error) {
	return f.call(args, f.node.GetPosition(), f.node)
}

func (f *Function) call(args []interface{}, pos nodes.Position, node nodes.Node) (interface{}, error) {
	e := f.ev
	leave, err := e.ctx.guard.enter(pos, node)
	if err != nil {
		return nil, err
	}
	defer leave()

	scope := f.scope.newFunctionScope()
	for i, param := range f.node.Params {
		if i < len(args) {
			scope.Set(param, args[i])
		} else {
			scope.Set(param, undefinedValue)
		}
	}

	result := e.withScope(scope, func() interface{} {
		if f.node.Body == nil {
			return e.Evaluate(f.node.Expr)
		}
		return e.execStatements(f.node.Body)
	})

	switch r := result.(type) {
	case error:
		return nil, r
	case returnSignal:
		return r.value, nil
	case nil:
		if f.node.Body != nil {
			return undefinedValue, nil
		}
	}
	return result, nil
}

// callReflect calls an arbitrary Go function, converting arguments to the
// parameter types. A trailing error result is returned as the call's error.
func callReflect(fn reflect.Value, args []interface{}) (interface{}, error) {
	fnType := fn.Type()
	numIn := fnType.NumIn()
	variadic := fnType.IsVariadic()

	fixed := numIn
	if variadic {
		fixed--
	}
	if !variadic && len(args) > numIn {
		args = args[:numIn]
	}

	callArgs := make([]reflect.Value, 0, numIn)
	for i := 0; i < fixed; i++ {
		var arg interface{} = undefinedValue
		if i < len(args) {
			arg = args[i]
		}
		v, err := convertArg(arg, fnType.In(i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		callArgs = append(callArgs, v)
	}
	if variadic {
		elem := fnType.In(numIn - 1).Elem()
		for i := fixed; i < len(args); i++ {
			v, err := convertArg(args[i], elem)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			callArgs = append(callArgs, v)
		}
	}

	results := fn.Call(callArgs)
	switch len(results) {
	case 0:
		return undefinedValue, nil
	case 1:
		return fromGo(results[0].Interface()), nil
	}

	last := results[len(results)-1]
	if last.Type().Implements(reflect.TypeOf((*error)(nil)).Elem()) && !last.IsNil() {
		return nil, last.Interface().(error)
	}
	return fromGo(results[0].Interface()), nil
}

func convertArg(arg interface{}, target reflect.Type) (reflect.Value, error) {
	if isNullish(arg) {
		return reflect.Zero(target), nil
	}
	if target.Kind() == reflect.Interface {
		v := reflect.ValueOf(arg)
		if v.Type().Implements(target) {
			return v, nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use %s as %s", typeOf(arg), target)
	}

	switch target.Kind() {
	case reflect.String:
		return reflect.ValueOf(ToString(arg)).Convert(target), nil
	case reflect.Bool:
		return reflect.ValueOf(ToBoolean(arg)).Convert(target), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return reflect.ValueOf(ToNumber(arg)).Convert(target), nil
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(target) {
		return v, nil
	}
	if target.Kind() == reflect.Slice {
		if items, ok := toSlice(arg); ok {
			out := reflect.MakeSlice(target, 0, len(items))
			for i, item := range items {
				ev, err := convertArg(item, target.Elem())
				if err != nil {
					return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
				}
				out = reflect.Append(out, ev)
			}
			return out, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", typeOf(arg), target)
}
