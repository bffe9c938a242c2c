package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"relint/internal/diag"
	"relint/internal/introspect"
	"relint/internal/parsing"
	"relint/internal/registry"
)

// exprType infers the model binding of an expression, emitting diagnostics
// for the attribute accesses and registry lookups it passes through. The
// traversal is post-order: an expression's binding is derived from the
// bindings of its parts.
func (a *Source) exprType(node *sitter.Node) (binding, error) {
	if node == nil || a.found {
		return binding{}, nil
	}
	switch node.Type() {
	case "identifier":
		env := a.currentEnv()
		if env == nil {
			return binding{}, nil
		}
		return env.lookup(a.text(node)), nil
	case "attribute":
		return a.attrType(node)
	case "call":
		return a.callType(node)
	case "subscript":
		return a.subscriptType(node)
	case "parenthesized_expression", "await":
		return a.exprType(node.NamedChild(0))
	case "lambda":
		// lambda bodies have their own scope and are not analyzed
		return binding{}, nil
	case "list_comprehension", "set_comprehension", "generator_expression":
		return a.comprehensionType(node)
	case "dictionary_comprehension":
		_, err := a.comprehensionType(node)
		return binding{}, err
	case "string", "integer", "float", "true", "false", "none":
		return binding{}, nil
	case "conditional_expression", "binary_operator", "boolean_operator",
		"comparison_operator", "not_operator", "unary_operator",
		"tuple", "list", "set", "dictionary", "pair", "expression_list",
		"keyword_argument", "list_splat", "dictionary_splat":
		return binding{}, a.evalChildren(node)
	default:
		return binding{}, a.evalChildren(node)
	}
}

// attrType checks the member access and propagates the binding through
// relation fields and wizard states. The attribute node under the completion
// cursor captures its receiver model and stops the walk.
func (a *Source) attrType(node *sitter.Node) (binding, error) {
	obj := node.ChildByFieldName("object")
	attrNode := node.ChildByFieldName("attribute")
	if obj == nil || attrNode == nil {
		return binding{}, nil
	}
	receiver, err := a.exprType(obj)
	if err != nil {
		return binding{}, err
	}
	if a.found {
		return binding{}, nil
	}
	if a.atCursor(node) {
		if !receiver.seq {
			a.captured = receiver.model
		}
		a.found = true
		return binding{}, nil
	}
	if !receiver.known() || receiver.seq {
		return binding{}, nil
	}
	attr := a.text(attrNode)
	if !receiver.model.HasMember(attr) {
		a.add(diag.UnknownAttribute(a.ctx(), nodeRange(attrNode), receiver.model.Name, attr))
		return binding{}, nil
	}
	return a.memberBinding(receiver, attr)
}

// memberBinding resolves the binding an attribute access produces: relation
// fields bind to their target, wizard states to their relation model.
func (a *Source) memberBinding(receiver binding, attr string) (binding, error) {
	pool := a.pool()
	if pool == nil {
		return binding{}, nil
	}
	var target string
	var seq bool
	if receiver.model.Kind == introspect.KindModel {
		field, ok := receiver.model.Fields[attr]
		if !ok || field.Relation == registry.RelNone || field.Target == "" {
			return binding{}, nil
		}
		target = field.Target
		seq = field.Relation == registry.RelToMany
	} else {
		rel, ok := receiver.model.States[attr]
		if !ok || rel == "" {
			return binding{}, nil
		}
		target = rel
	}
	model, err := pool.GetEntity(target)
	if err != nil {
		if relerrUnknownModel(err) {
			return binding{}, nil
		}
		return binding{}, err
	}
	return binding{model: model, seq: seq}, nil
}

// subscriptType indexes into a sequence binding: an index produces a single
// record, a slice keeps the sequence.
func (a *Source) subscriptType(node *sitter.Node) (binding, error) {
	value := node.ChildByFieldName("value")
	sub := node.ChildByFieldName("subscript")
	vb, err := a.exprType(value)
	if err != nil {
		return binding{}, err
	}
	if sub != nil {
		if _, err := a.exprType(sub); err != nil {
			return binding{}, err
		}
	}
	if !vb.seq || !vb.known() {
		return binding{}, nil
	}
	if sub != nil && sub.Type() == "slice" {
		return sequence(vb.model), nil
	}
	return single(vb.model), nil
}

// callType handles the three calls the inference understands: registry
// lookups, search/browse class methods, and record constructors. Everything
// else only has its arguments evaluated.
func (a *Source) callType(node *sitter.Node) (binding, error) {
	if b, matched, err := a.registryLookup(node); matched || err != nil {
		return b, err
	}
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")
	if fn == nil {
		return binding{}, nil
	}

	if fn.Type() == "attribute" {
		obj := fn.ChildByFieldName("object")
		attrNode := fn.ChildByFieldName("attribute")
		if obj == nil || attrNode == nil {
			return binding{}, nil
		}
		receiver, err := a.exprType(obj)
		if err != nil {
			return binding{}, err
		}
		if a.found {
			return binding{}, nil
		}
		if a.atCursor(fn) {
			if !receiver.seq {
				a.captured = receiver.model
			}
			a.found = true
			return binding{}, nil
		}
		if err := a.evalArgs(args); err != nil {
			return binding{}, err
		}
		if !receiver.known() || receiver.seq {
			return binding{}, nil
		}
		attr := a.text(attrNode)
		if !receiver.model.HasMember(attr) {
			a.add(diag.UnknownAttribute(a.ctx(), nodeRange(attrNode), receiver.model.Name, attr))
			return binding{}, nil
		}
		if attr == "search" || attr == "browse" {
			return sequence(receiver.model), nil
		}
		return binding{}, nil
	}

	fb, err := a.exprType(fn)
	if err != nil {
		return binding{}, err
	}
	if err := a.evalArgs(args); err != nil {
		return binding{}, err
	}
	if fb.known() && !fb.seq {
		// calling a class handle constructs an instance
		return single(fb.model), nil
	}
	return binding{}, nil
}

func (a *Source) evalArgs(args *sitter.Node) error {
	if args == nil {
		return nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "keyword_argument" {
			if _, err := a.exprType(arg.ChildByFieldName("value")); err != nil {
				return err
			}
			continue
		}
		if _, err := a.exprType(arg); err != nil {
			return err
		}
	}
	return nil
}

// registryLookup matches `Pool().get("name"[, "kind"])`, also through a
// tracked registry variable, and binds the looked-up model.
func (a *Source) registryLookup(node *sitter.Node) (binding, bool, error) {
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return binding{}, false, nil
	}
	attrNode := fn.ChildByFieldName("attribute")
	obj := fn.ChildByFieldName("object")
	if attrNode == nil || obj == nil || a.text(attrNode) != "get" {
		return binding{}, false, nil
	}
	if !a.isRegistryHandle(obj) {
		return binding{}, false, nil
	}
	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return binding{}, false, nil
	}
	nameArg := args.NamedChild(0)
	if nameArg.Type() != "string" {
		return binding{}, false, nil
	}

	pool := a.pool()
	if pool == nil {
		return binding{}, true, nil
	}
	kind := introspect.KindModel
	if args.NamedChildCount() > 1 {
		kindArg := args.NamedChild(1)
		if kindArg.Type() == "string" {
			value := parsing.StringLiteral(kindArg, a.src())
			if !introspect.ValidKind(value) {
				a.add(diag.UnknownPoolKey(a.ctx(), nodeRange(kindArg), pool.SupportedKinds()))
				return binding{}, true, nil
			}
			kind = introspect.Kind(value)
		}
	}
	name := parsing.StringLiteral(nameArg, a.src())
	model, err := pool.Get(name, kind)
	if err != nil {
		if relerrUnknownModel(err) {
			a.add(diag.UnknownModel(a.ctx(), nodeRange(nameArg), name))
			return binding{}, true, nil
		}
		return binding{}, true, err
	}
	return single(model), true, nil
}

func (a *Source) isRegistryHandle(node *sitter.Node) bool {
	if isPoolConstructor(node, a.src()) {
		return true
	}
	if node.Type() != "identifier" {
		return false
	}
	env := a.currentEnv()
	if env == nil {
		return false
	}
	_, ok := env.poolVars[a.text(node)]
	return ok
}

// comprehensionType scopes the loop bindings to the comprehension and infers
// the element type of the produced sequence from its body.
func (a *Source) comprehensionType(node *sitter.Node) (binding, error) {
	env := a.currentEnv()
	var saved snapshot
	var bound []string
	if env != nil {
		bound = comprehensionNames(node, a.src())
		saved = env.save(bound)
		defer saved.restore()
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		clause := node.NamedChild(i)
		switch clause.Type() {
		case "for_in_clause":
			right := clause.ChildByFieldName("right")
			left := clause.ChildByFieldName("left")
			rb, err := a.exprType(right)
			if err != nil {
				return binding{}, err
			}
			if env != nil && left != nil {
				switch left.Type() {
				case "identifier":
					if rb.seq && rb.known() {
						env.bind(a.text(left), single(rb.model))
					} else {
						env.clear(a.text(left))
					}
				case "pattern_list", "tuple":
					a.bindTargets(left, rb)
				}
			}
		case "if_clause":
			if _, err := a.exprType(clause.NamedChild(0)); err != nil {
				return binding{}, err
			}
		}
	}
	body := node.ChildByFieldName("body")
	bb, err := a.exprType(body)
	if err != nil {
		return binding{}, err
	}
	if bb.known() && !bb.seq {
		return sequence(bb.model), nil
	}
	return binding{}, nil
}

// comprehensionNames collects the identifiers bound by the for clauses.
func comprehensionNames(node *sitter.Node, source []byte) []string {
	var names []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		clause := node.NamedChild(i)
		if clause.Type() != "for_in_clause" {
			continue
		}
		left := clause.ChildByFieldName("left")
		if left == nil {
			continue
		}
		switch left.Type() {
		case "identifier":
			names = append(names, left.Content(source))
		case "pattern_list", "tuple":
			for j := 0; j < int(left.NamedChildCount()); j++ {
				if elem := left.NamedChild(j); elem.Type() == "identifier" {
					names = append(names, elem.Content(source))
				}
			}
		}
	}
	return names
}

// atCursor reports whether the completion cursor falls inside the node span.
// Spans may cross lines: a parenthesized attribute chain wraps, and the
// access under the cursor is still the one to capture.
func (a *Source) atCursor(node *sitter.Node) bool {
	if a.cursor == nil {
		return false
	}
	start, end := node.StartPoint(), node.EndPoint()
	startLine, endLine := int(start.Row)+1, int(end.Row)+1
	if a.cursor.line < startLine || a.cursor.line > endLine {
		return false
	}
	if a.cursor.line == startLine && a.cursor.col < int(start.Column) {
		return false
	}
	if a.cursor.line == endLine && a.cursor.col > int(end.Column) {
		return false
	}
	return true
}
