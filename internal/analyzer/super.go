package analyzer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"relint/internal/diag"
	"relint/internal/introspect"
)

// superCall is one `super().method(...)` invocation found in a function body.
type superCall struct {
	invocation *sitter.Node // the super() call node
	nameNode   *sitter.Node // the invoked method name
	hasArgs    bool         // super(...) received explicit arguments
}

// checkSuper validates the super-call discipline of one method: the local
// shape of each invocation, and its consistency with the override chain of
// the enclosing model.
func (a *Source) checkSuper(nameNode, body *sitter.Node) error {
	method := a.text(nameNode)
	calls := collectSuperCalls(body, a.src())
	for _, call := range calls {
		if call.hasArgs {
			a.add(diag.SuperInvocationWithArgs(a.ctx(), nodeRange(call.invocation)))
		}
		if a.text(call.nameNode) != method {
			a.add(diag.SuperNameMismatch(a.ctx(), nodeRange(call.nameNode), method))
		}
	}

	if a.class == nil || a.class.model == nil {
		return nil
	}
	chain, err := a.class.model.SuperChain(method)
	if err != nil {
		return err
	}

	// Walk the chain below this class. Without a super call, the first
	// parent that defines the method with a real body is being skipped;
	// with one, some parent must define it.
	identity := a.file.ImportPath + "." + a.class.name
	hasSuper := len(calls) > 0
	foundSelf := false
	foundParent := false
	for _, entry := range chain {
		if strings.Contains(entry.Class, identity) {
			foundSelf = true
			continue
		}
		if !foundSelf || !entry.Defines() {
			continue
		}
		if hasSuper {
			foundParent = true
			break
		}
		if !entry.NoBody && !a.parentSuppressed(entry) {
			a.add(diag.MissingSuperCall(a.ctx(), nodeRange(nameNode)))
		}
		break
	}
	if hasSuper && !foundParent {
		a.add(diag.SuperWithoutParent(a.ctx(), nodeRange(nameNode)))
	}
	return nil
}

// parentSuppressed honors a suppression marker placed on or above the parent
// definition being skipped. An unreadable parent suppresses rather than
// reporting against a definition that cannot be shown.
func (a *Source) parentSuppressed(entry introspect.ChainEntry) bool {
	if entry.Site == nil {
		return false
	}
	lines, ok := a.loader.RawLines(entry.Site.File)
	if !ok {
		return true
	}
	return diag.Suppressed(lines, diag.CodeMissingSuperCall, entry.Site.Line)
}

// collectSuperCalls walks a function body for super invocations, skipping
// nested functions, classes and lambdas, which have their own discipline.
func collectSuperCalls(body *sitter.Node, source []byte) []superCall {
	var calls []superCall
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		switch node.Type() {
		case "function_definition", "class_definition", "lambda":
			return
		case "call":
			if sc, ok := asSuperCall(node, source); ok {
				calls = append(calls, sc)
			}
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
		}
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		walk(body.NamedChild(i))
	}
	return calls
}

func asSuperCall(call *sitter.Node, source []byte) (superCall, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return superCall{}, false
	}
	obj := fn.ChildByFieldName("object")
	nameNode := fn.ChildByFieldName("attribute")
	if obj == nil || nameNode == nil || obj.Type() != "call" {
		return superCall{}, false
	}
	inner := obj.ChildByFieldName("function")
	if inner == nil || inner.Type() != "identifier" || inner.Content(source) != "super" {
		return superCall{}, false
	}
	return superCall{
		invocation: obj,
		nameNode:   nameNode,
		hasArgs:    namedArgCount(obj) > 0,
	}, true
}

func namedArgCount(call *sitter.Node) int {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return 0
	}
	return int(args.NamedChildCount())
}
