package analyzer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"relint/internal/diag"
	"relint/internal/parsing"
	"relint/internal/registry"
)

// parentPrefix marks a dependency path segment traversing a to-one relation
// towards the owning record.
const parentPrefix = "_parent_"

// checkDepends validates fields.depends decorators: every positional entry
// is a dependency path on the enclosing model, every methods= entry an
// accessible member.
func (a *Source) checkDepends(decorators []*sitter.Node) error {
	if a.class == nil || a.class.model == nil {
		return nil
	}
	for _, decorator := range decorators {
		call := decorator.NamedChild(0)
		if call == nil || call.Type() != "call" || !a.isDependsDecorator(call) {
			continue
		}
		args := call.ChildByFieldName("arguments")
		if args == nil {
			continue
		}
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			switch arg.Type() {
			case "string":
				if err := a.checkDependsPath(arg); err != nil {
					return err
				}
			case "keyword_argument":
				a.checkDependsKeyword(arg)
			}
		}
	}
	return nil
}

func (a *Source) isDependsDecorator(call *sitter.Node) bool {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return false
	}
	obj := fn.ChildByFieldName("object")
	attr := fn.ChildByFieldName("attribute")
	return obj != nil && attr != nil &&
		obj.Type() == "identifier" && a.text(obj) == "fields" &&
		a.text(attr) == "depends"
}

// checkDependsPath walks a dot-separated dependency path. Every segment
// except the last must be a parent-marked to-one relation; the last must be
// an accessible member of the model it lands on.
func (a *Source) checkDependsPath(strNode *sitter.Node) error {
	path := parsing.StringLiteral(strNode, a.src())
	if path == "" {
		return nil
	}
	current := a.class.model
	rng := nodeRange(strNode)
	segments := strings.Split(path, ".")
	for _, segment := range segments[:len(segments)-1] {
		if !strings.HasPrefix(segment, parentPrefix) {
			a.add(diag.UnknownAttribute(a.ctx(), rng, current.Name, segment))
			return nil
		}
		fieldName := strings.TrimPrefix(segment, parentPrefix)
		field, ok := current.Fields[fieldName]
		if !ok || field.Relation != registry.RelToOne {
			a.add(diag.UnknownAttribute(a.ctx(), rng, current.Name, fieldName))
			return nil
		}
		pool := a.pool()
		if pool == nil {
			return nil
		}
		next, err := pool.GetEntity(field.Target)
		if err != nil {
			if relerrUnknownModel(err) {
				a.add(diag.UnknownModel(a.ctx(), rng, field.Target))
				return nil
			}
			return err
		}
		current = next
	}
	if last := segments[len(segments)-1]; !current.HasMember(last) {
		a.add(diag.UnknownAttribute(a.ctx(), rng, current.Name, last))
	}
	return nil
}

// checkDependsKeyword validates methods= entries; any other keyword is
// itself reported as an unknown attribute of the model.
func (a *Source) checkDependsKeyword(arg *sitter.Node) {
	name := arg.ChildByFieldName("name")
	value := arg.ChildByFieldName("value")
	if name == nil || value == nil {
		return
	}
	model := a.class.model
	if a.text(name) != "methods" {
		a.add(diag.UnknownAttribute(a.ctx(), nodeRange(name), model.Name, a.text(name)))
		return
	}
	if value.Type() != "list" && value.Type() != "tuple" {
		return
	}
	for i := 0; i < int(value.NamedChildCount()); i++ {
		elem := value.NamedChild(i)
		if elem.Type() != "string" {
			continue
		}
		method := parsing.StringLiteral(elem, a.src())
		if !model.HasMember(method) {
			a.add(diag.UnknownAttribute(a.ctx(), nodeRange(elem), model.Name, method))
		}
	}
}
