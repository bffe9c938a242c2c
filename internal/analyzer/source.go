package analyzer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"relint/internal/diag"
	"relint/internal/introspect"
	"relint/internal/modindex"
	"relint/internal/parsing"
	"relint/internal/registry"
)

// Source walks one parsed source file and collects diagnostics. A fresh
// walker is built per analysis; nothing is shared across files except the
// registry manager.
type Source struct {
	file   *parsing.File
	mgr    *registry.Manager
	index  *modindex.Index
	loader FileLoader

	// pruning: at most one of ranges / cursor is set
	ranges []diag.Range
	cursor *cursorPos

	class *classCtx
	fn    *fnCtx

	modulePool      *registry.Pool
	modulePoolReady bool

	captured *registry.Model
	found    bool
	diags    []diag.Diagnostic
}

type cursorPos struct {
	line, col int
}

type classCtx struct {
	name      string
	modelName string
	kind      introspect.Kind
	pool      *registry.Pool
	model     *registry.Model
}

type fnCtx struct {
	name string
	env  *env
}

// NewSource builds a walker for file. index may be nil when the file does
// not belong to a module; most checks then degrade to silence.
func NewSource(file *parsing.File, mgr *registry.Manager, index *modindex.Index, loader FileLoader) *Source {
	return &Source{file: file, mgr: mgr, index: index, loader: loader}
}

// Analyze walks the file and returns its diagnostics, sorted. When ranges is
// non-empty, classes and functions not overlapping any range are skipped.
func (a *Source) Analyze(ranges []diag.Range) ([]diag.Diagnostic, error) {
	a.ranges = ranges
	if err := a.run(); err != nil {
		return nil, err
	}
	diag.Sort(a.diags)
	return a.diags, nil
}

func (a *Source) run() error {
	root := a.file.Root()
	if root == nil {
		return nil
	}
	return a.walkBlock(root)
}

func (a *Source) src() []byte { return a.file.Data }

func (a *Source) text(node *sitter.Node) string {
	return node.Content(a.src())
}

// mustAnalyze prunes definitions outside the requested ranges, or away from
// the completion cursor.
func (a *Source) mustAnalyze(node *sitter.Node) bool {
	if a.cursor != nil {
		start := int(node.StartPoint().Row) + 1
		end := int(node.EndPoint().Row) + 1
		return start <= a.cursor.line && a.cursor.line <= end
	}
	if len(a.ranges) == 0 {
		return true
	}
	r := nodeRange(node)
	for _, want := range a.ranges {
		if r.Overlaps(want) {
			return true
		}
	}
	return false
}

func (a *Source) ctx() diag.Context {
	c := diag.Context{Path: a.file.Path, Module: a.file.ModuleName}
	if a.class != nil {
		c.Model = a.class.modelName
		c.Class = a.class.name
	}
	if a.fn != nil {
		c.Function = a.fn.name
	}
	return c
}

// add appends a diagnostic unless a suppression marker covers its line.
func (a *Source) add(d diag.Diagnostic) {
	if diag.Suppressed(a.file.Lines, d.Code, d.Range.Start.Line) {
		return
	}
	a.diags = append(a.diags, d)
}

// pool returns the schema view active at the current position: the
// registration pool of the enclosing class, or the module's own pool.
func (a *Source) pool() *registry.Pool {
	if a.class != nil && a.class.pool != nil {
		return a.class.pool
	}
	return a.modulePool
}

// modPool resolves the module's own-dependency pool once. A nil pool (file
// outside any module) is not an error; registry failures are.
func (a *Source) modPool() (*registry.Pool, error) {
	if a.modulePoolReady {
		return a.modulePool, nil
	}
	a.modulePoolReady = true
	if a.index == nil {
		return nil, nil
	}
	pool, err := a.mgr.Pool(a.index.Name())
	if err != nil {
		return nil, err
	}
	a.modulePool = pool
	return pool, nil
}

// analyzeClass resolves the class identity against the registration index
// and the registry, reports registration problems, then walks the methods
// with the resolved schema in scope.
func (a *Source) analyzeClass(node *sitter.Node) error {
	if !a.mustAnalyze(node) {
		return nil
	}
	prevClass, prevFn := a.class, a.fn
	a.class, a.fn = nil, nil
	defer func() { a.class, a.fn = prevClass, prevFn }()

	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return nil
	}
	cls := &classCtx{name: a.text(nameNode)}
	a.class = cls

	if err := a.resolveIdentity(cls, a.identityAssignments(body)); err != nil {
		return err
	}
	return a.walkClassBody(body)
}

// identityAssignments returns the string value nodes of every
// `__name__ = "..."` assignment directly in the class body, in order.
func (a *Source) identityAssignments(body *sitter.Node) []*sitter.Node {
	var nodes []*sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() != "expression_statement" {
			continue
		}
		assign := stmt.NamedChild(0)
		if assign == nil || assign.Type() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		right := assign.ChildByFieldName("right")
		if left == nil || right == nil {
			continue
		}
		if left.Type() != "identifier" || right.Type() != "string" {
			continue
		}
		if a.text(left) != "__name__" {
			continue
		}
		nodes = append(nodes, right)
	}
	return nodes
}

func (a *Source) resolveIdentity(cls *classCtx, idValues []*sitter.Node) error {
	if len(idValues) == 0 || a.index == nil {
		pool, err := a.modPool()
		if err != nil {
			return err
		}
		cls.pool = pool
		return nil
	}

	first := idValues[0]
	cls.modelName = parsing.StringLiteral(first, a.src())
	for _, extra := range idValues[1:] {
		name := parsing.StringLiteral(extra, a.src())
		if name == cls.modelName {
			a.add(diag.DuplicateName(a.ctx(), nodeRange(extra)))
		} else {
			a.add(diag.ConflictingName(a.ctx(), nodeRange(extra)))
		}
	}

	reg, registered := a.index.Registration(a.file.Stem(), cls.name)
	if !registered {
		a.add(diag.MissingRegistration(a.ctx(), nodeRange(first)))
		pool, err := a.modPool()
		if err != nil {
			return err
		}
		cls.pool = pool
		return nil
	}

	cls.kind = reg.Kind
	pool, err := a.mgr.Pool(reg.Deps...)
	if err != nil {
		return err
	}
	cls.pool = pool
	model, err := pool.Get(cls.modelName, reg.Kind)
	if err != nil {
		if relerrUnknownModel(err) {
			a.add(diag.UnknownModel(a.ctx(), nodeRange(first), cls.modelName))
			return nil
		}
		return err
	}
	cls.model = model
	return nil
}

func (a *Source) walkClassBody(body *sitter.Node) error {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if a.found {
			return nil
		}
		stmt := body.NamedChild(i)
		switch stmt.Type() {
		case "function_definition":
			if err := a.analyzeFunction(stmt, nil); err != nil {
				return err
			}
		case "decorated_definition":
			if err := a.analyzeDecorated(stmt); err != nil {
				return err
			}
		case "class_definition":
			if err := a.analyzeClass(stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Source) analyzeDecorated(node *sitter.Node) error {
	def := node.ChildByFieldName("definition")
	if def == nil {
		return nil
	}
	var decorators []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, child)
		}
	}
	switch def.Type() {
	case "function_definition":
		return a.analyzeFunction(def, decorators)
	case "class_definition":
		return a.analyzeClass(def)
	}
	return nil
}

// analyzeFunction opens a fresh binding environment, runs the entry checks
// (annotated parameters, dependency declarations, super-call discipline) and
// then walks the body statements in order.
func (a *Source) analyzeFunction(node *sitter.Node, decorators []*sitter.Node) error {
	if !a.mustAnalyze(node) {
		return nil
	}
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return nil
	}
	if a.class == nil {
		if _, err := a.modPool(); err != nil {
			return err
		}
	}

	prev := a.fn
	a.fn = &fnCtx{name: a.text(nameNode), env: newEnv()}
	defer func() { a.fn = prev }()

	if a.class != nil && a.class.model != nil {
		a.fn.env.bind("self", single(a.class.model))
		a.fn.env.bind("cls", single(a.class.model))
	}
	if err := a.bindParameters(node); err != nil {
		return err
	}
	if err := a.checkDepends(decorators); err != nil {
		return err
	}
	if err := a.checkSuper(nameNode, body); err != nil {
		return err
	}
	return a.walkBlock(body)
}

// bindParameters seeds the environment from record-annotated parameters.
func (a *Source) bindParameters(fnNode *sitter.Node) error {
	params := fnNode.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		if param.Type() != "typed_parameter" && param.Type() != "typed_default_parameter" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		nameNode := param.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = param.NamedChild(0)
		}
		if nameNode == nil || nameNode.Type() != "identifier" {
			continue
		}
		b, ok, err := a.recordAnnotation(typeNode.NamedChild(0))
		if err != nil {
			return err
		}
		if ok && b.known() {
			a.fn.env.bind(a.text(nameNode), b)
		}
	}
	return nil
}

// recordAnnotation interprets a Record / Records[...] type annotation. The
// boolean reports whether the expression was a record annotation at all.
func (a *Source) recordAnnotation(expr *sitter.Node) (binding, bool, error) {
	if expr == nil {
		return binding{}, false, nil
	}
	switch expr.Type() {
	case "identifier":
		switch a.text(expr) {
		case "Record":
			return single(a.classModel()), true, nil
		case "Records":
			return sequence(a.classModel()), true, nil
		}
	case "subscript":
		value := expr.ChildByFieldName("value")
		sub := expr.ChildByFieldName("subscript")
		if value == nil || sub == nil || value.Type() != "identifier" {
			return binding{}, false, nil
		}
		var seq bool
		switch a.text(value) {
		case "Record":
		case "Records":
			seq = true
		default:
			return binding{}, false, nil
		}
		if sub.Type() != "string" {
			return binding{model: nil, seq: seq}, true, nil
		}
		pool := a.pool()
		if pool == nil {
			return binding{model: nil, seq: seq}, true, nil
		}
		name := parsing.StringLiteral(sub, a.src())
		model, err := pool.GetEntity(name)
		if err != nil {
			if relerrUnknownModel(err) {
				a.add(diag.UnknownModel(a.ctx(), nodeRange(sub), name))
				return binding{model: nil, seq: seq}, true, nil
			}
			return binding{}, false, err
		}
		return binding{model: model, seq: seq}, true, nil
	}
	return binding{}, false, nil
}

func (a *Source) classModel() *registry.Model {
	if a.class == nil {
		return nil
	}
	return a.class.model
}

// walkBlock dispatches the statements of a block in source order, so later
// statements see the bindings earlier ones established.
func (a *Source) walkBlock(block *sitter.Node) error {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		if a.found {
			return nil
		}
		if err := a.walkStatement(block.NamedChild(i)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Source) walkStatement(stmt *sitter.Node) error {
	switch stmt.Type() {
	case "expression_statement":
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			expr := stmt.NamedChild(i)
			if expr.Type() == "assignment" {
				if err := a.handleAssignment(expr); err != nil {
					return err
				}
				continue
			}
			if expr.Type() == "augmented_assignment" {
				if err := a.evalChildren(expr); err != nil {
					return err
				}
				continue
			}
			if _, err := a.exprType(expr); err != nil {
				return err
			}
		}
		return nil
	case "if_statement":
		if _, err := a.exprType(stmt.ChildByFieldName("condition")); err != nil {
			return err
		}
		if body := stmt.ChildByFieldName("consequence"); body != nil {
			if err := a.walkBlock(body); err != nil {
				return err
			}
		}
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			clause := stmt.NamedChild(i)
			switch clause.Type() {
			case "elif_clause":
				if _, err := a.exprType(clause.ChildByFieldName("condition")); err != nil {
					return err
				}
				if body := clause.ChildByFieldName("consequence"); body != nil {
					if err := a.walkBlock(body); err != nil {
						return err
					}
				}
			case "else_clause":
				if body := clause.ChildByFieldName("body"); body != nil {
					if err := a.walkBlock(body); err != nil {
						return err
					}
				}
			}
		}
		return nil
	case "for_statement":
		return a.handleFor(stmt)
	case "while_statement":
		if _, err := a.exprType(stmt.ChildByFieldName("condition")); err != nil {
			return err
		}
		return a.walkNestedBlocks(stmt)
	case "try_statement", "with_statement":
		if stmt.Type() == "with_statement" {
			if err := a.evalWithItems(stmt); err != nil {
				return err
			}
		}
		return a.walkNestedBlocks(stmt)
	case "return_statement", "delete_statement", "assert_statement", "raise_statement":
		return a.evalChildren(stmt)
	case "function_definition":
		return a.analyzeFunction(stmt, nil)
	case "decorated_definition":
		return a.analyzeDecorated(stmt)
	case "class_definition":
		return a.analyzeClass(stmt)
	default:
		return nil
	}
}

// walkNestedBlocks walks every block nested directly under stmt or under its
// clauses (except/finally/else), which covers try, with and while trailers.
func (a *Source) walkNestedBlocks(stmt *sitter.Node) error {
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		switch child.Type() {
		case "block":
			if err := a.walkBlock(child); err != nil {
				return err
			}
		case "except_clause", "finally_clause", "else_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				inner := child.NamedChild(j)
				if inner.Type() == "block" {
					if err := a.walkBlock(inner); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (a *Source) evalWithItems(stmt *sitter.Node) error {
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if child.Type() != "with_clause" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			item := child.NamedChild(j)
			if item.Type() != "with_item" {
				continue
			}
			if _, err := a.exprType(item.ChildByFieldName("value")); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Source) evalChildren(node *sitter.Node) error {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if _, err := a.exprType(node.NamedChild(i)); err != nil {
			return err
		}
	}
	return nil
}

// handleAssignment evaluates the right-hand side, reconciles it with an
// optional annotation, and rebinds the target names. Rebinding a name to a
// different model reports ChangeVariableModel once.
func (a *Source) handleAssignment(node *sitter.Node) error {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	typeNode := node.ChildByFieldName("type")
	if left == nil {
		return nil
	}
	env := a.currentEnv()
	if env == nil {
		// assignment outside any function: evaluate for member checks only
		if right != nil {
			if _, err := a.exprType(right); err != nil {
				return err
			}
		}
		return nil
	}

	// registry handles are tracked by name, not by type
	if left.Type() == "identifier" && right != nil && isPoolConstructor(right, a.src()) {
		env.clear(a.text(left))
		env.poolVars[a.text(left)] = struct{}{}
		return nil
	}

	var annotated binding
	var hasAnn bool
	if typeNode != nil {
		b, ok, err := a.recordAnnotation(typeNode.NamedChild(0))
		if err != nil {
			return err
		}
		annotated, hasAnn = b, ok
	}
	var value binding
	if right != nil {
		b, err := a.exprType(right)
		if err != nil {
			return err
		}
		value = b
	}

	switch left.Type() {
	case "identifier":
		name := a.text(left)
		warned := false
		effective := value
		if !effective.known() && hasAnn {
			effective = annotated
		}
		if hasAnn && annotated.known() && value.known() && annotated.model != value.model {
			a.add(diag.ChangeVariableModel(a.ctx(), nodeRange(left),
				annotated.model.Name, value.model.Name))
			warned = true
		}
		if effective.known() {
			prev := env.bind(name, effective)
			if !warned && prev != nil && prev != effective.model {
				a.add(diag.ChangeVariableModel(a.ctx(), nodeRange(left),
					prev.Name, effective.model.Name))
			}
		} else {
			env.clear(name)
		}
	case "pattern_list", "tuple":
		a.bindTargets(left, value)
	default:
		// attribute or subscript target: evaluate for member checks
		if _, err := a.exprType(left); err != nil {
			return err
		}
	}
	return nil
}

// bindTargets destructures a tuple target. A sequence value binds each name
// to a single element record; anything else clears them.
func (a *Source) bindTargets(target *sitter.Node, value binding) {
	env := a.currentEnv()
	if env == nil {
		return
	}
	for i := 0; i < int(target.NamedChildCount()); i++ {
		name := target.NamedChild(i)
		if name.Type() != "identifier" {
			continue
		}
		if value.seq && value.known() {
			env.bind(a.text(name), single(value.model))
		} else {
			env.clear(a.text(name))
		}
	}
}

func (a *Source) handleFor(node *sitter.Node) error {
	right := node.ChildByFieldName("right")
	left := node.ChildByFieldName("left")
	b, err := a.exprType(right)
	if err != nil {
		return err
	}
	if left != nil {
		switch left.Type() {
		case "identifier":
			env := a.currentEnv()
			if env != nil {
				if b.seq && b.known() {
					env.bind(a.text(left), single(b.model))
				} else {
					env.clear(a.text(left))
				}
			}
		case "pattern_list", "tuple":
			a.bindTargets(left, b)
		}
	}
	// the body block is covered by walkNestedBlocks, after bindings are set
	return a.walkNestedBlocks(node)
}

func (a *Source) currentEnv() *env {
	if a.fn == nil {
		return nil
	}
	return a.fn.env
}

// isPoolConstructor matches a bare `Pool()` call.
func isPoolConstructor(node *sitter.Node, source []byte) bool {
	if node.Type() != "call" {
		return false
	}
	fn := node.ChildByFieldName("function")
	return fn != nil && fn.Type() == "identifier" && fn.Content(source) == "Pool"
}
