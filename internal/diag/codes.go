package diag

import "fmt"

// Code is a stable diagnostic code.
type Code string

const (
	// CodeMissingRegistration flags a named class absent from the module registration index
	CodeMissingRegistration Code = "0001"
	// CodeDuplicateName flags an identical identity re-declaration
	CodeDuplicateName Code = "0002"
	// CodeConflictingName flags a conflicting identity re-declaration
	CodeConflictingName Code = "0003"
	// CodeSuperInvocationWithArgs flags explicit arguments on a parent-call
	CodeSuperInvocationWithArgs Code = "1001"
	// CodeSuperNameMismatch flags a parent-call targeting a different method name
	CodeSuperNameMismatch Code = "1002"
	// CodeSuperWithoutParent flags a parent-call with no parent definition
	CodeSuperWithoutParent Code = "1003"
	// CodeMissingSuperCall flags an override that never calls its parent
	CodeMissingSuperCall Code = "1004"
	// CodeUnknownPoolKey flags an unsupported registry kind value
	CodeUnknownPoolKey Code = "1005"
	// CodeUnknownModel flags a model name absent from the registry
	CodeUnknownModel Code = "1006"
	// CodeUnknownAttribute flags an access to a member absent from a model
	CodeUnknownAttribute Code = "1007"
	// CodeChangeVariableModel flags a variable rebound to a different model
	CodeChangeVariableModel Code = "1008"
	// CodeWrapperTagNotFound flags a registered data file without the wrapper tag
	CodeWrapperTagNotFound Code = "5000"
	// CodeDataFileUnregistered flags a wrapper tag in an unregistered file
	CodeDataFileUnregistered Code = "5001"
	// CodeUnexpectedXMLTag flags a tag at an unexpected position
	CodeUnexpectedXMLTag Code = "5002"
	// CodeRecordMissingAttribute flags a record-like element missing an attribute
	CodeRecordMissingAttribute Code = "5003"
	// CodeRecordUnknownModel flags a record declaring an unresolvable model
	CodeRecordUnknownModel Code = "5004"
	// CodeRecordUnknownField flags a field element naming an unknown field
	CodeRecordUnknownField Code = "5005"
	// CodeRecordDuplicateId flags a duplicated record identifier
	CodeRecordDuplicateId Code = "5006"
)

func build(ctx Context, code Code, sev Severity, rng Range, message string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: sev,
		Range:    rng,
		Path:     ctx.Path,
		Module:   ctx.Module,
		Model:    ctx.Model,
		Class:    ctx.Class,
		Function: ctx.Function,
		Message:  message,
	}
}

// MissingRegistration reports a class with an identity attribute that is not
// registered in the module's registration entry point.
func MissingRegistration(ctx Context, rng Range) Diagnostic {
	return build(ctx, CodeMissingRegistration, Warning, rng,
		fmt.Sprintf("class %s (%q) is not registered in the module entry point", ctx.Class, ctx.Model))
}

// DuplicateName reports an identical identity re-declaration.
func DuplicateName(ctx Context, rng Range) Diagnostic {
	return build(ctx, CodeDuplicateName, Info, rng,
		fmt.Sprintf("class %s declares its identity more than once", ctx.Class))
}

// ConflictingName reports a conflicting identity re-declaration.
func ConflictingName(ctx Context, rng Range) Diagnostic {
	return build(ctx, CodeConflictingName, Error, rng,
		fmt.Sprintf("class %s declares conflicting identities", ctx.Class))
}

// SuperInvocationWithArgs reports explicit arguments on a parent-call.
func SuperInvocationWithArgs(ctx Context, rng Range) Diagnostic {
	return build(ctx, CodeSuperInvocationWithArgs, Info, rng,
		"'super' invocation does not need parameters")
}

// SuperNameMismatch reports a parent-call naming a different method.
func SuperNameMismatch(ctx Context, rng Range, expected string) Diagnostic {
	return build(ctx, CodeSuperNameMismatch, Error, rng,
		fmt.Sprintf("'super' call must use the same name (expected %q)", expected))
}

// SuperWithoutParent reports a parent-call with no parent definition in the chain.
func SuperWithoutParent(ctx Context, rng Range) Diagnostic {
	return build(ctx, CodeSuperWithoutParent, Error, rng,
		"no parent found for super call in the override chain")
}

// MissingSuperCall reports an override that shadows a parent definition
// without calling it.
func MissingSuperCall(ctx Context, rng Range) Diagnostic {
	return build(ctx, CodeMissingSuperCall, Error, rng, "missing super call")
}

// UnknownPoolKey reports an unsupported registry kind value.
func UnknownPoolKey(ctx Context, rng Range, possible string) Diagnostic {
	return build(ctx, CodeUnknownPoolKey, Error, rng,
		fmt.Sprintf("unknown kind for registry lookup, possible values are: %s", possible))
}

// UnknownModel reports a model name absent from the registry.
func UnknownModel(ctx Context, rng Range, name string) Diagnostic {
	return build(ctx, CodeUnknownModel, Error, rng,
		fmt.Sprintf("could not find %q in the registry", name))
}

// UnknownAttribute reports a member access absent from a model.
func UnknownAttribute(ctx Context, rng Range, model, attr string) Diagnostic {
	return build(ctx, CodeUnknownAttribute, Error, rng,
		fmt.Sprintf("unknown attribute %q on model %q", attr, model))
}

// ChangeVariableModel reports a variable rebound to a different model.
func ChangeVariableModel(ctx Context, rng Range, previous, next string) Diagnostic {
	return build(ctx, CodeChangeVariableModel, Warning, rng,
		fmt.Sprintf("switching models, from %q to %q", previous, next))
}

// WrapperTagNotFound reports a manifest-registered data file without the
// wrapper tag.
func WrapperTagNotFound(ctx Context) Diagnostic {
	return build(ctx, CodeWrapperTagNotFound, Error, LineRange(1),
		"wrapper tag not found, but file is listed in the module manifest")
}

// DataFileUnregistered reports a wrapper tag in a file the manifest does not list.
func DataFileUnregistered(ctx Context) Diagnostic {
	return build(ctx, CodeDataFileUnregistered, Warning, LineRange(1),
		"wrapper tag found, but file is not listed in the module manifest")
}

// UnexpectedXMLTag reports a tag at an unexpected position for the file kind.
func UnexpectedXMLTag(ctx Context, rng Range, tag string) Diagnostic {
	return build(ctx, CodeUnexpectedXMLTag, Error, rng,
		fmt.Sprintf("unexpected element <%s> here", tag))
}

// RecordMissingAttribute reports a record-like element missing a mandatory attribute.
func RecordMissingAttribute(ctx Context, rng Range, attr string) Diagnostic {
	return build(ctx, CodeRecordMissingAttribute, Error, rng,
		fmt.Sprintf("missing %q attribute", attr))
}

// RecordUnknownModel reports a record declaring a model absent from its context.
func RecordUnknownModel(ctx Context, rng Range, model string) Diagnostic {
	return build(ctx, CodeRecordUnknownModel, Error, rng,
		fmt.Sprintf("model %q does not exist in this context", model))
}

// RecordUnknownField reports a field element naming a field absent from the model.
func RecordUnknownField(ctx Context, rng Range, model, field string) Diagnostic {
	return build(ctx, CodeRecordUnknownField, Error, rng,
		fmt.Sprintf("unknown field %q on model %q", field, model))
}

// RecordDuplicateId reports a record identifier already used in the same file.
func RecordDuplicateId(ctx Context, rng Range, id string, firstLine int) Diagnostic {
	return build(ctx, CodeRecordDuplicateId, Error, rng,
		fmt.Sprintf("id %s is already defined line %d", id, firstLine))
}
