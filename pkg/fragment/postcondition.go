// SPDX-License-Identifier: MPL-2.0

package fragment

import (
	"fmt"
	"strings"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"

	"pysling/internal/issue"
)

const (
	// BaseClassName is the supertype name a postcondition fragment must
	// reference in its class declaration.
	BaseClassName = "PostconditionBase"

	// supportModule is the Python module that defines the base class and
	// the run_postcondition helper.
	supportModule = "postconditions"
)

// PostconditionFragment parses a fragment that declares a subclass of
// PostconditionBase, e.g.:
//
//	from pysling.postconditions import Postcondition as PostconditionBase
//
//	class Postcondition(PostconditionBase):
//	    def holds(self):
//	        ...
//
// The from-import line is deliberate boilerplate the user copies into every
// fragment: the declaration then documents its own superclass, and Imports
// does not leak the base class into the fragment's scope.
type PostconditionFragment struct {
	source string
	module *ast.Module
	class  *ast.ClassDef
}

var _ Parser = (*PostconditionFragment)(nil)

// NewPostconditionFragment parses and validates source. It fails when the
// source is not valid Python or does not declare a class whose supertype
// name references PostconditionBase. No side effects occur on failure.
func NewPostconditionFragment(source string) (*PostconditionFragment, error) {
	tree, err := parser.ParseString(source, py.ExecMode)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse fragment").
			WithSuggestion("Check the fragment is syntactically valid Python").
			Wrap(err).
			Build()
	}

	module, ok := tree.(*ast.Module)
	if !ok {
		return nil, issue.WrapWithOperation(
			fmt.Errorf("unexpected top-level node %T", tree), "parse fragment")
	}

	f := &PostconditionFragment{source: source, module: module}
	f.class = f.findClassDeclaration()
	if f.class == nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate fragment").
			WithSuggestion(fmt.Sprintf("Declare exactly one class with %s as its superclass", BaseClassName)).
			Wrap(ErrNoPostcondition).
			Build()
	}

	return f, nil
}

// findClassDeclaration walks the cached syntax tree in document order and
// returns the first class declaration whose supertype name references
// BaseClassName, or nil.
func (f *PostconditionFragment) findClassDeclaration() *ast.ClassDef {
	var found *ast.ClassDef
	ast.Walk(f.module, func(node ast.Ast) bool {
		if found != nil {
			return false
		}
		class, ok := node.(*ast.ClassDef)
		if !ok {
			return true
		}
		for _, base := range class.Bases {
			if supertypeName(base) != "" && strings.Contains(supertypeName(base), BaseClassName) {
				found = class
				return false
			}
		}
		return true
	})
	return found
}

// supertypeName extracts the referenced name from a base-class expression.
// Both bare names (PostconditionBase) and attribute references
// (postconditions.PostconditionBase) are recognized.
func supertypeName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Name:
		return string(e.Id)
	case *ast.Attribute:
		return string(e.Attr)
	default:
		return ""
	}
}

// ClassName returns the name of the declared postcondition class.
func (f *PostconditionFragment) ClassName() string {
	return string(f.class.Name)
}

// Source returns the raw fragment text.
func (f *PostconditionFragment) Source() string {
	return f.source
}

// Imports returns the import of the support module only. The base class is
// not imported into the fragment's scope on purpose; see the type comment.
func (f *PostconditionFragment) Imports() string {
	return fmt.Sprintf("\nfrom pysling import %s\n", supportModule)
}

// Declarations returns the entire user fragment, since the user is expected
// to write a full class declaration.
func (f *PostconditionFragment) Declarations() string {
	return f.source
}

// Initialize returns no setup code; postcondition fragments have none.
func (f *PostconditionFragment) Initialize() string {
	return ""
}

// ResultExpression instantiates the declared class with no arguments and
// runs it through the support module's helper.
func (f *PostconditionFragment) ResultExpression(checkMode bool) string {
	return fmt.Sprintf("%s.run_postcondition(%s(), check_mode=%s)",
		supportModule, f.ClassName(), pyBool(checkMode))
}
