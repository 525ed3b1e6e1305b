package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Primitive type keywords accepted in manifest `type` expressions.
var primitiveTypes = map[string]cty.Type{
	"string": cty.String,
	"number": cty.Number,
	"bool":   cty.Bool,
	"any":    cty.DynamicPseudoType,
}

// Collection constructors accepted in manifest `type` expressions.
var collectionTypes = map[string]func(cty.Type) cty.Type{
	"list": cty.List,
	"map":  cty.Map,
	"set":  cty.Set,
}

// typeExprToCtyType resolves a manifest type expression such as `string` or
// `list(number)` into a cty.Type. A nil expression means the manifest author
// opted out of type checking, which maps to the dynamic pseudo type.
func typeExprToCtyType(expr hcl.Expression) (cty.Type, error) {
	if expr == nil {
		return cty.DynamicPseudoType, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return cty.DynamicPseudoType, fmt.Errorf("type keyword must be a bare identifier")
		}
		name := v.Traversal.RootName()
		if t, ok := primitiveTypes[name]; ok {
			return t, nil
		}
		return cty.DynamicPseudoType, fmt.Errorf("unknown type keyword %q", name)

	case *hclsyntax.FunctionCallExpr:
		ctor, ok := collectionTypes[v.Name]
		if !ok {
			return cty.DynamicPseudoType, fmt.Errorf("unknown type constructor function %q", v.Name)
		}
		if len(v.Args) != 1 {
			return cty.DynamicPseudoType, fmt.Errorf("%s(...) requires exactly one element type, got %d", v.Name, len(v.Args))
		}
		elem, err := typeExprToCtyType(v.Args[0])
		if err != nil {
			return cty.DynamicPseudoType, err
		}
		if elem == cty.DynamicPseudoType {
			return cty.DynamicPseudoType, fmt.Errorf("collection types cannot contain type 'any'")
		}
		return ctor(elem), nil

	default:
		return cty.DynamicPseudoType, fmt.Errorf("unsupported type expression of kind %T", expr)
	}
}
