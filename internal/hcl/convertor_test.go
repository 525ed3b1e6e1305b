package hcl

import (
	"context"
	"testing"

	hcllib "github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/seqci/internal/config"
)

func parseExpr(t *testing.T, src string) hcllib.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcllib.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return expr
}

func stringDef(name string) *config.InputDefinition {
	return &config.InputDefinition{Name: name, Type: cty.String}
}

func optionalStringDef(name, defaultVal string) *config.InputDefinition {
	d := cty.StringVal(defaultVal)
	return &config.InputDefinition{Name: name, Type: cty.String, Default: &d, Optional: true}
}

func TestDecodeBody_BindsProvidedArguments(t *testing.T) {
	type input struct {
		Action string   `hcl:"action"`
		Args   []string `hcl:"args"`
		Ncpus  int      `hcl:"ncpus"`
	}

	defs := map[string]*config.InputDefinition{
		"action": stringDef("action"),
		"args":   {Name: "args", Type: cty.List(cty.String)},
		"ncpus":  {Name: "ncpus", Type: cty.Number},
	}
	args := map[string]hcllib.Expression{
		"action": parseExpr(t, `"build"`),
		"args":   parseExpr(t, `["-v", "--fast"]`),
		"ncpus":  parseExpr(t, `4`),
	}

	var in input
	err := NewConverter().DecodeBody(context.Background(), &in, args, defs, nil)
	require.NoError(t, err)
	assert.Equal(t, "build", in.Action)
	assert.Equal(t, []string{"-v", "--fast"}, in.Args)
	assert.Equal(t, 4, in.Ncpus)
}

func TestDecodeBody_AppliesManifestDefault(t *testing.T) {
	type input struct {
		Tag string `hcl:"tag"`
	}
	defs := map[string]*config.InputDefinition{
		"tag": optionalStringDef("tag", "latest"),
	}

	var in input
	err := NewConverter().DecodeBody(context.Background(), &in, nil, defs, nil)
	require.NoError(t, err)
	assert.Equal(t, "latest", in.Tag)
}

func TestDecodeBody_MissingRequiredArgument(t *testing.T) {
	type input struct {
		Action string `hcl:"action"`
	}
	defs := map[string]*config.InputDefinition{"action": stringDef("action")}

	var in input
	err := NewConverter().DecodeBody(context.Background(), &in, nil, defs, nil)
	assert.ErrorContains(t, err, `required argument "action" was not provided`)
}

func TestDecodeBody_RejectsUndeclaredArgument(t *testing.T) {
	type input struct {
		Action string `hcl:"action"`
	}
	defs := map[string]*config.InputDefinition{"action": stringDef("action")}
	args := map[string]hcllib.Expression{
		"action":  parseExpr(t, `"build"`),
		"mystery": parseExpr(t, `"boo"`),
	}

	var in input
	err := NewConverter().DecodeBody(context.Background(), &in, args, defs, nil)
	assert.ErrorContains(t, err, `unsupported argument "mystery"`)
}

func TestDecodeBody_EvaluatesAgainstContext(t *testing.T) {
	type input struct {
		Tag string `hcl:"tag"`
	}
	defs := map[string]*config.InputDefinition{"tag": stringDef("tag")}
	args := map[string]hcllib.Expression{
		"tag": parseExpr(t, `env.SEQCI_IMAGE_TAG`),
	}
	evalCtx := &hcllib.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(map[string]cty.Value{
				"SEQCI_IMAGE_TAG": cty.StringVal("repo:dev_abc"),
			}),
		},
	}

	var in input
	err := NewConverter().DecodeBody(context.Background(), &in, args, defs, evalCtx)
	require.NoError(t, err)
	assert.Equal(t, "repo:dev_abc", in.Tag)
}

func TestDecodeBody_ConversionMismatch(t *testing.T) {
	type input struct {
		Ncpus int `hcl:"ncpus"`
	}
	defs := map[string]*config.InputDefinition{
		"ncpus": {Name: "ncpus", Type: cty.Number},
	}
	args := map[string]hcllib.Expression{
		"ncpus": parseExpr(t, `["not", "a", "number"]`),
	}

	var in input
	err := NewConverter().DecodeBody(context.Background(), &in, args, defs, nil)
	assert.Error(t, err)
}

func TestDecodeBody_RawCtyValueField(t *testing.T) {
	type input struct {
		Anything cty.Value `hcl:"anything"`
	}
	defs := map[string]*config.InputDefinition{
		"anything": {Name: "anything", Type: cty.DynamicPseudoType},
	}
	args := map[string]hcllib.Expression{
		"anything": parseExpr(t, `{ a = 1, b = "two" }`),
	}

	var in input
	err := NewConverter().DecodeBody(context.Background(), &in, args, defs, nil)
	require.NoError(t, err)
	assert.True(t, in.Anything.Type().IsObjectType())
}

func TestToCtyValue(t *testing.T) {
	conv := NewConverter()

	v, err := conv.ToCtyValue(nil)
	require.NoError(t, err)
	assert.Equal(t, cty.NilVal, v)

	passthrough := cty.StringVal("as-is")
	v, err = conv.ToCtyValue(passthrough)
	require.NoError(t, err)
	assert.Equal(t, passthrough, v)

	type output struct {
		All map[string]string `cty:"all"`
	}
	v, err = conv.ToCtyValue(&output{All: map[string]string{"k": "v"}})
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("v"), v.GetAttr("all").Index(cty.StringVal("k")))
}
