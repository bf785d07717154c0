package ruby

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/oxhq/rulefx/syntax"
)

// Config implements LanguageConfig for Ruby
type Config struct{}

// Language identifier
func (c *Config) Language() string {
	return "ruby"
}

// Extensions supported
func (c *Config) Extensions() []string {
	return []string{".rb", ".rake", ".gemspec", ".ru", "Gemfile", "Rakefile"}
}

// GetLanguage returns tree-sitter language for Ruby
func (c *Config) GetLanguage() *sitter.Language {
	return ruby.GetLanguage()
}

var nodeKinds = map[string]syntax.Kind{
	"program":                  syntax.KindProgram,
	"nil":                      syntax.KindNil,
	"self":                     syntax.KindSelf,
	"identifier":               syntax.KindIdentifier,
	"instance_variable":        syntax.KindInstanceVariable,
	"constant":                 syntax.KindConstant,
	"scope_resolution":         syntax.KindConstant,
	"integer":                  syntax.KindLiteral,
	"float":                    syntax.KindLiteral,
	"rational":                 syntax.KindLiteral,
	"complex":                  syntax.KindLiteral,
	"true":                     syntax.KindLiteral,
	"false":                    syntax.KindLiteral,
	"string":                   syntax.KindLiteral,
	"simple_symbol":            syntax.KindLiteral,
	"delimited_symbol":         syntax.KindLiteral,
	"regex":                    syntax.KindLiteral,
	"character":                syntax.KindLiteral,
	"binary":                   syntax.KindBinary,
	"unary":                    syntax.KindUnary,
	"call":                     syntax.KindCall,
	"method_call":              syntax.KindCall,
	"argument_list":            syntax.KindArguments,
	"method_parameters":        syntax.KindParameters,
	"lambda_parameters":        syntax.KindParameters,
	"block_parameters":         syntax.KindParameters,
	"optional_parameter":       syntax.KindOptionalParameter,
	"keyword_parameter":        syntax.KindKeywordParameter,
	"splat_parameter":          syntax.KindSplatParameter,
	"hash_splat_parameter":     syntax.KindHashSplatParameter,
	"block_parameter":          syntax.KindBlockParameter,
	"splat_argument":           syntax.KindSplatArgument,
	"hash_splat_argument":      syntax.KindHashSplatArgument,
	"block_argument":           syntax.KindBlockArgument,
	"method":                   syntax.KindDef,
	"singleton_method":         syntax.KindSingletonDef,
	"class":                    syntax.KindClass,
	"singleton_class":          syntax.KindClass,
	"module":                   syntax.KindModule,
	"if":                       syntax.KindIf,
	"unless":                   syntax.KindUnless,
	"if_modifier":              syntax.KindIfModifier,
	"unless_modifier":          syntax.KindUnlessModifier,
	"conditional":              syntax.KindTernary,
	"then":                     syntax.KindThen,
	"else":                     syntax.KindElse,
	"parenthesized_statements": syntax.KindParenthesized,
	"body_statement":           syntax.KindBody,
	"return":                   syntax.KindReturn,
	"block":                    syntax.KindBlock,
	"do_block":                 syntax.KindBlock,
	"comment":                  syntax.KindComment,
}

// MapNodeKind maps Ruby grammar node types to syntax kinds
func (c *Config) MapNodeKind(nodeType string, named bool) syntax.Kind {
	if !named {
		return syntax.KindToken
	}
	if kind, ok := nodeKinds[nodeType]; ok {
		return kind
	}
	return syntax.KindUnknown
}

var fieldNames = []string{
	"receiver", "operator", "method", "arguments", "block",
	"left", "right", "operand",
	"name", "object", "parameters", "body",
	"condition", "consequence", "alternative",
	"superclass", "value",
}

// FieldNames lists the grammar fields kept on converted nodes
func (c *Config) FieldNames() []string {
	return fieldNames
}
