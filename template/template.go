// Package template expands {{CEL expression}} placeholders in strings such as post captions.
package template

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"
)

var celExprReg = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Expand replaces every {{expression}} in template with the result of
// evaluating the CEL expression against store.
func Expand(template string, store map[string]any) (string, error) {
	env, err := createCELEnv(store)
	if err != nil {
		return "", fmt.Errorf("failed to create CEL environment: %w", err)
	}

	var expandErr error
	result := celExprReg.ReplaceAllStringFunc(template, func(match string) string {
		if expandErr != nil {
			return match
		}
		expr := strings.TrimSpace(match[2 : len(match)-2])

		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			expandErr = fmt.Errorf("template compilation error for '{{%s}}': %w", expr, issues.Err())
			return match
		}
		prg, err := env.Program(ast)
		if err != nil {
			expandErr = fmt.Errorf("template program creation error for '{{%s}}': %w", expr, err)
			return match
		}
		out, _, err := prg.Eval(store)
		if err != nil {
			expandErr = fmt.Errorf("template evaluation error for '{{%s}}': %w", expr, err)
			return match
		}
		return fmt.Sprintf("%v", out.Value())
	})
	if expandErr != nil {
		return "", expandErr
	}
	return result, nil
}

// Compile checks that every expression in template compiles against the
// variables of store, without evaluating them.
func Compile(template string, store map[string]any) error {
	env, err := createCELEnv(store)
	if err != nil {
		return fmt.Errorf("failed to create CEL environment: %w", err)
	}
	for _, m := range celExprReg.FindAllStringSubmatch(template, -1) {
		expr := strings.TrimSpace(m[1])
		if _, issues := env.Compile(expr); issues != nil && issues.Err() != nil {
			return fmt.Errorf("template compilation error for '{{%s}}': %w", expr, issues.Err())
		}
	}
	return nil
}

// EnvironToMap returns the process environment as a map.
func EnvironToMap() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}

func createCELEnv(store map[string]any) (*cel.Env, error) {
	var options []cel.EnvOption
	for key, value := range store {
		options = append(options, cel.Variable(key, inferCELType(value)))
	}
	return cel.NewEnv(options...)
}

func inferCELType(value any) *cel.Type {
	switch value.(type) {
	case string:
		return cel.StringType
	case int, int32, int64:
		return cel.IntType
	case float32, float64:
		return cel.DoubleType
	case bool:
		return cel.BoolType
	case map[string]any:
		return cel.MapType(cel.StringType, cel.AnyType)
	case map[string]string:
		return cel.MapType(cel.StringType, cel.StringType)
	case []any:
		return cel.ListType(cel.AnyType)
	case []string:
		return cel.ListType(cel.StringType)
	default:
		return cel.AnyType
	}
}
