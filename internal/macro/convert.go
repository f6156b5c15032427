package macro

import (
	"fmt"

	"go.starlark.net/starlark"
)

// goToStarlark converts the scalar types make/convert value expressions
// produce (string, float64) to their Starlark equivalents.
func goToStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(val), nil
	case float64:
		return starlark.Float(val), nil
	case bool:
		return starlark.Bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported macro argument type %T", v)
	}
}

// starlarkToGo converts a macro's Starlark return value back to a scalar
// value expressions understand: string, float64, or bool.
func starlarkToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(val), nil
	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			return val.String(), nil
		}
		return float64(i64), nil
	case starlark.Float:
		return float64(val), nil
	case starlark.Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("macro returned unsupported Starlark type %s", v.Type())
	}
}
