package mcp

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// argumentGetter is satisfied by mcp.CallToolRequest.
type argumentGetter interface {
	GetArguments() map[string]any
}

// bindArguments decodes tool arguments into target using json tags.
// MCP clients often send every parameter as a string, so JSON-encoded
// arrays ("[1, 2]"), comma lists ("1,2") and quoted numbers are coerced.
func bindArguments[T any](request argumentGetter, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       jsonStringHook,
		Result:           target,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(request.GetArguments())
}

func jsonStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		if strings.Contains(raw, ",") {
			parts := strings.Split(raw, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts, nil
		}
		return data, nil
	}

	slicePtr := reflect.New(to)
	if err := json.Unmarshal([]byte(raw), slicePtr.Interface()); err != nil {
		return data, nil
	}
	return slicePtr.Elem().Interface(), nil
}
