package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/naosoccer/stack/robot"
)

// Merge merges src into dst. Objects merge recursively, any other value in src replaces the one
// in dst.
func Merge(dst, src map[string]any) {
	for key, value := range src {
		srcObject, srcIsObject := value.(map[string]any)
		dstObject, dstIsObject := dst[key].(map[string]any)
		if srcIsObject && dstIsObject {
			Merge(dstObject, srcObject)
			continue
		}
		dst[key] = cloneValue(value)
	}
}

// Clone returns a deep copy of a document.
func Clone(document map[string]any) map[string]any {
	//nolint:forcetypeassert
	return cloneValue(document).(map[string]any)
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(typed))
		for key, inner := range typed {
			result[key] = cloneValue(inner)
		}
		return result
	case []any:
		result := make([]any, len(typed))
		for i, inner := range typed {
			result[i] = cloneValue(inner)
		}
		return result
	default:
		return value
	}
}

// Diff returns the leaves of updated that are missing in base or differ from it. Keys missing in
// updated are not part of the patch.
func Diff(base, updated map[string]any) map[string]any {
	patch := map[string]any{}
	for key, value := range updated {
		baseValue, ok := base[key]
		if !ok {
			patch[key] = cloneValue(value)
			continue
		}
		baseObject, baseIsObject := baseValue.(map[string]any)
		object, isObject := value.(map[string]any)
		if baseIsObject && isObject {
			if inner := Diff(baseObject, object); len(inner) > 0 {
				patch[key] = inner
			}
			continue
		}
		if !reflect.DeepEqual(baseValue, value) {
			patch[key] = cloneValue(value)
		}
	}
	return patch
}

// Get returns the value at a dotted path.
func Get(document map[string]any, path string) (any, error) {
	var current any = document
	for _, segment := range strings.Split(path, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, errors.Errorf("parameter path %q does not exist", path)
		}
		if current, ok = object[segment]; !ok {
			return nil, errors.Errorf("parameter path %q does not exist", path)
		}
	}
	return current, nil
}

// Set replaces the value at an existing dotted path.
func Set(document map[string]any, path string, value any) error {
	segments := strings.Split(path, ".")
	current := document
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			return errors.Errorf("parameter path %q does not exist", path)
		}
		current = next
	}
	last := segments[len(segments)-1]
	if _, ok := current[last]; !ok {
		return errors.Errorf("parameter path %q does not exist", path)
	}
	current[last] = cloneValue(value)
	return nil
}

func readDocument(path string) (map[string]any, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	var document map[string]any
	if err := decoder.Decode(&document); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if document == nil {
		document = map[string]any{}
	}
	return document, nil
}

func writeDocument(path string, document map[string]any) error {
	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	//nolint:gosec
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load merges the layers of a robot found below root. The root default document is required,
// every other layer is optional. The documents that were found are returned by scope.
func Load(root string, ids robot.IDs) (map[string]any, map[Scope]map[string]any, error) {
	location := LocationFor(ids.HeadID)
	merged := map[string]any{}
	found := map[Scope]map[string]any{}
	for _, layer := range Layers(ids, location) {
		document, err := readDocument(filepath.Join(root, layer.Path))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && layer.Scope != ScopeDefault {
				continue
			}
			return nil, nil, errors.Wrapf(err, "loading %s parameters", layer.Scope)
		}
		found[layer.Scope] = document
		Merge(merged, document)
	}
	return merged, found, nil
}

// Save writes the difference between updated and the currently stored parameters into the file
// of scope. It returns the patch that was written.
func Save(root string, ids robot.IDs, scope Scope, updated map[string]any) (map[string]any, error) {
	path, err := scope.Path(ids, LocationFor(ids.HeadID))
	if err != nil {
		return nil, err
	}
	current, _, err := Load(root, ids)
	if err != nil {
		return nil, err
	}
	patch := Diff(current, updated)
	if len(patch) == 0 {
		return patch, nil
	}
	path = filepath.Join(root, path)
	document, err := readDocument(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		document = map[string]any{}
	case err != nil:
		return nil, err
	}
	Merge(document, patch)
	if err := writeDocument(path, document); err != nil {
		return nil, errors.Wrapf(err, "saving %s parameters", scope)
	}
	return patch, nil
}

// Decode fills out from a merged document. Unknown keys are an error.
func Decode[T any](document map[string]any, out *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      out,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			jsonUnmarshalerHook,
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(document)
}

// jsonUnmarshalerHook lets types with their own JSON representation decode themselves.
func jsonUnmarshalerHook(_, to reflect.Type, data any) (any, error) {
	target := reflect.New(to)
	unmarshaler, ok := target.Interface().(json.Unmarshaler)
	if !ok {
		return data, nil
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if err := unmarshaler.UnmarshalJSON(encoded); err != nil {
		return nil, err
	}
	return target.Elem().Interface(), nil
}
