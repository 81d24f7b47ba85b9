package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/naosoccer/stack/robot"
)

func writeJSON(t *testing.T, path string, document map[string]any) {
	t.Helper()
	test.That(t, os.MkdirAll(filepath.Dir(path), 0o750), test.ShouldBeNil)
	data, err := json.Marshal(document)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	document, err := readDocument(path)
	test.That(t, err, test.ShouldBeNil)
	return document
}

func TestLocationFor(t *testing.T) {
	for headID, location := range map[string]string{
		"webots_1":             LocationWebots,
		"behavior_simulator":   LocationBehaviorSimulator,
		"P0000074A05S8AR00011": LocationNao,
		"":                     LocationNao,
	} {
		test.That(t, LocationFor(headID), test.ShouldEqual, location)
	}
}

func TestLayers(t *testing.T) {
	ids := robot.IDs{BodyID: "B", HeadID: "H"}
	layers := Layers(ids, LocationNao)
	paths := make([]string, 0, len(layers))
	for _, layer := range layers {
		paths = append(paths, layer.Path)
	}
	test.That(t, paths, test.ShouldResemble, []string{
		"default.json",
		"nao_location/default.json",
		"body.B.json",
		"head.H.json",
		"nao_location/body.B.json",
		"nao_location/head.H.json",
	})
	test.That(t, layers[5].Scope, test.ShouldEqual, ScopeLocationHead)
}

func TestParseScope(t *testing.T) {
	for _, scope := range Scopes() {
		parsed, err := ParseScope(scope.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, scope)
	}
	_, err := ParseScope("team")
	test.That(t, errors.Is(err, ErrUnknownScope), test.ShouldBeTrue)
	_, err = Scope(17).Path(robot.IDs{}, LocationNao)
	test.That(t, errors.Is(err, ErrUnknownScope), test.ShouldBeTrue)
}

func TestMerge(t *testing.T) {
	dst := map[string]any{
		"walking": map[string]any{"step_duration": "250ms", "arms": map[string]any{"pitch_factor": 8.0}},
		"kicks":   []any{1.0, 2.0},
	}
	src := map[string]any{
		"walking": map[string]any{"arms": map[string]any{"roll_factor": 0.5}},
		"kicks":   []any{3.0},
		"audio":   map[string]any{"threshold": 2.0},
	}
	Merge(dst, src)
	expected := map[string]any{
		"walking": map[string]any{"step_duration": "250ms", "arms": map[string]any{"pitch_factor": 8.0, "roll_factor": 0.5}},
		"kicks":   []any{3.0},
		"audio":   map[string]any{"threshold": 2.0},
	}
	test.That(t, cmp.Diff(expected, dst), test.ShouldBeEmpty)

	// merged values do not alias the source
	src["audio"].(map[string]any)["threshold"] = 4.0
	test.That(t, dst["audio"].(map[string]any)["threshold"], test.ShouldEqual, 2.0)
}

func TestDiff(t *testing.T) {
	base := map[string]any{
		"a": 1.0,
		"walking": map[string]any{
			"gain": 0.5,
			"arms": map[string]any{"pitch_factor": 8.0, "roll_factor": 0.5},
		},
		"removed": true,
	}
	updated := map[string]any{
		"a": 1.0,
		"walking": map[string]any{
			"gain": 0.5,
			"arms": map[string]any{"pitch_factor": 6.0, "roll_factor": 0.5},
		},
		"added": "x",
	}
	patch := Diff(base, updated)
	test.That(t, cmp.Diff(map[string]any{
		"walking": map[string]any{"arms": map[string]any{"pitch_factor": 6.0}},
		"added":   "x",
	}, patch), test.ShouldBeEmpty)
	test.That(t, Diff(base, base), test.ShouldBeEmpty)
}

func TestParameterLayering(t *testing.T) {
	root := t.TempDir()
	ids := robot.IDs{BodyID: "B", HeadID: "H"}
	writeJSON(t, filepath.Join(root, "default.json"), map[string]any{"a": 1, "b": 2})
	writeJSON(t, filepath.Join(root, "head.H.json"), map[string]any{"b": 3, "c": 4})
	writeJSON(t, filepath.Join(root, LocationNao, "head.H.json"), map[string]any{"a": 5})

	merged, layers, err := Load(root, ids)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, merged, test.ShouldResemble, map[string]any{"a": 5.0, "b": 3.0, "c": 4.0})
	test.That(t, layers, test.ShouldHaveLength, 3)

	updated := Clone(merged)
	updated["a"] = 1.0
	patch, err := Save(root, ids, ScopeLocationHead, updated)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, patch, test.ShouldResemble, map[string]any{"a": 1.0})
	test.That(t, readJSON(t, filepath.Join(root, LocationNao, "head.H.json")), test.ShouldResemble, map[string]any{"a": 1.0})

	t.Run("save load save is idempotent", func(t *testing.T) {
		before, err := os.ReadFile(filepath.Join(root, LocationNao, "head.H.json"))
		test.That(t, err, test.ShouldBeNil)
		reloaded, _, err := Load(root, ids)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, reloaded, test.ShouldResemble, updated)
		patch, err := Save(root, ids, ScopeLocationHead, reloaded)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, patch, test.ShouldBeEmpty)
		after, err := os.ReadFile(filepath.Join(root, LocationNao, "head.H.json"))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, string(after), test.ShouldEqual, string(before))
	})

	t.Run("save creates missing scope files", func(t *testing.T) {
		reloaded, _, err := Load(root, ids)
		test.That(t, err, test.ShouldBeNil)
		updated := Clone(reloaded)
		updated["c"] = 7.0
		_, err = Save(root, ids, ScopeBody, updated)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, readJSON(t, filepath.Join(root, "body.B.json")), test.ShouldResemble, map[string]any{"c": 7.0})
	})
}

func TestLoadRequiresDefault(t *testing.T) {
	_, _, err := Load(t.TempDir(), robot.IDs{BodyID: "B", HeadID: "H"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "loading default parameters")

	root := t.TempDir()
	test.That(t, os.WriteFile(filepath.Join(root, "default.json"), []byte(`{"a":`), 0o600), test.ShouldBeNil)
	_, _, err = Load(root, robot.IDs{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPrettyDiff(t *testing.T) {
	changes, err := DiffDocuments(
		map[string]any{"gain": 0.5, "name": "walk"},
		map[string]any{"gain": 0.75, "name": "walk"},
		true,
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, changes.Equal, test.ShouldBeFalse)
	test.That(t, changes.Patch, test.ShouldResemble, map[string]any{"gain": 0.75})
	// only the inserted digit of 0.5 -> 0.75 is rendered, equal text is dropped
	test.That(t, changes.String(), test.ShouldContainSubstring, "7")
	test.That(t, changes.String(), test.ShouldNotContainSubstring, "gain")
	test.That(t, changes.String(), test.ShouldNotContainSubstring, "walk")

	changes, err = DiffDocuments(map[string]any{"gain": 0.5}, map[string]any{"gain": 0.5}, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, changes.Equal, test.ShouldBeTrue)
	test.That(t, changes.String(), test.ShouldBeEmpty)
}
