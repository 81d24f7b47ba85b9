package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/naosoccer/stack/framework"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/robot"
)

type gaitParameters struct {
	StepDuration time.Duration `json:"step_duration"`
	StartingSide robot.Side    `json:"starting_side"`
	Gain         float64       `json:"gain"`
	Steps        int           `json:"steps"`
}

type testParameters struct {
	Gait gaitParameters `json:"gait"`
}

func testDocument() map[string]any {
	return map[string]any{
		"gait": map[string]any{
			"step_duration": "250ms",
			"starting_side": "right",
			"gain":          0.5,
			"steps":         4.0,
		},
	}
}

func latest[T any](reader *framework.Reader[T]) T {
	slot := reader.Next()
	defer slot.Release()
	return *slot.Value()
}

func TestDecode(t *testing.T) {
	var parameters testParameters
	test.That(t, Decode(testDocument(), &parameters), test.ShouldBeNil)
	test.That(t, parameters, test.ShouldResemble, testParameters{Gait: gaitParameters{
		StepDuration: 250 * time.Millisecond,
		StartingSide: robot.Right,
		Gain:         0.5,
		Steps:        4,
	}})

	document := testDocument()
	document["gait"].(map[string]any)["swing"] = 1.0
	err := Decode(document, &parameters)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "swing")

	document = testDocument()
	document["gait"].(map[string]any)["starting_side"] = "middle"
	test.That(t, Decode(document, &parameters), test.ShouldNotBeNil)
}

func TestStoreUpdate(t *testing.T) {
	logger := logging.NewTestLogger(t)
	store, readers, err := NewStore[testParameters](testDocument(), 2, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readers, test.ShouldHaveLength, 2)
	test.That(t, latest(readers[0]).Gait.Gain, test.ShouldEqual, 0.5)

	test.That(t, store.Update("gait.gain", 0.8), test.ShouldBeNil)
	<-store.Changed()
	for _, reader := range readers {
		test.That(t, latest(reader).Gait.Gain, test.ShouldEqual, 0.8)
	}
	value, err := store.Get("gait.gain")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, value, test.ShouldEqual, 0.8)

	t.Run("rejected update keeps previous parameters", func(t *testing.T) {
		err := store.Update("gait.gain", "fast")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, `rejected update of "gait.gain"`)
		test.That(t, latest(readers[1]).Gait.Gain, test.ShouldEqual, 0.8)
		value, err := store.Get("gait.gain")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, value, test.ShouldEqual, 0.8)
	})

	t.Run("unknown path", func(t *testing.T) {
		err := store.Update("gait.swing", 1.0)
		test.That(t, err, test.ShouldBeError, `parameter path "gait.swing" does not exist`)
	})

	t.Run("document is a copy", func(t *testing.T) {
		document := store.Document()
		document["gait"].(map[string]any)["gain"] = 3.0
		value, err := store.Get("gait.gain")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, value, test.ShouldEqual, 0.8)
	})
}

func TestNewStoreRejectsInvalidDocument(t *testing.T) {
	document := testDocument()
	document["vision"] = map[string]any{}
	_, _, err := NewStore[testParameters](document, 1, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "decoding parameters")
}

func TestWatcherReloads(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	root := t.TempDir()
	ids := robot.IDs{BodyID: "B", HeadID: "H"}
	writeJSON(t, filepath.Join(root, "default.json"), testDocument())
	document, _, err := Load(root, ids)
	test.That(t, err, test.ShouldBeNil)
	store, readers, err := NewStore[testParameters](document, 1, logger)
	test.That(t, err, test.ShouldBeNil)

	watcher, err := NewWatcher(root, ids, store, 10*time.Millisecond, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, watcher.Close(), test.ShouldBeNil)
	}()

	writeJSON(t, filepath.Join(root, "head.H.json"), map[string]any{"gait": map[string]any{"gain": 0.25}})
	select {
	case <-store.Changed():
	case <-time.After(5 * time.Second):
		t.Fatal("parameters were not reloaded")
	}
	test.That(t, latest(readers[0]).Gait.Gain, test.ShouldEqual, 0.25)

	test.That(t, os.WriteFile(filepath.Join(root, "head.H.json"), []byte(`{"gait": {"gain": "high"}}`), 0o600), test.ShouldBeNil)
	deadline := time.Now().Add(5 * time.Second)
	for logs.FilterMessage("keeping previous parameters").Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	test.That(t, logs.FilterMessage("keeping previous parameters").Len(), test.ShouldBeGreaterThan, 0)
	test.That(t, latest(readers[0]).Gait.Gain, test.ShouldEqual, 0.25)
}
