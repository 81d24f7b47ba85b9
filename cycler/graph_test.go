package cycler

import (
	"testing"

	"go.viam.com/test"
)

func names(nodes []Node) []string {
	result := make([]string, 0, len(nodes))
	for _, node := range nodes {
		result = append(result, node.Name())
	}
	return result
}

func TestTopologicalSortIsStable(t *testing.T) {
	nodes := []Node{
		&funcNode{name: "motion_selection", inputs: []string{"primary_state", "fall_state"}, outputs: map[string]any{"motion_command": ""}},
		&funcNode{name: "sensor_receiver", inputs: []string{"hardware"}, outputs: map[string]any{"sensor_data": 0}},
		&funcNode{name: "primary_state_filter", inputs: []string{"sensor_data"}, outputs: map[string]any{"primary_state": ""}},
		&funcNode{name: "fall_state_estimation", inputs: []string{"sensor_data"}, outputs: map[string]any{"fall_state": ""}},
		&funcNode{name: "led_status", inputs: []string{"hardware"}},
	}
	graph, err := BuildGraph(nodes, []string{"hardware"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, names(graph.TopologicalSort()), test.ShouldResemble, []string{
		"sensor_receiver", "primary_state_filter", "fall_state_estimation", "motion_selection", "led_status",
	})
	test.That(t, graph.IsDependingOn("motion_selection", "sensor_receiver"), test.ShouldBeTrue)
	test.That(t, graph.IsDependingOn("sensor_receiver", "motion_selection"), test.ShouldBeFalse)

	// same input, same order
	again, err := BuildGraph(nodes, []string{"hardware"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, names(again.TopologicalSort()), test.ShouldResemble, names(graph.TopologicalSort()))
}

func TestBuildGraphErrors(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		_, err := BuildGraph([]Node{
			&funcNode{name: "a", inputs: []string{"y"}, outputs: map[string]any{"x": 0}},
			&funcNode{name: "b", inputs: []string{"x"}, outputs: map[string]any{"y": 0}},
		}, nil)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "circular dependency")
	})
	t.Run("self dependency", func(t *testing.T) {
		_, err := BuildGraph([]Node{
			&funcNode{name: "a", inputs: []string{"x"}, outputs: map[string]any{"x": 0}},
		}, nil)
		test.That(t, err, test.ShouldBeError, `"a" cannot depend on itself`)
	})
	t.Run("missing producer", func(t *testing.T) {
		_, err := BuildGraph([]Node{
			&funcNode{name: "a", inputs: []string{"ball_position"}},
		}, []string{"hardware"})
		test.That(t, err, test.ShouldBeError, NewMissingProducerError("a", "ball_position"))
	})
	t.Run("duplicate output", func(t *testing.T) {
		_, err := BuildGraph([]Node{
			&funcNode{name: "a", outputs: map[string]any{"x": 0}},
			&funcNode{name: "b", outputs: map[string]any{"x": 0}},
		}, nil)
		test.That(t, err, test.ShouldBeError, `output "x" is produced by "a" and "b"`)
	})
	t.Run("duplicate node", func(t *testing.T) {
		_, err := BuildGraph([]Node{&funcNode{name: "a"}, &funcNode{name: "a"}}, nil)
		test.That(t, err, test.ShouldBeError, `node "a" added twice`)
	})
}
