// Package vision contains the nodes of the two vision cyclers. Each cycler processes the images
// of one camera and queues its detections for the control cycler.
package vision

import (
	"github.com/pkg/errors"

	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
	"github.com/naosoccer/stack/utils"
)

// External inputs of a vision cycler.
const (
	InputHardwareImage = "hardware_image"
	InputParameters    = "parameters"
	// InputControl is the latest database of the control cycler.
	InputControl = "control"
)

// Main outputs of a vision cycler.
const (
	ImageOutput          = "image"
	CameraMatrixOutput   = "camera_matrix"
	BallsOutput          = "balls"
	FieldLinesOutput     = "field_lines"
	ObstaclesOutput      = "obstacles"
	PoseCandidatesOutput = "pose_candidates"
)

// Outputs of the control cycler read through InputControl.
const (
	controlSensorData    = "sensor_data"
	controlRobotToGround = "robot_to_ground"
)

type nodeInfo struct {
	name    string
	inputs  []string
	outputs []string
}

func (n nodeInfo) Name() string      { return n.name }
func (n nodeInfo) Inputs() []string  { return n.inputs }
func (n nodeInfo) Outputs() []string { return n.outputs }

// Nodes returns the nodes of the vision cycler of camera.
func Nodes(camera robot.CameraPosition) []cycler.Node {
	return []cycler.Node{
		NewImageReceiver(camera),
		NewCameraMatrixProvider(camera),
		NewBallDetection(camera),
		NewLineDetection(),
		NewObstacleDetection(),
		NewPoseCandidateProvider(),
	}
}

func controlOutput[T any](db cycler.Database, name string) (T, error) {
	var zero T
	value, ok := db.Main[name]
	if !ok {
		return zero, errors.Errorf("control output %q is not available", name)
	}
	typed, ok := value.(T)
	if !ok {
		return zero, utils.NewUnexpectedTypeErrorAt("control output "+name, zero, value)
	}
	return typed, nil
}

// ImageReceiver publishes the image that started the tick.
type ImageReceiver struct {
	nodeInfo
	camera robot.CameraPosition
}

// NewImageReceiver returns an ImageReceiver.
func NewImageReceiver(camera robot.CameraPosition) *ImageReceiver {
	return &ImageReceiver{
		nodeInfo: nodeInfo{
			name:    "image_receiver",
			inputs:  []string{InputHardwareImage},
			outputs: []string{ImageOutput},
		},
		camera: camera,
	}
}

// InitialOutputs implements cycler.Node.
func (n *ImageReceiver) InitialOutputs() map[string]any {
	return map[string]any{ImageOutput: robot.Image{Camera: n.camera}}
}

// Cycle implements cycler.Node.
func (n *ImageReceiver) Cycle(ctx *cycler.Context) error {
	img, err := cycler.Input[robot.Image](ctx, InputHardwareImage)
	if err != nil {
		return err
	}
	if img.Camera != n.camera {
		return errors.Errorf("received %s image in %s vision", img.Camera, n.camera)
	}
	if img.Frame == nil {
		return errors.New("image has no frame")
	}
	return ctx.Write(ImageOutput, img)
}

// CameraMatrixProvider computes the camera matrix from the control cycler's latest state.
type CameraMatrixProvider struct {
	nodeInfo
	camera robot.CameraPosition
}

// NewCameraMatrixProvider returns a CameraMatrixProvider.
func NewCameraMatrixProvider(camera robot.CameraPosition) *CameraMatrixProvider {
	return &CameraMatrixProvider{
		nodeInfo: nodeInfo{
			name:    "camera_matrix",
			inputs:  []string{ImageOutput, InputControl, InputParameters},
			outputs: []string{CameraMatrixOutput},
		},
		camera: camera,
	}
}

// InitialOutputs implements cycler.Node.
func (n *CameraMatrixProvider) InitialOutputs() map[string]any {
	return map[string]any{CameraMatrixOutput: (*CameraMatrix)(nil)}
}

// Cycle implements cycler.Node. Without ground contact there is no camera matrix.
func (n *CameraMatrixProvider) Cycle(ctx *cycler.Context) error {
	img, err := cycler.Input[robot.Image](ctx, ImageOutput)
	if err != nil {
		return err
	}
	control, err := cycler.Input[cycler.Database](ctx, InputControl)
	if err != nil {
		return err
	}
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	data, err := controlOutput[robot.SensorData](control, controlSensorData)
	if err != nil {
		return err
	}
	robotToGround, err := controlOutput[*spatialmath.Isometry3[referenceframe.Robot, referenceframe.Ground]](
		control, controlRobotToGround)
	if err != nil {
		return err
	}
	if robotToGround == nil || img.Frame == nil {
		return ctx.Write(CameraMatrixOutput, (*CameraMatrix)(nil))
	}
	bounds := img.Frame.Rect
	matrix := NewCameraMatrix(n.camera, data.PositionsMeasured.Head, *robotToGround,
		params.HorizontalFieldOfView, bounds.Dx(), bounds.Dy())
	return ctx.Write(CameraMatrixOutput, &matrix)
}

type detectionInputs struct {
	image  robot.Image
	matrix *CameraMatrix
	params Parameters
}

func readDetectionInputs(ctx *cycler.Context) (detectionInputs, error) {
	img, err := cycler.Input[robot.Image](ctx, ImageOutput)
	if err != nil {
		return detectionInputs{}, err
	}
	matrix, err := cycler.Input[*CameraMatrix](ctx, CameraMatrixOutput)
	if err != nil {
		return detectionInputs{}, err
	}
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return detectionInputs{}, err
	}
	return detectionInputs{image: img, matrix: matrix, params: params}, nil
}

// BallDetection finds balls.
type BallDetection struct {
	nodeInfo
	camera robot.CameraPosition
}

// NewBallDetection returns a BallDetection.
func NewBallDetection(camera robot.CameraPosition) *BallDetection {
	return &BallDetection{
		nodeInfo: nodeInfo{
			name:    "ball_detection",
			inputs:  []string{ImageOutput, CameraMatrixOutput, InputParameters},
			outputs: []string{BallsOutput},
		},
		camera: camera,
	}
}

// InitialOutputs implements cycler.Node.
func (n *BallDetection) InitialOutputs() map[string]any {
	return map[string]any{BallsOutput: []Ball{}}
}

// Cycle implements cycler.Node.
func (n *BallDetection) Cycle(ctx *cycler.Context) error {
	in, err := readDetectionInputs(ctx)
	if err != nil {
		return err
	}
	balls := []Ball{}
	if in.matrix != nil {
		balls = append(balls, DetectBalls(in.image.Frame, n.camera, *in.matrix, in.params.Ball)...)
	}
	return ctx.Write(BallsOutput, balls)
}

// LineDetection finds field line segments.
type LineDetection struct {
	nodeInfo
}

// NewLineDetection returns a LineDetection.
func NewLineDetection() *LineDetection {
	return &LineDetection{nodeInfo{
		name:    "line_detection",
		inputs:  []string{ImageOutput, CameraMatrixOutput, InputParameters},
		outputs: []string{FieldLinesOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *LineDetection) InitialOutputs() map[string]any {
	return map[string]any{FieldLinesOutput: []LineSegment{}}
}

// Cycle implements cycler.Node.
func (n *LineDetection) Cycle(ctx *cycler.Context) error {
	in, err := readDetectionInputs(ctx)
	if err != nil {
		return err
	}
	lines := []LineSegment{}
	if in.matrix != nil {
		lines = append(lines, DetectLines(in.image.Frame, *in.matrix, in.params.Lines)...)
	}
	return ctx.Write(FieldLinesOutput, lines)
}

// ObstacleDetection finds dark obstacles.
type ObstacleDetection struct {
	nodeInfo
}

// NewObstacleDetection returns an ObstacleDetection.
func NewObstacleDetection() *ObstacleDetection {
	return &ObstacleDetection{nodeInfo{
		name:    "obstacle_detection",
		inputs:  []string{ImageOutput, CameraMatrixOutput, InputParameters},
		outputs: []string{ObstaclesOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *ObstacleDetection) InitialOutputs() map[string]any {
	return map[string]any{ObstaclesOutput: []Obstacle{}}
}

// Cycle implements cycler.Node.
func (n *ObstacleDetection) Cycle(ctx *cycler.Context) error {
	in, err := readDetectionInputs(ctx)
	if err != nil {
		return err
	}
	obstacles := []Obstacle{}
	if in.matrix != nil {
		obstacles = append(obstacles, DetectObstacles(in.image.Frame, *in.matrix, in.params.Obstacles)...)
	}
	return ctx.Write(ObstaclesOutput, obstacles)
}

// PoseCandidateProvider turns line pairs into corner candidates for localization.
type PoseCandidateProvider struct {
	nodeInfo
}

// NewPoseCandidateProvider returns a PoseCandidateProvider.
func NewPoseCandidateProvider() *PoseCandidateProvider {
	return &PoseCandidateProvider{nodeInfo{
		name:    "pose_candidates",
		inputs:  []string{FieldLinesOutput, InputParameters},
		outputs: []string{PoseCandidatesOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *PoseCandidateProvider) InitialOutputs() map[string]any {
	return map[string]any{PoseCandidatesOutput: []PoseCandidate{}}
}

// Cycle implements cycler.Node.
func (n *PoseCandidateProvider) Cycle(ctx *cycler.Context) error {
	lines, err := cycler.Input[[]LineSegment](ctx, FieldLinesOutput)
	if err != nil {
		return err
	}
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	candidates := []PoseCandidate{}
	candidates = append(candidates, FindPoseCandidates(lines, params.PoseCandidates)...)
	return ctx.Write(PoseCandidatesOutput, candidates)
}
