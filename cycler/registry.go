package cycler

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/naosoccer/stack/framework"
)

// Path prefixes of the two database partitions.
const (
	MainOutputsPrefix       = "main_outputs"
	AdditionalOutputsPrefix = "additional_outputs"
)

// Instance is the view of a running cycler used by the communication server.
type Instance struct {
	name              string
	outputsChanged    <-chan struct{}
	readerMu          sync.Mutex
	reader            *framework.Reader[Database]
	subscribedWriter  *framework.Writer[map[string]bool]
	additionalOutputs []string

	mu            sync.Mutex
	subscriptions map[string]int
}

func newInstance(
	name string,
	outputsChanged <-chan struct{},
	reader *framework.Reader[Database],
	subscribedWriter *framework.Writer[map[string]bool],
	additionalOutputs []string,
) *Instance {
	return &Instance{
		name:              name,
		outputsChanged:    outputsChanged,
		reader:            reader,
		subscribedWriter:  subscribedWriter,
		additionalOutputs: additionalOutputs,
		subscriptions:     map[string]int{},
	}
}

// Name is the instance name.
func (i *Instance) Name() string {
	return i.name
}

// OutputsChanged is signalled after every published tick.
func (i *Instance) OutputsChanged() <-chan struct{} {
	return i.outputsChanged
}

// Latest returns a copy of the latest published database. It is safe for concurrent use.
func (i *Instance) Latest() Database {
	// the reader holds one slot at a time, so concurrent callers take turns
	i.readerMu.Lock()
	defer i.readerMu.Unlock()
	slot := i.reader.Next()
	defer slot.Release()
	return slot.Value().Clone()
}

// additionalOutput returns the node level name of an additional output path.
func (i *Instance) additionalOutput(path string) (string, error) {
	name, ok := strings.CutPrefix(path, AdditionalOutputsPrefix+".")
	if !ok || name == "" {
		return "", NewUnknownPathError(path, "expected "+AdditionalOutputsPrefix+".<output>")
	}
	for _, declared := range i.additionalOutputs {
		if name == declared || strings.HasPrefix(name, declared+".") {
			return declared, nil
		}
	}
	return "", NewUnknownPathError(path, "no node writes this additional output")
}

// Subscribe validates path against the latest database. Additional outputs start being written
// once somebody subscribed to them.
func (i *Instance) Subscribe(path string) error {
	if strings.HasPrefix(path, AdditionalOutputsPrefix) {
		name, err := i.additionalOutput(path)
		if err != nil {
			return err
		}
		i.mu.Lock()
		defer i.mu.Unlock()
		i.subscriptions[name]++
		return i.publishSubscriptions()
	}
	_, err := ResolvePath(i.Latest(), path)
	return err
}

// Unsubscribe undoes one Subscribe of path.
func (i *Instance) Unsubscribe(path string) error {
	if !strings.HasPrefix(path, AdditionalOutputsPrefix) {
		return nil
	}
	name, err := i.additionalOutput(path)
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.subscriptions[name] <= 1 {
		delete(i.subscriptions, name)
	} else {
		i.subscriptions[name]--
	}
	return i.publishSubscriptions()
}

func (i *Instance) publishSubscriptions() error {
	slot := i.subscribedWriter.Next()
	*slot.Value() = lo.SliceToMap(lo.Keys(i.subscriptions), func(name string) (string, bool) {
		return name, true
	})
	return slot.Publish()
}

// ResolvePath looks up a dotted path like main_outputs.sensor_data.force_sensitive_resistors.
// Below the output name, the path follows the JSON representation of the value.
func ResolvePath(db Database, path string) (any, error) {
	segments := strings.Split(path, ".")
	var outputs map[string]any
	switch segments[0] {
	case MainOutputsPrefix:
		outputs = db.Main
	case AdditionalOutputsPrefix:
		outputs = db.Additional
	default:
		return nil, NewUnknownPathError(path, "path has to start with "+MainOutputsPrefix+" or "+AdditionalOutputsPrefix)
	}
	if len(segments) < 2 || segments[1] == "" {
		return nil, NewUnknownPathError(path, "missing output name")
	}
	// output names may contain dots themselves, the longest match wins
	var name string
	var value any
	found := false
	for end := len(segments); end > 1; end-- {
		candidate := strings.Join(segments[1:end], ".")
		if v, ok := outputs[candidate]; ok {
			name, value, found = candidate, v, true
			segments = append([]string{segments[0], name}, segments[end:]...)
			break
		}
	}
	if !found {
		return nil, NewUnknownPathError(path, "no output named "+strconv.Quote(segments[1]))
	}
	if len(segments) == 2 {
		return value, nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s", name)
	}
	var current any
	if err := json.Unmarshal(encoded, &current); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", name)
	}
	for depth, segment := range segments[2:] {
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[segment]
			if !ok {
				return nil, NewUnknownPathError(path, "no field "+strconv.Quote(strings.Join(segments[:depth+3], ".")))
			}
			current = next
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(typed) {
				return nil, NewUnknownPathError(path, "no index "+strconv.Quote(segment))
			}
			current = typed[index]
		default:
			return nil, NewUnknownPathError(path, strconv.Quote(strings.Join(segments[:depth+2], "."))+" has no fields")
		}
	}
	return current, nil
}

// Registry holds the cycler instances visible to the communication server.
type Registry struct {
	mu        sync.Mutex
	instances map[string]*Instance
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: map[string]*Instance{}}
}

// RegisterCyclerInstance makes a cycler observable under name.
func (r *Registry) RegisterCyclerInstance(
	name string,
	outputsChanged <-chan struct{},
	reader *framework.Reader[Database],
	subscribedOutputsWriter *framework.Writer[map[string]bool],
	additionalOutputs ...string,
) error {
	return r.Register(newInstance(name, outputsChanged, reader, subscribedOutputsWriter, additionalOutputs))
}

// Register adds an instance.
func (r *Registry) Register(instance *Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[instance.name]; ok {
		return errors.Errorf("cycler instance %q registered twice", instance.name)
	}
	r.instances[instance.name] = instance
	return nil
}

// Instance returns the instance registered under name.
func (r *Registry) Instance(name string) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	instance, ok := r.instances[name]
	return instance, ok
}

// Instances returns the registered instance names in sorted order.
func (r *Registry) Instances() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := lo.Keys(r.instances)
	slices.Sort(names)
	return names
}
