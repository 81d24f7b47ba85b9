// Package config loads, layers, watches and saves the JSON parameter documents.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/naosoccer/stack/robot"
)

// Locations select a directory of overrides below the parameter root.
const (
	LocationNao               = "nao_location"
	LocationWebots            = "webots"
	LocationBehaviorSimulator = "behavior_simulator"
)

// DefaultFile is the name of the base document of the root and of every location.
const DefaultFile = "default.json"

// ErrUnknownScope is returned for a scope name that does not exist.
var ErrUnknownScope = errors.New("unknown parameter scope")

// LocationFor picks the location from the head id.
func LocationFor(headID string) string {
	switch {
	case strings.HasPrefix(headID, "webots"):
		return LocationWebots
	case strings.HasPrefix(headID, "behavior_simulator"):
		return LocationBehaviorSimulator
	default:
		return LocationNao
	}
}

// Scope is one of the parameter layers.
type Scope int

// The scopes in order of precedence, later wins.
const (
	ScopeDefault Scope = iota
	ScopeLocation
	ScopeBody
	ScopeHead
	ScopeLocationBody
	ScopeLocationHead
)

var scopeNames = []string{"default", "location", "body", "head", "location_body", "location_head"}

// Scopes lists every scope in precedence order.
func Scopes() []Scope {
	return []Scope{ScopeDefault, ScopeLocation, ScopeBody, ScopeHead, ScopeLocationBody, ScopeLocationHead}
}

func (s Scope) String() string {
	if s < 0 || int(s) >= len(scopeNames) {
		return fmt.Sprintf("Scope(%d)", int(s))
	}
	return scopeNames[s]
}

// ParseScope returns the scope called name.
func ParseScope(name string) (Scope, error) {
	for i, scopeName := range scopeNames {
		if scopeName == name {
			return Scope(i), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownScope, "%q", name)
}

// Path returns the file of the scope relative to the parameter root.
func (s Scope) Path(ids robot.IDs, location string) (string, error) {
	switch s {
	case ScopeDefault:
		return DefaultFile, nil
	case ScopeLocation:
		return filepath.Join(location, DefaultFile), nil
	case ScopeBody:
		return bodyFile(ids.BodyID), nil
	case ScopeHead:
		return headFile(ids.HeadID), nil
	case ScopeLocationBody:
		return filepath.Join(location, bodyFile(ids.BodyID)), nil
	case ScopeLocationHead:
		return filepath.Join(location, headFile(ids.HeadID)), nil
	default:
		return "", errors.Wrapf(ErrUnknownScope, "%d", int(s))
	}
}

func bodyFile(bodyID string) string {
	return "body." + bodyID + ".json"
}

func headFile(headID string) string {
	return "head." + headID + ".json"
}

// Layer is one document in the merge order.
type Layer struct {
	Scope Scope
	Path  string
}

// Layers returns the documents to merge for a robot, lowest precedence first.
func Layers(ids robot.IDs, location string) []Layer {
	layers := make([]Layer, 0, len(scopeNames))
	for _, scope := range Scopes() {
		//nolint:errcheck
		path, _ := scope.Path(ids, location)
		layers = append(layers, Layer{Scope: scope, Path: path})
	}
	return layers
}
