package config

import (
	"encoding/json"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Changes is the difference between two parameter documents, left and right,
// where left is usually the loaded one and right the updated one.
type Changes struct {
	Left, Right map[string]any
	// Patch holds the leaves of right that differ from left.
	Patch      map[string]any
	Equal      bool
	PrettyDiff string
}

// DiffDocuments returns the changes from left to right. The pretty diff is only rendered when
// requested since it is expensive for large documents.
func DiffDocuments(left, right map[string]any, pretty bool) (_ *Changes, err error) {
	var prettyText string
	if pretty {
		prettyText, err = PrettyDiff(left, right)
		if err != nil {
			return nil, err
		}
	}
	patch := Diff(left, right)
	return &Changes{
		Left:       left,
		Right:      right,
		Patch:      patch,
		Equal:      len(patch) == 0,
		PrettyDiff: prettyText,
	}, nil
}

// PrettyDiff renders the insertions and deletions between the indented JSON forms of left and
// right.
func PrettyDiff(left, right any) (string, error) {
	leftMd, err := json.MarshalIndent(left, "", " ")
	if err != nil {
		return "", err
	}
	rightMd, err := json.MarshalIndent(right, "", " ")
	if err != nil {
		return "", err
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(leftMd), string(rightMd), true)
	filteredDiffs := make([]diffmatchpatch.Diff, 0, len(diffs))
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			continue
		}
		filteredDiffs = append(filteredDiffs, d)
	}
	return dmp.DiffPrettyText(filteredDiffs), nil
}

// String returns a pretty version of the changes.
func (c *Changes) String() string {
	return c.PrettyDiff
}
