package builder

import (
	"errors"
	"fmt"
)

// ErrBuildTransform matches every *TransformError.
var ErrBuildTransform = errors.New("build transform failed")

// Stage names the step of a sample's pipeline that failed
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageFeature Stage = "transform-feature"
	StageLabel   Stage = "transform-label"
	StageEncode  Stage = "encode"
)

// TransformError reports a sample that could not be fetched, transformed or
// encoded. It aborts the build.
type TransformError struct {
	Index int
	Stage Stage
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("sample %d: %s failed: %v", e.Index, e.Stage, e.Err)
}

func (e *TransformError) Unwrap() []error {
	return []error{ErrBuildTransform, e.Err}
}
