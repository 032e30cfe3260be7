package lstm

import "errors"

var (
	// ErrDimension reports a window, target, or parameter set whose size does
	// not agree with the model's declared dimensions.
	ErrDimension = errors.New("lstm: dimension mismatch")
	// ErrConfig reports non-positive model sizes.
	ErrConfig = errors.New("lstm: invalid config")
	// ErrTarget reports a target vector that is not one-hot.
	ErrTarget = errors.New("lstm: target is not one-hot")
	// ErrNoExamples is returned by TrainEpoch for an empty example set.
	ErrNoExamples = errors.New("lstm: no training examples")
)
