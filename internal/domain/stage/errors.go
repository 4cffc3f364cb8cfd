package stage

import "errors"

var (
	ErrUnknownStage   = errors.New("unknown stage")
	ErrInvalidCatalog = errors.New("invalid stage catalog")
)
