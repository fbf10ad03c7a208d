package domain

import "errors"

var (
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidGoal   = errors.New("invalid goal")
	ErrInvalidPeriod = errors.New("invalid period")
	ErrUnknownKind   = errors.New("unknown target kind")
)
