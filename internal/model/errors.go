package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData matches any *InsufficientDataError via errors.Is.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMalformedInput matches any *MalformedInputError via errors.Is.
	ErrMalformedInput = errors.New("malformed input")
)

// InsufficientDataError reports a candle window shorter than a stage requires.
type InsufficientDataError struct {
	Stage string // "heikin-ashi", "pipeline", ...
	Have  int
	Need  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: have %d candles, need at least %d", e.Stage, e.Have, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// MalformedInputError reports a candle with a missing or non-finite field,
// or a window whose timestamps are not strictly increasing.
type MalformedInputError struct {
	Index  int
	Field  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input: candle %d field %q: %s", e.Index, e.Field, e.Reason)
}

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }
