package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotComparable is returned when two entities of different types are compared.
var ErrNotComparable = errors.New("entities are not comparable")

// InvalidAttributeError reports unknown field names given on construction.
type InvalidAttributeError struct {
	Type  string
	Names []string
}

func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("%s: invalid attributes: %s", e.Type, strings.Join(e.Names, ","))
}

// MissingMandatoryFieldError reports mandatory fields absent on construction.
type MissingMandatoryFieldError struct {
	Type  string
	Names []string
}

func (e *MissingMandatoryFieldError) Error() string {
	return fmt.Sprintf("%s: missing mandatory attributes: %s", e.Type, strings.Join(e.Names, ","))
}

// AttributeRestrictionError reports an attempt to set a field that may not be set.
type AttributeRestrictionError struct {
	Type   string
	Name   string
	Reason string
}

func (e *AttributeRestrictionError) Error() string {
	msg := fmt.Sprintf("cannot set '%s' on %s", e.Name, e.Type)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// InvalidValueError reports a value that cannot be stored in a field.
type InvalidValueError struct {
	Type  string
	Name  string
	Value any
	Err   error
}

func (e *InvalidValueError) Error() string {
	msg := fmt.Sprintf("%s.%s: cannot assign %T", e.Type, e.Name, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

// ValidationError reports a stored value violating a field constraint.
type ValidationError struct {
	Type   string
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Type, e.Name, e.Reason)
}
