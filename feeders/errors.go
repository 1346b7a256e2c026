package feeders

import (
	"errors"
	"fmt"
)

// Static error definitions for feeders to comply with linting rules.

var (
	ErrEnvInvalidStructureType = errors.New("expected pointer to struct")
	ErrEnvFieldCannotBeSet     = errors.New("field cannot be set")
	ErrEnvUnsupportedType      = errors.New("unsupported field type")
	ErrEnvCannotConvert        = errors.New("cannot convert environment value")

	ErrTomlCannotConvert = errors.New("cannot decode toml into struct")
	ErrYamlCannotConvert = errors.New("cannot decode yaml into struct")
)

func wrapFeederInvalidStructureError(got interface{}) error {
	return fmt.Errorf("%w, got %T", ErrEnvInvalidStructureType, got)
}

func wrapTomlConvertError(value interface{}, fieldType, fieldPath string) error {
	return fmt.Errorf("%w: %v (%s) for %s", ErrTomlCannotConvert, value, fieldType, fieldPath)
}

func wrapYamlConvertError(value interface{}, fieldType, fieldPath string) error {
	return fmt.Errorf("%w: %v (%s) for %s", ErrYamlCannotConvert, value, fieldType, fieldPath)
}
