// Package feeders loads an orchestrator.Config from environment variables or
// a config file, following the teacher's Feeder abstraction: a feeder knows
// nothing about Config's meaning, only how to walk its exported fields and
// coerce whatever raw value it finds for each one.
package feeders

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// EnvFeeder populates a struct from environment variables named after each
// field's `env` tag, optionally prefixed (e.g. "ORCHESTRATOR_"). Grounded on
// the teacher's AffixedEnvFeeder naming convention
// (prefix + strings.ToUpper(tag)), simplified to a single prefix instead of
// the teacher's tenant-aware prefix+suffix scheme, which this module has no
// multi-tenant concept to drive.
type EnvFeeder struct {
	Prefix string
}

// NewEnvFeeder returns a feeder that reads unprefixed environment variables.
func NewEnvFeeder() *EnvFeeder {
	return &EnvFeeder{}
}

// NewPrefixedEnvFeeder returns a feeder that reads <prefix><TAG>.
func NewPrefixedEnvFeeder(prefix string) *EnvFeeder {
	return &EnvFeeder{Prefix: prefix}
}

// Feed populates structure (a pointer to a struct) from environment
// variables. Fields without an `env` tag are left untouched.
func (f *EnvFeeder) Feed(structure interface{}) error {
	v := reflect.ValueOf(structure)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return wrapFeederInvalidStructureError(structure)
	}
	return f.feedStruct(v.Elem())
}

func (f *EnvFeeder) feedStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := v.Field(i)

		if fv.Kind() == reflect.Struct {
			if err := f.feedStruct(fv); err != nil {
				return err
			}
			continue
		}

		tag, ok := field.Tag.Lookup("env")
		if !ok || tag == "-" {
			continue
		}
		key := f.Prefix + strings.ToUpper(tag)
		raw, present := os.LookupEnv(key)
		if !present {
			continue
		}
		if err := setFieldFromString(fv, raw); err != nil {
			return fmt.Errorf("%w: field %s from %s: %v", ErrEnvCannotConvert, field.Name, key, err)
		}
	}
	return nil
}

func setFieldFromString(fv reflect.Value, raw string) error {
	if !fv.CanSet() {
		return ErrEnvFieldCannotBeSet
	}
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := cast.ToBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration is reflect.Int64 with a String() method; accept
		// suffixed strings like "5s" before falling back to bare integers.
		if fv.Type().PkgPath() == "time" && fv.Type().Name() == "Duration" {
			if d, err := time.ParseDuration(raw); err == nil {
				fv.SetInt(int64(d))
				return nil
			}
		}
		n, err := cast.ToInt64(raw)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Float32, reflect.Float64:
		n, err := cast.ToFloat64(raw)
		if err != nil {
			return err
		}
		fv.SetFloat(n)
	default:
		return fmt.Errorf("%w: %s", ErrEnvUnsupportedType, fv.Kind())
	}
	return nil
}
