package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configFileEnv = "CONFIG_FILE"

// hydrate fills the struct from an optional YAML file (path in CONFIG_FILE)
// and then overrides fields from environment variables. Nested structs map to
// PARENT_CHILD keys unless an explicit `env:"KEY"` tag is present.
func hydrate(target interface{}) error {
	if target == nil {
		return errors.New("config: nil target")
	}
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return errors.New("config: target must be a pointer to struct")
	}

	if path := os.Getenv(configFileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, target); err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	return overrideFromEnv(val.Elem(), "")
}

func overrideFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		meta := t.Field(i)

		if !field.CanSet() {
			continue
		}

		tag := meta.Tag.Get("env")
		if tag == "-" {
			continue
		}

		key := envKey(prefix, meta.Name)
		if tag != "" {
			key = tag
		}

		if field.Kind() == reflect.Struct {
			if err := overrideFromEnv(field, key); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		if err := setField(field, raw); err != nil {
			return fmt.Errorf("config: parse %s: %w", key, err)
		}
	}
	return nil
}

func envKey(prefix, name string) string {
	name = strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

func setField(field reflect.Value, raw string) error {
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		// Bare integers are taken as milliseconds; suffixed values ("30s")
		// go through time.ParseDuration.
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			field.SetInt(int64(time.Duration(ms) * time.Millisecond))
			return nil
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(parsed)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(parsed)
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(parsed)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
