// Package configx overlays a config file and environment variables onto a
// struct that already holds its defaults.
package configx

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadDotEnv loads the given .env files (".env" when none are named) into the
// process environment. Missing files are skipped and variables that are
// already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Overlay decodes file (json, yaml or toml by extension, skipped when empty)
// and then <envPrefix>_<KEY> environment variables into cfg. cfg must be a
// pointer to a struct whose fields carry mapstructure tags. Fields not named
// by either source keep their current value.
func Overlay(cfg any, envPrefix, file string) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v, cfg); err != nil {
		return err
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// setDefaults registers every tagged field with its current value, which is
// also what makes viper look the key up in the environment.
func setDefaults(v *viper.Viper, cfg any) error {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config must be a pointer to struct, got %T", cfg)
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		key, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if key == "" || key == "-" || !f.IsExported() {
			continue
		}
		v.SetDefault(key, rv.Field(i).Interface())
	}
	return nil
}
