package main

import (
	"bufio"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
)

// Config is the TOML-configurable part of the service.
type Config struct {
	Node      string // websocket or IPC endpoint of the execution node
	Verbosity int
}

var defaultConfig = Config{
	Node:      "ws://127.0.0.1:8546",
	Verbosity: 3,
}

// These settings ensure that TOML keys use the same names as Go struct
// fields and that unknown keys are rejected instead of silently dropped.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		if unicode.IsUpper(rune(field[0])) {
			return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
		}
		return nil
	},
}

func loadConfig(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = fmt.Errorf("%v, %s", file, err)
	}
	return err
}
