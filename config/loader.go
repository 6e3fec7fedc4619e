package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
)

const (
	configFileName = "config.yml"
	envFileName    = ".env"
)

type options struct {
	configFile string
	envFile    string
	aliases    map[string]string
}

// LoaderOption adjusts LoadConfig.
type LoaderOption func(*options)

// WithConfigFile loads path instead of searching for config.yml.
func WithConfigFile(path string) LoaderOption {
	return func(o *options) { o.configFile = path }
}

// WithEnvFile loads path instead of searching for a .env file.
func WithEnvFile(path string) LoaderOption {
	return func(o *options) { o.envFile = path }
}

// WithEnvAliases maps extra environment variable names onto config keys,
// e.g. {"CHANNEL_SECRET": "line.channel_secret"}. The canonical variable
// for a key takes precedence over its aliases.
func WithEnvAliases(aliases map[string]string) LoaderOption {
	return func(o *options) { o.aliases = aliases }
}

// LoadConfig fills cfg from, in rising precedence, config.yml and the
// environment (after loading a .env file, which never overrides variables
// already set). Each mapstructure key of cfg is bound to its upper-cased
// underscore form, so line.channel_secret reads LINE_CHANNEL_SECRET.
// A missing file is skipped; an unreadable one is logged and skipped.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	dirs := searchDirs(serviceName)
	if o.configFile == "" {
		o.configFile = firstExisting(dirs, configFileName)
	}
	if o.envFile == "" {
		o.envFile = firstExisting(dirs, envFileName+"."+serviceName)
	}
	if o.envFile == "" {
		o.envFile = firstExisting(dirs, envFileName)
	}

	if exists(o.envFile) {
		if err := godotenv.Load(o.envFile); err != nil {
			logger.Warn("skipping env file", logger.Fields("file", o.envFile, logger.FieldError, err.Error()))
		}
	}

	v := viper.New()
	if exists(o.configFile) {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("skipping config file", logger.Fields("file", o.configFile, logger.FieldError, err.Error()))
		}
	}

	byKey := map[string][]string{}
	for env, key := range o.aliases {
		byKey[key] = append(byKey[key], env)
	}
	for _, key := range Keys(cfg) {
		names := append([]string{EnvName(key)}, byKey[key]...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", serviceName, err)
	}
	return nil
}

// EnvName is the environment variable bound to a config key.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Keys lists the dotted mapstructure keys of the leaf fields of cfg.
// Squashed embedded structs contribute their keys without a prefix. Maps
// are leaves.
func Keys(cfg any) []string {
	t := reflect.TypeOf(cfg)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	collectKeys(t, "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, squash := parseTag(f)
		if name == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		isStruct := ft.Kind() == reflect.Struct && ft.PkgPath() != "time"
		switch {
		case squash && isStruct:
			collectKeys(ft, prefix, keys)
		case isStruct:
			collectKeys(ft, prefix+name+".", keys)
		default:
			*keys = append(*keys, prefix+name)
		}
	}
}

func parseTag(f reflect.StructField) (name string, squash bool) {
	tag := f.Tag.Get("mapstructure")
	parts := strings.Split(tag, ",")
	name = parts[0]
	for _, p := range parts[1:] {
		if p == "squash" {
			squash = true
		}
	}
	if name == "" {
		name = strings.ToLower(f.Name)
	}
	return name, squash || (f.Anonymous && tag == "")
}

// searchDirs lists where config.yml and .env are looked for: the command
// directory of the service, then the working directory. A dashed service
// name such as "line-mojiokoshi" also matches cmd/mojiokoshi.
func searchDirs(serviceName string) []string {
	names := []string{serviceName}
	if i := strings.LastIndex(serviceName, "-"); i >= 0 {
		names = append(names, serviceName[i+1:])
	}
	var dirs []string
	for _, up := range []string{".", "..", filepath.Join("..", "..")} {
		for _, name := range names {
			dirs = append(dirs, filepath.Join(up, "cmd", name))
		}
	}
	return append(dirs, ".")
}

func firstExisting(dirs []string, name string) string {
	for _, dir := range dirs {
		if p := filepath.Join(dir, name); exists(p) {
			return p
		}
	}
	return ""
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
