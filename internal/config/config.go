// Package config contains configuration of the radio command and the code to load it.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/radiocast/radio"
	"github.com/radiocast/radio/internal/logging"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/go-envparse"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is a prefix of environment variables understood by radio.
const EnvPrefix = "RADIO"

type Config struct {
	// Connector options, on the top level of the config file.
	radio.Config `mapstructure:",squash"`
	// Log is a configuration for logging.
	Log logging.Config `mapstructure:"log" json:"log"`
	// Metrics is a configuration of Prometheus metrics endpoint.
	Metrics Metrics `mapstructure:"metrics" json:"metrics"`
}

type Metrics struct {
	// Address to serve /metrics on, ex. :9090. Empty disables the endpoint.
	Address string `mapstructure:"address" json:"address"`
}

type Meta struct {
	FileNotFound bool
	DotEnvUsed   bool
	UnknownKeys  []string
	UnknownEnvs  []string
}

// Validate checks Config.
func (c Config) Validate() error {
	return c.Config.Validate()
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"host":            "host",
	"auth-endpoint":   "auth_endpoint",
	"namespace":       "namespace",
	"log.level":       "log.level",
	"log.file":        "log.file",
	"metrics.address": "metrics.address",
}

// DefineFlags adds persistent flags overriding config keys.
func DefineFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP("host", "", "", "WebSocket URL of broadcasting server, ex. ws://localhost:6001/app")
	flags.StringP("auth-endpoint", "", "", "URL of channel authorization endpoint")
	flags.StringP("namespace", "", "", "namespace prepended to listened event names")
	flags.StringP("log.level", "", "info", "set the log level: trace, debug, info, warn, error, fatal or none")
	flags.StringP("log.file", "", "", "optional log file - if not specified logs go to STDOUT")
	flags.StringP("metrics.address", "", "", "address to serve Prometheus metrics on")
}

// Load reads configuration from file, environment and command flags, in
// increasing priority. Missing config file is not an error, see Meta.
func Load(cmd *cobra.Command, configFile string) (Config, Meta, error) {
	meta := Meta{}
	used, err := loadDotEnv(".env")
	if err != nil {
		return Config{}, Meta{}, err
	}
	meta.DotEnvUsed = used

	v := viper.NewWithOptions(viper.WithDecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	setDefaults(v, defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for name, key := range flagKeys {
			if flag := lookupFlag(cmd, name); flag != nil {
				_ = v.BindPFlag(key, flag)
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		err := v.ReadInConfig()
		if err != nil {
			var pathErr *os.PathError
			if errors.As(err, &pathErr) {
				meta.FileNotFound = true
			} else {
				return Config{}, Meta{}, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	conf := Config{}
	if err := v.Unmarshal(&conf); err != nil {
		return Config{}, Meta{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	keys := knownKeys(reflect.TypeOf(conf), "")
	meta.UnknownKeys = findUnknownKeys(v.AllKeys(), keys)
	meta.UnknownEnvs = checkEnvironmentVars(keys)
	return conf, meta, nil
}

func defaults() Config {
	return Config{
		Config: radio.DefaultConfig(),
		Log:    logging.Config{Level: "info"},
	}
}

func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag
	}
	return cmd.InheritedFlags().Lookup(name)
}

func loadDotEnv(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("error loading %s file: %w", path, err)
	}
	return true, nil
}

// setDefaults registers every key of conf in v, so that environment
// variables are considered for all of them during Unmarshal.
func setDefaults(v *viper.Viper, conf Config) {
	m := map[string]any{}
	if err := mapstructure.Decode(conf, &m); err != nil {
		return
	}
	setDefaultsMap(v, m, "")
}

func setDefaultsMap(v *viper.Viper, m map[string]any, parent string) {
	for key, value := range m {
		if nested, ok := value.(map[string]any); ok {
			setDefaultsMap(v, nested, appendKeyPath(parent, key))
			continue
		}
		v.SetDefault(appendKeyPath(parent, key), value)
	}
}

// knownKeys collects dotted keys of typ from mapstructure tags, walking
// squashed embedded structs and nested structs.
func knownKeys(typ reflect.Type, parent string) map[string]struct{} {
	keys := map[string]struct{}{}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("mapstructure")
		fieldType := field.Type
		if fieldType.Kind() == reflect.Ptr {
			fieldType = fieldType.Elem()
		}
		if field.Anonymous && strings.Contains(tag, "squash") {
			for key := range knownKeys(fieldType, parent) {
				keys[key] = struct{}{}
			}
			continue
		}
		if tag == "" || tag == "-" {
			continue
		}
		key := appendKeyPath(parent, tag)
		if fieldType.Kind() == reflect.Struct && fieldType.String() != "time.Time" {
			for nested := range knownKeys(fieldType, key) {
				keys[nested] = struct{}{}
			}
			continue
		}
		keys[key] = struct{}{}
	}
	return keys
}

func findUnknownKeys(settings []string, known map[string]struct{}) []string {
	var unknownKeys []string
	for _, key := range settings {
		if _, ok := known[key]; ok {
			continue
		}
		if isMapEntry(key, known) {
			continue
		}
		unknownKeys = append(unknownKeys, key)
	}
	sort.Strings(unknownKeys)
	return unknownKeys
}

// isMapEntry reports whether key is an entry of a known map key such as
// headers.authorization.
func isMapEntry(key string, known map[string]struct{}) bool {
	for i := strings.LastIndex(key, "."); i > 0; i = strings.LastIndex(key[:i], ".") {
		if _, ok := known[key[:i]]; ok {
			return true
		}
	}
	return false
}

func appendKeyPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// EnvName returns the environment variable for a config key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func checkEnvironmentVars(known map[string]struct{}) []string {
	knownEnvs := make(map[string]struct{}, len(known))
	for key := range known {
		knownEnvs[EnvName(key)] = struct{}{}
	}
	var unknownEnvs []string
	for _, envVar := range os.Environ() {
		kv, err := envparse.Parse(strings.NewReader(envVar))
		if err != nil {
			continue
		}
		for envKey := range kv {
			if !strings.HasPrefix(envKey, EnvPrefix+"_") {
				continue
			}
			if isKubernetesEnvVar(envKey) {
				continue
			}
			if _, ok := knownEnvs[envKey]; !ok {
				unknownEnvs = append(unknownEnvs, envKey)
			}
		}
	}
	sort.Strings(unknownEnvs)
	return unknownEnvs
}

// Kubernetes adds service variables with the same prefix for a service
// named radio.
var k8sEnvRegex = regexp.MustCompile(`^RADIO(?:_[A-Z]+)?_(PORT|SERVICE_)`)

func isKubernetesEnvVar(envKey string) bool {
	return k8sEnvRegex.MatchString(envKey)
}
