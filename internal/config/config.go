package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PAIRCORE"

// newViper merges defaults, environment variables, flags and an optional
// config file. Without an explicit path a missing ./config.* is ignored.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	In        string
	Out       string
	StateOut  string
	PGDSN     string
	ChainID   uint64
	StartTime string
	Pair      string
	Token0    string
	Token1    string
	Factory   string
	LogLevel  string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":        "./data/logs.jsonl",
		"chain-id":   uint64(31337),
		"start-time": "1700000000",
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	return SimulateConfig{
		In:        v.GetString("in"),
		Out:       v.GetString("out"),
		StateOut:  v.GetString("state-out"),
		PGDSN:     v.GetString("pg-dsn"),
		ChainID:   v.GetUint64("chain-id"),
		StartTime: v.GetString("start-time"),
		Pair:      v.GetString("pair"),
		Token0:    v.GetString("token0"),
		Token1:    v.GetString("token1"),
		Factory:   v.GetString("factory"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}

// InspectConfig holds configuration for the inspect command.
type InspectConfig struct {
	RPCURL       string
	Pairs        []string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadInspect merges config file, environment variables, and flags into InspectConfig.
func LoadInspect(cfgFile string, flags *pflag.FlagSet) (InspectConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"max-retries":   3,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return InspectConfig{}, err
	}

	return InspectConfig{
		RPCURL:       v.GetString("rpc"),
		Pairs:        getStringSlice(v, "pair"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	if isNumeric(input) {
		return strconv.ParseUint(input, 10, 64)
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	if tm.Unix() < 0 {
		return 0, fmt.Errorf("timestamp %s is before 1970", input)
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
