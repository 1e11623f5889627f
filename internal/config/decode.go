package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DecodeConfig holds configuration for the decode command. RPCURL is
// optional and only used to look up token0/token1 of unknown pairs.
type DecodeConfig struct {
	RPCURL             string
	In                 string
	Out                string
	Errors             string
	LogLevel           string
	Topic0Map          map[string]string
	IncludeShareEvents bool
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":                  "./data/typed_events.jsonl",
		"errors":               "./data/decode_errors.jsonl",
		"include-share-events": false,
	})
	if err != nil {
		return DecodeConfig{}, err
	}

	return DecodeConfig{
		RPCURL:             v.GetString("rpc"),
		In:                 v.GetString("in"),
		Out:                v.GetString("out"),
		Errors:             v.GetString("errors"),
		LogLevel:           v.GetString("log-level"),
		Topic0Map:          getStringMap(v, "topic0-map"),
		IncludeShareEvents: v.GetBool("include-share-events"),
	}, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	switch typed := v.Get(key).(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

// parseStringMap reads "key=value,key=value"; malformed entries are dropped.
func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	for _, pair := range strings.Split(input, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
