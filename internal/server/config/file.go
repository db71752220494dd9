package config

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filesmanager/internal/flagx"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by parseFile,
// e.g. FILESMANAGER_HTTP_ADDR.
const EnvPrefix = "FILESMANAGER"

// legacyEnv maps config keys to environment names kept for compatibility
// with existing deployments.
var legacyEnv = map[string]string{
	"folder_path": "FOLDER_PATH",
}

// parseFile overlays config with values from the optional config file
// (-c / -config, any format viper understands) and from the environment.
// Keys absent from both sources keep their current values.
func parseFile(config *Config, args []string) error {
	v := viper.New()

	current := map[string]any{}
	if err := mapstructure.Decode(config, &current); err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	for k, val := range current {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path := flagx.ConfigFileFlag(args); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(config, hook); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	return nil
}
