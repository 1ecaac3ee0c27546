package config

import "os"

// EnvConfigPath names the environment variable that overrides the config path.
const EnvConfigPath = "METAL_SERVER_CONFIG"

// DefaultConfigPath is used when neither a flag nor the environment names a config file.
const DefaultConfigPath = "/etc/metal-server/config.toml"

// ResolvePath picks the config file: an explicit flag value, else
// $METAL_SERVER_CONFIG, else DefaultConfigPath. explicit reports whether the
// path was chosen by the operator, in which case it must exist.
func ResolvePath(flag string) (path string, explicit bool) {
	if flag != "" {
		return flag, true
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, true
	}
	return DefaultConfigPath, false
}
