package config

import (
	"fmt"
	"os"
)

// WriteDefaultTemplate writes a starter default.toml to path, refusing to
// clobber an existing file unless overwrite is set.
func WriteDefaultTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config: already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o600)
}

const defaultTemplate = `[server]
host = "0.0.0.0"
port = 8080
admin_port = 4001
max_connections = 1000
timeout_ms = 30000

[protocols]
library_path = "./plugins"
auto_load = true
enabled = ["rest", "tcp", "mq", "tn3270"]

[security]
tls_enabled = false
cert_file = ""
key_file = ""
jwt_secret = "${NEO6_JWT_SECRET}"

[logging]
level = "info"
format = "text"
output = ["stdout"]

[metrics]
enabled = true
endpoint = "/metrics"
collect_interval_s = 15

[circuit_breaker]
enabled = true
failure_threshold = 50
recovery_timeout_s = 60
half_open_max_calls = 1
`
