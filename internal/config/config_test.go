package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/neo6systems/neo6/internal/testutil/tlstest"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "default.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9090
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090 (explicit value preserved)", cfg.Server.Port)
	}
	if cfg.Server.AdminPort != 4001 {
		t.Errorf("Server.AdminPort = %d, want default 4001", cfg.Server.AdminPort)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
	if len(cfg.Logging.Output) != 1 || cfg.Logging.Output[0] != "stdout" {
		t.Errorf("Logging.Output = %v, want [stdout]", cfg.Logging.Output)
	}
	if cfg.CircuitBreaker.FailureThreshold != 50 {
		t.Errorf("CircuitBreaker.FailureThreshold = %d, want 50", cfg.CircuitBreaker.FailureThreshold)
	}
}

func TestLoadExpandsJWTSecretEnvVar(t *testing.T) {
	t.Setenv("NEO6_JWT_SECRET_TEST", "s3cr3t")
	path := writeConfig(t, `
[security]
jwt_secret = "${NEO6_JWT_SECRET_TEST}"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Security.JWTSecret != "s3cr3t" {
		t.Errorf("Security.JWTSecret = %q, want s3cr3t", cfg.Security.JWTSecret)
	}
}

func TestLoadLeavesUnresolvedEnvVarLiteral(t *testing.T) {
	path := writeConfig(t, `
[security]
jwt_secret = "${NEO6_DOES_NOT_EXIST}"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Security.JWTSecret != "${NEO6_DOES_NOT_EXIST}" {
		t.Errorf("Security.JWTSecret = %q, want literal placeholder unresolved", cfg.Security.JWTSecret)
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "verbose"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid logging.level")
	}
}

func TestLoadRejectsTLSWithoutCertFiles(t *testing.T) {
	path := writeConfig(t, `
[security]
tls_enabled = true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when tls_enabled without cert_file/key_file")
	}
}

func TestLoadAcceptsTLSWithGeneratedCert(t *testing.T) {
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir, "neo6-test-ca")
	certPath, keyPath := ca.IssueServerCert(t, dir, "localhost", []string{"localhost"}, nil)

	path := writeConfig(t, `
[security]
tls_enabled = true
cert_file = "`+certPath+`"
key_file = "`+keyPath+`"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Security.TLSEnabled {
		t.Error("expected TLSEnabled true")
	}
	if cfg.Security.CertFile != certPath || cfg.Security.KeyFile != keyPath {
		t.Errorf("cert/key paths not preserved: %+v", cfg.Security)
	}
}

func TestLoadRejectsOutOfRangePort(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 70000
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
