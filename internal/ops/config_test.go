package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	loaded, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ListenAddr != ":8080" {
		t.Fatalf("listen addr mismatch: %s", loaded.ListenAddr)
	}
	if loaded.Threshold != 5 || loaded.Cooldown != 60*time.Second {
		t.Fatalf("breaker defaults mismatch: %+v", loaded)
	}
	if loaded.ErrCapacity != 1000 || loaded.ErrMaxAge != 24*time.Hour {
		t.Fatalf("error log defaults mismatch: %+v", loaded)
	}
	if loaded.Features.EnableStore {
		t.Fatal("store must default to disabled")
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"listenAddr": ":9090", "wsQueueSize": 64},
		"breaker": {
			"threshold": 3,
			"cooldownSeconds": 30,
			"modules": [
				{"name": "warehouse", "baseUrl": "http://warehouse.local", "healthPath": "/health"},
				{"name": "iot-gateway", "baseUrl": "http://iot.local"}
			]
		},
		"webhooks": ["warehouse", "quality"],
		"errorLog": {"capacity": 500, "maxAgeHours": 12},
		"features": {"enableStore": true}
	}`)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ListenAddr != ":9090" || loaded.WSQueueSize != 64 {
		t.Fatalf("server config mismatch: %+v", loaded)
	}
	if loaded.Threshold != 3 || loaded.Cooldown != 30*time.Second {
		t.Fatalf("breaker config mismatch: %+v", loaded)
	}
	if len(loaded.Modules) != 2 || loaded.Modules[0].Name != "warehouse" {
		t.Fatalf("modules mismatch: %+v", loaded.Modules)
	}
	if loaded.ErrCapacity != 500 || loaded.ErrMaxAge != 12*time.Hour {
		t.Fatalf("error log mismatch: %+v", loaded)
	}
	if !loaded.Features.EnableStore {
		t.Fatal("store flag not resolved")
	}
}

func TestLoadRejectsDuplicateModules(t *testing.T) {
	path := writeConfig(t, `{
		"breaker": {"modules": [
			{"name": "warehouse", "baseUrl": "http://a"},
			{"name": "warehouse", "baseUrl": "http://b"}
		]}
	}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected duplicate module error")
	}
}

func TestLoadRejectsModuleWithoutURL(t *testing.T) {
	path := writeConfig(t, `{"breaker": {"modules": [{"name": "warehouse"}]}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected missing base url error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.json"); err == nil {
		t.Fatal("expected read error")
	}
}
