package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfigDefault(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")
	if AppConfig.Hub.Admin == "" {
		t.Fatal("expected a non-empty default hub admin")
	}
}

func TestLoadConfigOverride(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("local")
	if AppConfig.HTTP.QueryListenAddr == "" {
		t.Fatal("expected local.yaml to set a query listen address")
	}
}

func TestLoadConfigSandbox(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "config"), 0o700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	data := []byte("hub:\n  admin: sandbox-admin\n  vlp_code_id: 7\n")
	if err := os.WriteFile(filepath.Join(root, "config", "default.yaml"), data, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := os.Chdir(root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")

	if AppConfig.Hub.Admin != "sandbox-admin" {
		t.Fatalf("expected hub admin sandbox-admin, got %s", AppConfig.Hub.Admin)
	}
	if AppConfig.Hub.VlpCodeID != 7 {
		t.Fatalf("expected vlp_code_id 7, got %d", AppConfig.Hub.VlpCodeID)
	}
}
