package main

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/processguard/processguard/internal/config"
)

// captureOutput captures stdout/stderr produced while f runs.
func captureOutput(f func()) (string, string) {
	origStdout, origStderr := os.Stdout, os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout, os.Stderr = wOut, wErr

	var stdout, stderr string
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		stdout = buf.String()
	}()
	go func() {
		defer wg.Done()
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rErr)
		stderr = buf.String()
	}()

	f()

	wOut.Close()
	wErr.Close()
	os.Stdout, os.Stderr = origStdout, origStderr
	wg.Wait()

	return stdout, stderr
}

func executeCommandCapture(cmd *cobra.Command, args ...string) string {
	var out string
	stdout, stderr := captureOutput(func() {
		cmd.SetArgs(args)
		_ = cmd.Execute()
		cmd.SetArgs(nil)
	})
	out = stdout + stderr
	return out
}

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantOut []string
		notWant []string
	}{
		{
			name:    "full version output",
			args:    []string{"version"},
			wantOut: []string{"processguard", "v" + version},
		},
		{
			name:    "short version output",
			args:    []string{"version", "--short"},
			wantOut: []string{version},
			notWant: []string{"processguard v"},
		},
		{
			name:    "short version with -s flag",
			args:    []string{"version", "-s"},
			wantOut: []string{version},
			notWant: []string{"processguard v"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := executeCommandCapture(rootCmd, tt.args...)
			for _, want := range tt.wantOut {
				if !strings.Contains(output, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, output)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(output, notWant) {
					t.Errorf("expected output to NOT contain %q, got:\n%s", notWant, output)
				}
			}
		})
	}
}

func TestCheckConfigCommand_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.json"
	validConfig := `{
		"log_level": "info",
		"monitor_interval": 10,
		"log_retention_days": 7,
		"processes": [
			{"name": "web", "command": ["sleep", "1"]}
		]
	}`
	if err := os.WriteFile(path, []byte(validConfig), 0644); err != nil {
		t.Fatal(err)
	}

	output := executeCommandCapture(rootCmd, "check-config", "--config", path)
	if strings.Contains(output, "ERRORS") {
		t.Errorf("expected no validation errors, got:\n%s", output)
	}
	if !strings.Contains(output, "processes: 1") {
		t.Errorf("expected the summary to report one process, got:\n%s", output)
	}
}

// TestCheckConfigCommand_InvalidLogLevelSubprocess runs check-config on an
// invalid config in a subprocess, since the error path calls os.Exit.
func TestCheckConfigCommand_InvalidLogLevelSubprocess(t *testing.T) {
	if os.Getenv("PROCESSGUARD_CHECK_CONFIG_CRASHER") == "1" {
		rootCmd.SetArgs([]string{"check-config", "--config", os.Getenv("TEST_CONFIG_PATH"), "--quiet"})
		_ = rootCmd.Execute()
		return
	}

	dir := t.TempDir()
	path := dir + "/config.json"
	invalidConfig := `{"log_level": "not-a-level", "processes": []}`
	if err := os.WriteFile(path, []byte(invalidConfig), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestCheckConfigCommand_InvalidLogLevelSubprocess")
	cmd.Env = append(os.Environ(), "PROCESSGUARD_CHECK_CONFIG_CRASHER=1", "TEST_CONFIG_PATH="+path)
	output, err := cmd.CombinedOutput()

	if err == nil {
		t.Errorf("expected check-config to exit with an error, got success. Output:\n%s", output)
	}
	if !strings.Contains(string(output), "error") {
		t.Errorf("expected an error to be reported, got:\n%s", output)
	}
}

func TestCheckConfigCommand_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.json"
	validConfig := `{"log_level": "info", "processes": []}`
	if err := os.WriteFile(path, []byte(validConfig), 0644); err != nil {
		t.Fatal(err)
	}

	output := executeCommandCapture(rootCmd, "check-config", "--config", path, "--json")
	if !strings.Contains(output, "config_path") {
		t.Errorf("expected JSON report to include config_path, got:\n%s", output)
	}
}

func TestRootCommandHelp(t *testing.T) {
	output := executeCommandCapture(rootCmd, "--help")
	if !strings.Contains(output, "processguard") {
		t.Errorf("expected help output to mention processguard, got:\n%s", output)
	}
}

func TestAllSubcommandsRegistered(t *testing.T) {
	want := []string{"serve", "version", "check-config", "tail"}
	got := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}

func TestGetConfigPath_Priority(t *testing.T) {
	origCfgFile := cfgFile
	origEnv, hadEnv := os.LookupEnv("PROCESSGUARD_CONFIG")
	defer func() {
		cfgFile = origCfgFile
		if hadEnv {
			os.Setenv("PROCESSGUARD_CONFIG", origEnv)
		} else {
			os.Unsetenv("PROCESSGUARD_CONFIG")
		}
	}()

	cfgFile = "/explicit/config.json"
	os.Setenv("PROCESSGUARD_CONFIG", "/env/config.json")
	if got := getConfigPath(); got != "/explicit/config.json" {
		t.Errorf("flag should win, got %q", got)
	}

	cfgFile = ""
	if got := getConfigPath(); got != "/env/config.json" {
		t.Errorf("env var should win without a flag, got %q", got)
	}

	os.Unsetenv("PROCESSGUARD_CONFIG")
	if got := getConfigPath(); got != "/etc/processguard/config.json" {
		t.Errorf("expected the package default, got %q", got)
	}
}

func TestStartupOrder_RespectsDependencies(t *testing.T) {
	processes := []*config.Process{
		{Name: "web", DependsOn: []string{"cache"}},
		{Name: "cache"},
	}

	order, err := startupOrder(processes)
	if err != nil {
		t.Fatalf("startupOrder() error = %v", err)
	}

	cacheIdx, webIdx := -1, -1
	for i, name := range order {
		switch name {
		case "cache":
			cacheIdx = i
		case "web":
			webIdx = i
		}
	}
	if cacheIdx == -1 || webIdx == -1 || cacheIdx > webIdx {
		t.Errorf("expected cache before web, got order %v", order)
	}
}

func TestStartupOrder_RejectsUnknownDependency(t *testing.T) {
	processes := []*config.Process{
		{Name: "web", DependsOn: []string{"ghost"}},
	}
	if _, err := startupOrder(processes); err == nil {
		t.Error("expected an error for a dependency on an unknown process")
	}
}

func TestProcessByName(t *testing.T) {
	processes := []*config.Process{{Name: "a"}, {Name: "b"}}
	if p := processByName(processes, "b"); p == nil || p.Name != "b" {
		t.Errorf("expected to find process %q", "b")
	}
	if p := processByName(processes, "missing"); p != nil {
		t.Errorf("expected nil for an unknown process, got %+v", p)
	}
}

func TestServeCommand_FlagsRegistered(t *testing.T) {
	for _, name := range []string{"watch", "tracing", "tracing-exporter", "tracing-endpoint"} {
		if serveCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected serve flag %q to be registered", name)
		}
	}
}

func TestTailCommand_FlagsRegistered(t *testing.T) {
	for _, name := range []string{"lines", "follow"} {
		if tailCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected tail flag %q to be registered", name)
		}
	}
}
