package env

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestResolverResolve(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		localVars map[string]string
		fileVars  map[string]string
		expected  string
	}{
		{
			name:     "no placeholders",
			input:    "hello world",
			expected: "hello world",
		},
		{
			name:     "file-scope variable",
			input:    "{{token}}",
			fileVars: map[string]string{"token": "1"},
			expected: "1",
		},
		{
			name:      "request-local shadows file-scope",
			input:     "{{token}}",
			localVars: map[string]string{"token": "2"},
			fileVars:  map[string]string{"token": "1"},
			expected:  "2",
		},
		{
			name:     "missing stays literal",
			input:    "{{missing}}",
			expected: "{{missing}}",
		},
		{
			name:     "mixed resolved and missing",
			input:    "{{host}}/users/{{id}}",
			fileVars: map[string]string{"host": "http://api.test"},
			expected: "http://api.test/users/{{id}}",
		},
		{
			name:     "inner whitespace trimmed",
			input:    "{{ token }}",
			fileVars: map[string]string{"token": "1"},
			expected: "1",
		},
		{
			name:     "resolved value is not re-scanned",
			input:    "{{a}}",
			fileVars: map[string]string{"a": "{{b}}", "b": "x"},
			expected: "{{b}}",
		},
		{
			name:     "empty braces stay literal",
			input:    "{{}}",
			expected: "{{}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			got := r.Resolve(tt.input, tt.localVars, tt.fileVars)
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolverPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "envs.json")
	content := `{
		"$shared": {"k": "shared", "both": "shared", "onlyShared": "s"},
		"dev": {"k": "env", "both": "env", "onlyEnv": "e"}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	r := NewResolver()
	if err := r.LoadEnvironment(path); err != nil {
		t.Fatalf("LoadEnvironment() error = %v", err)
	}
	if err := r.SetEnvironment("dev"); err != nil {
		t.Fatalf("SetEnvironment() error = %v", err)
	}
	r.SetVariable("k", "override")

	tests := []struct {
		name      string
		input     string
		localVars map[string]string
		fileVars  map[string]string
		expected  string
	}{
		{
			name:      "request-local wins over everything",
			input:     "{{k}}",
			localVars: map[string]string{"k": "local"},
			fileVars:  map[string]string{"k": "file"},
			expected:  "local",
		},
		{
			name:     "file-scope wins over override",
			input:    "{{k}}",
			fileVars: map[string]string{"k": "file"},
			expected: "file",
		},
		{
			name:     "override wins over environment",
			input:    "{{k}}",
			expected: "override",
		},
		{
			name:     "environment entry resolves",
			input:    "{{onlyEnv}}",
			expected: "e",
		},
		{
			name:     "environment wins over shared",
			input:    "{{both}}",
			expected: "env",
		},
		{
			name:     "shared fills missing keys",
			input:    "{{onlyShared}}",
			expected: "s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.input, tt.localVars, tt.fileVars)
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolverSharedWithoutSelection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "envs.json")
	content := `{"$shared": {"base": "http://shared.test"}, "dev": {}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	r := NewResolver()
	if err := r.LoadEnvironment(path); err != nil {
		t.Fatalf("LoadEnvironment() error = %v", err)
	}

	got := r.Resolve("{{base}}", nil, nil)
	if got != "http://shared.test" {
		t.Errorf("Resolve({{base}}) = %q, want %q", got, "http://shared.test")
	}
}

func TestResolverSetEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "envs.json")
	content := `{"dev": {"host": "http://dev.test"}, "prod": {"host": "http://prod.test"}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	r := NewResolver()
	if err := r.LoadEnvironment(path); err != nil {
		t.Fatalf("LoadEnvironment() error = %v", err)
	}

	if err := r.SetEnvironment("staging"); err == nil {
		t.Error("SetEnvironment(staging) expected error for unknown environment")
	}
	if err := r.SetEnvironment("$shared"); err == nil {
		t.Error("SetEnvironment($shared) expected error: shared is not selectable")
	}

	if err := r.SetEnvironment("prod"); err != nil {
		t.Fatalf("SetEnvironment(prod) error = %v", err)
	}
	if got := r.Environment(); got != "prod" {
		t.Errorf("Environment() = %q, want %q", got, "prod")
	}
	if got := r.Resolve("{{host}}", nil, nil); got != "http://prod.test" {
		t.Errorf("Resolve({{host}}) = %q, want %q", got, "http://prod.test")
	}

	// Deselecting returns lookups to pass-through.
	if err := r.SetEnvironment(""); err != nil {
		t.Fatalf("SetEnvironment(\"\") error = %v", err)
	}
	if got := r.Resolve("{{host}}", nil, nil); got != "{{host}}" {
		t.Errorf("Resolve({{host}}) after deselect = %q, want pass-through", got)
	}
}

func TestResolverBuiltins(t *testing.T) {
	r := NewResolver()

	got := r.Resolve("{{$guid}}", nil, nil)
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("Resolve({{$guid}}) = %q, not a UUID: %v", got, err)
	}

	t.Setenv("RESTFILE_RESOLVER_TOKEN", "tok")
	got = r.Resolve("Bearer {{$processEnv RESTFILE_RESOLVER_TOKEN}}", nil, nil)
	if got != "Bearer tok" {
		t.Errorf("Resolve($processEnv) = %q, want %q", got, "Bearer tok")
	}

	// A builtin shadows nothing: plain names never reach the registry.
	got = r.Resolve("{{guid}}", nil, nil)
	if got != "{{guid}}" {
		t.Errorf("Resolve({{guid}}) = %q, want pass-through", got)
	}
}

func TestResolverBuiltinDeclineWarns(t *testing.T) {
	r := NewResolver()

	var warnings []string
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	got := r.Resolve("{{$randomInt x}}", nil, nil)
	if got != "{{$randomInt x}}" {
		t.Errorf("Resolve({{$randomInt x}}) = %q, want unchanged placeholder", got)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "$randomInt") {
		t.Errorf("warnings = %v, want one mentioning $randomInt", warnings)
	}

	// Unknown plain names pass through silently.
	warnings = nil
	r.Resolve("{{missing}}", nil, nil)
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none for plain unresolved names", warnings)
	}
}
