package rules

import (
	"errors"
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

func writeRuleFile(t *testing.T, fsys afero.Fs, path, body string) {
	t.Helper()
	if err := afero.WriteFile(fsys, path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile(%q) error = %v", path, err)
	}
}

func TestLoadDir_SingleFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeRuleFile(t, fsys, "/rules/netcat.yaml", `
- name: Open netcat
  type: Exec
  condition: payload.filename == "/usr/bin/nc"
`)

	rules, err := LoadDir(fsys, "/rules")
	if err != nil {
		t.Fatalf("LoadDir() error = %v, want nil", err)
	}

	want := []RawRule{{
		Name:      "Open netcat",
		Type:      "Exec",
		Condition: `payload.filename == "/usr/bin/nc"`,
	}}
	if !reflect.DeepEqual(rules, want) {
		t.Errorf("LoadDir() = %#v, want %#v", rules, want)
	}
}

func TestLoadDir_OrderAcrossFiles(t *testing.T) {
	// Lexical traversal: 10-net.yaml before 20-exec.yaml, nested dir after
	// both siblings at its own position in the walk.
	fsys := afero.NewMemMapFs()
	writeRuleFile(t, fsys, "/rules/20-exec.yaml", `
- name: rule-c
  type: Exec
  condition: payload.argc > 0
`)
	writeRuleFile(t, fsys, "/rules/10-net.yaml", `
- name: rule-a
  type: Connect
  condition: payload.dst.port == 4444
- name: rule-b
  type: Connect
  condition: payload.dst.port == 5555
`)
	writeRuleFile(t, fsys, "/rules/sub/30-dns.yaml", `
- name: rule-d
  type: DnsQuery
  condition: payload.question_count > 0
`)

	rules, err := LoadDir(fsys, "/rules")
	if err != nil {
		t.Fatalf("LoadDir() error = %v, want nil", err)
	}

	var names []string
	for _, r := range rules {
		names = append(names, r.Name)
	}
	want := []string{"rule-a", "rule-b", "rule-c", "rule-d"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("rule order = %v, want %v", names, want)
	}
}

func TestLoadDir_IgnoresOtherExtensions(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeRuleFile(t, fsys, "/rules/readme.md", "not a rule file")
	writeRuleFile(t, fsys, "/rules/rules.yml", "- name: short extension")
	writeRuleFile(t, fsys, "/rules/ok.yaml", `
- name: only-one
  type: Exec
  condition: payload.argc == 0
`)

	rules, err := LoadDir(fsys, "/rules")
	if err != nil {
		t.Fatalf("LoadDir() error = %v, want nil", err)
	}
	if len(rules) != 1 || rules[0].Name != "only-one" {
		t.Errorf("LoadDir() = %#v, want exactly the .yaml rule", rules)
	}
}

func TestLoadDir_MissingRoot(t *testing.T) {
	fsys := afero.NewMemMapFs()

	_, err := LoadDir(fsys, "/does-not-exist")

	var patternErr *PatternError
	if !errors.As(err, &patternErr) {
		t.Fatalf("LoadDir() error = %v, want *PatternError", err)
	}
	if patternErr.Pattern != "/does-not-exist" {
		t.Errorf("Pattern = %q, want /does-not-exist", patternErr.Pattern)
	}
}

func TestLoadDir_RootIsFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeRuleFile(t, fsys, "/rules", "- name: x")

	_, err := LoadDir(fsys, "/rules")

	var patternErr *PatternError
	if !errors.As(err, &patternErr) {
		t.Fatalf("LoadDir() error = %v, want *PatternError", err)
	}
}

func TestLoadDir_MalformedYAMLAborts(t *testing.T) {
	// All-or-nothing: a single malformed file fails the whole load even when
	// other files are valid.
	fsys := afero.NewMemMapFs()
	writeRuleFile(t, fsys, "/rules/bad.yaml", "{{ not yaml")
	writeRuleFile(t, fsys, "/rules/good.yaml", `
- name: fine
  type: Exec
  condition: payload.argc == 0
`)

	_, err := LoadDir(fsys, "/rules")

	var parseErr *RuleParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("LoadDir() error = %v, want *RuleParseError", err)
	}
	if parseErr.Path != "/rules/bad.yaml" {
		t.Errorf("Path = %q, want /rules/bad.yaml", parseErr.Path)
	}
}
