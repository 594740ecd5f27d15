package rules

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

/*
 * Rule file discovery and decoding.
 *
 * Discovers every *.yaml file under the configured root (recursive, lexical
 * traversal order) and decodes each as a list of raw rules. The concatenation
 * preserves per-file order and inter-file discovery order, which later pins
 * the within-group evaluation order of compiled rules.
 *
 * Loading is all-or-nothing: the first unreadable or malformed file aborts
 * the whole load. There is no skip-and-continue mode.
 *
 * The walk runs over afero.Fs so tests exercise the loader against an
 * in-memory filesystem.
 */

// RuleExtension is the recognized rule-file extension.
const RuleExtension = ".yaml"

// RawRule is one record of a rule file, consumed once at compile time.
type RawRule struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Condition string `yaml:"condition"`
}

// LoadDir reads every rule file under root and returns the concatenated rule
// list. Returns *PatternError, *RuleLoadError or *RuleParseError on failure.
func LoadDir(fsys afero.Fs, root string) ([]RawRule, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, &PatternError{Pattern: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &PatternError{Pattern: root, Err: fs.ErrInvalid}
	}

	var rules []RawRule
	err = afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return &RuleLoadError{Path: path, Err: err}
		}
		if info.IsDir() || filepath.Ext(path) != RuleExtension {
			return nil
		}
		fileRules, err := loadFile(fsys, path)
		if err != nil {
			return err
		}
		rules = append(rules, fileRules...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// loadFile reads and decodes a single rule file as a list of raw rules.
func loadFile(fsys afero.Fs, path string) ([]RawRule, error) {
	body, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, &RuleLoadError{Path: path, Err: err}
	}

	var rules []RawRule
	if err := yaml.Unmarshal(body, &rules); err != nil {
		return nil, &RuleParseError{Path: path, Err: err}
	}
	return rules, nil
}
