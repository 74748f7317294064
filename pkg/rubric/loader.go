package rubric

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed suite.schema.json
var suiteSchemaJSON []byte

const suiteSchemaURL = "https://rubric-gates.medtwin.dev/schemas/suite.schema.json"

var suiteSchema = mustCompileSuiteSchema()

func mustCompileSuiteSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(suiteSchemaURL, bytes.NewReader(suiteSchemaJSON)); err != nil {
		panic(fmt.Sprintf("rubric: embedded suite schema load failed: %v", err))
	}
	s, err := c.Compile(suiteSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("rubric: embedded suite schema compile failed: %v", err))
	}
	return s
}

// suiteFile is the on-disk YAML shape: one suite per file, one tier per suite.
type suiteFile struct {
	RubricSuite Tier `yaml:"rubric_suite"`
}

// LoadDir loads every *.yaml / *.yml suite under dir (including tier1/..tier3/
// subdirectories, one level deep) and constructs a Registry.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{Source: dir, Err: fmt.Errorf("read dir: %w", err)}
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			sub, err := os.ReadDir(filepath.Join(dir, entry.Name()))
			if err != nil {
				return nil, &LoadError{Source: filepath.Join(dir, entry.Name()), Err: fmt.Errorf("read dir: %w", err)}
			}
			for _, f := range sub {
				if !f.IsDir() && isSuiteFile(f.Name()) {
					paths = append(paths, filepath.Join(dir, entry.Name(), f.Name()))
				}
			}
			continue
		}
		if isSuiteFile(entry.Name()) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	return Load(paths...)
}

func isSuiteFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

// Load parses the given suite files and constructs a Registry. Every check
// kind must be executable by this process; tiers must be exactly {1,2,3}
// with no duplicates; check ids must be unique across the rubric version.
func Load(paths ...string) (*Registry, error) {
	tiers := make(map[int]Tier, len(TierNumbers))

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Source: path, Err: fmt.Errorf("read file: %w", err)}
		}
		tier, err := parseSuite(data)
		if err != nil {
			return nil, &LoadError{Source: path, Err: err}
		}
		if _, exists := tiers[tier.Number]; exists {
			return nil, &LoadError{Source: path, Err: fmt.Errorf("%w: tier %d defined twice", ErrDuplicateTier, tier.Number)}
		}
		tiers[tier.Number] = tier
	}

	return newRegistry(tiers)
}

// LoadFromBytes constructs a Registry from in-memory suite documents, keyed
// by a logical source name used in error reporting. Intended for callers that
// embed their rubrics rather than shipping a rubrics directory.
func LoadFromBytes(sources map[string][]byte) (*Registry, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	tiers := make(map[int]Tier, len(TierNumbers))
	for _, name := range names {
		tier, err := parseSuite(sources[name])
		if err != nil {
			return nil, &LoadError{Source: name, Err: err}
		}
		if _, exists := tiers[tier.Number]; exists {
			return nil, &LoadError{Source: name, Err: fmt.Errorf("%w: tier %d defined twice", ErrDuplicateTier, tier.Number)}
		}
		tiers[tier.Number] = tier
	}

	return newRegistry(tiers)
}

func parseSuite(data []byte) (Tier, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return Tier{}, fmt.Errorf("parse yaml: %w", err)
	}

	// Normalize through JSON so schema validation sees exactly what a JSON
	// decoder would produce.
	normalized, err := roundtripJSON(generic)
	if err != nil {
		return Tier{}, err
	}
	if err := suiteSchema.Validate(normalized); err != nil {
		return Tier{}, fmt.Errorf("%w: %v", ErrSuiteSchema, schemaErrorSummary(err))
	}

	var file suiteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Tier{}, fmt.Errorf("decode suite: %w", err)
	}
	return file.RubricSuite, nil
}

func roundtripJSON(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize suite: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize suite: %w", err)
	}
	return out, nil
}

// schemaErrorSummary flattens a jsonschema validation error into one line
// suitable for a LoadError message.
func schemaErrorSummary(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	leaves := ve.BasicOutput().Errors
	msgs := make([]string, 0, len(leaves))
	for _, l := range leaves {
		if l.Error == "" {
			continue
		}
		loc := l.InstanceLocation
		if loc == "" {
			loc = "<root>"
		}
		msgs = append(msgs, loc+": "+l.Error)
	}
	if len(msgs) == 0 {
		return err.Error()
	}
	return strings.Join(msgs, "; ")
}
