// Package target describes the Nextcloud nodes under test: which nodes
// exist, how their URLs are built, and where their credentials come from.
package target

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrUnknownNode is returned when a node override names a node that is not
// in the catalog.
var ErrUnknownNode = errors.New("unknown node")

// Catalog is the "global" section of the expected-results YAML file.
type Catalog struct {
	BaseURL      string   `yaml:"baseUrl"`
	TestPrefix   string   `yaml:"testPrefix"`
	NodePrefix   string   `yaml:"nodePrefix"`
	DocPrefix    string   `yaml:"docPrefix"`
	IndexSuffix  string   `yaml:"indexSuffix"`
	TestGSS      bool     `yaml:"testGss"`
	AllNodes     []string `yaml:"allnodes"`
	FullNodes    []string `yaml:"fullnodes"`
	MultiNodes   []string `yaml:"multinodes"`
	TestBrowsers []string `yaml:"testBrowsers"`
}

type catalogFile struct {
	Global Catalog `yaml:"global"`
}

// LoadCatalog reads the node catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	if f.Global.BaseURL == "" {
		return nil, errors.New("parsing catalog: global.baseUrl is required")
	}

	return &f.Global, nil
}

// Options selects the environment and narrows the node lists.
type Options struct {
	Environment string   // "test" or "prod"
	Nodes       []string // restrict every node list to these, when non-empty
	Customers   []string // like Nodes, but names outside allnodes are skipped
	Browsers    []string // replace the browser list, when non-empty
}

// Target is a catalog bound to one environment.
type Target struct {
	Catalog

	Environment  string
	Ignored      []string // customer names that are not catalog nodes
	targetPrefix string
}

// New binds a catalog to an environment. Anything other than "prod" is
// treated as "test".
func New(c *Catalog, opts Options) (*Target, error) {
	t := &Target{Catalog: *c}

	if opts.Environment == "prod" {
		t.Environment = "prod"
		t.targetPrefix = ""
	} else {
		t.Environment = "test"
		t.targetPrefix = "." + c.TestPrefix
	}

	nodes := opts.Nodes
	if len(nodes) > 0 {
		for _, n := range nodes {
			if !slices.Contains(c.AllNodes, n) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownNode, n)
			}
		}
	} else {
		for _, n := range opts.Customers {
			if slices.Contains(c.AllNodes, n) {
				nodes = append(nodes, n)
			} else {
				t.Ignored = append(t.Ignored, n)
			}
		}
	}

	if len(nodes) > 0 {
		t.AllNodes = slices.Clone(nodes)
		t.FullNodes = slices.Clone(nodes)
		t.MultiNodes = slices.Clone(nodes)
	}

	if len(opts.Browsers) > 0 {
		t.TestBrowsers = slices.Clone(opts.Browsers)
	}

	return t, nil
}
