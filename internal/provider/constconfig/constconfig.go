// Package constconfig implements a provider for user-defined constant
// signals loaded from a YAML manifest: values that don't come from
// hardware but are fixed per-deployment facts an operator wants to expose
// on the same interface as live telemetry (a TDP ceiling, a SKU label, a
// cluster-assigned power budget). Each value's template is rendered once
// at load time against a per-host context using text/template and sprig,
// so the same manifest can assign different constants to different hosts
// without per-host files.
package constconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/topology"
)

// entry is one signal's manifest declaration.
type entry struct {
	Description string `yaml:"description"`
	Domain      string `yaml:"domain"`
	Aggregation string `yaml:"aggregation"`
	// Value is a text/template expression evaluated once at load time
	// against {{ .Hostname }} and {{ .Env.NAME }}, expected to render to
	// a number.
	Value string `yaml:"value"`
}

// Manifest is the top-level YAML shape: a flat map of signal name to
// entry, matching ConstConfigIOGroup's "CONST_CONFIG::" namespacing
// convention without requiring the prefix in the file itself.
type Manifest map[string]entry

// renderContext is what manifest value templates are evaluated against.
type renderContext struct {
	Hostname string
	Env      map[string]string
}

func loadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("constconfig: read %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("constconfig: parse %s: %w", path, err)
	}
	return m, nil
}

func aggFromString(s string) provider.AggKind {
	switch strings.ToLower(s) {
	case "sum":
		return provider.AggSum
	case "average", "avg":
		return provider.AggAverage
	case "min":
		return provider.AggMin
	case "max":
		return provider.AggMax
	case "expect_same":
		return provider.AggExpectSame
	default:
		return provider.AggSelectFirst
	}
}

// Load builds the constconfig provider from a manifest file, resolving
// every entry's domain and rendering its value template against hostname
// and the process environment. A malformed domain or template is a
// load-time error rather than a deferred read-time one, since these
// signals never change after being loaded.
func Load(path, hostname string) (*provider.Base, error) {
	manifest, err := loadManifest(path)
	if err != nil {
		return nil, err
	}

	envMap := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			envMap[kv[:i]] = kv[i+1:]
		}
	}
	ctx := renderContext{Hostname: hostname, Env: envMap}

	signals := make(map[string]provider.SignalDef, len(manifest))
	values := make(map[string]float64, len(manifest))

	for name, e := range manifest {
		domain, err := topology.ParseDomain(e.Domain)
		if err != nil {
			return nil, fmt.Errorf("constconfig: signal %q: %w", name, err)
		}
		v, err := renderValue(name, e.Value, ctx)
		if err != nil {
			return nil, err
		}
		values[name] = v
		signals[name] = provider.SignalDef{
			Domain: domain,
			Meta: provider.Meta{
				Aggregation: aggFromString(e.Aggregation),
				Description: e.Description,
				Behavior:    provider.BehaviorConstant,
			},
		}
	}

	b := &provider.Base{
		ProviderName: providerName(path),
		Signals:      signals,
		Controls:     map[string]provider.ControlDef{},
		ReadFn: func(name string, domain topology.Domain, idx int) (float64, error) {
			v, ok := values[name]
			if !ok {
				return 0, fmt.Errorf("constconfig: unknown signal %q", name)
			}
			return v, nil
		},
		WriteFn: func(name string, domain topology.Domain, idx int, value float64) error {
			return fmt.Errorf("constconfig: %q is read-only", name)
		},
	}
	return b, nil
}

// providerName derives "CONST_CONFIG:<basename>" from a manifest path,
// so multiple manifests discovered by internal/plugin register as
// distinct providers instead of colliding on a shared fixed name.
func providerName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")
	return "CONST_CONFIG:" + base
}

func renderValue(name, tmpl string, ctx renderContext) (float64, error) {
	t, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return 0, fmt.Errorf("constconfig: signal %q: parse template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return 0, fmt.Errorf("constconfig: signal %q: render template: %w", name, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(buf.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("constconfig: signal %q: rendered value %q is not numeric: %w", name, buf.String(), err)
	}
	return v, nil
}
