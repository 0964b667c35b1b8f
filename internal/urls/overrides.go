package urls

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"routemap/internal/endpoint"
)

// Overrides pins deploy settings that cannot be discovered from module
// config files. It is read from .routemap/deploy.toml:
//
//	[defaults]
//	host = "dev.internal"
//
//	[modules.orders]
//	port = 9001
//	context_path = "/orders"
//
// Module tables are keyed by module name or module ID.
type Overrides struct {
	Defaults endpoint.DeployConfig            `toml:"defaults"`
	Modules  map[string]endpoint.DeployConfig `toml:"modules"`
}

// LoadOverrides reads an overrides file. A missing file yields empty overrides.
func LoadOverrides(path string) (*Overrides, error) {
	o := &Overrides{Modules: map[string]endpoint.DeployConfig{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return o, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	md, err := toml.Decode(string(data), o)
	if err != nil {
		return nil, fmt.Errorf("parse overrides file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("parse overrides file: unknown keys %s", strings.Join(keys, ", "))
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("invalid overrides: %w", err)
	}
	return o, nil
}

// Validate checks protocols and ports.
func (o *Overrides) Validate() error {
	check := func(name string, c endpoint.DeployConfig) error {
		if c.Protocol != "" && c.Protocol != "http" && c.Protocol != "https" {
			return fmt.Errorf("%s: protocol must be http or https, got %q", name, c.Protocol)
		}
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("%s: port out of range: %d", name, c.Port)
		}
		return nil
	}
	if err := check("defaults", o.Defaults); err != nil {
		return err
	}
	for name, c := range o.Modules {
		if err := check("modules."+name, c); err != nil {
			return err
		}
	}
	return nil
}

// For returns the pinned settings for a module. They win over discovered
// values; [defaults] only fills what discovery leaves unresolved.
func (o *Overrides) For(m Module) endpoint.DeployConfig {
	if o == nil {
		return endpoint.DeployConfig{}
	}
	if c, ok := o.Modules[m.Name]; ok {
		return c
	}
	return o.Modules[m.ID]
}

// Fallback returns the [defaults] table.
func (o *Overrides) Fallback() endpoint.DeployConfig {
	if o == nil {
		return endpoint.DeployConfig{}
	}
	return o.Defaults
}

const overridesHeader = `# Deploy settings that cannot be discovered from application config.
# [defaults] fills unresolved fields; [modules.<name>] pins a module.
#
# [modules.orders]
# port = 9001
# context_path = "/orders"

`

// WriteOverrides encodes o to path, replacing any existing file.
func WriteOverrides(path string, o *Overrides) error {
	if err := o.Validate(); err != nil {
		return fmt.Errorf("invalid overrides: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create overrides file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(overridesHeader); err != nil {
		return fmt.Errorf("write overrides file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(o); err != nil {
		return fmt.Errorf("encode overrides file: %w", err)
	}
	return f.Close()
}
