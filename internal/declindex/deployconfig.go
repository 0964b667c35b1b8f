package declindex

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
	"gopkg.in/yaml.v3"

	"routemap/internal/endpoint"
	"routemap/internal/errors"
	"routemap/internal/slogutil"
)

// Spring keys that describe how a module is served.
const (
	keyPort               = "server.port"
	keyAddress            = "server.address"
	keyServletContextPath = "server.servlet.context-path"
	keyLegacyContextPath  = "server.context-path"
	keyWebfluxBasePath    = "spring.webflux.base-path"
	keySSLEnabled         = "server.ssl.enabled"
	keySSLKeyStore        = "server.ssl.key-store"
	keySSLBundle          = "server.ssl.bundle"
	keyActiveProfiles     = "spring.profiles.active"
	keyOnProfile          = "spring.config.activate.on-profile"
	keyLegacyProfiles     = "spring.profiles"
)

// resourceDirs are searched in order; later directories override earlier ones.
var resourceDirs = []string{
	filepath.Join("src", "main", "resources"),
	filepath.Join("src", "main", "resources", "config"),
}

// DeployReader reads Spring Boot application configuration files.
type DeployReader struct {
	logger *slog.Logger
	// lookupEnv resolves ${VAR} placeholders that no property defines.
	lookupEnv func(string) (string, bool)
}

// NewDeployReader creates a reader resolving placeholders from the process environment.
func NewDeployReader(logger *slog.Logger) *DeployReader {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &DeployReader{logger: logger, lookupEnv: os.LookupEnv}
}

// yamlDoc is one document of a multi-document application.yml.
type yamlDoc struct {
	props    map[string]string
	profiles []string // activation expression terms; empty = always active
}

// source is everything read from one resource directory.
type source struct {
	baseProps    map[string]string
	yamlDocs     []yamlDoc
	profileProps map[string]map[string]string // profile -> application-{profile}.* content
	found        bool
}

// Read resolves the deploy config of the module rooted at moduleRoot.
// profiles, when empty, come from spring.profiles.active.
func (r *DeployReader) Read(ctx context.Context, moduleRoot string, profiles []string) (endpoint.DeployConfig, error) {
	var sources []source
	for _, dir := range resourceDirs {
		if err := ctx.Err(); err != nil {
			return endpoint.DeployConfig{}, err
		}
		src, err := r.loadDir(filepath.Join(moduleRoot, dir))
		if err != nil {
			return endpoint.DeployConfig{}, errors.New(errors.ConfigUnresolved, "Failed to read application config", err, nil)
		}
		if src.found {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		return endpoint.DeployConfig{}, nil
	}

	// Base layer: yaml documents without profile conditions, then properties.
	merged := make(map[string]string)
	for _, src := range sources {
		for _, doc := range src.yamlDocs {
			if len(doc.profiles) == 0 {
				mergeInto(merged, doc.props)
			}
		}
		mergeInto(merged, src.baseProps)
	}

	if len(profiles) == 0 {
		profiles = splitList(r.resolve(merged[keyActiveProfiles], merged))
	}

	// Profile layer: matching yaml documents, then application-{profile} files.
	for _, src := range sources {
		for _, doc := range src.yamlDocs {
			if len(doc.profiles) > 0 && profileMatches(doc.profiles, profiles) {
				mergeInto(merged, doc.props)
			}
		}
		for _, p := range profiles {
			mergeInto(merged, src.profileProps[p])
		}
	}

	cfg := r.toDeployConfig(merged)
	r.logger.Debug("Resolved module deploy config",
		"module", moduleRoot,
		"profiles", strings.Join(profiles, ","),
		"protocol", cfg.Protocol,
		"port", cfg.Port,
		"contextPath", cfg.ContextPath,
	)
	return cfg, nil
}

func (r *DeployReader) loadDir(dir string) (source, error) {
	src := source{
		baseProps:    map[string]string{},
		profileProps: map[string]map[string]string{},
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return src, nil
		}
		return src, err
	}

	// yaml files first so a .properties sibling overrides them.
	sort.SliceStable(entries, func(i, j int) bool {
		return isYAML(entries[i].Name()) && !isYAML(entries[j].Name())
	})

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		if stem != "application" && !strings.HasPrefix(stem, "application-") {
			continue
		}
		if ext != ".properties" && ext != ".yml" && ext != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return src, err
		}
		src.found = true

		profile := strings.TrimPrefix(stem, "application-")
		isProfileFile := stem != "application"

		switch ext {
		case ".properties":
			props, err := parseProperties(data)
			if err != nil {
				return src, fmt.Errorf("%s: %w", name, err)
			}
			if isProfileFile {
				src.profileProps[profile] = mergeInto(src.profileProps[profile], props)
			} else {
				mergeInto(src.baseProps, props)
			}
		default:
			docs, err := parseYAMLDocuments(data)
			if err != nil {
				return src, fmt.Errorf("%s: %w", name, err)
			}
			if isProfileFile {
				for _, d := range docs {
					src.profileProps[profile] = mergeInto(src.profileProps[profile], d.props)
				}
			} else {
				src.yamlDocs = append(src.yamlDocs, docs...)
			}
		}
	}
	return src, nil
}

// parseProperties reads a .properties file. Placeholders are kept verbatim
// and resolved later against the merged layers.
func parseProperties(data []byte) (map[string]string, error) {
	loader := properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, p.Len())
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		out[k] = v
	}
	return out, nil
}

// parseYAMLDocuments flattens every document to dotted keys and records
// the profile condition of each.
func parseYAMLDocuments(data []byte) ([]yamlDoc, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var docs []yamlDoc
	for {
		var raw map[string]interface{}
		err := dec.Decode(&raw)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if raw == nil {
			continue
		}

		props := make(map[string]string)
		flatten("", raw, props)

		doc := yamlDoc{props: props}
		cond := props[keyOnProfile]
		if cond == "" {
			cond = props[keyLegacyProfiles]
		}
		if cond != "" {
			doc.profiles = splitProfileExpr(cond)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func flatten(prefix string, v interface{}, out map[string]string) {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			flatten(joinKey(prefix, k), child, out)
		}
	case []interface{}:
		parts := make([]string, 0, len(val))
		for i, child := range val {
			flatten(fmt.Sprintf("%s[%d]", prefix, i), child, out)
			if s, ok := scalar(child); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == len(val) {
			out[prefix] = strings.Join(parts, ",")
		}
	default:
		if s, ok := scalar(val); ok {
			out[prefix] = s
		}
	}
}

func joinKey(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "." + k
}

func scalar(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", true
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case map[string]interface{}, []interface{}:
		return "", false
	default:
		return fmt.Sprint(val), true
	}
}

func (r *DeployReader) toDeployConfig(props map[string]string) endpoint.DeployConfig {
	get := func(key string) string {
		return strings.TrimSpace(r.resolve(props[key], props))
	}

	var cfg endpoint.DeployConfig

	if port := get(keyPort); port != "" {
		n, err := strconv.Atoi(port)
		switch {
		case err != nil:
			r.logger.Debug("Unparseable server.port", "value", port)
		case n > 0 && n <= 65535:
			cfg.Port = n
		}
		// 0 and -1 mean random port and no HTTP server; both stay unresolved.
	}

	for _, key := range []string{keyServletContextPath, keyLegacyContextPath, keyWebfluxBasePath} {
		if cp := get(key); cp != "" {
			cfg.ContextPath = cp
			break
		}
	}

	if addr := get(keyAddress); addr != "" && addr != "0.0.0.0" && addr != "::" {
		cfg.Host = addr
	}

	sslEnabled := strings.ToLower(get(keySSLEnabled))
	switch {
	case sslEnabled == "true":
		cfg.Protocol = "https"
	case sslEnabled == "false":
		cfg.Protocol = "http"
	case get(keySSLKeyStore) != "" || get(keySSLBundle) != "":
		cfg.Protocol = "https"
	case len(props) > 0:
		cfg.Protocol = "http"
	}

	return cfg
}

// resolve expands ${name} and ${name:default} placeholders.
func (r *DeployReader) resolve(value string, props map[string]string) string {
	for depth := 0; depth < 8 && strings.Contains(value, "${"); depth++ {
		start := strings.Index(value, "${")
		end := strings.Index(value[start:], "}")
		if end < 0 {
			return value
		}
		end += start

		expr := value[start+2 : end]
		name, def, hasDefault := strings.Cut(expr, ":")

		repl, ok := props[name]
		if !ok && r.lookupEnv != nil {
			repl, ok = r.lookupEnv(name)
			if !ok {
				repl, ok = r.lookupEnv(envName(name))
			}
		}
		if !ok {
			if !hasDefault {
				return ""
			}
			repl = def
		}
		value = value[:start] + repl + value[end+1:]
	}
	return value
}

// envName applies Spring's relaxed binding: server.port -> SERVER_PORT.
func envName(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "").Replace(key))
}

// profileMatches evaluates a document's profile condition. Terms are OR-ed;
// a "!" prefix negates a term.
func profileMatches(terms, active []string) bool {
	for _, t := range terms {
		if neg, ok := strings.CutPrefix(t, "!"); ok {
			if !contains(active, neg) {
				return true
			}
			continue
		}
		if contains(active, t) {
			return true
		}
	}
	return false
}

func splitProfileExpr(expr string) []string {
	return splitList(strings.NewReplacer("|", ",", " ", "").Replace(expr))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// mergeInto copies src over dst, allocating dst when nil.
func mergeInto(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func isYAML(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yml" || ext == ".yaml"
}
