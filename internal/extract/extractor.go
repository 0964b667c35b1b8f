//go:build cgo

package extract

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/kotlin"

	"routemap/internal/endpoint"
)

// Extractor parses source files with tree-sitter. An Extractor holds a
// parser and must not be shared between goroutines.
type Extractor struct {
	parser *sitter.Parser
}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{parser: sitter.NewParser()}
}

// IsAvailable reports whether tree-sitter extraction is compiled in.
func IsAvailable() bool {
	return true
}

// ExtractFile reads and extracts one file. relPath is recorded in the
// declarations; absPath is read from disk.
func (e *Extractor) ExtractFile(ctx context.Context, absPath, relPath string) ([]endpoint.Declaration, error) {
	lang, ok := LanguageFromPath(relPath)
	if !ok {
		return nil, nil
	}
	source, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	return e.ExtractSource(ctx, relPath, source, lang)
}

// ExtractSource returns one declaration per method or function found in
// source, each carrying its own and its enclosing type's annotations.
// Methods without annotations are omitted.
func (e *Extractor) ExtractSource(ctx context.Context, path string, source []byte, lang endpoint.Language) ([]endpoint.Declaration, error) {
	if !routingHint(source) {
		return nil, nil
	}

	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}
	e.parser.SetLanguage(tsLang)
	tree, err := e.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	w := &walker{source: source, lang: lang, path: path}
	w.walk(tree.RootNode(), nil)
	return w.decls, nil
}

func getLanguage(lang endpoint.Language) (*sitter.Language, error) {
	switch lang {
	case endpoint.LangJava:
		return java.GetLanguage(), nil
	case endpoint.LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

type classScope struct {
	name        string
	annotations []endpoint.Annotation
}

type walker struct {
	source []byte
	lang   endpoint.Language
	path   string
	decls  []endpoint.Declaration
}

func (w *walker) walk(node *sitter.Node, class *classScope) {
	if node == nil {
		return
	}

	switch {
	case isClassNode(node.Type()):
		scope := &classScope{
			name:        w.className(node),
			annotations: w.annotations(node),
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			w.walk(node.NamedChild(i), scope)
		}
		return
	case isMethodNode(node.Type()):
		if class != nil {
			w.addMethod(node, class)
		}
		// bodies may hold local or anonymous classes; they are not routable
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.walk(node.NamedChild(i), class)
	}
}

func (w *walker) addMethod(node *sitter.Node, class *classScope) {
	anns := w.annotations(node)
	if len(anns) == 0 {
		return
	}
	name := w.methodName(node)
	line := int(node.StartPoint().Row) + 1
	w.decls = append(w.decls, endpoint.Declaration{
		Language:          w.lang,
		File:              w.path,
		Line:              line,
		EndLine:           int(node.EndPoint().Row) + 1,
		Class:             class.name,
		Method:            name,
		ClassAnnotations:  class.annotations,
		MethodAnnotations: anns,
		SourceRef:         endpoint.NewSourceRef(w.path, line, class.name, name),
	})
}

func isClassNode(t string) bool {
	switch t {
	case "class_declaration", "interface_declaration", "object_declaration", "record_declaration":
		return true
	}
	return false
}

func isMethodNode(t string) bool {
	return t == "method_declaration" || t == "function_declaration"
}

// annotations collects the annotations from a declaration's modifiers.
func (w *walker) annotations(node *sitter.Node) []endpoint.Annotation {
	var out []endpoint.Annotation
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || child.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			m := child.Child(j)
			if m == nil {
				continue
			}
			switch m.Type() {
			case "annotation", "marker_annotation":
				if ann, ok := ParseAnnotation(m.Content(w.source), w.lang); ok {
					out = append(out, ann)
				}
			}
		}
	}
	return out
}

func (w *walker) className(node *sitter.Node) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return n.Content(w.source)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier", "type_identifier", "simple_identifier":
			return child.Content(w.source)
		}
	}
	return ""
}

func (w *walker) methodName(node *sitter.Node) string {
	if w.lang == endpoint.LangJava {
		if n := node.ChildByFieldName("name"); n != nil {
			return n.Content(w.source)
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && (child.Type() == "simple_identifier" || child.Type() == "identifier") {
			return child.Content(w.source)
		}
	}
	return ""
}
