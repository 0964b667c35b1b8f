package endpoint

import "strings"

// Language of a parsed source file.
type Language string

const (
	LangJava   Language = "java"
	LangKotlin Language = "kotlin"
)

// AnnotationArg is one argument of an annotation. Positional arguments use
// the key "value". Literal is true when every value came from string literals.
type AnnotationArg struct {
	Key     string   `json:"key"`
	Values  []string `json:"values"`
	Literal bool     `json:"literal"`
}

// Annotation is an annotation as written in source, with its package prefix stripped.
type Annotation struct {
	Name string          `json:"name"`
	Args []AnnotationArg `json:"args,omitempty"`
}

// Arg returns the first argument with one of the given keys.
func (a Annotation) Arg(keys ...string) (AnnotationArg, bool) {
	for _, k := range keys {
		for _, arg := range a.Args {
			if arg.Key == k {
				return arg, true
			}
		}
	}
	return AnnotationArg{}, false
}

// Declaration is a raw callable unit returned by the declaration index:
// a method together with the annotations on it and on its enclosing type.
type Declaration struct {
	Language Language `json:"language"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	EndLine  int      `json:"endLine"`
	Class    string   `json:"class"`
	Method   string   `json:"method"`

	ClassAnnotations  []Annotation `json:"classAnnotations,omitempty"`
	MethodAnnotations []Annotation `json:"methodAnnotations,omitempty"`

	ModuleID   string `json:"moduleId"`
	ModuleName string `json:"moduleName"`
	ModuleRoot string `json:"moduleRoot"`

	SourceRef SourceRef `json:"sourceRef"`
}

// Handler renders Class#method.
func (d Declaration) Handler() string {
	if d.Class == "" {
		return d.Method
	}
	return d.Class + "#" + d.Method
}

// FindMethodAnnotation returns the first method annotation with one of names.
func (d Declaration) FindMethodAnnotation(names ...string) (Annotation, bool) {
	return findAnnotation(d.MethodAnnotations, names)
}

// FindClassAnnotation returns the first class annotation with one of names.
func (d Declaration) FindClassAnnotation(names ...string) (Annotation, bool) {
	return findAnnotation(d.ClassAnnotations, names)
}

func findAnnotation(list []Annotation, names []string) (Annotation, bool) {
	for _, a := range list {
		for _, n := range names {
			if strings.EqualFold(a.Name, n) {
				return a, true
			}
		}
	}
	return Annotation{}, false
}
