package extract

import (
	"reflect"
	"testing"

	"routemap/internal/endpoint"
)

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name string
		text string
		lang endpoint.Language
		want endpoint.Annotation
	}{
		{
			name: "marker",
			text: "@RestController",
			lang: endpoint.LangJava,
			want: endpoint.Annotation{Name: "RestController"},
		},
		{
			name: "qualified marker",
			text: "@javax.ws.rs.GET",
			lang: endpoint.LangJava,
			want: endpoint.Annotation{Name: "GET"},
		},
		{
			name: "positional string",
			text: `@GetMapping("/users/{id}")`,
			lang: endpoint.LangJava,
			want: endpoint.Annotation{Name: "GetMapping", Args: []endpoint.AnnotationArg{
				{Key: "value", Values: []string{"/users/{id}"}, Literal: true},
			}},
		},
		{
			name: "java array and method",
			text: `@RequestMapping(value = {"/a", "/b"}, method = RequestMethod.POST)`,
			lang: endpoint.LangJava,
			want: endpoint.Annotation{Name: "RequestMapping", Args: []endpoint.AnnotationArg{
				{Key: "value", Values: []string{"/a", "/b"}, Literal: true},
				{Key: "method", Values: []string{"RequestMethod.POST"}, Literal: false},
			}},
		},
		{
			name: "method array",
			text: `@RequestMapping(path = "/x", method = {RequestMethod.GET, RequestMethod.HEAD})`,
			lang: endpoint.LangJava,
			want: endpoint.Annotation{Name: "RequestMapping", Args: []endpoint.AnnotationArg{
				{Key: "path", Values: []string{"/x"}, Literal: true},
				{Key: "method", Values: []string{"RequestMethod.GET", "RequestMethod.HEAD"}, Literal: false},
			}},
		},
		{
			name: "concatenation",
			text: `@PostMapping("/api" + "/orders")`,
			lang: endpoint.LangJava,
			want: endpoint.Annotation{Name: "PostMapping", Args: []endpoint.AnnotationArg{
				{Key: "value", Values: []string{"/api/orders"}, Literal: true},
			}},
		},
		{
			name: "constant reference",
			text: `@GetMapping(Routes.BASE + "/list")`,
			lang: endpoint.LangJava,
			want: endpoint.Annotation{Name: "GetMapping", Args: []endpoint.AnnotationArg{
				{Key: "value", Values: []string{`Routes.BASE + "/list"`}, Literal: false},
			}},
		},
		{
			name: "kotlin array literal",
			text: `@GetMapping(value = ["/k1", "/k2"], produces = [MediaType.APPLICATION_JSON_VALUE])`,
			lang: endpoint.LangKotlin,
			want: endpoint.Annotation{Name: "GetMapping", Args: []endpoint.AnnotationArg{
				{Key: "value", Values: []string{"/k1", "/k2"}, Literal: true},
				{Key: "produces", Values: []string{"MediaType.APPLICATION_JSON_VALUE"}, Literal: false},
			}},
		},
		{
			name: "kotlin arrayOf",
			text: `@RequestMapping(path = arrayOf("/v1"))`,
			lang: endpoint.LangKotlin,
			want: endpoint.Annotation{Name: "RequestMapping", Args: []endpoint.AnnotationArg{
				{Key: "path", Values: []string{"/v1"}, Literal: true},
			}},
		},
		{
			name: "kotlin template is not literal",
			text: `@GetMapping("$BASE/items")`,
			lang: endpoint.LangKotlin,
			want: endpoint.Annotation{Name: "GetMapping", Args: []endpoint.AnnotationArg{
				{Key: "value", Values: []string{`"$BASE/items"`}, Literal: false},
			}},
		},
		{
			name: "dollar in java string is literal",
			text: `@GetMapping("/price$")`,
			lang: endpoint.LangJava,
			want: endpoint.Annotation{Name: "GetMapping", Args: []endpoint.AnnotationArg{
				{Key: "value", Values: []string{"/price$"}, Literal: true},
			}},
		},
		{
			name: "use-site target",
			text: `@get:Path("/x")`,
			lang: endpoint.LangKotlin,
			want: endpoint.Annotation{Name: "Path", Args: []endpoint.AnnotationArg{
				{Key: "value", Values: []string{"/x"}, Literal: true},
			}},
		},
		{
			name: "comments and newlines",
			text: "@RequestMapping(\n  // legacy\n  value = \"/old\" /* keep */\n)",
			lang: endpoint.LangJava,
			want: endpoint.Annotation{Name: "RequestMapping", Args: []endpoint.AnnotationArg{
				{Key: "value", Values: []string{"/old"}, Literal: true},
			}},
		},
		{
			name: "empty parens",
			text: "@PostMapping()",
			lang: endpoint.LangJava,
			want: endpoint.Annotation{Name: "PostMapping"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAnnotation(tt.text, tt.lang)
			if !ok {
				t.Fatalf("ParseAnnotation(%q) not ok", tt.text)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAnnotation(%q)\n got  %+v\n want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseAnnotation_Rejects(t *testing.T) {
	for _, text := range []string{"", "GetMapping", "@", "@(\"x\")"} {
		if _, ok := ParseAnnotation(text, endpoint.LangJava); ok {
			t.Errorf("ParseAnnotation(%q) should fail", text)
		}
	}
}

func TestParseAnnotation_Malformed(t *testing.T) {
	// Unbalanced input must terminate and still report the name.
	for _, text := range []string{`@GetMapping("/a"`, `@GetMapping(value = {"/a", )`, `@X(})`, `@X(,,)`} {
		got, ok := ParseAnnotation(text, endpoint.LangJava)
		if !ok || got.Name == "" {
			t.Errorf("ParseAnnotation(%q) = %+v, %v", text, got, ok)
		}
	}
}

func TestLanguageFromPath(t *testing.T) {
	tests := []struct {
		path string
		want endpoint.Language
		ok   bool
	}{
		{"a/B.java", endpoint.LangJava, true},
		{"a/B.kt", endpoint.LangKotlin, true},
		{"build.gradle.kts", endpoint.LangKotlin, true},
		{"a/b.go", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageFromPath(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("LanguageFromPath(%q) = %q, %v", tt.path, got, ok)
		}
	}
	if !Enabled(endpoint.LangKotlin, nil) || !Enabled(endpoint.LangJava, []string{"JAVA"}) || Enabled(endpoint.LangKotlin, []string{"java"}) {
		t.Error("Enabled misreports configured languages")
	}
}
