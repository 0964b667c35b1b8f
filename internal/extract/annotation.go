package extract

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"routemap/internal/endpoint"
)

// ParseAnnotation parses the source text of one annotation, e.g.
//
//	@RequestMapping(value = {"/a", "/b"}, method = RequestMethod.GET)
//	@GetMapping(path = ["/users/{id}"])
//
// Package prefixes are stripped from the name. String literals, string
// concatenation and array forms ({...}, [...], arrayOf(...)) are folded into
// the argument values; anything else is kept as raw text and marks the
// argument as non-literal. ok is false when text is not an annotation.
func ParseAnnotation(text string, lang endpoint.Language) (endpoint.Annotation, bool) {
	p := &annotationParser{src: text, toks: lex(text, lang)}
	return p.parse()
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokString
	tokIdent
	tokPunct
	tokOther
)

type token struct {
	kind       tokKind
	text       string // decoded value for strings, raw text otherwise
	start, end int
	template   bool // Kotlin string with $ interpolation
}

func lex(src string, lang endpoint.Language) []token {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i += end + 4
			}
		case strings.HasPrefix(src[i:], `"""`):
			end := strings.Index(src[i+3:], `"""`)
			if end < 0 {
				end = len(src) - i - 3
			}
			body := src[i+3 : i+3+end]
			next := i + 3 + end + 3
			if next > len(src) {
				next = len(src)
			}
			toks = append(toks, token{kind: tokString, text: body, start: i, end: next,
				template: lang == endpoint.LangKotlin && hasTemplate(body)})
			i = next
		case c == '"':
			s, next, tmpl := lexString(src, i, lang)
			toks = append(toks, token{kind: tokString, text: s, start: i, end: next, template: tmpl})
			i = next
		case c == '\'':
			j := i + 1
			for j < len(src) && src[j] != '\'' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(src) {
				j++
			}
			toks = append(toks, token{kind: tokOther, text: src[i:j], start: i, end: j})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(src) {
				if isIdentPart(src[j]) {
					j++
					continue
				}
				if src[j] == '.' && j+1 < len(src) && isIdentStart(src[j+1]) {
					j++
					continue
				}
				break
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], start: i, end: j})
			i = j
		case strings.IndexByte("@(){}[],=+:", c) >= 0:
			toks = append(toks, token{kind: tokPunct, text: string(c), start: i, end: i + 1})
			i++
		default:
			_, size := utf8.DecodeRuneInString(src[i:])
			toks = append(toks, token{kind: tokOther, text: src[i : i+size], start: i, end: i + size})
			i += size
		}
	}
	return append(toks, token{kind: tokEOF, start: len(src), end: len(src)})
}

func lexString(src string, i int, lang endpoint.Language) (string, int, bool) {
	var b strings.Builder
	tmpl := false
	j := i + 1
	for j < len(src) && src[j] != '"' {
		c := src[j]
		if c == '\\' && j+1 < len(src) {
			j++
			switch src[j] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'u':
				if j+4 < len(src) {
					if r, err := strconv.ParseUint(src[j+1:j+5], 16, 32); err == nil {
						b.WriteRune(rune(r))
						j += 4
						break
					}
				}
				b.WriteByte('u')
			default:
				// \" \\ \' \$ and anything else: keep the escaped char
				b.WriteByte(src[j])
			}
			j++
			continue
		}
		if lang == endpoint.LangKotlin && c == '$' && j+1 < len(src) && (src[j+1] == '{' || isIdentStart(src[j+1])) {
			tmpl = true
		}
		b.WriteByte(c)
		j++
	}
	if j < len(src) {
		j++
	}
	return b.String(), j, tmpl
}

func hasTemplate(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '$' && (s[i+1] == '{' || isIdentStart(s[i+1])) {
			return true
		}
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

type annotationParser struct {
	src  string
	toks []token
	pos  int
}

func (p *annotationParser) peek() token { return p.toks[p.pos] }

func (p *annotationParser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *annotationParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *annotationParser) isPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *annotationParser) parse() (endpoint.Annotation, bool) {
	if !p.isPunct("@") {
		return endpoint.Annotation{}, false
	}
	p.next()

	name := p.next()
	if name.kind != tokIdent {
		return endpoint.Annotation{}, false
	}
	// Kotlin use-site targets: @get:Path("/x")
	if p.isPunct(":") && p.peekAt(1).kind == tokIdent {
		p.next()
		name = p.next()
	}

	ann := endpoint.Annotation{Name: simpleName(name.text)}
	if !p.isPunct("(") {
		return ann, true
	}
	p.next()

	for !p.isPunct(")") && p.peek().kind != tokEOF {
		key := "value"
		if p.peek().kind == tokIdent && !strings.Contains(p.peek().text, ".") &&
			p.peekAt(1).kind == tokPunct && p.peekAt(1).text == "=" {
			key = p.next().text
			p.next()
		}
		before := p.pos
		values, literal := p.parseValue(",", ")")
		ann.Args = append(ann.Args, endpoint.AnnotationArg{Key: key, Values: values, Literal: literal})
		p.skipSeparator(before)
	}
	return ann, true
}

// parseValue reads one argument value, stopping before any of the stop tokens.
func (p *annotationParser) parseValue(stops ...string) ([]string, bool) {
	t := p.peek()
	switch {
	case t.kind == tokPunct && t.text == "{":
		p.next()
		return p.parseList("}")
	case t.kind == tokPunct && t.text == "[":
		p.next()
		return p.parseList("]")
	case t.kind == tokIdent && (t.text == "arrayOf" || t.text == "listOf") && p.peekAt(1).text == "(":
		p.next()
		p.next()
		return p.parseList(")")
	}
	v, literal := p.parseExpr(stops...)
	return []string{v}, literal
}

func (p *annotationParser) parseList(closer string) ([]string, bool) {
	var values []string
	literal := true
	for !p.isPunct(closer) && p.peek().kind != tokEOF {
		before := p.pos
		vs, lit := p.parseValue(",", closer)
		values = append(values, vs...)
		literal = literal && lit
		p.skipSeparator(before)
	}
	p.next()
	return values, literal
}

// skipSeparator consumes a comma, or a stray token when the value parser
// made no progress, so malformed input always terminates.
func (p *annotationParser) skipSeparator(before int) {
	if p.isPunct(",") || p.pos == before {
		p.next()
	}
}

// parseExpr folds "a" + "b" into one literal; any other expression is
// returned as raw source text.
func (p *annotationParser) parseExpr(stops ...string) (string, bool) {
	start := p.peek().start
	end := start
	var b strings.Builder
	literal := true
	depth := 0
	expectTerm := true

	for {
		t := p.peek()
		if t.kind == tokEOF {
			break
		}
		if depth == 0 && t.kind == tokPunct && containsTok(stops, t.text) {
			break
		}
		switch {
		case t.kind == tokPunct && (t.text == "(" || t.text == "{" || t.text == "["):
			depth++
			literal = false
		case t.kind == tokPunct && (t.text == ")" || t.text == "}" || t.text == "]"):
			if depth == 0 {
				// unbalanced closer belongs to the caller
				return p.finishExpr(start, end, b.String(), literal)
			}
			depth--
		case depth == 0 && t.kind == tokPunct && t.text == "+":
			if expectTerm {
				literal = false
			}
			expectTerm = true
		case depth == 0 && t.kind == tokString && expectTerm && !t.template:
			b.WriteString(t.text)
			expectTerm = false
		default:
			literal = false
			expectTerm = false
		}
		end = p.next().end
	}
	return p.finishExpr(start, end, b.String(), literal)
}

func (p *annotationParser) finishExpr(start, end int, folded string, literal bool) (string, bool) {
	if end <= start {
		return "", false
	}
	if literal {
		return folded, true
	}
	return strings.TrimSpace(p.src[start:end]), false
}

func containsTok(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func simpleName(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}
