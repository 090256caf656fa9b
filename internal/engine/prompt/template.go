package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Chab-algo/praxia/pkg/api"
)

type (
	// Template is a parsed prompt template: literal text interleaved with
	// {{path}} placeholders
	Template struct {
		segments []segment
		single   *segment
	}

	segment struct {
		text        string
		path        []string
		placeholder bool
	}
)

var placeholderRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// Parse splits a template into literal and placeholder segments
func Parse(tmpl string) *Template {
	res := &Template{}
	last := 0
	for _, m := range placeholderRegex.FindAllStringSubmatchIndex(tmpl, -1) {
		if m[0] > last {
			res.segments = append(res.segments, segment{
				text: tmpl[last:m[0]],
			})
		}
		path := strings.TrimSpace(tmpl[m[2]:m[3]])
		res.segments = append(res.segments, segment{
			text:        tmpl[m[0]:m[1]],
			path:        strings.Split(path, "."),
			placeholder: true,
		})
		last = m[1]
	}
	if last < len(tmpl) {
		res.segments = append(res.segments, segment{text: tmpl[last:]})
	}
	res.single = res.singlePlaceholder()
	return res
}

// Render substitutes every placeholder. Unresolved placeholders keep their
// original text; non-string values are written as JSON
func (t *Template) Render(vars map[string]any) string {
	var buf strings.Builder
	for _, s := range t.segments {
		if !s.placeholder {
			buf.WriteString(s.text)
			continue
		}
		v, ok := Lookup(vars, s.path)
		if !ok {
			buf.WriteString(s.text)
			continue
		}
		buf.WriteString(Stringify(v))
	}
	return buf.String()
}

// RenderValue returns the resolved value with its type intact when the
// template is exactly one placeholder, optionally surrounded by whitespace.
// Otherwise it returns the rendered string
func (t *Template) RenderValue(vars map[string]any) any {
	if t.single != nil {
		if v, ok := Lookup(vars, t.single.path); ok {
			return v
		}
	}
	return t.Render(vars)
}

func (t *Template) singlePlaceholder() *segment {
	var res *segment
	for i := range t.segments {
		s := &t.segments[i]
		if !s.placeholder {
			if strings.TrimSpace(s.text) != "" {
				return nil
			}
			continue
		}
		if res != nil {
			return nil
		}
		res = s
	}
	return res
}

// Lookup walks a dotted path through nested maps
func Lookup(vars map[string]any, path []string) (any, bool) {
	var cur any = vars
	for _, part := range path {
		var ok bool
		switch m := cur.(type) {
		case map[string]any:
			cur, ok = m[part]
		case api.Args:
			cur, ok = m[api.Name(part)]
		default:
			return nil, false
		}
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Stringify renders a resolved value as prompt text
func Stringify(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
