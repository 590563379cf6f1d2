// Package core holds template helpers shared by every page.
package core

import (
	"bytes"
	"errors"
	"html/template"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Deps holds optional dependencies for constructing the core template func map.
type Deps struct {
	Template           **template.Template
	ContentTemplateFor func(string) string
}

// Funcs returns a template.FuncMap containing helpers that are broadly useful across templates.
func Funcs(deps Deps) template.FuncMap {
	funcs := template.FuncMap{
		"sectionTmpl": deps.ContentTemplateFor,
		"add":         func(a, b int) int { return a + b },
		"contains":    strings.Contains,
		"fieldError":  FieldError,
		"formValue":   FormValue,
		"initials":    Initials,
		"truncate":    TruncateText,
	}

	funcs["renderSection"] = func(page string, data any) (template.HTML, error) {
		if deps.Template == nil || *deps.Template == nil {
			return "", errors.New("template not initialized")
		}
		var buf bytes.Buffer
		if err := (*deps.Template).ExecuteTemplate(&buf, deps.ContentTemplateFor(page), data); err != nil {
			return "", err
		}
		// #nosec G203 - rendered by our own html/template set; values were escaped during execution.
		return template.HTML(buf.String()), nil
	}
	return funcs
}

// FieldError returns the message recorded for field, or "".
func FieldError(errs map[string]string, field string) string {
	if errs == nil {
		return ""
	}
	return errs[field]
}

// FormValue returns the submitted value of field, or "".
func FormValue(values map[string]string, field string) string {
	if values == nil {
		return ""
	}
	return values[field]
}

// Initials returns up to two upper-case initials for an avatar badge.
func Initials(names ...string) string {
	var b strings.Builder
	n := 0
	for _, name := range names {
		r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
		if r == utf8.RuneError || !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if n++; n == 2 {
			break
		}
	}
	if n == 0 {
		return "SL"
	}
	return b.String()
}

// TruncateText truncates a string to a maximum number of runes, adding an ellipsis.
func TruncateText(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen > 1 {
		return string(runes[:maxLen-1]) + "…"
	}
	return string(runes[:1])
}
