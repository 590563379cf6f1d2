// Package assets provides template helpers for static asset URLs.
package assets

import (
	"html/template"
	"net/url"
	"strings"
	"time"
)

// Options configures asset-related template helpers.
type Options struct {
	// Version is appended to asset URLs so browsers refetch after a deploy.
	Version string
	// DevMode busts caches on every render.
	DevMode bool
}

// Funcs returns template helpers for asset resolution.
func Funcs(opts Options) template.FuncMap {
	return template.FuncMap{
		"asset": func(logicalName string) string {
			return Resolve(logicalName, opts)
		},
	}
}

// Resolve maps a logical asset name to its URL under /static/.
func Resolve(logicalName string, opts Options) string {
	path := "/static/" + strings.TrimPrefix(logicalName, "/")
	version := opts.Version
	if opts.DevMode {
		version = time.Now().UTC().Format("20060102150405")
	}
	if version == "" {
		return path
	}
	return path + "?v=" + url.QueryEscape(version)
}
