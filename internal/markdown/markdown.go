// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown turns user-written event descriptions into safe HTML.
// Descriptions are stored as plain Markdown with any HTML tags stripped;
// the HTML form is rendered on the way out.
package markdown

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// md is the configured goldmark instance, reused across calls. Raw HTML is
// not rendered (no html.WithUnsafe).
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,         // tables, strikethrough, autolinks, task lists
		extension.Typographer, // smart quotes and dashes
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

var (
	// strict removes every tag, keeping text content.
	strict = bluemonday.StrictPolicy()
	// ugc keeps the formatting markup goldmark produces.
	ugc = bluemonday.UGCPolicy()
)

// StripTags removes all HTML from s and trims surrounding whitespace.
// Ampersands and quotes escaped by the sanitizer are decoded back so the
// stored text stays readable Markdown; angle brackets stay escaped.
func StripTags(s string) string {
	clean := strict.Sanitize(s)
	clean = entityReplacer.Replace(clean)
	return strings.TrimSpace(clean)
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&#34;", `"`,
	"&#39;", "'",
)

// ToHTML converts Markdown source into sanitized HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return ugc.Sanitize(buf.String()), nil
}
