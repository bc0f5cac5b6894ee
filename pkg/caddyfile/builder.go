// Package caddyfile renders reverse-proxy routing configuration in
// Caddy's native directive syntax. The config is assembled as a tree of
// typed blocks and serialized as the last step, which makes rendering
// deterministic and keeps user-supplied values out of any template.
package caddyfile

import (
	"strings"
)

// Directive is a single configuration line, optionally with a nested
// sub-block.
type Directive struct {
	Name     string
	Args     []string
	Children []Directive
}

// Block is one top-level block: the global options block (no keys) or a
// site block addressed by its keys.
type Block struct {
	Keys       []string
	Directives []Directive
}

// Document is an ordered sequence of blocks. Order is preserved exactly
// as built, so output is diffable between runs.
type Document struct {
	Blocks []Block
}

// Render serializes the document. Two renders of an equal document
// produce byte-identical output.
func (d *Document) Render() string {
	var b strings.Builder
	b.WriteString("# Generated by dynadock. Do not edit.\n")

	for _, block := range d.Blocks {
		b.WriteByte('\n')
		if len(block.Keys) > 0 {
			b.WriteString(strings.Join(block.Keys, ", "))
			b.WriteByte(' ')
		}
		b.WriteString("{\n")
		for _, dir := range block.Directives {
			writeDirective(&b, dir, 1)
		}
		b.WriteString("}\n")
	}

	return b.String()
}

func writeDirective(b *strings.Builder, d Directive, depth int) {
	indent := strings.Repeat("\t", depth)
	b.WriteString(indent)
	b.WriteString(d.Name)
	for _, arg := range d.Args {
		b.WriteByte(' ')
		b.WriteString(quoteArg(arg))
	}

	if len(d.Children) == 0 {
		b.WriteByte('\n')
		return
	}

	b.WriteString(" {\n")
	for _, child := range d.Children {
		writeDirective(b, child, depth+1)
	}
	b.WriteString(indent)
	b.WriteString("}\n")
}

// quoteArg wraps arguments containing whitespace or braces so they
// cannot change the structure of the rendered file.
func quoteArg(arg string) string {
	if strings.ContainsAny(arg, " \t{}\"") {
		return `"` + strings.ReplaceAll(arg, `"`, `\"`) + `"`
	}
	return arg
}
