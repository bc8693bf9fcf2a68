// Package sourcecompile is the bundled default implementation of
// internal/compile.ClassFile: it parses one class's source file with
// tree-sitter and produces the ClassInfo/Meta facts the core consumes
// (spec.md §1 names this external collaborator "the parser that produces
// per-class facts").
//
// The parse-with-tree-sitter-then-walk-the-tree shape follows
// phobologic-repoguide/internal/parse.ExtractTags, generalized from "tag
// extraction for a call graph" to "class-fact extraction for the analyser".
package sourcecompile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/classanalyser/classanalyser/internal/classinfo"
	"github.com/classanalyser/classanalyser/internal/errs"
)

// File is the default ClassFile: one source file, one class.
type File struct {
	library     *classinfo.Library
	className   string
	sourcePath  string
	outputPath  string

	meta *classinfo.Meta
	info classinfo.ClassInfo
}

// New constructs a File for one compile of className.
func New(lib *classinfo.Library, className, sourcePath, outputPath string) *File {
	return &File{library: lib, className: className, sourcePath: sourcePath, outputPath: outputPath}
}

// GetClassName implements compile.ClassFile.
func (f *File) GetClassName() string { return f.className }

// GetOuterClassMeta implements compile.ClassFile.
func (f *File) GetOuterClassMeta() *classinfo.Meta { return f.meta }

// Load implements compile.ClassFile: parse the source, locate its
// <ns>.Class.define/.Interface.define/.Mixin.define call, and extract
// extends/implement/include, properties, members, statics, events,
// dependsOn and translations.
func (f *File) Load(ctx context.Context) error {
	data, err := os.ReadFile(f.sourcePath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrSourceIO, f.sourcePath, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrParse, f.sourcePath, err)
	}
	defer tree.Close()

	kind, className, obj, err := findDefineCall(tree.RootNode(), data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrParse, f.sourcePath, err)
	}
	if className != "" {
		f.className = className
	}

	meta := &classinfo.Meta{ClassName: f.className}
	switch kind {
	case "Interface":
		meta.Type = "interface"
	case "Mixin":
		meta.Type = "mixin"
	}

	info := classinfo.ClassInfo{}
	deps := make(map[string]classinfo.DepFlags)
	walkDefineBody(obj, data, meta, &info, deps)
	if len(deps) > 0 {
		info.DependsOn = deps
	}
	info.Translations = collectTranslations(tree.RootNode(), data)

	f.meta = meta
	f.info = info
	return nil
}

// WriteDbInfo implements compile.ClassFile.
func (f *File) WriteDbInfo(target *classinfo.ClassInfo) {
	target.Extends = f.info.Extends
	target.Implement = f.info.Implement
	target.Include = f.info.Include
	target.DependsOn = f.info.DependsOn
	target.Translations = f.info.Translations
	target.EnvironmentChecks = f.info.EnvironmentChecks
}

func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// findDefineCall locates the first "<ns>.Class.define(name, {...})" (or
// .Interface./.Mixin.) call anywhere in the tree.
func findDefineCall(root *sitter.Node, src []byte) (kind, className string, obj *sitter.Node, err error) {
	var found bool
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found || n == nil {
			return
		}
		if n.Type() == "call_expression" {
			callee := n.ChildByFieldName("function")
			args := n.ChildByFieldName("arguments")
			if callee != nil && args != nil {
				if k := defineKind(nodeText(callee, src)); k != "" && int(args.NamedChildCount()) >= 2 {
					kind = k
					className = unquote(nodeText(args.NamedChild(0), src))
					obj = args.NamedChild(1)
					found = true
					return
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	if !found {
		return "", "", nil, fmt.Errorf("no class/interface/mixin define call found")
	}
	return kind, className, obj, nil
}

func defineKind(calleeText string) string {
	switch {
	case strings.HasSuffix(calleeText, ".Class.define"):
		return "Class"
	case strings.HasSuffix(calleeText, ".Interface.define"):
		return "Interface"
	case strings.HasSuffix(calleeText, ".Mixin.define"):
		return "Mixin"
	}
	return ""
}

// walkDefineBody extracts every recognized top-level key of the define
// call's object literal argument.
func walkDefineBody(obj *sitter.Node, src []byte, meta *classinfo.Meta, info *classinfo.ClassInfo, deps map[string]classinfo.DepFlags) {
	if obj == nil || obj.Type() != "object" {
		return
	}
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		pair := obj.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		keyNode := pair.ChildByFieldName("key")
		valNode := pair.ChildByFieldName("value")
		if keyNode == nil || valNode == nil {
			continue
		}
		key := unquote(nodeText(keyNode, src))
		switch key {
		case "extend":
			info.Extends = dottedName(valNode, src)
			addDep(deps, info.Extends, classinfo.DepFlags{Load: true, Construct: true})
		case "implement":
			info.Implement = dottedNameArray(valNode, src)
			for _, name := range info.Implement {
				addDep(deps, name, classinfo.DepFlags{Load: true})
			}
		case "include":
			info.Include = dottedNameArray(valNode, src)
			for _, name := range info.Include {
				addDep(deps, name, classinfo.DepFlags{Load: true})
			}
		case "properties":
			meta.Properties = extractProperties(valNode, src)
		case "members":
			meta.Members = extractMembers(valNode, src)
			collectDeps(valNode, src, deps, classinfo.DepFlags{Runtime: true})
		case "statics":
			meta.Statics = extractMembers(valNode, src)
			collectDeps(valNode, src, deps, classinfo.DepFlags{Runtime: true})
		case "events":
			meta.Events = extractEvents(valNode, src)
		case "construct":
			collectDeps(valNode, src, deps, classinfo.DepFlags{Construct: true})
		case "environment":
			info.EnvironmentChecks = extractEnvironmentChecks(valNode, src)
		default:
			collectDeps(valNode, src, deps, classinfo.DepFlags{Load: true})
		}
	}
}

// dottedName renders an identifier/member_expression/string chain as a
// dotted name, e.g. "qx.ui.core.Widget".
func dottedName(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier":
		return nodeText(n, src)
	case "member_expression":
		left := dottedName(n.ChildByFieldName("object"), src)
		right := nodeText(n.ChildByFieldName("property"), src)
		if left == "" {
			return right
		}
		return left + "." + right
	case "string":
		return unquote(nodeText(n, src))
	default:
		return nodeText(n, src)
	}
}

func dottedNameArray(n *sitter.Node, src []byte) []string {
	if n == nil {
		return nil
	}
	if n.Type() != "array" {
		if name := dottedName(n, src); name != "" {
			return []string{name}
		}
		return nil
	}
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if name := dottedName(n.NamedChild(i), src); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// isQualifiedClassName reports whether name looks like a dotted class
// reference ("ns.sub.ClassName") rather than a plain local value or an
// all-uppercase constant on a class ("ns.sub.ClassName.NAME").
func isQualifiedClassName(name string) bool {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return false
	}
	last := name[idx+1:]
	if last[0] < 'A' || last[0] > 'Z' {
		return false
	}
	return len(last) == 1 || strings.ToUpper(last) != last
}

func addDep(deps map[string]classinfo.DepFlags, name string, flags classinfo.DepFlags) {
	if name == "" {
		return
	}
	cur := deps[name]
	cur.Load = cur.Load || flags.Load
	cur.Construct = cur.Construct || flags.Construct
	cur.Runtime = cur.Runtime || flags.Runtime
	deps[name] = cur
}

// collectDeps walks n for qualified class references, recording each under
// flags. It does not descend past a matched member_expression chain, so
// "app.ui.Button.NAME" is recorded once as "app.ui.Button".
func collectDeps(n *sitter.Node, src []byte, deps map[string]classinfo.DepFlags, flags classinfo.DepFlags) {
	if n == nil {
		return
	}
	if n.Type() == "member_expression" {
		if name := dottedName(n, src); isQualifiedClassName(name) {
			addDep(deps, name, flags)
			return
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectDeps(n.Child(i), src, deps, flags)
	}
}

func extractProperties(n *sitter.Node, src []byte) map[string]*classinfo.PropertyDef {
	if n == nil || n.Type() != "object" {
		return nil
	}
	out := make(map[string]*classinfo.PropertyDef)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		pair := n.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		name := unquote(nodeText(pair.ChildByFieldName("key"), src))
		def := &classinfo.PropertyDef{JSDoc: extractLeadingJSDoc(pair, src)}
		valObj := pair.ChildByFieldName("value")
		if valObj != nil && valObj.Type() == "object" {
			for j := 0; j < int(valObj.NamedChildCount()); j++ {
				p := valObj.NamedChild(j)
				if p.Type() != "pair" {
					continue
				}
				k := unquote(nodeText(p.ChildByFieldName("key"), src))
				v := p.ChildByFieldName("value")
				switch k {
				case "check":
					def.Check = classinfo.PropertyCheck(unquote(nodeText(v, src)))
				case "async":
					def.Async = nodeText(v, src) == "true"
				case "refine":
					def.Refine = nodeText(v, src) == "true"
				}
			}
		}
		out[name] = def
	}
	return out
}

func extractMembers(n *sitter.Node, src []byte) map[string]*classinfo.MemberDef {
	if n == nil || n.Type() != "object" {
		return nil
	}
	out := make(map[string]*classinfo.MemberDef)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		pair := n.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		name := unquote(nodeText(pair.ChildByFieldName("key"), src))
		val := pair.ChildByFieldName("value")
		entityType := classinfo.EntityVariable
		if val != nil {
			switch val.Type() {
			case "function_expression", "arrow_function", "function", "generator_function":
				entityType = classinfo.EntityFunction
			}
		}
		out[name] = &classinfo.MemberDef{
			Type:   entityType,
			Access: classinfo.ClassifyAccess(name),
			JSDoc:  extractLeadingJSDoc(pair, src),
		}
	}
	return out
}

func extractEvents(n *sitter.Node, src []byte) map[string]*classinfo.MemberDef {
	if n == nil || n.Type() != "object" {
		return nil
	}
	out := make(map[string]*classinfo.MemberDef)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		pair := n.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		name := unquote(nodeText(pair.ChildByFieldName("key"), src))
		out[name] = &classinfo.MemberDef{
			Type:   classinfo.EntityVariable,
			Access: classinfo.AccessPublic,
			JSDoc:  extractLeadingJSDoc(pair, src),
		}
	}
	return out
}

func extractEnvironmentChecks(n *sitter.Node, src []byte) []classinfo.EnvironmentCheck {
	if n == nil || n.Type() != "object" {
		return nil
	}
	var out []classinfo.EnvironmentCheck
	for i := 0; i < int(n.NamedChildCount()); i++ {
		pair := n.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		key := unquote(nodeText(pair.ChildByFieldName("key"), src))
		out = append(out, classinfo.EnvironmentCheck{Key: key})
	}
	return out
}

// extractLeadingJSDoc looks for a "/** ... */" block comment immediately
// preceding node in the raw source and parses it. Tree-sitter's javascript
// grammar marks comments as "extra" nodes rather than ordinary named
// children, so a textual scan backward from node's start byte is simpler
// and more robust than threading sibling lookups through every call site.
func extractLeadingJSDoc(node *sitter.Node, src []byte) *classinfo.JSDoc {
	pos := int(node.StartByte())
	for pos > 0 && isSpaceOrSeparator(src[pos-1]) {
		pos--
	}
	if pos < 2 || src[pos-2] != '*' || src[pos-1] != '/' {
		return nil
	}
	commentStart := bytes.LastIndex(src[:pos], []byte("/**"))
	if commentStart < 0 {
		return nil
	}
	return parseJSDocComment(string(src[commentStart:pos]))
}

func isSpaceOrSeparator(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', ',':
		return true
	}
	return false
}

var (
	paramLineRe  = regexp.MustCompile(`^@param\s+(?:\{[^}]*\}\s*)?(\S+)\s*(.*)$`)
	returnLineRe = regexp.MustCompile(`^@return\s*\{?([^}]*)\}?\s*(.*)$`)
)

func parseJSDocComment(raw string) *classinfo.JSDoc {
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimSuffix(raw, "*/")
	doc := &classinfo.JSDoc{}
	var desc []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "@param"):
			if m := paramLineRe.FindStringSubmatch(line); m != nil {
				doc.Params = append(doc.Params, strings.TrimSpace(m[1]+" "+m[2]))
			}
		case strings.HasPrefix(line, "@return"):
			if m := returnLineRe.FindStringSubmatch(line); m != nil {
				doc.Return = strings.TrimSpace(m[1])
			}
		case strings.HasPrefix(line, "@"):
			// other tags (@deprecated, @see, ...) are not modeled here.
		default:
			desc = append(desc, line)
		}
	}
	doc.Description = strings.Join(desc, "\n")
	if doc.Description == "" && len(doc.Params) == 0 && doc.Return == "" {
		return nil
	}
	return doc
}

// collectTranslations finds this.tr(...)/this.trn(...)-style calls anywhere
// in the tree and records their literal first argument as a translatable
// message.
func collectTranslations(root *sitter.Node, src []byte) []classinfo.TranslationEntry {
	var out []classinfo.TranslationEntry
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" {
			callee := n.ChildByFieldName("function")
			args := n.ChildByFieldName("arguments")
			if callee != nil && args != nil && isTranslationCall(nodeText(callee, src)) && args.NamedChildCount() > 0 {
				msgNode := args.NamedChild(0)
				if msgNode.Type() == "string" {
					entry := classinfo.TranslationEntry{
						MsgID:  unquote(nodeText(msgNode, src)),
						LineNo: int(msgNode.StartPoint().Row) + 1,
					}
					if args.NamedChildCount() > 1 {
						if plural := args.NamedChild(1); plural.Type() == "string" {
							entry.MsgIDPlural = unquote(nodeText(plural, src))
						}
					}
					out = append(out, entry)
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}

func isTranslationCall(calleeText string) bool {
	return strings.HasSuffix(calleeText, ".tr") || strings.HasSuffix(calleeText, ".trn") || calleeText == "tr" || calleeText == "trn"
}
