// Package merge implements the Meta Merger (spec.md §4.G), the core of the
// core: for every freshly compiled class it walks superclass, interfaces and
// mixins to compute the merged entity table (appearsIn, overriddenFrom,
// abstractness, mixin-origin) and synthesizes property-accessor methods.
//
// The recursive-ancestor-walk-with-visited-set shape mirrors
// phobologic-repoguide/internal/graph's cycle-safe traversal, generalized
// from "call graph" to "inheritance graph".
package merge

import (
	"fmt"
	"strings"

	"github.com/classanalyser/classanalyser/internal/classinfo"
)

// MetaLoader resolves an ancestor class name to its merged meta, or nil if
// the ancestor is a synthetic root or otherwise not visible.
// metacache.Cache satisfies this interface directly.
type MetaLoader interface {
	LoadMeta(className string) (*classinfo.Meta, error)
}

// Merger runs Pass 1 (JSDoc link fixup) and Pass 2 (entity merge) over a
// single freshly compiled class's meta.
type Merger struct {
	Loader MetaLoader
}

// entityRow is one row of the working merge table for a function member.
type entityRow struct {
	Access           classinfo.AccessKind
	Abstract         bool
	Mixin            bool
	Inherited        bool
	PropertyGenerated bool
	Property         classinfo.AccessorKind
	AppearsIn        []string
	appearsInSet     map[string]bool
	OverriddenFrom   string
	JSDoc            *classinfo.JSDoc
}

func (r *entityRow) addAppearsIn(name string) {
	if r.appearsInSet == nil {
		r.appearsInSet = make(map[string]bool)
	}
	if r.appearsInSet[name] {
		return
	}
	r.appearsInSet[name] = true
	r.AppearsIn = append(r.AppearsIn, name)
}

// propertyRow is one row of the working merge table for a property.
type propertyRow struct {
	entityRow
	Check classinfo.PropertyCheck
	Async bool
}

type tables struct {
	members    map[string]*entityRow
	properties map[string]*propertyRow
}

func newTables() *tables {
	return &tables{
		members:    make(map[string]*entityRow),
		properties: make(map[string]*propertyRow),
	}
}

// MergeClass runs the full merge over meta in place: Pass 1 JSDoc link
// fixup, Pass 2 ancestor walk, property accessor synthesis, and write-back.
func (m *Merger) MergeClass(meta *classinfo.Meta) error {
	if meta == nil {
		return nil
	}

	fixupJSDocLinks(meta)

	t := newTables()
	if err := m.walk(t, meta, true, make(map[string]bool)); err != nil {
		return fmt.Errorf("merging %s: %w", meta.ClassName, err)
	}

	synthesizeAccessors(t, meta)
	writeBack(t, meta)
	return nil
}

// walk recursively visits meta and its ancestors in the order: self,
// interfaces, mixins, super. visited is scoped to one MergeClass call and
// guards against cyclic/re-entrant inheritance graphs (spec.md §9).
func (m *Merger) walk(t *tables, meta *classinfo.Meta, isSelf bool, visited map[string]bool) error {
	if meta == nil || visited[meta.ClassName] {
		return nil
	}
	visited[meta.ClassName] = true

	for name, md := range meta.Members {
		if md.Type != classinfo.EntityFunction {
			continue
		}
		touchMember(t, name, meta, isSelf, md.JSDoc)
	}
	for name, pd := range meta.Properties {
		touchProperty(t, name, meta, isSelf, pd)
	}

	for _, iface := range meta.Interfaces {
		ifaceMeta, err := m.Loader.LoadMeta(iface)
		if err != nil {
			return err
		}
		if err := m.walk(t, ifaceMeta, false, visited); err != nil {
			return err
		}
	}
	for _, mixin := range meta.Mixins {
		mixinMeta, err := m.Loader.LoadMeta(mixin)
		if err != nil {
			return err
		}
		if err := m.walk(t, mixinMeta, false, visited); err != nil {
			return err
		}
	}
	if meta.SuperClass != "" {
		superMeta, err := m.Loader.LoadMeta(meta.SuperClass)
		if err != nil {
			return err
		}
		if err := m.walk(t, superMeta, false, visited); err != nil {
			return err
		}
	}
	return nil
}

func touchMember(t *tables, name string, owner *classinfo.Meta, isSelf bool, doc *classinfo.JSDoc) *entityRow {
	row, ok := t.members[name]
	if !ok {
		row = &entityRow{
			Abstract:  owner.IsInterface(),
			Mixin:     owner.IsMixin(),
			Inherited: !isSelf,
			Access:    classinfo.ClassifyAccess(name),
		}
		t.members[name] = row
	}
	if owner.IsMixin() && row.Abstract {
		row.Mixin = true
	}
	if !owner.IsInterface() {
		row.Abstract = false
	}
	if !isSelf {
		row.addAppearsIn(owner.ClassName)
		if row.OverriddenFrom == "" {
			row.OverriddenFrom = owner.ClassName
		}
	}
	row.JSDoc = mergeSignature(row.JSDoc, doc)
	return row
}

func touchProperty(t *tables, name string, owner *classinfo.Meta, isSelf bool, def *classinfo.PropertyDef) *propertyRow {
	row, ok := t.properties[name]
	if !ok {
		row = &propertyRow{entityRow: entityRow{
			Abstract:  owner.IsInterface(),
			Mixin:     owner.IsMixin(),
			Inherited: !isSelf,
			Access:    classinfo.ClassifyAccess(name),
		}}
		t.properties[name] = row
	}
	if owner.IsMixin() && row.Abstract {
		row.Mixin = true
	}
	if !owner.IsInterface() {
		row.Abstract = false
	}
	if !isSelf {
		row.addAppearsIn(owner.ClassName)
		if row.OverriddenFrom == "" {
			row.OverriddenFrom = owner.ClassName
		}
	}
	if def != nil {
		if row.Check == "" && def.Check != "" {
			row.Check = def.Check
		}
		if def.Async {
			row.Async = true
		}
		row.JSDoc = mergeSignature(row.JSDoc, def.JSDoc)
	}
	return row
}

// mergeSignature adopts the spec.md §9 Open Question resolution: copy the
// ancestor's @param/@return signature into dst only if dst has none yet and
// src provides one.
func mergeSignature(dst, src *classinfo.JSDoc) *classinfo.JSDoc {
	if src == nil {
		return dst
	}
	hasSignature := len(src.Params) > 0 || src.Return != ""
	if !hasSignature {
		return dst
	}
	if dst == nil {
		dst = &classinfo.JSDoc{}
	}
	if len(dst.Params) > 0 || dst.Return != "" {
		return dst
	}
	dst.Params = append([]string(nil), src.Params...)
	dst.Return = src.Return
	return dst
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// synthesizeAccessors implements spec.md §4.G's accessor completeness rule
// and §6's bit-exact canonical JSDoc descriptions.
func synthesizeAccessors(t *tables, meta *classinfo.Meta) {
	for name, row := range t.properties {
		title := capitalize(name)
		kinds := []classinfo.AccessorKind{classinfo.AccessorGet, classinfo.AccessorSet, classinfo.AccessorReset}
		if row.Check == classinfo.CheckBoolean {
			kinds = append(kinds, classinfo.AccessorIs)
		}
		if row.Async {
			kinds = append(kinds, classinfo.AccessorGetAsync, classinfo.AccessorSetAsync)
			if row.Check == classinfo.CheckBoolean {
				kinds = append(kinds, classinfo.AccessorIsAsync)
			}
		}
		for _, kind := range kinds {
			accessorName := accessorMethodName(kind, title)
			existing, exists := t.members[accessorName]
			if exists && !existing.Abstract {
				continue
			}
			t.members[accessorName] = &entityRow{
				Access:            classinfo.AccessPublic,
				Abstract:          false,
				Mixin:             row.Mixin,
				Inherited:         true,
				PropertyGenerated: true,
				Property:          kind,
				AppearsIn:         existing.appearsInIfAny(),
				OverriddenFrom:    existing.overriddenFromIfAny(),
				JSDoc:             accessorJSDoc(kind, name, string(row.Check)),
			}
		}
	}
}

func (r *entityRow) appearsInIfAny() []string {
	if r == nil {
		return nil
	}
	return r.AppearsIn
}

func (r *entityRow) overriddenFromIfAny() string {
	if r == nil {
		return ""
	}
	return r.OverriddenFrom
}

func accessorMethodName(kind classinfo.AccessorKind, title string) string {
	switch kind {
	case classinfo.AccessorGet:
		return "get" + title
	case classinfo.AccessorIs:
		return "is" + title
	case classinfo.AccessorSet:
		return "set" + title
	case classinfo.AccessorReset:
		return "reset" + title
	case classinfo.AccessorGetAsync:
		return "get" + title + "Async"
	case classinfo.AccessorSetAsync:
		return "set" + title + "Async"
	case classinfo.AccessorIsAsync:
		return "is" + title + "Async"
	default:
		return title
	}
}

// accessorJSDoc returns the bit-exact canonical description for kind, per
// spec.md §6.
func accessorJSDoc(kind classinfo.AccessorKind, prop, check string) *classinfo.JSDoc {
	link := fmt.Sprintf("{@link #%s}", prop)
	switch kind {
	case classinfo.AccessorGet, classinfo.AccessorIs:
		return &classinfo.JSDoc{
			Description: fmt.Sprintf("Gets the (computed) value of the property `%s`.\n\nFor further details take a look at the property definition: %s.", prop, link),
			Return:      check,
		}
	case classinfo.AccessorSet:
		return &classinfo.JSDoc{
			Description: fmt.Sprintf("Sets the user value of the property `%s`.\n\nFor further details take a look at the property definition: %s.", prop, link),
			Params:      []string{fmt.Sprintf("value {%s} the new value", check)},
		}
	case classinfo.AccessorReset:
		return &classinfo.JSDoc{
			Description: fmt.Sprintf("Resets the user value of the property `%s`.\n\nThe computed value falls back to the next available value e.g. appearance, init or inheritance value depending on the property configuration and value availability.\n\nFor further details take a look at the property definition: %s.", prop, link),
		}
	case classinfo.AccessorGetAsync, classinfo.AccessorIsAsync:
		return &classinfo.JSDoc{
			Description: fmt.Sprintf("Returns a {@link Promise} which resolves to the (computed) value of the property `%s`.\nFor further details take a look at the property definition: %s.", prop, link),
			Return:      "Promise",
		}
	case classinfo.AccessorSetAsync:
		return &classinfo.JSDoc{
			Description: fmt.Sprintf("Sets the user value of the property `%s`, returns a {@link Promise} which resolves when the value change has fully completed (in the case where there are asynchronous apply methods or events).\n\nFor further details take a look at the property definition: %s.", prop, link),
			Params:      []string{fmt.Sprintf("value {%s} the new value", check)},
			Return:      "Promise",
		}
	}
	return nil
}

// writeBack implements spec.md §4.G's write-back-to-meta rules.
func writeBack(t *tables, meta *classinfo.Meta) {
	for name, pd := range meta.Properties {
		row, ok := t.properties[name]
		if !ok {
			continue
		}
		pd.OverriddenFrom = row.OverriddenFrom
		pd.AppearsIn = row.AppearsIn
		if pd.Refine {
			pd.JSDoc = mergeSignature(pd.JSDoc, row.JSDoc)
		}
	}

	for name, row := range t.properties {
		if !(row.Abstract || row.Mixin) {
			continue
		}
		if meta.Properties != nil {
			if _, ok := meta.Properties[name]; ok {
				continue
			}
		}
		if meta.Properties == nil {
			meta.Properties = make(map[string]*classinfo.PropertyDef)
		}
		meta.Properties[name] = &classinfo.PropertyDef{
			Check:          row.Check,
			Async:          row.Async,
			Mixin:          row.Mixin,
			Inherited:      true,
			Abstract:       row.Abstract,
			AppearsIn:      row.AppearsIn,
			OverriddenFrom: row.OverriddenFrom,
			JSDoc:          row.JSDoc,
		}
	}

	for _, md := range meta.Members {
		if md.Type != classinfo.EntityVariable {
			continue
		}
		if _, ok := t.members[nameOfMember(meta, md)]; ok {
			md.Type = classinfo.EntityFunction
		}
	}

	for name, md := range meta.Members {
		row, ok := t.members[name]
		if !ok {
			continue
		}
		md.OverriddenFrom = row.OverriddenFrom
		md.AppearsIn = row.AppearsIn
		md.Access = row.Access
	}

	for name, row := range t.members {
		if !(row.Abstract || row.Mixin || row.PropertyGenerated) {
			continue
		}
		if meta.Members != nil {
			if _, ok := meta.Members[name]; ok {
				continue
			}
		}
		if meta.Members == nil {
			meta.Members = make(map[string]*classinfo.MemberDef)
		}
		meta.Members[name] = &classinfo.MemberDef{
			Type:           classinfo.EntityFunction,
			Access:         row.Access,
			Abstract:       row.Abstract,
			Mixin:          row.Mixin,
			Inherited:      true,
			Property:       row.Property,
			AppearsIn:      row.AppearsIn,
			OverriddenFrom: row.OverriddenFrom,
			JSDoc:          row.JSDoc,
		}
		if row.Abstract {
			meta.Abstract = true
		}
	}

	for _, md := range meta.Members {
		if len(md.AppearsIn) == 0 {
			md.AppearsIn = nil
		}
	}
	for _, pd := range meta.Properties {
		if len(pd.AppearsIn) == 0 {
			pd.AppearsIn = nil
		}
	}
	if len(meta.Members) == 0 {
		meta.Members = nil
	}
}

// nameOfMember finds md's key in meta.Members. Meta's own member map is
// small (per-class member count), so a linear scan here is cheap relative
// to the ancestor walk it follows.
func nameOfMember(meta *classinfo.Meta, md *classinfo.MemberDef) string {
	for name, v := range meta.Members {
		if v == md {
			return name
		}
	}
	return ""
}

// fixupJSDocLinks implements Pass 1: rewrites bare "{@link #member}"
// references into fully-qualified "{@link ClassName#member}" ones so they
// resolve correctly once hoisted into an inheriting class's documentation.
func fixupJSDocLinks(meta *classinfo.Meta) {
	resolve := func(doc *classinfo.JSDoc) {
		if doc == nil || doc.Description == "" {
			return
		}
		doc.Description = strings.ReplaceAll(doc.Description, "{@link #", "{@link "+meta.ClassName+"#")
	}
	for _, pd := range meta.Properties {
		resolve(pd.JSDoc)
	}
	for _, md := range meta.Members {
		resolve(md.JSDoc)
	}
	for _, md := range meta.Statics {
		resolve(md.JSDoc)
	}
	for _, md := range meta.Events {
		resolve(md.JSDoc)
	}
}
