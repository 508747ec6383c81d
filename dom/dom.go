// Package dom is a small in-memory document model. It stands in for the
// browser DOM that agents read and mutate: attributes, the element tree,
// focus, layout boxes and load notifications.
package dom

import (
	"sort"
	"strings"
	"sync"
)

// Box is the layout of an element as reported by a rendering engine.
type Box struct {
	OffsetTop    int
	OffsetHeight int
	OffsetWidth  int
	ScrollHeight int
	ScrollWidth  int
	MarginTop    int
	MarginBottom int
}

type Element struct {
	doc      *Document
	tag      string
	attrs    map[string]string
	style    string
	box      Box
	parent   *Element
	children []*Element
}

type Document struct {
	mu        sync.RWMutex
	root      *Element
	body      *Element
	active    *Element
	nextID    int
	observers map[int]func()
	loaders   map[int]func(*Element)
}

func NewDocument() *Document {
	doc := &Document{
		observers: map[int]func(){},
		loaders:   map[int]func(*Element){},
	}
	doc.root = doc.CreateElement("html")
	doc.body = doc.CreateElement("body")
	doc.body.parent = doc.root
	doc.root.children = []*Element{doc.body}
	return doc
}

func (d *Document) CreateElement(tag string) *Element {
	return &Element{doc: d, tag: strings.ToUpper(strings.TrimSpace(tag)), attrs: map[string]string{}}
}

// Root returns the document element.
func (d *Document) Root() *Element { return d.root }

func (d *Document) Body() *Element { return d.body }

// ActiveElement returns the focused element, or body when nothing is
// focused.
func (d *Document) ActiveElement() *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.active == nil {
		return d.body
	}
	return d.active
}

func (d *Document) Focus(el *Element) {
	d.mu.Lock()
	d.active = el
	d.mu.Unlock()
}

// ObserveMutations registers fn for every attribute, style or child list
// change in the document. The returned func removes the observer.
func (d *Document) ObserveMutations(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.observers[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.observers, id)
		d.mu.Unlock()
	}
}

// OnLoad registers fn for load events dispatched on any element, the way a
// capturing document listener sees them.
func (d *Document) OnLoad(fn func(*Element)) func() {
	if fn == nil {
		return func() {}
	}
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.loaders[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.loaders, id)
		d.mu.Unlock()
	}
}

// DispatchLoad signals that el finished loading.
func (d *Document) DispatchLoad(el *Element) {
	d.mu.RLock()
	listeners := snapshot(d.loaders)
	d.mu.RUnlock()
	for _, fn := range listeners {
		fn(el)
	}
}

// QuerySelectorAll returns elements in document order matching any of the
// comma-separated selectors. Supported forms are "#id", ".class" and a tag
// name.
func (d *Document) QuerySelectorAll(selectors string) []*Element {
	parts := []string{}
	for _, part := range strings.Split(selectors, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	matched := []*Element{}
	walk(d.root, func(el *Element) {
		for _, selector := range parts {
			if el.matches(selector) {
				matched = append(matched, el)
				return
			}
		}
	})
	return matched
}

func (d *Document) mutated() {
	d.mu.RLock()
	observers := snapshot(d.observers)
	d.mu.RUnlock()
	for _, fn := range observers {
		fn()
	}
}

func (e *Element) TagName() string { return e.tag }

func (e *Element) Document() *Document { return e.doc }

func (e *Element) GetAttribute(name string) (string, bool) {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	value, ok := e.attrs[name]
	return value, ok
}

func (e *Element) Attribute(name string) string {
	value, _ := e.GetAttribute(name)
	return value
}

func (e *Element) HasAttribute(name string) bool {
	_, ok := e.GetAttribute(name)
	return ok
}

func (e *Element) SetAttribute(name string, value string) {
	e.doc.mu.Lock()
	e.attrs[name] = value
	e.doc.mu.Unlock()
	e.doc.mutated()
}

func (e *Element) RemoveAttribute(name string) {
	e.doc.mu.Lock()
	_, ok := e.attrs[name]
	delete(e.attrs, name)
	e.doc.mu.Unlock()
	if ok {
		e.doc.mutated()
	}
}

// Href is the href attribute of anchors and areas.
func (e *Element) Href() string {
	return e.Attribute("href")
}

func (e *Element) Style() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.style
}

func (e *Element) SetStyle(style string) {
	e.doc.mu.Lock()
	e.style = style
	e.doc.mu.Unlock()
	e.doc.mutated()
}

func (e *Element) Box() Box {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.box
}

// SetBox updates the layout of e. Layout changes are not DOM mutations.
func (e *Element) SetBox(box Box) {
	e.doc.mu.Lock()
	e.box = box
	e.doc.mu.Unlock()
}

func (e *Element) Parent() *Element {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.parent
}

func (e *Element) Children() []*Element {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return append([]*Element(nil), e.children...)
}

// AppendChild moves child under e.
func (e *Element) AppendChild(child *Element) {
	if child == nil {
		return
	}
	e.doc.mu.Lock()
	if child.parent != nil {
		child.parent.children = without(child.parent.children, child)
	}
	child.parent = e
	e.children = append(e.children, child)
	e.doc.mu.Unlock()
	e.doc.mutated()
}

func (e *Element) RemoveChild(child *Element) {
	if child == nil {
		return
	}
	e.doc.mu.Lock()
	if child.parent != e {
		e.doc.mu.Unlock()
		return
	}
	e.children = without(e.children, child)
	child.parent = nil
	e.doc.mu.Unlock()
	e.doc.mutated()
}

// OffsetHeightToBody is the distance from the top of body to the bottom
// edge of e.
func (e *Element) OffsetHeightToBody() int {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	if e == e.doc.body {
		return 0
	}
	offset := 0
	for node := e; node != nil && node != e.doc.body; node = node.parent {
		offset += node.box.OffsetTop
	}
	return offset + e.box.OffsetHeight
}

func (e *Element) matches(selector string) bool {
	switch {
	case strings.HasPrefix(selector, "#"):
		return e.attrs["id"] == selector[1:]
	case strings.HasPrefix(selector, "."):
		for _, class := range strings.Fields(e.attrs["class"]) {
			if class == selector[1:] {
				return true
			}
		}
		return false
	default:
		return strings.EqualFold(e.tag, selector)
	}
}

func walk(el *Element, visit func(*Element)) {
	if el == nil {
		return
	}
	visit(el)
	for _, child := range el.children {
		walk(child, visit)
	}
}

func without(items []*Element, target *Element) []*Element {
	out := items[:0]
	for _, item := range items {
		if item != target {
			out = append(out, item)
		}
	}
	return out
}

func snapshot[T any](items map[int]T) []T {
	ids := make([]int, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, items[id])
	}
	return out
}
