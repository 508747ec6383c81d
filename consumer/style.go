package consumer

import (
	"strings"

	"github.com/goliatone/go-xfc/dom"
)

// setStyleProperty replaces one declaration in the inline style of el and
// keeps the others in place.
func setStyleProperty(el *dom.Element, name string, value string) {
	if el == nil {
		return
	}
	name = strings.TrimSpace(name)
	declarations := []string{}
	replaced := false
	for _, part := range strings.Split(el.Style(), ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, _, _ := strings.Cut(part, ":")
		if strings.TrimSpace(key) == name {
			part = name + ": " + value
			replaced = true
		}
		declarations = append(declarations, part)
	}
	if !replaced {
		declarations = append(declarations, name+": "+value)
	}
	el.SetStyle(strings.Join(declarations, "; "))
}

// styleProperty returns the value of one inline declaration.
func styleProperty(el *dom.Element, name string) string {
	if el == nil {
		return ""
	}
	for _, part := range strings.Split(el.Style(), ";") {
		key, value, ok := strings.Cut(part, ":")
		if ok && strings.TrimSpace(key) == name {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
