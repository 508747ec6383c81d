package resize

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-xfc/dom"
)

const (
	MethodBodyOffset            = "bodyOffset"
	MethodBodyScroll            = "bodyScroll"
	MethodDocumentElementOffset = "documentElementOffset"
	MethodDocumentElementScroll = "documentElementScroll"
	MethodScroll                = "scroll"
	MethodMax                   = "max"
	MethodMin                   = "min"

	DefaultHeightMethod = MethodBodyOffset
	DefaultWidthMethod  = MethodScroll
)

// Measures are the four box readings a calculation method picks from.
type Measures struct {
	BodyOffset            int
	BodyScroll            int
	DocumentElementOffset int
	DocumentElementScroll int
}

func (m Measures) all() []int {
	return []int{m.BodyOffset, m.BodyScroll, m.DocumentElementOffset, m.DocumentElementScroll}
}

// Measurer reads layout from the rendered document.
type Measurer interface {
	Height() Measures
	Width() Measures
	// OffsetHeights returns, for each element matching selectors, the
	// distance from the top of body to its bottom edge.
	OffsetHeights(selectors string) []int
}

// CalculateHeight applies a height method. An unknown method is reported
// and the default method is used.
func CalculateHeight(method string, m Measures) (int, error) {
	if strings.TrimSpace(method) == "" {
		method = DefaultHeightMethod
	}
	switch method {
	case MethodBodyOffset:
		return m.BodyOffset, nil
	case MethodBodyScroll:
		return m.BodyScroll, nil
	case MethodDocumentElementOffset:
		return m.DocumentElementOffset, nil
	case MethodDocumentElementScroll:
		return m.DocumentElementScroll, nil
	case MethodMax:
		return maxOf(m.all()...), nil
	case MethodMin:
		return minOf(m.all()...), nil
	}
	fallback, _ := CalculateHeight(DefaultHeightMethod, m)
	return fallback, fmt.Errorf("resize: '%s' is not a valid method name", method)
}

// CalculateWidth applies a width method. "scroll" takes the larger of the
// two scroll widths.
func CalculateWidth(method string, m Measures) (int, error) {
	if strings.TrimSpace(method) == "" {
		method = DefaultWidthMethod
	}
	switch method {
	case MethodScroll:
		return maxOf(m.BodyScroll, m.DocumentElementScroll), nil
	case MethodBodyOffset:
		return m.BodyOffset, nil
	case MethodBodyScroll:
		return m.BodyScroll, nil
	case MethodDocumentElementOffset:
		return m.DocumentElementOffset, nil
	case MethodDocumentElementScroll:
		return m.DocumentElementScroll, nil
	case MethodMax:
		return maxOf(m.all()...), nil
	case MethodMin:
		return minOf(m.all()...), nil
	}
	fallback, _ := CalculateWidth(DefaultWidthMethod, m)
	return fallback, fmt.Errorf("resize: '%s' is not a valid method name", method)
}

// DocumentMeasurer measures a dom.Document from its element boxes.
type DocumentMeasurer struct {
	Document *dom.Document
}

func (d DocumentMeasurer) Height() Measures {
	if d.Document == nil {
		return Measures{}
	}
	body := d.Document.Body().Box()
	root := d.Document.Root().Box()
	return Measures{
		BodyOffset:            body.OffsetHeight + body.MarginTop + body.MarginBottom,
		BodyScroll:            body.ScrollHeight,
		DocumentElementOffset: root.OffsetHeight,
		DocumentElementScroll: root.ScrollHeight,
	}
}

func (d DocumentMeasurer) Width() Measures {
	if d.Document == nil {
		return Measures{}
	}
	body := d.Document.Body().Box()
	root := d.Document.Root().Box()
	return Measures{
		BodyOffset:            body.OffsetWidth,
		BodyScroll:            body.ScrollWidth,
		DocumentElementOffset: root.OffsetWidth,
		DocumentElementScroll: root.ScrollWidth,
	}
}

func (d DocumentMeasurer) OffsetHeights(selectors string) []int {
	if d.Document == nil {
		return nil
	}
	matched := d.Document.QuerySelectorAll(selectors)
	heights := make([]int, 0, len(matched))
	for _, el := range matched {
		heights = append(heights, el.OffsetHeightToBody())
	}
	return heights
}

func maxOf(values ...int) int {
	out := 0
	for i, value := range values {
		if i == 0 || value > out {
			out = value
		}
	}
	return out
}

func minOf(values ...int) int {
	out := 0
	for i, value := range values {
		if i == 0 || value < out {
			out = value
		}
	}
	return out
}
