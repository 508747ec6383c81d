package dom

import "testing"

func TestDocumentTree(t *testing.T) {
	doc := NewDocument()
	if doc.Root().TagName() != "HTML" || doc.Body().TagName() != "BODY" {
		t.Fatalf("unexpected root/body tags")
	}
	if doc.Body().Parent() != doc.Root() {
		t.Fatalf("expected body to be a child of root")
	}

	div := doc.CreateElement("div")
	doc.Body().AppendChild(div)
	if div.Parent() != doc.Body() {
		t.Fatalf("expected div under body")
	}
	doc.Body().RemoveChild(div)
	if div.Parent() != nil || len(doc.Body().Children()) != 0 {
		t.Fatalf("expected div to be detached")
	}
}

func TestObserveMutations(t *testing.T) {
	doc := NewDocument()
	count := 0
	cancel := doc.ObserveMutations(func() { count++ })

	el := doc.CreateElement("p")
	doc.Body().AppendChild(el)
	el.SetAttribute("class", "x")
	el.SetStyle("color: red")
	el.RemoveAttribute("missing")
	el.SetBox(Box{OffsetHeight: 10})
	if count != 3 {
		t.Fatalf("expected 3 mutations, got %d", count)
	}

	cancel()
	el.SetAttribute("class", "y")
	if count != 3 {
		t.Fatalf("expected no mutations after cancel, got %d", count)
	}
}

func TestQuerySelectorAll(t *testing.T) {
	doc := NewDocument()
	main := doc.CreateElement("div")
	main.SetAttribute("id", "main")
	footer := doc.CreateElement("footer")
	footer.SetAttribute("class", "page footer")
	doc.Body().AppendChild(main)
	doc.Body().AppendChild(footer)

	found := doc.QuerySelectorAll("#main, .footer")
	if len(found) != 2 || found[0] != main || found[1] != footer {
		t.Fatalf("unexpected matches %#v", found)
	}
	if len(doc.QuerySelectorAll("FOOTER")) != 1 {
		t.Fatalf("expected tag match to be case-insensitive")
	}
	if doc.QuerySelectorAll(" , ") != nil {
		t.Fatalf("expected empty selector list to match nothing")
	}
}

func TestOffsetHeightToBody(t *testing.T) {
	doc := NewDocument()
	section := doc.CreateElement("section")
	section.SetBox(Box{OffsetTop: 100, OffsetHeight: 400})
	item := doc.CreateElement("div")
	item.SetBox(Box{OffsetTop: 50, OffsetHeight: 30})
	doc.Body().AppendChild(section)
	section.AppendChild(item)

	if got := item.OffsetHeightToBody(); got != 180 {
		t.Fatalf("expected 180, got %d", got)
	}
	if got := doc.Body().OffsetHeightToBody(); got != 0 {
		t.Fatalf("expected body offset 0, got %d", got)
	}
}

func TestFocusAndLoad(t *testing.T) {
	doc := NewDocument()
	if doc.ActiveElement() != doc.Body() {
		t.Fatalf("expected body to be active by default")
	}
	link := doc.CreateElement("a")
	link.SetAttribute("href", "tel:123")
	doc.Focus(link)
	if doc.ActiveElement().Href() != "tel:123" {
		t.Fatalf("expected focused anchor to be active")
	}

	var loaded *Element
	cancel := doc.OnLoad(func(el *Element) { loaded = el })
	img := doc.CreateElement("img")
	doc.DispatchLoad(img)
	if loaded != img {
		t.Fatalf("expected load listener to see image")
	}
	cancel()
	loaded = nil
	doc.DispatchLoad(img)
	if loaded != nil {
		t.Fatalf("expected no load after cancel")
	}
}
