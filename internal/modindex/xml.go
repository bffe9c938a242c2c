package modindex

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"strings"

	"relint/internal/introspect"
	"relint/internal/parsing"
)

// viewModel is the distinguished model whose records bind view-description
// files to a model and view type.
const viewModel = "ui.view"

// scanDataFile indexes the records of one declarative-data file. Malformed
// XML stops the scan of that file; whatever was indexed before the error is
// kept.
func (ix *Index) scanDataFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	lines := parsing.NewLineIndex(data)
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var depth int
	deps := ix.OwnDeps()
	type viewFields struct {
		name, model, viewType string
		capture               *string
	}
	var current *viewFields
	var currentModel string

	for {
		tok, err := decoder.Token()
		if err == io.EOF || err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "data":
				if depth == 2 {
					modules := []string{ix.name}
					if extra, ok := attr(t, "depends"); ok {
						modules = append(modules, strings.Split(extra, ",")...)
					}
					deps = introspect.NewDepSet(modules...)
				}
			case "record":
				if depth != 3 {
					continue
				}
				currentModel, _ = attr(t, "model")
				if id, ok := attr(t, "id"); ok {
					if _, dup := ix.records[id]; !dup {
						ix.records[id] = Record{
							Deps:  deps,
							File:  path,
							Line:  lines.LineAt(decoder.InputOffset()),
							Model: currentModel,
						}
					}
				}
				if currentModel == viewModel {
					current = &viewFields{}
				}
			case "field":
				if depth != 4 || current == nil {
					continue
				}
				switch name, _ := attr(t, "name"); name {
				case "name":
					current.capture = &current.name
				case "model":
					current.capture = &current.model
				case "type":
					current.capture = &current.viewType
				default:
					current.capture = nil
				}
			}
		case xml.CharData:
			if current != nil && current.capture != nil {
				*current.capture += string(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "field":
				if current != nil {
					current.capture = nil
				}
			case "record":
				if depth == 3 && current != nil {
					if current.name != "" && current.model != "" && current.viewType != "" {
						ix.views[current.name] = ViewInfo{
							Deps:  deps,
							Type:  current.viewType,
							Model: current.model,
						}
					}
					current = nil
				}
				currentModel = ""
			case "data":
				if depth == 2 {
					deps = ix.OwnDeps()
				}
			}
			depth--
		}
	}
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}
