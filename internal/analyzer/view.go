package analyzer

import (
	"bytes"
	"encoding/xml"
	"io"

	"relint/internal/diag"
	"relint/internal/modindex"
	"relint/internal/parsing"
	"relint/internal/registry"
	"relint/internal/relerr"
)

// viewRoots maps a declared view type to its expected document element.
var viewRoots = map[string]string{
	"tree":      "tree",
	"form":      "form",
	"list-form": "form",
	"inherit":   "data",
}

// AnalyzeView checks a view-description file against the view record that
// declares it: the document element must match the declared view type, and
// every referenced field must exist on the view's model. A view with no
// declaring record yields no diagnostics.
func AnalyzeView(file *parsing.File, mgr *registry.Manager, index *modindex.Index) ([]diag.Diagnostic, error) {
	if index == nil || file.ModuleName == "" {
		return nil, relerr.Newf(relerr.ModuleNotFound, "no module manifest above %s", file.Path)
	}
	info, ok := index.ViewInfo(file.Stem())
	if !ok {
		return nil, nil
	}
	w := &viewWalker{
		file:  file,
		info:  info,
		lines: parsing.NewLineIndex(file.Data),
	}

	pool, err := mgr.Pool(info.Deps...)
	if err != nil {
		return nil, err
	}
	model, err := pool.GetEntity(info.Model)
	if err != nil {
		if !relerrUnknownModel(err) {
			return nil, err
		}
		w.add(diag.RecordUnknownModel(w.ctx(), diag.LineRange(1), info.Model))
	}
	w.model = model

	w.run()
	diag.Sort(w.diags)
	return w.diags, nil
}

type viewWalker struct {
	file  *parsing.File
	info  modindex.ViewInfo
	lines *parsing.LineIndex
	model *registry.Model
	diags []diag.Diagnostic
}

func (w *viewWalker) ctx() diag.Context {
	return diag.Context{Path: w.file.Path, Module: w.file.ModuleName, Model: w.info.Model}
}

func (w *viewWalker) add(d diag.Diagnostic) {
	if diag.Suppressed(w.file.Lines, d.Code, d.Range.Start.Line) {
		return
	}
	w.diags = append(w.diags, d)
}

func (w *viewWalker) run() {
	decoder := xml.NewDecoder(bytes.NewReader(w.file.Data))
	var depth int
	for {
		tok, err := decoder.Token()
		if err == io.EOF || err != nil {
			break
		}
		el, ok := tok.(xml.StartElement)
		if !ok {
			if _, end := tok.(xml.EndElement); end {
				depth--
			}
			continue
		}
		depth++
		rng := diag.LineRange(w.lines.LineAt(decoder.InputOffset()))
		if depth == 1 {
			if want := viewRoots[w.info.Type]; want != "" && el.Name.Local != want {
				w.add(diag.UnexpectedXMLTag(w.ctx(), rng, el.Name.Local))
			}
			continue
		}
		switch el.Name.Local {
		case "tree":
			if w.info.Type != "tree" {
				w.add(diag.UnexpectedXMLTag(w.ctx(), rng, el.Name.Local))
			}
		case "form":
			if w.info.Type != "form" && w.info.Type != "list-form" {
				w.add(diag.UnexpectedXMLTag(w.ctx(), rng, el.Name.Local))
			}
		case "data":
			if w.info.Type != "inherit" {
				w.add(diag.UnexpectedXMLTag(w.ctx(), rng, el.Name.Local))
			}
		case "field":
			name, ok := xmlAttr(el, "name")
			if !ok || name == "" {
				w.add(diag.RecordMissingAttribute(w.ctx(), rng, "name"))
				continue
			}
			w.checkField(name, rng)
		case "label", "separator", "group":
			if name, ok := xmlAttr(el, "name"); ok && name != "" {
				w.checkField(name, rng)
			}
		}
	}
}

func (w *viewWalker) checkField(name string, rng diag.Range) {
	if w.model == nil {
		return
	}
	if _, ok := w.model.Fields[name]; !ok {
		w.add(diag.RecordUnknownField(w.ctx(), rng, w.model.Name, name))
	}
}
