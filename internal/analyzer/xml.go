package analyzer

import (
	"bytes"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"

	"relint/internal/diag"
	"relint/internal/modindex"
	"relint/internal/parsing"
	"relint/internal/registry"
	"relint/internal/relerr"
)

// wrapperTag is the mandatory document element of declarative-data files.
const wrapperTag = "fabric"

// viewModelName is the model whose records declare view descriptions; its
// model field must itself name a known model.
const viewModelName = "ui.view"

// dataWalker validates one declarative-data file against the registry and
// the module manifest.
type dataWalker struct {
	file  *parsing.File
	mgr   *registry.Manager
	index *modindex.Index

	lines *parsing.LineIndex
	pool  *registry.Pool
	model *registry.Model
	ids   map[string]int
	diags []diag.Diagnostic
}

// AnalyzeData checks a declarative-data file: wrapper tag against manifest
// registration, element nesting, record identifiers, and record models and
// fields against the registry.
func AnalyzeData(file *parsing.File, mgr *registry.Manager, index *modindex.Index) ([]diag.Diagnostic, error) {
	if index == nil || file.ModuleName == "" {
		return nil, relerr.Newf(relerr.ModuleNotFound, "no module manifest above %s", file.Path)
	}
	w := &dataWalker{
		file:  file,
		mgr:   mgr,
		index: index,
		lines: parsing.NewLineIndex(file.Data),
		ids:   map[string]int{},
	}
	if err := w.run(); err != nil {
		return nil, err
	}
	diag.Sort(w.diags)
	return w.diags, nil
}

func (w *dataWalker) ctx() diag.Context {
	var model string
	if w.model != nil {
		model = w.model.Name
	}
	return diag.Context{Path: w.file.Path, Module: w.file.ModuleName, Model: model}
}

func (w *dataWalker) add(d diag.Diagnostic) {
	if diag.Suppressed(w.file.Lines, d.Code, d.Range.Start.Line) {
		return
	}
	w.diags = append(w.diags, d)
}

func (w *dataWalker) lineRange(offset int64) diag.Range {
	return diag.LineRange(w.lines.LineAt(offset))
}

func (w *dataWalker) run() error {
	registered := w.file.Manifest != nil &&
		w.file.Manifest.RegistersData(filepath.Base(w.file.Path))

	decoder := xml.NewDecoder(bytes.NewReader(w.file.Data))
	var depth int
	var wrapperFound bool
	var fieldCapture *fieldCheck

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			// malformed XML: report what was found so far
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			rng := w.lineRange(decoder.InputOffset())
			switch t.Name.Local {
			case wrapperTag:
				if depth == 1 {
					wrapperFound = true
				} else {
					w.add(diag.UnexpectedXMLTag(w.ctx(), rng, t.Name.Local))
				}
			case "data":
				if depth != 2 {
					w.add(diag.UnexpectedXMLTag(w.ctx(), rng, t.Name.Local))
					continue
				}
				if err := w.enterData(t); err != nil {
					return err
				}
			case "record":
				// a misplaced record is flagged but still validated
				if depth != 3 {
					w.add(diag.UnexpectedXMLTag(w.ctx(), rng, t.Name.Local))
				}
				if err := w.enterRecord(t, rng); err != nil {
					return err
				}
			case "field":
				if depth != 4 {
					w.add(diag.UnexpectedXMLTag(w.ctx(), rng, t.Name.Local))
				}
				fieldCapture = w.enterField(t, rng)
			default:
				if depth <= 2 {
					w.add(diag.UnexpectedXMLTag(w.ctx(), rng, t.Name.Local))
				}
			}
		case xml.CharData:
			if fieldCapture != nil {
				fieldCapture.text += string(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "field":
				if fieldCapture != nil {
					if err := w.leaveField(fieldCapture); err != nil {
						return err
					}
					fieldCapture = nil
				}
			case "record":
				w.model = nil
			case "data":
				w.pool = nil
			}
			depth--
		}
	}

	switch {
	case registered && !wrapperFound:
		w.add(diag.WrapperTagNotFound(w.ctx()))
	case !registered && wrapperFound:
		w.add(diag.DataFileUnregistered(w.ctx()))
	}
	return nil
}

// enterData opens the registry session for the data group: the module's own
// dependency set plus the depends attribute.
func (w *dataWalker) enterData(el xml.StartElement) error {
	modules := []string{w.index.Name()}
	if extra, ok := xmlAttr(el, "depends"); ok {
		for _, dep := range strings.Split(extra, ",") {
			if dep = strings.TrimSpace(dep); dep != "" {
				modules = append(modules, dep)
			}
		}
	}
	pool, err := w.mgr.Pool(modules...)
	if err != nil {
		return err
	}
	w.pool = pool
	return nil
}

func (w *dataWalker) enterRecord(el xml.StartElement, rng diag.Range) error {
	id, hasID := xmlAttr(el, "id")
	modelName, hasModel := xmlAttr(el, "model")
	if !hasModel || modelName == "" {
		w.add(diag.RecordMissingAttribute(w.ctx(), rng, "model"))
	}
	if !hasID || id == "" {
		w.add(diag.RecordMissingAttribute(w.ctx(), rng, "id"))
	} else if first, dup := w.ids[id]; dup {
		w.add(diag.RecordDuplicateId(w.ctx(), rng, id, first))
	} else {
		w.ids[id] = rng.Start.Line
	}
	if w.pool == nil || modelName == "" {
		return nil
	}
	model, err := w.pool.GetEntity(modelName)
	if err != nil {
		if relerrUnknownModel(err) {
			w.add(diag.RecordUnknownModel(w.ctx(), rng, modelName))
			return nil
		}
		return err
	}
	w.model = model
	return nil
}

// fieldCheck carries a field element across its character data, so view
// model references can be validated once the text is complete.
type fieldCheck struct {
	rng       diag.Range
	viewModel bool
	text      string
}

func (w *dataWalker) enterField(el xml.StartElement, rng diag.Range) *fieldCheck {
	name, ok := xmlAttr(el, "name")
	if !ok || name == "" {
		w.add(diag.RecordMissingAttribute(w.ctx(), rng, "name"))
		return nil
	}
	if w.model == nil {
		return nil
	}
	if _, ok := w.model.Fields[name]; !ok {
		w.add(diag.RecordUnknownField(w.ctx(), rng, w.model.Name, name))
		return nil
	}
	if w.model.Name == viewModelName && name == "model" {
		return &fieldCheck{rng: rng, viewModel: true}
	}
	return nil
}

func (w *dataWalker) leaveField(fc *fieldCheck) error {
	if !fc.viewModel || w.pool == nil {
		return nil
	}
	name := strings.TrimSpace(fc.text)
	if name == "" {
		return nil
	}
	if _, err := w.pool.GetEntity(name); err != nil {
		if relerrUnknownModel(err) {
			w.add(diag.RecordUnknownModel(w.ctx(), fc.rng, name))
			return nil
		}
		return err
	}
	return nil
}

func xmlAttr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}
