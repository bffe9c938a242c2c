package analyzer

import (
	"path/filepath"
	"strings"
	"testing"

	"relint/internal/diag"
	"relint/internal/parsing"
	"relint/internal/relerr"
)

// analyzeData runs the data walker over src stored under name in the fixture
// module. Only library.xml is listed in the manifest.
func (fx *fixture) analyzeData(t *testing.T, name, src string) []diag.Diagnostic {
	t.Helper()
	f, err := parsing.Load(filepath.Join(fx.dir, name), []byte(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	diags, err := AnalyzeData(f, fx.mgr, fx.ix)
	if err != nil {
		t.Fatalf("AnalyzeData: %v", err)
	}
	return diags
}

func TestDataValidFile(t *testing.T) {
	fx := newFixture(t)
	diags := fx.analyzeData(t, "library.xml", `<?xml version="1.0"?>
<fabric>
  <data>
    <record model="library.author" id="author_main">
      <field name="name">Main</field>
    </record>
    <record model="ui.view" id="extra_view">
      <field name="name">extra_form</field>
      <field name="model">library.book</field>
      <field name="type">form</field>
    </record>
  </data>
</fabric>
`)
	expectNone(t, diags)
}

func TestDataMissingWrapper(t *testing.T) {
	fx := newFixture(t)
	diags := fx.analyzeData(t, "library.xml", `<?xml version="1.0"?>
<data/>
`)
	expectOnly(t, diags, diag.CodeWrapperTagNotFound, diag.CodeUnexpectedXMLTag)
	if diags[0].Severity != diag.Error {
		t.Errorf("severity = %v, want Error", diags[0].Severity)
	}
}

func TestDataUnregisteredFile(t *testing.T) {
	fx := newFixture(t)
	diags := fx.analyzeData(t, "extra.xml", `<?xml version="1.0"?>
<fabric>
  <data/>
</fabric>
`)
	expectOnly(t, diags, diag.CodeDataFileUnregistered)
	if diags[0].Severity != diag.Warning {
		t.Errorf("severity = %v, want Warning", diags[0].Severity)
	}
}

func TestDataRecordDiagnostics(t *testing.T) {
	fx := newFixture(t)
	diags := fx.analyzeData(t, "library.xml", `<?xml version="1.0"?>
<fabric>
  <data>
    <record model="library.missing" id="a"/>
    <record model="library.book"/>
    <record id="c"/>
    <record model="library.book" id="dup"/>
    <record model="library.book" id="dup"/>
    <record model="library.book" id="b">
      <field name="nope">1</field>
      <field>2</field>
    </record>
  </data>
</fabric>
`)
	expectOnly(t, diags,
		diag.CodeRecordUnknownModel,     // library.missing
		diag.CodeRecordMissingAttribute, // no id
		diag.CodeRecordMissingAttribute, // no model
		diag.CodeRecordDuplicateId,
		diag.CodeRecordUnknownField,
		diag.CodeRecordMissingAttribute, // field without name
	)
	if !strings.Contains(diags[0].Message, "library.missing") {
		t.Errorf("message = %q", diags[0].Message)
	}
	if !strings.Contains(diags[3].Message, "line 7") {
		t.Errorf("duplicate should point at the first definition: %q", diags[3].Message)
	}
	if !strings.Contains(diags[4].Message, `"nope"`) || !strings.Contains(diags[4].Message, "library.book") {
		t.Errorf("message = %q", diags[4].Message)
	}
}

func TestDataMisplacedElements(t *testing.T) {
	fx := newFixture(t)
	diags := fx.analyzeData(t, "library.xml", `<?xml version="1.0"?>
<fabric>
  <record model="library.book" id="a"/>
  <menu/>
  <data>
    <data/>
  </data>
</fabric>
`)
	expectOnly(t, diags, diag.CodeUnexpectedXMLTag, diag.CodeUnexpectedXMLTag,
		diag.CodeUnexpectedXMLTag)
}

func TestDataMisplacedElementsAreStillValidated(t *testing.T) {
	fx := newFixture(t)
	diags := fx.analyzeData(t, "library.xml", `<?xml version="1.0"?>
<fabric>
  <record id="stray"/>
  <data>
    <record model="library.book" id="b">
      <field name="title"><field/></field>
    </record>
  </data>
</fabric>
`)
	// the misplacement and the element's own attribute problems both surface
	expectOnly(t, diags,
		diag.CodeUnexpectedXMLTag,       // record at depth 2
		diag.CodeRecordMissingAttribute, // its missing model
		diag.CodeUnexpectedXMLTag,       // field at depth 5
		diag.CodeRecordMissingAttribute, // its missing name
	)
	if !strings.Contains(diags[1].Message, `"model"`) {
		t.Errorf("message = %q", diags[1].Message)
	}
	if !strings.Contains(diags[3].Message, `"name"`) {
		t.Errorf("message = %q", diags[3].Message)
	}
}

func TestDataViewModelReference(t *testing.T) {
	fx := newFixture(t)
	diags := fx.analyzeData(t, "library.xml", `<?xml version="1.0"?>
<fabric>
  <data>
    <record model="ui.view" id="broken_view">
      <field name="model">library.missing</field>
    </record>
  </data>
</fabric>
`)
	expectOnly(t, diags, diag.CodeRecordUnknownModel)
	if diags[0].Range.Start.Line != 5 {
		t.Errorf("line = %d, want 5", diags[0].Range.Start.Line)
	}
}

func TestDataDependsOpensExtendedSession(t *testing.T) {
	fx := newFixture(t)
	diags := fx.analyzeData(t, "library.xml", `<?xml version="1.0"?>
<fabric>
  <data depends="base">
    <record model="library.book" id="a">
      <field name="title">T</field>
    </record>
  </data>
</fabric>
`)
	expectNone(t, diags)
}

func TestDataSuppressionMarker(t *testing.T) {
	fx := newFixture(t)
	diags := fx.analyzeData(t, "library.xml", `<?xml version="1.0"?>
<fabric>
  <data>
    <!-- RELINT-IGNORE-5004 -->
    <record model="library.missing" id="a"/>
  </data>
</fabric>
`)
	expectNone(t, diags)
}

func TestDataOutsideModuleFails(t *testing.T) {
	fx := newFixture(t)
	f, err := parsing.Load(filepath.Join(t.TempDir(), "loose.xml"), []byte("<fabric/>"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := AnalyzeData(f, fx.mgr, nil); !relerr.HasCode(err, relerr.ModuleNotFound) {
		t.Errorf("err = %v, want MODULE_NOT_FOUND", err)
	}
}
