package svf

import (
	"io"
	"testing"
)

func mustParse(t *testing.T, text string) *Statement {
	t.Helper()
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser returned error: %v", err)
	}
	stmt, err := p.ParseStatement("test.svf", text)
	if err != nil {
		t.Fatalf("ParseStatement(%q) returned error: %v", text, err)
	}
	return stmt
}

func TestParseScanStatement(t *testing.T) {
	stmt := mustParse(t, "SDR 32 TDI (00000000) TDO (0A0140DD)\n\tMASK (0FFF\nFFFF);")
	if stmt.SDR == nil {
		t.Fatalf("SDR not parsed: %+v", stmt)
	}
	if stmt.SDR.Length != "32" {
		t.Fatalf("Length = %q", stmt.SDR.Length)
	}
	if len(stmt.SDR.Fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(stmt.SDR.Fields))
	}
	if stmt.SDR.Fields[2].Name != "MASK" {
		t.Fatalf("third field = %q", stmt.SDR.Fields[2].Name)
	}
}

func TestParseIsCaseInsensitive(t *testing.T) {
	stmt := mustParse(t, "sir 6 tdi(3f) smask(3F);")
	if stmt.SIR == nil || len(stmt.SIR.Fields) != 2 {
		t.Fatalf("SIR not parsed: %+v", stmt)
	}
	stmt = mustParse(t, "EndDr DrPause;")
	if stmt.EndDR == nil || stmt.EndDR.State != "DrPause" {
		t.Fatalf("ENDDR not parsed: %+v", stmt)
	}
}

func TestParseRuntest(t *testing.T) {
	stmt := mustParse(t, "RUNTEST IDLE 3 TCK 1.0E-2 SEC MAXIMUM 1 SEC ENDSTATE DRPAUSE;")
	r := stmt.RunTest
	if r == nil {
		t.Fatalf("RUNTEST not parsed")
	}
	if r.RunState != "IDLE" || r.Value != 3 || r.Unit != "TCK" || r.EndState != "DRPAUSE" {
		t.Fatalf("RunTest = %+v", r)
	}
	if r.MinTime == nil || *r.MinTime != 1.0e-2 || r.MaxTime == nil || *r.MaxTime != 1 {
		t.Fatalf("times = %v %v", r.MinTime, r.MaxTime)
	}

	r = mustParse(t, "RUNTEST 5E-3 SEC;").RunTest
	if r == nil || r.RunState != "" || r.Unit != "SEC" || r.Value != 5e-3 {
		t.Fatalf("RunTest = %+v", r)
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	p, _ := NewParser()
	for _, text := range []string{"PIOMAP (IN A);", "SDR TDI (0);", "RUNTEST;", "STATE;", "SDR 8 TDI (0)"} {
		if _, err := p.ParseStatement("", text); err == nil {
			t.Fatalf("ParseStatement(%q) succeeded", text)
		}
	}
}

func TestScannerStripsComments(t *testing.T) {
	input := "! comment ; with semicolon\n" +
		"// another\n" +
		"SIR 8 TDI (FF); // trailing\n" +
		"RUNTEST\n  100 TCK;\n" +
		"   \n"
	h := newFakeHost(input)
	sc := newScanner(h.NextByte)

	text, line, err := sc.statement()
	if err != nil || text != "SIR 8 TDI (FF);" || line != 3 {
		t.Fatalf("first statement = %q line %d err %v", text, line, err)
	}
	text, line, err = sc.statement()
	if err != nil || line != 4 {
		t.Fatalf("second statement = %q line %d err %v", text, line, err)
	}
	if _, _, err := sc.statement(); err != io.EOF {
		t.Fatalf("third statement error = %v, want io.EOF", err)
	}
}

func TestScannerUnterminated(t *testing.T) {
	h := newFakeHost("RUNTEST 1 TCK;\nSDR 8")
	sc := newScanner(h.NextByte)
	if _, _, err := sc.statement(); err != nil {
		t.Fatalf("first statement error: %v", err)
	}
	if _, line, err := sc.statement(); err != errUnterminated || line != 2 {
		t.Fatalf("error = %v line %d, want unterminated on line 2", err, line)
	}
}

func TestParseHex(t *testing.T) {
	v, err := parseHex("(0A01 40DD)", 32)
	if err != nil {
		t.Fatalf("parseHex returned error: %v", err)
	}
	if got := v.String(); got != "(0A0140DD)" {
		t.Fatalf("String() = %s", got)
	}
	if !v.bit(0) || v.bit(1) || !v.bit(2) {
		t.Fatalf("low bits wrong: %s", v)
	}

	short, err := parseHex("(5)", 12)
	if err != nil || short.String() != "(005)" {
		t.Fatalf("zero extension: %s %v", short, err)
	}
	if _, err := parseHex("(1F)", 4); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := parseHex("(0F)", 4); err != nil {
		t.Fatalf("leading zero digit rejected: %v", err)
	}
	if _, err := parseHex("(G)", 4); err == nil {
		t.Fatalf("expected invalid digit error")
	}
}
