package reporter

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/chrissicool/lbc/internal/checker"
	"github.com/chrissicool/lbc/internal/driver"
	"github.com/chrissicool/lbc/internal/locks"
)

func sampleResult() *driver.Result {
	cat := locks.DefaultCatalog()
	s := locks.NewState(cat)
	s.Update("mtx_enter")
	return &driver.Result{
		Files: []driver.FileResult{
			{File: "kern_sig.c"},
			{File: "broken.c", Err: errors.New("read: no such file")},
		},
		Diagnostics: []checker.Diagnostic{{
			File:     "kern_sig.c",
			Function: "sigexit",
			Line:     42,
			Kind:     checker.KindReturn,
			Reason:   "return with locks held",
			State:    s.Snapshot(),
		}},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult(), "because reasons"); err != nil {
		t.Fatal(err)
	}

	var report struct {
		FilesChecked int `json:"files_checked"`
		Findings     []struct {
			File     string `json:"file"`
			Function string `json:"function"`
			Line     int    `json:"line"`
			Kind     string `json:"kind"`
			State    []struct {
				Family string `json:"family"`
				Count  int    `json:"count"`
			} `json:"state"`
		} `json:"findings"`
		FileErrors []struct {
			File string `json:"file"`
		} `json:"file_errors"`
		LLMExplanation string `json:"llm_explanation"`
	}
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if report.FilesChecked != 2 || len(report.Findings) != 1 {
		t.Fatalf("report = %+v", report)
	}
	f := report.Findings[0]
	if f.Function != "sigexit" || f.Kind != "return" || f.Line != 42 {
		t.Fatalf("finding = %+v", f)
	}
	if len(f.State) != 3 || f.State[2].Family != "mtx" || f.State[2].Count != 1 {
		t.Fatalf("state = %+v", f.State)
	}
	if len(report.FileErrors) != 1 || report.FileErrors[0].File != "broken.c" {
		t.Fatalf("file errors = %+v", report.FileErrors)
	}
	if report.LLMExplanation != "because reasons" {
		t.Fatalf("explanation = %q", report.LLMExplanation)
	}
}

func TestWriteTerminalMentionsFindings(t *testing.T) {
	var buf bytes.Buffer
	WriteTerminal(&buf, sampleResult(), "")
	out := buf.String()
	for _, want := range []string{"RETURN", "sigexit", "mtx=1", "broken.c"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("terminal output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTerminalClean(t *testing.T) {
	var buf bytes.Buffer
	WriteTerminal(&buf, &driver.Result{Files: []driver.FileResult{{File: "ok.c"}}}, "")
	if !bytes.Contains(buf.Bytes(), []byte("balanced")) {
		t.Errorf("clean run output missing the all-clear line:\n%s", buf.String())
	}
}
