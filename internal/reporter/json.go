package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chrissicool/lbc/internal/driver"
	"github.com/chrissicool/lbc/internal/locks"
)

type jsonDiagnostic struct {
	File     string              `json:"file"`
	Function string              `json:"function"`
	Line     int                 `json:"line"`
	Kind     string              `json:"kind"`
	Reason   string              `json:"reason,omitempty"`
	State    []locks.FamilyCount `json:"state"`
}

type jsonFileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

type jsonReport struct {
	FilesChecked   int              `json:"files_checked"`
	Findings       []jsonDiagnostic `json:"findings"`
	FileErrors     []jsonFileError  `json:"file_errors,omitempty"`
	LLMExplanation string           `json:"llm_explanation,omitempty"`
}

// WriteJSON writes the run result as indented JSON to w.
func WriteJSON(w io.Writer, result *driver.Result, explanation string) error {
	report := jsonReport{
		FilesChecked:   len(result.Files),
		Findings:       make([]jsonDiagnostic, 0, len(result.Diagnostics)),
		LLMExplanation: explanation,
	}

	for _, d := range result.Diagnostics {
		report.Findings = append(report.Findings, jsonDiagnostic{
			File:     d.File,
			Function: d.Function,
			Line:     d.Line,
			Kind:     string(d.Kind),
			Reason:   d.Reason,
			State:    []locks.FamilyCount(d.State),
		})
	}
	for _, fr := range result.Files {
		if fr.Err != nil {
			report.FileErrors = append(report.FileErrors, jsonFileError{
				File:  fr.File,
				Error: fr.Err.Error(),
			})
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
