// Package out holds the CLI's JSON output helpers.
package out

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON encodes v as indented JSON without HTML escaping.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteError prints err either as an {"error": ...} object or as a plain
// "error: ..." line.
func WriteError(w io.Writer, asJSON bool, err error) {
	if err == nil {
		return
	}
	if asJSON {
		_ = WriteJSON(w, map[string]string{"error": err.Error()})
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
