package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mepuka/bsky-cli-sub001/internal/engineerr"
	toon "github.com/toon-format/toon-go"
	"golang.org/x/term"
)

// resolveOutputFormat checks BSKY_OUTPUT_FORMAT. Returns "toon" or "json"
// (default).
func resolveOutputFormat() string {
	if env := os.Getenv("BSKY_OUTPUT_FORMAT"); env != "" && strings.EqualFold(env, "toon") {
		return "toon"
	}
	return "json"
}

// outputResult prints v to stdout as JSON (via outputJSONRaw: indented on a
// terminal, compact otherwise), or as TOON when BSKY_OUTPUT_FORMAT=toon.
func outputResult(v interface{}) {
	if resolveOutputFormat() == "toon" {
		jsonBytes, err := json.Marshal(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "toon: json marshal failed, falling back to json: %v\n", err)
			outputJSONRaw(v)
			return
		}
		var generic interface{}
		if err := json.Unmarshal(jsonBytes, &generic); err != nil {
			fmt.Fprintf(os.Stderr, "toon: json unmarshal failed, falling back to json: %v\n", err)
			outputJSONRaw(v)
			return
		}
		data, err := toon.Marshal(generic)
		if err != nil {
			fmt.Fprintf(os.Stderr, "toon encoding failed, falling back to json: %v\n", err)
			outputJSONRaw(v)
			return
		}
		fmt.Fprintln(os.Stdout, string(data))
		return
	}
	outputJSONRaw(v)
}

// outputJSONRaw encodes v as JSON, indented for an interactive terminal and
// compact (one object per line, friendlier to pipe into jq or another
// command) when stdout is redirected.
func outputJSONRaw(v interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	if term.IsTerminal(int(os.Stdout.Fd())) {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error encoding output: %v\n", err)
		os.Exit(1)
	}
}

// outputError writes the {error: {kind, message, cause?}} wire shape
// (spec.md §6) to stderr and sets the process exit code to 1. Commands
// call this then return without panicking so deferred cleanup still runs.
func outputError(err error) {
	var ee *engineerr.Error
	if !asEngineErr(err, &ee) {
		ee = engineerr.New(engineerr.KindCliInput, err.Error(), nil)
	}
	encoder := json.NewEncoder(os.Stderr)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(struct {
		Error *engineerr.Error `json:"error"`
	}{ee})
}

func asEngineErr(err error, target **engineerr.Error) bool {
	e, ok := err.(*engineerr.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}

