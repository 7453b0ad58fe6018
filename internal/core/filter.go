package core

import (
	"encoding/json"

	"github.com/mepuka/bsky-cli-sub001/internal/engineerr"
	"github.com/mepuka/bsky-cli-sub001/internal/filterast"
	"github.com/mepuka/bsky-cli-sub001/internal/filterdsl"
)

// CompileFilterResult is the result of CompileFilterDSL and CompileFilterJSON.
type CompileFilterResult struct {
	Filter     filterast.Expr `json:"filter"`
	Normalized string         `json:"normalized"`
}

// CompileFilterDSL parses the human filter DSL (author:alice AND #tech AND
// NOT is_reply) into the canonical AST, for the CLI's --filter flag and
// `filter compile` command.
func CompileFilterDSL(input string) (CompileFilterResult, error) {
	expr, err := filterdsl.Parse(input)
	if err != nil {
		return CompileFilterResult{}, engineerr.New(engineerr.KindCliInput, "failed to parse filter expression", err)
	}
	return CompileFilterResult{Filter: expr, Normalized: expr.String()}, nil
}

// CompileFilterJSON unmarshals a filterast.Expr's own JSON wire shape,
// for the CLI's --filter-json flag.
func CompileFilterJSON(data []byte) (CompileFilterResult, error) {
	var expr filterast.Expr
	if err := json.Unmarshal(data, &expr); err != nil {
		return CompileFilterResult{}, engineerr.New(engineerr.KindCliInput, "failed to decode filter JSON", err)
	}
	return CompileFilterResult{Filter: expr, Normalized: expr.String()}, nil
}
