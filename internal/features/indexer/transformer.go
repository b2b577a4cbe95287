package indexer

import (
	"context"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// ApplyTransformer runs a user-supplied tengo script against one document.
// The script receives the document as `doc` and must declare an `output`
// map holding the transformed document; a missing or non-map output violates
// the transformer contract.
func ApplyTransformer(ctx context.Context, src string, doc map[string]any) (map[string]any, error) {
	script := tengo.NewScript([]byte(src))
	script.SetImports(stdlib.GetModuleMap("text", "math", "times", "fmt"))

	if err := script.Add("doc", doc); err != nil {
		return nil, fmt.Errorf("bind document: %w", err)
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("run transformer: %w", err)
	}

	out := compiled.Get("output")
	if out == nil || out.IsUndefined() {
		return nil, ErrTransformerNoResult
	}

	result := out.Map()
	if result == nil {
		return nil, ErrTransformerNoResult
	}
	return result, nil
}
