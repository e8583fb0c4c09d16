package store

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/utils"
)

//go:embed graph.schema.json
var schemaJSON []byte

const schemaURL = "https://github.com/nibzard/atomgraph-go/graph.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// validateDocument checks raw file contents against the embedded schema and
// returns one violation per failing leaf.
func validateDocument(data []byte) ([]errs.Violation, error) {
	sch, err := documentSchema()
	if err != nil {
		return nil, err
	}
	var obj interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return []errs.Violation{{Msg: fmt.Sprintf("invalid JSON: %v", err)}}, nil
	}
	if err := sch.Validate(obj); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return collectViolations(verr), nil
		}
		return nil, err
	}
	return nil, nil
}

func collectViolations(verr *jsonschema.ValidationError) []errs.Violation {
	if len(verr.Causes) == 0 {
		return []errs.Violation{{
			Path: utils.JSONPointerToPath(verr.InstanceLocation),
			Msg:  verr.Message,
		}}
	}
	var out []errs.Violation
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}
