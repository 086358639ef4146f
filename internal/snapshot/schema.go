package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/miner.json
var minerSchemaJSON []byte

var (
	minerSchemaOnce sync.Once
	minerSchema     *jsonschema.Schema
	minerSchemaErr  error
)

func loadMinerSchema() (*jsonschema.Schema, error) {
	minerSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("miner.json", bytes.NewReader(minerSchemaJSON)); err != nil {
			minerSchemaErr = fmt.Errorf("load miner schema: %w", err)
			return
		}
		minerSchema, minerSchemaErr = compiler.Compile("miner.json")
	})
	return minerSchema, minerSchemaErr
}

// validateMiner checks one raw miner record against the embedded schema.
func validateMiner(raw string) error {
	schema, err := loadMinerSchema()
	if err != nil {
		return err
	}
	doc, err := unmarshalJSON(bytes.NewReader([]byte(raw)))
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("%s", leafMessage(ve))
		}
		return err
	}
	return nil
}

// unmarshalJSON decodes a schema instance the way jsonschema/v5 expects:
// numbers as json.Number, and no trailing data after the document.
func unmarshalJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid character after top-level value")
	}
	return doc, nil
}

// leafMessage reports the deepest cause, which names the offending field.
func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if ve.InstanceLocation == "" {
		return ve.Message
	}
	return ve.InstanceLocation + ": " + ve.Message
}
