package domain

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed cv.schema.json
var cvSchema []byte

// ValidatePayload validates a raw persisted document against the embedded
// cv schema. Partial documents are expected (Normalize fills them in), so the
// schema only rejects structurally broken payloads.
func ValidatePayload(raw []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(cvSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)

	res, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	msgs := ""
	for _, e := range res.Errors() {
		msgs += fmt.Sprintf("%s; ", e.String())
	}
	return fmt.Errorf("schema validation failed: %s", msgs)
}

// DecodeDocument unmarshals and normalizes a persisted document payload.
func DecodeDocument(raw []byte) (*Document, error) {
	if err := ValidatePayload(raw); err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	d.Normalize()
	return &d, nil
}
