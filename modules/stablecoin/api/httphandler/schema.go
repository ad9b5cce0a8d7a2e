package httphandler

import (
	"bytes"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/sss-network/sss-indexer/common/errs"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const commandSchema = `{
	"type": "object",
	"required": ["kind"],
	"properties": {
		"kind": {"type": "string", "minLength": 1},
		"target": {"type": "string"},
		"to": {"type": "string"},
		"amount": {"type": ["string", "number"]},
		"memo": {"type": "string"},
		"reason": {"type": "string"},
		"roles": {"type": "integer", "minimum": 0, "maximum": 127},
		"quota": {"type": ["string", "number"]}
	},
	"additionalProperties": false
}`

const webhookSchema = `{
	"type": "object",
	"required": ["url", "eventTypes", "secret"],
	"properties": {
		"url": {"type": "string", "minLength": 1},
		"eventTypes": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string"}
		},
		"secret": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`

var (
	printer = message.NewPrinter(language.English)

	commandRequestSchema = mustCompileSchema("command.json", commandSchema)
	webhookRequestSchema = mustCompileSchema("webhook.json", webhookSchema)
)

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schema))
	if err != nil {
		panic(errors.Wrapf(err, "invalid json schema %s", name))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(errors.Wrapf(err, "can't add json schema %s", name))
	}
	return compiler.MustCompile(name)
}

// validateBody checks body against schema before it is decoded.
func validateBody(schema *jsonschema.Schema, body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return errs.NewPublicError("request body is required")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return errs.NewPublicError("request body is not valid json")
	}
	if err := schema.Validate(inst); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return errs.NewPublicError("invalid request body: " + validationMessage(validationErr))
		}
		return errs.NewPublicError("invalid request body")
	}
	return nil
}

// validationMessage flattens the leaf causes of a validation error into one line.
func validationMessage(err *jsonschema.ValidationError) string {
	var messages []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			location := "/" + strings.Join(e.InstanceLocation, "/")
			messages = append(messages, location+": "+e.ErrorKind.LocalizedString(printer))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(err)
	return strings.Join(messages, "; ")
}
