package reasoner

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// reportSchemaJSON is a loose structural schema for the repaired model
// response: it only pins down the shapes Normalize's field-by-field
// coercion depends on (object types, array-ness of violations/guidance/fix),
// not value ranges or enums — those are the coercion functions' job.
const reportSchemaJSON = `{
	"type": "object",
	"properties": {
		"score": {},
		"status": {"type": "string"},
		"summary": {"type": "string"},
		"financialPenalty": {
			"type": ["object", "null"],
			"properties": {
				"riskLevel": {"type": "string"},
				"description": {"type": "string"}
			}
		},
		"ethicalMarketing": {
			"type": ["object", "null"],
			"properties": {
				"assessment": {"type": "string"}
			}
		},
		"violations": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"guidance": {"type": "array", "items": {"type": "string"}},
					"fix": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`

var reportSchema = compileReportSchema()

func compileReportSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("report.json", bytes.NewReader([]byte(reportSchemaJSON))); err != nil {
		panic("invalid reasoner report schema: " + err.Error())
	}
	schema, err := compiler.Compile("report.json")
	if err != nil {
		panic("invalid reasoner report schema: " + err.Error())
	}
	return schema
}

// validateReportShape checks that repaired, already-unmarshalable JSON has
// a shape Normalize can safely walk (violations is an array of objects,
// guidance/fix are string arrays, etc). A mismatch here means the model
// returned something structurally unlike a Report — e.g. a bare array, or
// violations as a single object instead of a list — so the caller should
// fall back to the shell Report rather than coerce garbage.
func validateReportShape(repaired string) bool {
	var v interface{}
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return false
	}
	if err := reportSchema.Validate(v); err != nil {
		log.Info().Err(err).Msg("reasoner response failed structural schema validation")
		return false
	}
	return true
}
