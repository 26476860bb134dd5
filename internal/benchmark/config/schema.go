package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchema constrains the shape of a config file before it is decoded.
// Semantic checks live in Validate.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "definitions": {
    "duration": {"type": ["string", "integer"]},
    "count": {"type": "integer", "minimum": 0}
  },
  "properties": {
    "client": {"enum": ["grpc", "s3"]},
    "operation": {"enum": ["read", "random-read", "write"]},
    "bucket": {"type": "string"},
    "object": {"type": "string"},
    "object_format": {"type": "string"},
    "object_start": {"$ref": "#/definitions/count"},
    "object_stop": {"$ref": "#/definitions/count"},
    "runs": {"$ref": "#/definitions/count"},
    "warmups": {"$ref": "#/definitions/count"},
    "threads": {"type": "integer", "minimum": 1},
    "timeout": {"$ref": "#/definitions/duration"},
    "rate_limit": {"type": "number", "minimum": 0},
    "trying": {"type": "boolean"},
    "retry": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "max_attempts": {"$ref": "#/definitions/count"},
        "initial_backoff": {"$ref": "#/definitions/duration"},
        "max_backoff": {"$ref": "#/definitions/duration"}
      }
    },
    "chunk_size": {"$ref": "#/definitions/count"},
    "read_offset": {"$ref": "#/definitions/count"},
    "read_limit": {"$ref": "#/definitions/count"},
    "write_size": {"$ref": "#/definitions/count"},
    "cpolicy": {"type": "string"},
    "carg": {"$ref": "#/definitions/count"},
    "host": {"type": "string"},
    "cred": {"enum": ["", "insecure", "ssl", "token"]},
    "ssl_cert": {"type": "string"},
    "access_token": {"type": "string"},
    "channel_args": {"type": "string"},
    "max_recv_msg_size": {"$ref": "#/definitions/count"},
    "s3": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "region": {"type": "string"},
        "endpoint": {"type": "string"},
        "path_style": {"type": "boolean"}
      }
    },
    "report_tag": {"type": "string"},
    "report_file": {"type": "string"},
    "data_file": {"type": "string"},
    "json_file": {"type": "string"},
    "verbose": {"type": "boolean"},
    "log_level": {"type": "string"},
    "log_format": {"enum": ["", "text", "json"]},
    "crc32c": {"type": "boolean"},
    "resumable": {"type": "boolean"},
    "steal_work": {"type": "boolean"},
    "wait_threads": {"type": "boolean"},
    "td": {"type": "boolean"},
    "rr": {"type": "boolean"},
    "tx_zerocopy": {"type": "boolean"},
    "prometheus_endpoint": {"type": "string"},
    "grpc_admin": {"type": "integer"},
    "ctest": {"type": "integer"},
    "mtest": {"type": "integer"},
    "network": {"type": "string"},
    "target_api_version": {"type": "string"}
  }
}`

var compiledSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.json", strings.NewReader(configSchema)); err != nil {
		panic(fmt.Sprintf("config schema: %v", err))
	}
	compiledSchema = compiler.MustCompile("config.json")
}

// validateDocument checks a decoded document (from JSON or YAML) against
// the config schema and reports every violation as a ValidationError.
func validateDocument(doc interface{}) error {
	// Round trip through JSON so YAML maps and numbers take the shapes the
	// schema validator expects.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to normalize config: %w", err)
	}
	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return fmt.Errorf("failed to normalize config: %w", err)
	}

	err = compiledSchema.Validate(normalized)
	if err == nil {
		return nil
	}

	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	errs := &ValidationErrors{}
	collectSchemaErrors(verr, errs)
	if !errs.HasErrors() {
		errs.Add("", verr.Error())
	}
	return errs
}

func collectSchemaErrors(err *jsonschema.ValidationError, errs *ValidationErrors) {
	if len(err.Causes) == 0 && err.Message != "" {
		field := strings.ReplaceAll(strings.TrimPrefix(err.InstanceLocation, "/"), "/", ".")
		errs.Add(field, err.Message)
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, errs)
	}
}
