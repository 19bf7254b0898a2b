package load

// recordSchema is the contract for one revision-record line on the input
// boundary. The external parsing stage owns record production; this
// schema is how the pipeline enforces the shape it was promised.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["file", "revision", "author", "time"],
  "properties": {
    "file":        {"type": "string", "minLength": 1},
    "revision":    {"type": "string", "minLength": 1},
    "author":      {"type": "string", "minLength": 1},
    "time":        {"type": "string", "format": "date-time"},
    "log":         {"type": "string"},
    "branch":      {"type": "string"},
    "predecessor": {"type": "string"},
    "new_symbols": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "definition_only": {"type": "boolean"}
  },
  "additionalProperties": false
}`
