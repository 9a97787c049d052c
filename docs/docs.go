//go:build swagger

package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "stosh maintainers"},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List model sources",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Service status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        },
        "/sessions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "List sessions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SessionsResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Compile a model and open a session",
                "parameters": [
                    {"description": "Compile request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.CompileRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/types.SessionInfo"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Get a session",
                "parameters": [{"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SessionInfo"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["sessions"],
                "summary": "Close a session and release its native model",
                "parameters": [{"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/data": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Load data into a session",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"description": "Data request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.LoadDataRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SessionInfo"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/sample": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Run the sampler",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"description": "Sampler options", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.SampleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SampleResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/runs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List recorded sampling runs",
                "parameters": [
                    {"type": "string", "description": "Filter by session ID", "name": "session", "in": "query"},
                    {"type": "integer", "description": "Maximum runs to return", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.RunsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.Model": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "bernoulli"},
                "name": {"type": "string", "example": "bernoulli"},
                "path": {"type": "string", "example": "/srv/models/bernoulli.stan"},
                "data_path": {"type": "string", "example": "/srv/models/bernoulli.data.json"},
                "artifact_path": {"type": "string", "example": "/srv/models/bernoulli_model.so"},
                "compiled": {"type": "boolean", "example": true}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}}
        },
        "types.CompileRequest": {
            "type": "object",
            "properties": {
                "model": {"type": "string", "example": "bernoulli"},
                "force": {"type": "boolean", "example": false}
            }
        },
        "types.LoadDataRequest": {
            "type": "object",
            "properties": {
                "data_path": {"type": "string", "example": "/srv/models/bernoulli.data.json"},
                "data": {"type": "object", "additionalProperties": true},
                "seed": {"type": "integer", "example": 12345}
            }
        },
        "types.SampleRequest": {
            "type": "object",
            "properties": {"params": {"type": "object", "additionalProperties": true}}
        },
        "types.SampleResponse": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "run_id": {"type": "string"},
                "output_dir": {"type": "string", "example": "/tmp/stosh/bernoulli-output"},
                "duration_ms": {"type": "integer", "example": 250}
            }
        },
        "types.SessionInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "model": {"type": "string", "example": "bernoulli"},
                "source": {"type": "string"},
                "artifact": {"type": "string"},
                "built": {"type": "boolean"},
                "state": {"type": "string", "example": "loaded"},
                "name": {"type": "string", "example": "bernoulli_model"},
                "samples": {"type": "integer"},
                "created_unix": {"type": "integer"},
                "last_used_unix": {"type": "integer"}
            }
        },
        "types.SessionsResponse": {
            "type": "object",
            "properties": {"sessions": {"type": "array", "items": {"$ref": "#/definitions/types.SessionInfo"}}}
        },
        "types.Run": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "session_id": {"type": "string"},
                "model": {"type": "string"},
                "artifact": {"type": "string"},
                "params": {"type": "object", "additionalProperties": {"type": "string"}},
                "status": {"type": "string", "example": "ok"},
                "output": {"type": "string"},
                "error_kind": {"type": "string"},
                "error": {"type": "string"},
                "started_unix": {"type": "integer"},
                "duration_ms": {"type": "integer"}
            }
        },
        "types.RunsResponse": {
            "type": "object",
            "properties": {"runs": {"type": "array", "items": {"$ref": "#/definitions/types.Run"}}}
        },
        "types.BuildOutput": {
            "type": "object",
            "properties": {
                "command": {"type": "array", "items": {"type": "string"}},
                "dir": {"type": "string"},
                "stdout": {"type": "string"},
                "stderr": {"type": "string"},
                "exit_code": {"type": "integer"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "call LoadData first"},
                "code": {"type": "integer", "example": 409},
                "kind": {"type": "string", "example": "no_data_loaded"},
                "build": {"$ref": "#/definitions/types.BuildOutput"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "sessions": {"type": "array", "items": {"$ref": "#/definitions/types.SessionInfo"}},
                "loaded": {"type": "integer"},
                "compiles_total": {"type": "integer"},
                "samples_total": {"type": "integer"},
                "last_error": {"type": "string"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "stosh API",
	Description:      "HTTP API for compiling statistical models and running their samplers.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
