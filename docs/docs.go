// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/auth/sign-up": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register operator",
                "parameters": [{"description": "Username and password", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/auth/sign-in": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in",
                "description": "Returns a bearer token for the /api/v1 routes and /ws.",
                "parameters": [{"description": "Username and password", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/serial/ports": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["serial"],
                "summary": "List serial ports",
                "responses": {"200": {"description": "count, ports", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/v1/serial/connect": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["serial"],
                "summary": "Connect to a serial port",
                "parameters": [{"description": "Port and baud rate", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ConnectRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/serial/disconnect": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["serial"],
                "summary": "Disconnect the serial port",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/v1/serial/wakeup": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["serial"],
                "summary": "Send wakeup",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/api/v1/session/reset": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Reset the protocol session",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/v1/session/init-block": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Discard buffered boot text",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/v1/telemetry/state": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["telemetry"],
                "summary": "Get live extruder state",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/v1/telemetry/samples": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["telemetry"],
                "summary": "List stored samples",
                "parameters": [
                    {"type": "string", "example": "2025-08-01", "description": "Start of range", "name": "from", "in": "query"},
                    {"type": "string", "example": "2025-08-31", "description": "End of range; date-only means end of day", "name": "to", "in": "query"},
                    {"type": "integer", "description": "Max rows (default 500, max 5000)", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "count, samples", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/api/v1/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "List logs",
                "parameters": [
                    {"type": "string", "example": "2025-08-01", "description": "Start of range", "name": "from", "in": "query"},
                    {"type": "string", "example": "2025-08-31", "description": "End of range. Date-only treated as end of day.", "name": "to", "in": "query"},
                    {"enum": ["CONNECT", "DISCONNECT", "HEADER", "INIT_BLOCK", "PARSE_WARNING", "SERIAL_ERROR", "RESET"], "type": "string", "description": "Event type", "name": "type", "in": "query"}
                ],
                "responses": {"200": {"description": "count, events", "schema": {"type": "object", "additionalProperties": true}}}
            }
        },
        "/ws": {
            "get": {
                "tags": ["telemetry"],
                "summary": "Live telemetry stream",
                "parameters": [
                    {"type": "string", "description": "Snapshot period, e.g. 2s (max 10s)", "name": "interval", "in": "query"},
                    {"type": "integer", "description": "Snapshot period in ms (max 10000)", "name": "interval_ms", "in": "query"}
                ],
                "responses": {}
            }
        }
    },
    "definitions": {
        "handlers.ConnectRequest": {
            "type": "object",
            "properties": {
                "baud_rate": {"type": "integer", "example": 115200},
                "port_name": {"type": "string", "example": "/dev/ttyUSB0"}
            }
        },
        "handlers.authCredentials": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Extruder Monitor API",
	Description:      "Serial telemetry ingestion and control for a filament extruder.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
