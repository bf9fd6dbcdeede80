// Package docs holds the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
        "/invoke": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["invoke"],
                "summary": "Invoke an agent in a room",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.InvokeReq"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/serializer.Response"}}}
            }
        },
        "/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/event-stream"],
                "tags": ["events"],
                "summary": "Live event stream",
                "parameters": [{"type": "string", "format": "uuid", "name": "room_id", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/notifications": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["notification"],
                "summary": "List my notifications",
                "parameters": [
                    {"type": "integer", "default": 50, "name": "limit", "in": "query"},
                    {"type": "string", "name": "cursor", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/serializer.Response"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["notification"],
                "summary": "Fan out a notification to every workspace member",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/serializer.Response"}}}
            }
        },
        "/callbacks/agent": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["callback"],
                "summary": "Agent run callback",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/serializer.Response"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/serializer.Response"}}
                }
            }
        }
    },
    "definitions": {
        "handler.InvokeReq": {
            "type": "object",
            "properties": {
                "roomId": {"type": "string"},
                "agentId": {"type": "string"},
                "prompt": {"type": "string"},
                "depth": {"type": "integer"}
            }
        },
        "serializer.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "error": {"type": "string"},
                "msg": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Root bearer token (e.g., \"Bearer <token>\"); user routes also send X-User-Id",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Oz Workspace API",
	Description:      "Rooms, agents, artifacts and notifications for shared agent workspaces.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
