// Package docs registers the OpenAPI description served under /swagger.
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
            "get": {"tags": ["system"], "summary": "Health check", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/auth/sign-up": {
            "post": {"tags": ["auth"], "summary": "Create an operator account",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/credentials"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/auth/sign-in": {
            "post": {"tags": ["auth"], "summary": "Sign in and obtain a bearer token",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/credentials"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/instances": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["instances"], "summary": "List managed instances",
                "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["instances"], "summary": "Register a managed instance",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterInstanceRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}
        },
        "/api/v1/instances/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["instances"], "summary": "Get a managed instance",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/api/v1/instances/{id}/purchases": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["purchases"], "summary": "List purchases",
                "parameters": [{"$ref": "#/parameters/id"},
                    {"in": "query", "name": "status", "type": "string", "enum": ["PENDING", "FULFILLED", "FAILED"]},
                    {"in": "query", "name": "since", "type": "string"}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["purchases"], "summary": "Submit a purchase",
                "parameters": [{"$ref": "#/parameters/id"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SubmitPurchaseRequest"}}],
                "responses": {"200": {"description": "Placed"}, "202": {"description": "Deferred"},
                    "422": {"description": "Buyer location unknown"}, "502": {"description": "Provider unavailable"}}}
        },
        "/api/v1/instances/{id}/locations": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["purchases"], "summary": "List last known player positions",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/instances/{id}/spawner/register": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["maintenance"], "summary": "Register the spawner file in the gameplay config",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/instances/{id}/gc": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["maintenance"], "summary": "Prune the spawner now",
                "parameters": [{"$ref": "#/parameters/id"}],
                "responses": {"200": {"description": "OK"}}}
        }
    },
    "parameters": {
        "id": {"in": "path", "name": "id", "required": true, "type": "integer", "description": "Instance id"}
    },
    "definitions": {
        "credentials": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "handlers.RegisterInstanceRequest": {
            "type": "object",
            "required": ["name", "service_id", "api_token", "log_dir", "spawner_path"],
            "properties": {
                "name": {"type": "string"}, "service_id": {"type": "string"}, "api_token": {"type": "string"},
                "map_name": {"type": "string"}, "restart_hours": {"type": "array", "items": {"type": "integer"}},
                "platform": {"type": "string", "enum": ["pc", "xbox", "ps"]}, "log_dir": {"type": "string"},
                "spawner_path": {"type": "string"}, "gameplay_config_path": {"type": "string"},
                "channels": {"type": "object", "properties": {"combat": {"type": "string"}, "session": {"type": "string"},
                    "suicide": {"type": "string"}, "build": {"type": "string"}}}
            }
        },
        "handlers.SubmitPurchaseRequest": {
            "type": "object",
            "required": ["actor_name", "item_class"],
            "properties": {"actor_name": {"type": "string"}, "item_class": {"type": "string"}, "deferred": {"type": "boolean"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Dashboard Sync API",
	Description:      "Operator API for log tailing, purchases and spawner maintenance of managed game servers.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
