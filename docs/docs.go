// Package docs registers the OpenAPI description of the journal API with
// swag so gin-swagger can serve it under /swagger. Keep it in step with
// the handler annotations (regenerate with `swag init -g cmd/journal/main.go`).
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
        "/auth/register": {
            "post": {
                "description": "Registers an account. When email confirmation is required the response status is \"pending_confirmation\" and no session is opened.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Create an account",
                "operationId": "register",
                "parameters": [
                    {"description": "Account details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.RegisterResponse"}},
                    "400": {"description": "Invalid email or password", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Sign in",
                "operationId": "login",
                "parameters": [
                    {"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LoginResponse"}},
                    "400": {"description": "Invalid JSON", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Invalid email or password", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Email not confirmed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/confirm": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["Auth"],
                "summary": "Confirm an email address",
                "operationId": "confirmEmail",
                "parameters": [
                    {"description": "Confirmation token", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ConfirmRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content", "schema": {"type": "string"}},
                    "400": {"description": "Unknown or used token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Auth"],
                "summary": "Sign out",
                "operationId": "logout",
                "responses": {
                    "204": {"description": "No Content", "schema": {"type": "string"}},
                    "401": {"description": "Not signed in", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/session": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Current session",
                "operationId": "session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SessionResponse"}},
                    "401": {"description": "Not signed in", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/entries": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Entries"],
                "summary": "List entries",
                "operationId": "listEntries",
                "parameters": [
                    {"type": "string", "description": "Return 304 if the ETag matches", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.EntriesResponse"}},
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "401": {"description": "Not signed in", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/entries/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Entries"],
                "summary": "Create or update an entry",
                "operationId": "upsertEntry",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Entry ID (UUID)", "name": "id", "in": "path", "required": true},
                    {"description": "Entry", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/repo.EntryRecord"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/repo.EntryRecord"}},
                    "400": {"description": "Invalid entry", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Not signed in", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Entry belongs to another user", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Entries"],
                "summary": "Delete an entry",
                "operationId": "deleteEntry",
                "parameters": [
                    {"type": "string", "description": "Entry ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content", "schema": {"type": "string"}},
                    "401": {"description": "Not signed in", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/reflections": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Asks the configured model for a short supportive reflection on an entry draft. Nothing is stored.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Reflections"],
                "summary": "Generate a reflection",
                "operationId": "createReflection",
                "parameters": [
                    {"description": "Draft", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ReflectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ReflectionResponse"}},
                    "400": {"description": "Invalid draft", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Not signed in", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Generation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Reflections not configured", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "bad_request"},
                "message": {"type": "string", "example": "invalid JSON body"},
                "request_id": {"type": "string"}
            }
        },
        "handlers.UserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "0b6f3c1e-5a8b-4a5e-9a55-6a2f7f6f8d11"},
                "email": {"type": "string", "example": "sam@example.com"},
                "name": {"type": "string", "example": "Sam"},
                "created_at": {"type": "string"}
            }
        },
        "handlers.RegisterRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "sam@example.com"},
                "password": {"type": "string", "example": "correct horse"},
                "name": {"type": "string", "example": "Sam"}
            }
        },
        "handlers.RegisterResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/handlers.UserResponse"},
                "status": {"type": "string", "enum": ["active", "pending_confirmation"]},
                "session_token": {"type": "string"},
                "confirmation_token": {"type": "string"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "sam@example.com"},
                "password": {"type": "string", "example": "correct horse"}
            }
        },
        "handlers.LoginResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/handlers.UserResponse"},
                "session_token": {"type": "string"}
            }
        },
        "handlers.ConfirmRequest": {
            "type": "object",
            "properties": {
                "token": {"type": "string"}
            }
        },
        "handlers.SessionResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/handlers.UserResponse"}
            }
        },
        "handlers.EntriesResponse": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/repo.EntryRecord"}}
            }
        },
        "handlers.ReflectionRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string", "example": "Morning walk"},
                "content": {"type": "string", "example": "Walked by the sea before work."},
                "mood": {"type": "string", "example": "calm"}
            }
        },
        "handlers.ReflectionResponse": {
            "type": "object",
            "properties": {
                "reflection": {"type": "string"}
            }
        },
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "reflections": {"type": "boolean"}
            }
        },
        "repo.EntryRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "title": {"type": "string"},
                "content": {"type": "string"},
                "mood": {"type": "string", "enum": ["happy", "calm", "neutral", "sad", "stressed", "excited"]},
                "tags": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "ai_reflection": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Journal API",
	Description:      "Accounts, journal entries and AI reflections for the journal client.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
