// Package docs holds the Swagger 2.0 description of the trashd HTTP API and
// registers it with swag. It is maintained by hand next to internal/httpapi;
// update it when a route or wire type changes.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "trashd maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json", "text/html"],
                "summary": "Landing page or service summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.IndexResponse"}}
                }
            },
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json", "text/html"],
                "summary": "Classify an uploaded image",
                "parameters": [
                    {"type": "file", "description": "Image to classify", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.PredictionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/predict": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "summary": "Classify an uploaded image",
                "parameters": [
                    {"type": "file", "description": "Image to classify", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.PredictionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/get_disposal_suggestion": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Disposal and recycling advice for a trash category",
                "parameters": [
                    {"description": "Trash category", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.AdviceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.AdviceResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/labels": {
            "get": {
                "produces": ["application/json"],
                "summary": "Label map in index order",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LabelsResponse"}}
                }
            }
        },
        "/uploads/{key}": {
            "get": {
                "summary": "Fetch a stored upload",
                "parameters": [
                    {"type": "string", "description": "Upload key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {"produces": ["text/plain"], "summary": "Liveness probe", "responses": {"200": {"description": "ok"}}}
        },
        "/readyz": {
            "get": {"produces": ["text/plain"], "summary": "Readiness probe", "responses": {"200": {"description": "ready"}, "503": {"description": "not ready"}}}
        }
    },
    "definitions": {
        "types.AdviceRequest": {
            "type": "object",
            "properties": {
                "trash_type": {"type": "string", "example": "Plastic"}
            }
        },
        "types.AdviceResponse": {
            "type": "object",
            "properties": {
                "suggestion": {"type": "string", "example": "1. Primary Disposal Method ..."}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "No file uploaded"}
            }
        },
        "types.IndexResponse": {
            "type": "object",
            "properties": {
                "advice_enabled": {"type": "boolean", "example": true},
                "classes": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string", "example": "ok"}
            }
        },
        "types.Label": {
            "type": "object",
            "properties": {
                "index": {"type": "integer", "example": 4},
                "name": {"type": "string", "example": "Plastic"}
            }
        },
        "types.LabelsResponse": {
            "type": "object",
            "properties": {
                "labels": {"type": "array", "items": {"$ref": "#/definitions/types.Label"}}
            }
        },
        "types.PredictionResponse": {
            "type": "object",
            "properties": {
                "confidence": {"type": "number", "example": 87.42},
                "filename": {"type": "string", "example": "bottle.jpg"},
                "image_url": {"type": "string", "example": "/uploads/3f2b9c1e-8a51-4f5e-9a53-0c0f1e2d3a4b.jpg"},
                "prediction": {"type": "string", "example": "Plastic"},
                "scores": {"type": "object", "additionalProperties": {"type": "number"}},
                "upload_id": {"type": "string", "example": "3f2b9c1e-8a51-4f5e-9a53-0c0f1e2d3a4b.jpg"}
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
	Title:            "trashd API",
	Description:      "Trash image classification with optional disposal advice.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
