// Package docs Tile Microservice API.
//
// Динамические векторные тайлы и выборки строк из PostGIS баз пользователя.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/ts/{z}/{x}/{y}.pbf": {
            "get": {
                "produces": ["application/x-protobuf"],
                "tags": ["Tiles"],
                "summary": "Векторный тайл слоя",
                "parameters": [
                    {"type": "integer", "name": "z", "in": "path", "required": true},
                    {"type": "integer", "name": "x", "in": "path", "required": true},
                    {"type": "integer", "name": "y", "in": "path", "required": true},
                    {"type": "string", "description": "Encoded tile context", "name": "c", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "MVT"},
                    "204": {"description": "Пустой тайл"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/layers/{id}/tile-url": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Tiles"],
                "summary": "URL тайлов слоя",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "environmentId", "in": "query"},
                    {"type": "integer", "name": "subEnvironmentId", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.SuccessResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/records/bbox": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Records"],
                "summary": "Строки в прямоугольнике",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.SuccessResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/records/identity": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Records"],
                "summary": "Строки по _qid",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.SuccessResponse"}}}
            }
        },
        "/api/v1/records/columns": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Records"],
                "summary": "Колонки запроса",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.SuccessResponse"}}}
            }
        },
        "/api/v1/records/metrics": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Records"],
                "summary": "Метрики колонки",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.SuccessResponse"}}}
            }
        },
        "/api/v1/records/match": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Records"],
                "summary": "Слои с объектами в прямоугольнике",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.SuccessResponse"}}}
            }
        },
        "/api/v1/records/export": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/octet-stream"],
                "tags": ["Records"],
                "summary": "Выгрузка строк",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        },
        "/api/v1/connections/test": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Connections"],
                "summary": "Проверить параметры подключения",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.SuccessResponse"}}}
            }
        },
        "/api/v1/connections/{id}/connect": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Connections"],
                "summary": "Открыть подключение",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.SuccessResponse"}}}
            }
        },
        "/api/v1/connections/{id}/reconnect": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Connections"],
                "summary": "Пересоздать пул подключения",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.SuccessResponse"}}}
            }
        },
        "/ping": {
            "get": {"tags": ["Health"], "summary": "Liveness", "responses": {"200": {"description": "OK"}}}
        },
        "/health": {
            "get": {"tags": ["Health"], "summary": "Readiness", "responses": {"200": {"description": "OK"}, "503": {"description": "Unhealthy"}}}
        }
    },
    "definitions": {
        "utils.SuccessResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "meta": {
                    "type": "object",
                    "properties": {
                        "total": {"type": "integer"},
                        "time_ms": {"type": "number"}
                    }
                }
            }
        },
        "utils.ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "details": {"type": "object"}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8090",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Tile Microservice API",
	Description:      "Динамические MVT тайлы, выборки строк, метрики колонок и выгрузка из PostGIS баз пользователя.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
