// Package docs holds the generated swagger artifact. Regenerate with
// `swag init` after changing controller annotations.
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
        "/scoring-tables": {
            "get": {
                "description": "Lists all scoring tables",
                "produces": ["application/json"],
                "tags": ["scoring-table"],
                "operationId": "GetScoringTables",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "description": "Creates a scoring table with its node/item hierarchy",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["scoring-table"],
                "operationId": "CreateScoringTable",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/scoring-tables/{id}": {
            "get": {
                "description": "Fetches one scoring table as its node hierarchy",
                "produces": ["application/json"],
                "tags": ["scoring-table"],
                "operationId": "GetScoringTable",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "description": "Soft-deletes a scoring table",
                "tags": ["scoring-table"],
                "operationId": "DeleteScoringTable",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/processes": {
            "get": {
                "description": "Lists the caller's own processes",
                "produces": ["application/json"],
                "tags": ["process"],
                "operationId": "GetProcesses",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "description": "Opens a new career advancement request in draft",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["process"],
                "operationId": "OpenProcess",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/processes/{id}": {
            "get": {
                "description": "Fetches one of the caller's processes",
                "produces": ["application/json"],
                "tags": ["process"],
                "operationId": "GetProcess",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "patch": {
                "description": "Updates the request fields of an editable process",
                "tags": ["process"],
                "operationId": "UpdateProcess",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "description": "Soft-deletes a draft or rejected process",
                "tags": ["process"],
                "operationId": "DeleteProcess",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/processes/{id}/submit": {
            "post": {
                "description": "Submits a draft or returned process for committee review",
                "tags": ["process"],
                "operationId": "SubmitProcess",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/processes/{id}/scores/{item_id}": {
            "put": {
                "description": "Writes the caller's score for one item",
                "tags": ["score"],
                "operationId": "WriteProcessScore",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "item_id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/review/processes/{id}/finalize": {
            "post": {
                "description": "Records the committee decision and final points",
                "tags": ["evaluation"],
                "operationId": "FinalizeProcess",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Faculty Career Advancement API",
	Description:      "Backend for faculty progression and promotion requests.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
