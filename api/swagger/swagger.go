package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Roster API",
        "description": "Roster reconciliation and membership lifecycle engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Staff", "description": "Roster import and offboarding"}
    ],
    "paths": {
        "/staff/import": {
            "post": {
                "tags": ["Staff"],
                "summary": "Import a staff roster from an uploaded spreadsheet",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file", "description": "Roster sheet (.xlsx)"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "description": "Credential sheet format; omit for JSON manifest"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ReconciliationManifest"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/staff/import/rows": {
            "post": {
                "tags": ["Staff"],
                "summary": "Import staff from a JSON row feed",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ImportRowsRequest"}},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ReconciliationManifest"}}
                }
            }
        },
        "/staff/import/archive": {
            "get": {
                "tags": ["Staff"],
                "summary": "Download an archived roster sheet by signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/staff": {
            "delete": {
                "tags": ["Staff"],
                "summary": "Remove many staff members from the caller's school",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RemoveBatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RemovalBatchResult"}}
                }
            }
        },
        "/staff/{id}": {
            "delete": {
                "tags": ["Staff"],
                "summary": "Remove one staff member from the caller's school",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RemovalResult"}},
                    "403": {"description": "No affiliation with this school"},
                    "404": {"description": "Staff member not found"}
                }
            }
        }
    },
    "definitions": {
        "ImportRow": {
            "type": "object",
            "properties": {
                "row_number": {"type": "integer"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "gender": {"type": "string"},
                "phone": {"type": "string"},
                "grade": {"type": "string"},
                "class_index": {"type": "string"}
            },
            "required": ["email"]
        },
        "ImportRowsRequest": {
            "type": "object",
            "properties": {
                "rows": {"type": "array", "items": {"$ref": "#/definitions/ImportRow"}}
            },
            "required": ["rows"]
        },
        "ReconciliationManifest": {
            "type": "object",
            "properties": {
                "school_id": {"type": "integer"},
                "created": {"type": "integer"},
                "updated": {"type": "integer"},
                "rows": {"type": "array", "items": {"$ref": "#/definitions/RowResult"}},
                "failures": {"type": "array", "items": {"$ref": "#/definitions/RowFailure"}},
                "credentials": {"type": "array", "items": {"$ref": "#/definitions/NewCredential"}},
                "splitter_tokens": {"type": "integer"}
            }
        },
        "RowResult": {
            "type": "object",
            "properties": {
                "row_number": {"type": "integer"},
                "handle": {"type": "string"},
                "staff_id": {"type": "string"},
                "outcome": {"type": "string", "enum": ["created_new", "matched_existing"]}
            }
        },
        "RowFailure": {
            "type": "object",
            "properties": {
                "row_number": {"type": "integer"},
                "handle": {"type": "string"},
                "code": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "NewCredential": {
            "type": "object",
            "properties": {
                "staff_id": {"type": "string"},
                "handle": {"type": "string"},
                "full_name": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RemoveBatchRequest": {
            "type": "object",
            "properties": {
                "staff_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["staff_ids"]
        },
        "RemovalResult": {
            "type": "object",
            "properties": {
                "staff_id": {"type": "string"},
                "outcome": {"type": "string", "enum": ["hard_deleted", "soft_unlinked"]}
            }
        },
        "RemovalBatchResult": {
            "type": "object",
            "properties": {
                "succeeded": {"type": "array", "items": {"$ref": "#/definitions/RemovalResult"}},
                "failed": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "staff_id": {"type": "string"},
                            "reason": {"type": "string"}
                        }
                    }
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
