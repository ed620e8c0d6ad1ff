package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Course Gateway API",
        "description": "Session-scoped gateway for the course marketplace approval workflow",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Teacher Courses", "description": "Own courses, visibility and resubmission"},
        {"name": "Professor Profile", "description": "Professor approval lifecycle"},
        {"name": "Moderation", "description": "Admin review queues and audit trail"},
        {"name": "Cart", "description": "Student cart"},
        {"name": "Session", "description": "Gateway session state"}
    ],
    "paths": {
        "/teacher/courses": {
            "get": {
                "tags": ["Teacher Courses"],
                "summary": "List own courses",
                "parameters": [
                    {"name": "refresh", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Teacher Courses"],
                "summary": "Create a draft course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Profile not approved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teacher/courses/{id}/visibility": {
            "patch": {
                "tags": ["Teacher Courses"],
                "summary": "Toggle visibility of a published course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Mutation in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Course is under review", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Marketplace unreachable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teacher/courses/{id}/resubmit": {
            "post": {
                "tags": ["Teacher Courses"],
                "summary": "Resubmit a rejected course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Course is not rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/professors/me": {
            "get": {
                "tags": ["Professor Profile"],
                "summary": "Current professor profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/professors/me/can-create-courses": {
            "get": {
                "tags": ["Professor Profile"],
                "summary": "Whether the caller may create courses",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/professors/profile": {
            "post": {
                "tags": ["Professor Profile"],
                "summary": "Submit or resubmit the professor profile",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitProfileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Already under review or approved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/pending": {
            "get": {
                "tags": ["Moderation"],
                "summary": "Pending profiles and courses",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/pending/refresh": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Refetch the pending queues",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/professors/{id}/approve": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Approve a professor profile",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/professors/{id}/reject": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Reject a professor profile",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Reason required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/courses/{id}/approve": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Approve a course under review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/courses/{id}/reject": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Reject a course under review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Reason required", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/courses/{id}/visibility": {
            "patch": {
                "tags": ["Moderation"],
                "summary": "Toggle visibility of any published course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/courses/{id}/deactivate": {
            "post": {
                "tags": ["Moderation"],
                "summary": "Force a published course private",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/audit-logs": {
            "get": {
                "tags": ["Moderation"],
                "summary": "Recent audit entries",
                "parameters": [
                    {"name": "resource", "in": "query", "type": "string"},
                    {"name": "resourceId", "in": "query", "type": "string"},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cart": {
            "get": {
                "tags": ["Cart"],
                "summary": "Current cart",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cart/items/{id}": {
            "delete": {
                "tags": ["Cart"],
                "summary": "Remove an item from the cart",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Item not in cart", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/session": {
            "get": {
                "tags": ["Session"],
                "summary": "Session info and in-flight mutations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Session"],
                "summary": "End the session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/session/notifications": {
            "get": {
                "tags": ["Session"],
                "summary": "Drain pending notices",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateCourseRequest": {
            "type": "object",
            "required": ["title", "category", "difficulty"],
            "properties": {
                "title": {"type": "string"},
                "price": {"type": "string"},
                "category": {"type": "string"},
                "difficulty": {"type": "string", "enum": ["BASICO", "INTERMEDIO", "AVANZADO"]}
            }
        },
        "SubmitProfileRequest": {
            "type": "object",
            "required": ["fullName", "specialty", "certificateUrl"],
            "properties": {
                "fullName": {"type": "string"},
                "specialty": {"type": "string"},
                "certificateUrl": {"type": "string"}
            }
        },
        "RejectRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
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
