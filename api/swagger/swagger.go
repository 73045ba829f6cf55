package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMIT Registration API",
        "description": "Course registration and enrollment service",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Courses", "description": "Course catalog and seat availability"},
        {"name": "Registrations", "description": "Applicant registration lifecycle"},
        {"name": "Admin", "description": "Application review and statistics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses with seat availability",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "campus", "in": "query", "type": "string"},
                    {"name": "city", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create course (admin)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Courses"],
                "summary": "Update course (admin)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CourseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete course (admin, refused while referenced)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Course has registered students"}
                }
            }
        },
        "/registrations": {
            "post": {
                "tags": ["Registrations"],
                "summary": "Submit a registration",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRegistrationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate application or course full"}
                }
            }
        },
        "/registrations/me": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Get own registration",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Registrations"],
                "summary": "Update own profile (while pending)",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Registration can no longer be edited"}
                }
            }
        },
        "/registrations/me/status": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Get own registration status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/registrations/me/id-card": {
            "get": {
                "tags": ["Registrations"],
                "summary": "Download ID card PDF (after enrollment)",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF document"},
                    "412": {"description": "Not yet enrolled"}
                }
            }
        },
        "/admin/students": {
            "get": {
                "tags": ["Admin"],
                "summary": "List registrations",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/students/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Get registration detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/students/{id}/status": {
            "put": {
                "tags": ["Admin"],
                "summary": "Change registration status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangeStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid transition"}
                }
            }
        },
        "/admin/students/{id}/payment": {
            "put": {
                "tags": ["Admin"],
                "summary": "Record payment info",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PaymentInfo"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/dashboard": {
            "get": {
                "tags": ["Admin"],
                "summary": "Dashboard statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CourseRequest": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "duration": {"type": "string"},
                "fees": {"type": "number"},
                "instructor": {"type": "string"},
                "campus": {"type": "string"},
                "city": {"type": "string"},
                "max_students": {"type": "integer"},
                "status": {"type": "string", "enum": ["active", "inactive"]}
            },
            "required": ["code", "name", "max_students"]
        },
        "SubmitRegistrationRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "father_name": {"type": "string"},
                "cnic": {"type": "string"},
                "father_cnic": {"type": "string"},
                "date_of_birth": {"type": "string"},
                "gender": {"type": "string"},
                "phone": {"type": "string"},
                "address": {"type": "string"},
                "city": {"type": "string"},
                "country": {"type": "string"},
                "last_qualification": {"type": "string"},
                "computer_skill": {"type": "string"},
                "has_laptop": {"type": "boolean"},
                "course_id": {"type": "string"},
                "class_preference": {"type": "string"},
                "profile_picture": {"type": "string"}
            },
            "required": ["full_name", "cnic", "course_id"]
        },
        "ChangeStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["approved", "rejected", "enrolled"]},
                "enrollment": {"$ref": "#/definitions/EnrollmentDetail"},
                "payment": {"$ref": "#/definitions/PaymentInfo"}
            },
            "required": ["status"]
        },
        "EnrollmentDetail": {
            "type": "object",
            "properties": {
                "batch_number": {"type": "string"},
                "roll_number": {"type": "string"},
                "campus": {"type": "string"}
            },
            "required": ["batch_number", "roll_number", "campus"]
        },
        "PaymentInfo": {
            "type": "object",
            "properties": {
                "total_fees": {"type": "number"},
                "paid_amount": {"type": "number"},
                "payment_status": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
