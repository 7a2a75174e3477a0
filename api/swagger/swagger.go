package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Sekolahku API",
        "description": "School administration backend: academic years, class catalog, enrollment ledger, promotions and re-admissions",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Authentication and sessions"},
        {"name": "Users", "description": "Staff account administration"},
        {"name": "Students", "description": "Student registry"},
        {"name": "Classes", "description": "Class and section catalog"},
        {"name": "AcademicYears", "description": "Academic year directory"},
        {"name": "Enrollments", "description": "Read-only enrollment ledger"},
        {"name": "Promotions", "description": "Promotion and re-admission engine"},
        {"name": "Attendance", "description": "Daily attendance"},
        {"name": "Notifications", "description": "In-app notifications"},
        {"name": "Fees", "description": "Fee payments and gateway callbacks"},
        {"name": "Settings", "description": "School configuration"},
        {"name": "Exports", "description": "CSV and PDF downloads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token for new tokens",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register a student without placement",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/history": {
            "get": {
                "tags": ["Students"],
                "summary": "Enrollment history, newest first",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academic-years/current": {
            "get": {
                "tags": ["AcademicYears"],
                "summary": "Resolve the current academic year",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No current year configured"}
                }
            }
        },
        "/academic-years/{id}/set-current": {
            "post": {
                "tags": ["AcademicYears"],
                "summary": "Mark an academic year as current",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "academicYearId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/promotions/promote": {
            "post": {
                "tags": ["Promotions"],
                "summary": "Promote one student into the next academic year",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PromoteStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Source year is not the current one"},
                    "409": {"description": "Already enrolled in the target year"}
                }
            }
        },
        "/promotions/bulk-promote": {
            "post": {
                "tags": ["Promotions"],
                "summary": "Promote a class in one transaction",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkPromotionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unmappable section aborts the batch"}
                }
            }
        },
        "/promotions/re-admit": {
            "post": {
                "tags": ["Promotions"],
                "summary": "Re-admit a student into an academic year",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/promotions/bulk-re-admit": {
            "post": {
                "tags": ["Promotions"],
                "summary": "Re-admit many students, one transaction each",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/bulk": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record attendance for a whole class on one date",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/webhook": {
            "post": {
                "tags": ["Fees"],
                "summary": "Payment gateway callback",
                "parameters": [
                    {"name": "X-Gateway-Signature", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Acknowledged"},
                    "401": {"description": "Invalid signature"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "PromoteStudentRequest": {
            "type": "object",
            "required": ["studentId", "sourceAcademicYearId", "targetAcademicYearId", "targetClassId", "targetSectionId"],
            "properties": {
                "studentId": {"type": "string"},
                "sourceAcademicYearId": {"type": "string"},
                "targetAcademicYearId": {"type": "string"},
                "targetClassId": {"type": "string"},
                "targetSectionId": {"type": "string"}
            }
        },
        "BulkPromotionRequest": {
            "type": "object",
            "required": ["classId", "sourceAcademicYearId", "targetAcademicYearId"],
            "properties": {
                "classId": {"type": "string"},
                "sectionId": {"type": "string"},
                "studentIds": {"type": "array", "items": {"type": "string"}},
                "sourceAcademicYearId": {"type": "string"},
                "targetAcademicYearId": {"type": "string"},
                "targetClassId": {"type": "string"},
                "targetSectionId": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
