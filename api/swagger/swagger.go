package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "QuietDrop API",
        "description": "Single-link secret sharing with expiring, optionally password-protected retrieval",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Secrets", "description": "Secret creation and redemption"},
        {"name": "Admin", "description": "Extended-access grant maintenance"}
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
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/secrets": {
            "post": {
                "tags": ["Secrets"],
                "summary": "Create a secret",
                "responses": {
                    "200": {"description": "Short retrieval link"},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/secrets/{shortId}": {
            "get": {
                "tags": ["Secrets"],
                "summary": "Retrieve a secret",
                "responses": {
                    "200": {"description": "Secret text or password-required signal"},
                    "404": {"description": "Not found"},
                    "410": {"description": "Expired"}
                }
            },
            "post": {
                "tags": ["Secrets"],
                "summary": "Redeem a secret with an optional password",
                "responses": {
                    "200": {"description": "Secret text or password-required signal"},
                    "401": {"description": "Incorrect password"},
                    "404": {"description": "Not found"},
                    "410": {"description": "Expired"}
                }
            }
        },
        "/secrets/{shortId}/extended": {
            "post": {
                "tags": ["Secrets"],
                "summary": "Redeem through an extended-access grant",
                "responses": {
                    "200": {"description": "Secret text"},
                    "403": {"description": "No grant for this email"},
                    "404": {"description": "Not found"},
                    "410": {"description": "Grant expired"}
                }
            }
        },
        "/admin/extend": {
            "post": {
                "tags": ["Admin"],
                "summary": "List expired grants or extend one",
                "responses": {
                    "200": {"description": "Listing or extension confirmation"},
                    "401": {"description": "Missing or invalid admin token"},
                    "404": {"description": "No matching grant"}
                }
            }
        },
        "/admin/extend/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Download the expired-grant report",
                "responses": {
                    "200": {"description": "CSV or PDF report"},
                    "400": {"description": "Unsupported format"}
                }
            }
        }
    },
    "definitions": {
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
