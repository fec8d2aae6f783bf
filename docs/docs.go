// Package docs holds the OpenAPI document served at /api/swagger.
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
        "/feed": {
            "get": {
                "description": "Public posts, newest first with an opaque cursor, or ranked with page numbers",
                "produces": ["application/json"],
                "tags": ["feed"],
                "summary": "Global feed",
                "parameters": [
                    {"type": "string", "description": "Cursor from a previous page", "name": "cursor", "in": "query"},
                    {"type": "integer", "description": "Page size (1-50)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Page number for ranked sorts", "name": "page", "in": "query"},
                    {"type": "string", "description": "recent, popular, views or comments", "name": "sortBy", "in": "query"},
                    {"type": "string", "description": "Post type", "name": "type", "in": "query"},
                    {"type": "string", "description": "Style", "name": "style", "in": "query"},
                    {"type": "string", "description": "Body part", "name": "bodyPart", "in": "query"},
                    {"type": "string", "description": "Location", "name": "location", "in": "query"},
                    {"type": "boolean", "description": "Featured only / non-featured only", "name": "featured", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.RecentFeedResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/feed/following": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Posts from authors the caller follows. Same parameters as the global feed.",
                "produces": ["application/json"],
                "tags": ["feed"],
                "summary": "Following feed",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.RecentFeedResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Multipart form with an optional \"image\" file, or a JSON body for caption-only posts",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Create a post",
                "parameters": [
                    {"type": "string", "description": "Caption", "name": "caption", "in": "formData"},
                    {"type": "file", "description": "JPEG, PNG or WebP image", "name": "image", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Post"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Get a post",
                "parameters": [{"type": "string", "description": "Post ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Post"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["posts"],
                "summary": "Delete a post",
                "parameters": [{"type": "string", "description": "Post ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/toggle": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Flips the caller's like or save on a post and returns the new state",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["interactions"],
                "summary": "Toggle like or save",
                "parameters": [
                    {"type": "string", "description": "Post ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "like or save (may also be sent in the body)", "name": "kind", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ToggleResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/{id}/follow": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Follow a user",
                "parameters": [{"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Unfollow a user",
                "parameters": [{"type": "integer", "description": "User ID", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "details": {"type": "string"},
                "retry_after_ms": {"type": "integer"}
            }
        },
        "models.ToggleResult": {
            "type": "object",
            "properties": {
                "active": {"type": "boolean"},
                "count": {"type": "integer"}
            }
        },
        "models.Post": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "integer"},
                "caption": {"type": "string"},
                "image_url": {"type": "string"},
                "visibility": {"type": "string"},
                "type": {"type": "string"},
                "style": {"type": "string"},
                "body_part": {"type": "string"},
                "location": {"type": "string"},
                "featured": {"type": "boolean"},
                "likes_count": {"type": "integer"},
                "comments_count": {"type": "integer"},
                "views_count": {"type": "integer"},
                "saves_count": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "models.PageInfo": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "totalPages": {"type": "integer"},
                "totalItems": {"type": "integer"},
                "pageSize": {"type": "integer"}
            }
        },
        "server.RecentFeedResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/models.Post"}},
                "nextCursor": {"type": "string"}
            }
        },
        "server.RankedFeedResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/models.Post"}},
                "pagination": {"$ref": "#/definitions/models.PageInfo"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8375",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Inkfeed API",
	Description:      "Tattoo portfolio feed with cursor pagination, likes, saves and follows",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
