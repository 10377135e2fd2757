// Package docs holds the OpenAPI document served under /swagger. Regenerate
// it with swag init after changing handler annotations.
package docs

import "github.com/swaggo/swag/v2"

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
		"/admin/outbox/dead": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"outbox"
				],
				"summary": "List dead letter entries",
				"parameters": [
					{
						"type": "integer",
						"description": "Page number",
						"name": "page",
						"in": "query",
						"default": 1
					},
					{
						"type": "integer",
						"description": "Items per page",
						"name": "page_size",
						"in": "query",
						"default": 20,
						"maximum": 100
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "array",
											"items": {
												"type": "object"
											}
										}
									}
								}
							]
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/admin/outbox/dead/{id}/retry": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"outbox"
				],
				"summary": "Requeue one dead entry",
				"parameters": [
					{
						"type": "string",
						"description": "Outbox entry ID",
						"name": "id",
						"in": "path",
						"required": true,
						"format": "uuid"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/agreements/{id}/sign": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "The realtor signs for the customer, an admin for the bank. Both signatures make it SIGNED.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"agreements"
				],
				"summary": "Sign an agreement",
				"parameters": [
					{
						"type": "integer",
						"description": "Agreement ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Signature",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/audit-logs": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"audit"
				],
				"summary": "Query the audit log",
				"parameters": [
					{
						"type": "string",
						"description": "Actor",
						"name": "actor",
						"in": "query"
					},
					{
						"type": "string",
						"description": "Action, e.g. POST /api/v1/offers",
						"name": "action",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "HTTP status",
						"name": "outcome",
						"in": "query"
					},
					{
						"type": "string",
						"description": "RFC 3339 lower bound",
						"name": "since",
						"in": "query"
					},
					{
						"type": "string",
						"description": "RFC 3339 upper bound",
						"name": "until",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "array",
											"items": {
												"type": "object"
											}
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/auth/bootstrap": {
			"post": {
				"description": "Requires the X-Bootstrap-Token header and only works while no account exists",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Create the first admin",
				"parameters": [
					{
						"type": "string",
						"description": "Bootstrap token",
						"name": "X-Bootstrap-Token",
						"in": "header",
						"required": true
					},
					{
						"description": "Admin credentials",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/auth/login": {
			"post": {
				"description": "Authenticate with username and password",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Login",
				"parameters": [
					{
						"description": "Login credentials",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/auth/logout": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Revoke the current access token and, when given, the refresh token",
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Logout",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/auth/me": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Current account",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/auth/refresh": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Refresh access token",
				"parameters": [
					{
						"description": "Refresh token",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/health": {
			"get": {
				"description": "Reports service status and database reachability",
				"produces": [
					"application/json"
				],
				"tags": [
					"system"
				],
				"summary": "Health check",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/imports/stands": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Columns project, name, size, price. Projects are created by name. Invalid rows are reported and skipped.",
				"consumes": [
					"multipart/form-data"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"import"
				],
				"summary": "Import stands from CSV",
				"parameters": [
					{
						"type": "file",
						"description": "CSV file",
						"name": "file",
						"in": "formData",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					},
					"413": {
						"description": "Error",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/loan-accounts": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Allocates the number, marks the stand SOLD and links the loan in one transaction",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"loan-accounts"
				],
				"summary": "Create the loan account of a signed agreement",
				"parameters": [
					{
						"description": "Agreement",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/loan-applications/{id}/decision": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "An approval drafts the agreement when none exists yet",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"loan-applications"
				],
				"summary": "Decide a loan application",
				"parameters": [
					{
						"type": "integer",
						"description": "Loan application ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Decision",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/offers": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Server-controlled fields are reset; required documents must match the configured set",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"offers"
				],
				"summary": "Submit an offer",
				"parameters": [
					{
						"description": "Offer",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/projects": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"projects"
				],
				"summary": "Create project",
				"parameters": [
					{
						"description": "Project",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/projects/{id}/stands": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"stands"
				],
				"summary": "Add a stand to a project",
				"parameters": [
					{
						"type": "integer",
						"description": "Project ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Stand",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/reports/properties.csv": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"text/csv"
				],
				"tags": [
					"reports"
				],
				"summary": "Stand and mandate status export",
				"responses": {
					"200": {
						"description": "CSV",
						"schema": {
							"type": "string"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/requirements": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "The slug is derived from the name and disambiguated within the workflow type",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"requirements"
				],
				"summary": "Add a document requirement",
				"parameters": [
					{
						"description": "Requirement",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					}
				}
			}
		},
		"/stands/{id}/mandate": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"mandates"
				],
				"summary": "Assign or reassign a mandate",
				"parameters": [
					{
						"type": "integer",
						"description": "Stand ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Mandate",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"type": "object"
										}
									}
								}
							]
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/dto.Response"
								},
								{
									"type": "object",
									"properties": {
										"error": {
											"$ref": "#/definitions/dto.ErrorInfo"
										}
									}
								}
							]
						}
					}
				}
			}
		}
	},
	"definitions": {
		"dto.ErrorInfo": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"details": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/dto.ValidationDetail"
					}
				},
				"message": {
					"type": "string"
				},
				"request_id": {
					"type": "string"
				}
			}
		},
		"dto.Meta": {
			"type": "object",
			"properties": {
				"page": {
					"type": "integer"
				},
				"page_size": {
					"type": "integer"
				},
				"total": {
					"type": "integer"
				},
				"total_pages": {
					"type": "integer"
				}
			}
		},
		"dto.Response": {
			"type": "object",
			"properties": {
				"data": {},
				"error": {
					"$ref": "#/definitions/dto.ErrorInfo"
				},
				"meta": {
					"$ref": "#/definitions/dto.Meta"
				},
				"success": {
					"type": "boolean"
				}
			}
		},
		"dto.ValidationDetail": {
			"type": "object",
			"properties": {
				"field": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Bearer token authentication. Format: \"Bearer {token}\"",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "PropFlow Backend API",
	Description:      "Property sales workflow API: offers, loan applications, agreements and account opening",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
