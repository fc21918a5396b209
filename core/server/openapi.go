package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pb33f/libopenapi"
)

// Document generates the OpenAPI 3.0 specification for the HTTP API and
// validates it with libopenapi before returning the raw JSON.
func Document(baseURL string) ([]byte, error) {
	spec := map[string]any{
		"openapi": "3.0.0",
		"info": map[string]any{
			"title":       "dbbridge API",
			"version":     "1.0.0",
			"description": "REST facade over named database connections. Statements run against Oracle, SQL Server, PostgreSQL and MySQL backends.",
		},
		"servers": []map[string]any{
			{
				"url":         baseURL,
				"description": "dbbridge server",
			},
		},
		"paths": map[string]any{
			"/v1/query":       queryPath(),
			"/v1/connections": connectionsPath(),
			"/healthz":        healthPath(),
		},
	}

	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal spec: %w", err)
	}

	// Parse and validate with libopenapi
	document, err := libopenapi.NewDocument(specJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create libopenapi document: %w", err)
	}

	// Build the model to validate
	if _, errs := document.BuildV3Model(); len(errs) > 0 {
		return nil, fmt.Errorf("failed to build v3 model (validation error): %w", errors.Join(errs...))
	}

	return specJSON, nil
}

func queryPath() map[string]any {
	requestBodySchema := map[string]any{
		"type":     "object",
		"required": []string{"connection", "sql"},
		"properties": map[string]any{
			"connection": map[string]any{
				"type":        "string",
				"description": "Registry name of the connection to run against",
				"example":     "dwh",
			},
			"sql": map[string]any{
				"type":        "string",
				"description": "Statement to execute",
				"example":     "SELECT id, name FROM employees",
			},
			"one": map[string]any{
				"type":        "boolean",
				"description": "Trim the result to its first row; fails with 404 when the result is empty",
				"default":     false,
			},
			"commit": map[string]any{
				"type":        "boolean",
				"description": "Commit the pending transaction after the statement",
				"default":     false,
			},
			"keep_open": map[string]any{
				"type":        "boolean",
				"description": "Leave the session connected after the statement",
				"default":     false,
			},
			"cache_ttl": map[string]any{
				"type":        "integer",
				"description": "Cache the result for this many seconds; 0 bypasses the cache",
				"minimum":     0,
				"default":     0,
			},
		},
	}

	responseSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success": map[string]any{
				"type":    "boolean",
				"example": true,
			},
			"columns": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"rows": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": true,
				},
			},
			"rows_affected": map[string]any{
				"type":        "integer",
				"description": "Set only when the statement produced a tally instead of rows",
			},
			"duration_ms": map[string]any{
				"type": "number",
			},
			"cached": map[string]any{
				"type":        "boolean",
				"description": "True when the result came from the cache",
			},
		},
	}

	return map[string]any{
		"post": map[string]any{
			"summary":     "Execute a statement on a named connection",
			"description": "Runs the statement on the named connection. By default the session is closed afterwards and nothing is committed.",
			"operationId": "executeQuery",
			"requestBody": map[string]any{
				"required": true,
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": requestBodySchema,
					},
				},
			},
			"responses": map[string]any{
				"200": map[string]any{
					"description": "Statement executed",
					"content": map[string]any{
						"application/json": map[string]any{
							"schema": responseSchema,
						},
					},
				},
				"400": errorResponse("Bad request - invalid body or failed validation"),
				"404": errorResponse("Unknown connection or empty result with one=true"),
				"500": errorResponse("Connection or statement failure"),
			},
		},
	}
}

func connectionsPath() map[string]any {
	return map[string]any{
		"get": map[string]any{
			"summary":     "List active connections and their liveness",
			"operationId": "listConnections",
			"responses": map[string]any{
				"200": map[string]any{
					"description": "Active connections",
					"content": map[string]any{
						"application/json": map[string]any{
							"schema": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"success": map[string]any{"type": "boolean"},
									"connections": map[string]any{
										"type": "array",
										"items": map[string]any{
											"type": "object",
											"properties": map[string]any{
												"name":  map[string]any{"type": "string"},
												"rdbms": map[string]any{"type": "string"},
												"alive": map[string]any{"type": "boolean"},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func healthPath() map[string]any {
	return map[string]any{
		"get": map[string]any{
			"summary":     "Health check",
			"operationId": "healthCheck",
			"responses": map[string]any{
				"200": map[string]any{
					"description": "Service is up",
					"content": map[string]any{
						"application/json": map[string]any{
							"schema": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"success": map[string]any{"type": "boolean", "example": true},
								},
							},
						},
					},
				},
			},
		},
	}
}

func errorResponse(description string) map[string]any {
	return map[string]any{
		"description": description,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"success":  map[string]any{"type": "boolean", "example": false},
						"error":    map[string]any{"type": "string"},
						"code":     map[string]any{"type": "string", "example": "STATEMENT_FAILED"},
						"trace_id": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

// handleOpenAPI serves the validated OpenAPI document, pretty printed.
func handleOpenAPI(baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specJSON, err := Document(baseURL)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to generate OpenAPI spec: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		// Pretty print the JSON
		var spec map[string]any
		if err := json.Unmarshal(specJSON, &spec); err != nil {
			http.Error(w, "Failed to format spec", http.StatusInternalServerError)
			return
		}

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
			return
		}
	}
}
