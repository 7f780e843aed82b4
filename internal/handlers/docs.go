package handlers

import (
	"encoding/json"
	"net/http"
)

// jsonResponse describes a JSON response body with the given schema
func jsonResponse(description string, schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": schema,
			},
		},
	}
}

var (
	errorSchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"error":   map[string]string{"type": "string"},
			"message": map[string]string{"type": "string"},
			"code":    map[string]string{"type": "integer"},
		},
	}

	nullableSeries = map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "number", "nullable": true},
	}

	rowSchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"key":    map[string]interface{}{"type": "string", "example": "power_fridge_N/A_1_0"},
			"label":  map[string]string{"type": "string"},
			"values": nullableSeries,
		},
	}

	runSummarySchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"run_id":           map[string]string{"type": "string", "format": "uuid"},
			"root_path":        map[string]string{"type": "string"},
			"targets":          map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
			"total_files":      map[string]string{"type": "integer"},
			"rows":             map[string]string{"type": "integer"},
			"width":            map[string]string{"type": "integer"},
			"total_readings":   map[string]string{"type": "integer"},
			"skipped_readings": map[string]string{"type": "integer"},
			"duration_ms":      map[string]string{"type": "integer"},
			"created_at":       map[string]string{"type": "string", "format": "date-time"},
			"warnings":         map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
			"persisted":        map[string]string{"type": "boolean"},
		},
	}

	paginationParams = []map[string]interface{}{
		{
			"name":        "page",
			"in":          "query",
			"description": "Page number (default: 1)",
			"required":    false,
			"schema":      map[string]interface{}{"type": "integer", "default": 1},
		},
		{
			"name":        "limit",
			"in":          "query",
			"description": "Records per page (default: 100, max: 1000)",
			"required":    false,
			"schema":      map[string]interface{}{"type": "integer", "default": 100},
		},
	}

	noDataResponse = jsonResponse("No dataset has been ingested or loaded", errorSchema)
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the ACS-F2 dataset API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "ACS-F2 Signature Platform API",
			"description": "Ingests ACS-F2 appliance recordings into a wide table and serves the signature, intersession and label views",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/dataset/ingest": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Ingest a recording tree",
					"description": "Builds a new wide table from <root>/*/*/*.xml and makes it current. Targets, when given, are validated strictly.",
					"requestBody": map[string]interface{}{
						"required": false,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"path":    map[string]string{"type": "string"},
										"targets": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string", "enum": []string{"freq", "phAngle", "power", "reacPower", "rmsCur", "rmsVolt"}}},
										"persist": map[string]string{"type": "boolean"},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"201": jsonResponse("Run summary", runSummarySchema),
						"400": jsonResponse("Invalid targets or body", errorSchema),
						"404": jsonResponse("No recordings found", errorSchema),
						"422": jsonResponse("Recording without usable device descriptor", errorSchema),
					},
				},
			},
			"/api/dataset/wide": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get the wide table",
					"description": "One row per (channel, label, model, session, device index) key, in first-seen order",
					"parameters":  paginationParams,
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"data":        map[string]interface{}{"type": "array", "items": rowSchema},
								"total":       map[string]string{"type": "integer"},
								"page":        map[string]string{"type": "integer"},
								"limit":       map[string]string{"type": "integer"},
								"total_pages": map[string]string{"type": "integer"},
							},
						}),
						"404": noDataResponse,
					},
				},
			},
			"/api/dataset/signature": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get the signature dataset",
					"description": "One row per device with its channels as equal-length series",
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"device_index": map[string]string{"type": "integer"},
									"label":        map[string]string{"type": "string"},
									"channels":     map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
									"length":       map[string]string{"type": "integer"},
									"series":       map[string]interface{}{"type": "object", "additionalProperties": nullableSeries},
								},
							},
						}),
						"404": noDataResponse,
					},
				},
			},
			"/api/dataset/split/{part}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get one part of the intersession protocol",
					"description": "train holds session 1 rows, test holds session 2 rows",
					"parameters": []map[string]interface{}{
						{
							"name":     "part",
							"in":       "path",
							"required": true,
							"schema":   map[string]interface{}{"type": "string", "enum": []string{"train", "test"}},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"part": map[string]string{"type": "string"},
								"rows": map[string]interface{}{"type": "array", "items": rowSchema},
							},
						}),
						"400": jsonResponse("Unknown part", errorSchema),
						"404": noDataResponse,
					},
				},
			},
			"/api/dataset/labels": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get the label index",
					"description": "Labels coded 0, 1, 2, ... in order of first appearance",
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"labels": map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
								"codes":  map[string]interface{}{"type": "object", "additionalProperties": map[string]string{"type": "integer"}},
							},
						}),
						"404": noDataResponse,
					},
				},
			},
			"/api/dataset/devices": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get device descriptors",
					"description": "Attributes of every targetDevice element, in ingestion order",
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "object", "additionalProperties": map[string]string{"type": "string"}},
						}),
						"404": noDataResponse,
					},
				},
			},
			"/api/dataset/runs": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List persisted runs",
					"description": "Newest first; empty when no store is configured",
					"parameters":  paginationParams,
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"id":               map[string]string{"type": "string"},
									"root_path":        map[string]string{"type": "string"},
									"targets":          map[string]string{"type": "string"},
									"file_count":       map[string]string{"type": "integer"},
									"row_count":        map[string]string{"type": "integer"},
									"reading_count":    map[string]string{"type": "integer"},
									"skipped_readings": map[string]string{"type": "integer"},
									"created_at":       map[string]string{"type": "string", "format": "date-time"},
								},
							},
						}),
					},
				},
			},
			"/api/dataset/runs/{id}/load": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Load a persisted run",
					"description": "Makes a stored run current; the id latest selects the newest run",
					"parameters": []map[string]interface{}{
						{
							"name":     "id",
							"in":       "path",
							"required": true,
							"schema":   map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Run summary", runSummarySchema),
						"400": jsonResponse("No store configured", errorSchema),
						"404": jsonResponse("Run not found", errorSchema),
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its store are available",
					"responses": map[string]interface{}{
						"200": jsonResponse("API is healthy", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"status": map[string]string{"type": "string"},
								"run_id": map[string]string{"type": "string"},
							},
						}),
						"503": jsonResponse("Store unavailable", map[string]interface{}{"type": "object"}),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
