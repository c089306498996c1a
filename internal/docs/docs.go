// Package docs registers the OpenAPI document served at /swagger.
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
        "/api/analyze": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["assessment"],
                "summary": "Score one voice sample",
                "parameters": [
                    {
                        "description": "Acoustic features, optional subject, transcript or cognitive score",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.AnalyzeRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.AnalyzeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.Response"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            }
        },
        "/api/baselines/{subject}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["baselines"],
                "summary": "Get a subject's baseline",
                "parameters": [{"type": "string", "name": "subject", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.BaselineResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["baselines"],
                "summary": "Store features as a subject's baseline",
                "parameters": [
                    {"type": "string", "name": "subject", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.BaselineRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.BaselineResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            },
            "delete": {
                "tags": ["baselines"],
                "summary": "Delete a subject's baseline",
                "parameters": [{"type": "string", "name": "subject", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.Response"}}
                }
            }
        },
        "/api/model": {
            "get": {
                "produces": ["application/json"],
                "tags": ["model"],
                "summary": "Report risk model state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Info"}}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Service degradation summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Service counters",
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}
            }
        }
    },
    "definitions": {
        "acoustic.FeatureInput": {
            "type": "object",
            "properties": {
                "mfcc_mean": {"type": "array", "items": {"type": "number"}},
                "mfcc_std": {"type": "array", "items": {"type": "number"}},
                "jitter_percent": {"type": "number"},
                "shimmer_percent": {"type": "number"},
                "mean_pitch_hz": {"type": "number"},
                "pitch_std_hz": {"type": "number"},
                "pitch_stability": {"type": "number"},
                "pause_ratio": {"type": "number"},
                "speech_rate": {"type": "number"},
                "harmonics_to_noise": {"type": "number"}
            }
        },
        "types.AnalyzeRequest": {
            "type": "object",
            "required": ["features"],
            "properties": {
                "subject_id": {"type": "string", "example": "subject-042"},
                "features": {"$ref": "#/definitions/acoustic.FeatureInput"},
                "transcript": {"type": "string"},
                "cognitive_risk_score": {"type": "number", "example": 42.5}
            }
        },
        "types.AnalyzeResponse": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "acoustic_risk_score": {"type": "number"},
                "cognitive_risk_score": {"type": "number", "x-nullable": true},
                "neuro_risk_level": {"type": "string", "enum": ["Low", "Medium", "High"]},
                "confidence": {"type": "number", "x-nullable": true},
                "cognitive_available": {"type": "boolean"},
                "baseline_comparison": {"$ref": "#/definitions/analysis.BaselineComparison"},
                "heuristic_score": {"type": "number"},
                "model_probability": {"type": "number", "x-nullable": true},
                "degraded": {"type": "boolean"},
                "degradation_reasons": {"type": "array", "items": {"type": "string"}},
                "explanation": {"type": "string"},
                "recommendations": {"type": "array", "items": {"type": "string"}},
                "lexical_status": {"type": "string"},
                "lexical_error_type": {"type": "string"},
                "lexical_metrics": {"$ref": "#/definitions/analysis.CognitiveMetrics"},
                "baseline_used": {"type": "boolean"},
                "model_version": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "analysis.BaselineComparison": {
            "type": "object",
            "properties": {
                "deviation_score": {"type": "number"},
                "mfcc_drift": {"type": "number"},
                "pitch_deviation": {"type": "number"},
                "rhythm_deviation": {"type": "number"},
                "status": {"type": "string", "enum": ["normal", "mild_drift", "significant_drift", "critical_drift"]}
            }
        },
        "analysis.CognitiveMetrics": {
            "type": "object",
            "properties": {
                "vocabulary_richness": {"type": "number"},
                "sentence_coherence": {"type": "number"},
                "word_finding_difficulty": {"type": "number"},
                "repetition_tendency": {"type": "number"},
                "cognitive_concern": {"type": "string"}
            }
        },
        "types.BaselineRequest": {
            "type": "object",
            "required": ["features"],
            "properties": {"features": {"$ref": "#/definitions/acoustic.FeatureInput"}}
        },
        "types.BaselineResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "subject_id": {"type": "string"},
                "features": {"$ref": "#/definitions/acoustic.FeatureInput"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "degradation_level": {"type": "string"},
                "model": {"$ref": "#/definitions/model.Info"},
                "services": {"type": "object"},
                "uptime": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "model.Info": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "enum": ["unloaded", "ready", "unavailable"]},
                "path": {"type": "string"},
                "version": {"type": "string"},
                "estimator": {"type": "string"},
                "trees": {"type": "integer"},
                "feature_count": {"type": "integer"},
                "feature_names": {"type": "array", "items": {"type": "string"}},
                "classes": {"type": "array", "items": {"type": "string"}},
                "positive_class": {"type": "string"},
                "loaded_at": {"type": "string", "format": "date-time"},
                "error": {"type": "string"}
            }
        },
        "errors.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "category": {"type": "string"},
                "message": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "request_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Cognitive Echo Risk API",
	Description:      "Acoustic-cognitive risk scoring for voice samples.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
