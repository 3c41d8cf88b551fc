package errors

import "net/http"

const (
	CodeConnectionFailed      = "CONNECTION_FAILED"
	CodeCapabilityUnsupported = "CAPABILITY_UNSUPPORTED"
	CodeQueryFailed           = "QUERY_FAILED"
	CodePoolExhausted         = "POOL_EXHAUSTED"
	CodeInvalidTileContext    = "INVALID_TILE_CONTEXT"
	CodeInvalidTileCoords     = "INVALID_TILE_COORDINATES"
	CodeLayerNotFound         = "LAYER_NOT_FOUND"
	CodeConnectionNotFound    = "CONNECTION_NOT_FOUND"
	CodeEnvironmentNotFound   = "ENVIRONMENT_NOT_FOUND"
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInternal              = "INTERNAL_ERROR"
)

var (
	ErrConnectionFailed = New(
		CodeConnectionFailed,
		"Could not connect to remote database",
		http.StatusBadGateway,
	)

	ErrCapabilityUnsupported = New(
		CodeCapabilityUnsupported,
		"Remote database does not meet version requirements",
		http.StatusUnprocessableEntity,
	)

	ErrQueryFailed = New(
		CodeQueryFailed,
		"Query failed",
		http.StatusUnprocessableEntity,
	)

	ErrPoolExhausted = New(
		CodePoolExhausted,
		"Timed out waiting for a free connection",
		http.StatusServiceUnavailable,
	)

	ErrInvalidTileContext = New(
		CodeInvalidTileContext,
		"Invalid tile context",
		http.StatusBadRequest,
	)

	ErrInvalidTileCoordinates = New(
		CodeInvalidTileCoords,
		"Invalid tile coordinates",
		http.StatusBadRequest,
	)

	ErrLayerNotFound = New(
		CodeLayerNotFound,
		"Layer not found",
		http.StatusNotFound,
	)

	ErrConnectionNotFound = New(
		CodeConnectionNotFound,
		"Connection not found",
		http.StatusNotFound,
	)

	ErrEnvironmentNotFound = New(
		CodeEnvironmentNotFound,
		"Environment not found",
		http.StatusNotFound,
	)

	ErrValidation = New(
		CodeValidation,
		"Validation failed",
		http.StatusBadRequest,
	)

	ErrInvalidInput = New(
		CodeInvalidInput,
		"Invalid input",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		CodeInternal,
		"Internal server error",
		http.StatusInternalServerError,
	)
)
