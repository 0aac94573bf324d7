package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/task-manager-api/shared/validator"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) *validator.ValidationError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return bodyError(err, "body must be valid JSON")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return bodyError(err, "body must contain a single JSON value")
	}

	return nil
}

func bodyError(err error, msg string) *validator.ValidationError {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return validator.NewValidationError("body", "body is too large")
	}

	return validator.NewValidationError("body", msg)
}

// parseTaskID rejects ids that cannot name any task.
func parseTaskID(id string) *validator.ValidationError {
	if _, err := bson.ObjectIDFromHex(id); err != nil {
		return validator.NewValidationError("id", "id must be a valid task id")
	}

	return nil
}
