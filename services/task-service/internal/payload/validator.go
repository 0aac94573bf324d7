package payload

import "github.com/vasapolrittideah/task-manager-api/shared/validator"

// NewValidator returns a validator that knows every struct-level rule of the
// request payloads in this package.
func NewValidator() (*validator.Validator, error) {
	v, err := validator.New()
	if err != nil {
		return nil, err
	}

	v.RegisterStructValidation(UpdateTaskRequestValidation, UpdateTaskRequest{})

	return v, nil
}
