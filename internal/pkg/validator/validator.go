package validator

// Validator validates request and usecase input structs.
type Validator interface {
	// Validate returns nil or a V10ValidationError keyed by snake_case field name.
	Validate(data any) error
}
