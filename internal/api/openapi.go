package api

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	nethttpmw "github.com/oapi-codegen/nethttp-middleware"
)

//go:embed openapi.yaml
var openapiYAML []byte

func init() {
	// photo parts arrive with their own image content type
	for _, ct := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		openapi3filter.RegisterBodyDecoder(ct, openapi3filter.FileBodyDecoder)
	}
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if err := spec.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return spec, nil
}

// NewValidator validates requests against spec and runs authenticate for
// operations that declare BearerAuth. Failures use the API error envelope.
func NewValidator(spec *openapi3.T, authenticate openapi3filter.AuthenticationFunc) func(http.Handler) http.Handler {
	// match on paths only, whatever host the server is reached under
	spec.Servers = nil

	return nethttpmw.OapiRequestValidatorWithOptions(spec, &nethttpmw.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: authenticate,
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			switch statusCode {
			case http.StatusUnauthorized:
				Unauthorized("Authentication required").Write(w)
			case http.StatusNotFound:
				NewError(http.StatusNotFound, CodeResourceNotFound, "Route not found").Write(w)
			case http.StatusForbidden:
				PermissionDenied(message).Write(w)
			default:
				ValidationErr("Request does not match the API schema", []ErrorDetail{{Message: message}}).Write(w)
			}
		},
	})
}

// OpenAPIJSON returns the embedded document as JSON for the docs UI.
func OpenAPIJSON() ([]byte, error) {
	spec, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	return spec.MarshalJSON()
}
