package swagger

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/siwarga/rwrt-backend/internal/logging"
	httpSwagger "github.com/swaggo/http-swagger"
)

const specPath = "/openapi.json"

// Mount serves the OpenAPI document and the Swagger UI under /docs.
func Mount(r chi.Router, spec []byte) {
	r.Get(specPath, ServeSwaggerJSON(spec))
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(specPath)))
}

// OpenAPI spec as JSON
func ServeSwaggerJSON(spec []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*") // CORS off for docs
		if _, err := w.Write(spec); err != nil {
			logging.Debug("Failed to write OpenAPI document", "error", err)
		}
	}
}
