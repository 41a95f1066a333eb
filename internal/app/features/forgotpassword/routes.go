// internal/app/features/forgotpassword/routes.go
package forgotpassword

import "github.com/go-chi/chi/v5"

// Routes is mounted at /forgot-password.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleRequest)
	r.Post("/reset", h.HandleReset)
	return r
}
