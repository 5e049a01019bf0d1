package api

import (
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/charstore/charstore/internal/api/recovery"
	"github.com/charstore/charstore/internal/services"
)

// RouterOptions carries the transport settings NewRouter needs.
type RouterOptions struct {
	ImageDir       string
	MaxUploadBytes int64
	AllowOrigin    string
	Logger         zerolog.Logger
}

// NewRouter wires the character API, image serving and health endpoint.
func NewRouter(svc *services.CharacterService, health *HealthHandler, opts RouterOptions) http.Handler {
	root := mux.NewRouter()

	ch := NewCharacterHandler(svc, opts.MaxUploadBytes, opts.Logger)
	root.HandleFunc("/api/characters", ch.ListCharacters).Methods("GET")
	root.HandleFunc("/api/search", ch.SearchCharacters).Methods("GET")
	root.HandleFunc("/api/character", ch.CreateCharacter).Methods("POST")
	root.HandleFunc("/api/character/{id}", ch.GetCharacter).Methods("GET")
	root.HandleFunc("/api/character/{id}", ch.UpdateCharacter).Methods("PUT")
	root.HandleFunc("/api/character/{id}", ch.DeleteCharacter).Methods("DELETE")

	if health != nil {
		root.HandleFunc("/api/health", health.CheckHealth).Methods("GET")
	}

	if opts.ImageDir != "" {
		root.HandleFunc(`/images/{name:[A-Za-z0-9_-]{1,64}\.png}`, func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, filepath.Join(opts.ImageDir, mux.Vars(r)["name"]))
		}).Methods("GET", "HEAD")
	}

	// CORS sits outside mux so preflights never hit the method matcher.
	return recovery.Middleware(CORS(opts.AllowOrigin)(root))
}
