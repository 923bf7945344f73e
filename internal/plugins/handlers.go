package plugins

import (
	"encoding/json"
	"net/http"

	com "github.com/citizenwallet/governance/internal/common"
	"github.com/citizenwallet/governance/internal/registry"
	"github.com/go-chi/chi/v5"
)

type Service struct {
	registry *registry.Registry
}

func NewService(r *registry.Registry) *Service {
	return &Service{
		registry: r,
	}
}

type registerRequest struct {
	Name       string `json:"name"`
	PluginRepo string `json:"plugin_repo"`
}

// GetPlugins godoc
//
//		@Summary		Fetch registered plugin repositories
//		@Tags			plugins
//		@Produce		json
//		@Success		200	{object}	common.Response
//		@Router			/plugins [get]
func (s *Service) GetPlugins(w http.ResponseWriter, r *http.Request) {
	entries := s.registry.Entries()

	err := com.BodyMultiple(w, entries, com.Pagination{Limit: len(entries), Offset: 0, Total: len(entries)})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *Service) GetPlugin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	addr, ok := s.registry.Lookup(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	err := com.Body(w, registry.Entry{Name: name, PluginRepo: addr}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Register adds a plugin repository. The signer needs REGISTER_PERMISSION.
func (s *Service) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := com.GetContextAddress(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	repo, err := com.ParseAddress(req.PluginRepo)
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	err = s.registry.Register(caller, req.Name, repo)
	if err != nil {
		com.ErrorBody(w, err)
		return
	}

	err = com.Body(w, registry.Entry{Name: req.Name, PluginRepo: repo}, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
