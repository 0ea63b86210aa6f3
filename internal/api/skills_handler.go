package api

import (
	"net/http"

	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/internal/skills"
	"github.com/praxis/backend/pkg/response"
	"go.uber.org/zap"
)

// SkillsHandler serves the predefined skill catalog
type SkillsHandler struct {
	catalog  *skills.Catalog
	profiles *domain.ProfileService
	logger   *zap.Logger
}

func NewSkillsHandler(catalog *skills.Catalog, profiles *domain.ProfileService, logger *zap.Logger) *SkillsHandler {
	return &SkillsHandler{catalog: catalog, profiles: profiles, logger: logger}
}

// Search handles GET /api/v1/skills?q=
func (h *SkillsHandler) Search(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.catalog.Search(r.URL.Query().Get("q")))
}

// Categories handles GET /api/v1/skills/categories
func (h *SkillsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.catalog.Categories())
}

// Suggestions handles GET /api/v1/skills/suggestions. The list named by
// ?for=wantsToLearn is excluded; by default the teaching skills are.
func (h *SkillsHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		serviceError(w, h.logger, err, "failed to load suggestions")
		return
	}

	current := p.Skills
	if r.URL.Query().Get("for") == "wantsToLearn" {
		current = p.WantsToLearn
	}
	response.OK(w, h.catalog.Suggestions(current))
}
