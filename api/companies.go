package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gosimple/slug"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

type CompanyHandler struct {
	companies repository.CompanyRepo
	jobs      repository.JobRepo
}

func NewCompanyHandler(companies repository.CompanyRepo, jobs repository.JobRepo) *CompanyHandler {
	return &CompanyHandler{companies: companies, jobs: jobs}
}

// Slugify transliterates name to ASCII and joins its words with "-".
func Slugify(name string) string {
	return slug.Make(name)
}

// uniqueSlug appends -2, -3 ... until the slug is free.
func (h *CompanyHandler) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = "company"
	}
	candidate := base
	for n := 2; ; n++ {
		taken, err := h.companies.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

type companyRequest struct {
	Name           *string           `json:"name"`
	Industry       *string           `json:"industry"`
	Tagline        *string           `json:"tagline"`
	Description    *string           `json:"description"`
	Website        *string           `json:"website"`
	LogoURL        *string           `json:"logoUrl"`
	BannerURL      *string           `json:"bannerUrl"`
	CompanySize    *string           `json:"companySize"`
	Locations      []string          `json:"locations"`
	Benefits       []string          `json:"benefits"`
	Values         []string          `json:"values"`
	About          *string           `json:"about"`
	SEOTitle       *string           `json:"seoTitle"`
	SEODescription *string           `json:"seoDescription"`
	SocialLinks    map[string]string `json:"socialLinks"`
}

func (req *companyRequest) apply(c *models.Company) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&c.Name, req.Name)
	set(&c.Industry, req.Industry)
	set(&c.Tagline, req.Tagline)
	set(&c.Description, req.Description)
	set(&c.Website, req.Website)
	set(&c.LogoURL, req.LogoURL)
	set(&c.BannerURL, req.BannerURL)
	set(&c.CompanySize, req.CompanySize)
	set(&c.About, req.About)
	set(&c.SEOTitle, req.SEOTitle)
	set(&c.SEODescription, req.SEODescription)
	if req.Locations != nil {
		c.Locations = req.Locations
	}
	if req.Benefits != nil {
		c.Benefits = req.Benefits
	}
	if req.Values != nil {
		c.Values = req.Values
	}
	if req.SocialLinks != nil {
		c.SocialLinks = req.SocialLinks
	}
}

// Create registers the caller's company. A business user owns at most one.
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req companyRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	existing, err := h.companies.GetCompanyByOwner(ctx, userID)
	if err != nil {
		http.Error(w, "Failed to create company", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, "User already has a company", http.StatusConflict)
		return
	}

	c := &models.Company{OwnerID: &userID}
	req.apply(c)
	if c.Slug, err = h.uniqueSlug(ctx, c.Name); err != nil {
		http.Error(w, "Failed to create company", http.StatusInternalServerError)
		return
	}
	id, err := h.companies.CreateCompany(ctx, c)
	if err != nil {
		logger.Error("create company", slog.Int64("user_id", userID), slog.Any("err", err))
		http.Error(w, "Failed to create company", http.StatusInternalServerError)
		return
	}
	created, err := h.companies.GetCompany(ctx, id)
	if err != nil || created == nil {
		http.Error(w, "Failed to load company", http.StatusInternalServerError)
		return
	}
	writeJSON(w, created, http.StatusCreated)
}

func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, 20, 100)
	items, total, err := h.companies.ListCompanies(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		http.Error(w, "Failed to list companies", http.StatusInternalServerError)
		return
	}
	writeJSON(w, paged(orEmpty(items), total, page, limit), http.StatusOK)
}

// lookup resolves {idOrSlug}.
func (h *CompanyHandler) lookup(r *http.Request) (*models.Company, error) {
	key := mux.Vars(r)["idOrSlug"]
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		return h.companies.GetCompany(r.Context(), id)
	}
	return h.companies.GetCompanyBySlug(r.Context(), key)
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.lookup(r)
	if err != nil {
		http.Error(w, "Failed to load company", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.Error(w, "Company not found", http.StatusNotFound)
		return
	}
	writeJSON(w, c, http.StatusOK)
}

func canManageCompany(r *http.Request, c *models.Company) bool {
	if isAdmin(r) {
		return true
	}
	userID, _ := UserIDFrom(r.Context())
	return c.OwnerID != nil && *c.OwnerID == userID
}

func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, err := h.lookup(r)
	if err != nil {
		http.Error(w, "Failed to load company", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.Error(w, "Company not found", http.StatusNotFound)
		return
	}
	if !canManageCompany(r, c) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	var req companyRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	oldName := c.Name
	req.apply(c)
	if c.Name == "" {
		http.Error(w, "name cannot be empty", http.StatusBadRequest)
		return
	}
	if c.Name != oldName {
		if c.Slug, err = h.uniqueSlug(r.Context(), c.Name); err != nil {
			http.Error(w, "Failed to update company", http.StatusInternalServerError)
			return
		}
	}
	if err := h.companies.UpdateCompany(r.Context(), c); err != nil {
		http.Error(w, "Failed to update company", http.StatusInternalServerError)
		return
	}
	writeJSON(w, c, http.StatusOK)
}

func (h *CompanyHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	c, err := h.lookup(r)
	if err != nil {
		http.Error(w, "Failed to load company", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.Error(w, "Company not found", http.StatusNotFound)
		return
	}
	page, limit, offset := pageParams(r, 20, 100)
	jobs, total, err := h.jobs.ListJobs(r.Context(), models.JobFilter{CompanyID: c.ID, Status: r.URL.Query().Get("status"), Limit: limit, Offset: offset})
	if err != nil {
		http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, paged(orEmpty(jobs), total, page, limit), http.StatusOK)
}
