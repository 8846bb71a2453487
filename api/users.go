package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/garnizeh/careerhub/internal/cvmap"
	"github.com/garnizeh/careerhub/internal/schema"
	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

var (
	skillLevels     = []string{"BEGINNER", "INTERMEDIATE", "ADVANCED", "EXPERT"}
	socialLinkTypes = []string{"LINKEDIN", "GITHUB", "PORTFOLIO", "TWITTER", "YOUTUBE", "INSTAGRAM", "FACEBOOK", "WEBSITE"}
)

type UserHandler struct {
	users   repository.UserRepo
	profile repository.ProfileRepo
	xp      Achievements
	schemas *schema.Registry
}

// NewUserHandler wires the profile endpoints. xp and schemas may be nil.
func NewUserHandler(users repository.UserRepo, profile repository.ProfileRepo, xp Achievements, schemas *schema.Registry) *UserHandler {
	return &UserHandler{users: users, profile: profile, xp: xp, schemas: schemas}
}

type profileResponse struct {
	*models.User
	Skills      []models.Skill      `json:"skills"`
	Experiences []models.Experience `json:"experiences"`
	Educations  []models.Education  `json:"educations"`
	Projects    []models.Project    `json:"projects"`
	Languages   []models.Language   `json:"languages"`
	SocialLinks []models.SocialLink `json:"socialLinks"`

	Certifications []models.Certification `json:"certifications"`
	Awards         []models.Award         `json:"awards"`
	VolunteerWork  []models.VolunteerWork `json:"volunteerWork"`
}

func (h *UserHandler) fullProfile(r *http.Request, u *models.User) (*profileResponse, error) {
	ctx := r.Context()
	out := &profileResponse{User: u}
	var err error
	if out.Skills, err = h.profile.ListSkills(ctx, u.ID); err != nil {
		return nil, err
	}
	if out.Experiences, err = h.profile.ListExperiences(ctx, u.ID); err != nil {
		return nil, err
	}
	if out.Educations, err = h.profile.ListEducations(ctx, u.ID); err != nil {
		return nil, err
	}
	if out.Projects, err = h.profile.ListProjects(ctx, u.ID); err != nil {
		return nil, err
	}
	if out.Languages, err = h.profile.ListLanguages(ctx, u.ID); err != nil {
		return nil, err
	}
	if out.SocialLinks, err = h.profile.ListSocialLinks(ctx, u.ID); err != nil {
		return nil, err
	}
	if out.Certifications, err = h.profile.ListCertifications(ctx, u.ID); err != nil {
		return nil, err
	}
	if out.Awards, err = h.profile.ListAwards(ctx, u.ID); err != nil {
		return nil, err
	}
	if out.VolunteerWork, err = h.profile.ListVolunteerWork(ctx, u.ID); err != nil {
		return nil, err
	}
	out.Skills = orEmpty(out.Skills)
	out.Experiences = orEmpty(out.Experiences)
	out.Educations = orEmpty(out.Educations)
	out.Projects = orEmpty(out.Projects)
	out.Languages = orEmpty(out.Languages)
	out.SocialLinks = orEmpty(out.SocialLinks)
	out.Certifications = orEmpty(out.Certifications)
	out.Awards = orEmpty(out.Awards)
	out.VolunteerWork = orEmpty(out.VolunteerWork)
	return out, nil
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	if u == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	p, err := h.fullProfile(r, u)
	if err != nil {
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, p, http.StatusOK)
}

type updateMeRequest struct {
	Name         *string `json:"name"`
	Headline     *string `json:"headline"`
	Bio          *string `json:"bio"`
	Location     *string `json:"location"`
	Phone        *string `json:"phone"`
	ProfileImage *string `json:"profileImage"`
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	u, err := h.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			http.Error(w, "Name cannot be empty", http.StatusBadRequest)
			return
		}
		u.Name = strings.TrimSpace(*req.Name)
	}
	for dst, src := range map[*string]*string{
		&u.Headline:     req.Headline,
		&u.Bio:          req.Bio,
		&u.Location:     req.Location,
		&u.Phone:        req.Phone,
		&u.ProfileImage: req.ProfileImage,
	} {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	if err := h.users.UpdateUser(ctx, u); err != nil {
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}
	checkMilestones(ctx, h.xp, userID)
	writeJSON(w, u, http.StatusOK)
}

// GetUser returns the full profile to the user or an admin, the public subset otherwise.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	callerID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	if u == nil || (!u.IsActive && !isAdmin(r)) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if callerID != id && !isAdmin(r) {
		writeJSON(w, u.Public(), http.StatusOK)
		return
	}
	p, err := h.fullProfile(r, u)
	if err != nil {
		http.Error(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, p, http.StatusOK)
}

// section wires list/create/update/delete for one profile section type.
type section[T any] struct {
	list     func(r *http.Request, userID int64) ([]T, error)
	create   func(r *http.Request, userID int64, v *T) (int64, error)
	update   func(r *http.Request, v *T) error
	remove   func(r *http.Request, userID, id int64) error
	validate func(v *T) error
	id       func(v *T) int64
	setID    func(v *T, id, userID int64)
}

func (s section[T]) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := s.list(r, userID)
	if err != nil {
		http.Error(w, "Failed to list items", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(items), http.StatusOK)
}

func (s section[T]) Create(h *UserHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		var v T
		if err := decodeJSON(r, &v); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if err := s.validate(&v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id, err := s.create(r, userID, &v)
		if err != nil {
			logger.Error("create profile item", slog.Int64("user_id", userID), slog.Any("err", err))
			http.Error(w, "Failed to create item", http.StatusInternalServerError)
			return
		}
		s.setID(&v, id, userID)
		checkMilestones(r.Context(), h.xp, userID)
		writeJSON(w, v, http.StatusCreated)
	}
}

// Update patches one item: fields missing from the body keep their stored values.
func (s section[T]) Update(h *UserHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			http.Error(w, "Invalid id", http.StatusBadRequest)
			return
		}
		items, err := s.list(r, userID)
		if err != nil {
			http.Error(w, "Failed to load items", http.StatusInternalServerError)
			return
		}
		idx := slices.IndexFunc(items, func(v T) bool { return s.id(&v) == id })
		if idx < 0 {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		v := items[idx]
		if err := decodeJSON(r, &v); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		s.setID(&v, id, userID)
		if err := s.validate(&v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = s.update(r, &v)
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("update profile item", slog.Int64("user_id", userID), slog.Int64("id", id), slog.Any("err", err))
			http.Error(w, "Failed to update item", http.StatusInternalServerError)
			return
		}
		checkMilestones(r.Context(), h.xp, userID)
		writeJSON(w, v, http.StatusOK)
	}
}

func (s section[T]) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}
	err := s.remove(r, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to delete item", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Skills() section[models.Skill] {
	return section[models.Skill]{
		list: func(r *http.Request, userID int64) ([]models.Skill, error) {
			return h.profile.ListSkills(r.Context(), userID)
		},
		create: func(r *http.Request, userID int64, v *models.Skill) (int64, error) {
			v.UserID = userID
			return h.profile.CreateSkill(r.Context(), v)
		},
		remove: func(r *http.Request, userID, id int64) error { return h.profile.DeleteSkill(r.Context(), userID, id) },
		validate: func(v *models.Skill) error {
			v.Name = strings.TrimSpace(v.Name)
			if v.Name == "" {
				return errors.New("name is required")
			}
			v.Level = strings.ToUpper(v.Level)
			if v.Level == "" {
				v.Level = "INTERMEDIATE"
			}
			if !slices.Contains(skillLevels, v.Level) {
				return errors.New("level must be BEGINNER, INTERMEDIATE, ADVANCED or EXPERT")
			}
			if v.Category == "" {
				v.Category = "Technical"
			}
			return nil
		},
		update: func(r *http.Request, v *models.Skill) error { return h.profile.UpdateSkill(r.Context(), v) },
		id:     func(v *models.Skill) int64 { return v.ID },
		setID:  func(v *models.Skill, id, userID int64) { v.ID, v.UserID = id, userID },
	}
}

func (h *UserHandler) Experiences() section[models.Experience] {
	return section[models.Experience]{
		list: func(r *http.Request, userID int64) ([]models.Experience, error) {
			return h.profile.ListExperiences(r.Context(), userID)
		},
		create: func(r *http.Request, userID int64, v *models.Experience) (int64, error) {
			v.UserID = userID
			return h.profile.CreateExperience(r.Context(), v)
		},
		remove: func(r *http.Request, userID, id int64) error {
			return h.profile.DeleteExperience(r.Context(), userID, id)
		},
		validate: func(v *models.Experience) error {
			if strings.TrimSpace(v.JobTitle) == "" || strings.TrimSpace(v.Company) == "" {
				return errors.New("jobTitle and company are required")
			}
			v.IsCurrent = strings.TrimSpace(v.EndDate) == ""
			v.StartDate = cvmap.NormalizeDate(v.StartDate)
			v.EndDate = cvmap.NormalizeDate(v.EndDate)
			return nil
		},
		update: func(r *http.Request, v *models.Experience) error { return h.profile.UpdateExperience(r.Context(), v) },
		id:     func(v *models.Experience) int64 { return v.ID },
		setID:  func(v *models.Experience, id, userID int64) { v.ID, v.UserID = id, userID },
	}
}

func (h *UserHandler) Educations() section[models.Education] {
	return section[models.Education]{
		list: func(r *http.Request, userID int64) ([]models.Education, error) {
			return h.profile.ListEducations(r.Context(), userID)
		},
		create: func(r *http.Request, userID int64, v *models.Education) (int64, error) {
			v.UserID = userID
			return h.profile.CreateEducation(r.Context(), v)
		},
		remove: func(r *http.Request, userID, id int64) error {
			return h.profile.DeleteEducation(r.Context(), userID, id)
		},
		validate: func(v *models.Education) error {
			if strings.TrimSpace(v.Institution) == "" {
				return errors.New("institution is required")
			}
			v.StartDate = cvmap.NormalizeDate(v.StartDate)
			v.EndDate = cvmap.NormalizeDate(v.EndDate)
			return nil
		},
		update: func(r *http.Request, v *models.Education) error { return h.profile.UpdateEducation(r.Context(), v) },
		id:     func(v *models.Education) int64 { return v.ID },
		setID:  func(v *models.Education, id, userID int64) { v.ID, v.UserID = id, userID },
	}
}

func (h *UserHandler) Projects() section[models.Project] {
	return section[models.Project]{
		list: func(r *http.Request, userID int64) ([]models.Project, error) {
			return h.profile.ListProjects(r.Context(), userID)
		},
		create: func(r *http.Request, userID int64, v *models.Project) (int64, error) {
			v.UserID = userID
			return h.profile.CreateProject(r.Context(), v)
		},
		remove: func(r *http.Request, userID, id int64) error { return h.profile.DeleteProject(r.Context(), userID, id) },
		validate: func(v *models.Project) error {
			if strings.TrimSpace(v.Name) == "" {
				return errors.New("name is required")
			}
			v.StartDate = cvmap.NormalizeDate(v.StartDate)
			v.EndDate = cvmap.NormalizeDate(v.EndDate)
			return nil
		},
		update: func(r *http.Request, v *models.Project) error { return h.profile.UpdateProject(r.Context(), v) },
		id:     func(v *models.Project) int64 { return v.ID },
		setID:  func(v *models.Project, id, userID int64) { v.ID, v.UserID = id, userID },
	}
}

func (h *UserHandler) Languages() section[models.Language] {
	return section[models.Language]{
		list: func(r *http.Request, userID int64) ([]models.Language, error) {
			return h.profile.ListLanguages(r.Context(), userID)
		},
		create: func(r *http.Request, userID int64, v *models.Language) (int64, error) {
			v.UserID = userID
			return h.profile.CreateLanguage(r.Context(), v)
		},
		remove: func(r *http.Request, userID, id int64) error {
			return h.profile.DeleteLanguage(r.Context(), userID, id)
		},
		validate: func(v *models.Language) error {
			v.Language = strings.TrimSpace(v.Language)
			if v.Language == "" {
				return errors.New("language is required")
			}
			v.Proficiency = cvmap.Proficiency(v.Proficiency)
			return nil
		},
		update: func(r *http.Request, v *models.Language) error { return h.profile.UpdateLanguage(r.Context(), v) },
		id:     func(v *models.Language) int64 { return v.ID },
		setID:  func(v *models.Language, id, userID int64) { v.ID, v.UserID = id, userID },
	}
}

func (h *UserHandler) SocialLinks() section[models.SocialLink] {
	return section[models.SocialLink]{
		list: func(r *http.Request, userID int64) ([]models.SocialLink, error) {
			return h.profile.ListSocialLinks(r.Context(), userID)
		},
		create: func(r *http.Request, userID int64, v *models.SocialLink) (int64, error) {
			v.UserID = userID
			return h.profile.CreateSocialLink(r.Context(), v)
		},
		remove: func(r *http.Request, userID, id int64) error {
			return h.profile.DeleteSocialLink(r.Context(), userID, id)
		},
		validate: func(v *models.SocialLink) error {
			v.URL = strings.TrimSpace(v.URL)
			if v.URL == "" {
				return errors.New("url is required")
			}
			v.Type = strings.ToUpper(strings.TrimSpace(v.Type))
			if v.Type == "" {
				v.Type = cvmap.SocialType(v.URL)
			}
			if !slices.Contains(socialLinkTypes, v.Type) {
				return errors.New("unknown social link type")
			}
			return nil
		},
		update: func(r *http.Request, v *models.SocialLink) error { return h.profile.UpdateSocialLink(r.Context(), v) },
		id:     func(v *models.SocialLink) int64 { return v.ID },
		setID:  func(v *models.SocialLink, id, userID int64) { v.ID, v.UserID = id, userID },
	}
}

func (h *UserHandler) Certifications() section[models.Certification] {
	return section[models.Certification]{
		list: func(r *http.Request, userID int64) ([]models.Certification, error) {
			return h.profile.ListCertifications(r.Context(), userID)
		},
		create: func(r *http.Request, userID int64, v *models.Certification) (int64, error) {
			v.UserID = userID
			return h.profile.CreateCertification(r.Context(), v)
		},
		remove: func(r *http.Request, userID, id int64) error {
			return h.profile.DeleteCertification(r.Context(), userID, id)
		},
		validate: func(v *models.Certification) error {
			v.Name = strings.TrimSpace(v.Name)
			if v.Name == "" {
				return errors.New("name is required")
			}
			v.IssueDate = cvmap.NormalizeDate(v.IssueDate)
			v.ExpiryDate = cvmap.NormalizeDate(v.ExpiryDate)
			if v.IssueDate != "" && v.ExpiryDate != "" && v.ExpiryDate < v.IssueDate {
				return errors.New("expiryDate must not precede issueDate")
			}
			return nil
		},
		update: func(r *http.Request, v *models.Certification) error {
			return h.profile.UpdateCertification(r.Context(), v)
		},
		id:    func(v *models.Certification) int64 { return v.ID },
		setID: func(v *models.Certification, id, userID int64) { v.ID, v.UserID = id, userID },
	}
}

func (h *UserHandler) Awards() section[models.Award] {
	return section[models.Award]{
		list: func(r *http.Request, userID int64) ([]models.Award, error) {
			return h.profile.ListAwards(r.Context(), userID)
		},
		create: func(r *http.Request, userID int64, v *models.Award) (int64, error) {
			v.UserID = userID
			return h.profile.CreateAward(r.Context(), v)
		},
		remove: func(r *http.Request, userID, id int64) error { return h.profile.DeleteAward(r.Context(), userID, id) },
		validate: func(v *models.Award) error {
			v.Title = strings.TrimSpace(v.Title)
			if v.Title == "" {
				return errors.New("title is required")
			}
			v.Date = cvmap.NormalizeDate(v.Date)
			return nil
		},
		update: func(r *http.Request, v *models.Award) error { return h.profile.UpdateAward(r.Context(), v) },
		id:     func(v *models.Award) int64 { return v.ID },
		setID:  func(v *models.Award, id, userID int64) { v.ID, v.UserID = id, userID },
	}
}

func (h *UserHandler) VolunteerWork() section[models.VolunteerWork] {
	return section[models.VolunteerWork]{
		list: func(r *http.Request, userID int64) ([]models.VolunteerWork, error) {
			return h.profile.ListVolunteerWork(r.Context(), userID)
		},
		create: func(r *http.Request, userID int64, v *models.VolunteerWork) (int64, error) {
			v.UserID = userID
			return h.profile.CreateVolunteerWork(r.Context(), v)
		},
		remove: func(r *http.Request, userID, id int64) error {
			return h.profile.DeleteVolunteerWork(r.Context(), userID, id)
		},
		validate: func(v *models.VolunteerWork) error {
			if strings.TrimSpace(v.Role) == "" || strings.TrimSpace(v.Organization) == "" {
				return errors.New("role and organization are required")
			}
			v.IsCurrent = strings.TrimSpace(v.EndDate) == ""
			v.StartDate = cvmap.NormalizeDate(v.StartDate)
			v.EndDate = cvmap.NormalizeDate(v.EndDate)
			return nil
		},
		update: func(r *http.Request, v *models.VolunteerWork) error {
			return h.profile.UpdateVolunteerWork(r.Context(), v)
		},
		id:    func(v *models.VolunteerWork) int64 { return v.ID },
		setID: func(v *models.VolunteerWork, id, userID int64) { v.ID, v.UserID = id, userID },
	}
}

type importCVRequest struct {
	CVData json.RawMessage `json:"cvData"`
}

type importCVResponse struct {
	Skills      int `json:"skills"`
	Experiences int `json:"experiences"`
	Educations  int `json:"educations"`
	Projects    int `json:"projects"`
	Languages   int `json:"languages"`
	SocialLinks int `json:"socialLinks"`

	Certifications int `json:"certifications"`
	Awards         int `json:"awards"`
	VolunteerWork  int `json:"volunteerWork"`
}

// ImportCV replaces the caller's profile sections with rows mapped from parsed CV JSON.
func (h *UserHandler) ImportCV(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req importCVRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	if h.schemas != nil && len(req.CVData) > 0 {
		if err := h.schemas.Validate(ctx, schema.CV, req.CVData); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	cv, err := cvmap.Parse(req.CVData)
	if err != nil {
		http.Error(w, "cvData must be a parsed CV object", http.StatusBadRequest)
		return
	}

	u, err := h.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	sections := cvmap.Map(cv)
	if err := h.profile.ReplaceProfileSections(ctx, userID, sections); err != nil {
		logger.Error("import cv", slog.Int64("user_id", userID), slog.Any("err", err))
		http.Error(w, "Failed to import CV", http.StatusInternalServerError)
		return
	}
	if err := h.users.SetCVParsed(ctx, userID, req.CVData); err != nil {
		logger.Warn("store parsed cv", slog.Int64("user_id", userID), slog.Any("err", err))
	}
	if cvmap.ApplyPersonalInfo(u, cv) {
		if err := h.users.UpdateUser(ctx, u); err != nil {
			logger.Warn("apply cv personal info", slog.Int64("user_id", userID), slog.Any("err", err))
		}
	}
	checkMilestones(ctx, h.xp, userID)

	writeJSON(w, importCVResponse{
		Skills:      len(sections.Skills),
		Experiences: len(sections.Experiences),
		Educations:  len(sections.Educations),
		Projects:    len(sections.Projects),
		Languages:   len(sections.Languages),
		SocialLinks: len(sections.SocialLinks),

		Certifications: len(sections.Certifications),
		Awards:         len(sections.Awards),
		VolunteerWork:  len(sections.VolunteerWork),
	}, http.StatusOK)
}

func (h *UserHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pageParams(r, 20, 100)
	users, total, err := h.users.ListUsers(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}
	writeJSON(w, paged(orEmpty(users), total, page, limit), http.StatusOK)
}

type adminUpdateRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

func (h *UserHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	var req adminUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	if u == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if req.Role != nil {
		role := strings.ToUpper(*req.Role)
		if role != models.RoleUser && role != models.RoleBusiness && role != models.RoleAdmin {
			http.Error(w, "Invalid role", http.StatusBadRequest)
			return
		}
		u.Role = role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if err := h.users.UpdateUser(r.Context(), u); err != nil {
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}
	logger.Info("user updated by admin", slog.Int64("user_id", id), slog.String("role", u.Role), slog.Bool("active", u.IsActive))
	writeJSON(w, u, http.StatusOK)
}
