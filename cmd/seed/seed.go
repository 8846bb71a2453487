package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/garnizeh/careerhub/api"
	"github.com/garnizeh/careerhub/internal/cvmap"
	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

type demoUser struct {
	Name     string         `yaml:"name"`
	Email    string         `yaml:"email"`
	Password string         `yaml:"password"`
	Role     string         `yaml:"role"`
	Headline string         `yaml:"headline"`
	Bio      string         `yaml:"bio"`
	Location string         `yaml:"location"`
	CV       map[string]any `yaml:"cv"`
}

type demoCompany struct {
	Owner       string   `yaml:"owner"`
	Name        string   `yaml:"name"`
	Industry    string   `yaml:"industry"`
	Tagline     string   `yaml:"tagline"`
	Website     string   `yaml:"website"`
	CompanySize string   `yaml:"companySize"`
	Locations   []string `yaml:"locations"`
	Benefits    []string `yaml:"benefits"`
}

type demoJob struct {
	Title           string `yaml:"title"`
	Type            string `yaml:"type"`
	ExperienceLevel string `yaml:"experienceLevel"`
	Location        string `yaml:"location"`
	Remote          bool   `yaml:"remote"`
	SalaryMin       *int64 `yaml:"salaryMin"`
	SalaryMax       *int64 `yaml:"salaryMax"`
	Currency        string `yaml:"currency"`
	Description     string `yaml:"description"`
	Requirements    string `yaml:"requirements"`
}

// Demo is the content of a demo seed file.
type Demo struct {
	Users   []demoUser   `yaml:"users"`
	Company *demoCompany `yaml:"company"`
	Jobs    []demoJob    `yaml:"jobs"`
}

func parseDemo(b []byte) (*Demo, error) {
	var d Demo
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode demo seed: %w", err)
	}
	return &d, nil
}

// Summary counts what a run created. Existing rows are left untouched.
type Summary struct {
	Users    int
	Profiles int
	Company  bool
	Jobs     int
}

type seeder struct {
	users     repository.UserRepo
	profile   repository.ProfileRepo
	companies repository.CompanyRepo
	jobs      repository.JobRepo
	cost      int
	logger    *slog.Logger
}

func (s *seeder) run(ctx context.Context, d *Demo) (Summary, error) {
	var sum Summary
	ids := map[string]int64{}
	for _, du := range d.Users {
		id, created, err := s.user(ctx, du)
		if err != nil {
			return sum, err
		}
		ids[strings.ToLower(du.Email)] = id
		if created {
			sum.Users++
		}
		if len(du.CV) == 0 {
			continue
		}
		if err := s.importCV(ctx, id, du.CV); err != nil {
			return sum, fmt.Errorf("import cv for %s: %w", du.Email, err)
		}
		sum.Profiles++
	}

	if d.Company == nil {
		return sum, nil
	}
	ownerID, ok := ids[strings.ToLower(d.Company.Owner)]
	if !ok {
		return sum, fmt.Errorf("company owner %s is not a seeded user", d.Company.Owner)
	}
	c, created, err := s.company(ctx, ownerID, d.Company)
	if err != nil {
		return sum, err
	}
	sum.Company = created

	n, err := s.postJobs(ctx, c, ownerID, d.Jobs)
	sum.Jobs = n
	return sum, err
}

func (s *seeder) user(ctx context.Context, du demoUser) (int64, bool, error) {
	existing, err := s.users.GetByEmail(ctx, du.Email)
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s: %w", du.Email, err)
	}
	if existing != nil {
		return existing.ID, false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(du.Password), s.cost)
	if err != nil {
		return 0, false, fmt.Errorf("hash password for %s: %w", du.Email, err)
	}
	role := strings.ToUpper(du.Role)
	if role == "" {
		role = models.RoleUser
	}
	u := &models.User{
		Name:         du.Name,
		Email:        du.Email,
		PasswordHash: string(hash),
		Role:         role,
		Headline:     du.Headline,
		Bio:          du.Bio,
		Location:     du.Location,
	}
	id, err := s.users.CreateUser(ctx, u)
	if err != nil {
		return 0, false, fmt.Errorf("create %s: %w", du.Email, err)
	}
	s.logger.Info("demo user created", slog.String("email", du.Email), slog.String("role", role))
	return id, true, nil
}

func (s *seeder) importCV(ctx context.Context, userID int64, cv map[string]any) error {
	raw, err := json.Marshal(cv)
	if err != nil {
		return err
	}
	parsed, err := cvmap.Parse(raw)
	if err != nil {
		return err
	}
	if err := s.profile.ReplaceProfileSections(ctx, userID, cvmap.Map(parsed)); err != nil {
		return err
	}
	return s.users.SetCVParsed(ctx, userID, raw)
}

func (s *seeder) company(ctx context.Context, ownerID int64, dc *demoCompany) (*models.Company, bool, error) {
	existing, err := s.companies.GetCompanyByOwner(ctx, ownerID)
	if err != nil {
		return nil, false, fmt.Errorf("lookup company: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}
	slug := api.Slugify(dc.Name)
	for i := 2; ; i++ {
		taken, err := s.companies.SlugExists(ctx, slug)
		if err != nil {
			return nil, false, fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			break
		}
		slug = fmt.Sprintf("%s-%d", api.Slugify(dc.Name), i)
	}
	c := &models.Company{
		OwnerID:     &ownerID,
		Name:        dc.Name,
		Slug:        slug,
		Industry:    dc.Industry,
		Tagline:     dc.Tagline,
		Website:     dc.Website,
		CompanySize: dc.CompanySize,
		Locations:   dc.Locations,
		Benefits:    dc.Benefits,
	}
	id, err := s.companies.CreateCompany(ctx, c)
	if err != nil {
		return nil, false, fmt.Errorf("create company: %w", err)
	}
	c.ID = id
	s.logger.Info("demo company created", slog.String("slug", slug))
	return c, true, nil
}

func (s *seeder) postJobs(ctx context.Context, c *models.Company, ownerID int64, jobs []demoJob) (int, error) {
	existing, _, err := s.jobs.ListJobs(ctx, models.JobFilter{CompanyID: c.ID, Limit: 100})
	if err != nil {
		return 0, fmt.Errorf("list company jobs: %w", err)
	}
	titles := map[string]bool{}
	for _, j := range existing {
		titles[j.Title] = true
	}

	now := time.Now().UnixMilli()
	created := 0
	for _, dj := range jobs {
		if titles[dj.Title] {
			continue
		}
		j := &models.Job{
			CompanyID:       &c.ID,
			PostedBy:        &ownerID,
			Title:           dj.Title,
			CompanyName:     c.Name,
			Location:        dj.Location,
			Type:            dj.Type,
			Description:     dj.Description,
			Requirements:    dj.Requirements,
			SalaryMin:       dj.SalaryMin,
			SalaryMax:       dj.SalaryMax,
			Currency:        dj.Currency,
			ExperienceLevel: dj.ExperienceLevel,
			Remote:          dj.Remote,
			Status:          models.JobStatusOpen,
			PostedAt:        now,
		}
		if j.Type == "" {
			j.Type = "FULL_TIME"
		}
		if j.Currency == "" {
			j.Currency = "USD"
		}
		if _, err := s.jobs.CreateJob(ctx, j); err != nil {
			return created, fmt.Errorf("create job %q: %w", dj.Title, err)
		}
		created++
	}
	return created, nil
}
