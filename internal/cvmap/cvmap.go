// Package cvmap turns parsed CV JSON into profile rows.
package cvmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garnizeh/careerhub/pkg/models"
)

var ErrEmptyCV = errors.New("cv data is empty")

// CV is the JSON layout produced by the CV parsing service.
type CV struct {
	PersonalInformation PersonalInformation  `json:"personalInformation"`
	Education           []EducationEntry     `json:"education"`
	WorkExperience      []WorkEntry          `json:"workExperience"`
	Projects            []ProjectEntry       `json:"projects"`
	Skills              []Skill              `json:"skills"`
	Languages           []LanguageEntry      `json:"languages"`
	Certifications      []CertificationEntry `json:"certifications"`
	Awards              []AwardEntry         `json:"awards"`
	VolunteerExperience []VolunteerEntry     `json:"volunteerExperience"`
}

type PersonalInformation struct {
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Location string   `json:"location"`
	Links    []string `json:"links"`
	Summary  string   `json:"summary"`
}

type EducationEntry struct {
	Degree      string `json:"degree"`
	Major       string `json:"major"`
	Institution string `json:"institution"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	GPA         string `json:"gpa"`
}

type WorkEntry struct {
	JobTitle    string `json:"jobTitle"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description Lines  `json:"description"`
}

type ProjectEntry struct {
	ProjectName string   `json:"projectName"`
	Description string   `json:"description"`
	Role        string   `json:"role"`
	Link        string   `json:"link"`
	Tags        []string `json:"tags"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
}

type LanguageEntry struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency"`
}

type CertificationEntry struct {
	CertificationName   string `json:"certificationName"`
	Name                string `json:"name"`
	IssuingOrganization string `json:"issuingOrganization"`
	Issuer              string `json:"issuer"`
	DateObtained        string `json:"dateObtained"`
	ExpirationDate      string `json:"expirationDate"`
	CredentialID        string `json:"credentialId"`
	CredentialURL       string `json:"credentialUrl"`
}

type AwardEntry struct {
	AwardName           string `json:"awardName"`
	IssuingOrganization string `json:"issuingOrganization"`
	DateReceived        string `json:"dateReceived"`
	Description         string `json:"description"`
}

type VolunteerEntry struct {
	Role         string `json:"role"`
	Organization string `json:"organization"`
	Location     string `json:"location"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Description  Lines  `json:"description"`
}

// Lines accepts either a JSON string or an array of strings.
type Lines []string

func (l *Lines) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one != "" {
			*l = Lines{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("description: %w", err)
	}
	*l = many
	return nil
}

// Skill accepts a plain name or an object with a name field.
type Skill string

func (s *Skill) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*s = Skill(name)
		return nil
	}
	var obj struct {
		Name  string `json:"name"`
		Skill string `json:"skill"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("skill: %w", err)
	}
	if obj.Name != "" {
		*s = Skill(obj.Name)
	} else {
		*s = Skill(obj.Skill)
	}
	return nil
}

// Parse decodes raw CV JSON.
func Parse(raw []byte) (*CV, error) {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return nil, ErrEmptyCV
	}
	var cv CV
	if err := json.Unmarshal(raw, &cv); err != nil {
		return nil, fmt.Errorf("decode cv: %w", err)
	}
	return &cv, nil
}

// Map converts a parsed CV into profile sections. Rows carry no user id.
func Map(cv *CV) *models.ProfileSections {
	out := &models.ProfileSections{}
	if cv == nil {
		return out
	}

	for i, s := range cv.Skills {
		name := strings.TrimSpace(string(s))
		if name == "" {
			continue
		}
		out.Skills = append(out.Skills, models.Skill{
			Name:      name,
			Level:     "ADVANCED",
			Category:  skillCategory(name),
			SortOrder: i,
		})
	}

	for i, w := range cv.WorkExperience {
		out.Experiences = append(out.Experiences, models.Experience{
			JobTitle:    w.JobTitle,
			Company:     w.Company,
			Location:    w.Location,
			StartDate:   NormalizeDate(w.StartDate),
			EndDate:     NormalizeDate(w.EndDate),
			IsCurrent:   strings.TrimSpace(w.EndDate) == "",
			Description: strings.Join(w.Description, "\n"),
			SortOrder:   i,
		})
	}

	for i, e := range cv.Education {
		out.Educations = append(out.Educations, models.Education{
			Degree:       e.Degree,
			FieldOfStudy: e.Major,
			Institution:  e.Institution,
			Location:     e.Location,
			StartDate:    NormalizeDate(e.StartDate),
			EndDate:      NormalizeDate(e.EndDate),
			GPA:          e.GPA,
			SortOrder:    i,
		})
	}

	for i, p := range cv.Projects {
		out.Projects = append(out.Projects, models.Project{
			Name:         p.ProjectName,
			Description:  p.Description,
			Role:         p.Role,
			URL:          p.Link,
			Technologies: strings.Join(p.Tags, ", "),
			StartDate:    NormalizeDate(p.StartDate),
			EndDate:      NormalizeDate(p.EndDate),
			SortOrder:    i,
		})
	}

	for i, l := range cv.Languages {
		out.Languages = append(out.Languages, models.Language{
			Language:    l.Language,
			Proficiency: Proficiency(l.Proficiency),
			SortOrder:   i,
		})
	}

	for i, c := range cv.Certifications {
		name := firstNonEmpty(c.CertificationName, c.Name)
		if name == "" {
			continue
		}
		out.Certifications = append(out.Certifications, models.Certification{
			Name:          name,
			Issuer:        firstNonEmpty(c.IssuingOrganization, c.Issuer, "Unknown"),
			IssueDate:     NormalizeDate(c.DateObtained),
			ExpiryDate:    NormalizeDate(c.ExpirationDate),
			CredentialID:  c.CredentialID,
			CredentialURL: c.CredentialURL,
			SortOrder:     i,
		})
	}

	for i, a := range cv.Awards {
		if strings.TrimSpace(a.AwardName) == "" {
			continue
		}
		out.Awards = append(out.Awards, models.Award{
			Title:       strings.TrimSpace(a.AwardName),
			Issuer:      a.IssuingOrganization,
			Date:        NormalizeDate(a.DateReceived),
			Description: a.Description,
			SortOrder:   i,
		})
	}

	for i, v := range cv.VolunteerExperience {
		out.VolunteerWork = append(out.VolunteerWork, models.VolunteerWork{
			Role:         v.Role,
			Organization: v.Organization,
			Location:     v.Location,
			StartDate:    NormalizeDate(v.StartDate),
			EndDate:      NormalizeDate(v.EndDate),
			IsCurrent:    strings.TrimSpace(v.EndDate) == "",
			Description:  strings.Join(v.Description, "\n"),
			SortOrder:    i,
		})
	}

	for i, link := range cv.PersonalInformation.Links {
		out.SocialLinks = append(out.SocialLinks, models.SocialLink{
			Type:      SocialType(link),
			URL:       link,
			IsPrimary: i == 0,
			SortOrder: i,
		})
	}

	return out
}

// ApplyPersonalInfo fills empty user fields from the CV header and reports
// whether anything changed.
func ApplyPersonalInfo(u *models.User, cv *CV) bool {
	if u == nil || cv == nil {
		return false
	}
	pi := cv.PersonalInformation
	changed := false
	set := func(dst *string, v string) {
		if *dst == "" && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
			changed = true
		}
	}
	set(&u.Phone, pi.Phone)
	set(&u.Location, pi.Location)
	set(&u.Bio, pi.Summary)
	if len(cv.WorkExperience) > 0 {
		set(&u.Headline, cv.WorkExperience[0].JobTitle)
	}
	return changed
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func skillCategory(name string) string {
	if strings.Contains(name, "AWS") || strings.Contains(name, "Docker") || strings.Contains(name, "Kubernetes") {
		return "Cloud/DevOps"
	}
	return "Technical"
}

// Proficiency maps free-text language levels onto the stored enum.
func Proficiency(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "native":
		return "NATIVE"
	case "fluent":
		return "FLUENT"
	case "professional working", "professional":
		return "PROFESSIONAL"
	case "limited":
		return "LIMITED"
	case "basic":
		return "BASIC"
	default:
		return "PROFESSIONAL"
	}
}

// SocialType classifies a profile link by its host.
func SocialType(link string) string {
	l := strings.ToLower(link)
	switch {
	case strings.Contains(l, "linkedin"):
		return "LINKEDIN"
	case strings.Contains(l, "github"):
		return "GITHUB"
	case strings.Contains(l, "portfolio"), strings.Contains(l, ".dev"):
		return "PORTFOLIO"
	case strings.Contains(l, "twitter"):
		return "TWITTER"
	case strings.Contains(l, "youtube"):
		return "YOUTUBE"
	case strings.Contains(l, "instagram"):
		return "INSTAGRAM"
	case strings.Contains(l, "facebook"):
		return "FACEBOOK"
	default:
		return "WEBSITE"
	}
}

var dateLayouts = []string{"2006-01-02", "2006-01", "2006", time.RFC3339}

// NormalizeDate returns the date as YYYY-MM-DD, or "" when it cannot be parsed.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
