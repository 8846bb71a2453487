package cvmap

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garnizeh/careerhub/pkg/models"
)

var sectionAliases = map[string]string{
	"PERSONAL_INFO": models.SectionProfile,
	"LINKS":         models.SectionCustom,
	"COURSES":       models.SectionCustom,
	"AWARDS":        models.SectionCustom,
	"PUBLICATIONS":  models.SectionCustom,
	"VOLUNTEER":     models.SectionCustom,
	"REFERENCES":    models.SectionCustom,
}

var sectionTypes = []string{
	models.SectionProfile, models.SectionSummary, models.SectionExperience, models.SectionEducation, models.SectionSkills,
	models.SectionCertifications, models.SectionProjects, models.SectionLanguages, models.SectionCustom,
}

// SectionType canonicalizes a client supplied section type.
func SectionType(t string) (string, error) {
	t = strings.ToUpper(strings.TrimSpace(t))
	for _, known := range sectionTypes {
		if t == known {
			return t, nil
		}
	}
	if alias, ok := sectionAliases[t]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("unknown section type %q", t)
}

type profileContent struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Location string   `json:"location"`
	Website  string   `json:"website"`
	Links    []string `json:"links"`
}

type experienceItem struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

type skillCategoryContent struct {
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

type entries[T any] struct {
	Entries []T `json:"entries"`
}

// Sections builds the initial builder sections for a resume from its CV
// data. Empty parts of the CV produce no section.
func Sections(cv *CV) []models.ResumeSection {
	var out []models.ResumeSection
	add := func(typ, title string, content any) {
		b, err := json.Marshal(content)
		if err != nil {
			return
		}
		out = append(out, models.ResumeSection{Type: typ, Title: title, Content: b, SortOrder: len(out)})
	}

	pi := cv.PersonalInformation
	if pi.FullName != "" || pi.Email != "" || pi.Phone != "" || pi.Location != "" || len(pi.Links) > 0 {
		p := profileContent{Name: pi.FullName, Email: pi.Email, Phone: pi.Phone, Location: pi.Location, Links: orNone(pi.Links)}
		for _, l := range pi.Links {
			if SocialType(l) == "WEBSITE" || SocialType(l) == "PORTFOLIO" {
				p.Website = l
				break
			}
		}
		add(models.SectionProfile, "Profile", p)
	}
	if s := strings.TrimSpace(pi.Summary); s != "" {
		add(models.SectionSummary, "Summary", map[string]string{"content": s})
	}

	if len(cv.WorkExperience) > 0 {
		items := make([]experienceItem, 0, len(cv.WorkExperience))
		for _, w := range cv.WorkExperience {
			items = append(items, experienceItem{
				Company:     w.Company,
				Position:    w.JobTitle,
				Location:    w.Location,
				StartDate:   w.StartDate,
				EndDate:     w.EndDate,
				Current:     strings.TrimSpace(w.EndDate) == "",
				Description: strings.Join(w.Description, "\n"),
			})
		}
		add(models.SectionExperience, "Experience", entries[experienceItem]{items})
	}
	if len(cv.Education) > 0 {
		add(models.SectionEducation, "Education", entries[EducationEntry]{cv.Education})
	}
	if len(cv.Skills) > 0 {
		names := make([]string, 0, len(cv.Skills))
		for _, sk := range cv.Skills {
			if n := strings.TrimSpace(string(sk)); n != "" {
				names = append(names, n)
			}
		}
		add(models.SectionSkills, "Skills", map[string][]skillCategoryContent{
			"categories": {{Name: "Technical Skills", Skills: names}},
		})
	}
	if len(cv.Projects) > 0 {
		add(models.SectionProjects, "Projects", entries[ProjectEntry]{cv.Projects})
	}
	if len(cv.Languages) > 0 {
		add(models.SectionLanguages, "Languages", entries[LanguageEntry]{cv.Languages})
	}
	if len(cv.Certifications) > 0 {
		add(models.SectionCertifications, "Certifications", entries[CertificationEntry]{cv.Certifications})
	}

	return out
}

func orNone(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
