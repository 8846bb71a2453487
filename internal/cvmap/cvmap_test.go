package cvmap_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/garnizeh/careerhub/internal/cvmap"
	"github.com/garnizeh/careerhub/pkg/models"
)

const sampleCV = `{
  "personalInformation": {
    "fullName": "Admin User",
    "phone": "+15550100",
    "location": "San Francisco, CA",
    "links": ["https://linkedin.com/in/adminuser", "https://github.com/adminuser", "https://me.dev"],
    "summary": "Experienced system administrator."
  },
  "education": [
    {"degree": "MSc", "major": "Computer Science", "institution": "Stanford", "startDate": "2010-09-01", "endDate": "2012-06", "gpa": "3.8"}
  ],
  "workExperience": [
    {"jobTitle": "Senior SysAdmin", "company": "Tech Solutions", "startDate": "2018-03-01", "endDate": null,
     "description": ["Managed infrastructure", "Led a team of 5"]},
    {"jobTitle": "IT Administrator", "company": "Global Systems", "startDate": "2012", "endDate": "2018-02-28",
     "description": "Maintained networks"}
  ],
  "projects": [
    {"projectName": "Cloud Migration", "role": "Lead", "link": "https://github.com/a/b", "tags": ["AWS", "Terraform"], "startDate": "2022-01-01", "endDate": "soon"}
  ],
  "skills": ["Python", "AWS Lambda", {"name": "Docker"}, ""],
  "languages": [
    {"language": "English", "proficiency": "Native"},
    {"language": "Spanish", "proficiency": "Professional Working"},
    {"language": "French", "proficiency": "conversational"}
  ],
  "certifications": [
    {"certificationName": "AWS Certified Solutions Architect", "dateObtained": "2021-05-15", "expirationDate": "2024-05-15"},
    {"name": "CKA", "issuer": "CNCF", "dateObtained": "2020-11-20"},
    {"certificationName": ""}
  ],
  "awards": [
    {"awardName": "IT Excellence Award", "issuingOrganization": "Tech Solutions Inc.", "dateReceived": "2022-12-01", "description": "Infrastructure modernization"}
  ],
  "volunteerExperience": [
    {"role": "Technical Mentor", "organization": "Code for Good", "location": "San Francisco, CA", "startDate": "2019-01-01", "endDate": "", "description": "Mentor developers"},
    {"role": "Organizer", "organization": "Meetup", "startDate": "2015", "endDate": "2017-06"}
  ]
}`

func TestMap_SampleCV(t *testing.T) {
	cv, err := cvmap.Parse([]byte(sampleCV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := cvmap.Map(cv)

	if len(s.Skills) != 3 {
		t.Fatalf("expected 3 skills (blank dropped), got %d", len(s.Skills))
	}
	if s.Skills[0].Category != "Technical" || s.Skills[1].Category != "Cloud/DevOps" || s.Skills[2].Category != "Cloud/DevOps" {
		t.Fatalf("unexpected categories %#v", s.Skills)
	}
	if s.Skills[2].SortOrder != 2 || s.Skills[0].Level != "ADVANCED" {
		t.Fatalf("unexpected skill order/level %#v", s.Skills[2])
	}

	if len(s.Experiences) != 2 {
		t.Fatalf("expected 2 experiences, got %d", len(s.Experiences))
	}
	if !s.Experiences[0].IsCurrent || s.Experiences[0].Description != "Managed infrastructure\nLed a team of 5" {
		t.Fatalf("unexpected current experience %#v", s.Experiences[0])
	}
	if s.Experiences[1].IsCurrent || s.Experiences[1].StartDate != "2012-01-01" || s.Experiences[1].Description != "Maintained networks" {
		t.Fatalf("unexpected past experience %#v", s.Experiences[1])
	}

	if e := s.Educations[0]; e.FieldOfStudy != "Computer Science" || e.EndDate != "2012-06-01" || e.GPA != "3.8" {
		t.Fatalf("unexpected education %#v", e)
	}

	if p := s.Projects[0]; p.Technologies != "AWS, Terraform" || p.URL != "https://github.com/a/b" || p.EndDate != "" {
		t.Fatalf("unexpected project %#v", p)
	}

	wantLangs := []string{"NATIVE", "PROFESSIONAL", "PROFESSIONAL"}
	for i, want := range wantLangs {
		if s.Languages[i].Proficiency != want {
			t.Fatalf("language %d: expected %s got %s", i, want, s.Languages[i].Proficiency)
		}
	}

	if len(s.SocialLinks) != 3 || !s.SocialLinks[0].IsPrimary || s.SocialLinks[1].IsPrimary {
		t.Fatalf("unexpected social links %#v", s.SocialLinks)
	}
	if s.SocialLinks[2].Type != "PORTFOLIO" {
		t.Fatalf("expected .dev link to be a portfolio, got %s", s.SocialLinks[2].Type)
	}

	if len(s.Certifications) != 2 {
		t.Fatalf("expected 2 certifications (unnamed dropped), got %#v", s.Certifications)
	}
	if c := s.Certifications[0]; c.Issuer != "Unknown" || c.IssueDate != "2021-05-15" || c.ExpiryDate != "2024-05-15" {
		t.Fatalf("unexpected certification %#v", c)
	}
	if c := s.Certifications[1]; c.Name != "CKA" || c.Issuer != "CNCF" || c.ExpiryDate != "" {
		t.Fatalf("unexpected certification %#v", c)
	}

	if len(s.Awards) != 1 || s.Awards[0].Title != "IT Excellence Award" || s.Awards[0].Date != "2022-12-01" || s.Awards[0].Issuer != "Tech Solutions Inc." {
		t.Fatalf("unexpected awards %#v", s.Awards)
	}

	if len(s.VolunteerWork) != 2 {
		t.Fatalf("expected 2 volunteer entries, got %d", len(s.VolunteerWork))
	}
	if v := s.VolunteerWork[0]; !v.IsCurrent || v.Description != "Mentor developers" || v.Location != "San Francisco, CA" {
		t.Fatalf("unexpected volunteer entry %#v", v)
	}
	if v := s.VolunteerWork[1]; v.IsCurrent || v.EndDate != "2017-06-01" || v.StartDate != "2015-01-01" {
		t.Fatalf("unexpected volunteer entry %#v", v)
	}
}

func TestMap_CurrentRole(t *testing.T) {
	tests := []struct {
		name        string
		endDate     string
		wantEnd     string
		wantCurrent bool
	}{
		{name: "missing end date", endDate: "", wantEnd: "", wantCurrent: true},
		{name: "blank end date", endDate: "   ", wantEnd: "", wantCurrent: true},
		{name: "parsed end date", endDate: "2020-06", wantEnd: "2020-06-01", wantCurrent: false},
		{name: "unparseable end date", endDate: "June 2020", wantEnd: "", wantCurrent: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := &cvmap.CV{
				WorkExperience:      []cvmap.WorkEntry{{JobTitle: "Engineer", Company: "Acme", EndDate: tt.endDate}},
				VolunteerExperience: []cvmap.VolunteerEntry{{Role: "Mentor", EndDate: tt.endDate}},
			}
			s := cvmap.Map(cv)
			if e := s.Experiences[0]; e.EndDate != tt.wantEnd || e.IsCurrent != tt.wantCurrent {
				t.Fatalf("experience: endDate=%q isCurrent=%v, want %q %v", e.EndDate, e.IsCurrent, tt.wantEnd, tt.wantCurrent)
			}
			if v := s.VolunteerWork[0]; v.IsCurrent != tt.wantCurrent {
				t.Fatalf("volunteer: isCurrent=%v, want %v", v.IsCurrent, tt.wantCurrent)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, in := range []string{"", "  ", "null"} {
		if _, err := cvmap.Parse([]byte(in)); !errors.Is(err, cvmap.ErrEmptyCV) {
			t.Fatalf("Parse(%q): expected ErrEmptyCV, got %v", in, err)
		}
	}
	if _, err := cvmap.Parse([]byte(`{"skills": 5}`)); err == nil {
		t.Fatalf("expected error for malformed skills")
	}
}

func TestSocialType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.linkedin.com/in/x", "LINKEDIN"},
		{"https://github.com/x", "GITHUB"},
		{"https://x.dev", "PORTFOLIO"},
		{"https://myportfolio.io", "PORTFOLIO"},
		{"https://twitter.com/x", "TWITTER"},
		{"https://youtube.com/@x", "YOUTUBE"},
		{"https://instagram.com/x", "INSTAGRAM"},
		{"https://facebook.com/x", "FACEBOOK"},
		{"https://example.com", "WEBSITE"},
	}
	for _, tt := range tests {
		if got := cvmap.SocialType(tt.in); got != tt.want {
			t.Fatalf("SocialType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestProficiency(t *testing.T) {
	tests := map[string]string{
		"Native": "NATIVE", "FLUENT": "FLUENT", "professional": "PROFESSIONAL",
		"Limited": "LIMITED", "basic": "BASIC", "": "PROFESSIONAL",
	}
	for in, want := range tests {
		if got := cvmap.Proficiency(in); got != want {
			t.Fatalf("Proficiency(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := map[string]string{
		"2020-05-17":           "2020-05-17",
		"2020-05":              "2020-05-01",
		"2020":                 "2020-01-01",
		"2020-05-17T10:00:00Z": "2020-05-17",
		"present":              "",
		"":                     "",
	}
	for in, want := range tests {
		if got := cvmap.NormalizeDate(in); got != want {
			t.Fatalf("NormalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyPersonalInfo(t *testing.T) {
	cv, _ := cvmap.Parse([]byte(sampleCV))
	u := &models.User{Phone: "keep"}
	if !cvmap.ApplyPersonalInfo(u, cv) {
		t.Fatalf("expected changes")
	}
	if u.Phone != "keep" || u.Location != "San Francisco, CA" || u.Bio == "" || u.Headline != "Senior SysAdmin" {
		t.Fatalf("unexpected user %#v", u)
	}
	if cvmap.ApplyPersonalInfo(u, cv) {
		t.Fatalf("second apply should not change anything")
	}
}

func TestSections_SampleCV(t *testing.T) {
	cv, err := cvmap.Parse([]byte(sampleCV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	secs := cvmap.Sections(cv)

	want := []string{
		models.SectionProfile, models.SectionSummary, models.SectionExperience, models.SectionEducation,
		models.SectionSkills, models.SectionProjects, models.SectionLanguages, models.SectionCertifications,
	}
	if len(secs) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(secs))
	}
	for i, typ := range want {
		if secs[i].Type != typ || secs[i].SortOrder != i {
			t.Fatalf("section %d: got %s/%d, want %s/%d", i, secs[i].Type, secs[i].SortOrder, typ, i)
		}
	}

	var profile struct {
		Name    string   `json:"name"`
		Website string   `json:"website"`
		Links   []string `json:"links"`
	}
	if err := json.Unmarshal(secs[0].Content, &profile); err != nil {
		t.Fatalf("profile content: %v", err)
	}
	if profile.Name != "Admin User" || profile.Website != "https://me.dev" || len(profile.Links) != 3 {
		t.Fatalf("unexpected profile content: %+v", profile)
	}

	var exp struct {
		Entries []struct {
			Position    string `json:"position"`
			Current     bool   `json:"current"`
			Description string `json:"description"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(secs[2].Content, &exp); err != nil {
		t.Fatalf("experience content: %v", err)
	}
	if len(exp.Entries) != 2 || !exp.Entries[0].Current || exp.Entries[1].Current {
		t.Fatalf("unexpected experience entries: %+v", exp.Entries)
	}
	if exp.Entries[0].Description != "Managed infrastructure\nLed a team of 5" {
		t.Fatalf("description not joined: %q", exp.Entries[0].Description)
	}

	var skills struct {
		Categories []struct {
			Name   string   `json:"name"`
			Skills []string `json:"skills"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(secs[4].Content, &skills); err != nil {
		t.Fatalf("skills content: %v", err)
	}
	if len(skills.Categories) != 1 || skills.Categories[0].Name != "Technical Skills" || len(skills.Categories[0].Skills) != 3 {
		t.Fatalf("unexpected skills content: %+v", skills)
	}
}

func TestSections_EmptyCV(t *testing.T) {
	if secs := cvmap.Sections(&cvmap.CV{}); len(secs) != 0 {
		t.Fatalf("expected no sections, got %d", len(secs))
	}
}

func TestSectionType(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"summary", models.SectionSummary, true},
		{" EXPERIENCE ", models.SectionExperience, true},
		{"PERSONAL_INFO", models.SectionProfile, true},
		{"awards", models.SectionCustom, true},
		{"references", models.SectionCustom, true},
		{"HOBBIES", "", false},
	}
	for _, tt := range tests {
		got, err := cvmap.SectionType(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Fatalf("SectionType(%q) = %q, %v; want %q ok=%v", tt.in, got, err, tt.want, tt.ok)
		}
	}
}
