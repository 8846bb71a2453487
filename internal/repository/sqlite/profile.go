package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/careerhub/pkg/models"
)

// Skills
func (r *SQLiteRepo) CreateSkill(ctx context.Context, s *models.Skill) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("skill is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO user_skills (user_id, name, level, category, sort_order, created) VALUES (?, ?, ?, ?, ?, ?)`,
		s.UserID, s.Name, s.Level, s.Category, s.SortOrder, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListSkills(ctx context.Context, userID int64) ([]models.Skill, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, user_id, name, level, category, sort_order, created FROM user_skills WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Skill
	for rows.Next() {
		var s models.Skill
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Level, &s.Category, &s.SortOrder, &s.Created); err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteSkill(ctx context.Context, userID, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM user_skills WHERE id = ? AND user_id = ?`, id, userID))
}

// Experiences
func (r *SQLiteRepo) CreateExperience(ctx context.Context, e *models.Experience) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("experience is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO user_experiences (user_id, job_title, company, location, start_date, end_date, is_current, description, sort_order, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.JobTitle, e.Company, e.Location, e.StartDate, e.EndDate, boolInt(e.IsCurrent), e.Description, e.SortOrder, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListExperiences(ctx context.Context, userID int64) ([]models.Experience, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, user_id, job_title, company, location, start_date, end_date, is_current, description, sort_order, created
		FROM user_experiences WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Experience
	for rows.Next() {
		var e models.Experience
		var current int
		if err := rows.Scan(&e.ID, &e.UserID, &e.JobTitle, &e.Company, &e.Location, &e.StartDate, &e.EndDate, &current, &e.Description, &e.SortOrder, &e.Created); err != nil {
			return nil, err
		}
		e.IsCurrent = current == 1
		out = append(out, e)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteExperience(ctx context.Context, userID, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM user_experiences WHERE id = ? AND user_id = ?`, id, userID))
}

// Educations
func (r *SQLiteRepo) CreateEducation(ctx context.Context, e *models.Education) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("education is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO user_educations (user_id, degree, field_of_study, institution, location, start_date, end_date, gpa, sort_order, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Degree, e.FieldOfStudy, e.Institution, e.Location, e.StartDate, e.EndDate, e.GPA, e.SortOrder, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListEducations(ctx context.Context, userID int64) ([]models.Education, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, user_id, degree, field_of_study, institution, location, start_date, end_date, gpa, sort_order, created
		FROM user_educations WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Education
	for rows.Next() {
		var e models.Education
		if err := rows.Scan(&e.ID, &e.UserID, &e.Degree, &e.FieldOfStudy, &e.Institution, &e.Location, &e.StartDate, &e.EndDate, &e.GPA, &e.SortOrder, &e.Created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteEducation(ctx context.Context, userID, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM user_educations WHERE id = ? AND user_id = ?`, id, userID))
}

// Projects
func (r *SQLiteRepo) CreateProject(ctx context.Context, p *models.Project) (int64, error) {
	if p == nil {
		return 0, fmt.Errorf("project is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO user_projects (user_id, name, description, role, url, technologies, start_date, end_date, sort_order, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.Description, p.Role, p.URL, p.Technologies, p.StartDate, p.EndDate, p.SortOrder, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListProjects(ctx context.Context, userID int64) ([]models.Project, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, user_id, name, description, role, url, technologies, start_date, end_date, sort_order, created
		FROM user_projects WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Role, &p.URL, &p.Technologies, &p.StartDate, &p.EndDate, &p.SortOrder, &p.Created); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteProject(ctx context.Context, userID, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM user_projects WHERE id = ? AND user_id = ?`, id, userID))
}

func (r *SQLiteRepo) UpdateSkill(ctx context.Context, s *models.Skill) error {
	return affected(r.conn.Exec(ctx, `UPDATE user_skills SET name = ?, level = ?, category = ?, sort_order = ? WHERE id = ? AND user_id = ?`,
		s.Name, s.Level, s.Category, s.SortOrder, s.ID, s.UserID))
}

func (r *SQLiteRepo) UpdateExperience(ctx context.Context, e *models.Experience) error {
	return affected(r.conn.Exec(ctx, `UPDATE user_experiences SET job_title = ?, company = ?, location = ?, start_date = ?, end_date = ?, is_current = ?, description = ?, sort_order = ?
		WHERE id = ? AND user_id = ?`,
		e.JobTitle, e.Company, e.Location, e.StartDate, e.EndDate, boolInt(e.IsCurrent), e.Description, e.SortOrder, e.ID, e.UserID))
}

func (r *SQLiteRepo) UpdateEducation(ctx context.Context, e *models.Education) error {
	return affected(r.conn.Exec(ctx, `UPDATE user_educations SET degree = ?, field_of_study = ?, institution = ?, location = ?, start_date = ?, end_date = ?, gpa = ?, sort_order = ?
		WHERE id = ? AND user_id = ?`,
		e.Degree, e.FieldOfStudy, e.Institution, e.Location, e.StartDate, e.EndDate, e.GPA, e.SortOrder, e.ID, e.UserID))
}

func (r *SQLiteRepo) UpdateProject(ctx context.Context, p *models.Project) error {
	return affected(r.conn.Exec(ctx, `UPDATE user_projects SET name = ?, description = ?, role = ?, url = ?, technologies = ?, start_date = ?, end_date = ?, sort_order = ?
		WHERE id = ? AND user_id = ?`,
		p.Name, p.Description, p.Role, p.URL, p.Technologies, p.StartDate, p.EndDate, p.SortOrder, p.ID, p.UserID))
}

// Languages
func (r *SQLiteRepo) CreateLanguage(ctx context.Context, l *models.Language) (int64, error) {
	if l == nil {
		return 0, fmt.Errorf("language is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO user_languages (user_id, language, proficiency, sort_order) VALUES (?, ?, ?, ?)`,
		l.UserID, l.Language, l.Proficiency, l.SortOrder)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListLanguages(ctx context.Context, userID int64) ([]models.Language, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, user_id, language, proficiency, sort_order FROM user_languages WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Language
	for rows.Next() {
		var l models.Language
		if err := rows.Scan(&l.ID, &l.UserID, &l.Language, &l.Proficiency, &l.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, l)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateLanguage(ctx context.Context, l *models.Language) error {
	return affected(r.conn.Exec(ctx, `UPDATE user_languages SET language = ?, proficiency = ?, sort_order = ? WHERE id = ? AND user_id = ?`,
		l.Language, l.Proficiency, l.SortOrder, l.ID, l.UserID))
}

func (r *SQLiteRepo) DeleteLanguage(ctx context.Context, userID, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM user_languages WHERE id = ? AND user_id = ?`, id, userID))
}

// Social links
func (r *SQLiteRepo) CreateSocialLink(ctx context.Context, l *models.SocialLink) (int64, error) {
	if l == nil {
		return 0, fmt.Errorf("social link is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO user_social_links (user_id, type, url, is_primary, sort_order) VALUES (?, ?, ?, ?, ?)`,
		l.UserID, l.Type, l.URL, boolInt(l.IsPrimary), l.SortOrder)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListSocialLinks(ctx context.Context, userID int64) ([]models.SocialLink, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, user_id, type, url, is_primary, sort_order FROM user_social_links WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SocialLink
	for rows.Next() {
		var l models.SocialLink
		var primary int
		if err := rows.Scan(&l.ID, &l.UserID, &l.Type, &l.URL, &primary, &l.SortOrder); err != nil {
			return nil, err
		}
		l.IsPrimary = primary == 1
		out = append(out, l)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateSocialLink(ctx context.Context, l *models.SocialLink) error {
	return affected(r.conn.Exec(ctx, `UPDATE user_social_links SET type = ?, url = ?, is_primary = ?, sort_order = ? WHERE id = ? AND user_id = ?`,
		l.Type, l.URL, boolInt(l.IsPrimary), l.SortOrder, l.ID, l.UserID))
}

func (r *SQLiteRepo) DeleteSocialLink(ctx context.Context, userID, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM user_social_links WHERE id = ? AND user_id = ?`, id, userID))
}

// Certifications
func (r *SQLiteRepo) CreateCertification(ctx context.Context, c *models.Certification) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("certification is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO user_certifications (user_id, name, issuer, issue_date, expiry_date, credential_id, credential_url, sort_order, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Issuer, c.IssueDate, c.ExpiryDate, c.CredentialID, c.CredentialURL, c.SortOrder, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListCertifications(ctx context.Context, userID int64) ([]models.Certification, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, user_id, name, issuer, issue_date, expiry_date, credential_id, credential_url, sort_order, created
		FROM user_certifications WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Certification
	for rows.Next() {
		var c models.Certification
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Issuer, &c.IssueDate, &c.ExpiryDate, &c.CredentialID, &c.CredentialURL, &c.SortOrder, &c.Created); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateCertification(ctx context.Context, c *models.Certification) error {
	return affected(r.conn.Exec(ctx, `UPDATE user_certifications SET name = ?, issuer = ?, issue_date = ?, expiry_date = ?, credential_id = ?, credential_url = ?, sort_order = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, c.Issuer, c.IssueDate, c.ExpiryDate, c.CredentialID, c.CredentialURL, c.SortOrder, c.ID, c.UserID))
}

func (r *SQLiteRepo) DeleteCertification(ctx context.Context, userID, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM user_certifications WHERE id = ? AND user_id = ?`, id, userID))
}

// Awards
func (r *SQLiteRepo) CreateAward(ctx context.Context, a *models.Award) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("award is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO user_awards (user_id, title, issuer, date, description, sort_order, created) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Title, a.Issuer, a.Date, a.Description, a.SortOrder, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListAwards(ctx context.Context, userID int64) ([]models.Award, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, user_id, title, issuer, date, description, sort_order, created FROM user_awards WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Award
	for rows.Next() {
		var a models.Award
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.Issuer, &a.Date, &a.Description, &a.SortOrder, &a.Created); err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateAward(ctx context.Context, a *models.Award) error {
	return affected(r.conn.Exec(ctx, `UPDATE user_awards SET title = ?, issuer = ?, date = ?, description = ?, sort_order = ? WHERE id = ? AND user_id = ?`,
		a.Title, a.Issuer, a.Date, a.Description, a.SortOrder, a.ID, a.UserID))
}

func (r *SQLiteRepo) DeleteAward(ctx context.Context, userID, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM user_awards WHERE id = ? AND user_id = ?`, id, userID))
}

// Volunteer work
func (r *SQLiteRepo) CreateVolunteerWork(ctx context.Context, v *models.VolunteerWork) (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("volunteer work is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO user_volunteer_work (user_id, role, organization, location, start_date, end_date, is_current, description, sort_order, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.UserID, v.Role, v.Organization, v.Location, v.StartDate, v.EndDate, boolInt(v.IsCurrent), v.Description, v.SortOrder, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) ListVolunteerWork(ctx context.Context, userID int64) ([]models.VolunteerWork, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, user_id, role, organization, location, start_date, end_date, is_current, description, sort_order, created
		FROM user_volunteer_work WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VolunteerWork
	for rows.Next() {
		var v models.VolunteerWork
		var current int
		if err := rows.Scan(&v.ID, &v.UserID, &v.Role, &v.Organization, &v.Location, &v.StartDate, &v.EndDate, &current, &v.Description, &v.SortOrder, &v.Created); err != nil {
			return nil, err
		}
		v.IsCurrent = current == 1
		out = append(out, v)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateVolunteerWork(ctx context.Context, v *models.VolunteerWork) error {
	return affected(r.conn.Exec(ctx, `UPDATE user_volunteer_work SET role = ?, organization = ?, location = ?, start_date = ?, end_date = ?, is_current = ?, description = ?, sort_order = ?
		WHERE id = ? AND user_id = ?`,
		v.Role, v.Organization, v.Location, v.StartDate, v.EndDate, boolInt(v.IsCurrent), v.Description, v.SortOrder, v.ID, v.UserID))
}

func (r *SQLiteRepo) DeleteVolunteerWork(ctx context.Context, userID, id int64) error {
	return affected(r.conn.Exec(ctx, `DELETE FROM user_volunteer_work WHERE id = ? AND user_id = ?`, id, userID))
}

func (r *SQLiteRepo) ReplaceProfileSections(ctx context.Context, userID int64, s *models.ProfileSections) error {
	if s == nil {
		return fmt.Errorf("profile sections are nil")
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"user_skills", "user_experiences", "user_educations", "user_projects", "user_languages", "user_social_links",
		"user_certifications", "user_awards", "user_volunteer_work"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	ts := now()
	for _, sk := range s.Skills {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_skills (user_id, name, level, category, sort_order, created) VALUES (?, ?, ?, ?, ?, ?)`,
			userID, sk.Name, sk.Level, sk.Category, sk.SortOrder, ts); err != nil {
			return fmt.Errorf("insert skill: %w", err)
		}
	}
	for _, e := range s.Experiences {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_experiences (user_id, job_title, company, location, start_date, end_date, is_current, description, sort_order, created)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, e.JobTitle, e.Company, e.Location, e.StartDate, e.EndDate, boolInt(e.IsCurrent), e.Description, e.SortOrder, ts); err != nil {
			return fmt.Errorf("insert experience: %w", err)
		}
	}
	for _, e := range s.Educations {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_educations (user_id, degree, field_of_study, institution, location, start_date, end_date, gpa, sort_order, created)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, e.Degree, e.FieldOfStudy, e.Institution, e.Location, e.StartDate, e.EndDate, e.GPA, e.SortOrder, ts); err != nil {
			return fmt.Errorf("insert education: %w", err)
		}
	}
	for _, p := range s.Projects {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_projects (user_id, name, description, role, url, technologies, start_date, end_date, sort_order, created)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, p.Name, p.Description, p.Role, p.URL, p.Technologies, p.StartDate, p.EndDate, p.SortOrder, ts); err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
	}
	for _, l := range s.Languages {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_languages (user_id, language, proficiency, sort_order) VALUES (?, ?, ?, ?)`,
			userID, l.Language, l.Proficiency, l.SortOrder); err != nil {
			return fmt.Errorf("insert language: %w", err)
		}
	}
	for _, l := range s.SocialLinks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_social_links (user_id, type, url, is_primary, sort_order) VALUES (?, ?, ?, ?, ?)`,
			userID, l.Type, l.URL, boolInt(l.IsPrimary), l.SortOrder); err != nil {
			return fmt.Errorf("insert social link: %w", err)
		}
	}
	for _, c := range s.Certifications {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_certifications (user_id, name, issuer, issue_date, expiry_date, credential_id, credential_url, sort_order, created)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, c.Name, c.Issuer, c.IssueDate, c.ExpiryDate, c.CredentialID, c.CredentialURL, c.SortOrder, ts); err != nil {
			return fmt.Errorf("insert certification: %w", err)
		}
	}
	for _, a := range s.Awards {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_awards (user_id, title, issuer, date, description, sort_order, created) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, a.Title, a.Issuer, a.Date, a.Description, a.SortOrder, ts); err != nil {
			return fmt.Errorf("insert award: %w", err)
		}
	}
	for _, v := range s.VolunteerWork {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_volunteer_work (user_id, role, organization, location, start_date, end_date, is_current, description, sort_order, created)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, v.Role, v.Organization, v.Location, v.StartDate, v.EndDate, boolInt(v.IsCurrent), v.Description, v.SortOrder, ts); err != nil {
			return fmt.Errorf("insert volunteer work: %w", err)
		}
	}

	return tx.Commit()
}

// ProfileCounts gathers the per-user totals used by milestone checks.
func (r *SQLiteRepo) ProfileCounts(ctx context.Context, userID int64) (*models.ProfileCounts, error) {
	var c models.ProfileCounts
	var headline, bio sql.NullString
	err := r.conn.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM user_skills WHERE user_id = u.id),
		(SELECT COUNT(*) FROM user_experiences WHERE user_id = u.id),
		(SELECT COUNT(*) FROM user_projects WHERE user_id = u.id),
		(SELECT COUNT(*) FROM resumes WHERE user_id = u.id),
		(SELECT COUNT(*) FROM job_applications WHERE user_id = u.id),
		(SELECT COUNT(*) FROM voice_sessions WHERE user_id = u.id AND status = 'completed') +
			(SELECT COUNT(*) FROM practice_interviews WHERE user_id = u.id),
		u.headline, u.bio
		FROM users u WHERE u.id = ?`, userID).
		Scan(&c.Skills, &c.Experiences, &c.Projects, &c.Resumes, &c.Applications, &c.Interviews, &headline, &bio)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.HasHeadlineBio = headline.String != "" && bio.String != ""

	return &c, nil
}
