package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garnizeh/careerhub/pkg/models"
)

const companyColumns = `id, owner_id, name, slug, industry, tagline, description, website, logo_url, banner_url, company_size,
	locations, benefits, company_values, about, seo_title, seo_description, social_links, created, updated`

func scanCompany(s scanner) (*models.Company, error) {
	var c models.Company
	var owner sql.NullInt64
	var locations, benefits, values, links string
	err := s.Scan(&c.ID, &owner, &c.Name, &c.Slug, &c.Industry, &c.Tagline, &c.Description, &c.Website, &c.LogoURL, &c.BannerURL, &c.CompanySize,
		&locations, &benefits, &values, &c.About, &c.SEOTitle, &c.SEODescription, &links, &c.Created, &c.Updated)
	if err != nil {
		return nil, err
	}
	c.OwnerID = intPtr(owner)
	for _, f := range []struct {
		raw string
		dst any
	}{{locations, &c.Locations}, {benefits, &c.Benefits}, {values, &c.Values}, {links, &c.SocialLinks}} {
		if f.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("decode company %d: %w", c.ID, err)
		}
	}
	return &c, nil
}

// companyJSON encodes the list and map columns of a company.
func companyJSON(c *models.Company) (locations, benefits, values, links string, err error) {
	enc := func(v any, empty string) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		if string(b) == "null" {
			return empty, nil
		}
		return string(b), nil
	}
	if locations, err = enc(c.Locations, "[]"); err != nil {
		return
	}
	if benefits, err = enc(c.Benefits, "[]"); err != nil {
		return
	}
	if values, err = enc(c.Values, "[]"); err != nil {
		return
	}
	links, err = enc(c.SocialLinks, "{}")
	return
}

func (r *SQLiteRepo) CreateCompany(ctx context.Context, c *models.Company) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("company is nil")
	}
	locations, benefits, values, links, err := companyJSON(c)
	if err != nil {
		return 0, err
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ts := now()
	res, err := tx.ExecContext(ctx, `INSERT INTO companies (owner_id, name, slug, industry, tagline, description, website, logo_url, banner_url, company_size,
		locations, benefits, company_values, about, seo_title, seo_description, social_links, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt(c.OwnerID), c.Name, c.Slug, c.Industry, c.Tagline, c.Description, c.Website, c.LogoURL, c.BannerURL, c.CompanySize,
		locations, benefits, values, c.About, c.SEOTitle, c.SEODescription, links, ts, ts)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if c.OwnerID != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET company_id = ?, updated = ? WHERE id = ?`, id, ts, *c.OwnerID); err != nil {
			return 0, fmt.Errorf("link company owner: %w", err)
		}
	}

	return id, tx.Commit()
}

func (r *SQLiteRepo) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	c, err := scanCompany(r.conn.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *SQLiteRepo) GetCompanyBySlug(ctx context.Context, slug string) (*models.Company, error) {
	c, err := scanCompany(r.conn.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE slug = ?`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *SQLiteRepo) GetCompanyByOwner(ctx context.Context, ownerID int64) (*models.Company, error) {
	c, err := scanCompany(r.conn.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE owner_id = ?`, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *SQLiteRepo) UpdateCompany(ctx context.Context, c *models.Company) error {
	if c == nil {
		return fmt.Errorf("company is nil")
	}
	locations, benefits, values, links, err := companyJSON(c)
	if err != nil {
		return err
	}

	return affected(r.conn.Exec(ctx, `UPDATE companies SET name = ?, slug = ?, industry = ?, tagline = ?, description = ?, website = ?, logo_url = ?, banner_url = ?,
		company_size = ?, locations = ?, benefits = ?, company_values = ?, about = ?, seo_title = ?, seo_description = ?, social_links = ?, updated = ? WHERE id = ?`,
		c.Name, c.Slug, c.Industry, c.Tagline, c.Description, c.Website, c.LogoURL, c.BannerURL,
		c.CompanySize, locations, benefits, values, c.About, c.SEOTitle, c.SEODescription, links, now(), c.ID))
}

func (r *SQLiteRepo) ListCompanies(ctx context.Context, query string, limit, offset int) ([]models.Company, int64, error) {
	limit, offset = clampPage(limit, offset, 20)

	where := ""
	var args []any
	if q := strings.TrimSpace(query); q != "" {
		where = ` WHERE name LIKE ? OR industry LIKE ?`
		like := "%" + q + "%"
		args = append(args, like, like)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM companies`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn.Query(ctx, `SELECT `+companyColumns+` FROM companies`+where+` ORDER BY name LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}

	return out, total, rows.Err()
}

func (r *SQLiteRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM companies WHERE slug = ?`, slug).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
