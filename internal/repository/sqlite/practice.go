package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

const practiceColumns = `id, user_id, description, duration_minutes, question_count, difficulty, category, focus_area, created`

func scanPractice(s scanner) (*models.PracticeInterview, error) {
	var iv models.PracticeInterview
	if err := s.Scan(&iv.ID, &iv.UserID, &iv.Description, &iv.DurationMinutes, &iv.QuestionCount, &iv.Difficulty, &iv.Category, &iv.FocusArea, &iv.Created); err != nil {
		return nil, err
	}
	return &iv, nil
}

func (r *SQLiteRepo) CreatePracticeInterview(ctx context.Context, iv *models.PracticeInterview) (int64, error) {
	if iv == nil {
		return 0, fmt.Errorf("interview is nil")
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ts := now()
	res, err := tx.ExecContext(ctx, `INSERT INTO practice_interviews (user_id, description, duration_minutes, question_count, difficulty, category, focus_area, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.UserID, iv.Description, iv.DurationMinutes, iv.QuestionCount, iv.Difficulty, iv.Category, iv.FocusArea, ts)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i := range iv.Questions {
		q := &iv.Questions[i]
		res, err := tx.ExecContext(ctx, `INSERT INTO interview_questions (interview_id, content, sort_order) VALUES (?, ?, ?)`, id, q.Content, i)
		if err != nil {
			return 0, fmt.Errorf("insert question %d: %w", i, err)
		}
		if q.ID, err = res.LastInsertId(); err != nil {
			return 0, err
		}
		q.InterviewID, q.SortOrder = id, i
		if q.Answer == nil {
			continue
		}
		res, err = tx.ExecContext(ctx, `INSERT INTO interview_answers (question_id, content, created) VALUES (?, ?, ?)`, q.ID, q.Answer.Content, ts)
		if err != nil {
			return 0, fmt.Errorf("insert answer %d: %w", i, err)
		}
		if q.Answer.ID, err = res.LastInsertId(); err != nil {
			return 0, err
		}
		q.Answer.QuestionID, q.Answer.Created = q.ID, ts
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	iv.ID, iv.Created = id, ts
	return id, nil
}

func (r *SQLiteRepo) GetPracticeInterview(ctx context.Context, id int64) (*models.PracticeInterview, error) {
	iv, err := scanPractice(r.conn.QueryRow(ctx, `SELECT `+practiceColumns+` FROM practice_interviews WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if iv.Questions, err = r.practiceQuestions(ctx, id); err != nil {
		return nil, err
	}
	answers := make(map[int64]*models.InterviewAnswer)
	for i := range iv.Questions {
		if a := iv.Questions[i].Answer; a != nil {
			answers[a.ID] = a
		}
	}

	rates, err := r.practiceRates(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, rt := range rates {
		if rt.AnswerID == nil {
			iv.Rates = append(iv.Rates, rt)
		} else if a := answers[*rt.AnswerID]; a != nil {
			a.Rates = append(a.Rates, rt)
		}
	}

	feedbacks, err := r.practiceFeedbacks(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, fb := range feedbacks {
		if fb.AnswerID == nil {
			iv.Feedbacks = append(iv.Feedbacks, fb)
		} else if a := answers[*fb.AnswerID]; a != nil {
			a.Feedbacks = append(a.Feedbacks, fb)
		}
	}

	return iv, nil
}

func (r *SQLiteRepo) practiceQuestions(ctx context.Context, interviewID int64) ([]models.InterviewQuestion, error) {
	rows, err := r.conn.Query(ctx, `SELECT q.id, q.interview_id, q.content, q.sort_order, a.id, a.content, a.created
		FROM interview_questions q LEFT JOIN interview_answers a ON a.question_id = q.id
		WHERE q.interview_id = ? ORDER BY q.sort_order, q.id`, interviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.InterviewQuestion
	for rows.Next() {
		var q models.InterviewQuestion
		var answerID, answerCreated sql.NullInt64
		var answer sql.NullString
		if err := rows.Scan(&q.ID, &q.InterviewID, &q.Content, &q.SortOrder, &answerID, &answer, &answerCreated); err != nil {
			return nil, err
		}
		if answerID.Valid {
			q.Answer = &models.InterviewAnswer{ID: answerID.Int64, QuestionID: q.ID, Content: answer.String, Created: answerCreated.Int64}
		}
		out = append(out, q)
	}

	return out, rows.Err()
}

// practiceRates returns the interview's own rates and those of its answers.
func (r *SQLiteRepo) practiceRates(ctx context.Context, interviewID int64) ([]models.InterviewRate, error) {
	rows, err := r.conn.Query(ctx, `SELECT r.id, r.interview_id, r.answer_id, r.author_id, r.value, r.created
		FROM interview_rates r
		LEFT JOIN interview_answers a ON a.id = r.answer_id
		LEFT JOIN interview_questions q ON q.id = a.question_id
		WHERE r.interview_id = ? OR q.interview_id = ? ORDER BY r.id`, interviewID, interviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.InterviewRate
	for rows.Next() {
		var rt models.InterviewRate
		var iv, answer, author sql.NullInt64
		if err := rows.Scan(&rt.ID, &iv, &answer, &author, &rt.Value, &rt.Created); err != nil {
			return nil, err
		}
		rt.InterviewID, rt.AnswerID, rt.AuthorID = intPtr(iv), intPtr(answer), intPtr(author)
		out = append(out, rt)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) practiceFeedbacks(ctx context.Context, interviewID int64) ([]models.InterviewFeedback, error) {
	rows, err := r.conn.Query(ctx, `SELECT f.id, f.interview_id, f.answer_id, f.author_id, f.content, f.created
		FROM interview_feedbacks f
		LEFT JOIN interview_answers a ON a.id = f.answer_id
		LEFT JOIN interview_questions q ON q.id = a.question_id
		WHERE f.interview_id = ? OR q.interview_id = ? ORDER BY f.id`, interviewID, interviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.InterviewFeedback
	for rows.Next() {
		var fb models.InterviewFeedback
		var iv, answer, author sql.NullInt64
		if err := rows.Scan(&fb.ID, &iv, &answer, &author, &fb.Content, &fb.Created); err != nil {
			return nil, err
		}
		fb.InterviewID, fb.AnswerID, fb.AuthorID = intPtr(iv), intPtr(answer), intPtr(author)
		out = append(out, fb)
	}

	return out, rows.Err()
}

// ListPracticeInterviews returns the user's interviews newest first, without their trees.
func (r *SQLiteRepo) ListPracticeInterviews(ctx context.Context, userID int64) ([]models.PracticeInterview, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+practiceColumns+` FROM practice_interviews WHERE user_id = ? ORDER BY created DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PracticeInterview
	for rows.Next() {
		iv, err := scanPractice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *iv)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) GetInterviewAnswer(ctx context.Context, id int64) (*models.InterviewAnswer, int64, error) {
	var a models.InterviewAnswer
	var interviewID int64
	err := r.conn.QueryRow(ctx, `SELECT a.id, a.question_id, a.content, a.created, q.interview_id
		FROM interview_answers a JOIN interview_questions q ON q.id = a.question_id WHERE a.id = ?`, id).
		Scan(&a.ID, &a.QuestionID, &a.Content, &a.Created, &interviewID)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return &a, interviewID, nil
}

func (r *SQLiteRepo) CreateInterviewAnswers(ctx context.Context, answers []models.InterviewAnswer) ([]models.InterviewAnswer, error) {
	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ts := now()
	out := make([]models.InterviewAnswer, 0, len(answers))
	for _, a := range answers {
		res, err := tx.ExecContext(ctx, `INSERT INTO interview_answers (question_id, content, created) VALUES (?, ?, ?)`, a.QuestionID, a.Content, ts)
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("question %d: %w", a.QuestionID, repository.ErrConflict)
		}
		if err != nil {
			return nil, err
		}
		if a.ID, err = res.LastInsertId(); err != nil {
			return nil, err
		}
		a.Created = ts
		out = append(out, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepo) CreateInterviewRate(ctx context.Context, rate *models.InterviewRate) (int64, error) {
	if rate == nil {
		return 0, fmt.Errorf("rate is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO interview_rates (interview_id, answer_id, author_id, value, created) VALUES (?, ?, ?, ?, ?)`,
		nullInt(rate.InterviewID), nullInt(rate.AnswerID), nullInt(rate.AuthorID), rate.Value, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) CreateInterviewFeedback(ctx context.Context, fb *models.InterviewFeedback) (int64, error) {
	if fb == nil {
		return 0, fmt.Errorf("feedback is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO interview_feedbacks (interview_id, answer_id, author_id, content, created) VALUES (?, ?, ?, ?, ?)`,
		nullInt(fb.InterviewID), nullInt(fb.AnswerID), nullInt(fb.AuthorID), fb.Content, now())
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}
