package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"github.com/garnizeh/careerhub/internal/export"
	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

const maxPracticeQuestions = 50

type PracticeHandler struct {
	interviews repository.PracticeRepo
	users      repository.UserRepo
	xp         Achievements
	shuffle    func(n int, swap func(i, j int))
}

func NewPracticeHandler(interviews repository.PracticeRepo, users repository.UserRepo, achievements Achievements) *PracticeHandler {
	return &PracticeHandler{interviews: interviews, users: users, xp: achievements, shuffle: rand.Shuffle}
}

type practiceQuestion struct {
	Content string `json:"content"`
	Answer  *struct {
		Content string `json:"content"`
	} `json:"answer"`
}

type practiceRequest struct {
	Description     string             `json:"description"`
	DurationMinutes int                `json:"durationMinutes"`
	QuestionCount   int                `json:"nbrQuestions"`
	Difficulty      string             `json:"difficulty"`
	Category        string             `json:"category"`
	FocusArea       string             `json:"focusArea"`
	Questions       []practiceQuestion `json:"questions"`
}

func (req *practiceRequest) validate() error {
	switch {
	case strings.TrimSpace(req.Description) == "":
		return errors.New("description is required")
	case req.DurationMinutes <= 0:
		return errors.New("durationMinutes must be positive")
	case req.QuestionCount <= 0 || req.QuestionCount > maxPracticeQuestions:
		return fmt.Errorf("nbrQuestions must be between 1 and %d", maxPracticeQuestions)
	}
	switch req.Difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		return errors.New("difficulty must be EASY, MEDIUM or HARD")
	}
	switch req.Category {
	case models.CategoryTechnical, models.CategoryBehavioral, models.CategoryGeneral:
	default:
		return errors.New("category must be TECHNICAL, BEHAVIORAL or GENERAL")
	}
	for i, q := range req.Questions {
		if strings.TrimSpace(q.Content) == "" {
			return fmt.Errorf("question %d has no content", i+1)
		}
	}
	return nil
}

// planQuestions returns exactly n questions. Extra questions are sampled
// without replacement and missing ones are filled with placeholders.
func planQuestions(given []practiceQuestion, n int, shuffle func(int, func(i, j int))) []models.InterviewQuestion {
	picked := append([]practiceQuestion(nil), given...)
	if len(picked) > n {
		shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
		picked = picked[:n]
	}

	out := make([]models.InterviewQuestion, 0, n)
	for _, q := range picked {
		iq := models.InterviewQuestion{Content: strings.TrimSpace(q.Content)}
		if q.Answer != nil && strings.TrimSpace(q.Answer.Content) != "" {
			iq.Answer = &models.InterviewAnswer{Content: strings.TrimSpace(q.Answer.Content)}
		}
		out = append(out, iq)
	}
	for i := len(out); i < n; i++ {
		out = append(out, models.InterviewQuestion{Content: "Auto-generated question " + strconv.Itoa(i+1)})
	}
	return out
}

func (h *PracticeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req practiceRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	iv := &models.PracticeInterview{
		UserID:          userID,
		Description:     strings.TrimSpace(req.Description),
		DurationMinutes: req.DurationMinutes,
		QuestionCount:   req.QuestionCount,
		Difficulty:      req.Difficulty,
		Category:        req.Category,
		FocusArea:       strings.TrimSpace(req.FocusArea),
		Questions:       planQuestions(req.Questions, req.QuestionCount, h.shuffle),
	}
	ctx := r.Context()
	id, err := h.interviews.CreatePracticeInterview(ctx, iv)
	if err != nil {
		logger.Error("create practice interview", slog.Int64("user_id", userID), slog.Any("err", err))
		http.Error(w, "Failed to create interview", http.StatusInternalServerError)
		return
	}
	created, err := h.interviews.GetPracticeInterview(ctx, id)
	if err != nil || created == nil {
		http.Error(w, "Failed to load interview", http.StatusInternalServerError)
		return
	}
	checkMilestones(ctx, h.xp, userID)
	writeJSON(w, created, http.StatusCreated)
}

func (h *PracticeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := h.interviews.ListPracticeInterviews(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to list interviews", http.StatusInternalServerError)
		return
	}
	writeJSON(w, orEmpty(items), http.StatusOK)
}

// load fetches the interview in the path for its owner or an admin.
func (h *PracticeHandler) load(w http.ResponseWriter, r *http.Request) (*models.PracticeInterview, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(r, "interviewId")
	if !ok {
		http.Error(w, "Invalid interview id", http.StatusBadRequest)
		return nil, false
	}
	iv, err := h.interviews.GetPracticeInterview(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to load interview", http.StatusInternalServerError)
		return nil, false
	}
	if iv == nil || (iv.UserID != userID && !isAdmin(r)) {
		http.Error(w, "Interview not found", http.StatusNotFound)
		return nil, false
	}
	return iv, true
}

func (h *PracticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	iv, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, iv, http.StatusOK)
}

type answerItem struct {
	QuestionID int64  `json:"questionId"`
	Content    string `json:"content"`
}

func (h *PracticeHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	iv, ok := h.load(w, r)
	if !ok {
		return
	}
	questionID, ok := pathID(r, "questionId")
	if !ok {
		http.Error(w, "Invalid question id", http.StatusBadRequest)
		return
	}
	var req answerItem
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	req.QuestionID = questionID
	created, ok := h.storeAnswers(w, r, iv, []answerItem{req})
	if !ok {
		return
	}
	writeJSON(w, created[0], http.StatusCreated)
}

func (h *PracticeHandler) Answers(w http.ResponseWriter, r *http.Request) {
	iv, ok := h.load(w, r)
	if !ok {
		return
	}
	var req struct {
		Answers []answerItem `json:"answers"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if len(req.Answers) == 0 {
		http.Error(w, "answers are required", http.StatusBadRequest)
		return
	}
	created, ok := h.storeAnswers(w, r, iv, req.Answers)
	if !ok {
		return
	}
	writeJSON(w, created, http.StatusCreated)
}

// storeAnswers checks every answer targets a question of iv before storing them together.
func (h *PracticeHandler) storeAnswers(w http.ResponseWriter, r *http.Request, iv *models.PracticeInterview, items []answerItem) ([]models.InterviewAnswer, bool) {
	questions := make(map[int64]bool, len(iv.Questions))
	for _, q := range iv.Questions {
		questions[q.ID] = q.Answer != nil
	}
	answers := make([]models.InterviewAnswer, 0, len(items))
	for _, it := range items {
		answered, found := questions[it.QuestionID]
		if !found {
			http.Error(w, fmt.Sprintf("Question %d does not belong to interview %d", it.QuestionID, iv.ID), http.StatusNotFound)
			return nil, false
		}
		if answered {
			http.Error(w, fmt.Sprintf("Answer already exists for question %d", it.QuestionID), http.StatusConflict)
			return nil, false
		}
		if strings.TrimSpace(it.Content) == "" {
			http.Error(w, "answer content is required", http.StatusBadRequest)
			return nil, false
		}
		answers = append(answers, models.InterviewAnswer{QuestionID: it.QuestionID, Content: strings.TrimSpace(it.Content)})
	}

	created, err := h.interviews.CreateInterviewAnswers(r.Context(), answers)
	if errors.Is(err, repository.ErrConflict) {
		http.Error(w, "Answer already exists for this question", http.StatusConflict)
		return nil, false
	}
	if err != nil {
		logger.Error("store interview answers", slog.Int64("interview_id", iv.ID), slog.Any("err", err))
		http.Error(w, "Failed to store answers", http.StatusInternalServerError)
		return nil, false
	}
	return created, true
}

// answerTarget resolves the answer in the path, which must belong to iv.
func (h *PracticeHandler) answerTarget(w http.ResponseWriter, r *http.Request, iv *models.PracticeInterview) (int64, bool) {
	answerID, ok := pathID(r, "answerId")
	if !ok {
		http.Error(w, "Invalid answer id", http.StatusBadRequest)
		return 0, false
	}
	a, interviewID, err := h.interviews.GetInterviewAnswer(r.Context(), answerID)
	if err != nil {
		http.Error(w, "Failed to load answer", http.StatusInternalServerError)
		return 0, false
	}
	if a == nil || interviewID != iv.ID {
		http.Error(w, "Answer not found", http.StatusNotFound)
		return 0, false
	}
	return a.ID, true
}

func (h *PracticeHandler) rate(w http.ResponseWriter, r *http.Request, onAnswer bool) {
	iv, ok := h.load(w, r)
	if !ok {
		return
	}
	var req struct {
		Value *int `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Value == nil || *req.Value < 0 || *req.Value > 100 {
		http.Error(w, "value must be between 0 and 100", http.StatusBadRequest)
		return
	}

	author, _ := UserIDFrom(r.Context())
	rate := &models.InterviewRate{Value: *req.Value, AuthorID: &author}
	if onAnswer {
		answerID, ok := h.answerTarget(w, r, iv)
		if !ok {
			return
		}
		rate.AnswerID = &answerID
	} else {
		rate.InterviewID = &iv.ID
	}
	id, err := h.interviews.CreateInterviewRate(r.Context(), rate)
	if err != nil {
		http.Error(w, "Failed to store rating", http.StatusInternalServerError)
		return
	}
	rate.ID, rate.Created = id, nowMillis()
	writeJSON(w, rate, http.StatusCreated)
}

func (h *PracticeHandler) RateInterview(w http.ResponseWriter, r *http.Request) { h.rate(w, r, false) }
func (h *PracticeHandler) RateAnswer(w http.ResponseWriter, r *http.Request)    { h.rate(w, r, true) }

func (h *PracticeHandler) feedback(w http.ResponseWriter, r *http.Request, onAnswer bool) {
	iv, ok := h.load(w, r)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	author, _ := UserIDFrom(r.Context())
	fb := &models.InterviewFeedback{Content: strings.TrimSpace(req.Content), AuthorID: &author}
	if onAnswer {
		answerID, ok := h.answerTarget(w, r, iv)
		if !ok {
			return
		}
		fb.AnswerID = &answerID
	} else {
		fb.InterviewID = &iv.ID
	}
	id, err := h.interviews.CreateInterviewFeedback(r.Context(), fb)
	if err != nil {
		http.Error(w, "Failed to store feedback", http.StatusInternalServerError)
		return
	}
	fb.ID, fb.Created = id, nowMillis()
	writeJSON(w, fb, http.StatusCreated)
}

func (h *PracticeHandler) FeedbackInterview(w http.ResponseWriter, r *http.Request) {
	h.feedback(w, r, false)
}
func (h *PracticeHandler) FeedbackAnswer(w http.ResponseWriter, r *http.Request) {
	h.feedback(w, r, true)
}

// Report renders the interview as a PDF attachment.
func (h *PracticeHandler) Report(w http.ResponseWriter, r *http.Request) {
	iv, ok := h.load(w, r)
	if !ok {
		return
	}
	owner := strconv.FormatInt(iv.UserID, 10)
	if u, err := h.users.GetByID(r.Context(), iv.UserID); err == nil && u != nil {
		owner = u.Email
	}

	var buf bytes.Buffer
	if err := export.InterviewPDF(iv, owner, &buf); err != nil {
		logger.Error("render interview report", slog.Int64("interview_id", iv.ID), slog.Any("err", err))
		http.Error(w, "Failed to render report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.PDFContentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="interview-%d-report.pdf"`, iv.ID))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
