package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/garnizeh/careerhub/pkg/models"
)

const PDFContentType = "application/pdf"

// AverageRate rounds the mean to two decimals. ok is false when there are no rates.
func AverageRate(rates []models.InterviewRate) (avg float64, ok bool) {
	if len(rates) == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range rates {
		sum += r.Value
	}
	return math.Round(float64(sum)/float64(len(rates))*100) / 100, true
}

func formatAverage(rates []models.InterviewRate) string {
	avg, ok := AverageRate(rates)
	if !ok {
		return "N/A"
	}
	return strconv.FormatFloat(avg, 'f', -1, 64)
}

func byAuthor(id *int64) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf(" (by %d)", *id)
}

// InterviewPDF writes the practice interview report: metadata, overall
// ratings and feedback, then every question with its answer.
func InterviewPDF(iv *models.PracticeInterview, owner string, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetTitle(fmt.Sprintf("Interview %d report", iv.ID), true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	heading := func(text string, size float64) {
		pdf.SetFont("Helvetica", "B", size)
		pdf.MultiCell(0, size/2, tr(text), "", "L", false)
		pdf.Ln(1)
	}
	line := func(text string) {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(text), "", "L", false)
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Interview Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	line(fmt.Sprintf("Interview ID: %d", iv.ID))
	line("Owner: " + owner)
	line("Description: " + iv.Description)
	line(fmt.Sprintf("Duration (min): %d", iv.DurationMinutes))
	line(fmt.Sprintf("Questions: %d", iv.QuestionCount))
	line("Difficulty: " + iv.Difficulty)
	line("Category: " + iv.Category)
	if iv.FocusArea != "" {
		line("Focus area: " + iv.FocusArea)
	}
	line("Created at: " + time.UnixMilli(iv.Created).UTC().Format(time.RFC3339))
	pdf.Ln(4)

	heading("Overall Ratings", 14)
	line(fmt.Sprintf("Count: %d", len(iv.Rates)))
	line("Average: " + formatAverage(iv.Rates))
	pdf.Ln(4)

	heading("Overall Feedbacks", 14)
	if len(iv.Feedbacks) == 0 {
		line("No overall feedbacks")
	}
	for i, fb := range iv.Feedbacks {
		line(fmt.Sprintf("%d. %s%s", i+1, fb.Content, byAuthor(fb.AuthorID)))
	}
	pdf.Ln(4)

	heading("Questions & Answers", 16)
	for i, q := range iv.Questions {
		line(fmt.Sprintf("%d. Q: %s", i+1, q.Content))
		if q.Answer == nil {
			line("   A: (no answer)")
			pdf.Ln(2)
			continue
		}
		line("   A: " + q.Answer.Content)
		line(fmt.Sprintf("   Answer ratings count: %d  average: %s", len(q.Answer.Rates), formatAverage(q.Answer.Rates)))
		if len(q.Answer.Feedbacks) > 0 {
			line("   Feedbacks:")
			for _, fb := range q.Answer.Feedbacks {
				line("     - " + fb.Content + byAuthor(fb.AuthorID))
			}
		}
		pdf.Ln(2)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
