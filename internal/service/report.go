package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/studyweave/studyweave/internal/model"
)

// QuestionStat is the per-question slice of a competency report.
type QuestionStat struct {
	QuestionID string  `json:"questionId"`
	Prompt     string  `json:"prompt"`
	Answered   int     `json:"answered"`
	Correct    int     `json:"correct"`
	SolveRate  float64 `json:"solveRate"` // percent, one decimal; 0 when nobody answered
	IsMCQ      bool    `json:"isMcq"`
}

// SubmissionRow is one anonymized line in the report's submission table.
// Labels are positional (P01, P02, ...) so the export never carries names or
// emails.
type SubmissionRow struct {
	Label      string     `json:"label"`
	Score      float64    `json:"score"` // percent, one decimal
	Decision   string     `json:"decision"`
	ReviewedAt *time.Time `json:"reviewedAt"`
}

// CompetencyReport summarizes the reviewed submissions of one assessment.
// It is a pure function of the reviewed rows: same input, same report.
type CompetencyReport struct {
	AssessmentID          string          `json:"assessmentId"`
	AssessmentTitle       string          `json:"assessmentTitle"`
	ReviewedCount         int             `json:"reviewedCount"`
	AcceptedCount         int             `json:"acceptedCount"`
	AcceptanceRate        float64         `json:"acceptanceRate"`        // percent, one decimal; 0 for zero reviewed
	OverallMcqPerformance float64         `json:"overallMcqPerformance"` // mean MCQ score, percent, one decimal
	Questions             []QuestionStat  `json:"questions"`
	Submissions           []SubmissionRow `json:"submissions"`
	GeneratedAt           time.Time       `json:"generatedAt"`
}

// BuildCompetencyReport aggregates reviewed assignments in a single pass.
// Zero-denominator cases (no reviewed rows, a question nobody answered)
// report 0 rather than dividing.
func BuildCompetencyReport(assessment *model.CompetencyAssessment, reviewed []model.CompetencyAssignment, now time.Time) CompetencyReport {
	report := CompetencyReport{
		AssessmentID:    assessment.ID,
		AssessmentTitle: assessment.Title,
		ReviewedCount:   len(reviewed),
		Questions:       make([]QuestionStat, 0, len(assessment.Questions)),
		Submissions:     make([]SubmissionRow, 0, len(reviewed)),
		GeneratedAt:     now,
	}

	stats := make(map[string]*QuestionStat, len(assessment.Questions))
	for _, q := range assessment.Questions {
		report.Questions = append(report.Questions, QuestionStat{
			QuestionID: q.ID,
			Prompt:     q.Prompt,
			IsMCQ:      q.CorrectIndex >= 0,
		})
		stats[q.ID] = &report.Questions[len(report.Questions)-1]
	}

	var scoreSum float64
	for i, a := range reviewed {
		if a.Decision == model.DecisionAccepted {
			report.AcceptedCount++
		}
		scoreSum += a.Score

		report.Submissions = append(report.Submissions, SubmissionRow{
			Label:      fmt.Sprintf("P%02d", i+1),
			Score:      round1(a.Score * 100),
			Decision:   a.Decision,
			ReviewedAt: a.ReviewedAt,
		})

		for _, q := range assessment.Questions {
			answer, ok := a.Answers[q.ID]
			if !ok {
				continue
			}
			st := stats[q.ID]
			st.Answered++
			if idx, ok := answerIndex(answer); ok && q.CorrectIndex >= 0 && idx == q.CorrectIndex {
				st.Correct++
			}
		}
	}

	if report.ReviewedCount > 0 {
		report.AcceptanceRate = round1(float64(report.AcceptedCount) / float64(report.ReviewedCount) * 100)
		report.OverallMcqPerformance = round1(scoreSum / float64(report.ReviewedCount) * 100)
	}
	for i := range report.Questions {
		st := &report.Questions[i]
		if st.Answered > 0 {
			st.SolveRate = round1(float64(st.Correct) / float64(st.Answered) * 100)
		}
	}
	return report
}

// CSV renders the report as a flat CSV: summary block, question table,
// anonymized submission table.
func (r CompetencyReport) CSV() ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	rows := [][]string{
		{"assessment", r.AssessmentTitle},
		{"generated_at", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{"reviewed", strconv.Itoa(r.ReviewedCount)},
		{"accepted", strconv.Itoa(r.AcceptedCount)},
		{"acceptance_rate", formatPercent(r.AcceptanceRate, r.ReviewedCount > 0)},
		{"overall_mcq_performance", formatPercent(r.OverallMcqPerformance, r.ReviewedCount > 0)},
		{},
		{"question", "answered", "correct", "solve_rate"},
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	for _, q := range r.Questions {
		rate := formatPercent(q.SolveRate, q.Answered > 0 && q.IsMCQ)
		if err := w.Write([]string{q.Prompt, strconv.Itoa(q.Answered), strconv.Itoa(q.Correct), rate}); err != nil {
			return nil, err
		}
	}

	if err := w.Write(nil); err != nil {
		return nil, err
	}
	if err := w.Write([]string{"participant", "score", "decision", "reviewed_at"}); err != nil {
		return nil, err
	}
	for _, s := range r.Submissions {
		reviewedAt := ""
		if s.ReviewedAt != nil {
			reviewedAt = s.ReviewedAt.UTC().Format(time.RFC3339)
		}
		row := []string{s.Label, strconv.FormatFloat(s.Score, 'f', 1, 64), s.Decision, reviewedAt}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// PDF renders the same content as a one-or-more page A4 document.
func (r CompetencyReport) PDF() ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Competency Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Competency Report: "+r.AssessmentTitle, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated "+r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Reviewed submissions: %d", r.ReviewedCount), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Accepted: %d", r.AcceptedCount), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Acceptance rate: "+formatPercent(r.AcceptanceRate, r.ReviewedCount > 0), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Overall MCQ performance: "+formatPercent(r.OverallMcqPerformance, r.ReviewedCount > 0), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Per-question solve rate", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(110, 6, "Question", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 6, "Answered", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Correct", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Solve rate", "1", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, q := range r.Questions {
		prompt := q.Prompt
		if len(prompt) > 70 {
			prompt = prompt[:67] + "..."
		}
		pdf.CellFormat(110, 6, prompt, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, strconv.Itoa(q.Answered), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(q.Correct), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, formatPercent(q.SolveRate, q.Answered > 0 && q.IsMCQ), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Submissions", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(30, 6, "Participant", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 6, "Score", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Decision", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Reviewed at", "1", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, s := range r.Submissions {
		reviewedAt := ""
		if s.ReviewedAt != nil {
			reviewedAt = s.ReviewedAt.UTC().Format("2006-01-02 15:04")
		}
		pdf.CellFormat(30, 6, s.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, strconv.FormatFloat(s.Score, 'f', 1, 64)+"%", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, s.Decision, "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, reviewedAt, "1", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// answerIndex coerces a stored answer into an option index. JSON decoding
// yields float64 for numbers; ints appear when the value was set in Go.
func answerIndex(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// formatPercent renders a one-decimal percentage, or "N/A" when the
// denominator was zero and the value is meaningless.
func formatPercent(v float64, defined bool) string {
	if !defined {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
