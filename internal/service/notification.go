package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/studyweave/studyweave/internal/model"
)

// Notification source types. The dedup key is {type}-{entityID}-{status}.
const (
	NoticeStudy      = "study"
	NoticeCompetency = "competency"
	NoticeArtifact   = "artifact"
)

// Notification is one "something happened" notice for a researcher's inbox.
// Notices are recomputed per request from current rows; nothing is
// persisted.
type Notification struct {
	Type            string    `json:"type"`
	EntityID        string    `json:"entityId"`
	Status          string    `json:"status"`
	StudyID         string    `json:"studyId"`
	ParticipantName string    `json:"participantName,omitempty"`
	Message         string    `json:"message"`
	Timestamp       time.Time `json:"timestamp"`
}

// Key is the deduplication key. Two events describing the same entity in the
// same state collapse to one notice, last write wins: an enrollment-sourced
// and an assignment-sourced view of the same competency submission produce
// one entry, not two.
func (n Notification) Key() string {
	return fmt.Sprintf("%s-%s-%s", n.Type, n.EntityID, n.Status)
}

// BuildNotifications scans a researcher's enrollments, competency
// assignments, and artifact assessments and produces a deduplicated list,
// sorted newest first by the best available timestamp
// (reviewed > submitted > updated > now).
func BuildNotifications(
	enrollments []model.StudyParticipant,
	assignments []model.CompetencyAssignment,
	assessments []model.ArtifactAssessment,
	now time.Time,
) []Notification {
	dedup := make(map[string]Notification)
	add := func(n Notification) { dedup[n.Key()] = n }

	for i := range enrollments {
		e := &enrollments[i]
		name := ""
		if e.User != nil {
			name = e.User.Name
		}

		if e.ParticipationStatus == model.ParticipationCompleted || hasSubmitted(e.ArtifactAssessments) {
			add(Notification{
				Type:            NoticeStudy,
				EntityID:        e.ID,
				Status:          string(model.ParticipationCompleted),
				StudyID:         e.StudyID,
				ParticipantName: name,
				Message:         "participant completed the study",
				Timestamp:       bestEnrollmentTime(e, now),
			})
		}

		// The nested assignment is a second source for competency events;
		// the dedup key folds it together with the standalone list below.
		if a := e.CompetencyAssignment; a != nil {
			if n, ok := assignmentNotice(a, name, now); ok {
				add(n)
			}
		}
	}

	for i := range assignments {
		a := &assignments[i]
		name := ""
		if a.User != nil {
			name = a.User.Name
		}
		if n, ok := assignmentNotice(a, name, now); ok {
			add(n)
		}
	}

	for i := range assessments {
		a := &assessments[i]
		if a.Status != model.AssessmentSubmitted {
			continue
		}
		ts := now
		if a.SubmittedAt != nil {
			ts = *a.SubmittedAt
		} else if !a.UpdatedAt.IsZero() {
			ts = a.UpdatedAt
		}
		add(Notification{
			Type:      NoticeArtifact,
			EntityID:  a.ID,
			Status:    string(model.AssessmentSubmitted),
			StudyID:   a.StudyID,
			Message:   fmt.Sprintf("%s assessment submitted", a.AssessmentType),
			Timestamp: ts,
		})
	}

	notices := make([]Notification, 0, len(dedup))
	for _, n := range dedup {
		notices = append(notices, n)
	}
	sort.SliceStable(notices, func(i, j int) bool {
		if notices[i].Timestamp.Equal(notices[j].Timestamp) {
			return notices[i].Key() < notices[j].Key()
		}
		return notices[i].Timestamp.After(notices[j].Timestamp)
	})
	return notices
}

func assignmentNotice(a *model.CompetencyAssignment, name string, now time.Time) (Notification, bool) {
	if a.Status != model.AssignmentSubmitted && a.Status != model.AssignmentReviewed {
		return Notification{}, false
	}
	return Notification{
		Type:            NoticeCompetency,
		EntityID:        a.ID,
		Status:          string(a.Status),
		StudyID:         a.StudyID,
		ParticipantName: name,
		Message:         fmt.Sprintf("competency screening %s", a.Status),
		Timestamp:       bestAssignmentTime(a, now),
	}, true
}

// bestAssignmentTime walks the fallback chain reviewed > submitted >
// updated > now.
func bestAssignmentTime(a *model.CompetencyAssignment, now time.Time) time.Time {
	switch {
	case a.ReviewedAt != nil:
		return *a.ReviewedAt
	case a.SubmittedAt != nil:
		return *a.SubmittedAt
	case !a.UpdatedAt.IsZero():
		return a.UpdatedAt
	}
	return now
}

func bestEnrollmentTime(e *model.StudyParticipant, now time.Time) time.Time {
	var best time.Time
	for i := range e.ArtifactAssessments {
		if t := e.ArtifactAssessments[i].SubmittedAt; t != nil && t.After(best) {
			best = *t
		}
	}
	if !best.IsZero() {
		return best
	}
	if !e.UpdatedAt.IsZero() {
		return e.UpdatedAt
	}
	return now
}
