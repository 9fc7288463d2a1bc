package tools

import "time"

// Milestone is a named point on a transaction timeline.
type Milestone struct {
	Title   string
	DueDate time.Time
}

// milestoneSpec places a milestone at either a fixed day offset from the
// contract date or a proportional offset of the total span.
type milestoneSpec struct {
	title      string
	fixedDay   int
	proportion float64
	fromEnd    int
	atEnd      bool
}

var milestoneSpecs = []milestoneSpec{
	{title: "Home Inspection", fixedDay: 7},
	{title: "Inspection Response", fixedDay: 10},
	{title: "Appraisal", fixedDay: 14},
	{title: "Loan Approval", proportion: 0.7},
	{title: "Final Walkthrough", fromEnd: 2},
	{title: "Closing Day", atEnd: true},
}

// DeriveTimeline computes the milestone schedule between a contract
// date and a closing date. Every due date is clamped into the
// [contract, closing] range so short spans never produce milestones
// outside the transaction window. A closing date before the contract
// date yields no milestones.
func DeriveTimeline(contractDate, closingDate time.Time) []Milestone {
	span := int(closingDate.Sub(contractDate).Hours() / 24)
	if span < 0 {
		return nil
	}

	milestones := make([]Milestone, 0, len(milestoneSpecs))
	for _, spec := range milestoneSpecs {
		offset := spec.fixedDay
		switch {
		case spec.atEnd:
			offset = span
		case spec.fromEnd > 0:
			offset = span - spec.fromEnd
		case spec.proportion > 0:
			offset = int(float64(span) * spec.proportion)
		}
		if offset < 0 {
			offset = 0
		}
		if offset > span {
			offset = span
		}
		milestones = append(milestones, Milestone{
			Title:   spec.title,
			DueDate: contractDate.AddDate(0, 0, offset),
		})
	}
	return milestones
}
