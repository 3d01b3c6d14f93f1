package amqp

import (
	"encoding/json"
	"time"

	"expensereport/internal/core"
)

// ReportRequestMessage asks the worker to (re)generate the monthly report of
// a user. ReferenceTime selects the month; zero means "now" at the worker.
type ReportRequestMessage struct {
	UserID        string    `json:"userId"`
	ReferenceTime time.Time `json:"referenceTime"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewReportRequestMessage creates a request for the month containing ref.
func NewReportRequestMessage(userID string, ref time.Time) *ReportRequestMessage {
	return &ReportRequestMessage{
		UserID:        userID,
		ReferenceTime: ref,
		Timestamp:     time.Now(),
	}
}

func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestMessageFromJSON parses a request body
func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportGeneratedMessage announces a stored monthly report. TotalSpent is a
// fixed two-decimal string so consumers never see float rounding.
type ReportGeneratedMessage struct {
	ReportID    int64     `json:"reportId"`
	UserID      string    `json:"userId"`
	Month       string    `json:"month"`
	TotalSpent  string    `json:"totalSpent"`
	TopCategory string    `json:"topCategory,omitempty"`
	Created     bool      `json:"created"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewReportGeneratedMessage builds the event for a stored report
func NewReportGeneratedMessage(r core.MonthlyReport, created bool) *ReportGeneratedMessage {
	return &ReportGeneratedMessage{
		ReportID:    r.ID,
		UserID:      r.UserID,
		Month:       r.Month,
		TotalSpent:  core.FormatAmount(r.TotalSpent),
		TopCategory: r.TopCategory,
		Created:     created,
		Timestamp:   time.Now(),
	}
}

func (m *ReportGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportGeneratedMessageFromJSON parses an event body
func ReportGeneratedMessageFromJSON(data []byte) (*ReportGeneratedMessage, error) {
	var msg ReportGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
