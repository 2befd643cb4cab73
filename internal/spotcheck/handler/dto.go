package handler

import (
	"fmt"
	"time"

	"spotcheck/internal/spotcheck/models"
)

// Wire DTOs. Content keys travel as flat string-field maps; the engine
// reconstructs the typed key from the reference type's content domain.

type reportRequest struct {
	ReferenceType     string               `json:"referenceType"`
	ReportDateTime    time.Time            `json:"reportDateTime"`
	ReferenceDateTime time.Time            `json:"referenceDateTime"`
	Notes             string               `json:"notes,omitempty"`
	Observations      []observationRequest `json:"observations"`
}

type observationRequest struct {
	Key                     map[string]string `json:"key"`
	ReferenceActiveDateTime time.Time         `json:"referenceActiveDateTime"`
	ObservedDateTime        time.Time         `json:"observedDateTime"`
	Mismatches              []mismatchRequest `json:"mismatches"`
}

type mismatchRequest struct {
	MismatchType  string   `json:"mismatchType"`
	ReferenceData string   `json:"referenceData"`
	ObservedData  string   `json:"observedData"`
	Notes         string   `json:"notes,omitempty"`
	IssueIDs      []string `json:"issueIds,omitempty"`
}

func (req *reportRequest) toModel() (*models.Report, error) {
	refType, err := models.ParseReferenceType(req.ReferenceType)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		ReferenceType:     refType,
		ReportDateTime:    req.ReportDateTime,
		ReferenceDateTime: req.ReferenceDateTime,
		Notes:             req.Notes,
	}
	for i, obs := range req.Observations {
		key, err := models.KeyFromFields(refType.ContentType(), obs.Key)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
		observation := models.Observation{
			Key: key,
			ReferenceID: models.ReferenceID{
				ReferenceType:  refType,
				ActiveDateTime: obs.ReferenceActiveDateTime,
			},
			ObservedDateTime: obs.ObservedDateTime,
		}
		for _, m := range obs.Mismatches {
			mismatchType, err := models.ParseMismatchType(m.MismatchType)
			if err != nil {
				return nil, fmt.Errorf("observation %d: %w", i, err)
			}
			observation.Mismatches = append(observation.Mismatches, models.ObservedMismatch{
				Type:          mismatchType,
				ReferenceData: m.ReferenceData,
				ObservedData:  m.ObservedData,
				Notes:         m.Notes,
				IssueIDs:      m.IssueIDs,
			})
		}
		report.Observations = append(report.Observations, observation)
	}
	return report, nil
}

type ignoreRequest struct {
	IgnoreLevel string `json:"ignoreLevel"`
}

type mismatchResponse struct {
	ID                      int64             `json:"id"`
	Key                     map[string]string `json:"key"`
	ContentType             string            `json:"contentType"`
	MismatchType            string            `json:"mismatchType"`
	ReferenceType           string            `json:"referenceType"`
	DataSource              string            `json:"dataSource"`
	Status                  string            `json:"status"`
	ReferenceData           string            `json:"referenceData"`
	ObservedData            string            `json:"observedData"`
	Notes                   string            `json:"notes,omitempty"`
	IgnoreLevel             string            `json:"ignoreLevel"`
	IssueIDs                []string          `json:"issueIds"`
	ReportDateTime          time.Time         `json:"reportDateTime"`
	ObservedDateTime        time.Time         `json:"observedDateTime"`
	ReferenceActiveDateTime time.Time         `json:"referenceActiveDateTime"`
}

func toMismatchResponse(m *models.Mismatch) mismatchResponse {
	issueIDs := m.IssueIDs
	if issueIDs == nil {
		issueIDs = []string{}
	}
	return mismatchResponse{
		ID:                      m.ID,
		Key:                     models.KeyFieldMap(m.Key),
		ContentType:             string(m.ContentType),
		MismatchType:            string(m.MismatchType),
		ReferenceType:           string(m.ReferenceType),
		DataSource:              string(m.DataSource),
		Status:                  string(m.Status),
		ReferenceData:           m.ReferenceData,
		ObservedData:            m.ObservedData,
		Notes:                   m.Notes,
		IgnoreLevel:             string(m.IgnoreLevel),
		IssueIDs:                issueIDs,
		ReportDateTime:          m.ReportDateTime,
		ObservedDateTime:        m.ObservedDateTime,
		ReferenceActiveDateTime: m.ReferenceActiveDateTime,
	}
}

type paginatedResponse[T any] struct {
	Total   int `json:"total"`
	Limit   int `json:"limit"`
	Offset  int `json:"offset"`
	Results []T `json:"results"`
}

type summaryResponse struct {
	DataSource string                    `json:"dataSource"`
	Counts     map[string]map[string]int `json:"counts"`
}

func toSummaryResponse(ds models.DataSource, summary *models.MismatchSummary) summaryResponse {
	counts := make(map[string]map[string]int)
	for key, n := range summary.Counts {
		ct := string(key.ContentType)
		if counts[ct] == nil {
			counts[ct] = make(map[string]int)
		}
		counts[ct][string(key.Status)] = n
	}
	return summaryResponse{DataSource: string(ds), Counts: counts}
}

type reportSummaryResponse struct {
	ReferenceType     string         `json:"referenceType"`
	ReportDateTime    time.Time      `json:"reportDateTime"`
	ReferenceDateTime time.Time      `json:"referenceDateTime"`
	Notes             string         `json:"notes,omitempty"`
	CountsByStatus    map[string]int `json:"countsByStatus"`
	Total             int            `json:"total"`
}

func toReportSummaryResponse(s *models.ReportSummary) reportSummaryResponse {
	counts := make(map[string]int, len(s.CountsByStatus))
	for status, n := range s.CountsByStatus {
		counts[string(status)] = n
	}
	return reportSummaryResponse{
		ReferenceType:     string(s.ID.ReferenceType),
		ReportDateTime:    s.ID.ReportDateTime,
		ReferenceDateTime: s.ReferenceDateTime,
		Notes:             s.Notes,
		CountsByStatus:    counts,
		Total:             s.Total(),
	}
}

type historyRowResponse struct {
	mismatchResponse
	Current bool `json:"current"`
}

type reportHistoryResponse struct {
	ReferenceType     string               `json:"referenceType"`
	ReportDateTime    time.Time            `json:"reportDateTime"`
	ReferenceDateTime time.Time            `json:"referenceDateTime"`
	Notes             string               `json:"notes,omitempty"`
	Rows              []historyRowResponse `json:"rows"`
}

func toReportHistoryResponse(h *models.ReportHistory) reportHistoryResponse {
	resp := reportHistoryResponse{
		ReferenceType:     string(h.Report.ReferenceType),
		ReportDateTime:    h.Report.ReportDateTime,
		ReferenceDateTime: h.Report.ReferenceDateTime,
		Notes:             h.Report.Notes,
		Rows:              make([]historyRowResponse, 0, len(h.Rows)),
	}
	for _, row := range h.Rows {
		resp.Rows = append(resp.Rows, historyRowResponse{
			mismatchResponse: toMismatchResponse(&row.Mismatch),
			Current:          row.Current,
		})
	}
	return resp
}
