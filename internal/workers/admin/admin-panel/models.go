// internal/workers/admin/admin-panel/models.go
package adminpanel

import "applicant-gate/internal/models"

type Stats struct {
	Approved int  `json:"approved"`
	Rejected int  `json:"rejected"`
	Cached   bool `json:"-"`
}

// Page is one screen of the approved listing. Page numbers start at 0.
type Page struct {
	Items   []models.ApprovedApplicant `json:"items"`
	Page    int                        `json:"page"`
	HasNext bool                       `json:"hasNext"`
}
