package httpapi

import (
	"net/http"

	"github.com/Chandana25-sudo/coal-mine-breakdown-management-app/internal/domain"
)

// FormOptions 数据录入表单的下拉选项
type FormOptions struct {
	Executives []string             `json:"executives"`
	Shifts     []domain.ShiftOption `json:"shifts"`
	Machines   []string             `json:"machines"`
	Categories []string             `json:"categories"`
	Priorities []domain.Priority    `json:"priorities"`
}

// GetOptions GET /api/v1/options
func GetOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Ok(FormOptions{
		Executives: domain.Executives,
		Shifts:     domain.Shifts,
		Machines:   domain.Machines,
		Categories: domain.Categories,
		Priorities: domain.Priorities,
	}))
}
