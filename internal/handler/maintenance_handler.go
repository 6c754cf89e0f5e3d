package handler

import (
	"net/http"

	"cms-collab-server/internal/collab"
	"cms-collab-server/pkg/response"
)

type MaintenanceHandler struct {
	manager *collab.Manager
}

func NewMaintenanceHandler(manager *collab.Manager) *MaintenanceHandler {
	return &MaintenanceHandler{manager: manager}
}

// Sweep triggers the cleanup passes on demand, outside the server's
// own tick.
func (h *MaintenanceHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	h.manager.Sweep()
	response.Success(w, map[string]string{"status": "completed"})
}
