package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"stridesync/internal/config"
	"stridesync/internal/database"
)

// GroupsHandler serves group management endpoints
type GroupsHandler struct {
	db     *database.DB
	config *config.Config
	logger *slog.Logger
}

// NewGroupsHandler creates a new groups handler
func NewGroupsHandler(db *database.DB, cfg *config.Config) *GroupsHandler {
	return &GroupsHandler{
		db:     db,
		config: cfg,
		logger: slog.Default(),
	}
}

// HandleGroups handles GET and POST /api/groups
func (h *GroupsHandler) HandleGroups(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.config, h.db, h.logger)
	if user == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.listGroups(w)
	case http.MethodPost:
		h.createGroup(w, r, user)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGroupDetail handles GET/DELETE /api/groups/{id} and
// POST /api/groups/{id}/join, POST /api/groups/{id}/leave
func (h *GroupsHandler) HandleGroupDetail(w http.ResponseWriter, r *http.Request) {
	user := authenticate(w, r, h.config, h.db, h.logger)
	if user == nil {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/groups/")
	parts := strings.SplitN(rest, "/", 2)

	groupID, ok := parsePathID(parts[0])
	if !ok {
		writeError(w, h.logger, http.StatusBadRequest, "invalid group id")
		return
	}

	group, err := h.db.GetGroup(groupID)
	if err != nil {
		h.logger.Error("Failed to get group", "group_id", groupID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to get group")
		return
	}
	if group == nil {
		writeError(w, h.logger, http.StatusNotFound, "group not found")
		return
	}

	if len(parts) == 2 {
		h.handleMembership(w, r, user, group, parts[1])
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, h.logger, http.StatusOK, group)
	case http.MethodDelete:
		h.deleteGroup(w, user, group)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *GroupsHandler) listGroups(w http.ResponseWriter) {
	groups, err := h.db.ListGroups()
	if err != nil {
		h.logger.Error("Failed to list groups", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list groups")
		return
	}
	if groups == nil {
		groups = []*database.Group{}
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{"groups": groups})
}

func (h *GroupsHandler) createGroup(w http.ResponseWriter, r *http.Request, user *database.User) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, h.logger, http.StatusBadRequest, "group name is required")
		return
	}

	group := &database.Group{
		Name:      req.Name,
		CreatedBy: user.UserID,
	}
	if err := h.db.CreateGroup(group); err != nil {
		h.logger.Error("Failed to create group", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to create group")
		return
	}

	// The creator starts as a member
	if err := h.db.JoinGroup(user.UserID, group.GroupID); err != nil {
		h.logger.Error("Failed to add creator to group", "group_id", group.GroupID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to create group")
		return
	}

	h.logger.Info("Created group", "group_id", group.GroupID, "name", group.Name, "created_by", user.UserID)

	writeJSON(w, h.logger, http.StatusCreated, group)
}

// deleteGroup removes a group. Only the creator or an admin may delete.
func (h *GroupsHandler) deleteGroup(w http.ResponseWriter, user *database.User, group *database.Group) {
	if group.CreatedBy != user.UserID && !user.IsAdmin {
		writeError(w, h.logger, http.StatusForbidden, "only the group creator or an admin can delete a group")
		return
	}

	if err := h.db.DeleteGroup(group.GroupID); err != nil {
		h.logger.Error("Failed to delete group", "group_id", group.GroupID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to delete group")
		return
	}

	h.logger.Info("Deleted group", "group_id", group.GroupID, "deleted_by", user.UserID)

	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *GroupsHandler) handleMembership(w http.ResponseWriter, r *http.Request, user *database.User, group *database.Group, action string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "join":
		if err := h.db.JoinGroup(user.UserID, group.GroupID); err != nil {
			h.logger.Error("Failed to join group", "group_id", group.GroupID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "failed to join group")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "joined"})
	case "leave":
		if err := h.db.LeaveGroup(user.UserID, group.GroupID); err != nil {
			h.logger.Error("Failed to leave group", "group_id", group.GroupID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "failed to leave group")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "left"})
	default:
		writeError(w, h.logger, http.StatusNotFound, "unknown group action")
	}
}
