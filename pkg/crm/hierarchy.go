package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dashboard-engine/internal/record"
)

// RoleHierarchy resolves a manager's transitive subordinates from the
// Salesforce UserRole tree. It implements scope.HierarchyLookup; the org ID
// is implicit in the authenticated client's connection.
type RoleHierarchy struct {
	client Client
}

// NewRoleHierarchy creates a hierarchy lookup over the given client.
func NewRoleHierarchy(client Client) *RoleHierarchy {
	return &RoleHierarchy{client: client}
}

// Subordinates returns the user IDs of everyone below userID in the role
// tree. A user with no role, or a leaf role, has no subordinates.
func (h *RoleHierarchy) Subordinates(ctx context.Context, userID, orgID string) ([]string, error) {
	viewer, err := h.client.QueryRecords(ctx, fmt.Sprintf(
		"SELECT Id, UserRoleId FROM User WHERE Id = '%s' LIMIT 1", escapeSoql(userID)))
	if err != nil {
		return nil, eris.Wrap(err, "crm: hierarchy viewer lookup")
	}
	if len(viewer) == 0 {
		return nil, eris.Errorf("crm: hierarchy: no such user %s", userID)
	}
	roleID, ok := viewer[0].GetString("UserRoleId")
	if !ok || roleID == "" {
		zap.L().Debug("crm: viewer has no role, no subordinates",
			zap.String("user_id", userID),
			zap.String("org_id", orgID),
		)
		return nil, nil
	}

	roles, err := h.client.QueryRecords(ctx, "SELECT Id, ParentRoleId FROM UserRole")
	if err != nil {
		return nil, eris.Wrap(err, "crm: hierarchy role tree")
	}

	descendantRoles := descendants(roles, roleID)
	if len(descendantRoles) == 0 {
		return nil, nil
	}

	quoted := make([]string, len(descendantRoles))
	for i, id := range descendantRoles {
		quoted[i] = "'" + escapeSoql(id) + "'"
	}
	users, err := h.client.QueryRecords(ctx, fmt.Sprintf(
		"SELECT Id FROM User WHERE IsActive = true AND UserRoleId IN (%s)",
		strings.Join(quoted, ", ")))
	if err != nil {
		return nil, eris.Wrap(err, "crm: hierarchy subordinate users")
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		if id := u.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// descendants walks the role tree breadth-first from rootRole, excluding the
// root itself.
func descendants(roles []record.Record, rootRole string) []string {
	children := make(map[string][]string, len(roles))
	for _, r := range roles {
		parent, ok := r.GetString("ParentRoleId")
		if !ok || parent == "" {
			continue
		}
		if id := r.ID(); id != "" {
			children[parent] = append(children[parent], id)
		}
	}

	var out []string
	seen := map[string]bool{rootRole: true}
	queue := []string{rootRole}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}
