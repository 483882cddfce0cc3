package access

import (
	"time"

	"github.com/yukikurage/team-task-api/internal/models"
)

// Actor is the authenticated caller as seen by the policy functions.
type Actor struct {
	ID   uint64
	Role models.Role
}

func ActorFor(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

func (a Actor) IsAdmin() bool    { return a.Role == models.RoleAdmin }
func (a Actor) IsManager() bool  { return a.Role == models.RoleManager }
func (a Actor) IsEmployee() bool { return a.Role == models.RoleEmployee }

// Privileged reports whether the actor is an admin or a manager.
func (a Actor) Privileged() bool { return a.IsAdmin() || a.IsManager() }

func assignedTo(userID uint64) Expr {
	return Or(
		Eq("tasks.assigned_to", userID),
		Exists("task_assignments ta", And(
			ColEq("ta.task_id", "tasks.id"),
			Eq("ta.user_id", userID),
		)),
	)
}

func managedTeamIDs(managerID uint64) (sel, from string, where Expr) {
	return "teams.id", "teams", Eq("teams.manager_id", managerID)
}

// TaskVisibility limits the tasks an actor may list or read. Employees see
// tasks where they are the primary assignee or in the assignee set.
func TaskVisibility(a Actor) Expr {
	if a.Privileged() {
		return True()
	}
	return assignedTo(a.ID)
}

// ReportTaskScope limits tasks that feed reports. Managers see tasks they
// created or that belong to a team they manage.
func ReportTaskScope(a Actor) Expr {
	switch {
	case a.IsAdmin():
		return True()
	case a.IsManager():
		sel, from, where := managedTeamIDs(a.ID)
		return Or(
			Eq("tasks.created_by", a.ID),
			InSubquery("tasks.team_id", sel, from, where),
		)
	default:
		return False()
	}
}

// ReportTeamScope limits teams that feed reports.
func ReportTeamScope(a Actor) Expr {
	switch {
	case a.IsAdmin():
		return True()
	case a.IsManager():
		return Eq("teams.manager_id", a.ID)
	default:
		return False()
	}
}

// ActivityScope limits activity log entries. Managers see entries they
// authored and entries about their teams or the tasks in their report scope.
func ActivityScope(a Actor) Expr {
	switch {
	case a.IsAdmin():
		return True()
	case a.IsManager():
		sel, from, where := managedTeamIDs(a.ID)
		return Or(
			Eq("activity_logs.user_id", a.ID),
			And(
				Eq("activity_logs.entity_type", string(models.EntityTeam)),
				InSubquery("activity_logs.entity_id", sel, from, where),
			),
			And(
				Eq("activity_logs.entity_type", string(models.EntityTask)),
				InSubquery("activity_logs.entity_id", "tasks.id", "tasks", ReportTaskScope(a)),
			),
		)
	default:
		return False()
	}
}

// Filters are the optional report and activity filters. They are always
// intersected with a scope, never used alone.
type Filters struct {
	TeamID *uint64
	TaskID *uint64
	UserID *uint64
	// Start is inclusive, End is exclusive.
	Start *time.Time
	End   *time.Time
}

// TaskFilter applies every filter to the tasks table, with dates matched
// against tasks.created_at.
func (f Filters) TaskFilter() Expr {
	return And(f.TaskFilterNoDates(), f.dateRange("tasks.created_at"))
}

// TaskFilterNoDates applies the entity filters only, for series that bucket
// on their own date column.
func (f Filters) TaskFilterNoDates() Expr {
	var parts []Expr
	if f.TeamID != nil {
		parts = append(parts, Eq("tasks.team_id", *f.TeamID))
	}
	if f.TaskID != nil {
		parts = append(parts, Eq("tasks.id", *f.TaskID))
	}
	if f.UserID != nil {
		parts = append(parts, assignedTo(*f.UserID))
	}
	return And(parts...)
}

// TeamFilter applies the team and user filters to the teams table.
func (f Filters) TeamFilter() Expr {
	var parts []Expr
	if f.TeamID != nil {
		parts = append(parts, Eq("teams.id", *f.TeamID))
	}
	if f.UserID != nil {
		parts = append(parts, Exists("team_members tm", And(
			ColEq("tm.team_id", "teams.id"),
			Eq("tm.user_id", *f.UserID),
		)))
	}
	if f.TaskID != nil {
		parts = append(parts, InSubquery("teams.id", "tasks.team_id", "tasks", Eq("tasks.id", *f.TaskID)))
	}
	return And(parts...)
}

// ActivityFilter applies the filters to activity log entries. A team filter
// matches entries about the team itself or about tasks in the team.
func (f Filters) ActivityFilter() Expr {
	var parts []Expr
	if f.UserID != nil {
		parts = append(parts, Eq("activity_logs.user_id", *f.UserID))
	}
	if f.TaskID != nil {
		parts = append(parts, And(
			Eq("activity_logs.entity_type", string(models.EntityTask)),
			Eq("activity_logs.entity_id", *f.TaskID),
		))
	}
	if f.TeamID != nil {
		parts = append(parts, Or(
			And(
				Eq("activity_logs.entity_type", string(models.EntityTeam)),
				Eq("activity_logs.entity_id", *f.TeamID),
			),
			And(
				Eq("activity_logs.entity_type", string(models.EntityTask)),
				InSubquery("activity_logs.entity_id", "tasks.id", "tasks", Eq("tasks.team_id", *f.TeamID)),
			),
		))
	}
	parts = append(parts, f.dateRange("activity_logs.created_at"))
	return And(parts...)
}

func (f Filters) dateRange(col string) Expr {
	var parts []Expr
	if f.Start != nil {
		parts = append(parts, Cmp(col, ">=", *f.Start))
	}
	if f.End != nil {
		parts = append(parts, Cmp(col, "<", *f.End))
	}
	return And(parts...)
}
