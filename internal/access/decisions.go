package access

import "slices"

// Point decisions for single-record operations. Callers load the record
// first and pass the fields the decision depends on.

func managesTeam(a Actor, teamManagerID *uint64) bool {
	return teamManagerID != nil && *teamManagerID == a.ID
}

// CanManageTasks gates task create, update and delete.
func CanManageTasks(a Actor) bool {
	return a.Privileged()
}

// CanWriteTeamTask reports whether a may create or move a task into a team
// with the given manager. Admins may target any team.
func CanWriteTeamTask(a Actor, teamManagerID *uint64) bool {
	if a.IsAdmin() {
		return true
	}
	return a.IsManager() && managesTeam(a, teamManagerID)
}

// CanViewTask mirrors TaskVisibility for a single loaded task.
func CanViewTask(a Actor, primaryAssignee *uint64, assigneeIDs []uint64) bool {
	if a.Privileged() {
		return true
	}
	if primaryAssignee != nil && *primaryAssignee == a.ID {
		return true
	}
	return slices.Contains(assigneeIDs, a.ID)
}

// CanUpdateTaskStatus lets privileged actors update any status and employees
// only tasks where they are the primary assignee.
func CanUpdateTaskStatus(a Actor, primaryAssignee *uint64) bool {
	if a.Privileged() {
		return true
	}
	return primaryAssignee != nil && *primaryAssignee == a.ID
}

// CanViewTeamDetail lets privileged actors see every team's members and
// employees only teams they belong to.
func CanViewTeamDetail(a Actor, isMember bool) bool {
	return a.Privileged() || isMember
}

func CanCreateTeam(a Actor) bool { return a.Privileged() }

func CanUpdateTeam(a Actor) bool { return a.Privileged() }

func CanDeleteTeam(a Actor) bool { return a.IsAdmin() }

// CanManageMembers gates adding and removing team members.
func CanManageMembers(a Actor, teamManagerID *uint64) bool {
	return a.IsAdmin() || managesTeam(a, teamManagerID)
}

func CanListUsers(a Actor) bool  { return a.Privileged() }
func CanAdminUsers(a Actor) bool { return a.IsAdmin() }

// CanViewUser allows self access and admin access.
func CanViewUser(a Actor, userID uint64) bool {
	return a.IsAdmin() || a.ID == userID
}

func CanChangeRole(a Actor) bool { return a.IsAdmin() }

func CanViewReports(a Actor) bool { return a.Privileged() }
