package auth

const (
	RoleHR       = "HR"
	RoleEmployee = "Employee"
)

const (
	PermEmployeesRead      = "employees.read"
	PermEmployeesWrite     = "employees.write"
	PermProfileRead        = "profile.read"
	PermProfileWrite       = "profile.write"
	PermOrgRead            = "org.read"
	PermOrgWrite           = "org.write"
	PermLeaveRead          = "leave.read"
	PermLeaveWrite         = "leave.write"
	PermLeaveApprove       = "leave.approve"
	PermApplicationsRead   = "applications.read"
	PermApplicationsWrite  = "applications.write"
	PermAnnouncementsRead  = "announcements.read"
	PermAnnouncementsWrite = "announcements.write"
	PermDashboardHR        = "dashboard.hr"
	PermDashboardSelf      = "dashboard.self"
	PermUsersRegister      = "users.register"
	PermAuditRead          = "audit.read"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermProfileRead,
	PermProfileWrite,
	PermOrgRead,
	PermOrgWrite,
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermApplicationsRead,
	PermApplicationsWrite,
	PermAnnouncementsRead,
	PermAnnouncementsWrite,
	PermDashboardHR,
	PermDashboardSelf,
	PermUsersRegister,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermProfileRead,
		PermProfileWrite,
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermAnnouncementsRead,
		PermDashboardSelf,
	},
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermProfileRead,
		PermProfileWrite,
		PermOrgRead,
		PermOrgWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermApplicationsRead,
		PermApplicationsWrite,
		PermAnnouncementsRead,
		PermAnnouncementsWrite,
		PermDashboardHR,
		PermDashboardSelf,
		PermUsersRegister,
		PermAuditRead,
	},
}

func KnownRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
