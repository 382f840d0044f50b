package enums

type Role string

const (
	RoleFreelancer Role = "freelancer"
	RoleMentor     Role = "mentor"
	RoleClient     Role = "client"
	RoleAdmin      Role = "admin"
)
