package models

// Role is the platform role of an operator.
type Role string

const (
	RolePlatform   Role = "platform"
	RoleGovernment Role = "government"
	RoleOwner      Role = "owner"
	RoleCustodian  Role = "custodian"
	RoleBuyer      Role = "buyer"
)

// Actor identifies who invokes an engine operation.
type Actor struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	EntityID string `json:"entity_id"`
}

// SystemActor is used by scheduled jobs and provider callbacks.
func SystemActor(platformEntityID string) Actor {
	return Actor{Username: "system", Role: RolePlatform, EntityID: platformEntityID}
}
