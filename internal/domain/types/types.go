package types

// RideStatus — жизненный цикл поездки.
// Only two states exist: a ride is offered as ACTIVE and the driver can move
// it to COMPLETED exactly once. There is no transition out of COMPLETED; a
// deleted ride vanishes (an audit event is published instead of a tombstone).
type RideStatus string

func (s RideStatus) String() string {
	return string(s)
}

const (
	RideActive    RideStatus = "active"
	RideCompleted RideStatus = "completed"
)

// UserRole is the stored profile type, kept verbatim from the mobile client
// so migrated accounts keep their labels.
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RoleDriver    UserRole = "Motorista"
	RolePassenger UserRole = "Passageiro"
	RoleBoth      UserRole = "Ambos"
	RoleAdmin     UserRole = "Admin"
)

// Capabilities is what a role actually grants. Authorization checks use
// these flags, never string comparison on the role field.
type Capabilities struct {
	CanDrive      bool
	CanRide       bool
	CanAdminister bool
}

// CapabilitiesOf maps a stored role onto its capability set. Unknown roles
// get no capabilities.
func CapabilitiesOf(r UserRole) Capabilities {
	switch r {
	case RoleDriver:
		return Capabilities{CanDrive: true}
	case RolePassenger:
		return Capabilities{CanRide: true}
	case RoleBoth:
		return Capabilities{CanDrive: true, CanRide: true}
	case RoleAdmin:
		return Capabilities{CanDrive: true, CanRide: true, CanAdminister: true}
	default:
		return Capabilities{}
	}
}

// ReportStatus — статус жалобы
type ReportStatus string

const (
	ReportNew    ReportStatus = "new"
	ReportClosed ReportStatus = "closed"
)

// RideEvent names for the audit/event stream.
type RideEvent string

func (s RideEvent) String() string {
	return string(s)
}

const (
	EventRideCreated   RideEvent = "RIDE_CREATED"
	EventSeatReserved  RideEvent = "SEAT_RESERVED"
	EventSeatReleased  RideEvent = "SEAT_RELEASED"
	EventRideCompleted RideEvent = "RIDE_COMPLETED"
	EventRideDeleted   RideEvent = "RIDE_DELETED"
	EventRideRated     RideEvent = "RIDE_RATED"
)
