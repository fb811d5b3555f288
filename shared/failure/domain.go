package failure

import "net/http"

// Domain failures returned by the reservation and channel-sync core. These are
// package-level sentinels so callers can match them with errors.Is.
var (
	// ErrRoomUnavailable is returned when a requested interval overlaps an
	// active booking for the room. User-correctable, never retried.
	ErrRoomUnavailable = &Failure{Code: http.StatusConflict, Message: "room is unavailable for the requested dates"}

	// ErrInvalidTransition is returned for a booking state transition that is
	// not allowed from the current state.
	ErrInvalidTransition = &Failure{Code: http.StatusConflict, Message: "booking state transition is not allowed"}

	// ErrMappingNotFound is returned when a channel event references an
	// external room id with no local mapping.
	ErrMappingNotFound = &Failure{Code: http.StatusNotFound, Message: "channel mapping not found"}

	// ErrDuplicateMapping is returned when a mapping would violate the
	// (channel, room) or (channel, external room) uniqueness rules.
	ErrDuplicateMapping = &Failure{Code: http.StatusConflict, Message: "channel mapping already exists"}

	// ErrDuplicateExternalRef is returned when a channel booking insert loses
	// a race with another delivery of the same event: the (channel, external
	// reference) row already exists, so the event is already applied.
	ErrDuplicateExternalRef = &Failure{Code: http.StatusConflict, Message: "channel booking reference already exists"}

	// ErrOverbooked is returned when a channel-originated booking conflicts
	// with authoritative local state. The conflict is alerted, never silently
	// resolved in the channel's favor.
	ErrOverbooked = &Failure{Code: http.StatusConflict, Message: "channel booking conflicts with a local reservation"}
)
