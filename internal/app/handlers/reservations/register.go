package reservations

import (
	"venuecal/internal/app/commands"
	"venuecal/internal/app/queries"
)

// Register wires the reservation handlers onto both buses.
func Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, slots Slots) {
	commands.RegisterHandler(cmdBus, CreateReservationCommand{}.Key(), &CreateReservationHandler{Slots: slots})
	commands.RegisterHandler(cmdBus, UpdateReservationCommand{}.Key(), &UpdateReservationHandler{Slots: slots})
	commands.RegisterHandler(cmdBus, DeleteReservationCommand{}.Key(), &DeleteReservationHandler{Slots: slots})
	commands.RegisterHandler(cmdBus, ReleaseEventSlotsCommand{}.Key(), &ReleaseEventSlotsHandler{Slots: slots})

	queries.RegisterHandler(queryBus, CheckAvailabilityQuery{}.Key(), &CheckAvailabilityHandler{Slots: slots})
	queries.RegisterHandler(queryBus, ListReservationsQuery{}.Key(), &ListReservationsHandler{Slots: slots})
	queries.RegisterHandler(queryBus, GetReservationQuery{}.Key(), &GetReservationHandler{Slots: slots})
}
