package events

import (
	"log/slog"
	"time"

	"venuecal/internal/app/commands"
	"venuecal/internal/app/outbox"
	"venuecal/internal/app/queries"
	"venuecal/internal/domain/venueevent"
)

// Deps groups what the event handlers share.
type Deps struct {
	Events   venueevent.Repository
	Sync     Synchronizer
	Outbox   outbox.Outbox
	Location *time.Location
	Logger   *slog.Logger
}

func Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, d Deps) {
	commands.RegisterHandler(cmdBus, SaveEventCommand{}.Key(), NewSaveEventHandler(d.Events, d.Sync, d.Outbox, d.Logger))
	commands.RegisterHandler(cmdBus, DeleteEventCommand{}.Key(), NewDeleteEventHandler(d.Events, d.Sync, d.Outbox, d.Logger))
	commands.RegisterHandler(cmdBus, ChangeEventStatusCommand{}.Key(), NewChangeEventStatusHandler(d.Events, d.Sync, d.Outbox, d.Logger))
	commands.RegisterHandler(cmdBus, ReconcileCommand{}.Key(), &ReconcileHandler{Events: d.Events, Sync: d.Sync, Location: d.Location, Logger: d.Logger})

	queries.RegisterHandler(queryBus, GetEventQuery{}.Key(), &GetEventHandler{Events: d.Events})
	queries.RegisterHandler(queryBus, ListEventsQuery{}.Key(), &ListEventsHandler{Events: d.Events})
}
