package service

import (
	"CloudHunter/internal/delivery"
	"CloudHunter/internal/identity"
	"CloudHunter/internal/shortener"
	"CloudHunter/internal/store"
	"CloudHunter/model"
	"context"
	"time"
)

// IncidentReporter records flows that left external state inconsistent.
type IncidentReporter interface {
	Report(ctx context.Context, incident model.UploadIncident)
}

// Locker serializes work on one key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// App wires the flows to their collaborators.
type App struct {
	Identity  identity.Provider
	Store     store.Store
	Delivery  delivery.Client
	Shortener shortener.Shortener
	Incidents IncidentReporter
	Locker    Locker

	MaxUploadSize int64
	Now           func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
