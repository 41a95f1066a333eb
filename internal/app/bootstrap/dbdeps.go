// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// It also carries the stop funcs of background goroutines started by later
// hooks, since WAFFLE passes DBDeps by value to every hook after ConnectDB.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	stops *stopList
}

// NewDBDeps wraps a connected client.
func NewDBDeps(client *mongo.Client, db *mongo.Database) DBDeps {
	return DBDeps{MongoClient: client, MongoDatabase: db, stops: &stopList{}}
}

// OnStop registers fn to run during Shutdown. Funcs run in reverse order.
func (d DBDeps) OnStop(fn func()) {
	if d.stops == nil {
		return
	}
	d.stops.mu.Lock()
	defer d.stops.mu.Unlock()
	d.stops.fns = append(d.stops.fns, fn)
}

// StopBackground runs and clears the registered stop funcs.
func (d DBDeps) StopBackground() {
	if d.stops == nil {
		return
	}
	d.stops.mu.Lock()
	fns := d.stops.fns
	d.stops.fns = nil
	d.stops.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

type stopList struct {
	mu  sync.Mutex
	fns []func()
}
