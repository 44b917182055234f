package labhelp

import (
	"github.com/Raytar/labhelp/models"
	"github.com/Raytar/labhelp/protocol"
)

const syncTimer = "sync"

// startSync asks the running TAs for their tables. The TA announces itself
// to the groups once a snapshot has been applied, or when none arrived
// within the sync timeout.
func (t *Assistant) startSync() {
	t.a.publish(t.a.topics.TAUpdate(), protocol.RequestUpdateOfTables, protocol.Empty{})
	t.a.schedule(syncTimer, t.syncTimeout, t.syncTimedOut)
}

func (t *Assistant) syncTimedOut() {
	if t.announced {
		return
	}
	t.a.log.Infoln("No tables received from other TAs, starting with empty tables")
	t.announce()
}

func (t *Assistant) announce() {
	if t.announced {
		return
	}
	t.announced = true
	t.a.publish(t.a.topics.TAReadyAll(), protocol.TAPresentAll, protocol.TABody{TA: t.name})
}

// handleRequestUpdateOfTables sends this TA's tables to a joining TA.
// A TA with nothing to share stays silent.
func (t *Assistant) handleRequestUpdateOfTables(env *protocol.Envelope) error {
	if t.state.Empty() {
		return nil
	}
	t.a.log.Infoln("Sending tables to", env.Header)
	t.a.publish(t.a.topics.TA(env.Header), protocol.TAUpdateTables, t.state.Snapshot())
	return nil
}

// handleUpdateTables applies the first snapshot received. Every later
// snapshot is ignored.
func (t *Assistant) handleUpdateTables(env *protocol.Envelope) error {
	if t.synced {
		t.a.log.Debugln("Ignoring tables from", env.Header+", already synced")
		return nil
	}
	var snap models.Snapshot
	if err := env.Bind(&snap); err != nil {
		return err
	}
	t.synced = true
	t.a.cancelTimer(syncTimer)
	t.state.Restore(snap)
	t.a.log.Infof("Synced tables from %s: %d tasks, %d queued, %d groups",
		env.Header, len(snap.Tasks), len(snap.Queue), len(snap.Groups))
	t.notifyGroups()
	t.obs.OnQueueChanged(clone(t.state.Queue))
	t.announce()
	return nil
}
