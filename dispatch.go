package labhelp

import (
	"errors"

	"github.com/Raytar/labhelp/bus"
	"github.com/Raytar/labhelp/protocol"
)

type handler func(env *protocol.Envelope) error

// commandMap lists the commands an actor role reacts to.
type commandMap map[protocol.Command]handler

// dispatch returns a bus handler that decodes envelopes and runs the matching
// command. Malformed and foreign messages are dropped, as are the actor's own
// broadcasts. Handler errors are logged and never reach the bus.
func (a *actor) dispatch(commands commandMap) bus.Handler {
	return func(topic string, payload []byte) {
		env, err := protocol.Decode(payload)
		if errors.Is(err, protocol.ErrUnknownCommand) {
			a.log.Debugf("Ignoring unknown command on %s: %v", topic, err)
			return
		}
		if err != nil {
			a.log.Errorf("Failed to decode message on %s: %v", topic, err)
			return
		}
		cmd, ok := commands[env.Command]
		if !ok {
			a.log.Debugf("Ignoring %s on %s", env.Command, topic)
			return
		}
		if env.Header == a.slug {
			return
		}
		a.log.Debugf("Received %s from %s", env.Command, env.Header)
		if err := cmd(env); err != nil {
			a.log.Errorf("Failed to handle %s from %s: %v", env.Command, env.Header, err)
		}
	}
}
