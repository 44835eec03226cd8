package command

import (
	"arceus-fleet/agent/internal/journal"
	"arceus-fleet/agent/internal/logger"
	"arceus-fleet/backend/app/events"
)

// Manager executes envelopes and reports every outcome upstream as a
// commandExecuted event, success or not.
type Manager struct {
	journal *journal.Journal
}

func NewManager(j *journal.Journal) *Manager { return &Manager{journal: j} }

// Dispatch runs the command named by env. Callers invoke it on its own
// goroutine: install handlers block through their progress stream.
func (m *Manager) Dispatch(env Envelope, ctx Context) {
	ctx.OperationID = env.OperationID

	h, ok := Get(env.Command)
	if !ok {
		logger.Errorf("Unknown command: %s", env.Command)
		m.finish(ctx, env, "", errUnknownCommand)
		return
	}

	var arg any
	if len(env.Argument) > 0 {
		var err error
		arg, err = h.DecodeArg(env.Argument)
		if err != nil {
			logger.Errorf("Decode arg failed for %s: %v", env.Command, err)
			m.finish(ctx, env, "", err)
			return
		}
	}

	logger.Infof("Received command=%s op=%s", env.Command, env.OperationID)
	msg, err := h.Execute(ctx, arg)
	m.finish(ctx, env, msg, err)
}

func (m *Manager) finish(ctx Context, env Envelope, msg string, err error) {
	success := err == nil
	if err != nil {
		msg = err.Error()
		logger.Errorf("Command %s failed: %v", env.Command, err)
	} else {
		logger.Infof("Command %s completed", env.Command)
	}
	if ctx.Emit != nil {
		ctx.Emit(&events.CommandExecuted{
			DeviceID: ctx.DeviceID,
			Result:   events.NewResult(env.Command, success, msg),
		})
	}
	if m.journal != nil {
		if jerr := m.journal.Record(env.Command, env.OperationID, success, msg); jerr != nil {
			logger.Warnf("Journal write failed: %v", jerr)
		}
	}
}
