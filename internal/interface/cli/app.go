package cli

import (
	"fmt"

	"github.com/neilberkman/docchat/internal/core/config"
	"github.com/neilberkman/docchat/internal/core/db"
	"github.com/neilberkman/docchat/internal/core/llm"
	"github.com/neilberkman/docchat/internal/core/logging"
	"github.com/neilberkman/docchat/internal/core/session"
	"github.com/neilberkman/docchat/internal/core/speech"
	"github.com/neilberkman/docchat/internal/core/upload"
	"github.com/neilberkman/docchat/pkg/selection"
)

// app is everything a chat surface needs, built from config
type app struct {
	database *db.DB
	ctrl     *session.Controller
	recorder *speech.Recorder
	selOpts  selection.Options
}

func openApp(c *config.Config) (*app, error) {
	database, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	responder, err := newResponder(c)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	a := &app{
		database: database,
		recorder: speech.NewRecorder(speech.NewCommand(c.SpeechCommand)),
		selOpts:  selection.Options{Strict: c.StrictSelection},
	}

	a.ctrl = session.NewController(session.Options{
		Backend:   newBackend(c, database, a.sessionID),
		Responder: responder,
		Archive:   database,
	})

	logging.Info().
		Str("session", a.ctrl.SessionID()).
		Str("backend", c.Backend).
		Str("responder", responder.Name()).
		Bool("voice", a.recorder.Available()).
		Msg("session started")
	return a, nil
}

// sessionID lets the local backend tag documents before ctrl exists
func (a *app) sessionID() string {
	if a.ctrl == nil {
		return ""
	}
	return a.ctrl.SessionID()
}

func (a *app) Close() {
	_ = a.recorder.Stop()
	a.ctrl.Close()
	_ = a.database.Close()
}

func newBackend(c *config.Config, database *db.DB, sessionID func() string) upload.Backend {
	if c.Backend == config.BackendLocal {
		return upload.NewLocal(c.LibraryDir, database, sessionID)
	}
	return upload.NewSimulated(c.Tick, c.ProgressStep, c.ProcessingDelay)
}

func newResponder(c *config.Config) (llm.Responder, error) {
	var r llm.Responder
	switch c.Responder {
	case config.ResponderOpenAI:
		o, err := llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:  c.OpenAIAPIKey,
			BaseURL: c.OpenAIBaseURL,
			Model:   c.OpenAIModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create responder: %w", err)
		}
		r = o
	default:
		r = llm.NewStub(c.AnswerTemplate, c.ResponseDelay)
	}
	return llm.WithRetry(r, c.ResponseRetries, c.ResponseTimeout), nil
}
