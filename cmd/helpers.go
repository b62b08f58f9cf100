package main

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
)

func (app *application) serverError(w http.ResponseWriter, err error) {
	trace := err.Error() + "\n" + string(debug.Stack())
	app.errorLog.Output(2, trace)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := app.db.PingContext(r.Context()); err != nil {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// leveledLogger adapts the two std loggers to the Infof/Errorf interfaces the
// worker, listener and due-check handler expect.
type leveledLogger struct {
	info *log.Logger
	err  *log.Logger
}

func (l *leveledLogger) Infof(format string, args ...interface{}) {
	l.info.Printf(format, args...)
}

func (l *leveledLogger) Errorf(format string, args ...interface{}) {
	l.err.Printf(format, args...)
}
