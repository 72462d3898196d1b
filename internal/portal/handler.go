package portal

import (
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/muurk/zoothing/internal/identity"
	"github.com/muurk/zoothing/internal/logging"
	"github.com/muurk/zoothing/internal/version"
	"github.com/muurk/zoothing/internal/zoo"
)

// Query parameters of the settings submission
const (
	ParamThing  = "thing"
	ParamSSID   = "ssid"
	ParamPass   = "pass"
	ParamAPPass = "appass"
)

// NotFoundBody is the body of every response to an unknown route
const NotFoundBody = "not found"

// Backend is the connection manager the portal configures.
type Backend interface {
	Identity() identity.DeviceIdentity
	ApplySettings(sub identity.Submission) string
}

// StatusSource feeds the /events status stream.
type StatusSource interface {
	Subscribe() (<-chan zoo.Status, func())
}

// The form carries the stored credentials in clear text; the device AP is the
// only network it is served on.
var settingsForm = template.Must(template.New("settings").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>{{.Name}}</title>
</head>
<body>
<form action=/set method="get">
{{.Logo}}
name: <input type=text name="thing" value="{{.Name}}"><br>
WiFi: <input type=text name="ssid" value="{{.SSID}}"><br>
pass: <input type=password name="pass" value="{{.Passphrase}}"><br>
AP pass: <input type=password name="appass" value="{{.APPassphrase}}"><br>
<p><input type="submit"></p>
</form>
</body>
</html>
`))

type formData struct {
	identity.DeviceIdentity
	Logo template.HTML
}

type handler struct {
	backend Backend
	events  StatusSource
	done    <-chan struct{}
}

// NewHandler returns the portal routes. A nil events source leaves /events
// unrouted. done, when non-nil, ends open /events streams once closed.
func NewHandler(backend Backend, events StatusSource, done <-chan struct{}) http.Handler {
	h := &handler{backend: backend, events: events, done: done}

	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/", h.handleForm)
	r.Get("/set", h.handleSet)
	if events != nil {
		r.Get("/events", h.handleEvents)
	}
	return r
}

func (h *handler) handleForm(w http.ResponseWriter, _ *http.Request) {
	data := formData{
		DeviceIdentity: h.backend.Identity(),
		Logo:           template.HTML(version.Banner("<br>")),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := settingsForm.Execute(w, data); err != nil {
		logging.Error("Failed to render settings form", zap.Error(err))
	}
}

func (h *handler) handleSet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sub := identity.Submission{
		Name:         q.Get(ParamThing),
		SSID:         q.Get(ParamSSID),
		Passphrase:   q.Get(ParamPass),
		APPassphrase: q.Get(ParamAPPass),
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if sub.Name == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("missing " + ParamThing))
		return
	}

	resp := h.backend.ApplySettings(sub)
	_, _ = w.Write([]byte(resp))
	logging.Info(resp)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(NotFoundBody))
}

// requestLogger logs every request once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, status)
		logging.Debug("Request served", zap.Duration("duration", time.Since(start)))
	})
}
