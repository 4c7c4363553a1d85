package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/api"
	"github.com/linesmerrill/legal-case-api/cases"
	"github.com/linesmerrill/legal-case-api/config"
	"github.com/linesmerrill/legal-case-api/databases"
	"github.com/linesmerrill/legal-case-api/models"
	"github.com/linesmerrill/legal-case-api/storage"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router  *mux.Router
	Config  config.Config
	Storage storage.Provider
	Events  *EventHub

	dbHelper databases.DatabaseHelper
	client   databases.ClientHelper
}

// NewApp wires an App around an already connected database
func NewApp(c config.Config, db databases.DatabaseHelper, store storage.Provider) *App {
	a := &App{
		Config:   c,
		Storage:  store,
		Events:   NewEventHub(c.ClientURL),
		dbHelper: db,
	}
	a.initializeRoutes()
	return a
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	userDB := databases.NewUserDatabase(a.dbHelper)
	auth := api.NewAuthenticator(&a.Config, userDB)

	c := Case{
		DB:       databases.NewCaseDatabase(a.dbHelper),
		Numberer: cases.Numberer{Counters: databases.NewCounterDatabase(a.dbHelper)},
		Storage:  a.Storage,
		Events:   a.Events,
	}
	u := User{DB: userDB, Auth: auth}
	up := UserPreferences{DB: databases.NewUserPreferencesDatabase(a.dbHelper)}
	f := Files{Storage: a.Storage}

	timeout := a.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	withTimeout := api.TimeoutMiddleware(timeout)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(api.NotFoundHandler)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.HandleFunc("/", rootHandler).Methods("GET")

	// long lived, so it stays outside the request timeout
	r.Handle("/api/cases/events", auth.Optional(http.HandlerFunc(a.Events.EventsHandler))).Methods("GET")

	// streamed straight to the client, so only the context carries the timeout
	withDeadline := api.DeadlineMiddleware(timeout)
	r.Handle("/uploads/{filename}", withDeadline(http.HandlerFunc(f.PreviewHandler))).Methods("GET")
	r.Handle("/download/{filename}", withDeadline(http.HandlerFunc(f.DownloadHandler))).Methods("GET")

	apiCreate := r.PathPrefix("/api").Subrouter()
	apiCreate.Use(withTimeout)

	apiCreate.Handle("/auth/signup", http.HandlerFunc(u.SignupHandler)).Methods("POST")
	apiCreate.Handle("/auth/login", http.HandlerFunc(u.LoginHandler)).Methods("POST")
	apiCreate.Handle("/auth/profile", auth.Middleware(http.HandlerFunc(u.ProfileHandler))).Methods("GET")
	apiCreate.Handle("/auth/profile", auth.Middleware(http.HandlerFunc(u.UpdateProfileHandler))).Methods("PUT")
	apiCreate.Handle("/auth/account", auth.Middleware(http.HandlerFunc(u.UpdateAccountHandler))).Methods("PUT")
	apiCreate.Handle("/auth/preferences", auth.Middleware(http.HandlerFunc(up.GetUserPreferencesHandler))).Methods("GET")
	apiCreate.Handle("/auth/preferences", auth.Middleware(http.HandlerFunc(up.UpdateUserPreferencesHandler))).Methods("PUT")

	apiCreate.Handle("/cases", auth.Optional(http.HandlerFunc(c.CasesHandler))).Methods("GET")
	apiCreate.Handle("/cases", auth.Optional(http.HandlerFunc(c.CreateCaseHandler))).Methods("POST")
	apiCreate.Handle("/cases/export", auth.Optional(http.HandlerFunc(c.ExportCasesHandler))).Methods("GET")
	apiCreate.Handle("/cases/hearings/upcoming", auth.Optional(http.HandlerFunc(c.UpcomingHearingsHandler))).Methods("GET")
	apiCreate.Handle("/cases/{case_id}", auth.Optional(http.HandlerFunc(c.CaseByIDHandler))).Methods("GET")
	apiCreate.Handle("/cases/{case_id}", auth.Optional(http.HandlerFunc(c.UpdateCaseHandler))).Methods("PUT")
	apiCreate.Handle("/cases/{case_id}", auth.Optional(http.HandlerFunc(c.DeleteCaseHandler))).Methods("DELETE")
	apiCreate.Handle("/cases/{case_id}/hearing", auth.Optional(http.HandlerFunc(c.UpdateHearingHandler))).Methods("PATCH")

	return r
}

// Handler wraps the router with CORS, panic recovery and request logging
func (a *App) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{a.Config.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", api.RequestIDHeader},
		ExposedHeaders:   []string{api.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
	})
	return api.LoggingMiddleware(api.RecoveryMiddleware(c.Handler(a.Router)))
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize(ctx context.Context) error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	err = client.Connect(ctx)
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	zap.S().Info("legal-case-api has connected to the database")

	idxCtx, cancel := api.WithQueryTimeout(ctx)
	defer cancel()
	if err := databases.NewCaseDatabase(a.dbHelper).EnsureIndexes(idxCtx); err != nil {
		return err
	}
	if err := databases.NewUserDatabase(a.dbHelper).EnsureIndexes(idxCtx); err != nil {
		return err
	}

	if a.Storage == nil {
		a.Storage, err = storage.New(ctx, &a.Config)
		if err != nil {
			return err
		}
	}
	if a.Events == nil {
		a.Events = NewEventHub(a.Config.ClientURL)
	}

	// initialize api router
	a.initializeRoutes()
	return nil
}

// DB exposes the database handle for jobs that run beside the server
func (a *App) DB() databases.DatabaseHelper {
	return a.dbHelper
}

// Close disconnects from the database
func (a *App) Close(ctx context.Context) error {
	if a.Events != nil {
		a.Events.Close()
	}
	if a.client == nil {
		return nil
	}
	return a.client.Disconnect(ctx)
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"status":"API is running..."}`)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
