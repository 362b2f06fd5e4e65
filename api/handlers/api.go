package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/config"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/notifications"
	"github.com/gramasevaka/gs-portal-api/payments"
	"github.com/gramasevaka/gs-portal-api/storage"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

const (
	startupTimeout = 30 * time.Second
	requestTimeout = 60 * time.Second
	uploadsPrefix  = "/uploads/"
)

var (
	citizen = api.Authorize(workflow.RoleCitizen)
	officer = api.Authorize(workflow.RoleOfficer)
	anyRole = api.Authorize(workflow.RoleCitizen, workflow.RoleOfficer)
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router *mux.Router
	Config config.Config
	Store  storage.Store
	Feed   *LiveFeed

	client   databases.ClientHelper
	dbHelper databases.DatabaseHelper
	localDir string
}

// Database returns the connected database. It is nil before Initialize.
func (a *App) Database() databases.DatabaseHelper { return a.dbHelper }

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	users := databases.NewUserDatabase(a.dbHelper)
	services := databases.NewServiceDatabase(a.dbHelper)
	requests := databases.NewServiceRequestDatabase(a.dbHelper)

	tokens := api.NewTokenIssuer(a.Config.JWTSecret, a.Config.TokenTTL)
	m := &api.MiddlewareDB{DB: users, Tokens: tokens}
	m.SetupGoGuardian(context.Background(), a.Config.AuthCacheTTL)

	if a.Feed == nil {
		a.Feed = NewLiveFeed(a.Config.AllowedOrigin)
	}
	d := Deps{
		Users:    users,
		Counters: databases.NewCounterDatabase(a.dbHelper),
		Store:    a.Store,
		Notifier: notifications.NewSendGrid(a.Config.SendGridAPIKey, a.Config.MailFrom),
		Payments: payments.NewStripe(a.Config.StripeSecretKey),
		Feed:     a.Feed,
		Currency: a.Config.Currency,
	}

	auth := Auth{Deps: d, Tokens: tokens, Guard: m}
	svc := Service{Deps: d, DB: services, RDB: requests}
	sr := NewServiceRequest(d, requests, services)
	ap := NewAppointment(d, databases.NewAppointmentDatabase(a.dbHelper))
	em := NewEmergency(d, databases.NewEmergencyDatabase(a.dbHelper))
	lc := NewLegalCase(d, databases.NewLegalCaseDatabase(a.dbHelper))
	forum := NewForum(d, databases.NewDiscussionDatabase(a.dbHelper), databases.NewReplyDatabase(a.dbHelper))
	loc := Location{DB: databases.NewLocationDatabase(a.dbHelper)}
	ann := Announcement{DB: databases.NewAnnouncementDatabase(a.dbHelper)}

	// healthchex and metrics
	r := api.New(a.client.Ping)
	r.Use(api.Instrument)

	if a.localDir != "" {
		r.PathPrefix(uploadsPrefix).Handler(http.StripPrefix(uploadsPrefix, uploadsHandler(a.localDir))).Methods("GET")
	}

	// officers watch new emergencies live; browsers cannot set headers on a
	// websocket handshake, so the token may come in the query string
	r.Handle("/ws/emergencies", TokenFromQuery(m.Middleware(officer(a.Feed)))).Methods("GET")

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.TimeoutMiddleware(requestTimeout))

	login := api.NewRateLimiter(a.Config.LoginRatePerSecond, a.Config.LoginRateBurst)
	apiRouter.Handle("/auth/register", login.Middleware(http.HandlerFunc(auth.RegisterHandler))).Methods("POST")
	apiRouter.Handle("/auth/login", login.Middleware(http.HandlerFunc(auth.LoginHandler))).Methods("POST")

	apiRouter.Handle("/auth/profile", m.Middleware(anyRole(http.HandlerFunc(auth.ProfileHandler)))).Methods("GET")
	apiRouter.Handle("/auth/profile", m.Middleware(anyRole(http.HandlerFunc(auth.UpdateProfileHandler)))).Methods("PUT")
	apiRouter.Handle("/auth/password", m.Middleware(anyRole(http.HandlerFunc(auth.ChangePasswordHandler)))).Methods("PUT")
	apiRouter.Handle("/auth/logout", m.Middleware(anyRole(http.HandlerFunc(auth.LogoutHandler)))).Methods("POST")

	// service catalog and applications; literal paths go before {id}
	apiRouter.Handle("/services", m.Optional(http.HandlerFunc(svc.ListHandler))).Methods("GET")
	apiRouter.Handle("/services", m.Middleware(officer(http.HandlerFunc(svc.CreateHandler)))).Methods("POST")
	apiRouter.Handle("/services/apply", m.Middleware(citizen(http.HandlerFunc(sr.ApplyHandler)))).Methods("POST")
	apiRouter.Handle("/services/my-requests", m.Middleware(citizen(http.HandlerFunc(sr.ListHandler)))).Methods("GET")
	apiRouter.Handle("/services/requests/{id}", m.Middleware(citizen(http.HandlerFunc(sr.GetHandler)))).Methods("GET")
	apiRouter.Handle("/services/requests/{id}", m.Middleware(citizen(http.HandlerFunc(sr.DeleteHandler)))).Methods("DELETE")
	apiRouter.Handle("/services/requests/{id}/attachments/{attachmentId}", m.Middleware(citizen(http.HandlerFunc(sr.RemoveAttachmentHandler)))).Methods("DELETE")
	apiRouter.Handle("/services/requests/{id}/additional-info", m.Middleware(citizen(http.HandlerFunc(sr.AdditionalInfoHandler)))).Methods("PUT")
	apiRouter.Handle("/services/requests/{id}/payment", m.Middleware(citizen(http.HandlerFunc(sr.PaymentHandler)))).Methods("GET")
	apiRouter.Handle("/services/{id}", m.Optional(http.HandlerFunc(svc.GetHandler))).Methods("GET")
	apiRouter.Handle("/services/{id}", m.Middleware(officer(http.HandlerFunc(svc.UpdateHandler)))).Methods("PUT")
	apiRouter.Handle("/services/{id}", m.Middleware(officer(http.HandlerFunc(svc.DeleteHandler)))).Methods("DELETE")

	// officer review of service requests
	apiRouter.Handle("/gs/requests", m.Middleware(officer(http.HandlerFunc(sr.ListHandler)))).Methods("GET")
	apiRouter.Handle("/gs/requests/{id}", m.Middleware(officer(http.HandlerFunc(sr.GetHandler)))).Methods("GET")
	apiRouter.Handle("/gs/requests/{id}/approve", m.Middleware(officer(http.HandlerFunc(sr.ApproveHandler)))).Methods("PUT")
	apiRouter.Handle("/gs/requests/{id}/reject", m.Middleware(officer(http.HandlerFunc(sr.RejectHandler)))).Methods("PUT")
	apiRouter.Handle("/gs/requests/{id}/request-info", m.Middleware(officer(http.HandlerFunc(sr.RequestInfoHandler)))).Methods("PUT")
	apiRouter.Handle("/gs/requests/{id}/status", m.Middleware(officer(http.HandlerFunc(sr.StatusHandler)))).Methods("PUT")
	apiRouter.Handle("/gs/requests/{id}/notes", m.Middleware(officer(http.HandlerFunc(sr.NoteHandler)))).Methods("POST")
	apiRouter.Handle("/gs/requests/{id}/attachments/{attachmentId}", m.Middleware(officer(http.HandlerFunc(sr.RemoveAttachmentHandler)))).Methods("DELETE")

	// appointments
	apiRouter.Handle("/appointments/available-slots", m.Middleware(anyRole(http.HandlerFunc(ap.SlotsHandler)))).Methods("GET")
	apiRouter.Handle("/appointments", m.Middleware(anyRole(http.HandlerFunc(ap.ListHandler)))).Methods("GET")
	apiRouter.Handle("/appointments", m.Middleware(citizen(http.HandlerFunc(ap.BookHandler)))).Methods("POST")
	apiRouter.Handle("/appointments/{id}", m.Middleware(anyRole(http.HandlerFunc(ap.GetHandler)))).Methods("GET")
	apiRouter.Handle("/appointments/{id}", m.Middleware(citizen(http.HandlerFunc(ap.CancelHandler)))).Methods("DELETE")
	apiRouter.Handle("/appointments/{id}/status", m.Middleware(officer(http.HandlerFunc(ap.StatusHandler)))).Methods("PUT")
	apiRouter.Handle("/appointments/{id}/notes", m.Middleware(anyRole(http.HandlerFunc(ap.NoteHandler)))).Methods("POST")
	apiRouter.Handle("/appointments/{id}/attachments/{attachmentId}", m.Middleware(anyRole(http.HandlerFunc(ap.RemoveAttachmentHandler)))).Methods("DELETE")

	// emergencies
	apiRouter.Handle("/emergencies", m.Middleware(anyRole(http.HandlerFunc(em.ListHandler)))).Methods("GET")
	apiRouter.Handle("/emergencies", m.Middleware(citizen(http.HandlerFunc(em.ReportHandler)))).Methods("POST")
	apiRouter.Handle("/emergencies/{id}", m.Middleware(anyRole(http.HandlerFunc(em.GetHandler)))).Methods("GET")
	apiRouter.Handle("/emergencies/{id}", m.Middleware(anyRole(http.HandlerFunc(em.DeleteHandler)))).Methods("DELETE")
	apiRouter.Handle("/emergencies/{id}/status", m.Middleware(officer(http.HandlerFunc(em.StatusHandler)))).Methods("PUT")
	apiRouter.Handle("/emergencies/{id}/notes", m.Middleware(anyRole(http.HandlerFunc(em.NoteHandler)))).Methods("POST")
	apiRouter.Handle("/emergencies/{id}/attachments/{attachmentId}", m.Middleware(anyRole(http.HandlerFunc(em.RemoveAttachmentHandler)))).Methods("DELETE")

	// legal cases
	apiRouter.Handle("/legal-cases", m.Middleware(anyRole(http.HandlerFunc(lc.ListHandler)))).Methods("GET")
	apiRouter.Handle("/legal-cases", m.Middleware(citizen(http.HandlerFunc(lc.FileHandler)))).Methods("POST")
	apiRouter.Handle("/legal-cases/{id}", m.Middleware(anyRole(http.HandlerFunc(lc.GetHandler)))).Methods("GET")
	apiRouter.Handle("/legal-cases/{id}", m.Middleware(anyRole(http.HandlerFunc(lc.DeleteHandler)))).Methods("DELETE")
	apiRouter.Handle("/legal-cases/{id}/status", m.Middleware(officer(http.HandlerFunc(lc.StatusHandler)))).Methods("PUT")
	apiRouter.Handle("/legal-cases/{id}/notes", m.Middleware(anyRole(http.HandlerFunc(lc.NoteHandler)))).Methods("POST")
	apiRouter.Handle("/legal-cases/{id}/attachments/{attachmentId}", m.Middleware(anyRole(http.HandlerFunc(lc.RemoveAttachmentHandler)))).Methods("DELETE")
	apiRouter.Handle("/legal-cases/{id}/appointment", m.Middleware(officer(http.HandlerFunc(lc.SetHearingHandler)))).Methods("PUT")
	apiRouter.Handle("/legal-cases/{id}/appointment", m.Middleware(anyRole(http.HandlerFunc(lc.CancelHearingHandler)))).Methods("DELETE")

	// forum
	apiRouter.Handle("/forums/discussions", m.Middleware(anyRole(http.HandlerFunc(forum.ListDiscussionsHandler)))).Methods("GET")
	apiRouter.Handle("/forums/discussions", m.Middleware(anyRole(http.HandlerFunc(forum.CreateDiscussionHandler)))).Methods("POST")
	apiRouter.Handle("/forums/discussions/{id}", m.Middleware(anyRole(http.HandlerFunc(forum.GetDiscussionHandler)))).Methods("GET")
	apiRouter.Handle("/forums/discussions/{id}", m.Middleware(anyRole(http.HandlerFunc(forum.UpdateDiscussionHandler)))).Methods("PUT")
	apiRouter.Handle("/forums/discussions/{id}", m.Middleware(anyRole(http.HandlerFunc(forum.DeleteDiscussionHandler)))).Methods("DELETE")
	apiRouter.Handle("/forums/discussions/{id}/vote", m.Middleware(anyRole(http.HandlerFunc(forum.VoteDiscussionHandler)))).Methods("POST")
	apiRouter.Handle("/forums/discussions/{id}/report", m.Middleware(anyRole(http.HandlerFunc(forum.ReportDiscussionHandler)))).Methods("POST")
	apiRouter.Handle("/forums/discussions/{id}/replies", m.Middleware(anyRole(http.HandlerFunc(forum.ListRepliesHandler)))).Methods("GET")
	apiRouter.Handle("/forums/discussions/{id}/replies", m.Middleware(anyRole(http.HandlerFunc(forum.CreateReplyHandler)))).Methods("POST")
	apiRouter.Handle("/forums/discussions/{id}/status", m.Middleware(officer(http.HandlerFunc(forum.StatusHandler)))).Methods("PUT")
	apiRouter.Handle("/forums/discussions/{id}/pin", m.Middleware(officer(http.HandlerFunc(forum.PinHandler)))).Methods("PUT")
	apiRouter.Handle("/forums/replies/{id}", m.Middleware(anyRole(http.HandlerFunc(forum.DeleteReplyHandler)))).Methods("DELETE")
	apiRouter.Handle("/forums/replies/{id}/vote", m.Middleware(anyRole(http.HandlerFunc(forum.VoteReplyHandler)))).Methods("POST")
	apiRouter.Handle("/forums/replies/{id}/report", m.Middleware(anyRole(http.HandlerFunc(forum.ReportReplyHandler)))).Methods("POST")
	apiRouter.Handle("/forums/replies/{id}/status", m.Middleware(officer(http.HandlerFunc(forum.ReplyStatusHandler)))).Methods("PUT")

	// locations
	apiRouter.Handle("/locations", m.Middleware(anyRole(http.HandlerFunc(loc.ListHandler)))).Methods("GET")
	apiRouter.Handle("/locations", m.Middleware(anyRole(http.HandlerFunc(loc.CreateHandler)))).Methods("POST")
	apiRouter.Handle("/locations/near", m.Middleware(anyRole(http.HandlerFunc(loc.NearHandler)))).Methods("GET")
	apiRouter.Handle("/locations/{id}", m.Middleware(anyRole(http.HandlerFunc(loc.GetHandler)))).Methods("GET")
	apiRouter.Handle("/locations/{id}", m.Middleware(anyRole(http.HandlerFunc(loc.DeleteHandler)))).Methods("DELETE")
	apiRouter.Handle("/locations/{id}/verify", m.Middleware(officer(http.HandlerFunc(loc.VerifyHandler)))).Methods("PUT")

	// announcements
	apiRouter.Handle("/announcements", m.Optional(http.HandlerFunc(ann.GetAnnouncementsHandler))).Methods("GET")
	apiRouter.Handle("/announcements", m.Middleware(officer(http.HandlerFunc(ann.CreateAnnouncementHandler)))).Methods("POST")
	apiRouter.Handle("/announcements/{id}", m.Middleware(officer(http.HandlerFunc(ann.UpdateAnnouncementHandler)))).Methods("PUT")
	apiRouter.Handle("/announcements/{id}", m.Middleware(officer(http.HandlerFunc(ann.DeleteAnnouncementHandler)))).Methods("DELETE")

	return r
}

// Handler wraps the router in the middleware that must also see requests no
// route matches, such as CORS preflights.
func (a *App) Handler() http.Handler {
	var h http.Handler = a.Router
	h = api.MaxBodyBytes(a.Config.MaxUploadBytes)(h)
	h = api.CORS(a.Config.AllowedOrigin)(h)
	h = api.RequestID(h)
	return api.Recover(h)
}

// uploadsHandler serves committed local files. Staging files and directory
// listings are not served.
func uploadsHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p == "" || strings.HasSuffix(p, "/") || strings.HasPrefix(p, ".") || strings.Contains(p, "/.") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}
	a.client = client

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect(ctx)
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("gs-portal-api has connected to the database")

	if err := databases.EnsureIndexes(ctx, a.dbHelper); err != nil {
		return err
	}

	if a.Store == nil {
		if a.Store, err = a.openStore(ctx); err != nil {
			return err
		}
	}

	// initialize api router
	a.initializeRoutes()
	return nil
}

// openStore picks the attachment backend: Cloudinary, then MinIO, then the
// local upload directory.
func (a *App) openStore(ctx context.Context) (storage.Store, error) {
	switch {
	case a.Config.CloudinaryURL != "":
		st, err := storage.NewCloudinaryStore(a.Config.CloudinaryURL, "gs-portal")
		if err != nil {
			return nil, err
		}
		zap.S().Info("storing attachments in cloudinary")
		return st, nil
	case a.Config.MinioEndpoint != "":
		st, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  a.Config.MinioEndpoint,
			AccessKey: a.Config.MinioAccessKey,
			SecretKey: a.Config.MinioSecretKey,
			Bucket:    a.Config.MinioBucket,
			Region:    a.Config.MinioRegion,
			PublicURL: a.Config.MinioPublicURL,
		})
		if err != nil {
			return nil, err
		}
		zap.S().Infow("storing attachments in minio", "endpoint", a.Config.MinioEndpoint, "bucket", a.Config.MinioBucket)
		return st, nil
	}
	st, err := storage.NewLocalStore(a.Config.UploadDir, strings.TrimSuffix(a.Config.BaseURL, "/")+strings.TrimSuffix(uploadsPrefix, "/"))
	if err != nil {
		return nil, err
	}
	zap.S().Infow("storing attachments on local disk", "dir", a.Config.UploadDir)
	a.localDir = a.Config.UploadDir
	return st, nil
}

// Close disconnects from the database.
func (a *App) Close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	return a.client.Disconnect(ctx)
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}
