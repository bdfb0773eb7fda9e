package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/agriconnect/agriconnect-api/api"
	"github.com/agriconnect/agriconnect-api/api/scheduler"
	"github.com/agriconnect/agriconnect-api/config"
	"github.com/agriconnect/agriconnect-api/databases"
	"github.com/agriconnect/agriconnect-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Scheduler *scheduler.Scheduler
	dbHelper  databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	userDB := databases.NewUserDatabase(a.dbHelper)
	roomDB := databases.NewChatRoomDatabase(a.dbHelper)
	messageDB := databases.NewMessageDatabase(a.dbHelper)
	orderDB := databases.NewConsultOrderDatabase(a.dbHelper)
	ratingDB := databases.NewRatingDatabase(a.dbHelper)

	notifier := Notifier{UDB: userDB}
	u := User{DB: userDB}
	room := ChatRoom{DB: roomDB, MDB: messageDB, UDB: userDB}
	msg := Message{MDB: messageDB, RDB: roomDB, UDB: userDB}
	order := ConsultOrder{ODB: orderDB, RatDB: ratingDB, UDB: userDB, Msg: msg, Notifier: notifier}
	rating := Rating{DB: ratingDB, RDB: roomDB, ODB: orderDB, UDB: userDB, Notifier: notifier}
	realtime := Realtime{}
	cloudinaryHandler := CloudinaryHandler{}
	metricsHandler := MetricsHandler{}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// realtime delivery; the token query param carries auth
	r.HandleFunc("/ws/notifications", HandleNotificationsWebSocket)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/chat/room", api.Middleware(http.HandlerFunc(room.GetOrCreateRoomHandler))).Methods("POST")
	apiCreate.Handle("/chat/rooms/{user_id}", api.Middleware(http.HandlerFunc(room.ListRoomsHandler))).Methods("GET")
	apiCreate.Handle("/chat/room/{room_id}/messages", api.Middleware(http.HandlerFunc(msg.PostMessageHandler))).Methods("POST")
	apiCreate.Handle("/chat/room/{room_id}/messages", api.Middleware(http.HandlerFunc(msg.ListMessagesHandler))).Methods("GET")
	apiCreate.Handle("/chat/room/{room_id}/messages/{message_id}", api.Middleware(http.HandlerFunc(msg.DeleteMessageHandler))).Methods("DELETE")
	apiCreate.Handle("/chat/room/{room_id}/rate", api.Middleware(http.HandlerFunc(rating.RateExpertHandler))).Methods("POST")

	apiCreate.Handle("/consult-orders", api.Middleware(http.HandlerFunc(order.CreateOrderHandler))).Methods("POST")
	apiCreate.Handle("/consult-orders/latest-completed", api.Middleware(http.HandlerFunc(order.LatestCompletedHandler))).Methods("GET")
	apiCreate.Handle("/consult-order/{order_id}/status", api.Middleware(http.HandlerFunc(order.SetStatusHandler))).Methods("PUT")

	apiCreate.Handle("/user/{user_id}", api.Middleware(http.HandlerFunc(u.UserHandler))).Methods("GET")
	apiCreate.Handle("/users/{user_id}/notifications", api.Middleware(http.HandlerFunc(u.GetUserNotificationsHandler))).Methods("GET")
	apiCreate.Handle("/user/{user_id}/notifications/{notification_id}/read", api.Middleware(http.HandlerFunc(u.MarkNotificationAsReadHandler))).Methods("PUT")
	apiCreate.Handle("/user/{user_id}/notifications/{notification_id}", api.Middleware(http.HandlerFunc(u.DeleteNotificationHandler))).Methods("DELETE")

	apiCreate.Handle("/realtime/token", api.Middleware(http.HandlerFunc(realtime.RealtimeTokenHandler))).Methods("POST")
	apiCreate.Handle("/generate-signature", api.Middleware(http.HandlerFunc(cloudinaryHandler.GenerateSignature))).Methods("POST")

	apiCreate.Handle("/metrics/summary", api.Middleware(http.HandlerFunc(metricsHandler.GetMetricsSummary))).Methods("GET")

	r.Use(api.MetricsMiddleware)
	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("agriconnect-api has connected to the database")

	a.ensureIndexes()
	a.startScheduler()

	// initialize api router
	a.initializeRoutes()
	return nil

}

// ensureIndexes declares the unique indexes that back the room-per-pair and
// one-rating-per-consultation invariants
func (a *App) ensureIndexes() {
	ctx, cancel := api.WithQueryTimeout(nil)
	defer cancel()

	if err := databases.NewChatRoomDatabase(a.dbHelper).EnsureIndexes(ctx); err != nil {
		zap.S().Errorw("failed to ensure chatroom indexes", "error", err)
	}
	if err := databases.NewRatingDatabase(a.dbHelper).EnsureIndexes(ctx); err != nil {
		zap.S().Errorw("failed to ensure rating indexes", "error", err)
	}
}

func (a *App) startScheduler() {
	a.Scheduler = scheduler.NewScheduler(
		databases.NewRatingDatabase(a.dbHelper),
		databases.NewUserDatabase(a.dbHelper),
		databases.NewSchedulerLockDatabase(a.dbHelper),
	)
	a.Scheduler.Start()
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
